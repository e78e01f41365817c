package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/cloudinstall/internal/charms"
	"github.com/danieljhkim/cloudinstall/internal/config"
)

var (
	deployTo           string
	deployConstraints  map[string]string
	deploySeries       string
	deployRelate       []string
	deployDigest       string
	deployTimeout      time.Duration
	deploySetRelations bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy <charm>",
	Short: "Deploy a charm",
	Long: `Deploy a charm with juju.

glance-simplestreams-sync is installed from its upstream stable branch into
the local charm repository and deployed from there. If the download,
verification or extraction fails, the charm-store version is deployed
instead. Every other charm is deployed from the charm store.

Examples:
  # Deploy onto a new container on machine 1
  cloud-install deploy glance-simplestreams-sync --to lxc:1

  # Deploy with constraints and relate afterwards
  cloud-install deploy keystone --constraints mem=2G --relate mysql --set-relations`,
	Args: cobra.ExactArgs(1),
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().StringVar(&deployTo, "to", "", "Placement directive passed to juju --to")
	deployCmd.Flags().StringToStringVar(&deployConstraints, "constraints", nil, "Machine constraints as key=value pairs")
	deployCmd.Flags().StringVar(&deploySeries, "series", "", "Series to deploy (default: config or host series)")
	deployCmd.Flags().StringSliceVar(&deployRelate, "relate", nil, "Charms to relate to (charm-store charms only)")
	deployCmd.Flags().StringVar(&deployDigest, "config-digest", "", "Expected SHA-256 of the glance-simplestreams-sync tarball")
	deployCmd.Flags().DurationVar(&deployTimeout, "timeout", 0, "Timeout for each juju invocation (default 30m)")
	deployCmd.Flags().BoolVar(&deploySetRelations, "set-relations", false, "Add relations after a successful deploy")
}

// deployView is the JSON form of a deploy result.
type deployView struct {
	Charm     string   `json:"charm"`
	Source    string   `json:"source"`
	Failed    bool     `json:"failed"`
	Error     string   `json:"error,omitempty"`
	Command   []string `json:"command,omitempty"`
	AttemptID string   `json:"attempt_id,omitempty"`
	StartedAt string   `json:"started_at"`
	Duration  string   `json:"duration"`
	States    []string `json:"states,omitempty"`
	Related   []string `json:"related,omitempty"`
}

func newDeployView(result *charms.DeployResult, related []string) deployView {
	v := deployView{
		Charm:     result.Charm,
		Source:    string(result.Source),
		Failed:    result.Failed,
		AttemptID: result.AttemptID,
		StartedAt: result.StartedAt.Format(time.RFC3339),
		Duration:  result.Duration.Round(time.Second).String(),
		Related:   related,
	}
	if result.Err != nil {
		v.Error = result.Err.Error()
	}
	if result.Command.Name != "" {
		v.Command = result.Command.Argv()
	}
	for _, s := range result.States {
		v.States = append(v.States, string(s))
	}
	return v
}

func runDeploy(cmd *cobra.Command, args []string) error {
	name := args[0]

	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	series, err := config.ResolveSeries(deploySeries, e.cfg, config.OSReleasePath)
	if err != nil {
		return err
	}

	charm := e.newCharm(name, charmOptions{
		series:  series,
		related: deployRelate,
		digest:  deployDigest,
		timeout: deployTimeout,
	})

	ctx := context.Background()
	spec := charms.MachineSpec{Placement: deployTo, Constraints: deployConstraints}

	result, err := charm.Deploy(ctx, spec)
	if err != nil {
		return fmt.Errorf("failed to deploy %s: %w", name, err)
	}
	if result.Failed {
		return fmt.Errorf("failed to deploy %s: %w", name, result.Err)
	}

	if deploySetRelations {
		if err := charm.SetRelations(ctx); err != nil {
			return fmt.Errorf("failed to relate %s: %w", name, err)
		}
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return outputJSON(out, newDeployView(result, charm.Related()))
	}

	printDeployResult(out, result)
	return nil
}

func printDeployResult(w io.Writer, result *charms.DeployResult) {
	PrintSuccess(w, fmt.Sprintf("Deployed %s from the %s repository", result.Charm, sourceLabel(result.Source)))
	PrintLabelValue(w, "command", result.Command.String())
	PrintLabelValue(w, "took", result.Duration.Round(time.Second).String())
	if result.AttemptID != "" {
		PrintLabelValue(w, "attempt", result.AttemptID)
	}
	if len(result.States) > 0 && result.Source == charms.SourceStore {
		PrintWarning(w, "local install failed; deployed the charm-store version")
	}
}

func sourceLabel(s charms.DeploySource) string {
	if s == charms.SourceLocal {
		return "local"
	}
	return "charm store"
}
