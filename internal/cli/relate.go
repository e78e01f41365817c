package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/cloudinstall/internal/config"
)

var relateSeries string

var relateCmd = &cobra.Command{
	Use:   "relate <charm> [related-charm...]",
	Short: "Add relations for a deployed charm",
	Long: `Add juju relations between a deployed charm and the charms it relates to.

glance-simplestreams-sync is related to keystone, and to rabbitmq-server
when the charm was installed into the local charm repository. For any other
charm the related charms are given as arguments.

Examples:
  cloud-install relate glance-simplestreams-sync
  cloud-install relate keystone mysql`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRelate,
}

func init() {
	relateCmd.Flags().StringVar(&relateSeries, "series", "", "Series the charm was deployed with (default: config or host series)")
}

func runRelate(cmd *cobra.Command, args []string) error {
	name := args[0]

	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	series, err := config.ResolveSeries(relateSeries, e.cfg, config.OSReleasePath)
	if err != nil {
		return err
	}
	charm := e.newCharm(name, charmOptions{series: series, related: args[1:]})

	if err := charm.SetRelations(context.Background()); err != nil {
		return fmt.Errorf("failed to relate %s: %w", name, err)
	}

	out := cmd.OutOrStdout()
	related := charm.Related()
	if jsonOutput {
		return outputJSON(out, map[string]any{"charm": name, "related": related})
	}

	if len(related) == 0 {
		PrintEmptyState(out, "No relations to add")
		return nil
	}
	PrintSuccess(out, fmt.Sprintf("Related %s to:", name))
	PrintList(out, related, 1)
	return nil
}
