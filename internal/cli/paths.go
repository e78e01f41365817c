package cli

import (
	"github.com/spf13/cobra"
)

var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show the directories of an installation",
	Long: `Show where an installation keeps its settings, juju home and local
charm repository.`,
	Args: cobra.NoArgs,
	RunE: runPaths,
}

func runPaths(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	p := e.paths
	rows := [][]string{
		{"root", p.Root},
		{"config", p.Config},
		{"charm-config", p.CharmConfig},
		{"juju-home", p.JujuHome},
		{"juju-environments", p.JujuEnvironments},
		{"local-charms", p.LocalCharms},
		{"bin", p.Bin},
		{"home-env", p.HomeEnv(false)},
		{"home-env-expanded", p.HomeEnv(true)},
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		view := make(map[string]string, len(rows)+1)
		view["install_name"] = p.InstallName
		for _, r := range rows {
			view[r[0]] = r[1]
		}
		return outputJSON(out, view)
	}

	PrintSection(out, "Installation "+p.InstallName)
	PrintTable(out, []string{"NAME", "PATH"}, rows)
	return nil
}
