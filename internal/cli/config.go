package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage installation settings",
	Long: `Manage the settings document of an installation.

Settings are stored in ~/.cloud-install/<install-name>/config.yaml and are
readable by the owner only.`,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a setting",
	Long: `Store a setting and save the settings document.

The value is read as YAML, so numbers, booleans and flow mappings keep
their type.

Examples:
  cloud-install config set install_type multi
  cloud-install config set maascreds '{api_host: 10.0.0.1, api_key: abc}'`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print every setting",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	value, ok := e.cfg.Get(key)
	if !ok {
		return fmt.Errorf("setting %q is not set", key)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return outputJSON(out, map[string]any{key: value})
	}

	if s, ok := value.(string); ok {
		PrintInfo(out, s)
		return nil
	}
	data, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]

	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	e.cfg.Set(key, parseValue(raw))
	if err := e.cfg.Save(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return outputJSON(out, map[string]any{"key": key, "path": e.cfg.Path()})
	}
	PrintSuccess(out, fmt.Sprintf("Saved %s to %s", key, e.cfg.Path()))
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	doc := e.cfg.Document()
	out := cmd.OutOrStdout()
	if jsonOutput {
		return outputJSON(out, doc)
	}

	PrintSection(out, fmt.Sprintf("Settings (%s)", e.cfg.Path()))
	rows := make([][]string, 0, len(doc))
	for _, k := range slices.Sorted(maps.Keys(doc)) {
		rows = append(rows, []string{k, displayValue(doc[k])})
	}
	PrintTable(out, []string{"KEY", "VALUE"}, rows)
	return nil
}

// parseValue reads raw as a YAML value, falling back to the raw string.
func parseValue(raw string) any {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
		return raw
	}
	return v
}

// displayValue renders a setting on one line.
func displayValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	}
	var node yaml.Node
	if err := node.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	node.Style = yaml.FlowStyle
	data, err := yaml.Marshal(&node)
	if err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(string(data), "\n")
}
