package commands

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/osintlab/WDX/config"
	"github.com/osintlab/WDX/display"
	"github.com/osintlab/WDX/errors"
)

// ConfigCmd represents the config command
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage WDX configuration",
	Long: `Inspect the effective WDX configuration after merging defaults,
~/.wdx/wdx.toml, the nearest project wdx.toml, and WDX_* environment
variables.

Examples:
  wdx config show          # Effective configuration as TOML
  wdx config show --json   # Effective configuration as JSON`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

func init() {
	ConfigCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(cfg)
	}

	out, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to render configuration")
	}
	fmt.Print(string(out))
	return nil
}
