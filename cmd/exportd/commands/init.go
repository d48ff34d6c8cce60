package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/go-nfsd/exportd/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init <export-path>",
	Short: "Write a sample configuration file",
	Long: `Write a sample exportd configuration file for the given export path.

By default the file is created at $XDG_CONFIG_HOME/exportd/config.yaml.
Use --config to pick a different location.

Examples:
  exportd init /srv/export
  exportd init /srv/export --config /etc/exportd/config.yaml
  exportd init /srv/export --force`,
	Args: cobra.ExactArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	exportPath := args[0]

	path := GetConfigFile()
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	cfg := config.Default(exportPath)
	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Printf("  2. Start the server with: exportd start --config %s\n", path)
	return nil
}
