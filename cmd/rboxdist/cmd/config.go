package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/rboxdist/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Long: `Print the configuration after applying defaults, the config file,
RBOXDIST_* environment variables and flags, as YAML.

Examples:
  rboxdist config
  rboxdist config --write rboxdist.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path, _ := cmd.Flags().GetString("write"); path != "" {
				if err := config.GenerateDefaultConfigFile(path); err != nil {
					return fmt.Errorf("failed to write config file: %w", err)
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Default configuration written to %s\n", path)
				return err
			}

			cfg := a.config()
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode configuration: %w", err)
			}
			if used := a.loader.GetConfigFileUsed(); used != "" {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "# config file: %s\n", used); err != nil {
					return err
				}
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().String("write", "", "write the default configuration to this file instead")
	return cmd
}
