package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/tracefix/internal/config"
)

var configPath string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and validate the run configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfigFlag()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "provider:\n  name:  %s\n  model: %s\n", orDefault(cfg.Provider.Name, "auto"), orDefault(cfg.Provider.Model, "(provider default)"))
		fmt.Fprintf(out, "paths:\n  codebase: %s\n  trace:    %s\n  output:   %s\n", cfg.Paths.Codebase, cfg.Paths.Trace, cfg.Paths.Output)
		fmt.Fprintf(out, "limits:\n  max_file_bytes:     %d\n", cfg.Limits.MaxFileBytes)
		fmt.Fprintf(out, "  allowed_extensions: %s\n", strings.Join(cfg.Limits.AllowedExtensions, ", "))
		fmt.Fprintf(out, "  max_iterations:     %d\n", cfg.Limits.MaxIterations)
		fmt.Fprintf(out, "  command_timeout:    %s\n", cfg.Limits.CommandTimeout)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration for problems",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfigFlag()
		if err != nil {
			return err
		}
		errs := cfg.Validate()
		if len(errs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		}
		for _, e := range errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "config: %s\n", e.Error())
		}
		return fmt.Errorf("invalid configuration (%d problems)", len(errs))
	},
}

func loadConfigFlag() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadDefault()
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func init() {
	configCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a tracefix.yaml config file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}
