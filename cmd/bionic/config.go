package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/bionic/pkg/app"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(configCheckCmd(), configShowCmd())
	return cmd
}

func configCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := app.LoadConfig(firstArg(args))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK (%s)\n", path)
			fmt.Fprintf(out, "  persona:   %s (%s)\n", cfg.Persona.BotName, cfg.Persona.Path)
			fmt.Fprintf(out, "  memory:    %s\n", cfg.Memory.LongTermPath)
			fmt.Fprintf(out, "  summaries: %t (provider configured: %t)\n", cfg.Summary.Enabled, cfg.Provider.Anthropic.Configured())
			fmt.Fprintf(out, "  gateway:   %t (%s)\n", cfg.Gateway.Enabled, cfg.Gateway.Bind)
			return nil
		},
	}
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [path]",
		Short: "Print the resolved configuration with secrets redacted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.LoadConfig(firstArg(args))
			if err != nil {
				return err
			}
			raw, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			var tree map[string]any
			if err := yaml.Unmarshal(raw, &tree); err != nil {
				return err
			}
			app.NewRedactor(cfg).RedactMap(tree)

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(tree)
		},
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
