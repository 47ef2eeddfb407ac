package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/flemzord/bionic/internal/config"
	"github.com/flemzord/bionic/internal/memory"
	"github.com/flemzord/bionic/pkg/app"
)

func memoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect and edit the long-term memory file",
	}
	cmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	cmd.AddCommand(memoryListCmd(), memoryAddCmd(), memoryExtractCmd())
	return cmd
}

func openMemory(cmd *cobra.Command) (*memory.FileStore, float64, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, _, err := app.LoadConfig(cfgPath)
	if err != nil {
		return nil, 0, err
	}
	return app.OpenMemory(cfg, memoryLogger(cmd.ErrOrStderr(), cfg)), cfg.Memory.DefaultImportance, nil
}

// memoryLogger reports warnings only, masked like the server logger.
func memoryLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	return app.NewLogger(w, cfg.Log, slog.LevelWarn, app.NewRedactor(cfg))
}

func memoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [group]",
		Short: "List groups, or the memories of one group",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openMemory(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, g := range store.Groups() {
					fmt.Fprintf(out, "%s\t%d\n", g, len(store.Entries(g)))
				}
				return nil
			}
			for _, e := range store.Entries(args[0]) {
				fmt.Fprintf(out, "%s\t%.2f\t%s\n", e.Timestamp.Format(time.DateTime), e.Importance, e.Content)
			}
			return nil
		},
	}
}

func memoryAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <group> <content...>",
		Short: "Store a memory for a group",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, importance, err := openMemory(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("importance") {
				importance, _ = cmd.Flags().GetFloat64("importance")
			}
			added, err := store.AddMemory(args[0], strings.Join(args[1:], " "), importance)
			if err != nil {
				if errors.Is(err, memory.ErrEmptyContent) {
					return err
				}
				return fmt.Errorf("memory not saved: %w", err)
			}
			if added {
				fmt.Fprintln(cmd.OutOrStdout(), "added")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "already known")
			}
			return nil
		},
	}
	cmd.Flags().Float64("importance", 0, "Importance score (defaults to memory.default_importance)")
	return cmd
}

func memoryExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <text...>",
		Short: "Print the memory tag content found in a reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label, _ := cmd.Flags().GetString("label")
			fact, ok := memory.NewTagSyntax(label).Extract(strings.Join(args, " "))
			if !ok {
				return errors.New("no memory tag found")
			}
			fmt.Fprintln(cmd.OutOrStdout(), fact)
			return nil
		},
	}
	cmd.Flags().String("label", memory.DefaultTagLabel, "Tag label")
	return cmd
}
