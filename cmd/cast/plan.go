package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/castsync/cast/pkg/engine"
)

var planRule string

var planCmd = &cobra.Command{
	Use:   "plan <source> <dest>",
	Short: "Show what a sync would do without applying it",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		source, err := resolveVaultArg(args[0])
		if err != nil {
			fatal("failed to resolve source", err)
		}
		dest, err := resolveVaultArg(args[1])
		if err != nil {
			fatal("failed to resolve destination", err)
		}

		opts := []engine.Option{engine.WithLogger(slog.Default()), engine.WithDryRun()}
		if planRule != "" {
			opts = append(opts, engine.WithRule(planRule))
		}

		result, err := engine.Sync(context.Background(), source, dest, opts...)
		if err != nil {
			fatal("failed to plan sync", err)
		}

		if len(result.Actions) == 0 {
			fmt.Println("Nothing to do.")
			return
		}
		for _, a := range result.Actions {
			fmt.Printf("%-8s %s -> %s (%s)\n", a.Type, a.SourcePath, a.DestPath, a.Reason)
		}
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringVar(&planRule, "rule", "", "scope the plan to a named sync rule declared in the source vault's config")
}
