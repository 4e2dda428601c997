package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/castsync/cast/pkg/cast"
	"github.com/castsync/cast/pkg/engine"
	"github.com/castsync/cast/pkg/plan"
)

var (
	syncMode        string
	syncRule        string
	syncIncludeHubs bool
)

var syncCmd = &cobra.Command{
	Use:   "sync <source> <dest>",
	Short: "Synchronize a destination vault from a source vault",
	Long: `Plans and applies a one-directional sync from source into dest.
The destination's exclusive lock is held for the duration; the source is
not locked, its documents are only read, and its peer journal for this
pair is written.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		source, err := resolveVaultArg(args[0])
		if err != nil {
			fatal("failed to resolve source", err)
		}
		dest, err := resolveVaultArg(args[1])
		if err != nil {
			fatal("failed to resolve destination", err)
		}

		opts := []engine.Option{engine.WithLogger(slog.Default())}
		if syncMode != "" {
			opts = append(opts, engine.WithForcedMode(plan.Mode(syncMode)))
		}
		if syncRule != "" {
			opts = append(opts, engine.WithRule(syncRule))
		}
		if syncIncludeHubs {
			opts = append(opts, engine.WithHubs())
		}

		result, err := engine.Sync(context.Background(), source, dest, opts...)
		report := cast.NewRunReport(result, err)

		if err != nil {
			fmt.Fprintf(os.Stderr, "sync failed: %v\n", err)
			os.Exit(int(report.ExitCode))
		}

		for _, o := range result.Report.Outcomes {
			status := "ok"
			if o.Err != nil {
				status = o.Err.Error()
			} else if o.ConflictPath != "" {
				status = "conflict: " + o.ConflictPath
			}
			fmt.Printf("%-8s %s: %s\n", o.Action.Type, o.Action.DestPath, status)
		}

		if conflicts := report.Conflicts(); len(conflicts) > 0 {
			fmt.Fprintf(os.Stderr, "%d unresolved conflict(s)\n", len(conflicts))
		}

		os.Exit(int(report.ExitCode))
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().StringVar(&syncMode, "mode", "", "force a sync mode (broadcast|bidirectional|mirror), overriding role-derived eligibility")
	syncCmd.Flags().StringVar(&syncRule, "rule", "", "scope the sync to a named sync rule declared in the source vault's config")
	syncCmd.Flags().BoolVar(&syncIncludeHubs, "include-hubs", false, "include folder-note hub documents, excluded by default")
}
