package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/castsync/cast/pkg/engine"
)

var (
	indexFix     bool
	indexRebuild bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Rebuild a vault's index",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}

		opts := []engine.Option{engine.WithLogger(slog.Default())}
		if indexFix {
			opts = append(opts, engine.WithAutoFixIDs())
		}
		if indexRebuild {
			opts = append(opts, engine.WithRebuild())
		}

		entries, err := engine.Reindex(context.Background(), root, opts...)
		if err != nil {
			fatal("failed to index vault", err)
		}

		fmt.Fprintf(os.Stdout, "Indexed %d documents\n", len(entries))
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&indexFix, "fix", false, "inject a missing cast-id into eligible documents")
	indexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "discard cached digests and re-normalize every file")
}
