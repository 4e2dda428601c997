package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/castsync/cast/pkg/engine"
	"github.com/castsync/cast/pkg/watch"
)

var watchFix bool

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch a vault and reindex it on every filesystem change",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		log := slog.Default()

		opts := []engine.Option{engine.WithLogger(log)}
		if watchFix {
			opts = append(opts, engine.WithAutoFixIDs())
		}

		onEvent := func() {
			entries, err := engine.Reindex(context.Background(), root, opts...)
			if err != nil {
				log.Error("reindex failed", "err", err)
				return
			}
			log.Info("reindexed", "documents", len(entries))
		}

		w, err := watch.New(root, onEvent, watch.WithLogger(log))
		if err != nil {
			fatal("failed to start watcher", err)
		}
		defer w.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(os.Stdout, "Watching %s for changes. Press Ctrl-C to stop.\n", root)
		if err := w.Run(ctx); err != nil {
			fatal("watcher stopped with error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchFix, "fix", false, "inject a missing cast-id into eligible documents during each reindex")
}
