package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/castsync/cast/pkg/index"
	"github.com/castsync/cast/pkg/vault"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status [path]",
	Short: "Show a vault's configuration and index summary",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}

		v, err := vault.Open(root)
		if err != nil {
			fatal("failed to open vault", err)
		}

		idx, err := index.Open(v.Layout.IndexPath())
		if err != nil {
			fatal("failed to read index", err)
		}

		state := v.State().(vault.VaultState)

		if statusJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			_ = encoder.Encode(map[string]any{
				"vault":   state,
				"entries": len(idx.Snapshot()),
			})
			return
		}

		fmt.Printf("vault:        %s\n", state.VaultID)
		fmt.Printf("cast-version: %s\n", state.CastVersion)
		fmt.Printf("root:         %s\n", state.Root)
		fmt.Printf("entries:      %d\n", len(idx.Snapshot()))
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output in JSON format")
}
