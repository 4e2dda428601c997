package main

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/castsync/cast/pkg/vault"
)

var initVaultID string

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a new vault",
	Long:  `Creates the .cast system directory and a default config.yaml at path (default: current directory).`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			fatal("failed to resolve vault path", err)
		}

		id := initVaultID
		if id == "" {
			id = uuid.New().String()
		}

		if err := vault.Init(abs, vault.DefaultConfig(id)); err != nil {
			fatal("failed to initialize vault", err)
		}

		fmt.Printf("Initialized vault %s at %s\n", id, abs)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initVaultID, "id", "", "vault id (default: a newly generated UUID)")
}
