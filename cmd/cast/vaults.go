package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/castsync/cast/pkg/registry"
	"github.com/castsync/cast/pkg/vault"
)

var vaultsCmd = &cobra.Command{
	Use:   "vaults",
	Short: "Manage the local vault id -> path registry",
}

var vaultsAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Register a vault's path under its configured vault id",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			fatal("failed to resolve path", err)
		}
		v, err := vault.Open(abs)
		if err != nil {
			fatal("failed to open vault", err)
		}

		regPath, err := registry.DefaultPath()
		if err != nil {
			fatal("failed to resolve registry path", err)
		}
		reg, err := registry.Load(regPath)
		if err != nil {
			fatal("failed to load registry", err)
		}
		reg.Set(v.Config.VaultID, abs)
		if err := reg.Save(); err != nil {
			fatal("failed to save registry", err)
		}
		fmt.Printf("Registered %s -> %s\n", v.Config.VaultID, abs)
	},
}

var vaultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered vaults",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		regPath, err := registry.DefaultPath()
		if err != nil {
			fatal("failed to resolve registry path", err)
		}
		reg, err := registry.Load(regPath)
		if err != nil {
			fatal("failed to load registry", err)
		}
		for id, path := range reg.Vaults {
			fmt.Printf("%s  %s\n", id, path)
		}
	},
}

func init() {
	rootCmd.AddCommand(vaultsCmd)
	vaultsCmd.AddCommand(vaultsAddCmd, vaultsListCmd)
}
