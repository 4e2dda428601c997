package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/castsync/cast/pkg/vault"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the protocol version this build of cast speaks",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cast-version %s\n", vault.SupportedCastVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
