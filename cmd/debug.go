package cmd

import (
	"github.com/spf13/cobra"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Local debugging helpers for the download token contract",
}

func init() {
	rootCmd.AddCommand(debugCmd)
}
