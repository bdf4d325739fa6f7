package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "cachectl",
	Short:        "Inspect harmony-api cache snapshots and catalogue data",
	SilenceUsage: true,
	Long: `cachectl reads the on-disk cache snapshots and catalogue files used by
harmony-api, and can follow snapshot events on the NATS bus.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
