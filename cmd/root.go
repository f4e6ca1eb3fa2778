package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mixsmith",
	Short: "mixsmith plans and renders AI-generated music mix sessions.",
	Long: `mixsmith turns a one-line concept into a finished DJ-style mix:
a language model plans the session, music providers generate the tracks,
previously generated tracks are reused from the library, and a
deterministic mixer renders the final crossfaded mp3.`,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "./config/config.yaml", "path to the config file")
}
