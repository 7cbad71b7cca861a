// Package cli defines the Cobra commands of the wayfinder binary.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev" // set via ldflags at build time

var rootCmd = &cobra.Command{
	Use:   "wayfinder",
	Short: "Conversation-stage decision service for guided interviews",
	Long: `Wayfinder decides where a guided self-discovery interview stands:
how engaged the user is, which stage the conversation is in, whether
suggestion cards are ready, and what the interviewer should do next.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(bootstrapCmd)
}
