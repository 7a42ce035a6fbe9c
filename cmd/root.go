// Package cmd implements the edvisor command line interface.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/edvisor-fi/edvisor/internal/log"
)

var (
	debug   bool
	logJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "edvisor",
	Short: "Retrieval-augmented study and visa advisor for Finland",
	Long: `Edvisor answers questions about studying in Finland using a curated
knowledge base of university records and visa fact sheets. It retrieves the
most relevant passages, folds in the conversation so far, and asks the
configured model for an answer that fits the context budget.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log in JSON format")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(versionCmd)
}

func newLogger() log.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level, JSON: logJSON})
}
