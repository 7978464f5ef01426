package cmd

import (
	"log/slog"

	"github.com/facereader/facereader/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var cfg *config.Config

	cmd := &cobra.Command{
		Use:   "facereader",
		Short: "Face reading with vision-capable LLMs",
		Long: `facereader reads a face photo in one of several modes (life path, couple
compatibility, daily qi, aging, 2026 career, soul mirror, two-year fortune)
using a vision-capable LLM.

It serves a browser interface and JSON API, and offers offline commands for
mirror splitting, one-shot readings and batch runs.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			c, err := config.Load()
			if err != nil {
				return err
			}
			cfg = c
			slog.SetDefault(config.NewLogger(cfg.Environment, cfg.LogFile))
			return nil
		},
	}

	getConfig := func() *config.Config { return cfg }

	// Add subcommands
	cmd.AddCommand(newServeCmd(getConfig))
	cmd.AddCommand(newAnalyzeCmd(getConfig))
	cmd.AddCommand(newMirrorCmd(getConfig))
	cmd.AddCommand(newBatchCmd(getConfig))

	return cmd
}
