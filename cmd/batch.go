package cmd

import (
	"fmt"

	"github.com/facereader/facereader/internal/batch"
	"github.com/facereader/facereader/internal/config"
	"github.com/facereader/facereader/internal/faceimage"
	"github.com/facereader/facereader/internal/models"
	"github.com/spf13/cobra"
)

func newBatchCmd(getConfig func() *config.Config) *cobra.Command {
	var (
		mode        string
		lang        string
		agingPath   string
		concurrency int
		outputYAML  string
		outputPQ    string
	)

	cmd := &cobra.Command{
		Use:   "batch DIR",
		Short: "Read every photo in a directory",
		Long: `Runs one single-photo mode over every JPEG, PNG and WEBP file in DIR.

Mirror mode splits each photo without any alignment. Results are written to a
YAML report and, optionally, a parquet file with one row per photo.`,
		Example: `  # Daily qi scan for a folder of selfies
  facereader batch ./selfies --mode daily --lang en

  # Also write parquet rows for analysis elsewhere
  facereader batch ./selfies --parquet readings.parquet --concurrency 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig()
			svc, catalog, err := newAnalysisService(cfg)
			if err != nil {
				return err
			}
			if lang == "" {
				lang = cfg.DefaultLanguage
			}
			format, err := faceimage.ParseFormat(cfg.OutputFormat)
			if err != nil {
				return err
			}

			opts := batch.Options{
				Dir:         args[0],
				Mode:        models.Mode(mode),
				Language:    catalog.Resolve(lang),
				AgingPath:   models.AgingPath(agingPath),
				Concurrency: concurrency,
				MaxBytes:    cfg.MaxUploadBytes,
				AlignSize:   cfg.AlignSize,
				Format:      format,
			}
			runner, err := batch.NewRunner(svc, opts)
			if err != nil {
				return err
			}

			results, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}

			report := batch.NewReport(svc.Provider(), cfg.Model(), opts, results)
			if err := batch.WriteYAML(outputYAML, report); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %d photos read (%d failed), report saved to %s\n", report.Config.Files, report.Config.Failed, outputYAML)

			if outputPQ != "" {
				if err := batch.WriteParquet(outputPQ, results); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✅ Parquet rows saved to %s\n", outputPQ)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", string(models.ModeSingle), "Reading mode (single-photo modes or mirror)")
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "Output language tag (default DEFAULT_LANGUAGE)")
	cmd.Flags().StringVar(&agingPath, "aging-path", "", "Aging mode path: virtue or worry")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 2, "Readings in flight at once")
	cmd.Flags().StringVar(&outputYAML, "output", "batch_report.yaml", "Path to the YAML report")
	cmd.Flags().StringVar(&outputPQ, "parquet", "", "Optional path to a parquet file of result rows")

	return cmd
}
