package cmd

import (
	"fmt"

	"github.com/facereader/facereader/internal/analysis"
	"github.com/facereader/facereader/internal/config"
	"github.com/facereader/facereader/internal/faceimage"
	"github.com/facereader/facereader/internal/models"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd(getConfig func() *config.Config) *cobra.Command {
	var (
		mode      string
		lang      string
		agingPath string
		align     alignFlags
	)

	cmd := &cobra.Command{
		Use:   "analyze PHOTO [PHOTO]",
		Short: "Read one face (or a couple) and print the result",
		Long: `Runs a single reading against the configured provider and prints the text.

Couple mode takes two photos. Mirror mode aligns the photo with the given
transform, splits it into its inner and social faces and reads the pair.
Photos may be local paths or http(s) URLs.`,
		Example: `  # Life path reading in English
  facereader analyze me.jpg --lang en

  # Couple compatibility
  facereader analyze --mode couple me.jpg partner.png

  # Soul mirror with a slight clockwise tilt correction
  facereader analyze --mode mirror --rotate 4 --scale 1.2 me.jpg`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig()
			m := models.Mode(mode)
			if !m.Valid() {
				return fmt.Errorf("unknown mode %q (choose one of %v)", mode, models.Modes)
			}

			svc, catalog, err := newAnalysisService(cfg)
			if err != nil {
				return err
			}
			if lang == "" {
				lang = cfg.DefaultLanguage
			}
			lang = catalog.Resolve(lang)

			var photos []models.Image
			for _, src := range args {
				img, err := readPhoto(cmd.Context(), cfg, src)
				if err != nil {
					return err
				}
				photos = append(photos, img)
			}

			if m == models.ModeMirror {
				st, size, format, err := align.resolve(cfg)
				if err != nil {
					return err
				}
				_, pair, err := faceimage.AlignAndSplit(photos[0].Data, st, size, format)
				if err != nil {
					return err
				}
				photos = []models.Image{pair.Inner, pair.Outer}
			}

			text, err := svc.Analyze(cmd.Context(), analysis.Input{
				Mode:      m,
				Images:    photos,
				Language:  lang,
				AgingPath: models.AgingPath(agingPath),
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", string(models.ModeSingle), "Reading mode")
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "Output language tag (default DEFAULT_LANGUAGE)")
	cmd.Flags().StringVar(&agingPath, "aging-path", "", "Aging mode path: virtue or worry")
	align.register(cmd)

	return cmd
}
