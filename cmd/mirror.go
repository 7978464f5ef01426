package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/facereader/facereader/internal/config"
	"github.com/facereader/facereader/internal/faceimage"
	"github.com/spf13/cobra"
)

func newMirrorCmd(getConfig func() *config.Config) *cobra.Command {
	var (
		outDir string
		align  alignFlags
	)

	cmd := &cobra.Command{
		Use:   "mirror PHOTO",
		Short: "Align a photo and split it into inner and social faces",
		Long: `Applies the alignment transform to a photo, then writes three files:
the aligned photo, the inner face (left half mirrored) and the social face
(right half mirrored). No provider call is made.`,
		Example: `  facereader mirror me.jpg --rotate -3 --tx 10 --out ./mirror`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig()
			st, size, format, err := align.resolve(cfg)
			if err != nil {
				return err
			}

			img, err := readPhoto(cmd.Context(), cfg, args[0])
			if err != nil {
				return err
			}

			aligned, pair, err := faceimage.AlignAndSplit(img.Data, st, size, format)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			base := strings.TrimSuffix(img.Filename, filepath.Ext(img.Filename))
			ext := "." + string(format)
			outputs := map[string][]byte{
				base + "_aligned" + ext: aligned.Data,
				base + "_inner" + ext:   pair.Inner.Data,
				base + "_outer" + ext:   pair.Outer.Data,
			}
			for name, data := range outputs {
				path := filepath.Join(outDir, name)
				if err := os.WriteFile(path, data, 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", path, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}

			slog.Info("Mirror images written", "dir", outDir, "size", size, "rotation", st.RotationDegrees, "scale", st.Scale)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory for the output files")
	align.register(cmd)

	return cmd
}
