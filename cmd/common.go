package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/facereader/facereader/internal/analysis"
	"github.com/facereader/facereader/internal/config"
	"github.com/facereader/facereader/internal/faceimage"
	"github.com/facereader/facereader/internal/i18n"
	"github.com/facereader/facereader/internal/images"
	"github.com/facereader/facereader/internal/models"
	"github.com/spf13/cobra"
)

func newAnalysisService(cfg *config.Config) (*analysis.Service, *i18n.Catalog, error) {
	catalog, err := i18n.Load()
	if err != nil {
		return nil, nil, err
	}
	svc, err := analysis.NewServiceFromConfig(cfg, catalog)
	if err != nil {
		return nil, nil, err
	}
	return svc, catalog, nil
}

// readPhoto loads a local path or an http(s) URL and validates it
func readPhoto(ctx context.Context, cfg *config.Config, src string) (models.Image, error) {
	var (
		data     []byte
		declared string
		name     = filepath.Base(src)
	)
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		remote, err := images.NewFetcher(cfg.MaxUploadBytes).Fetch(ctx, src)
		if err != nil {
			return models.Image{}, err
		}
		data, declared, name = remote.Data, remote.ContentType, remote.Filename
	} else {
		var err error
		data, err = os.ReadFile(src)
		if err != nil {
			return models.Image{}, fmt.Errorf("failed to read %s: %w", src, err)
		}
	}

	img, _, err := faceimage.Load(declared, data, cfg.MaxUploadBytes)
	if err != nil {
		return models.Image{}, fmt.Errorf("%s: %w", src, err)
	}
	img.Filename = name
	return img, nil
}

type alignFlags struct {
	tx, ty, rotate, scale float64
	size                  int
	format                string
}

func (f *alignFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.tx, "tx", 0, "Horizontal shift in output pixels")
	cmd.Flags().Float64Var(&f.ty, "ty", 0, "Vertical shift in output pixels")
	cmd.Flags().Float64Var(&f.rotate, "rotate", 0, "Clockwise rotation in degrees (-45 to 45)")
	cmd.Flags().Float64Var(&f.scale, "scale", 1, "Zoom factor (0.5 to 3)")
	cmd.Flags().IntVar(&f.size, "size", 0, "Output canvas size in pixels (default ALIGN_SIZE)")
	cmd.Flags().StringVar(&f.format, "format", "", "Output format: jpeg or png (default OUTPUT_FORMAT)")
}

func (f *alignFlags) resolve(cfg *config.Config) (faceimage.AlignmentState, int, faceimage.Format, error) {
	st := faceimage.AlignmentState{TranslateX: f.tx, TranslateY: f.ty, RotationDegrees: f.rotate, Scale: f.scale}
	if err := st.Validate(); err != nil {
		return st, 0, "", err
	}
	size := f.size
	if size <= 0 {
		size = cfg.AlignSize
	}
	name := f.format
	if name == "" {
		name = cfg.OutputFormat
	}
	format, err := faceimage.ParseFormat(name)
	if err != nil {
		return st, 0, "", err
	}
	return st.Clamped(), size, format, nil
}
