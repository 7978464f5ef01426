// Package batch runs one reading mode over a directory of photos.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/facereader/facereader/internal/analysis"
	"github.com/facereader/facereader/internal/faceimage"
	"github.com/facereader/facereader/internal/models"
	"golang.org/x/sync/errgroup"
)

// Analyzer is the part of analysis.Service the runner needs
type Analyzer interface {
	Analyze(ctx context.Context, in analysis.Input) (string, error)
}

type Options struct {
	Dir         string
	Mode        models.Mode
	Language    string
	AgingPath   models.AgingPath
	Concurrency int
	MaxBytes    int64
	AlignSize   int
	Format      faceimage.Format
}

// Result is one row of a batch report
type Result struct {
	File       string `yaml:"file" parquet:"file"`
	Mode       string `yaml:"mode" parquet:"mode"`
	Language   string `yaml:"language" parquet:"language"`
	Result     string `yaml:"result,omitempty" parquet:"result"`
	Error      string `yaml:"error,omitempty" parquet:"error"`
	DurationMS int64  `yaml:"duration_ms" parquet:"duration_ms"`
}

type Runner struct {
	analyzer Analyzer
	opts     Options
}

var photoExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

func NewRunner(a Analyzer, opts Options) (*Runner, error) {
	if !opts.Mode.Valid() {
		return nil, models.ErrBadRequest.WithError(fmt.Errorf("unknown mode: %s", opts.Mode))
	}
	if opts.Mode != models.ModeMirror && analysis.ImageCount(opts.Mode) != 1 {
		return nil, models.ErrBadRequest.WithError(fmt.Errorf("mode %s needs more than one photo per reading", opts.Mode))
	}
	if opts.Mode == models.ModeAging && !opts.AgingPath.Valid() {
		return nil, models.ErrValidation.WithError(fmt.Errorf("aging mode needs a path: %q or %q", models.AgingVirtue, models.AgingWorry))
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.AlignSize <= 0 {
		opts.AlignSize = faceimage.DefaultAlignSize
	}
	if opts.Format == "" {
		opts.Format = faceimage.FormatJPEG
	}
	return &Runner{analyzer: a, opts: opts}, nil
}

// Files lists the photos in the directory in name order
func (r *Runner) Files() ([]string, error) {
	entries, err := os.ReadDir(r.opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !photoExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(r.opts.Dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Run analyzes every photo. A failing photo is recorded in its row and does
// not stop the others; only cancellation aborts the run.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	files, err := r.Files()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no photos found in %s", r.opts.Dir)
	}

	slog.Info("Starting batch", "dir", r.opts.Dir, "mode", r.opts.Mode, "files", len(files), "concurrency", r.opts.Concurrency)

	results := make([]Result, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = r.process(ctx, file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	failed := 0
	for _, res := range results {
		if res.Error != "" {
			failed++
		}
	}
	slog.Info("Batch finished", "files", len(results), "failed", failed)
	return results, nil
}

func (r *Runner) process(ctx context.Context, path string) Result {
	start := time.Now()
	res := Result{
		File:     filepath.Base(path),
		Mode:     string(r.opts.Mode),
		Language: r.opts.Language,
	}

	text, err := r.analyze(ctx, path)
	res.DurationMS = time.Since(start).Milliseconds()
	if err != nil {
		res.Error = models.AsAppError(err).Error()
		slog.Warn("Batch item failed", "file", res.File, "err", err)
		return res
	}
	res.Result = text
	slog.Debug("Batch item done", "file", res.File, "duration_ms", res.DurationMS)
	return res
}

func (r *Runner) analyze(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read photo: %w", err)
	}
	img, _, err := faceimage.Load("", data, r.opts.MaxBytes)
	if err != nil {
		return "", err
	}

	images := []models.Image{img}
	if r.opts.Mode == models.ModeMirror {
		_, pair, err := faceimage.AlignAndSplit(data, faceimage.Identity(), r.opts.AlignSize, r.opts.Format)
		if err != nil {
			return "", err
		}
		images = []models.Image{pair.Inner, pair.Outer}
	}

	return r.analyzer.Analyze(ctx, analysis.Input{
		Mode:      r.opts.Mode,
		Images:    images,
		Language:  r.opts.Language,
		AgingPath: r.opts.AgingPath,
	})
}
