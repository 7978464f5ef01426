package batch

import (
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

type ReportConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	Mode      string `yaml:"mode"`
	Language  string `yaml:"language"`
	Dir       string `yaml:"dir"`
	Files     int    `yaml:"files"`
	Failed    int    `yaml:"failed"`
	Timestamp string `yaml:"timestamp"`
}

type Report struct {
	Config  ReportConfig `yaml:"config"`
	Results []Result     `yaml:"results"`
}

func NewReport(provider, model string, opts Options, results []Result) Report {
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	return Report{
		Config: ReportConfig{
			Provider:  provider,
			Model:     model,
			Mode:      string(opts.Mode),
			Language:  opts.Language,
			Dir:       opts.Dir,
			Files:     len(results),
			Failed:    failed,
			Timestamp: time.Now().Format("2006-01-02_15-04-05"),
		},
		Results: results,
	}
}

// WriteYAML saves the report to path
func WriteYAML(path string, report Report) error {
	data, err := yaml.Marshal(&report)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}
	return nil
}

// WriteParquet saves the result rows as a parquet file
func WriteParquet(path string, results []Result) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[Result](file)
	if _, err := writer.Write(results); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return file.Close()
}

// ReadParquet loads rows written by WriteParquet
func ReadParquet(path string) ([]Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	reader := parquet.NewGenericReader[Result](pf)
	defer reader.Close()

	rows := make([]Result, pf.NumRows())
	n, err := reader.Read(rows)
	if err != nil && n < len(rows) {
		return nil, fmt.Errorf("failed to read parquet rows: %w", err)
	}
	return rows[:n], nil
}
