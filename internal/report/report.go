// Package report writes a JSON summary of a translation run: per-page
// outcomes, failures by stage, and whether the output is partial.
package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"pdf-translator/internal/logger"
	"pdf-translator/internal/pdf"
)

// PageReport is one page's entry in the run report.
type PageReport struct {
	Page    int    `json:"page"`
	Outcome string `json:"outcome"`
	State   string `json:"state"`
	Stage   string `json:"stage,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RunReport is the on-disk run summary.
type RunReport struct {
	Input      string       `json:"input"`
	Output     string       `json:"output"`
	Language   string       `json:"language"`
	Model      string       `json:"model"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Composed   int          `json:"composed"`
	Failed     int          `json:"failed"`
	Partial    bool         `json:"partial"`
	Flushed    []int        `json:"flushed,omitempty"`
	RunError   string       `json:"run_error,omitempty"`
	Pages      []PageReport `json:"pages"`
}

// Build assembles a RunReport from a pipeline result. result may be nil
// when the run failed before any page was processed.
func Build(input, language, model string, startedAt time.Time, result *pdf.RunResult, runErr error) *RunReport {
	r := &RunReport{
		Input:      input,
		Language:   language,
		Model:      model,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}
	if runErr != nil {
		r.RunError = runErr.Error()
	}
	if result == nil {
		return r
	}

	r.Output = result.OutputPath
	r.Composed = result.Composed
	r.Failed = result.Failed
	r.Partial = result.Partial
	r.Flushed = result.Flushed

	for _, outcome := range result.Pages {
		pr := PageReport{
			Page:    outcome.Page,
			Outcome: outcome.Kind.String(),
			State:   string(outcome.State),
		}
		if outcome.Err != nil {
			pr.Error = outcome.Err.Error()
			var pdfErr *pdf.PDFError
			if errors.As(outcome.Err, &pdfErr) {
				pr.Stage = string(pdfErr.Code)
			}
		}
		r.Pages = append(r.Pages, pr)
	}
	return r
}

// Save writes the report as indented JSON.
func Save(r *RunReport, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	logger.Info("run report saved", logger.String("path", path))
	return nil
}
