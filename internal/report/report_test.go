package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pdf-translator/internal/pdf"
)

func TestBuild(t *testing.T) {
	result := &pdf.RunResult{
		OutputPath: "/out/doc_translated.pdf",
		Composed:   2,
		Failed:     1,
		Flushed:    []int{1, 2},
		Pages: []pdf.PageOutcome{
			{Page: 1, Kind: pdf.OutcomeOK, State: pdf.PageStateComposed},
			{Page: 2, Kind: pdf.OutcomeOK, State: pdf.PageStateComposed},
			{Page: 3, Kind: pdf.OutcomeSkip, State: pdf.PageStateFailed,
				Err: pdf.NewPDFErrorWithPage(pdf.ErrTranslateFailed, "translation failed", 3, nil)},
		},
	}

	r := Build("/in/doc.pdf", "ko", "gpt-4o", time.Now().Add(-time.Minute), result, nil)

	if r.Composed != 2 || r.Failed != 1 {
		t.Errorf("Expected 2 composed / 1 failed, got %d/%d", r.Composed, r.Failed)
	}
	if len(r.Pages) != 3 {
		t.Fatalf("Expected 3 page entries, got %d", len(r.Pages))
	}
	if r.Pages[2].Outcome != "skip" || r.Pages[2].Stage != string(pdf.ErrTranslateFailed) {
		t.Errorf("Failed page entry wrong: %+v", r.Pages[2])
	}
	if r.Pages[0].Error != "" {
		t.Errorf("Expected no error on good page, got %q", r.Pages[0].Error)
	}
	if r.FinishedAt.Before(r.StartedAt) {
		t.Error("Expected FinishedAt after StartedAt")
	}
}

func TestBuild_NilResult(t *testing.T) {
	runErr := pdf.NewPDFError(pdf.ErrPDFNotFound, "file does not exist", nil)
	r := Build("/in/doc.pdf", "ko", "gpt-4o", time.Now(), nil, runErr)

	if r.RunError == "" {
		t.Error("Expected run error to be recorded")
	}
	if len(r.Pages) != 0 {
		t.Errorf("Expected no page entries, got %d", len(r.Pages))
	}
}

func TestSave(t *testing.T) {
	r := Build("/in/doc.pdf", "ko", "gpt-4o", time.Now(), &pdf.RunResult{OutputPath: "/out.pdf"}, nil)
	path := filepath.Join(t.TempDir(), "reports", "run.json")

	if err := Save(r, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Report not written: %v", err)
	}
	var reloaded RunReport
	if err := json.Unmarshal(data, &reloaded); err != nil {
		t.Fatalf("Report is not valid JSON: %v", err)
	}
	if reloaded.Input != "/in/doc.pdf" || reloaded.Language != "ko" {
		t.Errorf("Reloaded report wrong: %+v", reloaded)
	}
}
