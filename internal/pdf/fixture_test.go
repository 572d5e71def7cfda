package pdf

import (
	"fmt"
	"testing"

	"github.com/jung-kurt/gofpdf"
)

// writeFixturePDF writes a small text PDF with the given number of
// pages. Each page carries its page number in the text so tests can
// target individual pages.
func writeFixturePDF(t *testing.T, path string, pages int) {
	t.Helper()

	doc := gofpdf.New("P", "pt", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	for i := 1; i <= pages; i++ {
		doc.AddPage()
		doc.Text(40, 100, fmt.Sprintf("Page %d of the fixture document.", i))
		doc.Text(40, 120, "A second line with more sample text for extraction.")
	}
	if err := doc.OutputFileAndClose(path); err != nil {
		t.Fatalf("Failed to write fixture PDF: %v", err)
	}
}
