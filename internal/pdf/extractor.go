package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"pdf-translator/internal/logger"
)

// PageElementExtractor opens source documents and extracts per-page text
// elements with their positions.
type PageElementExtractor struct {
	workDir string
}

// NewPageElementExtractor creates a new PageElementExtractor with the
// specified working directory
func NewPageElementExtractor(workDir string) *PageElementExtractor {
	return &PageElementExtractor{
		workDir: workDir,
	}
}

// GetPDFInfo returns basic information about a PDF file (page count, size).
func (e *PageElementExtractor) GetPDFInfo(pdfPath string) (*PDFInfo, error) {
	fileInfo, err := os.Stat(pdfPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewPDFError(ErrPDFNotFound, "file does not exist", err)
		}
		return nil, NewPDFError(ErrPDFInvalid, "cannot access file", err)
	}

	if fileInfo.IsDir() {
		return nil, NewPDFError(ErrPDFInvalid, "path is a directory, not a file", nil)
	}

	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, NewPDFError(ErrPDFInvalid, "cannot open PDF file", err)
	}
	defer f.Close()

	pageCount := r.NumPage()

	isTextPDF, err := e.IsTextPDF(pdfPath)
	if err != nil {
		// If we can't determine text status, default to false but don't fail
		isTextPDF = false
	}

	return &PDFInfo{
		FilePath:  pdfPath,
		FileName:  filepath.Base(pdfPath),
		PageCount: pageCount,
		FileSize:  fileInfo.Size(),
		IsTextPDF: isTextPDF,
	}, nil
}

// IsTextPDF checks whether the PDF contains extractable text.
func (e *PageElementExtractor) IsTextPDF(pdfPath string) (bool, error) {
	if _, err := os.Stat(pdfPath); err != nil {
		if os.IsNotExist(err) {
			return false, NewPDFError(ErrPDFNotFound, "file does not exist", err)
		}
		return false, NewPDFError(ErrPDFInvalid, "cannot access file", err)
	}

	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return false, NewPDFError(ErrPDFInvalid, "cannot open PDF file", err)
	}
	defer f.Close()

	// Try to extract text from the first few pages. If we can extract any
	// meaningful text, it's a text PDF.
	maxPagesToCheck := 3
	if r.NumPage() < maxPagesToCheck {
		maxPagesToCheck = r.NumPage()
	}

	totalTextLength := 0
	for pageNum := 1; pageNum <= maxPagesToCheck; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		for _, r := range content {
			if !unicode.IsSpace(r) {
				totalTextLength++
			}
		}

		if totalTextLength > 50 {
			return true, nil
		}
	}

	return totalTextLength > 0, nil
}

// Document is an open source PDF ready for page-by-page extraction.
type Document struct {
	path    string
	file    *os.File
	reader  *pdf.Reader
	widths  []float64
	heights []float64
	images  *imageLocator
}

// Open opens a source PDF and reads its page dimensions. The caller must
// Close the returned Document.
func (e *PageElementExtractor) Open(pdfPath string) (*Document, error) {
	if _, err := os.Stat(pdfPath); err != nil {
		if os.IsNotExist(err) {
			return nil, NewPDFError(ErrPDFNotFound, "file does not exist", err)
		}
		return nil, NewPDFError(ErrPDFInvalid, "cannot access file", err)
	}

	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, NewPDFError(ErrPDFInvalid, "cannot open PDF file", err)
	}

	dims, err := api.PageDimsFile(pdfPath)
	if err != nil {
		f.Close()
		return nil, NewPDFError(ErrPDFInvalid, "cannot read page dimensions", err)
	}

	doc := &Document{
		path:    pdfPath,
		file:    f,
		reader:  r,
		widths:  make([]float64, len(dims)),
		heights: make([]float64, len(dims)),
	}
	for i, d := range dims {
		doc.widths[i] = d.Width
		doc.heights[i] = d.Height
	}

	// Image placements are best effort; a source whose streams cannot be
	// walked still translates, it just loses its figures.
	loc, err := newImageLocator(pdfPath)
	if err != nil {
		logger.Warn("image extraction unavailable for document",
			logger.String("path", pdfPath), logger.Err(err))
	} else {
		doc.images = loc
	}

	return doc, nil
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	return d.reader.NumPage()
}

// PageSize returns the width and height of page pageNum (1-based).
func (d *Document) PageSize(pageNum int) (float64, float64) {
	if pageNum >= 1 && pageNum <= len(d.widths) {
		return d.widths[pageNum-1], d.heights[pageNum-1]
	}
	// A4 in points when the dimension table is short
	return 595.28, 841.89
}

// Close releases the underlying file handle.
func (d *Document) Close() error {
	return d.file.Close()
}

// ExtractPage extracts the text elements and image placements of one page.
// Element anchors are emitted in top-left origin coordinates: the reader
// reports bottom-left Y, so yTop = pageHeight - yReader.
func (d *Document) ExtractPage(pageNum int) (*PageData, error) {
	if pageNum < 1 || pageNum > d.reader.NumPage() {
		return nil, NewPDFErrorWithPage(ErrExtractFailed,
			fmt.Sprintf("page %d out of range", pageNum), pageNum, nil)
	}

	width, height := d.PageSize(pageNum)
	data := &PageData{
		Number: pageNum,
		Width:  width,
		Height: height,
	}

	page := d.reader.Page(pageNum)
	if page.V.IsNull() {
		return nil, NewPDFErrorWithPage(ErrExtractFailed, "page object is null", pageNum, nil)
	}

	var lines []Line
	if page.V.Key("Contents").Kind() != pdf.Null {
		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, NewPDFErrorWithPage(ErrExtractFailed, "cannot read page text", pageNum, err)
		}

		for _, row := range rows {
			if len(row.Content) == 0 {
				continue
			}

			// Merge the row into one span anchored at its first run.
			var textBuilder strings.Builder
			var minX, maxY float64
			var totalFontSize float64
			var fontName string
			first := true

			for _, text := range row.Content {
				if text.S == "" {
					continue
				}

				// Filter out PostScript/PDF operator code (garbage text)
				if isPostScriptCode(text.S) {
					continue
				}

				textBuilder.WriteString(text.S)

				if first {
					minX = text.X
					maxY = text.Y
					fontName = text.Font
					first = false
				} else {
					if text.X < minX {
						minX = text.X
					}
					if text.Y > maxY {
						maxY = text.Y
					}
				}

				totalFontSize += text.FontSize
			}

			text := strings.TrimSpace(textBuilder.String())
			if text == "" {
				continue
			}
			if isPostScriptCode(text) || hasExcessiveNonPrintable(text) {
				continue
			}

			avgFontSize := totalFontSize / float64(len(row.Content))
			if avgFontSize <= 0 {
				avgFontSize = 10.0 // default when the source carries none
			}

			lines = append(lines, Line{Spans: []Span{{
				Text:     text,
				X:        minX,
				Y:        flipY(maxY, height),
				FontSize: avgFontSize,
				FontName: fontName,
			}}})
		}
	}

	// Sort top to bottom in the top-left origin, then left to right, with
	// a tolerance so runs on the same baseline keep reading order.
	sort.Slice(lines, func(i, j int) bool {
		a, b := lines[i].Anchor(), lines[j].Anchor()
		yTolerance := 5.0
		if abs(a.Y-b.Y) < yTolerance {
			return a.X < b.X
		}
		return a.Y < b.Y
	})

	data.Blocks = groupLines(lines)

	if d.images != nil {
		images, err := d.images.pageImages(pageNum, height)
		if err != nil {
			logger.Warn("image placement extraction failed",
				logger.Int("page", pageNum), logger.Err(err))
		} else {
			data.Images = images
		}
	}

	return data, nil
}

// groupLines clusters consecutive lines into blocks. A vertical gap
// noticeably larger than the line height starts a new block.
func groupLines(lines []Line) []TextBlock {
	var blocks []TextBlock
	var current []Line

	for i, line := range lines {
		if i > 0 {
			prev := current[len(current)-1].Anchor()
			cur := line.Anchor()
			gap := cur.Y - prev.Y
			threshold := prev.FontSize * 1.8
			if threshold < 10 {
				threshold = 10
			}
			if gap > threshold {
				blocks = append(blocks, TextBlock{Lines: current})
				current = nil
			}
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, TextBlock{Lines: current})
	}
	return blocks
}

// abs returns the absolute value of a float64
func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// isPostScriptCode checks if text looks like PostScript/PDF operator code
// that leaked into the extracted text.
func isPostScriptCode(text string) bool {
	if len(text) == 0 {
		return false
	}

	textLower := strings.ToLower(text)

	// Pattern like "/name def" is the most reliable indicator
	if strings.Contains(text, " def ") || strings.HasSuffix(text, " def") {
		if strings.Contains(text, "/") {
			return true
		}
	}

	if strings.Contains(textLower, "null def") {
		return true
	}

	if strings.Contains(text, "@stx") || strings.Contains(text, "@etx") {
		return true
	}

	if strings.Contains(textLower, "/burl") || strings.Contains(textLower, "burl@") {
		return true
	}

	psSpecificPatterns := []string{
		"currentpoint", "gsave", "grestore", "newpath", "closepath",
		"setrgbcolor", "setgray", "setlinewidth", "showpage",
		"moveto", "lineto", "curveto", "stroke", "fill",
	}

	for _, pattern := range psSpecificPatterns {
		if strings.Contains(textLower, pattern) {
			return true
		}
	}

	// Many PostScript-style names in a row means operator code, but URLs
	// also carry slashes
	if !strings.Contains(text, "://") && !strings.Contains(textLower, "http") {
		slashNameCount := 0
		words := strings.Fields(text)
		for _, word := range words {
			if len(word) > 1 && word[0] == '/' {
				isName := true
				for _, c := range word[1:] {
					if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '@') {
						isName = false
						break
					}
				}
				if isName {
					slashNameCount++
				}
			}
		}
		if slashNameCount >= 3 {
			return true
		}
	}

	return false
}

// hasExcessiveNonPrintable checks if text has too many non-printable characters
func hasExcessiveNonPrintable(text string) bool {
	if len(text) == 0 {
		return false
	}

	nonPrintableCount := 0
	for _, r := range text {
		if r < 32 && r != '\n' && r != '\r' && r != '\t' {
			nonPrintableCount++
		}
		if r >= 0x7F && r <= 0x9F {
			nonPrintableCount++
		}
	}

	ratio := float64(nonPrintableCount) / float64(len(text))
	return ratio > 0.1
}
