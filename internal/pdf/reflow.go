package pdf

import (
	"math"
	"strings"

	"pdf-translator/internal/logger"
)

const (
	// RightMargin is the fixed margin kept free at the right edge when
	// estimating line capacity.
	RightMargin = 20.0
	// MinFontSize is the smallest size text is ever drawn at.
	MinFontSize = 6.0
	// MinLineChars is the floor on per-line capacity, so even lines
	// anchored near the right edge make progress.
	MinLineChars = 10
	// GlyphWidthRatio approximates the average glyph advance width as a
	// fraction of the font size. A crude estimate, kept for parity with
	// the character-count layout it feeds.
	GlyphWidthRatio = 0.6
)

// LayoutReflowEngine distributes a page's translated text across the
// page's original line geometry.
type LayoutReflowEngine struct {
	rightMargin float64
	minFontSize float64
}

// NewLayoutReflowEngine creates a reflow engine with the default margins.
func NewLayoutReflowEngine() *LayoutReflowEngine {
	return &LayoutReflowEngine{
		rightMargin: RightMargin,
		minFontSize: MinFontSize,
	}
}

// ReflowOutput is the result of reflowing one page.
type ReflowOutput struct {
	// Draws are the positioned text chunks, in reading order, with
	// coordinates already converted to bottom-left origin.
	Draws []TextDraw
	// Leftover is translated text that found no line to live on; the
	// overflow renderer deals with it.
	Leftover string
	// SkippedLines counts lines dropped for malformed geometry.
	SkippedLines int
}

// Reflow walks the source page's blocks and lines in reading order and
// consumes the translated paragraphs greedily: each original line anchor
// receives the next run of translated characters that fits its estimated
// width. Whatever cannot be placed is returned as leftover.
func (e *LayoutReflowEngine) Reflow(result *TranslatedPageResult) (*ReflowOutput, error) {
	page := result.Source
	if page == nil {
		return nil, NewPDFErrorWithPage(ErrReflowGeometry, "no source page", result.PageNumber, nil)
	}
	if page.Width <= 0 || page.Height <= 0 || !isFinite(page.Width) || !isFinite(page.Height) {
		return nil, NewPDFErrorWithPage(ErrReflowGeometry, "unusable page dimensions", result.PageNumber, nil)
	}

	paragraphs := splitParagraphs(result.TranslatedText)
	out := &ReflowOutput{}

	paraIndex := 0
	var remaining []rune
	if len(paragraphs) > 0 {
		remaining = []rune(paragraphs[0])
	}

placement:
	for _, block := range page.Blocks {
		for _, line := range block.Lines {
			if paraIndex >= len(paragraphs) {
				break placement
			}

			draw, consumed, res := e.placeLine(line, remaining, page)
			switch res.kind {
			case OutcomeSkip:
				out.SkippedLines++
				logger.Debug("skipping line with malformed geometry",
					logger.Int("page", page.Number), logger.Err(res.reason))
				continue
			case OutcomeFatal:
				return nil, res.reason
			}

			out.Draws = append(out.Draws, draw)
			remaining = remaining[consumed:]
			if len(remaining) == 0 {
				paraIndex++
				if paraIndex < len(paragraphs) {
					remaining = []rune(paragraphs[paraIndex])
				}
			}
		}
	}

	// Anything unplaced: the rest of the current paragraph plus the
	// untouched paragraphs.
	var leftoverParts []string
	if len(remaining) > 0 {
		leftoverParts = append(leftoverParts, string(remaining))
		paraIndex++
	}
	for ; paraIndex < len(paragraphs); paraIndex++ {
		leftoverParts = append(leftoverParts, paragraphs[paraIndex])
	}
	out.Leftover = joinParagraphs(leftoverParts)

	return out, nil
}

// unitResult is the outcome of one unit of layout work.
type unitResult struct {
	kind   OutcomeKind
	reason error
}

var unitOK = unitResult{kind: OutcomeOK}

// placeLine emits one TextDraw for the given line anchor, consuming up to
// the line's estimated character capacity from remaining. The returned
// count is how many runes were consumed.
func (e *LayoutReflowEngine) placeLine(line Line, remaining []rune, page *PageData) (TextDraw, int, unitResult) {
	anchor := line.Anchor()
	if anchor == nil {
		return TextDraw{}, 0, unitResult{kind: OutcomeSkip,
			reason: NewPDFError(ErrReflowGeometry, "line has no spans", nil)}
	}
	if !isFinite(anchor.X) || !isFinite(anchor.Y) {
		return TextDraw{}, 0, unitResult{kind: OutcomeSkip,
			reason: NewPDFError(ErrReflowGeometry, "non-finite line anchor", nil)}
	}

	fontSize := anchor.FontSize
	if fontSize < e.minFontSize {
		fontSize = e.minFontSize
	}

	maxChars := e.lineCapacity(anchor.X, fontSize, page.Width)

	consumed := len(remaining)
	if consumed > maxChars {
		consumed = maxChars
	}

	draw := TextDraw{
		Text:     string(remaining[:consumed]),
		X:        anchor.X,
		Y:        flipY(anchor.Y, page.Height),
		FontSize: fontSize,
		FontName: anchor.FontName,
		Color:    normalizeColor(anchor.Color),
	}
	return draw, consumed, unitOK
}

// lineCapacity estimates how many characters fit on a line starting at x.
// The estimate divides the usable width by an average glyph advance of
// GlyphWidthRatio times the font size, floored at MinLineChars.
func (e *LayoutReflowEngine) lineCapacity(x, fontSize, pageWidth float64) int {
	usable := pageWidth - x - e.rightMargin
	maxChars := int(math.Floor(usable / (fontSize * GlyphWidthRatio)))
	if maxChars < MinLineChars {
		maxChars = MinLineChars
	}
	return maxChars
}

// splitParagraphs splits translated text on blank-line boundaries.
// Newlines inside a paragraph become spaces so a paragraph flows as one
// run of text across line anchors.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var paragraphs []string
	for _, chunk := range strings.Split(text, "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		chunk = strings.ReplaceAll(chunk, "\n", " ")
		paragraphs = append(paragraphs, chunk)
	}
	return paragraphs
}

// normalizeColor turns raw extracted color components into a draw color.
// Accepted forms: three components all in [0,1] (normalized floats) or
// all in [0,255] (byte values). Anything else is black.
func normalizeColor(raw []float64) RGB {
	black := RGB{}
	if len(raw) != 3 {
		return black
	}
	for _, c := range raw {
		if math.IsNaN(c) || math.IsInf(c, 0) || c < 0 {
			return black
		}
	}

	allUnit := true
	for _, c := range raw {
		if c > 1 {
			allUnit = false
			break
		}
	}
	if allUnit {
		return RGB{
			R: int(math.Round(raw[0] * 255)),
			G: int(math.Round(raw[1] * 255)),
			B: int(math.Round(raw[2] * 255)),
		}
	}

	for _, c := range raw {
		if c > 255 {
			return black
		}
	}
	return RGB{
		R: int(math.Round(raw[0])),
		G: int(math.Round(raw[1])),
		B: int(math.Round(raw[2])),
	}
}
