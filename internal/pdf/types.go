// Package pdf provides layout-preserving PDF translation: text and image
// extraction, geometric reflow of translated text, page composition, and
// document assembly.
package pdf

import "strings"

// PDFInfo describes a source PDF file.
type PDFInfo struct {
	FilePath  string `json:"file_path"`
	FileName  string `json:"file_name"`
	PageCount int    `json:"page_count"`
	FileSize  int64  `json:"file_size"`
	IsTextPDF bool   `json:"is_text_pdf"`
}

// Span is a run of uniformly styled text. X and Y are the run's origin
// in TOP-LEFT origin page coordinates: Y grows downward.
type Span struct {
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FontSize float64 `json:"font_size"`
	FontName string  `json:"font_name"`
	// Color holds the raw color components as extracted, nil when the
	// source carried none. Components may be 0-255 ints or 0-1 floats;
	// normalization happens during reflow.
	Color []float64 `json:"color,omitempty"`
}

// Line is one visual line of text. Only the first span's origin and font
// metrics anchor translated-text placement.
type Line struct {
	Spans []Span `json:"spans"`
}

// Anchor returns the placement anchor of the line: its first span.
func (l Line) Anchor() *Span {
	if len(l.Spans) == 0 {
		return nil
	}
	return &l.Spans[0]
}

// Text returns the concatenated text of the line's spans.
func (l Line) Text() string {
	if len(l.Spans) == 1 {
		return l.Spans[0].Text
	}
	var out string
	for _, s := range l.Spans {
		out += s.Text
	}
	return out
}

// TextBlock groups visually adjacent lines, e.g. a paragraph. Lines keep
// original reading order.
type TextBlock struct {
	Lines []Line `json:"lines"`
}

// TranslatedPageResult pairs a source page with the translated text for
// it. TranslatedText holds paragraphs separated by a blank line.
type TranslatedPageResult struct {
	PageNumber     int       `json:"page_number"`
	TranslatedText string    `json:"translated_text"`
	FromCache      bool      `json:"from_cache"`
	Source         *PageData `json:"-"`
}

// ImageElement is an image placement on a page. The rect is in
// BOTTOM-LEFT origin page coordinates, ready for composition.
type ImageElement struct {
	Page   int     `json:"page"`
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Format string  `json:"format"` // "png" or "jpeg"
	Data   []byte  `json:"-"`
}

// Bounds returns the image's bounding rectangle on the page.
func (e ImageElement) Bounds() Rect {
	return Rect{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height}
}

// RGB is a normalized draw color with 0-255 components.
type RGB struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// TextDraw is a single positioned draw instruction produced by reflow.
// X and Y are in BOTTOM-LEFT origin page coordinates: Y grows upward.
type TextDraw struct {
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FontSize float64 `json:"font_size"`
	FontName string  `json:"font_name"`
	Color    RGB     `json:"color"`
}

// PageData is everything extracted from one source page.
type PageData struct {
	Number int            `json:"number"`
	Width  float64        `json:"width"`
	Height float64        `json:"height"`
	Blocks []TextBlock    `json:"blocks"`
	Images []ImageElement `json:"images"`
}

// Text returns the page's text: lines joined by newlines, blocks
// separated by a blank line. This is the payload sent for translation.
func (p *PageData) Text() string {
	var parts []string
	for _, b := range p.Blocks {
		var lines []string
		for _, l := range b.Lines {
			lines = append(lines, l.Text())
		}
		parts = append(parts, joinLines(lines))
	}
	return joinParagraphs(parts)
}

// PageState tracks a page through the pipeline.
type PageState string

const (
	PageStatePending    PageState = "pending"
	PageStateExtracted  PageState = "extracted"
	PageStateTranslated PageState = "translated"
	PageStateComposed   PageState = "composed"
	PageStateFailed     PageState = "failed"
)

// IsValidPageState checks if the given state is a known PageState
func IsValidPageState(state PageState) bool {
	switch state {
	case PageStatePending, PageStateExtracted, PageStateTranslated,
		PageStateComposed, PageStateFailed:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a page may move from its current state
// to next. Failed is terminal; every non-terminal state may fail.
func (s PageState) CanTransition(next PageState) bool {
	if s == PageStateFailed || s == PageStateComposed {
		return false
	}
	if next == PageStateFailed {
		return true
	}
	switch s {
	case PageStatePending:
		return next == PageStateExtracted
	case PageStateExtracted:
		return next == PageStateTranslated
	case PageStateTranslated:
		return next == PageStateComposed
	default:
		return false
	}
}

// OutcomeKind classifies how processing of one page (or the run) ended.
type OutcomeKind int

const (
	// OutcomeOK means the page was composed.
	OutcomeOK OutcomeKind = iota
	// OutcomeSkip means the page failed and was isolated; the run continued.
	OutcomeSkip
	// OutcomeFatal means the run could not continue past this point.
	OutcomeFatal
)

// String returns the string representation of the outcome kind
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeSkip:
		return "skip"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// PageOutcome records how one page fared.
type PageOutcome struct {
	Page  int         `json:"page"`
	Kind  OutcomeKind `json:"kind"`
	State PageState   `json:"state"`
	Err   error       `json:"-"`
}

// RunResult summarizes a full document run.
type RunResult struct {
	OutputPath string        `json:"output_path"`
	Pages      []PageOutcome `json:"pages"`
	Composed   int           `json:"composed"`
	Failed     int           `json:"failed"`
	// Partial is true when final serialization failed and only the
	// already-composed pages listed in Flushed were written.
	Partial bool  `json:"partial"`
	Flushed []int `json:"flushed,omitempty"`
}

// PDFErrorCode classifies pipeline errors by the stage that produced them.
type PDFErrorCode string

const (
	ErrPDFNotFound     PDFErrorCode = "PDF_NOT_FOUND"
	ErrPDFInvalid      PDFErrorCode = "PDF_INVALID"
	ErrPDFEncrypted    PDFErrorCode = "PDF_ENCRYPTED"
	ErrExtractFailed   PDFErrorCode = "EXTRACT_FAILED"
	ErrTranslateFailed PDFErrorCode = "TRANSLATE_FAILED"
	ErrReflowGeometry  PDFErrorCode = "REFLOW_GEOMETRY"
	ErrComposeFailed   PDFErrorCode = "COMPOSE_FAILED"
	ErrSerializeFailed PDFErrorCode = "SERIALIZE_FAILED"
	ErrCacheFailed     PDFErrorCode = "CACHE_FAILED"
	ErrAPIFailed       PDFErrorCode = "API_FAILED"
	ErrCancelled       PDFErrorCode = "CANCELLED"
)

// PDFError is the pipeline error type.
type PDFError struct {
	Code    PDFErrorCode `json:"code"`
	Message string       `json:"message"`
	Details string       `json:"details,omitempty"`
	Page    int          `json:"page,omitempty"`
	Cause   error        `json:"-"`
}

// Error implements the error interface for PDFError
func (e *PDFError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// Unwrap returns the underlying cause of the error
func (e *PDFError) Unwrap() error {
	return e.Cause
}

// NewPDFError creates a new PDFError with the given code, message, and optional cause
func NewPDFError(code PDFErrorCode, message string, cause error) *PDFError {
	return &PDFError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewPDFErrorWithDetails creates a new PDFError with details
func NewPDFErrorWithDetails(code PDFErrorCode, message, details string, cause error) *PDFError {
	return &PDFError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// NewPDFErrorWithPage creates a new PDFError with page information
func NewPDFErrorWithPage(code PDFErrorCode, message string, page int, cause error) *PDFError {
	return &PDFError{
		Code:    code,
		Message: message,
		Page:    page,
		Cause:   cause,
	}
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

func joinParagraphs(paragraphs []string) string {
	return strings.Join(paragraphs, "\n\n")
}
