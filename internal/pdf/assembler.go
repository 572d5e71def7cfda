package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"pdf-translator/internal/logger"
	"pdf-translator/internal/types"
)

// Translator is the translation gateway as the assembler sees it: one
// opaque call from page text to translated text.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// ImageTranslator translates the text visible in a rasterized page
// image. Used as a fallback for pages with no extractable text.
type ImageTranslator interface {
	TranslateImage(ctx context.Context, pngData []byte, targetLanguage string) (string, error)
}

// DocumentAssembler drives the per-page pipeline and merges composed
// pages into the output document. Pages are processed sequentially and
// fail independently: one bad page never aborts the run.
type DocumentAssembler struct {
	extractor      *PageElementExtractor
	translator     Translator
	reflow         *LayoutReflowEngine
	overflow       *OverflowRenderer
	composer       *PageComposer
	targetLanguage string
	workDir        string

	renderer        *PageRenderer
	imageTranslator ImageTranslator
	progress        ProgressFunc
}

// ProgressFunc receives status updates during a run.
type ProgressFunc func(status types.Status)

// NewDocumentAssembler creates an assembler. workDir holds per-page
// intermediate files and may be empty to use the system temp directory.
func NewDocumentAssembler(translator Translator, font FontConfig, targetLanguage, workDir string) *DocumentAssembler {
	return &DocumentAssembler{
		extractor:      NewPageElementExtractor(workDir),
		translator:     translator,
		reflow:         NewLayoutReflowEngine(),
		overflow:       NewOverflowRenderer(),
		composer:       NewPageComposer(font),
		targetLanguage: targetLanguage,
		workDir:        workDir,
	}
}

// EnableImageFallback makes pages with no extractable text go through
// rasterize-and-translate instead of the text gateway. Needs a working
// renderer backend and a vision-capable model.
func (a *DocumentAssembler) EnableImageFallback(renderer *PageRenderer, translator ImageTranslator) {
	a.renderer = renderer
	a.imageTranslator = translator
}

// SetProgressFunc registers a callback for run progress. Nil disables
// reporting.
func (a *DocumentAssembler) SetProgressFunc(fn ProgressFunc) {
	a.progress = fn
}

func (a *DocumentAssembler) report(phase types.ProcessPhase, progress int, message string) {
	if a.progress != nil {
		a.progress(types.Status{Phase: phase, Progress: progress, Message: message})
	}
}

// pageTracker enforces the page lifecycle.
type pageTracker struct {
	page  int
	state PageState
}

func newPageTracker(page int) *pageTracker {
	return &pageTracker{page: page, state: PageStatePending}
}

// advance moves the page to next, or panics on an illegal transition.
// Illegal transitions are programming errors, not runtime conditions.
func (t *pageTracker) advance(next PageState) {
	if !t.state.CanTransition(next) {
		panic(fmt.Sprintf("illegal page state transition: %s -> %s (page %d)", t.state, next, t.page))
	}
	t.state = next
}

// fail marks the page failed.
func (t *pageTracker) fail() {
	if t.state.CanTransition(PageStateFailed) {
		t.state = PageStateFailed
	}
}

// Run translates inputPath into outputPath. The returned RunResult is
// non-nil whenever processing started, even when an error is also
// returned; callers inspect it for per-page outcomes and partial
// output.
func (a *DocumentAssembler) Run(ctx context.Context, inputPath, outputPath string) (*RunResult, error) {
	logger.Info("starting document run",
		logger.String("input", filepath.Base(inputPath)),
		logger.String("output", filepath.Base(outputPath)),
		logger.String("targetLanguage", a.targetLanguage))

	doc, err := a.extractor.Open(inputPath)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	tmpDir, err := os.MkdirTemp(a.workDir, "pdftranslate-pages-")
	if err != nil {
		return nil, NewPDFError(ErrSerializeFailed, "failed to create work directory", err)
	}
	defer os.RemoveAll(tmpDir)

	result := &RunResult{OutputPath: outputPath}
	var pageFiles []string
	var pageNums []int

	total := doc.PageCount()
	for pageNum := 1; pageNum <= total; pageNum++ {
		select {
		case <-ctx.Done():
			a.report(types.PhaseError, pageNum*100/total, "run cancelled")
			return result, NewPDFError(ErrCancelled, "run cancelled", ctx.Err())
		default:
		}

		a.report(types.PhaseTranslating, (pageNum-1)*100/total,
			fmt.Sprintf("translating page %d/%d", pageNum, total))
		pagePath := filepath.Join(tmpDir, fmt.Sprintf("page_%04d.pdf", pageNum))
		outcome := a.processPage(ctx, doc, pageNum, pagePath)
		result.Pages = append(result.Pages, outcome)

		if outcome.Kind == OutcomeOK {
			result.Composed++
			pageFiles = append(pageFiles, pagePath)
			pageNums = append(pageNums, pageNum)
		} else {
			result.Failed++
			logger.Warn("page failed, continuing with remaining pages",
				logger.Int("page", pageNum), logger.Err(outcome.Err))
		}
	}

	if len(pageFiles) == 0 {
		a.report(types.PhaseError, 100, "no pages could be composed")
		return result, NewPDFError(ErrComposeFailed, "no pages could be composed", nil)
	}

	a.report(types.PhaseFinalizing, 100, "assembling output document")
	if err := a.finalize(pageFiles, pageNums, outputPath, result); err != nil {
		a.report(types.PhaseError, 100, err.Error())
		return result, err
	}

	a.report(types.PhaseComplete, 100, "done")
	logger.Info("document run complete",
		logger.Int("composed", result.Composed),
		logger.Int("failed", result.Failed),
		logger.String("output", outputPath))
	return result, nil
}

// processPage runs one page through extract, translate, reflow and
// compose. Any stage error isolates the page as a skip outcome.
func (a *DocumentAssembler) processPage(ctx context.Context, doc *Document, pageNum int, pagePath string) PageOutcome {
	tracker := newPageTracker(pageNum)

	skip := func(err error) PageOutcome {
		tracker.fail()
		return PageOutcome{Page: pageNum, Kind: OutcomeSkip, State: tracker.state, Err: err}
	}

	page, err := doc.ExtractPage(pageNum)
	if err != nil {
		return skip(NewPDFErrorWithPage(ErrExtractFailed, "page extraction failed", pageNum, err))
	}
	tracker.advance(PageStateExtracted)

	translated, err := a.translatePage(ctx, doc, pageNum, page)
	if err != nil {
		return skip(NewPDFErrorWithPage(ErrTranslateFailed, "page translation failed", pageNum, err))
	}
	tracker.advance(PageStateTranslated)

	reflowed, err := a.reflow.Reflow(&TranslatedPageResult{
		PageNumber:     pageNum,
		TranslatedText: translated,
		Source:         page,
	})
	if err != nil {
		return skip(err)
	}

	draws := reflowed.Draws
	if reflowed.Leftover != "" {
		overflowDraws := a.overflow.Render(reflowed.Leftover, page)
		logger.Debug("leftover text rendered to overflow column",
			logger.Int("page", pageNum),
			logger.Int("draws", len(overflowDraws)))
		draws = append(draws, overflowDraws...)
	}

	if err := a.composer.ComposePage(page, draws, pagePath); err != nil {
		return skip(err)
	}
	tracker.advance(PageStateComposed)

	return PageOutcome{Page: pageNum, Kind: OutcomeOK, State: tracker.state}
}

// translatePage picks the translation path for a page: the text gateway
// normally, the image fallback when the page has no extractable text.
func (a *DocumentAssembler) translatePage(ctx context.Context, doc *Document, pageNum int, page *PageData) (string, error) {
	text := page.Text()
	if text != "" || a.renderer == nil || a.imageTranslator == nil {
		return a.translator.Translate(ctx, text, a.targetLanguage)
	}

	logger.Info("page has no extractable text, using image translation",
		logger.Int("page", pageNum))
	pngData, err := a.renderer.RenderPage(doc.path, pageNum)
	if err != nil {
		return "", err
	}
	return a.imageTranslator.TranslateImage(ctx, pngData, a.targetLanguage)
}

// finalize appends composed pages to the output one at a time, so that
// a mid-merge failure still leaves every previously appended page on
// disk. The partially written document is kept, not rolled back.
func (a *DocumentAssembler) finalize(pageFiles []string, pageNums []int, outputPath string, result *RunResult) error {
	// A previous run's output would otherwise be appended to.
	if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
		return NewPDFError(ErrSerializeFailed, "failed to replace existing output file", err)
	}
	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return NewPDFError(ErrSerializeFailed, "failed to create output directory", err)
		}
	}

	for i, pageFile := range pageFiles {
		if err := api.MergeAppendFile([]string{pageFile}, outputPath, false, nil); err != nil {
			if len(result.Flushed) > 0 {
				result.Partial = true
			}
			logger.Error("output serialization failed", err,
				logger.Int("page", pageNums[i]),
				logger.Int("flushed", len(result.Flushed)))
			return NewPDFErrorWithPage(ErrSerializeFailed, "failed to append page to output", pageNums[i], err)
		}
		result.Flushed = append(result.Flushed, pageNums[i])
	}

	if err := api.ValidateFile(outputPath, nil); err != nil {
		result.Partial = true
		return NewPDFError(ErrSerializeFailed, "output file failed validation", err)
	}
	return nil
}

// DefaultOutputPath derives an output path from the input path.
func DefaultOutputPath(inputPath string) string {
	dir := filepath.Dir(inputPath)
	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	return filepath.Join(dir, name+"_translated"+ext)
}
