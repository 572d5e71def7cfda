package pdf

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"

	"github.com/jung-kurt/gofpdf"

	"pdf-translator/internal/logger"
)

// FontConfig names the output font for composed pages. It is passed in
// at construction; the composer keeps no process-global font state.
type FontConfig struct {
	// Family is the font family name used for draw calls. For a core
	// font this is the gofpdf name (Helvetica, Times, Courier); with
	// FilePath set it names the registered UTF-8 font.
	Family string
	// FilePath optionally points at a TTF file registered for UTF-8
	// text. Required for non-Latin target languages.
	FilePath string
}

// DefaultFontConfig returns the built-in Latin core font.
func DefaultFontConfig() FontConfig {
	return FontConfig{Family: "Helvetica"}
}

// PageComposer renders one page's draw instructions into a single-page
// PDF file. The assembler merges the per-page files into the output
// document.
type PageComposer struct {
	font FontConfig
}

// NewPageComposer creates a composer drawing with the given font.
func NewPageComposer(font FontConfig) *PageComposer {
	if font.Family == "" {
		font = DefaultFontConfig()
	}
	return &PageComposer{font: font}
}

// ComposePage draws all text instructions and then the page's images
// into a fresh single-page PDF at outPath. Instructions with unusable
// values are skipped; the page fails only when the document cannot be
// started or written.
func (c *PageComposer) ComposePage(page *PageData, draws []TextDraw, outPath string) error {
	doc := gofpdf.New("P", "pt", "A4", "")

	if c.font.FilePath != "" {
		doc.AddUTF8Font(c.font.Family, "", c.font.FilePath)
		if err := doc.Error(); err != nil {
			return NewPDFErrorWithPage(ErrComposeFailed, "cannot register output font", page.Number, err)
		}
	}

	width, height := page.Width, page.Height
	if width <= 0 || height <= 0 {
		return NewPDFErrorWithPage(ErrComposeFailed, "unusable page dimensions", page.Number, nil)
	}
	orientation := "P"
	if width > height {
		orientation = "L"
	}
	doc.AddPageFormat(orientation, gofpdf.SizeType{Wd: width, Ht: height})
	if err := doc.Error(); err != nil {
		return NewPDFErrorWithPage(ErrComposeFailed, "cannot start page", page.Number, err)
	}

	// text first, then images
	skipped := 0
	for _, d := range draws {
		if d.Text == "" || !isFinite(d.X) || !isFinite(d.Y) {
			skipped++
			continue
		}
		size := d.FontSize
		if size < MinFontSize {
			size = MinFontSize
		}
		doc.SetFont(c.font.Family, "", size)
		doc.SetTextColor(d.Color.R, d.Color.G, d.Color.B)
		// draws carry bottom-left origin Y; gofpdf wants top-left
		doc.Text(d.X, flipY(d.Y, height), d.Text)
	}

	for i, img := range page.Images {
		if err := c.placeImage(doc, page, i, img); err != nil {
			skipped++
			logger.Warn("skipping image that cannot be placed",
				logger.Int("page", page.Number),
				logger.String("name", img.Name),
				logger.Err(err))
		}
	}
	if skipped > 0 {
		logger.Debug("composed page with skipped instructions",
			logger.Int("page", page.Number), logger.Int("skipped", skipped))
	}

	if err := doc.Error(); err != nil {
		return NewPDFErrorWithPage(ErrComposeFailed, "drawing failed", page.Number, err)
	}
	if err := doc.OutputFileAndClose(outPath); err != nil {
		return NewPDFErrorWithPage(ErrComposeFailed, "cannot write composed page", page.Number, err)
	}
	return nil
}

// placeImage registers and draws one extracted image at its original
// rect. The bytes are sanity-decoded first so a corrupt image is skipped
// without poisoning the document.
func (c *PageComposer) placeImage(doc *gofpdf.Fpdf, page *PageData, idx int, img ImageElement) error {
	bounds := img.Bounds()
	if len(img.Data) == 0 || bounds.IsEmpty() {
		return fmt.Errorf("empty or degenerate image")
	}
	if !isFinite(img.X) || !isFinite(img.Y) {
		return fmt.Errorf("non-finite image position")
	}
	pageRect := Rect{Width: page.Width, Height: page.Height}
	if !bounds.Intersects(pageRect) {
		return fmt.Errorf("image rect outside the page")
	}

	var imageType string
	switch img.Format {
	case "png":
		if _, err := png.DecodeConfig(bytes.NewReader(img.Data)); err != nil {
			return fmt.Errorf("invalid PNG data: %w", err)
		}
		imageType = "PNG"
	case "jpeg":
		if _, err := jpeg.DecodeConfig(bytes.NewReader(img.Data)); err != nil {
			return fmt.Errorf("invalid JPEG data: %w", err)
		}
		imageType = "JPG"
	default:
		return fmt.Errorf("unsupported image format %q", img.Format)
	}

	name := fmt.Sprintf("img_%d_%d_%s", page.Number, idx, img.Name)
	opts := gofpdf.ImageOptions{ImageType: imageType}
	doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data))
	if err := doc.Error(); err != nil {
		return err
	}

	// rect is bottom-left origin; gofpdf wants the top edge
	top := flipY(img.Y+img.Height, page.Height)
	doc.ImageOptions(name, img.X, top, img.Width, img.Height, false, opts, 0, "")
	return doc.Error()
}
