package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"

	xdraw "golang.org/x/image/draw"

	"pdf-translator/internal/logger"
)

const (
	// DefaultRenderDPI is the rasterization resolution for page images
	DefaultRenderDPI = 150
	// MaxRenderDimension caps the longer edge of a rendered page image
	// before it is sent to a vision model
	MaxRenderDimension = 2048
)

// PageRenderer rasterizes PDF pages to PNG images via pdftoppm. It is
// used for image-mode translation of pages whose text cannot be
// extracted.
type PageRenderer struct {
	dpi        int
	tempDir    string
	usePoppler bool
}

// NewPageRenderer creates a renderer with the given DPI.
func NewPageRenderer(dpi int) *PageRenderer {
	if dpi <= 0 {
		dpi = DefaultRenderDPI
	}
	return &PageRenderer{
		dpi:        dpi,
		usePoppler: checkPopplerAvailable(),
	}
}

// Available reports whether a rasterizer backend is present.
func (r *PageRenderer) Available() bool {
	return r.usePoppler
}

// checkPopplerAvailable checks if pdftoppm is available
func checkPopplerAvailable() bool {
	cmd := exec.Command("pdftoppm", "-v")
	err := cmd.Run()
	return err == nil
}

// RenderPage rasterizes one page and returns PNG bytes, downscaled so
// that neither edge exceeds MaxRenderDimension.
func (r *PageRenderer) RenderPage(pdfPath string, pageNum int) ([]byte, error) {
	logger.Debug("rendering PDF page to image",
		logger.String("pdf", filepath.Base(pdfPath)),
		logger.Int("page", pageNum),
		logger.Int("dpi", r.dpi))

	if !r.usePoppler {
		return nil, NewPDFError(ErrExtractFailed,
			"poppler-utils not found, install pdftoppm to enable page image rendering", nil)
	}

	img, err := r.renderWithPoppler(pdfPath, pageNum)
	if err != nil {
		return nil, err
	}

	img = downscale(img, MaxRenderDimension)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, NewPDFErrorWithPage(ErrExtractFailed, "failed to encode page image", pageNum, err)
	}

	logger.Debug("page rendered",
		logger.Int("page", pageNum),
		logger.Int("width", img.Bounds().Dx()),
		logger.Int("height", img.Bounds().Dy()),
		logger.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

// renderWithPoppler invokes pdftoppm for one page.
func (r *PageRenderer) renderWithPoppler(pdfPath string, pageNum int) (image.Image, error) {
	if r.tempDir == "" {
		tempDir, err := os.MkdirTemp("", "pdfrender_*")
		if err != nil {
			return nil, NewPDFError(ErrExtractFailed, "failed to create temp dir", err)
		}
		r.tempDir = tempDir
	}

	outputPrefix := filepath.Join(r.tempDir, fmt.Sprintf("page_%d", pageNum))

	args := []string{
		"-f", fmt.Sprintf("%d", pageNum),
		"-l", fmt.Sprintf("%d", pageNum),
		"-png",
		"-r", fmt.Sprintf("%d", r.dpi),
		"-singlefile",
		pdfPath,
		outputPrefix,
	}

	cmd := exec.Command("pdftoppm", args...)
	hideWindowOnWindows(cmd)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, NewPDFErrorWithDetails(ErrExtractFailed, "pdftoppm failed",
			string(output), err)
	}

	imgPath := outputPrefix + ".png"
	img, err := loadImage(imgPath)
	if err != nil {
		return nil, NewPDFErrorWithPage(ErrExtractFailed, "failed to load rendered image", pageNum, err)
	}
	os.Remove(imgPath)

	return img, nil
}

// downscale shrinks img so the longer edge fits maxDim. Images already
// within bounds are returned unchanged.
func downscale(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	scale := float64(maxDim) / float64(w)
	if h > w {
		scale = float64(maxDim) / float64(h)
	}
	targetW := int(float64(w) * scale)
	targetH := int(float64(h) * scale)
	if targetW < 1 {
		targetW = 1
	}
	if targetH < 1 {
		targetH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	return dst
}

// loadImage loads an image from file
func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}

	return img, nil
}

// Cleanup removes temporary files
func (r *PageRenderer) Cleanup() {
	if r.tempDir != "" {
		os.RemoveAll(r.tempDir)
		r.tempDir = ""
	}
}
