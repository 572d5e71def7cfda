package pdf

import (
	"image"
	"testing"
)

func TestDownscale(t *testing.T) {
	small := image.NewRGBA(image.Rect(0, 0, 100, 50))
	if got := downscale(small, 2048); got != small {
		t.Error("Expected small image to pass through unscaled")
	}

	wide := image.NewRGBA(image.Rect(0, 0, 4096, 1024))
	scaled := downscale(wide, 2048)
	b := scaled.Bounds()
	if b.Dx() != 2048 || b.Dy() != 512 {
		t.Errorf("Expected 2048x512, got %dx%d", b.Dx(), b.Dy())
	}

	tall := image.NewRGBA(image.Rect(0, 0, 1000, 4000))
	scaled = downscale(tall, 2048)
	b = scaled.Bounds()
	if b.Dy() != 2048 || b.Dx() != 512 {
		t.Errorf("Expected 512x2048, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestNewPageRenderer_DefaultDPI(t *testing.T) {
	r := NewPageRenderer(0)
	if r.dpi != DefaultRenderDPI {
		t.Errorf("Expected default DPI %d, got %d", DefaultRenderDPI, r.dpi)
	}
	r = NewPageRenderer(300)
	if r.dpi != 300 {
		t.Errorf("Expected explicit DPI 300, got %d", r.dpi)
	}
}

func TestRenderPage_NoBackend(t *testing.T) {
	r := &PageRenderer{dpi: DefaultRenderDPI, usePoppler: false}
	_, err := r.RenderPage("/some/file.pdf", 1)
	if err == nil {
		t.Fatal("Expected error without a rasterizer backend")
	}
	if pdfErr, ok := err.(*PDFError); !ok || pdfErr.Code != ErrExtractFailed {
		t.Errorf("Expected EXTRACT_FAILED, got %v", err)
	}
}
