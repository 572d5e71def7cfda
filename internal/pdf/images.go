package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"pdf-translator/internal/logger"
)

// imageLocator walks a document with pdfcpu and locates image XObject
// placements from the page content streams.
type imageLocator struct {
	ctx *model.Context
}

func newImageLocator(pdfPath string) (*imageLocator, error) {
	ctx, err := api.ReadContextFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	return &imageLocator{ctx: ctx}, nil
}

// xobjectImage is an image XObject loaded from page resources.
type xobjectImage struct {
	name       string
	width      int
	height     int
	bpc        int
	colorSpace string
	filters    []string
	raw        []byte
	content    []byte
}

// pageImages returns the image placements of one page. Placement rects
// are in bottom-left origin page coordinates: drawing the XObject maps
// the unit square through the CTM, so the rect is read off the matrix.
func (l *imageLocator) pageImages(pageNum int, pageHeight float64) ([]ImageElement, error) {
	pageDict, _, _, err := l.ctx.PageDict(pageNum, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get page dict: %w", err)
	}

	xobjects := l.loadImageXObjects(pageDict)
	if len(xobjects) == 0 {
		return nil, nil
	}

	contents, found := pageDict.Find("Contents")
	if !found {
		return nil, nil
	}
	streams, err := l.contentStreams(contents)
	if err != nil {
		return nil, err
	}

	var allContent []byte
	for _, s := range streams {
		allContent = append(allContent, s...)
		allContent = append(allContent, '\n')
	}

	placements := scanImagePlacements(allContent)

	var images []ImageElement
	for _, p := range placements {
		xobj, ok := xobjects[p.name]
		if !ok {
			continue
		}
		format, data, err := xobj.encode()
		if err != nil {
			logger.Warn("cannot convert image XObject",
				logger.Int("page", pageNum),
				logger.String("name", p.name),
				logger.Err(err))
			continue
		}
		images = append(images, ImageElement{
			Page:   pageNum,
			Name:   p.name,
			X:      p.ctm.e,
			Y:      p.ctm.f,
			Width:  abs(p.ctm.a),
			Height: abs(p.ctm.d),
			Format: format,
			Data:   data,
		})
	}
	return images, nil
}

// loadImageXObjects reads the page's XObject resources and keeps the
// image-subtype entries.
func (l *imageLocator) loadImageXObjects(pageDict types.Dict) map[string]*xobjectImage {
	result := make(map[string]*xobjectImage)

	resourcesObj, found := pageDict.Find("Resources")
	if !found {
		return result
	}
	resourcesObj, err := l.ctx.Dereference(resourcesObj)
	if err != nil {
		return result
	}
	resourcesDict, ok := resourcesObj.(types.Dict)
	if !ok {
		return result
	}

	xobjectsObj, found := resourcesDict.Find("XObject")
	if !found {
		return result
	}
	xobjectsObj, err = l.ctx.Dereference(xobjectsObj)
	if err != nil {
		return result
	}
	xobjectsDict, ok := xobjectsObj.(types.Dict)
	if !ok {
		return result
	}

	for name, obj := range xobjectsDict {
		obj, err := l.ctx.Dereference(obj)
		if err != nil {
			continue
		}
		sd, ok := obj.(types.StreamDict)
		if !ok {
			continue
		}
		if nameValue(sd.Dict, "Subtype") != "Image" {
			continue
		}

		xobj := &xobjectImage{
			name:       strings.TrimPrefix(name, "/"),
			width:      intValue(sd.Dict, "Width"),
			height:     intValue(sd.Dict, "Height"),
			bpc:        intValue(sd.Dict, "BitsPerComponent"),
			colorSpace: nameValue(sd.Dict, "ColorSpace"),
			raw:        sd.Raw,
		}
		for _, f := range sd.FilterPipeline {
			xobj.filters = append(xobj.filters, f.Name)
		}

		// DCT streams are already JPEG; anything else gets decoded to
		// raw samples here and converted on demand.
		if !xobj.isJPEG() {
			if err := sd.Decode(); err == nil {
				xobj.content = sd.Content
			}
		}
		result[xobj.name] = xobj
	}
	return result
}

// contentStreams collects the decoded content streams of a page, following
// indirect references and stream arrays.
func (l *imageLocator) contentStreams(contents types.Object) ([][]byte, error) {
	var streams [][]byte

	switch obj := contents.(type) {
	case types.IndirectRef:
		derefObj, err := l.ctx.Dereference(obj)
		if err != nil {
			return nil, fmt.Errorf("failed to dereference contents: %w", err)
		}
		return l.contentStreams(derefObj)

	case types.StreamDict:
		if len(obj.Content) == 0 && len(obj.Raw) > 0 {
			if err := obj.Decode(); err != nil {
				return nil, fmt.Errorf("failed to decode stream: %w", err)
			}
		}
		if len(obj.Content) > 0 {
			streams = append(streams, obj.Content)
		}

	case types.Array:
		for _, item := range obj {
			itemStreams, err := l.contentStreams(item)
			if err == nil {
				streams = append(streams, itemStreams...)
			}
		}
	}

	return streams, nil
}

func nameValue(d types.Dict, key string) string {
	obj, found := d.Find(key)
	if !found {
		return ""
	}
	if name, ok := obj.(types.Name); ok {
		return strings.TrimPrefix(name.String(), "/")
	}
	return ""
}

func intValue(d types.Dict, key string) int {
	obj, found := d.Find(key)
	if !found {
		return 0
	}
	switch v := obj.(type) {
	case types.Integer:
		return int(v)
	case types.Float:
		return int(v)
	}
	return 0
}

func (x *xobjectImage) isJPEG() bool {
	for _, f := range x.filters {
		if f == "DCTDecode" {
			return true
		}
	}
	return false
}

// encode returns the image as embeddable bytes: JPEG streams pass
// through untouched, raw sample data is wrapped into a PNG.
func (x *xobjectImage) encode() (string, []byte, error) {
	if x.isJPEG() {
		return "jpeg", x.raw, nil
	}

	img, err := x.toImage()
	if err != nil {
		return "", nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return "png", buf.Bytes(), nil
}

// toImage converts decoded sample data into a Go image. The sample layout
// is inferred from data length and color space.
func (x *xobjectImage) toImage() (image.Image, error) {
	if len(x.content) == 0 {
		return nil, fmt.Errorf("image data is empty")
	}
	pixelCount := x.width * x.height
	if pixelCount == 0 {
		return nil, fmt.Errorf("invalid image dimensions %dx%d", x.width, x.height)
	}

	switch len(x.content) {
	case pixelCount * 4:
		if x.colorSpace == "DeviceCMYK" {
			return &image.CMYK{
				Pix:    x.content,
				Stride: x.width * 4,
				Rect:   image.Rect(0, 0, x.width, x.height),
			}, nil
		}
		return &image.RGBA{
			Pix:    x.content,
			Stride: x.width * 4,
			Rect:   image.Rect(0, 0, x.width, x.height),
		}, nil
	case pixelCount * 3:
		return &rgbImage{
			pix:    x.content,
			stride: x.width * 3,
			rect:   image.Rect(0, 0, x.width, x.height),
		}, nil
	case pixelCount:
		return &image.Gray{
			Pix:    x.content,
			Stride: x.width,
			Rect:   image.Rect(0, 0, x.width, x.height),
		}, nil
	}
	return nil, fmt.Errorf("unsupported sample layout: %d bytes for %dx%d %s",
		len(x.content), x.width, x.height, x.colorSpace)
}

// rgbImage adapts packed 3-byte RGB samples to image.Image.
type rgbImage struct {
	pix    []byte
	stride int
	rect   image.Rectangle
}

func (r *rgbImage) ColorModel() color.Model { return color.RGBAModel }
func (r *rgbImage) Bounds() image.Rectangle { return r.rect }

func (r *rgbImage) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(r.rect)) {
		return color.RGBA{}
	}
	i := (y-r.rect.Min.Y)*r.stride + (x-r.rect.Min.X)*3
	return color.RGBA{R: r.pix[i], G: r.pix[i+1], B: r.pix[i+2], A: 255}
}

// matrix is a PDF transformation matrix [a b c d e f].
type matrix struct {
	a, b, c, d, e, f float64
}

func identityMatrix() matrix {
	return matrix{a: 1, d: 1}
}

// mul returns m x n (m applied first, per the cm operator convention).
func (m matrix) mul(n matrix) matrix {
	return matrix{
		a: m.a*n.a + m.b*n.c,
		b: m.a*n.b + m.b*n.d,
		c: m.c*n.a + m.d*n.c,
		d: m.c*n.b + m.d*n.d,
		e: m.e*n.a + m.f*n.c + n.e,
		f: m.e*n.b + m.f*n.d + n.f,
	}
}

// imagePlacement is one Do of a named XObject with the CTM in effect.
type imagePlacement struct {
	name string
	ctm  matrix
}

// scanImagePlacements runs a minimal content-stream scan that tracks the
// graphics state stack (q/Q), CTM concatenation (cm) and XObject draws
// (Do). Text-painting operators are ignored; inline images (BI..EI) are
// skipped wholesale.
func scanImagePlacements(content []byte) []imagePlacement {
	var placements []imagePlacement

	ctm := identityMatrix()
	var stack []matrix
	var operands []string

	tokens := tokenizeContent(content)
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok {
		case "q":
			stack = append(stack, ctm)
			operands = operands[:0]
		case "Q":
			if len(stack) > 0 {
				ctm = stack[len(stack)-1]
				stack = stack[:len(stack)-1]
			}
			operands = operands[:0]
		case "cm":
			if len(operands) >= 6 {
				vals := make([]float64, 6)
				ok := true
				for j := 0; j < 6; j++ {
					v, err := strconv.ParseFloat(operands[len(operands)-6+j], 64)
					if err != nil {
						ok = false
						break
					}
					vals[j] = v
				}
				if ok {
					cm := matrix{a: vals[0], b: vals[1], c: vals[2], d: vals[3], e: vals[4], f: vals[5]}
					ctm = cm.mul(ctm)
				}
			}
			operands = operands[:0]
		case "Do":
			if len(operands) > 0 {
				name := operands[len(operands)-1]
				if strings.HasPrefix(name, "/") {
					placements = append(placements, imagePlacement{
						name: strings.TrimPrefix(name, "/"),
						ctm:  ctm,
					})
				}
			}
			operands = operands[:0]
		case "BI":
			// skip inline image data up to EI
			for i < len(tokens) && tokens[i] != "EI" {
				i++
			}
			operands = operands[:0]
		default:
			if isOperandToken(tok) {
				operands = append(operands, tok)
			} else {
				// any other operator consumes its operands
				operands = operands[:0]
			}
		}
	}
	return placements
}

// isOperandToken reports whether tok is an operand (number, name, string
// or delimiter) rather than an operator keyword.
func isOperandToken(tok string) bool {
	if tok == "" {
		return false
	}
	c := tok[0]
	return c == '/' || c == '(' || c == '<' || c == '[' || c == ']' ||
		c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9')
}

// tokenizeContent splits a content stream into whitespace-separated
// tokens, keeping literal strings and hex strings as single tokens.
func tokenizeContent(content []byte) []string {
	var tokens []string
	i := 0
	n := len(content)
	for i < n {
		c := content[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0:
			i++
		case c == '%':
			// comment to end of line
			for i < n && content[i] != '\n' {
				i++
			}
		case c == '(':
			// literal string with nesting and escapes
			depth := 0
			start := i
			for i < n {
				switch content[i] {
				case '\\':
					i++
				case '(':
					depth++
				case ')':
					depth--
				}
				i++
				if depth == 0 {
					break
				}
			}
			tokens = append(tokens, string(content[start:i]))
		case c == '<' && i+1 < n && content[i+1] != '<':
			start := i
			for i < n && content[i] != '>' {
				i++
			}
			if i < n {
				i++
			}
			tokens = append(tokens, string(content[start:i]))
		case c == '<' || c == '>':
			// dictionary delimiters << and >>
			start := i
			i += 2
			tokens = append(tokens, string(content[start:min(i, n)]))
		case c == '[' || c == ']' || c == '{' || c == '}':
			tokens = append(tokens, string(c))
			i++
		case c == '/':
			start := i
			i++
			for i < n && !isDelimiter(content[i]) {
				i++
			}
			tokens = append(tokens, string(content[start:i]))
		default:
			start := i
			for i < n && !isDelimiter(content[i]) {
				i++
			}
			if i == start {
				// stray delimiter, skip it
				i++
				continue
			}
			tokens = append(tokens, string(content[start:i]))
		}
	}
	return tokens
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0, '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
