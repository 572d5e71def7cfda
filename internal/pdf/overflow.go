package pdf

import "strings"

const (
	// OverflowColumnWidth is the character width overflow text wraps at.
	OverflowColumnWidth = 80
	// OverflowLineStep is the vertical distance between overflow lines.
	OverflowLineStep = 15.0
	// OverflowFontSize is the fixed size overflow text renders at.
	OverflowFontSize = 8.0
	// overflowFloorY bounds the band; lines below it are dropped.
	overflowFloorY = 10.0
)

// overflowAnchor is the fallback anchor, in bottom-left origin output
// coordinates, where the overflow band starts.
var overflowAnchor = Point{X: 40.0, Y: 60.0}

// OverflowRenderer lays out text the reflow engine could not place into
// a footer band at the bottom of the page.
type OverflowRenderer struct {
	columnWidth int
	lineStep    float64
	fontSize    float64
}

// NewOverflowRenderer creates an overflow renderer with the default band
// geometry.
func NewOverflowRenderer() *OverflowRenderer {
	return &OverflowRenderer{
		columnWidth: OverflowColumnWidth,
		lineStep:    OverflowLineStep,
		fontSize:    OverflowFontSize,
	}
}

// Render word-wraps the leftover text and emits bounded, position-stable
// draw instructions in the footer band. Text that exceeds the band is
// dropped, never an error.
func (r *OverflowRenderer) Render(leftover string, page *PageData) []TextDraw {
	if strings.TrimSpace(leftover) == "" {
		return nil
	}

	var wrapped []string
	for _, paragraph := range splitParagraphs(leftover) {
		wrapped = append(wrapped, wrapText(paragraph, r.columnWidth)...)
	}

	var draws []TextDraw
	y := overflowAnchor.Y
	for _, line := range wrapped {
		if y < overflowFloorY {
			break
		}
		draws = append(draws, TextDraw{
			Text:     line,
			X:        overflowAnchor.X,
			Y:        y,
			FontSize: r.fontSize,
			Color:    RGB{},
		})
		y -= r.lineStep
	}
	return draws
}

// wrapText wraps text greedily at width characters, breaking at the last
// space before the limit. A single word longer than the width is split
// mid-word.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	var current []rune

	flush := func() {
		if len(current) > 0 {
			lines = append(lines, string(current))
			current = current[:0]
		}
	}

	for _, word := range words {
		runes := []rune(word)

		// hard-split words that cannot fit any line
		for len(runes) > width {
			flush()
			lines = append(lines, string(runes[:width]))
			runes = runes[width:]
		}

		switch {
		case len(current) == 0:
			current = append(current, runes...)
		case len(current)+1+len(runes) <= width:
			current = append(current, ' ')
			current = append(current, runes...)
		default:
			flush()
			current = append(current, runes...)
		}
	}
	flush()
	return lines
}
