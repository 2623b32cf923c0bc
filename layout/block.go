// Package layout recovers the reading order of OCR text blocks.
//
// A page is either read top to bottom (fallback mode) or, when the left edges of the
// blocks pile up at two or more x positions, column by column (table mode).
package layout

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Point is a single (x, y) image coordinate. Origin is top-left, y grows downward.
type Point struct {
	X float64
	Y float64
}

// MarshalJSON writes the point as a [x, y] pair, the shape OCR engines emit.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON reads a [x, y] pair.
func (p *Point) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("point must be a numeric pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("point must have 2 coordinates, got %d", len(pair))
	}
	p.X, p.Y = pair[0], pair[1]
	return nil
}

// BBox is the quadrilateral around a text region, in detection order.
type BBox []Point

// UnmarshalJSON never fails: a malformed box decodes to an empty BBox so a single bad
// detection does not reject the whole batch.
func (b *BBox) UnmarshalJSON(data []byte) error {
	var points []Point
	if err := json.Unmarshal(data, &points); err != nil {
		*b = BBox{}
		return nil
	}
	*b = points
	return nil
}

// Usable reports whether the box has at least one point and only finite coordinates.
func (b BBox) Usable() bool {
	if len(b) == 0 {
		return false
	}
	for _, p := range b {
		if !finite(p.X) || !finite(p.Y) {
			return false
		}
	}
	return true
}

// Left returns the minimum x of the box. Callers check Usable first.
func (b BBox) Left() float64 {
	left := math.Inf(1)
	for _, p := range b {
		left = math.Min(left, p.X)
	}
	return left
}

// Top returns the minimum y of the box. Callers check Usable first.
func (b BBox) Top() float64 {
	top := math.Inf(1)
	for _, p := range b {
		top = math.Min(top, p.Y)
	}
	return top
}

// Right returns the maximum x of the box.
func (b BBox) Right() float64 {
	right := math.Inf(-1)
	for _, p := range b {
		right = math.Max(right, p.X)
	}
	return right
}

// Bottom returns the maximum y of the box.
func (b BBox) Bottom() float64 {
	bottom := math.Inf(-1)
	for _, p := range b {
		bottom = math.Max(bottom, p.Y)
	}
	return bottom
}

// TextBlock is one OCR detection.
type TextBlock struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	BBox       BBox    `json:"bbox"`
}

// Rect builds the 4-point box of an axis-aligned rectangle, clockwise from top-left.
func Rect(x, y, w, h float64) BBox {
	return BBox{
		{X: x, Y: y},
		{X: x + w, Y: y},
		{X: x + w, Y: y + h},
		{X: x, Y: y + h},
	}
}

// JoinText joins the block texts with newlines, in slice order.
func JoinText(blocks []TextBlock) string {
	lines := make([]string, len(blocks))
	for i, b := range blocks {
		lines[i] = b.Text
	}
	return strings.Join(lines, "\n")
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
