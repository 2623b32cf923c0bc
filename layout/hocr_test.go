package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHOCRPage_TableAreas(t *testing.T) {
	result := Reconstruct(grid([]float64{60, 300}, 5), 500)
	require.Equal(t, ModeTable, result.Mode)

	page := ToHOCRPage(result, 500, 700, 1)

	assert.Equal(t, "page_1", page.ID)
	assert.Equal(t, 1, page.PageNumber)
	assert.Equal(t, 500.0, page.BBox.X2)
	assert.Equal(t, 700.0, page.BBox.Y2)
	require.Len(t, page.Areas, 2)
	assert.Len(t, page.Areas[0].Lines, 5)
	assert.Len(t, page.Areas[1].Lines, 5)
	assert.Equal(t, "table", page.Metadata["layout_mode"])
	assert.Equal(t, "2", page.Metadata["columns"])

	first := page.Areas[0]
	assert.Equal(t, 60.0, first.BBox.X1)
	assert.Equal(t, 10.0, first.BBox.Y1)
	assert.Equal(t, 100.0, first.BBox.X2)
	assert.Equal(t, 102.0, first.BBox.Y2)
}

func TestToHOCRPage_Words(t *testing.T) {
	result := Result{
		Mode:       ModeFallback,
		Boundaries: []float64{},
		Blocks: []TextBlock{
			{Text: "ab cd", Confidence: 0.5, BBox: Rect(0, 0, 40, 10)},
			{Text: "   ", Confidence: 0.9, BBox: Rect(0, 20, 40, 10)},
			{Text: "lost"},
		},
	}

	page := ToHOCRPage(result, 100, 100, 3)

	require.Len(t, page.Areas, 1)
	lines := page.Areas[0].Lines
	require.Len(t, lines, 2)
	require.Len(t, lines[0].Words, 2)
	assert.Equal(t, "ab", lines[0].Words[0].Text)
	assert.Equal(t, 50.0, lines[0].Words[0].Confidence)
	assert.Equal(t, 0.0, lines[0].Words[0].BBox.X1)
	assert.Equal(t, 20.0, lines[0].Words[0].BBox.X2)
	assert.Equal(t, 40.0, lines[0].Words[1].BBox.X2)
	assert.Equal(t, "word_3_1_2", lines[0].Words[1].ID)
	assert.Empty(t, lines[1].Words)
}
