package layout

import (
	"fmt"
	"strings"

	"github.com/gardar/ocrchestra/pkg/hocr"
)

// ToHOCRPage projects a result onto the hOCR object model. Each column becomes an
// ocr_carea and each block an ocr_line, with one ocrx_word per whitespace-separated
// token. Word boxes are interpolated across the line box by character count.
func ToHOCRPage(result Result, width, height, pageNumber int) hocr.Page {
	columns := len(result.Boundaries) + 1
	if result.Mode != ModeTable {
		columns = 1
	}
	areas := make([]hocr.Area, columns)
	for i := range areas {
		areas[i] = hocr.Area{ID: fmt.Sprintf("block_%d_%d", pageNumber, i+1)}
	}

	lineNo := 0
	for _, block := range result.Blocks {
		if !block.BBox.Usable() {
			continue
		}
		col := 0
		if result.Mode == ModeTable {
			col = columnIndex(block.BBox.Left(), result.Boundaries)
		}
		lineNo++
		area := &areas[col]
		line := blockLine(block, pageNumber, lineNo)
		area.Lines = append(area.Lines, line)
		area.BBox = union(area.BBox, line.BBox, len(area.Lines) == 1)
	}

	nonEmpty := areas[:0]
	for _, a := range areas {
		if len(a.Lines) > 0 {
			nonEmpty = append(nonEmpty, a)
		}
	}

	return hocr.Page{
		ID:         fmt.Sprintf("page_%d", pageNumber),
		Title:      fmt.Sprintf("bbox 0 0 %d %d", width, height),
		PageNumber: pageNumber,
		BBox:       hocr.NewBoundingBox(0, 0, float64(width), float64(height)),
		Areas:      nonEmpty,
		Metadata: map[string]string{
			"layout_mode": string(result.Mode),
			"columns":     fmt.Sprintf("%d", len(nonEmpty)),
		},
	}
}

func blockLine(block TextBlock, pageNumber, lineNo int) hocr.Line {
	x1, y1 := block.BBox.Left(), block.BBox.Top()
	x2, y2 := block.BBox.Right(), block.BBox.Bottom()
	line := hocr.Line{
		ID:   fmt.Sprintf("line_%d_%d", pageNumber, lineNo),
		BBox: hocr.NewBoundingBox(x1, y1, x2, y2),
	}

	tokens := strings.Fields(block.Text)
	total := 0
	for _, t := range tokens {
		total += len([]rune(t))
	}
	if total == 0 {
		return line
	}

	perChar := (x2 - x1) / float64(total)
	cursor := x1
	for i, t := range tokens {
		w := perChar * float64(len([]rune(t)))
		line.Words = append(line.Words, hocr.Word{
			ID:         fmt.Sprintf("word_%d_%d_%d", pageNumber, lineNo, i+1),
			Text:       t,
			BBox:       hocr.NewBoundingBox(cursor, y1, cursor+w, y2),
			Confidence: block.Confidence * 100,
		})
		cursor += w
	}
	return line
}

func union(a, b hocr.BoundingBox, first bool) hocr.BoundingBox {
	if first {
		return b
	}
	return hocr.NewBoundingBox(
		min(a.X1, b.X1),
		min(a.Y1, b.Y1),
		max(a.X2, b.X2),
		max(a.Y2, b.Y2),
	)
}
