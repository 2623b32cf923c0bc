package ocr

import (
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docaiLine(start, end int64, confidence float32, poly *documentaipb.BoundingPoly) *documentaipb.Document_Page_Line {
	return &documentaipb.Document_Page_Line{
		Layout: &documentaipb.Document_Page_Layout{
			Confidence:   confidence,
			BoundingPoly: poly,
			TextAnchor: &documentaipb.Document_TextAnchor{
				TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{
					{StartIndex: start, EndIndex: end},
				},
			},
		},
	}
}

func TestDocumentResult(t *testing.T) {
	tests := []struct {
		name  string
		doc   *documentaipb.Document
		check func(t *testing.T, result *OCRResult)
	}{
		{
			name: "empty document",
			doc:  &documentaipb.Document{},
			check: func(t *testing.T, result *OCRResult) {
				assert.Empty(t, result.Blocks)
				assert.Equal(t, 0, result.ImageWidth)
				assert.Equal(t, "0", result.Metadata["page_count"])
			},
		},
		{
			name: "lines with normalized and absolute vertices",
			doc: &documentaipb.Document{
				Text: "Hello World\nTotal 42\n",
				Pages: []*documentaipb.Document_Page{
					{
						Dimension: &documentaipb.Document_Page_Dimension{Width: 800, Height: 600},
						DetectedLanguages: []*documentaipb.Document_Page_DetectedLanguage{
							{LanguageCode: "en"},
						},
						Lines: []*documentaipb.Document_Page_Line{
							docaiLine(0, 12, 0.95, &documentaipb.BoundingPoly{
								NormalizedVertices: []*documentaipb.NormalizedVertex{
									{X: 0.125, Y: 0.1},
									{X: 0.875, Y: 0.1},
									{X: 0.875, Y: 0.2},
									{X: 0.125, Y: 0.2},
								},
							}),
							docaiLine(12, 21, 0.5, &documentaipb.BoundingPoly{
								Vertices: []*documentaipb.Vertex{
									{X: 400, Y: 200},
									{X: 500, Y: 200},
									{X: 500, Y: 230},
									{X: 400, Y: 230},
								},
							}),
						},
					},
				},
			},
			check: func(t *testing.T, result *OCRResult) {
				assert.Equal(t, 800, result.ImageWidth)
				assert.Equal(t, 600, result.ImageHeight)
				assert.Equal(t, "en", result.Metadata["lang_code"])
				require.Len(t, result.Blocks, 2)

				assert.Equal(t, "Hello World", result.Blocks[0].Text)
				assert.InDelta(t, 0.95, result.Blocks[0].Confidence, 1e-6)
				assert.InDelta(t, 100, result.Blocks[0].BBox.Left(), 1e-3)
				assert.InDelta(t, 60, result.Blocks[0].BBox.Top(), 1e-3)

				assert.Equal(t, "Total 42", result.Blocks[1].Text)
				assert.Equal(t, 400.0, result.Blocks[1].BBox.Left())
			},
		},
		{
			name: "out of range anchor",
			doc: &documentaipb.Document{
				Text: "abc",
				Pages: []*documentaipb.Document_Page{
					{Lines: []*documentaipb.Document_Page_Line{docaiLine(2, 10, 1, nil)}},
				},
			},
			check: func(t *testing.T, result *OCRResult) {
				require.Len(t, result.Blocks, 1)
				assert.Equal(t, "", result.Blocks[0].Text)
				assert.False(t, result.Blocks[0].BBox.Usable())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := documentResult(tt.doc)
			require.NotNil(t, result)
			assert.Equal(t, "google_docai", result.Metadata["provider"])
			tt.check(t, result)
		})
	}
}
