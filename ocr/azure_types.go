package ocr

import "time"

// AzureDocumentResult represents the root response from Azure Document Intelligence
type AzureDocumentResult struct {
	Status              string             `json:"status"`
	CreatedDateTime     time.Time          `json:"createdDateTime"`
	LastUpdatedDateTime time.Time          `json:"lastUpdatedDateTime"`
	AnalyzeResult       AzureAnalyzeResult `json:"analyzeResult"`
}

// AzureAnalyzeResult represents the analyze result part of the Azure Document Intelligence response
type AzureAnalyzeResult struct {
	APIVersion      string      `json:"apiVersion"`
	ModelID         string      `json:"modelId"`
	StringIndexType string      `json:"stringIndexType"`
	Content         string      `json:"content"`
	Pages           []AzurePage `json:"pages"`
}

// AzurePage represents a single page in the document.
// Image input is reported in pixels.
type AzurePage struct {
	PageNumber int         `json:"pageNumber"`
	Angle      float64     `json:"angle"`
	Width      float64     `json:"width"`
	Height     float64     `json:"height"`
	Unit       string      `json:"unit"`
	Words      []AzureWord `json:"words"`
	Lines      []AzureLine `json:"lines"`
}

// AzureWord represents a single word with its properties
type AzureWord struct {
	Content    string    `json:"content"`
	Polygon    []float64 `json:"polygon"`
	Confidence float64   `json:"confidence"`
	Span       AzureSpan `json:"span"`
}

// AzureLine represents a line of text. Polygon is a flat list of x, y pairs.
type AzureLine struct {
	Content string      `json:"content"`
	Polygon []float64   `json:"polygon"`
	Spans   []AzureSpan `json:"spans"`
}

// AzureSpan represents a span of text with offset and length
type AzureSpan struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}

func (s AzureSpan) contains(offset int) bool {
	return offset >= s.Offset && offset < s.Offset+s.Length
}
