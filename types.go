package main

import (
	"time"

	"github.com/swipswaps/DockerOCR/layout"
)

// Output formats for reconstructed text
const (
	formatText    = "text"
	formatColumns = "columns"
)

// OCRRequest is the payload of POST /ocr.
type OCRRequest struct {
	Image    string `json:"image"`
	Filename string `json:"filename"`
	// Rotate turns the image counter-clockwise before recognition: 0, 90, 180 or 270.
	Rotate int    `json:"rotate"`
	HOCR   bool   `json:"hocr"`
	Format string `json:"format"`
}

// LayoutSummary describes how the reading order was derived.
type LayoutSummary struct {
	Mode       layout.Mode `json:"mode"`
	Boundaries []float64   `json:"boundaries"`
	Columns    []int       `json:"columns"`
	Dropped    int         `json:"dropped"`
}

func summarize(result layout.Result) LayoutSummary {
	return LayoutSummary{
		Mode:       result.Mode,
		Boundaries: result.Boundaries,
		Columns:    result.Columns,
		Dropped:    result.Dropped,
	}
}

// OCRResponse is returned by POST /ocr and is the per-page result of batch jobs.
type OCRResponse struct {
	Text        string             `json:"text"`
	Blocks      []layout.TextBlock `json:"blocks"`
	Filename    string             `json:"filename"`
	Layout      LayoutSummary      `json:"layout"`
	ImageWidth  int                `json:"image_width"`
	ImageHeight int                `json:"image_height"`
	HOCR        string             `json:"hocr,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// LayoutRequest is the payload of POST /api/layout. It runs reconstruction on blocks the
// caller already has.
type LayoutRequest struct {
	Blocks     []layout.TextBlock `json:"blocks"`
	ImageWidth int                `json:"image_width"`
	Format     string             `json:"format"`
}

// LayoutResponse is returned by POST /api/layout.
type LayoutResponse struct {
	Text   string             `json:"text"`
	Blocks []layout.TextBlock `json:"blocks"`
	Layout LayoutSummary      `json:"layout"`
}

// JobResponse is the JSON view of a batch job.
type JobResponse struct {
	JobID      string        `json:"job_id"`
	Status     string        `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	PagesDone  int           `json:"pages_done"`
	TotalPages int           `json:"total_pages"`
	Results    []OCRResponse `json:"results,omitempty"`
	Error      string        `json:"error,omitempty"`
}
