package ocr

import (
	"context"
	"fmt"
	"math"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/swipswaps/DockerOCR/layout"
)

// GoogleDocAIProvider implements OCR using Google Document AI
type GoogleDocAIProvider struct {
	projectID   string
	location    string
	processorID string
	client      *documentai.DocumentProcessorClient
}

func newGoogleDocAIProvider(config Config) (*GoogleDocAIProvider, error) {
	logger := log.WithFields(logrus.Fields{
		"location":     config.GoogleLocation,
		"processor_id": config.GoogleProcessorID,
	})
	logger.Info("Creating new Google Document AI provider")

	ctx := context.Background()
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.GoogleLocation)

	client, err := documentai.NewDocumentProcessorClient(ctx, option.WithEndpoint(endpoint))
	if err != nil {
		logger.WithError(err).Error("Failed to create Document AI client")
		return nil, fmt.Errorf("error creating Document AI client: %w", err)
	}

	provider := &GoogleDocAIProvider{
		projectID:   config.GoogleProjectID,
		location:    config.GoogleLocation,
		processorID: config.GoogleProcessorID,
		client:      client,
	}

	logger.Info("Successfully initialized Google Document AI provider")
	return provider, nil
}

// ProcessImage sends the raw image to the configured processor
func (p *GoogleDocAIProvider) ProcessImage(ctx context.Context, imageContent []byte, filename string) (*OCRResult, error) {
	logger := log.WithFields(logrus.Fields{
		"project_id":   p.projectID,
		"location":     p.location,
		"processor_id": p.processorID,
		"filename":     filename,
	})
	logger.Debug("Starting Document AI processing")

	mimeType, err := detectImageType(imageContent)
	if err != nil {
		logger.WithField("mime_type", mimeType).Error("Unsupported file type")
		return nil, err
	}

	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s", p.projectID, p.location, p.processorID)

	req := &documentaipb.ProcessRequest{
		Name: name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  imageContent,
				MimeType: mimeType,
			},
		},
	}

	logger.Debug("Sending request to Document AI")
	resp, err := p.client.ProcessDocument(ctx, req)
	if err != nil {
		logger.WithError(err).Error("Failed to process document")
		return nil, fmt.Errorf("error processing document: %w", err)
	}

	if resp == nil || resp.Document == nil {
		logger.Error("Received nil response or document from Document AI")
		return nil, fmt.Errorf("received nil response or document from Document AI")
	}

	if resp.Document.Error != nil {
		logger.WithField("error", resp.Document.Error.Message).Error("Document processing error")
		return nil, fmt.Errorf("document processing error: %s", resp.Document.Error.Message)
	}

	result := documentResult(resp.Document)
	result.Metadata["mime_type"] = mimeType
	result.Metadata["processor_id"] = p.processorID

	logger.WithFields(logrus.Fields{
		"content_length": len(result.Text),
		"num_blocks":     len(result.Blocks),
	}).Info("Successfully processed document")
	return result, nil
}

// documentResult converts the first page of a processed document. Each detected line
// becomes a block; normalized vertices are scaled by the page dimension.
func documentResult(doc *documentaipb.Document) *OCRResult {
	result := &OCRResult{
		Text: doc.GetText(),
		Metadata: map[string]string{
			"provider":   "google_docai",
			"page_count": fmt.Sprintf("%d", len(doc.GetPages())),
		},
	}

	pages := doc.GetPages()
	if len(pages) == 0 {
		return result
	}
	page := pages[0]
	if langs := page.GetDetectedLanguages(); len(langs) > 0 {
		result.Metadata["lang_code"] = langs[0].GetLanguageCode()
	}

	width := float64(page.GetDimension().GetWidth())
	height := float64(page.GetDimension().GetHeight())
	result.ImageWidth = int(math.Round(width))
	result.ImageHeight = int(math.Round(height))

	for _, line := range page.GetLines() {
		lay := line.GetLayout()
		result.Blocks = append(result.Blocks, layout.TextBlock{
			Text:       anchorText(doc.GetText(), lay.GetTextAnchor()),
			Confidence: float64(lay.GetConfidence()),
			BBox:       polyToBBox(lay.GetBoundingPoly(), width, height),
		})
	}
	return result
}

func anchorText(text string, anchor *documentaipb.Document_TextAnchor) string {
	var sb strings.Builder
	for _, seg := range anchor.GetTextSegments() {
		start, end := seg.GetStartIndex(), seg.GetEndIndex()
		if start < 0 || end > int64(len(text)) || start >= end {
			continue
		}
		sb.WriteString(text[start:end])
	}
	return strings.TrimSpace(sb.String())
}

// polyToBBox prefers absolute vertices and falls back to normalized ones.
func polyToBBox(poly *documentaipb.BoundingPoly, width, height float64) layout.BBox {
	if vs := poly.GetVertices(); len(vs) > 0 {
		box := make(layout.BBox, 0, len(vs))
		for _, v := range vs {
			box = append(box, layout.Point{X: float64(v.GetX()), Y: float64(v.GetY())})
		}
		return box
	}
	nvs := poly.GetNormalizedVertices()
	box := make(layout.BBox, 0, len(nvs))
	for _, v := range nvs {
		box = append(box, layout.Point{X: float64(v.GetX()) * width, Y: float64(v.GetY()) * height})
	}
	return box
}

// Close releases resources used by the provider
func (p *GoogleDocAIProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
