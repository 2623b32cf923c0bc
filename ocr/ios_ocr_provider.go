package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/swipswaps/DockerOCR/layout"
)

// IOSOCRProvider implements OCR using iOS-OCR-Server
type IOSOCRProvider struct {
	baseURL    string
	httpClient *retryablehttp.Client
}

// newIOSOCRProvider creates a new iOS-OCR-Server provider
func newIOSOCRProvider(config Config) (*IOSOCRProvider, error) {
	logger := log.WithFields(logrus.Fields{
		"url": config.IOSOCRServerURL,
	})
	logger.Info("Creating new iOS-OCR-Server provider")

	if config.IOSOCRServerURL == "" {
		logger.Error("Missing required iOS-OCR-Server URL")
		return nil, fmt.Errorf("missing required iOS-OCR-Server URL")
	}

	policy := config.Retry
	if policy.MaxAttempts == 0 {
		policy = DefaultRetryPolicy()
	}

	provider := &IOSOCRProvider{
		baseURL:    strings.TrimRight(config.IOSOCRServerURL, "/"),
		httpClient: policy.newClient(logger, ""),
	}

	logger.Info("Successfully initialized iOS-OCR-Server provider")
	return provider, nil
}

// ProcessImage sends the image content to the iOS-OCR-Server for OCR
func (p *IOSOCRProvider) ProcessImage(ctx context.Context, imageContent []byte, filename string) (*OCRResult, error) {
	logger := log.WithFields(logrus.Fields{
		"provider":  "ios_ocr",
		"url":       p.baseURL,
		"filename":  filename,
		"data_size": len(imageContent),
	})
	logger.Debug("Starting iOS-OCR-Server processing")

	if _, err := detectImageType(imageContent); err != nil {
		logger.WithError(err).Error("Unsupported file type")
		return nil, err
	}
	if filename == "" {
		filename = "document.png"
	}

	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err = io.Copy(part, bytes.NewReader(imageContent)); err != nil {
		return nil, fmt.Errorf("failed to copy image content: %w", err)
	}
	if err = writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/ocr", &requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	logger.Debug("Sending request to iOS-OCR-Server")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		logger.WithError(err).Error("Failed to send request to iOS-OCR-Server")
		return nil, fmt.Errorf("error sending request to iOS-OCR-Server: %w", err)
	}
	defer resp.Body.Close()

	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"response":    string(respBodyBytes),
		}).Error("iOS-OCR-Server returned non-200 status")
		return nil, fmt.Errorf("iOS-OCR-Server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBodyBytes)))
	}

	var ocrResponse IOSOCRResponse
	if err := json.Unmarshal(respBodyBytes, &ocrResponse); err != nil {
		logger.WithError(err).WithField("response", string(respBodyBytes)).Error("Failed to parse iOS-OCR-Server response")
		return nil, fmt.Errorf("failed to parse iOS-OCR-Server response: %w", err)
	}

	if !ocrResponse.Success {
		logger.WithField("message", ocrResponse.Message).Error("iOS-OCR-Server processing failed")
		return nil, fmt.Errorf("iOS-OCR-Server processing failed: %s", ocrResponse.Message)
	}

	blocks := make([]layout.TextBlock, 0, len(ocrResponse.OCRBoxes))
	for _, box := range ocrResponse.OCRBoxes {
		blocks = append(blocks, layout.TextBlock{
			Text:       box.Text,
			Confidence: 1,
			BBox:       layout.Rect(box.X, box.Y, box.W, box.H),
		})
	}

	logger.WithFields(logrus.Fields{
		"text_length":  len(ocrResponse.OCRResult),
		"num_boxes":    len(ocrResponse.OCRBoxes),
		"image_width":  ocrResponse.ImageWidth,
		"image_height": ocrResponse.ImageHeight,
	}).Info("Successfully processed image with iOS-OCR-Server")

	return &OCRResult{
		Text:        ocrResponse.OCRResult,
		Blocks:      blocks,
		ImageWidth:  ocrResponse.ImageWidth,
		ImageHeight: ocrResponse.ImageHeight,
		Metadata: map[string]string{
			"provider":  "ios_ocr",
			"num_boxes": fmt.Sprintf("%d", len(ocrResponse.OCRBoxes)),
		},
	}, nil
}

// IOSOCRResponse represents the response from iOS-OCR-Server
type IOSOCRResponse struct {
	Message     string      `json:"message"`
	ImageWidth  int         `json:"image_width"`
	OCRResult   string      `json:"ocr_result"`
	OCRBoxes    []IOSOCRBox `json:"ocr_boxes"`
	Success     bool        `json:"success"`
	ImageHeight int         `json:"image_height"`
}

// IOSOCRBox represents a text bounding box from iOS-OCR-Server.
// Coordinates are image pixels with a top-left origin.
type IOSOCRBox struct {
	Text string  `json:"text"`
	W    float64 `json:"w"`
	X    float64 `json:"x"`
	H    float64 `json:"h"`
	Y    float64 `json:"y"`
}
