package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/swipswaps/DockerOCR/layout"
)

const (
	apiVersion             = "2024-11-30"
	defaultModelID         = "prebuilt-read"
	defaultTimeout         = 120
	defaultPollingInterval = 2 * time.Second
)

// AzureProvider implements OCR using Azure Document Intelligence
type AzureProvider struct {
	endpoint        string
	apiKey          string
	modelID         string
	timeout         time.Duration
	pollingInterval time.Duration
	httpClient      *retryablehttp.Client
}

// Request body for Azure Document Intelligence
type analyzeRequest struct {
	Base64Source string `json:"base64Source"`
}

func newAzureProvider(config Config) (*AzureProvider, error) {
	logger := log.WithFields(logrus.Fields{
		"endpoint": config.AzureEndpoint,
		"model_id": config.AzureModelID,
	})
	logger.Info("Creating new Azure Document Intelligence provider")

	if config.AzureEndpoint == "" || config.AzureAPIKey == "" {
		logger.Error("Missing required configuration")
		return nil, fmt.Errorf("missing required Azure Document Intelligence configuration")
	}

	modelID := defaultModelID
	if config.AzureModelID != "" {
		modelID = config.AzureModelID
	}

	timeout := defaultTimeout
	if config.AzureTimeout > 0 {
		timeout = config.AzureTimeout
	}

	policy := config.Retry
	if policy.MaxAttempts == 0 {
		policy = DefaultRetryPolicy()
	}

	provider := &AzureProvider{
		endpoint:        strings.TrimRight(config.AzureEndpoint, "/"),
		apiKey:          config.AzureAPIKey,
		modelID:         modelID,
		timeout:         time.Duration(timeout) * time.Second,
		pollingInterval: defaultPollingInterval,
		httpClient:      policy.newClient(logger, ""),
	}

	logger.Info("Successfully initialized Azure Document Intelligence provider")
	return provider, nil
}

// ProcessImage submits the image for analysis and polls until the result is ready
func (p *AzureProvider) ProcessImage(ctx context.Context, imageContent []byte, filename string) (*OCRResult, error) {
	logger := log.WithFields(logrus.Fields{
		"model_id": p.modelID,
		"filename": filename,
	})
	logger.Debug("Starting Azure Document Intelligence processing")

	mimeType, err := detectImageType(imageContent)
	if err != nil {
		logger.WithField("mime_type", mimeType).Error("Unsupported file type")
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	operationLocation, err := p.submitDocument(ctx, imageContent)
	if err != nil {
		return nil, fmt.Errorf("error submitting document: %w", err)
	}

	result, err := p.pollForResults(ctx, operationLocation)
	if err != nil {
		return nil, fmt.Errorf("error polling for results: %w", err)
	}

	ocrResult := &OCRResult{
		Text: result.AnalyzeResult.Content,
		Metadata: map[string]string{
			"provider":    "azure_docai",
			"mime_type":   mimeType,
			"page_count":  fmt.Sprintf("%d", len(result.AnalyzeResult.Pages)),
			"api_version": result.AnalyzeResult.APIVersion,
		},
	}
	if pages := result.AnalyzeResult.Pages; len(pages) > 0 {
		ocrResult.Blocks = azurePageBlocks(pages[0])
		ocrResult.ImageWidth = int(math.Round(pages[0].Width))
		ocrResult.ImageHeight = int(math.Round(pages[0].Height))
	}

	logger.WithFields(logrus.Fields{
		"content_length": len(ocrResult.Text),
		"num_blocks":     len(ocrResult.Blocks),
	}).Info("Successfully processed document")
	return ocrResult, nil
}

// azurePageBlocks converts the lines of a page into blocks. Lines carry no confidence of
// their own, so each gets the mean confidence of the words inside its spans.
func azurePageBlocks(page AzurePage) []layout.TextBlock {
	blocks := make([]layout.TextBlock, 0, len(page.Lines))
	for _, line := range page.Lines {
		var sum float64
		var n int
		for _, w := range page.Words {
			for _, s := range line.Spans {
				if s.contains(w.Span.Offset) {
					sum += w.Confidence
					n++
					break
				}
			}
		}
		confidence := 1.0
		if n > 0 {
			confidence = sum / float64(n)
		}
		blocks = append(blocks, layout.TextBlock{
			Text:       line.Content,
			Confidence: confidence,
			BBox:       polygonToBBox(line.Polygon),
		})
	}
	return blocks
}

func (p *AzureProvider) submitDocument(ctx context.Context, imageContent []byte) (string, error) {
	requestURL := fmt.Sprintf("%s/documentintelligence/documentModels/%s:analyze?api-version=%s",
		p.endpoint, p.modelID, apiVersion)

	requestBodyBytes, err := json.Marshal(analyzeRequest{
		Base64Source: base64.StdEncoding.EncodeToString(imageContent),
	})
	if err != nil {
		return "", fmt.Errorf("error marshaling request body: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return "", fmt.Errorf("error creating HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error sending HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	operationLocation := resp.Header.Get("Operation-Location")
	if operationLocation == "" {
		return "", fmt.Errorf("no Operation-Location header in response")
	}

	return operationLocation, nil
}

func (p *AzureProvider) pollForResults(ctx context.Context, operationLocation string) (*AzureDocumentResult, error) {
	logger := log.WithField("operation_location", operationLocation)
	logger.Debug("Starting to poll for results")

	ticker := time.NewTicker(p.pollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("operation timed out after %v: %w", p.timeout, ctx.Err())
		case <-ticker.C:
			result, done, err := p.poll(ctx, operationLocation)
			if err != nil {
				return nil, err
			}
			if done {
				return result, nil
			}
		}
	}
}

func (p *AzureProvider) poll(ctx context.Context, operationLocation string) (*AzureDocumentResult, bool, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, operationLocation, nil)
	if err != nil {
		return nil, false, fmt.Errorf("error creating poll request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("error polling for results: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("unexpected status code %d while polling", resp.StatusCode)
	}

	var result AzureDocumentResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, false, fmt.Errorf("error decoding response: %w", err)
	}

	log.WithFields(logrus.Fields{
		"content_length": len(result.AnalyzeResult.Content),
		"page_count":     len(result.AnalyzeResult.Pages),
		"status":         result.Status,
	}).Debug("Poll response received")

	switch result.Status {
	case "succeeded":
		return &result, true, nil
	case "failed":
		return nil, false, fmt.Errorf("document processing failed")
	case "running", "notStarted":
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("unexpected status: %s", result.Status)
	}
}
