package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/swipswaps/DockerOCR/layout"
)

const defaultPaddleTimeout = 120 * time.Second

// PaddleProvider implements OCR using the PaddleOCR HTTP server
type PaddleProvider struct {
	baseURL    string
	timeout    time.Duration
	httpClient *retryablehttp.Client
}

type paddleRequest struct {
	Image    string `json:"image"`
	Filename string `json:"filename,omitempty"`
}

// PaddleResponse represents the response from the PaddleOCR server
type PaddleResponse struct {
	Text     string             `json:"text"`
	Blocks   []layout.TextBlock `json:"blocks"`
	Filename string             `json:"filename"`
	Error    string             `json:"error,omitempty"`
}

func newPaddleProvider(config Config) (*PaddleProvider, error) {
	logger := log.WithFields(logrus.Fields{
		"url": config.PaddleURL,
	})
	logger.Info("Creating new PaddleOCR provider")

	if config.PaddleURL == "" {
		logger.Error("Missing required PaddleOCR URL")
		return nil, fmt.Errorf("missing required PaddleOCR URL")
	}

	timeout := defaultPaddleTimeout
	if config.PaddleTimeout > 0 {
		timeout = config.PaddleTimeout
	}

	policy := config.Retry
	if policy.MaxAttempts == 0 {
		policy = DefaultRetryPolicy()
	}

	provider := &PaddleProvider{
		baseURL:    strings.TrimRight(config.PaddleURL, "/"),
		timeout:    timeout,
		httpClient: policy.newClient(logger, config.PaddleToken),
	}

	logger.Info("Successfully initialized PaddleOCR provider")
	return provider, nil
}

// ProcessImage sends the base64 encoded image to the PaddleOCR server
func (p *PaddleProvider) ProcessImage(ctx context.Context, imageContent []byte, filename string) (*OCRResult, error) {
	logger := log.WithFields(logrus.Fields{
		"provider":  "paddle",
		"filename":  filename,
		"data_size": len(imageContent),
	})
	logger.Debug("Starting PaddleOCR processing")

	mimeType, err := detectImageType(imageContent)
	if err != nil {
		logger.WithField("mime_type", mimeType).Error("Unsupported file type")
		return nil, err
	}

	body, err := json.Marshal(paddleRequest{
		Image:    base64.StdEncoding.EncodeToString(imageContent),
		Filename: filename,
	})
	if err != nil {
		return nil, fmt.Errorf("error marshaling request body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/ocr", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		logger.WithError(err).Error("Failed to send request to PaddleOCR server")
		return nil, fmt.Errorf("error sending request to PaddleOCR server: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var paddleResp PaddleResponse
	decodeErr := json.Unmarshal(respBody, &paddleResp)

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(respBody))
		if decodeErr == nil && paddleResp.Error != "" {
			msg = paddleResp.Error
		}
		logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"error":       msg,
		}).Error("PaddleOCR server returned non-200 status")
		return nil, fmt.Errorf("PaddleOCR server returned status %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		logger.WithError(decodeErr).Error("Failed to parse PaddleOCR response")
		return nil, fmt.Errorf("failed to parse PaddleOCR response: %w", decodeErr)
	}

	logger.WithFields(logrus.Fields{
		"text_length": len(paddleResp.Text),
		"num_blocks":  len(paddleResp.Blocks),
	}).Info("Successfully processed image with PaddleOCR")

	return &OCRResult{
		Text:   paddleResp.Text,
		Blocks: paddleResp.Blocks,
		Metadata: map[string]string{
			"provider":   "paddle",
			"mime_type":  mimeType,
			"num_blocks": fmt.Sprintf("%d", len(paddleResp.Blocks)),
		},
	}, nil
}

// Ready asks the server whether its models are loaded. Servers without a /ready route are
// probed on /health instead.
func (p *PaddleProvider) Ready(ctx context.Context) error {
	status, err := p.probe(ctx, "/ready")
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		status, err = p.probe(ctx, "/health")
		if err != nil {
			return err
		}
	}
	if status != http.StatusOK {
		return fmt.Errorf("PaddleOCR server not ready: status %d", status)
	}
	return nil
}

// probe issues a single GET without retries; the caller decides when to try again.
func (p *PaddleProvider) probe(ctx context.Context, path string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create readiness request: %w", err)
	}
	resp, err := p.httpClient.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("PaddleOCR server unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
