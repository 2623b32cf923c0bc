package ocr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/swipswaps/DockerOCR/layout"
)

var log = logrus.New()

// ErrUnsupportedFileType is returned when the image format is not accepted by the engine.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// OCRResult holds the output from OCR processing
type OCRResult struct {
	// Text as the engine emitted it, in detection order
	Text string

	// Detected text regions in image pixel coordinates
	Blocks []layout.TextBlock

	// Image dimensions when the engine reports them, zero otherwise
	ImageWidth  int
	ImageHeight int

	// Additional provider-specific metadata
	Metadata map[string]string
}

// Provider defines the interface for OCR processing
type Provider interface {
	ProcessImage(ctx context.Context, imageContent []byte, filename string) (*OCRResult, error)
}

// HealthChecker is implemented by providers that can report whether the engine is able to
// serve requests. Engines that load models at startup answer with an error until they finish.
type HealthChecker interface {
	Ready(ctx context.Context) error
}

// Config holds the OCR provider configuration
type Config struct {
	// Provider type ("paddle", "ios_ocr", "azure", "google_docai", "tesseract")
	Provider string

	// PaddleOCR server settings
	PaddleURL   string
	PaddleToken string // Optional bearer token
	// PaddleTimeout bounds a single recognition request. Defaults to 120 seconds.
	PaddleTimeout time.Duration

	// iOS-OCR-Server settings
	IOSOCRServerURL string

	// Google Document AI settings
	GoogleProjectID   string
	GoogleLocation    string
	GoogleProcessorID string

	// Azure Document Intelligence settings
	AzureEndpoint string
	AzureAPIKey   string
	AzureModelID  string // Optional, defaults to "prebuilt-read"
	AzureTimeout  int    // Optional, defaults to 120 seconds

	// Tesseract language packs, e.g. ["eng", "deu"]. Defaults to eng.
	TesseractLanguages []string

	// Retry policy applied to HTTP engines
	Retry RetryPolicy

	// RequestsPerMinute caps calls into the engine. Zero disables limiting.
	RequestsPerMinute float64
}

// NewProvider creates a new OCR provider based on configuration
func NewProvider(config Config) (Provider, error) {
	log.Info("Initializing OCR provider: ", config.Provider)

	if config.Retry.MaxAttempts == 0 {
		config.Retry = DefaultRetryPolicy()
	}

	var (
		provider Provider
		err      error
	)
	switch config.Provider {
	case "paddle":
		if config.PaddleURL == "" {
			return nil, fmt.Errorf("missing required PaddleOCR configuration (PADDLE_OCR_URL)")
		}
		log.WithField("url", config.PaddleURL).Info("Using PaddleOCR provider")
		provider, err = newPaddleProvider(config)

	case "ios_ocr":
		if config.IOSOCRServerURL == "" {
			return nil, fmt.Errorf("missing required iOS-OCR-Server configuration (IOS_OCR_SERVER_URL)")
		}
		provider, err = newIOSOCRProvider(config)

	case "google_docai":
		if config.GoogleProjectID == "" || config.GoogleLocation == "" || config.GoogleProcessorID == "" {
			return nil, fmt.Errorf("missing required Google Document AI configuration")
		}
		log.WithFields(logrus.Fields{
			"location":     config.GoogleLocation,
			"processor_id": config.GoogleProcessorID,
		}).Info("Using Google Document AI provider")
		provider, err = newGoogleDocAIProvider(config)

	case "azure":
		if config.AzureEndpoint == "" || config.AzureAPIKey == "" {
			return nil, fmt.Errorf("missing required Azure Document Intelligence configuration")
		}
		provider, err = newAzureProvider(config)

	case "tesseract":
		provider, err = newTesseractProvider(config)

	default:
		return nil, fmt.Errorf("unsupported OCR provider: %s", config.Provider)
	}
	if err != nil {
		return nil, err
	}

	if config.RequestsPerMinute > 0 {
		provider = newRateLimitedProvider(provider, config.RequestsPerMinute)
	}
	return provider, nil
}

// SetLogLevel sets the logging level for the OCR package
func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}
