package ocr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	calls    int
	readyErr error
}

func (s *stubProvider) ProcessImage(ctx context.Context, imageContent []byte, filename string) (*OCRResult, error) {
	s.calls++
	return &OCRResult{Text: filename}, nil
}

func (s *stubProvider) Ready(ctx context.Context) error { return s.readyErr }

func TestRateLimitedProvider(t *testing.T) {
	stub := &stubProvider{}
	limited := newRateLimitedProvider(stub, 1)

	result, err := limited.ProcessImage(context.Background(), nil, "first")
	require.NoError(t, err)
	assert.Equal(t, "first", result.Text)

	// The next token is a minute away, so a short deadline cannot be met.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = limited.ProcessImage(ctx, nil, "second")
	assert.ErrorContains(t, err, "rate limiter wait failed")
	assert.Equal(t, 1, stub.calls)
}

func TestRateLimitedProvider_ForwardsReady(t *testing.T) {
	stub := &stubProvider{readyErr: errors.New("loading")}
	limited := newRateLimitedProvider(stub, 60)

	var hc HealthChecker = limited
	assert.EqualError(t, hc.Ready(context.Background()), "loading")
	assert.NoError(t, limited.Close())
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		errContains string
	}{
		{
			name:        "unknown provider",
			config:      Config{Provider: "easyocr"},
			errContains: "unsupported OCR provider",
		},
		{
			name:        "paddle without url",
			config:      Config{Provider: "paddle"},
			errContains: "PADDLE_OCR_URL",
		},
		{
			name:        "ios without url",
			config:      Config{Provider: "ios_ocr"},
			errContains: "IOS_OCR_SERVER_URL",
		},
		{
			name:        "google without processor",
			config:      Config{Provider: "google_docai", GoogleProjectID: "p"},
			errContains: "missing required Google Document AI configuration",
		},
		{
			name:        "azure without key",
			config:      Config{Provider: "azure", AzureEndpoint: "https://x"},
			errContains: "missing required Azure Document Intelligence configuration",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			provider, err := NewProvider(tc.config)
			assert.Nil(t, provider)
			assert.ErrorContains(t, err, tc.errContains)
		})
	}
}

func TestNewProvider_Tesseract(t *testing.T) {
	provider, err := NewProvider(Config{Provider: "tesseract"})
	require.NoError(t, err)
	tess, ok := provider.(*TesseractProvider)
	require.True(t, ok)
	assert.Equal(t, []string{"eng"}, tess.languages)

	provider, err = NewProvider(Config{Provider: "tesseract", TesseractLanguages: []string{"eng", "deu"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"eng", "deu"}, provider.(*TesseractProvider).languages)
}

func TestNewProvider_Paddle(t *testing.T) {
	provider, err := NewProvider(Config{Provider: "paddle", PaddleURL: "http://paddle:5000"})
	require.NoError(t, err)
	paddle, ok := provider.(*PaddleProvider)
	require.True(t, ok)
	assert.Equal(t, "http://paddle:5000", paddle.baseURL)

	provider, err = NewProvider(Config{Provider: "paddle", PaddleURL: "http://paddle:5000", RequestsPerMinute: 30})
	require.NoError(t, err)
	_, ok = provider.(*rateLimitedProvider)
	assert.True(t, ok)
	_, ok = provider.(HealthChecker)
	assert.True(t, ok)
}
