package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAzureProvider(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		wantErr     bool
		errContains string
	}{
		{
			name: "valid config",
			config: Config{
				AzureEndpoint: "https://test.cognitiveservices.azure.com/",
				AzureAPIKey:   "test-key",
			},
		},
		{
			name: "valid config with custom model and timeout",
			config: Config{
				AzureEndpoint: "https://test.cognitiveservices.azure.com/",
				AzureAPIKey:   "test-key",
				AzureModelID:  "custom-model",
				AzureTimeout:  60,
			},
		},
		{
			name: "missing endpoint",
			config: Config{
				AzureAPIKey: "test-key",
			},
			wantErr:     true,
			errContains: "missing required Azure Document Intelligence configuration",
		},
		{
			name: "missing api key",
			config: Config{
				AzureEndpoint: "https://test.cognitiveservices.azure.com/",
			},
			wantErr:     true,
			errContains: "missing required Azure Document Intelligence configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := newAzureProvider(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "https://test.cognitiveservices.azure.com", provider.endpoint)

			if tt.config.AzureModelID == "" {
				assert.Equal(t, defaultModelID, provider.modelID)
			} else {
				assert.Equal(t, tt.config.AzureModelID, provider.modelID)
			}

			if tt.config.AzureTimeout == 0 {
				assert.Equal(t, time.Duration(defaultTimeout)*time.Second, provider.timeout)
			} else {
				assert.Equal(t, time.Duration(tt.config.AzureTimeout)*time.Second, provider.timeout)
			}
		})
	}
}

func azureTestResult() AzureDocumentResult {
	now := time.Now()
	return AzureDocumentResult{
		Status:              "succeeded",
		CreatedDateTime:     now,
		LastUpdatedDateTime: now,
		AnalyzeResult: AzureAnalyzeResult{
			APIVersion:      apiVersion,
			ModelID:         defaultModelID,
			StringIndexType: "utf-16",
			Content:         "Test line\nSecond",
			Pages: []AzurePage{
				{
					PageNumber: 1,
					Width:      800,
					Height:     600,
					Unit:       "pixel",
					Words: []AzureWord{
						{Content: "Test", Confidence: 0.9, Span: AzureSpan{Offset: 0, Length: 4}},
						{Content: "line", Confidence: 0.7, Span: AzureSpan{Offset: 5, Length: 4}},
						{Content: "Second", Confidence: 0.5, Span: AzureSpan{Offset: 10, Length: 6}},
					},
					Lines: []AzureLine{
						{
							Content: "Test line",
							Polygon: []float64{0, 0, 100, 0, 100, 20, 0, 20},
							Spans:   []AzureSpan{{Offset: 0, Length: 9}},
						},
						{
							Content: "Second",
							Polygon: []float64{0, 30, 60, 30, 60, 50, 0, 50},
							Spans:   []AzureSpan{{Offset: 10, Length: 6}},
						},
					},
				},
			},
		},
	}
}

func TestAzureProvider_ProcessImage(t *testing.T) {
	jpeg := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, []byte("JFIF test content")...)

	tests := []struct {
		name         string
		setupServer  func() *httptest.Server
		imageContent []byte
		wantErr      bool
		errContains  string
	}{
		{
			name: "successful processing",
			setupServer: func() *httptest.Server {
				mux := http.NewServeMux()
				server := httptest.NewServer(mux)
				var polls int32

				mux.HandleFunc("/documentintelligence/documentModels/prebuilt-read:analyze", func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, "test-key", r.Header.Get("Ocp-Apim-Subscription-Key"))
					w.Header().Set("Operation-Location", fmt.Sprintf("%s/operations/123", server.URL))
					w.WriteHeader(http.StatusAccepted)
				})

				mux.HandleFunc("/operations/123", func(w http.ResponseWriter, r *http.Request) {
					if atomic.AddInt32(&polls, 1) == 1 {
						json.NewEncoder(w).Encode(AzureDocumentResult{Status: "running"})
						return
					}
					json.NewEncoder(w).Encode(azureTestResult())
				})

				return server
			},
			imageContent: jpeg,
		},
		{
			name: "invalid mime type",
			setupServer: func() *httptest.Server {
				return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					t.Error("Server should not be called with invalid mime type")
				}))
			},
			imageContent: []byte("invalid content"),
			wantErr:      true,
			errContains:  "unsupported file type",
		},
		{
			name: "submission error",
			setupServer: func() *httptest.Server {
				return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusBadRequest)
					fmt.Fprintln(w, "Invalid request")
				}))
			},
			imageContent: jpeg,
			wantErr:      true,
			errContains:  "unexpected status code 400",
		},
		{
			name: "analysis failed",
			setupServer: func() *httptest.Server {
				mux := http.NewServeMux()
				server := httptest.NewServer(mux)
				mux.HandleFunc("/documentintelligence/documentModels/prebuilt-read:analyze", func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Operation-Location", server.URL+"/operations/9")
					w.WriteHeader(http.StatusAccepted)
				})
				mux.HandleFunc("/operations/9", func(w http.ResponseWriter, r *http.Request) {
					json.NewEncoder(w).Encode(AzureDocumentResult{Status: "failed"})
				})
				return server
			},
			imageContent: jpeg,
			wantErr:      true,
			errContains:  "document processing failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := tt.setupServer()
			defer server.Close()

			provider, err := newAzureProvider(Config{
				AzureEndpoint: server.URL,
				AzureAPIKey:   "test-key",
				AzureTimeout:  5,
				Retry:         fastRetry(1),
			})
			require.NoError(t, err)
			provider.pollingInterval = 10 * time.Millisecond

			result, err := provider.ProcessImage(context.Background(), tt.imageContent, "scan.jpg")
			if tt.wantErr {
				assert.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "Test line\nSecond", result.Text)
			assert.Equal(t, "azure_docai", result.Metadata["provider"])
			assert.Equal(t, apiVersion, result.Metadata["api_version"])
			assert.Equal(t, "1", result.Metadata["page_count"])
			assert.Equal(t, 800, result.ImageWidth)
			assert.Equal(t, 600, result.ImageHeight)
			require.Len(t, result.Blocks, 2)
			assert.Equal(t, "Test line", result.Blocks[0].Text)
			assert.InDelta(t, 0.8, result.Blocks[0].Confidence, 1e-9)
			assert.InDelta(t, 0.5, result.Blocks[1].Confidence, 1e-9)
			assert.Equal(t, 30.0, result.Blocks[1].BBox.Top())
		})
	}
}

func TestAzurePageBlocks_NoWords(t *testing.T) {
	blocks := azurePageBlocks(AzurePage{
		Lines: []AzureLine{{Content: "x", Polygon: []float64{1, 2, 3, 2, 3, 4, 1, 4}}},
	})
	require.Len(t, blocks, 1)
	assert.Equal(t, 1.0, blocks[0].Confidence)
	assert.Equal(t, 1.0, blocks[0].BBox.Left())
}
