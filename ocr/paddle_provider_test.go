package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swipswaps/DockerOCR/layout"
)

func fastRetry(attempts int) RetryPolicy {
	policy := DefaultRetryPolicy()
	policy.MaxAttempts = attempts
	policy.WaitMin = time.Millisecond
	policy.WaitMax = 5 * time.Millisecond
	return policy
}

func newTestPaddle(t *testing.T, url string, attempts int) *PaddleProvider {
	t.Helper()
	p, err := newPaddleProvider(Config{PaddleURL: url, Retry: fastRetry(attempts), PaddleToken: "secret"})
	require.NoError(t, err)
	return p
}

func TestNewPaddleProvider(t *testing.T) {
	p, err := newPaddleProvider(Config{PaddleURL: "http://paddle:5000/"})
	require.NoError(t, err)
	assert.Equal(t, "http://paddle:5000", p.baseURL)
	assert.Equal(t, defaultPaddleTimeout, p.timeout)
	assert.Equal(t, 2, p.httpClient.RetryMax)

	_, err = newPaddleProvider(Config{})
	assert.Error(t, err)
}

func TestPaddleProvider_ProcessImage(t *testing.T) {
	img := testPNG(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ocr", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body paddleRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		decoded, err := base64.StdEncoding.DecodeString(body.Image)
		require.NoError(t, err)
		assert.Equal(t, img, decoded)
		assert.Equal(t, "scan.png", body.Filename)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"text": "Name\nAlice",
			"blocks": [
				{"text": "Name", "confidence": 0.98, "bbox": [[60,10],[120,10],[120,30],[60,30]]},
				{"text": "Alice", "confidence": 0.91, "bbox": "broken"}
			],
			"filename": "scan.png"
		}`)
	}))
	defer server.Close()

	result, err := newTestPaddle(t, server.URL, 1).ProcessImage(context.Background(), img, "scan.png")
	require.NoError(t, err)

	assert.Equal(t, "Name\nAlice", result.Text)
	require.Len(t, result.Blocks, 2)
	assert.Equal(t, layout.Rect(60, 10, 60, 20), result.Blocks[0].BBox)
	assert.InDelta(t, 0.98, result.Blocks[0].Confidence, 1e-9)
	assert.False(t, result.Blocks[1].BBox.Usable())
	assert.Equal(t, "paddle", result.Metadata["provider"])
	assert.Equal(t, "image/png", result.Metadata["mime_type"])
	assert.Equal(t, "2", result.Metadata["num_blocks"])
}

func TestPaddleProvider_ProcessImage_Errors(t *testing.T) {
	tests := []struct {
		name          string
		handler       http.HandlerFunc
		attempts      int
		expectedCalls int32
		errorContains string
	}{
		{
			name: "bad request carries server message",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"error": "No image data provided"}`)
			},
			attempts:      3,
			expectedCalls: 1,
			errorContains: "status 400: No image data provided",
		},
		{
			name: "internal error is not retried",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, `{"error": "cannot identify image file"}`)
			},
			attempts:      3,
			expectedCalls: 1,
			errorContains: "status 500: cannot identify image file",
		},
		{
			name: "unavailable exhausts attempts",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprint(w, "loading models")
			},
			attempts:      2,
			expectedCalls: 2,
			errorContains: "status 503: loading models",
		},
		{
			name: "invalid JSON",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "not json")
			},
			attempts:      1,
			expectedCalls: 1,
			errorContains: "failed to parse PaddleOCR response",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				tc.handler(w, r)
			}))
			defer server.Close()

			result, err := newTestPaddle(t, server.URL, tc.attempts).ProcessImage(context.Background(), testPNG(t), "x.png")
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Contains(t, err.Error(), tc.errorContains)
			assert.Equal(t, tc.expectedCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestPaddleProvider_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"text": "ok", "blocks": []}`)
	}))
	defer server.Close()

	result, err := newTestPaddle(t, server.URL, 3).ProcessImage(context.Background(), testPNG(t), "x.png")
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestPaddleProvider_RejectsNonImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server must not be called for unsupported content")
	}))
	defer server.Close()

	_, err := newTestPaddle(t, server.URL, 1).ProcessImage(context.Background(), []byte("%PDF-1.4 fake"), "x.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestPaddleProvider_Ready(t *testing.T) {
	tests := []struct {
		name      string
		routes    map[string]int
		expectErr bool
	}{
		{
			name:   "ready route",
			routes: map[string]int{"/ready": http.StatusOK},
		},
		{
			name:   "falls back to health",
			routes: map[string]int{"/health": http.StatusOK},
		},
		{
			name:      "still loading",
			routes:    map[string]int{"/ready": http.StatusServiceUnavailable, "/health": http.StatusOK},
			expectErr: true,
		},
		{
			name:      "no routes",
			routes:    map[string]int{},
			expectErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
				status, ok := tc.routes[r.URL.Path]
				if !ok {
					status = http.StatusNotFound
				}
				w.WriteHeader(status)
			}))
			defer server.Close()

			err := newTestPaddle(t, server.URL, 3).Ready(context.Background())
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPaddleProvider_ReadyUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	err := newTestPaddle(t, url, 1).Ready(context.Background())
	assert.ErrorContains(t, err, "unreachable")
}
