package ocr

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithBearer(t *testing.T) {
	token := "test_bearer_token"

	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "Success")
	}))
	defer testServer.Close()

	client := &http.Client{Transport: withBearer(nil, token)}

	req, err := http.NewRequest("GET", testServer.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, req.Header.Get("Authorization"), "original request must not be modified")
}

func TestWithBearer_EmptyTokenKeepsBase(t *testing.T) {
	base := http.DefaultTransport
	assert.Equal(t, base, withBearer(base, ""))
}
