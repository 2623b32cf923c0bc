package ocr

import (
	"fmt"
	"net/http"
)

// bearerTransport wraps a RoundTripper to add the Authorization header.
type bearerTransport struct {
	base  http.RoundTripper
	token string
}

// RoundTrip clones the request so the caller's headers stay untouched.
func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqClone := req.Clone(req.Context())
	reqClone.Header.Set("Authorization", fmt.Sprintf("Bearer %s", t.token))
	return t.base.RoundTrip(reqClone)
}

// withBearer returns base unchanged when token is empty.
func withBearer(base http.RoundTripper, token string) http.RoundTripper {
	if token == "" {
		return base
	}
	if base == nil {
		base = http.DefaultTransport
	}
	return &bearerTransport{base: base, token: token}
}
