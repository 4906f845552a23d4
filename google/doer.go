package google

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultRequestTimeout  = 30 * time.Second
	maxResponseBodyBytes   = 1 << 22 // 4 MiB
	headerAuthorization    = "Authorization"
	headerContentType      = "Content-Type"
	headerAccept           = "Accept"
	contentTypeJSON        = "application/json"
	contentTypeFormEncoded = "application/x-www-form-urlencoded"
)

// HTTPDoer is the transport seam every client in this package goes through,
// so tests can script responses without a live endpoint.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

func DefaultHTTPClient() HTTPDoer {
	return &http.Client{Timeout: defaultRequestTimeout}
}

// DoJSON issues an authorized request and returns the status plus the bounded
// response body. Non-2xx handling is left to the caller's classifier.
func DoJSON(ctx context.Context, doer HTTPDoer, method, requestURL, accessToken, contentType string, body []byte) (int, []byte, error) {
	if doer == nil {
		return 0, nil, fmt.Errorf("google: http client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return 0, nil, err
	}
	if strings.TrimSpace(accessToken) != "" {
		req.Header.Set(headerAuthorization, "Bearer "+strings.TrimSpace(accessToken))
	}
	if strings.TrimSpace(contentType) != "" {
		req.Header.Set(headerContentType, contentType)
	}
	req.Header.Set(headerAccept, contentTypeJSON)

	response, err := doer.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("google: request failed: %w", err)
	}
	defer response.Body.Close()

	payload, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodyBytes+1))
	if readErr != nil {
		return response.StatusCode, nil, fmt.Errorf("google: read response: %w", readErr)
	}
	if int64(len(payload)) > maxResponseBodyBytes {
		return response.StatusCode, nil, fmt.Errorf("google: response exceeds %d bytes", maxResponseBodyBytes)
	}
	return response.StatusCode, payload, nil
}
