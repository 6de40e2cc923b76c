package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"
)

const (
	HTTPProductionTimeout = 20 * time.Second
	HTTPTestTimeout       = 15 * time.Second
)

var remoteRejectionPattern = regexp.MustCompile(`(?i)\b(error|fault|ko)\b`)

// HTTPFiscalClient delivers FPMate XML documents to fiscal devices over
// HTTP, with the same local retry policy as TCPWriter.
type HTTPFiscalClient struct {
	client *http.Client
}

// NewHTTPFiscalClient returns a client with the given per-request timeout
// (HTTPProductionTimeout or HTTPTestTimeout).
func NewHTTPFiscalClient(timeout time.Duration) *HTTPFiscalClient {
	return &HTTPFiscalClient{client: &http.Client{Timeout: timeout}}
}

// PostResult carries the raw response body alongside the extracted
// receipt id, if any.
type PostResult struct {
	Body      string
	ReceiptID string
}

var receiptIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)receipt_id["'=:\s]+([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`(?i)document_number["'=:\s]+([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`(?i)progressive_number["'=:\s]+([a-zA-Z0-9_-]+)`),
}

// Post sends xmlBody to http://host:port/apiPath, retrying once per the
// local retry policy. A 2xx response whose body does not match the
// rejection keywords is success; any other outcome is a remote rejection
// (not retried) or a retriable transient failure (spec.md 4.4, 7).
func (c *HTTPFiscalClient) Post(ctx context.Context, host string, port int, apiPath string, xmlBody []byte) (PostResult, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := c.postOnce(ctx, host, port, apiPath, xmlBody)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if attempt == maxAttempts || !IsRetriable(err) {
			break
		}
		select {
		case <-time.After(retryPause):
		case <-ctx.Done():
			return PostResult{}, ctx.Err()
		}
	}
	return PostResult{}, lastErr
}

func (c *HTTPFiscalClient) postOnce(ctx context.Context, host string, port int, apiPath string, xmlBody []byte) (PostResult, error) {
	url := fmt.Sprintf("http://%s:%d%s", host, port, apiPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(xmlBody))
	if err != nil {
		return PostResult{}, err
	}
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return PostResult{}, mapHTTPError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return PostResult{}, mapHTTPError(err)
	}
	bodyText := string(body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return PostResult{}, fmt.Errorf("fiscal device rejected request: status %d: %s", resp.StatusCode, truncate(bodyText, 500))
	}
	if remoteRejectionPattern.MatchString(bodyText) {
		return PostResult{}, fmt.Errorf("fiscal device reported failure: %s", truncate(bodyText, 500))
	}

	return PostResult{Body: bodyText, ReceiptID: extractReceiptID(bodyText)}, nil
}

// extractReceiptID matches, in priority order, receipt_id, document_number,
// progressive_number; returns "" if none matched (spec.md 4.4).
func extractReceiptID(body string) string {
	for _, pattern := range receiptIDPatterns {
		if m := pattern.FindStringSubmatch(body); m != nil {
			return m[1]
		}
	}
	return ""
}

func mapHTTPError(err error) error {
	type timeouter interface{ Timeout() bool }
	if te, ok := err.(timeouter); ok && te.Timeout() {
		return fmt.Errorf("Timeout stampante")
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
