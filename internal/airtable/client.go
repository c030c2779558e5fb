package airtable

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.airtable.com/v0"

// ErrNoToken reports a missing server-side bearer token, a deployment
// misconfiguration rather than an upstream failure.
var ErrNoToken = errors.New("airtable token is not configured")

// UpstreamError carries the status and raw body of a failed Airtable
// call. The body is for server-side logs only and must never reach a
// client response.
type UpstreamError struct {
	StatusCode  int
	RawResponse []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("airtable returned status %d", e.StatusCode)
}

// Result is a successful upstream response, relayed verbatim.
type Result struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

// Client forwards validated proxy requests to the Airtable REST API.
// The bearer token comes from server configuration; nothing a caller
// sends can influence authentication.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, token string) *Client {
	u := strings.TrimSpace(baseURL)
	if u == "" {
		u = defaultBaseURL
	}

	return &Client{
		BaseURL: u,
		Token:   strings.TrimSpace(token),
	}
}

// Forward sends one request upstream and returns the response. The
// raw query string is re-encoded so spaces travel as %20 rather than
// +, which Airtable's filter formulas require. Non-2xx responses come
// back as *UpstreamError.
func (c *Client) Forward(ctx context.Context, method, path, rawQuery string, body io.Reader, contentType string) (*Result, error) {
	if c == nil {
		return nil, fmt.Errorf("airtable client not configured")
	}
	if strings.TrimSpace(c.Token) == "" {
		return nil, ErrNoToken
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	target := strings.TrimRight(c.BaseURL, "/") + "/" + strings.Trim(path, "/")
	if query := ReencodeQuery(rawQuery); query != "" {
		target += "?" + query
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.Token)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	} else if method == http.MethodPost || method == http.MethodPatch {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, RawResponse: respBody}
	}

	return &Result{
		StatusCode:  resp.StatusCode,
		Body:        respBody,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// ReencodeQuery normalizes a raw query string so that every space is
// percent-encoded. Form-style + encoding is decoded and re-emitted as
// %20; a query that fails to parse is passed through untouched.
func ReencodeQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}

	encoded := values.Encode()
	return strings.ReplaceAll(encoded, "+", "%20")
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, timeout)
}
