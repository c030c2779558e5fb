package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/leadgate/leadgate/internal/airtable"
	apperrors "github.com/leadgate/leadgate/internal/errors"
	"github.com/leadgate/leadgate/internal/metrics"
	"github.com/leadgate/leadgate/internal/observability"
)

// AirtableForwarder is the slice of the Airtable client the handler
// needs.
type AirtableForwarder interface {
	Forward(ctx context.Context, method, path, rawQuery string, body io.Reader, contentType string) (*airtable.Result, error)
}

// AirtableProxy validates and forwards dashboard requests to Airtable.
// The bearer token lives server-side; clients only ever supply the
// record path and query.
type AirtableProxy struct {
	Rules     *airtable.Ruleset
	Forwarder AirtableForwarder
}

// NewAirtableProxy returns a proxy handler over the given rules and
// client.
func NewAirtableProxy(rules *airtable.Ruleset, forwarder AirtableForwarder) *AirtableProxy {
	return &AirtableProxy{Rules: rules, Forwarder: forwarder}
}

var allowedProxyMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// ServeHTTP handles GET|POST|PATCH|DELETE /api/airtable?path=... .
// Every request is forwarded independently; responses are never cached
// proxy-side.
func (p *AirtableProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowedProxyMethods[r.Method] {
		respondWithError(w, r, apperrors.NewMethodNotAllowedError("Method not allowed"))
		return
	}

	if p == nil || p.Forwarder == nil {
		respondWithError(w, r, apperrors.NewConfigInvalidError("Airtable proxy is not configured"))
		return
	}

	query := r.URL.Query()
	path := strings.TrimSpace(query.Get("path"))
	if path == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError("Missing path parameter"))
		return
	}

	if err := p.Rules.ValidatePath(path); err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("Invalid path: "+err.Error()))
		return
	}

	// Everything except the proxy's own path parameter travels
	// upstream as the Airtable query string.
	query.Del("path")
	rawQuery := query.Encode()

	start := time.Now()
	result, err := p.Forwarder.Forward(r.Context(), r.Method, path, rawQuery, r.Body, r.Header.Get("Content-Type"))
	duration := time.Since(start)

	if err != nil {
		p.respondUpstreamFailure(w, r, err)
		metrics.RecordProxyForward(r.Method, 0, duration)
		return
	}

	metrics.RecordProxyForward(r.Method, result.StatusCode, duration)

	contentType := result.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Body)
}

// respondUpstreamFailure masks what Airtable said. The raw upstream
// body goes to the server log only; clients get a generic envelope
// with status 502 when upstream failed server-side, or the upstream
// status for client-level rejections.
func (p *AirtableProxy) respondUpstreamFailure(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, airtable.ErrNoToken) {
		respondWithError(w, r, apperrors.NewConfigInvalidError("Airtable token is not configured"))
		return
	}

	var upstream *airtable.UpstreamError
	if !errors.As(err, &upstream) {
		respondWithError(w, r, apperrors.WrapUpstream(r.Context(), err, "Airtable request failed"))
		return
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Error("Airtable upstream error",
			zap.Int("upstream_status", upstream.StatusCode),
			zap.ByteString("upstream_body", upstream.RawResponse))
	}

	status := upstream.StatusCode
	if status >= http.StatusInternalServerError {
		status = http.StatusBadGateway
	}

	envelope := apperrors.NewUpstreamError("Airtable request failed")
	apperrors.RespondWithStatus(w, r, envelope, status)
}
