package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leadgate/leadgate/internal/airtable"
)

type stubForwarder struct {
	result *airtable.Result
	err    error

	calls     int
	method    string
	path      string
	rawQuery  string
	bodyBytes []byte
}

func (s *stubForwarder) Forward(ctx context.Context, method, path, rawQuery string, body io.Reader, contentType string) (*airtable.Result, error) {
	s.calls++
	s.method = method
	s.path = path
	s.rawQuery = rawQuery
	if body != nil {
		s.bodyBytes, _ = io.ReadAll(body)
	}
	return s.result, s.err
}

func testProxy(forwarder *stubForwarder) *AirtableProxy {
	rules := airtable.NewRuleset("applOjDjhH0RqLtBH", []string{"tblMptC862PyL7Znw"})
	return NewAirtableProxy(rules, forwarder)
}

func TestAirtableProxyForwardsValidRequest(t *testing.T) {
	forwarder := &stubForwarder{result: &airtable.Result{StatusCode: http.StatusOK, Body: []byte(`{"records":[]}`), ContentType: "application/json"}}
	proxy := testProxy(forwarder)

	req := httptest.NewRequest(http.MethodGet, "/api/airtable?path=applOjDjhH0RqLtBH/tblMptC862PyL7Znw&maxRecords=5", nil)
	rec := httptest.NewRecorder()

	proxy.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != `{"records":[]}` {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if forwarder.path != "applOjDjhH0RqLtBH/tblMptC862PyL7Znw" {
		t.Fatalf("unexpected forwarded path: %s", forwarder.path)
	}
	if strings.Contains(forwarder.rawQuery, "path=") {
		t.Fatalf("path parameter leaked into upstream query: %s", forwarder.rawQuery)
	}
	if !strings.Contains(forwarder.rawQuery, "maxRecords=5") {
		t.Fatalf("expected maxRecords in upstream query, got %s", forwarder.rawQuery)
	}
}

func TestAirtableProxyRejectsMissingPath(t *testing.T) {
	forwarder := &stubForwarder{}
	proxy := testProxy(forwarder)

	req := httptest.NewRequest(http.MethodGet, "/api/airtable", nil)
	rec := httptest.NewRecorder()

	proxy.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if forwarder.calls != 0 {
		t.Fatalf("expected no upstream calls, got %d", forwarder.calls)
	}
}

func TestAirtableProxyRejectsInvalidPath(t *testing.T) {
	forwarder := &stubForwarder{}
	proxy := testProxy(forwarder)

	req := httptest.NewRequest(http.MethodGet, "/api/airtable?path=wrongBase/tblMptC862PyL7Znw", nil)
	rec := httptest.NewRecorder()

	proxy.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if forwarder.calls != 0 {
		t.Fatalf("expected no upstream calls, got %d", forwarder.calls)
	}
}

func TestAirtableProxyRejectsUnsupportedMethod(t *testing.T) {
	proxy := testProxy(&stubForwarder{})

	req := httptest.NewRequest(http.MethodPut, "/api/airtable?path=applOjDjhH0RqLtBH/tblMptC862PyL7Znw", nil)
	rec := httptest.NewRecorder()

	proxy.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
}

func TestAirtableProxyMasksUpstreamServerError(t *testing.T) {
	forwarder := &stubForwarder{err: &airtable.UpstreamError{StatusCode: http.StatusServiceUnavailable, RawResponse: []byte("internal airtable detail")}}
	proxy := testProxy(forwarder)

	req := httptest.NewRequest(http.MethodGet, "/api/airtable?path=applOjDjhH0RqLtBH/tblMptC862PyL7Znw", nil)
	rec := httptest.NewRecorder()

	proxy.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "internal airtable detail") {
		t.Fatalf("upstream body leaked to client: %s", rec.Body.String())
	}
}

func TestAirtableProxyRelaysUpstreamClientStatusWithoutBody(t *testing.T) {
	forwarder := &stubForwarder{err: &airtable.UpstreamError{StatusCode: http.StatusUnprocessableEntity, RawResponse: []byte(`{"error":{"type":"INVALID_REQUEST"}}`)}}
	proxy := testProxy(forwarder)

	req := httptest.NewRequest(http.MethodGet, "/api/airtable?path=applOjDjhH0RqLtBH/tblMptC862PyL7Znw", nil)
	rec := httptest.NewRecorder()

	proxy.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "INVALID_REQUEST") {
		t.Fatalf("upstream body leaked to client: %s", rec.Body.String())
	}

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error.Code != "UPSTREAM_ERROR" {
		t.Fatalf("expected UPSTREAM_ERROR code, got %s", resp.Error.Code)
	}
}

func TestAirtableProxyForwardsBodyOnPost(t *testing.T) {
	forwarder := &stubForwarder{result: &airtable.Result{StatusCode: http.StatusOK, Body: []byte(`{"id":"recNew"}`)}}
	proxy := testProxy(forwarder)

	req := httptest.NewRequest(http.MethodPost, "/api/airtable?path=applOjDjhH0RqLtBH/tblMptC862PyL7Znw", strings.NewReader(`{"fields":{"Status":"New"}}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	proxy.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if forwarder.method != http.MethodPost {
		t.Fatalf("expected POST upstream, got %s", forwarder.method)
	}
	if string(forwarder.bodyBytes) != `{"fields":{"Status":"New"}}` {
		t.Fatalf("unexpected upstream body: %s", forwarder.bodyBytes)
	}
}

func TestAirtableProxyForwardsEachRequestIndependently(t *testing.T) {
	forwarder := &stubForwarder{result: &airtable.Result{StatusCode: http.StatusOK, Body: []byte(`{}`)}}
	proxy := testProxy(forwarder)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/airtable?path=applOjDjhH0RqLtBH/tblMptC862PyL7Znw", nil)
		rec := httptest.NewRecorder()
		proxy.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
	}

	if forwarder.calls != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", forwarder.calls)
	}
}

func TestAirtableProxyMissingTokenIsMisconfiguration(t *testing.T) {
	forwarder := &stubForwarder{err: airtable.ErrNoToken}
	proxy := testProxy(forwarder)

	req := httptest.NewRequest(http.MethodGet, "/api/airtable?path=applOjDjhH0RqLtBH/tblMptC862PyL7Znw", nil)
	rec := httptest.NewRecorder()

	proxy.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}

	var body map[string]map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"]["code"] != "CONFIG_INVALID" {
		t.Fatalf("expected CONFIG_INVALID, got %v", body["error"]["code"])
	}
}
