package airtable

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientRequiresToken(t *testing.T) {
	client := NewClient("", "")
	_, err := client.Forward(context.Background(), http.MethodGet, "base/table", "", nil, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "token")
}

func TestClientForwardsAndRelaysBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/applOjDjhH0RqLtBH/tblMptC862PyL7Znw", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"records":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token")
	client.HTTPClient = server.Client()

	result, err := client.Forward(context.Background(), http.MethodGet, "applOjDjhH0RqLtBH/tblMptC862PyL7Znw", "", nil, "")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, result.StatusCode)
	require.Equal(t, `{"records":[]}`, string(result.Body))
	require.Equal(t, "application/json", result.ContentType)
}

func TestClientReencodesQuerySpaces(t *testing.T) {
	var gotRawQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRawQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token")
	client.HTTPClient = server.Client()

	_, err := client.Forward(context.Background(), http.MethodGet, "base/table", "filterByFormula=Status%3D%22New+Lead%22", nil, "")
	require.NoError(t, err)
	require.NotContains(t, gotRawQuery, "+")
	require.Contains(t, gotRawQuery, "%20")
}

func TestClientSendsBodyWithJSONContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"recNew"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token")
	client.HTTPClient = server.Client()

	result, err := client.Forward(context.Background(), http.MethodPost, "base/table", "", strings.NewReader(`{"fields":{}}`), "")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, result.StatusCode)
}

func TestClientReturnsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"type":"INVALID_REQUEST"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token")
	client.HTTPClient = server.Client()

	_, err := client.Forward(context.Background(), http.MethodGet, "base/table", "", nil, "")
	require.Error(t, err)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	require.Equal(t, http.StatusUnprocessableEntity, upstream.StatusCode)
	require.Contains(t, string(upstream.RawResponse), "INVALID_REQUEST")
}

func TestReencodeQuery(t *testing.T) {
	require.Equal(t, "", ReencodeQuery(""))
	require.Equal(t, "a=b", ReencodeQuery("a=b"))
	require.NotContains(t, ReencodeQuery("q=hello+world"), "+")
	require.Contains(t, ReencodeQuery("q=hello+world"), "%20")
}
