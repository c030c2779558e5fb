package webcache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leadgate/leadgate/internal/core"
)

func testGateway(t *testing.T, originHandler http.HandlerFunc) (*Gateway, *MemoryCache, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(originHandler)
	t.Cleanup(server.Close)

	origin, err := url.Parse(server.URL)
	require.NoError(t, err)

	cache := NewMemoryCache()
	gw := NewGateway(origin, cache, "v1")
	gw.HTTPClient = server.Client()
	return gw, cache, server
}

func TestGatewayAPIRequestsNeverServedFromCache(t *testing.T) {
	calls := 0
	gw, cache, _ := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"records":[]}`))
	})

	// A stale entry for the same key must be ignored.
	require.NoError(t, cache.PutCachedResponse(context.Background(), &core.CachedResponse{
		Key:        "/api/leads",
		Generation: "v1",
		StatusCode: http.StatusOK,
		Body:       []byte("stale"),
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		gw.ServeHTTP(rec, httptest.NewRequest("GET", "/api/leads", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, `{"records":[]}`, rec.Body.String())
	}

	require.Equal(t, 2, calls)
}

func TestGatewayCacheFirstServesStoredCopy(t *testing.T) {
	calls := 0
	gw, _, _ := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/javascript")
		_, _ = w.Write([]byte("console.log(1)"))
	})

	first := httptest.NewRecorder()
	gw.ServeHTTP(first, httptest.NewRequest("GET", "/assets/app.js", nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	gw.ServeHTTP(second, httptest.NewRequest("GET", "/assets/app.js", nil))
	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, "console.log(1)", second.Body.String())
	require.Equal(t, "hit", second.Header().Get("X-Cache"))

	require.Equal(t, 1, calls)
}

func TestGatewayCacheFirstStoresOnlyStatus200(t *testing.T) {
	gw, cache, _ := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("missing"))
	})

	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest("GET", "/assets/gone.js", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, 0, cache.Len())
}

func TestGatewayHTMLFallsBackToCachedCopy(t *testing.T) {
	gw, cache, server := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>live</html>"))
	})

	htmlGet := func(path string) *httptest.ResponseRecorder {
		r := httptest.NewRequest("GET", path, nil)
		r.Header.Set("Accept", "text/html")
		rec := httptest.NewRecorder()
		gw.ServeHTTP(rec, r)
		return rec
	}

	rec := htmlGet("/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "<html>live</html>", rec.Body.String())
	require.Equal(t, 1, cache.Len())

	server.Close()

	rec = htmlGet("/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "<html>live</html>", rec.Body.String())
	require.Equal(t, "hit", rec.Header().Get("X-Cache"))
}

func TestGatewayHTMLFallsBackToCachedRootDocument(t *testing.T) {
	gw, cache, server := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server.Close()

	require.NoError(t, cache.PutCachedResponse(context.Background(), &core.CachedResponse{
		Key:        "/",
		Generation: "v1",
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/html"}},
		Body:       []byte("<html>shell</html>"),
	}))

	r := httptest.NewRequest("GET", "/never-cached", nil)
	r.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "<html>shell</html>", rec.Body.String())
}

func TestGatewayActivatePurgesOldGenerations(t *testing.T) {
	gw, cache, _ := testGateway(t, func(w http.ResponseWriter, r *http.Request) {})

	require.NoError(t, cache.PutCachedResponse(context.Background(), &core.CachedResponse{Key: "/a", Generation: "v0", StatusCode: 200}))
	require.NoError(t, cache.PutCachedResponse(context.Background(), &core.CachedResponse{Key: "/b", Generation: "v1", StatusCode: 200}))

	purged, err := gw.Activate(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), purged)
	require.Equal(t, 1, cache.Len())

	kept, err := cache.GetCachedResponse(context.Background(), "/b", "v1")
	require.NoError(t, err)
	require.NotNil(t, kept)
}

func TestGatewayPrecacheStoresManifestAssets(t *testing.T) {
	gw, cache, _ := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.js" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("asset:" + r.URL.Path))
	})

	stored, err := gw.Precache(context.Background(), &Manifest{Assets: []string{"/", "/app.js"}})
	require.NoError(t, err)
	require.Equal(t, 2, stored)
	require.Equal(t, 2, cache.Len())

	root, err := cache.GetCachedResponse(context.Background(), "/", "v1")
	require.NoError(t, err)
	require.NotNil(t, root)
	require.Equal(t, "asset:/", string(root.Body))

	_, err = gw.Precache(context.Background(), &Manifest{Assets: []string{"/missing.js"}})
	require.Error(t, err)
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "precache.yaml")
	require.NoError(t, os.WriteFile(path, []byte("assets:\n  - /\n  - /app.js\n"), 0o644))

	manifest, err := LoadManifest(path)
	require.NoError(t, err)
	require.Equal(t, []string{"/", "/app.js"}, manifest.Assets)

	require.NoError(t, os.WriteFile(path, []byte("assets:\n  - app.js\n"), 0o644))
	_, err = LoadManifest(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "absolute path")
}

func TestMemoryCacheLastWriteWins(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, cache.PutCachedResponse(ctx, &core.CachedResponse{Key: "/x", Generation: "v1", Body: []byte("old"), FetchedAt: time.Now()}))
	require.NoError(t, cache.PutCachedResponse(ctx, &core.CachedResponse{Key: "/x", Generation: "v1", Body: []byte("new"), FetchedAt: time.Now()}))

	got, err := cache.GetCachedResponse(ctx, "/x", "v1")
	require.NoError(t, err)
	require.Equal(t, "new", string(got.Body))
}
