package webcache

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/leadgate/leadgate/internal/core"
	"github.com/leadgate/leadgate/internal/metrics"
	"github.com/leadgate/leadgate/internal/observability"
)

// hopHeaders are stripped in both directions when relaying.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Gateway fronts the dashboard origin and dispatches each request per
// the cache policy table. It is mounted as the catch-all route.
type Gateway struct {
	Origin       *url.URL
	Cache        Store
	Generation   string
	RootDocument string
	FontsHosts   []string
	HTTPClient   *http.Client
	Timeout      time.Duration
	Clock        func() time.Time
}

// NewGateway returns a gateway over the given origin and cache store.
func NewGateway(origin *url.URL, cache Store, generation string) *Gateway {
	return &Gateway{
		Origin:       origin,
		Cache:        cache,
		Generation:   generation,
		RootDocument: "/",
	}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	policy := PolicyFor(r, g.FontsHosts)

	switch policy {
	case PolicyPassThrough, PolicyNetworkOnly:
		g.serveNetwork(w, r)
	case PolicyNetworkFirst:
		g.serveNetworkFirst(w, r)
	default:
		g.serveCacheFirst(w, r, policy)
	}
}

// Activate purges every cache entry written under a different
// generation tag. Run once on startup after a version rollover.
func (g *Gateway) Activate(ctx context.Context) (int64, error) {
	if g.Cache == nil {
		return 0, nil
	}
	return g.Cache.PurgeOtherGenerations(ctx, g.Generation)
}

// serveNetwork forwards live and relays, never touching the cache.
func (g *Gateway) serveNetwork(w http.ResponseWriter, r *http.Request) {
	resp, err := g.forward(r)
	if err != nil {
		g.logForwardFailure(r, err)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}
	relayResponse(w, resp)
}

// serveNetworkFirst fetches live and falls back to the cached copy,
// then the cached root document. HTML navigations never see a raw
// network error.
func (g *Gateway) serveNetworkFirst(w http.ResponseWriter, r *http.Request) {
	resp, err := g.forward(r)
	if err == nil {
		if resp.StatusCode == http.StatusOK {
			g.storeResponse(r, resp)
		}
		relayResponse(w, resp)
		return
	}
	g.logForwardFailure(r, err)

	key := g.cacheKey(r)
	if cached := g.lookup(r.Context(), key); cached != nil {
		metrics.RecordCacheLookup(PolicyNetworkFirst.String(), true)
		serveCached(w, cached)
		return
	}
	metrics.RecordCacheLookup(PolicyNetworkFirst.String(), false)

	if key != g.RootDocument {
		if root := g.lookup(r.Context(), g.RootDocument); root != nil {
			serveCached(w, root)
			return
		}
	}

	http.Error(w, "upstream unavailable", http.StatusBadGateway)
}

// serveCacheFirst serves the stored copy when present; on miss it
// fetches, relays, and stores only responses with status exactly 200.
func (g *Gateway) serveCacheFirst(w http.ResponseWriter, r *http.Request, policy Policy) {
	key := g.cacheKey(r)
	if cached := g.lookup(r.Context(), key); cached != nil {
		metrics.RecordCacheLookup(policy.String(), true)
		serveCached(w, cached)
		return
	}
	metrics.RecordCacheLookup(policy.String(), false)

	resp, err := g.forward(r)
	if err != nil {
		g.logForwardFailure(r, err)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}

	if resp.StatusCode == http.StatusOK {
		g.storeResponse(r, resp)
	}
	relayResponse(w, resp)
}

// forwardedResponse is a fully buffered upstream response.
type forwardedResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (g *Gateway) forward(r *http.Request) (*forwardedResponse, error) {
	ctx := r.Context()
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	target := g.targetURL(r)
	req, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		return nil, err
	}

	req.Header = r.Header.Clone()
	for _, h := range hopHeaders {
		req.Header.Del(h)
	}

	client := g.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	header := resp.Header.Clone()
	for _, h := range hopHeaders {
		header.Del(h)
	}

	return &forwardedResponse{StatusCode: resp.StatusCode, Header: header, Body: body}, nil
}

// targetURL rewrites the incoming request onto the dashboard origin,
// except fonts-host requests which keep their own host over https.
func (g *Gateway) targetURL(r *http.Request) string {
	if isFontsHost(requestHost(r), g.FontsHosts) {
		u := url.URL{Scheme: "https", Host: requestHost(r), Path: r.URL.Path, RawQuery: r.URL.RawQuery}
		return u.String()
	}

	u := *g.Origin
	u.Path = strings.TrimRight(u.Path, "/") + r.URL.Path
	u.RawQuery = r.URL.RawQuery
	return u.String()
}

func (g *Gateway) cacheKey(r *http.Request) string {
	if isFontsHost(requestHost(r), g.FontsHosts) {
		return requestHost(r) + r.URL.Path
	}
	if r.URL.RawQuery != "" {
		return r.URL.Path + "?" + r.URL.RawQuery
	}
	return r.URL.Path
}

func (g *Gateway) lookup(ctx context.Context, key string) *core.CachedResponse {
	if g.Cache == nil {
		return nil
	}
	cached, err := g.Cache.GetCachedResponse(ctx, key, g.Generation)
	if err != nil {
		if observability.ServerLogger != nil {
			observability.ServerLogger.Warn("Cache lookup failed",
				zap.String("key", key),
				zap.Error(err))
		}
		return nil
	}
	return cached
}

func (g *Gateway) storeResponse(r *http.Request, resp *forwardedResponse) {
	if g.Cache == nil {
		return
	}

	entry := &core.CachedResponse{
		Key:        g.cacheKey(r),
		Generation: g.Generation,
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       append([]byte(nil), resp.Body...),
		FetchedAt:  g.now(),
	}

	if err := g.Cache.PutCachedResponse(r.Context(), entry); err != nil {
		if observability.ServerLogger != nil {
			observability.ServerLogger.Warn("Cache write failed",
				zap.String("key", entry.Key),
				zap.Error(err))
		}
	}
}

func (g *Gateway) logForwardFailure(r *http.Request, err error) {
	if observability.ServerLogger == nil {
		return
	}
	observability.ServerLogger.Warn("Origin fetch failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err))
}

func (g *Gateway) now() time.Time {
	if g.Clock != nil {
		return g.Clock()
	}
	return time.Now().UTC()
}

func relayResponse(w http.ResponseWriter, resp *forwardedResponse) {
	copyHeader(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

func serveCached(w http.ResponseWriter, cached *core.CachedResponse) {
	copyHeader(w.Header(), cached.Header)
	w.Header().Set("X-Cache", "hit")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}

func copyHeader(dst, src http.Header) {
	for k, values := range src {
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}
