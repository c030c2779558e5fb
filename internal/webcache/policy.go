package webcache

import (
	"net/http"
	"strings"
)

// Policy selects how the gateway dispatches one request.
type Policy string

const (
	// PolicyPassThrough forwards the request untouched, no cache reads
	// or writes.
	PolicyPassThrough Policy = "pass_through"
	// PolicyNetworkOnly always fetches live and never stores the
	// response.
	PolicyNetworkOnly Policy = "network_only"
	// PolicyNetworkFirst fetches live, falling back to cached content
	// and finally the cached root document.
	PolicyNetworkFirst Policy = "network_first"
	// PolicyCacheFirst serves the cached copy when present and fills
	// the cache on miss.
	PolicyCacheFirst Policy = "cache_first"
)

func (p Policy) String() string { return string(p) }

// PolicyFor evaluates the dispatch table for one request. Order
// matters: method, then font hosts, then the API prefix, then HTML
// negotiation, then the default.
func PolicyFor(r *http.Request, fontsHosts []string) Policy {
	if r.Method != http.MethodGet {
		return PolicyPassThrough
	}

	if isFontsHost(requestHost(r), fontsHosts) {
		return PolicyCacheFirst
	}

	if strings.HasPrefix(r.URL.Path, "/api/") {
		return PolicyNetworkOnly
	}

	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		return PolicyNetworkFirst
	}

	return PolicyCacheFirst
}

// requestHost resolves the host a request targets, preferring the URL
// host for absolute-form requests over the Host header.
func requestHost(r *http.Request) string {
	if r.URL != nil && r.URL.Host != "" {
		return r.URL.Host
	}
	return r.Host
}

func isFontsHost(host string, fontsHosts []string) bool {
	host = strings.ToLower(stripPort(host))
	for _, candidate := range fontsHosts {
		if host == strings.ToLower(strings.TrimSpace(candidate)) {
			return true
		}
	}
	return false
}

func stripPort(host string) string {
	if idx := strings.LastIndex(host, ":"); idx > 0 && !strings.Contains(host[idx:], "]") {
		return host[:idx]
	}
	return host
}
