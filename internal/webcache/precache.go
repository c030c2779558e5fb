package webcache

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leadgate/leadgate/internal/core"
)

// Manifest lists the shell assets stored ahead of traffic so the
// dashboard loads even when the origin is unreachable.
type Manifest struct {
	Assets []string `yaml:"assets"`
}

// LoadManifest reads a shell-asset manifest from disk.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	for i, asset := range manifest.Assets {
		asset = strings.TrimSpace(asset)
		if asset == "" {
			return nil, fmt.Errorf("manifest asset %d is empty", i)
		}
		if !strings.HasPrefix(asset, "/") {
			return nil, fmt.Errorf("manifest asset %q must be an absolute path", asset)
		}
		manifest.Assets[i] = asset
	}

	return &manifest, nil
}

// Precache fetches every manifest asset from the origin and stores it
// under the current generation. A single failed asset aborts the run
// so a partial shell never masquerades as a complete one.
func (g *Gateway) Precache(ctx context.Context, manifest *Manifest) (int, error) {
	if g.Cache == nil {
		return 0, fmt.Errorf("no cache store configured")
	}
	if manifest == nil || len(manifest.Assets) == 0 {
		return 0, nil
	}

	stored := 0
	for _, asset := range manifest.Assets {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset, nil)
		if err != nil {
			return stored, fmt.Errorf("build request for %s: %w", asset, err)
		}

		resp, err := g.forward(req)
		if err != nil {
			return stored, fmt.Errorf("fetch %s: %w", asset, err)
		}
		if resp.StatusCode != http.StatusOK {
			return stored, fmt.Errorf("fetch %s: origin returned status %d", asset, resp.StatusCode)
		}

		entry := &core.CachedResponse{
			Key:        asset,
			Generation: g.Generation,
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       resp.Body,
			FetchedAt:  g.now(),
		}
		if err := g.Cache.PutCachedResponse(ctx, entry); err != nil {
			return stored, fmt.Errorf("store %s: %w", asset, err)
		}
		stored++
	}

	return stored, nil
}
