package npm

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/matzehuels/peergraph/pkg/cache"
	"github.com/matzehuels/peergraph/pkg/errors"
	"github.com/matzehuels/peergraph/pkg/integrations"
	"github.com/matzehuels/peergraph/pkg/registry"
)

// DefaultRegistry is the public npm registry.
const DefaultRegistry = "https://registry.npmjs.org"

const corgiAccept = "application/vnd.npm.install-v1+json; q=1.0, application/json; q=0.8, */*"

// Options configures a [Client].
type Options struct {
	BaseURL string        // Registry URL (default: DefaultRegistry)
	Cache   cache.Cache   // Response cache (default: none)
	TTL     time.Duration // Cache TTL (default: cache.HTTPTTL)
	Refresh bool          // Ignore cached responses
}

// Client fetches packuments over HTTP.
type Client struct {
	*integrations.Client
	baseURL string
	refresh bool
}

// NewClient creates a client for the registry in opts.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultRegistry
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = cache.HTTPTTL
	}
	headers := map[string]string{"Accept": corgiAccept}
	return &Client{
		Client:  integrations.NewClient(opts.Cache, "npm:"+base, ttl, headers),
		baseURL: base,
		refresh: opts.Refresh,
	}
}

// BaseURL returns the registry URL.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchPackageInfo implements [registry.Source].
func (c *Client) FetchPackageInfo(ctx context.Context, name string) (*registry.PackageInfo, error) {
	if err := errors.ValidateNpmPackageName(name, true); err != nil {
		return nil, err
	}

	var info registry.PackageInfo
	err := c.Cached(ctx, name, c.refresh, &info, func() error {
		return c.Get(ctx, c.baseURL+"/"+EscapeName(name), &info)
	})
	if err != nil {
		return nil, classify(ctx, name, err)
	}
	if info.Name == "" {
		info.Name = name
	}
	for v, vi := range info.Versions {
		if vi == nil {
			delete(info.Versions, v)
			continue
		}
		if vi.Version == "" {
			vi.Version = v
		}
	}
	return &info, nil
}

// EscapeName returns name as it appears in a registry URL path.
func EscapeName(name string) string {
	return strings.Replace(name, "/", "%2f", 1)
}

func classify(ctx context.Context, name string, err error) error {
	switch {
	case stderrors.Is(err, integrations.ErrNotFound):
		return errors.Wrap(errors.ErrCodePackageNotFound, err, "package %s not found", name)
	case stderrors.Is(err, integrations.ErrRateLimited):
		return errors.Wrap(errors.ErrCodeRateLimited, err, "registry rate limit while fetching %s", name)
	case stderrors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil:
		return errors.Wrap(errors.ErrCodeTimeout, err, "fetching %s timed out", name)
	default:
		return errors.Wrap(errors.ErrCodeNetwork, err, "fetch %s", name)
	}
}

var _ registry.Source = (*Client)(nil)
