package registry

import (
	"context"
	"fmt"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/peergraph/pkg/observability"
)

const (
	defaultCacheSize   = 4096
	defaultConcurrency = 16
)

// Options configures a [Client].
type Options struct {
	// CacheSize bounds the number of package documents kept in memory.
	CacheSize int
	// Concurrency bounds parallel fetches during Prefetch.
	Concurrency int
}

// WithDefaults returns a copy of o with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	if o.CacheSize <= 0 {
		o.CacheSize = defaultCacheSize
	}
	if o.Concurrency <= 0 {
		o.Concurrency = defaultConcurrency
	}
	return o
}

// Client is the resolver-facing [Registry]. It memoizes package documents
// from a [Source] in an LRU and collapses concurrent lookups of the same
// name into one fetch.
type Client struct {
	source Source
	cache  *lru.Cache[string, *PackageInfo]
	group  singleflight.Group
	opts   Options
}

// NewClient wraps source.
func NewClient(source Source, opts Options) (*Client, error) {
	opts = opts.WithDefaults()
	cache, err := lru.New[string, *PackageInfo](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("registry cache: %w", err)
	}
	return &Client{source: source, cache: cache, opts: opts}, nil
}

// PackageInfo returns the metadata for name.
func (c *Client) PackageInfo(ctx context.Context, name string) (*PackageInfo, error) {
	if info, ok := c.cache.Get(name); ok {
		observability.Resolve().OnPackageFetched(ctx, name, true, 0, nil)
		return info, nil
	}

	start := time.Now()
	v, err, _ := c.group.Do(name, func() (any, error) {
		// Double-check inside the flight
		if info, ok := c.cache.Get(name); ok {
			return info, nil
		}
		info, err := c.source.FetchPackageInfo(ctx, name)
		if err != nil {
			return nil, err
		}
		c.cache.Add(name, info)
		return info, nil
	})
	observability.Resolve().OnPackageFetched(ctx, name, false, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	info, ok := v.(*PackageInfo)
	if !ok {
		return nil, fmt.Errorf("unexpected type from registry flight: got %T", v)
	}
	return info, nil
}

// Prefetch fetches every name not yet cached, in parallel. The first
// error is returned once all fetches finish.
func (c *Client) Prefetch(ctx context.Context, names []string) error {
	missing := make([]string, 0, len(names))
	for _, n := range names {
		if !c.cache.Contains(n) {
			missing = append(missing, n)
		}
	}
	slices.Sort(missing)
	missing = slices.Compact(missing)
	if len(missing) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for _, name := range missing {
		g.Go(func() error {
			_, err := c.PackageInfo(gctx, name)
			return err
		})
	}
	return g.Wait()
}

// Purge drops every cached document.
func (c *Client) Purge() { c.cache.Purge() }

var _ Registry = (*Client)(nil)
