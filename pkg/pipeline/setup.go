package pipeline

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/peergraph/pkg/cache"
	"github.com/matzehuels/peergraph/pkg/config"
	"github.com/matzehuels/peergraph/pkg/integrations/npm"
	"github.com/matzehuels/peergraph/pkg/registry"
)

// ResolverVersion scopes cached resolutions. Bump it whenever the resolver
// would produce a different snapshot for the same input.
const ResolverVersion = "1"

// SetupOptions are the per-invocation switches layered on a [config.Config].
type SetupOptions struct {
	NoCache bool // use no persistent cache
	Refresh bool // ignore cached registry responses
	Logger  *log.Logger
}

// OpenCache opens the backend named by cfg, instrumented with the
// registered cache hooks. disabled or BackendNone yield a NullCache.
func OpenCache(ctx context.Context, cfg config.CacheConfig, disabled bool) (cache.Cache, error) {
	var (
		c   cache.Cache
		err error
	)
	switch {
	case disabled || cfg.Backend == config.BackendNone:
		c = cache.NewNullCache()
	case cfg.Backend == config.BackendRedis:
		c, err = cache.NewRedisCache(ctx, cfg.RedisURL, "peergraph:")
	default:
		c, err = cache.NewFileCache(cfg.Dir)
	}
	if err != nil {
		return nil, err
	}
	return cache.Instrument(c), nil
}

// NewRegistry builds the npm-backed registry client described by cfg.
func NewRegistry(cfg *config.Config, c cache.Cache, refresh bool) (*registry.Client, error) {
	source := npm.NewClient(npm.Options{
		BaseURL: cfg.RegistryURL,
		Cache:   c,
		TTL:     cfg.Cache.TTL.Duration,
		Refresh: refresh,
	})
	return registry.NewClient(source, registry.Options{Concurrency: cfg.Resolve.Concurrency})
}

// FromConfig wires cache, registry and runner from cfg.
// The caller owns the runner and must Close it.
func FromConfig(ctx context.Context, cfg *config.Config, opts SetupOptions) (*Runner, error) {
	c, err := OpenCache(ctx, cfg.Cache, opts.NoCache)
	if err != nil {
		return nil, err
	}
	reg, err := NewRegistry(cfg, c, opts.Refresh)
	if err != nil {
		c.Close()
		return nil, err
	}
	keyer := cache.NewScopedKeyer(nil, "r"+ResolverVersion+":")
	return NewRunner(c, keyer, reg, cfg.RegistryURL, opts.Logger), nil
}
