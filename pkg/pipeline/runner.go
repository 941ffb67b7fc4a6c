package pipeline

import (
	"bytes"
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/peergraph/pkg/cache"
	peerio "github.com/matzehuels/peergraph/pkg/io"
	"github.com/matzehuels/peergraph/pkg/registry"
	"github.com/matzehuels/peergraph/pkg/resolution"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it so resolution and caching behave the same.
//
// The Runner holds no per-run state. Multiple goroutines can share one
// Runner; each Resolve builds its own graph.
type Runner struct {
	Cache       cache.Cache
	Keyer       cache.Keyer
	Registry    registry.Registry
	RegistryURL string
	Logger      *log.Logger
}

// NewRunner creates a runner resolving against reg.
// If keyer is nil, a DefaultKeyer is used.
// If c is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, reg registry.Registry, registryURL string, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:       c,
		Keyer:       keyer,
		Registry:    reg,
		RegistryURL: registryURL,
		Logger:      logger,
	}
}

// Resolve resolves opts.Requirements, on top of opts.Base when set.
// A cached result for the same inputs is returned unless opts.Refresh.
func (r *Runner) Resolve(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForResolve(); err != nil {
		return nil, err
	}

	start := time.Now()
	key, err := r.resolutionKey(opts)
	if err != nil {
		return nil, err
	}

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			snap, err := peerio.ReadJSON(bytes.NewReader(data))
			if err == nil {
				opts.Logger.Debug("resolution cache hit", "key", key)
				return r.result(snap, data, time.Since(start), true), nil
			}
			// unreadable entries are recomputed
		}
	}

	g := resolution.NewGraph()
	if opts.Base != nil {
		if g, err = resolution.FromSnapshot(opts.Base); err != nil {
			return nil, err
		}
	}
	res := resolution.NewResolver(g, r.Registry, resolution.Options{
		Logger:   opts.Logger,
		MaxNodes: opts.MaxNodes,
	})
	if err := res.Resolve(ctx, opts.ParsedRequirements()); err != nil {
		return nil, err
	}
	snap, err := g.IntoSnapshot(ctx, r.Registry)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := peerio.WriteJSON(snap, &buf); err != nil {
		return nil, err
	}
	if err := r.Cache.Set(ctx, key, buf.Bytes(), cache.ResolutionTTL); err != nil {
		opts.Logger.Warn("cache resolution", "error", err)
	}

	result := r.result(snap, buf.Bytes(), time.Since(start), false)
	opts.Logger.Info("resolved", "packages", result.Stats.Packages, "roots", result.Stats.Roots,
		"duration", result.Stats.ResolveTime.Round(time.Millisecond))
	return result, nil
}

func (r *Runner) resolutionKey(opts Options) (string, error) {
	keyOpts := cache.ResolutionKeyOpts{Registry: r.RegistryURL}
	if opts.Base != nil {
		var buf bytes.Buffer
		if err := peerio.WriteJSON(opts.Base, &buf); err != nil {
			return "", err
		}
		keyOpts.Base = cache.Hash(buf.Bytes())
	}
	return r.Keyer.ResolutionKey(opts.Requirements, keyOpts), nil
}

func (r *Runner) result(snap *resolution.Snapshot, data []byte, d time.Duration, hit bool) *Result {
	return &Result{
		Snapshot: snap,
		Hash:     cache.Hash(data),
		Stats: Stats{
			Packages:    snap.Len(),
			Roots:       len(snap.Roots),
			ResolveTime: d,
		},
		CacheInfo: CacheInfo{ResolveHit: hit},
	}
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
