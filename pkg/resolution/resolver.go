package resolution

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/peergraph/pkg/errors"
	"github.com/matzehuels/peergraph/pkg/observability"
	"github.com/matzehuels/peergraph/pkg/pkgid"
	"github.com/matzehuels/peergraph/pkg/registry"
)

// DefaultMaxNodes bounds the size of a graph before resolution gives up.
const DefaultMaxNodes = 200_000

// Options configures a [Resolver].
type Options struct {
	Logger   *log.Logger // Debug tracing (default: discard)
	MaxNodes int         // Maximum graph nodes (default: 200000)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}
	return opts
}

type deferredPeer struct {
	specifier string
	path      *GraphPath
}

// Resolver grows a [Graph] from root requirements.
type Resolver struct {
	graph    *Graph
	registry registry.Registry
	entries  *entryCache
	pending  []*GraphPath
	// deferred holds unresolved optional peers keyed by the version that
	// declared them.
	deferred map[pkgid.NV][]deferredPeer
	opts     Options
}

// NewResolver creates a resolver that adds to g. g may be empty or
// rebuilt from a snapshot.
func NewResolver(g *Graph, reg registry.Registry, opts Options) *Resolver {
	return &Resolver{
		graph:    g,
		registry: reg,
		entries:  newEntryCache(),
		deferred: make(map[pkgid.NV][]deferredPeer),
		opts:     opts.WithDefaults(),
	}
}

// Resolve adds every requirement in order and then drains the pending
// queue.
func (r *Resolver) Resolve(ctx context.Context, reqs []pkgid.Req) (err error) {
	start := time.Now()
	observability.Resolve().OnResolveStart(ctx, len(reqs))
	defer func() {
		observability.Resolve().OnResolveComplete(ctx, r.graph.Len(), time.Since(start), err)
	}()

	names := make([]string, len(reqs))
	for i, req := range reqs {
		names[i] = req.Name
	}
	r.prefetch(ctx, names)

	for _, req := range reqs {
		info, err := r.registry.PackageInfo(ctx, req.Name)
		if err != nil {
			return wrapf(err, "resolve %s", req)
		}
		if err := r.AddRequirement(ctx, req, info); err != nil {
			return err
		}
	}
	return r.ResolvePending(ctx)
}

// AddRequirement resolves req against info and records it as a root.
// Requirements already in the graph are skipped.
func (r *Resolver) AddRequirement(ctx context.Context, req pkgid.Req, info *registry.PackageInfo) error {
	g := r.graph
	key := req.String()
	if _, ok := g.reqs[key]; ok {
		return nil
	}

	vi, err := registry.BestVersion(info, req.Range, g.existingVersions(req.Name))
	if err != nil {
		return wrapf(err, "resolve %s", key)
	}
	nv := pkgid.NV{Name: req.Name, Version: vi.Version}

	if n, ok := g.roots[nv]; ok {
		g.setRoot(key, nv, n)
		return nil
	}
	_, n := g.getOrCreateForIdentity(identity{nv: nv})
	g.setRoot(key, nv, n)
	r.pending = append(r.pending, forRoot(g.nextPathSeq(), n, nv))
	r.opts.Logger.Debug("added requirement", "req", key, "version", nv)
	return nil
}

// ResolvePending processes queued paths until none remain.
func (r *Resolver) ResolvePending(ctx context.Context) error {
	for len(r.pending) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := r.pending[0]
		r.pending[0] = nil
		r.pending = r.pending[1:]

		// Subtrees already proven peer-free cannot change.
		if r.graph.nodes[path.node].noPeers {
			continue
		}
		if r.graph.Len() > r.opts.MaxNodes {
			return errors.New(errors.ErrCodeInvalidInput,
				"resolution exceeded %d packages", r.opts.MaxNodes)
		}
		if err := r.visit(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) visit(ctx context.Context, path *GraphPath) error {
	g := r.graph
	nv := path.nv
	entries, err := r.entriesFor(ctx, nv)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name
		}
		r.prefetch(ctx, names)
	}
	r.opts.Logger.Debug("visit", "path", path, "entries", len(entries))

	foundPeer := false
	for _, e := range entries {
		switch e.Kind {
		case registry.KindDep:
			child, ok, err := r.analyzeDependency(ctx, e, path)
			if err != nil {
				return err
			}
			if ok && !g.nodes[child].noPeers {
				foundPeer = true
			}
		case registry.KindPeer, registry.KindOptionalPeer:
			foundPeer = true
			target, ok, err := r.resolvePeer(ctx, e, path)
			if err != nil {
				return err
			}
			if e.Kind == registry.KindOptionalPeer {
				if ok {
					r.catchUpOptionalPeers(nv, e.Specifier, target)
				} else {
					r.deferOptionalPeer(nv, e.Specifier, path)
				}
			}
		}
	}

	if !foundPeer {
		g.nodes[path.node].noPeers = true
	}
	return nil
}

func (r *Resolver) entriesFor(ctx context.Context, nv pkgid.NV) ([]registry.DepEntry, error) {
	if entries, ok := r.entries.get(nv); ok {
		return entries, nil
	}
	info, err := r.registry.PackageInfo(ctx, nv.Name)
	if err != nil {
		return nil, wrapf(err, "fetch %s", nv)
	}
	vi, ok := info.Version(nv.Version)
	if !ok {
		return nil, errors.New(errors.ErrCodeVersionNotFound, "%s is not published", nv)
	}
	return r.entries.store(nv, vi)
}

// prefetch warms the registry for names. Failures only cost latency.
func (r *Resolver) prefetch(ctx context.Context, names []string) {
	if err := r.registry.Prefetch(ctx, names); err != nil {
		r.opts.Logger.Debug("prefetch failed", "err", err)
	}
}

// analyzeDependency links a regular dependency below parent. ok is false
// when the dependency was a self reference and got dropped.
func (r *Resolver) analyzeDependency(ctx context.Context, e registry.DepEntry, parent *GraphPath) (NodeID, bool, error) {
	g := r.graph
	if child, ok := g.nodes[parent.node].children[e.Specifier]; ok {
		r.tryAddPending(parent, child, e.Specifier)
		return child, true, nil
	}

	nv, err := r.bestVersion(ctx, e.Name, e.Range)
	if err != nil {
		return 0, false, wrapf(err, "%s: dependency %s@%s", parent.nv, e.Specifier, e.Range)
	}
	if nv == parent.nv {
		r.opts.Logger.Debug("ignoring self dependency", "package", parent.nv)
		return 0, false, nil
	}

	_, child := g.getOrCreateForIdentity(identity{nv: nv})
	g.setChild(e.Specifier, child, parent.node)
	r.tryAddPending(parent, child, e.Specifier)
	return child, true, nil
}

func (r *Resolver) bestVersion(ctx context.Context, name, rng string) (pkgid.NV, error) {
	info, err := r.registry.PackageInfo(ctx, name)
	if err != nil {
		return pkgid.NV{}, err
	}
	vi, err := registry.BestVersion(info, rng, r.graph.existingVersions(name))
	if err != nil {
		return pkgid.NV{}, err
	}
	return pkgid.NV{Name: name, Version: vi.Version}, nil
}

// tryAddPending queues child below path unless it is peer-free or already
// on the path.
func (r *Resolver) tryAddPending(path *GraphPath, child NodeID, specifier string) {
	g := r.graph
	if g.nodes[child].noPeers {
		return
	}
	next := path.withID(g.nextPathSeq(), child, specifier, g.nv(child))
	if next == nil {
		r.opts.Logger.Debug("cycle", "path", path, "child", g.nv(child))
		return
	}
	r.pending = append(r.pending, next)
}

func (r *Resolver) deferOptionalPeer(nv pkgid.NV, specifier string, path *GraphPath) {
	r.opts.Logger.Debug("deferring optional peer", "path", path, "peer", specifier)
	observability.Resolve().OnPeerResolved(context.Background(), "deferred")
	r.deferred[nv] = append(r.deferred[nv], deferredPeer{specifier: specifier, path: path})
}

// catchUpOptionalPeers binds target into every earlier occurrence of nv
// that had to leave the same optional peer unresolved.
func (r *Resolver) catchUpOptionalPeers(nv pkgid.NV, specifier string, target NodeID) {
	waiting := r.deferred[nv]
	if len(waiting) == 0 {
		return
	}
	var keep []deferredPeer
	targetNV := r.graph.nv(target)
	for _, d := range waiting {
		if d.specifier != specifier {
			keep = append(keep, d)
			continue
		}
		r.opts.Logger.Debug("resolved deferred optional peer", "path", d.path, "peer", targetNV)
		r.setNewPeerDep([]*GraphPath{d.path}, pathBinding(d.path, specifier, targetNV), specifier, target)
	}
	if len(keep) == 0 {
		delete(r.deferred, nv)
	} else {
		r.deferred[nv] = keep
	}
}

// wrapf adds context to err while keeping its code.
func wrapf(err error, format string, args ...any) error {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	e := errors.Wrap(code, err, format, args...)
	e.Message += ": " + errors.UserMessage(err)
	return e
}
