package cache

// ScopedKeyer prefixes every key of another Keyer. The pipeline scopes
// resolution keys by resolver version with it.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "r1:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer means
// [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// HTTPKey implements [Keyer].
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// ResolutionKey implements [Keyer].
func (k *ScopedKeyer) ResolutionKey(reqs []string, opts ResolutionKeyOpts) string {
	return k.prefix + k.inner.ResolutionKey(reqs, opts)
}
