package resolution

import (
	"fmt"

	"github.com/matzehuels/peergraph/pkg/pkgid"
	"github.com/matzehuels/peergraph/pkg/registry"
)

// entryCache memoizes the sorted dependency entries of each version.
type entryCache struct {
	entries map[pkgid.NV][]registry.DepEntry
}

func newEntryCache() *entryCache {
	return &entryCache{entries: make(map[pkgid.NV][]registry.DepEntry)}
}

// store parses the entries of manifest once. Storing the same version
// twice is a programming error.
func (c *entryCache) store(nv pkgid.NV, manifest *registry.VersionInfo) ([]registry.DepEntry, error) {
	if _, ok := c.entries[nv]; ok {
		panic(fmt.Sprintf("resolution: dependency entries for %s stored twice", nv))
	}
	entries, err := registry.Entries(nv, manifest)
	if err != nil {
		return nil, err
	}
	c.entries[nv] = entries
	return entries, nil
}

func (c *entryCache) get(nv pkgid.NV) ([]registry.DepEntry, bool) {
	e, ok := c.entries[nv]
	return e, ok
}
