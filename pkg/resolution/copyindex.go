package resolution

import "github.com/matzehuels/peergraph/pkg/pkgid"

// CopyIndexResolver hands out copy indexes: small integers that tell apart
// the final ids sharing one package version. Indexes already assigned
// never change, so a snapshot written, read back and written again keeps
// them.
type CopyIndexResolver struct {
	byID map[string]int
	next map[pkgid.NV]int
}

// NewCopyIndexResolver creates a resolver with no assignments.
func NewCopyIndexResolver() *CopyIndexResolver {
	return &CopyIndexResolver{
		byID: make(map[string]int),
		next: make(map[pkgid.NV]int),
	}
}

// Seed records an index assigned earlier. Later assignments for the same
// version continue above the highest seeded index.
func (c *CopyIndexResolver) Seed(id pkgid.ID, index int) {
	c.byID[id.String()] = index
	if index >= c.next[id.NV] {
		c.next[id.NV] = index + 1
	}
}

// Resolve returns the index for id, assigning the next free one the first
// time id is seen.
func (c *CopyIndexResolver) Resolve(id pkgid.ID) int {
	key := id.String()
	if idx, ok := c.byID[key]; ok {
		return idx
	}
	idx := c.next[id.NV]
	c.next[id.NV] = idx + 1
	c.byID[key] = idx
	return idx
}
