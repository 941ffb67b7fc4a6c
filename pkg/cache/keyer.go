package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"strings"
)

// Keyer builds cache keys.
type Keyer interface {
	// HTTPKey keys a raw registry response.
	HTTPKey(namespace, key string) string

	// ResolutionKey keys a finished resolution of reqs.
	ResolutionKey(reqs []string, opts ResolutionKeyOpts) string
}

// ResolutionKeyOpts are the inputs besides the requirements that change a
// resolution result.
type ResolutionKeyOpts struct {
	Registry string `json:"registry"`
	// Base is the hash of the snapshot the resolution extended, if any.
	Base string `json:"base,omitempty"`
}

// DefaultKeyer is the standard key layout:
//
//	http:<namespace>:<key>
//	resolution:<sha256 of sorted reqs and opts>
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// HTTPKey implements [Keyer].
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// ResolutionKey implements [Keyer]. The order of reqs does not matter.
func (DefaultKeyer) ResolutionKey(reqs []string, opts ResolutionKeyOpts) string {
	sorted := slices.Clone(reqs)
	for i, r := range sorted {
		sorted[i] = strings.TrimSpace(r)
	}
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	return hashKey("resolution", sorted, opts)
}

// keyType returns the first segment of key, for metrics labels.
func keyType(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "other"
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return prefix + ":" + Hash(data)
}
