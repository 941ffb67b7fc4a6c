// Package integrations holds the HTTP plumbing shared by registry clients.
//
// [Client] wraps an [net/http.Client] with default headers, a
// User-Agent, retries for transient failures (5xx, 429, transport
// errors), response caching through a [cache.Cache], and the
// observability HTTP hooks. Registry-specific clients live in
// subpackages:
//
//   - [npm]: the npm registry, as a [registry.Source]
//
// [npm]: github.com/matzehuels/peergraph/pkg/integrations/npm
// [cache.Cache]: github.com/matzehuels/peergraph/pkg/cache.Cache
// [registry.Source]: github.com/matzehuels/peergraph/pkg/registry.Source
package integrations
