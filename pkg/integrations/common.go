package integrations

import (
	"errors"
	"net/http"
	"time"

	"github.com/matzehuels/peergraph/pkg/cache"
)

const httpTimeout = 30 * time.Second

var (
	// ErrNotFound is returned when the registry has no such resource.
	ErrNotFound = cache.ErrNotFound

	// ErrNetwork is returned for transport failures, timeouts and 5xx
	// responses.
	ErrNetwork = cache.ErrNetwork

	// ErrRateLimited is returned for 429 responses.
	ErrRateLimited = errors.New("rate limited")
)

// NewHTTPClient creates an HTTP client with the standard registry timeout.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}
