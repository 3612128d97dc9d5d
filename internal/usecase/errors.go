package usecase

import crerr "github.com/cockroachdb/errors"

// Adapter failure taxonomy. Adapters return these wrapped with detail; the
// orchestrator matches on them to drive the fallback chain.
var (
	// ErrConfig marks missing credentials or an unsupported parameter.
	// Local, non-retryable: the adapter must fail before any network I/O.
	ErrConfig = crerr.New("source configuration error")
	// ErrUpstreamHTTP marks a non-2xx upstream response.
	ErrUpstreamHTTP = crerr.New("upstream http error")
	// ErrTimeout marks an adapter call that exceeded its budget.
	ErrTimeout = crerr.New("upstream timeout")
	// ErrParse marks a malformed payload. Scope is the offending record;
	// siblings in the same payload are still processed.
	ErrParse = crerr.New("payload parse error")
	// ErrDependencyUnavailable marks a circuit-breaker rejection.
	ErrDependencyUnavailable = crerr.New("dependency unavailable")
	// ErrInvalidInput marks a bad caller-supplied filter or parameter.
	ErrInvalidInput = crerr.New("invalid input")
)
