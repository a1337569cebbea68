package redis

// connErrorStrings contains string patterns used to identify connectivity
// related errors in Redis connections, distinguishing temporary
// connectivity issues (which trigger HealthError and a fail-closed deny)
// from operational errors like "NOSCRIPT" that are handled by reloading
// the script instead of failing over.
//
// Patterns are matched against the lowercase error message. Callers may
// override them via Config.ConnErrorStrings.
var connErrorStrings = []string{
	"connection refused",
	"connection timeout",
	"connection reset",
	"network is unreachable",
	"no such host",
	"timeout",
	"i/o timeout",
	"broken pipe",
	"connection pool exhausted",
}
