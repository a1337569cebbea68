package postgres

// connErrorStrings contains string patterns used to identify connectivity
// related errors in PostgreSQL connections, distinguishing temporary
// connectivity issues from operational errors like constraint violations
// or serialization failures. Matched against the lowercase error message.
// Callers may override via Config.ConnErrorStrings.
var connErrorStrings = []string{
	"connection refused",
	"connection timeout",
	"connection reset",
	"network is unreachable",
	"no such host",
	"i/o timeout",
	"broken pipe",
	"pool exhausted",
	"too many connections",
	"database is locked",
	"terminating connection",
}
