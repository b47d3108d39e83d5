package kvstore

import (
	"regexp"
	"strings"

	"github.com/lib/pq"

	"github.com/goliatone/kvengine/kverrors"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// resolveSQLiteDSN inspects a caller-supplied location and returns the DSN
// mattn/go-sqlite3 should open, or an error. A bare filesystem path and a
// "sqlite://"/"file://" URI both resolve to SQLite; anything shaped like a
// PostgreSQL DSN is rejected with kverrors.UnsupportedBackend, mirroring
// the reference facade's NotImplementedError branch for backends this
// engine does not implement.
func resolveSQLiteDSN(location string) (string, error) {
	switch {
	case strings.HasPrefix(location, "postgres://"), strings.HasPrefix(location, "postgresql://"):
		// pq.ParseURL validates the DSN shape before we reject it, so a
		// malformed postgres:// URL still surfaces as a clear error
		// rather than being silently handed to the sqlite driver.
		if _, err := pq.ParseURL(location); err != nil {
			return "", kverrors.Configuration("location", "malformed postgres DSN: "+err.Error())
		}
		return "", kverrors.UnsupportedBackend("postgres")
	case strings.HasPrefix(location, "sqlite://"):
		return strings.TrimPrefix(location, "sqlite://"), nil
	case strings.HasPrefix(location, "file://"):
		return strings.TrimPrefix(location, "file://"), nil
	default:
		return location, nil
	}
}
