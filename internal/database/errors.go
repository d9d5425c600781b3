package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/lib/pq"
)

// IsTransient reports whether a store error is worth retrying: connection
// drops, timeouts, and the Postgres connection-exception class. Constraint
// violations and other permanent errors return false.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08: connection exception; 57P03: cannot_connect_now
		return pqErr.Code.Class() == "08" || pqErr.Code == "57P03"
	}
	return false
}
