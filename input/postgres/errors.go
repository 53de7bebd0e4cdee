package postgres

import (
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// SQLSTATE codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	diskFullErrorCode      = "53100"
	queryCanceledErrorCode = "57014"
)

// IsDiskFull reports whether err was caused by the server running out of disk space
func IsDiskFull(err error) bool {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return pqErr.Code == diskFullErrorCode
	}
	return false
}

// IsStatementTimeout reports whether err was caused by statement_timeout
// (or another cancellation) ending the statement
func IsStatementTimeout(err error) bool {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return pqErr.Code == queryCanceledErrorCode
	}
	return false
}
