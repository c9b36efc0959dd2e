package dbx

import (
	"database/sql"
	"time"
)

// Timestamps are stored as unix nanoseconds so the same schema works on
// every supported dialect.

func Nanos(t time.Time) int64 {
	return t.UnixNano()
}

func FromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func NullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func FromNullNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := FromNanos(n.Int64)
	return &t
}

// NullString maps the empty string to SQL NULL.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
