// Package attempts persists failed login attempts per username.
package attempts

import (
	"context"
	"time"
)

type Repository interface {
	Record(ctx context.Context, username string, at time.Time) error
	CountSince(ctx context.Context, username string, since time.Time) (int, error)
	Clear(ctx context.Context, username string) error
	PruneBefore(ctx context.Context, before time.Time) (int64, error)
}
