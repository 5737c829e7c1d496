package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Session model related methods.
	//
	// CreateSession must be atomic under concurrent first contact: the pair
	// key carries a unique constraint and create-on-conflict returns the
	// already-persisted row instead of failing or duplicating.
	CreateSession(ctx context.Context, create *Session) (*Session, error)
	ListSessions(ctx context.Context, find *FindSession) ([]*Session, error)
	UpdateSessionActivity(ctx context.Context, update *UpdateSessionActivity) error

	// Event model related methods. Events are append-only; there is no
	// update or delete.
	CreateEvent(ctx context.Context, create *Event) (*Event, error)
	ListEvents(ctx context.Context, find *FindEvent) ([]*Event, error)
	MaxEventTimestamp(ctx context.Context, sessionID string) (int64, error)
}
