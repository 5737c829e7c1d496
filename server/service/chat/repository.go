// Package chat implements the conversation pipeline: session resolution,
// the append-only event log, message dispatch with detached reply
// generation, and the poll/history read surfaces.
package chat

import (
	"context"

	"github.com/parleyhq/parley/store"
)

// SessionRepository is the persistence contract for sessions. The production
// implementation is *store.Store; tests inject an in-memory arena.
type SessionRepository interface {
	// CreateSession persists a session and must resolve pair-key conflicts
	// to the already-persisted row (create-or-fetch-on-conflict).
	CreateSession(ctx context.Context, create *store.Session) (*store.Session, error)
	GetSessionByPairKey(ctx context.Context, pairKey string) (*store.Session, error)
	GetSession(ctx context.Context, id string) (*store.Session, error)
	ListSessionsByParticipant(ctx context.Context, participantID string) ([]*store.Session, error)
	TouchSession(ctx context.Context, session *store.Session, ts int64) error
}

// EventRepository is the persistence contract for the append-only event log.
type EventRepository interface {
	CreateEvent(ctx context.Context, create *store.Event) (*store.Event, error)
	ListEvents(ctx context.Context, find *store.FindEvent) ([]*store.Event, error)
	MaxEventTimestamp(ctx context.Context, sessionID string) (int64, error)
}

var (
	_ SessionRepository = (*store.Store)(nil)
	_ EventRepository   = (*store.Store)(nil)
)
