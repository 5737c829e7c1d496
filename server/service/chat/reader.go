package chat

import (
	"context"

	errs "github.com/parleyhq/parley/server/internal/errors"
	"github.com/parleyhq/parley/store"
)

// PollResult is a poll read: the events after the client's cursor, in log
// order. Polling is read-only and idempotent.
type PollResult struct {
	HasNew bool
	Events []*store.Event
}

// HistoryResult is a full-history read. Session is nil when the pair has
// never conversed; Events is never nil.
type HistoryResult struct {
	Session *store.Session
	Events  []*store.Event
}

// Reader serves the poll and history surfaces over the event log.
type Reader struct {
	registry *Registry
	log      *EventLog
}

// NewReader creates a reader.
func NewReader(registry *Registry, log *EventLog) *Reader {
	return &Reader{registry: registry, log: log}
}

// CheckNew returns events appended after lastEventID. Unknown sessions are
// NOT_FOUND; sessions the caller does not participate in are
// PERMISSION_DENIED. lastEventID zero means "from the beginning".
func (r *Reader) CheckNew(ctx context.Context, callerID, sessionID string, lastEventID int64) (*PollResult, error) {
	if lastEventID < 0 {
		return nil, errs.Validation("lastEventId must not be negative")
	}
	session, err := r.registry.SessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errs.NotFound("session not found")
	}
	if session.UserID != callerID && session.AgentID != callerID {
		return nil, errs.PermissionDenied("caller is not a participant of this session")
	}

	events, err := r.log.ReadSince(ctx, sessionID, lastEventID)
	if err != nil {
		return nil, err
	}
	return &PollResult{HasNew: len(events) > 0, Events: events}, nil
}

// History returns the full log between the caller and the agent. A pair that
// has never conversed yields a nil session and an empty log; that is a
// normal outcome, not an error.
func (r *Reader) History(ctx context.Context, userID, agentID string) (*HistoryResult, error) {
	session, err := r.registry.FindSessionByParticipants(ctx, []store.Participant{
		{Kind: store.ParticipantKindUser, ID: userID},
		{Kind: store.ParticipantKindAgent, ID: agentID},
	})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return &HistoryResult{Events: []*store.Event{}}, nil
	}

	events, err := r.log.ReadAll(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []*store.Event{}
	}
	return &HistoryResult{Session: session, Events: events}, nil
}

// Sessions lists the caller's sessions, most recently active first.
func (r *Reader) Sessions(ctx context.Context, userID string) ([]*store.Session, error) {
	sessions, err := r.registry.SessionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}
	return sessions, nil
}
