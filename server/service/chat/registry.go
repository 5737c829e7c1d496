package chat

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	errs "github.com/parleyhq/parley/server/internal/errors"
	"github.com/parleyhq/parley/store"
)

// Registry resolves participant pairs to sessions. Resolution is
// deterministic: the same unordered user/agent pair always maps to the same
// session id, and concurrent get-or-create calls converge on one session.
type Registry struct {
	sessions SessionRepository
	group    singleflight.Group
}

// NewRegistry creates a registry backed by the given session repository.
func NewRegistry(sessions SessionRepository) *Registry {
	return &Registry{sessions: sessions}
}

// GetOrCreateSession returns the session for the pair, creating it if absent.
// Validation runs before any storage access. Concurrent calls for the same
// pair are collapsed in-process via singleflight; cross-process races are
// resolved by the pair-key unique constraint in the repository.
func (r *Registry) GetOrCreateSession(ctx context.Context, participants []store.Participant) (*store.Session, error) {
	user, agent, err := SplitParticipants(participants)
	if err != nil {
		return nil, err
	}

	pairKey := store.PairKey(user.ID, agent.ID)
	v, err, _ := r.group.Do(pairKey, func() (any, error) {
		existing, err := r.sessions.GetSessionByPairKey(ctx, pairKey)
		if err != nil {
			return nil, errs.System(fmt.Errorf("failed to look up session: %w", err))
		}
		if existing != nil {
			return existing, nil
		}

		now := time.Now().UnixMilli()
		created, err := r.sessions.CreateSession(ctx, &store.Session{
			ID:           store.DeriveSessionID(user.ID, agent.ID),
			PairKey:      pairKey,
			UserID:       user.ID,
			AgentID:      agent.ID,
			CreatedTs:    now,
			LastActiveTs: now,
		})
		if err != nil {
			return nil, errs.System(fmt.Errorf("failed to create session: %w", err))
		}
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*store.Session), nil
}

// FindSessionByParticipants returns the session for the pair, or nil when the
// pair has never conversed. Never creates.
func (r *Registry) FindSessionByParticipants(ctx context.Context, participants []store.Participant) (*store.Session, error) {
	user, agent, err := SplitParticipants(participants)
	if err != nil {
		return nil, err
	}
	session, err := r.sessions.GetSessionByPairKey(ctx, store.PairKey(user.ID, agent.ID))
	if err != nil {
		return nil, errs.System(fmt.Errorf("failed to look up session: %w", err))
	}
	return session, nil
}

// SessionByID returns the session with the given id, or nil when unknown.
func (r *Registry) SessionByID(ctx context.Context, sessionID string) (*store.Session, error) {
	if sessionID == "" {
		return nil, errs.Validation("session id is required")
	}
	session, err := r.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, errs.System(fmt.Errorf("failed to look up session: %w", err))
	}
	return session, nil
}

// SessionsByUser lists all sessions the user participates in, most recently
// active first.
func (r *Registry) SessionsByUser(ctx context.Context, userID string) ([]*store.Session, error) {
	if err := ValidateIdentifier("user id", userID); err != nil {
		return nil, err
	}
	sessions, err := r.sessions.ListSessionsByParticipant(ctx, userID)
	if err != nil {
		return nil, errs.System(fmt.Errorf("failed to list sessions: %w", err))
	}
	return sessions, nil
}

// UpdateSessionActivity advances the session's last-active timestamp.
// The timestamp never moves backwards.
func (r *Registry) UpdateSessionActivity(ctx context.Context, session *store.Session, ts int64) error {
	if err := r.sessions.TouchSession(ctx, session, ts); err != nil {
		return errs.System(fmt.Errorf("failed to update session activity: %w", err))
	}
	return nil
}
