package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/parleyhq/parley/internal/profile"
	"github.com/parleyhq/parley/store/cache"
)

const (
	sessionCachePrefix = "session:pair:"
	sessionCacheTTL    = 30 * time.Minute
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	l1           *cache.Service
	sessionCache cache.CacheService
}

// New creates a new instance of Store with an in-memory session cache.
func New(driver Driver, profile *profile.Profile) *Store {
	l1 := cache.NewService(cache.DefaultServiceConfig())
	return &Store{
		driver:       driver,
		profile:      profile,
		l1:           l1,
		sessionCache: cache.NewTieredCache(l1, nil),
	}
}

// EnableSharedCache layers a shared L2 cache (redis) under the in-memory
// tier. Call during startup, before the store is handed to services.
func (s *Store) EnableSharedCache(l2 cache.CacheService) {
	s.sessionCache = cache.NewTieredCache(s.l1, l2)
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	s.l1.Close()
	return s.driver.Close()
}

// CreateSession persists a session. On a pair-key conflict the driver returns
// the row that won the race, so the result is always the canonical session.
func (s *Store) CreateSession(ctx context.Context, create *Session) (*Session, error) {
	session, err := s.driver.CreateSession(ctx, create)
	if err != nil {
		return nil, err
	}
	s.cacheSession(ctx, session)
	return session, nil
}

// GetSessionByPairKey finds the session for a canonical pair key.
// Returns nil, nil when the pair has never talked.
func (s *Store) GetSessionByPairKey(ctx context.Context, pairKey string) (*Session, error) {
	if cached := s.cachedSession(ctx, pairKey); cached != nil {
		return cached, nil
	}

	list, err := s.driver.ListSessions(ctx, &FindSession{PairKey: &pairKey})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	s.cacheSession(ctx, list[0])
	return list[0], nil
}

// GetSession finds a session by ID. Returns nil, nil when absent.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	list, err := s.driver.ListSessions(ctx, &FindSession{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListSessionsByParticipant returns all sessions a participant is part of,
// newest activity first. An empty list is a normal result.
func (s *Store) ListSessionsByParticipant(ctx context.Context, participantID string) ([]*Session, error) {
	return s.driver.ListSessions(ctx, &FindSession{ParticipantID: &participantID})
}

// TouchSession bumps a session's last activity timestamp. Idempotent.
func (s *Store) TouchSession(ctx context.Context, session *Session, ts int64) error {
	if err := s.driver.UpdateSessionActivity(ctx, &UpdateSessionActivity{ID: session.ID, LastActiveTs: ts}); err != nil {
		return err
	}
	updated := *session
	if ts > updated.LastActiveTs {
		updated.LastActiveTs = ts
	}
	s.cacheSession(ctx, &updated)
	return nil
}

func (s *Store) CreateEvent(ctx context.Context, create *Event) (*Event, error) {
	return s.driver.CreateEvent(ctx, create)
}

func (s *Store) ListEvents(ctx context.Context, find *FindEvent) ([]*Event, error) {
	return s.driver.ListEvents(ctx, find)
}

func (s *Store) MaxEventTimestamp(ctx context.Context, sessionID string) (int64, error) {
	return s.driver.MaxEventTimestamp(ctx, sessionID)
}

func (s *Store) cacheSession(ctx context.Context, session *Session) {
	data, err := json.Marshal(session)
	if err != nil {
		slog.Warn("failed to marshal session for cache", "error", err)
		return
	}
	if err := s.sessionCache.Set(ctx, sessionCachePrefix+session.PairKey, data, sessionCacheTTL); err != nil {
		slog.Warn("failed to cache session", "pair_key", session.PairKey, "error", err)
	}
}

func (s *Store) cachedSession(ctx context.Context, pairKey string) *Session {
	data, ok := s.sessionCache.Get(ctx, sessionCachePrefix+pairKey)
	if !ok {
		return nil
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		slog.Warn("failed to unmarshal cached session", "pair_key", pairKey, "error", err)
		return nil
	}
	return &session
}
