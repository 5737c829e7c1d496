package chat

import (
	"context"
	"sort"
	"sync"

	"github.com/parleyhq/parley/store"
)

// memRepo is an in-memory SessionRepository + EventRepository with the same
// semantics as the SQL drivers: pair-key conflicts resolve to the persisted
// row, event ids auto-increment globally, reads come back in
// (created_ts, id) order.
type memRepo struct {
	mu       sync.Mutex
	sessions map[string]*store.Session // by id
	byPair   map[string]*store.Session
	events   []*store.Event
	nextID   int64

	createEventErr error
	getSessionErr  error
}

func newMemRepo() *memRepo {
	return &memRepo{
		sessions: make(map[string]*store.Session),
		byPair:   make(map[string]*store.Session),
		nextID:   1,
	}
}

func (m *memRepo) CreateSession(_ context.Context, create *store.Session) (*store.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byPair[create.PairKey]; ok {
		copied := *existing
		return &copied, nil
	}
	copied := *create
	m.sessions[copied.ID] = &copied
	m.byPair[copied.PairKey] = &copied
	out := copied
	return &out, nil
}

func (m *memRepo) GetSessionByPairKey(_ context.Context, pairKey string) (*store.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getSessionErr != nil {
		return nil, m.getSessionErr
	}
	session, ok := m.byPair[pairKey]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (m *memRepo) GetSession(_ context.Context, id string) (*store.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getSessionErr != nil {
		return nil, m.getSessionErr
	}
	session, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (m *memRepo) ListSessionsByParticipant(_ context.Context, participantID string) ([]*store.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Session
	for _, session := range m.sessions {
		if session.UserID == participantID || session.AgentID == participantID {
			copied := *session
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActiveTs > out[j].LastActiveTs })
	return out, nil
}

func (m *memRepo) TouchSession(_ context.Context, session *store.Session, ts int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.sessions[session.ID]
	if !ok {
		return nil
	}
	if ts > stored.LastActiveTs {
		stored.LastActiveTs = ts
	}
	return nil
}

func (m *memRepo) CreateEvent(_ context.Context, create *store.Event) (*store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createEventErr != nil {
		return nil, m.createEventErr
	}
	copied := *create
	copied.ID = m.nextID
	m.nextID++
	m.events = append(m.events, &copied)
	out := copied
	return &out, nil
}

func (m *memRepo) ListEvents(_ context.Context, find *store.FindEvent) ([]*store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*store.Event
	for _, event := range m.events {
		if find.SessionID == nil || event.SessionID != *find.SessionID {
			continue
		}
		if find.AfterID != nil && event.ID <= *find.AfterID {
			continue
		}
		copied := *event
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedTs != matched[j].CreatedTs {
			return matched[i].CreatedTs < matched[j].CreatedTs
		}
		return matched[i].ID < matched[j].ID
	})
	if find.LastN != nil && len(matched) > *find.LastN {
		matched = matched[len(matched)-*find.LastN:]
	}
	return matched, nil
}

func (m *memRepo) MaxEventTimestamp(_ context.Context, sessionID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var maxTs int64
	for _, event := range m.events {
		if event.SessionID == sessionID && event.CreatedTs > maxTs {
			maxTs = event.CreatedTs
		}
	}
	return maxTs, nil
}

var (
	_ SessionRepository = (*memRepo)(nil)
	_ EventRepository   = (*memRepo)(nil)
)
