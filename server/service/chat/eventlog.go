package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	errs "github.com/parleyhq/parley/server/internal/errors"
	"github.com/parleyhq/parley/store"
)

// EventLog serializes appends per session and assigns each event a timestamp
// that is strictly increasing within the session, so (created_ts, id) is a
// total order and suffix reads by id are exact.
//
// Serialization is in-process: each session must be written by exactly one
// EventLog instance. Deployments scale by partitioning sessions across
// instances, not by appending to one session from several.
type EventLog struct {
	events EventRepository

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	lastTs map[string]int64
}

// NewEventLog creates an event log over the given repository.
func NewEventLog(events EventRepository) *EventLog {
	return &EventLog{
		events: events,
		locks:  make(map[string]*sync.Mutex),
		lastTs: make(map[string]int64),
	}
}

func (l *EventLog) sessionLock(sessionID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[sessionID] = lock
	}
	return lock
}

// Append persists the event, assigning its timestamp. The event becomes
// visible to readers only once this returns.
func (l *EventLog) Append(ctx context.Context, event *store.Event) (*store.Event, error) {
	if event.SessionID == "" {
		return nil, errs.Validation("session id is required")
	}

	lock := l.sessionLock(event.SessionID)
	lock.Lock()
	defer lock.Unlock()

	last, err := l.lastTimestamp(ctx, event.SessionID)
	if err != nil {
		return nil, errs.System(fmt.Errorf("failed to read event log position: %w", err))
	}

	ts := time.Now().UnixMilli()
	if ts <= last {
		ts = last + 1
	}
	event.CreatedTs = ts
	if event.Status == "" {
		event.Status = store.EventStatusOK
	}
	if event.Metadata == "" {
		event.Metadata = "{}"
	}

	created, err := l.events.CreateEvent(ctx, event)
	if err != nil {
		return nil, errs.System(fmt.Errorf("failed to append event: %w", err))
	}

	l.mu.Lock()
	l.lastTs[event.SessionID] = created.CreatedTs
	l.mu.Unlock()
	return created, nil
}

// lastTimestamp returns the session's high-water timestamp, seeding the
// in-memory position from storage on first touch after startup.
func (l *EventLog) lastTimestamp(ctx context.Context, sessionID string) (int64, error) {
	l.mu.Lock()
	last, ok := l.lastTs[sessionID]
	l.mu.Unlock()
	if ok {
		return last, nil
	}

	maxTs, err := l.events.MaxEventTimestamp(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	l.mu.Lock()
	if cached, ok := l.lastTs[sessionID]; ok && cached > maxTs {
		maxTs = cached
	}
	l.lastTs[sessionID] = maxTs
	l.mu.Unlock()
	return maxTs, nil
}

// ReadSince returns all events with id greater than afterID, in log order.
// afterID zero means the whole log.
func (l *EventLog) ReadSince(ctx context.Context, sessionID string, afterID int64) ([]*store.Event, error) {
	find := &store.FindEvent{SessionID: &sessionID}
	if afterID > 0 {
		find.AfterID = &afterID
	}
	events, err := l.events.ListEvents(ctx, find)
	if err != nil {
		return nil, errs.System(fmt.Errorf("failed to read events: %w", err))
	}
	return events, nil
}

// ReadAll returns the session's full log in order.
func (l *EventLog) ReadAll(ctx context.Context, sessionID string) ([]*store.Event, error) {
	return l.ReadSince(ctx, sessionID, 0)
}

// ReadRecent returns the last n events in log order.
func (l *EventLog) ReadRecent(ctx context.Context, sessionID string, n int) ([]*store.Event, error) {
	if n <= 0 {
		return nil, nil
	}
	events, err := l.events.ListEvents(ctx, &store.FindEvent{SessionID: &sessionID, LastN: &n})
	if err != nil {
		return nil, errs.System(fmt.Errorf("failed to read events: %w", err))
	}
	return events, nil
}
