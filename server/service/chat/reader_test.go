package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	errs "github.com/parleyhq/parley/server/internal/errors"
	"github.com/parleyhq/parley/store"
)

func newTestReader(t *testing.T) (*Reader, *Registry, *EventLog) {
	t.Helper()
	repo := newMemRepo()
	registry := NewRegistry(repo)
	log := NewEventLog(repo)
	return NewReader(registry, log), registry, log
}

func TestReaderCheckNewUnknownSession(t *testing.T) {
	ctx := context.Background()
	reader, _, _ := newTestReader(t)

	_, err := reader.CheckNew(ctx, "alice", store.DeriveSessionID("ghost", "agent"), 0)
	require.True(t, errs.IsCode(err, errs.ErrCodeNotFound))

	_, err = reader.CheckNew(ctx, "alice", "", 0)
	require.True(t, errs.IsCode(err, errs.ErrCodeValidation))

	_, err = reader.CheckNew(ctx, "alice", "some-session", -1)
	require.True(t, errs.IsCode(err, errs.ErrCodeValidation))
}

func TestReaderCheckNewEnforcesParticipation(t *testing.T) {
	ctx := context.Background()
	reader, registry, _ := newTestReader(t)

	session, err := registry.GetOrCreateSession(ctx, pair("alice", "helper"))
	require.NoError(t, err)

	_, err = reader.CheckNew(ctx, "mallory", session.ID, 0)
	require.True(t, errs.IsCode(err, errs.ErrCodePermissionDenied))

	// Both real participants may poll.
	_, err = reader.CheckNew(ctx, "alice", session.ID, 0)
	require.NoError(t, err)
	_, err = reader.CheckNew(ctx, "helper", session.ID, 0)
	require.NoError(t, err)
}

func TestReaderCheckNewIsIdempotent(t *testing.T) {
	ctx := context.Background()
	reader, registry, log := newTestReader(t)

	session, err := registry.GetOrCreateSession(ctx, pair("alice", "helper"))
	require.NoError(t, err)
	event, err := log.Append(ctx, &store.Event{
		SessionID: session.ID,
		FromType:  store.ParticipantKindUser,
		ToType:    store.ParticipantKindAgent,
		Content:   "hi",
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		result, err := reader.CheckNew(ctx, "alice", session.ID, 0)
		require.NoError(t, err)
		require.True(t, result.HasNew)
		require.Len(t, result.Events, 1)
		require.Equal(t, event.ID, result.Events[0].ID)
	}

	// Empty suffix is a valid, repeatable read.
	for i := 0; i < 3; i++ {
		result, err := reader.CheckNew(ctx, "alice", session.ID, event.ID)
		require.NoError(t, err)
		require.False(t, result.HasNew)
		require.Empty(t, result.Events)
	}
}

func TestReaderHistoryForNeverConversedPair(t *testing.T) {
	ctx := context.Background()
	reader, _, _ := newTestReader(t)

	history, err := reader.History(ctx, "alice", "stranger-agent")
	require.NoError(t, err)
	require.Nil(t, history.Session)
	require.NotNil(t, history.Events)
	require.Empty(t, history.Events)
}

func TestReaderHistoryReturnsFullLog(t *testing.T) {
	ctx := context.Background()
	reader, registry, log := newTestReader(t)

	session, err := registry.GetOrCreateSession(ctx, pair("alice", "helper"))
	require.NoError(t, err)
	for _, content := range []string{"one", "two", "three"} {
		_, err := log.Append(ctx, &store.Event{
			SessionID: session.ID,
			FromType:  store.ParticipantKindUser,
			ToType:    store.ParticipantKindAgent,
			Content:   content,
		})
		require.NoError(t, err)
	}

	history, err := reader.History(ctx, "alice", "helper")
	require.NoError(t, err)
	require.NotNil(t, history.Session)
	require.Equal(t, session.ID, history.Session.ID)
	require.Len(t, history.Events, 3)
	require.Equal(t, "one", history.Events[0].Content)
	require.Equal(t, "three", history.Events[2].Content)

	_, err = reader.History(ctx, "alice", "")
	require.True(t, errs.IsCode(err, errs.ErrCodeValidation))
}

func TestReaderSessions(t *testing.T) {
	ctx := context.Background()
	reader, registry, _ := newTestReader(t)

	sessions, err := reader.Sessions(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, sessions)
	require.Empty(t, sessions)

	_, err = registry.GetOrCreateSession(ctx, pair("alice", "helper"))
	require.NoError(t, err)

	sessions, err = reader.Sessions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
}
