package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/store"
	storetest "github.com/parleyhq/parley/store/test"
)

// Exercises the event log against the real SQL driver rather than the
// in-memory arena, so the read filters flow through the store layer end to
// end.
func TestEventLogOverSQLiteStore(t *testing.T) {
	ctx := context.Background()
	st := storetest.NewTestingStore(ctx, t)
	registry := NewRegistry(st)
	log := NewEventLog(st)

	session, err := registry.GetOrCreateSession(ctx, pair("alice", "helper"))
	require.NoError(t, err)

	var ids []int64
	for _, content := range []string{"one", "two", "three"} {
		event, err := log.Append(ctx, &store.Event{
			SessionID: session.ID,
			FromType:  store.ParticipantKindUser,
			ToType:    store.ParticipantKindAgent,
			Content:   content,
		})
		require.NoError(t, err)
		ids = append(ids, event.ID)
	}

	suffix, err := log.ReadSince(ctx, session.ID, ids[0])
	require.NoError(t, err)
	require.Len(t, suffix, 2)
	require.Equal(t, "two", suffix[0].Content)
	require.Equal(t, "three", suffix[1].Content)

	recent, err := log.ReadRecent(ctx, session.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "two", recent[0].Content)

	all, err := log.ReadAll(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
}
