package chat

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	errs "github.com/parleyhq/parley/server/internal/errors"
	"github.com/parleyhq/parley/store"
)

func pair(userID, agentID string) []store.Participant {
	return []store.Participant{
		{Kind: store.ParticipantKindUser, ID: userID},
		{Kind: store.ParticipantKindAgent, ID: agentID},
	}
}

func TestRegistryGetOrCreateIsDeterministic(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(newMemRepo())

	first, err := registry.GetOrCreateSession(ctx, pair("alice", "helper"))
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	// Same pair, swapped participant order.
	second, err := registry.GetOrCreateSession(ctx, []store.Participant{
		{Kind: store.ParticipantKindAgent, ID: "helper"},
		{Kind: store.ParticipantKindUser, ID: "alice"},
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.PairKey, second.PairKey)

	other, err := registry.GetOrCreateSession(ctx, pair("alice", "other-agent"))
	require.NoError(t, err)
	require.NotEqual(t, first.ID, other.ID)
}

func TestRegistryConcurrentGetOrCreateConverges(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(newMemRepo())

	const n = 32
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session, err := registry.GetOrCreateSession(ctx, pair("bob", "helper"))
			require.NoError(t, err)
			ids[i] = session.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		require.Equal(t, ids[0], ids[i])
	}
}

func TestRegistryValidationRunsBeforeStorage(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	registry := NewRegistry(repo)

	cases := []struct {
		name         string
		participants []store.Participant
	}{
		{"empty", nil},
		{"one entry", []store.Participant{{Kind: store.ParticipantKindUser, ID: "alice"}}},
		{"two users", []store.Participant{
			{Kind: store.ParticipantKindUser, ID: "alice"},
			{Kind: store.ParticipantKindUser, ID: "bob"},
		}},
		{"two agents", []store.Participant{
			{Kind: store.ParticipantKindAgent, ID: "a1"},
			{Kind: store.ParticipantKindAgent, ID: "a2"},
		}},
		{"unknown kind", []store.Participant{
			{Kind: store.ParticipantKindUser, ID: "alice"},
			{Kind: "bot", ID: "a1"},
		}},
		{"bad id format", pair("alice", "agent with spaces")},
		{"empty id", pair("", "helper")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := registry.GetOrCreateSession(ctx, tc.participants)
			require.Error(t, err)
			require.True(t, errs.IsCode(err, errs.ErrCodeValidation), "got %v", err)
		})
	}
	require.Empty(t, repo.sessions, "invalid input must not touch storage")
}

func TestRegistryFindSessionByParticipants(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(newMemRepo())

	found, err := registry.FindSessionByParticipants(ctx, pair("carol", "helper"))
	require.NoError(t, err)
	require.Nil(t, found, "never-conversed pair resolves to nil, not an error")

	created, err := registry.GetOrCreateSession(ctx, pair("carol", "helper"))
	require.NoError(t, err)

	found, err = registry.FindSessionByParticipants(ctx, pair("carol", "helper"))
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, created.ID, found.ID)
}

func TestRegistryStorageFailureIsSystemError(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	repo.getSessionErr = context.DeadlineExceeded
	registry := NewRegistry(repo)

	_, err := registry.GetOrCreateSession(ctx, pair("dave", "helper"))
	require.Error(t, err)
	require.True(t, errs.IsCode(err, errs.ErrCodeSystem))
	require.Equal(t, "internal error, please retry later", errs.PublicMessage(err))
}

func TestRegistrySessionsByUser(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(newMemRepo())

	_, err := registry.GetOrCreateSession(ctx, pair("erin", "agent-1"))
	require.NoError(t, err)
	_, err = registry.GetOrCreateSession(ctx, pair("erin", "agent-2"))
	require.NoError(t, err)
	_, err = registry.GetOrCreateSession(ctx, pair("frank", "agent-1"))
	require.NoError(t, err)

	sessions, err := registry.SessionsByUser(ctx, "erin")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	for _, session := range sessions {
		require.Equal(t, "erin", session.UserID)
	}

	_, err = registry.SessionsByUser(ctx, "")
	require.True(t, errs.IsCode(err, errs.ErrCodeValidation))
}
