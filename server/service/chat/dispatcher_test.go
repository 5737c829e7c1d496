package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/plugin/llm"
	errs "github.com/parleyhq/parley/server/internal/errors"
	"github.com/parleyhq/parley/server/internal/observability"
	"github.com/parleyhq/parley/store"
)

func newTestPipeline(t *testing.T, generator llm.Service) (*Dispatcher, *Reader, *Registry, *EventLog) {
	t.Helper()
	repo := newMemRepo()
	registry := NewRegistry(repo)
	log := NewEventLog(repo)
	config := DefaultDispatcherConfig()
	config.GenerationTimeout = 5 * time.Second
	dispatcher := NewDispatcher(registry, log, generator, observability.NewMetrics(10), nil, config)
	return dispatcher, NewReader(registry, log), registry, log
}

func TestDispatcherSendThenPoll(t *testing.T) {
	ctx := context.Background()
	dispatcher, reader, _, _ := newTestPipeline(t, llm.NewMockService("hello back"))

	pending, err := dispatcher.Send(ctx, "alice", "helper", "hello")
	require.NoError(t, err)
	require.NotEmpty(t, pending.SessionID)
	require.NotZero(t, pending.UserEventID)
	require.NotZero(t, pending.IssuedAt)

	// The user event is visible immediately, before the reply settles.
	result, err := reader.CheckNew(ctx, "alice", pending.SessionID, 0)
	require.NoError(t, err)
	require.True(t, result.HasNew)
	require.GreaterOrEqual(t, len(result.Events), 1)
	require.Equal(t, "hello", result.Events[0].Content)
	require.Equal(t, store.ParticipantKindUser, result.Events[0].FromType)

	dispatcher.Wait()

	result, err = reader.CheckNew(ctx, "alice", pending.SessionID, pending.UserEventID)
	require.NoError(t, err)
	require.True(t, result.HasNew)
	require.Len(t, result.Events, 1)
	reply := result.Events[0]
	require.Equal(t, "hello back", reply.Content)
	require.Equal(t, store.ParticipantKindAgent, reply.FromType)
	require.Equal(t, store.EventStatusOK, reply.Status)

	// Polling past the reply is idempotent and empty.
	result, err = reader.CheckNew(ctx, "alice", pending.SessionID, reply.ID)
	require.NoError(t, err)
	require.False(t, result.HasNew)
	require.Empty(t, result.Events)
}

func TestDispatcherSendValidation(t *testing.T) {
	ctx := context.Background()
	dispatcher, _, _, _ := newTestPipeline(t, llm.NewMockService("ok"))

	_, err := dispatcher.Send(ctx, "alice", "helper", "")
	require.True(t, errs.IsCode(err, errs.ErrCodeValidation))

	_, err = dispatcher.Send(ctx, "alice", "helper", "   \n\t ")
	require.True(t, errs.IsCode(err, errs.ErrCodeValidation))

	long := strings.Repeat("x", 8001)
	_, err = dispatcher.Send(ctx, "alice", "helper", long)
	require.True(t, errs.IsCode(err, errs.ErrCodeValidation))

	_, err = dispatcher.Send(ctx, "", "helper", "hi")
	require.True(t, errs.IsCode(err, errs.ErrCodeValidation))
}

func TestDispatcherBackToBackSendsStayOrdered(t *testing.T) {
	ctx := context.Background()
	dispatcher, reader, _, _ := newTestPipeline(t, llm.NewMockService("reply"))

	first, err := dispatcher.Send(ctx, "alice", "helper", "first")
	require.NoError(t, err)
	second, err := dispatcher.Send(ctx, "alice", "helper", "second")
	require.NoError(t, err)
	require.Equal(t, first.SessionID, second.SessionID)
	require.Greater(t, second.UserEventID, first.UserEventID)
	require.Greater(t, second.IssuedAt, first.IssuedAt)

	dispatcher.Wait()

	history, err := reader.History(ctx, "alice", "helper")
	require.NoError(t, err)
	require.Len(t, history.Events, 4)
	for i := 1; i < len(history.Events); i++ {
		require.Greater(t, history.Events[i].CreatedTs, history.Events[i-1].CreatedTs)
	}
}

func TestDispatcherGenerationFailureAppendsMarker(t *testing.T) {
	ctx := context.Background()
	mock := llm.NewMockService("")
	mock.Err = errors.New("upstream exploded")
	dispatcher, reader, _, _ := newTestPipeline(t, mock)

	pending, err := dispatcher.Send(ctx, "alice", "helper", "hello")
	require.NoError(t, err)
	dispatcher.Wait()

	result, err := reader.CheckNew(ctx, "alice", pending.SessionID, pending.UserEventID)
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	marker := result.Events[0]
	require.Equal(t, store.EventStatusFailed, marker.Status)
	require.Equal(t, store.ParticipantKindAgent, marker.FromType)
	require.NotEmpty(t, marker.Content)

	var metadata map[string]string
	require.NoError(t, json.Unmarshal([]byte(marker.Metadata), &metadata))
	require.Equal(t, string(errs.ErrCodeLLMAPIError), metadata["code"])
}

func TestDispatcherClassifiesAPIKeyMissing(t *testing.T) {
	ctx := context.Background()
	mock := llm.NewMockService("")
	mock.Err = llm.ErrAPIKeyMissing
	dispatcher, reader, _, _ := newTestPipeline(t, mock)

	pending, err := dispatcher.Send(ctx, "alice", "helper", "hello")
	require.NoError(t, err)
	dispatcher.Wait()

	result, err := reader.CheckNew(ctx, "alice", pending.SessionID, pending.UserEventID)
	require.NoError(t, err)
	require.Len(t, result.Events, 1)

	var metadata map[string]string
	require.NoError(t, json.Unmarshal([]byte(result.Events[0].Metadata), &metadata))
	require.Equal(t, string(errs.ErrCodeAPIKeyMissing), metadata["code"])
}

func TestDispatcherClassifiesTimeout(t *testing.T) {
	ctx := context.Background()
	mock := llm.NewMockService("too late")
	mock.Delay = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	repo := newMemRepo()
	registry := NewRegistry(repo)
	log := NewEventLog(repo)
	config := DefaultDispatcherConfig()
	config.GenerationTimeout = 50 * time.Millisecond
	metrics := observability.NewMetrics(10)
	dispatcher := NewDispatcher(registry, log, mock, metrics, nil, config)
	reader := NewReader(registry, log)

	pending, err := dispatcher.Send(ctx, "alice", "helper", "hello")
	require.NoError(t, err)
	dispatcher.Wait()

	result, err := reader.CheckNew(ctx, "alice", pending.SessionID, pending.UserEventID)
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	require.Equal(t, store.EventStatusFailed, result.Events[0].Status)

	var metadata map[string]string
	require.NoError(t, json.Unmarshal([]byte(result.Events[0].Metadata), &metadata))
	require.Equal(t, string(errs.ErrCodeLLMAPITimeout), metadata["code"])
	require.EqualValues(t, 1, metrics.GenerationTimedOut())
}

func TestDispatcherContextWindowSkipsFailureMarkers(t *testing.T) {
	ctx := context.Background()
	mock := llm.NewMockService("reply")
	dispatcher, _, _, log := newTestPipeline(t, mock)

	pending, err := dispatcher.Send(ctx, "alice", "helper", "hello")
	require.NoError(t, err)
	dispatcher.Wait()

	_, err = log.Append(ctx, &store.Event{
		SessionID: pending.SessionID,
		FromType:  store.ParticipantKindAgent,
		ToType:    store.ParticipantKindUser,
		Content:   "The assistant could not produce a reply. Please try again.",
		Status:    store.EventStatusFailed,
	})
	require.NoError(t, err)

	_, err = dispatcher.Send(ctx, "alice", "helper", "are you there?")
	require.NoError(t, err)
	dispatcher.Wait()

	calls := mock.Calls()
	require.Len(t, calls, 2)
	for _, message := range calls[1] {
		require.NotContains(t, message.Content, "could not produce a reply")
	}
}

func TestDispatcherRegenerate(t *testing.T) {
	ctx := context.Background()
	mock := llm.NewMockService("take two")
	dispatcher, reader, _, _ := newTestPipeline(t, mock)

	pending, err := dispatcher.Send(ctx, "alice", "helper", "hello")
	require.NoError(t, err)
	dispatcher.Wait()

	regen, err := dispatcher.Regenerate(ctx, "alice", pending.SessionID)
	require.NoError(t, err)
	require.Equal(t, pending.SessionID, regen.SessionID)
	require.Equal(t, pending.UserEventID, regen.UserEventID)
	dispatcher.Wait()

	history, err := reader.History(ctx, "alice", "helper")
	require.NoError(t, err)
	require.Len(t, history.Events, 3)
	require.Equal(t, "take two", history.Events[2].Content)

	_, err = dispatcher.Regenerate(ctx, "mallory", pending.SessionID)
	require.True(t, errs.IsCode(err, errs.ErrCodePermissionDenied))

	_, err = dispatcher.Regenerate(ctx, "alice", store.DeriveSessionID("nobody", "nothing"))
	require.True(t, errs.IsCode(err, errs.ErrCodeNotFound))
}
