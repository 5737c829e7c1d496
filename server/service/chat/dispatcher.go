package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/parleyhq/parley/plugin/llm"
	errs "github.com/parleyhq/parley/server/internal/errors"
	"github.com/parleyhq/parley/server/internal/observability"
	"github.com/parleyhq/parley/store"
)

// DispatcherConfig tunes the send/generate pipeline.
type DispatcherConfig struct {
	// ContextWindow is how many trailing events are handed to the generator.
	ContextWindow int
	// MaxMessageLen bounds user message length in runes.
	MaxMessageLen int
	// GenerationTimeout bounds one detached generation, end to end.
	GenerationTimeout time.Duration
	// SystemPrompt, when non-empty, is prepended to every context window.
	SystemPrompt string
}

// DefaultDispatcherConfig returns the production defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		ContextWindow:     20,
		MaxMessageLen:     8000,
		GenerationTimeout: 60 * time.Second,
	}
}

// PendingSend is the immediate result of an accepted send. The agent reply
// settles later and is observed by polling.
type PendingSend struct {
	UserEventID int64
	SessionID   string
	IssuedAt    int64
}

// Dispatcher accepts user messages, records them, and drives detached reply
// generation. A send returns as soon as the user event is durable; the
// generation outcome (reply or failure marker) lands in the event log.
type Dispatcher struct {
	registry  *Registry
	log       *EventLog
	generator llm.Service
	metrics   *observability.Metrics
	logger    *slog.Logger
	config    DispatcherConfig

	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(registry *Registry, log *EventLog, generator llm.Service, metrics *observability.Metrics, logger *slog.Logger, config DispatcherConfig) *Dispatcher {
	if config.ContextWindow <= 0 {
		config.ContextWindow = 20
	}
	if config.GenerationTimeout <= 0 {
		config.GenerationTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewMetrics(0)
	}
	return &Dispatcher{
		registry:  registry,
		log:       log,
		generator: generator,
		metrics:   metrics,
		logger:    logger,
		config:    config,
	}
}

// Send validates and records a user message, then schedules reply generation.
// On return the user event is durable and visible; nothing about the eventual
// reply is promised.
func (d *Dispatcher) Send(ctx context.Context, userID, agentID, content string) (*PendingSend, error) {
	if err := ValidateContent(content, d.config.MaxMessageLen); err != nil {
		return nil, err
	}

	session, err := d.registry.GetOrCreateSession(ctx, []store.Participant{
		{Kind: store.ParticipantKindUser, ID: userID},
		{Kind: store.ParticipantKindAgent, ID: agentID},
	})
	if err != nil {
		return nil, err
	}

	userEvent, err := d.log.Append(ctx, &store.Event{
		SessionID: session.ID,
		FromType:  store.ParticipantKindUser,
		ToType:    store.ParticipantKindAgent,
		Content:   content,
	})
	if err != nil {
		return nil, err
	}

	if err := d.registry.UpdateSessionActivity(ctx, session, userEvent.CreatedTs); err != nil {
		// The message is already durable; activity metadata can lag.
		d.logger.Warn("failed to update session activity",
			slog.String(observability.LogFieldSessionID, session.ID),
			slog.String("error", err.Error()))
	}

	d.metrics.RecordSend()
	d.spawnGeneration(session, userID)

	return &PendingSend{
		UserEventID: userEvent.ID,
		SessionID:   session.ID,
		IssuedAt:    userEvent.CreatedTs,
	}, nil
}

// Regenerate schedules a fresh reply for the session's current context
// window without appending a new user message.
func (d *Dispatcher) Regenerate(ctx context.Context, callerID, sessionID string) (*PendingSend, error) {
	session, err := d.registry.SessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errs.NotFound("session not found")
	}
	if session.UserID != callerID && session.AgentID != callerID {
		return nil, errs.PermissionDenied("caller is not a participant of this session")
	}

	window, err := d.log.ReadRecent(ctx, session.ID, d.config.ContextWindow)
	if err != nil {
		return nil, err
	}
	var lastUserEvent *store.Event
	for i := len(window) - 1; i >= 0; i-- {
		if window[i].FromType == store.ParticipantKindUser {
			lastUserEvent = window[i]
			break
		}
	}
	if lastUserEvent == nil {
		return nil, errs.Validation("session has no user message to regenerate a reply for")
	}

	d.spawnGeneration(session, callerID)

	return &PendingSend{
		UserEventID: lastUserEvent.ID,
		SessionID:   session.ID,
		IssuedAt:    time.Now().UnixMilli(),
	}, nil
}

// Wait blocks until all in-flight generation tasks settle. Used on shutdown
// and in tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// spawnGeneration starts a detached generation task. The task outlives the
// originating request and runs under its own timeout.
func (d *Dispatcher) spawnGeneration(session *store.Session, userID string) {
	taskID := shortuuid.New()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.generate(session, userID, taskID)
	}()
}

func (d *Dispatcher) generate(session *store.Session, userID string, taskID string) {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.GenerationTimeout)
	defer cancel()

	reqCtx := observability.NewRequestContext(d.logger, userID, session.AgentID)
	start := time.Now()

	window, err := d.log.ReadRecent(ctx, session.ID, d.config.ContextWindow)
	if err == nil {
		var reply string
		reply, err = d.generator.Complete(ctx, d.buildMessages(window))
		if err == nil {
			err = d.appendReply(session, reply)
		}
	}

	duration := time.Since(start)
	d.metrics.RecordGeneration(duration)

	if err != nil {
		pErr := classifyGenerationError(err)
		d.metrics.RecordGenerationFailure(pErr.Code == errs.ErrCodeLLMAPITimeout)
		reqCtx.Error("reply generation failed", err,
			slog.String(observability.LogFieldSessionID, session.ID),
			slog.String(observability.LogFieldTaskID, taskID),
			slog.String(observability.LogFieldErrorCode, string(pErr.Code)),
			slog.Int64(observability.LogFieldDuration, duration.Milliseconds()))
		d.appendFailureMarker(session, pErr)
		return
	}

	reqCtx.Info("reply generated",
		slog.String(observability.LogFieldSessionID, session.ID),
		slog.String(observability.LogFieldTaskID, taskID),
		slog.Int64(observability.LogFieldDuration, duration.Milliseconds()))
}

// buildMessages converts the trailing event window into generator turns.
// Failure markers carry no conversational content and are skipped.
func (d *Dispatcher) buildMessages(window []*store.Event) []llm.Message {
	messages := make([]llm.Message, 0, len(window)+1)
	if d.config.SystemPrompt != "" {
		messages = append(messages, llm.Message{Role: "system", Content: d.config.SystemPrompt})
	}
	for _, event := range window {
		if event.Status == store.EventStatusFailed {
			continue
		}
		role := "user"
		if event.FromType == store.ParticipantKindAgent {
			role = "assistant"
		}
		messages = append(messages, llm.Message{Role: role, Content: event.Content})
	}
	return messages
}

func (d *Dispatcher) appendReply(session *store.Session, reply string) error {
	// Generation may have consumed most of the budget; the append gets its
	// own deadline so a durable reply is not lost to the generation clock.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	agentEvent, err := d.log.Append(ctx, &store.Event{
		SessionID: session.ID,
		FromType:  store.ParticipantKindAgent,
		ToType:    store.ParticipantKindUser,
		Content:   reply,
	})
	if err != nil {
		return err
	}
	if err := d.registry.UpdateSessionActivity(ctx, session, agentEvent.CreatedTs); err != nil {
		d.logger.Warn("failed to update session activity",
			slog.String(observability.LogFieldSessionID, session.ID),
			slog.String("error", err.Error()))
	}
	return nil
}

// appendFailureMarker records a generation failure in the log so that a
// polling client observes the outcome instead of waiting forever.
func (d *Dispatcher) appendFailureMarker(session *store.Session, pErr *errs.PipelineError) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	metadata, merr := json.Marshal(map[string]string{"code": string(pErr.Code)})
	if merr != nil {
		metadata = []byte("{}")
	}
	if _, err := d.log.Append(ctx, &store.Event{
		SessionID: session.ID,
		FromType:  store.ParticipantKindAgent,
		ToType:    store.ParticipantKindUser,
		Content:   failureContent(pErr.Code),
		Status:    store.EventStatusFailed,
		Metadata:  string(metadata),
	}); err != nil {
		d.logger.Error("failed to append failure marker",
			slog.String(observability.LogFieldSessionID, session.ID),
			slog.String("error", err.Error()))
	}
}

func failureContent(code errs.ErrorCode) string {
	switch code {
	case errs.ErrCodeLLMAPITimeout:
		return "The reply took too long to generate. Please try again."
	case errs.ErrCodeAPIKeyMissing:
		return "The assistant is not configured yet. Please contact the operator."
	default:
		return "The assistant could not produce a reply. Please try again."
	}
}

// classifyGenerationError maps a generation failure onto the error taxonomy.
func classifyGenerationError(err error) *errs.PipelineError {
	if pErr, ok := err.(*errs.PipelineError); ok {
		return pErr
	}
	switch {
	case errors.Is(err, llm.ErrAPIKeyMissing):
		return errs.APIKeyMissing()
	case errors.Is(err, context.DeadlineExceeded):
		return errs.LLMAPITimeout("reply generation exceeded its deadline")
	default:
		return errs.LLMAPIError("reply generation failed", err)
	}
}
