package v1

import (
	"log/slog"
	"strconv"

	"github.com/labstack/echo/v4"

	errs "github.com/parleyhq/parley/server/internal/errors"
	"github.com/parleyhq/parley/server/internal/observability"
)

type sendMessageRequest struct {
	AgentID string `json:"agentId"`
	Content string `json:"content"`
}

type sendMessageResponse struct {
	UserEventID int64  `json:"userEventId"`
	SessionID   string `json:"sessionId"`
	Timestamp   int64  `json:"timestamp"`
	Status      string `json:"status"`
}

// sendMessage accepts a user message and schedules reply generation. The
// response acknowledges the durable user event; the reply is observed by
// polling /messages/check.
func (s *APIV1Service) sendMessage(c echo.Context) error {
	userID := callerID(c)

	var body sendMessageRequest
	if err := c.Bind(&body); err != nil {
		return errorResponse(c, errs.Validation("malformed request body"))
	}

	if !s.rateLimiter.Allow(userID) {
		return errorResponse(c, errs.RateLimitExceeded("too many messages, slow down"))
	}

	reqCtx, ok := observability.FromContext(c.Request().Context())
	if !ok {
		reqCtx = observability.NewRequestContext(s.logger, userID, body.AgentID)
	}
	reqCtx.AgentID = body.AgentID
	pending, err := s.Dispatcher.Send(c.Request().Context(), userID, body.AgentID, body.Content)
	if err != nil {
		reqCtx.Warn("send rejected",
			slog.String(observability.LogFieldErrorCode, string(errs.GetCodeFromError(err))),
			slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
		return errorResponse(c, err)
	}

	reqCtx.Info("message accepted",
		slog.String(observability.LogFieldSessionID, pending.SessionID),
		slog.Int64(observability.LogFieldEventID, pending.UserEventID),
		slog.Int(observability.LogFieldMessageLen, len(body.Content)),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))

	return okResponse(c, &sendMessageResponse{
		UserEventID: pending.UserEventID,
		SessionID:   pending.SessionID,
		Timestamp:   pending.IssuedAt,
		Status:      "pending",
	})
}

type checkMessagesResponse struct {
	HasNew bool            `json:"hasNew"`
	Events []*eventPayload `json:"events"`
}

// checkMessages returns events appended after the caller's cursor.
func (s *APIV1Service) checkMessages(c echo.Context) error {
	userID := callerID(c)
	sessionID := c.QueryParam("sessionId")

	var lastEventID int64
	if raw := c.QueryParam("lastEventId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return errorResponse(c, errs.Validation("lastEventId must be an integer"))
		}
		lastEventID = parsed
	}

	result, err := s.Reader.CheckNew(c.Request().Context(), userID, sessionID, lastEventID)
	if err != nil {
		return errorResponse(c, err)
	}
	return okResponse(c, &checkMessagesResponse{
		HasNew: result.HasNew,
		Events: convertEvents(result.Events),
	})
}

type regenerateRequest struct {
	SessionID string `json:"sessionId"`
}

// regenerateReply schedules a fresh reply over the session's current context
// window without appending a new user message.
func (s *APIV1Service) regenerateReply(c echo.Context) error {
	userID := callerID(c)

	var body regenerateRequest
	if err := c.Bind(&body); err != nil {
		return errorResponse(c, errs.Validation("malformed request body"))
	}
	if !s.rateLimiter.Allow(userID) {
		return errorResponse(c, errs.RateLimitExceeded("too many messages, slow down"))
	}

	pending, err := s.Dispatcher.Regenerate(c.Request().Context(), userID, body.SessionID)
	if err != nil {
		return errorResponse(c, err)
	}
	return okResponse(c, &sendMessageResponse{
		UserEventID: pending.UserEventID,
		SessionID:   pending.SessionID,
		Timestamp:   pending.IssuedAt,
		Status:      "pending",
	})
}
