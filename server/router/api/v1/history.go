package v1

import (
	"github.com/labstack/echo/v4"
)

type historyResponse struct {
	Session *sessionPayload `json:"session"`
	Events  []*eventPayload `json:"events"`
}

// getHistory returns the full conversation between the caller and an agent.
// A pair that has never conversed yields a null session and an empty event
// list, not an error.
func (s *APIV1Service) getHistory(c echo.Context) error {
	userID := callerID(c)
	agentID := c.QueryParam("agentId")

	result, err := s.Reader.History(c.Request().Context(), userID, agentID)
	if err != nil {
		return errorResponse(c, err)
	}

	payload := &historyResponse{Events: convertEvents(result.Events)}
	if result.Session != nil {
		payload.Session = convertSession(result.Session)
	}
	return okResponse(c, payload)
}
