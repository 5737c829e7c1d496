package v1

import (
	"github.com/labstack/echo/v4"
)

type listSessionsResponse struct {
	Sessions []*sessionPayload `json:"sessions"`
}

// listSessions returns the caller's sessions, most recently active first.
func (s *APIV1Service) listSessions(c echo.Context) error {
	sessions, err := s.Reader.Sessions(c.Request().Context(), callerID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return okResponse(c, &listSessionsResponse{Sessions: convertSessions(sessions)})
}
