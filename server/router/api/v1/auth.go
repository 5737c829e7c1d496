package v1

import (
	"github.com/labstack/echo/v4"

	errs "github.com/parleyhq/parley/server/internal/errors"
	"github.com/parleyhq/parley/server/internal/observability"
	"github.com/parleyhq/parley/server/service/chat"
)

// Identity is established upstream; the gateway forwards the authenticated
// caller in this header. Requests without it are rejected.
const userIDHeader = "X-Parley-User"

const userIDContextKey = "parley.user-id"

// authMiddleware extracts the caller identity, stores it on the request, and
// attaches a logging request context for the handlers downstream. It does
// not consult storage; participation checks happen in the service layer per
// session.
func (s *APIV1Service) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := c.Request().Header.Get(userIDHeader)
		if userID == "" {
			return errorResponse(c, errs.PermissionDenied("missing caller identity"))
		}
		if err := chat.ValidateIdentifier("user id", userID); err != nil {
			return errorResponse(c, err)
		}
		c.Set(userIDContextKey, userID)

		reqCtx := observability.NewRequestContext(s.logger, userID, "")
		ctx := observability.WithRequestContext(c.Request().Context(), reqCtx)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func callerID(c echo.Context) string {
	userID, _ := c.Get(userIDContextKey).(string)
	return userID
}
