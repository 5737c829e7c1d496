package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	errs "github.com/parleyhq/parley/server/internal/errors"
)

// Every payload crosses the wire inside the same envelope: success flag,
// data or error, and an epoch-milliseconds timestamp.
type response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *errorBody `json:"error,omitempty"`
	Timestamp int64      `json:"timestamp"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func okResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, &response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

// errorResponse serializes any error into the envelope. Unclassified errors
// surface as SYSTEM_ERROR with a generic message; internals never leak.
func errorResponse(c echo.Context, err error) error {
	code := errs.GetCodeFromError(err)
	return c.JSON(errs.HTTPStatus(code), &response{
		Success: false,
		Error: &errorBody{
			Code:    string(code),
			Message: errs.PublicMessage(err),
		},
		Timestamp: time.Now().UnixMilli(),
	})
}
