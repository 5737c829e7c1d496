package v1

import (
	"github.com/labstack/echo/v4"
)

type metricsResponse struct {
	MessagesAccepted    int64 `json:"messagesAccepted"`
	RepliesGenerated    int64 `json:"repliesGenerated"`
	RepliesFailed       int64 `json:"repliesFailed"`
	RepliesTimedOut     int64 `json:"repliesTimedOut"`
	AvgGenerationTimeMs int64 `json:"avgGenerationTimeMs"`
}

// getMetrics reports pipeline counters for the admin dashboard.
func (s *APIV1Service) getMetrics(c echo.Context) error {
	return okResponse(c, &metricsResponse{
		MessagesAccepted:    s.Metrics.SendTotal(),
		RepliesGenerated:    s.Metrics.GenerationTotal(),
		RepliesFailed:       s.Metrics.GenerationFailed(),
		RepliesTimedOut:     s.Metrics.GenerationTimedOut(),
		AvgGenerationTimeMs: s.Metrics.AverageGenerationDuration().Milliseconds(),
	})
}
