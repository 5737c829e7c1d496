package v1

import (
	"encoding/json"

	"github.com/parleyhq/parley/store"
)

type eventPayload struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"sessionId"`
	FromType  string          `json:"fromType"`
	ToType    string          `json:"toType"`
	Content   string          `json:"content"`
	Status    string          `json:"status"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

type participantPayload struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type sessionPayload struct {
	SessionID    string               `json:"sessionId"`
	Participants []participantPayload `json:"participants"`
	CreatedAt    int64                `json:"createdAt"`
	LastActiveAt int64                `json:"lastActiveAt"`
}

func convertEvent(event *store.Event) *eventPayload {
	payload := &eventPayload{
		ID:        event.ID,
		SessionID: event.SessionID,
		FromType:  string(event.FromType),
		ToType:    string(event.ToType),
		Content:   event.Content,
		Status:    string(event.Status),
		Timestamp: event.CreatedTs,
	}
	if event.Metadata != "" && event.Metadata != "{}" {
		payload.Metadata = json.RawMessage(event.Metadata)
	}
	return payload
}

func convertEvents(events []*store.Event) []*eventPayload {
	payloads := make([]*eventPayload, 0, len(events))
	for _, event := range events {
		payloads = append(payloads, convertEvent(event))
	}
	return payloads
}

func convertSession(session *store.Session) *sessionPayload {
	participants := make([]participantPayload, 0, 2)
	for _, p := range session.Participants() {
		participants = append(participants, participantPayload{Type: string(p.Kind), ID: p.ID})
	}
	return &sessionPayload{
		SessionID:    session.ID,
		Participants: participants,
		CreatedAt:    session.CreatedTs,
		LastActiveAt: session.LastActiveTs,
	}
}

func convertSessions(sessions []*store.Session) []*sessionPayload {
	payloads := make([]*sessionPayload, 0, len(sessions))
	for _, session := range sessions {
		payloads = append(payloads, convertSession(session))
	}
	return payloads
}
