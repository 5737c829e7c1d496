package store

import (
	"fmt"

	"github.com/google/uuid"
)

// ParticipantKind tags the two ends of a session.
type ParticipantKind string

const (
	ParticipantKindUser  ParticipantKind = "user"
	ParticipantKindAgent ParticipantKind = "agent"
)

func (k ParticipantKind) String() string {
	return string(k)
}

// Participant is a typed endpoint of a session.
type Participant struct {
	Kind ParticipantKind
	ID   string
}

// Session is the durable conversation context for one user/agent pair.
// The pair is unordered: (u, a) and (a, u) resolve to the same session.
type Session struct {
	ID           string
	PairKey      string
	UserID       string
	AgentID      string
	CreatedTs    int64 // epoch milliseconds
	LastActiveTs int64 // epoch milliseconds
}

// Participants returns the session's participant pair.
func (s *Session) Participants() [2]Participant {
	return [2]Participant{
		{Kind: ParticipantKindUser, ID: s.UserID},
		{Kind: ParticipantKindAgent, ID: s.AgentID},
	}
}

type FindSession struct {
	ID            *string
	PairKey       *string
	ParticipantID *string
}

type UpdateSessionActivity struct {
	ID           string
	LastActiveTs int64
}

// sessionNamespace seeds the deterministic session ID derivation.
var sessionNamespace = uuid.MustParse("76c19aa8-3f1c-4c85-9d4e-5b6a90b2e0f7")

// PairKey canonicalizes a user/agent pair into the stable lookup key.
// Kind sorts before ID, so the key is order-independent by construction.
func PairKey(userID, agentID string) string {
	return fmt.Sprintf("agent:%s|user:%s", agentID, userID)
}

// DeriveSessionID computes the session ID as a UUIDv5 of the canonical pair
// key. The same pair always yields the same ID, in either order.
func DeriveSessionID(userID, agentID string) string {
	return uuid.NewSHA1(sessionNamespace, []byte(PairKey(userID, agentID))).String()
}
