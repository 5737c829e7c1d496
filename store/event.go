package store

// EventStatus marks whether an agent event carries a reply or a terminal
// generation failure. User events are always EventStatusOK.
type EventStatus string

const (
	EventStatusOK     EventStatus = "ok"
	EventStatusFailed EventStatus = "failed"
)

// Event is one immutable unit appended to a session's timeline.
// Within a session, events are totally ordered by (CreatedTs, ID).
type Event struct {
	ID        int64
	SessionID string
	FromType  ParticipantKind
	ToType    ParticipantKind
	Content   string
	Status    EventStatus
	Metadata  string // JSON string
	CreatedTs int64  // epoch milliseconds
}

type FindEvent struct {
	SessionID *string
	// AfterID restricts the read to events strictly after this event ID.
	AfterID *int64
	// LastN keeps only the newest N events, still returned in ascending order.
	LastN *int
}
