package servo

import "time"

// EventType represents an observed channel transition.
type EventType string

const (
	EventMoving  EventType = "MOVING"
	EventSettled EventType = "SETTLED"
	EventIdle    EventType = "IDLE"
	EventActive  EventType = "ACTIVE"
)

// Event represents a channel transition to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Channel   string
	Position  int64
	Target    float64
	Idle      bool
}

// ChannelState is a point-in-time view of a Channel.
type ChannelState struct {
	Name        string
	Position    float64
	Target      float64
	LastOutput  int64
	Moving      bool
	Idle        bool
	IdleEnabled bool
	Debug       bool
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Moving  int
	Settled int
	Idle    int
	Active  int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
