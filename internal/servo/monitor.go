package servo

import "time"

// Monitor turns successive channel observations into transition events.
type Monitor struct {
	startTime     time.Time
	lastHeartbeat time.Time
	watches       map[string]*watch
	eventCounts   EventCounts
}

// watch is the last observed state of one channel.
type watch struct {
	moving bool
	idle   bool
}

// NewMonitor creates a monitor. The startTime is used for calculating
// uptime in heartbeat events.
func NewMonitor(startTime time.Time) *Monitor {
	return &Monitor{
		startTime:     startTime,
		lastHeartbeat: startTime,
		watches:       make(map[string]*watch),
	}
}

// Process records the state of a channel after a poll and returns the
// transitions since the previous poll. settled is the result of Update.
// The first observation of a channel only establishes its baseline.
func (m *Monitor) Process(st ChannelState, settled bool, now time.Time) []Event {
	w, ok := m.watches[st.Name]
	if !ok {
		m.watches[st.Name] = &watch{moving: !settled, idle: st.Idle}
		return nil
	}

	var events []Event
	emit := func(t EventType) {
		events = append(events, Event{
			Timestamp: now,
			Type:      t,
			Channel:   st.Name,
			Position:  st.LastOutput,
			Target:    st.Target,
			Idle:      st.Idle,
		})
	}

	// Power comes back before motion resumes, and motion stops before power goes.
	if w.idle && !st.Idle {
		emit(EventActive)
	}
	if !w.moving && !settled {
		emit(EventMoving)
	}
	if w.moving && settled {
		emit(EventSettled)
	}
	if !w.idle && st.Idle {
		emit(EventIdle)
	}

	w.moving = !settled
	w.idle = st.Idle

	for _, e := range events {
		switch e.Type {
		case EventMoving:
			m.eventCounts.Moving++
		case EventSettled:
			m.eventCounts.Settled++
		case EventIdle:
			m.eventCounts.Idle++
		case EventActive:
			m.eventCounts.Active++
		}
	}
	return events
}

// IsBaselined reports whether at least one channel has been observed.
func (m *Monitor) IsBaselined() bool {
	return len(m.watches) > 0
}

// EventCountsSnapshot returns the counts so far.
func (m *Monitor) EventCountsSnapshot() EventCounts {
	return m.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (m *Monitor) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if !m.IsBaselined() {
		return nil
	}
	if now.Sub(m.lastHeartbeat) < interval {
		return nil
	}
	m.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(m.startTime),
		Counts:    m.eventCounts,
	}
}
