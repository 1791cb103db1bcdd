package servo

// Status is the packed capability word of a Channel.
type Status uint32

const (
	DebugMsgs  Status = 0x01 // log state transitions and writes
	OutputIdle Status = 0x02 // servo detached and pin high impedance
	EnableIdle Status = 0x04 // power down after idleWait once settled
)

func (c *Channel) has(f Status) bool { return c.status&f == f }
func (c *Channel) set(f Status)      { c.status |= f }
func (c *Channel) clr(f Status)      { c.status &^= f }

// Debug reports whether debug logging is enabled.
func (c *Channel) Debug() bool { return c.has(DebugMsgs) }

// SetDebug enables debug logging.
func (c *Channel) SetDebug() { c.set(DebugMsgs) }

// ClearDebug disables debug logging.
func (c *Channel) ClearDebug() { c.clr(DebugMsgs) }

// Idle reports whether the output is currently detached.
func (c *Channel) Idle() bool { return c.has(OutputIdle) }

// SetIdle marks the output detached. It does not touch hardware.
func (c *Channel) SetIdle() { c.set(OutputIdle) }

// ClearIdle marks the output attached. It does not touch hardware.
func (c *Channel) ClearIdle() { c.clr(OutputIdle) }

// IdleEnabled reports whether idle power management is enabled.
func (c *Channel) IdleEnabled() bool { return c.has(EnableIdle) }

// SetIdleEnabled enables idle power management.
func (c *Channel) SetIdleEnabled() { c.set(EnableIdle) }

// ClearIdleEnabled disables idle power management.
func (c *Channel) ClearIdleEnabled() { c.clr(EnableIdle) }

// Status returns the raw capability word.
func (c *Channel) Status() Status { return c.status }
