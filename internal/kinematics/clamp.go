package kinematics

// TimestampClamp forces a strictly increasing millisecond timestamp
// sequence for one subject. Video seeks and duplicate frames otherwise
// produce repeated or backwards timestamps.
type TimestampClamp struct {
	last int64
	seen bool
}

// Clamp returns ms, or one millisecond past the previous value when ms does
// not advance.
func (c *TimestampClamp) Clamp(ms int64) int64 {
	if c.seen && ms <= c.last {
		Tracef("timestamp %d clamped to %d", ms, c.last+1)
		ms = c.last + 1
	}
	c.last = ms
	c.seen = true
	return ms
}

// Reset forgets the previous timestamp.
func (c *TimestampClamp) Reset() {
	c.last = 0
	c.seen = false
}
