package safety

// Confirmation counts interval-spaced consecutive observations of a fault
// condition. A single clean observation resets it, so transients never
// accumulate.
type Confirmation struct {
	Threshold  int
	IntervalMs int64

	count       int
	lastCheckMs int64
}

// Observe feeds one observation. It returns true exactly when the
// threshold-th consecutive confirmation lands, then starts over.
func (c *Confirmation) Observe(nowMs int64, condition bool) bool {
	if !condition {
		c.count = 0
		return false
	}
	if c.lastCheckMs != 0 && nowMs-c.lastCheckMs < c.IntervalMs {
		return false
	}
	c.lastCheckMs = nowMs
	c.count++
	if c.count >= c.Threshold {
		c.count = 0
		return true
	}
	return false
}

func (c *Confirmation) Reset() {
	c.count = 0
	c.lastCheckMs = 0
}

func (c *Confirmation) Count() int {
	return c.count
}
