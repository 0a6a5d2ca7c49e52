package engine

// SimulationClock holds the current simulated time in unix seconds.
// The run loop is the only caller of AdvanceBy; AdvanceTo exists for
// run start and reset. Every historical fetch is bounded by Now, which is
// what keeps strategies from seeing data out of the future.
type SimulationClock struct {
	current int64
}

func NewSimulationClock(start int64) *SimulationClock {
	return &SimulationClock{current: start}
}

func (c *SimulationClock) Now() int64 {
	return c.current
}

func (c *SimulationClock) AdvanceBy(seconds int64) {
	c.current += seconds
}

func (c *SimulationClock) AdvanceTo(timestamp int64) {
	c.current = timestamp
}
