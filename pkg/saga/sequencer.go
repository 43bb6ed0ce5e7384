package saga

// The compensation sequencer is a pure backward walk over the catalog. Steps
// declared without compensation have no meaningful undo (a read-only
// calculation, a notification), so the walk skips them silently instead of
// requiring a no-op compensation for every step.

// CompensableAtOrBefore returns the position of the nearest compensable step
// at or before pos. The walk is inclusive because on the initial failure a
// compensable step compensates itself first.
func (c *Catalog) CompensableAtOrBefore(pos int) (int, bool) {
	if pos >= len(c.steps) {
		pos = len(c.steps) - 1
	}
	for p := pos; p >= 0; p-- {
		if c.steps[p].Compensable {
			return p, true
		}
	}
	return 0, false
}

// PreviousCompensable returns the position of the nearest compensable step
// strictly before pos. False means the walk is exhausted and the saga has
// reached its terminal failed outcome.
func (c *Catalog) PreviousCompensable(pos int) (int, bool) {
	return c.CompensableAtOrBefore(pos - 1)
}
