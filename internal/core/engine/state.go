package engine

// State is the serializable engine state, used by the persistence
// layer alongside the ledger and policy snapshots.
type State struct {
	Launched     bool
	Tick         uint64
	LastSwapTick uint64
}

// ExportState captures the engine's persisted flags.
func (e *Engine) ExportState() State {
	return State{
		Launched:     e.launched,
		Tick:         e.tick,
		LastSwapTick: e.lastSwapTick,
	}
}

// RestoreState reinstates persisted flags after a restart. Launch
// monotonicity is preserved: restore never clears an already-set
// launch flag.
func (e *Engine) RestoreState(s State) {
	if s.Launched {
		e.launched = true
	}
	e.tick = s.Tick
	e.lastSwapTick = s.LastSwapTick
}
