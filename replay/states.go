package replay

import "fmt"

// State of the playback machine.
type State string

const (
	StateIdle      State = "IDLE"      // no query submitted, or reset
	StateLoading   State = "LOADING"   // page fetch in flight
	StatePaused    State = "PAUSED"    // page held, cursor parked
	StatePlaying   State = "PLAYING"   // timer advancing the cursor
	StateExhausted State = "EXHAUSTED" // query window contained no frames
)

type stateTransition struct {
	From State
	To   State
}

var legalTransitions = map[stateTransition]bool{
	{StateIdle, StateLoading}: true,

	{StateLoading, StatePaused}:    true,
	{StateLoading, StatePlaying}:   true, // page-advance with play intent
	{StateLoading, StateExhausted}: true,
	{StateLoading, StateIdle}:      true, // failed initial load, or reset

	{StatePaused, StatePlaying}: true,
	{StatePaused, StateLoading}: true, // manual step across a page boundary
	{StatePaused, StateIdle}:    true,

	{StatePlaying, StatePaused}:  true,
	{StatePlaying, StateLoading}: true,
	{StatePlaying, StateIdle}:    true,

	{StateExhausted, StateIdle}: true,
}

// validateTransition reports whether from -> to is a legal playback
// transition. Same-state transitions are allowed (idempotent).
func validateTransition(from, to State) error {
	if from == to {
		return nil
	}
	if !legalTransitions[stateTransition{From: from, To: to}] {
		return fmt.Errorf("illegal state transition: %s -> %s", from, to)
	}
	return nil
}

// IsTerminal reports whether the state cannot advance without a new
// query.
func IsTerminal(s State) bool {
	return s == StateExhausted
}
