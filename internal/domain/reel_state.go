package domain

import (
	"errors"
	"fmt"
)

// ReelEvent is an input to the reel upload state machine.
type ReelEvent string

const (
	EventComplete ReelEvent = "complete" // bytes are in storage
	EventReady    ReelEvent = "ready"    // playback metadata is final
	EventFail     ReelEvent = "fail"     // the client gave up on this upload
)

// ErrIllegalTransition is returned for any (state, event) pair outside the table.
var ErrIllegalTransition = errors.New("illegal reel status transition")

// Effects lists the side effects a transition asks the caller to apply
// together with the new status.
type Effects struct {
	ClearFailure   bool
	SetFailure     bool
	StampProcessed bool // only honoured when ProcessedAt is still unset
}

type transitionKey struct {
	from  ReelStatus
	event ReelEvent
}

type transitionRule struct {
	to      ReelStatus
	effects Effects
}

// reelTransitions is the whole upload lifecycle. ready may be re-affirmed
// with fresh metadata, nothing else leaves ready. failed reels are abandoned.
var reelTransitions = map[transitionKey]transitionRule{
	{StatusUploading, EventComplete}:  {StatusProcessing, Effects{ClearFailure: true}},
	{StatusProcessing, EventComplete}: {StatusProcessing, Effects{ClearFailure: true}},

	{StatusProcessing, EventReady}: {StatusReady, Effects{ClearFailure: true, StampProcessed: true}},
	{StatusReady, EventReady}:      {StatusReady, Effects{ClearFailure: true, StampProcessed: true}},

	{StatusUploading, EventFail}:  {StatusFailed, Effects{SetFailure: true}},
	{StatusProcessing, EventFail}: {StatusFailed, Effects{SetFailure: true}},
	{StatusFailed, EventFail}:     {StatusFailed, Effects{SetFailure: true}},
}

// Transition is the single transition function of the reel state machine.
func Transition(current ReelStatus, event ReelEvent) (ReelStatus, Effects, error) {
	rule, ok := reelTransitions[transitionKey{current, event}]
	if !ok {
		return current, Effects{}, fmt.Errorf("%w: cannot %s a reel that is %s", ErrIllegalTransition, event, current)
	}
	return rule.to, rule.effects, nil
}

// CanTransition reports whether event is accepted in state current.
func CanTransition(current ReelStatus, event ReelEvent) bool {
	_, ok := reelTransitions[transitionKey{current, event}]
	return ok
}
