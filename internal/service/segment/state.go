package segment

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of an utterance segment.
type State int

const (
	// StateOpen - segment is active, can emit partials.
	StateOpen State = iota
	// StateFinalEmitted - final transcript emitted, waiting to close.
	StateFinalEmitted
	// StateClosed - segment closed normally.
	StateClosed
	// StateDropped - segment abandoned after an error, no final emitted.
	// Terminal. Silence beats bad data.
	StateDropped
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateFinalEmitted:
		return "FINAL_EMITTED"
	case StateClosed:
		return "CLOSED"
	case StateDropped:
		return "DROPPED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true for CLOSED and DROPPED.
func (s State) IsTerminal() bool {
	return s == StateClosed || s == StateDropped
}

// Errors for invalid state transitions.
var (
	ErrSegmentClosed               = errors.New("segment is closed")
	ErrFinalAlreadyEmitted         = errors.New("final already emitted for this segment")
	ErrCannotEmitPartialAfterFinal = errors.New("cannot emit partial after final")
)

// Lifecycle manages the state machine for a single segment.
// Thread-safe for concurrent access.
//
// Transitions: OPEN -> FINAL_EMITTED -> CLOSED, with DROPPED reachable
// from any non-terminal state. Partials are only valid in OPEN; the final
// is emitted at most once.
type Lifecycle struct {
	mu        sync.RWMutex
	segmentId string
	state     State
}

// NewLifecycle creates a new segment lifecycle in OPEN state.
func NewLifecycle(segmentId string) *Lifecycle {
	return &Lifecycle{
		segmentId: segmentId,
		state:     StateOpen,
	}
}

// SegmentId returns the segment ID.
func (l *Lifecycle) SegmentId() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.segmentId
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsClosed returns true if the segment is in a terminal state.
func (l *Lifecycle) IsClosed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.IsTerminal()
}

// IsDropped returns true if the segment was dropped due to error.
func (l *Lifecycle) IsDropped() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateDropped
}

// EmitPartial validates a partial emission.
func (l *Lifecycle) EmitPartial() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateOpen:
		return nil
	case StateFinalEmitted:
		return ErrCannotEmitPartialAfterFinal
	case StateClosed, StateDropped:
		return ErrSegmentClosed
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// EmitFinal validates a final emission and transitions to FINAL_EMITTED.
func (l *Lifecycle) EmitFinal() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateOpen:
		l.state = StateFinalEmitted
		return nil
	case StateFinalEmitted:
		return ErrFinalAlreadyEmitted
	case StateClosed, StateDropped:
		return ErrSegmentClosed
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// Close transitions to CLOSED. Callable from any state, idempotent.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = StateClosed
}

// Drop abandons the segment without emitting a final. Used on STT errors,
// client disconnects, and streams that never produced a final.
// Returns false if the segment was already terminal.
func (l *Lifecycle) Drop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return false
	}
	l.state = StateDropped
	return true
}

// Reset reopens the lifecycle with a new segment ID after an utterance
// boundary.
func (l *Lifecycle) Reset(newSegmentId string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.segmentId = newSegmentId
	l.state = StateOpen
}
