// Package lifecycle tracks the prompt/command lifecycle of an
// interactive shell session and decides which control sequences to
// emit on each host event. It owns the session state, the marker
// patching of prompt templates, and the self-healing behavior around
// out-of-order events; the byte formats themselves live in package osc.
package lifecycle

import "github.com/asheshgoplani/promptdeck/internal/logging"

var log = logging.ForComponent(logging.CompLifecycle)

// Phase is the position of the session in the prompt/command cycle.
type Phase int

const (
	// PhaseIdle: no output mark has been written yet (fresh session).
	PhaseIdle Phase = iota
	// PhaseAwaitingClose: a command-start mark was emitted and has not
	// been closed with an end mark.
	PhaseAwaitingClose
	// PhaseClosed: the last cycle completed; a prompt-start/command-end
	// pair was fully emitted and no new output mark is open.
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingClose:
		return "awaiting-close"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// State is the per-session lifecycle state. There is exactly one
// instance per session, owned and mutated only by the Controller.
type State struct {
	Phase          Phase
	LastExitStatus int

	// PrimaryMarker and SecondaryMarker hold the marker text the
	// controller last injected into the primary/continuation prompt
	// templates, empty when none is injected. Kept so the exact same
	// text can be found and stripped again.
	PrimaryMarker   string
	SecondaryMarker string

	// inputMarkDone records that the input-start mark was already
	// emitted for the current prompt, so mode changes after the first
	// do not re-mark the input region.
	inputMarkDone bool
}
