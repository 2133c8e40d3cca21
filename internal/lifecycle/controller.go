package lifecycle

import (
	"io"

	"github.com/asheshgoplani/promptdeck/internal/osc"
)

// Options selects which sub-behaviors the controller drives. All
// default to off; callers enable what their config asks for. Disabled
// behaviors contribute no bytes but never block state transitions.
type Options struct {
	Marks  bool // OSC 133 prompt/command marks
	Cursor bool // cursor-shape switching on mode changes
	Title  bool // terminal-title updates

	// HomeTilde and MaxComponents configure directory abbreviation for
	// title updates; see AbbrevDir.
	HomeTilde     bool
	MaxComponents int
}

// Controller is the prompt-lifecycle state machine. The host invokes
// it synchronously from its own single-threaded hook points, so no
// locking is needed: the only hazard is re-entrancy, which the
// EditingActive gate handles.
type Controller struct {
	host Host
	out  io.Writer
	opts Options

	state State
}

// New returns a controller in the initial (idle) phase.
func New(host Host, out io.Writer, opts Options) *Controller {
	return &Controller{host: host, out: out, opts: opts}
}

// State returns a copy of the current session state.
func (c *Controller) State() State {
	return c.state
}

// SetOptions swaps the behavior selection, e.g. after a live config
// reload. Phase and markers are preserved; a mark left open under the
// old options still gets its close under the new ones.
func (c *Controller) SetOptions(opts Options) {
	c.opts = opts
}

// PrePrompt handles the host's pre-prompt event. status is the exit
// status of the command that just finished (ignored unless a close is
// structurally pending).
func (c *Controller) PrePrompt(status int) {
	if c.host.EditingActive() {
		// Nested redraw fired from within an active edit: closing here
		// would drop a stray end mark into the middle of user input.
		log.Debug("pre-prompt during edit, skipping", "phase", c.state.Phase.String())
		return
	}

	if c.opts.Marks {
		switch c.state.Phase {
		case PhaseAwaitingClose:
			c.state.LastExitStatus = status
			c.emit(osc.CommandEnd(status))
		case PhaseClosed:
			// Self-heal: close any mark the controller lost track of,
			// e.g. output printed by another hook.
			c.emit(osc.CommandEndBare())
		}

		if !c.patchPrompts() {
			c.emit(osc.PromptStart())
		}
	}

	if c.opts.Title {
		c.emit(osc.Title(AbbrevDir(c.host.WorkingDir(), c.opts.HomeTilde, c.opts.MaxComponents)))
	}

	c.state.Phase = PhaseClosed
	c.state.inputMarkDone = false
}

// PreExec handles the host's pre-execution event. cmd is the typed
// command about to run.
func (c *Controller) PreExec(cmd string) {
	c.stripPrompts()

	if c.opts.Marks {
		if c.state.Phase == PhaseAwaitingClose {
			// A pre-execution with a mark still open means the matching
			// pre-prompt never fired (or fired mid-edit). Close before
			// opening so no two start marks run back to back.
			c.emit(osc.CommandEndBare())
		}
		c.emit(osc.CommandStart())
	}
	if c.opts.Title {
		c.emit(osc.Title(cmd))
	}

	c.state.Phase = PhaseAwaitingClose
}

// ModeChange handles an input-mode change. The first mode change after
// a prompt draw means the line editor came up for this prompt, which
// is where the input-start mark belongs.
func (c *Controller) ModeChange(mode osc.Mode) {
	if c.opts.Marks && c.state.Phase == PhaseClosed && !c.state.inputMarkDone {
		c.emit(osc.InputStart())
		c.state.inputMarkDone = true
	}
	if c.opts.Cursor {
		c.emit(osc.CursorShape(mode))
	}
}

// patchPrompts splices the prompt-start marker into the host's prompt
// templates. Returns false when patching is not possible this cycle
// (templates not mutable, or another hook runs after ours and could
// overwrite the mutation) and the caller should write the mark
// directly instead.
func (c *Controller) patchPrompts() bool {
	if !c.host.FinalHook() {
		// Degrade for this cycle, reclaim the position for the next.
		c.host.RequestFinalHook()
		log.Debug("not final hook, direct-write fallback")
		return false
	}

	primary, ok := c.host.PrimaryPrompt()
	if !ok {
		return false
	}

	marker := string(osc.PromptStartRedrawable())
	if patched := Insert(primary, marker); patched != primary {
		c.host.SetPrimaryPrompt(patched)
	}
	c.state.PrimaryMarker = marker

	if cont, ok := c.host.ContinuationPrompt(); ok {
		if patched := Insert(cont, marker); patched != cont {
			c.host.SetContinuationPrompt(patched)
		}
		c.state.SecondaryMarker = marker
	}
	return true
}

// stripPrompts removes previously injected markers so they do not leak
// into command echo or duplicate on the next draw.
func (c *Controller) stripPrompts() {
	if c.state.PrimaryMarker != "" {
		if primary, ok := c.host.PrimaryPrompt(); ok {
			c.host.SetPrimaryPrompt(Remove(primary, c.state.PrimaryMarker))
		}
		c.state.PrimaryMarker = ""
	}
	if c.state.SecondaryMarker != "" {
		if cont, ok := c.host.ContinuationPrompt(); ok {
			c.host.SetContinuationPrompt(Remove(cont, c.state.SecondaryMarker))
		}
		c.state.SecondaryMarker = ""
	}
}

// emit writes a sequence to the output stream. Emission cannot fail in
// any way the session could observe; write errors are logged and
// dropped.
func (c *Controller) emit(seq []byte) {
	if _, err := c.out.Write(seq); err != nil {
		log.Debug("emit failed", "error", err)
	}
}
