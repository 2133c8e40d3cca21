package lifecycle

// Host is the narrow view of the shell the controller runs against.
// Implementations decide how much of the shell they can actually
// reach: a host that cannot expose mutable prompt templates returns
// ok=false from the getters and the controller falls back to writing
// marks directly to the output stream.
type Host interface {
	// PrimaryPrompt returns the primary prompt template and whether it
	// is exposed as mutable.
	PrimaryPrompt() (template string, ok bool)
	// SetPrimaryPrompt commits a patched primary template back to the
	// shell. Only called after PrimaryPrompt returned ok.
	SetPrimaryPrompt(template string)

	// ContinuationPrompt and SetContinuationPrompt mirror the primary
	// pair for the continuation (multi-line) prompt.
	ContinuationPrompt() (template string, ok bool)
	SetContinuationPrompt(template string)

	// EditingActive reports whether the line editor is currently mid
	// edit. A pre-prompt event arriving while editing is a nested
	// redraw, not a genuine new prompt.
	EditingActive() bool

	// FinalHook reports whether the controller's pre-prompt hook is the
	// last one the host will run, i.e. nothing can overwrite its prompt
	// mutations afterwards.
	FinalHook() bool
	// RequestFinalHook asks the host to move the controller's hook to
	// the end of the invocation order for the next cycle. Best effort.
	RequestFinalHook()

	// WorkingDir returns the shell's current working directory, used
	// for title updates. Empty when unknown.
	WorkingDir() string
}
