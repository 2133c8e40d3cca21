// Package osc builds and recognizes the terminal control sequences used
// for shell integration: OSC 133 semantic prompt marks, OSC 2 title
// updates, DECSCUSR cursor shapes, and the @promptdeck DCS event channel.
package osc

import (
	"encoding/base64"
	"strconv"
	"strings"
)

const (
	esc = "\x1b"
	bel = "\a"

	// st is the DCS/OSC string terminator (ESC \).
	st = esc + "\\"
)

// Mode is the line editor's input mode, as reported by the host shell.
type Mode int

const (
	ModeNormal Mode = iota
	ModeInsert
	ModeVisual
)

// ParseMode maps a host-reported keymap name to a Mode. Unrecognized
// names fall back to insert, which is what a fresh zle line starts in.
func ParseMode(name string) Mode {
	switch name {
	case "vicmd", "normal":
		return ModeNormal
	case "visual":
		return ModeVisual
	default:
		return ModeInsert
	}
}

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeVisual:
		return "visual"
	default:
		return "insert"
	}
}

// PromptStart marks the beginning of a new prompt (OSC 133;A).
func PromptStart() []byte {
	return []byte(esc + "]133;A" + bel)
}

// PromptStartRedrawable is the prompt-start variant safe to embed in a
// prompt template the host redraws repeatedly (k=s: redraw, same line).
func PromptStartRedrawable() []byte {
	return []byte(esc + "]133;A;k=s" + bel)
}

// InputStart marks the point where user input begins (OSC 133;B).
func InputStart() []byte {
	return []byte(esc + "]133;B" + bel)
}

// CommandStart marks the start of command execution; everything after
// it belongs to the command's output (OSC 133;C).
func CommandStart() []byte {
	return []byte(esc + "]133;C" + bel)
}

// CommandEnd closes the current command with its exit status
// (OSC 133;D;<status>). Status is clamped to the 0..255 range shells
// store in $?.
func CommandEnd(status int) []byte {
	if status < 0 {
		status = 0
	}
	if status > 255 {
		status &= 0xff
	}
	return []byte(esc + "]133;D;" + strconv.Itoa(status) + bel)
}

// CommandEndBare closes a command without reporting a status. Used as
// the defensive close on prompts where no command is structurally
// pending but a stray open mark may exist.
func CommandEndBare() []byte {
	return []byte(esc + "]133;D" + bel)
}

// CursorShape selects the cursor for the given input mode: blinking
// block for normal/visual, blinking bar for insert (DECSCUSR).
func CursorShape(m Mode) []byte {
	if m == ModeInsert {
		return []byte(esc + "[5 q")
	}
	return []byte(esc + "[1 q")
}

// Title sets the terminal title (OSC 2). Raw control bytes in text are
// replaced with printable escapes first so the payload can neither
// terminate the sequence early nor inject one of its own.
func Title(text string) []byte {
	return []byte(esc + "]2;" + EscapeControls(text) + bel)
}

// DebugPrint wraps msg in a kitty print DCS so debug output renders in
// the terminal emulator's own log rather than the session.
func DebugPrint(msg string) []byte {
	return []byte(esc + "P@kitty-print|" + base64.StdEncoding.EncodeToString([]byte(msg)) + st)
}

// EscapeControls rewrites control characters as printable escapes:
// newline, tab and carriage return as their backslash forms, every
// other C0 byte and DEL in caret notation.
func EscapeControls(s string) string {
	if !strings.ContainsFunc(s, isControl) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\r':
			b.WriteString(`\r`)
		case r < 0x20:
			b.WriteByte('^')
			b.WriteByte(byte(r) + 0x40)
		case r == 0x7f:
			b.WriteString("^?")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}
