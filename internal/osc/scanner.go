package osc

import (
	"bytes"
	"encoding/base64"
	"strconv"
	"strings"
)

// EventIntro opens a @promptdeck DCS event sequence. The shell-side
// hooks emit these; the supervisor strips them from the output stream.
const EventIntro = esc + "P@promptdeck|"

// EventTerminator closes a @promptdeck DCS event sequence.
const EventTerminator = st

// maxEventLen bounds an unterminated candidate sequence. Anything
// longer is passed through verbatim rather than buffered forever.
const maxEventLen = 4096

// EventKind identifies a shell lifecycle event on the wire.
type EventKind int

const (
	// KindPrecmd fires before each new prompt; carries the exit status
	// of the command that just finished.
	KindPrecmd EventKind = iota
	// KindPreexec fires before a typed command executes; carries the
	// command text.
	KindPreexec
	// KindMode fires when the line editor's keymap changes.
	KindMode
)

// Event is a decoded shell lifecycle event.
type Event struct {
	Kind    EventKind
	Status  int    // KindPrecmd
	Command string // KindPreexec
	Mode    Mode   // KindMode
}

// Token is one element of the scanned stream: either passthrough bytes
// or a decoded event, never both. Tokens preserve stream order, which
// matters because the supervisor splices its own sequences in at the
// exact position the event occupied.
type Token struct {
	Data  []byte
	Event *Event
}

// Scanner incrementally extracts @promptdeck events from a PTY output
// stream. Ordinary bytes pass through untouched; event sequences are
// removed and decoded, even when split across reads.
type Scanner struct {
	pending []byte
}

// NewScanner returns a Scanner with no buffered state.
func NewScanner() *Scanner {
	return &Scanner{}
}

var (
	introBytes = []byte(EventIntro)
	termBytes  = []byte(EventTerminator)
)

// Scan consumes chunk and returns the ordered tokens recognized so
// far. A partial sequence at the end of the chunk is held back until
// the next call; Flush releases it.
func (s *Scanner) Scan(chunk []byte) []Token {
	buf := chunk
	if len(s.pending) > 0 {
		buf = append(s.pending, chunk...)
		s.pending = nil
	}

	var tokens []Token
	data := func(b []byte) {
		if len(b) > 0 {
			// Copy: buf may alias the caller's read buffer.
			tokens = append(tokens, Token{Data: append([]byte(nil), b...)})
		}
	}

	for {
		i := bytes.Index(buf, introBytes)
		if i == -1 {
			// Hold back a trailing partial intro so a sequence split
			// mid-prefix is still recognized on the next read.
			keep := partialIntroLen(buf)
			data(buf[:len(buf)-keep])
			if keep > 0 {
				s.pending = append(s.pending, buf[len(buf)-keep:]...)
			}
			return tokens
		}

		data(buf[:i])
		rest := buf[i:]

		j := bytes.Index(rest[len(introBytes):], termBytes)
		if j == -1 {
			if len(rest) > maxEventLen {
				// Unterminated and oversized: not one of ours, forward it.
				data(rest)
				return tokens
			}
			s.pending = append(s.pending, rest...)
			return tokens
		}

		payload := string(rest[len(introBytes) : len(introBytes)+j])
		if ev, ok := parseEvent(payload); ok {
			tokens = append(tokens, Token{Event: &ev})
		}
		buf = rest[len(introBytes)+j+len(termBytes):]
	}
}

// Flush returns any held-back partial sequence. Call when the stream
// ends so a truncated trailer is not silently dropped.
func (s *Scanner) Flush() []byte {
	p := s.pending
	s.pending = nil
	return p
}

// partialIntroLen returns the length of the longest suffix of buf that
// is a proper prefix of the event intro.
func partialIntroLen(buf []byte) int {
	max := len(introBytes) - 1
	if max > len(buf) {
		max = len(buf)
	}
	for n := max; n > 0; n-- {
		if bytes.Equal(buf[len(buf)-n:], introBytes[:n]) {
			return n
		}
	}
	return 0
}

// parseEvent decodes an event payload. Malformed payloads are dropped;
// the wire is best-effort and a bad event must never corrupt the
// session.
func parseEvent(payload string) (Event, bool) {
	kind, rest, _ := strings.Cut(payload, ";")
	switch kind {
	case "precmd":
		status, err := strconv.Atoi(rest)
		if err != nil {
			return Event{}, false
		}
		return Event{Kind: KindPrecmd, Status: status}, true
	case "preexec":
		cmd := rest
		if decoded, err := base64.StdEncoding.DecodeString(rest); err == nil {
			cmd = string(decoded)
		}
		return Event{Kind: KindPreexec, Command: cmd}, true
	case "mode":
		return Event{Kind: KindMode, Mode: ParseMode(rest)}, true
	default:
		return Event{}, false
	}
}
