package osc

import (
	"encoding/base64"
	"testing"
)

func event(payload string) string {
	return EventIntro + payload + EventTerminator
}

// splitTokens separates a token stream into the passthrough bytes and
// the decoded events.
func splitTokens(tokens []Token) ([]byte, []Event) {
	var out []byte
	var events []Event
	for _, tok := range tokens {
		if tok.Event != nil {
			events = append(events, *tok.Event)
			continue
		}
		out = append(out, tok.Data...)
	}
	return out, events
}

func TestScannerPassthrough(t *testing.T) {
	s := NewScanner()
	out, events := splitTokens(s.Scan([]byte("plain output\x1b[31mcolored\x1b[0m")))
	if string(out) != "plain output\x1b[31mcolored\x1b[0m" {
		t.Errorf("passthrough mangled: %q", out)
	}
	if len(events) != 0 {
		t.Errorf("unexpected events: %v", events)
	}
}

func TestScannerExtractsEvents(t *testing.T) {
	b64 := base64.StdEncoding.EncodeToString([]byte("ls -la"))

	tests := []struct {
		name     string
		input    string
		wantOut  string
		wantKind []EventKind
	}{
		{
			"precmd between output",
			"before" + event("precmd;0") + "after",
			"beforeafter",
			[]EventKind{KindPrecmd},
		},
		{
			"preexec with encoded command",
			event("preexec;" + b64),
			"",
			[]EventKind{KindPreexec},
		},
		{
			"mode change",
			event("mode;vicmd"),
			"",
			[]EventKind{KindMode},
		},
		{
			"back to back events",
			event("precmd;1") + event("mode;viins"),
			"",
			[]EventKind{KindPrecmd, KindMode},
		},
		{
			"malformed payload dropped silently",
			"x" + event("bogus;42") + "y",
			"xy",
			nil,
		},
		{
			"non numeric status dropped",
			event("precmd;abc"),
			"",
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScanner()
			out, events := splitTokens(s.Scan([]byte(tt.input)))
			if string(out) != tt.wantOut {
				t.Errorf("out = %q, want %q", out, tt.wantOut)
			}
			if len(events) != len(tt.wantKind) {
				t.Fatalf("got %d events, want %d", len(events), len(tt.wantKind))
			}
			for i, k := range tt.wantKind {
				if events[i].Kind != k {
					t.Errorf("event %d kind = %v, want %v", i, events[i].Kind, k)
				}
			}
		})
	}
}

func TestScannerPreservesOrder(t *testing.T) {
	// An event embedded between two runs of output must come out between
	// them, not before or after; the supervisor splices its own
	// sequences in at the event's position.
	s := NewScanner()
	tokens := s.Scan([]byte("aa" + event("precmd;0") + "bb"))

	if len(tokens) != 3 {
		t.Fatalf("got %d tokens, want 3: %+v", len(tokens), tokens)
	}
	if string(tokens[0].Data) != "aa" {
		t.Errorf("token 0 = %q, want %q", tokens[0].Data, "aa")
	}
	if tokens[1].Event == nil || tokens[1].Event.Kind != KindPrecmd {
		t.Errorf("token 1 is not the precmd event: %+v", tokens[1])
	}
	if string(tokens[2].Data) != "bb" {
		t.Errorf("token 2 = %q, want %q", tokens[2].Data, "bb")
	}
}

func TestScannerDecodesFields(t *testing.T) {
	s := NewScanner()

	_, events := splitTokens(s.Scan([]byte(event("precmd;130"))))
	if len(events) != 1 || events[0].Status != 130 {
		t.Fatalf("precmd status: %+v", events)
	}

	b64 := base64.StdEncoding.EncodeToString([]byte("git commit -m 'x'"))
	_, events = splitTokens(s.Scan([]byte(event("preexec;" + b64))))
	if len(events) != 1 || events[0].Command != "git commit -m 'x'" {
		t.Fatalf("preexec command: %+v", events)
	}

	_, events = splitTokens(s.Scan([]byte(event("mode;visual"))))
	if len(events) != 1 || events[0].Mode != ModeVisual {
		t.Fatalf("mode: %+v", events)
	}
}

func TestScannerSplitAcrossReads(t *testing.T) {
	full := "out1" + event("precmd;0") + "out2"

	// Feed the stream one byte at a time; the event must still be
	// recognized exactly once and no event bytes may leak through.
	s := NewScanner()
	var out []byte
	var events []Event
	for i := 0; i < len(full); i++ {
		o, evs := splitTokens(s.Scan([]byte{full[i]}))
		out = append(out, o...)
		events = append(events, evs...)
	}
	out = append(out, s.Flush()...)

	if string(out) != "out1out2" {
		t.Errorf("out = %q, want %q", out, "out1out2")
	}
	if len(events) != 1 || events[0].Kind != KindPrecmd {
		t.Errorf("events = %+v", events)
	}
}

func TestScannerSplitMidIntro(t *testing.T) {
	s := NewScanner()
	seq := event("mode;vicmd")

	out1, evs1 := splitTokens(s.Scan([]byte("abc" + seq[:5])))
	out2, evs2 := splitTokens(s.Scan([]byte(seq[5:] + "def")))

	if got := string(out1) + string(out2); got != "abcdef" {
		t.Errorf("out = %q", got)
	}
	if len(evs1)+len(evs2) != 1 {
		t.Errorf("events: %v %v", evs1, evs2)
	}
}

func TestScannerFlushReturnsTruncatedTrailer(t *testing.T) {
	s := NewScanner()
	partial := EventIntro + "precmd;0" // never terminated

	out, events := splitTokens(s.Scan([]byte(partial)))
	if len(out) != 0 || len(events) != 0 {
		t.Fatalf("partial sequence leaked early: out=%q events=%v", out, events)
	}
	if got := s.Flush(); string(got) != partial {
		t.Errorf("Flush() = %q, want %q", got, partial)
	}
}

func TestScannerOversizedUnterminatedPassesThrough(t *testing.T) {
	s := NewScanner()
	junk := make([]byte, maxEventLen+10)
	for i := range junk {
		junk[i] = 'x'
	}
	input := append([]byte(EventIntro), junk...)

	out, events := splitTokens(s.Scan(input))
	if len(events) != 0 {
		t.Errorf("unexpected events: %v", events)
	}
	if string(out) != string(input) {
		t.Errorf("oversized candidate not forwarded verbatim")
	}
}

func TestScannerPlainEscNotHeld(t *testing.T) {
	// A lone ESC that is a prefix of the intro is held, but ESC followed
	// by something else flows through immediately.
	s := NewScanner()
	out, _ := splitTokens(s.Scan([]byte("a\x1b[2Jb")))
	if string(out) != "a\x1b[2Jb" {
		t.Errorf("out = %q", out)
	}
}
