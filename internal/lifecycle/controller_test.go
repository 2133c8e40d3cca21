package lifecycle

import (
	"bytes"
	"strings"
	"testing"

	"github.com/asheshgoplani/promptdeck/internal/osc"
)

// fakeHost is an in-memory Host for driving the controller in tests.
type fakeHost struct {
	ps1, ps2      string
	mutable       bool
	editing       bool
	final         bool
	finalRequests int
	wd            string
}

func (h *fakeHost) PrimaryPrompt() (string, bool)      { return h.ps1, h.mutable }
func (h *fakeHost) SetPrimaryPrompt(t string)          { h.ps1 = t }
func (h *fakeHost) ContinuationPrompt() (string, bool) { return h.ps2, h.mutable }
func (h *fakeHost) SetContinuationPrompt(t string)     { h.ps2 = t }
func (h *fakeHost) EditingActive() bool                { return h.editing }
func (h *fakeHost) FinalHook() bool                    { return h.final }
func (h *fakeHost) RequestFinalHook()                  { h.finalRequests++ }
func (h *fakeHost) WorkingDir() string                 { return h.wd }

func marksOnly() Options { return Options{Marks: true} }

func TestBasicCycleEmitsMarksInOrder(t *testing.T) {
	// Direct-write host: prompts not mutable, so every mark goes to the
	// output stream where we can assert on it byte for byte.
	host := &fakeHost{}
	var out bytes.Buffer
	c := New(host, &out, marksOnly())

	c.PrePrompt(0)
	c.PreExec("ls")
	c.PrePrompt(0)

	want := string(osc.PromptStart()) +
		string(osc.CommandStart()) +
		string(osc.CommandEnd(0))
	got := out.String()
	if !strings.HasPrefix(got, want) {
		t.Fatalf("stream = %q, want prefix %q", got, want)
	}
	if n := strings.Count(got, string(osc.CommandStart())); n != 1 {
		t.Errorf("command-start emitted %d times, want 1", n)
	}
	if n := strings.Count(got, string(osc.CommandEnd(0))); n != 1 {
		t.Errorf("command-end emitted %d times, want 1", n)
	}
}

func TestNeverTwoCommandStartsWithoutClose(t *testing.T) {
	// Adversarial event orders: whatever the host throws at the
	// controller, C marks must alternate with D marks.
	sequences := [][]func(c *Controller){
		{
			func(c *Controller) { c.PreExec("a") },
			func(c *Controller) { c.PreExec("b") },
		},
		{
			func(c *Controller) { c.PrePrompt(0) },
			func(c *Controller) { c.PreExec("a") },
			func(c *Controller) { c.PrePrompt(1) },
			func(c *Controller) { c.PreExec("b") },
			func(c *Controller) { c.PrePrompt(0) },
		},
		{
			func(c *Controller) { c.PreExec("a") },
			func(c *Controller) { c.ModeChange(osc.ModeInsert) },
			func(c *Controller) { c.PrePrompt(2) },
			func(c *Controller) { c.PrePrompt(0) },
			func(c *Controller) { c.PreExec("b") },
		},
	}

	cmdStart := string(osc.CommandStart())
	for i, seq := range sequences {
		host := &fakeHost{}
		var out bytes.Buffer
		c := New(host, &out, marksOnly())
		for _, ev := range seq {
			ev(c)
		}

		// Between any two C marks there must be a D mark.
		stream := out.String()
		parts := strings.Split(stream, cmdStart)
		for j := 1; j < len(parts)-1; j++ {
			if !strings.Contains(parts[j], "\x1b]133;D") {
				t.Errorf("sequence %d: consecutive command-starts without close: %q", i, stream)
			}
		}
	}
}

func TestConsecutivePrePromptsDefensiveClose(t *testing.T) {
	host := &fakeHost{ps1: "$ ", ps2: "> ", mutable: true, final: true}
	var out bytes.Buffer
	c := New(host, &out, marksOnly())

	c.PrePrompt(0)
	patchedOnce := host.ps1
	firstLen := out.Len()

	c.PrePrompt(0)

	// Second pre-prompt with nothing pending: only the bare defensive
	// close goes to the stream, and the template is not double-marked.
	gotNew := out.String()[firstLen:]
	if gotNew != string(osc.CommandEndBare()) {
		t.Errorf("second pre-prompt emitted %q, want bare close only", gotNew)
	}
	if host.ps1 != patchedOnce {
		t.Errorf("template double-marked: %q", host.ps1)
	}
	if n := strings.Count(host.ps1, string(osc.PromptStartRedrawable())); n != 1 {
		t.Errorf("marker occurs %d times in template, want 1", n)
	}
}

func TestPatchableHostSplicesAndStrips(t *testing.T) {
	host := &fakeHost{ps1: "$ ", ps2: "> ", mutable: true, final: true}
	var out bytes.Buffer
	c := New(host, &out, marksOnly())

	c.PrePrompt(0)

	marker := string(osc.PromptStartRedrawable())
	if !strings.HasPrefix(host.ps1, marker) {
		t.Fatalf("primary not patched: %q", host.ps1)
	}
	if !strings.HasPrefix(host.ps2, marker) {
		t.Fatalf("continuation not patched: %q", host.ps2)
	}
	if strings.Contains(out.String(), string(osc.PromptStart())) {
		t.Errorf("direct mark emitted despite successful patch")
	}

	c.PreExec("make")
	if strings.Contains(host.ps1, marker) || strings.Contains(host.ps2, marker) {
		t.Errorf("markers not stripped before execution: %q / %q", host.ps1, host.ps2)
	}
	if c.State().PrimaryMarker != "" || c.State().SecondaryMarker != "" {
		t.Errorf("state still records injected markers after strip")
	}
}

func TestLostFinalHookDegradesToDirectWrite(t *testing.T) {
	host := &fakeHost{ps1: "$ ", mutable: true, final: false}
	var out bytes.Buffer
	c := New(host, &out, marksOnly())

	c.PrePrompt(0)

	if strings.Contains(host.ps1, "133") {
		t.Errorf("template patched while not final hook: %q", host.ps1)
	}
	if !strings.Contains(out.String(), string(osc.PromptStart())) {
		t.Errorf("direct-write fallback did not emit prompt start")
	}
	if host.finalRequests != 1 {
		t.Errorf("finalRequests = %d, want 1", host.finalRequests)
	}
}

func TestEditingActiveSuppressesClose(t *testing.T) {
	host := &fakeHost{}
	var out bytes.Buffer
	c := New(host, &out, marksOnly())

	c.PrePrompt(0)
	c.PreExec("sleep 1")
	before := out.Len()

	// Mid-edit redraw: a pre-prompt fired from inside the line editor
	// must not close the pending mark.
	host.editing = true
	c.PrePrompt(0)

	if out.Len() != before {
		t.Errorf("mid-edit pre-prompt emitted bytes: %q", out.String()[before:])
	}
	if c.State().Phase != PhaseAwaitingClose {
		t.Errorf("phase = %v, want awaiting-close", c.State().Phase)
	}

	// Genuine prompt afterwards closes normally.
	host.editing = false
	c.PrePrompt(3)
	if !strings.Contains(out.String(), string(osc.CommandEnd(3))) {
		t.Errorf("pending mark never closed after edit ended")
	}
	if c.State().LastExitStatus != 3 {
		t.Errorf("LastExitStatus = %d, want 3", c.State().LastExitStatus)
	}
}

func TestModeChangeEmitsInputStartOncePerPrompt(t *testing.T) {
	host := &fakeHost{}
	var out bytes.Buffer
	c := New(host, &out, Options{Marks: true, Cursor: true})

	c.PrePrompt(0)
	c.ModeChange(osc.ModeInsert)
	c.ModeChange(osc.ModeNormal)

	stream := out.String()
	if n := strings.Count(stream, string(osc.InputStart())); n != 1 {
		t.Errorf("input-start emitted %d times, want 1", n)
	}
	bar, block := string(osc.CursorShape(osc.ModeInsert)), string(osc.CursorShape(osc.ModeNormal))
	if strings.Index(stream, bar) > strings.Index(stream, block) {
		t.Errorf("cursor sequences out of order: %q", stream)
	}

	// Next prompt re-arms the input mark.
	c.PreExec("x")
	c.PrePrompt(0)
	c.ModeChange(osc.ModeInsert)
	if n := strings.Count(out.String(), string(osc.InputStart())); n != 2 {
		t.Errorf("input-start not re-armed on new prompt")
	}
}

func TestTitleUpdates(t *testing.T) {
	host := &fakeHost{wd: "/tmp/work"}
	var out bytes.Buffer
	c := New(host, &out, Options{Title: true})

	c.PrePrompt(0)
	if !strings.Contains(out.String(), string(osc.Title("/tmp/work"))) {
		t.Errorf("pre-prompt title missing: %q", out.String())
	}

	out.Reset()
	c.PreExec("echo a\nb")
	// Title carries the command with control characters escaped.
	if !strings.Contains(out.String(), `echo a\nb`) {
		t.Errorf("pre-exec title not escaped: %q", out.String())
	}
	if strings.Contains(out.String(), "a\nb") {
		t.Errorf("raw newline leaked into title: %q", out.String())
	}
}

func TestDisabledBehaviorsStillTransition(t *testing.T) {
	host := &fakeHost{}
	var out bytes.Buffer
	c := New(host, &out, Options{})

	c.PrePrompt(0)
	c.PreExec("ls")
	if out.Len() != 0 {
		t.Errorf("disabled controller emitted bytes: %q", out.String())
	}
	if c.State().Phase != PhaseAwaitingClose {
		t.Errorf("phase = %v, want awaiting-close", c.State().Phase)
	}
}
