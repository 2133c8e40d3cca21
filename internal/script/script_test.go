package script

import (
	"strings"
	"testing"
)

func TestScriptSupportedShells(t *testing.T) {
	for _, shell := range Supported() {
		t.Run(shell, func(t *testing.T) {
			s, err := Script(shell)
			if err != nil {
				t.Fatalf("Script(%q): %v", shell, err)
			}
			if !strings.Contains(s, `\033P@promptdeck|`) {
				t.Errorf("%s glue does not emit on the event channel", shell)
			}
			if !strings.Contains(s, "precmd;") {
				t.Errorf("%s glue missing precmd reporting", shell)
			}
			if !strings.Contains(s, "preexec;") {
				t.Errorf("%s glue missing preexec reporting", shell)
			}
		})
	}
}

func TestScriptUnsupportedShell(t *testing.T) {
	if _, err := Script("tcsh"); err == nil {
		t.Error("expected error for unsupported shell")
	}
}

func TestSupportedIsSorted(t *testing.T) {
	got := Supported()
	want := []string{"bash", "fish", "zsh"}
	if len(got) != len(want) {
		t.Fatalf("Supported() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Supported()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestZshGlueKeepsHookLast(t *testing.T) {
	s, err := Script("zsh")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(s, "precmd_functions[-1]") {
		t.Error("zsh glue does not re-assert last position in precmd_functions")
	}
}

func TestZshGlueReportsStatusFromFirstHook(t *testing.T) {
	s, err := Script("zsh")
	if err != nil {
		t.Fatal(err)
	}
	// The reporter reads $? directly and pins itself to the front of
	// precmd_functions, so an earlier hook cannot clobber the status.
	if !strings.Contains(s, `__promptdeck_emit "precmd;$?"`) {
		t.Error("zsh reporter does not read $? directly")
	}
	if !strings.Contains(s, "precmd_functions[1]") {
		t.Error("zsh reporter does not re-assert first position")
	}
	if !strings.Contains(s, "precmd_functions=(__promptdeck_report") {
		t.Error("zsh glue does not prepend the reporter on install")
	}
}

func TestBashGlueCapturesStatusBeforeAnyCommand(t *testing.T) {
	s, err := Script("bash")
	if err != nil {
		t.Fatal(err)
	}
	// Any command ahead of the hook in PROMPT_COMMAND resets $? to its
	// own status before the hook can read it.
	if !strings.Contains(s, `PROMPT_COMMAND="__promptdeck_precmd`) {
		t.Error("bash hook is not the first command in PROMPT_COMMAND")
	}
	// The DEBUG latch is cleared inside the hook, after the capture.
	capture := strings.Index(s, "local ret=$?")
	clear := strings.Index(s, "__promptdeck_ran=\n")
	if capture == -1 || clear == -1 || clear < capture {
		t.Error("bash hook does not capture $? before clearing the latch")
	}
}

func TestBashGlueIgnoresOwnHooksInDebugTrap(t *testing.T) {
	s, err := Script("bash")
	if err != nil {
		t.Fatal(err)
	}
	// At the first prompt the latch is still unset; without this guard
	// the DEBUG trap would report the glue's own hook as a command.
	if !strings.Contains(s, `$BASH_COMMAND == __promptdeck_*`) {
		t.Error("bash DEBUG trap does not skip the glue's own functions")
	}
}

func TestZshGlueReportsKeymap(t *testing.T) {
	s, err := Script("zsh")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(s, "keymap-select") || !strings.Contains(s, "mode;") {
		t.Error("zsh glue missing keymap reporting")
	}
}

func TestGlueSkipsPatchingUnderSupervisor(t *testing.T) {
	for _, shell := range []string{"zsh", "bash"} {
		s, err := Script(shell)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(s, EnvSession) {
			t.Errorf("%s glue does not gate prompt patching on %s", shell, EnvSession)
		}
	}
}

func TestCommandTextIsEncoded(t *testing.T) {
	// Raw command text on the wire could contain the terminator; every
	// glue must base64 it.
	for _, shell := range Supported() {
		s, _ := Script(shell)
		if !strings.Contains(s, "base64") {
			t.Errorf("%s glue sends raw command text", shell)
		}
	}
}
