// Package monitor runs a shell under a PTY and drives terminal
// integration from outside it: shell hooks report lifecycle events
// over the @promptdeck DCS channel, the monitor strips those events
// from the output stream, feeds them to the lifecycle controller, and
// records finished commands to the history database.
package monitor

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/asheshgoplani/promptdeck/internal/config"
	"github.com/asheshgoplani/promptdeck/internal/histdb"
	"github.com/asheshgoplani/promptdeck/internal/lifecycle"
	"github.com/asheshgoplani/promptdeck/internal/logging"
	"github.com/asheshgoplani/promptdeck/internal/osc"
)

var log = logging.ForComponent(logging.CompMonitor)

// Session processes the wrapped shell's output stream: passthrough
// bytes go to the outer terminal, decoded events drive the lifecycle
// controller and history recording. ProcessOutput is called from the
// PTY reader goroutine; Reconfigure may be called from the config
// watcher, so event handling is serialized with a mutex.
type Session struct {
	ID string

	out     io.Writer
	scanner *osc.Scanner
	ctrl    *lifecycle.Controller
	hist    *histdb.DB // nil when recording is disabled
	host    *ptyHost

	mu      sync.Mutex
	pending *pendingCommand
}

// pendingCommand is a command reported by preexec whose exit status
// has not arrived yet.
type pendingCommand struct {
	cmd     string
	dir     string
	started time.Time
}

// NewSession wires a session to the given output writer and history
// database. shellPID is the wrapped shell's process ID, used to track
// its working directory; pass 0 to fall back to the monitor's own.
func NewSession(out io.Writer, cfg *config.Config, hist *histdb.DB, shellPID int) *Session {
	host := &ptyHost{shellPID: shellPID}
	return &Session{
		ID:      generateID(),
		out:     out,
		scanner: osc.NewScanner(),
		ctrl:    lifecycle.New(host, out, controllerOptions(cfg)),
		hist:    hist,
		host:    host,
	}
}

// setShellPID records the wrapped shell's PID once it is known. Call
// before the first ProcessOutput.
func (s *Session) setShellPID(pid int) {
	s.host.shellPID = pid
}

// ProcessOutput scans one chunk of shell output, forwarding ordinary
// bytes and handling events in stream order.
func (s *Session) ProcessOutput(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tok := range s.scanner.Scan(chunk) {
		if tok.Event == nil {
			s.write(tok.Data)
			continue
		}
		s.handleEvent(tok.Event)
	}
}

// Flush releases any partial sequence the scanner held back. Call once
// when the shell exits.
func (s *Session) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(s.scanner.Flush())
}

// Reconfigure applies a freshly loaded config without restarting the
// session.
func (s *Session) Reconfigure(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.SetOptions(controllerOptions(cfg))
	log.Info("config reloaded")
}

func (s *Session) handleEvent(ev *osc.Event) {
	switch ev.Kind {
	case osc.KindPrecmd:
		s.recordFinished(ev.Status)
		s.ctrl.PrePrompt(ev.Status)
	case osc.KindPreexec:
		s.pending = &pendingCommand{
			cmd:     ev.Command,
			dir:     s.host.WorkingDir(),
			started: time.Now(),
		}
		s.ctrl.PreExec(ev.Command)
	case osc.KindMode:
		s.ctrl.ModeChange(ev.Mode)
	}
}

// recordFinished writes the pending command to history, now that its
// exit status is known. The first precmd of a session has no pending
// command; that is the initial prompt, not a finished command.
func (s *Session) recordFinished(status int) {
	p := s.pending
	s.pending = nil
	if p == nil || s.hist == nil {
		return
	}
	err := s.hist.Insert(histdb.Command{
		SessionID:  s.ID,
		Cmd:        p.cmd,
		ExitStatus: status,
		Dir:        p.dir,
		StartedAt:  p.started,
		Duration:   time.Since(p.started),
	})
	if err != nil {
		log.Warn("history insert failed", "error", err)
	}
}

func (s *Session) write(b []byte) {
	if len(b) == 0 {
		return
	}
	if _, err := s.out.Write(b); err != nil {
		log.Debug("output write failed", "error", err)
	}
}

func controllerOptions(cfg *config.Config) lifecycle.Options {
	return lifecycle.Options{
		Marks:         cfg.Integration.GetPromptMark(),
		Cursor:        cfg.Integration.GetCursor(),
		Title:         cfg.Integration.GetTitle(),
		HomeTilde:     cfg.Title.GetHomeTilde(),
		MaxComponents: cfg.Title.GetMaxComponents(),
	}
}

// ptyHost adapts the monitor's vantage point to the lifecycle
// controller's host interface. From outside the shell the prompt
// templates are not reachable, so the controller always takes the
// direct-write path; and the shell hooks only report at genuine hook
// points, so the re-entrancy and hook-ordering hazards of an in-shell
// host do not arise.
type ptyHost struct {
	shellPID int
}

func (h *ptyHost) PrimaryPrompt() (string, bool)      { return "", false }
func (h *ptyHost) SetPrimaryPrompt(string)            {}
func (h *ptyHost) ContinuationPrompt() (string, bool) { return "", false }
func (h *ptyHost) SetContinuationPrompt(string)       {}
func (h *ptyHost) EditingActive() bool                { return false }
func (h *ptyHost) FinalHook() bool                    { return true }
func (h *ptyHost) RequestFinalHook()                  {}

// WorkingDir resolves the shell's current directory via procfs, falling
// back to the monitor's own when that is unavailable.
func (h *ptyHost) WorkingDir() string {
	if h.shellPID > 0 {
		if dir, err := os.Readlink(fmt.Sprintf("/proc/%d/cwd", h.shellPID)); err == nil {
			return dir
		}
	}
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return dir
}

// generateID generates a unique session ID.
func generateID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d", hex.EncodeToString(b), time.Now().Unix())
}
