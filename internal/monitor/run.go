//go:build !windows

package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/asheshgoplani/promptdeck/internal/config"
	"github.com/asheshgoplani/promptdeck/internal/histdb"
	"github.com/asheshgoplani/promptdeck/internal/script"
)

// Run wraps a shell under a PTY and supervises it until it exits.
// shellArgs are passed through to the shell. Returns the shell's exit
// code and any supervisor error.
func Run(ctx context.Context, cfg *config.Config, shellArgs []string) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shell := shellCommand(cfg)

	hist, err := openHistory(cfg)
	if err != nil {
		// Recording is best-effort; the session works without it.
		log.Warn("history unavailable", "error", err)
	}
	if hist != nil {
		defer hist.Close()
	}

	session := NewSession(os.Stdout, cfg, hist, 0)

	cmd := exec.CommandContext(ctx, shell, shellArgs...)
	cmd.Env = append(os.Environ(), script.EnvSession+"="+session.ID)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return 1, fmt.Errorf("monitor: start pty: %w", err)
	}
	defer ptmx.Close()
	session.setShellPID(cmd.Process.Pid)
	log.Info("shell started", "shell", shell, "pid", cmd.Process.Pid, "session", session.ID)

	// Raw mode so keystrokes reach the shell's line editor unmangled.
	// Skipped when stdin is not a terminal (e.g. under a test harness).
	if term.IsTerminal(int(os.Stdin.Fd())) {
		oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			return 1, fmt.Errorf("monitor: raw mode: %w", err)
		}
		defer func() { _ = term.Restore(int(os.Stdin.Fd()), oldState) }()
	}

	// Forward window resizes to the inner PTY.
	sigwinch := make(chan os.Signal, 1)
	signal.Notify(sigwinch, syscall.SIGWINCH)
	defer signal.Stop(sigwinch)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigwinch:
				if ws, err := pty.GetsizeFull(os.Stdin); err == nil {
					_ = pty.Setsize(ptmx, ws)
				}
			}
		}
	}()
	sigwinch <- syscall.SIGWINCH

	if watcher, err := config.Watch(session.Reconfigure); err == nil {
		defer watcher.Close()
	} else {
		log.Warn("config watch unavailable", "error", err)
	}

	var g errgroup.Group

	// Keystrokes in. Left running at shutdown: the read on stdin cannot
	// be interrupted portably, and process exit reclaims it.
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				if _, werr := ptmx.Write(buf[:n]); werr != nil {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	// Shell output, scanned for lifecycle events.
	g.Go(func() error {
		buf := make([]byte, 4096)
		for {
			n, err := ptmx.Read(buf)
			if n > 0 {
				session.ProcessOutput(buf[:n])
			}
			if err != nil {
				session.Flush()
				// EOF and EIO both mean the shell side closed.
				if errors.Is(err, io.EOF) || errors.Is(err, syscall.EIO) {
					return nil
				}
				return fmt.Errorf("monitor: pty read: %w", err)
			}
		}
	})

	waitErr := cmd.Wait()
	cancel()
	copyErr := g.Wait()

	if hist != nil {
		pruneHistory(cfg, hist)
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return 1, fmt.Errorf("monitor: shell: %w", waitErr)
		}
	}
	log.Info("shell exited", "code", exitCode)
	return exitCode, copyErr
}

// shellCommand picks the shell to wrap: config override, then $SHELL,
// then /bin/sh.
func shellCommand(cfg *config.Config) string {
	if cfg.Shell.Command != "" {
		return cfg.Shell.Command
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	return "/bin/sh"
}

// openHistory opens and migrates the history database, or returns
// (nil, nil) when recording is disabled.
func openHistory(cfg *config.Config) (*histdb.DB, error) {
	if !cfg.History.GetEnabled() {
		return nil, nil
	}
	dbPath := cfg.History.DBPath
	if dbPath == "" {
		dir, err := config.Dir()
		if err != nil {
			return nil, err
		}
		dbPath = filepath.Join(dir, "history.db")
	}
	db, err := histdb.Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// pruneHistory applies the retention window on the way out.
func pruneHistory(cfg *config.Config, db *histdb.DB) {
	days := cfg.History.GetMaxAgeDays()
	if days <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	if _, err := db.PruneOlderThan(cutoff); err != nil {
		log.Warn("history prune failed", "error", err)
	}
}
