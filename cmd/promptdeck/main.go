package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/asheshgoplani/promptdeck/internal/config"
	"github.com/asheshgoplani/promptdeck/internal/histdb"
	"github.com/asheshgoplani/promptdeck/internal/logging"
	"github.com/asheshgoplani/promptdeck/internal/monitor"
	"github.com/asheshgoplani/promptdeck/internal/script"
	"github.com/asheshgoplani/promptdeck/internal/ui"
)

const Version = "0.3.1"

// init sets up color profile for consistent terminal colors across environments
func init() {
	initColorProfile()
}

// initColorProfile configures lipgloss color profile based on terminal
// capabilities. Prefers TrueColor, falls back to ANSI256.
func initColorProfile() {
	// Allow user override via environment variable
	// PROMPTDECK_COLOR: truecolor, 256, 16, none
	if colorEnv := os.Getenv("PROMPTDECK_COLOR"); colorEnv != "" {
		switch strings.ToLower(colorEnv) {
		case "truecolor", "true", "24bit":
			lipgloss.SetColorProfile(termenv.TrueColor)
			return
		case "256", "ansi256":
			lipgloss.SetColorProfile(termenv.ANSI256)
			return
		case "16", "ansi", "basic":
			lipgloss.SetColorProfile(termenv.ANSI)
			return
		case "none", "off", "ascii":
			lipgloss.SetColorProfile(termenv.Ascii)
			return
		}
	}

	colorTerm := os.Getenv("COLORTERM")
	if colorTerm == "truecolor" || colorTerm == "24bit" {
		lipgloss.SetColorProfile(termenv.TrueColor)
		return
	}

	termName := os.Getenv("TERM")
	trueColorTerms := []string{
		"xterm-256color",
		"screen-256color",
		"tmux-256color",
		"xterm-direct",
		"alacritty",
		"kitty",
		"wezterm",
	}
	for _, t := range trueColorTerms {
		if strings.Contains(termName, t) || termName == t {
			lipgloss.SetColorProfile(termenv.TrueColor)
			return
		}
	}

	lipgloss.SetColorProfile(termenv.ANSI256)
}

func main() {
	args := os.Args[1:]

	if len(args) == 0 {
		printHelp()
		return
	}

	switch args[0] {
	case "version", "--version", "-v":
		fmt.Printf("promptdeck v%s\n", Version)
	case "help", "--help", "-h":
		printHelp()
	case "run":
		handleRun(args[1:])
	case "init":
		handleInit(args[1:])
	case "history":
		handleHistory(args[1:])
	case "prompt":
		handlePrompt(args[1:])
	case "config":
		handleConfig(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("promptdeck - terminal shell integration")
	fmt.Println()
	fmt.Println("Usage: promptdeck <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run                Wrap your shell with terminal integration")
	fmt.Println("  init <shell>       Print hook glue for zsh, bash, or fish")
	fmt.Println("  history            Browse recorded command history")
	fmt.Println("  prompt patch       Splice the prompt mark into a prompt template")
	fmt.Println("  prompt strip       Remove the prompt mark from a prompt template")
	fmt.Println("  config init        Write an example config file")
	fmt.Println("  config path        Print the config file location")
	fmt.Println("  version            Print the version")
	fmt.Println()
	fmt.Println("Setup:")
	fmt.Println("  # Full integration (marks, cursor, title, history):")
	fmt.Println("  promptdeck run")
	fmt.Println()
	fmt.Println("  # Hook glue only (add to ~/.zshrc):")
	fmt.Println(`  eval "$(promptdeck init zsh)"`)
}

// initLogging configures the debug log from config. Logs are only
// written to a file: the terminal belongs to the wrapped shell.
func initLogging(cfg *config.Config) {
	debugMode := os.Getenv("PROMPTDECK_DEBUG") != "" || cfg.Logs.Debug

	// Logs go to ~/.promptdeck/promptdeck.log in debug mode and are
	// discarded otherwise, so the TUI and wrapped shell stay clean.
	logCfg := logging.Config{
		Debug:  debugMode,
		Level:  "info",
		Format: "json",
	}
	if debugMode {
		if dir, err := config.Dir(); err == nil {
			logCfg.LogDir = dir
		}
	}
	if cfg.Logs.Level != "" {
		logCfg.Level = cfg.Logs.Level
	}
	if cfg.Logs.Format != "" {
		logCfg.Format = cfg.Logs.Format
	}
	if cfg.Logs.MaxSizeMB > 0 {
		logCfg.MaxSizeMB = cfg.Logs.MaxSizeMB
	}
	if cfg.Logs.MaxBackups > 0 {
		logCfg.MaxBackups = cfg.Logs.MaxBackups
	}
	if cfg.Logs.MaxAgeDays > 0 {
		logCfg.MaxAgeDays = cfg.Logs.MaxAgeDays
	}

	logging.Init(logCfg)

	// SIGUSR1 dumps the in-memory ring buffer for post-mortem debugging
	if debugMode {
		usr1 := make(chan os.Signal, 1)
		signal.Notify(usr1, syscall.SIGUSR1)
		go func() {
			for range usr1 {
				if dir, err := config.Dir(); err == nil {
					path := filepath.Join(dir, fmt.Sprintf("crash-dump-%d.jsonl", time.Now().Unix()))
					_ = logging.DumpRingBuffer(path)
				}
			}
		}()
	}
}

// handleRun wraps the user's shell under the supervisor.
func handleRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Println("Usage: promptdeck run [-- shell args]")
		fmt.Println()
		fmt.Println("Start your shell under promptdeck. The wrapped shell gets")
		fmt.Println("semantic prompt marks, cursor-shape switching, terminal-title")
		fmt.Println("updates, and command history recording.")
		fmt.Println()
		fmt.Println("The shell still needs the hook glue loaded; see 'promptdeck init'.")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if os.Getenv(script.EnvSession) != "" {
		fmt.Fprintln(os.Stderr, "Error: already inside a promptdeck session.")
		fmt.Fprintln(os.Stderr, "Nesting supervisors would double every prompt mark.")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}
	initLogging(cfg)
	defer logging.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	code, err := monitor.Run(ctx, cfg, fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if code == 0 {
			code = 1
		}
	}
	os.Exit(code)
}

// handleInit prints the shell hook glue.
func handleInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Println("Usage: promptdeck init <shell>")
		fmt.Println()
		fmt.Printf("Print hook glue for one of: %s\n", strings.Join(script.Supported(), ", "))
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println(`  eval "$(promptdeck init zsh)"     # ~/.zshrc`)
		fmt.Println(`  eval "$(promptdeck init bash)"    # ~/.bashrc`)
		fmt.Println(`  promptdeck init fish | source     # ~/.config/fish/config.fish`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	shell := fs.Arg(0)
	if shell == "" {
		fs.Usage()
		os.Exit(1)
	}

	s, err := script.Script(shell)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(s)
}

// handleHistory browses or lists recorded commands.
func handleHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	plain := fs.Bool("plain", false, "Print a table instead of the interactive browser")
	failed := fs.Bool("failed", false, "Only commands with a non-zero exit status")
	search := fs.String("search", "", "Only commands containing this text")
	limit := fs.Int("limit", 500, "Maximum entries to load")
	fs.Usage = func() {
		fmt.Println("Usage: promptdeck history [options]")
		fmt.Println()
		fmt.Println("Browse recorded command history. The interactive browser prints")
		fmt.Println("the selected command to stdout, so it composes with the shell:")
		fmt.Println()
		fmt.Println(`  eval "$(promptdeck history)"`)
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}
	initLogging(cfg)
	defer logging.Shutdown()

	db, err := openHistoryDB(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	var cmds []histdb.Command
	switch {
	case *search != "":
		cmds, err = db.Search(*search, *limit)
	case *failed:
		cmds, err = db.Failures(*limit)
	default:
		cmds, err = db.Recent(*limit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		if err := ui.PrintTable(os.Stdout, cmds); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ui.InitTheme(ui.ResolveTheme(cfg.Shell.Theme))
	chosen, err := ui.Run(cmds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if chosen != nil {
		fmt.Println(chosen.Cmd)
	}
}

// handleConfig manages the config file.
func handleConfig(args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: promptdeck config <init|path>")
		os.Exit(1)
	}

	switch args[0] {
	case "init":
		if err := config.CreateExample(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		path, _ := config.Path()
		fmt.Printf("Config file: %s\n", path)
	case "path":
		path, err := config.Path()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(path)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config command: %s\n", args[0])
		os.Exit(1)
	}
}

func openHistoryDB(cfg *config.Config) (*histdb.DB, error) {
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
