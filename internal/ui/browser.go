// Package ui implements the interactive command-history browser shown
// by `promptdeck history`.
package ui

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"github.com/asheshgoplani/promptdeck/internal/histdb"
	"github.com/asheshgoplani/promptdeck/internal/logging"
)

var log = logging.ForComponent(logging.CompUI)

// Browser is the history list with a fuzzy filter on top.
type Browser struct {
	input   textinput.Model
	all     []histdb.Command
	results []histdb.Command
	cursor  int
	width   int
	height  int

	failuresOnly bool
	chosen       *histdb.Command
}

// NewBrowser creates a browser over the given commands, newest first.
func NewBrowser(cmds []histdb.Command) *Browser {
	ti := textinput.New()
	ti.Placeholder = "Filter commands..."
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 50

	b := &Browser{input: ti, all: cmds}
	b.updateResults()
	return b
}

// Chosen returns the command the user accepted with enter, if any.
func (b *Browser) Chosen() *histdb.Command {
	return b.chosen
}

// Init implements tea.Model.
func (b *Browser) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (b *Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		return b, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return b, tea.Quit

		case "enter":
			if len(b.results) > 0 && b.cursor < len(b.results) {
				c := b.results[b.cursor]
				b.chosen = &c
			}
			return b, tea.Quit

		case "up", "ctrl+k":
			if b.cursor > 0 {
				b.cursor--
			}
			return b, nil

		case "down", "ctrl+j":
			if b.cursor < len(b.results)-1 {
				b.cursor++
			}
			return b, nil

		case "ctrl+f":
			b.failuresOnly = !b.failuresOnly
			b.updateResults()
			return b, nil

		default:
			var cmd tea.Cmd
			b.input, cmd = b.input.Update(msg)
			b.updateResults()
			return b, cmd
		}
	}

	return b, nil
}

// updateResults filters the commands based on the current input
func (b *Browser) updateResults() {
	pool := b.all
	if b.failuresOnly {
		pool = nil
		for _, c := range b.all {
			if c.ExitStatus != 0 {
				pool = append(pool, c)
			}
		}
	}

	query := strings.TrimSpace(b.input.Value())
	if query == "" {
		b.results = pool
	} else {
		matches := fuzzy.FindFrom(query, commandSource(pool))
		b.results = make([]histdb.Command, 0, len(matches))
		for _, m := range matches {
			b.results = append(b.results, pool[m.Index])
		}
	}
	b.cursor = 0
}

// View implements tea.Model.
func (b *Browser) View() string {
	header := TitleStyle.Render("promptdeck history")
	if b.failuresOnly {
		header += "  " + StatusFailStyle.Render("[failures]")
	}

	filterBox := FilterBoxStyle.Render(b.input.View())

	maxRows := b.height - 8
	if maxRows < 5 {
		maxRows = 5
	}
	rows := b.results
	offset := 0
	if b.cursor >= maxRows {
		offset = b.cursor - maxRows + 1
	}
	if offset+maxRows > len(rows) {
		rows = rows[offset:]
	} else {
		rows = rows[offset : offset+maxRows]
	}

	var list strings.Builder
	for i, c := range rows {
		line := b.renderRow(c)
		if offset+i == b.cursor {
			line = ItemSelectedStyle.Render("› " + line)
		} else {
			line = ItemStyle.Render("  " + line)
		}
		list.WriteString(line)
		list.WriteString("\n")
	}
	if len(b.results) == 0 {
		list.WriteString(DimStyle.Render("  no matching commands"))
		list.WriteString("\n")
	}

	count := DimStyle.Render(fmt.Sprintf("  %d of %d", len(b.results), len(b.all)))
	hint := HintStyle.Render("  [Enter] Print  [↑↓] Navigate  [Ctrl+F] Failures  [Esc] Quit")

	return header + "\n\n" + filterBox + "\n\n" + list.String() + count + "\n" + hint
}

// renderRow formats one command as "status  when  duration  cmd @ dir",
// truncated to the terminal width.
func (b *Browser) renderRow(c histdb.Command) string {
	status := StatusOKStyle.Render("✓")
	if c.ExitStatus != 0 {
		status = StatusFailStyle.Render(fmt.Sprintf("✗ %d", c.ExitStatus))
	}

	when := DimStyle.Render(relativeTime(c.StartedAt))
	dur := DimStyle.Render(formatDuration(c.Duration))

	cmd := c.Cmd
	maxCmd := b.width - 30
	if maxCmd < 20 {
		maxCmd = 20
	}
	if runewidth.StringWidth(cmd) > maxCmd {
		cmd = runewidth.Truncate(cmd, maxCmd, "...")
	}

	row := fmt.Sprintf("%s  %s  %s  %s", status, when, dur, cmd)
	if c.Dir != "" {
		row += DimStyle.Render("  " + c.Dir)
	}
	return row
}

// Run shows the browser and returns the chosen command, or nil when the
// user quit without choosing.
func Run(cmds []histdb.Command) (*histdb.Command, error) {
	b := NewBrowser(cmds)
	p := tea.NewProgram(b, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Error("history browser failed", "error", err)
		return nil, err
	}
	return b.Chosen(), nil
}

// PrintTable writes a plain listing for non-interactive use (piped
// output, --plain).
func PrintTable(w io.Writer, cmds []histdb.Command) error {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tSTATUS\tDURATION\tCOMMAND\tDIR")
	for _, c := range cmds {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
			c.StartedAt.Format("2006-01-02 15:04:05"),
			c.ExitStatus,
			formatDuration(c.Duration),
			c.Cmd,
			c.Dir,
		)
	}
	return tw.Flush()
}

// commandSource implements fuzzy.Source over a command slice.
type commandSource []histdb.Command

func (s commandSource) String(i int) string { return s[i].Cmd + " " + s[i].Dir }
func (s commandSource) Len() int            { return len(s) }

// relativeTime renders a start time as "3m ago" style text.
func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// formatDuration renders a duration compactly: 12ms, 3.2s, 1m05s.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}
