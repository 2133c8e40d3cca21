package ui

import (
	"github.com/charmbracelet/lipgloss"
	dark "github.com/thiagokokada/dark-mode-go"
)

// Theme represents the current color scheme
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

var currentTheme Theme = ThemeDark

// Dark Theme - Tokyo Night
var darkColors = struct {
	Bg, Border, Text, TextDim  lipgloss.Color
	Accent, Green, Red, Yellow lipgloss.Color
	Comment                    lipgloss.Color
}{
	Bg:      lipgloss.Color("#1a1b26"),
	Border:  lipgloss.Color("#414868"),
	Text:    lipgloss.Color("#c0caf5"),
	TextDim: lipgloss.Color("#787fa0"),
	Accent:  lipgloss.Color("#7aa2f7"),
	Green:   lipgloss.Color("#9ece6a"),
	Red:     lipgloss.Color("#f7768e"),
	Yellow:  lipgloss.Color("#e0af68"),
	Comment: lipgloss.Color("#787fa0"),
}

// Light Theme - Tokyo Night Light variant
var lightColors = struct {
	Bg, Border, Text, TextDim  lipgloss.Color
	Accent, Green, Red, Yellow lipgloss.Color
	Comment                    lipgloss.Color
}{
	Bg:      lipgloss.Color("#d5d6db"),
	Border:  lipgloss.Color("#9699a3"),
	Text:    lipgloss.Color("#343b58"),
	TextDim: lipgloss.Color("#6a6d7c"),
	Accent:  lipgloss.Color("#34548a"),
	Green:   lipgloss.Color("#485e30"),
	Red:     lipgloss.Color("#8c4351"),
	Yellow:  lipgloss.Color("#8f5e15"),
	Comment: lipgloss.Color("#6a6d7c"),
}

// Active color variables (set by InitTheme)
var (
	ColorBg      lipgloss.Color
	ColorBorder  lipgloss.Color
	ColorText    lipgloss.Color
	ColorTextDim lipgloss.Color
	ColorAccent  lipgloss.Color
	ColorGreen   lipgloss.Color
	ColorRed     lipgloss.Color
	ColorYellow  lipgloss.Color
	ColorComment lipgloss.Color
)

var (
	TitleStyle        lipgloss.Style
	FilterBoxStyle    lipgloss.Style
	ItemStyle         lipgloss.Style
	ItemSelectedStyle lipgloss.Style
	StatusOKStyle     lipgloss.Style
	StatusFailStyle   lipgloss.Style
	DimStyle          lipgloss.Style
	HintStyle         lipgloss.Style
)

// InitTheme sets the active color palette based on theme name.
// Must be called before any UI rendering.
func InitTheme(theme string) {
	if theme == "light" {
		currentTheme = ThemeLight
		ColorBg = lightColors.Bg
		ColorBorder = lightColors.Border
		ColorText = lightColors.Text
		ColorTextDim = lightColors.TextDim
		ColorAccent = lightColors.Accent
		ColorGreen = lightColors.Green
		ColorRed = lightColors.Red
		ColorYellow = lightColors.Yellow
		ColorComment = lightColors.Comment
	} else {
		currentTheme = ThemeDark
		ColorBg = darkColors.Bg
		ColorBorder = darkColors.Border
		ColorText = darkColors.Text
		ColorTextDim = darkColors.TextDim
		ColorAccent = darkColors.Accent
		ColorGreen = darkColors.Green
		ColorRed = darkColors.Red
		ColorYellow = darkColors.Yellow
		ColorComment = darkColors.Comment
	}
	initStyles()
}

func initStyles() {
	TitleStyle = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	FilterBoxStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorAccent).
		Padding(0, 1)
	ItemStyle = lipgloss.NewStyle().Foreground(ColorText)
	ItemSelectedStyle = lipgloss.NewStyle().Background(ColorAccent).Foreground(ColorBg)
	StatusOKStyle = lipgloss.NewStyle().Foreground(ColorGreen)
	StatusFailStyle = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
	DimStyle = lipgloss.NewStyle().Foreground(ColorTextDim)
	HintStyle = lipgloss.NewStyle().Foreground(ColorComment)
}

// GetCurrentTheme returns the active theme
func GetCurrentTheme() Theme {
	return currentTheme
}

// ResolveTheme maps a configured theme name to a concrete palette.
// "system" asks the OS; detection failure falls back to dark.
func ResolveTheme(configured string) string {
	switch configured {
	case "light", "dark":
		return configured
	case "system":
		isDark, err := dark.IsDarkMode()
		if err != nil || isDark {
			return "dark"
		}
		return "light"
	default:
		return "dark"
	}
}

func init() {
	// Default to dark theme at package init
	InitTheme("dark")
}
