package style

import (
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

// --- Reusable Colors ---
var (
	colorPink      = lipgloss.Color("205")
	colorDarkGray  = lipgloss.Color("240")
	colorLightGray = lipgloss.Color("229")
	colorCyan      = lipgloss.Color("212")
	colorGreen     = lipgloss.Color("42")
	colorYellow    = lipgloss.Color("214")
	colorRed       = lipgloss.Color("196")
)

// --- General Purpose Styles ---
var (
	ErrorStyle   = lipgloss.NewStyle().Foreground(colorRed)
	WarningStyle = lipgloss.NewStyle().Foreground(colorYellow)
	SuccessStyle = lipgloss.NewStyle().Foreground(colorGreen)
	HelpStyle    = lipgloss.NewStyle().Faint(true)
)

// --- Receiver Styles ---
var (
	DocStyle           = lipgloss.NewStyle().Margin(1, 2)
	TitleStyle         = lipgloss.NewStyle().Bold(true).Foreground(colorPink)
	HeaderStyle        = lipgloss.NewStyle().Bold(true).Foreground(colorLightGray)
	HighlightFontStyle = lipgloss.NewStyle().Foreground(colorCyan)
	BaseStyle          = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(colorDarkGray).Padding(0, 1)
)

// --- Common Components ---

// NewSpinner creates a spinner with a consistent style.
func NewSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorPink)
	return s
}

// NewProgressBar creates the packet progress bar.
func NewProgressBar(width int) progress.Model {
	return progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(width),
	)
}
