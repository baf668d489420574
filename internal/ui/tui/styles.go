package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/tradefleet/internal/provisioning"
)

var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorBlue   = lipgloss.Color("#3b82f6")
	colorDim    = lipgloss.Color("#6b7280")
	colorWhite  = lipgloss.Color("#f9fafb")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	subtitleStyle = lipgloss.NewStyle().Foreground(colorDim)
	sectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorBlue).MarginTop(1)
	footerStyle   = lipgloss.NewStyle().Foreground(colorDim).MarginTop(1)

	readyStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	failedStyle  = lipgloss.NewStyle().Foreground(colorRed)
	warningStyle = lipgloss.NewStyle().Foreground(colorYellow)
	dimStyle     = lipgloss.NewStyle().Foreground(colorDim)
	activeStyle  = lipgloss.NewStyle().Foreground(colorWhite).Bold(true)

	// promptStyle frames the rollback question.
	promptStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorYellow).
			Padding(0, 1).
			MarginTop(1)

	progressBarFull  = lipgloss.NewStyle().Foreground(colorGreen)
	progressBarEmpty = lipgloss.NewStyle().Foreground(colorDim)
)

const (
	checkMark = "[OK]"
	crossMark = "[!!]"
	pending   = "[  ]"
	warnMark  = "[??]"
	skipMark  = "[--]"
)

var spinnerFrames = []string{"[. ]", "[..]", "[ .]", "[  ]"}

// styleFunc is a single-string styling function.
type styleFunc func(string) string

// sf wraps a lipgloss.Style into a styleFunc.
func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

// resourceMark is how a resource row in a settled status is drawn.
type resourceMark struct {
	icon  string
	style lipgloss.Style
}

// resourceMarks covers the settled statuses. Rows in any other status
// are in progress and get the spinner.
var resourceMarks = map[string]resourceMark{
	StatusCreated: {checkMark, readyStyle},
	StatusDeleted: {checkMark, readyStyle},
	StatusFailed:  {crossMark, failedStyle},
	StatusSkipped: {skipMark, dimStyle},
}

func resourceIcon(status string, frame int) (string, styleFunc) {
	if mark, ok := resourceMarks[status]; ok {
		return mark.icon, sf(mark.style)
	}
	return currentSpinner(frame), sf(activeStyle)
}

func runStatusStyle(status provisioning.RunStatus) lipgloss.Style {
	switch status {
	case provisioning.RunSucceeded, provisioning.RunRolledBack:
		return readyStyle
	case provisioning.RunFailed, provisioning.RunRollbackIncomplete:
		return failedStyle
	case provisioning.RunRunning:
		return warningStyle
	default:
		return dimStyle
	}
}
