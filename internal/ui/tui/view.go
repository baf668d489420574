package tui

import (
	"fmt"
	"strings"
	"time"

)

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)
	renderProgressBar(&b, m)
	renderPhases(&b, m)

	if len(m.Resources) > 0 {
		renderResources(&b, m)
	}
	if len(m.Warnings) > 0 {
		renderWarnings(&b, m)
	}
	if m.Confirm != nil {
		renderConfirm(&b, m)
	}

	renderFooter(&b, m)

	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	title := fmt.Sprintf("tradefleet: %s", m.Environment)
	if m.Region != "" {
		title += fmt.Sprintf(" (%s)", m.Region)
	}
	b.WriteString(titleStyle.Render(title))

	status := " "
	switch {
	case m.Err != nil:
		status += failedStyle.Render(fmt.Sprintf("Error: %v", m.Err))
	case m.Done && m.Success:
		status += readyStyle.Render("Deployed")
	case m.Done:
		status += failedStyle.Render("Failed")
	case m.Confirm != nil:
		status += warningStyle.Render("Waiting for rollback decision")
	default:
		status += activeStyle.Render(currentSpinner(m.SpinnerFrame)+" ") + warningStyle.Render(m.activePhase())
	}
	b.WriteString(status)
	b.WriteString("\n")
}

func renderProgressBar(b *strings.Builder, m Model) {
	progress := calculateProgress(m)
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = max(m.Width-30, 10)
	}
	filled := min(int(float64(barWidth)*progress), barWidth)

	bar := progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", barWidth-filled))

	fmt.Fprintf(b, "  %s %d%%\n", bar, int(progress*100))
}

func renderPhases(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Phases"))
	b.WriteString("\n")

	for _, phase := range m.Phases {
		var icon string
		var style styleFunc
		switch {
		case phase.Err != "":
			icon = crossMark
			style = sf(failedStyle)
		case phase.Done:
			icon = checkMark
			style = sf(readyStyle)
		case phase.Active:
			icon = currentSpinner(m.SpinnerFrame)
			style = sf(activeStyle)
		default:
			icon = pending
			style = sf(dimStyle)
		}
		detail := phase.Duration
		if phase.Err != "" {
			detail = phase.Err
		}
		fmt.Fprintf(b, "    %s %-16s %s\n", style(icon), style(phase.Name), dimStyle.Render(detail))
	}
}

func renderResources(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Resources"))
	b.WriteString("\n")

	for _, res := range m.Resources {
		icon, style := resourceIcon(res.Status, m.SpinnerFrame)
		fmt.Fprintf(b, "    %s %-36s %-9s %s\n",
			style(icon), res.Key, style(res.Status), dimStyle.Render(res.Detail))
	}
}

func renderWarnings(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Warnings"))
	b.WriteString("\n")

	for _, w := range m.Warnings {
		fmt.Fprintf(b, "    %s %s\n", warningStyle.Render(warnMark), dimStyle.Render(w))
	}
}

func renderConfirm(b *strings.Builder, m Model) {
	f := m.Confirm.Failure
	text := fmt.Sprintf("Run %s failed: %v\n%d resources recorded, %d orphaned instances.\nRoll back? [y/N]",
		f.RunID, f.Err, f.Recorded, f.Orphaned)
	if f.Interrupted {
		text = "Interrupted. " + text
	}
	b.WriteString(promptStyle.Render(text))
	b.WriteString("\n")
}

func renderFooter(b *strings.Builder, m Model) {
	parts := []string{fmt.Sprintf("elapsed: %s", formatDuration(time.Since(m.StartTime)))}
	if m.RunID != "" {
		parts = append(parts, "run: "+m.RunID)
	}
	if m.LastLog != "" {
		parts = append(parts, m.LastLog)
	}
	b.WriteString(footerStyle.Render(fmt.Sprintf("  %s  |  q: quit", strings.Join(parts, "  |  "))))
	b.WriteString("\n")
}

// Helper functions

func (m Model) activePhase() string {
	for _, p := range m.Phases {
		if p.Active {
			return p.Name
		}
	}
	return "starting"
}

func currentSpinner(frame int) string {
	if frame < 0 {
		frame = -frame
	}
	return spinnerFrames[frame%len(spinnerFrames)]
}

// calculateProgress is the share of deployment phases that completed.
// Phases added during the run, such as rollback, do not count.
func calculateProgress(m Model) float64 {
	if m.Done && m.Success {
		return 1.0
	}
	total := len(deployPhases)
	if total == 0 {
		return 0
	}
	done := 0
	for _, p := range m.Phases {
		if p.Done && deployPhases[p.Name] {
			done++
		}
	}
	return float64(done) / float64(total)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
