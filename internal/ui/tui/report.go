package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/imamik/tradefleet/internal/orchestration"
	"github.com/imamik/tradefleet/internal/provisioning"
)

// RenderPlan renders a dry-run plan grouped by phase.
func RenderPlan(p *orchestration.Plan) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("tradefleet plan: %s (%s)", p.Environment, p.Region)))
	b.WriteString("\n")

	phase := ""
	for _, step := range p.Steps {
		if step.Phase != phase {
			phase = step.Phase
			b.WriteString(sectionStyle.Render("  " + phase))
			b.WriteString("\n")
		}
		style := sf(activeStyle)
		if step.Action == orchestration.ActionSkip {
			style = sf(warningStyle)
		}
		fmt.Fprintf(&b, "    %-24s %-32s %s\n", style(step.Action), step.Resource, dimStyle.Render(step.Detail))
	}

	b.WriteString(footerStyle.Render(fmt.Sprintf("  %d steps, %d resources. Nothing was changed.",
		len(p.Steps), len(p.Resources()))))
	b.WriteString("\n")
	return b.String()
}

// RenderSummary renders the summary of a finished run.
func RenderSummary(s *orchestration.Summary) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("tradefleet: %s", s.Environment)))
	if s.Success {
		b.WriteString(" " + readyStyle.Render("Deployed"))
	} else {
		b.WriteString(" " + failedStyle.Render("Failed"))
	}
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("  run %s, %s", s.RunID, formatDuration(s.Duration()))))
	b.WriteString("\n")
	if s.Error != "" {
		fmt.Fprintf(&b, "  %s %s\n", failedStyle.Render(crossMark), s.Error)
	}

	b.WriteString(sectionStyle.Render("  Phases"))
	b.WriteString("\n")
	for _, p := range s.Phases {
		icon, style := checkMark, sf(readyStyle)
		detail := p.Duration.Round(time.Millisecond).String()
		if p.Error != "" {
			icon, style = crossMark, sf(failedStyle)
			detail = p.Error
		}
		fmt.Fprintf(&b, "    %s %-16s %s\n", style(icon), style(p.Name), dimStyle.Render(detail))
	}

	if len(s.Instances) > 0 {
		b.WriteString(sectionStyle.Render("  Instances"))
		b.WriteString("\n")
		for _, inst := range s.Instances {
			addr := inst.Address
			if inst.StableAddress != "" {
				addr = inst.StableAddress + " (stable)"
			}
			fmt.Fprintf(&b, "    %-20s %-10s %-8s %s\n", inst.Name, inst.ID, inst.Region, addr)
		}
	}

	if len(s.Hardening) > 0 {
		b.WriteString(sectionStyle.Render("  Hardening"))
		b.WriteString("\n")
		for _, h := range s.Hardening {
			line := readyStyle.Render(strings.Join(h.Applied, ", "))
			if len(h.Failed) > 0 {
				line += " " + warningStyle.Render("failed: "+strings.Join(h.Failed, ", "))
			}
			fmt.Fprintf(&b, "    %-20s %s\n", h.Instance, line)
		}
	}

	if len(s.Services) > 0 {
		b.WriteString(sectionStyle.Render("  Services"))
		b.WriteString("\n")
		for _, svc := range s.Services {
			fmt.Fprintf(&b, "    %-16s on %-20s %s\n", svc.Kind, svc.Instance, dimStyle.Render(svc.Address))
		}
	}

	if s.Rollback != nil {
		b.WriteString(RenderRollback(s.Rollback))
	}

	if s.ArchiveKey != "" {
		b.WriteString(footerStyle.Render("  report archived to " + s.ArchiveKey))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderRollback renders what a rollback did.
func RenderRollback(r *orchestration.RollbackReport) string {
	var b strings.Builder

	title := "  Rollback"
	if r.Complete() {
		title += " " + readyStyle.Render("complete")
	} else {
		title += " " + failedStyle.Render("incomplete")
	}
	b.WriteString(sectionStyle.Render(title))
	b.WriteString("\n")

	for _, key := range r.Orphans {
		fmt.Fprintf(&b, "    %s %-32s %s\n", readyStyle.Render(checkMark), key, dimStyle.Render("destroyed (unfinished)"))
	}
	for _, key := range r.Destroyed {
		fmt.Fprintf(&b, "    %s %-32s %s\n", readyStyle.Render(checkMark), key, dimStyle.Render("destroyed"))
	}
	for _, name := range r.Released {
		fmt.Fprintf(&b, "    %s %-32s %s\n", readyStyle.Render(checkMark), name, dimStyle.Render("released"))
	}
	for _, name := range r.Kept {
		fmt.Fprintf(&b, "    %s %-32s %s\n", dimStyle.Render(skipMark), name, dimStyle.Render("kept (pre-existing)"))
	}
	for _, key := range r.Skipped {
		fmt.Fprintf(&b, "    %s %-32s %s\n", dimStyle.Render(skipMark), key, dimStyle.Render("kept"))
	}
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "    %s %-32s %s\n", failedStyle.Render(crossMark), f.Key,
			failedStyle.Render(fmt.Sprintf("%s: %s", f.Action, f.Error)))
	}
	return b.String()
}

// RenderRuns renders journaled runs, newest last.
func RenderRuns(runs []provisioning.RunInfo) string {
	if len(runs) == 0 {
		return dimStyle.Render("No runs recorded.") + "\n"
	}

	var b strings.Builder
	for _, run := range runs {
		style := sf(runStatusStyle(run.Status))
		fmt.Fprintf(&b, "%-36s  %-16s  %-20s  %s\n",
			run.ID, run.Environment, style(string(run.Status)), run.StartedAt.Format(time.RFC3339))
	}
	return b.String()
}
