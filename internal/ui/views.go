package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var (
	accentColor  = lipgloss.Color("#A40000")
	mutedColor   = lipgloss.Color("#888888")
	successColor = lipgloss.Color("#00AA00")
	activeColor  = lipgloss.Color("#FFA500")
)

// renderApplyView renders the in-progress view
func renderApplyView(m Model) string {
	var b strings.Builder

	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")

	b.WriteString(renderStageList(m))
	b.WriteString("\n")

	b.WriteString(renderOverallProgress(m))

	return b.String()
}

// renderHeader renders the application header
func renderHeader(m Model) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(accentColor).
		Render("AV Processor")

	subtitle := lipgloss.NewStyle().
		Foreground(mutedColor).
		Italic(true).
		Render(m.Title)

	return title + "\n" + subtitle
}

func renderStageList(m Model) string {
	var b strings.Builder
	for _, stage := range m.Stages {
		b.WriteString(renderStageEntry(stage, m.spinnerIndex))
		b.WriteString("\n")
	}
	return b.String()
}

// renderStageEntry renders a single stage with its status icon
func renderStageEntry(stage StageProgress, spinnerIndex int) string {
	switch stage.Status {
	case StatusComplete:
		icon := lipgloss.NewStyle().Foreground(successColor).Render("✓")
		line := fmt.Sprintf(" %s %s", icon, stage.Name)
		if stage.Detail != "" {
			line += lipgloss.NewStyle().Foreground(mutedColor).Render("  " + stage.Detail)
		}
		return line

	case StatusRunning:
		icon := lipgloss.NewStyle().Foreground(activeColor).Render(spinnerFrames[spinnerIndex%len(spinnerFrames)])
		return fmt.Sprintf(" %s %s [%s]", icon, stage.Name, formatElapsed(stage.ElapsedTime))

	case StatusSkipped:
		icon := lipgloss.NewStyle().Foreground(mutedColor).Render("-")
		line := fmt.Sprintf(" %s %s", icon, stage.Name)
		if stage.Detail != "" {
			line += lipgloss.NewStyle().Foreground(mutedColor).Italic(true).Render("  " + stage.Detail)
		}
		return line

	case StatusError:
		icon := lipgloss.NewStyle().Foreground(accentColor).Render("✗")
		return fmt.Sprintf(" %s %s\n   Error: %v", icon, stage.Name, stage.Error)

	default:
		icon := lipgloss.NewStyle().Foreground(mutedColor).Render("○")
		return fmt.Sprintf(" %s %s", icon, stage.Name)
	}
}

// renderProgressBar renders a progress bar
func renderProgressBar(progress float64, width int) string {
	progress = min(max(progress, 0), 1)
	filled := int(progress * float64(width))
	empty := width - filled

	bar := lipgloss.NewStyle().Foreground(accentColor).Render(strings.Repeat("━", filled)) +
		lipgloss.NewStyle().Foreground(lipgloss.Color("#444444")).Render(strings.Repeat("━", empty))

	return fmt.Sprintf("%s %3d%%", bar, int(progress*100))
}

// renderOverallProgress renders the overall progress footer
func renderOverallProgress(m Model) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(mutedColor).
		Padding(0, 1).
		Width(60)

	finished := m.CompletedStages + m.SkippedStages + m.FailedStages
	var progress float64
	if len(m.Stages) > 0 {
		progress = float64(finished) / float64(len(m.Stages))
	}

	content := fmt.Sprintf("%s\nStage %d of %d [%s]",
		renderProgressBar(progress, 40),
		min(finished+1, len(m.Stages)), len(m.Stages),
		formatElapsed(time.Since(m.StartTime)))

	return box.Render(content)
}

// renderCompletionSummary renders the final view
func renderCompletionSummary(m Model) string {
	var b strings.Builder

	if m.FailedStages > 0 {
		header := lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			Render("✗ Apply failed")
		b.WriteString(header)
	} else {
		header := lipgloss.NewStyle().
			Bold(true).
			Foreground(successColor).
			Render("✨ Configuration applied")
		b.WriteString(header)
	}
	b.WriteString("\n\n")

	for _, stage := range m.Stages {
		if stage.Status == StatusPending {
			continue
		}
		b.WriteString(renderStageEntry(stage, 0))
		b.WriteString("\n")
	}

	if m.Summary != "" {
		b.WriteString("\n")
		b.WriteString(strings.Repeat("─", 60))
		b.WriteString("\n")
		b.WriteString(m.Summary)
		b.WriteString("\n")
	}

	return b.String()
}

// formatElapsed formats elapsed time as MM:SS or HH:MM:SS
func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
