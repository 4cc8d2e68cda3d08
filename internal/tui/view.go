package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/imkarma/studier/internal/game"
	"github.com/imkarma/studier/internal/payment"
)

// --- Color palette ---
var (
	clrSubtle    = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#666666"}
	clrHighlight = lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#A78BFA"}
	clrGreen     = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	clrYellow    = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
	clrRed       = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	clrBlue      = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	clrCyan      = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#22D3EE"}
	clrDim       = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#555555"}
)

// --- Styles ---
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	dimStyle    = lipgloss.NewStyle().Foreground(clrDim)
	subtleStyle = lipgloss.NewStyle().Foreground(clrSubtle)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrSubtle).
			Padding(0, 1)

	popupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrHighlight).
			Padding(1, 2).
			Width(60)

	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	doneStyle     = lipgloss.NewStyle().Foreground(clrDim).Strikethrough(true)

	statusStyle = lipgloss.NewStyle().Foreground(clrGreen).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(clrRed).Bold(true)

	footerKeyStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	footerDescStyle = lipgloss.NewStyle().Foreground(clrSubtle)
)

var difficultyColors = map[game.Difficulty]lipgloss.AdaptiveColor{
	game.DifficultyEasy:   clrGreen,
	game.DifficultyMedium: clrYellow,
	game.DifficultyHard:   clrRed,
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	content := m.viewBoard()
	if m.popup != popupNone {
		content = m.overlayPopup(content)
	}
	return content
}

// ════════════════════════════════════════════════
// BOARD
// ════════════════════════════════════════════════

func (m Model) viewBoard() string {
	var b strings.Builder

	if m.snap == nil {
		b.WriteString(titleStyle.Render("studier") + dimStyle.Render(" loading...") + "\n")
		return b.String()
	}

	b.WriteString(m.viewHeader() + "\n\n")

	left := m.viewTasks()
	right := lipgloss.JoinVertical(lipgloss.Left, m.viewQuests(), m.viewBadges())
	if m.width == 0 || m.width >= 100 {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right))
	} else {
		b.WriteString(lipgloss.JoinVertical(lipgloss.Left, left, right))
	}
	b.WriteString("\n")

	if m.statusMsg != "" {
		if m.statusErr {
			b.WriteString(errorStyle.Render("  " + m.statusMsg))
		} else {
			b.WriteString(statusStyle.Render("  " + m.statusMsg))
		}
		b.WriteString("\n")
	}

	keys := []struct{ key, desc string }{
		{"a", "add"},
		{"c", "complete"},
		{"e", "edit"},
		{"d", "delete"},
		{"h", "hide done"},
		{"r", "refresh"},
		{"q", "quit"},
	}
	b.WriteString(renderFooter(keys))

	return b.String()
}

func (m Model) viewHeader() string {
	p := m.snap.State.Progression
	into, width := p.LevelProgress()

	header := titleStyle.Render("studier")
	header += dimStyle.Render("  " + m.snap.Today.String())

	level := lipgloss.NewStyle().Bold(true).Foreground(clrCyan).Render(fmt.Sprintf("Lv %d", p.Level))
	bar := renderBar(into, width, 20)
	xp := subtleStyle.Render(fmt.Sprintf("%d/%d XP  (%d total)", into, width, p.XP))

	streak := dimStyle.Render("no streak")
	if p.Streak > 0 {
		streak = lipgloss.NewStyle().Foreground(clrYellow).Render(fmt.Sprintf("🔥 %d day streak", p.Streak))
	}

	plan := dimStyle.Render("free")
	if m.snap.Subscription.Plan == payment.PlanPremium {
		plan = lipgloss.NewStyle().Foreground(clrBlue).Bold(true).Render("premium")
	}

	return header + "\n" + level + "  " + bar + "  " + xp + "   " + streak + "   " + plan
}

func (m Model) viewTasks() string {
	var b strings.Builder
	width := m.panelWidth()

	rows := m.rows()
	open := 0
	for _, t := range m.snap.State.Tasks {
		if !t.Completed {
			open++
		}
	}
	b.WriteString(titleStyle.Render("Tasks"))
	b.WriteString(dimStyle.Render(fmt.Sprintf(" (%d open, %d done)", open, len(m.snap.State.Tasks)-open)))
	b.WriteString("\n\n")

	if len(rows) == 0 {
		b.WriteString(dimStyle.Render("No tasks yet. Press ") + footerKeyStyle.Render("a") + dimStyle.Render(" to add one."))
		return panelStyle.Width(width).Render(b.String())
	}

	for i, t := range rows {
		b.WriteString(m.renderTaskRow(t, i == m.cursor, width-4))
		b.WriteString("\n")
	}

	if sel := m.selectedTask(); sel != nil && sel.Description != "" {
		b.WriteString("\n" + dimStyle.Render(truncate(sel.Description, width-4)))
	}

	return panelStyle.Width(width).Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderTaskRow(t game.Task, selected bool, width int) string {
	check := "○"
	if t.Completed {
		check = lipgloss.NewStyle().Foreground(clrGreen).Render("●")
	}

	diff := lipgloss.NewStyle().Foreground(difficultyColors[t.Difficulty]).
		Render(fmt.Sprintf("%-6s +%d", t.Difficulty, t.Difficulty.XP()))

	title := truncate(t.Title, width-18)
	switch {
	case selected:
		title = selectedStyle.Render("› " + title)
	case t.Completed:
		title = "  " + doneStyle.Render(title)
	default:
		title = "  " + title
	}

	line := check + " " + title
	pad := width - lipgloss.Width(line) - lipgloss.Width(diff)
	if pad < 1 {
		pad = 1
	}
	return line + strings.Repeat(" ", pad) + diff
}

func (m Model) viewQuests() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Daily Quests"))
	b.WriteString(dimStyle.Render(fmt.Sprintf(" (%d XP today)", m.snap.State.Quests.XPEarnedToday)))
	b.WriteString("\n\n")

	for _, qs := range m.snap.Quests {
		name := qs.Icon + " " + qs.Title
		if qs.Completed {
			name = lipgloss.NewStyle().Foreground(clrGreen).Render(name + " ✓")
		}
		b.WriteString(name + "\n")
		b.WriteString("  " + renderBar(qs.Progress, qs.Target, 16) + " " +
			subtleStyle.Render(fmt.Sprintf("%d/%d  +%d XP", min(qs.Progress, qs.Target), qs.Target, qs.Reward)) + "\n")
	}

	return panelStyle.Width(m.sideWidth()).Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) viewBadges() string {
	var b strings.Builder
	earned := 0
	for _, bs := range m.snap.Badges {
		if bs.Earned {
			earned++
		}
	}
	b.WriteString(titleStyle.Render("Badges"))
	b.WriteString(dimStyle.Render(fmt.Sprintf(" (%d/%d)", earned, len(m.snap.Badges))))
	b.WriteString("\n\n")

	for _, bs := range m.snap.Badges {
		if bs.Earned {
			b.WriteString(bs.Icon + " " + lipgloss.NewStyle().Bold(true).Render(bs.Name) + "\n")
			continue
		}
		b.WriteString(dimStyle.Render(fmt.Sprintf("🔒 %s  %d/%d", bs.Name, min(bs.Current, bs.Requirement), bs.Requirement)) + "\n")
	}

	return panelStyle.Width(m.sideWidth()).Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) panelWidth() int {
	if m.width == 0 {
		return 60
	}
	if m.width < 100 {
		return m.width - 2
	}
	return m.width - m.sideWidth() - 5
}

func (m Model) sideWidth() int {
	if m.width > 0 && m.width < 100 {
		return m.width - 2
	}
	return 40
}

// ════════════════════════════════════════════════
// POPUPS
// ════════════════════════════════════════════════

func (m Model) overlayPopup(bg string) string {
	var popup string

	switch m.popup {
	case popupAdd, popupEdit:
		popup = m.viewTaskFormPopup()
	case popupConfirmDelete:
		popup = m.viewConfirmDeletePopup()
	default:
		return bg
	}

	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height,
			lipgloss.Center, lipgloss.Center,
			popup,
			lipgloss.WithWhitespaceChars(" "),
		)
	}
	return popup
}

func (m Model) viewTaskFormPopup() string {
	var b strings.Builder

	heading := "New Task"
	if m.popup == popupEdit {
		heading = "Edit Task"
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(clrHighlight).Render(heading) + "\n\n")

	b.WriteString("Title:\n")
	b.WriteString(m.textInput.View() + "\n\n")
	b.WriteString("Description:\n")
	b.WriteString(m.textInput2.View() + "\n\n")

	help := "enter save • tab switch • esc cancel"
	if m.popup == popupAdd {
		diff := lipgloss.NewStyle().Bold(true).Foreground(difficultyColors[m.difficulty]).
			Render(fmt.Sprintf("%s (+%d XP)", m.difficulty, m.difficulty.XP()))
		b.WriteString("Difficulty: " + diff + "\n\n")
		help = "enter create • tab switch • ctrl+d difficulty • esc cancel"
	}
	b.WriteString(footerDescStyle.Render(help))

	return m.popupBoxStyle().Render(b.String())
}

func (m Model) viewConfirmDeletePopup() string {
	var b strings.Builder

	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(clrRed).Render("Delete Task") + "\n\n")
	if m.snap != nil {
		if t, ok := m.snap.State.Tasks.Get(m.popupTaskID); ok {
			b.WriteString(t.Title + "\n\n")
		}
	}
	b.WriteString(dimStyle.Render("XP and badges you already earned are kept.") + "\n\n")
	b.WriteString(footerKeyStyle.Render("y") + footerDescStyle.Render(" delete  ") +
		footerKeyStyle.Render("n") + footerDescStyle.Render(" cancel"))

	return m.popupBoxStyle().Render(b.String())
}

func (m Model) popupBoxStyle() lipgloss.Style {
	w := 60
	if m.width > 0 {
		w = m.width - 12
		if w < 42 {
			w = 42
		}
		if w > 72 {
			w = 72
		}
	}
	return popupStyle.Width(w)
}

// ════════════════════════════════════════════════
// SHARED HELPERS
// ════════════════════════════════════════════════

func renderFooter(keys []struct{ key, desc string }) string {
	var parts []string
	for _, k := range keys {
		key := footerKeyStyle.Render(k.key)
		desc := footerDescStyle.Render(k.desc)
		parts = append(parts, key+" "+desc)
	}
	return "  " + strings.Join(parts, "  ")
}

// renderBar draws a fixed-width progress bar for value out of total.
func renderBar(value, total, width int) string {
	filled := 0
	if total > 0 {
		filled = value * width / total
	}
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return lipgloss.NewStyle().Foreground(clrHighlight).Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", width-filled))
}

func truncate(s string, max int) string {
	if max < 4 {
		max = 4
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
