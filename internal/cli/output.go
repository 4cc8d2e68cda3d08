package cli

import (
	"fmt"
	"strings"

	"github.com/imkarma/studier/internal/game"
)

// ANSI color codes.
const (
	colorReset   = "\033[0m"
	colorBold    = "\033[1m"
	colorDim     = "\033[2m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorWhite   = "\033[37m"
)

// printEvent is subscribed to the tracker bus by commands that change state.
func printEvent(ev game.Event) {
	switch ev.Kind {
	case game.EventTaskAdded:
		fmt.Printf("Created task %s#%d%s: %s\n", colorCyan, ev.TaskID, colorReset, ev.Title)
	case game.EventTaskCompleted:
		fmt.Printf("%s✓%s Completed: %s\n", colorGreen, colorReset, ev.Title)
	case game.EventTaskEdited:
		fmt.Printf("Updated task %s#%d%s: %s\n", colorCyan, ev.TaskID, colorReset, ev.Title)
	case game.EventTaskDeleted:
		fmt.Printf("Deleted task %s#%d%s: %s\n", colorCyan, ev.TaskID, colorReset, ev.Title)
	case game.EventXPGained:
		fmt.Printf("  %s+%d XP%s %s(%s)%s\n", colorYellow, ev.Amount, colorReset, colorDim, ev.Source, colorReset)
	case game.EventLevelUp:
		fmt.Printf("  %s%s★ Level up! You are now level %d%s\n", colorBold, colorMagenta, ev.Level, colorReset)
	case game.EventQuestCompleted, game.EventBadgeEarned:
		fmt.Printf("  %s%s%s\n", colorGreen+colorBold, ev.Describe(), colorReset)
	case game.EventStreakMilestone:
		fmt.Printf("  %s🔥 %d day streak!%s\n", colorYellow+colorBold, ev.Streak, colorReset)
	case game.EventStreakBroken:
		fmt.Printf("  %sYour streak was reset. Complete a task today to start a new one.%s\n", colorDim, colorReset)
	case game.EventQuestsReset:
		fmt.Printf("  %sNew day, daily quests reset.%s\n", colorDim, colorReset)
	}
}

func difficultyColor(d game.Difficulty) string {
	switch d {
	case game.DifficultyHard:
		return colorRed + colorBold
	case game.DifficultyMedium:
		return colorYellow
	case game.DifficultyEasy:
		return colorGreen
	default:
		return ""
	}
}

// progressBar renders value out of total as a fixed-width ASCII bar.
func progressBar(value, total, width int) string {
	filled := 0
	if total > 0 {
		filled = value * width / total
	}
	filled = max(0, min(filled, width))
	return colorMagenta + strings.Repeat("█", filled) + colorDim + strings.Repeat("░", width-filled) + colorReset
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
