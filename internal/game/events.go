package game

import "fmt"

// EventKind names something the engine wants the outside world to know about.
type EventKind string

const (
	EventTaskAdded       EventKind = "task.added"
	EventTaskCompleted   EventKind = "task.completed"
	EventTaskEdited      EventKind = "task.edited"
	EventTaskDeleted     EventKind = "task.deleted"
	EventXPGained        EventKind = "xp.gained"
	EventLevelUp         EventKind = "level.up"
	EventQuestCompleted  EventKind = "quest.completed"
	EventQuestsReset     EventKind = "quests.reset"
	EventBadgeEarned     EventKind = "badge.earned"
	EventStreakMilestone EventKind = "streak.milestone"
	EventStreakBroken    EventKind = "streak.broken"
)

// streakMilestones are the streak lengths that get a celebration.
var streakMilestones = []int{7, 30}

// Event is emitted by the engine. Only the fields relevant to Kind are set.
type Event struct {
	Kind   EventKind `json:"kind"`
	TaskID int64     `json:"task_id,omitempty"`
	Title  string    `json:"title,omitempty"`
	Amount int       `json:"amount,omitempty"`
	Source string    `json:"source,omitempty"`
	Level  int       `json:"level,omitempty"`
	Streak int       `json:"streak,omitempty"`
	Quest  *Quest    `json:"quest,omitempty"`
	Badge  *Badge    `json:"badge,omitempty"`
}

// Describe renders a one-line human summary.
func (e Event) Describe() string {
	switch e.Kind {
	case EventTaskAdded:
		return fmt.Sprintf("Task created: %s", e.Title)
	case EventTaskCompleted:
		return fmt.Sprintf("Task completed: %s", e.Title)
	case EventTaskEdited:
		return fmt.Sprintf("Task edited: %s", e.Title)
	case EventTaskDeleted:
		return fmt.Sprintf("Task deleted: %s", e.Title)
	case EventXPGained:
		return fmt.Sprintf("+%d XP (%s)", e.Amount, e.Source)
	case EventLevelUp:
		return fmt.Sprintf("Level up! You are now level %d", e.Level)
	case EventQuestCompleted:
		if e.Quest != nil {
			return fmt.Sprintf("Quest completed: %s (+%d XP)", e.Quest.Title, e.Quest.Reward)
		}
	case EventQuestsReset:
		return "New day, daily quests reset"
	case EventBadgeEarned:
		if e.Badge != nil {
			return fmt.Sprintf("Badge earned: %s %s", e.Badge.Icon, e.Badge.Name)
		}
	case EventStreakMilestone:
		return fmt.Sprintf("%d day streak!", e.Streak)
	case EventStreakBroken:
		return "Streak lost"
	}
	return string(e.Kind)
}
