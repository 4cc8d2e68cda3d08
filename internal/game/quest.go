package game

import "slices"

// QuestKind selects the progress function a quest is measured with.
type QuestKind string

const (
	QuestTasksCompleted QuestKind = "tasks_completed"
	QuestHardCompleted  QuestKind = "hard_completed"
	QuestXPEarned       QuestKind = "xp_earned"
	QuestTasksCreated   QuestKind = "tasks_created"
)

// Quest is a daily objective. Each one pays its reward at most once per day.
type Quest struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Target      int       `json:"target"`
	Reward      int       `json:"reward"`
	Kind        QuestKind `json:"kind"`
}

var questCatalog = []Quest{
	{ID: "complete_3_tasks", Title: "Complete 3 Tasks", Description: "Finish any three tasks today", Icon: "🎯", Target: 3, Reward: 50, Kind: QuestTasksCompleted},
	{ID: "complete_hard_task", Title: "Hard Task Challenge", Description: "Complete a hard task today", Icon: "💪", Target: 1, Reward: 75, Kind: QuestHardCompleted},
	{ID: "earn_100_xp", Title: "XP Hunter", Description: "Earn 100 XP from tasks today", Icon: "⚡", Target: 100, Reward: 100, Kind: QuestXPEarned},
	{ID: "create_5_tasks", Title: "Task Creator", Description: "Create five tasks today", Icon: "📝", Target: 5, Reward: 40, Kind: QuestTasksCreated},
}

// questProgressFuncs measures each quest kind against the state for a day.
var questProgressFuncs = map[QuestKind]func(s *State, today Date) int{
	QuestTasksCompleted: func(s *State, today Date) int { return s.Tasks.CompletedOn(today) },
	QuestHardCompleted:  func(s *State, today Date) int { return s.Tasks.HardCompletedOn(today) },
	QuestXPEarned:       func(s *State, _ Date) int { return s.Quests.XPEarnedToday },
	QuestTasksCreated:   func(s *State, today Date) int { return s.Tasks.CreatedOn(today) },
}

// Quests returns the daily quest catalog in display order.
func Quests() []Quest {
	return slices.Clone(questCatalog)
}

// QuestProgress is today's quest bookkeeping.
type QuestProgress struct {
	XPEarnedToday int      `json:"xpEarnedToday"`
	Completed     []string `json:"completedQuests"`
	ResetDate     Date     `json:"-"`
}

// ResetIfNeeded starts a fresh day when the reset date is not today.
func (q *QuestProgress) ResetIfNeeded(today Date) bool {
	if q.ResetDate.Equal(today) {
		return false
	}
	q.XPEarnedToday = 0
	q.Completed = nil
	q.ResetDate = today
	return true
}

// IsCompleted reports whether the quest already paid out today.
func (q QuestProgress) IsCompleted(id string) bool {
	return slices.Contains(q.Completed, id)
}

// QuestStatus is a quest with its progress for the day.
type QuestStatus struct {
	Quest
	Progress  int  `json:"progress"`
	Completed bool `json:"completed"`
}

// Percent is the progress toward the target, capped at 100.
func (qs QuestStatus) Percent() int {
	if qs.Target <= 0 {
		return 100
	}
	p := qs.Progress * 100 / qs.Target
	if p > 100 {
		return 100
	}
	return p
}

// QuestStatuses reports every catalog quest's progress for today.
// The caller is expected to have reset the day already.
func QuestStatuses(s *State, today Date) []QuestStatus {
	out := make([]QuestStatus, 0, len(questCatalog))
	for _, q := range questCatalog {
		progress := questProgressFuncs[q.Kind](s, today)
		done := s.Quests.IsCompleted(q.ID)
		if done && progress < q.Target {
			progress = q.Target
		}
		out = append(out, QuestStatus{Quest: q, Progress: progress, Completed: done})
	}
	return out
}
