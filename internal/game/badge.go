package game

import "slices"

// BadgeKind selects the statistic a badge requirement is checked against.
type BadgeKind string

const (
	BadgeLevel     BadgeKind = "level"
	BadgeStreak    BadgeKind = "streak"
	BadgeTaskCount BadgeKind = "taskCount"
	BadgeHardCount BadgeKind = "hardTaskCount"
)

// Badge is a permanent achievement.
type Badge struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Requirement int       `json:"requirement"`
	Kind        BadgeKind `json:"kind"`
}

var badgeCatalog = []Badge{
	{ID: "first_task", Name: "First Steps", Description: "Complete your first task", Icon: "🌱", Requirement: 1, Kind: BadgeTaskCount},
	{ID: "level_5", Name: "Rising Star", Description: "Reach level 5", Icon: "⭐", Requirement: 5, Kind: BadgeLevel},
	{ID: "level_10", Name: "Expert", Description: "Reach level 10", Icon: "🏆", Requirement: 10, Kind: BadgeLevel},
	{ID: "streak_7", Name: "Week Warrior", Description: "Keep a 7 day streak", Icon: "🔥", Requirement: 7, Kind: BadgeStreak},
	{ID: "streak_30", Name: "Month Master", Description: "Keep a 30 day streak", Icon: "👑", Requirement: 30, Kind: BadgeStreak},
	{ID: "tasks_10", Name: "Task Master", Description: "Complete 10 tasks", Icon: "✅", Requirement: 10, Kind: BadgeTaskCount},
	{ID: "tasks_50", Name: "Study Legend", Description: "Complete 50 tasks", Icon: "📚", Requirement: 50, Kind: BadgeTaskCount},
	{ID: "hard_10", Name: "Challenge Seeker", Description: "Complete 10 hard tasks", Icon: "💎", Requirement: 10, Kind: BadgeHardCount},
}

// badgeStats is the snapshot badges are judged on.
type badgeStats struct {
	completed int
	hard      int
	level     int
	streak    int
}

var badgeStatFuncs = map[BadgeKind]func(badgeStats) int{
	BadgeLevel:     func(st badgeStats) int { return st.level },
	BadgeStreak:    func(st badgeStats) int { return st.streak },
	BadgeTaskCount: func(st badgeStats) int { return st.completed },
	BadgeHardCount: func(st badgeStats) int { return st.hard },
}

func statsOf(s *State) badgeStats {
	return badgeStats{
		completed: s.Tasks.CompletedCount(),
		hard:      s.Tasks.HardCompletedCount(),
		level:     LevelFor(s.Progression.XP),
		streak:    s.Progression.Streak,
	}
}

// Badges returns the badge catalog in evaluation order.
func Badges() []Badge {
	return slices.Clone(badgeCatalog)
}

// BadgeSet is the append-only set of earned badge IDs.
type BadgeSet []string

func (b BadgeSet) Has(id string) bool { return slices.Contains(b, id) }

// Add records a badge. It reports false if it was already there.
func (b *BadgeSet) Add(id string) bool {
	if b.Has(id) {
		return false
	}
	*b = append(*b, id)
	return true
}

// BadgeStatus pairs a catalog badge with its unlock state and current stat.
type BadgeStatus struct {
	Badge
	Current int  `json:"current"`
	Earned  bool `json:"earned"`
}

// BadgeStatuses reports every catalog badge in order.
func BadgeStatuses(s *State) []BadgeStatus {
	st := statsOf(s)
	out := make([]BadgeStatus, 0, len(badgeCatalog))
	for _, b := range badgeCatalog {
		out = append(out, BadgeStatus{
			Badge:   b,
			Current: badgeStatFuncs[b.Kind](st),
			Earned:  s.Badges.Has(b.ID),
		})
	}
	return out
}
