package game

import (
	"slices"
	"time"
)

// State is everything the game knows. It is passed explicitly to the engine.
type State struct {
	Tasks       TaskList
	Progression Progression
	Quests      QuestProgress
	Badges      BadgeSet
}

// NewState returns the state of a brand-new player.
func NewState() *State {
	return &State{Progression: Progression{Level: 1}}
}

// Rules are the tunable knobs of the engine.
type Rules struct {
	// CountFirstDay makes the very first completion start the streak at 1.
	CountFirstDay bool
}

// Engine applies user actions to a State and reports what happened.
// It never performs I/O.
type Engine struct {
	rules Rules
}

// NewEngine creates an engine with the given rules.
func NewEngine(rules Rules) *Engine {
	return &Engine{rules: rules}
}

// Refresh brings a freshly loaded state up to date for now: the daily
// quest reset, the level re-derivation and the broken-streak check.
func (e *Engine) Refresh(s *State, now time.Time) []Event {
	today := DateOf(now)
	var events []Event
	if s.Progression.Refresh(today) {
		events = append(events, Event{Kind: EventStreakBroken})
	}
	return append(events, e.resetQuests(s, today)...)
}

// AddTask validates and appends a task, then re-evaluates quests and badges.
func (e *Engine) AddTask(s *State, title, description string, difficulty Difficulty, now time.Time) (Task, []Event, error) {
	today := DateOf(now)
	events := e.resetQuests(s, today)

	t, err := s.Tasks.Add(title, description, difficulty, now)
	if err != nil {
		return Task{}, nil, err
	}
	events = append(events, Event{Kind: EventTaskAdded, TaskID: t.ID, Title: t.Title})
	events = append(events, e.evaluateQuests(s, today)...)
	events = append(events, e.evaluateBadges(s)...)
	return t, events, nil
}

// CompleteTask finishes a task and runs the full progression chain.
// Completing a missing or finished task changes nothing.
func (e *Engine) CompleteTask(s *State, id int64, now time.Time) []Event {
	today := DateOf(now)
	events := e.resetQuests(s, today)

	xp := s.Tasks.Complete(id, now)
	if xp == 0 {
		return events
	}
	t, _ := s.Tasks.Get(id)
	events = append(events, Event{Kind: EventTaskCompleted, TaskID: id, Title: t.Title, Amount: xp})

	before := s.Progression.Streak
	s.Progression.RecordCompletion(today, e.rules.CountFirstDay)
	if after := s.Progression.Streak; after != before && slices.Contains(streakMilestones, after) {
		events = append(events, Event{Kind: EventStreakMilestone, Streak: after})
	}

	events = append(events, e.award(s, xp, "task")...)
	s.Quests.XPEarnedToday += xp

	events = append(events, e.evaluateQuests(s, today)...)
	events = append(events, e.evaluateBadges(s)...)
	return events
}

// EditTask changes an open task's title and description.
func (e *Engine) EditTask(s *State, id int64, title, description string) ([]Event, error) {
	if err := s.Tasks.Edit(id, title, description); err != nil {
		return nil, err
	}
	t, ok := s.Tasks.Get(id)
	if !ok {
		return nil, nil
	}
	return []Event{{Kind: EventTaskEdited, TaskID: id, Title: t.Title}}, nil
}

// DeleteTask removes a task. Deleting a missing task is a no-op.
// Earned XP and badges are kept.
func (e *Engine) DeleteTask(s *State, id int64) []Event {
	t, ok := s.Tasks.Get(id)
	if !ok || !s.Tasks.Delete(id) {
		return nil
	}
	return []Event{{Kind: EventTaskDeleted, TaskID: id, Title: t.Title}}
}

func (e *Engine) resetQuests(s *State, today Date) []Event {
	first := s.Quests.ResetDate.IsZero()
	if !s.Quests.ResetIfNeeded(today) || first {
		return nil
	}
	return []Event{{Kind: EventQuestsReset}}
}

func (e *Engine) award(s *State, amount int, source string) []Event {
	events := []Event{{Kind: EventXPGained, Amount: amount, Source: source}}
	if s.Progression.AwardXP(amount) {
		events = append(events, Event{Kind: EventLevelUp, Level: s.Progression.Level})
	}
	return events
}

// evaluateQuests pays out every quest that crossed its target today.
// Rewards do not count toward the day's earned XP.
func (e *Engine) evaluateQuests(s *State, today Date) []Event {
	var events []Event
	for _, q := range questCatalog {
		if s.Quests.IsCompleted(q.ID) {
			continue
		}
		if questProgressFuncs[q.Kind](s, today) < q.Target {
			continue
		}
		s.Quests.Completed = append(s.Quests.Completed, q.ID)
		quest := q
		events = append(events, Event{Kind: EventQuestCompleted, Quest: &quest})
		events = append(events, e.award(s, q.Reward, "quest "+q.ID)...)
	}
	return events
}

// evaluateBadges unlocks badges in catalog order. Earned badges are never revoked.
func (e *Engine) evaluateBadges(s *State) []Event {
	st := statsOf(s)
	var events []Event
	for _, b := range badgeCatalog {
		if s.Badges.Has(b.ID) {
			continue
		}
		if badgeStatFuncs[b.Kind](st) < b.Requirement {
			continue
		}
		s.Badges.Add(b.ID)
		badge := b
		events = append(events, Event{Kind: EventBadgeEarned, Badge: &badge})
	}
	return events
}
