package game

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// Difficulty is the tier a task is filed under; it decides the XP award.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists the tiers from easiest to hardest.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// DifficultyNames lists the tier names for help and error text.
func DifficultyNames() string {
	names := make([]string, len(Difficulties))
	for i, d := range Difficulties {
		names[i] = string(d)
	}
	return strings.Join(names, ", ")
}

// ParseDifficulty accepts a tier name. An empty string means medium.
func ParseDifficulty(s string) (Difficulty, error) {
	name := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if name == "" {
		return DifficultyMedium, nil
	}
	if slices.Contains(Difficulties, name) {
		return name, nil
	}
	return "", &ValidationError{Field: "difficulty", Reason: "must be one of " + DifficultyNames() + ", got " + strconv.Quote(s)}
}

// XP returns the experience awarded for completing a task of this tier.
func (d Difficulty) XP() int {
	switch d {
	case DifficultyEasy:
		return 10
	case DifficultyMedium:
		return 25
	case DifficultyHard:
		return 50
	}
	return 0
}

// Next cycles easy -> medium -> hard -> easy.
func (d Difficulty) Next() Difficulty {
	switch d {
	case DifficultyEasy:
		return DifficultyMedium
	case DifficultyMedium:
		return DifficultyHard
	}
	return DifficultyEasy
}

// Task is a single to-do item.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Difficulty  Difficulty `json:"difficulty"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// TaskList is the ordered task collection. Order is insertion order.
type TaskList []Task

// Add appends a new open task. The ID is the creation time in milliseconds,
// bumped past the last ID when two tasks land in the same millisecond.
func (l *TaskList) Add(title, description string, difficulty Difficulty, now time.Time) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if difficulty.XP() == 0 {
		return Task{}, &ValidationError{Field: "difficulty", Reason: "unknown tier " + strconv.Quote(string(difficulty))}
	}

	id := now.UnixMilli()
	for _, t := range *l {
		if t.ID >= id {
			id = t.ID + 1
		}
	}

	t := Task{
		ID:          id,
		Title:       title,
		Description: strings.TrimSpace(description),
		Difficulty:  difficulty,
		CreatedAt:   now,
	}
	*l = append(*l, t)
	return t, nil
}

// Get returns the task with the given ID.
func (l TaskList) Get(id int64) (Task, bool) {
	if i := l.index(id); i >= 0 {
		return l[i], true
	}
	return Task{}, false
}

// Complete marks a task done and returns the XP it earns. Completing a
// missing, already-completed or unrated task is a no-op that returns 0.
func (l TaskList) Complete(id int64, now time.Time) int {
	i := l.index(id)
	if i < 0 || l[i].Completed {
		return 0
	}
	xp := l[i].Difficulty.XP()
	if xp == 0 {
		return 0
	}
	at := now
	if at.Before(l[i].CreatedAt) {
		at = l[i].CreatedAt
	}
	l[i].Completed = true
	l[i].CompletedAt = &at
	return xp
}

// Edit replaces title and description of an open task. A missing task is
// left alone; a completed task is locked.
func (l TaskList) Edit(id int64, title, description string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	i := l.index(id)
	if i < 0 {
		return nil
	}
	if l[i].Completed {
		return &ValidationError{Field: "task", Reason: "completed tasks cannot be edited"}
	}
	l[i].Title = title
	l[i].Description = strings.TrimSpace(description)
	return nil
}

// Delete removes a task. It reports whether anything was removed.
func (l *TaskList) Delete(id int64) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	*l = append((*l)[:i], (*l)[i+1:]...)
	return true
}

// CompletedCount is the all-time number of completed tasks still on the list.
func (l TaskList) CompletedCount() int {
	return l.count(func(t Task) bool { return t.Completed })
}

// HardCompletedCount is the all-time number of completed hard tasks.
func (l TaskList) HardCompletedCount() int {
	return l.count(func(t Task) bool { return t.Completed && t.Difficulty == DifficultyHard })
}

// CompletedOn counts tasks completed on the given day.
func (l TaskList) CompletedOn(day Date) int {
	return l.count(func(t Task) bool { return completedOn(t, day) })
}

// HardCompletedOn counts hard tasks completed on the given day.
func (l TaskList) HardCompletedOn(day Date) int {
	return l.count(func(t Task) bool { return t.Difficulty == DifficultyHard && completedOn(t, day) })
}

// CreatedOn counts tasks created on the given day.
func (l TaskList) CreatedOn(day Date) int {
	return l.count(func(t Task) bool { return DateOf(t.CreatedAt).Equal(day) })
}

func (l TaskList) index(id int64) int {
	for i := range l {
		if l[i].ID == id {
			return i
		}
	}
	return -1
}

func (l TaskList) count(pred func(Task) bool) int {
	n := 0
	for _, t := range l {
		if pred(t) {
			n++
		}
	}
	return n
}

func completedOn(t Task, day Date) bool {
	return t.Completed && t.CompletedAt != nil && DateOf(*t.CompletedAt).Equal(day)
}
