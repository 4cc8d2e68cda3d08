package game

// XPPerLevel is the width of every level band.
const XPPerLevel = 100

// LevelFor derives the level from cumulative XP.
func LevelFor(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}

// Progression is the player's XP, level and streak.
// Level is cached but always re-derived from XP.
type Progression struct {
	XP             int
	Level          int
	Streak         int
	LastCompletion Date
}

// AwardXP adds experience and reports whether the level went up.
func (p *Progression) AwardXP(amount int) bool {
	if amount <= 0 {
		p.Level = LevelFor(p.XP)
		return false
	}
	before := LevelFor(p.XP)
	p.XP += amount
	p.Level = LevelFor(p.XP)
	return p.Level > before
}

// RecordCompletion applies the streak rule for a completion on today.
//
//   - nothing recorded yet: streak stays put, or becomes 1 when countFirstDay is set
//   - last completion yesterday: streak + 1
//   - last completion today: unchanged
//   - older than yesterday: streak restarts at 1
//
// A last-completion date in the future (clock moved back) is treated as today.
func (p *Progression) RecordCompletion(today Date, countFirstDay bool) {
	switch {
	case p.LastCompletion.IsZero():
		if countFirstDay && p.Streak == 0 {
			p.Streak = 1
		}
	case !p.LastCompletion.Before(today):
		return
	case p.LastCompletion.AddDays(1).Equal(today):
		p.Streak++
	default:
		p.Streak = 1
	}
	p.LastCompletion = today
}

// Refresh re-derives the level and drops a streak that can no longer be
// continued. Reports whether the streak broke.
//
// A lapsed streak reads as 0, not 1: no day has been counted since it broke,
// and the next completion restarts it at 1 through RecordCompletion. Refresh
// never increments, so loading twice on the day after a completion cannot
// inflate the streak.
func (p *Progression) Refresh(today Date) bool {
	p.Level = LevelFor(p.XP)
	if p.Streak == 0 || p.LastCompletion.IsZero() {
		return false
	}
	if p.LastCompletion.DaysUntil(today) >= 2 {
		p.Streak = 0
		return true
	}
	return false
}

// LevelProgress returns XP earned inside the current level and the band width.
func (p Progression) LevelProgress() (into, width int) {
	return p.XP % XPPerLevel, XPPerLevel
}
