package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAwardXP_LevelAlwaysDerived(t *testing.T) {
	var p Progression
	for _, amount := range []int{10, 25, 50, 15, 100, 75, 40, 1, 99} {
		p.AwardXP(amount)
		assert.Equal(t, p.XP/100+1, p.Level, "xp=%d", p.XP)
	}
}

func TestAwardXP_ReportsLevelUp(t *testing.T) {
	p := Progression{XP: 90, Level: 1}

	assert.False(t, p.AwardXP(5))
	assert.True(t, p.AwardXP(5))
	assert.Equal(t, 2, p.Level)
	assert.False(t, p.AwardXP(0))
	assert.True(t, p.AwardXP(250))
	assert.Equal(t, 4, p.Level)
}

func TestRecordCompletion(t *testing.T) {
	today := MustDate("2026-03-10")

	tests := []struct {
		name          string
		start         Progression
		countFirstDay bool
		want          int
	}{
		{"first ever keeps streak", Progression{}, false, 0},
		{"first ever counts day one", Progression{}, true, 1},
		{"yesterday increments", Progression{Streak: 4, LastCompletion: today.AddDays(-1)}, false, 5},
		{"same day unchanged", Progression{Streak: 4, LastCompletion: today}, false, 4},
		{"three days ago resets", Progression{Streak: 9, LastCompletion: today.AddDays(-3)}, false, 1},
		{"two days ago resets", Progression{Streak: 2, LastCompletion: today.AddDays(-2)}, false, 1},
		{"future date unchanged", Progression{Streak: 3, LastCompletion: today.AddDays(1)}, false, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.start
			p.RecordCompletion(today, tt.countFirstDay)
			assert.Equal(t, tt.want, p.Streak)
		})
	}
}

func TestRecordCompletion_RecordsDate(t *testing.T) {
	today := MustDate("2026-03-10")
	var p Progression

	p.RecordCompletion(today, false)
	assert.True(t, p.LastCompletion.Equal(today))

	p.RecordCompletion(today.AddDays(1), false)
	assert.Equal(t, 1, p.Streak)
	assert.True(t, p.LastCompletion.Equal(today.AddDays(1)))
}

func TestRefresh(t *testing.T) {
	today := MustDate("2026-03-10")

	p := Progression{XP: 340, Level: 1, Streak: 5, LastCompletion: today.AddDays(-1)}
	assert.False(t, p.Refresh(today))
	assert.Equal(t, 4, p.Level)
	assert.Equal(t, 5, p.Streak)
	p.Refresh(today)
	assert.Equal(t, 5, p.Streak, "loading again does not count the day")

	p.LastCompletion = today.AddDays(-2)
	assert.True(t, p.Refresh(today))
	assert.Equal(t, 0, p.Streak)
	assert.False(t, p.Refresh(today), "already broken")

	p.RecordCompletion(today, false)
	assert.Equal(t, 1, p.Streak, "next completion restarts the streak")
}

func TestLevelProgress(t *testing.T) {
	p := Progression{XP: 245}
	into, width := p.LevelProgress()
	assert.Equal(t, 45, into)
	assert.Equal(t, 100, width)
}
