package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imkarma/studier/internal/game"
	"github.com/imkarma/studier/internal/store"
	"github.com/imkarma/studier/internal/tracker"
)

func newTestModel(t *testing.T) (Model, *tracker.Service) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "tui.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	now := time.Date(2026, 5, 4, 8, 30, 0, 0, time.UTC)
	svc := tracker.New(st,
		tracker.WithClock(func() time.Time { return now }),
		tracker.WithLocation(time.UTC),
	)
	return New(svc), svc
}

// step feeds msg to the model and then runs the returned command chain until
// it settles, the way the bubbletea runtime would.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	for i := 0; msg != nil && i < 10; i++ {
		next, cmd := m.Update(msg)
		m = next.(Model)
		if cmd == nil {
			return m
		}
		msg = cmd()
		if _, ok := msg.(tickMsg); ok {
			return m
		}
		if _, ok := msg.(tea.BatchMsg); ok {
			return m
		}
	}
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+d":
		return tea.KeyMsg{Type: tea.KeyCtrlD}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func load(t *testing.T, m Model) Model {
	t.Helper()
	return step(t, m, m.loadSnapshot()())
}

func TestModel_AddTaskThroughPopup(t *testing.T) {
	m, svc := newTestModel(t)
	m = load(t, m)

	m = step(t, m, key("a"))
	require.Equal(t, popupAdd, m.popup)
	assert.Equal(t, game.DifficultyMedium, m.difficulty)

	m = step(t, m, key("ctrl+d"))
	assert.Equal(t, game.DifficultyHard, m.difficulty)

	m.textInput.SetValue("Past papers")
	m = step(t, m, key("enter"))

	assert.Equal(t, popupNone, m.popup)
	assert.Contains(t, m.statusMsg, "Past papers")
	require.Len(t, m.rows(), 1)
	assert.Equal(t, game.DifficultyHard, m.rows()[0].Difficulty)

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.State.Tasks, 1)
}

func TestModel_EmptyTitleKeepsPopupOpen(t *testing.T) {
	m, _ := newTestModel(t)
	m = load(t, m)

	m = step(t, m, key("a"))
	m = step(t, m, key("enter"))

	assert.Equal(t, popupAdd, m.popup)
	assert.True(t, m.statusErr)
}

func TestModel_CompleteShowsRewards(t *testing.T) {
	m, svc := newTestModel(t)
	_, _, err := svc.AddTask(context.Background(), "Flashcards", "", game.DifficultyEasy)
	require.NoError(t, err)
	m = load(t, m)

	m = step(t, m, key("c"))

	assert.Contains(t, m.statusMsg, "Completed: Flashcards")
	assert.Contains(t, m.statusMsg, "+10 XP")
	assert.Contains(t, m.statusMsg, "Badge earned")
	require.Len(t, m.rows(), 1)
	assert.True(t, m.rows()[0].Completed)
	assert.Equal(t, 10, m.snap.State.Progression.XP)

	// A second press on a finished task changes nothing.
	m = step(t, m, key("c"))
	assert.Contains(t, m.statusMsg, "Already done")
	assert.Equal(t, 10, m.snap.State.Progression.XP)
}

func TestModel_EditAndDelete(t *testing.T) {
	m, svc := newTestModel(t)
	_, _, err := svc.AddTask(context.Background(), "Draft", "", game.DifficultyMedium)
	require.NoError(t, err)
	m = load(t, m)

	m = step(t, m, key("e"))
	require.Equal(t, popupEdit, m.popup)
	assert.Equal(t, "Draft", m.textInput.Value())

	m.textInput.SetValue("Essay outline")
	m = step(t, m, key("enter"))
	require.Len(t, m.rows(), 1)
	assert.Equal(t, "Essay outline", m.rows()[0].Title)

	m = step(t, m, key("d"))
	require.Equal(t, popupConfirmDelete, m.popup)
	m = step(t, m, key("y"))

	assert.Empty(t, m.rows())
	assert.Contains(t, m.statusMsg, "Deleted: Essay outline")
}

func TestModel_RowsOpenFirstAndHideDone(t *testing.T) {
	m, svc := newTestModel(t)
	ctx := context.Background()
	first, _, err := svc.AddTask(ctx, "first", "", game.DifficultyEasy)
	require.NoError(t, err)
	_, _, err = svc.AddTask(ctx, "second", "", game.DifficultyEasy)
	require.NoError(t, err)
	_, err = svc.CompleteTask(ctx, first.ID)
	require.NoError(t, err)
	m = load(t, m)

	rows := m.rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "second", rows[0].Title)
	assert.Equal(t, "first", rows[1].Title)

	m = step(t, m, key("h"))
	assert.Len(t, m.rows(), 1)
}

func TestModel_ViewRenders(t *testing.T) {
	m, svc := newTestModel(t)
	_, _, err := svc.AddTask(context.Background(), "Revise notes", "", game.DifficultyHard)
	require.NoError(t, err)
	m = load(t, m)
	m = step(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	out := m.View()
	assert.Contains(t, out, "studier")
	assert.Contains(t, out, "Revise notes")
	assert.Contains(t, out, "Daily Quests")
	assert.Contains(t, out, "Badges")
}

func TestSummarize(t *testing.T) {
	events := []game.Event{
		{Kind: game.EventTaskCompleted, Title: "x"},
		{Kind: game.EventXPGained, Amount: 50, Source: "task"},
		{Kind: game.EventLevelUp, Level: 2},
		{Kind: game.EventXPGained, Amount: 75, Source: "quest complete_hard_task"},
	}
	got := summarize("Completed", "x", events)
	assert.Equal(t, "Completed: x · +50 XP · Level up! You are now level 2", got)
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		name         string
		value, total int
		wantFilled   int
	}{
		{"empty", 0, 100, 0},
		{"half", 50, 100, 5},
		{"over", 250, 100, 10},
		{"zero total", 5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := renderBar(tt.value, tt.total, 10)
			assert.Equal(t, tt.wantFilled, strings.Count(bar, "█"))
			assert.Equal(t, 10-tt.wantFilled, strings.Count(bar, "░"))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

type chanSender chan tea.Msg

func (c chanSender) Send(msg tea.Msg) { c <- msg }

func TestStartWatcher_SendsRefresh(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "studier.db")
	require.NoError(t, os.WriteFile(dbPath, nil, 0o644))

	msgs := make(chanSender, 4)
	stop, err := StartWatcher(dbPath, msgs, zerolog.Nop())
	require.NoError(t, err)
	defer stop()

	// Unrelated files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(dbPath+"-wal", []byte("x"), 0o644))

	select {
	case msg := <-msgs:
		assert.IsType(t, RefreshMsg{}, msg)
	case <-time.After(3 * time.Second):
		t.Fatal("no refresh after database write")
	}
}
