package tracker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imkarma/studier/internal/eventbus"
	"github.com/imkarma/studier/internal/game"
	"github.com/imkarma/studier/internal/payment"
	"github.com/imkarma/studier/internal/store"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seed writes raw values the way an older or hand-edited database might hold them.
func seed(t *testing.T, st *store.Store, values map[string]string) {
	t.Helper()
	err := st.Update(context.Background(), nil, func(map[string]string) (map[string]string, []store.Event, error) {
		return values, nil, nil
	})
	require.NoError(t, err)
}

func stored(t *testing.T, st *store.Store, key string) (string, bool) {
	t.Helper()
	values, err := st.GetMany(context.Background(), key)
	require.NoError(t, err)
	v, ok := values[key]
	return v, ok
}

func newService(t *testing.T, st *store.Store, clock *fakeClock, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithClock(clock.Now), WithLocation(time.UTC)}, opts...)
	return New(st, opts...)
}

func TestService_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	clock := &fakeClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}

	svc := newService(t, st, clock)
	task, _, err := svc.AddTask(ctx, "Read chapter 4", "", game.DifficultyHard)
	require.NoError(t, err)
	_, err = svc.CompleteTask(ctx, task.ID)
	require.NoError(t, err)

	fresh := newService(t, st, clock)
	snap, err := fresh.Snapshot(ctx)
	require.NoError(t, err)

	require.Len(t, snap.State.Tasks, 1)
	assert.True(t, snap.State.Tasks[0].Completed)
	assert.Equal(t, 125, snap.State.Progression.XP, "50 task + 75 hard quest")
	assert.Equal(t, 2, snap.State.Progression.Level)
	assert.True(t, snap.State.Badges.Has("first_task"))
	assert.True(t, snap.State.Quests.IsCompleted("complete_hard_task"))
	assert.Equal(t, 50, snap.State.Quests.XPEarnedToday)

	raw, ok := stored(t, st, KeyLevel)
	require.True(t, ok)
	assert.Equal(t, "2", raw)
}

func TestService_SameDayScenario(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := newService(t, testStore(t), clock)

	var ids []int64
	for _, d := range []game.Difficulty{game.DifficultyEasy, game.DifficultyEasy, game.DifficultyEasy, game.DifficultyHard, game.DifficultyMedium} {
		task, _, err := svc.AddTask(ctx, "task", "", d)
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}
	for _, id := range ids[:4] {
		clock.Advance(time.Minute)
		_, err := svc.CompleteTask(ctx, id)
		require.NoError(t, err)
	}

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 245, snap.State.Progression.XP)
	assert.Equal(t, 3, snap.State.Progression.Level)
}

func TestService_ToleratesMissingAndMalformedKeys(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	seed(t, st, map[string]string{
		KeyTasks:    "{not json",
		KeyXP:       "abc",
		KeyLastDate: "yesterday",
		KeyBadges:   `["first_task"]`,
	})

	clock := &fakeClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	snap, err := newService(t, st, clock).Snapshot(ctx)

	require.NoError(t, err)
	assert.Empty(t, snap.State.Tasks)
	assert.Zero(t, snap.State.Progression.XP)
	assert.Equal(t, 1, snap.State.Progression.Level)
	assert.True(t, snap.State.Progression.LastCompletion.IsZero())
	assert.True(t, snap.State.Badges.Has("first_task"))
	assert.Equal(t, payment.PlanFree, snap.Subscription.Plan)
	assert.Len(t, snap.Quests, 4)
	assert.Len(t, snap.Badges, 8)
}

func TestService_UnknownStoredDifficultyCountsAsMedium(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	seed(t, st, map[string]string{
		KeyTasks: `[{"id":1,"title":"imported","difficulty":"legendary","completed":false,"createdAt":"2026-03-09T08:00:00Z"}]`,
	})

	clock := &fakeClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := newService(t, st, clock)
	events, err := svc.CompleteTask(ctx, 1)
	require.NoError(t, err)
	require.NotEmpty(t, events)

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.State.Tasks, 1)
	assert.Equal(t, game.DifficultyMedium, snap.State.Tasks[0].Difficulty)
	assert.True(t, snap.State.Tasks[0].Completed)
	assert.Equal(t, 25, snap.State.Progression.XP)
	assert.True(t, snap.State.Progression.LastCompletion.Equal(game.DateOf(clock.t)), "streak bookkeeping ran")
	assert.True(t, snap.State.Badges.Has("first_task"))
}

func TestService_ValidationLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	clock := &fakeClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := newService(t, st, clock)

	_, _, err := svc.AddTask(ctx, "   ", "desc", game.DifficultyEasy)
	var verr *game.ValidationError
	require.ErrorAs(t, err, &verr)

	entries, err := st.Entries(ctx, "studier_")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestService_EditAndDelete(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := newService(t, testStore(t), clock)

	task, _, err := svc.AddTask(ctx, "draft", "", game.DifficultyEasy)
	require.NoError(t, err)

	_, err = svc.EditTask(ctx, task.ID, "final", "with notes")
	require.NoError(t, err)
	got, err := svc.Task(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Title)
	assert.Equal(t, "with notes", got.Description)

	events, err := svc.DeleteTask(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = svc.DeleteTask(ctx, task.ID)
	require.NoError(t, err)
	_, err = svc.Task(ctx, task.ID)
	var nf *game.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestService_PublishesAndLogsEvents(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	bus := eventbus.New()
	var seen []game.EventKind
	bus.SubscribeAll(func(e game.Event) { seen = append(seen, e.Kind) })

	clock := &fakeClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := newService(t, st, clock, WithBus(bus))

	task, _, err := svc.AddTask(ctx, "x", "", game.DifficultyEasy)
	require.NoError(t, err)
	_, err = svc.CompleteTask(ctx, task.ID)
	require.NoError(t, err)

	assert.Equal(t, []game.EventKind{
		game.EventTaskAdded,
		game.EventTaskCompleted,
		game.EventXPGained,
		game.EventBadgeEarned,
	}, seen)

	logged, err := st.GetEvents(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, logged, 2)
	assert.Equal(t, "task.added", logged[0].Type)
	assert.Equal(t, "task.completed", logged[1].Type)
	assert.Contains(t, logged[1].Payload, `"amount":10`)
}

func TestService_DayRollover(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)}
	svc := newService(t, testStore(t), clock, WithRules(game.Rules{CountFirstDay: true}))

	a, _, _ := svc.AddTask(ctx, "a", "", game.DifficultyHard)
	b, _, _ := svc.AddTask(ctx, "b", "", game.DifficultyHard)
	c, _, _ := svc.AddTask(ctx, "c", "", game.DifficultyHard)
	svc.CompleteTask(ctx, a.ID)
	svc.CompleteTask(ctx, b.ID)

	snap, _ := svc.Snapshot(ctx)
	require.True(t, snap.State.Quests.IsCompleted("earn_100_xp"))
	assert.Equal(t, 1, snap.State.Progression.Streak)

	clock.Advance(4 * time.Hour)
	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.State.Quests.Completed)
	assert.Zero(t, snap.State.Quests.XPEarnedToday)

	svc.CompleteTask(ctx, c.ID)
	snap, _ = svc.Snapshot(ctx)
	assert.Equal(t, 2, snap.State.Progression.Streak)
	assert.True(t, snap.State.Quests.IsCompleted("complete_hard_task"))
	assert.False(t, snap.State.Quests.IsCompleted("earn_100_xp"))
}

func TestService_BrokenStreakSavedOnLoad(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	seed(t, st, map[string]string{KeyStreak: "12", KeyLastDate: "2026-03-01"})

	clock := &fakeClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	snap, err := newService(t, st, clock).Snapshot(ctx)
	require.NoError(t, err)
	assert.Zero(t, snap.State.Progression.Streak)

	raw, _ := stored(t, st, KeyStreak)
	assert.Equal(t, "0", raw)

	recent, _ := st.RecentEvents(ctx, 5)
	require.NotEmpty(t, recent)
	assert.Equal(t, string(game.EventStreakBroken), recent[0].Type)
}

// The first load of a new day publishes the day-change events, even when that
// load is a plain lookup. Listeners must be attached before it.
func TestService_TaskLookupPublishesDayChange(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	seed(t, st, map[string]string{KeyStreak: "5", KeyLastDate: "2026-03-01"})

	clock := &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	svc := newService(t, st, clock)
	task, _, err := svc.AddTask(ctx, "Lab report", "", game.DifficultyEasy)
	require.NoError(t, err)

	clock.Advance(72 * time.Hour)
	var got []game.EventKind
	svc.Bus().SubscribeAll(func(ev game.Event) { got = append(got, ev.Kind) })

	_, err = svc.Task(ctx, task.ID)
	require.NoError(t, err)
	assert.Contains(t, got, game.EventStreakBroken)

	got = nil
	_, err = svc.CompleteTask(ctx, task.ID)
	require.NoError(t, err)
	assert.NotContains(t, got, game.EventStreakBroken)
	assert.Contains(t, got, game.EventTaskCompleted)
}

func TestService_ConcurrentWritersOnOneFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "shared.db")
	clock := &fakeClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	const writers = 8

	// One store and service per writer, as the CLI, the board and the web
	// server each open their own.
	services := make([]*Service, writers)
	for i := range services {
		st, err := store.New(dbPath)
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })
		services[i] = newService(t, st, clock)
	}

	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i, svc := range services {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, errs[i] = svc.AddTask(context.Background(), fmt.Sprintf("task %d", i), "", game.DifficultyEasy)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	snap, err := services[0].Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.State.Tasks, writers)

	ids := make(map[int64]bool)
	for _, task := range snap.State.Tasks {
		ids[task.ID] = true
	}
	assert.Len(t, ids, writers, "task IDs are unique")
}

// --- Premium ---

type fakeGateway struct {
	verify    *payment.Session
	verifyErr error
	cancelErr error
	cancelled string
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	return "cs_1", nil
}

func (g *fakeGateway) VerifyCheckoutSession(context.Context, string) (*payment.Session, error) {
	return g.verify, g.verifyErr
}

func (g *fakeGateway) CancelSubscription(_ context.Context, id string) (*payment.Cancellation, error) {
	if g.cancelErr != nil {
		return nil, g.cancelErr
	}
	g.cancelled = id
	return &payment.Cancellation{SubscriptionID: id, CancelAtPeriodEnd: true}, nil
}

func TestService_PremiumLifecycle(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := newService(t, testStore(t), clock)
	gw := &fakeGateway{verify: &payment.Session{SessionID: "cs_1", CustomerID: "cus_1", SubscriptionID: "sub_1"}}

	id, err := svc.StartCheckout(ctx, gw, payment.CheckoutRequest{Email: "a@b.c", UserID: "u", ProductID: "p"})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", id)

	sub, err := svc.ActivatePremium(ctx, gw, "cs_1")
	require.NoError(t, err)
	assert.True(t, sub.IsPremium())
	assert.Equal(t, clock.t.AddDate(0, 0, 7), sub.TrialEndsAt.UTC())

	stored, err := svc.Subscription(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sub_1", stored.SubscriptionID)

	sub, err = svc.CancelPremium(ctx, gw)
	require.NoError(t, err)
	assert.Equal(t, "sub_1", gw.cancelled)
	assert.Equal(t, payment.PlanFree, sub.Plan)
	assert.True(t, sub.CancelAtPeriodEnd)
}

func TestService_CancelWithoutSubscription(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := newService(t, testStore(t), clock)

	_, err := svc.CancelPremium(context.Background(), &fakeGateway{})

	var nf *game.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestService_FailedVerificationKeepsPlan(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := newService(t, testStore(t), clock)
	remote := &payment.RemoteServiceError{Op: "verify session", Message: "Payment not completed"}

	_, err := svc.ActivatePremium(ctx, &fakeGateway{verifyErr: remote}, "cs_1")
	assert.True(t, errors.Is(err, remote))

	sub, err := svc.Subscription(ctx)
	require.NoError(t, err)
	assert.False(t, sub.IsPremium())
}
