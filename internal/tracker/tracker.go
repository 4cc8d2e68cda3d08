// Package tracker is the application service: every user action loads the
// state, runs it through the game engine, saves it in one transaction and
// then publishes the resulting events.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/imkarma/studier/internal/eventbus"
	"github.com/imkarma/studier/internal/game"
	"github.com/imkarma/studier/internal/payment"
	"github.com/imkarma/studier/internal/store"
)

// Store is the persistence the tracker needs. Update must run its read and
// its write in one transaction that excludes other writers.
type Store interface {
	GetMany(ctx context.Context, keys ...string) (map[string]string, error)
	Update(ctx context.Context, keys []string, fn store.UpdateFunc) error
}

// Service runs user actions against the persisted game state.
type Service struct {
	mu     sync.Mutex
	store  Store
	engine *game.Engine
	bus    *eventbus.Bus
	clock  func() time.Time
	loc    *time.Location
	log    zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) { s.clock = fn }
}

// WithLocation sets the time zone calendar days are counted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithRules sets the engine rules.
func WithRules(r game.Rules) Option {
	return func(s *Service) { s.engine = game.NewEngine(r) }
}

// WithBus sets the bus events are published on.
func WithBus(b *eventbus.Bus) Option {
	return func(s *Service) { s.bus = b }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// New creates a tracker over st.
func New(st Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		engine: game.NewEngine(game.Rules{}),
		bus:    eventbus.New(),
		clock:  time.Now,
		loc:    time.Local,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bus returns the bus the service publishes on.
func (s *Service) Bus() *eventbus.Bus { return s.bus }

// Now returns the current time in the configured location.
func (s *Service) Now() time.Time { return s.clock().In(s.loc) }

// Snapshot is a read-only view for presentation.
type Snapshot struct {
	State        *game.State
	Today        game.Date
	Quests       []game.QuestStatus
	Badges       []game.BadgeStatus
	Subscription payment.Subscription
}

// Snapshot loads the current state. Lazy day-change work (quest reset,
// broken streak) is saved if it happened.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	st, now, _, err := s.apply(ctx, "snapshot", func(*game.State, time.Time) ([]game.Event, error) {
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	sub, err := s.Subscription(ctx)
	if err != nil {
		return nil, err
	}
	today := game.DateOf(now)
	return &Snapshot{
		State:        st,
		Today:        today,
		Quests:       game.QuestStatuses(st, today),
		Badges:       game.BadgeStatuses(st),
		Subscription: sub,
	}, nil
}

// Task returns a single task.
func (s *Service) Task(ctx context.Context, id int64) (game.Task, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return game.Task{}, err
	}
	t, ok := snap.State.Tasks.Get(id)
	if !ok {
		return game.Task{}, &game.NotFoundError{Kind: "task", ID: fmt.Sprint(id)}
	}
	return t, nil
}

// AddTask creates a task.
func (s *Service) AddTask(ctx context.Context, title, description string, difficulty game.Difficulty) (game.Task, []game.Event, error) {
	var task game.Task
	_, _, events, err := s.apply(ctx, "add_task", func(st *game.State, now time.Time) ([]game.Event, error) {
		t, evs, err := s.engine.AddTask(st, title, description, difficulty, now)
		task = t
		return evs, err
	})
	return task, events, err
}

// CompleteTask completes a task. Completing an unknown or finished task is a no-op.
func (s *Service) CompleteTask(ctx context.Context, id int64) ([]game.Event, error) {
	_, _, events, err := s.apply(ctx, "complete_task", func(st *game.State, now time.Time) ([]game.Event, error) {
		return s.engine.CompleteTask(st, id, now), nil
	})
	return events, err
}

// EditTask changes an open task.
func (s *Service) EditTask(ctx context.Context, id int64, title, description string) ([]game.Event, error) {
	_, _, events, err := s.apply(ctx, "edit_task", func(st *game.State, _ time.Time) ([]game.Event, error) {
		return s.engine.EditTask(st, id, title, description)
	})
	return events, err
}

// DeleteTask removes a task. Deleting an unknown task is a no-op.
func (s *Service) DeleteTask(ctx context.Context, id int64) ([]game.Event, error) {
	_, _, events, err := s.apply(ctx, "delete_task", func(st *game.State, _ time.Time) ([]game.Event, error) {
		return s.engine.DeleteTask(st, id), nil
	})
	return events, err
}

// apply is the single path every action takes: load, refresh, mutate,
// save what changed with its log lines, publish. Load and save share one
// store transaction, so a concurrent writer in another process cannot slip
// in between. On error nothing is saved.
func (s *Service) apply(ctx context.Context, op string, fn func(*game.State, time.Time) ([]game.Event, error)) (*game.State, time.Time, []game.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	log := s.log.With().Str("op", op).Logger()

	var (
		st        *game.State
		events    []game.Event
		diff      map[string]string
		actionErr error
	)
	err := s.store.Update(ctx, stateKeys, func(stored map[string]string) (map[string]string, []store.Event, error) {
		st = decodeState(stored, log)
		events = s.engine.Refresh(st, now)
		more, err := fn(st, now)
		if err != nil {
			actionErr = err
			return nil, nil, err
		}
		events = append(events, more...)

		next, err := encodeState(st)
		if err != nil {
			actionErr = fmt.Errorf("encode state: %w", err)
			return nil, nil, actionErr
		}
		diff = changed(stored, next)
		return diff, logLines(events, now), nil
	})
	if actionErr != nil {
		log.Debug().Err(actionErr).Msg("action rejected")
		return nil, now, nil, actionErr
	}
	if err != nil {
		return nil, now, nil, fmt.Errorf("save state: %w", err)
	}

	log.Debug().Int("changed_keys", len(diff)).Int("events", len(events)).Msg("action applied")
	for _, ev := range events {
		log.Info().Str("event", string(ev.Kind)).Int64("task_id", ev.TaskID).Msg(ev.Describe())
	}

	s.bus.Publish(events...)
	return st, now, events, nil
}

// logLines turns game events into activity log rows.
func logLines(events []game.Event, now time.Time) []store.Event {
	lines := make([]store.Event, 0, len(events))
	for _, ev := range events {
		payload, _ := json.Marshal(ev)
		lines = append(lines, store.Event{
			TaskID:    ev.TaskID,
			Type:      string(ev.Kind),
			Content:   ev.Describe(),
			Payload:   string(payload),
			Timestamp: now.UTC(),
		})
	}
	return lines
}
