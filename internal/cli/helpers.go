package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/imkarma/studier/internal/config"
	"github.com/imkarma/studier/internal/game"
	"github.com/imkarma/studier/internal/logging"
	"github.com/imkarma/studier/internal/store"
	"github.com/imkarma/studier/internal/tracker"
)

const (
	studierDirName = ".studier"
	dbFileName     = "studier.db"
	configFileName = "config.yaml"
)

// studierPath returns the path to a file inside .studier/.
func studierPath(parts ...string) string {
	elems := append([]string{studierDirName}, parts...)
	return filepath.Join(elems...)
}

// mustStore opens the store, returning an error if studier is not initialized.
func mustStore() (*store.Store, error) {
	dbPath := studierPath(dbFileName)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("studier not initialized. Run: studier init")
	}
	return openStore(dbPath)
}

// openStore opens or creates the SQLite store at the given path.
func openStore(dbPath string) (*store.Store, error) {
	return store.New(dbPath)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(studierPath(configFileName))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", studierPath(configFileName), err)
	}
	return cfg, nil
}

// app bundles what a command needs: config, logging, store and tracker.
type app struct {
	cfg      *config.Config
	store    *store.Store
	tracker  *tracker.Service
	closeLog func()
}

// openApp loads config, sets up logging and opens the tracker.
func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logFile := cfg.Log.File
	if logFile != "" && !filepath.IsAbs(logFile) {
		logFile = studierPath(logFile)
	}
	closeLog, err := logging.Setup(level, logFile)
	if err != nil {
		return nil, err
	}

	s, err := mustStore()
	if err != nil {
		closeLog()
		return nil, err
	}

	loc, err := cfg.Game.Location()
	if err != nil {
		s.Close()
		closeLog()
		return nil, err
	}

	svc := tracker.New(s,
		tracker.WithLocation(loc),
		tracker.WithRules(game.Rules{CountFirstDay: cfg.Game.Streak.CountFirstDay}),
		tracker.WithLogger(logging.Component("tracker")),
	)
	busLog := logging.Component("eventbus")
	svc.Bus().OnPublish(func(ev game.Event) {
		busLog.Debug().Str("event", string(ev.Kind)).Int64("task_id", ev.TaskID).Msg("event delivered")
	})
	svc.Bus().OnPanic(func(ev game.Event, recovered any) {
		log.Error().Str("event", string(ev.Kind)).Interface("panic", recovered).Msg("event handler panicked")
	})

	return &app{cfg: cfg, store: s, tracker: svc, closeLog: closeLog}, nil
}

// announce prints every event the tracker publishes from now on.
func (a *app) announce() {
	a.tracker.Bus().SubscribeAll(printEvent)
}

func (a *app) Close() {
	a.store.Close()
	a.closeLog()
}

func parseTaskID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task ID: %s", s)
	}
	return id, nil
}
