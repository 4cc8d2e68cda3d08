package tracker

import (
	"encoding/json"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/imkarma/studier/internal/game"
	"github.com/imkarma/studier/internal/payment"
)

// Persisted keys. Every key may be absent; absence means the default.
const (
	KeyTasks          = "studier_tasks"
	KeyXP             = "studier_xp"
	KeyLevel          = "studier_level"
	KeyStreak         = "studier_streak"
	KeyLastDate       = "studier_lastDate"
	KeyQuestProgress  = "studier_questProgress"
	KeyLastQuestReset = "studier_lastQuestReset"
	KeyBadges         = "studier_badges"
	KeySubscription   = "studier_subscription"
)

var stateKeys = []string{
	KeyTasks, KeyXP, KeyLevel, KeyStreak, KeyLastDate,
	KeyQuestProgress, KeyLastQuestReset, KeyBadges,
}

// decodeState rebuilds the game state from stored values. Malformed values
// are logged and replaced by their default.
func decodeState(values map[string]string, log zerolog.Logger) *game.State {
	st := game.NewState()

	if raw, ok := values[KeyTasks]; ok {
		if err := json.Unmarshal([]byte(raw), &st.Tasks); err != nil {
			log.Warn().Err(err).Str("key", KeyTasks).Msg("discarding malformed value")
			st.Tasks = nil
		}
	}
	for i, t := range st.Tasks {
		d, err := game.ParseDifficulty(string(t.Difficulty))
		if err != nil {
			log.Warn().Err(err).Int64("task_id", t.ID).Msg("unknown difficulty, treating as medium")
			d = game.DifficultyMedium
		}
		st.Tasks[i].Difficulty = d
	}

	st.Progression.XP = decodeInt(values, KeyXP, log)
	st.Progression.Streak = decodeInt(values, KeyStreak, log)
	st.Progression.Level = game.LevelFor(st.Progression.XP)
	st.Progression.LastCompletion = decodeDate(values, KeyLastDate, log)

	if raw, ok := values[KeyQuestProgress]; ok {
		if err := json.Unmarshal([]byte(raw), &st.Quests); err != nil {
			log.Warn().Err(err).Str("key", KeyQuestProgress).Msg("discarding malformed value")
			st.Quests = game.QuestProgress{}
		}
	}
	if st.Quests.XPEarnedToday < 0 {
		st.Quests.XPEarnedToday = 0
	}
	st.Quests.ResetDate = decodeDate(values, KeyLastQuestReset, log)

	if raw, ok := values[KeyBadges]; ok {
		if err := json.Unmarshal([]byte(raw), &st.Badges); err != nil {
			log.Warn().Err(err).Str("key", KeyBadges).Msg("discarding malformed value")
			st.Badges = nil
		}
	}

	return st
}

// encodeState renders the full state. An empty string marks an absent key.
func encodeState(st *game.State) (map[string]string, error) {
	tasks := st.Tasks
	if tasks == nil {
		tasks = game.TaskList{}
	}
	tasksJSON, err := json.Marshal(tasks)
	if err != nil {
		return nil, err
	}

	qp := st.Quests
	if qp.Completed == nil {
		qp.Completed = []string{}
	}
	questJSON, err := json.Marshal(qp)
	if err != nil {
		return nil, err
	}

	badges := st.Badges
	if badges == nil {
		badges = game.BadgeSet{}
	}
	badgesJSON, err := json.Marshal(badges)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		KeyTasks:          string(tasksJSON),
		KeyXP:             strconv.Itoa(st.Progression.XP),
		KeyLevel:          strconv.Itoa(game.LevelFor(st.Progression.XP)),
		KeyStreak:         strconv.Itoa(st.Progression.Streak),
		KeyLastDate:       st.Progression.LastCompletion.String(),
		KeyQuestProgress:  string(questJSON),
		KeyLastQuestReset: st.Quests.ResetDate.String(),
		KeyBadges:         string(badgesJSON),
	}, nil
}

func decodeSubscription(raw string, ok bool, log zerolog.Logger) payment.Subscription {
	sub := payment.Subscription{Plan: payment.PlanFree}
	if !ok {
		return sub
	}
	if err := json.Unmarshal([]byte(raw), &sub); err != nil {
		log.Warn().Err(err).Str("key", KeySubscription).Msg("discarding malformed value")
		return payment.Subscription{Plan: payment.PlanFree}
	}
	if sub.Plan == "" {
		sub.Plan = payment.PlanFree
	}
	return sub
}

func decodeInt(values map[string]string, key string, log zerolog.Logger) int {
	raw, ok := values[key]
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		log.Warn().Str("key", key).Str("value", raw).Msg("discarding malformed value")
		return 0
	}
	return n
}

func decodeDate(values map[string]string, key string, log zerolog.Logger) game.Date {
	d, err := game.ParseDate(values[key])
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("discarding malformed value")
		return game.Date{}
	}
	return d
}

// changed returns the entries of next that differ from what is stored.
func changed(stored, next map[string]string) map[string]string {
	out := make(map[string]string)
	for k, v := range next {
		if stored[k] != v {
			out[k] = v
		}
	}
	return out
}
