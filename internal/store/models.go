package store

import "time"

// Entry is one persisted key/value pair.
type Entry struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Event is one line of the activity log.
type Event struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id,omitempty"` // 0 for events not tied to a task
	Type      string    `json:"event_type"`        // task.completed, level.up, badge.earned, ...
	Content   string    `json:"content"`
	Payload   string    `json:"payload,omitempty"` // JSON of the game event
	Timestamp time.Time `json:"timestamp"`
}
