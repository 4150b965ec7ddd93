// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

import "time"

// TurnArchiveTask represents one finished question/answer turn waiting to be archived.
type TurnArchiveTask struct {
	SessionID string    `json:"session_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	InDomain  bool      `json:"in_domain"`
	Failed    bool      `json:"failed"`
	CreatedAt time.Time `json:"created_at"`
}

// Key identifies the task for retry bookkeeping.
func (t TurnArchiveTask) Key() string {
	return t.SessionID + ":" + t.CreatedAt.UTC().Format(time.RFC3339Nano)
}
