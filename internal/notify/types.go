// Package notify sends the run-outcome emails to the configured
// administrator address.
package notify

import "time"

// Event carries the structured fields every outcome email reports.
type Event struct {
	RunID       string
	RunNumber   int64
	Image       string
	Pipeline    string
	StartedAt   time.Time
	FinishedAt  time.Time
	FailedStage string
	Err         error
}

// Duration is the wall-clock time of the run.
func (e Event) Duration() time.Duration {
	return e.FinishedAt.Sub(e.StartedAt)
}

// Message is a rendered email.
type Message struct {
	Subject string
	Body    string
}
