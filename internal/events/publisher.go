package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types emitted over the exam lifecycle.
const (
	EventAttemptStarted   = "attempt.started"
	EventAttemptSubmitted = "attempt.submitted"
	EventAttemptTimedOut  = "attempt.timed_out"
	EventAttemptViolation = "attempt.violation"
	EventAttemptReviewed  = "attempt.reviewed"
	EventExamPublished    = "exam.published"
)

// Event is the envelope published to the event bus.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent builds an event envelope with the service identity filled in.
func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    "exam-service",
		Version:   "1.0",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher publishes lifecycle events. Implementations must be safe
// for concurrent use.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// AttemptEventData is the payload for attempt lifecycle events.
type AttemptEventData struct {
	AttemptID     uint     `json:"attempt_id"`
	ExamID        uint     `json:"exam_id"`
	StudentID     string   `json:"student_id"`
	AttemptNumber int      `json:"attempt_number"`
	Status        string   `json:"status"`
	Score         *float64 `json:"score,omitempty"`
	MaxScore      *float64 `json:"max_score,omitempty"`
	ReviewedBy    string   `json:"reviewed_by,omitempty"`
}

// ExamEventData is the payload for exam lifecycle events.
type ExamEventData struct {
	ExamID    uint   `json:"exam_id"`
	Title     string `json:"title"`
	CreatedBy string `json:"created_by"`
	Status    string `json:"status"`
}
