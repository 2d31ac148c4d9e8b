package events

import (
	"context"
	"encoding/json"
	"testing"
)

func TestNewEvent(t *testing.T) {
	data := AttemptEventData{AttemptID: 5, ExamID: 1, StudentID: "stu-1", AttemptNumber: 2, Status: "submitted"}
	event := NewEvent(EventAttemptSubmitted, data)

	if event.ID == "" {
		t.Error("event ID should not be empty")
	}
	if event.Type != "attempt.submitted" {
		t.Errorf("expected type 'attempt.submitted', got %q", event.Type)
	}
	if event.Source != "exam-service" {
		t.Errorf("expected source 'exam-service', got %q", event.Source)
	}
	if event.Version != "1.0" {
		t.Errorf("expected version '1.0', got %q", event.Version)
	}
	if event.Timestamp.IsZero() {
		t.Error("event timestamp should be set")
	}

	// Envelope must survive the trip to the wire format.
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("failed to unmarshal event: %v", err)
	}
	if decoded["type"] != "attempt.submitted" {
		t.Errorf("expected wire type 'attempt.submitted', got %v", decoded["type"])
	}
}

func TestMockEventPublisher(t *testing.T) {
	publisher := NewMockEventPublisher(nil)
	ctx := context.Background()

	if err := publisher.Publish(ctx, NewEvent(EventAttemptStarted, nil)); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if err := publisher.Publish(ctx, NewEvent(EventAttemptTimedOut, nil)); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	published := publisher.GetPublishedEvents()
	if len(published) != 2 {
		t.Fatalf("expected 2 events, got %d", len(published))
	}
	if published[0].Type != EventAttemptStarted || published[1].Type != EventAttemptTimedOut {
		t.Errorf("events recorded out of order: %s, %s", published[0].Type, published[1].Type)
	}

	publisher.ClearEvents()
	if got := publisher.GetPublishedEvents(); len(got) != 0 {
		t.Errorf("expected no events after clear, got %d", len(got))
	}
}

func TestNoopPublisherDiscards(t *testing.T) {
	publisher := NewNoopPublisher()
	if err := publisher.Publish(context.Background(), NewEvent(EventExamPublished, nil)); err != nil {
		t.Errorf("noop publish should never fail: %v", err)
	}
	if err := publisher.Close(); err != nil {
		t.Errorf("noop close should never fail: %v", err)
	}
}
