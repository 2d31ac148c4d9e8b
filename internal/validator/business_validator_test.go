package validator

import (
	"testing"
	"time"

	"github.com/campus-exams/exam-service/internal/models"
)

func TestValidateSchedule(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	var rules ExamRules

	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		duration int
		wantErrs int
	}{
		{name: "duration fits window", start: base, end: base.Add(2 * time.Hour), duration: 90, wantErrs: 0},
		{name: "duration equals window", start: base, end: base.Add(time.Hour), duration: 60, wantErrs: 0},
		{name: "duration exceeds window", start: base, end: base.Add(time.Hour), duration: 90, wantErrs: 1},
		{name: "end before start", start: base, end: base.Add(-time.Hour), duration: 30, wantErrs: 1},
		{name: "end equals start", start: base, end: base, duration: 30, wantErrs: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := rules.ValidateSchedule(tt.start, tt.end, tt.duration)
			if len(errs) != tt.wantErrs {
				t.Errorf("expected %d errors, got %d: %v", tt.wantErrs, len(errs), errs)
			}
		})
	}
}

func TestValidateQuestions(t *testing.T) {
	var rules ExamRules

	tests := []struct {
		name      string
		questions []models.Question
		wantErrs  int
	}{
		{
			name: "valid mcq",
			questions: []models.Question{{
				Type:    models.QuestionMCQ,
				Options: []models.Option{{Text: "a"}, {Text: "b", IsCorrect: true}},
			}},
			wantErrs: 0,
		},
		{
			name: "mcq with one option",
			questions: []models.Question{{
				Type:    models.QuestionMCQ,
				Options: []models.Option{{Text: "a", IsCorrect: true}},
			}},
			wantErrs: 1,
		},
		{
			name: "mcq without correct option",
			questions: []models.Question{{
				Type:    models.QuestionMCQ,
				Options: []models.Option{{Text: "a"}, {Text: "b"}},
			}},
			wantErrs: 1,
		},
		{
			name:      "descriptive needs no options",
			questions: []models.Question{{Type: models.QuestionDescriptive}},
			wantErrs:  0,
		},
		{
			name: "errors accumulate per question",
			questions: []models.Question{
				{Type: models.QuestionMCQ},
				{Type: models.QuestionMCQ, Options: []models.Option{{Text: "a"}, {Text: "b"}}},
			},
			wantErrs: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := rules.ValidateQuestions(tt.questions)
			if len(errs) != tt.wantErrs {
				t.Errorf("expected %d errors, got %d: %v", tt.wantErrs, len(errs), errs)
			}
		})
	}
}

func TestValidateStatusTransition(t *testing.T) {
	var rules ExamRules

	allowed := []struct{ from, to models.ExamStatus }{
		{models.ExamDraft, models.ExamScheduled},
		{models.ExamDraft, models.ExamCancelled},
		{models.ExamScheduled, models.ExamActive},
		{models.ExamScheduled, models.ExamCancelled},
		{models.ExamActive, models.ExamCompleted},
		{models.ExamActive, models.ExamCancelled},
	}
	for _, tr := range allowed {
		if errs := rules.ValidateStatusTransition(tr.from, tr.to); errs != nil {
			t.Errorf("expected %s -> %s allowed, got %v", tr.from, tr.to, errs)
		}
	}

	forbidden := []struct{ from, to models.ExamStatus }{
		{models.ExamDraft, models.ExamActive},
		{models.ExamDraft, models.ExamCompleted},
		{models.ExamScheduled, models.ExamCompleted},
		{models.ExamScheduled, models.ExamDraft},
		{models.ExamActive, models.ExamScheduled},
		{models.ExamCompleted, models.ExamActive},
		{models.ExamCancelled, models.ExamScheduled},
	}
	for _, tr := range forbidden {
		if errs := rules.ValidateStatusTransition(tr.from, tr.to); len(errs) == 0 {
			t.Errorf("expected %s -> %s rejected", tr.from, tr.to)
		}
	}
}
