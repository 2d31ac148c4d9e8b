package validator

import (
	"fmt"
	"time"

	"github.com/campus-exams/exam-service/internal/models"
)

// ExamRules validates exam-level business rules that span multiple
// fields and cannot be expressed as per-field tags.
type ExamRules struct{}

// ValidateSchedule checks the exam window and duration fit together.
func (ExamRules) ValidateSchedule(startTime, endTime time.Time, durationMinutes int) ValidationErrors {
	var errs ValidationErrors

	if !endTime.After(startTime) {
		errs = append(errs, ValidationError{
			Field:   "end_time",
			Tag:     "after_start",
			Message: "end time must be after start time",
		})
		return errs
	}

	window := endTime.Sub(startTime)
	if time.Duration(durationMinutes)*time.Minute > window {
		errs = append(errs, ValidationError{
			Field:   "duration_minutes",
			Tag:     "fits_window",
			Message: fmt.Sprintf("duration of %d minutes exceeds the %d minute exam window", durationMinutes, int(window.Minutes())),
		})
	}
	return errs
}

// ValidateQuestions checks per-type question constraints before saving.
func (ExamRules) ValidateQuestions(questions []models.Question) ValidationErrors {
	var errs ValidationErrors

	for i, q := range questions {
		if q.Type != models.QuestionMCQ {
			continue
		}
		if len(q.Options) < 2 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("questions[%d].options", i),
				Tag:     "min_options",
				Message: "multiple choice questions need at least 2 options",
			})
			continue
		}
		hasCorrect := false
		for _, opt := range q.Options {
			if opt.IsCorrect {
				hasCorrect = true
				break
			}
		}
		if !hasCorrect {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("questions[%d].options", i),
				Tag:     "has_correct",
				Message: "multiple choice questions need at least one correct option",
			})
		}
	}
	return errs
}

// ValidateStatusTransition enforces the exam status lifecycle.
func (ExamRules) ValidateStatusTransition(from, to models.ExamStatus) ValidationErrors {
	allowed := map[models.ExamStatus][]models.ExamStatus{
		models.ExamDraft:     {models.ExamScheduled, models.ExamCancelled},
		models.ExamScheduled: {models.ExamActive, models.ExamCancelled},
		models.ExamActive:    {models.ExamCompleted, models.ExamCancelled},
	}

	for _, next := range allowed[from] {
		if next == to {
			return nil
		}
	}
	return ValidationErrors{{
		Field:   "status",
		Tag:     "transition",
		Message: fmt.Sprintf("cannot change exam status from %s to %s", from, to),
	}}
}
