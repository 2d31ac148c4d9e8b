package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/campus-exams/exam-service/internal/events"
	"github.com/campus-exams/exam-service/internal/models"
	"github.com/campus-exams/exam-service/internal/repositories"
)

// scoreMCQAnswer grades a multiple choice answer against its question.
// No selection, an unknown option, or a wrong option all score zero; a
// question with no correct option marked can never score.
func scoreMCQAnswer(answer *models.Answer, question *models.Question) (bool, float64) {
	if answer.SelectedOptionID == nil {
		return false, 0
	}
	for _, option := range question.Options {
		if option.ID == *answer.SelectedOptionID {
			if option.IsCorrect {
				return true, float64(question.Points)
			}
			return false, 0
		}
	}
	return false, 0
}

// sumAwardedPoints totals the graded answers only. Ungraded answers
// contribute nothing until a reviewer fills them in.
func sumAwardedPoints(answers []*models.Answer) float64 {
	total := 0.0
	for _, answer := range answers {
		if answer.IsGraded() {
			total += *answer.PointsAwarded
		}
	}
	return total
}

// uniqueIDs drops repeated IDs, keeping first-seen order.
func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	return unique
}

// recomputeScoreTx re-sums one attempt's score inside a transaction.
func (s *gradingService) recomputeScoreTx(ctx context.Context, tx *gorm.DB, attemptID uint) error {
	attempt, err := s.repo.Attempt().GetByID(ctx, tx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAttemptNotFound
		}
		return fmt.Errorf("failed to get attempt: %w", err)
	}

	answers, err := s.repo.Answer().GetByAttempt(ctx, tx, attemptID)
	if err != nil {
		return fmt.Errorf("failed to get answers: %w", err)
	}

	maxPoints, err := s.repo.Question().SumPointsByExam(ctx, tx, attempt.ExamID)
	if err != nil {
		return fmt.Errorf("failed to sum question points: %w", err)
	}

	score := sumAwardedPoints(answers)
	maxScore := float64(maxPoints)
	attempt.Score = &score
	attempt.MaxScore = &maxScore
	return s.repo.Attempt().Update(ctx, tx, attempt)
}

// authorizeReview checks the reviewer may act on attempts of this exam.
func (s *gradingService) authorizeReview(ctx context.Context, tx *gorm.DB, examID uint, reviewerID string, role models.UserRole, action string) error {
	if role == models.RoleAdmin {
		return nil
	}

	exam, err := s.repo.Exam().GetByID(ctx, tx, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrExamNotFound
		}
		return fmt.Errorf("failed to get exam: %w", err)
	}
	if exam.CreatedBy != reviewerID {
		return NewPermissionError(reviewerID, examID, "exam", action, "not the exam creator")
	}
	return nil
}

func (s *gradingService) publishReviewEvent(ctx context.Context, attempt *models.ExamAttempt) {
	if s.publisher == nil {
		return
	}
	data := events.AttemptEventData{
		AttemptID:     attempt.ID,
		ExamID:        attempt.ExamID,
		StudentID:     attempt.StudentID,
		AttemptNumber: attempt.AttemptNumber,
		Status:        string(attempt.Status),
		Score:         attempt.Score,
		MaxScore:      attempt.MaxScore,
	}
	if attempt.ReviewedBy != nil {
		data.ReviewedBy = *attempt.ReviewedBy
	}
	if err := s.publisher.Publish(ctx, events.NewEvent(events.EventAttemptReviewed, data)); err != nil {
		s.logger.Warn("Failed to publish review event", "attempt_id", attempt.ID, "error", err)
	}
}
