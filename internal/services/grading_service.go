package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/campus-exams/exam-service/internal/events"
	"github.com/campus-exams/exam-service/internal/models"
	"github.com/campus-exams/exam-service/internal/repositories"
	"github.com/campus-exams/exam-service/internal/validator"
)

type gradingService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	runTx     func(fn func(tx *gorm.DB) error) error
}

func NewGradingService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, publisher events.EventPublisher) GradingService {
	s := &gradingService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
		publisher: publisher,
	}
	s.runTx = func(fn func(tx *gorm.DB) error) error {
		return s.db.Transaction(fn)
	}
	return s
}

// AutoGradeAttempt grades every auto-gradable answer of a finished
// attempt and records the attempt's score and maximum score. Answers to
// manually graded question types are left ungraded for a reviewer.
func (s *gradingService) AutoGradeAttempt(ctx context.Context, attemptID uint) error {
	s.logger.Info("Auto-grading attempt", "attempt_id", attemptID)

	return s.runTx(func(tx *gorm.DB) error {
		attempt, err := s.repo.Attempt().GetByID(ctx, tx, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to get attempt: %w", err)
		}
		if !attempt.Status.IsTerminal() {
			return ErrAttemptNotActive
		}

		questions, err := s.repo.Question().GetByExam(ctx, tx, attempt.ExamID)
		if err != nil {
			return fmt.Errorf("failed to get exam questions: %w", err)
		}

		answers, err := s.repo.Answer().GetByAttempt(ctx, tx, attemptID)
		if err != nil {
			return fmt.Errorf("failed to get answers: %w", err)
		}

		questionsByID := make(map[uint]*models.Question, len(questions))
		maxScore := 0.0
		for _, q := range questions {
			questionsByID[q.ID] = q
			maxScore += float64(q.Points)
		}

		var graded []*models.Answer
		for _, answer := range answers {
			question, ok := questionsByID[answer.QuestionID]
			if !ok || !question.Type.IsAutoGradable() {
				continue
			}
			isCorrect, points := scoreMCQAnswer(answer, question)
			answer.IsCorrect = &isCorrect
			answer.PointsAwarded = &points
			graded = append(graded, answer)
		}

		if err := s.repo.Answer().UpdateBatch(ctx, tx, graded); err != nil {
			return fmt.Errorf("failed to save graded answers: %w", err)
		}

		score := sumAwardedPoints(answers)
		attempt.Score = &score
		attempt.MaxScore = &maxScore
		if err := s.repo.Attempt().Update(ctx, tx, attempt); err != nil {
			return fmt.Errorf("failed to save attempt score: %w", err)
		}

		s.logger.Info("Attempt auto-graded",
			"attempt_id", attemptID,
			"score", score,
			"max_score", maxScore,
			"auto_graded_answers", len(graded))
		return nil
	})
}

// GradeAnswer records a reviewer's grade for one answer, then re-sums the
// attempt score.
func (s *gradingService) GradeAnswer(ctx context.Context, answerID uint, req *GradeAnswerRequest, reviewerID string, role models.UserRole) (*models.Answer, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if !role.IsReviewer() {
		return nil, NewPermissionError(reviewerID, answerID, "answer", "grade", "role cannot grade answers")
	}

	var answer *models.Answer
	err := s.runTx(func(tx *gorm.DB) error {
		var err error
		answer, err = s.repo.Answer().GetByIDWithDetails(ctx, tx, answerID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAnswerNotFound
			}
			return fmt.Errorf("failed to get answer: %w", err)
		}

		if err := s.authorizeReview(ctx, tx, answer.Attempt.ExamID, reviewerID, role, "grade"); err != nil {
			return err
		}
		if !answer.Attempt.Status.IsTerminal() {
			return ErrAttemptNotReviewable
		}

		if *req.PointsAwarded > float64(answer.Question.Points) {
			return NewBusinessRuleError("points_awarded",
				fmt.Sprintf("awarded %.1f points but the question is worth %d", *req.PointsAwarded, answer.Question.Points))
		}

		answer.PointsAwarded = req.PointsAwarded
		if req.IsCorrect != nil {
			answer.IsCorrect = req.IsCorrect
		}
		if req.Feedback != nil {
			answer.Feedback = req.Feedback
		}
		if err := s.repo.Answer().Update(ctx, tx, answer); err != nil {
			return fmt.Errorf("failed to save grade: %w", err)
		}

		return s.recomputeScoreTx(ctx, tx, answer.AttemptID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Answer graded",
		"answer_id", answerID,
		"attempt_id", answer.AttemptID,
		"points_awarded", *req.PointsAwarded,
		"reviewer_id", reviewerID)
	return answer, nil
}

// RecomputeScore re-sums an attempt's score from its graded answers.
func (s *gradingService) RecomputeScore(ctx context.Context, attemptID uint) (*models.ExamAttempt, error) {
	err := s.runTx(func(tx *gorm.DB) error {
		return s.recomputeScoreTx(ctx, tx, attemptID)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Attempt().GetByID(ctx, s.db, attemptID)
}

// MarkAttemptsReviewed stamps the reviewer onto finished attempts in
// bulk. In-progress attempts and attempts on other people's exams are
// rejected rather than silently skipped.
func (s *gradingService) MarkAttemptsReviewed(ctx context.Context, req *MarkReviewedRequest, reviewerID string, role models.UserRole) (*MarkReviewedResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if !role.IsReviewer() {
		return nil, NewPermissionError(reviewerID, nil, "attempt", "mark_reviewed", "role cannot review attempts")
	}

	// Repeated IDs would make the loaded set look short, so compare
	// against the unique count.
	ids := uniqueIDs(req.AttemptIDs)

	var reviewed []*models.ExamAttempt
	err := s.runTx(func(tx *gorm.DB) error {
		attempts, err := s.repo.Attempt().GetByIDs(ctx, tx, ids)
		if err != nil {
			return fmt.Errorf("failed to load attempts: %w", err)
		}
		if len(attempts) != len(ids) {
			return ErrAttemptNotFound
		}

		now := time.Now()
		for _, attempt := range attempts {
			if err := s.authorizeReview(ctx, tx, attempt.ExamID, reviewerID, role, "mark_reviewed"); err != nil {
				return err
			}
			if !attempt.Status.IsTerminal() {
				return ErrAttemptNotReviewable
			}

			attempt.ReviewedBy = &reviewerID
			attempt.ReviewedAt = &now
			if err := s.repo.Attempt().Update(ctx, tx, attempt); err != nil {
				return fmt.Errorf("failed to mark attempt %d reviewed: %w", attempt.ID, err)
			}
			reviewed = append(reviewed, attempt)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, attempt := range reviewed {
		s.publishReviewEvent(ctx, attempt)
	}

	s.logger.Info("Attempts marked reviewed", "count", len(reviewed), "reviewer_id", reviewerID)
	return &MarkReviewedResponse{ReviewedCount: len(reviewed), ReviewedBy: reviewerID}, nil
}
