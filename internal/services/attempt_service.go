package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/campus-exams/exam-service/internal/events"
	"github.com/campus-exams/exam-service/internal/models"
	"github.com/campus-exams/exam-service/internal/repositories"
	"github.com/campus-exams/exam-service/internal/validator"
)

// violationLimit is how many proctoring violations a proctored attempt
// survives before it is terminated.
const violationLimit = 3

type attemptService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	grader    GradingService
	publisher events.EventPublisher
	runTx     func(fn func(tx *gorm.DB) error) error
}

func NewAttemptService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, grader GradingService, publisher events.EventPublisher) AttemptService {
	s := &attemptService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
		grader:    grader,
		publisher: publisher,
	}
	s.runTx = func(fn func(tx *gorm.DB) error) error {
		return s.db.Transaction(fn)
	}
	return s
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, studentID string, role models.UserRole) (*AttemptResponse, error) {
	s.logger.Info("Starting exam attempt", "exam_id", req.ExamID, "student_id", studentID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if role != models.RoleStudent {
		return nil, NewPermissionError(studentID, req.ExamID, "exam", "start_attempt", "only students can take exams")
	}

	exam, profile, err := s.checkStartEligibility(ctx, req.ExamID, studentID, time.Now())
	if err != nil {
		return nil, err
	}

	var attempt *models.ExamAttempt
	err = s.runTx(func(tx *gorm.DB) error {
		count, err := s.repo.Attempt().GetAttemptCount(ctx, tx, studentID, exam.ID)
		if err != nil {
			return fmt.Errorf("failed to count attempts: %w", err)
		}
		if count >= exam.MaxAttempts {
			return ErrAttemptLimitExceeded
		}

		if _, err := s.repo.Attempt().GetActiveAttempt(ctx, tx, studentID, exam.ID); err == nil {
			return ErrAttemptAlreadyStarted
		} else if !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to check active attempt: %w", err)
		}

		attempt = &models.ExamAttempt{
			StudentID:     studentID,
			ExamID:        exam.ID,
			AttemptNumber: count + 1,
			Status:        models.AttemptInProgress,
			StartTime:     time.Now(),
		}
		return s.repo.Attempt().Create(ctx, tx, attempt)
	})
	if err != nil {
		// Two racing starts collide on the (student, exam, attempt_number)
		// unique index; the loser sees a conflict, not a second attempt.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAttemptAlreadyStarted
		}
		return nil, err
	}

	s.publishAttemptEvent(ctx, events.EventAttemptStarted, attempt)
	s.logger.Info("Attempt started",
		"attempt_id", attempt.ID,
		"exam_id", exam.ID,
		"student_id", studentID,
		"attempt_number", attempt.AttemptNumber,
		"group_id", profile.GroupID)

	return s.buildAttemptResponse(attempt, exam), nil
}

func (s *attemptService) SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitAnswerRequest, studentID string) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	attempt, exam, err := s.getOpenAttempt(ctx, attemptID, studentID)
	if err != nil {
		return err
	}

	question, err := s.repo.Question().GetByID(ctx, s.db, req.QuestionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotInExam
		}
		return fmt.Errorf("failed to get question: %w", err)
	}
	if question.ExamID != exam.ID {
		return ErrQuestionNotInExam
	}

	if req.SelectedOptionID != nil {
		option, err := s.repo.Question().GetOptionByID(ctx, s.db, *req.SelectedOptionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrOptionNotInQuestion
			}
			return fmt.Errorf("failed to get option: %w", err)
		}
		if option.QuestionID != question.ID {
			return ErrOptionNotInQuestion
		}
	}

	answer := &models.Answer{
		AttemptID:         attempt.ID,
		QuestionID:        question.ID,
		SelectedOptionID:  req.SelectedOptionID,
		DescriptiveAnswer: req.DescriptiveAnswer,
		CodeAnswer:        req.CodeAnswer,
		FileAnswer:        req.FileAnswer,
		SubmittedAt:       time.Now(),
	}
	if err := s.repo.Answer().Upsert(ctx, s.db, answer); err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}

	s.logger.Debug("Answer saved", "attempt_id", attemptID, "question_id", question.ID)
	return nil
}

func (s *attemptService) Complete(ctx context.Context, attemptID uint, studentID string) (*AttemptResponse, error) {
	s.logger.Info("Completing attempt", "attempt_id", attemptID, "student_id", studentID)

	var attempt *models.ExamAttempt
	var exam *models.Exam

	err := s.runTx(func(tx *gorm.DB) error {
		var err error
		attempt, err = s.repo.Attempt().GetByID(ctx, tx, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to get attempt: %w", err)
		}
		if attempt.StudentID != studentID {
			return NewPermissionError(studentID, attemptID, "attempt", "complete", "not owned by student")
		}
		if attempt.Status.IsTerminal() {
			return ErrAttemptAlreadyComplete
		}

		exam, err = s.repo.Exam().GetByID(ctx, tx, attempt.ExamID)
		if err != nil {
			return fmt.Errorf("failed to get exam: %w", err)
		}

		finishAttempt(attempt, models.AttemptSubmitted, time.Now())
		return s.repo.Attempt().Update(ctx, tx, attempt)
	})
	if err != nil {
		return nil, err
	}

	if err := s.grader.AutoGradeAttempt(ctx, attempt.ID); err != nil {
		// Grading is recoverable; the attempt is already recorded.
		s.logger.Error("Auto-grading failed", "attempt_id", attempt.ID, "error", err)
	} else {
		attempt, err = s.repo.Attempt().GetByID(ctx, s.db, attempt.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload attempt: %w", err)
		}
	}

	s.publishAttemptEvent(ctx, events.EventAttemptSubmitted, attempt)
	s.logger.Info("Attempt completed",
		"attempt_id", attempt.ID,
		"duration_minutes", attempt.ActualDuration,
		"score", attempt.Score)

	return s.buildAttemptResponse(attempt, exam), nil
}

func (s *attemptService) RecordProctoringEvent(ctx context.Context, attemptID uint, req *ProctoringEventRequest, studentID string) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	attempt, exam, err := s.getOpenAttempt(ctx, attemptID, studentID)
	if err != nil {
		return err
	}

	switch req.EventType {
	case "violation":
		attempt.ViolationCount++
	case "screen_switch":
		attempt.ScreenSwitchCount++
	}

	terminated := false
	if exam.IsProctored && attempt.ViolationCount >= violationLimit {
		finishAttempt(attempt, models.AttemptViolation, time.Now())
		terminated = true
	}

	if err := s.repo.Attempt().Update(ctx, s.db, attempt); err != nil {
		return fmt.Errorf("failed to record proctoring event: %w", err)
	}

	if terminated {
		s.publishAttemptEvent(ctx, events.EventAttemptViolation, attempt)
		s.logger.Warn("Attempt terminated for proctoring violations",
			"attempt_id", attemptID,
			"violation_count", attempt.ViolationCount)
	}
	return nil
}

// SweepExpired closes overdue in_progress attempts. Each attempt is
// re-checked inside its own transaction so concurrent sweeps and a racing
// student submit cannot both close the same attempt.
func (s *attemptService) SweepExpired(ctx context.Context) (int, error) {
	expired, err := s.repo.Attempt().GetExpiredInProgress(ctx, s.db, time.Now(), 100)
	if err != nil {
		return 0, fmt.Errorf("failed to find expired attempts: %w", err)
	}

	var sweptIDs []uint
	for _, candidate := range expired {
		err := s.runTx(func(tx *gorm.DB) error {
			attempt, err := s.repo.Attempt().GetByID(ctx, tx, candidate.ID)
			if err != nil {
				return err
			}
			if attempt.Status != models.AttemptInProgress {
				return nil
			}

			// The attempt ends at its deadline, not at sweep time.
			deadline := attempt.Deadline(candidate.Exam.DurationMinutes)
			finishAttempt(attempt, models.AttemptTimedOut, deadline)
			if err := s.repo.Attempt().Update(ctx, tx, attempt); err != nil {
				return err
			}
			sweptIDs = append(sweptIDs, attempt.ID)
			s.publishAttemptEvent(ctx, events.EventAttemptTimedOut, attempt)
			return nil
		})
		if err != nil {
			s.logger.Error("Failed to time out attempt", "attempt_id", candidate.ID, "error", err)
		}
	}

	// Answers saved before the deadline still count.
	for _, id := range sweptIDs {
		if err := s.grader.AutoGradeAttempt(ctx, id); err != nil {
			s.logger.Error("Auto-grading timed out attempt failed", "attempt_id", id, "error", err)
		}
	}

	if len(sweptIDs) > 0 {
		s.logger.Info("Timed out expired attempts", "count", len(sweptIDs))
	}
	return len(sweptIDs), nil
}
