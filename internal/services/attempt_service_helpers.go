package services

import (
	"context"
	"fmt"
	"time"

	"github.com/campus-exams/exam-service/internal/events"
	"github.com/campus-exams/exam-service/internal/models"
	"github.com/campus-exams/exam-service/internal/repositories"
)

// ===== READ OPERATIONS =====

func (s *attemptService) GetByID(ctx context.Context, attemptID uint, userID string, role models.UserRole) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByIDWithDetails(ctx, s.db, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	exam, err := s.repo.Exam().GetByID(ctx, s.db, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	if err := s.canAccessAttempt(attempt, userID, role, "view"); err != nil {
		return nil, err
	}

	resp := s.buildAttemptResponse(attempt, exam)
	if role == models.RoleStudent && !resp.ShowResults {
		sanitizeAttemptForStudent(attempt)
	}
	return resp, nil
}

func (s *attemptService) ListByStudent(ctx context.Context, studentID string, filters repositories.AttemptFilters) (*AttemptListResponse, error) {
	attempts, total, err := s.repo.Attempt().GetByStudent(ctx, s.db, studentID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return &AttemptListResponse{Attempts: attempts, Total: total, Limit: filters.Limit, Offset: filters.Offset}, nil
}

func (s *attemptService) ListByExam(ctx context.Context, examID uint, userID string, role models.UserRole, filters repositories.AttemptFilters) (*AttemptListResponse, error) {
	exam, err := s.repo.Exam().GetByID(ctx, s.db, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	if role != models.RoleAdmin && exam.CreatedBy != userID {
		return nil, NewPermissionError(userID, examID, "exam", "list_attempts", "not the exam creator")
	}

	attempts, total, err := s.repo.Attempt().GetByExam(ctx, s.db, examID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list exam attempts: %w", err)
	}
	return &AttemptListResponse{Attempts: attempts, Total: total, Limit: filters.Limit, Offset: filters.Offset}, nil
}

// ===== ELIGIBILITY =====

// checkStartEligibility enforces the start rules in order: the student
// needs a profile with a group, the exam must allow that group, and the
// exam must be open right now.
func (s *attemptService) checkStartEligibility(ctx context.Context, examID uint, studentID string, now time.Time) (*models.Exam, *models.StudentProfile, error) {
	profile, err := s.repo.Group().GetProfile(ctx, s.db, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrProfileNotFound
		}
		return nil, nil, fmt.Errorf("failed to get student profile: %w", err)
	}

	exam, err := s.repo.Exam().GetByID(ctx, s.db, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrExamNotFound
		}
		return nil, nil, fmt.Errorf("failed to get exam: %w", err)
	}

	if profile.GroupID == nil || !exam.AllowsGroup(*profile.GroupID) {
		return nil, nil, ErrNotAllowedToTake
	}

	if exam.Status != models.ExamScheduled && exam.Status != models.ExamActive {
		return nil, nil, ErrExamNotAvailable
	}
	if !exam.IsOpenAt(now) {
		return nil, nil, ErrExamNotAvailable
	}

	return exam, profile, nil
}

// getOpenAttempt loads an attempt and verifies the student owns it, it is
// still in progress and its deadline has not passed.
func (s *attemptService) getOpenAttempt(ctx context.Context, attemptID uint, studentID string) (*models.ExamAttempt, *models.Exam, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, s.db, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrAttemptNotFound
		}
		return nil, nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.StudentID != studentID {
		return nil, nil, NewPermissionError(studentID, attemptID, "attempt", "modify", "not owned by student")
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, nil, ErrAttemptNotActive
	}

	exam, err := s.repo.Exam().GetByID(ctx, s.db, attempt.ExamID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get exam: %w", err)
	}

	// Past-deadline attempts are left for the sweeper to close; the
	// student just cannot touch them anymore.
	if time.Now().After(attempt.Deadline(exam.DurationMinutes)) {
		return nil, nil, ErrAttemptTimeExpired
	}

	return attempt, exam, nil
}

// canAccessAttempt gates single-attempt reads. Reviewers (faculty, HOD,
// admin) may read any attempt; listing and export keep their own
// creator scoping.
func (s *attemptService) canAccessAttempt(attempt *models.ExamAttempt, userID string, role models.UserRole, action string) error {
	switch role {
	case models.RoleAdmin, models.RoleFaculty, models.RoleHOD:
		return nil
	case models.RoleStudent:
		if attempt.StudentID != userID {
			return NewPermissionError(userID, attempt.ID, "attempt", action, "not owned by student")
		}
		return nil
	default:
		return NewPermissionError(userID, attempt.ID, "attempt", action, "unknown role")
	}
}

// ===== RESPONSE BUILDING =====

// finishAttempt moves an attempt into a terminal state and stamps the
// timing fields. Duration is whole minutes, rounded down.
func finishAttempt(attempt *models.ExamAttempt, status models.AttemptStatus, endTime time.Time) {
	attempt.Status = status
	attempt.EndTime = &endTime
	duration := int(endTime.Sub(attempt.StartTime).Minutes())
	if duration < 0 {
		duration = 0
	}
	attempt.ActualDuration = &duration
}

func (s *attemptService) buildAttemptResponse(attempt *models.ExamAttempt, exam *models.Exam) *AttemptResponse {
	resp := &AttemptResponse{ExamAttempt: attempt}

	if attempt.Status == models.AttemptInProgress {
		remaining := time.Until(attempt.Deadline(exam.DurationMinutes))
		if remaining < 0 {
			remaining = 0
		}
		resp.TimeRemaining = int(remaining.Seconds())
	}

	resp.ShowResults = attempt.Status.IsTerminal() && exam.ShowResultsAfter
	return resp
}

// sanitizeAttemptForStudent hides grading outcomes until results are
// released for the exam.
func sanitizeAttemptForStudent(attempt *models.ExamAttempt) {
	attempt.Score = nil
	attempt.MaxScore = nil
	for i := range attempt.Answers {
		attempt.Answers[i].IsCorrect = nil
		attempt.Answers[i].PointsAwarded = nil
		attempt.Answers[i].Feedback = nil
	}
}

func (s *attemptService) publishAttemptEvent(ctx context.Context, eventType string, attempt *models.ExamAttempt) {
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
	if err := s.publisher.Publish(ctx, events.NewEvent(eventType, data)); err != nil {
		s.logger.Warn("Failed to publish attempt event", "event_type", eventType, "attempt_id", attempt.ID, "error", err)
	}
}
