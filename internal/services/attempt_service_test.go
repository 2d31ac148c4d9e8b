package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/campus-exams/exam-service/internal/models"
	"github.com/campus-exams/exam-service/internal/validator"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func uintPtr(v uint) *uint          { return &v }
func float64Ptr(v float64) *float64 { return &v }

func TestCheckStartEligibility(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	openExam := func() *models.Exam {
		return &models.Exam{
			ID:              1,
			Status:          models.ExamActive,
			StartTime:       now.Add(-time.Hour),
			EndTime:         now.Add(time.Hour),
			DurationMinutes: 30,
			AllowedGroups:   []models.StudentGroup{{ID: 7}},
		}
	}

	tests := []struct {
		name    string
		profile *models.StudentProfile
		exam    *models.Exam
		wantErr error
	}{
		{
			name:    "eligible",
			profile: &models.StudentProfile{UserID: "stu-1", GroupID: uintPtr(7)},
			exam:    openExam(),
		},
		{
			name:    "no profile",
			profile: nil,
			exam:    openExam(),
			wantErr: ErrProfileNotFound,
		},
		{
			name:    "profile without group",
			profile: &models.StudentProfile{UserID: "stu-1"},
			exam:    openExam(),
			wantErr: ErrNotAllowedToTake,
		},
		{
			name:    "group not allowed",
			profile: &models.StudentProfile{UserID: "stu-1", GroupID: uintPtr(9)},
			exam:    openExam(),
			wantErr: ErrNotAllowedToTake,
		},
		{
			name:    "exam still draft",
			profile: &models.StudentProfile{UserID: "stu-1", GroupID: uintPtr(7)},
			exam: func() *models.Exam {
				e := openExam()
				e.Status = models.ExamDraft
				return e
			}(),
			wantErr: ErrExamNotAvailable,
		},
		{
			name:    "exam cancelled",
			profile: &models.StudentProfile{UserID: "stu-1", GroupID: uintPtr(7)},
			exam: func() *models.Exam {
				e := openExam()
				e.Status = models.ExamCancelled
				return e
			}(),
			wantErr: ErrExamNotAvailable,
		},
		{
			name:    "window not open yet",
			profile: &models.StudentProfile{UserID: "stu-1", GroupID: uintPtr(7)},
			exam: func() *models.Exam {
				e := openExam()
				e.StartTime = now.Add(time.Minute)
				return e
			}(),
			wantErr: ErrExamNotAvailable,
		},
		{
			name:    "window already closed",
			profile: &models.StudentProfile{UserID: "stu-1", GroupID: uintPtr(7)},
			exam: func() *models.Exam {
				e := openExam()
				e.EndTime = now.Add(-time.Minute)
				return e
			}(),
			wantErr: ErrExamNotAvailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepository()
			repo.group.GetProfileFn = func(userID string) (*models.StudentProfile, error) {
				if tt.profile == nil {
					return nil, gorm.ErrRecordNotFound
				}
				return tt.profile, nil
			}
			repo.exam.GetByIDFn = func(id uint) (*models.Exam, error) {
				return tt.exam, nil
			}

			svc := &attemptService{
				repo:      repo,
				logger:    discardLogger(),
				validator: validator.New(),
			}

			exam, profile, err := svc.checkStartEligibility(context.Background(), 1, "stu-1", now)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if exam == nil || profile == nil {
				t.Fatal("expected exam and profile on success")
			}
		})
	}
}

func TestWindowBoundariesAreInclusive(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)
	exam := &models.Exam{
		Status:        models.ExamScheduled,
		StartTime:     start,
		EndTime:       end,
		AllowedGroups: []models.StudentGroup{{ID: 7}},
	}
	profile := &models.StudentProfile{UserID: "stu-1", GroupID: uintPtr(7)}

	repo := newMockRepository()
	repo.group.GetProfileFn = func(string) (*models.StudentProfile, error) { return profile, nil }
	repo.exam.GetByIDFn = func(uint) (*models.Exam, error) { return exam, nil }
	svc := &attemptService{repo: repo, logger: discardLogger(), validator: validator.New()}

	for _, instant := range []time.Time{start, end} {
		if _, _, err := svc.checkStartEligibility(context.Background(), 1, "stu-1", instant); err != nil {
			t.Errorf("expected start allowed at %v, got %v", instant, err)
		}
	}
	if _, _, err := svc.checkStartEligibility(context.Background(), 1, "stu-1", end.Add(time.Second)); !errors.Is(err, ErrExamNotAvailable) {
		t.Errorf("expected ErrExamNotAvailable just past end, got %v", err)
	}
}

func TestFinishAttempt(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		end          time.Time
		status       models.AttemptStatus
		wantDuration int
	}{
		{name: "floors partial minutes", end: start.Add(42*time.Minute + 59*time.Second), status: models.AttemptSubmitted, wantDuration: 42},
		{name: "whole minutes kept", end: start.Add(30 * time.Minute), status: models.AttemptTimedOut, wantDuration: 30},
		{name: "sub-minute attempt", end: start.Add(20 * time.Second), status: models.AttemptViolation, wantDuration: 0},
		{name: "clock skew clamps to zero", end: start.Add(-time.Minute), status: models.AttemptSubmitted, wantDuration: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempt := &models.ExamAttempt{Status: models.AttemptInProgress, StartTime: start}
			finishAttempt(attempt, tt.status, tt.end)

			if attempt.Status != tt.status {
				t.Errorf("expected status %s, got %s", tt.status, attempt.Status)
			}
			if attempt.EndTime == nil || !attempt.EndTime.Equal(tt.end) {
				t.Errorf("expected end time %v, got %v", tt.end, attempt.EndTime)
			}
			if attempt.ActualDuration == nil || *attempt.ActualDuration != tt.wantDuration {
				t.Errorf("expected duration %d, got %v", tt.wantDuration, attempt.ActualDuration)
			}
		})
	}
}

func TestBuildAttemptResponse(t *testing.T) {
	svc := &attemptService{logger: discardLogger()}
	exam := &models.Exam{DurationMinutes: 60, ShowResultsAfter: true}

	t.Run("in progress has time remaining", func(t *testing.T) {
		attempt := &models.ExamAttempt{
			Status:    models.AttemptInProgress,
			StartTime: time.Now().Add(-10 * time.Minute),
		}
		resp := svc.buildAttemptResponse(attempt, exam)
		if resp.TimeRemaining <= 0 || resp.TimeRemaining > 50*60 {
			t.Errorf("expected remaining in (0, 3000], got %d", resp.TimeRemaining)
		}
		if resp.ShowResults {
			t.Error("in progress attempt must not show results")
		}
	})

	t.Run("overdue clamps to zero", func(t *testing.T) {
		attempt := &models.ExamAttempt{
			Status:    models.AttemptInProgress,
			StartTime: time.Now().Add(-2 * time.Hour),
		}
		resp := svc.buildAttemptResponse(attempt, exam)
		if resp.TimeRemaining != 0 {
			t.Errorf("expected 0 remaining, got %d", resp.TimeRemaining)
		}
	})

	t.Run("terminal shows results when exam allows", func(t *testing.T) {
		attempt := &models.ExamAttempt{Status: models.AttemptSubmitted, StartTime: time.Now()}
		resp := svc.buildAttemptResponse(attempt, exam)
		if !resp.ShowResults {
			t.Error("expected results visible after submission")
		}
		if resp.TimeRemaining != 0 {
			t.Errorf("terminal attempt should have no time remaining, got %d", resp.TimeRemaining)
		}
	})

	t.Run("terminal hides results when exam withholds them", func(t *testing.T) {
		withheld := &models.Exam{DurationMinutes: 60, ShowResultsAfter: false}
		attempt := &models.ExamAttempt{Status: models.AttemptSubmitted, StartTime: time.Now()}
		if resp := svc.buildAttemptResponse(attempt, withheld); resp.ShowResults {
			t.Error("expected results withheld")
		}
	})
}

func TestSanitizeAttemptForStudent(t *testing.T) {
	correct := true
	feedback := "good work"
	attempt := &models.ExamAttempt{
		Score:    float64Ptr(8),
		MaxScore: float64Ptr(10),
		Answers: []models.Answer{
			{IsCorrect: &correct, PointsAwarded: float64Ptr(5), Feedback: &feedback},
			{PointsAwarded: float64Ptr(3)},
		},
	}

	sanitizeAttemptForStudent(attempt)

	if attempt.Score != nil || attempt.MaxScore != nil {
		t.Error("expected score fields cleared")
	}
	for i, a := range attempt.Answers {
		if a.IsCorrect != nil || a.PointsAwarded != nil || a.Feedback != nil {
			t.Errorf("answer %d still carries grading data", i)
		}
	}
}

func TestCanAccessAttempt(t *testing.T) {
	attempt := &models.ExamAttempt{ID: 5, StudentID: "stu-1"}

	tests := []struct {
		name    string
		userID  string
		role    models.UserRole
		allowed bool
	}{
		{name: "owning student", userID: "stu-1", role: models.RoleStudent, allowed: true},
		{name: "other student", userID: "stu-2", role: models.RoleStudent, allowed: false},
		{name: "faculty creator", userID: "fac-1", role: models.RoleFaculty, allowed: true},
		{name: "faculty on someone else's exam", userID: "fac-2", role: models.RoleFaculty, allowed: true},
		{name: "hod on someone else's exam", userID: "hod-1", role: models.RoleHOD, allowed: true},
		{name: "admin", userID: "adm-1", role: models.RoleAdmin, allowed: true},
		{name: "unknown role", userID: "x", role: models.UserRole("guest"), allowed: false},
	}

	svc := &attemptService{logger: discardLogger()}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.canAccessAttempt(attempt, tt.userID, tt.role, "view")
			if tt.allowed && err != nil {
				t.Errorf("expected access, got %v", err)
			}
			if !tt.allowed {
				var permErr *PermissionError
				if !errors.As(err, &permErr) {
					t.Errorf("expected PermissionError, got %v", err)
				}
			}
		})
	}
}

func startableExam() *models.Exam {
	now := time.Now()
	return &models.Exam{
		ID:              1,
		Status:          models.ExamActive,
		StartTime:       now.Add(-time.Hour),
		EndTime:         now.Add(time.Hour),
		DurationMinutes: 60,
		MaxAttempts:     3,
		CreatedBy:       "fac-1",
		AllowedGroups:   []models.StudentGroup{{ID: 7}},
	}
}

func startableService(repo *mockRepository) *attemptService {
	return &attemptService{
		repo:      repo,
		logger:    discardLogger(),
		validator: validator.New(),
		grader:    &mockGradingService{},
		runTx: func(fn func(tx *gorm.DB) error) error {
			return fn(nil)
		},
	}
}

func TestStartNumbersAttemptsSequentially(t *testing.T) {
	repo := newMockRepository()
	repo.exam.GetByIDFn = func(uint) (*models.Exam, error) { return startableExam(), nil }
	repo.group.GetProfileFn = func(string) (*models.StudentProfile, error) {
		return &models.StudentProfile{UserID: "stu-1", GroupID: uintPtr(7)}, nil
	}
	repo.attempt.GetAttemptCountFn = func(string, uint) (int, error) { return 2, nil }

	var created *models.ExamAttempt
	repo.attempt.CreateFn = func(attempt *models.ExamAttempt) error {
		created = attempt
		return nil
	}

	svc := startableService(repo)
	resp, err := svc.Start(context.Background(), &StartAttemptRequest{ExamID: 1}, "stu-1", models.RoleStudent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatal("expected an attempt to be created")
	}
	if created.AttemptNumber != 3 {
		t.Errorf("expected attempt number 3 after two prior attempts, got %d", created.AttemptNumber)
	}
	if created.Status != models.AttemptInProgress {
		t.Errorf("expected in_progress status, got %s", created.Status)
	}
	if resp.TimeRemaining <= 0 {
		t.Errorf("expected time remaining on a fresh attempt, got %d", resp.TimeRemaining)
	}
}

func TestStartRejectsWhenAttemptLimitReached(t *testing.T) {
	repo := newMockRepository()
	repo.exam.GetByIDFn = func(uint) (*models.Exam, error) { return startableExam(), nil }
	repo.group.GetProfileFn = func(string) (*models.StudentProfile, error) {
		return &models.StudentProfile{UserID: "stu-1", GroupID: uintPtr(7)}, nil
	}
	repo.attempt.GetAttemptCountFn = func(string, uint) (int, error) { return 3, nil }
	repo.attempt.CreateFn = func(*models.ExamAttempt) error {
		t.Fatal("no attempt should be created past the limit")
		return nil
	}

	svc := startableService(repo)
	_, err := svc.Start(context.Background(), &StartAttemptRequest{ExamID: 1}, "stu-1", models.RoleStudent)
	if !errors.Is(err, ErrAttemptLimitExceeded) {
		t.Fatalf("expected ErrAttemptLimitExceeded, got %v", err)
	}
}

func TestStartMapsDuplicateKeyToConflict(t *testing.T) {
	repo := newMockRepository()
	repo.exam.GetByIDFn = func(uint) (*models.Exam, error) { return startableExam(), nil }
	repo.group.GetProfileFn = func(string) (*models.StudentProfile, error) {
		return &models.StudentProfile{UserID: "stu-1", GroupID: uintPtr(7)}, nil
	}
	repo.attempt.CreateFn = func(*models.ExamAttempt) error {
		return gorm.ErrDuplicatedKey
	}

	svc := startableService(repo)
	_, err := svc.Start(context.Background(), &StartAttemptRequest{ExamID: 1}, "stu-1", models.RoleStudent)
	if !errors.Is(err, ErrAttemptAlreadyStarted) {
		t.Fatalf("expected ErrAttemptAlreadyStarted, got %v", err)
	}
}

func TestCompleteTwiceConflicts(t *testing.T) {
	attempt := &models.ExamAttempt{
		ID:        5,
		StudentID: "stu-1",
		ExamID:    1,
		Status:    models.AttemptInProgress,
		StartTime: time.Now().Add(-10 * time.Minute),
	}

	repo := newMockRepository()
	repo.exam.GetByIDFn = func(uint) (*models.Exam, error) { return startableExam(), nil }
	repo.attempt.GetByIDFn = func(uint) (*models.ExamAttempt, error) { return attempt, nil }

	svc := startableService(repo)
	if _, err := svc.Complete(context.Background(), 5, "stu-1"); err != nil {
		t.Fatalf("first complete failed: %v", err)
	}
	if attempt.Status != models.AttemptSubmitted {
		t.Fatalf("expected submitted status, got %s", attempt.Status)
	}

	_, err := svc.Complete(context.Background(), 5, "stu-1")
	if !errors.Is(err, ErrAttemptAlreadyComplete) {
		t.Fatalf("expected ErrAttemptAlreadyComplete, got %v", err)
	}
}
