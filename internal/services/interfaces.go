package services

import (
	"context"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"

	"github.com/campus-exams/exam-service/internal/models"
	"github.com/campus-exams/exam-service/internal/repositories"
)

// ===== EXAM DTOS =====

type OptionCreateRequest struct {
	Text      string `json:"text" validate:"required,min=1,max=500"`
	IsCorrect bool   `json:"is_correct"`
	Order     int    `json:"order" validate:"min=0"`
}

type QuestionCreateRequest struct {
	Text         string                `json:"text" validate:"required,min=1,max=5000"`
	Type         models.QuestionType   `json:"type" validate:"required,question_type"`
	Points       int                   `json:"points" validate:"required,min=1,max=100"`
	Order        int                   `json:"order" validate:"min=0"`
	CodeTemplate *string               `json:"code_template"`
	TestCases    datatypes.JSON        `json:"test_cases"`
	Options      []OptionCreateRequest `json:"options" validate:"dive"`
}

type ExamCreateRequest struct {
	Title            string                  `json:"title" validate:"required,min=3,max=255"`
	Description      *string                 `json:"description"`
	StartTime        time.Time               `json:"start_time" validate:"required"`
	EndTime          time.Time               `json:"end_time" validate:"required"`
	DurationMinutes  int                     `json:"duration_minutes" validate:"required,min=5,max=300"`
	MaxAttempts      int                     `json:"max_attempts" validate:"required,min=1,max=10"`
	ShuffleQuestions bool                    `json:"shuffle_questions"`
	ShowResultsAfter bool                    `json:"show_results_after"`
	IsProctored      *bool                   `json:"is_proctored"`
	AllowedGroupIDs  []uint                  `json:"allowed_group_ids" validate:"required,min=1"`
	Questions        []QuestionCreateRequest `json:"questions" validate:"dive"`
}

type ExamUpdateRequest struct {
	Title            *string    `json:"title" validate:"omitempty,min=3,max=255"`
	Description      *string    `json:"description"`
	StartTime        *time.Time `json:"start_time"`
	EndTime          *time.Time `json:"end_time"`
	DurationMinutes  *int       `json:"duration_minutes" validate:"omitempty,min=5,max=300"`
	MaxAttempts      *int       `json:"max_attempts" validate:"omitempty,min=1,max=10"`
	ShuffleQuestions *bool      `json:"shuffle_questions"`
	ShowResultsAfter *bool      `json:"show_results_after"`
	IsProctored      *bool      `json:"is_proctored"`
	AllowedGroupIDs  []uint     `json:"allowed_group_ids"`
}

type ExamStatusRequest struct {
	Status models.ExamStatus `json:"status" validate:"required,exam_status"`
}

type ExamResponse struct {
	*models.Exam
	AttemptsUsed int  `json:"attempts_used,omitempty"`
	CanStart     bool `json:"can_start,omitempty"`
}

type ExamListResponse struct {
	Exams  []*models.Exam `json:"exams"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// ===== ATTEMPT DTOS =====

type StartAttemptRequest struct {
	ExamID uint `json:"exam_id" validate:"required"`
}

type SubmitAnswerRequest struct {
	QuestionID        uint    `json:"question_id" validate:"required"`
	SelectedOptionID  *uint   `json:"selected_option_id"`
	DescriptiveAnswer *string `json:"descriptive_answer"`
	CodeAnswer        *string `json:"code_answer"`
	FileAnswer        *string `json:"file_answer"`
}

type ProctoringEventRequest struct {
	EventType string `json:"event_type" validate:"required,oneof=violation screen_switch"`
	Details   string `json:"details" validate:"max=1000"`
}

type AttemptResponse struct {
	*models.ExamAttempt
	TimeRemaining int  `json:"time_remaining_seconds"`
	ShowResults   bool `json:"show_results"`
}

type AttemptListResponse struct {
	Attempts []*models.ExamAttempt `json:"attempts"`
	Total    int64                 `json:"total"`
	Limit    int                   `json:"limit"`
	Offset   int                   `json:"offset"`
}

// ===== GRADING DTOS =====

type GradeAnswerRequest struct {
	PointsAwarded *float64 `json:"points_awarded" validate:"required,min=0"`
	IsCorrect     *bool    `json:"is_correct"`
	Feedback      *string  `json:"feedback" validate:"omitempty,max=2000"`
}

type MarkReviewedRequest struct {
	AttemptIDs []uint `json:"attempt_ids" validate:"required,min=1,max=500"`
}

type MarkReviewedResponse struct {
	ReviewedCount int    `json:"reviewed_count"`
	ReviewedBy    string `json:"reviewed_by"`
}

// ===== SERVICE INTERFACES =====

type ExamService interface {
	Create(ctx context.Context, req *ExamCreateRequest, creatorID string) (*models.Exam, error)
	Update(ctx context.Context, examID uint, req *ExamUpdateRequest, userID string, role models.UserRole) (*models.Exam, error)
	Delete(ctx context.Context, examID uint, userID string, role models.UserRole) error
	UpdateStatus(ctx context.Context, examID uint, status models.ExamStatus, userID string, role models.UserRole) (*models.Exam, error)

	// GetByID applies the visibility rules: students see only exams open
	// to their group right now, faculty and hods see their own, admins
	// see everything.
	GetByID(ctx context.Context, examID uint, userID string, role models.UserRole) (*ExamResponse, error)
	ListVisible(ctx context.Context, userID string, role models.UserRole, filters repositories.ExamFilters) (*ExamListResponse, error)

	GetStats(ctx context.Context, examID uint, userID string, role models.UserRole) (*repositories.ExamAttemptStats, error)
}

type AttemptService interface {
	// Start enforces eligibility and the attempt limit, then creates an
	// in_progress attempt numbered after the student's prior attempts.
	Start(ctx context.Context, req *StartAttemptRequest, studentID string, role models.UserRole) (*AttemptResponse, error)

	GetByID(ctx context.Context, attemptID uint, userID string, role models.UserRole) (*AttemptResponse, error)
	ListByStudent(ctx context.Context, studentID string, filters repositories.AttemptFilters) (*AttemptListResponse, error)
	ListByExam(ctx context.Context, examID uint, userID string, role models.UserRole, filters repositories.AttemptFilters) (*AttemptListResponse, error)

	// SubmitAnswer upserts the answer for a question while the attempt
	// is still open. Resubmitting a question replaces the earlier answer.
	SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitAnswerRequest, studentID string) error

	// Complete finishes an attempt: it stamps the end time, computes the
	// actual duration, auto-grades what can be graded and fires the
	// lifecycle event. Completing a finished attempt is a conflict.
	Complete(ctx context.Context, attemptID uint, studentID string) (*AttemptResponse, error)

	RecordProctoringEvent(ctx context.Context, attemptID uint, req *ProctoringEventRequest, studentID string) error

	// SweepExpired closes in_progress attempts whose deadline passed,
	// marking them timed_out. Safe to run concurrently and repeatedly.
	SweepExpired(ctx context.Context) (int, error)
}

type GradingService interface {
	AutoGradeAttempt(ctx context.Context, attemptID uint) error
	GradeAnswer(ctx context.Context, answerID uint, req *GradeAnswerRequest, reviewerID string, role models.UserRole) (*models.Answer, error)
	RecomputeScore(ctx context.Context, attemptID uint) (*models.ExamAttempt, error)

	// MarkAttemptsReviewed bulk-stamps completed attempts as reviewed by
	// the given reviewer and returns how many were updated.
	MarkAttemptsReviewed(ctx context.Context, req *MarkReviewedRequest, reviewerID string, role models.UserRole) (*MarkReviewedResponse, error)
}

type ExportService interface {
	// ExportExamResults renders all completed attempts of an exam as a
	// spreadsheet for the exam owner.
	ExportExamResults(ctx context.Context, examID uint, userID string, role models.UserRole) (*excelize.File, string, error)
}
