package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/campus-exams/exam-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type ExamFilters struct {
	Status    *models.ExamStatus `json:"status"`
	CreatedBy *string            `json:"created_by"`
	DateFrom  *time.Time         `json:"date_from"`
	DateTo    *time.Time         `json:"date_to"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
	SortBy    string             `json:"sort_by"`    // "created_at", "title", "start_time"
	SortOrder string             `json:"sort_order"` // "asc", "desc"
}

type AttemptFilters struct {
	Status    *models.AttemptStatus `json:"status"`
	StudentID *string               `json:"student_id"`
	ExamID    *uint                 `json:"exam_id"`
	DateFrom  *time.Time            `json:"date_from"`
	DateTo    *time.Time            `json:"date_to"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

// ===== SHARED STATISTICS STRUCTS =====

type ExamAttemptStats struct {
	TotalAttempts     int                          `json:"total_attempts"`
	StatusBreakdown   map[models.AttemptStatus]int `json:"status_breakdown"`
	AverageScore      float64                      `json:"average_score"`
	AverageDuration   float64                      `json:"average_duration"`
	PendingReview     int                          `json:"pending_review"`
	TotalViolations   int                          `json:"total_violations"`
	TotalScreenSwitch int                          `json:"total_screen_switches"`
}

// ===== REPOSITORY INTERFACES =====

type ExamRepository interface {
	Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error
	Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error)
	GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error)
	List(ctx context.Context, tx *gorm.DB, filters ExamFilters) ([]*models.Exam, int64, error)
	GetByCreator(ctx context.Context, tx *gorm.DB, creatorID string, filters ExamFilters) ([]*models.Exam, int64, error)

	// GetVisibleToGroup returns exams whose allowed-groups set contains
	// groupID, whose status is scheduled or active, and whose
	// [start_time, end_time] window contains now.
	GetVisibleToGroup(ctx context.Context, tx *gorm.DB, groupID uint, now time.Time) ([]*models.Exam, error)

	ReplaceAllowedGroups(ctx context.Context, tx *gorm.DB, exam *models.Exam, groups []models.StudentGroup) error
}

type QuestionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	GetByIDWithOptions(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	GetByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.Question, error)
	SumPointsByExam(ctx context.Context, tx *gorm.DB, examID uint) (int, error)

	CreateOption(ctx context.Context, tx *gorm.DB, option *models.Option) error
	GetOptionByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Option, error)
}

type AttemptRepository interface {
	Create(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error
	Update(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamAttempt, error)
	GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamAttempt, error)
	List(ctx context.Context, tx *gorm.DB, filters AttemptFilters) ([]*models.ExamAttempt, int64, error)
	GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters AttemptFilters) ([]*models.ExamAttempt, int64, error)
	GetByExam(ctx context.Context, tx *gorm.DB, examID uint, filters AttemptFilters) ([]*models.ExamAttempt, int64, error)

	// GetAllByExam returns every attempt of the exam ordered by start
	// time, without pagination. Exports use this.
	GetAllByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.ExamAttempt, error)
	GetActiveAttempt(ctx context.Context, tx *gorm.DB, studentID string, examID uint) (*models.ExamAttempt, error)
	GetAttemptCount(ctx context.Context, tx *gorm.DB, studentID string, examID uint) (int, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.ExamAttempt, error)

	// GetExpiredInProgress returns in_progress attempts whose
	// start_time + exam duration deadline has passed as of now.
	GetExpiredInProgress(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*models.ExamAttempt, error)

	GetExamAttemptStats(ctx context.Context, tx *gorm.DB, examID uint) (*ExamAttemptStats, error)
}

type AnswerRepository interface {
	Create(ctx context.Context, tx *gorm.DB, answer *models.Answer) error
	Update(ctx context.Context, tx *gorm.DB, answer *models.Answer) error
	UpdateBatch(ctx context.Context, tx *gorm.DB, answers []*models.Answer) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Answer, error)
	GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Answer, error)
	GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.Answer, error)
	GetByAttemptAndQuestion(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) (*models.Answer, error)

	// Upsert persists the answer, relying on the (attempt_id, question_id)
	// unique constraint: an existing row for the pair is updated in place.
	Upsert(ctx context.Context, tx *gorm.DB, answer *models.Answer) error
}

type GroupRepository interface {
	CreateGroup(ctx context.Context, tx *gorm.DB, group *models.StudentGroup) error
	GetGroupByID(ctx context.Context, tx *gorm.DB, id uint) (*models.StudentGroup, error)
	GetGroupsByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]models.StudentGroup, error)
	ListGroups(ctx context.Context, tx *gorm.DB) ([]*models.StudentGroup, error)

	UpsertProfile(ctx context.Context, tx *gorm.DB, profile *models.StudentProfile) error

	// GetProfile returns the student profile for the user, or a not-found
	// error when the student has no profile record.
	GetProfile(ctx context.Context, tx *gorm.DB, userID string) (*models.StudentProfile, error)
}

// UserRepository is read-only for the exam service; identity lives in Casdoor.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
}
