package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/campus-exams/exam-service/internal/models"
	"github.com/campus-exams/exam-service/internal/repositories"
)

// mockRepository wires function-backed sub-repositories so individual
// tests can script repository behavior without a database.
type mockRepository struct {
	exam    *mockExamRepo
	attempt *mockAttemptRepo
	group   *mockGroupRepo
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		exam:    &mockExamRepo{},
		attempt: &mockAttemptRepo{},
		group:   &mockGroupRepo{},
	}
}

func (m *mockRepository) Exam() repositories.ExamRepository         { return m.exam }
func (m *mockRepository) Question() repositories.QuestionRepository { return nil }
func (m *mockRepository) Attempt() repositories.AttemptRepository   { return m.attempt }
func (m *mockRepository) Answer() repositories.AnswerRepository     { return nil }
func (m *mockRepository) Group() repositories.GroupRepository       { return m.group }
func (m *mockRepository) User() repositories.UserRepository         { return nil }
func (m *mockRepository) HealthCheck(ctx context.Context) error     { return nil }
func (m *mockRepository) Close() error                              { return nil }

type mockExamRepo struct {
	GetByIDFn func(id uint) (*models.Exam, error)
}

func (m *mockExamRepo) Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error { return nil }
func (m *mockExamRepo) Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error { return nil }
func (m *mockExamRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error           { return nil }
func (m *mockExamRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockExamRepo) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	return m.GetByID(ctx, tx, id)
}
func (m *mockExamRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	return nil, 0, nil
}
func (m *mockExamRepo) GetByCreator(ctx context.Context, tx *gorm.DB, creatorID string, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	return nil, 0, nil
}
func (m *mockExamRepo) GetVisibleToGroup(ctx context.Context, tx *gorm.DB, groupID uint, now time.Time) ([]*models.Exam, error) {
	return nil, nil
}
func (m *mockExamRepo) ReplaceAllowedGroups(ctx context.Context, tx *gorm.DB, exam *models.Exam, groups []models.StudentGroup) error {
	return nil
}

type mockAttemptRepo struct {
	CreateFn              func(attempt *models.ExamAttempt) error
	GetByIDFn             func(id uint) (*models.ExamAttempt, error)
	GetAttemptCountFn     func(studentID string, examID uint) (int, error)
	GetActiveAttemptFn    func(studentID string, examID uint) (*models.ExamAttempt, error)
	UpdateFn              func(attempt *models.ExamAttempt) error
	GetByIDsFn            func(ids []uint) ([]*models.ExamAttempt, error)
	GetAllByExamFn        func(examID uint) ([]*models.ExamAttempt, error)
	GetExamAttemptStatsFn func(examID uint) (*repositories.ExamAttemptStats, error)
}

func (m *mockAttemptRepo) Create(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error {
	if m.CreateFn != nil {
		return m.CreateFn(attempt)
	}
	return nil
}
func (m *mockAttemptRepo) Update(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(attempt)
	}
	return nil
}
func (m *mockAttemptRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamAttempt, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockAttemptRepo) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamAttempt, error) {
	return m.GetByID(ctx, tx, id)
}
func (m *mockAttemptRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error) {
	return nil, 0, nil
}
func (m *mockAttemptRepo) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error) {
	return nil, 0, nil
}
func (m *mockAttemptRepo) GetByExam(ctx context.Context, tx *gorm.DB, examID uint, filters repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error) {
	return nil, 0, nil
}
func (m *mockAttemptRepo) GetActiveAttempt(ctx context.Context, tx *gorm.DB, studentID string, examID uint) (*models.ExamAttempt, error) {
	if m.GetActiveAttemptFn != nil {
		return m.GetActiveAttemptFn(studentID, examID)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockAttemptRepo) GetAttemptCount(ctx context.Context, tx *gorm.DB, studentID string, examID uint) (int, error) {
	if m.GetAttemptCountFn != nil {
		return m.GetAttemptCountFn(studentID, examID)
	}
	return 0, nil
}
func (m *mockAttemptRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.ExamAttempt, error) {
	if m.GetByIDsFn != nil {
		return m.GetByIDsFn(ids)
	}
	return nil, nil
}
func (m *mockAttemptRepo) GetAllByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.ExamAttempt, error) {
	if m.GetAllByExamFn != nil {
		return m.GetAllByExamFn(examID)
	}
	return nil, nil
}
func (m *mockAttemptRepo) GetExpiredInProgress(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*models.ExamAttempt, error) {
	return nil, nil
}
func (m *mockAttemptRepo) GetExamAttemptStats(ctx context.Context, tx *gorm.DB, examID uint) (*repositories.ExamAttemptStats, error) {
	if m.GetExamAttemptStatsFn != nil {
		return m.GetExamAttemptStatsFn(examID)
	}
	return &repositories.ExamAttemptStats{}, nil
}

// mockGradingService records which attempts were auto-graded.
type mockGradingService struct {
	AutoGradedIDs []uint
	AutoGradeErr  error
}

func (m *mockGradingService) AutoGradeAttempt(ctx context.Context, attemptID uint) error {
	m.AutoGradedIDs = append(m.AutoGradedIDs, attemptID)
	return m.AutoGradeErr
}
func (m *mockGradingService) GradeAnswer(ctx context.Context, answerID uint, req *GradeAnswerRequest, reviewerID string, role models.UserRole) (*models.Answer, error) {
	return nil, nil
}
func (m *mockGradingService) RecomputeScore(ctx context.Context, attemptID uint) (*models.ExamAttempt, error) {
	return nil, nil
}
func (m *mockGradingService) MarkAttemptsReviewed(ctx context.Context, req *MarkReviewedRequest, reviewerID string, role models.UserRole) (*MarkReviewedResponse, error) {
	return nil, nil
}

type mockGroupRepo struct {
	GetProfileFn func(userID string) (*models.StudentProfile, error)
}

func (m *mockGroupRepo) CreateGroup(ctx context.Context, tx *gorm.DB, group *models.StudentGroup) error {
	return nil
}
func (m *mockGroupRepo) GetGroupByID(ctx context.Context, tx *gorm.DB, id uint) (*models.StudentGroup, error) {
	return nil, gorm.ErrRecordNotFound
}
func (m *mockGroupRepo) GetGroupsByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]models.StudentGroup, error) {
	return nil, nil
}
func (m *mockGroupRepo) ListGroups(ctx context.Context, tx *gorm.DB) ([]*models.StudentGroup, error) {
	return nil, nil
}
func (m *mockGroupRepo) UpsertProfile(ctx context.Context, tx *gorm.DB, profile *models.StudentProfile) error {
	return nil
}
func (m *mockGroupRepo) GetProfile(ctx context.Context, tx *gorm.DB, userID string) (*models.StudentProfile, error) {
	if m.GetProfileFn != nil {
		return m.GetProfileFn(userID)
	}
	return nil, gorm.ErrRecordNotFound
}
