package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/campus-exams/exam-service/internal/cache"
	"github.com/campus-exams/exam-service/internal/models"
	"github.com/campus-exams/exam-service/internal/repositories"
)

type attemptRepository struct {
	db    *gorm.DB
	cache *cache.CacheManager
}

func NewAttemptRepository(db *gorm.DB, cacheManager *cache.CacheManager) repositories.AttemptRepository {
	return &attemptRepository{db: db, cache: cacheManager}
}

func (r *attemptRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *attemptRepository) Create(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error {
	if err := r.getDB(tx).WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}
	return nil
}

func (r *attemptRepository) Update(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error {
	if err := r.getDB(tx).WithContext(ctx).Save(attempt).Error; err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}
	cache.InvalidateAttemptCache(ctx, r.cache, attempt.ID)
	return nil
}

func (r *attemptRepository) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	if err := r.getDB(tx).WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	err := r.getDB(tx).WithContext(ctx).
		Preload("Exam").
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.question_id ASC")
		}).
		Preload("Answers.Question").
		Preload("Answers.SelectedOption").
		First(&attempt, id).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error) {
	db := r.getDB(tx).WithContext(ctx).Model(&models.ExamAttempt{})
	db = applyAttemptFilters(db, filters)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	db = applySortAndPage(db, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset, attemptSortColumns)

	var attempts []*models.ExamAttempt
	if err := db.Preload("Exam").Find(&attempts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, total, nil
}

func (r *attemptRepository) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error) {
	filters.StudentID = &studentID
	return r.List(ctx, tx, filters)
}

func (r *attemptRepository) GetByExam(ctx context.Context, tx *gorm.DB, examID uint, filters repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error) {
	filters.ExamID = &examID
	return r.List(ctx, tx, filters)
}

func (r *attemptRepository) GetAllByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.ExamAttempt, error) {
	var attempts []*models.ExamAttempt
	err := r.getDB(tx).WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("start_time ASC").
		Preload("Exam").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get exam attempts: %w", err)
	}
	return attempts, nil
}

func (r *attemptRepository) GetActiveAttempt(ctx context.Context, tx *gorm.DB, studentID string, examID uint) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	err := r.getDB(tx).WithContext(ctx).
		Where("student_id = ? AND exam_id = ? AND status = ?", studentID, examID, models.AttemptInProgress).
		Order("attempt_number DESC").
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) GetAttemptCount(ctx context.Context, tx *gorm.DB, studentID string, examID uint) (int, error) {
	var count int64
	err := r.getDB(tx).WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("student_id = ? AND exam_id = ?", studentID, examID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return int(count), nil
}

func (r *attemptRepository) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.ExamAttempt, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var attempts []*models.ExamAttempt
	err := r.getDB(tx).WithContext(ctx).
		Where("id IN ?", ids).
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get attempts by ids: %w", err)
	}
	return attempts, nil
}

// GetExpiredInProgress joins the exam to compare against each exam's own
// duration. Results are capped so a single sweep stays bounded.
func (r *attemptRepository) GetExpiredInProgress(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*models.ExamAttempt, error) {
	if limit <= 0 {
		limit = 100
	}
	var attempts []*models.ExamAttempt
	err := r.getDB(tx).WithContext(ctx).
		Joins("JOIN exams ON exams.id = exam_attempts.exam_id").
		Where("exam_attempts.status = ?", models.AttemptInProgress).
		Where("exam_attempts.start_time + make_interval(mins => exams.duration_minutes) <= ?", now).
		Order("exam_attempts.start_time ASC").
		Limit(limit).
		Preload("Exam").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find expired attempts: %w", err)
	}
	return attempts, nil
}

func (r *attemptRepository) GetExamAttemptStats(ctx context.Context, tx *gorm.DB, examID uint) (*repositories.ExamAttemptStats, error) {
	db := r.getDB(tx).WithContext(ctx)

	stats := &repositories.ExamAttemptStats{
		StatusBreakdown: make(map[models.AttemptStatus]int),
	}

	var rows []struct {
		Status models.AttemptStatus
		Count  int
	}
	err := db.Model(&models.ExamAttempt{}).
		Where("exam_id = ?", examID).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt stats: %w", err)
	}
	for _, row := range rows {
		stats.StatusBreakdown[row.Status] = row.Count
		stats.TotalAttempts += row.Count
	}

	var agg struct {
		AvgScore    *float64
		AvgDuration *float64
		Violations  *int
		Switches    *int
	}
	err = db.Model(&models.ExamAttempt{}).
		Where("exam_id = ? AND status != ?", examID, models.AttemptInProgress).
		Select("AVG(score) as avg_score, AVG(actual_duration) as avg_duration, SUM(violation_count) as violations, SUM(screen_switch_count) as switches").
		Scan(&agg).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate attempt stats: %w", err)
	}
	if agg.AvgScore != nil {
		stats.AverageScore = *agg.AvgScore
	}
	if agg.AvgDuration != nil {
		stats.AverageDuration = *agg.AvgDuration
	}
	if agg.Violations != nil {
		stats.TotalViolations = *agg.Violations
	}
	if agg.Switches != nil {
		stats.TotalScreenSwitch = *agg.Switches
	}

	var pending int64
	err = db.Model(&models.ExamAttempt{}).
		Where("exam_id = ? AND status != ? AND reviewed_at IS NULL", examID, models.AttemptInProgress).
		Count(&pending).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count pending reviews: %w", err)
	}
	stats.PendingReview = int(pending)

	return stats, nil
}

var attemptSortColumns = map[string]bool{
	"created_at":     true,
	"start_time":     true,
	"end_time":       true,
	"attempt_number": true,
	"score":          true,
	"status":         true,
}
