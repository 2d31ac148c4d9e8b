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

type examRepository struct {
	db    *gorm.DB
	cache *cache.CacheManager
}

func NewExamRepository(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ExamRepository {
	return &examRepository{db: db, cache: cacheManager}
}

func (r *examRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *examRepository) Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	if err := r.getDB(tx).WithContext(ctx).Create(exam).Error; err != nil {
		return fmt.Errorf("failed to create exam: %w", err)
	}
	cache.InvalidateExamCache(ctx, r.cache, exam.ID, exam.CreatedBy)
	return nil
}

func (r *examRepository) Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	if err := r.getDB(tx).WithContext(ctx).Save(exam).Error; err != nil {
		return fmt.Errorf("failed to update exam: %w", err)
	}
	cache.InvalidateExamCache(ctx, r.cache, exam.ID, exam.CreatedBy)
	return nil
}

func (r *examRepository) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	result := r.getDB(tx).WithContext(ctx).Delete(&models.Exam{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete exam: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	cache.InvalidateExamCache(ctx, r.cache, id, "")
	return nil
}

func (r *examRepository) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	db := r.getDB(tx)

	fetch := func() (interface{}, error) {
		var exam models.Exam
		if err := db.WithContext(ctx).Preload("AllowedGroups").First(&exam, id).Error; err != nil {
			return nil, err
		}
		return &exam, nil
	}

	// Skip the cache inside transactions so reads see uncommitted writes.
	if tx != nil || r.cache == nil {
		result, err := fetch()
		if err != nil {
			return nil, err
		}
		return result.(*models.Exam), nil
	}

	var exam models.Exam
	err := r.cache.Exam.CacheOrExecute(ctx, fmt.Sprintf("id:%d", id), &exam, cache.ExamCacheConfig.TTL, fetch)
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *examRepository) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	var exam models.Exam
	err := r.getDB(tx).WithContext(ctx).
		Preload("AllowedGroups").
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.\"order\" ASC, questions.id ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("options.\"order\" ASC, options.id ASC")
		}).
		First(&exam, id).Error
	if err != nil {
		return nil, err
	}

	exam.QuestionsCount = len(exam.Questions)
	for _, q := range exam.Questions {
		exam.TotalPoints += q.Points
	}
	return &exam, nil
}

func (r *examRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	db := r.getDB(tx).WithContext(ctx).Model(&models.Exam{})
	db = applyExamFilters(db, filters)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count exams: %w", err)
	}

	db = applySortAndPage(db, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset, examSortColumns)

	var exams []*models.Exam
	if err := db.Preload("AllowedGroups").Find(&exams).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list exams: %w", err)
	}
	return exams, total, nil
}

func (r *examRepository) GetByCreator(ctx context.Context, tx *gorm.DB, creatorID string, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	filters.CreatedBy = &creatorID
	return r.List(ctx, tx, filters)
}

func (r *examRepository) GetVisibleToGroup(ctx context.Context, tx *gorm.DB, groupID uint, now time.Time) ([]*models.Exam, error) {
	var exams []*models.Exam
	err := r.getDB(tx).WithContext(ctx).
		Joins("JOIN exam_allowed_groups eag ON eag.exam_id = exams.id").
		Where("eag.student_group_id = ?", groupID).
		Where("exams.status IN ?", []models.ExamStatus{models.ExamScheduled, models.ExamActive}).
		Where("exams.start_time <= ? AND exams.end_time >= ?", now, now).
		Order("exams.start_time ASC").
		Preload("AllowedGroups").
		Find(&exams).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list visible exams: %w", err)
	}
	return exams, nil
}

func (r *examRepository) ReplaceAllowedGroups(ctx context.Context, tx *gorm.DB, exam *models.Exam, groups []models.StudentGroup) error {
	if err := r.getDB(tx).WithContext(ctx).Model(exam).Association("AllowedGroups").Replace(groups); err != nil {
		return fmt.Errorf("failed to replace allowed groups: %w", err)
	}
	cache.InvalidateExamCache(ctx, r.cache, exam.ID, exam.CreatedBy)
	return nil
}

var examSortColumns = map[string]bool{
	"created_at": true,
	"title":      true,
	"start_time": true,
	"end_time":   true,
	"status":     true,
}
