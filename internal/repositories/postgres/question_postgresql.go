package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/campus-exams/exam-service/internal/models"
	"github.com/campus-exams/exam-service/internal/repositories"
)

type questionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) repositories.QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *questionRepository) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	if err := r.getDB(tx).WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

func (r *questionRepository) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	if err := r.getDB(tx).WithContext(ctx).CreateInBatches(questions, 50).Error; err != nil {
		return fmt.Errorf("failed to create questions: %w", err)
	}
	return nil
}

func (r *questionRepository) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	if err := r.getDB(tx).WithContext(ctx).Save(question).Error; err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}
	return nil
}

func (r *questionRepository) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	result := r.getDB(tx).WithContext(ctx).Delete(&models.Question{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete question: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *questionRepository) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	var question models.Question
	if err := r.getDB(tx).WithContext(ctx).First(&question, id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *questionRepository) GetByIDWithOptions(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	var question models.Question
	err := r.getDB(tx).WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("options.\"order\" ASC, options.id ASC")
		}).
		First(&question, id).Error
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *questionRepository) GetByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.Question, error) {
	var questions []*models.Question
	err := r.getDB(tx).WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("\"order\" ASC, id ASC").
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("options.\"order\" ASC, options.id ASC")
		}).
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get exam questions: %w", err)
	}
	return questions, nil
}

func (r *questionRepository) SumPointsByExam(ctx context.Context, tx *gorm.DB, examID uint) (int, error) {
	var total *int
	err := r.getDB(tx).WithContext(ctx).
		Model(&models.Question{}).
		Where("exam_id = ?", examID).
		Select("SUM(points)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum question points: %w", err)
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (r *questionRepository) CreateOption(ctx context.Context, tx *gorm.DB, option *models.Option) error {
	if err := r.getDB(tx).WithContext(ctx).Create(option).Error; err != nil {
		return fmt.Errorf("failed to create option: %w", err)
	}
	return nil
}

func (r *questionRepository) GetOptionByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Option, error) {
	var option models.Option
	if err := r.getDB(tx).WithContext(ctx).First(&option, id).Error; err != nil {
		return nil, err
	}
	return &option, nil
}
