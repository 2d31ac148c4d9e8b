package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campus-exams/exam-service/internal/models"
	"github.com/campus-exams/exam-service/internal/repositories"
)

type answerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) repositories.AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *answerRepository) Create(ctx context.Context, tx *gorm.DB, answer *models.Answer) error {
	if err := r.getDB(tx).WithContext(ctx).Create(answer).Error; err != nil {
		return fmt.Errorf("failed to create answer: %w", err)
	}
	return nil
}

func (r *answerRepository) Update(ctx context.Context, tx *gorm.DB, answer *models.Answer) error {
	if err := r.getDB(tx).WithContext(ctx).Save(answer).Error; err != nil {
		return fmt.Errorf("failed to update answer: %w", err)
	}
	return nil
}

func (r *answerRepository) UpdateBatch(ctx context.Context, tx *gorm.DB, answers []*models.Answer) error {
	if len(answers) == 0 {
		return nil
	}
	db := r.getDB(tx).WithContext(ctx)
	for _, answer := range answers {
		if err := db.Save(answer).Error; err != nil {
			return fmt.Errorf("failed to update answer %d: %w", answer.ID, err)
		}
	}
	return nil
}

func (r *answerRepository) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Answer, error) {
	var answer models.Answer
	if err := r.getDB(tx).WithContext(ctx).First(&answer, id).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

func (r *answerRepository) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Answer, error) {
	var answer models.Answer
	err := r.getDB(tx).WithContext(ctx).
		Preload("Question").
		Preload("Question.Options").
		Preload("SelectedOption").
		Preload("Attempt").
		First(&answer, id).Error
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

func (r *answerRepository) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.Answer, error) {
	var answers []*models.Answer
	err := r.getDB(tx).WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("question_id ASC").
		Preload("Question").
		Preload("SelectedOption").
		Find(&answers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt answers: %w", err)
	}
	return answers, nil
}

func (r *answerRepository) GetByAttemptAndQuestion(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) (*models.Answer, error) {
	var answer models.Answer
	err := r.getDB(tx).WithContext(ctx).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		First(&answer).Error
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

// Upsert leans on the (attempt_id, question_id) unique index so
// concurrent saves of the same question collapse into one row.
func (r *answerRepository) Upsert(ctx context.Context, tx *gorm.DB, answer *models.Answer) error {
	err := r.getDB(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"selected_option_id",
				"descriptive_answer",
				"code_answer",
				"file_answer",
				"submitted_at",
				"updated_at",
			}),
		}).
		Create(answer).Error
	if err != nil {
		return fmt.Errorf("failed to upsert answer: %w", err)
	}
	return nil
}
