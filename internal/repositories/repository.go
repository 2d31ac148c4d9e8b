package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository aggregates all data-access interfaces behind a single
// dependency for the service layer.
type Repository interface {
	Exam() ExamRepository
	Question() QuestionRepository
	Attempt() AttemptRepository
	Answer() AnswerRepository
	Group() GroupRepository
	User() UserRepository

	// Health & lifecycle
	HealthCheck(ctx context.Context) error
	Close() error
}

// RepositoryManager is implemented by the postgres manager; it adds
// migration and setup hooks used during startup.
type RepositoryManager interface {
	Repository
	Initialize(ctx context.Context) error
	AutoMigrate() error
}

// IsNotFoundError reports whether err represents a missing record,
// regardless of which repository produced it.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
