package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/campus-exams/exam-service/internal/cache"
	"github.com/campus-exams/exam-service/internal/config"
	"github.com/campus-exams/exam-service/internal/models"
	"github.com/campus-exams/exam-service/internal/repositories"
	"github.com/campus-exams/exam-service/internal/repositories/casdoor"
)

type RepositoryConfig struct {
	DB          *gorm.DB
	RedisClient *redis.Client
	Casdoor     config.CasdoorConfig
}

type postgresRepository struct {
	db    *gorm.DB
	cache *cache.CacheManager

	exam     repositories.ExamRepository
	question repositories.QuestionRepository
	attempt  repositories.AttemptRepository
	answer   repositories.AnswerRepository
	group    repositories.GroupRepository
	user     repositories.UserRepository
}

func NewRepository(cfg RepositoryConfig) repositories.RepositoryManager {
	cacheManager := cache.NewCacheManager(cfg.RedisClient)

	return &postgresRepository{
		db:       cfg.DB,
		cache:    cacheManager,
		exam:     NewExamRepository(cfg.DB, cacheManager),
		question: NewQuestionRepository(cfg.DB),
		attempt:  NewAttemptRepository(cfg.DB, cacheManager),
		answer:   NewAnswerRepository(cfg.DB),
		group:    NewGroupRepository(cfg.DB, cacheManager),
		user:     casdoor.NewUserRepository(cfg.Casdoor, cfg.RedisClient),
	}
}

func (r *postgresRepository) Exam() repositories.ExamRepository         { return r.exam }
func (r *postgresRepository) Question() repositories.QuestionRepository { return r.question }
func (r *postgresRepository) Attempt() repositories.AttemptRepository   { return r.attempt }
func (r *postgresRepository) Answer() repositories.AnswerRepository     { return r.answer }
func (r *postgresRepository) Group() repositories.GroupRepository       { return r.group }
func (r *postgresRepository) User() repositories.UserRepository         { return r.user }

func (r *postgresRepository) Initialize(ctx context.Context) error {
	if err := r.HealthCheck(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}
	return r.AutoMigrate()
}

func (r *postgresRepository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&models.User{},
		&models.StudentGroup{},
		&models.StudentProfile{},
		&models.Exam{},
		&models.Question{},
		&models.Option{},
		&models.ExamAttempt{},
		&models.Answer{},
	)
}

func (r *postgresRepository) HealthCheck(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func (r *postgresRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
