package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/gorm"

	"github.com/campus-exams/exam-service/internal/events"
	"github.com/campus-exams/exam-service/internal/repositories"
	"github.com/campus-exams/exam-service/internal/validator"
)

// ServiceManager wires the services together and owns their lifecycle.
type ServiceManager interface {
	Exam() ExamService
	Attempt() AttemptService
	Grading() GradingService
	Export() ExportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

type serviceManager struct {
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher

	examService    ExamService
	attemptService AttemptService
	gradingService GradingService
	exportService  ExportService

	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, v *validator.Validator, publisher events.EventPublisher) ServiceManager {
	return &serviceManager{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: v,
		publisher: publisher,
	}
}

func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	// Grading first; the attempt service hooks it on completion.
	sm.gradingService = NewGradingService(sm.repo, sm.db, sm.logger, sm.validator, sm.publisher)
	sm.examService = NewExamService(sm.repo, sm.db, sm.logger, sm.validator, sm.publisher)
	sm.attemptService = NewAttemptService(sm.repo, sm.db, sm.logger, sm.validator, sm.gradingService, sm.publisher)
	sm.exportService = NewExportService(sm.repo, sm.db, sm.logger)

	if err := sm.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized")
	return nil
}

func (sm *serviceManager) Exam() ExamService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.examService
}

func (sm *serviceManager) Attempt() AttemptService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.attemptService
}

func (sm *serviceManager) Grading() GradingService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.gradingService
}

func (sm *serviceManager) Export() ExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.exportService
}

func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}
	return sm.repo.HealthCheck(ctx)
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")
	if sm.publisher != nil {
		if err := sm.publisher.Close(); err != nil {
			sm.logger.Warn("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	return nil
}
