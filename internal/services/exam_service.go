package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/campus-exams/exam-service/internal/events"
	"github.com/campus-exams/exam-service/internal/models"
	"github.com/campus-exams/exam-service/internal/repositories"
	"github.com/campus-exams/exam-service/internal/validator"
)

type examService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	rules     validator.ExamRules
}

func NewExamService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, publisher events.EventPublisher) ExamService {
	return &examService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
		publisher: publisher,
	}
}

// ===== CORE EXAM OPERATIONS =====

func (s *examService) Create(ctx context.Context, req *ExamCreateRequest, creatorID string) (*models.Exam, error) {
	s.logger.Info("Creating exam", "title", req.Title, "creator_id", creatorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if errs := s.rules.ValidateSchedule(req.StartTime, req.EndTime, req.DurationMinutes); len(errs) > 0 {
		return nil, errs
	}

	groups, err := s.resolveGroups(ctx, req.AllowedGroupIDs)
	if err != nil {
		return nil, err
	}

	exam := &models.Exam{
		Title:            req.Title,
		Description:      req.Description,
		CreatedBy:        creatorID,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		DurationMinutes:  req.DurationMinutes,
		MaxAttempts:      req.MaxAttempts,
		ShuffleQuestions: req.ShuffleQuestions,
		ShowResultsAfter: req.ShowResultsAfter,
		IsProctored:      true,
		Status:           models.ExamDraft,
		AllowedGroups:    groups,
	}
	if req.IsProctored != nil {
		exam.IsProctored = *req.IsProctored
	}

	questions := buildQuestions(req.Questions)
	if errs := s.rules.ValidateQuestions(questions); len(errs) > 0 {
		return nil, errs
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Exam().Create(ctx, tx, exam); err != nil {
			return err
		}
		for i := range questions {
			questions[i].ExamID = exam.ID
		}
		questionPtrs := make([]*models.Question, len(questions))
		for i := range questions {
			questionPtrs[i] = &questions[i]
		}
		return s.repo.Question().CreateBatch(ctx, tx, questionPtrs)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}

	s.logger.Info("Exam created", "exam_id", exam.ID, "questions", len(questions))
	return s.repo.Exam().GetByIDWithDetails(ctx, s.db, exam.ID)
}

func (s *examService) Update(ctx context.Context, examID uint, req *ExamUpdateRequest, userID string, role models.UserRole) (*models.Exam, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exam, err := s.getOwnedExam(ctx, examID, userID, role, "update")
	if err != nil {
		return nil, err
	}

	// Exams with recorded attempts are frozen except for the window end.
	attemptCount, err := s.countExamAttempts(ctx, examID)
	if err != nil {
		return nil, err
	}
	if attemptCount > 0 && touchesFrozenFields(req) {
		return nil, ErrExamNotEditable
	}

	applyExamUpdate(exam, req)
	if errs := s.rules.ValidateSchedule(exam.StartTime, exam.EndTime, exam.DurationMinutes); len(errs) > 0 {
		return nil, errs
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if req.AllowedGroupIDs != nil {
			groups, err := s.resolveGroups(ctx, req.AllowedGroupIDs)
			if err != nil {
				return err
			}
			if err := s.repo.Exam().ReplaceAllowedGroups(ctx, tx, exam, groups); err != nil {
				return err
			}
		}
		return s.repo.Exam().Update(ctx, tx, exam)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update exam: %w", err)
	}

	s.logger.Info("Exam updated", "exam_id", examID, "user_id", userID)
	return s.repo.Exam().GetByIDWithDetails(ctx, s.db, examID)
}

func (s *examService) Delete(ctx context.Context, examID uint, userID string, role models.UserRole) error {
	exam, err := s.getOwnedExam(ctx, examID, userID, role, "delete")
	if err != nil {
		return err
	}

	if exam.Status != models.ExamDraft && exam.Status != models.ExamCancelled {
		return NewBusinessRuleError("exam_delete", "only draft or cancelled exams can be deleted")
	}

	if err := s.repo.Exam().Delete(ctx, s.db, examID); err != nil {
		return fmt.Errorf("failed to delete exam: %w", err)
	}

	s.logger.Info("Exam deleted", "exam_id", examID, "user_id", userID)
	return nil
}

func (s *examService) UpdateStatus(ctx context.Context, examID uint, status models.ExamStatus, userID string, role models.UserRole) (*models.Exam, error) {
	exam, err := s.getOwnedExam(ctx, examID, userID, role, "update_status")
	if err != nil {
		return nil, err
	}

	if errs := s.rules.ValidateStatusTransition(exam.Status, status); len(errs) > 0 {
		return nil, errs
	}

	exam.Status = status
	if err := s.repo.Exam().Update(ctx, s.db, exam); err != nil {
		return nil, fmt.Errorf("failed to update exam status: %w", err)
	}

	if status == models.ExamScheduled {
		s.publishExamEvent(ctx, events.EventExamPublished, exam)
	}

	s.logger.Info("Exam status changed", "exam_id", examID, "status", status, "user_id", userID)
	return exam, nil
}

// ===== VISIBILITY =====

func (s *examService) GetByID(ctx context.Context, examID uint, userID string, role models.UserRole) (*ExamResponse, error) {
	exam, err := s.repo.Exam().GetByIDWithDetails(ctx, s.db, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	resp := &ExamResponse{Exam: exam}

	switch role {
	case models.RoleAdmin:
		return resp, nil

	case models.RoleFaculty, models.RoleHOD:
		if exam.CreatedBy != userID {
			return nil, NewPermissionError(userID, examID, "exam", "view", "not the exam creator")
		}
		return resp, nil

	case models.RoleStudent:
		profile, err := s.studentProfile(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !s.visibleToStudent(exam, profile, time.Now()) {
			return nil, ErrExamNotFound
		}

		used, err := s.repo.Attempt().GetAttemptCount(ctx, s.db, userID, examID)
		if err != nil {
			return nil, fmt.Errorf("failed to count attempts: %w", err)
		}
		resp.AttemptsUsed = used
		resp.CanStart = used < exam.MaxAttempts
		sanitizeExamForStudent(resp.Exam)
		return resp, nil

	default:
		return nil, NewPermissionError(userID, examID, "exam", "view", "unknown role")
	}
}

func (s *examService) ListVisible(ctx context.Context, userID string, role models.UserRole, filters repositories.ExamFilters) (*ExamListResponse, error) {
	switch role {
	case models.RoleAdmin:
		exams, total, err := s.repo.Exam().List(ctx, s.db, filters)
		if err != nil {
			return nil, err
		}
		return &ExamListResponse{Exams: exams, Total: total, Limit: filters.Limit, Offset: filters.Offset}, nil

	case models.RoleFaculty, models.RoleHOD:
		exams, total, err := s.repo.Exam().GetByCreator(ctx, s.db, userID, filters)
		if err != nil {
			return nil, err
		}
		return &ExamListResponse{Exams: exams, Total: total, Limit: filters.Limit, Offset: filters.Offset}, nil

	case models.RoleStudent:
		profile, err := s.studentProfile(ctx, userID)
		if err != nil {
			return nil, err
		}
		if profile.GroupID == nil {
			return &ExamListResponse{Exams: []*models.Exam{}}, nil
		}
		exams, err := s.repo.Exam().GetVisibleToGroup(ctx, s.db, *profile.GroupID, time.Now())
		if err != nil {
			return nil, err
		}
		for _, exam := range exams {
			sanitizeExamForStudent(exam)
		}
		return &ExamListResponse{Exams: exams, Total: int64(len(exams))}, nil

	default:
		return nil, NewPermissionError(userID, nil, "exam", "list", "unknown role")
	}
}

func (s *examService) GetStats(ctx context.Context, examID uint, userID string, role models.UserRole) (*repositories.ExamAttemptStats, error) {
	if _, err := s.getOwnedExam(ctx, examID, userID, role, "view_stats"); err != nil {
		return nil, err
	}
	return s.repo.Attempt().GetExamAttemptStats(ctx, s.db, examID)
}
