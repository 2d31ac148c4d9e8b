package services

import (
	"context"
	"fmt"
	"time"

	"github.com/campus-exams/exam-service/internal/events"
	"github.com/campus-exams/exam-service/internal/models"
	"github.com/campus-exams/exam-service/internal/repositories"
)

// getOwnedExam loads the exam and verifies the caller may manage it.
// Faculty and hods manage their own exams, admins manage everything.
func (s *examService) getOwnedExam(ctx context.Context, examID uint, userID string, role models.UserRole, action string) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByID(ctx, s.db, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	if role == models.RoleAdmin {
		return exam, nil
	}
	if !role.CanAuthorExams() {
		return nil, NewPermissionError(userID, examID, "exam", action, "role cannot manage exams")
	}
	if exam.CreatedBy != userID {
		return nil, NewPermissionError(userID, examID, "exam", action, "not the exam creator")
	}
	return exam, nil
}

func (s *examService) resolveGroups(ctx context.Context, groupIDs []uint) ([]models.StudentGroup, error) {
	groups, err := s.repo.Group().GetGroupsByIDs(ctx, s.db, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve groups: %w", err)
	}
	if len(groups) != len(groupIDs) {
		return nil, NewBusinessRuleError("allowed_groups", "one or more allowed groups do not exist")
	}
	return groups, nil
}

func (s *examService) countExamAttempts(ctx context.Context, examID uint) (int, error) {
	stats, err := s.repo.Attempt().GetExamAttemptStats(ctx, s.db, examID)
	if err != nil {
		return 0, fmt.Errorf("failed to get attempt stats: %w", err)
	}
	return stats.TotalAttempts, nil
}

func (s *examService) studentProfile(ctx context.Context, userID string) (*models.StudentProfile, error) {
	profile, err := s.repo.Group().GetProfile(ctx, s.db, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get student profile: %w", err)
	}
	return profile, nil
}

// visibleToStudent applies the student visibility rule: the exam's
// allowed groups must include the student's group, the status must be
// scheduled or active, and now must fall inside the exam window.
func (s *examService) visibleToStudent(exam *models.Exam, profile *models.StudentProfile, now time.Time) bool {
	if profile.GroupID == nil {
		return false
	}
	if exam.Status != models.ExamScheduled && exam.Status != models.ExamActive {
		return false
	}
	if !exam.IsOpenAt(now) {
		return false
	}
	return exam.AllowsGroup(*profile.GroupID)
}

func (s *examService) publishExamEvent(ctx context.Context, eventType string, exam *models.Exam) {
	if s.publisher == nil {
		return
	}
	event := events.NewEvent(eventType, events.ExamEventData{
		ExamID:    exam.ID,
		Title:     exam.Title,
		CreatedBy: exam.CreatedBy,
		Status:    string(exam.Status),
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish exam event", "event_type", eventType, "exam_id", exam.ID, "error", err)
	}
}

func buildQuestions(reqs []QuestionCreateRequest) []models.Question {
	questions := make([]models.Question, 0, len(reqs))
	for i, qr := range reqs {
		order := qr.Order
		if order == 0 {
			order = i + 1
		}
		q := models.Question{
			Text:         qr.Text,
			Type:         qr.Type,
			Points:       qr.Points,
			Order:        order,
			CodeTemplate: qr.CodeTemplate,
			TestCases:    qr.TestCases,
		}
		for j, or := range qr.Options {
			optOrder := or.Order
			if optOrder == 0 {
				optOrder = j + 1
			}
			q.Options = append(q.Options, models.Option{
				Text:      or.Text,
				IsCorrect: or.IsCorrect,
				Order:     optOrder,
			})
		}
		questions = append(questions, q)
	}
	return questions
}

// touchesFrozenFields reports whether the update changes anything other
// than the window end once students have attempted the exam.
func touchesFrozenFields(req *ExamUpdateRequest) bool {
	return req.Title != nil ||
		req.Description != nil ||
		req.StartTime != nil ||
		req.DurationMinutes != nil ||
		req.MaxAttempts != nil ||
		req.ShuffleQuestions != nil ||
		req.IsProctored != nil ||
		req.AllowedGroupIDs != nil
}

func applyExamUpdate(exam *models.Exam, req *ExamUpdateRequest) {
	if req.Title != nil {
		exam.Title = *req.Title
	}
	if req.Description != nil {
		exam.Description = req.Description
	}
	if req.StartTime != nil {
		exam.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		exam.EndTime = *req.EndTime
	}
	if req.DurationMinutes != nil {
		exam.DurationMinutes = *req.DurationMinutes
	}
	if req.MaxAttempts != nil {
		exam.MaxAttempts = *req.MaxAttempts
	}
	if req.ShuffleQuestions != nil {
		exam.ShuffleQuestions = *req.ShuffleQuestions
	}
	if req.ShowResultsAfter != nil {
		exam.ShowResultsAfter = *req.ShowResultsAfter
	}
	if req.IsProctored != nil {
		exam.IsProctored = *req.IsProctored
	}
}

// sanitizeExamForStudent strips grading data before an exam definition is
// returned to a student.
func sanitizeExamForStudent(exam *models.Exam) {
	for i := range exam.Questions {
		for j := range exam.Questions[i].Options {
			exam.Questions[i].Options[j].IsCorrect = false
		}
		exam.Questions[i].TestCases = nil
	}
}
