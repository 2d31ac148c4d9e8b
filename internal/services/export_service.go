package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/campus-exams/exam-service/internal/models"
	"github.com/campus-exams/exam-service/internal/repositories"
)

type exportService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

var resultColumns = []string{
	"Student ID", "Attempt #", "Status", "Started At", "Ended At",
	"Duration (min)", "Score", "Max Score", "Violations", "Screen Switches",
	"Reviewed By", "Reviewed At",
}

// ExportExamResults renders every finished attempt of an exam into an
// xlsx workbook. Only the exam creator or an admin may export.
func (s *exportService) ExportExamResults(ctx context.Context, examID uint, userID string, role models.UserRole) (*excelize.File, string, error) {
	exam, err := s.repo.Exam().GetByID(ctx, s.db, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, "", ErrExamNotFound
		}
		return nil, "", fmt.Errorf("failed to get exam: %w", err)
	}
	if role != models.RoleAdmin {
		if !role.IsReviewer() || exam.CreatedBy != userID {
			return nil, "", NewPermissionError(userID, examID, "exam", "export_results", "not the exam creator")
		}
	}

	// Unpaginated on purpose: an export covers every attempt of the exam.
	attempts, err := s.repo.Attempt().GetAllByExam(ctx, s.db, examID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load attempts: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Results"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDDDDD"}},
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create header style: %w", err)
	}

	for col, name := range resultColumns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, name)
	}
	endCell, _ := excelize.CoordinatesToCellName(len(resultColumns), 1)
	f.SetCellStyle(sheet, "A1", endCell, headerStyle)
	f.SetColWidth(sheet, "A", "L", 16)

	row := 2
	for _, attempt := range attempts {
		if !attempt.Status.IsTerminal() {
			continue
		}
		values := attemptRow(attempt)
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheet, cell, value)
		}
		row++
	}

	filename := fmt.Sprintf("exam_%d_results_%s.xlsx", examID, time.Now().Format("20060102_150405"))
	s.logger.Info("Exam results exported", "exam_id", examID, "rows", row-2, "user_id", userID)
	return f, filename, nil
}

func attemptRow(attempt *models.ExamAttempt) []interface{} {
	values := []interface{}{
		attempt.StudentID,
		attempt.AttemptNumber,
		string(attempt.Status),
		attempt.StartTime.Format(time.RFC3339),
		"", // ended at
		"", // duration
		"", // score
		"", // max score
		attempt.ViolationCount,
		attempt.ScreenSwitchCount,
		"", // reviewed by
		"", // reviewed at
	}
	if attempt.EndTime != nil {
		values[4] = attempt.EndTime.Format(time.RFC3339)
	}
	if attempt.ActualDuration != nil {
		values[5] = *attempt.ActualDuration
	}
	if attempt.Score != nil {
		values[6] = *attempt.Score
	}
	if attempt.MaxScore != nil {
		values[7] = *attempt.MaxScore
	}
	if attempt.ReviewedBy != nil {
		values[10] = *attempt.ReviewedBy
	}
	if attempt.ReviewedAt != nil {
		values[11] = attempt.ReviewedAt.Format(time.RFC3339)
	}
	return values
}
