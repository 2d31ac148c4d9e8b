package services

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/campus-exams/exam-service/internal/models"
	"github.com/campus-exams/exam-service/internal/validator"
)

func TestScoreMCQAnswer(t *testing.T) {
	question := &models.Question{
		ID:     10,
		Type:   models.QuestionMCQ,
		Points: 5,
		Options: []models.Option{
			{ID: 101, IsCorrect: false},
			{ID: 102, IsCorrect: true},
			{ID: 103, IsCorrect: false},
		},
	}

	tests := []struct {
		name        string
		selected    *uint
		question    *models.Question
		wantCorrect bool
		wantPoints  float64
	}{
		{name: "correct option", selected: uintPtr(102), question: question, wantCorrect: true, wantPoints: 5},
		{name: "wrong option", selected: uintPtr(101), question: question, wantCorrect: false, wantPoints: 0},
		{name: "no selection", selected: nil, question: question, wantCorrect: false, wantPoints: 0},
		{name: "option from another question", selected: uintPtr(999), question: question, wantCorrect: false, wantPoints: 0},
		{
			name:     "no correct option marked",
			selected: uintPtr(201),
			question: &models.Question{
				ID:      11,
				Type:    models.QuestionMCQ,
				Points:  3,
				Options: []models.Option{{ID: 201}, {ID: 202}},
			},
			wantCorrect: false,
			wantPoints:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer := &models.Answer{SelectedOptionID: tt.selected}
			correct, points := scoreMCQAnswer(answer, tt.question)
			if correct != tt.wantCorrect {
				t.Errorf("expected correct=%v, got %v", tt.wantCorrect, correct)
			}
			if points != tt.wantPoints {
				t.Errorf("expected points=%v, got %v", tt.wantPoints, points)
			}
		})
	}
}

func TestSumAwardedPoints(t *testing.T) {
	tests := []struct {
		name    string
		answers []*models.Answer
		want    float64
	}{
		{name: "empty", answers: nil, want: 0},
		{
			name: "ungraded answers contribute nothing",
			answers: []*models.Answer{
				{PointsAwarded: float64Ptr(5)},
				{},
				{PointsAwarded: float64Ptr(2.5)},
			},
			want: 7.5,
		},
		{
			name: "zero awarded still counts as graded",
			answers: []*models.Answer{
				{PointsAwarded: float64Ptr(0)},
				{PointsAwarded: float64Ptr(3)},
			},
			want: 3,
		},
		{
			name:    "all pending review",
			answers: []*models.Answer{{}, {}},
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sumAwardedPoints(tt.answers); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestQuestionTypeAutoGradable(t *testing.T) {
	gradable := map[models.QuestionType]bool{
		models.QuestionMCQ:         true,
		models.QuestionCoding:      false,
		models.QuestionDescriptive: false,
		models.QuestionFileUpload:  false,
	}
	for qt, want := range gradable {
		if got := qt.IsAutoGradable(); got != want {
			t.Errorf("%s: expected IsAutoGradable=%v, got %v", qt, want, got)
		}
	}
}

func TestAuthorizeReview(t *testing.T) {
	repo := newMockRepository()
	repo.exam.GetByIDFn = func(id uint) (*models.Exam, error) {
		return &models.Exam{ID: id, CreatedBy: "fac-1"}, nil
	}
	svc := &gradingService{repo: repo, logger: discardLogger()}

	tests := []struct {
		name     string
		reviewer string
		role     models.UserRole
		allowed  bool
	}{
		{name: "admin bypasses ownership", reviewer: "adm-1", role: models.RoleAdmin, allowed: true},
		{name: "exam creator", reviewer: "fac-1", role: models.RoleFaculty, allowed: true},
		{name: "other faculty", reviewer: "fac-2", role: models.RoleFaculty, allowed: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.authorizeReview(context.Background(), nil, 1, tt.reviewer, tt.role, "grade")
			if tt.allowed && err != nil {
				t.Errorf("expected access, got %v", err)
			}
			if !tt.allowed && err == nil {
				t.Error("expected permission error")
			}
		})
	}
}

func TestMarkAttemptsReviewedDeduplicatesIDs(t *testing.T) {
	attempts := map[uint]*models.ExamAttempt{
		5: {ID: 5, ExamID: 1, StudentID: "stu-1", Status: models.AttemptSubmitted},
		6: {ID: 6, ExamID: 1, StudentID: "stu-2", Status: models.AttemptTimedOut},
	}

	repo := newMockRepository()
	repo.exam.GetByIDFn = func(uint) (*models.Exam, error) {
		return &models.Exam{ID: 1, CreatedBy: "fac-1"}, nil
	}
	repo.attempt.GetByIDsFn = func(ids []uint) ([]*models.ExamAttempt, error) {
		var out []*models.ExamAttempt
		for _, id := range ids {
			if a, ok := attempts[id]; ok {
				out = append(out, a)
			}
		}
		return out, nil
	}

	svc := &gradingService{
		repo:      repo,
		logger:    discardLogger(),
		validator: validator.New(),
		runTx: func(fn func(tx *gorm.DB) error) error {
			return fn(nil)
		},
	}

	req := &MarkReviewedRequest{AttemptIDs: []uint{5, 6, 5, 6, 5}}
	resp, err := svc.MarkAttemptsReviewed(context.Background(), req, "fac-1", models.RoleFaculty)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ReviewedCount != 2 {
		t.Errorf("expected 2 reviewed attempts, got %d", resp.ReviewedCount)
	}
	for id, attempt := range attempts {
		if attempt.ReviewedBy == nil || *attempt.ReviewedBy != "fac-1" {
			t.Errorf("attempt %d not stamped with reviewer", id)
		}
	}
}

func TestUniqueIDs(t *testing.T) {
	got := uniqueIDs([]uint{3, 1, 3, 2, 1})
	want := []uint{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
