package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptTimedOut   AttemptStatus = "timed_out"
	AttemptViolation  AttemptStatus = "violation"
)

// IsTerminal reports whether the status permits no further lifecycle
// transitions. Terminal states are permanent; review is an administrative
// side-channel, not a transition back to in_progress.
func (s AttemptStatus) IsTerminal() bool {
	return s != AttemptInProgress
}

// ExamAttempt is one student's timed instance of taking an exam.
// (StudentID, ExamID, AttemptNumber) is unique.
type ExamAttempt struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	StudentID     string        `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_student_exam_attempt"`
	ExamID        uint          `json:"exam_id" gorm:"not null;uniqueIndex:idx_student_exam_attempt;index"`
	AttemptNumber int           `json:"attempt_number" gorm:"not null;uniqueIndex:idx_student_exam_attempt"`
	Status        AttemptStatus `json:"status" gorm:"default:in_progress;index"`

	// Timing. StartTime is stamped at creation and immutable; EndTime and
	// ActualDuration (whole minutes, floored) are set at completion.
	StartTime      time.Time  `json:"start_time" gorm:"not null"`
	EndTime        *time.Time `json:"end_time"`
	ActualDuration *int       `json:"actual_duration"`

	// Proctoring counters, incremented as the client reports events. A
	// proctored attempt is terminated once ViolationCount reaches the limit.
	ViolationCount    int `json:"violation_count" gorm:"default:0"`
	ScreenSwitchCount int `json:"screen_switch_count" gorm:"default:0"`

	// Browser info, screen resolution, etc. recorded at start.
	SessionData datatypes.JSON `json:"session_data" gorm:"type:jsonb"`

	// Results, populated by the grading hook or a reviewer.
	Score    *float64 `json:"score"`
	MaxScore *float64 `json:"max_score"`

	ReviewedBy *string    `json:"reviewed_by" gorm:"size:255"`
	ReviewedAt *time.Time `json:"reviewed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Student  User     `json:"student" gorm:"foreignKey:StudentID"`
	Exam     Exam     `json:"exam" gorm:"foreignKey:ExamID"`
	Answers  []Answer `json:"answers,omitempty" gorm:"foreignKey:AttemptID"`
	Reviewer *User    `json:"reviewer,omitempty" gorm:"foreignKey:ReviewedBy"`
}

// Deadline is the instant the attempt's clock runs out.
func (a *ExamAttempt) Deadline(durationMinutes int) time.Time {
	return a.StartTime.Add(time.Duration(durationMinutes) * time.Minute)
}

// Answer records one response per (attempt, question) pair. Exactly one
// payload field is meaningful, picked by the question's type.
type Answer struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	AttemptID  uint `json:"attempt_id" gorm:"not null;uniqueIndex:idx_attempt_question"`
	QuestionID uint `json:"question_id" gorm:"not null;uniqueIndex:idx_attempt_question;index"`

	// Payloads
	SelectedOptionID  *uint   `json:"selected_option_id"`
	DescriptiveAnswer *string `json:"descriptive_answer" gorm:"type:text"`
	CodeAnswer        *string `json:"code_answer" gorm:"type:text"`
	FileAnswer        *string `json:"file_answer" gorm:"size:500"`

	// Grading. IsCorrect and PointsAwarded stay null until auto-grading or
	// a reviewer fills them in.
	IsCorrect     *bool    `json:"is_correct"`
	PointsAwarded *float64 `json:"points_awarded"`
	Feedback      *string  `json:"feedback" gorm:"type:text"`

	SubmittedAt time.Time `json:"submitted_at" gorm:"not null"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Attempt        ExamAttempt `json:"-" gorm:"foreignKey:AttemptID"`
	Question       Question    `json:"question" gorm:"foreignKey:QuestionID"`
	SelectedOption *Option     `json:"selected_option,omitempty" gorm:"foreignKey:SelectedOptionID"`
}

// IsGraded reports whether the answer has a recorded result.
func (a *Answer) IsGraded() bool {
	return a.PointsAwarded != nil
}

func (ExamAttempt) TableName() string {
	return "exam_attempts"
}

func (Answer) TableName() string {
	return "answers"
}
