package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ExamStatus string

const (
	ExamDraft     ExamStatus = "draft"
	ExamScheduled ExamStatus = "scheduled"
	ExamActive    ExamStatus = "active"
	ExamCompleted ExamStatus = "completed"
	ExamCancelled ExamStatus = "cancelled"
)

type QuestionType string

const (
	QuestionMCQ         QuestionType = "mcq"
	QuestionCoding      QuestionType = "coding"
	QuestionDescriptive QuestionType = "descriptive"
	QuestionFileUpload  QuestionType = "file_upload"
)

// IsAutoGradable reports whether correctness can be determined without human
// judgment. Only MCQ answers are auto-graded; everything else waits for a
// reviewer.
func (t QuestionType) IsAutoGradable() bool {
	return t == QuestionMCQ
}

type Exam struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Title       string  `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`
	CreatedBy   string  `json:"created_by" gorm:"not null;index;size:255"`

	// Timing controls. Invariant: StartTime < EndTime.
	StartTime       time.Time `json:"start_time" gorm:"not null;index"`
	EndTime         time.Time `json:"end_time" gorm:"not null;index"`
	DurationMinutes int       `json:"duration_minutes" gorm:"not null" validate:"required,min=5,max=300"`

	// Exam settings
	MaxAttempts      int  `json:"max_attempts" gorm:"default:1" validate:"min=1,max=10"`
	ShuffleQuestions bool `json:"shuffle_questions" gorm:"default:false"`
	ShowResultsAfter bool `json:"show_results_after" gorm:"default:false"`
	IsProctored      bool `json:"is_proctored" gorm:"default:true"`

	Status ExamStatus `json:"status" gorm:"default:draft;index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Creator       User           `json:"creator" gorm:"foreignKey:CreatedBy"`
	AllowedGroups []StudentGroup `json:"allowed_groups" gorm:"many2many:exam_allowed_groups"`
	Questions     []Question     `json:"questions,omitempty" gorm:"foreignKey:ExamID"`
	Attempts      []ExamAttempt  `json:"attempts,omitempty" gorm:"foreignKey:ExamID"`

	// Computed fields (not stored)
	QuestionsCount int `json:"questions_count" gorm:"-"`
	TotalPoints    int `json:"total_points" gorm:"-"`
}

// IsOpenAt reports whether the hard start-eligibility window contains t.
// The window is inclusive on both ends.
func (e *Exam) IsOpenAt(t time.Time) bool {
	return !t.Before(e.StartTime) && !t.After(e.EndTime)
}

// AllowsGroup reports whether the exam's allowed-groups set contains groupID.
func (e *Exam) AllowsGroup(groupID uint) bool {
	for _, g := range e.AllowedGroups {
		if g.ID == groupID {
			return true
		}
	}
	return false
}

type Question struct {
	ID     uint         `json:"id" gorm:"primaryKey"`
	ExamID uint         `json:"exam_id" gorm:"not null;index"`
	Text   string       `json:"text" gorm:"type:text;not null" validate:"required"`
	Type   QuestionType `json:"type" gorm:"not null;index"`
	Points int          `json:"points" gorm:"default:1" validate:"min=1,max=100"`
	Order  int          `json:"order" gorm:"default:0"`

	// For coding questions. TestCases is an opaque JSON blob handed to an
	// external evaluator; the service never interprets it.
	CodeTemplate *string        `json:"code_template" gorm:"type:text"`
	TestCases    datatypes.JSON `json:"test_cases" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Exam    Exam     `json:"-" gorm:"foreignKey:ExamID"`
	Options []Option `json:"options,omitempty" gorm:"foreignKey:QuestionID"`
}

type Option struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Text       string `json:"text" gorm:"not null;size:500" validate:"required,max=500"`
	IsCorrect  bool   `json:"is_correct" gorm:"default:false"`
	Order      int    `json:"order" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`

	// Relations
	Question Question `json:"-" gorm:"foreignKey:QuestionID"`
}

func (Exam) TableName() string {
	return "exams"
}

func (Question) TableName() string {
	return "questions"
}

func (Option) TableName() string {
	return "options"
}
