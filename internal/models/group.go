package models

import "time"

// StudentGroup is a named cohort, e.g. "MCA ISMS 2024". An exam's allowed
// groups and a student's single group membership jointly determine which
// exams the student can see and take.
type StudentGroup struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Name        string  `json:"name" gorm:"uniqueIndex;not null;size:100" validate:"required,max=100"`
	Description *string `json:"description" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Students []StudentProfile `json:"students,omitempty" gorm:"foreignKey:GroupID"`
}

// StudentProfile links an identity-provider user to an enrollment number and
// a single group. A student without a profile (or without a group) sees no
// exams and cannot start attempts.
type StudentProfile struct {
	UserID    string `json:"user_id" gorm:"primaryKey;size:255"`
	StudentID string `json:"student_id" gorm:"uniqueIndex;not null;size:20" validate:"required,min=5,max=20"`
	GroupID   *uint  `json:"group_id" gorm:"index"`
	IsActive  bool   `json:"is_active" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Group *StudentGroup `json:"group,omitempty" gorm:"foreignKey:GroupID"`
}

func (StudentGroup) TableName() string {
	return "student_groups"
}

func (StudentProfile) TableName() string {
	return "student_profiles"
}
