package models

import (
	"testing"
	"time"
)

func TestExamIsOpenAt(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)
	exam := &Exam{StartTime: start, EndTime: end}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{name: "before window", at: start.Add(-time.Second), want: false},
		{name: "exactly at start", at: start, want: true},
		{name: "inside window", at: start.Add(4 * time.Hour), want: true},
		{name: "exactly at end", at: end, want: true},
		{name: "after window", at: end.Add(time.Second), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exam.IsOpenAt(tt.at); got != tt.want {
				t.Errorf("IsOpenAt(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestExamAllowsGroup(t *testing.T) {
	exam := &Exam{AllowedGroups: []StudentGroup{{ID: 1}, {ID: 3}}}

	if !exam.AllowsGroup(1) || !exam.AllowsGroup(3) {
		t.Error("expected listed groups allowed")
	}
	if exam.AllowsGroup(2) {
		t.Error("expected unlisted group rejected")
	}

	empty := &Exam{}
	if empty.AllowsGroup(1) {
		t.Error("exam with no allowed groups must reject everyone")
	}
}

func TestUserRolePermissions(t *testing.T) {
	tests := []struct {
		role      UserRole
		reviewer  bool
		canAuthor bool
	}{
		{role: RoleStudent, reviewer: false, canAuthor: false},
		{role: RoleFaculty, reviewer: true, canAuthor: true},
		{role: RoleHOD, reviewer: true, canAuthor: true},
		{role: RoleAdmin, reviewer: true, canAuthor: true},
	}

	for _, tt := range tests {
		if got := tt.role.IsReviewer(); got != tt.reviewer {
			t.Errorf("%s: IsReviewer() = %v, want %v", tt.role, got, tt.reviewer)
		}
		if got := tt.role.CanAuthorExams(); got != tt.canAuthor {
			t.Errorf("%s: CanAuthorExams() = %v, want %v", tt.role, got, tt.canAuthor)
		}
	}
}
