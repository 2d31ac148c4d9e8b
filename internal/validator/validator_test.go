package validator

import (
	"errors"
	"testing"
)

type statusRequest struct {
	Status string `validate:"required,exam_status"`
}

type questionRequest struct {
	Type string `validate:"required,question_type"`
}

type rangedRequest struct {
	Duration int `validate:"required,min=5,max=300"`
}

func TestValidateCustomTags(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		input   interface{}
		wantErr bool
	}{
		{name: "valid exam status", input: statusRequest{Status: "scheduled"}, wantErr: false},
		{name: "invalid exam status", input: statusRequest{Status: "published"}, wantErr: true},
		{name: "missing status", input: statusRequest{}, wantErr: true},
		{name: "valid question type", input: questionRequest{Type: "mcq"}, wantErr: false},
		{name: "invalid question type", input: questionRequest{Type: "essay"}, wantErr: true},
		{name: "duration in range", input: rangedRequest{Duration: 60}, wantErr: false},
		{name: "duration too small", input: rangedRequest{Duration: 3}, wantErr: true},
		{name: "duration too large", input: rangedRequest{Duration: 400}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateReturnsTypedErrors(t *testing.T) {
	v := New()

	err := v.Validate(statusRequest{Status: "bogus"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(verrs))
	}
	if verrs[0].Field != "status" {
		t.Errorf("expected field 'status', got %q", verrs[0].Field)
	}
	if verrs[0].Tag != "exam_status" {
		t.Errorf("expected tag 'exam_status', got %q", verrs[0].Tag)
	}
	if verrs[0].Message == "" {
		t.Error("expected a human readable message")
	}
}

func TestValidationErrorsErrorString(t *testing.T) {
	errs := ValidationErrors{
		{Field: "title", Message: "this field is required"},
		{Field: "duration_minutes", Message: "must be at least 5"},
	}
	got := errs.Error()
	want := "title: this field is required; duration_minutes: must be at least 5"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	if (ValidationErrors{}).Error() != "validation failed" {
		t.Errorf("expected fallback message for empty errors")
	}
}
