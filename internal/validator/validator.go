package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/campus-exams/exam-service/internal/models"
)

// ValidationError describes a single failed field validation.
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates field validation failures.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validator wraps go-playground/validator with the exam domain rules
// registered.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	validate := validator.New()
	registerDomainRules(validate)
	return &Validator{validate: validate}
}

// Validate runs struct validation and returns typed ValidationErrors, or
// nil when the struct passes.
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ToValidationErrors converts library errors into the API error shape.
func ToValidationErrors(err error) ValidationErrors {
	if err == nil {
		return nil
	}

	var result ValidationErrors
	if fieldErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range fieldErrors {
			result = append(result, ValidationError{
				Field:   strings.ToLower(fe.Field()),
				Tag:     fe.Tag(),
				Message: messageForTag(fe),
			})
		}
		return result
	}

	return ValidationErrors{{Field: "request", Tag: "invalid", Message: err.Error()}}
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "exam_status":
		return "must be one of: draft, scheduled, active, completed, cancelled"
	case "question_type":
		return "must be one of: mcq, coding, descriptive, file_upload"
	case "attempt_status":
		return "must be one of: in_progress, submitted, timed_out, violation"
	default:
		return fmt.Sprintf("failed validation rule %s", fe.Tag())
	}
}

func registerDomainRules(validate *validator.Validate) {
	validate.RegisterValidation("exam_status", func(fl validator.FieldLevel) bool {
		switch models.ExamStatus(fl.Field().String()) {
		case models.ExamDraft, models.ExamScheduled, models.ExamActive,
			models.ExamCompleted, models.ExamCancelled:
			return true
		}
		return false
	})

	validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		switch models.QuestionType(fl.Field().String()) {
		case models.QuestionMCQ, models.QuestionCoding,
			models.QuestionDescriptive, models.QuestionFileUpload:
			return true
		}
		return false
	})

	validate.RegisterValidation("attempt_status", func(fl validator.FieldLevel) bool {
		switch models.AttemptStatus(fl.Field().String()) {
		case models.AttemptInProgress, models.AttemptSubmitted,
			models.AttemptTimedOut, models.AttemptViolation:
			return true
		}
		return false
	})
}
