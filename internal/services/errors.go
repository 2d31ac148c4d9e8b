package services

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the service layer. Handlers map these to
// HTTP status codes.
var (
	ErrExamNotFound     = errors.New("exam not found")
	ErrExamNotAvailable = errors.New("exam is not available at this time")
	ErrExamNotEditable  = errors.New("exam can no longer be edited")

	ErrNotAllowedToTake = errors.New("not allowed to take this exam")
	ErrProfileNotFound  = errors.New("student profile not found")

	ErrAttemptNotFound        = errors.New("attempt not found")
	ErrAttemptNotActive       = errors.New("attempt is not in progress")
	ErrAttemptAlreadyComplete = errors.New("attempt has already been completed")
	ErrAttemptLimitExceeded   = errors.New("maximum attempts exceeded")
	ErrAttemptTimeExpired     = errors.New("attempt time has expired")
	ErrAttemptAlreadyStarted  = errors.New("an attempt is already in progress for this exam")
	ErrQuestionNotInExam      = errors.New("question does not belong to this exam")
	ErrAnswerNotFound         = errors.New("answer not found")
	ErrAttemptNotReviewable   = errors.New("attempt is not ready for review")
	ErrOptionNotInQuestion    = errors.New("option does not belong to this question")
)

// PermissionError carries the subject and resource of a denied action.
type PermissionError struct {
	UserID     string
	ResourceID interface{}
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %v: %s",
		e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID string, resourceID interface{}, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// BusinessRuleError reports a domain rule violation that is neither a
// validation failure nor a permission problem.
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

func NewBusinessRuleError(rule, message string) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message}
}
