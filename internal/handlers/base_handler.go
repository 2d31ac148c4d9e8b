package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campus-exams/exam-service/internal/models"
	"github.com/campus-exams/exam-service/internal/services"
	"github.com/campus-exams/exam-service/internal/utils"
	"github.com/campus-exams/exam-service/internal/validator"
)

type ErrorResponse = models.ErrorResponse
type SuccessResponse = models.SuccessResponse

// BaseHandler carries the pieces every handler needs.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs a handler entry with the request-scoped logger when one
// is available.
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...interface{}) {
	utils.LoggerFromContext(c.Request.Context()).Info(msg, args...)
}

// parseIDParam reads a positive integer path parameter. On failure it
// writes the 400 response and returns 0; callers just return.
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) uint {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + name + " parameter",
			Details: raw,
		})
		return 0
	}
	return uint(id)
}

// requireUser pulls the authenticated user identity out of the context.
func (h *BaseHandler) requireUser(c *gin.Context) (string, models.UserRole, bool) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return "", "", false
	}
	role, err := GetUserRoleFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return "", "", false
	}
	return userID, role, true
}

// handleServiceError maps service-layer errors onto HTTP statuses.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Validation failed",
			"errors":  validationErrs,
		})
		return
	}

	var permissionErr *services.PermissionError
	if errors.As(err, &permissionErr) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Permission denied",
			Details: permissionErr.Reason,
		})
		return
	}

	var businessErr *services.BusinessRuleError
	if errors.As(err, &businessErr) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: businessErr.Message,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrExamNotFound),
		errors.Is(err, services.ErrAttemptNotFound),
		errors.Is(err, services.ErrAnswerNotFound),
		errors.Is(err, services.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: err.Error()})

	case errors.Is(err, services.ErrNotAllowedToTake):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: err.Error()})

	case errors.Is(err, services.ErrAttemptNotActive),
		errors.Is(err, services.ErrAttemptAlreadyComplete),
		errors.Is(err, services.ErrAttemptAlreadyStarted),
		errors.Is(err, services.ErrAttemptLimitExceeded),
		errors.Is(err, services.ErrAttemptNotReviewable),
		errors.Is(err, services.ErrExamNotEditable):
		c.JSON(http.StatusConflict, ErrorResponse{Message: err.Error()})

	case errors.Is(err, services.ErrAttemptTimeExpired),
		errors.Is(err, services.ErrExamNotAvailable),
		errors.Is(err, services.ErrQuestionNotInExam),
		errors.Is(err, services.ErrOptionNotInQuestion):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})

	default:
		h.logger.Error("Unhandled service error", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
	}
}
