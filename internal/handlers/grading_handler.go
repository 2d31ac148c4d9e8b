package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-exams/exam-service/internal/services"
	"github.com/campus-exams/exam-service/internal/utils"
	"github.com/campus-exams/exam-service/internal/validator"
)

type GradingHandler struct {
	BaseHandler
	gradingService services.GradingService
	validator      *validator.Validator
}

func NewGradingHandler(
	gradingService services.GradingService,
	validator *validator.Validator,
	logger utils.Logger,
) *GradingHandler {
	return &GradingHandler{
		BaseHandler:    NewBaseHandler(logger),
		gradingService: gradingService,
		validator:      validator,
	}
}

// GradeAnswer records a manual grade for one answer
// @Summary Grade answer
// @Tags grading
// @Accept json
// @Param id path uint true "Answer ID"
// @Param grade body services.GradeAnswerRequest true "Grade data"
// @Success 200 {object} models.Answer
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /grading/answers/{id} [put]
func (h *GradingHandler) GradeAnswer(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	h.LogRequest(c, "Grading answer", "answer_id", id)

	var req services.GradeAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, role, ok := h.requireUser(c)
	if !ok {
		return
	}

	answer, err := h.gradingService.GradeAnswer(c.Request.Context(), id, &req, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, answer)
}

// RegradeAttempt re-runs the automatic grading for one attempt
func (h *GradingHandler) RegradeAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	h.LogRequest(c, "Re-grading attempt", "attempt_id", id)

	if _, _, ok := h.requireUser(c); !ok {
		return
	}

	if err := h.gradingService.AutoGradeAttempt(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	attempt, err := h.gradingService.RecomputeScore(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// MarkReviewed bulk-stamps attempts as reviewed
// @Summary Mark attempts reviewed
// @Tags grading
// @Accept json
// @Param request body services.MarkReviewedRequest true "Attempt IDs"
// @Success 200 {object} services.MarkReviewedResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /grading/attempts/mark-reviewed [post]
func (h *GradingHandler) MarkReviewed(c *gin.Context) {
	h.LogRequest(c, "Marking attempts reviewed")

	var req services.MarkReviewedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, role, ok := h.requireUser(c)
	if !ok {
		return
	}

	resp, err := h.gradingService.MarkAttemptsReviewed(c.Request.Context(), &req, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
