package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campus-exams/exam-service/internal/models"
	"github.com/campus-exams/exam-service/internal/repositories"
	"github.com/campus-exams/exam-service/internal/services"
	"github.com/campus-exams/exam-service/internal/utils"
	"github.com/campus-exams/exam-service/internal/validator"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
	validator      *validator.Validator
}

func NewAttemptHandler(
	attemptService services.AttemptService,
	validator *validator.Validator,
	logger utils.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		validator:      validator,
	}
}

// StartAttempt starts a new exam attempt
// @Summary Start exam attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param attempt body services.StartAttemptRequest true "Start attempt data"
// @Success 201 {object} services.AttemptResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/start [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	h.LogRequest(c, "Starting exam attempt")

	var req services.StartAttemptRequest
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

	attempt, err := h.attemptService.Start(c.Request.Context(), &req, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// GetAttempt returns one attempt with its answers
// @Summary Get attempt
// @Tags attempts
// @Param id path uint true "Attempt ID"
// @Router /attempts/{id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, role, ok := h.requireUser(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.GetByID(c.Request.Context(), id, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// ListMyAttempts lists the caller's own attempts
func (h *AttemptHandler) ListMyAttempts(c *gin.Context) {
	userID, _, ok := h.requireUser(c)
	if !ok {
		return
	}

	resp, err := h.attemptService.ListByStudent(c.Request.Context(), userID, parseAttemptFilters(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListExamAttempts lists all attempts of one exam for its creator
func (h *AttemptHandler) ListExamAttempts(c *gin.Context) {
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}

	userID, role, ok := h.requireUser(c)
	if !ok {
		return
	}

	resp, err := h.attemptService.ListByExam(c.Request.Context(), examID, userID, role, parseAttemptFilters(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SubmitAnswer saves one answer on an open attempt
// @Summary Submit answer
// @Tags attempts
// @Accept json
// @Param id path uint true "Attempt ID"
// @Param answer body services.SubmitAnswerRequest true "Answer payload"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/answers [put]
func (h *AttemptHandler) SubmitAnswer(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, _, ok := h.requireUser(c)
	if !ok {
		return
	}

	if err := h.attemptService.SubmitAnswer(c.Request.Context(), id, &req, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Answer saved"})
}

// CompleteAttempt submits the whole attempt
// @Summary Complete attempt
// @Tags attempts
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.AttemptResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/complete [post]
func (h *AttemptHandler) CompleteAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	h.LogRequest(c, "Completing exam attempt", "attempt_id", id)

	userID, _, ok := h.requireUser(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.Complete(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// RecordProctoringEvent records a violation or screen switch
func (h *AttemptHandler) RecordProctoringEvent(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.ProctoringEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, _, ok := h.requireUser(c)
	if !ok {
		return
	}

	if err := h.attemptService.RecordProctoringEvent(c.Request.Context(), id, &req, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Event recorded"})
}

func parseAttemptFilters(c *gin.Context) repositories.AttemptFilters {
	filters := repositories.AttemptFilters{
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filters.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil {
		filters.Offset = offset
	}
	if status := c.Query("status"); status != "" {
		s := models.AttemptStatus(status)
		filters.Status = &s
	}
	return filters
}
