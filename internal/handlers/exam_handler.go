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

type ExamHandler struct {
	BaseHandler
	examService   services.ExamService
	exportService services.ExportService
	validator     *validator.Validator
}

func NewExamHandler(
	examService services.ExamService,
	exportService services.ExportService,
	validator *validator.Validator,
	logger utils.Logger,
) *ExamHandler {
	return &ExamHandler{
		BaseHandler:   NewBaseHandler(logger),
		examService:   examService,
		exportService: exportService,
		validator:     validator,
	}
}

// CreateExam creates a new exam
// @Summary Create exam
// @Tags exams
// @Accept json
// @Produce json
// @Param exam body services.ExamCreateRequest true "Exam definition"
// @Success 201 {object} models.Exam
// @Failure 400 {object} ErrorResponse
// @Router /exams [post]
func (h *ExamHandler) CreateExam(c *gin.Context) {
	h.LogRequest(c, "Creating exam")

	var req services.ExamCreateRequest
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

	exam, err := h.examService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, exam)
}

// UpdateExam updates an exam definition
// @Summary Update exam
// @Tags exams
// @Param id path uint true "Exam ID"
// @Router /exams/{id} [put]
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	h.LogRequest(c, "Updating exam", "exam_id", id)

	var req services.ExamUpdateRequest
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

	exam, err := h.examService.Update(c.Request.Context(), id, &req, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// DeleteExam removes a draft or cancelled exam
// @Summary Delete exam
// @Tags exams
// @Param id path uint true "Exam ID"
// @Router /exams/{id} [delete]
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	h.LogRequest(c, "Deleting exam", "exam_id", id)

	userID, role, ok := h.requireUser(c)
	if !ok {
		return
	}

	if err := h.examService.Delete(c.Request.Context(), id, userID, role); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Exam deleted"})
}

// UpdateExamStatus moves an exam through its lifecycle
// @Summary Update exam status
// @Tags exams
// @Param id path uint true "Exam ID"
// @Router /exams/{id}/status [put]
func (h *ExamHandler) UpdateExamStatus(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.ExamStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	userID, role, ok := h.requireUser(c)
	if !ok {
		return
	}

	exam, err := h.examService.UpdateStatus(c.Request.Context(), id, req.Status, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// GetExam returns one exam, subject to the caller's visibility
// @Summary Get exam
// @Tags exams
// @Param id path uint true "Exam ID"
// @Router /exams/{id} [get]
func (h *ExamHandler) GetExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, role, ok := h.requireUser(c)
	if !ok {
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), id, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// ListExams lists the exams visible to the caller
// @Summary List visible exams
// @Tags exams
// @Router /exams [get]
func (h *ExamHandler) ListExams(c *gin.Context) {
	userID, role, ok := h.requireUser(c)
	if !ok {
		return
	}

	filters := parseExamFilters(c)
	resp, err := h.examService.ListVisible(c.Request.Context(), userID, role, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetExamStats returns attempt statistics for one exam
func (h *ExamHandler) GetExamStats(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, role, ok := h.requireUser(c)
	if !ok {
		return
	}

	stats, err := h.examService.GetStats(c.Request.Context(), id, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportExamResults streams the results workbook
// @Summary Export exam results as xlsx
// @Tags exams
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Exam ID"
// @Router /exams/{id}/export [get]
func (h *ExamHandler) ExportExamResults(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	h.LogRequest(c, "Exporting exam results", "exam_id", id)

	userID, role, ok := h.requireUser(c)
	if !ok {
		return
	}

	file, filename, err := h.exportService.ExportExamResults(c.Request.Context(), id, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := file.Write(c.Writer); err != nil {
		h.logger.Error("Failed to stream export", "exam_id", id, "error", err)
	}
}

func parseExamFilters(c *gin.Context) repositories.ExamFilters {
	filters := repositories.ExamFilters{
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
		s := models.ExamStatus(status)
		filters.Status = &s
	}
	return filters
}
