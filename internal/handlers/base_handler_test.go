package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/campus-exams/exam-service/internal/models"
	"github.com/campus-exams/exam-service/internal/services"
	"github.com/campus-exams/exam-service/internal/utils"
	"github.com/campus-exams/exam-service/internal/validator"
)

func testBaseHandler() BaseHandler {
	logger := utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewBaseHandler(logger)
}

func testContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestHandleServiceErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "validation errors", err: validator.ValidationErrors{{Field: "title", Tag: "required"}}, wantStatus: http.StatusBadRequest},
		{name: "permission denied", err: services.NewPermissionError("u1", 1, "exam", "update", "not the exam creator"), wantStatus: http.StatusForbidden},
		{name: "business rule violation", err: services.NewBusinessRuleError("points_cap", "points exceed question maximum"), wantStatus: http.StatusUnprocessableEntity},
		{name: "exam not found", err: services.ErrExamNotFound, wantStatus: http.StatusNotFound},
		{name: "attempt not found", err: services.ErrAttemptNotFound, wantStatus: http.StatusNotFound},
		{name: "profile not found", err: services.ErrProfileNotFound, wantStatus: http.StatusNotFound},
		{name: "not allowed to take", err: services.ErrNotAllowedToTake, wantStatus: http.StatusForbidden},
		{name: "attempt already complete", err: services.ErrAttemptAlreadyComplete, wantStatus: http.StatusConflict},
		{name: "attempt already started", err: services.ErrAttemptAlreadyStarted, wantStatus: http.StatusConflict},
		{name: "attempt limit exceeded", err: services.ErrAttemptLimitExceeded, wantStatus: http.StatusConflict},
		{name: "exam not editable", err: services.ErrExamNotEditable, wantStatus: http.StatusConflict},
		{name: "attempt time expired", err: services.ErrAttemptTimeExpired, wantStatus: http.StatusBadRequest},
		{name: "exam not available", err: services.ErrExamNotAvailable, wantStatus: http.StatusBadRequest},
		{name: "question not in exam", err: services.ErrQuestionNotInExam, wantStatus: http.StatusBadRequest},
		{name: "option not in question", err: services.ErrOptionNotInQuestion, wantStatus: http.StatusBadRequest},
		{name: "unknown error", err: errors.New("database exploded"), wantStatus: http.StatusInternalServerError},
	}

	h := testBaseHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := testContext(t)
			h.handleServiceError(c, tt.err)
			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestParseIDParam(t *testing.T) {
	h := testBaseHandler()

	tests := []struct {
		name     string
		value    string
		want     uint
		wantCode int
	}{
		{name: "valid id", value: "42", want: 42},
		{name: "zero rejected", value: "0", want: 0, wantCode: http.StatusBadRequest},
		{name: "negative rejected", value: "-1", want: 0, wantCode: http.StatusBadRequest},
		{name: "non numeric rejected", value: "abc", want: 0, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := testContext(t)
			c.Params = gin.Params{{Key: "id", Value: tt.value}}

			got := h.parseIDParam(c, "id")
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
			if tt.wantCode != 0 && w.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, w.Code)
			}
		})
	}
}

func TestRequireUser(t *testing.T) {
	h := testBaseHandler()

	t.Run("authenticated", func(t *testing.T) {
		c, _ := testContext(t)
		c.Set("user_id", "stu-1")
		c.Set("user_role", models.RoleStudent)

		userID, role, ok := h.requireUser(c)
		if !ok {
			t.Fatal("expected authenticated user")
		}
		if userID != "stu-1" || role != models.RoleStudent {
			t.Errorf("unexpected identity: %s %s", userID, role)
		}
	})

	t.Run("missing identity", func(t *testing.T) {
		c, w := testContext(t)
		if _, _, ok := h.requireUser(c); ok {
			t.Fatal("expected rejection without identity")
		}
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})
}
