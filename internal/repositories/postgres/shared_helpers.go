package postgres

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/campus-exams/exam-service/internal/repositories"
)

// applySortAndPage appends ORDER BY / LIMIT / OFFSET from the filter
// values. Sort columns are whitelisted to keep user input out of SQL.
func applySortAndPage(query *gorm.DB, sortBy, sortOrder string, limit, offset int, allowed map[string]bool) *gorm.DB {
	if sortBy != "" && allowed[sortBy] {
		order := "DESC"
		if strings.EqualFold(sortOrder, "asc") {
			order = "ASC"
		}
		query = query.Order(fmt.Sprintf("%s %s", sortBy, order))
	} else {
		query = query.Order("created_at DESC")
	}

	if limit > 0 {
		if limit > 100 {
			limit = 100
		}
		query = query.Limit(limit)
	} else {
		query = query.Limit(20)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

func applyExamFilters(query *gorm.DB, filters repositories.ExamFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	if filters.DateFrom != nil {
		query = query.Where("start_time >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("end_time <= ?", *filters.DateTo)
	}
	return query
}

func applyAttemptFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.ExamID != nil {
		query = query.Where("exam_id = ?", *filters.ExamID)
	}
	if filters.DateFrom != nil {
		query = query.Where("start_time >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("start_time <= ?", *filters.DateTo)
	}
	return query
}
