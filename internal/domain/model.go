package domain

import (
	"math"
	"time"
)

// BaseModel is the common base struct for all domain models.
// It replaces gorm.Model to avoid the implicit soft delete behavior of DeletedAt.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Page is one page of a paginated list as served by GET /users.
// Next is nil on the last page.
type Page[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Next       *int  `json:"next"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPage builds a Page and derives Next and TotalPages from total.
func NewPage[T any](items []T, total int64, page, pageSize int) *Page[T] {
	if items == nil {
		items = []T{}
	}

	totalPages := 0
	if pageSize > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	}

	var next *int
	if int64(page)*int64(pageSize) < total {
		n := page + 1
		next = &n
	}

	return &Page[T]{
		Data:       items,
		Total:      total,
		Page:       page,
		Next:       next,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// HasNext reports whether another page follows this one.
func (p *Page[T]) HasNext() bool {
	return p != nil && p.Next != nil
}
