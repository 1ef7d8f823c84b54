package pkg

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/simp-lee/userdesk/internal/domain"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100
)

// ParseUserQuery extracts pagination and filter parameters from query params.
// Out-of-range page and page_size values are clamped.
func ParseUserQuery(c *gin.Context) domain.UserQuery {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(defaultPage)))
	if page < 1 {
		page = defaultPage
	}

	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return domain.UserQuery{
		Page:     page,
		PageSize: pageSize,
		Filter:   strings.TrimSpace(c.Query("filter")),
		Active:   strings.TrimSpace(c.Query("active")),
		Gender:   strings.TrimSpace(c.Query("gender")),
	}
}

// Paginate returns a GORM scope that applies LIMIT and OFFSET based on the query.
func Paginate(q domain.UserQuery) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		offset := (q.Page - 1) * q.PageSize
		return db.Offset(offset).Limit(q.PageSize)
	}
}

// FilterActive restricts to active users when active is "active" and to
// inactive users for any other non-empty value.
func FilterActive(active string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if active == "" {
			return db
		}
		return db.Where("is_active = ?", active == domain.ActiveOnly)
	}
}

// FilterGender matches the canonicalised gender exactly.
func FilterGender(gender string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if gender == "" {
			return db
		}
		return db.Where("gender = ?", domain.FormatGender(gender))
	}
}

// FilterWords requires every whitespace-separated word of filter to appear,
// case-insensitively, in first_name, last_name or email.
func FilterWords(filter string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, word := range strings.Fields(filter) {
			term := "%" + escapeLike(strings.ToLower(word)) + "%"
			db = db.Where(
				"(LOWER(first_name) LIKE ? ESCAPE '\\' OR LOWER(last_name) LIKE ? ESCAPE '\\' OR LOWER(email) LIKE ? ESCAPE '\\')",
				term, term, term,
			)
		}
		return db
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
