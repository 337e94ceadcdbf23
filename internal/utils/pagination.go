package utils

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
)

// PaginationMeta represents pagination metadata
type PaginationMeta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

// CalculatePagination calculates pagination metadata
func CalculatePagination(total int64, page, limit int) PaginationMeta {
	pages := int(math.Ceil(float64(total) / float64(limit)))

	return PaginationMeta{
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: pages,
	}
}

// ParsePage reads ?page= and ?limit= with fallbacks for missing or invalid values.
// Pages start at 1; limit is capped at maxLimit.
func ParsePage(c *gin.Context, defaultLimit, maxLimit int) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// PageBounds returns the [start, end) slice bounds of a page over total elements.
// Pages past the end, however large, yield an empty range at total.
func PageBounds(total, page, limit int) (int, int) {
	if page < 1 || limit < 1 || page-1 > total/limit {
		return total, total
	}
	// (page-1)*limit <= total here, so the product cannot overflow
	start := (page - 1) * limit
	end := start + limit
	if end > total {
		end = total
	}
	return start, end
}
