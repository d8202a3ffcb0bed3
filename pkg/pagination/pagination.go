// Package pagination parses the page/limit query parameters shared by the
// batch, medicine, sale, movement, and audit-log listings.
package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	MinLimit     = 1
)

// Params carries a sanitized page/limit pair. Offset is precomputed for
// repositories that page with raw Offset/Limit clauses.
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Parse reads page and limit from the request query, falling back to the
// defaults and clamping limit so a single listing request cannot pull the
// whole table.
func Parse(c *gin.Context) Params {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))

	if page < 1 {
		page = DefaultPage
	}
	if limit < MinLimit {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}
