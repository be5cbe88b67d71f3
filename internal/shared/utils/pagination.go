package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"traino/internal/shared/constants"
	"traino/internal/shared/errors"
)

// Pagination holds normalized page parameters for list endpoints.
type Pagination struct {
	Page     int
	PageSize int
}

// ParsePageQuery reads page and page_size from the query string. Missing
// parameters fall back to the defaults; malformed or non-positive values are
// a validation error rather than being silently corrected. page_size is
// capped at MaxPageSize.
func ParsePageQuery(c *gin.Context) (Pagination, error) {
	p := Pagination{Page: constants.DefaultPage, PageSize: constants.DefaultPageSize}

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return Pagination{}, errors.NewValidationError("Invalid page parameter")
		}
		p.Page = page
	}

	if raw := c.Query("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return Pagination{}, errors.NewValidationError("Invalid page_size parameter")
		}
		if size > constants.MaxPageSize {
			size = constants.MaxPageSize
		}
		p.PageSize = size
	}

	return p, nil
}

// ParseLimitQuery reads an optional limit from the query string. A missing
// parameter returns 0, which callers treat as their own default.
func ParseLimitQuery(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, errors.NewValidationError("Invalid limit parameter")
	}
	return limit, nil
}
