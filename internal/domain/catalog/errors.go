package catalog

import "errors"

var (
	ErrPlanNotFound   = errors.New("plan not found")
	ErrPlanInactive   = errors.New("plan inactive")
	ErrPlanSlugExists = errors.New("plan slug already exists")
)
