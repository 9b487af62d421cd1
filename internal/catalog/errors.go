package catalog

import "errors"

// Catalog errors.
var (
	ErrPartNotFound  = errors.New("part not found")
	ErrInvalidPaging = errors.New("page and size must be non-negative integers")
)
