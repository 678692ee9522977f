package util

import "strconv"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page parses offset and limit query values, falling back to the defaults
// on bad input.
func Page(offsetRaw, limitRaw string) (offset, limit int) {
	offset, err := strconv.Atoi(offsetRaw)
	if err != nil || offset < 0 {
		offset = 0
	}
	limit, err = strconv.Atoi(limitRaw)
	if err != nil || limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return offset, limit
}
