// Package ops implements the usertags operations shared by the CLI, the MCP
// server and the web UI. Each operation takes an Input struct, validates it
// and returns an Output struct or a *errors.TagError.
package ops

import (
	"strings"

	"github.com/jimmcbubbles/usertags/internal/errors"
	"github.com/jimmcbubbles/usertags/internal/validation"
)

// Limits
const (
	DefaultListLimit   = 100
	MaxListLimit       = 1000
	DefaultSearchLimit = 50
	MaxSearchLimit     = 500
	MaxFilterLength    = 512
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// page clamps limit and offset and returns the bounds of the requested
// window over total items.
func page(limit, offset, total, defaultLimit, maxLimit int) (start, end int, p Pagination) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset = max(offset, 0)

	start = min(offset, total)
	end = min(start+limit, total)
	return start, end, Pagination{
		Limit:   limit,
		Offset:  offset,
		HasMore: end < total,
		Total:   total,
	}
}

// validate checks input against its struct tags.
func validate(input any) error {
	return validation.Struct(input)
}

// requireUserID trims id and rejects an empty result.
func requireUserID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.NewInvalidRequest("user_id is required")
	}
	return id, nil
}
