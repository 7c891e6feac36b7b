package entity

import (
	"math"
	"strings"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
	// MaxPageNumber keeps (page-1)*limit within int64 for every allowed limit.
	MaxPageNumber = math.MaxInt64 / MaxPageLimit
)

// ListFilter narrows a user listing. Zero values mean "no constraint".
type ListFilter struct {
	// Query is matched case-insensitively as a literal substring of the name.
	Query    string `json:"q"`
	MinAge   *int   `json:"min_age" validate:"omitempty,userage"`
	MaxAge   *int   `json:"max_age" validate:"omitempty,userage"`
	IsActive *bool  `json:"is_active"`
}

// IsZero reports whether no constraint is set.
func (f ListFilter) IsZero() bool {
	return f.Query == "" && f.MinAge == nil && f.MaxAge == nil && f.IsActive == nil
}

// Matches evaluates the filter in memory.
func (f ListFilter) Matches(u User) bool {
	if f.Query != "" && !strings.Contains(strings.ToLower(u.Name), strings.ToLower(f.Query)) {
		return false
	}
	if f.MinAge != nil && u.Age < *f.MinAge {
		return false
	}
	if f.MaxAge != nil && u.Age > *f.MaxAge {
		return false
	}
	if f.IsActive != nil && u.IsActive != *f.IsActive {
		return false
	}
	return true
}

// Page is a 1-based page window over name-sorted results.
type Page struct {
	Number int `json:"page" validate:"min=1,max=92233720368547758"`
	Limit  int `json:"limit" validate:"min=1,max=100"`
}

// Skip is the number of sorted results preceding the page. It saturates
// instead of overflowing for pages outside the validated range.
func (p Page) Skip() int {
	if p.Number <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Limit
}
