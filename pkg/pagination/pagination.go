// Package pagination parses page parameters and shapes paged listings.
package pagination

import (
	"fmt"
	"net/http"
	"strconv"
)

// Page size bounds.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Params selects one page of a listing. Offset is derived from Page and
// PerPage.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// New returns the params of page with perPage items, clamping both into range.
func New(page, perPage int) Params {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Params{Page: page, PerPage: perPage, Offset: (page - 1) * perPage}
}

// ParamError reports a page parameter that is not a usable number.
type ParamError struct {
	Name  string
	Value string
	Max   int
}

func (e *ParamError) Error() string {
	if e.Max > 0 {
		return fmt.Sprintf("%s must be an integer between 1 and %d, got %q", e.Name, e.Max, e.Value)
	}
	return fmt.Sprintf("%s must be a positive integer, got %q", e.Name, e.Value)
}

// FromRequest reads page and per_page from the query string. Missing values
// take the defaults; malformed or out-of-range ones yield a *ParamError.
func FromRequest(r *http.Request) (Params, error) {
	q := r.URL.Query()
	page, perPage := 1, DefaultPerPage

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Params{}, &ParamError{Name: "page", Value: v}
		}
		page = n
	}
	if v := q.Get("per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxPerPage {
			return Params{}, &ParamError{Name: "per_page", Value: v, Max: MaxPerPage}
		}
		perPage = n
	}
	return New(page, perPage), nil
}

// Result is one page of items with navigation metadata.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewResult wraps items fetched with p. A nil items slice encodes as [].
func NewResult[T any](items []T, total int, p Params) Result[T] {
	if items == nil {
		items = []T{}
	}
	p = New(p.Page, p.PerPage)
	pages := (total + p.PerPage - 1) / p.PerPage

	return Result[T]{
		Data:       items,
		TotalCount: total,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: pages,
		HasNext:    p.Page < pages,
		HasPrev:    p.Page > 1,
	}
}
