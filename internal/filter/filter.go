// Package filter holds the draft list filter state. Any change to a field other
// than Page or Limit sends the cursor back to page 1.
package filter

import (
	"net/url"
	"strconv"
	"sync"
)

// Defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Filters is a comparable value; two equal Filters are the same list query.
type Filters struct {
	Search   string
	Category string
	Status   string
	Priority string
	Source   string
	SortBy   string
	Page     int
	Limit    int
}

// Default returns the reset state with the given limit (DefaultLimit when < 1).
func Default(limit int) Filters {
	if limit < 1 {
		limit = DefaultLimit
	}
	return Filters{Page: DefaultPage, Limit: limit}
}

// Values encodes the filters as list endpoint query parameters.
func (f Filters) Values() url.Values {
	v := url.Values{}
	set := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	set("search", f.Search)
	set("category", f.Category)
	set("status", f.Status)
	set("priority", f.Priority)
	set("source", f.Source)
	set("sort", f.SortBy)
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	return v
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Search   *string
	Category *string
	Status   *string
	Priority *string
	Source   *string
	SortBy   *string
	Page     *int
	Limit    *int
}

// Str returns a pointer to s for building patches.
func Str(s string) *string { return &s }

// Int returns a pointer to n for building patches.
func Int(n int) *int { return &n }

// Semantic reports whether the patch touches any field other than Page or Limit.
func (p Patch) Semantic() bool {
	return p.Search != nil || p.Category != nil || p.Status != nil ||
		p.Priority != nil || p.Source != nil || p.SortBy != nil
}

// Empty reports whether the patch touches nothing.
func (p Patch) Empty() bool {
	return !p.Semantic() && p.Page == nil && p.Limit == nil
}

// Apply merges p into f field by field.
func (f Filters) Apply(p Patch) Filters {
	out := f
	assign(&out.Search, p.Search)
	assign(&out.Category, p.Category)
	assign(&out.Status, p.Status)
	assign(&out.Priority, p.Priority)
	assign(&out.Source, p.Source)
	assign(&out.SortBy, p.SortBy)
	assign(&out.Page, p.Page)
	assign(&out.Limit, p.Limit)

	if p.Semantic() {
		out.Page = DefaultPage
	}
	if out.Page < 1 {
		out.Page = DefaultPage
	}
	if out.Limit < 1 {
		out.Limit = f.Limit
	}
	return out
}

func assign[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Controller owns the current Filters. It is safe for concurrent use.
type Controller struct {
	mu       sync.Mutex
	defaults Filters
	current  Filters
}

// NewController starts at Default(limit).
func NewController(limit int) *Controller {
	d := Default(limit)
	return &Controller{defaults: d, current: d}
}

// Current returns the filters.
func (c *Controller) Current() Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Update merges p and returns the result.
func (c *Controller) Update(p Patch) Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Apply(p)
	return c.current
}

// Reset restores the defaults.
func (c *Controller) Reset() Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.defaults
	return c.current
}

// ClampPage keeps Page within [1, totalPages] once the total is known. A total
// of zero clamps to 1. changed reports whether the page moved.
func (c *Controller) ClampPage(totalPages int) (f Filters, changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	maxPage := max(totalPages, 1)
	switch {
	case c.current.Page > maxPage:
		c.current.Page = maxPage
		changed = true
	case c.current.Page < 1:
		c.current.Page = DefaultPage
		changed = true
	}
	return c.current, changed
}
