// Package pagination holds the page/limit arithmetic and predicate builder
// shared by every list endpoint.
package pagination

import (
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Request is a normalized page request. Page and Limit are always >= 1.
type Request struct {
	Page  int
	Limit int
}

// New clamps page and limit into range. Values below 1 fall back to the
// defaults and limit never exceeds maxLimit (MaxLimit when maxLimit <= 0).
func New(page, limit, defaultLimit, maxLimit int) Request {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return Request{Page: page, Limit: limit}
}

// Parse builds a Request from raw query values.
func Parse(pageRaw, limitRaw string, defaultLimit, maxLimit int) Request {
	return New(atoi(pageRaw), atoi(limitRaw), defaultLimit, maxLimit)
}

func atoi(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}

// Offset returns the number of rows to skip.
func (r Request) Offset() int {
	return (r.Page - 1) * r.Limit
}

// Meta describes the page that was returned.
type Meta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// NewMeta computes pages = ceil(total/limit).
func NewMeta(r Request, total int64) Meta {
	pages := 0
	if r.Limit > 0 && total > 0 {
		pages = int((total + int64(r.Limit) - 1) / int64(r.Limit))
	}
	return Meta{Page: r.Page, Limit: r.Limit, Total: total, Pages: pages}
}

// Page is a bounded, ordered slice of results.
type Page[T any] struct {
	Items []T
	Meta  Meta
}

// Slice pages an already filtered and ordered slice.
func Slice[T any](items []T, r Request) Page[T] {
	total := int64(len(items))
	start := r.Offset()
	if start > len(items) {
		start = len(items)
	}
	end := start + r.Limit
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return Page[T]{Items: out, Meta: NewMeta(r, total)}
}

// MatchesSearch reports whether term occurs case-insensitively in any field.
// An empty term matches everything.
func MatchesSearch(term string, fields ...string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}
