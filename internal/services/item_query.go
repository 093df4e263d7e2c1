package services

import (
	"math"
	"strconv"
	"strings"

	"github.com/ahmetcoskunkizilkaya/campus-market/internal/dto"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/repository"
)

const (
	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 100

	// CategoryAll disables the category filter.
	CategoryAll = "all"
)

// RawListParams are listing query parameters exactly as received.
type RawListParams struct {
	Page     string
	Limit    string
	Category string
	MinPrice string
	MaxPrice string
	Search   string
	SortBy   string
}

// ListParams is a coerced listing request.
type ListParams struct {
	Page  int
	Limit int
	Query repository.ItemQuery
}

// ParseListParams never fails: malformed values fall back to defaults or are
// dropped as filters.
func ParseListParams(raw RawListParams) ListParams {
	page := min(positiveInt(raw.Page, DefaultPage), math.MaxInt32)
	limit := min(positiveInt(raw.Limit, DefaultLimit), MaxLimit)

	q := repository.ItemQuery{
		MinPrice: finiteFloat(raw.MinPrice),
		MaxPrice: finiteFloat(raw.MaxPrice),
		Search:   strings.TrimSpace(raw.Search),
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}
	if c := strings.TrimSpace(raw.Category); c != "" && c != CategoryAll {
		q.Category = c
	}
	switch s := strings.TrimSpace(raw.SortBy); s {
	case repository.SortOldest, repository.SortPriceLow, repository.SortPriceHigh:
		q.Sort = s
	default:
		q.Sort = repository.SortNewest
	}
	return ListParams{Page: page, Limit: limit, Query: q}
}

func positiveInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func finiteFloat(s string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// NewPagination describes page of a result set of total rows.
func NewPagination(page, limit int, total int64) dto.Pagination {
	var pages int64
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	return dto.Pagination{
		CurrentPage: page,
		TotalPages:  pages,
		TotalItems:  total,
		HasNext:     int64(page) < pages,
		HasPrev:     page > 1,
	}
}
