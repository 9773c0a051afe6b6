package catalog

import (
	"net/url"
	"strconv"
)

// PageSize is the storefront listing page size.
const PageSize = 12

// Filter selects products from the listing endpoint. Empty fields are
// omitted from the query; slice fields are sent as repeated parameters.
type Filter struct {
	Categories []string
	Sizes      []string
	Colors     []string
	Search     string
	MinPrice   *float64
	MaxPrice   *float64
	Skip       int
	Limit      int
	SortBy     string
	SortOrder  string
	Extra      map[string][]string
}

// Query encodes the filter as URL query parameters.
func (f Filter) Query() url.Values {
	q := url.Values{}
	appendAll(q, "category", f.Categories)
	appendAll(q, "sizes", f.Sizes)
	appendAll(q, "colors", f.Colors)
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.MinPrice != nil {
		q.Set("min_price", strconv.FormatFloat(*f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice != nil {
		q.Set("max_price", strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64))
	}
	if f.Skip > 0 {
		q.Set("skip", strconv.Itoa(f.Skip))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.SortBy != "" {
		q.Set("sort_by", f.SortBy)
	}
	if f.SortOrder != "" {
		q.Set("sort_order", f.SortOrder)
	}
	for k, vs := range f.Extra {
		appendAll(q, k, vs)
	}
	return q
}

func appendAll(q url.Values, key string, values []string) {
	for _, v := range values {
		if v != "" {
			q.Add(key, v)
		}
	}
}

// Sort options offered by the listing page.
const (
	SortRecommended = "recommended"
	SortPriceLow    = "price-low-high"
	SortPriceHigh   = "price-high-low"
	SortNewest      = "newest"
	SortRating      = "rating"
)

// WithSort sets SortBy and SortOrder for a named sort option. The backend
// sorts ascending with "-1" and descending with "1".
func (f Filter) WithSort(option string) Filter {
	f.SortOrder = "-1"
	switch option {
	case SortPriceLow:
		f.SortBy = "price"
	case SortPriceHigh:
		f.SortBy = "price"
		f.SortOrder = "1"
	case SortRating:
		f.SortBy = "rating"
	default:
		f.SortBy = "created_at"
	}
	return f
}

// Price bands offered by the listing page.
const (
	PriceUnder50  = "under50"
	Price50to100  = "50to100"
	Price100to150 = "100to150"
	PriceOver150  = "over150"
)

// WithPriceBand sets MinPrice and MaxPrice for a named band.
func (f Filter) WithPriceBand(band string) Filter {
	bound := func(v float64) *float64 { return &v }
	switch band {
	case PriceUnder50:
		f.MinPrice, f.MaxPrice = bound(0), bound(50)
	case Price50to100:
		f.MinPrice, f.MaxPrice = bound(50), bound(100)
	case Price100to150:
		f.MinPrice, f.MaxPrice = bound(100), bound(150)
	case PriceOver150:
		f.MinPrice, f.MaxPrice = bound(150), nil
	}
	return f
}

// WithPage sets Skip and Limit for a 1-based page number.
func (f Filter) WithPage(page, size int) Filter {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = PageSize
	}
	f.Skip = (page - 1) * size
	f.Limit = size
	return f
}
