package services

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"allrentr/models"
)

// containsFold reports whether sub occurs in s under Unicode case folding.
// A Caser is stateful, so each call builds its own.
func containsFold(s, sub string) bool {
	if sub == "" {
		return true
	}
	fold := cases.Fold()
	return strings.Contains(fold.String(s), fold.String(sub))
}

// MatchesFilters applies the base filters: search text matches the product
// name or description case-insensitively, the PIN filter is a substring of
// the listing PIN, category must match exactly and the price must lie in
// [MinPrice, MaxPrice] (MaxPrice 0 means no upper bound).
func MatchesFilters(l *models.Listing, f models.Filters) bool {
	if !containsFold(l.ProductName, f.Search) && !containsFold(l.Description, f.Search) {
		return false
	}
	if f.PinCode != "" && !strings.Contains(l.PinCode, f.PinCode) {
		return false
	}
	if f.Category != "" && l.Category != f.Category {
		return false
	}
	if f.MinPrice > 0 && l.RentPrice < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && l.RentPrice > f.MaxPrice {
		return false
	}
	return true
}

// FilterListings keeps the listings matching f, preserving order.
func FilterListings(listings []*models.Listing, f models.Filters) []*models.Listing {
	out := make([]*models.Listing, 0, len(listings))
	for _, l := range listings {
		if l != nil && MatchesFilters(l, f) {
			out = append(out, l)
		}
	}
	return out
}

// SortListings orders listings in place. SortSource leaves them untouched.
func SortListings(listings []*models.Listing, order models.SortOrder) {
	var less func(a, b *models.Listing) bool
	switch order {
	case models.SortNewest:
		less = func(a, b *models.Listing) bool { return a.CreatedAt.After(b.CreatedAt) }
	case models.SortPriceAsc:
		less = func(a, b *models.Listing) bool { return a.RentPrice < b.RentPrice }
	case models.SortPriceDesc:
		less = func(a, b *models.Listing) bool { return a.RentPrice > b.RentPrice }
	case models.SortMostReviewed:
		less = func(a, b *models.Listing) bool { return a.RatingCount > b.RatingCount }
	case models.SortTopRated:
		less = func(a, b *models.Listing) bool { return a.Rating > b.Rating }
	default:
		return
	}
	sort.SliceStable(listings, func(i, j int) bool { return less(listings[i], listings[j]) })
}
