package catalog

import (
	"math"
	"sort"

	"umrah_catalog/internal/domain"
)

// Derived views are pure functions over cache contents: they never touch
// the network and are recomputed on every read.

// Filter holds the optional comparison-table filters. Zero values mean
// "not selected".
type Filter struct {
	Days     int
	RoomType domain.RoomType
}

// FilterAndSort returns the packages matching the filter, cheapest
// first.
//
// Predicate: with no filter every package passes; with only Days set a
// package needs some duration with that day count; with only RoomType
// set it needs some duration pricing that room type; with both set a
// single duration must satisfy both at once.
//
// The sort key is taken from the duration matching Days when set, else
// the first duration in declaration order. A package whose selected
// duration lacks the requested price sorts last, it is never dropped.
func FilterAndSort(pkgs []domain.Package, f Filter) []domain.Package {
	out := make([]domain.Package, 0, len(pkgs))
	for _, p := range pkgs {
		if matchesFilter(p, f) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return sortPrice(out[i], f) < sortPrice(out[j], f)
	})
	return out
}

func matchesFilter(p domain.Package, f Filter) bool {
	if f.Days == 0 && f.RoomType == "" {
		return true
	}
	for _, d := range p.Durations {
		if f.Days != 0 && d.Days != f.Days {
			continue
		}
		if f.RoomType != "" {
			if _, ok := d.SharedRoomPrices[f.RoomType]; !ok {
				continue
			}
		}
		return true
	}
	return false
}

func sortPrice(p domain.Package, f Filter) float64 {
	d, ok := pickDuration(p, f.Days)
	if !ok {
		return math.Inf(1)
	}
	if f.RoomType != "" {
		if price, ok := d.SharedRoomPrices[f.RoomType]; ok {
			return price
		}
		return math.Inf(1)
	}
	return d.BasePrice
}

// pickDuration returns the duration matching days when days is set, else
// the first duration in declaration order.
func pickDuration(p domain.Package, days int) (domain.Duration, bool) {
	if days == 0 {
		if len(p.Durations) == 0 {
			return domain.Duration{}, false
		}
		return p.Durations[0], true
	}
	for _, d := range p.Durations {
		if d.Days == days {
			return d, true
		}
	}
	return domain.Duration{}, false
}

// SelectPricing locates the duration with matching days. Nil fields when
// none matches; the UI renders those as N/A.
func SelectPricing(p domain.Package, days int) domain.Pricing {
	for _, d := range p.Durations {
		if d.Days == days {
			base := d.BasePrice
			return domain.Pricing{BasePrice: &base, SharedRoomPrices: d.SharedRoomPrices}
		}
	}
	return domain.Pricing{}
}

// AvailableDurations is the set of distinct day counts across all
// packages, ascending.
func AvailableDurations(pkgs []domain.Package) []int {
	seen := map[int]struct{}{}
	var out []int
	for _, p := range pkgs {
		for _, d := range p.Durations {
			if _, ok := seen[d.Days]; !ok {
				seen[d.Days] = struct{}{}
				out = append(out, d.Days)
			}
		}
	}
	sort.Ints(out)
	return out
}

// HotelsByCity filters hotels for the package forms and hotel lists.
func HotelsByCity(hs []domain.Hotel, city string) []domain.Hotel {
	var out []domain.Hotel
	for _, h := range hs {
		if h.City == city {
			out = append(out, h)
		}
	}
	return out
}

// FindPackage looks a package up by identity.
func FindPackage(pkgs []domain.Package, id string) (domain.Package, bool) {
	for _, p := range pkgs {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Package{}, false
}

// FindHotel looks a hotel up by identity.
func FindHotel(hs []domain.Hotel, id string) (domain.Hotel, bool) {
	for _, h := range hs {
		if h.ID == id {
			return h, true
		}
	}
	return domain.Hotel{}, false
}

// PartitionMedia splits the ordered feed by media type on every read; it
// is a derived view over the single source of truth, not separate
// storage.
func PartitionMedia(items []domain.MediaItem, t domain.MediaType) []domain.MediaItem {
	var out []domain.MediaItem
	for _, it := range items {
		if it.MediaType == t {
			out = append(out, it)
		}
	}
	return out
}
