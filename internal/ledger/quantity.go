package ledger

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// NormalizeSKU returns the identity key of a SKU.
func NormalizeSKU(sku string) string {
	return fold(sku)
}

// NormalizeLocation returns the comparison key of a location name. Every
// occupancy check compares trimmed, case-folded names.
func NormalizeLocation(name string) string {
	return fold(name)
}

func fold(s string) string {
	// cases.Caser keeps state, so one per call.
	return cases.Fold().String(strings.TrimSpace(s))
}

// SameSKU compares two SKUs by identity key.
func SameSKU(a, b string) bool {
	return NormalizeSKU(a) == NormalizeSKU(b)
}

// SameLocation compares two location names by comparison key.
func SameLocation(a, b string) bool {
	return NormalizeLocation(a) == NormalizeLocation(b)
}

// QuantityOf sums volume × units-per-box over every entry of sku.
func QuantityOf(sku string, locations []Location) int {
	key := NormalizeSKU(sku)
	total := 0
	for _, loc := range locations {
		if NormalizeSKU(loc.SKU) == key {
			total += loc.Quantity()
		}
	}
	return total
}

// QuantityBySKU projects the ledger into unit quantities keyed by NormalizeSKU.
func QuantityBySKU(locations []Location) map[string]int {
	out := make(map[string]int)
	for _, loc := range locations {
		out[NormalizeSKU(loc.SKU)] += loc.Quantity()
	}
	return out
}

// OccupiedLocationNames returns the normalised names holding at least one entry.
func OccupiedLocationNames(locations []Location) map[string]struct{} {
	out := make(map[string]struct{}, len(locations))
	for _, loc := range locations {
		out[NormalizeLocation(loc.Place)] = struct{}{}
	}
	return out
}

// IsOccupied reports whether name holds at least one entry.
func IsOccupied(name string, locations []Location) bool {
	key := NormalizeLocation(name)
	for _, loc := range locations {
		if NormalizeLocation(loc.Place) == key {
			return true
		}
	}
	return false
}

// Availability classifies each master location as Occupied or Free, sorted
// by name.
func Availability(master []MasterLocation, locations []Location) []AvailabilityRow {
	occupied := OccupiedLocationNames(locations)
	rows := make([]AvailabilityRow, 0, len(master))
	for _, m := range master {
		status := StatusFree
		if _, ok := occupied[NormalizeLocation(m.Name)]; ok {
			status = StatusOccupied
		}
		rows = append(rows, AvailabilityRow{Location: m.Name, Status: status})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return NormalizeLocation(rows[i].Location) < NormalizeLocation(rows[j].Location)
	})
	return rows
}

// MatchesSearch applies the listing search box rule: case-insensitive
// substring over any of the fields.
func MatchesSearch(search string, fields ...string) bool {
	needle := fold(search)
	if needle == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(fold(f), needle) {
			return true
		}
	}
	return false
}
