// Package query selects ledger records by vendor and date range.
package query

import (
	"math"
	"strings"

	"milkledger/internal/core"
)

// Criteria narrows a ledger. Zero values match everything: an empty Vendor
// matches every vendor and an empty Start or End leaves that side open.
type Criteria struct {
	Vendor string
	Start  core.Date
	End    core.Date
}

// Result holds the matching records in ledger order. Positions[i] is the
// ledger index of Matches[i], so callers can edit or delete a match.
type Result struct {
	Matches   []core.Record
	Positions []int
	Total     float64
}

// Match reports whether r satisfies c. Dates compare as calendar days and
// both bounds are inclusive.
func (c Criteria) Match(r core.Record) bool {
	if c.Vendor != "" && !strings.Contains(strings.ToLower(r.VendorName), strings.ToLower(c.Vendor)) {
		return false
	}
	if !c.Start.IsEmpty() && r.Date.Before(c.Start) {
		return false
	}
	if !c.End.IsEmpty() && r.Date.After(c.End) {
		return false
	}
	return true
}

// IsZero reports whether c matches every record.
func (c Criteria) IsZero() bool {
	return c.Vendor == "" && c.Start.IsEmpty() && c.End.IsEmpty()
}

// Key is a stable string form of c, used for cache keys and log fields.
func (c Criteria) Key() string {
	return strings.ToLower(c.Vendor) + "|" + c.Start.String() + "|" + c.End.String()
}

// Filter returns the records matching c and the sum of their prices. The
// input slice is not modified. A NaN price counts as zero.
func Filter(records []core.Record, c Criteria) Result {
	res := Result{
		Matches:   []core.Record{},
		Positions: []int{},
	}
	for i, r := range records {
		if !c.Match(r) {
			continue
		}
		res.Matches = append(res.Matches, r)
		res.Positions = append(res.Positions, i)
		if !math.IsNaN(r.Price) {
			res.Total += r.Price
		}
	}
	return res
}
