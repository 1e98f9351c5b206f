package matching

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/parceldrop/parceldrop-backend/pkg/db/models"
	"github.com/parceldrop/parceldrop-backend/pkg/enums"
	"github.com/parceldrop/parceldrop-backend/pkg/types"
)

// SortKey names the supported rankings for nearby searches.
type SortKey string

const (
	SortDistance SortKey = "distance"
	SortAmount   SortKey = "amount"
	SortCreated  SortKey = "created"
	SortWeight   SortKey = "weight"
	SortDeadline SortKey = "deadline"
	SortDuration SortKey = "duration"
)

// SortDirection orders a ranking ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSort resolves raw sort inputs; anything unknown falls back to
// distance ascending.
func ParseSort(key, direction string) (SortKey, SortDirection) {
	sortKey := SortDistance
	switch SortKey(strings.ToLower(key)) {
	case SortDistance, SortAmount, SortCreated, SortWeight, SortDeadline, SortDuration:
		sortKey = SortKey(strings.ToLower(key))
	}
	sortDir := SortAsc
	if SortDirection(strings.ToLower(direction)) == SortDesc {
		sortDir = SortDesc
	}
	return sortKey, sortDir
}

// SearchFilters narrow the candidate set. All fields are conjunctive;
// nil means unconstrained.
type SearchFilters struct {
	MinAmount     *decimal.Decimal
	MaxAmount     *decimal.Decimal
	PaymentMethod *enums.PaymentMethod
	Fragile       *bool
	MaxWeightKg   *float64
	MaxLengthCm   *float64
	MaxWidthCm    *float64
	MaxHeightCm   *float64
	VehicleType   *enums.VehicleType
	BusinessID    *uuid.UUID
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	WindowsOpenAt *time.Time
}

// SearchParams is the full nearby-search request.
type SearchParams struct {
	Location     types.Coordinates
	MinDistanceM float64
	MaxDistanceM float64
	Filters      SearchFilters
	SortKey      SortKey
	SortDir      SortDirection
	Page         int
	Limit        int
}

// MatchedOffer pairs an offer with its distance from the search center.
type MatchedOffer struct {
	models.Offer
	DistanceM float64 `json:"distance_m"`
}

// SearchResult is one ranked page plus the total matching count.
type SearchResult struct {
	Offers     []MatchedOffer `json:"offers"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int64          `json:"total_pages"`
}

// Fingerprint renders the params into a stable cache key component. Field
// order is fixed and coordinates are rounded to the given number of decimals,
// so two requests for "the same place" share a cache entry.
func (p SearchParams) Fingerprint(locationDecimals int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "lng=%.*f|lat=%.*f", locationDecimals, p.Location.Lng, locationDecimals, p.Location.Lat)
	fmt.Fprintf(&b, "|dmin=%.0f|dmax=%.0f", p.MinDistanceM, p.MaxDistanceM)
	fmt.Fprintf(&b, "|amin=%s|amax=%s", decimalOrDash(p.Filters.MinAmount), decimalOrDash(p.Filters.MaxAmount))
	fmt.Fprintf(&b, "|pm=%s", stringerOrDash(p.Filters.PaymentMethod))
	fmt.Fprintf(&b, "|fr=%s", boolOrDash(p.Filters.Fragile))
	fmt.Fprintf(&b, "|w=%s|l=%s|wd=%s|h=%s",
		floatOrDash(p.Filters.MaxWeightKg),
		floatOrDash(p.Filters.MaxLengthCm),
		floatOrDash(p.Filters.MaxWidthCm),
		floatOrDash(p.Filters.MaxHeightCm))
	fmt.Fprintf(&b, "|vt=%s", stringerOrDash(p.Filters.VehicleType))
	fmt.Fprintf(&b, "|biz=%s", uuidOrDash(p.Filters.BusinessID))
	fmt.Fprintf(&b, "|cf=%s|ct=%s", timeOrDash(p.Filters.CreatedFrom), timeOrDash(p.Filters.CreatedTo))
	fmt.Fprintf(&b, "|win=%s", timeOrDash(p.Filters.WindowsOpenAt))
	fmt.Fprintf(&b, "|sort=%s:%s", p.SortKey, p.SortDir)
	fmt.Fprintf(&b, "|page=%d|limit=%d", p.Page, p.Limit)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}

func decimalOrDash(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

func floatOrDash(f *float64) string {
	if f == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *f)
}

func boolOrDash(b *bool) string {
	if b == nil {
		return "-"
	}
	return fmt.Sprintf("%t", *b)
}

func uuidOrDash(id *uuid.UUID) string {
	if id == nil {
		return "-"
	}
	return id.String()
}

func timeOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func stringerOrDash[T fmt.Stringer](s *T) string {
	if s == nil {
		return "-"
	}
	return (*s).String()
}
