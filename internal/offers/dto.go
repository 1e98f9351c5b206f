package offers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/parceldrop/parceldrop-backend/pkg/db/models"
	"github.com/parceldrop/parceldrop-backend/pkg/enums"
	"github.com/parceldrop/parceldrop-backend/pkg/types"
)

// EndpointInput describes one side of a delivery (pickup or drop-off).
// Coordinates are optional; an absent pair is resolved through the geocoder.
type EndpointInput struct {
	Address      string
	ContactName  string
	ContactPhone string
	Coordinates  *types.Coordinates
}

// CreateOfferInput carries everything a business supplies for a new offer.
type CreateOfferInput struct {
	BusinessID uuid.UUID
	Pickup     EndpointInput
	Delivery   EndpointInput

	WeightKg         float64
	LengthCm         float64
	WidthCm          float64
	HeightCm         float64
	Fragile          bool
	TemperatureClass enums.TemperatureClass

	PaymentAmount decimal.Decimal
	Currency      enums.Currency
	PaymentMethod enums.PaymentMethod

	PickupWindowStart   *time.Time
	PickupWindowEnd     *time.Time
	DeliveryWindowStart *time.Time
	DeliveryWindowEnd   *time.Time
}

// ClaimInput identifies a rider's attempt to accept an open offer.
type ClaimInput struct {
	OfferID uuid.UUID
	RiderID uuid.UUID
}

// TransitionInput drives every non-claim status change.
type TransitionInput struct {
	OfferID   uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
	Target    enums.OfferStatus
	Notes     *string
	Location  *types.Coordinates
}

// BusinessOfferFilters narrow a business's own offer listing.
type BusinessOfferFilters struct {
	Status   *enums.OfferStatus
	DateFrom *time.Time
	DateTo   *time.Time
}

// OfferList is one page of offers plus the total matching count.
type OfferList struct {
	Offers     []models.Offer `json:"offers"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int64          `json:"total_pages"`
}

// OpenOfferQuery is the store-side predicate for candidate matching. Every
// field is conjunctive; nil means unconstrained. The box is a coarse prefilter
// around the search center, the exact distance band is applied by the caller.
type OpenOfferQuery struct {
	MinLng float64
	MaxLng float64
	MinLat float64
	MaxLat float64

	MinAmount     *decimal.Decimal
	MaxAmount     *decimal.Decimal
	PaymentMethod *enums.PaymentMethod
	Fragile       *bool
	MaxWeightKg   *float64
	MaxLengthCm   *float64
	MaxWidthCm    *float64
	MaxHeightCm   *float64
	BusinessID    *uuid.UUID
	CreatedFrom   *time.Time
	CreatedTo     *time.Time

	// Offers whose pickup window closes before this instant are excluded.
	PickupWindowOpenAt *time.Time
	// Offers whose delivery window closes before this instant are excluded.
	DeliveryWindowOpenAt *time.Time

	// FetchCap bounds how many candidate rows the store may return.
	FetchCap int
}
