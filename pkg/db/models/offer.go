package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/parceldrop/parceldrop-backend/pkg/enums"
	"github.com/parceldrop/parceldrop-backend/pkg/types"
)

// Offer is the central dispatch entity: a business's delivery request.
// History is embedded on the row so the claim condition and the history
// append commit in one conditional update.
type Offer struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BusinessID uuid.UUID  `gorm:"column:business_id;type:uuid;not null;index" json:"business_id"`
	AcceptedBy *uuid.UUID `gorm:"column:accepted_by;type:uuid;index" json:"accepted_by,omitempty"`

	Status enums.OfferStatus `gorm:"column:status;type:text;not null;default:'open';index" json:"status"`

	PickupAddress      string  `gorm:"column:pickup_address;not null" json:"pickup_address"`
	PickupContactName  string  `gorm:"column:pickup_contact_name" json:"pickup_contact_name"`
	PickupContactPhone string  `gorm:"column:pickup_contact_phone" json:"pickup_contact_phone"`
	PickupLng          float64 `gorm:"column:pickup_lng;not null;index" json:"pickup_lng"`
	PickupLat          float64 `gorm:"column:pickup_lat;not null;index" json:"pickup_lat"`

	DeliveryAddress      string  `gorm:"column:delivery_address;not null" json:"delivery_address"`
	DeliveryContactName  string  `gorm:"column:delivery_contact_name" json:"delivery_contact_name"`
	DeliveryContactPhone string  `gorm:"column:delivery_contact_phone" json:"delivery_contact_phone"`
	DeliveryLng          float64 `gorm:"column:delivery_lng;not null" json:"delivery_lng"`
	DeliveryLat          float64 `gorm:"column:delivery_lat;not null" json:"delivery_lat"`

	WeightKg         float64                `gorm:"column:weight_kg;not null;default:0" json:"weight_kg"`
	LengthCm         float64                `gorm:"column:length_cm;not null;default:0" json:"length_cm"`
	WidthCm          float64                `gorm:"column:width_cm;not null;default:0" json:"width_cm"`
	HeightCm         float64                `gorm:"column:height_cm;not null;default:0" json:"height_cm"`
	Fragile          bool                   `gorm:"column:fragile;not null;default:false" json:"fragile"`
	TemperatureClass enums.TemperatureClass `gorm:"column:temperature_class;type:text;not null;default:'ambient'" json:"temperature_class"`

	PaymentAmount decimal.Decimal     `gorm:"column:payment_amount;type:numeric(12,2);not null" json:"payment_amount"`
	Currency      enums.Currency      `gorm:"column:currency;type:text;not null;default:'USD'" json:"currency"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'card'" json:"payment_method"`

	PickupWindowStart   *time.Time `gorm:"column:pickup_window_start" json:"pickup_window_start,omitempty"`
	PickupWindowEnd     *time.Time `gorm:"column:pickup_window_end" json:"pickup_window_end,omitempty"`
	DeliveryWindowStart *time.Time `gorm:"column:delivery_window_start" json:"delivery_window_start,omitempty"`
	DeliveryWindowEnd   *time.Time `gorm:"column:delivery_window_end" json:"delivery_window_end,omitempty"`

	EstimatedDistanceM float64 `gorm:"column:estimated_distance_m;not null;default:0" json:"estimated_distance_m"`
	EstimatedDurationS float64 `gorm:"column:estimated_duration_s;not null;default:0" json:"estimated_duration_s"`

	StatusHistory types.StatusHistory `gorm:"column:status_history;type:jsonb;serializer:json" json:"status_history"`

	AcceptedAt  *time.Time `gorm:"column:accepted_at" json:"accepted_at,omitempty"`
	PickedUpAt  *time.Time `gorm:"column:picked_up_at" json:"picked_up_at,omitempty"`
	InTransitAt *time.Time `gorm:"column:in_transit_at" json:"in_transit_at,omitempty"`
	DeliveredAt *time.Time `gorm:"column:delivered_at" json:"delivered_at,omitempty"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CancelledAt *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// PickupCoordinates returns the pickup point as a coordinate pair.
func (o *Offer) PickupCoordinates() types.Coordinates {
	return types.Coordinates{Lng: o.PickupLng, Lat: o.PickupLat}
}

// DeliveryCoordinates returns the drop-off point as a coordinate pair.
func (o *Offer) DeliveryCoordinates() types.Coordinates {
	return types.Coordinates{Lng: o.DeliveryLng, Lat: o.DeliveryLat}
}

// VolumeCm3 computes the package volume; absent dimensions count as zero.
func (o *Offer) VolumeCm3() float64 {
	return o.LengthCm * o.WidthCm * o.HeightCm
}

// HasDimensions reports whether any dimension was supplied at all.
func (o *Offer) HasDimensions() bool {
	return o.LengthCm != 0 || o.WidthCm != 0 || o.HeightCm != 0
}
