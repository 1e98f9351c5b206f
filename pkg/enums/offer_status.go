package enums

import "fmt"

// OfferStatus tracks the lifecycle of a delivery offer.
type OfferStatus string

const (
	OfferStatusOpen      OfferStatus = "open"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusPickedUp  OfferStatus = "picked_up"
	OfferStatusInTransit OfferStatus = "in_transit"
	OfferStatusDelivered OfferStatus = "delivered"
	OfferStatusCompleted OfferStatus = "completed"
	OfferStatusCancelled OfferStatus = "cancelled"
)

var validOfferStatuses = []OfferStatus{
	OfferStatusOpen,
	OfferStatusAccepted,
	OfferStatusPickedUp,
	OfferStatusInTransit,
	OfferStatusDelivered,
	OfferStatusCompleted,
	OfferStatusCancelled,
}

// String implements fmt.Stringer.
func (s OfferStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OfferStatus.
func (s OfferStatus) IsValid() bool {
	for _, candidate := range validOfferStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s OfferStatus) IsTerminal() bool {
	return s == OfferStatusCompleted || s == OfferStatusCancelled
}

// ParseOfferStatus converts raw input into an OfferStatus.
func ParseOfferStatus(value string) (OfferStatus, error) {
	for _, candidate := range validOfferStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid offer status %q", value)
}
