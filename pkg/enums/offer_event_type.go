package enums

// OfferEventType names the mutation events the dispatch engine emits.
type OfferEventType string

const (
	EventOfferCreated   OfferEventType = "offer.created"
	EventOfferAccepted  OfferEventType = "offer.accepted"
	EventOfferPickedUp  OfferEventType = "offer.picked_up"
	EventOfferInTransit OfferEventType = "offer.in_transit"
	EventOfferDelivered OfferEventType = "offer.delivered"
	EventOfferCompleted OfferEventType = "offer.completed"
	EventOfferCancelled OfferEventType = "offer.cancelled"
)

// String implements fmt.Stringer.
func (e OfferEventType) String() string {
	return string(e)
}

// EventForStatus maps an entered lifecycle state to its mutation event.
func EventForStatus(status OfferStatus) OfferEventType {
	switch status {
	case OfferStatusAccepted:
		return EventOfferAccepted
	case OfferStatusPickedUp:
		return EventOfferPickedUp
	case OfferStatusInTransit:
		return EventOfferInTransit
	case OfferStatusDelivered:
		return EventOfferDelivered
	case OfferStatusCompleted:
		return EventOfferCompleted
	case OfferStatusCancelled:
		return EventOfferCancelled
	default:
		return EventOfferCreated
	}
}
