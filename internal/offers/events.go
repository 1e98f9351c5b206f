package offers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/parceldrop/parceldrop-backend/pkg/db/models"
	"github.com/parceldrop/parceldrop-backend/pkg/enums"
)

// OfferEvent describes one committed offer mutation. Emitted after the store
// write succeeds, never before.
type OfferEvent struct {
	Type       enums.OfferEventType `json:"type"`
	OfferID    uuid.UUID            `json:"offer_id"`
	BusinessID uuid.UUID            `json:"business_id"`
	AcceptedBy *uuid.UUID           `json:"accepted_by,omitempty"`
	Status     enums.OfferStatus    `json:"status"`
	ActorID    uuid.UUID            `json:"actor_id"`
	ActorRole  enums.ActorRole      `json:"actor_role"`
	OccurredAt time.Time            `json:"occurred_at"`
}

// Sink consumes offer mutation events. Sinks must tolerate at-least-once
// delivery; a sink error never rolls back the mutation that produced it.
type Sink interface {
	HandleOfferEvent(ctx context.Context, event OfferEvent)
}

func eventFromOffer(eventType enums.OfferEventType, offer *models.Offer, actorID uuid.UUID, role enums.ActorRole, at time.Time) OfferEvent {
	return OfferEvent{
		Type:       eventType,
		OfferID:    offer.ID,
		BusinessID: offer.BusinessID,
		AcceptedBy: offer.AcceptedBy,
		Status:     offer.Status,
		ActorID:    actorID,
		ActorRole:  role,
		OccurredAt: at,
	}
}
