package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/parceldrop/parceldrop-backend/internal/offers"
	"github.com/parceldrop/parceldrop-backend/pkg/enums"
	"github.com/parceldrop/parceldrop-backend/pkg/logger"
	"github.com/parceldrop/parceldrop-backend/pkg/pubsub"
)

// Notifier delivers one best-effort notification to a user. Implementations
// must not block the caller on delivery.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, eventType enums.OfferEventType, payload any) error
}

// PubSubNotifier publishes notification events for the delivery workers.
type PubSubNotifier struct {
	publisher *gcppubsub.Publisher
	logg      *logger.Logger
}

// NewPubSubNotifier wires the configured notification topic.
func NewPubSubNotifier(client *pubsub.Client, logg *logger.Logger) (*PubSubNotifier, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client required")
	}
	publisher := client.NotificationPublisher()
	if publisher == nil {
		return nil, fmt.Errorf("notification topic not configured")
	}
	return &PubSubNotifier{publisher: publisher, logg: logg}, nil
}

func (n *PubSubNotifier) Notify(ctx context.Context, userID uuid.UUID, eventType enums.OfferEventType, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode notification payload: %w", err)
	}

	result := n.publisher.Publish(ctx, &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"user_id":    userID.String(),
			"event_type": eventType.String(),
		},
	})

	// Resolve the publish off the request path; delivery is best-effort.
	go func() {
		if _, err := result.Get(context.WithoutCancel(ctx)); err != nil && n.logg != nil {
			n.logg.Error(ctx, "notification publish failed", err)
		}
	}()
	return nil
}

// NoopNotifier drops every notification. Used when no broker is configured.
type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, userID uuid.UUID, eventType enums.OfferEventType, payload any) error {
	return nil
}

// Dispatcher fans committed offer mutations out to the counterparty. It is an
// offers sink: failures are logged, never propagated, and never roll back the
// transition that produced them.
type Dispatcher struct {
	notifier Notifier
	logg     *logger.Logger
}

// NewDispatcher builds the counterparty notification sink.
func NewDispatcher(notifier Notifier, logg *logger.Logger) (*Dispatcher, error) {
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	return &Dispatcher{notifier: notifier, logg: logg}, nil
}

func (d *Dispatcher) HandleOfferEvent(ctx context.Context, event offers.OfferEvent) {
	recipient, ok := counterparty(event)
	if !ok {
		return
	}
	if err := d.notifier.Notify(ctx, recipient, event.Type, event); err != nil && d.logg != nil {
		d.logg.Error(d.logg.WithOfferID(ctx, event.OfferID.String()), "notify counterparty failed", err)
	}
}

// counterparty resolves who should hear about the mutation: rider-driven
// changes go to the business, business-driven changes go to the assigned
// rider. Offers without an assigned rider have no counterparty to tell.
func counterparty(event offers.OfferEvent) (uuid.UUID, bool) {
	switch event.ActorRole {
	case enums.ActorRoleRider:
		return event.BusinessID, true
	case enums.ActorRoleBusiness:
		if event.AcceptedBy != nil {
			return *event.AcceptedBy, true
		}
	}
	return uuid.Nil, false
}
