package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parceldrop/parceldrop-backend/internal/offers"
	"github.com/parceldrop/parceldrop-backend/pkg/enums"
)

type recordedNotify struct {
	userID    uuid.UUID
	eventType enums.OfferEventType
}

type stubNotifier struct {
	sent []recordedNotify
	err  error
}

func (s *stubNotifier) Notify(ctx context.Context, userID uuid.UUID, eventType enums.OfferEventType, payload any) error {
	s.sent = append(s.sent, recordedNotify{userID: userID, eventType: eventType})
	return s.err
}

func TestRiderActionNotifiesBusiness(t *testing.T) {
	notifier := &stubNotifier{}
	dispatcher, err := NewDispatcher(notifier, nil)
	require.NoError(t, err)

	businessID := uuid.New()
	riderID := uuid.New()
	dispatcher.HandleOfferEvent(context.Background(), offers.OfferEvent{
		Type:       enums.EventOfferAccepted,
		OfferID:    uuid.New(),
		BusinessID: businessID,
		AcceptedBy: &riderID,
		ActorID:    riderID,
		ActorRole:  enums.ActorRoleRider,
	})

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, businessID, notifier.sent[0].userID)
	assert.Equal(t, enums.EventOfferAccepted, notifier.sent[0].eventType)
}

func TestBusinessActionNotifiesAssignedRider(t *testing.T) {
	notifier := &stubNotifier{}
	dispatcher, err := NewDispatcher(notifier, nil)
	require.NoError(t, err)

	businessID := uuid.New()
	riderID := uuid.New()
	dispatcher.HandleOfferEvent(context.Background(), offers.OfferEvent{
		Type:       enums.EventOfferCancelled,
		OfferID:    uuid.New(),
		BusinessID: businessID,
		AcceptedBy: &riderID,
		ActorID:    businessID,
		ActorRole:  enums.ActorRoleBusiness,
	})

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, riderID, notifier.sent[0].userID)
}

func TestUnassignedBusinessActionNotifiesNobody(t *testing.T) {
	notifier := &stubNotifier{}
	dispatcher, err := NewDispatcher(notifier, nil)
	require.NoError(t, err)

	businessID := uuid.New()
	dispatcher.HandleOfferEvent(context.Background(), offers.OfferEvent{
		Type:       enums.EventOfferCreated,
		OfferID:    uuid.New(),
		BusinessID: businessID,
		ActorID:    businessID,
		ActorRole:  enums.ActorRoleBusiness,
	})

	assert.Empty(t, notifier.sent)
}

func TestNotifierFailureDoesNotPanicOrPropagate(t *testing.T) {
	notifier := &stubNotifier{err: errors.New("broker down")}
	dispatcher, err := NewDispatcher(notifier, nil)
	require.NoError(t, err)

	riderID := uuid.New()
	dispatcher.HandleOfferEvent(context.Background(), offers.OfferEvent{
		Type:       enums.EventOfferPickedUp,
		OfferID:    uuid.New(),
		BusinessID: uuid.New(),
		AcceptedBy: &riderID,
		ActorID:    riderID,
		ActorRole:  enums.ActorRoleRider,
	})

	require.Len(t, notifier.sent, 1)
}
