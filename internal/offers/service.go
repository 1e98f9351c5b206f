package offers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/parceldrop/parceldrop-backend/pkg/config"
	"github.com/parceldrop/parceldrop-backend/pkg/db/models"
	"github.com/parceldrop/parceldrop-backend/pkg/enums"
	pkgerrors "github.com/parceldrop/parceldrop-backend/pkg/errors"
	"github.com/parceldrop/parceldrop-backend/pkg/geo"
	"github.com/parceldrop/parceldrop-backend/pkg/logger"
	"github.com/parceldrop/parceldrop-backend/pkg/metrics"
	"github.com/parceldrop/parceldrop-backend/pkg/pagination"
	"github.com/parceldrop/parceldrop-backend/pkg/types"
)

// Service owns the offer lifecycle: creation, the atomic claim, and every
// guarded status transition.
type Service interface {
	Create(ctx context.Context, input CreateOfferInput) (*models.Offer, error)
	Claim(ctx context.Context, input ClaimInput) (*models.Offer, error)
	Advance(ctx context.Context, input TransitionInput) (*models.Offer, error)
	Cancel(ctx context.Context, offerID, actorID uuid.UUID, role enums.ActorRole, reason *string) (*models.Offer, error)
	GetHistory(ctx context.Context, offerID, actorID uuid.UUID, role enums.ActorRole) (types.StatusHistory, error)
	ListByBusiness(ctx context.Context, businessID uuid.UUID, params pagination.Params, filters BusinessOfferFilters) (*OfferList, error)
	ListActiveByRider(ctx context.Context, riderID uuid.UUID) ([]models.Offer, error)
}

type service struct {
	repo     Repository
	geocoder geo.Geocoder
	sinks    []Sink
	logg     *logger.Logger
	metrics  *metrics.DispatchMetrics
	dispatch config.DispatchConfig
	now      func() time.Time
}

// NewService builds the offer lifecycle service. The geocoder may be nil when
// callers always supply coordinates; sinks receive events after each commit.
func NewService(
	repo Repository,
	geocoder geo.Geocoder,
	sinks []Sink,
	logg *logger.Logger,
	dispatchMetrics *metrics.DispatchMetrics,
	dispatch config.DispatchConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("offers repository required")
	}
	return &service{
		repo:     repo,
		geocoder: geocoder,
		sinks:    sinks,
		logg:     logg,
		metrics:  dispatchMetrics,
		dispatch: dispatch,
		now:      time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOfferInput) (*models.Offer, error) {
	if input.BusinessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "business identity missing")
	}
	if input.PaymentAmount.IsNegative() || input.PaymentAmount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if input.WeightKg < 0 || input.LengthCm < 0 || input.WidthCm < 0 || input.HeightCm < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package measurements cannot be negative")
	}

	pickup, err := s.resolveEndpoint(ctx, input.Pickup, "pickup")
	if err != nil {
		return nil, err
	}
	delivery, err := s.resolveEndpoint(ctx, input.Delivery, "delivery")
	if err != nil {
		return nil, err
	}

	temperature := input.TemperatureClass
	if temperature == "" {
		temperature = enums.TemperatureClassAmbient
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyUSD
	}
	method := input.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodCard
	}
	if !temperature.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid temperature class")
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	distanceM := geo.Distance(pickup, delivery)

	offer := &models.Offer{
		BusinessID: input.BusinessID,
		Status:     enums.OfferStatusOpen,

		PickupAddress:      input.Pickup.Address,
		PickupContactName:  input.Pickup.ContactName,
		PickupContactPhone: input.Pickup.ContactPhone,
		PickupLng:          pickup.Lng,
		PickupLat:          pickup.Lat,

		DeliveryAddress:      input.Delivery.Address,
		DeliveryContactName:  input.Delivery.ContactName,
		DeliveryContactPhone: input.Delivery.ContactPhone,
		DeliveryLng:          delivery.Lng,
		DeliveryLat:          delivery.Lat,

		WeightKg:         input.WeightKg,
		LengthCm:         input.LengthCm,
		WidthCm:          input.WidthCm,
		HeightCm:         input.HeightCm,
		Fragile:          input.Fragile,
		TemperatureClass: temperature,

		PaymentAmount: input.PaymentAmount,
		Currency:      currency,
		PaymentMethod: method,

		PickupWindowStart:   input.PickupWindowStart,
		PickupWindowEnd:     input.PickupWindowEnd,
		DeliveryWindowStart: input.DeliveryWindowStart,
		DeliveryWindowEnd:   input.DeliveryWindowEnd,

		EstimatedDistanceM: distanceM,
		EstimatedDurationS: geo.EstimateDurationSeconds(distanceM, s.dispatch.MeanSpeedMps),

		StatusHistory: types.StatusHistory{},
	}

	created, err := s.repo.Create(ctx, offer)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist offer")
	}

	s.emit(ctx, eventFromOffer(enums.EventOfferCreated, created, input.BusinessID, enums.ActorRoleBusiness, s.now()))
	return created, nil
}

func (s *service) resolveEndpoint(ctx context.Context, endpoint EndpointInput, side string) (types.Coordinates, error) {
	if endpoint.Coordinates != nil {
		if err := endpoint.Coordinates.Validate(); err != nil {
			return types.Coordinates{}, pkgerrors.Wrap(pkgerrors.CodeInvalidLocation, err, side+" coordinates invalid")
		}
		return *endpoint.Coordinates, nil
	}
	if endpoint.Address == "" {
		return types.Coordinates{}, pkgerrors.New(pkgerrors.CodeValidation, side+" address or coordinates required")
	}
	if s.geocoder == nil {
		return types.Coordinates{}, pkgerrors.New(pkgerrors.CodeGeocodingFailed, "geocoder not configured")
	}
	coords, err := s.geocoder.Geocode(ctx, endpoint.Address)
	if err != nil {
		return types.Coordinates{}, err
	}
	return coords, nil
}

func (s *service) Claim(ctx context.Context, input ClaimInput) (*models.Offer, error) {
	if input.OfferID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer id required")
	}
	if input.RiderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "rider identity missing")
	}

	offer, err := s.findOffer(ctx, input.OfferID)
	if err != nil {
		return nil, err
	}

	if offer.Status != enums.OfferStatusOpen {
		return nil, s.claimRejection(offer)
	}

	now := s.now()
	entry := types.HistoryEntry{
		Status:    enums.OfferStatusAccepted.String(),
		ActorID:   input.RiderID,
		ActorRole: enums.ActorRoleRider.String(),
		Timestamp: now,
	}
	historyJSON, err := marshalHistory(append(offer.StatusHistory, entry))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode history")
	}

	// The history computed from the read above is safe to write here: history
	// only changes together with status, and the condition pins the status.
	claimed, err := s.repo.Claim(ctx, offer, input.RiderID, map[string]any{
		"status":         enums.OfferStatusAccepted,
		"accepted_by":    input.RiderID,
		"accepted_at":    now,
		"status_history": historyJSON,
		"updated_at":     now,
	})
	if err != nil {
		s.metrics.IncClaimAttempt("error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim offer")
	}
	if !claimed {
		s.metrics.IncClaimAttempt("lost")
		fresh, err := s.findOffer(ctx, input.OfferID)
		if err != nil {
			return nil, err
		}
		return nil, s.claimRejection(fresh)
	}

	s.metrics.IncClaimAttempt("won")
	s.metrics.IncTransition(enums.OfferStatusAccepted.String())

	riderID := input.RiderID
	offer.Status = enums.OfferStatusAccepted
	offer.AcceptedBy = &riderID
	offer.AcceptedAt = &now
	offer.StatusHistory = append(offer.StatusHistory, entry)
	offer.UpdatedAt = now

	s.emit(ctx, eventFromOffer(enums.EventOfferAccepted, offer, input.RiderID, enums.ActorRoleRider, now))
	return offer, nil
}

// claimRejection distinguishes a lost race from a structurally impossible
// accept. A claimed offer yields the conflict error the losing rider can act
// on; anything else reports the transition as invalid with fresh state.
func (s *service) claimRejection(offer *models.Offer) error {
	if offer.AcceptedBy != nil {
		return pkgerrors.New(pkgerrors.CodeAlreadyClaimed, "offer already claimed").
			WithDetails(map[string]any{"current_status": offer.Status.String()})
	}
	return invalidTransition(offer.Status, "offer can no longer be accepted")
}

func (s *service) Advance(ctx context.Context, input TransitionInput) (*models.Offer, error) {
	if input.OfferID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown target status")
	}
	if input.Location != nil {
		if err := input.Location.Validate(); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidLocation, err, "transition location invalid")
		}
	}

	// Accepting is the claim path; it carries the stronger conflict semantics.
	if input.Target == enums.OfferStatusAccepted {
		if input.ActorRole != enums.ActorRoleRider {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only riders may accept offers")
		}
		return s.Claim(ctx, ClaimInput{OfferID: input.OfferID, RiderID: input.ActorID})
	}

	offer, err := s.findOffer(ctx, input.OfferID)
	if err != nil {
		return nil, err
	}

	rule, ok := findRule(offer.Status, input.Target)
	if !ok {
		return nil, invalidTransition(offer.Status, fmt.Sprintf("cannot move from %s to %s", offer.Status, input.Target))
	}
	if err := authorizeTransition(rule, offer, input.ActorID, input.ActorRole); err != nil {
		return nil, err
	}

	now := s.now()
	entry := types.HistoryEntry{
		Status:    input.Target.String(),
		ActorID:   input.ActorID,
		ActorRole: input.ActorRole.String(),
		Timestamp: now,
		Notes:     input.Notes,
		Location:  input.Location,
	}
	historyJSON, err := marshalHistory(append(offer.StatusHistory, entry))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode history")
	}

	updates := map[string]any{
		"status":         input.Target,
		"status_history": historyJSON,
		"updated_at":     now,
	}
	if column := timestampColumn(input.Target); column != "" {
		updates[column] = now
	}

	applied, err := s.repo.ApplyTransition(ctx, offer.ID, offer.Status, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply transition")
	}
	if !applied {
		fresh, err := s.findOffer(ctx, input.OfferID)
		if err != nil {
			return nil, err
		}
		return nil, invalidTransition(fresh.Status, "offer changed concurrently")
	}

	s.metrics.IncTransition(input.Target.String())

	offer.Status = input.Target
	offer.StatusHistory = append(offer.StatusHistory, entry)
	offer.UpdatedAt = now
	setEnteredTimestamp(offer, input.Target, now)

	s.emit(ctx, eventFromOffer(enums.EventForStatus(input.Target), offer, input.ActorID, input.ActorRole, now))
	return offer, nil
}

func (s *service) Cancel(ctx context.Context, offerID, actorID uuid.UUID, role enums.ActorRole, reason *string) (*models.Offer, error) {
	return s.Advance(ctx, TransitionInput{
		OfferID:   offerID,
		ActorID:   actorID,
		ActorRole: role,
		Target:    enums.OfferStatusCancelled,
		Notes:     reason,
	})
}

func (s *service) GetHistory(ctx context.Context, offerID, actorID uuid.UUID, role enums.ActorRole) (types.StatusHistory, error) {
	offer, err := s.findOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	isOwner := role == enums.ActorRoleBusiness && offer.BusinessID == actorID
	isAssigned := role == enums.ActorRoleRider && offer.AcceptedBy != nil && *offer.AcceptedBy == actorID
	if !isOwner && !isAssigned {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "history restricted to the owner and assigned rider")
	}
	return offer.StatusHistory, nil
}

func (s *service) ListByBusiness(ctx context.Context, businessID uuid.UUID, params pagination.Params, filters BusinessOfferFilters) (*OfferList, error) {
	if businessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "business identity missing")
	}
	list, err := s.repo.ListByBusiness(ctx, businessID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list business offers")
	}
	return list, nil
}

func (s *service) ListActiveByRider(ctx context.Context, riderID uuid.UUID) ([]models.Offer, error) {
	if riderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "rider identity missing")
	}
	offers, err := s.repo.ListActiveByRider(ctx, riderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rider deliveries")
	}
	return offers, nil
}

func (s *service) findOffer(ctx context.Context, offerID uuid.UUID) (*models.Offer, error) {
	offer, err := s.repo.FindByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
	}
	return offer, nil
}

func (s *service) emit(ctx context.Context, event OfferEvent) {
	for _, sink := range s.sinks {
		sink.HandleOfferEvent(ctx, event)
	}
}

func timestampColumn(status enums.OfferStatus) string {
	switch status {
	case enums.OfferStatusAccepted:
		return "accepted_at"
	case enums.OfferStatusPickedUp:
		return "picked_up_at"
	case enums.OfferStatusInTransit:
		return "in_transit_at"
	case enums.OfferStatusDelivered:
		return "delivered_at"
	case enums.OfferStatusCompleted:
		return "completed_at"
	case enums.OfferStatusCancelled:
		return "cancelled_at"
	default:
		return ""
	}
}

func setEnteredTimestamp(offer *models.Offer, status enums.OfferStatus, now time.Time) {
	switch status {
	case enums.OfferStatusAccepted:
		offer.AcceptedAt = &now
	case enums.OfferStatusPickedUp:
		offer.PickedUpAt = &now
	case enums.OfferStatusInTransit:
		offer.InTransitAt = &now
	case enums.OfferStatusDelivered:
		offer.DeliveredAt = &now
	case enums.OfferStatusCompleted:
		offer.CompletedAt = &now
	case enums.OfferStatusCancelled:
		offer.CancelledAt = &now
	}
}
