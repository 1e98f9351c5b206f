package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/parceldrop/parceldrop-backend/internal/matching"
	"github.com/parceldrop/parceldrop-backend/internal/offers"
	"github.com/parceldrop/parceldrop-backend/pkg/db/models"
	"github.com/parceldrop/parceldrop-backend/pkg/enums"
	"github.com/parceldrop/parceldrop-backend/pkg/pagination"
	"github.com/parceldrop/parceldrop-backend/pkg/types"
)

// Service is the single entry point the transport layer talks to. It composes
// the offer lifecycle, the matcher, and the cached read views; controllers
// never reach around it to the underlying services.
type Service interface {
	CreateOffer(ctx context.Context, input offers.CreateOfferInput) (*models.Offer, error)
	SearchNearby(ctx context.Context, params matching.SearchParams) (*matching.SearchResult, error)
	AcceptOffer(ctx context.Context, offerID, riderID uuid.UUID) (*models.Offer, error)
	AdvanceStatus(ctx context.Context, input offers.TransitionInput) (*models.Offer, error)
	CancelOffer(ctx context.Context, offerID, actorID uuid.UUID, role enums.ActorRole, reason *string) (*models.Offer, error)
	GetStatusHistory(ctx context.Context, offerID, actorID uuid.UUID, role enums.ActorRole) (types.StatusHistory, error)
	BusinessOffers(ctx context.Context, businessID uuid.UUID, params pagination.Params, filters offers.BusinessOfferFilters) (*offers.OfferList, error)
	RiderDeliveries(ctx context.Context, riderID uuid.UUID) ([]models.Offer, error)
}

// viewCache is the read-view surface of the cache layer. Nil-able: without a
// cache every read goes straight to the store.
type viewCache interface {
	NearbyOffers(ctx context.Context, params matching.SearchParams, load func(context.Context) (*matching.SearchResult, error)) (*matching.SearchResult, error)
	BusinessOffers(ctx context.Context, businessID uuid.UUID, params pagination.Params, filters offers.BusinessOfferFilters, load func(context.Context) (*offers.OfferList, error)) (*offers.OfferList, error)
	RiderDeliveries(ctx context.Context, riderID uuid.UUID, load func(context.Context) ([]models.Offer, error)) ([]models.Offer, error)
}

type service struct {
	offers  offers.Service
	matcher matching.Service
	cache   viewCache
}

// ServiceParams bundles the collaborators behind the facade.
type ServiceParams struct {
	Offers  offers.Service
	Matcher matching.Service
	Cache   viewCache
}

// NewService wires the dispatch facade.
func NewService(params ServiceParams) (Service, error) {
	if params.Offers == nil {
		return nil, fmt.Errorf("offers service required")
	}
	if params.Matcher == nil {
		return nil, fmt.Errorf("matching service required")
	}
	return &service{
		offers:  params.Offers,
		matcher: params.Matcher,
		cache:   params.Cache,
	}, nil
}

func (s *service) CreateOffer(ctx context.Context, input offers.CreateOfferInput) (*models.Offer, error) {
	return s.offers.Create(ctx, input)
}

func (s *service) SearchNearby(ctx context.Context, params matching.SearchParams) (*matching.SearchResult, error) {
	load := func(ctx context.Context) (*matching.SearchResult, error) {
		return s.matcher.SearchNearby(ctx, params)
	}
	if s.cache == nil {
		return load(ctx)
	}
	return s.cache.NearbyOffers(ctx, params, load)
}

func (s *service) AcceptOffer(ctx context.Context, offerID, riderID uuid.UUID) (*models.Offer, error) {
	return s.offers.Claim(ctx, offers.ClaimInput{OfferID: offerID, RiderID: riderID})
}

func (s *service) AdvanceStatus(ctx context.Context, input offers.TransitionInput) (*models.Offer, error) {
	return s.offers.Advance(ctx, input)
}

func (s *service) CancelOffer(ctx context.Context, offerID, actorID uuid.UUID, role enums.ActorRole, reason *string) (*models.Offer, error) {
	return s.offers.Cancel(ctx, offerID, actorID, role, reason)
}

func (s *service) GetStatusHistory(ctx context.Context, offerID, actorID uuid.UUID, role enums.ActorRole) (types.StatusHistory, error) {
	return s.offers.GetHistory(ctx, offerID, actorID, role)
}

func (s *service) BusinessOffers(ctx context.Context, businessID uuid.UUID, params pagination.Params, filters offers.BusinessOfferFilters) (*offers.OfferList, error) {
	load := func(ctx context.Context) (*offers.OfferList, error) {
		return s.offers.ListByBusiness(ctx, businessID, params, filters)
	}
	if s.cache == nil {
		return load(ctx)
	}
	return s.cache.BusinessOffers(ctx, businessID, params, filters, load)
}

func (s *service) RiderDeliveries(ctx context.Context, riderID uuid.UUID) ([]models.Offer, error) {
	load := func(ctx context.Context) ([]models.Offer, error) {
		return s.offers.ListActiveByRider(ctx, riderID)
	}
	if s.cache == nil {
		return load(ctx)
	}
	return s.cache.RiderDeliveries(ctx, riderID, load)
}
