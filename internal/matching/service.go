package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/parceldrop/parceldrop-backend/internal/offers"
	"github.com/parceldrop/parceldrop-backend/pkg/config"
	"github.com/parceldrop/parceldrop-backend/pkg/db/models"
	"github.com/parceldrop/parceldrop-backend/pkg/enums"
	pkgerrors "github.com/parceldrop/parceldrop-backend/pkg/errors"
	"github.com/parceldrop/parceldrop-backend/pkg/geo"
	"github.com/parceldrop/parceldrop-backend/pkg/logger"
	"github.com/parceldrop/parceldrop-backend/pkg/metrics"
	"github.com/parceldrop/parceldrop-backend/pkg/pagination"
)

// Service ranks open offers around a rider's position.
type Service interface {
	SearchNearby(ctx context.Context, params SearchParams) (*SearchResult, error)
}

type service struct {
	repo    offers.Repository
	cfg     config.SearchConfig
	logg    *logger.Logger
	metrics *metrics.DispatchMetrics
	now     func() time.Time
}

// NewService builds the matcher over the offers store.
func NewService(repo offers.Repository, cfg config.SearchConfig, logg *logger.Logger, dispatchMetrics *metrics.DispatchMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("offers repository required")
	}
	return &service{
		repo:    repo,
		cfg:     cfg,
		logg:    logg,
		metrics: dispatchMetrics,
		now:     time.Now,
	}, nil
}

func (s *service) SearchNearby(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if err := params.Location.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidLocation, err, "search location invalid")
	}

	params = s.normalize(params)
	if params.MinDistanceM > params.MaxDistanceM {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min distance exceeds max distance")
	}

	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
	}

	started := s.now()

	// Coarse bounding box into SQL, exact spherical band in process. The box
	// over-selects; it never under-selects.
	box := geo.BoxAround(params.Location, params.MaxDistanceM)
	candidates, err := s.repo.ListOpen(ctx, s.storeQuery(params, box))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "nearby search timed out")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load candidate offers")
	}

	if s.cfg.CandidateFetchCap > 0 && len(candidates) >= s.cfg.CandidateFetchCap && s.logg != nil {
		s.logg.Warn(ctx, "nearby search hit the candidate fetch cap, totals may under-report")
	}

	matched := s.refine(params, candidates)
	sortMatches(matched, params.SortKey, params.SortDir)

	total := int64(len(matched))
	page := paginate(matched, params.Page, params.Limit)

	s.metrics.ObserveSearch("store", s.now().Sub(started))

	return &SearchResult{
		Offers:     page,
		Total:      total,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: pagination.TotalPages(total, params.Limit),
	}, nil
}

func (s *service) normalize(params SearchParams) SearchParams {
	if params.MaxDistanceM <= 0 {
		params.MaxDistanceM = s.cfg.DefaultRadiusM
	}
	if s.cfg.MaxRadiusM > 0 && params.MaxDistanceM > s.cfg.MaxRadiusM {
		params.MaxDistanceM = s.cfg.MaxRadiusM
	}
	if params.MinDistanceM < 0 {
		params.MinDistanceM = 0
	}
	if params.SortKey == "" {
		params.SortKey = SortDistance
	}
	if params.SortDir == "" {
		params.SortDir = SortAsc
	}
	normalized := pagination.Params{Page: params.Page, Limit: params.Limit}.Normalize()
	params.Page = normalized.Page
	params.Limit = normalized.Limit
	return params
}

func (s *service) storeQuery(params SearchParams, box geo.BoundingBox) offers.OpenOfferQuery {
	query := offers.OpenOfferQuery{
		MinLng:        box.MinLng,
		MaxLng:        box.MaxLng,
		MinLat:        box.MinLat,
		MaxLat:        box.MaxLat,
		MinAmount:     params.Filters.MinAmount,
		MaxAmount:     params.Filters.MaxAmount,
		PaymentMethod: params.Filters.PaymentMethod,
		Fragile:       params.Filters.Fragile,
		MaxWeightKg:   params.Filters.MaxWeightKg,
		MaxLengthCm:   params.Filters.MaxLengthCm,
		MaxWidthCm:    params.Filters.MaxWidthCm,
		MaxHeightCm:   params.Filters.MaxHeightCm,
		BusinessID:    params.Filters.BusinessID,
		CreatedFrom:   params.Filters.CreatedFrom,
		CreatedTo:     params.Filters.CreatedTo,
		FetchCap:      s.cfg.CandidateFetchCap,
	}
	if params.Filters.WindowsOpenAt != nil {
		query.PickupWindowOpenAt = params.Filters.WindowsOpenAt
		query.DeliveryWindowOpenAt = params.Filters.WindowsOpenAt
	}
	return query
}

// refine applies the exact distance band and the vehicle capacity constraint.
func (s *service) refine(params SearchParams, candidates []models.Offer) []MatchedOffer {
	var capacity *enums.VehicleCapacity
	if params.Filters.VehicleType != nil {
		if c, ok := params.Filters.VehicleType.Capacity(); ok {
			capacity = &c
		}
	}

	matched := make([]MatchedOffer, 0, len(candidates))
	for _, offer := range candidates {
		distance := geo.Distance(params.Location, offer.PickupCoordinates())
		if distance < params.MinDistanceM || distance > params.MaxDistanceM {
			continue
		}
		if capacity != nil {
			if offer.WeightKg > capacity.MaxWeightKg {
				continue
			}
			// Absent dimensions contribute zero volume and never exclude.
			if offer.VolumeCm3() > capacity.MaxVolumeCm3 {
				continue
			}
		}
		matched = append(matched, MatchedOffer{Offer: offer, DistanceM: distance})
	}
	return matched
}

func sortMatches(matched []MatchedOffer, key SortKey, dir SortDirection) {
	less := lessFunc(key)
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if cmp := less(a, b); cmp != 0 {
			if dir == SortDesc {
				return cmp > 0
			}
			return cmp < 0
		}
		// Deterministic paging across equal keys.
		return a.ID.String() < b.ID.String()
	})
}

// lessFunc returns a three-way comparator for the sort key.
func lessFunc(key SortKey) func(a, b MatchedOffer) int {
	switch key {
	case SortAmount:
		return func(a, b MatchedOffer) int {
			return a.PaymentAmount.Cmp(b.PaymentAmount)
		}
	case SortCreated:
		return func(a, b MatchedOffer) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	case SortWeight:
		return func(a, b MatchedOffer) int {
			return compareFloat(a.WeightKg, b.WeightKg)
		}
	case SortDeadline:
		return func(a, b MatchedOffer) int {
			return compareDeadline(a.DeliveryWindowEnd, b.DeliveryWindowEnd)
		}
	case SortDuration:
		return func(a, b MatchedOffer) int {
			return compareFloat(a.EstimatedDurationS, b.EstimatedDurationS)
		}
	default:
		return func(a, b MatchedOffer) int {
			return compareFloat(a.DistanceM, b.DistanceM)
		}
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareDeadline treats a missing delivery deadline as the largest value,
// so unconstrained offers rank last under the default ascending order.
func compareDeadline(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return a.Compare(*b)
	}
}

func paginate(matched []MatchedOffer, page, limit int) []MatchedOffer {
	offset := pagination.Params{Page: page, Limit: limit}.Offset()
	if offset >= len(matched) {
		return []MatchedOffer{}
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end]
}
