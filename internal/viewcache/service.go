package viewcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/parceldrop/parceldrop-backend/internal/matching"
	"github.com/parceldrop/parceldrop-backend/internal/offers"
	"github.com/parceldrop/parceldrop-backend/pkg/config"
	"github.com/parceldrop/parceldrop-backend/pkg/db/models"
	"github.com/parceldrop/parceldrop-backend/pkg/logger"
	"github.com/parceldrop/parceldrop-backend/pkg/metrics"
	"github.com/parceldrop/parceldrop-backend/pkg/pagination"
	"github.com/parceldrop/parceldrop-backend/pkg/redis"
)

// Service is the read-through cache over the derived offer views. The store
// stays the source of truth; every cache failure degrades to a store read and
// is logged, never surfaced to the caller.
type Service struct {
	redis   *redis.Client
	cfg     config.CacheConfig
	logg    *logger.Logger
	metrics *metrics.DispatchMetrics
}

// NewService builds the view cache.
func NewService(client *redis.Client, cfg config.CacheConfig, logg *logger.Logger, dispatchMetrics *metrics.DispatchMetrics) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &Service{
		redis:   client,
		cfg:     cfg,
		logg:    logg,
		metrics: dispatchMetrics,
	}, nil
}

// readThrough serves the cached snapshot when present, otherwise loads from
// the store and populates the cache best-effort.
func readThrough[T any](ctx context.Context, s *Service, view, key string, ttl time.Duration, load func(context.Context) (*T, error)) (*T, error) {
	raw, ok, err := s.redis.Get(ctx, key)
	if err != nil {
		s.metrics.IncCacheRequest(view, "error")
		s.warn(ctx, "cache read failed, falling back to store", err)
	} else if ok {
		var cached T
		if err := json.Unmarshal([]byte(raw), &cached); err != nil {
			s.metrics.IncCacheRequest(view, "error")
			s.warn(ctx, "cache entry corrupt, falling back to store", err)
		} else {
			s.metrics.IncCacheRequest(view, "hit")
			return &cached, nil
		}
	} else {
		s.metrics.IncCacheRequest(view, "miss")
	}

	loaded, err := load(ctx)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(loaded); err != nil {
		s.warn(ctx, "cache encode failed", err)
	} else if err := s.redis.Set(ctx, key, string(encoded), ttl); err != nil {
		s.warn(ctx, "cache write failed", err)
	}
	return loaded, nil
}

// NearbyOffers caches one canonicalized nearby search result page.
func (s *Service) NearbyOffers(ctx context.Context, params matching.SearchParams, load func(context.Context) (*matching.SearchResult, error)) (*matching.SearchResult, error) {
	key := s.redis.NearbySearchKey(params.Fingerprint(s.cfg.LocationDecimals))
	return readThrough(ctx, s, "nearby", key, s.cfg.NearbyTTL, load)
}

// BusinessOffers caches one page of a business's own offer listing.
func (s *Service) BusinessOffers(ctx context.Context, businessID uuid.UUID, params pagination.Params, filters offers.BusinessOfferFilters, load func(context.Context) (*offers.OfferList, error)) (*offers.OfferList, error) {
	key := s.redis.BusinessOffersKey(businessID.String(), listFingerprint(params, filters))
	return readThrough(ctx, s, "business_offers", key, s.cfg.ListTTL, load)
}

// RiderDeliveries caches a rider's active delivery list.
func (s *Service) RiderDeliveries(ctx context.Context, riderID uuid.UUID, load func(context.Context) ([]models.Offer, error)) ([]models.Offer, error) {
	key := s.redis.RiderDeliveriesKey(riderID.String())
	loaded, err := readThrough(ctx, s, "rider_deliveries", key, s.cfg.ListTTL, func(ctx context.Context) (*[]models.Offer, error) {
		list, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if list == nil {
			list = []models.Offer{}
		}
		return &list, nil
	})
	if err != nil {
		return nil, err
	}
	return *loaded, nil
}

// AuthUserByEmail caches the identity lookup used on every login.
func (s *Service) AuthUserByEmail(ctx context.Context, email string, load func(context.Context) (*models.User, error)) (*models.User, error) {
	key := s.redis.AuthEmailKey(email)
	return readThrough(ctx, s, "auth", key, s.cfg.AuthTTL, load)
}

// InvalidateAuthUser drops the cached identity after a profile change.
func (s *Service) InvalidateAuthUser(ctx context.Context, email string) {
	if err := s.redis.Del(ctx, s.redis.AuthEmailKey(email)); err != nil {
		s.warn(ctx, "auth cache invalidation failed", err)
	}
}

// HandleOfferEvent invalidates every view a committed offer mutation could
// have gone stale: the owner's listing pages, the assigned rider's delivery
// list, and the whole nearby-search keyspace.
func (s *Service) HandleOfferEvent(ctx context.Context, event offers.OfferEvent) {
	if event.AcceptedBy != nil {
		if err := s.redis.Del(ctx, s.redis.RiderDeliveriesKey(event.AcceptedBy.String())); err != nil {
			s.warn(ctx, "rider view invalidation failed", err)
		}
	}
	if _, err := s.redis.DeletePattern(ctx, s.redis.BusinessOffersPattern(event.BusinessID.String())); err != nil {
		s.warn(ctx, "business view invalidation failed", err)
	}
	if _, err := s.redis.DeletePattern(ctx, s.redis.NearbySearchPattern()); err != nil {
		s.warn(ctx, "nearby view invalidation failed", err)
	}
}

func listFingerprint(params pagination.Params, filters offers.BusinessOfferFilters) string {
	normalized := params.Normalize()
	status := "-"
	if filters.Status != nil {
		status = filters.Status.String()
	}
	from, to := "-", "-"
	if filters.DateFrom != nil {
		from = filters.DateFrom.UTC().Format(time.RFC3339)
	}
	if filters.DateTo != nil {
		to = filters.DateTo.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("p%d_l%d_s%s_f%s_t%s", normalized.Page, normalized.Limit, status, from, to)
}

func (s *Service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), msg)
}
