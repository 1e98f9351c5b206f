package matching

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/parceldrop/parceldrop-backend/internal/offers"
	"github.com/parceldrop/parceldrop-backend/pkg/config"
	"github.com/parceldrop/parceldrop-backend/pkg/db/models"
	"github.com/parceldrop/parceldrop-backend/pkg/enums"
	pkgerrors "github.com/parceldrop/parceldrop-backend/pkg/errors"
	"github.com/parceldrop/parceldrop-backend/pkg/pagination"
	"github.com/parceldrop/parceldrop-backend/pkg/types"
)

type stubMatchRepo struct {
	open      []models.Offer
	lastQuery offers.OpenOfferQuery
	err       error
}

func (s *stubMatchRepo) WithTx(tx *gorm.DB) offers.Repository { return s }

func (s *stubMatchRepo) Create(ctx context.Context, offer *models.Offer) (*models.Offer, error) {
	panic("not implemented")
}

func (s *stubMatchRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	panic("not implemented")
}

func (s *stubMatchRepo) Claim(ctx context.Context, offer *models.Offer, riderID uuid.UUID, updates map[string]any) (bool, error) {
	panic("not implemented")
}

func (s *stubMatchRepo) ApplyTransition(ctx context.Context, offerID uuid.UUID, from enums.OfferStatus, updates map[string]any) (bool, error) {
	panic("not implemented")
}

func (s *stubMatchRepo) ListByBusiness(ctx context.Context, businessID uuid.UUID, params pagination.Params, filters offers.BusinessOfferFilters) (*offers.OfferList, error) {
	panic("not implemented")
}

func (s *stubMatchRepo) ListActiveByRider(ctx context.Context, riderID uuid.UUID) ([]models.Offer, error) {
	panic("not implemented")
}

func (s *stubMatchRepo) ListOpen(ctx context.Context, query offers.OpenOfferQuery) ([]models.Offer, error) {
	s.lastQuery = query
	if s.err != nil {
		return nil, s.err
	}
	return s.open, nil
}

func testSearchConfig() config.SearchConfig {
	return config.SearchConfig{
		QueryTimeout:      5 * time.Second,
		DefaultRadiusM:    10_000,
		MaxRadiusM:        50_000,
		CandidateFetchCap: 2000,
	}
}

func newMatcher(t *testing.T, repo offers.Repository) Service {
	t.Helper()
	svc, err := NewService(repo, testSearchConfig(), nil, nil)
	require.NoError(t, err)
	return svc
}

// openOfferAt drops an open offer at the given pickup point. Norman, OK is
// roughly the search center of every test.
func openOfferAt(lng, lat float64, amount string) models.Offer {
	return models.Offer{
		ID:            uuid.New(),
		BusinessID:    uuid.New(),
		Status:        enums.OfferStatusOpen,
		PickupLng:     lng,
		PickupLat:     lat,
		DeliveryLng:   lng + 0.02,
		DeliveryLat:   lat + 0.02,
		PaymentAmount: decimal.RequireFromString(amount),
		CreatedAt:     time.Now(),
	}
}

var searchCenter = types.Coordinates{Lng: -97.44, Lat: 35.22}

func TestSearchNearbyInvalidLocation(t *testing.T) {
	svc := newMatcher(t, &stubMatchRepo{})

	_, err := svc.SearchNearby(context.Background(), SearchParams{
		Location: types.Coordinates{Lng: -200, Lat: 35},
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidLocation))

	_, err = svc.SearchNearby(context.Background(), SearchParams{})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidLocation))
}

func TestSearchNearbyDistanceBand(t *testing.T) {
	near := openOfferAt(-97.441, 35.221, "10.00")     // ~150m out
	mid := openOfferAt(-97.47, 35.24, "10.00")        // ~3.5km out
	repo := &stubMatchRepo{open: []models.Offer{near, mid}}
	svc := newMatcher(t, repo)

	result, err := svc.SearchNearby(context.Background(), SearchParams{
		Location:     searchCenter,
		MinDistanceM: 1000,
		MaxDistanceM: 10_000,
	})
	require.NoError(t, err)
	require.Len(t, result.Offers, 1)
	assert.Equal(t, mid.ID, result.Offers[0].ID)
	assert.Equal(t, int64(1), result.Total)
	assert.Greater(t, result.Offers[0].DistanceM, 1000.0)
}

func TestSearchNearbyEmptyResult(t *testing.T) {
	repo := &stubMatchRepo{}
	svc := newMatcher(t, repo)

	result, err := svc.SearchNearby(context.Background(), SearchParams{Location: searchCenter})
	require.NoError(t, err)
	assert.Empty(t, result.Offers)
	assert.Equal(t, int64(0), result.Total)
	assert.Equal(t, int64(0), result.TotalPages)
}

func TestSearchNearbyVehicleCapacity(t *testing.T) {
	light := openOfferAt(-97.441, 35.221, "10.00")
	light.WeightKg = 4

	heavy := openOfferAt(-97.442, 35.222, "10.00")
	heavy.WeightKg = 12

	bulky := openOfferAt(-97.443, 35.223, "10.00")
	bulky.WeightKg = 2
	bulky.LengthCm, bulky.WidthCm, bulky.HeightCm = 100, 50, 20 // 100k cm³

	dimensionless := openOfferAt(-97.444, 35.224, "10.00")
	dimensionless.WeightKg = 1

	repo := &stubMatchRepo{open: []models.Offer{light, heavy, bulky, dimensionless}}
	svc := newMatcher(t, repo)

	bike := enums.VehicleTypeBike
	result, err := svc.SearchNearby(context.Background(), SearchParams{
		Location: searchCenter,
		Filters:  SearchFilters{VehicleType: &bike},
	})
	require.NoError(t, err)

	ids := make(map[uuid.UUID]bool, len(result.Offers))
	for _, offer := range result.Offers {
		ids[offer.ID] = true
	}
	assert.True(t, ids[light.ID], "within bike capacity")
	assert.True(t, ids[dimensionless.ID], "absent dimensions never exclude")
	assert.False(t, ids[heavy.ID], "over bike weight limit")
	assert.False(t, ids[bulky.ID], "over bike volume limit")
}

func TestSearchNearbySortAndTieBreak(t *testing.T) {
	a := openOfferAt(-97.441, 35.221, "30.00")
	b := openOfferAt(-97.442, 35.222, "10.00")
	c := openOfferAt(-97.443, 35.223, "10.00")

	repo := &stubMatchRepo{open: []models.Offer{a, b, c}}
	svc := newMatcher(t, repo)

	result, err := svc.SearchNearby(context.Background(), SearchParams{
		Location: searchCenter,
		SortKey:  SortAmount,
		SortDir:  SortAsc,
	})
	require.NoError(t, err)
	require.Len(t, result.Offers, 3)
	assert.Equal(t, a.ID, result.Offers[2].ID, "highest amount last")

	// Equal amounts must order by offer id for stable paging.
	first, second := result.Offers[0].ID, result.Offers[1].ID
	assert.Less(t, first.String(), second.String())

	// The same search repeated yields the identical order.
	again, err := svc.SearchNearby(context.Background(), SearchParams{
		Location: searchCenter,
		SortKey:  SortAmount,
		SortDir:  SortAsc,
	})
	require.NoError(t, err)
	for i := range result.Offers {
		assert.Equal(t, result.Offers[i].ID, again.Offers[i].ID)
	}
}

func TestSearchNearbyUnknownSortFallsBackToDistance(t *testing.T) {
	far := openOfferAt(-97.48, 35.25, "10.00")
	nearest := openOfferAt(-97.441, 35.221, "10.00")
	repo := &stubMatchRepo{open: []models.Offer{far, nearest}}
	svc := newMatcher(t, repo)

	key, dir := ParseSort("popularity", "sideways")
	result, err := svc.SearchNearby(context.Background(), SearchParams{
		Location: searchCenter,
		SortKey:  key,
		SortDir:  dir,
	})
	require.NoError(t, err)
	require.Len(t, result.Offers, 2)
	assert.Equal(t, nearest.ID, result.Offers[0].ID)
}

func TestSearchNearbyPagination(t *testing.T) {
	var all []models.Offer
	for i := 0; i < 5; i++ {
		all = append(all, openOfferAt(-97.441-float64(i)*0.001, 35.221, "10.00"))
	}
	repo := &stubMatchRepo{open: all}
	svc := newMatcher(t, repo)

	page2, err := svc.SearchNearby(context.Background(), SearchParams{
		Location: searchCenter,
		Page:     2,
		Limit:    2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page2.Total)
	assert.Len(t, page2.Offers, 2)
	assert.Equal(t, int64(3), page2.TotalPages)

	pastEnd, err := svc.SearchNearby(context.Background(), SearchParams{
		Location: searchCenter,
		Page:     9,
		Limit:    2,
	})
	require.NoError(t, err)
	assert.Empty(t, pastEnd.Offers)
	assert.Equal(t, int64(5), pastEnd.Total)
}

func TestSearchNearbyRadiusDefaultsAndCaps(t *testing.T) {
	repo := &stubMatchRepo{}
	svc := newMatcher(t, repo)

	_, err := svc.SearchNearby(context.Background(), SearchParams{Location: searchCenter})
	require.NoError(t, err)
	assert.Equal(t, 2000, repo.lastQuery.FetchCap)

	_, err = svc.SearchNearby(context.Background(), SearchParams{
		Location:     searchCenter,
		MinDistanceM: 500,
		MaxDistanceM: 100,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestFingerprintStability(t *testing.T) {
	bike := enums.VehicleTypeBike
	params := SearchParams{
		Location:     types.Coordinates{Lng: -97.44012, Lat: 35.22049},
		MaxDistanceM: 10_000,
		Filters:      SearchFilters{VehicleType: &bike},
		SortKey:      SortDistance,
		SortDir:      SortAsc,
		Page:         1,
		Limit:        25,
	}

	// Rounding folds nearby positions into the same key.
	nearby := params
	nearby.Location = types.Coordinates{Lng: -97.44049, Lat: 35.22008}
	assert.Equal(t, params.Fingerprint(3), nearby.Fingerprint(3))

	elsewhere := params
	elsewhere.Location = types.Coordinates{Lng: -97.5, Lat: 35.3}
	assert.NotEqual(t, params.Fingerprint(3), elsewhere.Fingerprint(3))

	differentPage := params
	differentPage.Page = 2
	assert.NotEqual(t, params.Fingerprint(3), differentPage.Fingerprint(3))
}

func TestFingerprintCoversWindowFilter(t *testing.T) {
	params := SearchParams{
		Location:     types.Coordinates{Lng: -97.44, Lat: 35.22},
		MaxDistanceM: 10_000,
		SortKey:      SortDistance,
		SortDir:      SortAsc,
		Page:         1,
		Limit:        25,
	}

	at := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	windowed := params
	windowed.Filters.WindowsOpenAt = &at
	assert.NotEqual(t, params.Fingerprint(3), windowed.Fingerprint(3),
		"requests differing in the time-window filter must not share a cache key")

	later := windowed
	at2 := at.Add(time.Hour)
	later.Filters.WindowsOpenAt = &at2
	assert.NotEqual(t, windowed.Fingerprint(3), later.Fingerprint(3))
}
