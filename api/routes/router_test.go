package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/parceldrop/parceldrop-backend/internal/identity"
	"github.com/parceldrop/parceldrop-backend/internal/matching"
	"github.com/parceldrop/parceldrop-backend/internal/offers"
	pkgauth "github.com/parceldrop/parceldrop-backend/pkg/auth"
	"github.com/parceldrop/parceldrop-backend/pkg/config"
	"github.com/parceldrop/parceldrop-backend/pkg/db/models"
	"github.com/parceldrop/parceldrop-backend/pkg/enums"
	"github.com/parceldrop/parceldrop-backend/pkg/pagination"
	"github.com/parceldrop/parceldrop-backend/pkg/types"
)

type noopDispatchService struct{}

func (noopDispatchService) CreateOffer(ctx context.Context, input offers.CreateOfferInput) (*models.Offer, error) {
	return &models.Offer{ID: uuid.New(), Status: enums.OfferStatusOpen}, nil
}

func (noopDispatchService) SearchNearby(ctx context.Context, params matching.SearchParams) (*matching.SearchResult, error) {
	return &matching.SearchResult{Offers: []matching.MatchedOffer{}}, nil
}

func (noopDispatchService) AcceptOffer(ctx context.Context, offerID, riderID uuid.UUID) (*models.Offer, error) {
	return &models.Offer{ID: offerID, Status: enums.OfferStatusAccepted}, nil
}

func (noopDispatchService) AdvanceStatus(ctx context.Context, input offers.TransitionInput) (*models.Offer, error) {
	return &models.Offer{ID: input.OfferID, Status: input.Target}, nil
}

func (noopDispatchService) CancelOffer(ctx context.Context, offerID, actorID uuid.UUID, role enums.ActorRole, reason *string) (*models.Offer, error) {
	return &models.Offer{ID: offerID, Status: enums.OfferStatusCancelled}, nil
}

func (noopDispatchService) GetStatusHistory(ctx context.Context, offerID, actorID uuid.UUID, role enums.ActorRole) (types.StatusHistory, error) {
	return types.StatusHistory{}, nil
}

func (noopDispatchService) BusinessOffers(ctx context.Context, businessID uuid.UUID, params pagination.Params, filters offers.BusinessOfferFilters) (*offers.OfferList, error) {
	return &offers.OfferList{}, nil
}

func (noopDispatchService) RiderDeliveries(ctx context.Context, riderID uuid.UUID) ([]models.Offer, error) {
	return []models.Offer{}, nil
}

type noopIdentityService struct{}

func (noopIdentityService) Login(ctx context.Context, req identity.LoginRequest) (*identity.LoginResponse, error) {
	return &identity.LoginResponse{AccessToken: "stub"}, nil
}

func testRouterConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "router-test-secret",
			Issuer:            "parceldrop-test",
			ExpirationMinutes: 15,
		},
	}
}

func newTestRouter() http.Handler {
	return NewRouter(RouterParams{
		Config:          testRouterConfig(),
		Logger:          nil,
		DispatchService: noopDispatchService{},
		IdentityService: noopIdentityService{},
	})
}

func bearerFor(t *testing.T, cfg *config.Config, role enums.ActorRole, verified bool) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID:   uuid.New(),
		Role:     role,
		Verified: verified,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	router := newTestRouter()

	for _, target := range []string{
		"/api/v1/rider/deliveries",
		"/api/v1/business/offers",
		"/api/v1/rider/offers/nearby",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", target, resp.Code)
		}
	}
}

func TestLoginIsPublic(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"rider@example.com","password":"pw"}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRoleGuardsSeparateParties(t *testing.T) {
	cfg := testRouterConfig()
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rider/deliveries", nil)
	req.Header.Set("Authorization", bearerFor(t, cfg, enums.ActorRoleBusiness, true))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("business token on rider route: expected 403 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/business/offers", nil)
	req.Header.Set("Authorization", bearerFor(t, cfg, enums.ActorRoleRider, true))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("rider token on business route: expected 403 got %d", resp.Code)
	}
}

func TestUnverifiedRiderCannotAccept(t *testing.T) {
	cfg := testRouterConfig()
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rider/offers/"+uuid.NewString()+"/accept", nil)
	req.Header.Set("Authorization", bearerFor(t, cfg, enums.ActorRoleRider, false))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestVerifiedRiderCanAccept(t *testing.T) {
	cfg := testRouterConfig()
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rider/offers/"+uuid.NewString()+"/accept", nil)
	req.Header.Set("Authorization", bearerFor(t, cfg, enums.ActorRoleRider, true))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestMetricsEndpointIsWired(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
