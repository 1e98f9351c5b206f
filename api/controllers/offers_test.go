package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/parceldrop/parceldrop-backend/api/middleware"
	"github.com/parceldrop/parceldrop-backend/internal/matching"
	"github.com/parceldrop/parceldrop-backend/internal/offers"
	"github.com/parceldrop/parceldrop-backend/pkg/db/models"
	"github.com/parceldrop/parceldrop-backend/pkg/enums"
	pkgerrors "github.com/parceldrop/parceldrop-backend/pkg/errors"
	"github.com/parceldrop/parceldrop-backend/pkg/pagination"
	"github.com/parceldrop/parceldrop-backend/pkg/types"
)

type stubDispatchService struct {
	createOffer  *models.Offer
	createErr    error
	createInput  *offers.CreateOfferInput
	acceptOffer  *models.Offer
	acceptErr    error
	advanceErr   error
	advanceInput *offers.TransitionInput
	cancelReason *string
	history      types.StatusHistory
	historyErr   error
	searchResult *matching.SearchResult
	searchParams *matching.SearchParams
	list         *offers.OfferList
	deliveries   []models.Offer
}

func (s *stubDispatchService) CreateOffer(ctx context.Context, input offers.CreateOfferInput) (*models.Offer, error) {
	s.createInput = &input
	return s.createOffer, s.createErr
}

func (s *stubDispatchService) SearchNearby(ctx context.Context, params matching.SearchParams) (*matching.SearchResult, error) {
	s.searchParams = &params
	return s.searchResult, nil
}

func (s *stubDispatchService) AcceptOffer(ctx context.Context, offerID, riderID uuid.UUID) (*models.Offer, error) {
	return s.acceptOffer, s.acceptErr
}

func (s *stubDispatchService) AdvanceStatus(ctx context.Context, input offers.TransitionInput) (*models.Offer, error) {
	s.advanceInput = &input
	if s.advanceErr != nil {
		return nil, s.advanceErr
	}
	return &models.Offer{ID: input.OfferID, Status: input.Target}, nil
}

func (s *stubDispatchService) CancelOffer(ctx context.Context, offerID, actorID uuid.UUID, role enums.ActorRole, reason *string) (*models.Offer, error) {
	s.cancelReason = reason
	return &models.Offer{ID: offerID, Status: enums.OfferStatusCancelled}, nil
}

func (s *stubDispatchService) GetStatusHistory(ctx context.Context, offerID, actorID uuid.UUID, role enums.ActorRole) (types.StatusHistory, error) {
	return s.history, s.historyErr
}

func (s *stubDispatchService) BusinessOffers(ctx context.Context, businessID uuid.UUID, params pagination.Params, filters offers.BusinessOfferFilters) (*offers.OfferList, error) {
	return s.list, nil
}

func (s *stubDispatchService) RiderDeliveries(ctx context.Context, riderID uuid.UUID) ([]models.Offer, error) {
	return s.deliveries, nil
}

func asActor(req *http.Request, role enums.ActorRole) (*http.Request, uuid.UUID) {
	id := uuid.New()
	ctx := middleware.WithActor(req.Context(), middleware.Actor{UserID: id, Role: role, Verified: true})
	return req.WithContext(ctx), id
}

func decodeError(t *testing.T, body *bytes.Buffer) types.APIError {
	t.Helper()
	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error
}

func TestCreateOfferReturns201(t *testing.T) {
	svc := &stubDispatchService{createOffer: &models.Offer{ID: uuid.New(), Status: enums.OfferStatusOpen}}
	handler := CreateOffer(svc, nil)

	payload := `{
		"pickup": {"address": "100 Main St", "contact_name": "Ana", "contact_phone": "+1-555-0100", "lng": -97.44, "lat": 35.22},
		"delivery": {"address": "200 Elm St", "contact_name": "Bo", "contact_phone": "+1-555-0101", "lng": -97.43, "lat": 35.23},
		"weight_kg": 2.5,
		"payment_amount": "18.50"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/business/offers", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	req, businessID := asActor(req, enums.ActorRoleBusiness)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.createInput == nil {
		t.Fatalf("create never reached the facade")
	}
	if svc.createInput.BusinessID != businessID {
		t.Fatalf("owner must come from the token, got %s", svc.createInput.BusinessID)
	}
	if svc.createInput.Pickup.Coordinates == nil || svc.createInput.Pickup.Coordinates.Lng != -97.44 {
		t.Fatalf("pickup coordinates lost: %+v", svc.createInput.Pickup)
	}
}

func TestCreateOfferRejectsHalfCoordinatePair(t *testing.T) {
	handler := CreateOffer(&stubDispatchService{}, nil)

	payload := `{
		"pickup": {"address": "100 Main St", "lng": -97.44},
		"delivery": {"address": "200 Elm St", "lng": -97.43, "lat": 35.23},
		"payment_amount": "18.50"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/business/offers", bytes.NewBufferString(payload))
	req, _ = asActor(req, enums.ActorRoleBusiness)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if got := decodeError(t, resp.Body); got.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", got.Code)
	}
}

func newOfferRouter(handler http.HandlerFunc, method, pattern string) *chi.Mux {
	r := chi.NewRouter()
	r.Method(method, pattern, handler)
	return r
}

func TestAcceptOfferConflictSurfacesAlreadyClaimed(t *testing.T) {
	svc := &stubDispatchService{
		acceptErr: pkgerrors.New(pkgerrors.CodeAlreadyClaimed, "offer already claimed").
			WithDetails(map[string]any{"current_status": "accepted"}),
	}
	router := newOfferRouter(AcceptOffer(svc, nil), http.MethodPost, "/api/v1/rider/offers/{offerId}/accept")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rider/offers/"+uuid.NewString()+"/accept", nil)
	req, _ = asActor(req, enums.ActorRoleRider)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	apiErr := decodeError(t, resp.Body)
	if apiErr.Code != string(pkgerrors.CodeAlreadyClaimed) {
		t.Fatalf("unexpected code %s", apiErr.Code)
	}
	if apiErr.Details == nil {
		t.Fatalf("conflict must carry current_status details")
	}
}

func TestAcceptOfferRejectsMalformedID(t *testing.T) {
	router := newOfferRouter(AcceptOffer(&stubDispatchService{}, nil), http.MethodPost, "/api/v1/rider/offers/{offerId}/accept")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rider/offers/not-a-uuid/accept", nil)
	req, _ = asActor(req, enums.ActorRoleRider)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdvanceStatusMapsInvalidTransitionTo422(t *testing.T) {
	svc := &stubDispatchService{
		advanceErr: pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot move from open to delivered").
			WithDetails(map[string]any{"current_status": "open", "valid_next": []string{"accepted"}}),
	}
	router := newOfferRouter(AdvanceStatus(svc, nil), http.MethodPost, "/api/v1/offers/{offerId}/status")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/offers/"+uuid.NewString()+"/status", bytes.NewBufferString(`{"status":"delivered"}`))
	req, _ = asActor(req, enums.ActorRoleRider)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	apiErr := decodeError(t, resp.Body)
	if apiErr.Details == nil {
		t.Fatalf("invalid transition must expose valid_next details")
	}
}

func TestAdvanceStatusRejectsUnknownStatus(t *testing.T) {
	router := newOfferRouter(AdvanceStatus(&stubDispatchService{}, nil), http.MethodPost, "/api/v1/offers/{offerId}/status")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/offers/"+uuid.NewString()+"/status", bytes.NewBufferString(`{"status":"teleported"}`))
	req, _ = asActor(req, enums.ActorRoleRider)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCancelOfferForwardsReason(t *testing.T) {
	svc := &stubDispatchService{}
	router := newOfferRouter(CancelOffer(svc, nil), http.MethodPost, "/api/v1/offers/{offerId}/cancel")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/offers/"+uuid.NewString()+"/cancel", bytes.NewBufferString(`{"reason":"customer withdrew"}`))
	req, _ = asActor(req, enums.ActorRoleBusiness)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.cancelReason == nil || *svc.cancelReason != "customer withdrew" {
		t.Fatalf("reason lost on the way to the facade: %v", svc.cancelReason)
	}
}

func TestOfferHistoryForbiddenForStrangers(t *testing.T) {
	svc := &stubDispatchService{
		historyErr: pkgerrors.New(pkgerrors.CodeForbidden, "history restricted to the owner and assigned rider"),
	}
	router := newOfferRouter(OfferHistory(svc, nil), http.MethodGet, "/api/v1/offers/{offerId}/history")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/offers/"+uuid.NewString()+"/history", nil)
	req, _ = asActor(req, enums.ActorRoleRider)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestBusinessOffersRejectsUnknownStatusFilter(t *testing.T) {
	handler := BusinessOffers(&stubDispatchService{list: &offers.OfferList{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/business/offers?status=imaginary", nil)
	req, _ = asActor(req, enums.ActorRoleBusiness)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRiderDeliveriesReturnsList(t *testing.T) {
	svc := &stubDispatchService{deliveries: []models.Offer{{ID: uuid.New(), Status: enums.OfferStatusAccepted}}}
	handler := RiderDeliveries(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rider/deliveries", nil)
	req, _ = asActor(req, enums.ActorRoleRider)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data struct {
			Deliveries []models.Offer `json:"deliveries"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Deliveries) != 1 {
		t.Fatalf("expected one delivery, got %d", len(envelope.Data.Deliveries))
	}
}
