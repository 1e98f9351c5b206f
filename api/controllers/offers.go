package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/parceldrop/parceldrop-backend/api/middleware"
	"github.com/parceldrop/parceldrop-backend/api/responses"
	"github.com/parceldrop/parceldrop-backend/api/validators"
	"github.com/parceldrop/parceldrop-backend/internal/dispatch"
	"github.com/parceldrop/parceldrop-backend/internal/offers"
	"github.com/parceldrop/parceldrop-backend/pkg/enums"
	pkgerrors "github.com/parceldrop/parceldrop-backend/pkg/errors"
	"github.com/parceldrop/parceldrop-backend/pkg/logger"
	"github.com/parceldrop/parceldrop-backend/pkg/pagination"
	"github.com/parceldrop/parceldrop-backend/pkg/types"
)

type endpointRequest struct {
	Address      string   `json:"address"`
	ContactName  string   `json:"contact_name"`
	ContactPhone string   `json:"contact_phone"`
	Lng          *float64 `json:"lng,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
}

func (e endpointRequest) toInput(side string) (offers.EndpointInput, error) {
	input := offers.EndpointInput{
		Address:      e.Address,
		ContactName:  e.ContactName,
		ContactPhone: e.ContactPhone,
	}
	if (e.Lng == nil) != (e.Lat == nil) {
		return offers.EndpointInput{}, pkgerrors.New(pkgerrors.CodeValidation, side+" coordinates need both lng and lat")
	}
	if e.Lng != nil && e.Lat != nil {
		input.Coordinates = &types.Coordinates{Lng: *e.Lng, Lat: *e.Lat}
	}
	return input, nil
}

type createOfferRequest struct {
	Pickup   endpointRequest `json:"pickup"`
	Delivery endpointRequest `json:"delivery"`

	WeightKg         float64 `json:"weight_kg"`
	LengthCm         float64 `json:"length_cm"`
	WidthCm          float64 `json:"width_cm"`
	HeightCm         float64 `json:"height_cm"`
	Fragile          bool    `json:"fragile"`
	TemperatureClass string  `json:"temperature_class,omitempty"`

	PaymentAmount decimal.Decimal `json:"payment_amount" validate:"required"`
	Currency      string          `json:"currency,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty"`

	PickupWindowStart   *time.Time `json:"pickup_window_start,omitempty"`
	PickupWindowEnd     *time.Time `json:"pickup_window_end,omitempty"`
	DeliveryWindowStart *time.Time `json:"delivery_window_start,omitempty"`
	DeliveryWindowEnd   *time.Time `json:"delivery_window_end,omitempty"`
}

// CreateOffer handles POST /api/v1/business/offers.
func CreateOffer(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var body createOfferRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pickup, err := body.Pickup.toInput("pickup")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		delivery, err := body.Delivery.toInput("delivery")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		offer, err := svc.CreateOffer(r.Context(), offers.CreateOfferInput{
			BusinessID: actor.UserID,
			Pickup:     pickup,
			Delivery:   delivery,

			WeightKg:         body.WeightKg,
			LengthCm:         body.LengthCm,
			WidthCm:          body.WidthCm,
			HeightCm:         body.HeightCm,
			Fragile:          body.Fragile,
			TemperatureClass: enums.TemperatureClass(body.TemperatureClass),

			PaymentAmount: body.PaymentAmount,
			Currency:      enums.Currency(body.Currency),
			PaymentMethod: enums.PaymentMethod(body.PaymentMethod),

			PickupWindowStart:   body.PickupWindowStart,
			PickupWindowEnd:     body.PickupWindowEnd,
			DeliveryWindowStart: body.DeliveryWindowStart,
			DeliveryWindowEnd:   body.DeliveryWindowEnd,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, offer)
	}
}

// AcceptOffer handles POST /api/v1/rider/offers/{offerId}/accept.
func AcceptOffer(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		offerID, err := validators.ParsePathUUID(chi.URLParam(r, "offerId"), "offerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		offer, err := svc.AcceptOffer(r.Context(), offerID, actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, offer)
	}
}

type statusUpdateRequest struct {
	Status string   `json:"status" validate:"required"`
	Notes  *string  `json:"notes,omitempty"`
	Lng    *float64 `json:"lng,omitempty"`
	Lat    *float64 `json:"lat,omitempty"`
}

// AdvanceStatus handles POST /api/v1/offers/{offerId}/status.
func AdvanceStatus(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		offerID, err := validators.ParsePathUUID(chi.URLParam(r, "offerId"), "offerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body statusUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseOfferStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown target status").WithDetails(map[string]any{"status": body.Status}))
			return
		}

		var location *types.Coordinates
		if (body.Lng == nil) != (body.Lat == nil) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "location needs both lng and lat"))
			return
		}
		if body.Lng != nil && body.Lat != nil {
			location = &types.Coordinates{Lng: *body.Lng, Lat: *body.Lat}
		}

		offer, err := svc.AdvanceStatus(r.Context(), offers.TransitionInput{
			OfferID:   offerID,
			ActorID:   actor.UserID,
			ActorRole: actor.Role,
			Target:    target,
			Notes:     body.Notes,
			Location:  location,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, offer)
	}
}

type cancelRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// CancelOffer handles POST /api/v1/offers/{offerId}/cancel.
func CancelOffer(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		offerID, err := validators.ParsePathUUID(chi.URLParam(r, "offerId"), "offerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cancelRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		offer, err := svc.CancelOffer(r.Context(), offerID, actor.UserID, actor.Role, body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, offer)
	}
}

// OfferHistory handles GET /api/v1/offers/{offerId}/history.
func OfferHistory(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		offerID, err := validators.ParsePathUUID(chi.URLParam(r, "offerId"), "offerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := svc.GetStatusHistory(r.Context(), offerID, actor.UserID, actor.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"offer_id": offerID, "history": history})
	}
}

// BusinessOffers handles GET /api/v1/business/offers.
func BusinessOffers(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := offers.BusinessOfferFilters{}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := enums.ParseOfferStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown status filter").WithDetails(map[string]any{"status": raw}))
				return
			}
			filters.Status = &status
		}
		if filters.DateFrom, err = validators.ParseQueryTime(r, "date_from"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.DateTo, err = validators.ParseQueryTime(r, "date_to"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.BusinessOffers(r.Context(), actor.UserID, pagination.Params{Page: page, Limit: limit}, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// RiderDeliveries handles GET /api/v1/rider/deliveries.
func RiderDeliveries(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		deliveries, err := svc.RiderDeliveries(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deliveries": deliveries})
	}
}
