package controllers

import (
	"net/http"

	"github.com/parceldrop/parceldrop-backend/api/middleware"
	"github.com/parceldrop/parceldrop-backend/api/responses"
	"github.com/parceldrop/parceldrop-backend/api/validators"
	"github.com/parceldrop/parceldrop-backend/internal/dispatch"
	"github.com/parceldrop/parceldrop-backend/internal/matching"
	"github.com/parceldrop/parceldrop-backend/pkg/enums"
	pkgerrors "github.com/parceldrop/parceldrop-backend/pkg/errors"
	"github.com/parceldrop/parceldrop-backend/pkg/logger"
	"github.com/parceldrop/parceldrop-backend/pkg/pagination"
	"github.com/parceldrop/parceldrop-backend/pkg/types"
)

// SearchNearby handles GET /api/v1/rider/offers/nearby.
func SearchNearby(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.ActorFromContext(r.Context()); !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		params, err := searchParamsFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SearchNearby(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func searchParamsFromQuery(r *http.Request) (matching.SearchParams, error) {
	lng, err := validators.RequireQueryFloat(r, "lng")
	if err != nil {
		return matching.SearchParams{}, err
	}
	lat, err := validators.RequireQueryFloat(r, "lat")
	if err != nil {
		return matching.SearchParams{}, err
	}

	params := matching.SearchParams{
		Location: types.Coordinates{Lng: lng, Lat: lat},
	}

	if v, err := validators.ParseQueryFloat(r, "min_distance_m"); err != nil {
		return matching.SearchParams{}, err
	} else if v != nil {
		params.MinDistanceM = *v
	}
	if v, err := validators.ParseQueryFloat(r, "max_distance_m"); err != nil {
		return matching.SearchParams{}, err
	} else if v != nil {
		params.MaxDistanceM = *v
	}

	if params.Filters.MinAmount, err = validators.ParseQueryDecimal(r, "min_amount"); err != nil {
		return matching.SearchParams{}, err
	}
	if params.Filters.MaxAmount, err = validators.ParseQueryDecimal(r, "max_amount"); err != nil {
		return matching.SearchParams{}, err
	}
	if raw := r.URL.Query().Get("payment_method"); raw != "" {
		method := enums.PaymentMethod(raw)
		if !method.IsValid() {
			return matching.SearchParams{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method").WithDetails(map[string]any{"payment_method": raw})
		}
		params.Filters.PaymentMethod = &method
	}
	if params.Filters.Fragile, err = validators.ParseQueryBool(r, "fragile"); err != nil {
		return matching.SearchParams{}, err
	}
	if params.Filters.MaxWeightKg, err = validators.ParseQueryFloat(r, "max_weight_kg"); err != nil {
		return matching.SearchParams{}, err
	}
	if params.Filters.MaxLengthCm, err = validators.ParseQueryFloat(r, "max_length_cm"); err != nil {
		return matching.SearchParams{}, err
	}
	if params.Filters.MaxWidthCm, err = validators.ParseQueryFloat(r, "max_width_cm"); err != nil {
		return matching.SearchParams{}, err
	}
	if params.Filters.MaxHeightCm, err = validators.ParseQueryFloat(r, "max_height_cm"); err != nil {
		return matching.SearchParams{}, err
	}
	if raw := r.URL.Query().Get("vehicle_type"); raw != "" {
		vehicle, err := enums.ParseVehicleType(raw)
		if err != nil {
			return matching.SearchParams{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown vehicle type").WithDetails(map[string]any{"vehicle_type": raw})
		}
		params.Filters.VehicleType = &vehicle
	}
	if params.Filters.BusinessID, err = validators.ParseQueryUUID(r, "business_id"); err != nil {
		return matching.SearchParams{}, err
	}
	if params.Filters.CreatedFrom, err = validators.ParseQueryTime(r, "created_from"); err != nil {
		return matching.SearchParams{}, err
	}
	if params.Filters.CreatedTo, err = validators.ParseQueryTime(r, "created_to"); err != nil {
		return matching.SearchParams{}, err
	}
	if params.Filters.WindowsOpenAt, err = validators.ParseQueryTime(r, "windows_open_at"); err != nil {
		return matching.SearchParams{}, err
	}

	params.SortKey, params.SortDir = matching.ParseSort(r.URL.Query().Get("sort"), r.URL.Query().Get("direction"))

	page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
	if err != nil {
		return matching.SearchParams{}, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return matching.SearchParams{}, err
	}
	params.Page = page
	params.Limit = limit

	return params, nil
}
