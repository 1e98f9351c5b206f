package controllers

import (
	"net/http"

	"github.com/parceldrop/parceldrop-backend/api/middleware"
	"github.com/parceldrop/parceldrop-backend/api/responses"
	"github.com/parceldrop/parceldrop-backend/api/validators"
	"github.com/parceldrop/parceldrop-backend/internal/identity"
	pkgerrors "github.com/parceldrop/parceldrop-backend/pkg/errors"
	"github.com/parceldrop/parceldrop-backend/pkg/logger"
)

// AuthLogin wires the login endpoint into the HTTP layer.
func AuthLogin(svc identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "identity service unavailable"))
			return
		}

		var body identity.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.ClientIP = middleware.ClientIP(r)

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
