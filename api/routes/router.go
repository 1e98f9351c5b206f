package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parceldrop/parceldrop-backend/api/controllers"
	"github.com/parceldrop/parceldrop-backend/api/middleware"
	"github.com/parceldrop/parceldrop-backend/internal/dispatch"
	"github.com/parceldrop/parceldrop-backend/internal/identity"
	"github.com/parceldrop/parceldrop-backend/pkg/config"
	"github.com/parceldrop/parceldrop-backend/pkg/enums"
	"github.com/parceldrop/parceldrop-backend/pkg/logger"
)

// RouterParams bundles what the HTTP surface needs.
type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              controllers.Pinger
	Redis           controllers.Pinger
	DispatchService dispatch.Service
	IdentityService identity.Service
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": params.DB,
			"redis":    params.Redis,
		}))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.AuthLogin(params.IdentityService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/business", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.ActorRoleBusiness, logg))
			r.Get("/offers", controllers.BusinessOffers(params.DispatchService, logg))
			r.With(middleware.RequireVerified(logg)).
				Post("/offers", controllers.CreateOffer(params.DispatchService, logg))
		})

		r.Route("/rider", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.ActorRoleRider, logg))
			r.Get("/offers/nearby", controllers.SearchNearby(params.DispatchService, logg))
			r.Get("/deliveries", controllers.RiderDeliveries(params.DispatchService, logg))
			r.With(middleware.RequireVerified(logg)).
				Post("/offers/{offerId}/accept", controllers.AcceptOffer(params.DispatchService, logg))
		})

		r.Route("/offers/{offerId}", func(r chi.Router) {
			r.Post("/status", controllers.AdvanceStatus(params.DispatchService, logg))
			r.Post("/cancel", controllers.CancelOffer(params.DispatchService, logg))
			r.Get("/history", controllers.OfferHistory(params.DispatchService, logg))
		})
	})

	return r
}
