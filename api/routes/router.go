package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/artmarket-backend/api/controllers"
	deliverycontrollers "github.com/angelmondragon/artmarket-backend/api/controllers/deliveries"
	"github.com/angelmondragon/artmarket-backend/api/middleware"
	"github.com/angelmondragon/artmarket-backend/internal/deliveries"
	"github.com/angelmondragon/artmarket-backend/internal/notifications"
	"github.com/angelmondragon/artmarket-backend/pkg/config"
	"github.com/angelmondragon/artmarket-backend/pkg/enums"
	"github.com/angelmondragon/artmarket-backend/pkg/logger"
	"github.com/angelmondragon/artmarket-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	metricsHandler http.Handler,
	deliveriesService deliveries.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	// a nil *redis.Client must not reach the middleware as a non-nil interface
	var (
		idempotencyStore redis.IdempotencyStore
		limiterStore     middleware.RateLimitStore
		redisPinger      controllers.Pinger
	)
	if redisClient != nil {
		idempotencyStore = redisClient
		limiterStore = redisClient
		redisPinger = redisClient
	}

	transitionPolicy := middleware.NewRateLimitPolicy(
		"delivery_transitions",
		cfg.Delivery.TransitionRateWindow,
		cfg.Delivery.TransitionRateLimit,
	)
	limiter := middleware.RateLimit(transitionPolicy, limiterStore, logg)
	idempotent := middleware.Idempotency(idempotencyStore, cfg.Delivery.IdempotencyTTL, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisPinger,
		}))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/deliveries", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleDeliveryPartner))

			r.Get("/", deliverycontrollers.List(deliveriesService, logg))
			r.Get("/status/{status}", deliverycontrollers.ListByStatus(deliveriesService, logg))
			r.Get("/range", deliverycontrollers.ListByDateRange(deliveriesService, logg))
			r.Get("/stats", deliverycontrollers.Stats(deliveriesService, logg))
			r.Get("/{sourceType}/{id}", deliverycontrollers.Get(deliveriesService, logg))

			r.Group(func(r chi.Router) {
				r.Use(limiter, idempotent)
				r.Post("/{sourceType}/{id}/accept", deliverycontrollers.Accept(deliveriesService, logg))
				r.Post("/{sourceType}/{id}/out-for-delivery", deliverycontrollers.MarkOutForDelivery(deliveriesService, logg))
				r.Post("/{sourceType}/{id}/delivered", deliverycontrollers.MarkDelivered(deliveriesService, logg))
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(notificationsService, logg))
			r.With(idempotent).Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.With(idempotent).Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))

		r.With(idempotent).Put("/deliveries/{sourceType}/{id}/status", deliverycontrollers.AdminSetStatus(deliveriesService, logg))
	})

	return r
}
