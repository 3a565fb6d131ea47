package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/equipcare/stockroom-backend/api/controllers"
	"github.com/equipcare/stockroom-backend/api/middleware"
	"github.com/equipcare/stockroom-backend/internal/accesslog"
	"github.com/equipcare/stockroom-backend/internal/catalog"
	"github.com/equipcare/stockroom-backend/internal/doorlock"
	"github.com/equipcare/stockroom-backend/internal/ledger"
	"github.com/equipcare/stockroom-backend/pkg/config"
	"github.com/equipcare/stockroom-backend/pkg/db"
	"github.com/equipcare/stockroom-backend/pkg/logger"
	pkgredis "github.com/equipcare/stockroom-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	ledgerService ledger.Service,
	catalogService catalog.Service,
	accessLogService accesslog.Service,
	lockClient doorlock.Client,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	var idempotencyStore pkgredis.IdempotencyStore
	var rateLimiter pkgredis.RateLimiter
	var redisPinger pkgredis.Pinger
	if redisClient != nil {
		idempotencyStore = redisClient
		rateLimiter = redisClient
		redisPinger = redisClient
	}

	r.Get("/healthz", controllers.HealthLive(cfg))
	r.Get("/health/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RateLimit(cfg.RateLimit, rateLimiter, logg))
		r.Use(middleware.Idempotency(idempotencyStore, cfg.Idempotency.TTL, logg))

		r.Get("/lookup", controllers.Lookup(catalogService, logg))

		r.Post("/withdrawals", controllers.CreateWithdrawal(ledgerService, logg))
		r.Post("/returns", controllers.CreateReturn(ledgerService, logg))

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", controllers.CreateReservation(ledgerService, logg))
			r.Post("/{reservationID}/finalize", controllers.FinalizeReservation(ledgerService, logg))
			r.Post("/{reservationID}/return-all", controllers.ReturnAllReserved(ledgerService, logg))
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", controllers.ListTransactions(ledgerService, logg))
			r.Get("/{transactionID}", controllers.GetTransaction(ledgerService, logg))
		})

		r.Route("/equipment", func(r chi.Router) {
			r.Get("/", controllers.ListEquipment(catalogService, logg))
			r.Get("/{equipmentID}/lots", controllers.ListEquipmentLots(catalogService, logg))
		})

		r.Route("/access-logs", func(r chi.Router) {
			r.Post("/", controllers.CreateAccessLog(accessLogService, logg))
			r.Get("/", controllers.ListAccessLogs(accessLogService, logg))
		})

		r.Route("/cabinet", func(r chi.Router) {
			r.Post("/open", controllers.OpenCabinet(lockClient, accessLogService, logg))
			r.Post("/close", controllers.CloseCabinet(lockClient, accessLogService, logg))
		})
	})

	return r
}
