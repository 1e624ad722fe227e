package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/affiliate-ledger/api/controllers"
	webhookcontrollers "github.com/angelmondragon/affiliate-ledger/api/controllers/webhooks"
	"github.com/angelmondragon/affiliate-ledger/api/middleware"
	"github.com/angelmondragon/affiliate-ledger/internal/balance"
	"github.com/angelmondragon/affiliate-ledger/internal/commissions"
	"github.com/angelmondragon/affiliate-ledger/internal/shops"
	providerwebhook "github.com/angelmondragon/affiliate-ledger/internal/webhooks/provider"
	"github.com/angelmondragon/affiliate-ledger/internal/withdrawals"
	"github.com/angelmondragon/affiliate-ledger/pkg/clock"
	"github.com/angelmondragon/affiliate-ledger/pkg/config"
	"github.com/angelmondragon/affiliate-ledger/pkg/enums"
	"github.com/angelmondragon/affiliate-ledger/pkg/logger"
	pkgredis "github.com/angelmondragon/affiliate-ledger/pkg/redis"
)

// RouterParams carries the services behind the HTTP surface. Redis and
// Idempotency are nil when no redis endpoint is configured.
type RouterParams struct {
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency pkgredis.IdempotencyStore
	Gatherer    prometheus.Gatherer

	Shops       shops.Repository
	Webhooks    *providerwebhook.Service
	Balance     *balance.Engine
	Withdrawals *withdrawals.Service
	Commissions *commissions.Deriver
	Clock       clock.Clock
}

func NewRouter(cfg *config.Config, logg *logger.Logger, params RouterParams) http.Handler {
	clk := params.Clock
	if clk == nil {
		clk = clock.System()
	}
	gatherer := params.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	idempotent := middleware.Idempotency(params.Idempotency, cfg.Idempotency.WithdrawalTTL, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(map[string]controllers.Pinger{
			"db":    params.DB,
			"redis": params.Redis,
		}, logg))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/provider", webhookcontrollers.ProviderWebhook(cfg.Webhook, params.Webhooks, clk, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.RequireRole(enums.UserRoleShop, logg))
			r.Use(middleware.ShopContext(params.Shops, logg))

			r.Get("/balance", controllers.Balance(params.Balance, clk, cfg.Ledger.Currency, logg))
			r.Get("/commissions", controllers.ListCommissions(params.Commissions, logg))
			r.Get("/withdrawals", controllers.ListWithdrawals(params.Withdrawals, logg))
			r.With(idempotent).Post("/withdrawals", controllers.RequestWithdrawal(params.Withdrawals, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))

		r.Route("/withdrawals/{withdrawalId}", func(r chi.Router) {
			r.With(idempotent).Post("/processing", controllers.AdminMarkWithdrawalProcessing(params.Withdrawals, logg))
			r.With(idempotent).Post("/paid", controllers.AdminMarkWithdrawalPaid(params.Withdrawals, logg))
			r.With(idempotent).Post("/failed", controllers.AdminMarkWithdrawalFailed(params.Withdrawals, logg))
		})
	})

	return r
}
