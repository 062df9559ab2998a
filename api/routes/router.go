package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ecochamp/ecochamp-backend/api/controllers"
	"github.com/ecochamp/ecochamp-backend/api/middleware"
	"github.com/ecochamp/ecochamp-backend/internal/auth"
	"github.com/ecochamp/ecochamp-backend/internal/insights"
	"github.com/ecochamp/ecochamp-backend/internal/ledger"
	"github.com/ecochamp/ecochamp-backend/internal/rankings"
	"github.com/ecochamp/ecochamp-backend/internal/rewards"
	"github.com/ecochamp/ecochamp-backend/internal/uploads"
	"github.com/ecochamp/ecochamp-backend/internal/usage"
	"github.com/ecochamp/ecochamp-backend/pkg/auth/session"
	"github.com/ecochamp/ecochamp-backend/pkg/config"
	"github.com/ecochamp/ecochamp-backend/pkg/logger"
	"github.com/ecochamp/ecochamp-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Services bundles the domain services the router exposes.
type Services struct {
	Auth     auth.Service
	Ledger   ledger.Service
	Rewards  rewards.Service
	Rankings rankings.Service
	Usage    usage.Service
	Uploads  uploads.Service
	Insights insights.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	sessions sessionManager,
	readiness map[string]controllers.Pinger,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).
			With(middleware.Idempotency(redisClient, logg)).
			Post("/register", controllers.AuthRegister(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).
			Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(sessions, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(sessions, cfg.JWT, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Group(func(r chi.Router) {
			r.Get("/ping", controllers.PrivatePing())

			r.Route("/v1/points", func(r chi.Router) {
				r.Get("/balance", controllers.PointsBalance(svcs.Ledger, logg))
				r.Get("/history", controllers.PointsHistory(svcs.Ledger, logg))
				r.Post("/award", controllers.PointsAward(svcs.Ledger, logg))
				r.Post("/redeem", controllers.PointsRedeem(svcs.Ledger, logg))
				r.Get("/rewards", controllers.RewardsList(svcs.Rewards, logg))
				r.Get("/redemptions", controllers.PointsRedemptions(svcs.Rewards, logg))
			})

			r.Route("/v1/rankings", func(r chi.Router) {
				r.Get("/individual", controllers.RankingsIndividual(svcs.Rankings, logg))
				r.Get("/department", controllers.RankingsDepartment(svcs.Rankings, logg))
				r.Get("/me", controllers.RankingsMe(svcs.Rankings, logg))
				r.Get("/achievements", controllers.RankingsAchievements(svcs.Rankings, logg))
			})

			r.Route("/v1/energy", func(r chi.Router) {
				r.Get("/usage", controllers.UsageSummary(svcs.Usage, logg))
				r.Post("/usage", controllers.UsageRecord(svcs.Usage, logg))
			})

			r.Route("/v1/uploads", func(r chi.Router) {
				r.Post("/", controllers.UploadCreate(svcs.Uploads, logg, cfg.Uploads.MaxUploadMB))
				r.Get("/", controllers.UploadList(svcs.Uploads, logg))
				r.Get("/{uploadId}", controllers.UploadDetail(svcs.Uploads, logg))
			})

			r.Post("/v1/insights/analyze", controllers.InsightsAnalyze(svcs.Insights, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", logg))
			r.Get("/ping", controllers.AdminPing())
			r.Post("/v1/rankings/recompute", controllers.AdminRankingsRecompute(svcs.Rankings, logg))

			r.Route("/v1/rewards", func(r chi.Router) {
				r.Get("/", controllers.AdminRewardsList(svcs.Rewards, logg))
				r.Post("/", controllers.AdminRewardCreate(svcs.Rewards, logg))
				r.Patch("/{rewardId}", controllers.AdminRewardUpdate(svcs.Rewards, logg))
			})
		})
	})

	return r
}
