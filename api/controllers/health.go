package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/ecochamp/ecochamp-backend/api/responses"
	"github.com/ecochamp/ecochamp-backend/pkg/config"
	pkgerrors "github.com/ecochamp/ecochamp-backend/pkg/errors"
	"github.com/ecochamp/ecochamp-backend/pkg/logger"
)

const readinessTimeout = 5 * time.Second

// Pinger is any dependency the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-EcoChamp-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the hard dependencies and reports per-dependency status.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-EcoChamp-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		statuses := map[string]string{}
		healthy := true
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				healthy = false
				statuses[name] = "unavailable"
				if logg != nil {
					logg.Error(r.Context(), "readiness check failed for "+name, err)
				}
				continue
			}
			statuses[name] = "ok"
		}

		if !healthy {
			err := pkgerrors.New(pkgerrors.CodeDependency, "a dependency is unavailable").
				WithDetails(statuses)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": statuses})
	}
}
