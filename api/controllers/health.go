package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/aakanshaa0/vestra/api/responses"
	"github.com/aakanshaa0/vestra/pkg/config"
	"github.com/aakanshaa0/vestra/pkg/db"
	pkgerrors "github.com/aakanshaa0/vestra/pkg/errors"
	"github.com/aakanshaa0/vestra/pkg/logger"
	"github.com/aakanshaa0/vestra/pkg/redis"
)

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Vestra-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the datastores before reporting ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, cache redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Vestra-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]error{}
		if dbP != nil {
			checks["postgres"] = dbP.Ping(ctx)
		}
		if cache != nil {
			checks["redis"] = cache.Ping(ctx)
		}

		for name, err := range checks {
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
