package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/forgecraft/craftvault-backend/api/responses"
	"github.com/forgecraft/craftvault-backend/pkg/config"
	"github.com/forgecraft/craftvault-backend/pkg/db"
	pkgerrors "github.com/forgecraft/craftvault-backend/pkg/errors"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
	"github.com/forgecraft/craftvault-backend/pkg/redis"
)

const readyProbeTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CraftVault-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness only when both backing stores answer.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CraftVault-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyProbeTimeout)
		defer cancel()

		checks := map[string]string{"db": "ok", "redis": "ok"}
		healthy := true

		if dbP == nil {
			checks["db"] = "not configured"
			healthy = false
		} else if err := dbP.Ping(ctx); err != nil {
			logg.Error(ctx, "database ping failed", err)
			checks["db"] = "unreachable"
			healthy = false
		}

		if redisP == nil {
			checks["redis"] = "not configured"
			healthy = false
		} else if err := redisP.Ping(ctx); err != nil {
			logg.Error(ctx, "redis ping failed", err)
			checks["redis"] = "unreachable"
			healthy = false
		}

		if !healthy {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "service not ready").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
