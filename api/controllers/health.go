package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/ninekrua/pos-backend/api/responses"
	"github.com/ninekrua/pos-backend/pkg/config"
	"github.com/ninekrua/pos-backend/pkg/db"
	pkgerrors "github.com/ninekrua/pos-backend/pkg/errors"
	"github.com/ninekrua/pos-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-NineKrua-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every hard dependency before reporting ready.
func HealthReady(cfg *config.Config, deps map[string]db.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-NineKrua-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "down"
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
			checks[name] = "up"
		}

		checks["status"] = "ready"
		responses.WriteSuccess(w, checks)
	}
}
