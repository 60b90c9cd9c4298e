package http

import (
	"context"
	"net/http"
	"time"

	"github.com/merigaumata/authplatform/internal/auth/store"
	"github.com/merigaumata/authplatform/pkg/authsdk"
	"github.com/merigaumata/authplatform/pkg/httpx"
	"github.com/merigaumata/authplatform/pkg/jwtx"
	"github.com/merigaumata/authplatform/pkg/kvstore"
	"github.com/merigaumata/authplatform/pkg/slogx"
)

// readyTimeout bounds each dependency probe.
const readyTimeout = 2 * time.Second

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe returning service health status and checks for critical dependencies
//	@Description	Includes uptime, version, and status of database, signer, and cache components
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get]
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	keys *jwtx.KeyManager,
	cache kvstore.Store,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		log := slogx.FromContext(ctx)

		checks := &authsdk.HealthChecks{
			Database: "ok",
			Signer:   "ok",
			Cache:    "ok",
		}
		ready := true

		if err := st.Ping(ctx); err != nil {
			log.Warn("readiness: database unreachable", "error", err)
			checks.Database = "error"
			ready = false
		}

		if !keys.IsReady() {
			checks.Signer = "error: no signing key"
			ready = false
		}

		if err := cache.Ping(ctx); err != nil {
			log.Warn("readiness: cache unreachable", "error", err)
			checks.Cache = "error"
			ready = false
		}

		response := authsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		}
		statusCode := http.StatusOK
		if !ready {
			response.Status = "degraded"
			statusCode = http.StatusServiceUnavailable
		}
		httpx.WriteJSON(w, statusCode, response)
	}
}
