package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/samber/do/v2"

	"github.com/tagwright/tagwright-server/internal/api"
	"github.com/tagwright/tagwright-server/internal/config"
	"github.com/tagwright/tagwright-server/internal/logger"
	"github.com/tagwright/tagwright-server/internal/metrics"
	"github.com/tagwright/tagwright-server/internal/service"
)

// shutdownTimeout bounds how long each handle waits while shutting down.
const shutdownTimeout = 30 * time.Second

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	handler *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.handler.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	prom := do.MustInvoke[*metrics.Prometheus](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Auth:       do.MustInvoke[*service.AuthService](i),
		BulkUpdate: do.MustInvoke[*service.BulkUpdateService](i),
		Taxonomy:   do.MustInvoke[*service.TaxonomyService](i),
		Forum:      do.MustInvoke[*service.ForumService](i),
		Notifier:   do.MustInvoke[*service.Notifier](i),
	}

	handler := api.NewServer(storeHandle.Store, services, sseHandle.Manager, prom, api.Options{
		AllowedOrigins:     cfg.Server.AllowedOrigins,
		BURCreatePerMinute: cfg.RateLimit.BURCreatePerMinute,
		LoginPerMinute:     cfg.RateLimit.LoginPerMinute,
	}, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv, handler: handler}, nil
}
