// Package di provides dependency injection configuration for the tagwright server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/tagwright/tagwright-server/internal/auth"
	"github.com/tagwright/tagwright-server/internal/config"
	"github.com/tagwright/tagwright-server/internal/di/providers"
	"github.com/tagwright/tagwright-server/internal/logger"
	"github.com/tagwright/tagwright-server/internal/metrics"
	"github.com/tagwright/tagwright-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideMetrics)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Workers
	do.Provide(injector, providers.ProvideJobRunner)

	// Business services
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideForumService)
	do.Provide(injector, providers.ProvideNotifier)
	do.Provide(injector, providers.ProvideApplier)
	do.Provide(injector, providers.ProvideBulkUpdateService)
	do.Provide(injector, providers.ProvideTaxonomyService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services.
// This triggers lazy initialization of every provider so failures surface at startup.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*metrics.Prometheus](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)
	_ = do.MustInvoke[*providers.JobRunnerHandle](injector)

	// Business services
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.BulkUpdateService](injector)
	_ = do.MustInvoke[*service.TaxonomyService](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
