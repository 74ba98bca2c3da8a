package providers

import (
	"github.com/samber/do/v2"

	"github.com/tagwright/tagwright-server/internal/auth"
	"github.com/tagwright/tagwright-server/internal/config"
	"github.com/tagwright/tagwright-server/internal/logger"
	"github.com/tagwright/tagwright-server/internal/metrics"
	"github.com/tagwright/tagwright-server/internal/service"
	"github.com/tagwright/tagwright-server/internal/taxonomy"
)

// ProvideValidator provides the taxonomy validator.
func ProvideValidator(i do.Injector) (*taxonomy.Validator, error) {
	return &taxonomy.Validator{}, nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, log.Logger), nil
}

// ProvideForumService provides the forum updater.
func ProvideForumService(i do.Injector) (*service.ForumService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewForumService(storeHandle.Store, cfg.Forum.TopicPrefix, log.Logger), nil
}

// ProvideNotifier provides the user notifier.
func ProvideNotifier(i do.Injector) (*service.Notifier, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewNotifier(storeHandle.Store, sseHandle.Manager, log.Logger), nil
}

// ProvideApplier provides the action applier.
func ProvideApplier(i do.Injector) (*service.Applier, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*taxonomy.Validator](i)
	prom := do.MustInvoke[*metrics.Prometheus](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewApplier(storeHandle.Store, validator, prom, log.Logger), nil
}

// ProvideBulkUpdateService provides the bulk update request service.
func ProvideBulkUpdateService(i do.Injector) (*service.BulkUpdateService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	runner := do.MustInvoke[*JobRunnerHandle](i)
	applier := do.MustInvoke[*service.Applier](i)
	forum := do.MustInvoke[*service.ForumService](i)
	notifier := do.MustInvoke[*service.Notifier](i)
	validator := do.MustInvoke[*taxonomy.Validator](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	prom := do.MustInvoke[*metrics.Prometheus](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBulkUpdateService(
		storeHandle.Store,
		runner.Runner,
		applier,
		forum,
		notifier,
		validator,
		sseHandle.Manager,
		prom,
		log.Logger,
	), nil
}

// ProvideTaxonomyService provides read-only taxonomy queries.
func ProvideTaxonomyService(i do.Injector) (*service.TaxonomyService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTaxonomyService(storeHandle.Store, log.Logger), nil
}
