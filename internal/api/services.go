package api

import "github.com/tagwright/tagwright-server/internal/service"

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Auth       *service.AuthService
	BulkUpdate *service.BulkUpdateService // Request lifecycle: submit, edit, approve, reject
	Taxonomy   *service.TaxonomyService   // Read-only tag, alias and implication queries
	Forum      *service.ForumService
	Notifier   *service.Notifier
}
