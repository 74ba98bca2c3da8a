package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/samber/do/v2"

	"github.com/tagwright/tagwright-server/internal/config"
	"github.com/tagwright/tagwright-server/internal/di"
	domainerrors "github.com/tagwright/tagwright-server/internal/errors"
	"github.com/tagwright/tagwright-server/internal/logger"
	"github.com/tagwright/tagwright-server/internal/service"
)

// app gives commands access to the server's services through the same
// container the API uses. Nothing listens on the network: the HTTP server
// provider is never invoked.
type app struct {
	injector *do.RootScope
	cfg      *config.Config
	log      *logger.Logger
}

func openApp(flags *globalFlags) (*app, error) {
	args := []string{
		"-env-file", flags.envFile,
		"-log-level", flags.logLevel,
		// Approvals must finish before the process exits.
		"-job-inline", "true",
	}
	if flags.dbPath != "" {
		args = append(args, "-db-path", flags.dbPath)
	}

	cfg, err := config.Load(args)
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{
		Writer:      os.Stderr,
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	injector := di.NewContainer()
	do.OverrideValue(injector, cfg)
	do.OverrideValue(injector, log)

	return &app{injector: injector, cfg: cfg, log: log}, nil
}

func (a *app) Close() {
	if report := a.injector.Shutdown(); !report.Succeed {
		a.log.Error("Shutdown error", "error", report.Error())
	}
}

func (a *app) bulkUpdates() (*service.BulkUpdateService, error) {
	return do.Invoke[*service.BulkUpdateService](a.injector)
}

func (a *app) auth() (*service.AuthService, error) {
	return do.Invoke[*service.AuthService](a.injector)
}

// printError writes err and whatever detail it carries: per-action results
// of a failed approval or the messages of a rejected script.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	var applyErr *service.ApplyError
	if domainerrors.As(err, &applyErr) {
		for _, failure := range applyErr.Failures() {
			fmt.Fprintf(w, "  - %s\n", failure)
		}
		return
	}

	var domainErr *domainerrors.Error
	if !domainerrors.As(err, &domainErr) || domainErr.Details == nil {
		return
	}
	switch details := domainErr.Details.(type) {
	case []string:
		for _, d := range details {
			fmt.Fprintf(w, "  - %s\n", d)
		}
	default:
		b, err := json.MarshalIndent(details, "  ", "  ")
		if err == nil {
			fmt.Fprintf(w, "  %s\n", b)
		}
	}
}
