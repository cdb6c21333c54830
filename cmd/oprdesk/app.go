package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"oprdesk/internal/adapters/httpapi"
	"oprdesk/internal/assist"
	"oprdesk/internal/blob"
	"oprdesk/internal/config"
	"oprdesk/internal/core"
	"oprdesk/internal/draft"
	"oprdesk/internal/export"
	"oprdesk/internal/logging"
	"oprdesk/internal/persistence"
	"oprdesk/internal/upload"
	"oprdesk/internal/view"
)

// app holds the services shared by every command.
type app struct {
	cfg      *config.Config
	log      logging.Adapter
	blobs    blob.Store
	store    persistence.Store
	registry *prometheus.Registry
	reports  *core.Service
	exporter *export.Exporter
	chrome   *export.ChromePrinter
	uploads  *upload.Service
	assist   *assist.Service
}

func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg := opts.cfg
	log := logging.Adapt(opts.logger)

	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	store, err := persistence.Open(ctx, cfg.Storage, blobs)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := core.NewPrometheusMetricsRecorder(registry)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &app{cfg: cfg, log: log, blobs: blobs, store: store, registry: registry}
	a.reports = core.NewService(ctx, store,
		core.WithLogger(log.Named("store")),
		core.WithMetricsRecorder(metrics),
	)

	printer := opts.printer
	if printer == nil {
		a.chrome = export.NewChromePrinter(cfg.Chrome)
		printer = a.chrome
	}
	a.exporter = export.New(printer, blobs,
		export.WithLayout(cfg.Layout),
		export.WithLogger(log.Named("export")),
	)

	sink, err := upload.Open(cfg.Upload, blobs, nil)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open upload sink: %w", err)
	}
	a.uploads = upload.NewService(sink)

	var model assist.Model
	if cfg.AssistEnabled() {
		gemini, err := assist.NewGemini(ctx, cfg.GenAI)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		model = gemini
	}
	a.assist = assist.NewService(model, assist.WithLogger(log.Named("assist")))

	log.Info("oprdesk ready",
		"storage", store.Driver(),
		"blob", blobs.Driver(),
		"upload", a.uploads.SinkName(),
		"assist", a.assist.Available(),
		"reports", a.reports.Len(),
	)
	return a, nil
}

// handler builds the HTTP API with a fresh draft registry and view controller.
func (a *app) handler() http.Handler {
	drafts := draft.NewRegistry(nil,
		draft.WithIdleTTL(a.cfg.Drafts.IdleTTL),
		draft.WithMaxOpen(a.cfg.Drafts.MaxOpen),
	)
	h := httpapi.NewHandler(a.reports, drafts, view.NewController())
	h.Assist = a.assist
	h.Exports = a.exporter
	h.Uploads = a.uploads
	h.Metrics = promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
	h.Logger = a.log.Named("http")
	h.MaxUploadBytes = a.cfg.HTTP.MaxUploadBytes
	return h
}

func (a *app) Close() error {
	var errs []error
	if a.chrome != nil {
		errs = append(errs, a.chrome.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}
