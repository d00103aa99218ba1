// Package dump runs the export pipelines behind the skydump commands. Each
// pipeline fetches from the catalog through one shared pacer, writes its
// attachments to the run's blob store and returns the bundle document.
package dump

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/skyportal/dump/blob"
	"github.com/skyportal/dump/bundle"
	"github.com/skyportal/dump/catalog"
	"github.com/skyportal/dump/config"
	"github.com/skyportal/dump/log"
	"github.com/skyportal/dump/pagination"
	"github.com/skyportal/dump/telemetry"
	"go.opentelemetry.io/otel"
)

type Exporter struct {
	cfg     *config.Config
	catalog *catalog.Client
	pacer   *pagination.Pacer
	store   blob.Store
	metrics *telemetry.Telemetry
	logger  *slog.Logger
}

func NewExporter(cfg *config.Config, store blob.Store, metrics *telemetry.Telemetry, logger *slog.Logger) *Exporter {
	client := catalog.New(catalog.Options{
		URL:     cfg.SkyPortal.URL,
		Token:   cfg.SkyPortal.Token,
		Timeout: cfg.SkyPortal.Timeout,
		Tracer:  otel.Tracer("skydump/catalog"),
	}, metrics, log.SubLogger(logger, "catalog"))

	pacer := pagination.NewPacer(
		cfg.SkyPortal.Whitelisted,
		cfg.Pacing.Every,
		cfg.Pacing.Pause,
		metrics,
		log.SubLogger(logger, "pacer"),
	)

	return &Exporter{
		cfg:     cfg,
		catalog: client,
		pacer:   pacer,
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// Save writes the document (when there is one), config_used.yaml and
// metrics.prom. It writes as much as it can and joins the failures.
func (e *Exporter) Save(ctx context.Context, doc *bundle.Document) error {
	var errs []error

	if doc != nil {
		info, err := bundle.Save(ctx, e.store, doc)
		if err != nil {
			errs = append(errs, err)
		} else {
			e.metrics.AttachmentWritten(info.Size)
			e.logger.Info("wrote bundle", "file", info.Location, "sections", len(doc.Sections()), "size", humanize.Bytes(uint64(info.Size)))
		}
	}

	if _, err := bundle.SaveParams(ctx, e.store, e.params()); err != nil {
		errs = append(errs, err)
	}

	if info, err := e.metrics.Save(ctx, e.store); err != nil {
		errs = append(errs, err)
	} else {
		e.logger.Debug("wrote metrics", "file", info.Location)
	}

	return errors.Join(errs...)
}

func (e *Exporter) params() []bundle.Param {
	q := e.cfg.Query
	return []bundle.Param{
		{Key: config.ParamLocalizationDateobs, Value: optional(q.LocalizationDateobs)},
		{Key: config.ParamLocalizationName, Value: optional(q.LocalizationName)},
		{Key: config.ParamStartDate, Value: optional(q.StartDate)},
		{Key: config.ParamEndDate, Value: optional(q.EndDate)},
		{Key: "numPerPage", Value: e.cfg.NumPerPage},
		{Key: config.ParamURL, Value: e.cfg.SkyPortal.URL},
		{Key: config.ParamToken, Value: e.cfg.MaskedToken()},
	}
}

// optional maps an unset string parameter to YAML null.
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// collectSources pages through GET /sources. A page that fails stops the
// walk: the sources fetched so far are returned with stopped set, and err is
// only set when nothing usable came back.
func (e *Exporter) collectSources(ctx context.Context, sq catalog.SourceQuery) (sources []catalog.Source, stopped error, err error) {
	res, err := pagination.Collect(ctx, e.pacer, sq.NumPerPage, func(ctx context.Context, page pagination.Page) (int, []catalog.Source, error) {
		e.logger.Debug("fetching sources", "page", page.Number)
		return e.catalog.SourcesPage(ctx, sq, page.Number)
	})
	if err != nil {
		return nil, nil, err
	}
	if res.Failed {
		stopped = &catalog.StatusError{Endpoint: "sources", Status: res.Status}
		e.logger.Error("stopped fetching sources", "status", res.Status, "kept", len(res.Items))
	}
	e.logger.Info("fetched sources", "count", len(res.Items), "pages", res.Calls)
	return res.Items, stopped, nil
}

// integrity collects the records dropped for unresolved references.
type integrity struct {
	metrics *telemetry.Telemetry
	logger  *slog.Logger
	errs    []error
}

func (e *Exporter) integrity() *integrity {
	return &integrity{metrics: e.metrics, logger: e.logger}
}

func (i *integrity) fail(kind string, err error) {
	if err == nil {
		return
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, err := range joined.Unwrap() {
			i.fail(kind, err)
		}
		return
	}
	i.metrics.IntegrityFailure(kind)
	i.logger.Warn("dropping record", "kind", kind, "error", err)
	i.errs = append(i.errs, err)
}

func (i *integrity) err() error {
	return errors.Join(i.errs...)
}

// uniqueIDs returns the distinct ids in ascending order.
func uniqueIDs(ids []int) []int {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
