package dump

import (
	"context"
	"errors"

	"github.com/skyportal/dump/bundle"
	"github.com/skyportal/dump/catalog"
	"github.com/skyportal/dump/format"
	"github.com/skyportal/dump/localization"
	"github.com/skyportal/dump/log"
	"github.com/skyportal/dump/photometry"
)

// Event exports the sources found inside one localization of a sky event,
// shared with the public group only, together with the localization
// itself.
func (e *Exporter) Event(ctx context.Context) (*bundle.Document, error) {
	q := e.cfg.Query

	// A bad localization is reported before the source walk. The event is
	// memoized by the client, so resolving it later costs no request.
	resolver := localization.NewResolver(e.catalog, e.store, e.metrics, log.SubLogger(e.logger, "localization"))
	_, locErr := resolver.Check(ctx, q.LocalizationDateobs, q.LocalizationName)
	if locErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Error("localization unavailable, exporting sources without it", "dateobs", q.LocalizationDateobs, "localization", q.LocalizationName, "error", locErr)
	}

	sources, stopped, err := e.collectSources(ctx, catalog.SourceQuery{
		NumPerPage:          e.cfg.NumPerPage,
		StartDate:           q.StartDate,
		EndDate:             q.EndDate,
		LocalizationDateobs: q.LocalizationDateobs,
		LocalizationName:    q.LocalizationName,
		LocalizationCumprob: q.LocalizationCumprob,
		NumberDetections:    q.NumberDetections,
	})
	if err != nil {
		return nil, err
	}

	refs, err := e.photometry(ctx, sources, photometry.ByInstrument)
	if err != nil {
		return nil, err
	}

	instrumentIDs := make([]int, 0, len(refs))
	for _, r := range refs {
		instrumentIDs = append(instrumentIDs, r.InstrumentID)
	}
	instruments, telescopes, err := e.instrumentsAndTelescopes(ctx, instrumentIDs)
	if err != nil {
		return nil, err
	}

	events := []any{}
	if locErr == nil {
		res, err := resolver.Resolve(ctx, q.LocalizationDateobs, q.LocalizationName)
		if err != nil {
			e.logger.Error("resolving localization failed", "dateobs", q.LocalizationDateobs, "localization", q.LocalizationName, "error", err)
			locErr = err
		} else {
			events = append(events, res.Record())
		}
	}

	chk := e.integrity()
	telescopeRecs, telescopeTable := format.Telescopes(telescopes)
	instrumentRecs, instrumentTable, err := format.Instruments(instruments, telescopeTable)
	chk.fail("instrument", err)

	sourceRecs := make([]format.Source, 0, len(sources))
	for _, s := range sources {
		sourceRecs = append(sourceRecs, format.ToPublicSource(s))
	}

	photometryRecs := make([]format.PhotometryRef, 0, len(refs))
	for _, r := range refs {
		rec, err := format.ToPhotometryRef(r.ObjID, r.InstrumentID, nil, r.File, instrumentTable, nil)
		if err != nil {
			chk.fail("photometry", err)
			continue
		}
		photometryRecs = append(photometryRecs, rec)
	}

	var doc bundle.Document
	bundle.AddSection(&doc, "telescope", telescopeRecs)
	bundle.AddSection(&doc, "instrument", instrumentRecs)
	bundle.AddSection(&doc, "sources", sourceRecs)
	bundle.AddSection(&doc, "photometry", photometryRecs)
	bundle.AddSection(&doc, "gcn_event", events)
	return &doc, errors.Join(stopped, locErr, chk.err())
}
