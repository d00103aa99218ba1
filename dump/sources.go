package dump

import (
	"context"
	"errors"
	"net/http"

	"github.com/skyportal/dump/bundle"
	"github.com/skyportal/dump/catalog"
	"github.com/skyportal/dump/format"
	"github.com/skyportal/dump/photometry"
)

// Sources exports sources with their photometry split by instrument and
// group set, plus the groups, instruments and telescopes they refer to.
func (e *Exporter) Sources(ctx context.Context) (*bundle.Document, error) {
	q := e.cfg.Query
	sources, stopped, err := e.collectSources(ctx, catalog.SourceQuery{
		NumPerPage:          e.cfg.NumPerPage,
		StartDate:           q.StartDate,
		EndDate:             q.EndDate,
		LocalizationDateobs: q.LocalizationDateobs,
		LocalizationName:    q.LocalizationName,
	})
	if err != nil {
		return nil, err
	}

	refs, err := e.photometry(ctx, sources, photometry.ByInstrumentAndGroups)
	if err != nil {
		return nil, err
	}

	var groupIDs, instrumentIDs []int
	for _, s := range sources {
		groupIDs = append(groupIDs, s.GroupIDs()...)
	}
	for _, r := range refs {
		groupIDs = append(groupIDs, r.GroupIDs...)
		instrumentIDs = append(instrumentIDs, r.InstrumentID)
	}

	status, groups, err := e.catalog.GroupsFromIDs(ctx, uniqueIDs(groupIDs))
	if err != nil {
		return nil, err
	}
	if err := catalog.CheckStatus("groups", status); err != nil {
		return nil, err
	}
	instruments, telescopes, err := e.instrumentsAndTelescopes(ctx, instrumentIDs)
	if err != nil {
		return nil, err
	}

	chk := e.integrity()
	groupRecs, groupTable := format.Groups(groups)
	telescopeRecs, telescopeTable := format.Telescopes(telescopes)
	instrumentRecs, instrumentTable, err := format.Instruments(instruments, telescopeTable)
	chk.fail("instrument", err)

	sourceRecs := make([]format.Source, 0, len(sources))
	for _, s := range sources {
		rec, err := format.ToSource(s, groupTable)
		if err != nil {
			chk.fail("source", err)
			continue
		}
		sourceRecs = append(sourceRecs, rec)
	}

	photometryRecs := make([]format.PhotometryRef, 0, len(refs))
	for _, r := range refs {
		rec, err := format.ToPhotometryRef(r.ObjID, r.InstrumentID, r.GroupIDs, r.File, instrumentTable, groupTable)
		if err != nil {
			chk.fail("photometry", err)
			continue
		}
		photometryRecs = append(photometryRecs, rec)
	}

	var doc bundle.Document
	bundle.AddSection(&doc, "groups", groupRecs)
	bundle.AddSection(&doc, "telescope", telescopeRecs)
	bundle.AddSection(&doc, "instrument", instrumentRecs)
	bundle.AddSection(&doc, "sources", sourceRecs)
	bundle.AddSection(&doc, "photometry", photometryRecs)
	return &doc, errors.Join(stopped, chk.err())
}

// photometry fetches and writes the photometry of every source, one paced
// request per source. A source whose photometry cannot be fetched is
// exported without any.
func (e *Exporter) photometry(ctx context.Context, sources []catalog.Source, mode photometry.Mode) ([]photometry.Ref, error) {
	w := photometry.NewWriter(e.store, e.metrics, e.logger)

	var refs []photometry.Ref
	points := 0
	for i, s := range sources {
		status, data, err := e.catalog.Photometry(ctx, s.ID)
		if tickErr := e.pacer.Tick(ctx); tickErr != nil {
			return refs, tickErr
		}
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return refs, ctx.Err()
			}
			e.logger.Warn("fetching photometry failed", "source", s.ID, "error", err)
			data = nil
		case status != http.StatusOK:
			e.logger.Warn("fetching photometry failed", "source", s.ID, "status", status)
			data = nil
		}

		parts := photometry.Split(data, mode)
		written, err := w.Write(ctx, s.ID, parts)
		if err != nil {
			return refs, err
		}
		refs = append(refs, written...)
		for _, p := range parts {
			points += len(p.Points)
		}
		e.logger.Debug("exported photometry", "source", s.ID, "n", i+1, "of", len(sources), "files", len(written))
	}

	e.logger.Info("fetched photometry", "sources", len(sources), "files", len(refs), "points", points)
	return refs, nil
}

// instrumentsAndTelescopes fetches the instruments with the given ids and
// the telescopes they are mounted on.
func (e *Exporter) instrumentsAndTelescopes(ctx context.Context, instrumentIDs []int) ([]catalog.Instrument, []catalog.Telescope, error) {
	status, instruments, err := e.catalog.InstrumentsFromIDs(ctx, uniqueIDs(instrumentIDs))
	if err != nil {
		return nil, nil, err
	}
	if err := catalog.CheckStatus("instrument", status); err != nil {
		return nil, nil, err
	}

	telescopeIDs := make([]int, 0, len(instruments))
	for _, i := range instruments {
		telescopeIDs = append(telescopeIDs, i.TelescopeID)
	}
	status, telescopes, err := e.catalog.TelescopesFromIDs(ctx, uniqueIDs(telescopeIDs))
	if err != nil {
		return nil, nil, err
	}
	if err := catalog.CheckStatus("telescope", status); err != nil {
		return nil, nil, err
	}
	return instruments, telescopes, nil
}
