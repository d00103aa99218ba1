package dump

import (
	"context"
	"errors"
	"net/http"

	"github.com/skyportal/dump/bundle"
	"github.com/skyportal/dump/catalog"
	"github.com/skyportal/dump/format"
	"github.com/skyportal/dump/refresolver"
)

// Instruments exports every telescope and instrument with the allocations
// of each instrument. Allocations are given to the public group.
func (e *Exporter) Instruments(ctx context.Context) (*bundle.Document, error) {
	status, telescopes, err := e.catalog.Telescopes(ctx)
	if err != nil {
		return nil, err
	}
	if err := catalog.CheckStatus("telescope", status); err != nil {
		return nil, err
	}
	status, instruments, err := e.catalog.Instruments(ctx)
	if err != nil {
		return nil, err
	}
	if err := catalog.CheckStatus("instrument", status); err != nil {
		return nil, err
	}
	instruments = refresolver.Dedup(instruments, func(i catalog.Instrument) int { return i.ID })
	e.logger.Info("fetched instruments", "telescopes", len(telescopes), "instruments", len(instruments))

	var allocations []catalog.Allocation
	var failed []error
	for _, i := range instruments {
		id := i.ID
		status, data, err := e.catalog.Allocations(ctx, &id)
		if err != nil {
			return nil, err
		}
		if err := e.pacer.Tick(ctx); err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			e.logger.Warn("fetching allocations failed", "instrument", i.Name, "status", status)
			failed = append(failed, &catalog.StatusError{Endpoint: "allocation", Status: status})
			continue
		}
		allocations = append(allocations, data...)
	}
	e.logger.Info("fetched allocations", "count", len(allocations))

	chk := e.integrity()
	telescopeRecs, telescopeTable := format.Telescopes(telescopes)
	instrumentRecs, instrumentTable, err := format.Instruments(instruments, telescopeTable)
	chk.fail("instrument", err)
	allocationRecs := e.allocations(chk, allocations, instrumentTable)

	var doc bundle.Document
	bundle.AddSection(&doc, "groups", []format.Group{format.PublicGroup()})
	bundle.AddSection(&doc, "telescope", telescopeRecs)
	bundle.AddSection(&doc, "instrument", instrumentRecs)
	bundle.AddSection(&doc, "allocation", allocationRecs)
	return &doc, errors.Join(append(failed, chk.err())...)
}

// Allocations exports the allocations of one instrument with that
// instrument and its telescope.
func (e *Exporter) Allocations(ctx context.Context) (*bundle.Document, error) {
	id := *e.cfg.Query.InstrumentID

	status, allocations, err := e.catalog.Allocations(ctx, &id)
	if err != nil {
		return nil, err
	}
	if err := catalog.CheckStatus("allocation", status); err != nil {
		return nil, err
	}
	instruments, telescopes, err := e.instrumentsAndTelescopes(ctx, []int{id})
	if err != nil {
		return nil, err
	}
	e.logger.Info("fetched allocations", "instrument", id, "count", len(allocations))

	chk := e.integrity()
	telescopeRecs, telescopeTable := format.Telescopes(telescopes)
	instrumentRecs, instrumentTable, err := format.Instruments(instruments, telescopeTable)
	chk.fail("instrument", err)
	allocationRecs := e.allocations(chk, allocations, instrumentTable)

	var doc bundle.Document
	bundle.AddSection(&doc, "telescope", telescopeRecs)
	bundle.AddSection(&doc, "instrument", instrumentRecs)
	bundle.AddSection(&doc, "allocation", allocationRecs)
	return &doc, chk.err()
}

func (e *Exporter) allocations(chk *integrity, allocations []catalog.Allocation, instruments *refresolver.Table) []format.Allocation {
	out := make([]format.Allocation, 0, len(allocations))
	for _, a := range refresolver.Dedup(allocations, func(a catalog.Allocation) int { return a.ID }) {
		rec, err := format.ToAllocation(a, instruments, nil)
		if err != nil {
			chk.fail("allocation", err)
			continue
		}
		out = append(out, rec)
	}
	return out
}
