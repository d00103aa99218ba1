package dump

import (
	"context"
	"errors"
	"fmt"

	"github.com/skyportal/dump/catalog"
)

var ErrUnknownService = errors.New("analysis service not found")

// DefaultAnalysisRequest is the analysis every source is started with.
func DefaultAnalysisRequest() catalog.AnalysisRequest {
	return catalog.AnalysisRequest{
		AnalysisParameters: map[string]string{"source": "Me2017"},
		GroupIDs:           []int{2},
		ShowCorner:         true,
		ShowParameters:     true,
		ShowPlots:          true,
	}
}

// Observations asks the catalog to retrieve the executed observations of
// an allocation between the start and end dates.
func (e *Exporter) Observations(ctx context.Context) error {
	q := e.cfg.Query
	req := catalog.ExternalObservationRequest{
		AllocationID: *q.AllocationID,
		StartDate:    q.StartDate,
		EndDate:      q.EndDate,
	}

	status, err := e.catalog.RetrieveObservations(ctx, req)
	if err != nil {
		return err
	}
	if err := catalog.CheckStatus("observation", status); err != nil {
		return err
	}
	e.logger.Info("requested observations", "allocation", req.AllocationID, "start", req.StartDate, "end", req.EndDate)
	return nil
}

// Analysis starts the named analysis service on one source.
func (e *Exporter) Analysis(ctx context.Context) error {
	q := e.cfg.Query

	status, svc, found, err := e.catalog.AnalysisService(ctx, q.Service)
	if err != nil {
		return err
	}
	if err := catalog.CheckStatus("analysis_service", status); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %q", ErrUnknownService, q.Service)
	}

	status, err = e.catalog.StartAnalysis(ctx, q.SourceID, svc.ID, DefaultAnalysisRequest())
	if err != nil {
		return err
	}
	if err := catalog.CheckStatus("analysis", status); err != nil {
		return err
	}
	e.logger.Info("started analysis", "source", q.SourceID, "service", svc.Name, "service_id", svc.ID)
	return nil
}
