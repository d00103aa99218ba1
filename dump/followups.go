package dump

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/skyportal/dump/blob"
	"github.com/skyportal/dump/bundle"
	"github.com/skyportal/dump/catalog"
	"github.com/skyportal/dump/format"
	"github.com/skyportal/dump/pagination"
)

const defaultScheduleFormat = "csv"

var scheduleContentTypes = map[string]string{
	"csv": "text/csv",
	"pdf": "application/pdf",
	"png": "image/png",
}

func (e *Exporter) followupQuery() catalog.FollowupQuery {
	q := e.cfg.Query
	return catalog.FollowupQuery{
		NumPerPage: e.cfg.NumPerPage,
		SourceID:   q.SourceID,
		StartDate:  q.StartDate,
		EndDate:    q.EndDate,
	}
}

// Followups exports follow-up requests. With an instrument id set it
// downloads that instrument's schedule file instead and returns no
// document.
func (e *Exporter) Followups(ctx context.Context) (*bundle.Document, error) {
	if id := e.cfg.Query.InstrumentID; id != nil {
		return nil, e.schedule(ctx, *id)
	}

	fq := e.followupQuery()
	total := 0
	res, err := pagination.Collect(ctx, e.pacer, fq.NumPerPage, func(ctx context.Context, page pagination.Page) (int, []catalog.FollowupRequest, error) {
		status, data, err := e.catalog.FollowupRequestsPage(ctx, fq, page.Number)
		if status == http.StatusOK {
			total = data.TotalMatches
		}
		return status, data.Requests, err
	})
	if err != nil {
		return nil, err
	}

	var stopped error
	if res.Failed {
		stopped = &catalog.StatusError{Endpoint: "followup_request", Status: res.Status}
		e.logger.Error("stopped fetching follow-up requests", "status", res.Status, "kept", len(res.Items))
	}
	e.logger.Info("fetched follow-up requests", "count", len(res.Items), "matches", total, "pages", res.Calls)

	recs := make([]format.FollowupRequest, 0, len(res.Items))
	for _, f := range res.Items {
		recs = append(recs, format.ToFollowupRequest(f))
	}

	var doc bundle.Document
	bundle.AddSection(&doc, "followup_requests", recs)
	return &doc, stopped
}

func (e *Exporter) schedule(ctx context.Context, instrumentID int) error {
	fq := e.followupQuery()
	fq.OutputFormat = e.cfg.Query.OutputFormat
	if fq.OutputFormat == "" {
		fq.OutputFormat = defaultScheduleFormat
	}

	status, body, err := e.catalog.FollowupSchedule(ctx, instrumentID, fq)
	if err != nil {
		return err
	}
	if err := catalog.CheckStatus("followup_schedule", status); err != nil {
		return err
	}

	key := fmt.Sprintf("followup_requests_%d.%s", instrumentID, fq.OutputFormat)
	info, err := e.store.Put(ctx, key, bytes.NewReader(body), blob.PutOptions{ContentType: scheduleContentTypes[fq.OutputFormat]})
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	e.metrics.AttachmentWritten(info.Size)
	e.logger.Info("wrote schedule", "instrument", instrumentID, "file", info.Location, "size", humanize.Bytes(uint64(info.Size)))
	return nil
}
