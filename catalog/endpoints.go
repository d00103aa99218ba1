package catalog

import (
	"context"
	"fmt"
	"net/http"
	"slices"
)

func (c *Client) Telescopes(ctx context.Context) (int, []Telescope, error) {
	return cached(ctx, c, "telescope", func(ctx context.Context) (int, []Telescope, error) {
		return get[[]Telescope](ctx, c, "telescope", "/telescope", nil)
	})
}

func (c *Client) Instruments(ctx context.Context) (int, []Instrument, error) {
	return cached(ctx, c, "instrument", func(ctx context.Context) (int, []Instrument, error) {
		return get[[]Instrument](ctx, c, "instrument", "/instrument", nil)
	})
}

type groupList struct {
	AllGroups []Group `json:"all_groups"`
}

// Groups lists every multi-user group the token can see.
func (c *Client) Groups(ctx context.Context) (int, []Group, error) {
	return cached(ctx, c, "groups", func(ctx context.Context) (int, []Group, error) {
		q := Query{}.Add("includeSingleUserGroups", false)
		status, data, err := get[groupList](ctx, c, "groups", "/groups", q)
		return status, data.AllGroups, err
	})
}

func (c *Client) TelescopesFromIDs(ctx context.Context, ids []int) (int, []Telescope, error) {
	status, all, err := c.Telescopes(ctx)
	return status, filterIDs(all, ids, func(t Telescope) int { return t.ID }), err
}

func (c *Client) InstrumentsFromIDs(ctx context.Context, ids []int) (int, []Instrument, error) {
	status, all, err := c.Instruments(ctx)
	return status, filterIDs(all, ids, func(i Instrument) int { return i.ID }), err
}

func (c *Client) GroupsFromIDs(ctx context.Context, ids []int) (int, []Group, error) {
	status, all, err := c.Groups(ctx)
	return status, filterIDs(all, ids, func(g Group) int { return g.ID }), err
}

func filterIDs[T any](all []T, ids []int, id func(T) int) []T {
	var out []T
	for _, item := range all {
		if slices.Contains(ids, id(item)) {
			out = append(out, item)
		}
	}
	return out
}

// SourceQuery holds the optional filters of GET /sources. Nil and empty
// values are left out of the query string.
type SourceQuery struct {
	NumPerPage          int
	StartDate           string
	EndDate             string
	LocalizationDateobs string
	LocalizationName    string
	LocalizationCumprob *float64
	NumberDetections    *int
}

func (sq SourceQuery) query(page int) Query {
	q := Query{}.
		Add("sortBy", "saved_at").
		Add("sortOrder", "desc").
		Add("numPerPage", sq.NumPerPage).
		Add("pageNumber", page)
	if sq.StartDate != "" {
		q = q.Add("startDate", sq.StartDate)
	}
	if sq.EndDate != "" {
		q = q.Add("endDate", sq.EndDate)
	}
	if sq.LocalizationCumprob != nil {
		q = q.Add("localizationCumprob", *sq.LocalizationCumprob)
	}
	if sq.NumberDetections != nil {
		q = q.Add("numberDetections", *sq.NumberDetections)
	}
	if sq.LocalizationDateobs != "" {
		q = q.Add("localizationDateobs", sq.LocalizationDateobs)
	}
	if sq.LocalizationName != "" {
		q = q.Add("localizationName", sq.LocalizationName)
	}
	return q
}

type sourceList struct {
	Sources []Source `json:"sources"`
}

func (c *Client) SourcesPage(ctx context.Context, sq SourceQuery, page int) (int, []Source, error) {
	status, data, err := get[sourceList](ctx, c, "sources", "/sources", sq.query(page))
	return status, data.Sources, err
}

func (c *Client) Photometry(ctx context.Context, sourceID string) (int, []Photometry, error) {
	q := Query{}.Add("format", "mag")
	return get[[]Photometry](ctx, c, "photometry", fmt.Sprintf("/sources/%s/photometry", sourceID), q)
}

// Allocations lists allocations, restricted to one instrument when
// instrumentID is set.
func (c *Client) Allocations(ctx context.Context, instrumentID *int) (int, []Allocation, error) {
	var q Query
	if instrumentID != nil {
		q = q.Add("instrument_id", *instrumentID)
	}
	return get[[]Allocation](ctx, c, "allocation", "/allocation", q)
}

// GcnEvent is memoized per dateobs: the event flow checks the localization
// before walking sources and resolves it afterwards from the same event.
func (c *Client) GcnEvent(ctx context.Context, dateobs string) (int, GcnEvent, error) {
	return cached(ctx, c, "gcn_event/"+dateobs, func(ctx context.Context) (int, GcnEvent, error) {
		return get[GcnEvent](ctx, c, "gcn_event", "/gcn_event/"+dateobs, nil)
	})
}

func (c *Client) Localization(ctx context.Context, dateobs, name string) (int, Skymap, error) {
	q := Query{}.Add("include2DMap", true)
	return get[Skymap](ctx, c, "localization", fmt.Sprintf("/localization/%s/name/%s", dateobs, name), q)
}

// FollowupQuery filters follow-up requests and their schedules.
type FollowupQuery struct {
	NumPerPage           int
	SourceID             string
	StartDate            string
	EndDate              string
	Status               string
	ObservationStartDate string
	ObservationEndDate   string
	OutputFormat         string
}

var scheduleFormats = []string{"png", "pdf", "csv"}

func (fq FollowupQuery) query(page int) Query {
	q := Query{}.
		Add("pageNumber", page).
		Add("numPerPage", fq.NumPerPage)
	for _, p := range []Param{
		{"source_id", fq.SourceID},
		{"startDate", fq.StartDate},
		{"endDate", fq.EndDate},
		{"status", fq.Status},
		{"observationStartDate", fq.ObservationStartDate},
		{"observationEndDate", fq.ObservationEndDate},
		{"output_format", fq.OutputFormat},
	} {
		if p.Value != "" {
			q = append(q, p)
		}
	}
	return q
}

func (c *Client) FollowupRequestsPage(ctx context.Context, fq FollowupQuery, page int) (int, FollowupPage, error) {
	return get[FollowupPage](ctx, c, "followup_request", "/followup_request", fq.query(page))
}

// FollowupSchedule returns the raw schedule file of one instrument. The
// output format must be png, pdf or csv.
func (c *Client) FollowupSchedule(ctx context.Context, instrumentID int, fq FollowupQuery) (int, []byte, error) {
	if !slices.Contains(scheduleFormats, fq.OutputFormat) {
		return 0, nil, fmt.Errorf("schedule output format %q: must be one of png, pdf, csv", fq.OutputFormat)
	}
	resp, err := c.call(ctx, "followup_schedule", http.MethodGet, fmt.Sprintf("/followup_request/schedule/%d", instrumentID), fq.query(1), nil)
	if err != nil {
		return 0, nil, err
	}
	if resp.Status != http.StatusOK {
		return resp.Status, nil, nil
	}
	return resp.Status, resp.Body, nil
}

// RetrieveObservations asks the catalog to pull executed observations of an
// allocation from the instrument's external archive.
func (c *Client) RetrieveObservations(ctx context.Context, req ExternalObservationRequest) (int, error) {
	resp, err := c.call(ctx, "observation", http.MethodPost, "/observation/external_api", nil, req)
	return resp.Status, err
}

func (c *Client) AnalysisServices(ctx context.Context) (int, []AnalysisService, error) {
	return get[[]AnalysisService](ctx, c, "analysis_service", "/analysis_service", nil)
}

// AnalysisService looks a service up by exact name. found is false when the
// listing succeeded but no service carries that name.
func (c *Client) AnalysisService(ctx context.Context, name string) (status int, svc AnalysisService, found bool, err error) {
	status, all, err := c.AnalysisServices(ctx)
	if err != nil || status != http.StatusOK {
		return status, svc, false, err
	}
	for _, s := range all {
		if s.Name == name {
			return status, s, true, nil
		}
	}
	return status, svc, false, nil
}

func (c *Client) StartAnalysis(ctx context.Context, sourceID string, serviceID int, req AnalysisRequest) (int, error) {
	resp, err := c.call(ctx, "analysis", http.MethodPost, fmt.Sprintf("/obj/%s/analysis/%d", sourceID, serviceID), nil, req)
	return resp.Status, err
}
