// Package localization decides how a sky event's localization goes into a
// bundle: as the text of a matching GCN notice, or as a HEALPix sky map
// fetched from the catalog.
package localization

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/skyportal/dump/blob"
	"github.com/skyportal/dump/catalog"
	"github.com/skyportal/dump/format"
	"github.com/skyportal/dump/telemetry"
)

var ErrUnknownLocalization = errors.New("localization not found in event")

// Catalog is the part of the catalog client the resolver needs.
type Catalog interface {
	GcnEvent(ctx context.Context, dateobs string) (int, catalog.GcnEvent, error)
	Localization(ctx context.Context, dateobs, name string) (int, catalog.Skymap, error)
}

// Result is a resolved localization. Exactly one of Notice and Skymap is
// set.
type Result struct {
	// Branch is the matcher the name was dispatched to.
	Branch Kind
	Notice *format.NoticeEvent
	Skymap *format.SkymapEvent
	File   blob.Info
}

// Record returns the gcn_event entry for the bundle.
func (r Result) Record() any {
	if r.Notice != nil {
		return *r.Notice
	}
	return *r.Skymap
}

type Resolver struct {
	catalog Catalog
	store   blob.Store
	metrics *telemetry.Telemetry
	logger  *slog.Logger
}

func NewResolver(c Catalog, store blob.Store, metrics *telemetry.Telemetry, logger *slog.Logger) *Resolver {
	return &Resolver{catalog: c, store: store, metrics: metrics, logger: logger}
}

// Check fetches the event and makes sure it has the named localization.
func (r *Resolver) Check(ctx context.Context, dateobs, name string) (catalog.GcnEvent, error) {
	status, event, err := r.catalog.GcnEvent(ctx, dateobs)
	if err != nil {
		return catalog.GcnEvent{}, err
	}
	if err := catalog.CheckStatus("gcn_event", status); err != nil {
		return catalog.GcnEvent{}, err
	}
	if !event.HasLocalization(name) {
		names := make([]string, 0, len(event.Localizations))
		for _, loc := range event.Localizations {
			names = append(names, loc.Name)
		}
		return catalog.GcnEvent{}, fmt.Errorf("%w: %q not in [%s]", ErrUnknownLocalization, name, strings.Join(names, ", "))
	}
	return event, nil
}

func (r *Resolver) Resolve(ctx context.Context, dateobs, name string) (Result, error) {
	l := r.logger.With("dateobs", dateobs, "localization", name)

	event, err := r.Check(ctx, dateobs, name)
	if err != nil {
		return Result{}, err
	}

	notices := noticeContents(event.Notices)
	res := Result{Branch: ClassifyName(name)}

	var notice string
	var found bool
	switch res.Branch {
	case Circular:
		notice, found = MatchCircular(name, notices)
	case SkymapFile:
		notice, found = MatchSkymapFile(name, notices)
	}
	l.Debug("matched notices", "branch", res.Branch, "candidates", len(notices), "found", found)

	if found {
		info, err := r.put(ctx, name+".txt", []byte(notice), "text/plain")
		if err != nil {
			return Result{}, err
		}
		res.File = info
		res.Notice = &format.NoticeEvent{XML: info.Location}
		l.Info("wrote notice", "file", info.Location)
		return res, nil
	}

	status, skymap, err := r.catalog.Localization(ctx, dateobs, name)
	if err != nil {
		return Result{}, err
	}
	if err := catalog.CheckStatus("localization", status); err != nil {
		return Result{}, err
	}
	if len(skymap.Flat2D) == 0 {
		return Result{}, fmt.Errorf("localization %s of %s has no sky map", name, dateobs)
	}

	var buf bytes.Buffer
	if err := WriteSkymap(&buf, skymap.Flat2D); err != nil {
		return Result{}, fmt.Errorf("encoding sky map: %w", err)
	}
	info, err := r.put(ctx, name+".fits", buf.Bytes(), "application/fits")
	if err != nil {
		return Result{}, err
	}

	res.File = info
	tags := event.Tags
	if tags == nil {
		tags = []string{}
	}
	res.Skymap = &format.SkymapEvent{Dateobs: dateobs, Skymap: info.Location, Tags: tags}
	l.Info("wrote sky map", "file", info.Location, "pixels", len(skymap.Flat2D), "size", humanize.Bytes(uint64(info.Size)))
	return res, nil
}

func (r *Resolver) put(ctx context.Context, key string, b []byte, contentType string) (blob.Info, error) {
	info, err := r.store.Put(ctx, key, bytes.NewReader(b), blob.PutOptions{ContentType: contentType})
	if err != nil {
		return blob.Info{}, fmt.Errorf("writing %s: %w", key, err)
	}
	r.metrics.AttachmentWritten(info.Size)
	return info, nil
}
