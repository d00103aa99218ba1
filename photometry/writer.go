package photometry

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/skyportal/dump/blob"
	"github.com/skyportal/dump/telemetry"
)

// Header is the CSV header of every partition file.
var Header = []string{"mjd", "filter", "mag", "magerr", "magsys", "limiting_mag", "ra", "dec", "ra_unc", "dec_unc", "origin"}

// Ref points at one written partition. Ids are still the catalog's; the
// caller remaps them.
type Ref struct {
	ObjID        string
	InstrumentID int
	GroupIDs     []int
	File         string
}

type Writer struct {
	store   blob.Store
	metrics *telemetry.Telemetry
	logger  *slog.Logger
}

func NewWriter(store blob.Store, metrics *telemetry.Telemetry, logger *slog.Logger) *Writer {
	return &Writer{store: store, metrics: metrics, logger: logger}
}

// Write stores each partition of sourceID and returns one Ref per
// partition, in order. No partitions means no files and no refs.
func (w *Writer) Write(ctx context.Context, sourceID string, parts []Partition) ([]Ref, error) {
	refs := make([]Ref, 0, len(parts))
	for _, p := range parts {
		file := p.FileName(sourceID)

		var buf bytes.Buffer
		if err := Encode(&buf, p.Points); err != nil {
			return refs, fmt.Errorf("encoding %s: %w", file, err)
		}

		info, err := w.store.Put(ctx, file, &buf, blob.PutOptions{ContentType: "text/csv"})
		if err != nil {
			return refs, fmt.Errorf("writing %s: %w", file, err)
		}
		w.metrics.PhotometryWritten(len(p.Points), p.Dropped)
		w.metrics.AttachmentWritten(info.Size)
		w.logger.Debug("wrote photometry", "file", file, "points", len(p.Points), "duplicates", p.Dropped, "size", humanize.Bytes(uint64(info.Size)))

		refs = append(refs, Ref{
			ObjID:        sourceID,
			InstrumentID: p.InstrumentID,
			GroupIDs:     p.GroupIDs,
			File:         file,
		})
	}
	return refs, nil
}

// Encode writes points as CSV with Header first. Absent values are empty
// cells.
func Encode(w io.Writer, points []Point) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, p := range points {
		row := []string{
			formatFloat(p.MJD),
			p.Filter,
			optFloatCell(p.Mag),
			optFloatCell(p.MagErr),
			optStringCell(p.MagSys),
			optFloatCell(p.LimitingMag),
			optFloatCell(p.RA),
			optFloatCell(p.Dec),
			optFloatCell(p.RAUnc),
			optFloatCell(p.DecUnc),
			optStringCell(p.Origin),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optFloatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func optStringCell(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
