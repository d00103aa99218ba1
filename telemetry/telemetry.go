package telemetry

import (
	"bytes"
	"context"
	"io"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/skyportal/dump/blob"
)

const namespace = "skydump"

// MetricsFile is the bundle file the counters are saved to.
const MetricsFile = "metrics.prom"

// Telemetry collects the counters of one export run on a private registry.
// A nil *Telemetry is valid and records nothing.
type Telemetry struct {
	registry *prometheus.Registry

	requests          *prometheus.CounterVec
	pauses            prometheus.Counter
	photometryPoints  prometheus.Counter
	duplicates        prometheus.Counter
	attachmentBytes   prometheus.Counter
	integrityFailures *prometheus.CounterVec
}

func New() *Telemetry {
	t := &Telemetry{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_requests_total",
			Help:      "Catalog API requests issued, by endpoint and HTTP status code.",
		}, []string{"endpoint", "code"}),
		pauses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_pauses_total",
			Help:      "Pauses taken by the request pacer.",
		}),
		photometryPoints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "photometry_points_total",
			Help:      "Photometry points written to attachment files.",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "photometry_duplicates_total",
			Help:      "Photometry points dropped as duplicates.",
		}),
		attachmentBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachment_bytes_total",
			Help:      "Bytes written to bundle files.",
		}),
		integrityFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "integrity_failures_total",
			Help:      "Records dropped because a reference could not be resolved, by entity kind.",
		}, []string{"kind"}),
	}

	t.registry.MustRegister(
		t.requests,
		t.pauses,
		t.photometryPoints,
		t.duplicates,
		t.attachmentBytes,
		t.integrityFailures,
	)
	return t
}

func (t *Telemetry) Registry() *prometheus.Registry {
	if t == nil {
		return nil
	}
	return t.registry
}

func (t *Telemetry) CatalogRequest(endpoint string, code int) {
	if t == nil {
		return
	}
	t.requests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
}

func (t *Telemetry) Pause() {
	if t == nil {
		return
	}
	t.pauses.Inc()
}

func (t *Telemetry) PhotometryWritten(points, dropped int) {
	if t == nil {
		return
	}
	t.photometryPoints.Add(float64(points))
	t.duplicates.Add(float64(dropped))
}

func (t *Telemetry) AttachmentWritten(size int64) {
	if t == nil {
		return
	}
	t.attachmentBytes.Add(float64(size))
}

func (t *Telemetry) IntegrityFailure(kind string) {
	if t == nil {
		return
	}
	t.integrityFailures.WithLabelValues(kind).Inc()
}

// WriteText renders every metric in the Prometheus text exposition format.
func (t *Telemetry) WriteText(w io.Writer) error {
	if t == nil {
		return nil
	}
	families, err := t.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the counters to metrics.prom in store.
func (t *Telemetry) Save(ctx context.Context, store blob.Store) (blob.Info, error) {
	var buf bytes.Buffer
	if err := t.WriteText(&buf); err != nil {
		return blob.Info{}, err
	}
	return store.Put(ctx, MetricsFile, &buf, blob.PutOptions{ContentType: string(expfmt.NewFormat(expfmt.TypeTextPlain))})
}
