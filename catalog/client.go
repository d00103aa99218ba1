package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"
	"github.com/skyportal/dump/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Options configures a catalog client.
type Options struct {
	// URL of the SkyPortal instance, without the /api suffix.
	URL     string
	Token   string
	Timeout time.Duration
	// Tracer records one span per request. Optional.
	Tracer trace.Tracer
}

// Client performs single, unretried round trips against the catalog API.
// A non-2xx status is returned as data; errors are reserved for requests
// that never produced a response.
type Client struct {
	http    *resty.Client
	memo    *cache.Cache
	metrics *telemetry.Telemetry
	tracer  trace.Tracer
	logger  *slog.Logger
}

func New(opts Options, metrics *telemetry.Telemetry, logger *slog.Logger) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(opts.URL, "/")+"/api").
		SetTimeout(timeout).
		SetRetryCount(0).
		SetAuthScheme("token").
		SetAuthToken(opts.Token).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "skydump/"+versioninfo.Short()).
		SetLogger(restyLogger{logger})

	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("catalog")
	}

	return &Client{
		http:    rc,
		memo:    cache.New(cache.NoExpiration, 0),
		metrics: metrics,
		tracer:  tracer,
		logger:  logger,
	}
}

// Param is one key=value pair of a query string.
type Param struct {
	Key   string
	Value any
}

// Query is an ordered list of parameters. Pairs are joined naively with
// '=' and '&'; only characters that may not appear in a URL at all are
// percent-encoded, so reserved characters such as ',' and ':' reach the
// server unchanged.
type Query []Param

func (q Query) Add(key string, value any) Query {
	return append(q, Param{Key: key, Value: value})
}

func (q Query) Encode() string {
	parts := make([]string, 0, len(q))
	for _, p := range q {
		parts = append(parts, requote(p.Key)+"="+requote(formatValue(p.Value)))
	}
	return strings.Join(parts, "&")
}

// requote percent-encodes the bytes that are illegal in a URL. Unreserved
// and reserved characters are kept, and so is an existing valid escape.
func requote(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(c)
		case strings.IndexByte(urlSafe, c) >= 0:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

const urlSafe = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~!#$&'()*+,/:;=?@[]"

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

// formatValue renders booleans capitalised, the way the catalog's own clients send them
// (True/False); the server parses either spelling.
func formatValue(v any) string {
	switch t := v.(type) {
	case bool:
		if t {
			return "True"
		}
		return "False"
	case string:
		return t
	default:
		return fmt.Sprint(v)
	}
}

// Response is a raw catalog response.
type Response struct {
	Status int
	Body   []byte
}

func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Call issues one request. path is relative to /api.
func (c *Client) Call(ctx context.Context, method, path string, query Query, body any) (Response, error) {
	return c.call(ctx, endpointName(path), method, path, query, body)
}

func (c *Client) call(ctx context.Context, endpoint, method, path string, query Query, body any) (Response, error) {
	l := c.logger.With("method", method, "path", path)

	ctx, span := c.tracer.Start(ctx, "catalog."+endpoint, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
	))
	defer span.End()

	target := path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		l.Error("catalog request failed", "error", err)
		return Response{}, fmt.Errorf("%s %s: %w", method, path, err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode()))
	if !resp.IsSuccess() {
		span.SetStatus(codes.Error, resp.Status())
	}
	c.metrics.CatalogRequest(endpoint, resp.StatusCode())
	l.Debug("catalog response", "status", resp.StatusCode(), "duration", resp.Time())

	return Response{Status: resp.StatusCode(), Body: resp.Body()}, nil
}

type envelope[T any] struct {
	Data T `json:"data"`
}

// decode unwraps the {"data": ...} envelope. Bodies of non-200 responses
// are not decoded and the zero value is returned.
func decode[T any](resp Response) (T, error) {
	var env envelope[T]
	if resp.Status != http.StatusOK {
		return env.Data, nil
	}
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return env.Data, fmt.Errorf("decoding response: %w", err)
	}
	return env.Data, nil
}

func get[T any](ctx context.Context, c *Client, endpoint, path string, query Query) (int, T, error) {
	resp, err := c.call(ctx, endpoint, http.MethodGet, path, query, nil)
	if err != nil {
		var zero T
		return 0, zero, err
	}
	data, err := decode[T](resp)
	return resp.Status, data, err
}

// cached memoizes a lookup for the lifetime of the client, so repeated
// metadata lookups within a run hit the catalog once. Failed fetches are
// not cached.
func cached[T any](ctx context.Context, c *Client, key string, fetch func(context.Context) (int, T, error)) (int, T, error) {
	if v, ok := c.memo.Get(key); ok {
		return http.StatusOK, v.(T), nil
	}
	status, v, err := fetch(ctx)
	if err == nil && status == http.StatusOK {
		c.memo.Set(key, v, cache.NoExpiration)
	}
	return status, v, err
}

func endpointName(path string) string {
	p := strings.Trim(path, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "root"
	}
	return p
}

type restyLogger struct {
	l *slog.Logger
}

func (r restyLogger) Errorf(format string, v ...any) { r.l.Error(fmt.Sprintf(format, v...)) }
func (r restyLogger) Warnf(format string, v ...any)  { r.l.Warn(fmt.Sprintf(format, v...)) }
func (r restyLogger) Debugf(format string, v ...any) { r.l.Debug(fmt.Sprintf(format, v...)) }
