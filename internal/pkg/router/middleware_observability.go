package router

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/julienschmidt/httprouter"
	"github.com/samber/lo"
	"github.com/shandysiswandi/melody/internal/pkg/config"
	"github.com/shandysiswandi/melody/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const maxLoggedBodyBytes = 16 * 1024

// responseRecorder captures status, size, the handler error and, when body
// logging is on, the first maxLoggedBodyBytes of the response.
type responseRecorder struct {
	http.ResponseWriter
	status    int
	written   int
	err       error
	body      *bytes.Buffer
	truncated bool
}

func (w *responseRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseRecorder) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if w.body != nil {
		w.truncated = capture(w.body, p) || w.truncated
	}
	n, err := w.ResponseWriter.Write(p)
	w.written += n
	return n, err
}

// SetError is called by Router.endpoint with the error a Handler returned.
func (w *responseRecorder) SetError(err error) { w.err = err }

func (w *responseRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

//nolint:err113 // dynamic error
func (w *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := w.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("router: hijack not supported")
}

func (w *responseRecorder) statusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// capture appends p to buf up to the logging cap and reports whether
// anything was cut off.
func capture(buf *bytes.Buffer, p []byte) bool {
	room := maxLoggedBodyBytes - buf.Len()
	if room <= 0 {
		return len(p) > 0
	}
	if len(p) > room {
		buf.Write(p[:room])
		return true
	}
	buf.Write(p)
	return false
}

func matchedRoutePath(r *http.Request) string {
	if pattern := httprouter.ParamsFromContext(r.Context()).MatchedRoutePath(); pattern != "" {
		return pattern
	}
	return r.URL.Path
}

// peekBody reads up to maxLoggedBodyBytes of the request body without
// consuming it for the handler.
func peekBody(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	head, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBodyBytes)) //nolint:errcheck // logging only
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
	return head
}

// loggableBody returns the body as a string. JSON payloads are masked later
// by the instrument log handler, which inspects JSON string attributes.
func loggableBody(b []byte, truncated bool) any {
	switch {
	case len(b) == 0:
		return nil
	case !utf8.Valid(b):
		return "<binary body omitted>"
	case truncated:
		return string(b) + "...(truncated)"
	default:
		return string(b)
	}
}

type httpMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func newHTTPMetrics(meter metric.Meter) httpMetrics {
	var m httpMetrics
	var err error

	m.requests, err = meter.Int64Counter("http.server.requests", metric.WithDescription("Number of HTTP requests served"))
	if err != nil {
		slog.Error("failed to create http request counter", "error", err)
	}
	m.duration, err = meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		slog.Error("failed to create http duration histogram", "error", err)
	}
	return m
}

func (m httpMetrics) record(r *http.Request, elapsed time.Duration, attrs []attribute.KeyValue) {
	opt := metric.WithAttributes(attrs...)
	if m.requests != nil {
		m.requests.Add(r.Context(), 1, opt)
	}
	if m.duration != nil {
		m.duration.Record(r.Context(), float64(elapsed.Microseconds())/1000, opt)
	}
}

type observability struct {
	tracer   trace.Tracer
	metrics  httpMetrics
	maskKeys map[string]struct{}
	logBody  bool
}

func middlewareObservability(cfg config.Config, ins instrument.Instrumentation) Middleware {
	o := observability{
		tracer:  ins.Tracer("http.server"),
		metrics: newHTTPMetrics(ins.Meter("http.server")),
	}
	if cfg != nil {
		o.maskKeys = lo.Keyify(lo.Compact(lo.Map(cfg.GetArray("instrument.log_mask_fields"), func(s string, _ int) string {
			return strings.ToLower(strings.TrimSpace(s))
		})))
		o.logBody = cfg.GetBool("instrument.log_http_body")
	}

	return o.wrap
}

func (o observability) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := matchedRoutePath(r)

		ctx, span := o.tracer.Start(r.Context(), r.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRouteKey.String(route),
				semconv.ServerAddressKey.String(r.Host),
				semconv.UserAgentOriginalKey.String(r.UserAgent()),
			),
		)
		defer span.End()
		r = r.WithContext(ctx)

		reqLog := []any{"method", r.Method, "path", route, "remote_ip", r.RemoteAddr, "headers", o.headers(r.Header)}
		rec := &responseRecorder{ResponseWriter: w}
		if o.logBody {
			body := peekBody(r)
			reqLog = append(reqLog, "body", loggableBody(body, len(body) == maxLoggedBodyBytes))
			rec.body = &bytes.Buffer{}
		}
		slog.InfoContext(ctx, "request received", reqLog...)

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		status := rec.statusCode()
		attrs := []attribute.KeyValue{
			semconv.HTTPRequestMethodKey.String(r.Method),
			semconv.HTTPRouteKey.String(route),
			semconv.HTTPResponseStatusCodeKey.Int(status),
		}
		span.SetAttributes(attrs...)
		span.SetAttributes(semconv.HTTPResponseBodySize(rec.written))
		if rec.err != nil {
			span.RecordError(rec.err)
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		o.metrics.record(r, elapsed, attrs)

		respLog := []any{"method", r.Method, "path", route, "status", status, "bytes", rec.written, "latency_ms", elapsed.Milliseconds()}
		if rec.body != nil {
			respLog = append(respLog, "body", loggableBody(rec.body.Bytes(), rec.truncated))
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(ctx, level, "response sent", respLog...)
	})
}

func (o observability) headers(h http.Header) http.Header {
	out := h.Clone()
	for key := range out {
		if _, ok := o.maskKeys[strings.ToLower(key)]; ok {
			out.Set(key, "***")
		}
	}
	out.Del("Authorization")
	out.Del("Cookie")
	return out
}
