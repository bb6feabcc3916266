package httppresentation

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/observability/logctx"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const componentHTTPServer = "http_server"

// Server routes requests through Trace → request logger and metrics → access log → handler.
type Server struct {
	mux     *http.ServeMux
	log     observability.Logger
	tel     observability.Observability
	service string
}

func NewServer(service string, logger observability.Logger, tel observability.Observability) *Server {
	tel = observability.Or(tel)
	if logger == nil {
		logger = tel.Logger()
	}
	s := &Server{
		mux:     http.NewServeMux(),
		log:     logger.With(observability.F("component", componentHTTPServer)),
		tel:     tel,
		service: service,
	}
	s.Handle("GET /health", s.handleHealth)
	return s
}

// Handle registers h under a method-qualified pattern such as "POST /transactions/{id}/pay".
func (s *Server) Handle(pattern string, h http.HandlerFunc) {
	chain := s.withTrace(
		ObservabilityMiddleware(s.log, s.tel)(
			s.withAccessLog(h),
		),
	)
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		chain.ServeHTTP(w, r.WithContext(contextWithRoute(r.Context(), pattern)))
	})
}

// Mount registers a handler outside the middleware chain, e.g. the metrics scrape endpoint.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withAccessLog writes a single access line after the handler completes.
func (s *Server) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), s.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace starts the server span, continuing any W3C trace context on the request.
func (s *Server) withTrace(next http.Handler) http.Handler {
	tracer := otel.Tracer("storefront.http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parent := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeFromContext(parent)
		template := route
		if idx := strings.Index(template, " "); idx >= 0 {
			template = template[idx+1:]
		}
		if route == "unknown" {
			route = r.Method + " " + r.URL.Path
			template = r.URL.Path
		}

		ctx, span := tracer.Start(parent, route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("service.name", s.service),
				attribute.String("http.method", r.Method),
				attribute.String("http.route", template),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lrw, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", lrw.status))
		if lrw.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(lrw.status))
		}
	})
}

type routeKey struct{}

// contextWithRoute stores the registered pattern so labels stay low-cardinality.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
