package router

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/assistant"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/comment"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/event"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/order"
)

const RequestIDHeader = "X-Request-ID"

var tracer = otel.Tracer("github.com/ovaphlow/pitchfork/service-community-go/internal/router")

type Config struct {
	Addr   string `env:"HTTP_ADDR" envDefault:"0.0.0.0:8431"`
	Prefix string `env:"HTTP_PREFIX" envDefault:"/api"`
}

func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse http env: %w", err)
	}
	cfg.Prefix = "/" + strings.Trim(cfg.Prefix, "/")
	if cfg.Prefix == "/" {
		cfg.Prefix = ""
	}
	return cfg, nil
}

// Handlers are the feature endpoints mounted by RegisterRoutes.
type Handlers struct {
	Comments  *comment.Handler
	Events    *event.Handler
	Orders    *order.Handler
	Assistant *assistant.Handler
	UploadDir string
}

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware logs every request; server errors at error level, the rest at debug.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			log := logger.Debugw
			if status >= http.StatusInternalServerError {
				log = logger.Errorw
			}
			log("http request",
				"request_id", r.Header.Get(RequestIDHeader),
				"trace_id", traceID(r),
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// TracingMiddleware opens the server span that feature spans nest under.
func TracingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), "HTTP "+r.Method, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()
			span.SetAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
				attribute.String("http.request.id", r.Header.Get(RequestIDHeader)),
			)
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r.WithContext(ctx))
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			span.SetAttributes(attribute.Int("http.response.status_code", status))
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
		})
	}
}

func traceID(r *http.Request) string {
	sc := trace.SpanContextFromContext(r.Context())
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// RequestIDMiddleware keeps an incoming X-Request-ID or assigns a new UUID,
// and echoes it on the response.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
				r.Header.Set(RequestIDHeader, id)
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			// only over TLS; 30 days
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RegisterRoutes mounts every endpoint under cfg.Prefix on a http.ServeMux.
func RegisterRoutes(cfg Config, authCfg auth.Config, h Handlers, logger *zap.SugaredLogger) http.Handler {
	mux := http.NewServeMux()
	p := cfg.Prefix

	authed := auth.Middleware(authCfg, logger)
	user := func(fn http.HandlerFunc) http.Handler { return authed(fn) }
	admin := func(fn http.HandlerFunc) http.Handler { return authed(auth.RequireRole(auth.RoleAdmin)(fn)) }

	mux.HandleFunc("GET "+p+"/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if h.UploadDir != "" {
		mux.Handle("GET "+p+"/uploads/", http.StripPrefix(p+"/uploads/", http.FileServer(http.Dir(h.UploadDir))))
	}

	// comments
	mux.Handle("POST "+p+"/comments/{postId}", user(h.Comments.Add))
	mux.Handle("GET "+p+"/comments/{postId}", user(h.Comments.ListByPost))
	mux.Handle("PUT "+p+"/comments/item/{commentId}", user(h.Comments.Update))
	mux.Handle("DELETE "+p+"/comments/item/{commentId}", user(h.Comments.Delete))
	mux.HandleFunc("GET "+p+"/public/comments/{postId}", h.Comments.ListPublic)

	// events
	mux.HandleFunc("GET "+p+"/events", h.Events.ListAll)
	mux.HandleFunc("GET "+p+"/events/participants", h.Events.ListWithParticipants)
	mux.HandleFunc("GET "+p+"/events/recent", h.Events.ListRecent)
	mux.HandleFunc("GET "+p+"/events/{id}", h.Events.Get)
	mux.Handle("GET "+p+"/events/mine", user(h.Events.ListMine))
	mux.Handle("GET "+p+"/events/describe/{prompt}", user(h.Assistant.Describe))
	mux.Handle("POST "+p+"/events", user(h.Events.Create))
	mux.Handle("PATCH "+p+"/events/{id}", user(h.Events.Update))
	mux.Handle("DELETE "+p+"/events/{id}", user(h.Events.Delete))
	mux.Handle("POST "+p+"/events/{id}/participants", user(h.Events.Join))
	mux.Handle("DELETE "+p+"/events/{id}/participants", user(h.Events.Leave))
	mux.Handle("POST "+p+"/admin/events", admin(h.Events.CreateByAdmin))

	// orders
	mux.Handle("POST "+p+"/orders", user(h.Orders.Create))
	mux.Handle("GET "+p+"/orders", user(h.Orders.List))
	mux.Handle("GET "+p+"/orders/{id}", user(h.Orders.Get))

	return RequestIDMiddleware()(TracingMiddleware()(LoggingMiddleware(logger)(SecurityHeadersMiddleware()(mux))))
}
