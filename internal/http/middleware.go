package http

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robertarktes/event-registrations/internal/auth"
	"github.com/robertarktes/event-registrations/internal/domain"
	"github.com/robertarktes/event-registrations/internal/idempotency"
	"github.com/robertarktes/event-registrations/internal/observability"
	"github.com/robertarktes/event-registrations/internal/rateLimit"
	"github.com/robertarktes/event-registrations/internal/registration"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelhttp "go.opentelemetry.io/otel/propagation"
)

type loggerKey struct{}

func loggerFrom(ctx context.Context) observability.Logger {
	if l, ok := ctx.Value(loggerKey{}).(observability.Logger); ok {
		return l
	}
	return observability.NewNopLogger()
}

func RequestIDMiddleware(next http.Handler) http.Handler {
	return middleware.RequestID(next)
}

func LoggerMiddleware(logger observability.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := middleware.GetReqID(r.Context())
			entry := logger.WithField("request_id", reqID)
			ctx := context.WithValue(r.Context(), loggerKey{}, entry)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), otelhttp.HeaderCarrier(r.Header))
		tracer := otel.Tracer("http")
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path)
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.url", r.URL.String()),
		)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// MetricsMiddleware counts requests by route pattern so path parameters do
// not explode label cardinality.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.RequestsTotal.WithLabelValues(route, strconv.Itoa(status), r.Method).Inc()
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func RateLimitMiddleware(rl *rateLimit.RateLimiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(r.Context(), "ip:"+clientIP(r)) {
				writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Too many requests, please try again later"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdempotencyMiddleware replays the first recorded response for a POST that
// carries an Idempotency-Key. Requests without the header pass through. On
// authenticated routes it must run after Authenticate so the principal is
// part of the key.
func IdempotencyMiddleware(idemp *idempotency.Idempotency) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Idempotency-Key")
			if r.Method != http.MethodPost || header == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			payload, err := io.ReadAll(r.Body)
			if err != nil {
				writeError(w, r, domain.Validationf("unreadable request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(payload))
			var subject string
			if p, ok := auth.PrincipalFrom(ctx); ok {
				subject = p.UserID
			}
			key := idempotency.Scope(r.Method, r.URL.Path, subject, header, payload)

			existing, err := idemp.Get(ctx, key)
			if err != nil {
				loggerFrom(ctx).WithError(err).Warn("idempotency lookup failed")
				next.ServeHTTP(w, r)
				return
			}
			if existing != nil {
				if existing.ContentType != "" {
					w.Header().Set("Content-Type", existing.ContentType)
				}
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(existing.Status)
				_, _ = w.Write(existing.Result)
				return
			}

			ok, release, err := idemp.Begin(ctx, key)
			if err != nil {
				loggerFrom(ctx).WithError(err).Warn("idempotency lock failed")
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				writeJSON(w, http.StatusConflict, errorResponse{Error: "A request with this Idempotency-Key is in progress"})
				return
			}
			defer release()

			var body bytes.Buffer
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&body)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status >= http.StatusInternalServerError {
				return
			}
			resp := idempotency.Response{Status: status, ContentType: ww.Header().Get("Content-Type"), Result: body.Bytes()}
			if err := idemp.Set(context.WithoutCancel(ctx), key, resp); err != nil {
				loggerFrom(ctx).WithError(err).Warn("idempotency record failed")
			}
		})
	}
}

// Authenticate resolves the bearer token into a principal on the context.
func Authenticate(svc *auth.Service) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := svc.Authenticate(r.Context(), auth.BearerToken(r.Header.Get("Authorization")))
			if err != nil {
				writeError(w, r, err)
				return
			}
			ctx := auth.WithPrincipal(r.Context(), p)
			ctx = registration.WithActor(ctx, p.Email)
			ctx = context.WithValue(ctx, loggerKey{}, loggerFrom(ctx).WithField("user_id", p.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireRole(role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFrom(r.Context())
			if !ok {
				writeError(w, r, domain.ErrNoToken)
				return
			}
			if err := auth.RequireRole(p, role); err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
