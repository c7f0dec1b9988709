package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"

	"github.com/dmitrymomot/courier/internal/auth"
	"github.com/dmitrymomot/courier/pkg/logger"
)

// requestIDHeaders are checked in order for an upstream request id.
var requestIDHeaders = []string{"X-Request-ID", "X-Request-Id", "X-Correlation-ID"}

const stackSize = 4096

// requestID reuses an upstream id or generates one, echoes it in the
// response and attaches it to the log context.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		for _, h := range requestIDHeaders {
			if v := r.Header.Get(h); v != "" {
				id = v
				break
			}
		}
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

func (s *server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			stack := make([]byte, stackSize)
			stack = stack[:runtime.Stack(stack, false)]
			s.logger.ErrorContext(r.Context(), "panic recovered",
				slog.String("panic", fmt.Sprint(rec)),
				slog.String("stack", string(stack)),
			)
			s.writeError(w, r, fmt.Errorf("panic: %v", rec), nil)
		}()
		next.ServeHTTP(w, r)
	})
}

// authenticate requires a valid bearer token and puts its subject into the
// request context as the authenticated user.
func (s *server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			s.writeError(w, r, err, nil)
			return
		}
		userID, err := s.Verifier.Verify(raw)
		if err != nil {
			s.writeError(w, r, err, nil)
			return
		}

		ctx := auth.WithUserID(r.Context(), userID)
		ctx = logger.WithUserID(ctx, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// perUserLimit throttles authenticated routes by user id.
func (s *server) perUserLimit(n int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(n, window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return auth.UserID(r.Context()), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: &HTTPError{
				Code:    "rate_limited",
				Message: "too many requests",
				Status:  http.StatusTooManyRequests,
			}})
		}),
	)
}

// accessLog logs one line per request.
func (s *server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.logger.InfoContext(r.Context(), "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
