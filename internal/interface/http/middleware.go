package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
	"github.com/nutri-hub/shadow-pace/pkg/logger"
)

type contextKey string

const contextKeyUserID contextKey = "user_id"

// CronSecretHeader carries the shared cron secret. The query parameter
// "secret" is accepted as well.
const CronSecretHeader = "X-Cron-Secret"

// userID returns the authenticated user, or "".
func userID(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyUserID).(string)
	return id
}

func withUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKeyUserID, id)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST LOGGING
// ══════════════════════════════════════════════════════════════════════════════

// requestLogger puts a request-scoped logger in the context and logs each
// request once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLog := s.logger.WithRequestID(chimiddleware.GetReqID(r.Context()))
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), reqLog)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		reqLog.Info("http request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Int64("duration_ms", time.Since(start).Milliseconds()),
			logger.String("ip", r.RemoteAddr),
		)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION AUTH
// ══════════════════════════════════════════════════════════════════════════════

// requireUser rejects requests without a valid session with 401.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.authenticate(r)
		if err != nil {
			logger.FromContext(r.Context()).Debug("session rejected", logger.Err(err))
			writeError(w, r, shared.ErrInvalidSession)
			return
		}
		ctx := withUserID(r.Context(), id)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(logger.UserID(id)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// optionalUser attaches the session user when one is present and valid.
func (s *Server) optionalUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := s.authenticate(r); err == nil {
			r = r.WithContext(withUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// authenticate verifies the bearer token and returns its subject.
func (s *Server) authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, raw, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || raw == "" {
		return "", shared.ErrMissingUser
	}
	if s.config.JWTSecret == "" {
		return "", shared.ErrInvalidSession
	}

	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", shared.WrapError("auth", "Verify", shared.ErrUnauthorized, "Unauthorized", err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", shared.WrapError("auth", "Verify", shared.ErrUnauthorized, "Unauthorized", err)
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return "", shared.WrapError("auth", "Verify", shared.ErrUnauthorized, "Unauthorized", err)
	}
	return id.String(), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CRON AUTH
// ══════════════════════════════════════════════════════════════════════════════

// requireCron rejects requests without the cron secret. Routes differ in
// the status they answer with.
func (s *Server) requireCron(status int, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !s.hasCronSecret(r) {
				writeJSON(w, status, errorBody{Error: message})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// hasCronSecret reports an exact match. An empty server secret never matches.
func (s *Server) hasCronSecret(r *http.Request) bool {
	if s.config.CronSecret == "" {
		return false
	}
	provided := r.Header.Get(CronSecretHeader)
	if provided == "" {
		provided = r.URL.Query().Get("secret")
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(s.config.CronSecret)) == 1
}
