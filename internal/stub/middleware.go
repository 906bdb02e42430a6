package stub

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type ctxKey string

const userIDKey ctxKey = "stub.userID"

// WithUserID stores the authenticated user ID in ctx.
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromCtx fetches the authenticated user ID from ctx.
func UserIDFromCtx(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id > 0
}

// requestLogger logs request metadata only, never bodies.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("dur", time.Since(start)),
				zap.String("peer", r.RemoteAddr),
				zap.String("request_id", r.Header.Get("X-Request-ID")),
			)
		})
	}
}

// recoverer turns a handler panic into a 500.
func recoverer(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic",
						zap.Any("reason", rec),
						zap.ByteString("stack", debug.Stack()),
						zap.String("path", r.URL.Path),
					)
					writeJSON(w, http.StatusInternalServerError, detail("A server error occurred."))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// authenticate resolves a bearer token when one is sent. A token that does
// not verify is rejected even on public endpoints.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		c, err := s.parseToken(tok, tokenAccess)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})
			return
		}
		id, err := c.userID()
		if err != nil || !s.userExists(id) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "User not found",
				"code":   "user_not_found",
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
	})
}

func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromCtx(r.Context()); !ok {
			writeJSON(w, http.StatusUnauthorized, detail("Authentication credentials were not provided."))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
		if t := strings.TrimSpace(v[7:]); t != "" {
			return t, true
		}
	}
	return "", false
}

func (s *Server) userExists(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[id]
	return ok
}
