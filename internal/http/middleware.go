package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/it-Barath/fpms-sub006/internal/domain"

	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Identity headers set by the authentication gateway in front of the service.
const (
	HeaderUserID     = "X-User-Id"
	HeaderUserRole   = "X-User-Role"
	HeaderOfficeCode = "X-Office-Code"
)

// requestContextFromReq builds the RequestContext from gateway headers. It
// writes a 401 and returns false when the identity is missing or malformed.
func requestContextFromReq(w http.ResponseWriter, r *http.Request) (domain.RequestContext, bool) {
	if rc, ok := domain.RequestContextFrom(r.Context()); ok {
		return rc, true
	}
	rc := domain.RequestContext{
		UserID:     strings.TrimSpace(r.Header.Get(HeaderUserID)),
		Role:       domain.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole)))),
		OfficeCode: strings.TrimSpace(r.Header.Get(HeaderOfficeCode)),
	}
	if rc.UserID == "" || !rc.Role.Valid() {
		writeJSON(w, http.StatusUnauthorized, Fail("missing or invalid identity headers"))
		return domain.RequestContext{}, false
	}
	return rc, true
}

// withIdentity stores the gateway identity in the request context for every
// /api/ route.
func withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		rc, ok := requestContextFromReq(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(domain.WithRequestContext(r.Context(), rc)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

func withAccessLog(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("duration", time.Since(start)),
			zap.String("user_id", r.Header.Get(HeaderUserID)),
		)
	})
}

// withCORS no-op unless origins are configured.
func withCORS(next http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		return next
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", HeaderUserID, HeaderUserRole, HeaderOfficeCode},
		ExposedHeaders: []string{"Content-Disposition"},
	}).Handler(next)
}
