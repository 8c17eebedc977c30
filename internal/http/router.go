package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router stdlib http.ServeMux with method-qualified patterns.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Handler the router behind identity, access log and CORS middleware.
func (r *Router) Handler(corsOrigins []string) http.Handler {
	return withCORS(withAccessLog(withIdentity(r), r.logger), corsOrigins)
}

func (r *Router) RegisterReportRoutes(h *ReportHandler) {
	r.Handle("GET /api/v1/reports", h.ListReportTypes)
	r.Handle("GET /api/v1/reports/{type}", h.GetReport)
}

func (r *Router) RegisterHierarchyRoutes(h *HierarchyHandler) {
	r.Handle("GET /api/v1/hierarchy/divisions/{code}/gn-offices", h.DivisionGnOffices)
	r.Handle("GET /api/v1/hierarchy/districts/{name}/gn-offices", h.DistrictGnOffices)
	r.Handle("GET /api/v1/hierarchy/mapping-completeness", h.MappingCompleteness)
	r.Handle("GET /api/v1/statistics", h.Statistics)
}

func (r *Router) RegisterOfficeRoutes(h *OfficeHandler) {
	r.Handle("PUT /api/v1/offices/{code}/status", h.SetStatus)
}

// RegisterHealthRoutes GET /health; ping reports the backing store, nil means
// the in-memory registry.
func (r *Router) RegisterHealthRoutes(ping func(*http.Request) error) {
	r.Handle("GET /health", func(w http.ResponseWriter, req *http.Request) {
		status := map[string]string{"status": "ok", "database": "memory"}
		if ping != nil {
			if err := ping(req); err != nil {
				r.logger.Warn("health check failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, Result[map[string]string]{
					Code: ResultError, Type: "error", Message: "database unavailable",
					Result: map[string]string{"status": "degraded", "database": "down"},
				})
				return
			}
			status["database"] = "up"
		}
		writeJSON(w, http.StatusOK, Ok(status))
	})
}
