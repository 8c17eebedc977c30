package httpapi

import (
	"net/http"

	"github.com/it-Barath/fpms-sub006/internal/domain"
	"github.com/it-Barath/fpms-sub006/internal/repository"
	"github.com/it-Barath/fpms-sub006/internal/service"

	"go.uber.org/zap"
)

// HierarchyHandler GN set resolution, mapping completeness and headline
// statistics.
type HierarchyHandler struct {
	resolver service.HierarchyResolver
	engine   service.AggregationEngine
	logger   *zap.Logger
}

func NewHierarchyHandler(resolver service.HierarchyResolver, engine service.AggregationEngine, logger *zap.Logger) *HierarchyHandler {
	return &HierarchyHandler{resolver: resolver, engine: engine, logger: logger}
}

// DivisionGnOffices GET /api/v1/hierarchy/divisions/{code}/gn-offices
func (h *HierarchyHandler) DivisionGnOffices(w http.ResponseWriter, r *http.Request) {
	res, err := h.resolver.ResolveGnCodesForDivision(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeResolution(w, res)
}

// DistrictGnOffices GET /api/v1/hierarchy/districts/{name}/gn-offices
func (h *HierarchyHandler) DistrictGnOffices(w http.ResponseWriter, r *http.Request) {
	res, err := h.resolver.ResolveGnCodesForDistrict(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeResolution(w, res)
}

func writeResolution(w http.ResponseWriter, res *service.Resolution) {
	if len(res.Warnings) > 0 {
		writeJSON(w, http.StatusOK, OkWithWarnings(res, warningMessage(res.Warnings)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

type mappingResponse struct {
	*service.MappingCompleteness
	Complete bool `json:"complete"`
	Unmapped int  `json:"unmapped"`
}

// MappingCompleteness GET /api/v1/hierarchy/mapping-completeness
func (h *HierarchyHandler) MappingCompleteness(w http.ResponseWriter, r *http.Request) {
	m, err := h.resolver.ComputeMappingCompleteness(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(mappingResponse{MappingCompleteness: m, Complete: m.Complete(), Unmapped: m.Unmapped()}))
}

// Statistics GET /api/v1/statistics?level=&code=&name=&gn=
// Without level the caller's default scope is used.
func (h *HierarchyHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	rc, ok := requestContextFromReq(w, r)
	if !ok {
		return
	}
	scope, explicit, err := scopeFromQuery(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if !explicit {
		if scope, err = h.resolver.DefaultScope(r.Context(), rc); err != nil {
			writeError(w, h.logger, err)
			return
		}
		scope.GnOverride = r.URL.Query().Get("gn")
	}
	res, err := h.resolver.ResolveScope(r.Context(), scope)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	stats, err := h.engine.Statistics(r.Context(), res)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(stats))
}

// OfficeHandler the office status toggle, the only write this service exposes.
type OfficeHandler struct {
	offices repository.OfficesRepository
	logger  *zap.Logger
}

func NewOfficeHandler(offices repository.OfficesRepository, logger *zap.Logger) *OfficeHandler {
	return &OfficeHandler{offices: offices, logger: logger}
}

type officeStatusRequest struct {
	IsActive *bool `json:"is_active"`
}

// SetStatus PUT /api/v1/offices/{code}/status body {"is_active": bool}. Admin only.
func (h *OfficeHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	rc, ok := requestContextFromReq(w, r)
	if !ok {
		return
	}
	if rc.Role != domain.RoleAdmin {
		writeJSON(w, http.StatusForbidden, Fail("only administrators can change office status"))
		return
	}
	code := r.PathValue("code")
	var body officeStatusRequest
	if err := readBodyJSON(r, 1<<10, &body); err != nil || body.IsActive == nil {
		writeJSON(w, http.StatusBadRequest, Fail(`body must be {"is_active": true|false}`))
		return
	}
	if err := h.offices.SetOfficeActive(r.Context(), code, *body.IsActive); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("office status changed",
		zap.String("office_code", code),
		zap.Bool("is_active", *body.IsActive),
		zap.String("user_id", rc.UserID),
	)
	writeJSON(w, http.StatusOK, Ok(map[string]any{"office_code": code, "is_active": *body.IsActive}))
}
