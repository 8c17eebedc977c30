package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/it-Barath/fpms-sub006/internal/export"
	"github.com/it-Barath/fpms-sub006/internal/service"

	"go.uber.org/zap"
)

// ReportHandler report generation and download.
type ReportHandler struct {
	assembler service.ReportAssembler
	logger    *zap.Logger
}

func NewReportHandler(assembler service.ReportAssembler, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{assembler: assembler, logger: logger}
}

// GetReport GET /api/v1/reports/{type}?level=&code=&name=&gn=&from=&to=&format=&include_unrecorded=
// Without format (or format=json) the payload is returned in the Result
// envelope; any other format is sent as a file.
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	rc, ok := requestContextFromReq(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	req := service.ReportRequest{
		ReportType:        r.PathValue("type"),
		From:              q.Get("from"),
		To:                q.Get("to"),
		GnOverride:        strings.TrimSpace(q.Get("gn")),
		IncludeUnrecorded: parseBool(q.Get("include_unrecorded"), false),
	}
	scope, explicit, err := scopeFromQuery(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if explicit {
		req.Scope = &scope
	}

	payload, err := h.assembler.Assemble(r.Context(), rc, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	format := strings.ToLower(strings.TrimSpace(q.Get("format")))
	if format == "" || format == "json" {
		if len(payload.Warnings) > 0 {
			writeJSON(w, http.StatusOK, OkWithWarnings(payload, warningMessage(payload.Warnings)))
			return
		}
		writeJSON(w, http.StatusOK, Ok(payload))
		return
	}

	out, err := h.assembler.Export(r.Context(), payload, format)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	disposition := "attachment"
	if format == export.FormatHTML || format == export.FormatPDF {
		disposition = "inline"
	}
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", disposition+"; filename="+strconv.Quote(out.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Body)))
	w.Header().Set("X-Request-Id", payload.RequestID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Body)
}

type reportTypeItem struct {
	Key     service.RecipeKey `json:"key"`
	Name    string            `json:"name"`
	Headers []string          `json:"headers"`
}

// ListReportTypes GET /api/v1/reports
func (h *ReportHandler) ListReportTypes(w http.ResponseWriter, r *http.Request) {
	keys := service.RecipeKeys()
	items := make([]reportTypeItem, 0, len(keys))
	for _, k := range keys {
		recipe, _ := service.LookupRecipe(string(k))
		items = append(items, reportTypeItem{Key: recipe.Key, Name: recipe.Name, Headers: recipe.Headers()})
	}
	writeJSON(w, http.StatusOK, Ok(items))
}
