package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/it-Barath/fpms-sub006/internal/repository"
	"github.com/it-Barath/fpms-sub006/internal/service"

	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseBool(s string, def bool) bool {
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.New("empty request body")
	}
	return json.Unmarshal(body, out)
}

// scopeFromQuery level/code/name/gn query parameters. ok=false when no level
// was requested, in which case the caller's default scope applies.
func scopeFromQuery(r *http.Request) (service.Scope, bool, error) {
	q := r.URL.Query()
	raw := strings.TrimSpace(q.Get("level"))
	if raw == "" {
		return service.Scope{}, false, nil
	}
	level, ok := service.ParseScopeLevel(raw)
	if !ok {
		return service.Scope{}, false, fmt.Errorf("%w: unknown level %q", service.ErrInvalidScope, raw)
	}
	return service.Scope{
		Level:      level,
		Code:       strings.TrimSpace(q.Get("code")),
		Name:       strings.TrimSpace(q.Get("name")),
		GnOverride: strings.TrimSpace(q.Get("gn")),
	}, true, nil
}

const queryFailureMessage = "the report could not be generated because the registry database is unavailable; please try again later"

// writeError maps service errors onto HTTP status codes and the Fail envelope.
// Data access failures get a fixed user-visible message; details go to the log.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidScope),
		errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrUnsupportedFormat):
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
	case errors.Is(err, service.ErrUnknownReportType):
		writeJSON(w, http.StatusNotFound, Fail(err.Error()))
	case errors.Is(err, repository.ErrOfficeNotFound):
		writeJSON(w, http.StatusNotFound, Fail(err.Error()))
	case errors.Is(err, service.ErrAggregationQuery):
		logger.Error("aggregation query failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(queryFailureMessage))
	default:
		logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
	}
}

func warningMessage(ws []service.Warning) string {
	msgs := make([]string, 0, len(ws))
	for _, w := range ws {
		msgs = append(msgs, w.Message)
	}
	return strings.Join(msgs, "; ")
}
