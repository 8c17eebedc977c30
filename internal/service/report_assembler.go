package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/it-Barath/fpms-sub006/internal/domain"
	"github.com/it-Barath/fpms-sub006/internal/export"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReportAssembler report request -> titled, formatted payload -> rendered file.
type ReportAssembler interface {
	Assemble(ctx context.Context, rc domain.RequestContext, req ReportRequest) (*ReportPayload, error)
	Export(ctx context.Context, payload *ReportPayload, format string) (*ExportedReport, error)
}

// ============================================
// Request / response
// ============================================

type ReportRequest struct {
	ReportType        string `json:"report_type" validate:"required,max=64"`
	Scope             *Scope `json:"scope,omitempty" validate:"-"` // nil: the caller's default scope; validated separately
	From              string `json:"from,omitempty" validate:"max=32"`
	To                string `json:"to,omitempty" validate:"max=32"`
	GnOverride        string `json:"gn,omitempty" validate:"max=64"` // narrows either scope to one GN office
	IncludeUnrecorded bool   `json:"include_unrecorded,omitempty"`
}

type ReportPayload struct {
	RequestID   string             `json:"request_id"`
	ReportType  RecipeKey          `json:"report_type"`
	Title       string             `json:"title"`
	Headers     []string           `json:"headers"`
	Rows        [][]string         `json:"rows"`
	Result      *AggregationResult `json:"result"`
	Scope       *Resolution        `json:"scope"`
	Warnings    []Warning          `json:"warnings"`
	GeneratedAt time.Time          `json:"generated_at"`
}

type ExportedReport struct {
	ContentType string
	FileName    string
	Body        []byte
}

// ============================================
// Implementation
// ============================================

type reportAssembler struct {
	resolver  HierarchyResolver
	engine    AggregationEngine
	renderers *export.Registry
	activity  ActivityLog
	formatter Formatter
	validate  *validator.Validate
	strict    bool
	now       func() time.Time
	logger    *zap.Logger
}

// AssemblerOption optional assembler settings.
type AssemblerOption func(*reportAssembler)

// WithStrictReportTypes unknown report types fail with ErrUnknownReportType
// instead of falling back to DefaultRecipe.
func WithStrictReportTypes(strict bool) AssemblerOption {
	return func(a *reportAssembler) { a.strict = strict }
}

func WithAssemblerClock(now func() time.Time) AssemblerOption {
	return func(a *reportAssembler) { a.now = now }
}

func WithRenderers(reg *export.Registry) AssemblerOption {
	return func(a *reportAssembler) { a.renderers = reg }
}

func NewReportAssembler(resolver HierarchyResolver, engine AggregationEngine, activity ActivityLog, logger *zap.Logger, opts ...AssemblerOption) ReportAssembler {
	a := &reportAssembler{
		resolver:  resolver,
		engine:    engine,
		renderers: export.DefaultRegistry(),
		activity:  activity,
		validate:  validator.New(),
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *reportAssembler) Assemble(ctx context.Context, rc domain.RequestContext, req ReportRequest) (payload *ReportPayload, err error) {
	started := a.now()
	ev := ActivityEvent{
		RequestID:  uuid.NewString(),
		ReportType: req.ReportType,
		UserID:     rc.UserID,
		Role:       string(rc.Role),
	}
	// exactly one activity event per request, success or failure
	defer func() {
		ev.At = a.now()
		ev.DurationMs = ev.At.Sub(started).Milliseconds()
		if err != nil {
			ev.Outcome = OutcomeFailure
			ev.Error = err.Error()
		} else {
			ev.Outcome = OutcomeSuccess
			ev.Rows = len(payload.Rows)
		}
		if a.activity != nil {
			if logErr := a.activity.Record(context.WithoutCancel(ctx), ev); logErr != nil {
				a.logger.Warn("failed to record report activity", zap.String("request_id", ev.RequestID), zap.Error(logErr))
			}
		}
	}()

	if err = a.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.Scope != nil {
		if err = a.validate.Struct(req.Scope); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidScope, err)
		}
	}

	var warnings []Warning
	recipe, ok := LookupRecipe(req.ReportType)
	if !ok {
		if a.strict {
			return nil, fmt.Errorf("%w: %q", ErrUnknownReportType, req.ReportType)
		}
		recipe, _ = LookupRecipe(string(DefaultRecipe))
		warnings = append(warnings, newWarning(WarnUnknownReportType,
			"report type %q is not recognised; showing %s", req.ReportType, recipe.Name))
	}
	ev.ReportType = string(recipe.Key)

	scope, err := a.scopeFor(ctx, rc, req.Scope)
	if err != nil {
		return nil, err
	}
	if gn := strings.TrimSpace(req.GnOverride); gn != "" {
		scope.GnOverride = gn
	}
	res, err := a.resolver.ResolveScope(ctx, scope)
	if err != nil {
		return nil, err
	}
	ev.Scope = res.String()

	window, substituted := ResolveWindow(req.From, req.To, a.now())
	if substituted {
		a.logger.Debug("invalid date range replaced with default window",
			zap.String("from", req.From),
			zap.String("to", req.To),
			zap.String("window", window.String()),
		)
		warnings = append(warnings, newWarning(WarnDateRangeSubstituted,
			"date range %q to %q is invalid; using %s", req.From, req.To, window.String()))
	}

	result, err := a.engine.Aggregate(ctx, AggregationRequest{
		Recipe:            recipe.Key,
		Resolution:        res,
		Window:            window,
		IncludeUnrecorded: req.IncludeUnrecorded,
	})
	if err != nil {
		return nil, err
	}

	payload = &ReportPayload{
		RequestID:   ev.RequestID,
		ReportType:  recipe.Key,
		Title:       ReportTitle(recipe, res),
		Headers:     recipe.Headers(),
		Rows:        a.formatRows(recipe, result.Rows),
		Result:      result,
		Scope:       res,
		Warnings:    append(warnings, result.Warnings...),
		GeneratedAt: a.now(),
	}
	return payload, nil
}

func (a *reportAssembler) scopeFor(ctx context.Context, rc domain.RequestContext, requested *Scope) (Scope, error) {
	if requested != nil {
		return *requested, nil
	}
	return a.resolver.DefaultScope(ctx, rc)
}

// formatRows applies the display policy to every cell.
func (a *reportAssembler) formatRows(recipe *Recipe, rows []ResultRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(recipe.Columns))
		for i, col := range recipe.Columns {
			cells[i] = a.formatter.Format(col.Kind, col.Value(row))
		}
		out = append(out, cells)
	}
	return out
}

// ReportTitle "<ReportName> Report - <ScopeName> <ScopeLevel>".
func ReportTitle(recipe *Recipe, res *Resolution) string {
	return strings.TrimSpace(fmt.Sprintf("%s Report - %s %s", recipe.Name, res.DisplayName(), res.Level.Label()))
}

func (a *reportAssembler) Export(_ context.Context, payload *ReportPayload, format string) (*ExportedReport, error) {
	if payload == nil {
		return nil, errors.New("nothing to export")
	}
	renderer, ok := a.renderers.Lookup(format)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	notes := make([]string, 0, len(payload.Warnings))
	for _, w := range payload.Warnings {
		notes = append(notes, w.Message)
	}
	doc := export.Document{
		Title:       payload.Title,
		Headers:     payload.Headers,
		Rows:        payload.Rows,
		Notes:       notes,
		GeneratedAt: payload.GeneratedAt,
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, doc); err != nil {
		a.logger.Error("failed to render report",
			zap.String("request_id", payload.RequestID),
			zap.String("format", format),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to render %s: %w", format, err)
	}
	return &ExportedReport{
		ContentType: renderer.ContentType(),
		FileName:    export.FileName(payload.Title, renderer.Extension(), payload.GeneratedAt),
		Body:        buf.Bytes(),
	}, nil
}
