package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/it-Barath/fpms-sub006/internal/domain"
	"github.com/it-Barath/fpms-sub006/internal/export"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var admin = domain.RequestContext{UserID: "u-1", Role: domain.RoleAdmin}

func TestAssemble_DistrictDivisionWise(t *testing.T) {
	f := newFixture(t)

	payload, err := f.assembler.Assemble(context.Background(), admin, ReportRequest{
		ReportType: "divisionWise",
		Scope:      &Scope{Level: ScopeDistrict, Name: "Mannar"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Division Wise Report - Mannar District", payload.Title)
	assert.Equal(t, RecipeDivisionWise, payload.ReportType)
	assert.Equal(t, []string{"Division", "GN Offices", "Families", "Citizens", "Male", "Female", "Avg Family Size", "Percentage"}, payload.Headers)
	require.Len(t, payload.Rows, 2)
	assert.Equal(t, []string{"Mannar Town", "3", "6", "5", "2", "3", "0.83", "75.0%"}, payload.Rows[0])
	assert.Equal(t, []string{"Madhu", "2", "2", "3", "1", "2", "1.50", "25.0%"}, payload.Rows[1])
	assert.Equal(t, fixedNow, payload.GeneratedAt)
	assert.NotEmpty(t, payload.RequestID)
	assert.Contains(t, warningCodes(payload.Warnings), WarnUnmappedHierarchy) // Madhu via reference table
}

func TestAssemble_DefaultScopeFromRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	payload, err := f.assembler.Assemble(ctx, admin, ReportRequest{ReportType: "gnWise"})
	require.NoError(t, err)
	assert.Equal(t, "GN Wise Report - All Districts", payload.Title)
	assert.Len(t, payload.Rows, 6)

	divisionUser := domain.RequestContext{UserID: "u-2", Role: domain.RoleDivision, OfficeCode: "DIV-MT"}
	payload, err = f.assembler.Assemble(ctx, divisionUser, ReportRequest{ReportType: "gnWise"})
	require.NoError(t, err)
	assert.Equal(t, "GN Wise Report - Mannar Town Division", payload.Title)
	assert.Len(t, payload.Rows, 3)
}

func TestAssemble_InvalidDatesBehaveLikeOmitted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scope := &Scope{Level: ScopeDivision, Code: "DIV-MT"}

	omitted, err := f.assembler.Assemble(ctx, admin, ReportRequest{ReportType: "populationDemographics", Scope: scope})
	require.NoError(t, err)
	garbage, err := f.assembler.Assemble(ctx, admin, ReportRequest{ReportType: "populationDemographics", Scope: scope, From: "not-a-date"})
	require.NoError(t, err)

	assert.Equal(t, omitted.Rows, garbage.Rows)
	assert.Equal(t, omitted.Result.Window, garbage.Result.Window)
	assert.NotContains(t, warningCodes(omitted.Warnings), WarnDateRangeSubstituted)
	assert.Contains(t, warningCodes(garbage.Warnings), WarnDateRangeSubstituted)
}

func TestAssemble_UnknownReportTypeFallsBack(t *testing.T) {
	f := newFixture(t)

	payload, err := f.assembler.Assemble(context.Background(), admin, ReportRequest{
		ReportType: "pieChart",
		Scope:      &Scope{Level: ScopeGN, Code: "GN-01"},
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultRecipe, payload.ReportType)
	assert.Equal(t, "Family Summary Report - Pallimunai GN Division", payload.Title)
	assert.Equal(t, WarnUnknownReportType, payload.Warnings[0].Code)
	require.Len(t, payload.Rows, 2)
	assert.Equal(t, "F01", payload.Rows[0][0])
	assert.Equal(t, "Citizen C01", payload.Rows[0][1])
}

func TestAssemble_StrictReportTypes(t *testing.T) {
	f := newFixture(t, WithStrictReportTypes(true))

	payload, err := f.assembler.Assemble(context.Background(), admin, ReportRequest{ReportType: "pieChart"})
	assert.Nil(t, payload)
	assert.ErrorIs(t, err, ErrUnknownReportType)
}

func TestAssemble_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.assembler.Assemble(ctx, admin, ReportRequest{})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.assembler.Assemble(ctx, admin, ReportRequest{ReportType: "gnWise", Scope: &Scope{Level: "province"}})
	assert.ErrorIs(t, err, ErrInvalidScope)

	_, err = f.assembler.Assemble(ctx, admin, ReportRequest{ReportType: "gnWise", Scope: &Scope{Level: ScopeDivision}})
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestAssemble_UnknownScopeIsEmptyReport(t *testing.T) {
	f := newFixture(t)

	payload, err := f.assembler.Assemble(context.Background(), admin, ReportRequest{
		ReportType: "healthConditions",
		Scope:      &Scope{Level: ScopeDivision, Code: "DIV-NOPE"},
	})
	require.NoError(t, err)
	assert.Empty(t, payload.Rows)
	assert.Contains(t, warningCodes(payload.Warnings), WarnUnmappedHierarchy)
}

// ============================================
// Activity
// ============================================

func TestAssemble_OneActivityEventPerRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	payload, err := f.assembler.Assemble(ctx, admin, ReportRequest{ReportType: "employment_status", Scope: &Scope{Level: ScopeDivision, Code: "DIV-MT"}})
	require.NoError(t, err)
	require.Len(t, f.activity.events, 1)
	ev := f.activity.events[0]
	assert.Equal(t, payload.RequestID, ev.RequestID)
	assert.Equal(t, string(RecipeEmploymentStatus), ev.ReportType)
	assert.Equal(t, "division:DIV-MT", ev.Scope)
	assert.Equal(t, "u-1", ev.UserID)
	assert.Equal(t, OutcomeSuccess, ev.Outcome)
	assert.Equal(t, 2, ev.Rows)
	assert.Equal(t, fixedNow, ev.At)

	noOffice := domain.RequestContext{UserID: "u-3", Role: domain.RoleDivision}
	_, err = f.assembler.Assemble(ctx, noOffice, ReportRequest{ReportType: "gnWise"})
	require.ErrorIs(t, err, ErrInvalidScope)
	require.Len(t, f.activity.events, 2)
	failed := f.activity.events[1]
	assert.Equal(t, OutcomeFailure, failed.Outcome)
	assert.NotEmpty(t, failed.Error)
	assert.Equal(t, "u-3", failed.UserID)
	assert.Zero(t, failed.Rows)
}

func TestAssemble_AggregationFailure(t *testing.T) {
	reg := mannarRegistry()
	resolver := NewHierarchyResolver(reg, reg, zap.NewNop())
	boom := errors.New("relation \"fpms.citizens\" does not exist")
	engine := NewAggregationEngine(&stubStats{err: boom}, resolver, zap.NewNop())
	activity := &recordingActivityLog{}
	assembler := NewReportAssembler(resolver, engine, activity, zap.NewNop(), WithAssemblerClock(clock))

	payload, err := assembler.Assemble(context.Background(), admin, ReportRequest{
		ReportType: "healthConditions",
		Scope:      &Scope{Level: ScopeDivision, Code: "DIV-MT"},
	})
	assert.Nil(t, payload)
	assert.ErrorIs(t, err, ErrAggregationQuery)
	require.Len(t, activity.events, 1)
	assert.Equal(t, OutcomeFailure, activity.events[0].Outcome)
}

type failingActivityLog struct{}

func (failingActivityLog) Record(context.Context, ActivityEvent) error {
	return errors.New("sink down")
}

func TestAssemble_ActivitySinkFailureDoesNotFailReport(t *testing.T) {
	reg := mannarRegistry()
	resolver := NewHierarchyResolver(reg, reg, zap.NewNop())
	engine := NewAggregationEngine(reg, resolver, zap.NewNop(), WithClock(clock))
	recorder := &recordingActivityLog{}
	sinks := MultiActivityLog{failingActivityLog{}, recorder}
	assembler := NewReportAssembler(resolver, engine, sinks, zap.NewNop(), WithAssemblerClock(clock))

	_, err := assembler.Assemble(context.Background(), admin, ReportRequest{ReportType: "landOwnership"})
	require.NoError(t, err)
	assert.Len(t, recorder.events, 1)
}

func TestMultiActivityLog_JoinsErrors(t *testing.T) {
	recorder := &recordingActivityLog{}
	err := MultiActivityLog{failingActivityLog{}, recorder, failingActivityLog{}}.Record(context.Background(), ActivityEvent{RequestID: "r"})
	require.Error(t, err)
	assert.Equal(t, 2, strings.Count(err.Error(), "sink down"))
	assert.Len(t, recorder.events, 1)
}

func TestRedisActivityLog(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	sink := NewRedisActivityLog(client, "fpms:report-activity", 1000)
	require.NoError(t, sink.Record(ctx, ActivityEvent{
		RequestID: "req-1", ReportType: "gnWise", Scope: "all", UserID: "u-1", Role: "admin",
		Outcome: OutcomeSuccess, Rows: 6, DurationMs: 12, At: fixedNow,
	}))
	require.NoError(t, sink.Record(ctx, ActivityEvent{
		RequestID: "req-2", ReportType: "gnWise", Outcome: OutcomeFailure, Error: "boom", At: fixedNow,
	}))

	msgs, err := client.XRange(ctx, "fpms:report-activity", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	first := msgs[0].Values
	assert.Equal(t, "req-1", first["request_id"])
	assert.Equal(t, "success", first["outcome"])
	assert.Equal(t, "6", first["rows"])
	assert.Equal(t, "2024-01-31T12:00:00Z", first["at"])
	assert.NotContains(t, first, "error")
	assert.Equal(t, "boom", msgs[1].Values["error"])
}

// ============================================
// Export
// ============================================

func TestExport_AllFormats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	payload, err := f.assembler.Assemble(ctx, admin, ReportRequest{
		ReportType: "divisionWise",
		Scope:      &Scope{Level: ScopeDistrict, Name: "Mannar"},
	})
	require.NoError(t, err)

	tests := []struct {
		format      string
		contentType string
		fileName    string
	}{
		{"csv", "text/csv; charset=utf-8", "division_wise_report_mannar_district_20240131.csv"},
		{"html", "text/html; charset=utf-8", "division_wise_report_mannar_district_20240131.html"},
		{"pdf", "text/html; charset=utf-8", "division_wise_report_mannar_district_20240131.html"},
		{"XLSX", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "division_wise_report_mannar_district_20240131.xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out, err := f.assembler.Export(ctx, payload, tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.contentType, out.ContentType)
			assert.Equal(t, tt.fileName, out.FileName)
			assert.NotEmpty(t, out.Body)
		})
	}

	out, err := f.assembler.Export(ctx, payload, "csv")
	require.NoError(t, err)
	body := string(out.Body)
	assert.Contains(t, body, "Division Wise Report - Mannar District")
	assert.Contains(t, body, "Mannar Town,3,6,5,2,3,0.83,75.0%")
	assert.Contains(t, body, "reference table") // warning rendered as a note
}

func TestExport_UnsupportedFormat(t *testing.T) {
	f := newFixture(t)

	payload, err := f.assembler.Assemble(context.Background(), admin, ReportRequest{ReportType: "gnWise"})
	require.NoError(t, err)

	_, err = f.assembler.Export(context.Background(), payload, "docx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	only := NewReportAssembler(f.resolver, f.engine, nil, zap.NewNop(), WithRenderers(export.NewRegistry(export.CSVRenderer{})))
	_, err = only.Export(context.Background(), payload, "html")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestAssemble_GnOverrideOnDefaultScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	divisionUser := domain.RequestContext{UserID: "u-2", Role: domain.RoleDivision, OfficeCode: "DIV-MT"}

	payload, err := f.assembler.Assemble(ctx, divisionUser, ReportRequest{ReportType: "familySummary", GnOverride: "GN-02"})
	require.NoError(t, err)
	assert.Equal(t, []string{"GN-02"}, payload.Scope.GnCodes)
	require.Len(t, payload.Rows, 2)
	assert.Equal(t, "F03", payload.Rows[0][0])

	payload, err = f.assembler.Assemble(ctx, divisionUser, ReportRequest{ReportType: "familySummary", GnOverride: "GN-11"})
	require.NoError(t, err)
	assert.Empty(t, payload.Rows)
	assert.Contains(t, warningCodes(payload.Warnings), WarnGnOverrideOutOfScope)
}
