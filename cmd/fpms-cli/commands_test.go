package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/it-Barath/fpms-sub006/internal/domain"
	"github.com/it-Barath/fpms-sub006/internal/repository"
	"github.com/it-Barath/fpms-sub006/internal/service"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp() *app {
	reg := repository.NewMemoryRegistry()
	parent := func(c string) sql.NullString { return sql.NullString{String: c, Valid: true} }
	reg.AddOffice(domain.Office{OfficeCode: "DIV-1", OfficeName: "Lagoon", OfficeType: domain.OfficeTypeDivision, IsActive: true})
	reg.AddOffice(domain.Office{OfficeCode: "GN-1", OfficeName: "Jetty", OfficeType: domain.OfficeTypeGN, ParentOfficeCode: parent("DIV-1"), IsActive: true})
	reg.AddOffice(domain.Office{OfficeCode: "GN-2", OfficeName: "Orphan", OfficeType: domain.OfficeTypeGN, IsActive: true})
	for _, f := range [][2]string{{"FAM-1", "GN-1"}, {"FAM-2", "GN-2"}} {
		reg.AddFamily(domain.Family{
			FamilyID: f[0], CurrentGnOfficeCode: f[1], OriginalGnOfficeCode: f[1],
			TotalMembersDeclared: 1, RegistrationDate: time.Now(), TransferState: domain.TransferStateActive,
		})
	}
	reg.AddCitizens(domain.Citizen{CitizenID: "C-1", FamilyID: "FAM-1", FullName: "Only Member", Gender: domain.GenderMale,
		DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), RelationToHead: domain.RelationSelf, IsAlive: true})

	a := &app{}
	a.wire(reg, reg, reg)
	return a
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestReportCmd_Table(t *testing.T) {
	out, _, err := run(t, reportCmd(testApp()), "gnWise", "--level", "division", "--code", "DIV-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "GN Wise Report - Lagoon Division\n"))
	assert.Contains(t, out, "Jetty")
	assert.Contains(t, out, "100.0%")
}

func TestReportCmd_WarningsGoToStderr(t *testing.T) {
	_, stderr, err := run(t, reportCmd(testApp()), "divisionWise")
	require.NoError(t, err)
	assert.Contains(t, stderr, string(service.WarnUnmappedHierarchy))
}

func TestReportCmd_CSVToStdoutAndFile(t *testing.T) {
	out, _, err := run(t, reportCmd(testApp()), "familySummary", "--level", "gn", "--code", "GN-1", "-f", "csv", "-o", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "FAM-1")
	assert.Contains(t, out, "Only Member")

	path := filepath.Join(t.TempDir(), "families.xlsx")
	out, _, err = run(t, reportCmd(testApp()), "familySummary", "-f", "excel", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path+" (2 rows)")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestReportCmd_Errors(t *testing.T) {
	_, _, err := run(t, reportCmd(testApp()), "gnWise", "--level", "province")
	assert.ErrorIs(t, err, service.ErrInvalidScope)

	_, _, err = run(t, reportCmd(testApp()), "gnWise", "-f", "docx")
	assert.ErrorIs(t, err, service.ErrUnsupportedFormat)

	_, _, err = run(t, reportCmd(testApp()))
	assert.Error(t, err)
}

func TestMappingCmd(t *testing.T) {
	out, _, err := run(t, mappingCmd(testApp()))
	require.NoError(t, err)
	assert.Contains(t, out, "GN offices: 2, mapped: 1, unmapped: 1")
	assert.Contains(t, out, "  GN-2")
}

func TestResolveCmd(t *testing.T) {
	out, _, err := run(t, resolveCmd(testApp()), "--division", "DIV-1")
	require.NoError(t, err)
	var res service.Resolution
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []string{"GN-1"}, res.GnCodes)
	assert.Equal(t, service.SourcePrimary, res.Source)

	_, _, err = run(t, resolveCmd(testApp()))
	assert.Error(t, err)
	_, _, err = run(t, resolveCmd(testApp()), "--division", "DIV-1", "--district", "X")
	assert.Error(t, err)
}
