package service

import (
	"context"
	"sort"
	"strings"

	"github.com/it-Barath/fpms-sub006/internal/domain"
	"github.com/it-Barath/fpms-sub006/internal/repository"

	"github.com/shopspring/decimal"
)

// RecipeKey report type key.
type RecipeKey string

const (
	RecipePopulationDemographics RecipeKey = "populationDemographics"
	RecipeEducationLevels        RecipeKey = "educationLevels"
	RecipeEmploymentStatus       RecipeKey = "employmentStatus"
	RecipeHealthConditions       RecipeKey = "healthConditions"
	RecipeLandOwnership          RecipeKey = "landOwnership"
	RecipeFamilySummary          RecipeKey = "familySummary"
	RecipeNewRegistrations       RecipeKey = "newRegistrations"
	RecipeDivisionWise           RecipeKey = "divisionWise"
	RecipeGnWise                 RecipeKey = "gnWise"

	// DefaultRecipe used for unknown report types outside strict mode
	DefaultRecipe = RecipeFamilySummary
)

// Column one report column: header, display kind and how to read it from a row.
type Column struct {
	Header string
	Kind   ColumnKind
	value  func(ResultRow) any
}

func (c Column) Value(r ResultRow) any {
	return c.value(r)
}

func categoryCol(header string) Column {
	return Column{Header: header, Kind: KindText, value: func(r ResultRow) any { return r.Category }}
}

func countCol(header string) Column {
	return Column{Header: header, Kind: KindInteger, value: func(r ResultRow) any { return r.Count }}
}

func percentCol(header string) Column {
	return Column{Header: header, Kind: KindPercent, value: func(r ResultRow) any { return r.Percentage }}
}

func extraCol(header, key string, kind ColumnKind) Column {
	return Column{Header: header, Kind: kind, value: func(r ResultRow) any { return r.Extra[key] }}
}

func attrCol(header, key string, kind ColumnKind) Column {
	return Column{Header: header, Kind: kind, value: func(r ResultRow) any { return r.Attributes[key] }}
}

// Recipe a named aggregation: display name, fixed columns and the query plan.
type Recipe struct {
	Key     RecipeKey
	Name    string
	Columns []Column
	run     func(ctx context.Context, r *recipeRun) error
}

// Headers column headers in display order.
func (r *Recipe) Headers() []string {
	out := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		out[i] = c.Header
	}
	return out
}

type recipeRun struct {
	engine *aggregationEngine
	req    AggregationRequest
	filter repository.StatsFilter
	result *AggregationResult
}

var rollupColumns = []Column{
	countCol("Families"),
	extraCol("Citizens", "citizens", KindInteger),
	extraCol("Male", "male", KindInteger),
	extraCol("Female", "female", KindInteger),
	extraCol("Avg Family Size", "avg_family_size", KindDecimal),
	percentCol("Percentage"),
}

var recipes = []*Recipe{
	{
		Key:  RecipePopulationDemographics,
		Name: "Population Demographics",
		Columns: []Column{
			categoryCol("Age Group"),
			extraCol("Male", "male", KindInteger),
			extraCol("Female", "female", KindInteger),
			extraCol("Other", "other", KindInteger),
			countCol("Total"),
			percentCol("Percentage"),
		},
		run: runPopulationDemographics,
	},
	{
		Key:     RecipeEducationLevels,
		Name:    "Education Levels",
		Columns: []Column{categoryCol("Education Level"), countCol("Citizens"), percentCol("Percentage")},
		run:     runEducationLevels,
	},
	{
		Key:  RecipeEmploymentStatus,
		Name: "Employment Status",
		Columns: []Column{
			categoryCol("Employment Type"),
			countCol("Employed"),
			percentCol("Percentage"),
			extraCol("Earners", "earners", KindInteger),
			extraCol("Total Monthly Income", "total_income", KindDecimal),
			extraCol("Average Monthly Income", "avg_income", KindDecimal),
		},
		run: runEmploymentStatus,
	},
	{
		Key:  RecipeHealthConditions,
		Name: "Health Conditions",
		Columns: []Column{
			categoryCol("Condition"),
			countCol("Citizens"),
			percentCol("Percentage"),
			extraCol("Prevalence per 10,000", "prevalence", KindDecimal),
		},
		run: runHealthConditions,
	},
	{
		Key:  RecipeLandOwnership,
		Name: "Land Ownership",
		Columns: []Column{
			categoryCol("Land Type"),
			countCol("Records"),
			extraCol("Total Area (perches)", "total_area", KindDecimal),
			extraCol("Average Area (perches)", "average_area", KindDecimal),
			percentCol("Share of Area"),
		},
		run: runLandOwnership,
	},
	{
		Key:  RecipeFamilySummary,
		Name: "Family Summary",
		Columns: []Column{
			attrCol("Family ID", "family_id", KindText),
			attrCol("Head of Family", "head_name", KindText),
			attrCol("Address", "address", KindText),
			attrCol("GN Office", "gn_office", KindText),
			attrCol("Registration Date", "registration_date", KindDate),
			extraCol("Declared Members", "declared_members", KindInteger),
			countCol("Linked Members"),
			attrCol("Transfer State", "transfer_state", KindText),
		},
		run: runFamilySummary,
	},
	{
		Key:  RecipeNewRegistrations,
		Name: "New Registrations",
		Columns: []Column{
			attrCol("Registration Date", "registration_date", KindDate),
			categoryCol("GN Office"),
			countCol("Families"),
			extraCol("Citizens", "citizens", KindInteger),
			extraCol("Avg Family Size", "avg_family_size", KindDecimal),
			percentCol("Percentage"),
		},
		run: runNewRegistrations,
	},
	{
		Key:  RecipeDivisionWise,
		Name: "Division Wise",
		Columns: append([]Column{
			categoryCol("Division"),
			extraCol("GN Offices", "gn_offices", KindInteger),
		}, rollupColumns...),
		run: runDivisionWise,
	},
	{
		Key:  RecipeGnWise,
		Name: "GN Wise",
		Columns: append([]Column{
			categoryCol("GN Office"),
			attrCol("Division", "division", KindText),
		}, rollupColumns...),
		run: runGnWise,
	},
}

var recipeIndex = func() map[string]*Recipe {
	m := make(map[string]*Recipe, len(recipes)+1)
	for _, r := range recipes {
		m[normalizeRecipeKey(string(r.Key))] = r
	}
	m["overview"] = m[normalizeRecipeKey(string(DefaultRecipe))]
	return m
}()

// LookupRecipe finds a recipe by key. Case, "_", "-" and spaces are ignored,
// so "division_wise" and "DivisionWise" both match divisionWise.
func LookupRecipe(key string) (*Recipe, bool) {
	r, ok := recipeIndex[normalizeRecipeKey(key)]
	return r, ok
}

// RecipeKeys all report type keys in registration order.
func RecipeKeys() []RecipeKey {
	out := make([]RecipeKey, len(recipes))
	for i, r := range recipes {
		out[i] = r.Key
	}
	return out
}

func normalizeRecipeKey(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}

// ============================================
// populationDemographics
// ============================================

type ageBracket struct {
	label    string
	min, max int // max < 0: open ended
}

// 0-17, 18-35, 36-60 inclusive; 60+ means older than 60
var ageBrackets = []ageBracket{
	{"0-17", 0, 17},
	{"18-35", 18, 35},
	{"36-60", 36, 60},
	{"60+", 61, -1},
}

func bracketIndex(age int) int {
	if age < 0 {
		age = 0
	}
	for i, b := range ageBrackets {
		if age >= b.min && (b.max < 0 || age <= b.max) {
			return i
		}
	}
	return len(ageBrackets) - 1
}

func runPopulationDemographics(ctx context.Context, r *recipeRun) error {
	counts, err := r.engine.stats.AgeGenderCounts(ctx, r.filter, r.engine.now())
	if err != nil {
		return queryFailure("age/gender counts", err)
	}

	type split struct{ male, female, other int }
	buckets := make([]split, len(ageBrackets))
	for _, c := range counts {
		b := &buckets[bracketIndex(c.Age)]
		switch domain.NormalizeGender(c.Gender) {
		case domain.GenderMale:
			b.male += c.Count
		case domain.GenderFemale:
			b.female += c.Count
		default:
			b.other += c.Count
		}
	}

	rows := make([]ResultRow, 0, len(ageBrackets))
	for i, b := range ageBrackets {
		s := buckets[i]
		n := s.male + s.female + s.other
		rows = append(rows, ResultRow{
			Category: b.label,
			Count:    n,
			Extra: map[string]float64{
				"male":       float64(s.male),
				"female":     float64(s.female),
				"other":      float64(s.other),
				"male_pct":   percentOf(float64(s.male), float64(n)),
				"female_pct": percentOf(float64(s.female), float64(n)),
				"other_pct":  percentOf(float64(s.other), float64(n)),
			},
		})
	}
	r.result.Total = fillPercentages(rows)
	r.result.Population = r.result.Total
	r.result.Rows = rows
	return nil
}

// ============================================
// educationLevels
// ============================================

const notRecordedLabel = "Not Recorded"

// highest first
var educationRank = []string{
	"PhD", "Masters", "Bachelors", "Diploma", "GCE A/L", "GCE O/L",
	"Grade 11", "Grade 10", "Grade 9", "Grade 8", "Grade 7", "Grade 6",
	"Grade 5", "Grade 4", "Grade 3", "Grade 2", "Grade 1",
}

var educationRankIndex = func() map[string]int {
	m := make(map[string]int, len(educationRank))
	for i, l := range educationRank {
		m[strings.ToLower(l)] = i
	}
	return m
}()

func educationPosition(label string) (int, bool) {
	i, ok := educationRankIndex[strings.ToLower(strings.TrimSpace(label))]
	return i, ok
}

func runEducationLevels(ctx context.Context, r *recipeRun) error {
	levels, recorded, err := r.engine.stats.EducationLevelCounts(ctx, r.filter)
	if err != nil {
		return queryFailure("education level counts", err)
	}

	rows := make([]ResultRow, 0, len(levels)+1)
	for _, l := range levels {
		row := ResultRow{Category: l.Label, Count: l.Count}
		if pos, ok := educationPosition(l.Label); ok {
			row.Extra = map[string]float64{"rank": float64(pos + 1)}
		}
		rows = append(rows, row)
	}

	if r.req.IncludeUnrecorded {
		totals, err := r.engine.stats.PopulationTotals(ctx, r.filter)
		if err != nil {
			return queryFailure("population totals", err)
		}
		r.result.Population = totals.Citizens
		if missing := totals.Citizens - recorded; missing > 0 {
			rows = append(rows, ResultRow{Category: notRecordedLabel, Count: missing})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return educationLess(rows[i].Category, rows[j].Category)
	})
	r.result.Total = fillPercentages(rows)
	r.result.Rows = rows
	return nil
}

// educationLess fixed rank order, then unknown levels by name, "Not Recorded" last.
func educationLess(a, b string) bool {
	if a == notRecordedLabel || b == notRecordedLabel {
		return b == notRecordedLabel && a != notRecordedLabel
	}
	pa, okA := educationPosition(a)
	pb, okB := educationPosition(b)
	switch {
	case okA && okB:
		return pa < pb
	case okA != okB:
		return okA
	}
	return a < b
}

// ============================================
// employmentStatus
// ============================================

func runEmploymentStatus(ctx context.Context, r *recipeRun) error {
	groups, err := r.engine.stats.EmploymentBreakdown(ctx, r.filter)
	if err != nil {
		return queryFailure("employment breakdown", err)
	}

	rows := make([]ResultRow, 0, len(groups))
	for _, g := range groups {
		avg := decimal.Zero
		if g.Earners > 0 {
			avg = g.TotalIncome.Div(decimal.NewFromInt(int64(g.Earners)))
		}
		rows = append(rows, ResultRow{
			Category: g.EmploymentType,
			Count:    g.Employed,
			Extra: map[string]float64{
				"earners":      float64(g.Earners),
				"total_income": g.TotalIncome.InexactFloat64(),
				"avg_income":   avg.InexactFloat64(),
			},
		})
	}
	sortByCountDesc(rows)
	r.result.Total = fillPercentages(rows)
	r.result.Rows = rows
	return nil
}

// ============================================
// healthConditions
// ============================================

func runHealthConditions(ctx context.Context, r *recipeRun) error {
	counts, err := r.engine.stats.HealthConditionCounts(ctx, r.filter)
	if err != nil {
		return queryFailure("health condition counts", err)
	}
	// prevalence is per 10,000 of the whole scoped population
	totals, err := r.engine.stats.PopulationTotals(ctx, r.filter)
	if err != nil {
		return queryFailure("population totals", err)
	}
	population := totals.Citizens

	rows := make([]ResultRow, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, ResultRow{
			Category: c.Label,
			Count:    c.Count,
			Extra:    map[string]float64{"prevalence": ratio(float64(c.Count)*10000, float64(population))},
		})
	}
	sortByCountDesc(rows)
	r.result.Total = fillPercentages(rows)
	r.result.Population = population
	r.result.Rows = rows
	return nil
}

// ============================================
// landOwnership
// ============================================

func runLandOwnership(ctx context.Context, r *recipeRun) error {
	groups, err := r.engine.stats.LandBreakdown(ctx, r.filter)
	if err != nil {
		return queryFailure("land breakdown", err)
	}

	totalArea := decimal.Zero
	for _, g := range groups {
		totalArea = totalArea.Add(g.TotalArea)
	}

	rows := make([]ResultRow, 0, len(groups))
	for _, g := range groups {
		avg := decimal.Zero
		if g.Records > 0 {
			avg = g.TotalArea.Div(decimal.NewFromInt(int64(g.Records)))
		}
		rows = append(rows, ResultRow{
			Category: g.LandType,
			Count:    g.Records,
			Extra: map[string]float64{
				"total_area":   g.TotalArea.InexactFloat64(),
				"average_area": avg.InexactFloat64(),
			},
		})
	}
	sortByCountDesc(rows)
	r.result.Total = fillPercentages(rows)
	// share of total area; record share when no area was captured at all
	if totalArea.IsPositive() {
		for i := range rows {
			rows[i].Percentage = percentOf(rows[i].Extra["total_area"], totalArea.InexactFloat64())
		}
	}
	r.result.Rows = rows
	return nil
}

// ============================================
// familySummary
// ============================================

func runFamilySummary(ctx context.Context, r *recipeRun) error {
	limit := r.engine.listingLimit
	// one extra row tells a full page from a truncated one
	listing, err := r.engine.stats.FamilyListing(ctx, r.filter, limit+1)
	if err != nil {
		return queryFailure("family listing", err)
	}
	truncated := len(listing) > limit
	if truncated {
		listing = listing[:limit]
	}

	rows := make([]ResultRow, 0, len(listing))
	for _, f := range listing {
		rows = append(rows, ResultRow{
			Category: f.FamilyID,
			Count:    f.LinkedMembers,
			Extra:    map[string]float64{"declared_members": float64(f.TotalMembersDeclared)},
			Attributes: map[string]string{
				"family_id":         f.FamilyID,
				"head_name":         f.HeadName,
				"address":           f.Address,
				"gn_office":         f.GnOfficeName,
				"gn_office_code":    f.GnOfficeCode,
				"registration_date": f.RegistrationDate.Format(dateLayout),
				"transfer_state":    f.TransferState,
			},
		})
	}
	r.result.Total = fillPercentages(rows)
	r.result.Rows = rows
	if truncated {
		r.result.Warnings = append(r.result.Warnings, newWarning(WarnListingTruncated,
			"listing is limited to %d families", limit))
	}
	return nil
}

// ============================================
// newRegistrations
// ============================================

func runNewRegistrations(ctx context.Context, r *recipeRun) error {
	groups, err := r.engine.stats.RegistrationsByDay(ctx, r.filter)
	if err != nil {
		return queryFailure("registrations by day", err)
	}

	rows := make([]ResultRow, 0, len(groups))
	for _, g := range groups {
		if g.Families == 0 {
			continue
		}
		rows = append(rows, ResultRow{
			Category: nameOr(g.GnOfficeName, g.GnOfficeCode),
			Count:    g.Families,
			Extra: map[string]float64{
				"citizens":        float64(g.Citizens),
				"avg_family_size": ratio(float64(g.Citizens), float64(g.Families)),
			},
			Attributes: map[string]string{
				"registration_date": g.Date.Format(dateLayout),
				"gn_office_code":    g.GnOfficeCode,
			},
		})
	}
	// newest day first, then GN name
	sort.SliceStable(rows, func(i, j int) bool {
		di, dj := rows[i].Attributes["registration_date"], rows[j].Attributes["registration_date"]
		if di != dj {
			return di > dj
		}
		return rows[i].Category < rows[j].Category
	})
	r.result.Total = fillPercentages(rows)
	r.result.Rows = rows
	return nil
}

// ============================================
// divisionWise / gnWise
// ============================================

type rollupAcc struct {
	families, citizens, male, female int
	gnOffices                        int
}

func (a rollupAcc) row(category string) ResultRow {
	return ResultRow{
		Category: category,
		Count:    a.families,
		Extra: map[string]float64{
			"citizens":        float64(a.citizens),
			"male":            float64(a.male),
			"female":          float64(a.female),
			"gn_offices":      float64(a.gnOffices),
			"avg_family_size": ratio(float64(a.citizens), float64(a.families)),
		},
	}
}

// gnMembership GN -> division placement for the rolled-up GN codes, plus the
// codes that cannot be placed.
func (r *recipeRun) gnMembership(ctx context.Context, rollup []repository.GnRollupRow) (map[string]GnMember, []string, error) {
	members := map[string]GnMember{}
	var unmapped []string

	if r.req.Resolution.All {
		codes := make([]string, 0, len(rollup))
		for _, g := range rollup {
			codes = append(codes, g.GnOfficeCode)
		}
		described, missing, err := r.engine.resolver.DescribeGnOffices(ctx, codes)
		if err != nil {
			return nil, nil, err
		}
		for _, m := range described {
			members[m.GnCode] = m
		}
		return members, missing, nil
	}

	for _, m := range r.req.Resolution.Members {
		if divisionKey(m) == "" {
			unmapped = append(unmapped, m.GnCode)
			continue
		}
		members[m.GnCode] = m
	}
	return members, unmapped, nil
}

func (r *recipeRun) noteUnmapped(rollup []repository.GnRollupRow, unmapped []string) {
	if len(unmapped) == 0 {
		return
	}
	set := map[string]struct{}{}
	for _, c := range unmapped {
		set[c] = struct{}{}
	}
	summary := &UnmappedSummary{GnOffices: append([]string(nil), unmapped...)}
	sort.Strings(summary.GnOffices)
	for _, g := range rollup {
		if _, ok := set[g.GnOfficeCode]; ok {
			summary.Families += g.Families
			summary.Citizens += g.Citizens
		}
	}
	r.result.Unmapped = summary
	r.result.Warnings = append(r.result.Warnings, newWarning(WarnUnmappedHierarchy,
		"%d GN office(s) have no division mapping (%d families, %d citizens)",
		len(summary.GnOffices), summary.Families, summary.Citizens))
}

func runDivisionWise(ctx context.Context, r *recipeRun) error {
	rollup, err := r.engine.stats.GnRollup(ctx, r.filter)
	if err != nil {
		return queryFailure("gn rollup", err)
	}
	members, unmapped, err := r.gnMembership(ctx, rollup)
	if err != nil {
		return err
	}

	type division struct {
		code, name string
		acc        rollupAcc
	}
	byDivision := map[string]*division{}
	for _, g := range rollup {
		m, ok := members[g.GnOfficeCode]
		if !ok {
			continue
		}
		id := divisionID(m)
		d := byDivision[id]
		if d == nil {
			d = &division{code: m.DivisionCode, name: divisionKey(m)}
			byDivision[id] = d
		}
		d.acc.families += g.Families
		d.acc.citizens += g.Citizens
		d.acc.male += g.Male
		d.acc.female += g.Female
		d.acc.gnOffices++
	}

	ids := make([]string, 0, len(byDivision))
	for id := range byDivision {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rows := make([]ResultRow, 0, len(ids))
	for _, id := range ids {
		d := byDivision[id]
		row := d.acc.row(d.name)
		row.Attributes = map[string]string{"division_code": d.code}
		rows = append(rows, row)
	}
	sortByCountDesc(rows)
	r.result.Total = fillPercentages(rows)
	r.result.Rows = rows
	r.noteUnmapped(rollup, unmapped)
	return nil
}

func runGnWise(ctx context.Context, r *recipeRun) error {
	rollup, err := r.engine.stats.GnRollup(ctx, r.filter)
	if err != nil {
		return queryFailure("gn rollup", err)
	}
	members, unmapped, err := r.gnMembership(ctx, rollup)
	if err != nil {
		return err
	}
	names := map[string]string{}
	for _, m := range r.req.Resolution.Members {
		names[m.GnCode] = m.GnName
	}

	rows := make([]ResultRow, 0, len(rollup))
	for _, g := range rollup {
		acc := rollupAcc{families: g.Families, citizens: g.Citizens, male: g.Male, female: g.Female, gnOffices: 1}
		m, mapped := members[g.GnOfficeCode]
		name := nameOr(m.GnName, nameOr(names[g.GnOfficeCode], g.GnOfficeCode))
		row := acc.row(name)
		row.Attributes = map[string]string{"gn_office_code": g.GnOfficeCode, "division": ""}
		if mapped {
			row.Attributes["division"] = divisionKey(m)
		}
		rows = append(rows, row)
	}
	sortByCountDesc(rows)
	r.result.Total = fillPercentages(rows)
	r.result.Rows = rows
	r.noteUnmapped(rollup, unmapped)
	return nil
}
