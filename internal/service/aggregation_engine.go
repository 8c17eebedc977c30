package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/it-Barath/fpms-sub006/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ResultRow one category of an aggregation. Percentage is 0-100, unrounded;
// rounding is a display concern (Formatter).
type ResultRow struct {
	Category   string             `json:"category"`
	Count      int                `json:"count"`
	Percentage float64            `json:"percentage"`
	Extra      map[string]float64 `json:"extra,omitempty"`
	Attributes map[string]string  `json:"attributes,omitempty"`
}

// UnmappedSummary data that a division rollup could not place under any division.
type UnmappedSummary struct {
	GnOffices []string `json:"gn_offices"`
	Families  int      `json:"families"`
	Citizens  int      `json:"citizens"`
}

// AggregationResult output of one recipe run. Computed per request, never
// cached or mutated after return.
type AggregationResult struct {
	Recipe     RecipeKey        `json:"recipe"`
	Rows       []ResultRow      `json:"rows"`
	Total      int              `json:"total"`      // sum of row counts
	Population int              `json:"population"` // alive citizens in scope, when the recipe needs it
	Window     Window           `json:"window"`
	Unmapped   *UnmappedSummary `json:"unmapped,omitempty"`
	Warnings   []Warning        `json:"warnings,omitempty"`
}

type AggregationRequest struct {
	Recipe            RecipeKey
	Resolution        *Resolution
	Window            Window
	IncludeUnrecorded bool // educationLevels: add a "Not Recorded" category
}

// ScopeStatistics headline figures for a scope (no date filter).
type ScopeStatistics struct {
	Scope                  *Resolution          `json:"scope"`
	Families               int                  `json:"families"`
	Citizens               int                  `json:"citizens"`
	Male                   int                  `json:"male"`
	Female                 int                  `json:"female"`
	AvgFamilySize          float64              `json:"avg_family_size"`
	GnOffices              int                  `json:"gn_offices"`
	Divisions              int                  `json:"divisions"`
	DeclaredMembers        int                  `json:"declared_members"`
	MemberMismatchFamilies int                  `json:"member_mismatch_families"`
	PendingTransfers       int                  `json:"pending_transfers"`
	Mapping                *MappingCompleteness `json:"mapping"`
	Warnings               []Warning            `json:"warnings,omitempty"`
}

// AggregationEngine runs named recipes over a resolved scope.
type AggregationEngine interface {
	Aggregate(ctx context.Context, req AggregationRequest) (*AggregationResult, error)
	Statistics(ctx context.Context, res *Resolution) (*ScopeStatistics, error)
}

type aggregationEngine struct {
	stats        repository.StatsRepository
	resolver     HierarchyResolver
	listingLimit int
	queryTimeout time.Duration
	now          func() time.Time
	logger       *zap.Logger
}

// EngineOption optional engine settings.
type EngineOption func(*aggregationEngine)

// WithListingLimit caps row-level recipes (familySummary).
func WithListingLimit(n int) EngineOption {
	return func(e *aggregationEngine) {
		if n > 0 && n <= MaxListingRows {
			e.listingLimit = n
		}
	}
}

// WithQueryTimeout bounds each aggregation; 0 disables the bound.
func WithQueryTimeout(d time.Duration) EngineOption {
	return func(e *aggregationEngine) { e.queryTimeout = d }
}

// WithClock overrides time.Now (age and window computations).
func WithClock(now func() time.Time) EngineOption {
	return func(e *aggregationEngine) { e.now = now }
}

// MaxListingRows hard cap for row-level listings.
const MaxListingRows = 1000

func NewAggregationEngine(stats repository.StatsRepository, resolver HierarchyResolver, logger *zap.Logger, opts ...EngineOption) AggregationEngine {
	e := &aggregationEngine{
		stats:        stats,
		resolver:     resolver,
		listingLimit: MaxListingRows,
		now:          time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *aggregationEngine) Aggregate(ctx context.Context, req AggregationRequest) (*AggregationResult, error) {
	recipe, ok := LookupRecipe(string(req.Recipe))
	if !ok {
		return nil, ErrUnknownReportType
	}
	if req.Resolution == nil {
		return nil, invalidScope("scope is not resolved")
	}

	result := &AggregationResult{
		Recipe:   recipe.Key,
		Rows:     []ResultRow{},
		Window:   req.Window,
		Warnings: append([]Warning(nil), req.Resolution.Warnings...),
	}
	// unknown or unmapped scope: zero results, not an error
	if req.Resolution.Empty() {
		return result, nil
	}

	if e.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.queryTimeout)
		defer cancel()
	}

	run := recipeRun{
		engine: e,
		req:    req,
		filter: req.Resolution.Filter(req.Window),
		result: result,
	}
	if err := recipe.run(ctx, &run); err != nil {
		e.logger.Error("aggregation failed",
			zap.String("recipe", string(recipe.Key)),
			zap.String("scope", req.Resolution.String()),
			zap.Error(err),
		)
		return nil, err
	}
	return result, nil
}

func (e *aggregationEngine) Statistics(ctx context.Context, res *Resolution) (*ScopeStatistics, error) {
	if res == nil {
		return nil, invalidScope("scope is not resolved")
	}
	out := &ScopeStatistics{Scope: res, Warnings: append([]Warning(nil), res.Warnings...)}

	if e.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.queryTimeout)
		defer cancel()
	}

	// mapping completeness and the scoped totals are independent reads
	var (
		mapping   *MappingCompleteness
		totals    *repository.PopulationTotals
		divisions = -1
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		mapping, err = e.resolver.ComputeMappingCompleteness(gctx)
		return err
	})
	if !res.Empty() {
		g.Go(func() error {
			var err error
			if totals, err = e.stats.PopulationTotals(gctx, res.Filter(UnboundedWindow())); err != nil {
				return queryFailure("population totals", err)
			}
			return nil
		})
	}
	if res.All {
		// the "all" scope carries no members; place every GN office that has families
		g.Go(func() error {
			n, err := e.countDivisions(gctx)
			divisions = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out.Mapping = mapping

	if totals == nil {
		return out, nil
	}
	out.Families = totals.Families
	out.Citizens = totals.Citizens
	out.Male = totals.Male
	out.Female = totals.Female
	out.DeclaredMembers = totals.DeclaredMembers
	out.MemberMismatchFamilies = totals.MemberMismatchFamilies
	out.PendingTransfers = totals.PendingTransfers
	out.AvgFamilySize = ratio(float64(totals.Citizens), float64(totals.Families))

	if res.All {
		out.GnOffices = mapping.TotalGnOffices
	} else {
		out.GnOffices = len(res.GnCodes)
	}
	if divisions < 0 {
		divisions = countDistinctDivisions(res.Members)
	}
	out.Divisions = divisions
	return out, nil
}

// countDivisions distinct divisions over every GN office with registered families.
func (e *aggregationEngine) countDivisions(ctx context.Context) (int, error) {
	rollup, err := e.stats.GnRollup(ctx, repository.StatsFilter{AllGn: true})
	if err != nil {
		return 0, queryFailure("gn rollup", err)
	}
	codes := make([]string, 0, len(rollup))
	for _, g := range rollup {
		codes = append(codes, g.GnOfficeCode)
	}
	members, _, err := e.resolver.DescribeGnOffices(ctx, codes)
	if err != nil {
		return 0, err
	}
	return countDistinctDivisions(members), nil
}

func countDistinctDivisions(members []GnMember) int {
	seen := map[string]struct{}{}
	for _, m := range members {
		if id := divisionID(m); id != "" {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

// ============================================
// helpers shared by recipes
// ============================================

// percentOf n as a percentage of total; 0 when total is not positive.
func percentOf(n, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return n / total * 100
}

func ratio(n, d float64) float64 {
	if d <= 0 {
		return 0
	}
	return n / d
}

// sortByCountDesc default numeric ordering; ties by category ascending.
func sortByCountDesc(rows []ResultRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Category < rows[j].Category
	})
}

// fillPercentages percentage of each row's count against the sum of counts.
func fillPercentages(rows []ResultRow) int {
	total := 0
	for _, r := range rows {
		total += r.Count
	}
	for i := range rows {
		rows[i].Percentage = percentOf(float64(rows[i].Count), float64(total))
	}
	return total
}

// divisionID identity of a member's division: the office code when known,
// otherwise the reference name. Same-named divisions in different districts
// stay apart.
func divisionID(m GnMember) string {
	if code := strings.TrimSpace(m.DivisionCode); code != "" {
		return "code:" + code
	}
	if name := strings.TrimSpace(m.DivisionName); name != "" {
		return "name:" + name
	}
	return ""
}

// divisionKey display name of a member's division.
func divisionKey(m GnMember) string {
	if name := strings.TrimSpace(m.DivisionName); name != "" {
		return name
	}
	return m.DivisionCode
}
