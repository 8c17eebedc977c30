package service

import (
	"context"
	"sort"
	"strings"

	"github.com/it-Barath/fpms-sub006/internal/domain"
	"github.com/it-Barath/fpms-sub006/internal/repository"

	"go.uber.org/zap"
)

// ScopeLevel hierarchy level a report or statistic is requested for.
type ScopeLevel string

const (
	ScopeAll      ScopeLevel = "all"
	ScopeDistrict ScopeLevel = "district"
	ScopeDivision ScopeLevel = "division"
	ScopeGN       ScopeLevel = "gn"
)

// ParseScopeLevel accepts the level names case-insensitively.
func ParseScopeLevel(s string) (ScopeLevel, bool) {
	switch ScopeLevel(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeAll:
		return ScopeAll, true
	case ScopeDistrict:
		return ScopeDistrict, true
	case ScopeDivision:
		return ScopeDivision, true
	case ScopeGN:
		return ScopeGN, true
	}
	return "", false
}

// Label display form used in report titles.
func (l ScopeLevel) Label() string {
	switch l {
	case ScopeDistrict:
		return "District"
	case ScopeDivision:
		return "Division"
	case ScopeGN:
		return "GN Division"
	}
	return ""
}

// ResolutionSource which linkage convention produced a GN set.
type ResolutionSource string

const (
	SourcePrimary   ResolutionSource = "primary"   // offices.parent_office_code
	SourceReference ResolutionSource = "reference" // gn_divisions by name
	SourceMixed     ResolutionSource = "mixed"
	SourceNone      ResolutionSource = "none"
)

// Scope request-level scope. Districts are addressed by name (Code is
// accepted and translated); divisions and GN offices by code.
type Scope struct {
	Level      ScopeLevel `json:"level" validate:"required,oneof=all district division gn"`
	Code       string     `json:"code,omitempty" validate:"max=64"`
	Name       string     `json:"name,omitempty" validate:"max=128"`
	GnOverride string     `json:"gn_override,omitempty" validate:"max=64"`
}

// GnMember one resolved GN office with its division, when known.
type GnMember struct {
	GnCode       string `json:"gn_code"`
	GnName       string `json:"gn_name"`
	DivisionCode string `json:"division_code,omitempty"`
	DivisionName string `json:"division_name,omitempty"`
}

// Resolution concrete GN set for a scope. GnCodes are sorted and distinct.
// All means no GN predicate at all.
type Resolution struct {
	Level    ScopeLevel       `json:"level"`
	Code     string           `json:"code,omitempty"`
	Name     string           `json:"name"`
	Source   ResolutionSource `json:"source"`
	All      bool             `json:"all"`
	GnCodes  []string         `json:"gn_codes"`
	Members  []GnMember       `json:"members"`
	Warnings []Warning        `json:"warnings,omitempty"`
}

// Empty a scope that cannot match any family.
func (r *Resolution) Empty() bool {
	return !r.All && len(r.GnCodes) == 0
}

// Filter stats filter for this scope and window.
func (r *Resolution) Filter(w Window) repository.StatsFilter {
	f := repository.StatsFilter{AllGn: r.All}
	if !r.All {
		f.GnCodes = append([]string(nil), r.GnCodes...)
	}
	return w.Apply(f)
}

// DisplayName name used in titles ("Mannar", "Mannar Town", ...).
func (r *Resolution) DisplayName() string {
	if r.All {
		return "All Districts"
	}
	if r.Name != "" {
		return r.Name
	}
	return r.Code
}

func (r *Resolution) String() string {
	if r.All {
		return string(ScopeAll)
	}
	if r.Code != "" {
		return string(r.Level) + ":" + r.Code
	}
	return string(r.Level) + ":" + r.Name
}

func (r *Resolution) setMembers(members []GnMember) {
	byCode := make(map[string]GnMember, len(members))
	for _, m := range members {
		if m.GnCode == "" {
			continue
		}
		if _, ok := byCode[m.GnCode]; !ok {
			byCode[m.GnCode] = m
		}
	}
	r.GnCodes = make([]string, 0, len(byCode))
	for code := range byCode {
		r.GnCodes = append(r.GnCodes, code)
	}
	sort.Strings(r.GnCodes)
	r.Members = make([]GnMember, 0, len(r.GnCodes))
	for _, code := range r.GnCodes {
		r.Members = append(r.Members, byCode[code])
	}
}

// MappingCompleteness how many GN offices carry a primary division link.
type MappingCompleteness struct {
	TotalGnOffices  int      `json:"total_gn_offices"`
	MappedGnOffices int      `json:"mapped_gn_offices"`
	UnmappedGnCodes []string `json:"unmapped_gn_codes"`
}

func (m *MappingCompleteness) Complete() bool {
	return m.MappedGnOffices >= m.TotalGnOffices
}

func (m *MappingCompleteness) Unmapped() int {
	return m.TotalGnOffices - m.MappedGnOffices
}

// HierarchyResolver turns scopes into GN office sets using the primary
// offices table first and the reference table as fallback.
type HierarchyResolver interface {
	ResolveGnCodesForDivision(ctx context.Context, divisionCode string) (*Resolution, error)
	ResolveGnCodesForDistrict(ctx context.Context, districtName string) (*Resolution, error)
	ComputeMappingCompleteness(ctx context.Context) (*MappingCompleteness, error)
	ResolveScope(ctx context.Context, scope Scope) (*Resolution, error)
	DefaultScope(ctx context.Context, rc domain.RequestContext) (Scope, error)

	// DescribeGnOffices division membership for arbitrary GN codes. Codes that
	// neither path can place under a division are returned as unmapped.
	DescribeGnOffices(ctx context.Context, gnCodes []string) (members []GnMember, unmapped []string, err error)
}

const unmappedSampleLimit = 100

type hierarchyResolver struct {
	offices   repository.OfficesRepository
	reference repository.ReferenceDirectory
	logger    *zap.Logger
}

func NewHierarchyResolver(offices repository.OfficesRepository, reference repository.ReferenceDirectory, logger *zap.Logger) HierarchyResolver {
	return &hierarchyResolver{
		offices:   offices,
		reference: reference,
		logger:    logger,
	}
}

// ============================================
// Division / District
// ============================================

func (h *hierarchyResolver) ResolveGnCodesForDivision(ctx context.Context, divisionCode string) (*Resolution, error) {
	code := strings.TrimSpace(divisionCode)
	if code == "" {
		return nil, invalidScope("division code is required")
	}

	office, err := h.offices.GetOffice(ctx, code)
	if err != nil {
		return nil, queryFailure("get division office", err)
	}
	name := code
	if office != nil && office.OfficeName != "" {
		name = office.OfficeName
	}
	res := &Resolution{Level: ScopeDivision, Code: code, Name: name}

	// primary: parent_office_code
	children, err := h.offices.ListChildOffices(ctx, domain.OfficeTypeGN, code)
	if err != nil {
		return nil, queryFailure("list gn offices of division", err)
	}
	if len(children) > 0 {
		members := make([]GnMember, 0, len(children))
		for _, c := range children {
			members = append(members, GnMember{GnCode: c.OfficeCode, GnName: c.OfficeName, DivisionCode: code, DivisionName: name})
		}
		res.Source = SourcePrimary
		res.setMembers(members)
		return res, nil
	}

	// fallback: reference table by division name
	rows, err := h.reference.ListGnByDivision(ctx, name)
	if err != nil {
		return nil, queryFailure("list reference gn divisions", err)
	}
	if len(rows) == 0 {
		res.Source = SourceNone
		res.setMembers(nil)
		res.Warnings = append(res.Warnings, newWarning(WarnUnmappedHierarchy,
			"no GN offices are mapped to division %s", name))
		return res, nil
	}

	members := make([]GnMember, 0, len(rows))
	for _, row := range rows {
		members = append(members, GnMember{GnCode: row.GnID, GnName: row.GnName, DivisionCode: code, DivisionName: name})
	}
	res.Source = SourceReference
	res.setMembers(members)
	res.Warnings = append(res.Warnings, newWarning(WarnUnmappedHierarchy,
		"division %s resolved through the reference table; primary GN mapping is incomplete", name))
	h.logger.Debug("division resolved via reference table",
		zap.String("division_code", code),
		zap.String("division_name", name),
		zap.Int("gn_offices", len(res.GnCodes)),
	)
	return res, nil
}

func (h *hierarchyResolver) ResolveGnCodesForDistrict(ctx context.Context, districtName string) (*Resolution, error) {
	name := strings.TrimSpace(districtName)
	if name == "" {
		return nil, invalidScope("district name is required")
	}

	district, err := h.offices.FindOfficeByName(ctx, domain.OfficeTypeDistrict, name)
	if err != nil {
		return nil, queryFailure("find district office", err)
	}
	res := &Resolution{Level: ScopeDistrict, Name: name}
	if district != nil {
		res.Code = district.OfficeCode
	}

	// district -> division links come from the reference table
	divisionCodes, err := h.referenceDivisionCodes(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(divisionCodes) == 0 && district != nil {
		children, err := h.offices.ListChildOffices(ctx, domain.OfficeTypeDivision, district.OfficeCode)
		if err != nil {
			return nil, queryFailure("list divisions of district", err)
		}
		for _, c := range children {
			divisionCodes = append(divisionCodes, c.OfficeCode)
		}
	}

	var members []GnMember
	sources := map[ResolutionSource]struct{}{}
	for _, code := range divisionCodes {
		sub, err := h.ResolveGnCodesForDivision(ctx, code)
		if err != nil {
			return nil, err
		}
		members = append(members, sub.Members...)
		res.Warnings = append(res.Warnings, sub.Warnings...)
		if len(sub.GnCodes) > 0 {
			sources[sub.Source] = struct{}{}
		}
	}
	res.setMembers(members)

	switch len(sources) {
	case 0:
		res.Source = SourceNone
		if len(divisionCodes) == 0 {
			res.Warnings = append(res.Warnings, newWarning(WarnUnmappedHierarchy,
				"no divisions are mapped to district %s", name))
		}
	case 1:
		for s := range sources {
			res.Source = s
		}
	default:
		res.Source = SourceMixed
	}
	return res, nil
}

// referenceDivisionCodes division names listed under a district in the
// reference table, translated to office codes where the primary store knows
// the division. Unknown divisions keep their name, which the division
// resolver treats as a name for the reference lookup.
func (h *hierarchyResolver) referenceDivisionCodes(ctx context.Context, districtName string) ([]string, error) {
	names, err := h.reference.ListDivisionsByDistrict(ctx, districtName)
	if err != nil {
		return nil, queryFailure("list reference divisions", err)
	}
	codes := make([]string, 0, len(names))
	for _, n := range names {
		office, err := h.offices.FindOfficeByName(ctx, domain.OfficeTypeDivision, n)
		if err != nil {
			return nil, queryFailure("find division office", err)
		}
		if office != nil {
			codes = append(codes, office.OfficeCode)
		} else {
			codes = append(codes, n)
		}
	}
	return codes, nil
}

// ============================================
// Mapping completeness
// ============================================

func (h *hierarchyResolver) ComputeMappingCompleteness(ctx context.Context) (*MappingCompleteness, error) {
	total, mapped, err := h.offices.CountGnMapping(ctx)
	if err != nil {
		return nil, queryFailure("count gn mapping", err)
	}
	m := &MappingCompleteness{TotalGnOffices: total, MappedGnOffices: mapped, UnmappedGnCodes: []string{}}
	if !m.Complete() {
		codes, err := h.offices.ListUnmappedGnCodes(ctx, unmappedSampleLimit)
		if err != nil {
			return nil, queryFailure("list unmapped gn offices", err)
		}
		m.UnmappedGnCodes = codes
		h.logger.Warn("GN offices without division mapping",
			zap.Int("total", total),
			zap.Int("mapped", mapped),
		)
	}
	return m, nil
}

// ============================================
// Scope dispatch
// ============================================

func (h *hierarchyResolver) ResolveScope(ctx context.Context, scope Scope) (*Resolution, error) {
	var (
		res *Resolution
		err error
	)
	switch scope.Level {
	case ScopeAll:
		res = &Resolution{Level: ScopeAll, Source: SourcePrimary, All: true, GnCodes: []string{}, Members: []GnMember{}}
	case ScopeDistrict:
		res, err = h.resolveDistrictScope(ctx, scope)
	case ScopeDivision:
		res, err = h.resolveDivisionScope(ctx, scope)
	case ScopeGN:
		res, err = h.resolveGn(ctx, scope.Code)
	default:
		return nil, invalidScope("unknown scope level %q", scope.Level)
	}
	if err != nil {
		return nil, err
	}

	if override := strings.TrimSpace(scope.GnOverride); override != "" {
		return h.applyGnOverride(ctx, res, override)
	}
	return res, nil
}

func (h *hierarchyResolver) resolveDistrictScope(ctx context.Context, scope Scope) (*Resolution, error) {
	name := strings.TrimSpace(scope.Name)
	code := strings.TrimSpace(scope.Code)
	if name == "" && code != "" {
		office, err := h.offices.GetOffice(ctx, code)
		if err != nil {
			return nil, queryFailure("get district office", err)
		}
		if office == nil {
			return &Resolution{Level: ScopeDistrict, Code: code, Name: code, Source: SourceNone, GnCodes: []string{}, Members: []GnMember{}}, nil
		}
		name = office.OfficeName
	}
	return h.ResolveGnCodesForDistrict(ctx, name)
}

func (h *hierarchyResolver) resolveDivisionScope(ctx context.Context, scope Scope) (*Resolution, error) {
	code := strings.TrimSpace(scope.Code)
	if code == "" {
		name := strings.TrimSpace(scope.Name)
		if name == "" {
			return nil, invalidScope("division code is required")
		}
		office, err := h.offices.FindOfficeByName(ctx, domain.OfficeTypeDivision, name)
		if err != nil {
			return nil, queryFailure("find division office", err)
		}
		code = name
		if office != nil {
			code = office.OfficeCode
		}
	}
	return h.ResolveGnCodesForDivision(ctx, code)
}

func (h *hierarchyResolver) resolveGn(ctx context.Context, gnCode string) (*Resolution, error) {
	code := strings.TrimSpace(gnCode)
	if code == "" {
		return nil, invalidScope("gn office code is required")
	}
	res := &Resolution{Level: ScopeGN, Code: code, Name: code}

	office, err := h.offices.GetOffice(ctx, code)
	if err != nil {
		return nil, queryFailure("get gn office", err)
	}
	if office != nil && office.OfficeType != domain.OfficeTypeGN {
		office = nil
	}
	members, _, err := h.DescribeGnOffices(ctx, []string{code})
	if err != nil {
		return nil, err
	}

	switch {
	case len(members) > 0:
		res.Name = members[0].GnName
		res.Source = SourcePrimary
		if office == nil || !office.ParentOfficeCode.Valid {
			res.Source = SourceReference
		}
		res.setMembers(members)
	case office != nil:
		// known GN office that no path places under a division
		res.Name = office.OfficeName
		res.Source = SourceNone
		res.setMembers([]GnMember{{GnCode: code, GnName: office.OfficeName}})
		res.Warnings = append(res.Warnings, newWarning(WarnUnmappedHierarchy,
			"GN office %s is not mapped to any division", code))
	default:
		res.Source = SourceNone
		res.setMembers(nil)
	}
	return res, nil
}

func (h *hierarchyResolver) applyGnOverride(ctx context.Context, res *Resolution, gnCode string) (*Resolution, error) {
	if res.All {
		narrowed, err := h.resolveGn(ctx, gnCode)
		if err != nil {
			return nil, err
		}
		narrowed.Warnings = append(res.Warnings, narrowed.Warnings...)
		return narrowed, nil
	}

	out := *res
	out.Warnings = append([]Warning(nil), res.Warnings...)
	for _, m := range res.Members {
		if m.GnCode == gnCode {
			out.Level = ScopeGN
			out.Code = m.GnCode
			out.Name = m.GnName
			out.setMembers([]GnMember{m})
			return &out, nil
		}
	}
	out.setMembers(nil)
	out.Warnings = append(out.Warnings, newWarning(WarnGnOverrideOutOfScope,
		"GN office %s is not part of %s %s", gnCode, res.Level, res.DisplayName()))
	return &out, nil
}

// DefaultScope the scope a staff member sees when none is requested.
func (h *hierarchyResolver) DefaultScope(ctx context.Context, rc domain.RequestContext) (Scope, error) {
	switch rc.Role {
	case domain.RoleAdmin:
		return Scope{Level: ScopeAll}, nil
	case domain.RoleDistrict:
		if rc.OfficeCode == "" {
			return Scope{}, invalidScope("district user has no office")
		}
		office, err := h.offices.GetOffice(ctx, rc.OfficeCode)
		if err != nil {
			return Scope{}, queryFailure("get district office", err)
		}
		name := rc.OfficeCode
		if office != nil {
			name = office.OfficeName
		}
		return Scope{Level: ScopeDistrict, Code: rc.OfficeCode, Name: name}, nil
	case domain.RoleDivision:
		if rc.OfficeCode == "" {
			return Scope{}, invalidScope("division user has no office")
		}
		return Scope{Level: ScopeDivision, Code: rc.OfficeCode}, nil
	case domain.RoleGN:
		if rc.OfficeCode == "" {
			return Scope{}, invalidScope("gn user has no office")
		}
		return Scope{Level: ScopeGN, Code: rc.OfficeCode}, nil
	}
	return Scope{}, invalidScope("unknown role %q", rc.Role)
}

// ============================================
// GN description (rollups over "all")
// ============================================

func (h *hierarchyResolver) DescribeGnOffices(ctx context.Context, gnCodes []string) ([]GnMember, []string, error) {
	if len(gnCodes) == 0 {
		return []GnMember{}, []string{}, nil
	}
	offices, err := h.offices.ListOfficesByCodes(ctx, gnCodes)
	if err != nil {
		return nil, nil, queryFailure("list gn offices", err)
	}

	names := map[string]string{}
	parentOf := map[string]string{}
	var parentCodes []string
	for _, o := range offices {
		if o.OfficeType != domain.OfficeTypeGN {
			continue
		}
		names[o.OfficeCode] = o.OfficeName
		if o.ParentOfficeCode.Valid {
			parentOf[o.OfficeCode] = o.ParentOfficeCode.String
			parentCodes = append(parentCodes, o.ParentOfficeCode.String)
		}
	}

	divisionNames := map[string]string{}
	if len(parentCodes) > 0 {
		parents, err := h.offices.ListOfficesByCodes(ctx, parentCodes)
		if err != nil {
			return nil, nil, queryFailure("list division offices", err)
		}
		for _, p := range parents {
			divisionNames[p.OfficeCode] = p.OfficeName
		}
	}

	members := make([]GnMember, 0, len(gnCodes))
	var rest []string
	for _, code := range gnCodes {
		parent, ok := parentOf[code]
		if !ok {
			rest = append(rest, code)
			continue
		}
		divName := divisionNames[parent]
		if divName == "" {
			divName = parent
		}
		members = append(members, GnMember{GnCode: code, GnName: nameOr(names[code], code), DivisionCode: parent, DivisionName: divName})
	}

	unmapped := []string{}
	if len(rest) > 0 {
		rows, err := h.reference.LookupGn(ctx, rest)
		if err != nil {
			return nil, nil, queryFailure("lookup reference gn divisions", err)
		}
		byID := make(map[string]domain.ReferenceGN, len(rows))
		for _, row := range rows {
			byID[row.GnID] = row
		}
		divisionCodes := map[string]string{}
		for _, code := range rest {
			row, ok := byID[code]
			if !ok || row.DivisionName == "" {
				unmapped = append(unmapped, code)
				continue
			}
			divCode, seen := divisionCodes[row.DivisionName]
			if !seen {
				office, err := h.offices.FindOfficeByName(ctx, domain.OfficeTypeDivision, row.DivisionName)
				if err != nil {
					return nil, nil, queryFailure("find division office", err)
				}
				if office != nil {
					divCode = office.OfficeCode
				}
				divisionCodes[row.DivisionName] = divCode
			}
			members = append(members, GnMember{
				GnCode:       code,
				GnName:       nameOr(names[code], nameOr(row.GnName, code)),
				DivisionCode: divCode,
				DivisionName: row.DivisionName,
			})
		}
	}

	sort.Slice(members, func(i, j int) bool { return members[i].GnCode < members[j].GnCode })
	sort.Strings(unmapped)
	return members, unmapped, nil
}

func nameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}
