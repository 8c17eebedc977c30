package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/it-Barath/fpms-sub006/internal/domain"

	"github.com/shopspring/decimal"
)

// MemoryRegistry in-memory registry store used when the DB is disabled (dev)
// and as the fixture store in tests. It implements OfficesRepository,
// ReferenceDirectory and StatsRepository over plain slices with the same
// semantics as the Postgres implementations.
type MemoryRegistry struct {
	mu         sync.RWMutex
	offices    map[string]*domain.Office
	reference  []domain.ReferenceGN
	families   map[string]*domain.Family
	citizens   []domain.Citizen
	employment []domain.Employment
	education  []domain.Education
	health     []domain.HealthCondition
	land       []domain.LandDetail
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		offices:  map[string]*domain.Office{},
		families: map[string]*domain.Family{},
	}
}

// ====================
// Seeding
// ====================

func (r *MemoryRegistry) AddOffice(o domain.Office) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := o
	r.offices[o.OfficeCode] = &cp
}

func (r *MemoryRegistry) AddReference(rows ...domain.ReferenceGN) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reference = append(r.reference, rows...)
}

func (r *MemoryRegistry) AddFamily(f domain.Family) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := f
	r.families[f.FamilyID] = &cp
}

func (r *MemoryRegistry) AddCitizens(cs ...domain.Citizen) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.citizens = append(r.citizens, cs...)
}

func (r *MemoryRegistry) AddEmployment(rows ...domain.Employment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.employment = append(r.employment, rows...)
}

func (r *MemoryRegistry) AddEducation(rows ...domain.Education) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.education = append(r.education, rows...)
}

func (r *MemoryRegistry) AddHealthConditions(rows ...domain.HealthCondition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.health = append(r.health, rows...)
}

func (r *MemoryRegistry) AddLand(rows ...domain.LandDetail) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.land = append(r.land, rows...)
}

// ====================
// OfficesRepository
// ====================

func (r *MemoryRegistry) GetOffice(_ context.Context, officeCode string) (*domain.Office, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.offices[officeCode]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *MemoryRegistry) FindOfficeByName(_ context.Context, officeType domain.OfficeType, name string) (*domain.Office, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.sortedOffices() {
		if o.OfficeType == officeType && o.OfficeName == name {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryRegistry) ListChildOffices(_ context.Context, childType domain.OfficeType, parentCode string) ([]*domain.Office, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Office{}
	for _, o := range r.sortedOffices() {
		if o.OfficeType == childType && o.ParentOfficeCode.Valid && o.ParentOfficeCode.String == parentCode {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryRegistry) ListOfficesByCodes(_ context.Context, codes []string) ([]*domain.Office, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	want := toSet(codes)
	out := []*domain.Office{}
	for _, o := range r.sortedOffices() {
		if _, ok := want[o.OfficeCode]; ok {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryRegistry) CountGnMapping(_ context.Context) (int, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total, mapped := 0, 0
	for _, o := range r.offices {
		if o.OfficeType != domain.OfficeTypeGN {
			continue
		}
		total++
		if o.ParentOfficeCode.Valid {
			mapped++
		}
	}
	return total, mapped, nil
}

func (r *MemoryRegistry) ListUnmappedGnCodes(_ context.Context, limit int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []string{}
	for _, o := range r.sortedOffices() {
		if o.OfficeType == domain.OfficeTypeGN && !o.ParentOfficeCode.Valid {
			out = append(out, o.OfficeCode)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *MemoryRegistry) SetOfficeActive(_ context.Context, officeCode string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.offices[officeCode]
	if !ok {
		return ErrOfficeNotFound
	}
	o.IsActive = active
	return nil
}

// sortedOffices caller holds the lock.
func (r *MemoryRegistry) sortedOffices() []*domain.Office {
	out := make([]*domain.Office, 0, len(r.offices))
	for _, o := range r.offices {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OfficeCode < out[j].OfficeCode })
	return out
}

// ====================
// ReferenceDirectory
// ====================

func (r *MemoryRegistry) ListGnByDivision(_ context.Context, divisionName string) ([]domain.ReferenceGN, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.ReferenceGN{}
	for _, row := range r.reference {
		if row.DivisionName == divisionName {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GnID < out[j].GnID })
	return out, nil
}

func (r *MemoryRegistry) ListDivisionsByDistrict(_ context.Context, districtName string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]struct{}{}
	out := []string{}
	for _, row := range r.reference {
		if row.DistrictName != districtName || row.DivisionName == "" {
			continue
		}
		if _, ok := seen[row.DivisionName]; ok {
			continue
		}
		seen[row.DivisionName] = struct{}{}
		out = append(out, row.DivisionName)
	}
	sort.Strings(out)
	return out, nil
}

func (r *MemoryRegistry) LookupGn(_ context.Context, gnIDs []string) ([]domain.ReferenceGN, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	want := toSet(gnIDs)
	out := []domain.ReferenceGN{}
	for _, row := range r.reference {
		if _, ok := want[row.GnID]; ok {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GnID < out[j].GnID })
	return out, nil
}

// ====================
// StatsRepository
// ====================

func (r *MemoryRegistry) PopulationTotals(_ context.Context, f StatsFilter) (*PopulationTotals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fams := r.scopedFamilies(f)
	linked := r.aliveByFamily()

	var t PopulationTotals
	for _, fam := range fams {
		t.Families++
		t.DeclaredMembers += fam.TotalMembersDeclared
		members := linked[fam.FamilyID]
		t.Citizens += len(members)
		for _, c := range members {
			switch domain.NormalizeGender(string(c.Gender)) {
			case domain.GenderMale:
				t.Male++
			case domain.GenderFemale:
				t.Female++
			}
		}
		if fam.TotalMembersDeclared != len(members) {
			t.MemberMismatchFamilies++
		}
		if fam.TransferState == domain.TransferStatePendingTransfer {
			t.PendingTransfers++
		}
	}
	return &t, nil
}

func (r *MemoryRegistry) AgeGenderCounts(_ context.Context, f StatsFilter, asOf time.Time) ([]AgeGenderCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	type key struct {
		age    int
		gender string
	}
	counts := map[key]int{}
	for _, c := range r.scopedCitizens(f) {
		k := key{age: c.AgeAt(asOf), gender: strings.ToLower(string(c.Gender))}
		counts[k]++
	}
	out := make([]AgeGenderCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, AgeGenderCount{Age: k.age, Gender: k.gender, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Age != out[j].Age {
			return out[i].Age < out[j].Age
		}
		return out[i].Gender < out[j].Gender
	})
	return out, nil
}

func (r *MemoryRegistry) EducationLevelCounts(_ context.Context, f StatsFilter) ([]LabelCount, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inScope := citizenIDs(r.scopedCitizens(f))
	perLevel := map[string]map[string]struct{}{}
	recorded := map[string]struct{}{}
	for _, e := range r.education {
		if !e.IsCurrent {
			continue
		}
		if _, ok := inScope[e.CitizenID]; !ok {
			continue
		}
		level := labelOrUnspecified(e.EducationLevel)
		if perLevel[level] == nil {
			perLevel[level] = map[string]struct{}{}
		}
		perLevel[level][e.CitizenID] = struct{}{}
		recorded[e.CitizenID] = struct{}{}
	}
	return labelCountsFromSets(perLevel), len(recorded), nil
}

func (r *MemoryRegistry) EmploymentBreakdown(_ context.Context, f StatsFilter) ([]EmploymentGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inScope := citizenIDs(r.scopedCitizens(f))

	type acc struct {
		employed map[string]struct{}
		earners  map[string]struct{}
		income   decimal.Decimal
	}
	groups := map[string]*acc{}
	for _, e := range r.employment {
		if !e.IsCurrentJob {
			continue
		}
		if _, ok := inScope[e.CitizenID]; !ok {
			continue
		}
		typ := labelOrUnspecified(e.EmploymentType)
		g := groups[typ]
		if g == nil {
			g = &acc{employed: map[string]struct{}{}, earners: map[string]struct{}{}}
			groups[typ] = g
		}
		g.employed[e.CitizenID] = struct{}{}
		if e.MonthlyIncome > 0 {
			g.earners[e.CitizenID] = struct{}{}
			g.income = g.income.Add(decimal.NewFromFloat(e.MonthlyIncome))
		}
	}

	out := make([]EmploymentGroup, 0, len(groups))
	for typ, g := range groups {
		out = append(out, EmploymentGroup{
			EmploymentType: typ,
			Employed:       len(g.employed),
			Earners:        len(g.earners),
			TotalIncome:    g.income,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmploymentType < out[j].EmploymentType })
	return out, nil
}

func (r *MemoryRegistry) HealthConditionCounts(_ context.Context, f StatsFilter) ([]LabelCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inScope := citizenIDs(r.scopedCitizens(f))
	perCondition := map[string]map[string]struct{}{}
	for _, h := range r.health {
		if !h.IsCurrent {
			continue
		}
		if _, ok := inScope[h.CitizenID]; !ok {
			continue
		}
		name := labelOrUnspecified(h.ConditionName)
		if perCondition[name] == nil {
			perCondition[name] = map[string]struct{}{}
		}
		perCondition[name][h.CitizenID] = struct{}{}
	}
	return labelCountsFromSets(perCondition), nil
}

func (r *MemoryRegistry) LandBreakdown(_ context.Context, f StatsFilter) ([]LandGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fams := map[string]struct{}{}
	for _, fam := range r.scopedFamilies(f) {
		fams[fam.FamilyID] = struct{}{}
	}
	groups := map[string]*LandGroup{}
	for _, l := range r.land {
		if _, ok := fams[l.FamilyID]; !ok {
			continue
		}
		typ := labelOrUnspecified(l.LandType)
		g := groups[typ]
		if g == nil {
			g = &LandGroup{LandType: typ}
			groups[typ] = g
		}
		g.Records++
		g.TotalArea = g.TotalArea.Add(decimal.NewFromFloat(l.AreaPerches))
	}
	out := make([]LandGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LandType < out[j].LandType })
	return out, nil
}

func (r *MemoryRegistry) FamilyListing(_ context.Context, f StatsFilter, limit int) ([]FamilyListingRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fams := r.scopedFamilies(f)
	sort.Slice(fams, func(i, j int) bool {
		if !fams[i].RegistrationDate.Equal(fams[j].RegistrationDate) {
			return fams[i].RegistrationDate.After(fams[j].RegistrationDate)
		}
		return fams[i].FamilyID < fams[j].FamilyID
	})
	if limit > 0 && len(fams) > limit {
		fams = fams[:limit]
	}

	linked := r.aliveByFamily()
	heads := map[string]string{}
	for _, c := range r.citizens {
		if c.RelationToHead != domain.RelationSelf {
			continue
		}
		if _, ok := heads[c.FamilyID]; !ok {
			heads[c.FamilyID] = c.FullName
		}
	}

	out := make([]FamilyListingRow, 0, len(fams))
	for _, fam := range fams {
		out = append(out, FamilyListingRow{
			FamilyID:             fam.FamilyID,
			GnOfficeCode:         fam.CurrentGnOfficeCode,
			GnOfficeName:         r.officeName(fam.CurrentGnOfficeCode),
			Address:              fam.Address,
			HeadName:             heads[fam.FamilyID],
			TotalMembersDeclared: fam.TotalMembersDeclared,
			LinkedMembers:        len(linked[fam.FamilyID]),
			RegistrationDate:     fam.RegistrationDate,
			TransferState:        string(fam.TransferState),
		})
	}
	return out, nil
}

func (r *MemoryRegistry) RegistrationsByDay(_ context.Context, f StatsFilter) ([]RegistrationGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	type key struct {
		day string
		gn  string
	}
	linked := r.aliveByFamily()
	groups := map[key]*RegistrationGroup{}
	for _, fam := range r.scopedFamilies(f) {
		day := fam.RegistrationDate.Format("2006-01-02")
		k := key{day: day, gn: fam.CurrentGnOfficeCode}
		g := groups[k]
		if g == nil {
			d, _ := time.Parse("2006-01-02", day)
			g = &RegistrationGroup{
				Date:         d,
				GnOfficeCode: fam.CurrentGnOfficeCode,
				GnOfficeName: r.officeName(fam.CurrentGnOfficeCode),
			}
			groups[k] = g
		}
		g.Families++
		g.Citizens += len(linked[fam.FamilyID])
	}
	out := make([]RegistrationGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].GnOfficeCode < out[j].GnOfficeCode
	})
	return out, nil
}

func (r *MemoryRegistry) GnRollup(_ context.Context, f StatsFilter) ([]GnRollupRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	linked := r.aliveByFamily()
	groups := map[string]*GnRollupRow{}
	for _, fam := range r.scopedFamilies(f) {
		g := groups[fam.CurrentGnOfficeCode]
		if g == nil {
			g = &GnRollupRow{GnOfficeCode: fam.CurrentGnOfficeCode}
			groups[fam.CurrentGnOfficeCode] = g
		}
		g.Families++
		for _, c := range linked[fam.FamilyID] {
			g.Citizens++
			switch domain.NormalizeGender(string(c.Gender)) {
			case domain.GenderMale:
				g.Male++
			case domain.GenderFemale:
				g.Female++
			}
		}
	}
	out := make([]GnRollupRow, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GnOfficeCode < out[j].GnOfficeCode })
	return out, nil
}

// ====================
// helpers (caller holds the read lock)
// ====================

func (r *MemoryRegistry) scopedFamilies(f StatsFilter) []*domain.Family {
	gn := toSet(f.GnCodes)
	out := []*domain.Family{}
	for _, fam := range r.families {
		if !f.AllGn {
			if _, ok := gn[fam.CurrentGnOfficeCode]; !ok {
				continue
			}
		}
		if !inWindow(fam.RegistrationDate, f) {
			continue
		}
		out = append(out, fam)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FamilyID < out[j].FamilyID })
	return out
}

func (r *MemoryRegistry) scopedCitizens(f StatsFilter) []domain.Citizen {
	fams := map[string]struct{}{}
	for _, fam := range r.scopedFamilies(f) {
		fams[fam.FamilyID] = struct{}{}
	}
	out := []domain.Citizen{}
	for _, c := range r.citizens {
		if !c.IsAlive {
			continue
		}
		if _, ok := fams[c.FamilyID]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (r *MemoryRegistry) aliveByFamily() map[string][]domain.Citizen {
	out := map[string][]domain.Citizen{}
	for _, c := range r.citizens {
		if c.IsAlive {
			out[c.FamilyID] = append(out[c.FamilyID], c)
		}
	}
	return out
}

func (r *MemoryRegistry) officeName(code string) string {
	if o, ok := r.offices[code]; ok && o.OfficeName != "" {
		return o.OfficeName
	}
	return code
}

func inWindow(t time.Time, f StatsFilter) bool {
	day := t.Format("2006-01-02")
	if f.From != nil && day < f.From.Format("2006-01-02") {
		return false
	}
	if f.To != nil && day > f.To.Format("2006-01-02") {
		return false
	}
	return true
}

func citizenIDs(cs []domain.Citizen) map[string]struct{} {
	out := make(map[string]struct{}, len(cs))
	for _, c := range cs {
		out[c.CitizenID] = struct{}{}
	}
	return out
}

func toSet(xs []string) map[string]struct{} {
	out := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		out[x] = struct{}{}
	}
	return out
}

func labelOrUnspecified(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "Unspecified"
	}
	return s
}

func labelCountsFromSets(m map[string]map[string]struct{}) []LabelCount {
	out := make([]LabelCount, 0, len(m))
	for label, ids := range m {
		out = append(out, LabelCount{Label: label, Count: len(ids)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
