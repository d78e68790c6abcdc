// Package memory is an in-process registry that enforces the same rules as
// the remote service. It backs tests and the CLI's --memory mode.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/vietddude/cemetery/internal/core/domain"
	"github.com/vietddude/cemetery/internal/infra/rpc/provider"
)

// Fault messages raised outside the result union, like the remote service does.
const (
	msgBossOnly    = "Unauthorized: Only the Boss can perform this action"
	msgManagerOnly = "Unauthorized: Only the Boss or managers can perform this action"
	msgUserOnly    = "Unauthorized: Only users can access profiles"
	msgOwnProfile  = "Unauthorized: Can only view your own profile"
)

const faultCode = -32000

type Registry struct {
	name    string
	boss    domain.Principal
	caller  domain.Principal
	lastID  uint64
	alleys  []*domain.Alley
	graves  map[uint64]*domain.Grave
	manager map[domain.Principal]struct{}
	site    domain.SiteContent
	profile map[domain.Principal]domain.UserProfile

	failures int
	failErr  error
	calls    map[string]int

	mu sync.RWMutex
}

// NewRegistry creates an empty registry owned by boss.
func NewRegistry(name string, boss domain.Principal) *Registry {
	return &Registry{
		name:    name,
		boss:    boss,
		graves:  make(map[uint64]*domain.Grave),
		manager: make(map[domain.Principal]struct{}),
		profile: make(map[domain.Principal]domain.UserProfile),
		calls:   make(map[string]int),
	}
}

// BindIdentity sets the caller principal of subsequent calls.
func (r *Registry) BindIdentity(principal domain.Principal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caller = principal
}

// FailNext makes the next n calls fail with err before touching any state.
func (r *Registry) FailNext(n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = n
	r.failErr = err
}

// Calls returns how many times method was invoked, failed calls included.
func (r *Registry) Calls(method string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.calls[method]
}

// enter records the call and returns an injected failure if one is pending.
// Callers hold r.mu.
func (r *Registry) enter(method string) error {
	r.calls[method]++
	if r.failures > 0 {
		r.failures--
		return r.failErr
	}
	return nil
}

func (r *Registry) roleOf(p domain.Principal) domain.Role {
	switch {
	case p.IsAnonymous():
		return domain.RoleNone
	case p == r.boss:
		return domain.RoleBoss
	}
	if _, ok := r.manager[p]; ok {
		return domain.RoleManager
	}
	return domain.RoleNone
}

func (r *Registry) requireManager() error {
	if !r.roleOf(r.caller).CanManage() {
		return &provider.Fault{Code: faultCode, Message: msgManagerOnly}
	}
	return nil
}

func (r *Registry) requireUser() error {
	if r.caller.IsAnonymous() {
		return &provider.Fault{Code: faultCode, Message: msgUserOnly}
	}
	return nil
}

func (r *Registry) requireBoss() error {
	if !r.roleOf(r.caller).CanDelegate() {
		return &provider.Fault{Code: faultCode, Message: msgBossOnly}
	}
	return nil
}

// guard combines call accounting with a role check.
func (r *Registry) guard(method string, check func() error) error {
	if err := r.enter(method); err != nil {
		return err
	}
	if check != nil {
		return check()
	}
	return nil
}

func (r *Registry) sortedGraves() []domain.Grave {
	out := make([]domain.Grave, 0, len(r.graves))
	for _, g := range r.graves {
		out = append(out, g.Clone())
	}
	slices.SortFunc(out, func(a, b domain.Grave) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

func (r *Registry) alleyIndex(name string) int {
	return slices.IndexFunc(r.alleys, func(a *domain.Alley) bool { return a.Name == name })
}

// -----------------------------------------------------------------------------
// Reads
// -----------------------------------------------------------------------------

func (r *Registry) AllGraves(ctx context.Context) ([]domain.Grave, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("getAllGraves", r.requireManager); err != nil {
		return nil, err
	}
	return r.sortedGraves(), nil
}

func (r *Registry) PaginatedGraves(ctx context.Context, cursor domain.Cursor) (domain.GravePage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("getPaginatedGraves", r.requireManager); err != nil {
		return domain.GravePage{}, err
	}
	all := r.sortedGraves()
	start := min(max(cursor.Offset, 0), len(all))
	end := min(start+max(cursor.PageSize, 1), len(all))
	page := domain.GravePage{
		Graves:      all[start:end],
		PageSize:    cursor.PageSize,
		TotalGraves: len(all),
	}
	if end < len(all) {
		next := end
		page.NextOffset = &next
	}
	return page, nil
}

func (r *Registry) Grave(ctx context.Context, id uint64) (*domain.Grave, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("getGrave", r.requireManager); err != nil {
		return nil, err
	}
	g, ok := r.graves[id]
	if !ok {
		return nil, nil
	}
	cp := g.Clone()
	return &cp, nil
}

func (r *Registry) Layout(ctx context.Context) (domain.CemeteryLayout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("getCemeteryState", nil); err != nil {
		return domain.CemeteryLayout{}, err
	}
	layout := domain.CemeteryLayout{Name: r.name, LastGraveID: r.lastID}
	for _, a := range r.alleys {
		layout.Alleys = append(layout.Alleys, domain.Alley{Name: a.Name, GraveIDs: slices.Clone(a.GraveIDs)})
	}
	return layout, nil
}

func (r *Registry) PublicTiles(ctx context.Context) ([]domain.PublicTile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("getPublicTiles", nil); err != nil {
		return nil, err
	}
	graves := r.sortedGraves()
	tiles := make([]domain.PublicTile, 0, len(graves))
	for _, g := range graves {
		t := domain.PublicTile{ID: g.ID, Status: g.Status, Alley: g.Alley, PlotNumber: g.PlotNumber}
		for _, d := range g.Deceased {
			t.Deceased = append(t.Deceased, domain.PublicOccupant{
				FirstName:   d.FirstName,
				LastName:    d.LastName,
				YearOfDeath: d.YearOfDeath,
			})
		}
		tiles = append(tiles, t)
	}
	return tiles, nil
}

func (r *Registry) PublicGraves(ctx context.Context) ([]domain.PublicGrave, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("getPublicGraves", nil); err != nil {
		return nil, err
	}
	return r.publicRows(nil, nil), nil
}

func (r *Registry) SearchPublicGraves(ctx context.Context, surname *string, yearOfDeath *int) ([]domain.PublicGrave, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("searchPublicGravesWithLocation", nil); err != nil {
		return nil, err
	}
	return r.publicRows(surname, yearOfDeath), nil
}

// publicRows yields one row per occupant. Owner data never leaves this method.
func (r *Registry) publicRows(surname *string, yearOfDeath *int) []domain.PublicGrave {
	var rows []domain.PublicGrave
	for _, g := range r.sortedGraves() {
		for _, d := range g.Deceased {
			if surname != nil && !containsFold(d.LastName, *surname) {
				continue
			}
			if yearOfDeath != nil && d.YearOfDeath != *yearOfDeath {
				continue
			}
			year := d.YearOfDeath
			rows = append(rows, domain.PublicGrave{
				Status:      g.Status,
				Alley:       g.Alley,
				PlotNumber:  g.PlotNumber,
				FirstName:   d.FirstName,
				LastName:    d.LastName,
				YearOfDeath: &year,
			})
		}
	}
	return rows
}

func (r *Registry) SearchGraves(ctx context.Context, filter domain.GraveFilter) ([]domain.Grave, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("searchGraves", r.requireManager); err != nil {
		return nil, err
	}
	var out []domain.Grave
	for _, g := range r.sortedGraves() {
		if matchesFilter(g, filter) {
			out = append(out, g)
		}
	}
	return out, nil
}

func matchesFilter(g domain.Grave, f domain.GraveFilter) bool {
	if f.Status != nil && g.Status != *f.Status {
		return false
	}
	if f.Owner != nil {
		if g.Owner == nil || !containsFold(g.Owner.FirstName+" "+g.Owner.LastName, *f.Owner) {
			return false
		}
	}
	if f.Surname == nil && f.YearOfDeath == nil && f.Locality == nil {
		return true
	}
	for _, d := range g.Deceased {
		if f.Surname != nil && !containsFold(d.LastName, *f.Surname) {
			continue
		}
		if f.YearOfDeath != nil && d.YearOfDeath != *f.YearOfDeath {
			continue
		}
		if f.Locality != nil && !containsFold(d.PlaceOfDeath, *f.Locality) {
			continue
		}
		return true
	}
	return false
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(sub)))
}

func (r *Registry) Statistics(ctx context.Context) (domain.Statistics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("getGraveStatistics", r.requireManager); err != nil {
		return domain.Statistics{}, err
	}
	var s domain.Statistics
	for _, g := range r.graves {
		s.Total++
		switch g.Status {
		case domain.GraveStatusFree:
			s.Free++
		case domain.GraveStatusPaid:
			s.Paid++
		case domain.GraveStatusReserved:
			s.Reserved++
		case domain.GraveStatusUnpaid:
			s.Unpaid++
		}
	}
	return s, nil
}

// -----------------------------------------------------------------------------
// Roles
// -----------------------------------------------------------------------------

func (r *Registry) CallerRole(ctx context.Context) (domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("getCallerUserRole", nil); err != nil {
		return domain.RoleNone, err
	}
	return r.roleOf(r.caller), nil
}

func (r *Registry) AccessRole(ctx context.Context, principal domain.Principal) (domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("getAccessRole", nil); err != nil {
		return domain.RoleNone, err
	}
	return r.roleOf(principal), nil
}

func (r *Registry) Managers(ctx context.Context) ([]domain.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("getManagers", r.requireBoss); err != nil {
		return nil, err
	}
	out := make([]domain.Principal, 0, len(r.manager))
	for p := range r.manager {
		out = append(out, p)
	}
	slices.Sort(out)
	return out, nil
}

func (r *Registry) Boss(ctx context.Context) (domain.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("getBoss", nil); err != nil {
		return "", err
	}
	return r.boss, nil
}

func (r *Registry) AddManager(ctx context.Context, principal domain.Principal) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("addManager", r.requireBoss); err != nil {
		return false, err
	}
	if principal.IsAnonymous() || principal == r.boss {
		return false, nil
	}
	if _, ok := r.manager[principal]; ok {
		return false, nil
	}
	r.manager[principal] = struct{}{}
	return true, nil
}

func (r *Registry) RemoveManager(ctx context.Context, principal domain.Principal) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("removeManager", r.requireBoss); err != nil {
		return false, err
	}
	if _, ok := r.manager[principal]; !ok {
		return false, nil
	}
	delete(r.manager, principal)
	return true, nil
}

func (r *Registry) AssignOwner(ctx context.Context, principal domain.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("assignOwner", r.requireBoss); err != nil {
		return err
	}
	if principal.IsAnonymous() {
		return &provider.Fault{Code: faultCode, Message: "invalid principal"}
	}
	delete(r.manager, principal)
	r.boss = principal
	return nil
}

// -----------------------------------------------------------------------------
// Site content
// -----------------------------------------------------------------------------

func (r *Registry) SiteContent(ctx context.Context) (domain.SiteContent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("getSiteContent", nil); err != nil {
		return domain.SiteContent{}, err
	}
	return r.site, nil
}

func (r *Registry) UpdateSiteContent(ctx context.Context, content domain.SiteContent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("updateSiteContent", r.requireManager); err != nil {
		return err
	}
	logo := r.site.LogoURL
	r.site = content
	if r.site.LogoURL == "" {
		r.site.LogoURL = logo
	}
	return nil
}

func (r *Registry) UpdateLogo(ctx context.Context, logoURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("updateLogoImage", r.requireManager); err != nil {
		return err
	}
	r.site.LogoURL = logoURL
	return nil
}

// -----------------------------------------------------------------------------
// Profiles
// -----------------------------------------------------------------------------

func (r *Registry) CallerProfile(ctx context.Context) (*domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("getCallerUserProfile", r.requireUser); err != nil {
		return nil, err
	}
	return r.profileOf(r.caller), nil
}

func (r *Registry) UserProfile(ctx context.Context, principal domain.Principal) (*domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("getUserProfile", nil); err != nil {
		return nil, err
	}
	if principal != r.caller && !r.roleOf(r.caller).CanDelegate() {
		return nil, &provider.Fault{Code: faultCode, Message: msgOwnProfile}
	}
	return r.profileOf(principal), nil
}

func (r *Registry) profileOf(p domain.Principal) *domain.UserProfile {
	profile, ok := r.profile[p]
	if !ok {
		return nil
	}
	cp := profile.Clone()
	return &cp
}

func (r *Registry) SaveCallerProfile(ctx context.Context, profile domain.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("saveCallerUserProfile", r.requireUser); err != nil {
		return err
	}
	r.profile[r.caller] = profile.Clone()
	return nil
}

func (r *Registry) HealthCheck(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.guard("healthCheck", nil)
}

// -----------------------------------------------------------------------------
// Alleys and graves
// -----------------------------------------------------------------------------

func (r *Registry) AddAlley(ctx context.Context, name string) (domain.Result[domain.Unit], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("addAlley", r.requireManager); err != nil {
		return domain.Result[domain.Unit]{}, err
	}
	if name = strings.TrimSpace(name); name == "" {
		return domain.Err[domain.Unit](domain.InvariantViolation("name")), nil
	}
	if r.alleyIndex(name) >= 0 {
		return domain.Err[domain.Unit](domain.DuplicateAlley(name)), nil
	}
	r.alleys = append(r.alleys, &domain.Alley{Name: name})
	return domain.Ok(domain.Unit{}), nil
}

func (r *Registry) RemoveAlley(ctx context.Context, name string) (domain.Result[domain.Unit], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("removeAlley", r.requireManager); err != nil {
		return domain.Result[domain.Unit]{}, err
	}
	i := r.alleyIndex(name)
	if i < 0 {
		return domain.Err[domain.Unit](domain.AlleyNotFound(name)), nil
	}
	if !r.alleys[i].Empty() {
		return domain.Err[domain.Unit](domain.AlleyNotEmpty(name)), nil
	}
	r.alleys = slices.Delete(r.alleys, i, i+1)
	return domain.Ok(domain.Unit{}), nil
}

func (r *Registry) AddGrave(ctx context.Context, alley string, plotNumber uint64) (domain.Result[uint64], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("addGrave", r.requireManager); err != nil {
		return domain.Result[uint64]{}, err
	}
	i := r.alleyIndex(alley)
	if i < 0 {
		return domain.Err[uint64](domain.AlleyNotFound(alley)), nil
	}
	for _, id := range r.alleys[i].GraveIDs {
		if g := r.graves[id]; g != nil && g.PlotNumber == plotNumber {
			return domain.Err[uint64](domain.InconsistentAlleyGraves(alley, id)), nil
		}
	}
	r.lastID++
	g := &domain.Grave{ID: r.lastID, Alley: alley, PlotNumber: plotNumber, Status: domain.GraveStatusFree}
	r.graves[g.ID] = g
	r.alleys[i].GraveIDs = append(r.alleys[i].GraveIDs, g.ID)
	return domain.Ok(g.ID), nil
}

func (r *Registry) RemoveGrave(ctx context.Context, id uint64) (domain.Result[domain.Unit], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("removeGrave", r.requireManager); err != nil {
		return domain.Result[domain.Unit]{}, err
	}
	g, ok := r.graves[id]
	if !ok {
		return domain.Err[domain.Unit](domain.GraveNotFound(id)), nil
	}
	if !g.Removable() {
		// The registry reports a non-free removal as a status invariant.
		return domain.Err[domain.Unit](domain.InvariantViolation("status")), nil
	}
	i := r.alleyIndex(g.Alley)
	if i < 0 {
		return domain.Err[domain.Unit](domain.InconsistentAlleyGraves(g.Alley, id)), nil
	}
	r.alleys[i].GraveIDs = slices.DeleteFunc(r.alleys[i].GraveIDs, func(v uint64) bool { return v == id })
	delete(r.graves, id)
	return domain.Ok(domain.Unit{}), nil
}

func (r *Registry) UpdateGrave(ctx context.Context, id uint64, record domain.Grave) (domain.Result[domain.Unit], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard("updateGrave", r.requireManager); err != nil {
		return domain.Result[domain.Unit]{}, err
	}
	g, ok := r.graves[id]
	if !ok {
		return domain.Err[domain.Unit](domain.GraveNotFound(id)), nil
	}
	if field := g.CheckImmutable(record); field != "" {
		return domain.Err[domain.Unit](domain.InvariantViolation(field)), nil
	}
	updated := record.Clone()
	r.graves[id] = &updated
	return domain.Ok(domain.Unit{}), nil
}
