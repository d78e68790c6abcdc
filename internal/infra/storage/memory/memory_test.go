package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/cemetery/internal/core/domain"
	"github.com/vietddude/cemetery/internal/infra/rpc/provider"
)

const boss domain.Principal = "boss-principal"

func newBossRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry("St. Mary", boss)
	r.BindIdentity(boss)
	return r
}

func mustOK[T any](res domain.Result[T], err error) func(t *testing.T) T {
	return func(t *testing.T) T {
		t.Helper()
		require.NoError(t, err)
		v, err := res.Get()
		require.NoError(t, err)
		return v
	}
}

func TestRegistry_Alleys(t *testing.T) {
	ctx := context.Background()
	r := newBossRegistry(t)

	mustOK(r.AddAlley(ctx, "A"))(t)
	res, err := r.AddAlley(ctx, "A")
	require.NoError(t, err)
	assert.ErrorIs(t, res.DomainErr(), domain.DuplicateAlley(""))

	res, err = r.RemoveAlley(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, domain.KindAlleyNotFound, res.DomainErr().Kind)

	mustOK(r.AddGrave(ctx, "A", 1))(t)
	res, err = r.RemoveAlley(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "alley A is not empty.", res.DomainErr().Message())
}

func TestRegistry_Graves(t *testing.T) {
	ctx := context.Background()
	r := newBossRegistry(t)

	res, err := r.AddGrave(ctx, "C", 12)
	require.NoError(t, err)
	assert.Equal(t, domain.KindAlleyNotFound, res.DomainErr().Kind)

	mustOK(r.AddAlley(ctx, "A"))(t)
	id := mustOK(r.AddGrave(ctx, "A", 1))(t)
	assert.Equal(t, uint64(1), id)

	dup, err := r.AddGrave(ctx, "A", 1)
	require.NoError(t, err)
	assert.Equal(t, domain.KindInconsistentAlleyGraves, dup.DomainErr().Kind)

	g, err := r.Grave(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, g)

	moved := *g
	moved.PlotNumber = 9
	upd, err := r.UpdateGrave(ctx, id, moved)
	require.NoError(t, err)
	assert.Equal(t, domain.InvariantViolation("plotNumber").Message(), upd.DomainErr().Message())

	paid := *g
	paid.Status = domain.GraveStatusPaid
	mustOK(r.UpdateGrave(ctx, id, paid))(t)

	rm, err := r.RemoveGrave(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.KindInvariantViolation, rm.DomainErr().Kind)
	assert.Equal(t, "field status is immutable.", rm.DomainErr().Message())

	paid.Status = domain.GraveStatusFree
	mustOK(r.UpdateGrave(ctx, id, paid))(t)
	mustOK(r.RemoveGrave(ctx, id))(t)

	layout, err := r.Layout(ctx)
	require.NoError(t, err)
	alley, ok := layout.Alley("A")
	require.True(t, ok)
	assert.True(t, alley.Empty())
	assert.Equal(t, uint64(1), layout.LastGraveID)

	missing, err := r.Grave(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRegistry_Pagination(t *testing.T) {
	ctx := context.Background()
	r := newBossRegistry(t)
	mustOK(r.AddAlley(ctx, "A"))(t)
	for i := 1; i <= 5; i++ {
		mustOK(r.AddGrave(ctx, "A", uint64(i)))(t)
	}

	page, err := r.PaginatedGraves(ctx, domain.Cursor{Offset: 0, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.Graves, 2)
	assert.Equal(t, 5, page.TotalGraves)
	require.NotNil(t, page.NextOffset)
	assert.Equal(t, 2, *page.NextOffset)

	last, err := r.PaginatedGraves(ctx, domain.Cursor{Offset: 4, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, last.Graves, 1)
	assert.Nil(t, last.NextOffset)
}

func TestRegistry_Roles(t *testing.T) {
	ctx := context.Background()
	r := newBossRegistry(t)

	ok, err := r.AddManager(ctx, "mgr")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.AddManager(ctx, "mgr")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = r.AddManager(ctx, domain.AnonymousPrincipal)
	require.NoError(t, err)
	assert.False(t, ok)

	role, err := r.AccessRole(ctx, "mgr")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, role)

	r.BindIdentity("mgr")
	_, err = r.AddManager(ctx, "other")
	var fault *provider.Fault
	require.True(t, errors.As(err, &fault))
	assert.Contains(t, fault.Message, "Only the Boss")

	_, err = r.AddAlley(ctx, "A")
	assert.NoError(t, err)

	r.BindIdentity("stranger")
	_, err = r.AddAlley(ctx, "B")
	require.Error(t, err)

	r.BindIdentity(boss)
	require.NoError(t, r.AssignOwner(ctx, "mgr"))
	role, err = r.AccessRole(ctx, boss)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleNone, role)
	role, err = r.AccessRole(ctx, "mgr")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleBoss, role)
}

func TestRegistry_PublicProjectionHidesOwner(t *testing.T) {
	ctx := context.Background()
	r := newBossRegistry(t)
	mustOK(r.AddAlley(ctx, "A"))(t)
	id := mustOK(r.AddGrave(ctx, "A", 3))(t)
	mustOK(r.UpdateGrave(ctx, id, domain.Grave{
		ID: id, Alley: "A", PlotNumber: 3, Status: domain.GraveStatusPaid,
		Deceased: []domain.DeceasedPerson{{FirstName: "Jan", LastName: "Kowalski", YearOfDeath: 1990, PlaceOfDeath: "Kraków"}},
		Owner:    &domain.GraveOwner{FirstName: "Anna", LastName: "Nowak", Phone: "555-0101"},
	}))(t)

	r.BindIdentity("")
	rows, err := r.PublicGraves(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Kowalski", rows[0].LastName)

	surname := "kowal"
	found, err := r.SearchPublicGraves(ctx, &surname, nil)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = r.AllGraves(ctx)
	assert.Error(t, err)

	r.BindIdentity(boss)
	owner := "nowak"
	graves, err := r.SearchGraves(ctx, domain.GraveFilter{Owner: &owner})
	require.NoError(t, err)
	assert.Len(t, graves, 1)

	stats, err := r.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Statistics{Total: 1, Paid: 1}, stats)
}

func TestRegistry_FailNext(t *testing.T) {
	r := newBossRegistry(t)
	boom := errors.New("connection reset")
	r.FailNext(1, boom)

	assert.ErrorIs(t, r.HealthCheck(context.Background()), boom)
	assert.NoError(t, r.HealthCheck(context.Background()))
	assert.Equal(t, 2, r.Calls("healthCheck"))
}

func TestRegistry_SiteContent(t *testing.T) {
	ctx := context.Background()
	r := newBossRegistry(t)
	require.NoError(t, r.UpdateLogo(ctx, "https://example.org/logo.png"))
	require.NoError(t, r.UpdateSiteContent(ctx, domain.SiteContent{Hero: domain.HeroContent{Headline: "Welcome"}}))

	content, err := r.SiteContent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Welcome", content.Hero.Headline)
	assert.Equal(t, "https://example.org/logo.png", content.LogoURL)
}

func TestRegistry_Profiles(t *testing.T) {
	ctx := context.Background()
	r := newBossRegistry(t)

	p, err := r.CallerProfile(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)

	require.NoError(t, r.SaveCallerProfile(ctx, domain.UserProfile{Name: "Boss"}))
	p, err = r.CallerProfile(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Boss", p.Name)

	r.BindIdentity("visitor")
	email := "v@example.com"
	require.NoError(t, r.SaveCallerProfile(ctx, domain.UserProfile{Name: "Visitor", Email: &email}))
	_, err = r.UserProfile(ctx, boss)
	var fault *provider.Fault
	require.ErrorAs(t, err, &fault)
	assert.Contains(t, fault.Message, "your own profile")

	r.BindIdentity(boss)
	p, err = r.UserProfile(ctx, "visitor")
	require.NoError(t, err)
	require.NotNil(t, p.Email)
	assert.Equal(t, "v@example.com", *p.Email)

	r.BindIdentity("")
	assert.Error(t, r.SaveCallerProfile(ctx, domain.UserProfile{Name: "Nobody"}))
	_, err = r.CallerProfile(ctx)
	assert.Error(t, err)
}
