package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/vietddude/cemetery/internal/cache"
	"github.com/vietddude/cemetery/internal/core/authz"
	"github.com/vietddude/cemetery/internal/core/domain"
	"github.com/vietddude/cemetery/internal/indexing/pagination"
	"github.com/vietddude/cemetery/internal/indexing/search"
	"github.com/vietddude/cemetery/internal/infra/rpc/routing"
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	Retry     routing.RetryConfig
	Cache     cache.Config
	RoleStore authz.RoleStore
	RoleTTL   time.Duration
	PageSize  int
}

// Client is the data layer used by the CLI and other consumers. Reads are
// served through the cache, writes invalidate it on success, and privileged
// calls are only attempted once the gate has resolved a sufficient role.
type Client struct {
	svc       Service
	scheduler *routing.Scheduler
	cache     *cache.Coordinator
	gate      *authz.Gate

	graves      *pagination.Merger[domain.Grave]
	graveIndex  *search.Indexer[domain.Grave]
	publicIndex *search.Indexer[domain.PublicGrave]
	tileIndex   *search.Indexer[domain.PublicTile]
}

// NewClient wires a Client over svc.
func NewClient(svc Service, opts Options) (*Client, error) {
	scheduler := routing.NewScheduler(opts.Retry)
	coordinator, err := cache.New(scheduler, opts.Cache)
	if err != nil {
		return nil, err
	}
	policy, err := authz.NewPolicy()
	if err != nil {
		return nil, err
	}

	c := &Client{
		svc:         svc,
		scheduler:   scheduler,
		cache:       coordinator,
		graveIndex:  search.NewIndexer(search.PrivilegedGraveFields),
		publicIndex: search.NewIndexer(search.PublicGraveFields),
		tileIndex:   search.NewIndexer(search.PublicTileFields),
	}
	c.gate = authz.NewGate(roleResolver{c}, opts.RoleStore, policy, opts.RoleTTL)
	c.graves = pagination.NewMerger(c.fetchGravePage, c.searchGravePage, search.GraveKey)
	if opts.PageSize > 0 {
		if err := c.graves.SetPageSize(opts.PageSize); err != nil {
			return nil, err
		}
	}
	coordinator.OnInvalidate(c.onInvalidate)
	return c, nil
}

// Scheduler exposes the retry scheduler, e.g. to install a notice callback.
func (c *Client) Scheduler() *routing.Scheduler { return c.scheduler }

// Cache exposes the cache coordinator.
func (c *Client) Cache() *cache.Coordinator { return c.cache }

// Gate exposes the authorization gate.
func (c *Client) Gate() *authz.Gate { return c.gate }

// roleResolver answers the gate's role query through the scheduler. The
// gate's role store holds the access-role category, so the query itself is
// not cached here; a re-resolution after a denial must reach the registry.
type roleResolver struct{ c *Client }

func (r roleResolver) AccessRole(ctx context.Context, principal domain.Principal) (domain.Role, error) {
	return routing.Do(ctx, r.c.scheduler, "get-access-role", func(ctx context.Context) (domain.Role, error) {
		return r.c.svc.AccessRole(ctx, principal)
	})
}

func (c *Client) onInvalidate(mutation cache.Mutation, categories []cache.Category) {
	for _, cat := range categories {
		switch cat {
		case cache.CategoryGravePages, cache.CategoryGraveByID:
			c.graves.Reset()
			c.graveIndex.Reset()
		case cache.CategoryPublicSearchProjection:
			c.publicIndex.Reset()
		case cache.CategoryPublicTileProjection:
			c.tileIndex.Reset()
		case cache.CategoryAccessRole:
			c.gate.Forget(context.Background())
		}
	}
}

// -----------------------------------------------------------------------------
// Session
// -----------------------------------------------------------------------------

// SignIn binds principal to outgoing calls and resolves its role.
func (c *Client) SignIn(ctx context.Context, principal domain.Principal) (domain.Role, error) {
	c.cache.Purge()
	c.resetViews()
	if b, ok := c.svc.(IdentityBinder); ok {
		b.BindIdentity(principal)
	}
	if err := c.gate.SignIn(ctx, principal); err != nil {
		return domain.RoleNone, err
	}
	if principal.IsAnonymous() {
		return domain.RoleNone, nil
	}
	return c.gate.Resolve(ctx)
}

// SignOut clears the identity and every cached value.
func (c *Client) SignOut(ctx context.Context) error {
	c.cache.Purge()
	c.resetViews()
	if b, ok := c.svc.(IdentityBinder); ok {
		b.BindIdentity("")
	}
	return c.gate.SignOut(ctx)
}

// Role returns the resolved role of the session.
func (c *Client) Role() domain.Role { return c.gate.Role() }

// View returns the terminal view of the privileged surface.
func (c *Client) View() authz.View { return c.gate.View() }

func (c *Client) resetViews() {
	c.graves.Reset()
	c.graveIndex.Reset()
	c.publicIndex.Reset()
	c.tileIndex.Reset()
}

// signedIn rejects calls that need an identity but no particular role.
func (c *Client) signedIn() error {
	if c.gate.Principal().IsAnonymous() {
		return &authz.Denial{View: authz.ViewLoginRequired, Role: domain.RoleNone, Err: authz.ErrLoginRequired}
	}
	return nil
}

// privileged checks the gate before a privileged call is attempted.
func (c *Client) privileged(ctx context.Context, obj, act string) error {
	if c.gate.State() == authz.StateAuthenticating {
		if _, err := c.gate.Resolve(ctx); err != nil && !errors.Is(err, authz.ErrLoginRequired) {
			return err
		}
	}
	err := c.gate.Authorize(obj, act)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, authz.ErrLoginRequired):
		return &authz.Denial{View: authz.ViewLoginRequired, Role: domain.RoleNone, Err: err}
	case errors.Is(err, authz.ErrAccessDenied):
		return &authz.Denial{View: authz.ViewAccessDenied, Role: c.gate.Role(), Err: err}
	default:
		return err
	}
}

// -----------------------------------------------------------------------------
// Public reads
// -----------------------------------------------------------------------------

// Layout returns the alley layout.
func (c *Client) Layout(ctx context.Context) (domain.CemeteryLayout, error) {
	layout, err := cache.Get(ctx, c.cache, cache.NewKey(cache.CategoryAlleyLayout, ""), c.svc.Layout)
	return layout.Clone(), err
}

// Boss returns the permanent owner principal.
func (c *Client) Boss(ctx context.Context) (domain.Principal, error) {
	return cache.Get(ctx, c.cache, cache.NewKey(cache.CategoryManagerList, "boss"), c.svc.Boss)
}

// PublicTiles returns the public tile map.
func (c *Client) PublicTiles(ctx context.Context) ([]domain.PublicTile, error) {
	tiles, _, err := c.publicTiles(ctx)
	return domain.CloneAll(tiles, domain.PublicTile.Clone), err
}

func (c *Client) publicTiles(ctx context.Context) ([]domain.PublicTile, uint64, error) {
	return cache.GetStamped(ctx, c.cache, cache.NewKey(cache.CategoryPublicTileProjection, ""), c.svc.PublicTiles)
}

// SearchTiles filters the public tile map by query.
func (c *Client) SearchTiles(ctx context.Context, query string) ([]domain.PublicTile, error) {
	tiles, stamp, err := c.publicTiles(ctx)
	if err != nil {
		return nil, err
	}
	return domain.CloneAll(c.tileIndex.FilterSource(tiles, stamp, query), domain.PublicTile.Clone), nil
}

// PublicGraves returns the anonymous search projection.
func (c *Client) PublicGraves(ctx context.Context) ([]domain.PublicGrave, error) {
	graves, _, err := c.publicGraves(ctx)
	return domain.CloneAll(graves, domain.PublicGrave.Clone), err
}

func (c *Client) publicGraves(ctx context.Context) ([]domain.PublicGrave, uint64, error) {
	return cache.GetStamped(ctx, c.cache, cache.NewKey(cache.CategoryPublicSearchProjection, ""), c.svc.PublicGraves)
}

// PublicSearch filters the public projection by query. Owner and payment
// data are never part of the projection, so they cannot match.
func (c *Client) PublicSearch(ctx context.Context, query string) ([]domain.PublicGrave, error) {
	graves, stamp, err := c.publicGraves(ctx)
	if err != nil {
		return nil, err
	}
	return domain.CloneAll(c.publicIndex.FilterSource(graves, stamp, query), domain.PublicGrave.Clone), nil
}

// SearchPublicGraves runs the server-side public search.
func (c *Client) SearchPublicGraves(ctx context.Context, surname *string, yearOfDeath *int) ([]domain.PublicGrave, error) {
	id := "remote|" + domain.GraveFilter{Surname: surname, YearOfDeath: yearOfDeath}.Key()
	key := cache.NewKey(cache.CategoryPublicSearchProjection, id)
	graves, err := cache.Get(ctx, c.cache, key, func(ctx context.Context) ([]domain.PublicGrave, error) {
		return c.svc.SearchPublicGraves(ctx, surname, yearOfDeath)
	})
	return domain.CloneAll(graves, domain.PublicGrave.Clone), err
}

// PublicSiteContent returns the site content shown to visitors.
func (c *Client) PublicSiteContent(ctx context.Context) (domain.SiteContent, error) {
	return cache.Get(ctx, c.cache, cache.NewKey(cache.CategoryPublicSiteContent, ""), c.svc.SiteContent)
}

// Health reports whether the registry answers its health check.
func (c *Client) Health(ctx context.Context) error {
	_, err := cache.Get(ctx, c.cache, cache.NewKey(cache.CategoryHealth, ""), func(ctx context.Context) (domain.Unit, error) {
		return domain.Unit{}, c.svc.HealthCheck(ctx)
	})
	return err
}

// -----------------------------------------------------------------------------
// Privileged reads
// -----------------------------------------------------------------------------

// AllGraves returns every grave record.
func (c *Client) AllGraves(ctx context.Context) ([]domain.Grave, error) {
	if err := c.privileged(ctx, authz.ObjectGrave, authz.ActionRead); err != nil {
		return nil, err
	}
	graves, _, err := c.allGraves(ctx)
	return domain.CloneAll(graves, domain.Grave.Clone), c.gate.HandleFailure(ctx, err)
}

// allGraves returns the shared cached slice. Callers outside the client get
// clones.
func (c *Client) allGraves(ctx context.Context) ([]domain.Grave, uint64, error) {
	return cache.GetStamped(ctx, c.cache, cache.NewKey(cache.CategoryGravePages, "all"), c.svc.AllGraves)
}

// Grave returns one grave record, or a graveNotFound domain error.
func (c *Client) Grave(ctx context.Context, id uint64) (domain.Grave, error) {
	if err := c.privileged(ctx, authz.ObjectGrave, authz.ActionRead); err != nil {
		return domain.Grave{}, err
	}
	key := cache.NewKey(cache.CategoryGraveByID, strconv.FormatUint(id, 10))
	g, err := cache.Get(ctx, c.cache, key, func(ctx context.Context) (*domain.Grave, error) {
		return c.svc.Grave(ctx, id)
	})
	if err != nil {
		return domain.Grave{}, c.gate.HandleFailure(ctx, err)
	}
	if g == nil {
		return domain.Grave{}, domain.GraveNotFound(id)
	}
	return g.Clone(), nil
}

// SearchGraves runs the server-side operator search.
func (c *Client) SearchGraves(ctx context.Context, filter domain.GraveFilter) ([]domain.Grave, error) {
	if err := c.privileged(ctx, authz.ObjectGrave, authz.ActionRead); err != nil {
		return nil, err
	}
	key := cache.NewKey(cache.CategoryGraveSearch, filter.Key())
	graves, err := cache.Get(ctx, c.cache, key, func(ctx context.Context) ([]domain.Grave, error) {
		return c.svc.SearchGraves(ctx, filter)
	})
	return domain.CloneAll(graves, domain.Grave.Clone), c.gate.HandleFailure(ctx, err)
}

// Statistics returns per-status grave counts.
func (c *Client) Statistics(ctx context.Context) (domain.Statistics, error) {
	if err := c.privileged(ctx, authz.ObjectStatistics, authz.ActionRead); err != nil {
		return domain.Statistics{}, err
	}
	stats, err := cache.Get(ctx, c.cache, cache.NewKey(cache.CategoryStatistics, ""), c.svc.Statistics)
	return stats, c.gate.HandleFailure(ctx, err)
}

// Managers lists delegated managers. Boss only.
func (c *Client) Managers(ctx context.Context) ([]domain.Principal, error) {
	if err := c.privileged(ctx, authz.ObjectManager, authz.ActionRead); err != nil {
		return nil, err
	}
	managers, err := cache.Get(ctx, c.cache, cache.NewKey(cache.CategoryManagerList, ""), c.svc.Managers)
	return slices.Clone(managers), c.gate.HandleFailure(ctx, err)
}

// SiteContent returns the editable site content.
func (c *Client) SiteContent(ctx context.Context) (domain.SiteContent, error) {
	if err := c.privileged(ctx, authz.ObjectSite, authz.ActionRead); err != nil {
		return domain.SiteContent{}, err
	}
	content, err := cache.Get(ctx, c.cache, cache.NewKey(cache.CategorySiteContent, ""), c.svc.SiteContent)
	return content, c.gate.HandleFailure(ctx, err)
}

// -----------------------------------------------------------------------------
// Paginated grave listing
// -----------------------------------------------------------------------------

// NextGravePage loads the next page of the operator grave listing.
func (c *Client) NextGravePage(ctx context.Context) (domain.Page[domain.Grave], error) {
	if err := c.privileged(ctx, authz.ObjectGrave, authz.ActionRead); err != nil {
		return domain.Page[domain.Grave]{}, err
	}
	return c.graves.FetchNext(ctx)
}

// AllGravePages follows the cursor chain to the end and returns the accumulation.
func (c *Client) AllGravePages(ctx context.Context) ([]domain.Grave, error) {
	if err := c.privileged(ctx, authz.ObjectGrave, authz.ActionRead); err != nil {
		return nil, err
	}
	all, err := c.graves.FetchAll(ctx)
	return domain.CloneAll(all, domain.Grave.Clone), err
}

// LoadedGraves returns the accumulated listing.
func (c *Client) LoadedGraves() []domain.Grave {
	return domain.CloneAll(c.graves.Items(), domain.Grave.Clone)
}

// HasMoreGraves reports whether another page can be fetched.
func (c *Client) HasMoreGraves() bool { return c.graves.HasMore() }

// SetGraveQuery switches the listing to the filtered source. Pages of a
// previous query still in flight are discarded.
func (c *Client) SetGraveQuery(query string) { c.graves.SetQuery(query) }

// SetGravePageSize changes the page size and restarts the listing.
func (c *Client) SetGravePageSize(n int) error { return c.graves.SetPageSize(n) }

func (c *Client) fetchGravePage(ctx context.Context, cursor domain.Cursor) (domain.Page[domain.Grave], error) {
	id := fmt.Sprintf("%d/%d", cursor.Offset, cursor.PageSize)
	page, err := cache.Get(ctx, c.cache, cache.NewKey(cache.CategoryGravePages, id), func(ctx context.Context) (domain.GravePage, error) {
		return c.svc.PaginatedGraves(ctx, cursor)
	})
	if err != nil {
		return domain.Page[domain.Grave]{}, c.gate.HandleFailure(ctx, err)
	}
	out := page.ToPage()
	out.Items = domain.CloneAll(out.Items, domain.Grave.Clone)
	return out, nil
}

// searchGravePage filters the full record set with the operator index and
// pages the matches locally.
func (c *Client) searchGravePage(ctx context.Context, query string, cursor domain.Cursor) (domain.Page[domain.Grave], error) {
	all, stamp, err := c.allGraves(ctx)
	if err != nil {
		return domain.Page[domain.Grave]{}, c.gate.HandleFailure(ctx, err)
	}
	matches := c.graveIndex.FilterSource(all, stamp, query)

	start := min(cursor.Offset, len(matches))
	end := min(start+cursor.PageSize, len(matches))
	page := domain.Page[domain.Grave]{
		Items: domain.CloneAll(matches[start:end], domain.Grave.Clone),
		Total: len(matches),
	}
	if end < len(matches) {
		page.NextCursor = &domain.Cursor{Offset: end, PageSize: cursor.PageSize}
	}
	return page, nil
}

// -----------------------------------------------------------------------------
// Identity and profiles
// -----------------------------------------------------------------------------

// CallerRole asks the registry which role it grants the bound identity.
func (c *Client) CallerRole(ctx context.Context) (domain.Role, error) {
	return cache.Get(ctx, c.cache, cache.NewKey(cache.CategoryAccessRole, "caller"), c.svc.CallerRole)
}

// CallerProfile returns the profile of the signed-in principal, or nil when
// none has been saved.
func (c *Client) CallerProfile(ctx context.Context) (*domain.UserProfile, error) {
	if err := c.signedIn(); err != nil {
		return nil, err
	}
	p, err := cache.Get(ctx, c.cache, cache.NewKey(cache.CategoryUserProfile, "caller"), c.svc.CallerProfile)
	if err != nil {
		return nil, c.gate.HandleFailure(ctx, err)
	}
	return cloneProfile(p), nil
}

// UserProfile returns the profile of principal. Reading someone else's
// profile is boss only.
func (c *Client) UserProfile(ctx context.Context, principal domain.Principal) (*domain.UserProfile, error) {
	if principal == c.gate.Principal() {
		return c.CallerProfile(ctx)
	}
	if err := c.privileged(ctx, authz.ObjectProfile, authz.ActionRead); err != nil {
		return nil, err
	}
	key := cache.NewKey(cache.CategoryUserProfile, string(principal))
	p, err := cache.Get(ctx, c.cache, key, func(ctx context.Context) (*domain.UserProfile, error) {
		return c.svc.UserProfile(ctx, principal)
	})
	if err != nil {
		return nil, c.gate.HandleFailure(ctx, err)
	}
	return cloneProfile(p), nil
}

// SaveCallerProfile stores the signed-in principal's profile. The name is
// required and a blank email is dropped.
func (c *Client) SaveCallerProfile(ctx context.Context, profile domain.UserProfile) error {
	if err := c.signedIn(); err != nil {
		return err
	}
	profile, err := profile.Normalize()
	if err != nil {
		return err
	}
	err = c.cache.Mutate(ctx, cache.MutationSaveCallerProfile, func(ctx context.Context) error {
		return c.svc.SaveCallerProfile(ctx, profile)
	})
	return c.gate.HandleFailure(ctx, err)
}

func cloneProfile(p *domain.UserProfile) *domain.UserProfile {
	if p == nil {
		return nil
	}
	cp := p.Clone()
	return &cp
}

// -----------------------------------------------------------------------------
// Writes
// -----------------------------------------------------------------------------

func unwrap[T any](res domain.Result[T], err error) (T, error) {
	if err != nil {
		var zero T
		return zero, err
	}
	return res.Get()
}

func (c *Client) mutate(ctx context.Context, obj string, mutation cache.Mutation, op func(ctx context.Context) error) error {
	if err := c.privileged(ctx, obj, authz.ActionWrite); err != nil {
		return err
	}
	err := c.cache.Mutate(ctx, mutation, op)
	if err != nil {
		slog.Debug("Mutation failed", "mutation", mutation, "class", routing.Classify(err), "error", err)
	}
	return c.gate.HandleFailure(ctx, err)
}

// AddAlley creates an empty alley.
func (c *Client) AddAlley(ctx context.Context, name string) error {
	return c.mutate(ctx, authz.ObjectAlley, cache.MutationAddAlley, func(ctx context.Context) error {
		_, err := unwrap(c.svc.AddAlley(ctx, name))
		return err
	})
}

// RemoveAlley removes an alley that holds no graves.
func (c *Client) RemoveAlley(ctx context.Context, name string) error {
	return c.mutate(ctx, authz.ObjectAlley, cache.MutationRemoveAlley, func(ctx context.Context) error {
		_, err := unwrap(c.svc.RemoveAlley(ctx, name))
		return err
	})
}

// AddGrave creates a free grave and returns its id.
func (c *Client) AddGrave(ctx context.Context, alley string, plotNumber uint64) (uint64, error) {
	var id uint64
	err := c.mutate(ctx, authz.ObjectGrave, cache.MutationAddGrave, func(ctx context.Context) error {
		v, err := unwrap(c.svc.AddGrave(ctx, alley, plotNumber))
		if err != nil {
			return err
		}
		id = v
		return nil
	})
	return id, err
}

// RemoveGrave removes a free grave.
func (c *Client) RemoveGrave(ctx context.Context, id uint64) error {
	return c.mutate(ctx, authz.ObjectGrave, cache.MutationRemoveGrave, func(ctx context.Context) error {
		_, err := unwrap(c.svc.RemoveGrave(ctx, id))
		return err
	})
}

// UpdateGrave replaces a grave record. Changing id, alley or plot number is
// rejected before the registry is called.
func (c *Client) UpdateGrave(ctx context.Context, id uint64, record domain.Grave) error {
	if err := c.privileged(ctx, authz.ObjectGrave, authz.ActionWrite); err != nil {
		return err
	}
	current, err := routing.Do(ctx, c.scheduler, "get-grave", func(ctx context.Context) (*domain.Grave, error) {
		return c.svc.Grave(ctx, id)
	})
	if err != nil {
		return c.gate.HandleFailure(ctx, err)
	}
	if current == nil {
		return domain.GraveNotFound(id)
	}
	if field := current.CheckImmutable(record); field != "" {
		return domain.InvariantViolation(field)
	}
	return c.mutate(ctx, authz.ObjectGrave, cache.MutationUpdateGrave, func(ctx context.Context) error {
		_, err := unwrap(c.svc.UpdateGrave(ctx, id, record))
		return err
	})
}

// AddManager delegates manager rights to principal. Boss only.
func (c *Client) AddManager(ctx context.Context, principal domain.Principal) error {
	return c.mutate(ctx, authz.ObjectManager, cache.MutationAddManager, func(ctx context.Context) error {
		ok, err := c.svc.AddManager(ctx, principal)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.DomainError{Kind: domain.KindManagerExists, Principal: string(principal)}
		}
		return nil
	})
}

// RemoveManager revokes manager rights from principal. Boss only.
func (c *Client) RemoveManager(ctx context.Context, principal domain.Principal) error {
	return c.mutate(ctx, authz.ObjectManager, cache.MutationRemoveManager, func(ctx context.Context) error {
		ok, err := c.svc.RemoveManager(ctx, principal)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.DomainError{Kind: domain.KindManagerNotFound, Principal: string(principal)}
		}
		return nil
	})
}

// AssignOwner hands the permanent owner role to principal. Boss only.
func (c *Client) AssignOwner(ctx context.Context, principal domain.Principal) error {
	return c.mutate(ctx, authz.ObjectOwner, cache.MutationAssignOwner, func(ctx context.Context) error {
		return c.svc.AssignOwner(ctx, principal)
	})
}

// UpdateSiteContent replaces the site content.
func (c *Client) UpdateSiteContent(ctx context.Context, content domain.SiteContent) error {
	return c.mutate(ctx, authz.ObjectSite, cache.MutationUpdateSiteContent, func(ctx context.Context) error {
		return c.svc.UpdateSiteContent(ctx, content)
	})
}

// UpdateLogo sets the logo image URL. An empty URL clears it.
func (c *Client) UpdateLogo(ctx context.Context, logoURL string) error {
	return c.mutate(ctx, authz.ObjectSite, cache.MutationUpdateLogo, func(ctx context.Context) error {
		return c.svc.UpdateLogo(ctx, logoURL)
	})
}
