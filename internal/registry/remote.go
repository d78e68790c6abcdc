package registry

import (
	"context"
	"fmt"

	"github.com/vietddude/cemetery/internal/core/domain"
	"github.com/vietddude/cemetery/internal/infra/rpc"
)

// Remote implements Service over JSON-RPC.
type Remote struct {
	client *rpc.Client
}

// NewRemote creates a Remote over client.
func NewRemote(client *rpc.Client) *Remote {
	return &Remote{client: client}
}

// BindIdentity attaches principal to subsequent calls.
func (r *Remote) BindIdentity(principal domain.Principal) {
	type identitySetter interface{ SetIdentity(string) }
	if p, ok := r.client.Provider().(identitySetter); ok {
		if principal.IsAnonymous() {
			principal = ""
		}
		p.SetIdentity(string(principal))
	}
}

func call[T any](ctx context.Context, r *Remote, method string, params ...any) (T, error) {
	var out T
	if err := r.client.CallResult(ctx, method, params, &out); err != nil {
		return out, fmt.Errorf("%s: %w", method, err)
	}
	return out, nil
}

func (r *Remote) AllGraves(ctx context.Context) ([]domain.Grave, error) {
	return call[[]domain.Grave](ctx, r, "getAllGraves")
}

func (r *Remote) PaginatedGraves(ctx context.Context, cursor domain.Cursor) (domain.GravePage, error) {
	if !cursor.Valid() {
		return domain.GravePage{}, fmt.Errorf("invalid cursor offset=%d pageSize=%d", cursor.Offset, cursor.PageSize)
	}
	return call[domain.GravePage](ctx, r, "getPaginatedGraves", cursor.Offset, cursor.PageSize)
}

func (r *Remote) Grave(ctx context.Context, id uint64) (*domain.Grave, error) {
	return call[*domain.Grave](ctx, r, "getGrave", id)
}

func (r *Remote) Layout(ctx context.Context) (domain.CemeteryLayout, error) {
	return call[domain.CemeteryLayout](ctx, r, "getCemeteryState")
}

func (r *Remote) PublicTiles(ctx context.Context) ([]domain.PublicTile, error) {
	return call[[]domain.PublicTile](ctx, r, "getPublicTiles")
}

func (r *Remote) PublicGraves(ctx context.Context) ([]domain.PublicGrave, error) {
	return call[[]domain.PublicGrave](ctx, r, "getPublicGraves")
}

func (r *Remote) SearchGraves(ctx context.Context, filter domain.GraveFilter) ([]domain.Grave, error) {
	return call[[]domain.Grave](ctx, r, "searchGraves",
		filter.Surname, filter.YearOfDeath, filter.Owner, filter.Status, filter.Locality)
}

func (r *Remote) SearchPublicGraves(ctx context.Context, surname *string, yearOfDeath *int) ([]domain.PublicGrave, error) {
	return call[[]domain.PublicGrave](ctx, r, "searchPublicGravesWithLocation", surname, yearOfDeath)
}

func (r *Remote) Statistics(ctx context.Context) (domain.Statistics, error) {
	return call[domain.Statistics](ctx, r, "getGraveStatistics")
}

func (r *Remote) CallerRole(ctx context.Context) (domain.Role, error) {
	s, err := call[string](ctx, r, "getCallerUserRole")
	return domain.ParseRole(s), err
}

func (r *Remote) AccessRole(ctx context.Context, principal domain.Principal) (domain.Role, error) {
	s, err := call[string](ctx, r, "getAccessRole", principal)
	return domain.ParseRole(s), err
}

func (r *Remote) Managers(ctx context.Context) ([]domain.Principal, error) {
	return call[[]domain.Principal](ctx, r, "getManagers")
}

func (r *Remote) Boss(ctx context.Context) (domain.Principal, error) {
	return call[domain.Principal](ctx, r, "getBoss")
}

func (r *Remote) SiteContent(ctx context.Context) (domain.SiteContent, error) {
	return call[domain.SiteContent](ctx, r, "getSiteContent")
}

func (r *Remote) HealthCheck(ctx context.Context) error {
	_, err := call[any](ctx, r, "healthCheck")
	return err
}

func (r *Remote) CallerProfile(ctx context.Context) (*domain.UserProfile, error) {
	return call[*domain.UserProfile](ctx, r, "getCallerUserProfile")
}

func (r *Remote) UserProfile(ctx context.Context, principal domain.Principal) (*domain.UserProfile, error) {
	return call[*domain.UserProfile](ctx, r, "getUserProfile", principal)
}

func (r *Remote) SaveCallerProfile(ctx context.Context, profile domain.UserProfile) error {
	_, err := call[any](ctx, r, "saveCallerUserProfile", profile)
	return err
}

func (r *Remote) AddAlley(ctx context.Context, name string) (domain.Result[domain.Unit], error) {
	return call[domain.Result[domain.Unit]](ctx, r, "addAlley", name)
}

func (r *Remote) RemoveAlley(ctx context.Context, name string) (domain.Result[domain.Unit], error) {
	return call[domain.Result[domain.Unit]](ctx, r, "removeAlley", name)
}

func (r *Remote) AddGrave(ctx context.Context, alley string, plotNumber uint64) (domain.Result[uint64], error) {
	return call[domain.Result[uint64]](ctx, r, "addGrave", alley, plotNumber)
}

func (r *Remote) RemoveGrave(ctx context.Context, id uint64) (domain.Result[domain.Unit], error) {
	return call[domain.Result[domain.Unit]](ctx, r, "removeGrave", id)
}

func (r *Remote) UpdateGrave(ctx context.Context, id uint64, record domain.Grave) (domain.Result[domain.Unit], error) {
	return call[domain.Result[domain.Unit]](ctx, r, "updateGrave", id, record)
}

func (r *Remote) AddManager(ctx context.Context, principal domain.Principal) (bool, error) {
	return call[bool](ctx, r, "addManager", principal)
}

func (r *Remote) RemoveManager(ctx context.Context, principal domain.Principal) (bool, error) {
	return call[bool](ctx, r, "removeManager", principal)
}

func (r *Remote) AssignOwner(ctx context.Context, principal domain.Principal) error {
	_, err := call[any](ctx, r, "assignOwner", principal)
	return err
}

func (r *Remote) UpdateSiteContent(ctx context.Context, content domain.SiteContent) error {
	_, err := call[any](ctx, r, "updateSiteContent", content)
	return err
}

func (r *Remote) UpdateLogo(ctx context.Context, logoURL string) error {
	var logo any
	if logoURL != "" {
		logo = logoURL
	}
	_, err := call[any](ctx, r, "updateLogoImage", logo)
	return err
}
