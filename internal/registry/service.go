// Package registry is the client-side data layer over the remote cemetery
// registry: a Service interface, its JSON-RPC implementation and the Client
// facade that composes caching, retries, authorization, pagination and search.
package registry

import (
	"context"

	"github.com/vietddude/cemetery/internal/core/domain"
)

// Service is the remote registry as consumed by the client.
type Service interface {
	// Reads
	AllGraves(ctx context.Context) ([]domain.Grave, error)
	PaginatedGraves(ctx context.Context, cursor domain.Cursor) (domain.GravePage, error)
	// Grave returns nil when the id is unknown.
	Grave(ctx context.Context, id uint64) (*domain.Grave, error)
	Layout(ctx context.Context) (domain.CemeteryLayout, error)
	PublicTiles(ctx context.Context) ([]domain.PublicTile, error)
	PublicGraves(ctx context.Context) ([]domain.PublicGrave, error)
	SearchGraves(ctx context.Context, filter domain.GraveFilter) ([]domain.Grave, error)
	SearchPublicGraves(ctx context.Context, surname *string, yearOfDeath *int) ([]domain.PublicGrave, error)
	Statistics(ctx context.Context) (domain.Statistics, error)
	CallerRole(ctx context.Context) (domain.Role, error)
	AccessRole(ctx context.Context, principal domain.Principal) (domain.Role, error)
	Managers(ctx context.Context) ([]domain.Principal, error)
	Boss(ctx context.Context) (domain.Principal, error)
	SiteContent(ctx context.Context) (domain.SiteContent, error)
	HealthCheck(ctx context.Context) error
	// CallerProfile and UserProfile return nil when no profile was saved.
	CallerProfile(ctx context.Context) (*domain.UserProfile, error)
	UserProfile(ctx context.Context, principal domain.Principal) (*domain.UserProfile, error)

	// Writes
	AddAlley(ctx context.Context, name string) (domain.Result[domain.Unit], error)
	RemoveAlley(ctx context.Context, name string) (domain.Result[domain.Unit], error)
	AddGrave(ctx context.Context, alley string, plotNumber uint64) (domain.Result[uint64], error)
	RemoveGrave(ctx context.Context, id uint64) (domain.Result[domain.Unit], error)
	UpdateGrave(ctx context.Context, id uint64, record domain.Grave) (domain.Result[domain.Unit], error)
	AddManager(ctx context.Context, principal domain.Principal) (bool, error)
	RemoveManager(ctx context.Context, principal domain.Principal) (bool, error)
	AssignOwner(ctx context.Context, principal domain.Principal) error
	UpdateSiteContent(ctx context.Context, content domain.SiteContent) error
	UpdateLogo(ctx context.Context, logoURL string) error
	SaveCallerProfile(ctx context.Context, profile domain.UserProfile) error
}

// IdentityBinder is implemented by services whose calls carry the caller identity.
type IdentityBinder interface {
	BindIdentity(principal domain.Principal)
}
