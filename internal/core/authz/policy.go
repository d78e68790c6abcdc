package authz

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/vietddude/cemetery/internal/core/domain"
)

//go:embed model.conf
var casbinModelContent string

// Objects guarded by the policy.
const (
	ObjectAlley      = "alley"
	ObjectGrave      = "grave"
	ObjectStatistics = "statistics"
	ObjectSite       = "site"
	ObjectManager    = "manager"
	ObjectOwner      = "owner"
	ObjectProfile    = "profile"
)

// Actions guarded by the policy.
const (
	ActionRead  = "read"
	ActionWrite = "write"
)

// defaultPolicies grant managers the operational surface. Boss inherits
// every manager permission and additionally controls delegation.
var defaultPolicies = [][]string{
	{string(domain.RoleManager), ObjectAlley, ActionWrite},
	{string(domain.RoleManager), ObjectGrave, ActionRead},
	{string(domain.RoleManager), ObjectGrave, ActionWrite},
	{string(domain.RoleManager), ObjectStatistics, ActionRead},
	{string(domain.RoleManager), ObjectSite, ActionRead},
	{string(domain.RoleManager), ObjectSite, ActionWrite},
	{string(domain.RoleBoss), ObjectManager, ActionRead},
	{string(domain.RoleBoss), ObjectManager, ActionWrite},
	{string(domain.RoleBoss), ObjectOwner, ActionWrite},
	{string(domain.RoleBoss), ObjectProfile, ActionRead},
}

// Policy evaluates role capabilities.
type Policy struct {
	enforcer *casbin.SyncedEnforcer
}

// NewPolicy creates a policy from the embedded RBAC model and default rules.
func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	if _, err := enforcer.AddPolicies(defaultPolicies); err != nil {
		return nil, fmt.Errorf("load policies: %w", err)
	}
	if _, err := enforcer.AddGroupingPolicy(string(domain.RoleBoss), string(domain.RoleManager)); err != nil {
		return nil, fmt.Errorf("load role hierarchy: %w", err)
	}

	return &Policy{enforcer: enforcer}, nil
}

// Allowed reports whether role may perform act on obj.
func (p *Policy) Allowed(role domain.Role, obj, act string) (bool, error) {
	if role == domain.RoleNone || role == "" {
		return false, nil
	}
	ok, err := p.enforcer.Enforce(string(role), obj, act)
	if err != nil {
		return false, fmt.Errorf("enforce %s %s:%s: %w", role, obj, act, err)
	}
	return ok, nil
}
