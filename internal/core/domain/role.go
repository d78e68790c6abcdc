package domain

// Role is the caller's effective role in the registry.
type Role string

const (
	RoleNone    Role = "none"
	RoleManager Role = "manager"
	RoleBoss    Role = "boss"
)

// ParseRole maps the get-access-role answer to a Role. Unknown answers are
// treated as no role.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleBoss:
		return RoleBoss
	case RoleManager:
		return RoleManager
	default:
		return RoleNone
	}
}

// CanManage reports manager-or-boss capability.
func (r Role) CanManage() bool {
	return r == RoleManager || r == RoleBoss
}

// CanDelegate reports the boss-only capability.
func (r Role) CanDelegate() bool {
	return r == RoleBoss
}

// Principal identifies a caller. The empty principal and the anonymous
// principal both mean "no identity".
type Principal string

// AnonymousPrincipal is the textual form of the anonymous identity.
const AnonymousPrincipal Principal = "2vxsx-fae"

func (p Principal) IsAnonymous() bool {
	return p == "" || p == AnonymousPrincipal
}
