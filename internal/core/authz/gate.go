// Package authz derives the caller's effective role and gates which
// privileged reads and writes may be attempted.
package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/cemetery/internal/core/domain"
	"github.com/vietddude/cemetery/internal/indexing/metrics"
	"github.com/vietddude/cemetery/internal/infra/rpc/routing"
)

// DefaultRoleTTL bounds how long a resolved role is trusted.
const DefaultRoleTTL = 5 * time.Minute

var (
	// ErrLoginRequired is returned for privileged checks without an identity.
	ErrLoginRequired = errors.New("login required")

	// ErrAccessDenied is returned when the resolved role lacks the capability.
	ErrAccessDenied = errors.New("access denied")

	// ErrNotResolved is returned while the role query is outstanding.
	ErrNotResolved = errors.New("role not resolved")
)

// RoleResolver issues the remote role query for principal.
type RoleResolver interface {
	AccessRole(ctx context.Context, principal domain.Principal) (domain.Role, error)
}

// Denial is the terminal outcome of an authorization failure.
type Denial struct {
	View View
	Role domain.Role
	Err  error
}

func (d *Denial) Error() string {
	return fmt.Sprintf("%s: %v", d.View, d.Err)
}

func (d *Denial) Unwrap() error {
	return d.Err
}

// Gate tracks the session's authorization state.
type Gate struct {
	resolver RoleResolver
	store    RoleStore
	policy   *Policy
	ttl      time.Duration

	mu            sync.RWMutex
	state         State
	principal     domain.Principal
	role          domain.Role
	sessionID     string
	stateCallback func(Transition)
	history       History
}

// NewGate creates a gate in the anonymous state. A nil store uses a MemoryStore.
func NewGate(resolver RoleResolver, store RoleStore, policy *Policy, ttl time.Duration) *Gate {
	if store == nil {
		store = NewMemoryStore()
	}
	if ttl <= 0 {
		ttl = DefaultRoleTTL
	}
	return &Gate{
		resolver: resolver,
		store:    store,
		policy:   policy,
		ttl:      ttl,
		state:    StateAnonymous,
		role:     domain.RoleNone,
	}
}

// SetStateChangeCallback registers callback for state changes.
func (g *Gate) SetStateChangeCallback(fn func(Transition)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stateCallback = fn
}

// SignIn records an identity. The anonymous principal is treated as signing out.
// Signing in as a different principal evicts the previous principal's role.
func (g *Gate) SignIn(ctx context.Context, principal domain.Principal) error {
	if principal.IsAnonymous() {
		return g.SignOut(ctx)
	}

	g.mu.Lock()
	if g.state != StateAnonymous && g.principal == principal {
		g.mu.Unlock()
		return nil
	}
	previous := g.principal
	var (
		t       Transition
		changed bool
	)
	if g.state != StateAuthenticating {
		var err error
		t, err = g.transitionLocked(StateAuthenticating, "identity acquired")
		if err != nil {
			g.mu.Unlock()
			return err
		}
		changed = true
	}
	g.principal = principal
	g.role = domain.RoleNone
	g.sessionID = uuid.NewString()
	cb := g.stateCallback
	g.mu.Unlock()

	if previous != "" && previous != principal {
		if err := g.store.Delete(ctx, previous); err != nil {
			slog.Warn("Failed to evict previous role", "principal", previous, "error", err)
		}
	}
	if changed {
		g.emit(cb, t)
	}
	return nil
}

// SignOut clears the identity and its cached role.
func (g *Gate) SignOut(ctx context.Context) error {
	g.mu.Lock()
	if g.state == StateAnonymous {
		g.mu.Unlock()
		return nil
	}
	principal := g.principal
	t, err := g.transitionLocked(StateAnonymous, "signed out")
	if err != nil {
		g.mu.Unlock()
		return err
	}
	g.principal = ""
	g.role = domain.RoleNone
	g.sessionID = ""
	cb := g.stateCallback
	g.mu.Unlock()

	if err := g.store.Delete(ctx, principal); err != nil {
		slog.Warn("Failed to evict role", "principal", principal, "error", err)
	}
	g.emit(cb, t)
	return nil
}

// Resolve determines the role of the signed-in principal, using the role
// store when it holds a fresh answer and the remote query otherwise.
func (g *Gate) Resolve(ctx context.Context) (domain.Role, error) {
	g.mu.RLock()
	state, principal := g.state, g.principal
	g.mu.RUnlock()

	if state == StateAnonymous {
		return domain.RoleNone, ErrLoginRequired
	}

	role, ok, err := g.store.Get(ctx, principal)
	if err != nil {
		slog.Warn("Role store lookup failed", "principal", principal, "error", err)
	}
	if !ok {
		role, err = g.resolver.AccessRole(ctx, principal)
		if err != nil {
			if routing.Classify(err) != routing.ClassAuthorization {
				return domain.RoleNone, fmt.Errorf("resolve role: %w", err)
			}
			role = domain.RoleNone
		}
		if err := g.store.Set(ctx, principal, role, g.ttl); err != nil {
			slog.Warn("Failed to cache role", "principal", principal, "error", err)
		}
	}

	g.mu.Lock()
	if g.principal != principal {
		g.mu.Unlock()
		return domain.RoleNone, ErrNotResolved
	}
	var (
		t       Transition
		changed bool
	)
	if g.state != StateResolved {
		t, err = g.transitionLocked(StateResolved, fmt.Sprintf("role %s", role))
		if err != nil {
			g.mu.Unlock()
			return domain.RoleNone, err
		}
		changed = true
	}
	g.role = role
	cb := g.stateCallback
	g.mu.Unlock()

	if changed {
		g.emit(cb, t)
	}
	slog.Debug("Role resolved", "principal", principal, "role", role)
	return role, nil
}

// HandleFailure reacts to a failed privileged call. An authorization failure
// drops the cached role, forces re-resolution and yields a Denial; other
// failures are returned unchanged.
func (g *Gate) HandleFailure(ctx context.Context, err error) error {
	if err == nil || routing.Classify(err) != routing.ClassAuthorization {
		return err
	}

	g.mu.Lock()
	principal := g.principal
	var (
		t       Transition
		changed bool
	)
	if g.state == StateResolved {
		t, _ = g.transitionLocked(StateAuthenticating, "authorization failure")
		g.role = domain.RoleNone
		changed = true
	}
	cb := g.stateCallback
	g.mu.Unlock()

	if changed {
		g.emit(cb, t)
	}

	if principal == "" {
		return &Denial{View: ViewLoginRequired, Role: domain.RoleNone, Err: err}
	}

	if delErr := g.store.Delete(ctx, principal); delErr != nil {
		slog.Warn("Failed to evict role", "principal", principal, "error", delErr)
	}
	role, resolveErr := g.Resolve(ctx)
	if resolveErr != nil {
		slog.Warn("Re-resolution after denial failed", "principal", principal, "error", resolveErr)
	}

	slog.Info("Privileged call denied", "principal", principal, "role", role, "error", err)
	return &Denial{View: ViewAccessDenied, Role: role, Err: err}
}

// Forget drops the resolved role so the next privileged check resolves it
// again. It is a no-op unless the gate is resolved.
func (g *Gate) Forget(ctx context.Context) {
	g.mu.Lock()
	if g.state != StateResolved {
		g.mu.Unlock()
		return
	}
	principal := g.principal
	t, _ := g.transitionLocked(StateAuthenticating, "role invalidated")
	g.role = domain.RoleNone
	cb := g.stateCallback
	g.mu.Unlock()

	if err := g.store.Delete(ctx, principal); err != nil {
		slog.Warn("Failed to evict role", "principal", principal, "error", err)
	}
	g.emit(cb, t)
}

// Authorize checks that the session may perform act on obj.
func (g *Gate) Authorize(obj, act string) error {
	g.mu.RLock()
	state, role := g.state, g.role
	g.mu.RUnlock()

	switch state {
	case StateAnonymous:
		return ErrLoginRequired
	case StateAuthenticating:
		return ErrNotResolved
	}

	allowed, err := g.policy.Allowed(role, obj, act)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: role %s cannot %s %s", ErrAccessDenied, role, act, obj)
	}
	return nil
}

// View derives the terminal view for the privileged surface.
func (g *Gate) View() View {
	g.mu.RLock()
	defer g.mu.RUnlock()

	switch g.state {
	case StateAnonymous:
		return ViewLoginRequired
	case StateAuthenticating:
		return ViewPending
	}
	if g.role.CanManage() {
		return ViewAdmin
	}
	return ViewAccessDenied
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Role returns the resolved role, or none.
func (g *Gate) Role() domain.Role {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.role
}

// Principal returns the signed-in principal.
func (g *Gate) Principal() domain.Principal {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.principal
}

// SessionID identifies the current signed-in session.
func (g *Gate) SessionID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sessionID
}

// History returns recent transitions.
func (g *Gate) History() []Transition {
	return g.history.Transitions()
}

func (g *Gate) transitionLocked(to State, reason string) (Transition, error) {
	if !CanTransition(g.state, to) {
		return Transition{}, fmt.Errorf(
			"%w: cannot transition from %s to %s",
			ErrInvalidTransition,
			g.state,
			to,
		)
	}
	t := NewTransition(g.state, to, reason)
	g.state = to
	g.history.Record(t)
	metrics.AuthTransitionsTotal.WithLabelValues(string(t.From), string(t.To)).Inc()
	return t, nil
}

func (g *Gate) emit(cb func(Transition), t Transition) {
	if cb != nil {
		cb(t)
	}
}
