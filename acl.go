package aclkit

import (
	"context"

	"github.com/rs/zerolog"
)

// ACL is the authorization engine. It composes a storage backend, the
// role graph resolver and the permission matcher.
//
// The read path (IsAllowed, UserRoles, ...) and the write path (Allow,
// AddUserRoles, ...) may be used concurrently; atomic visibility of
// mutations is the backend's responsibility.
//
// Error Handling:
// Lookup misses are not errors. An unknown user, an unknown role and a
// resource nobody was ever granted all resolve to denial or an empty set.
// Backend failures are surfaced distinctly (wrapping ErrBackend) through
// the error-returning query forms; the boolean conveniences fail closed.
type ACL struct {
	backend  Backend
	resolver *Resolver
	matcher  *Matcher
	logger   zerolog.Logger
}

// Option configures the ACL engine.
type Option func(*ACL)

// WithLogger sets a logger for decision debugging. By default the engine
// is silent.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *ACL) {
		a.logger = logger
	}
}

// New creates a new ACL engine on top of a backend.
//
// Example:
//
//	backend := aclkit.NewMemoryBackend()
//	acl := aclkit.New(backend)
func New(backend Backend, opts ...Option) *ACL {
	a := &ACL{
		backend:  backend,
		resolver: NewResolver(backend),
		matcher:  NewMatcher(),
		logger:   zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Backend returns the storage backend the engine was built on.
func (a *ACL) Backend() Backend {
	return a.backend
}

// ============================================================================
// DECISION QUERIES
// ============================================================================

// IsAllowed reports whether the user may exercise the permission on the
// resource. Unknown users, roles and resources resolve to false. Backend
// failures also resolve to false (fail closed); use CheckAllowed when the
// distinction matters.
//
// Example:
//
//	if acl.IsAllowed(ctx, userID, "/secret", "get") {
//	    // access granted
//	}
func (a *ACL) IsAllowed(ctx context.Context, userID, resource, permission string) bool {
	allowed, err := a.CheckAllowed(ctx, userID, resource, permission)
	if err != nil {
		a.logger.Debug().Err(err).
			Str("user", userID).
			Str("resource", resource).
			Str("permission", permission).
			Msg("acl check failed, denying")
		return false
	}
	return allowed
}

// CheckAllowed is the error-aware form of IsAllowed. A false result with a
// nil error is a genuine denial; a non-nil error means the backend could
// not answer and the caller decides how to fail.
func (a *ACL) CheckAllowed(ctx context.Context, userID, resource, permission string) (bool, error) {
	if userID == "" || resource == "" || permission == "" {
		return false, nil
	}

	assigned, err := a.backend.UserRoles(ctx, userID)
	if err != nil {
		return false, backendErr(err, "UserRoles")
	}
	if len(assigned) == 0 {
		return false, nil
	}

	closure, err := a.resolver.Closure(ctx, assigned)
	if err != nil {
		return false, backendErr(err, "Closure")
	}

	for role := range closure {
		rules, err := a.backend.AllowRules(ctx, role)
		if err != nil {
			return false, backendErr(err, "AllowRules")
		}
		if a.matcher.MatchAny(rules, resource, permission) {
			a.logger.Debug().
				Str("user", userID).
				Str("role", role).
				Str("resource", resource).
				Str("permission", permission).
				Msg("access granted")
			return true, nil
		}
	}

	a.logger.Debug().
		Str("user", userID).
		Str("resource", resource).
		Str("permission", permission).
		Msg("access denied")
	return false, nil
}

// UserRoles returns the roles directly assigned to a user, not the
// inherited closure. Unknown users yield an empty slice.
func (a *ACL) UserRoles(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, nil
	}
	roles, err := a.backend.UserRoles(ctx, userID)
	if err != nil {
		return nil, backendErr(err, "UserRoles")
	}
	return roles, nil
}

// HasRole reports whether a role is in the user's inherited closure. It
// fails closed on backend errors.
//
// Example:
//
//	if acl.HasRole(ctx, userID, "admin") {
//	    // user is admin, directly or through inheritance
//	}
func (a *ACL) HasRole(ctx context.Context, userID, role string) bool {
	if userID == "" || role == "" {
		return false
	}
	assigned, err := a.backend.UserRoles(ctx, userID)
	if err != nil || len(assigned) == 0 {
		return false
	}
	closure, err := a.resolver.Closure(ctx, assigned)
	if err != nil {
		return false
	}
	_, ok := closure[role]
	return ok
}

// AllowedPermissions returns the union of permission tokens the user's
// role closure grants on a resource. A wildcard grant is reported as "*".
func (a *ACL) AllowedPermissions(ctx context.Context, userID, resource string) ([]string, error) {
	if userID == "" || resource == "" {
		return nil, nil
	}

	assigned, err := a.backend.UserRoles(ctx, userID)
	if err != nil {
		return nil, backendErr(err, "UserRoles")
	}
	if len(assigned) == 0 {
		return nil, nil
	}

	closure, err := a.resolver.Closure(ctx, assigned)
	if err != nil {
		return nil, backendErr(err, "Closure")
	}

	seen := make(map[string]struct{})
	var out []string
	for role := range closure {
		rules, err := a.backend.AllowRules(ctx, role)
		if err != nil {
			return nil, backendErr(err, "AllowRules")
		}
		for _, p := range a.matcher.PermissionsOn(rules, resource) {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out, nil
}

// RoleClosure returns the full inherited role set reachable from the
// user's direct assignments.
func (a *ACL) RoleClosure(ctx context.Context, userID string) ([]string, error) {
	assigned, err := a.UserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(assigned) == 0 {
		return nil, nil
	}
	closure, err := a.resolver.Closure(ctx, assigned)
	if err != nil {
		return nil, backendErr(err, "Closure")
	}
	out := make([]string, 0, len(closure))
	for role := range closure {
		out = append(out, role)
	}
	return out, nil
}

func backendErr(err error, op string) error {
	return NewError(ErrBackend, op+": "+err.Error())
}
