package aclkit

import (
	"context"
)

// Grants is a point-in-time snapshot of a user's effective access: the
// inherited role closure and every allow rule those roles carry. It lets
// handlers run repeated checks without further backend round-trips.
//
// A snapshot does not observe mutations made after it was taken.
type Grants struct {
	userID  string
	roles   []string // direct assignments
	closure map[string]struct{}
	rules   []AllowRule
	matcher *Matcher
}

// Snapshot loads a Grants snapshot for a user. It is typically created by
// middleware and stored in the request context.
func (a *ACL) Snapshot(ctx context.Context, userID string) (*Grants, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}

	assigned, err := a.backend.UserRoles(ctx, userID)
	if err != nil {
		return nil, backendErr(err, "UserRoles")
	}

	closure, err := a.resolver.Closure(ctx, assigned)
	if err != nil {
		return nil, backendErr(err, "Closure")
	}

	var rules []AllowRule
	for role := range closure {
		rr, err := a.backend.AllowRules(ctx, role)
		if err != nil {
			return nil, backendErr(err, "AllowRules")
		}
		rules = append(rules, rr...)
	}

	return &Grants{
		userID:  userID,
		roles:   assigned,
		closure: closure,
		rules:   rules,
		matcher: a.matcher,
	}, nil
}

// UserID returns the user this snapshot is for.
func (g *Grants) UserID() string {
	return g.userID
}

// IsAllowed reports whether the snapshot grants the permission on the
// resource.
//
// Example:
//
//	grants := aclkit.FromContext(r.Context())
//	if grants.IsAllowed("/reports", "export") {
//	    // show the export button
//	}
func (g *Grants) IsAllowed(resource, permission string) bool {
	return g.matcher.MatchAny(g.rules, resource, permission)
}

// HasRole reports whether a role is in the snapshot's inherited closure.
func (g *Grants) HasRole(role string) bool {
	_, ok := g.closure[role]
	return ok
}

// HasAnyRole reports whether any of the given roles is in the closure.
func (g *Grants) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if g.HasRole(role) {
			return true
		}
	}
	return false
}

// Roles returns the user's direct assignments at snapshot time.
func (g *Grants) Roles() []string {
	return append([]string(nil), g.roles...)
}

// Closure returns the inherited role set at snapshot time.
func (g *Grants) Closure() []string {
	out := make([]string, 0, len(g.closure))
	for role := range g.closure {
		out = append(out, role)
	}
	return out
}

// AllowedPermissions returns the permission tokens granted on a resource.
func (g *Grants) AllowedPermissions(resource string) []string {
	return g.matcher.PermissionsOn(g.rules, resource)
}

// IsEmpty returns true if the user had no role assignments at snapshot
// time.
func (g *Grants) IsEmpty() bool {
	return len(g.roles) == 0
}
