package aclkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// Backend is the storage interface the engine depends on. Any durable
// store can satisfy it as long as each mutation is atomically visible: a
// concurrent reader must never observe a partially applied multi-edge
// addition.
//
// Absence is never an error. A role with no parents, a role with no rules
// and a user with no assignments all return empty slices.
type Backend interface {
	// RoleParents returns the direct parent roles of a role.
	RoleParents(ctx context.Context, role string) ([]string, error)

	// AddRoleParents adds inheritance edges from role to each parent.
	// Existing edges are left untouched; the call is idempotent.
	AddRoleParents(ctx context.Context, role string, parents []string) error

	// AllowRules returns the allow rules attached to a role.
	AllowRules(ctx context.Context, role string) ([]AllowRule, error)

	// AddAllowRule attaches an allow rule to a role. Rules accumulate.
	AddAllowRule(ctx context.Context, role string, rule AllowRule) error

	// UserRoles returns the roles directly assigned to a user.
	UserRoles(ctx context.Context, userID string) ([]string, error)

	// AddUserRoles assigns roles to a user. Already-assigned roles are
	// left untouched; the call is idempotent.
	AddUserRoles(ctx context.Context, userID string, roles []string) error

	// RemoveUserRoles unassigns roles from a user. Removing a role the
	// user does not have is a no-op, not an error.
	RemoveUserRoles(ctx context.Context, userID string, roles []string) error
}

// AuditStore is an optional backend capability: backends that implement it
// receive an audit record for every engine mutation and can be queried for
// the trail.
type AuditStore interface {
	AppendAudit(ctx context.Context, entry *AuditEntry) error
	AuditLog(ctx context.Context, filter AuditLogFilter) ([]AuditRecord, error)
}

// HealthMonitor is an optional backend capability for health checking.
type HealthMonitor interface {
	Health(ctx context.Context) dbkit.HealthStatus
	IsHealthy(ctx context.Context) bool
	Ping(ctx context.Context) error
	GetPoolStats() dbkit.PoolStats
}

// TransactionManager is an optional backend capability: backends that
// implement it can run a batch of engine mutations atomically.
type TransactionManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
