package aclkit

import (
	"context"
)

// ============================================================================
// ADMINISTRATIVE OPERATIONS
// ============================================================================

// Allow attaches an allow rule to a role: the role may exercise any of the
// permissions on any of the resources. The role is created on first
// reference; rules accumulate across calls and are never replaced.
//
// Example:
//
//	err := acl.Allow(ctx, "admin", []string{"/secret"}, []string{"*"})
func (a *ACL) Allow(ctx context.Context, role string, resources, permissions []string) error {
	if err := validateRole(role); err != nil {
		return err
	}
	if len(resources) == 0 {
		return NewError(ErrInvalidResource, "at least one resource required").WithRole(role)
	}
	if len(permissions) == 0 {
		return NewError(ErrInvalidPermission, "at least one permission required").WithRole(role)
	}
	for _, res := range resources {
		if res == "" {
			return NewError(ErrInvalidResource, "resource cannot be empty").WithRole(role)
		}
	}
	for _, perm := range permissions {
		if perm == "" {
			return NewError(ErrInvalidPermission, "permission cannot be empty").WithRole(role)
		}
	}

	rule := AllowRule{
		Resources:   append([]string(nil), resources...),
		Permissions: append([]string(nil), permissions...),
	}
	if err := a.backend.AddAllowRule(ctx, role, rule); err != nil {
		return NewError(ErrBackend, "failed to store allow rule").WithRole(role)
	}

	a.audit(ctx, &AuditEntry{
		Action:      AuditActionRuleAdded,
		TargetRole:  role,
		Resources:   rule.Resources,
		Permissions: rule.Permissions,
	})

	a.logger.Debug().
		Str("role", role).
		Strs("resources", resources).
		Strs("permissions", permissions).
		Msg("allow rule added")

	return nil
}

// AllowRules applies a batch of grants: every role in a set receives every
// rule in that set. When the backend supports transactions the whole batch
// is applied atomically.
//
// Example:
//
//	err := acl.AllowRules(ctx, []aclkit.RuleSet{
//	    {Roles: []string{"admin"}, Allows: []aclkit.AllowRule{
//	        {Resources: []string{"/secret"}, Permissions: []string{"*"}},
//	        {Resources: []string{"/users"}, Permissions: []string{"get_list"}},
//	    }},
//	    {Roles: []string{"user"}, Allows: []aclkit.AllowRule{
//	        {Resources: []string{"/secret", "/users"}, Permissions: []string{"get"}},
//	    }},
//	})
func (a *ACL) AllowRules(ctx context.Context, sets []RuleSet) error {
	apply := func(ctx context.Context) error {
		for _, set := range sets {
			for _, role := range set.Roles {
				for _, rule := range set.Allows {
					if err := a.Allow(ctx, role, rule.Resources, rule.Permissions); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}

	if tm, ok := a.backend.(TransactionManager); ok {
		return tm.Transaction(ctx, apply)
	}
	return apply(ctx)
}

// AddRoleParents adds directed inheritance edges from role to each parent:
// the role gains everything its parents grant, transitively. Roles are
// created as needed and existing edges are left untouched, so the call is
// idempotent.
//
// Example:
//
//	err := acl.AddRoleParents(ctx, "admin", []string{"user"})
func (a *ACL) AddRoleParents(ctx context.Context, role string, parents []string) error {
	if err := validateRole(role); err != nil {
		return err
	}
	if len(parents) == 0 {
		return nil
	}
	for _, parent := range parents {
		if parent == "" {
			return NewError(ErrInvalidRole, "parent role cannot be empty").WithRole(role)
		}
	}

	if err := a.backend.AddRoleParents(ctx, role, parents); err != nil {
		return NewError(ErrBackend, "failed to store parent edges").WithRole(role)
	}

	a.audit(ctx, &AuditEntry{
		Action:     AuditActionParentsAdded,
		TargetRole: role,
		NewRoles:   parents,
	})

	return nil
}

// AddUserRoles assigns roles to a user. Already-assigned roles are left
// untouched. Assigning a role with no rules and no parents is legal; it
// simply grants nothing until the role is given rules.
//
// Example:
//
//	err := acl.AddUserRoles(ctx, userID, []string{"user"})
func (a *ACL) AddUserRoles(ctx context.Context, userID string, roles []string) error {
	if err := validateUser(userID); err != nil {
		return err
	}
	if len(roles) == 0 {
		return nil
	}
	for _, role := range roles {
		if role == "" {
			return NewError(ErrInvalidRole, "role cannot be empty").WithUser(userID)
		}
	}

	previous, err := a.backend.UserRoles(ctx, userID)
	if err != nil {
		return NewError(ErrBackend, "failed to read current roles").WithUser(userID)
	}

	if err := a.backend.AddUserRoles(ctx, userID, roles); err != nil {
		return NewError(ErrBackend, "failed to assign roles").WithUser(userID)
	}

	a.audit(ctx, &AuditEntry{
		Action:        AuditActionRolesAssigned,
		TargetUserID:  userID,
		PreviousRoles: previous,
		NewRoles:      mergeRoles(previous, roles),
	})

	return nil
}

// RemoveUserRoles unassigns roles from a user. Removing a role the user
// does not have is a no-op, not an error. The role's rules survive; only
// this user's path to them is cut.
//
// Example:
//
//	err := acl.RemoveUserRoles(ctx, userID, []string{"admin"})
func (a *ACL) RemoveUserRoles(ctx context.Context, userID string, roles []string) error {
	if err := validateUser(userID); err != nil {
		return err
	}
	if len(roles) == 0 {
		return nil
	}
	for _, role := range roles {
		if role == "" {
			return NewError(ErrInvalidRole, "role cannot be empty").WithUser(userID)
		}
	}

	previous, err := a.backend.UserRoles(ctx, userID)
	if err != nil {
		return NewError(ErrBackend, "failed to read current roles").WithUser(userID)
	}

	if err := a.backend.RemoveUserRoles(ctx, userID, roles); err != nil {
		return NewError(ErrBackend, "failed to revoke roles").WithUser(userID)
	}

	a.audit(ctx, &AuditEntry{
		Action:        AuditActionRolesRevoked,
		TargetUserID:  userID,
		PreviousRoles: previous,
		NewRoles:      subtractRoles(previous, roles),
	})

	return nil
}

// AuditLog retrieves audit log entries with optional filters. Backends
// without audit support return an empty result.
func (a *ACL) AuditLog(ctx context.Context, filter AuditLogFilter) ([]AuditRecord, error) {
	store, ok := a.backend.(AuditStore)
	if !ok {
		return nil, nil
	}
	records, err := store.AuditLog(ctx, filter)
	if err != nil {
		return nil, backendErr(err, "AuditLog")
	}
	return records, nil
}

// audit appends an entry when the backend keeps a trail. Audit failures
// never fail the mutation that triggered them.
func (a *ACL) audit(ctx context.Context, entry *AuditEntry) {
	store, ok := a.backend.(AuditStore)
	if !ok {
		return
	}

	meta := GetAuditContext(ctx)
	entry.ActorID = meta.ActorID
	entry.IPAddress = meta.IPAddress
	entry.UserAgent = meta.UserAgent
	entry.RequestID = meta.RequestID

	if err := store.AppendAudit(ctx, entry); err != nil {
		a.logger.Warn().Err(err).Str("action", string(entry.Action)).Msg("audit append failed")
	}
}

func validateRole(role string) error {
	if role == "" {
		return NewError(ErrInvalidRole, "role cannot be empty")
	}
	return nil
}

func validateUser(userID string) error {
	if userID == "" {
		return NewError(ErrInvalidUser, "user ID cannot be empty")
	}
	return nil
}

func mergeRoles(current, added []string) []string {
	seen := make(map[string]struct{}, len(current)+len(added))
	out := make([]string, 0, len(current)+len(added))
	for _, r := range current {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	for _, r := range added {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

func subtractRoles(current, removed []string) []string {
	drop := make(map[string]struct{}, len(removed))
	for _, r := range removed {
		drop[r] = struct{}{}
	}
	out := make([]string, 0, len(current))
	for _, r := range current {
		if _, gone := drop[r]; gone {
			continue
		}
		out = append(out, r)
	}
	return out
}
