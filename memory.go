package aclkit

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend is an in-process Backend. It is safe for concurrent use:
// reads share a read lock and never block each other, mutations take the
// write lock so a multi-edge addition becomes visible atomically or not at
// all.
//
// It keeps an audit trail in memory and is the backend of choice for
// tests and single-process services without durability needs.
type MemoryBackend struct {
	mu      sync.RWMutex
	parents map[string]map[string]struct{}
	rules   map[string][]AllowRule
	users   map[string]map[string]struct{}

	auditMu sync.Mutex
	audit   []AuditRecord
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		parents: make(map[string]map[string]struct{}),
		rules:   make(map[string][]AllowRule),
		users:   make(map[string]map[string]struct{}),
	}
}

// RoleParents returns the direct parents of a role.
func (b *MemoryBackend) RoleParents(ctx context.Context, role string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	set := b.parents[role]
	if len(set) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(set))
	for parent := range set {
		out = append(out, parent)
	}
	return out, nil
}

// AddRoleParents adds inheritance edges; existing edges are untouched.
func (b *MemoryBackend) AddRoleParents(ctx context.Context, role string, parents []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.parents[role]
	if set == nil {
		set = make(map[string]struct{}, len(parents))
		b.parents[role] = set
	}
	for _, parent := range parents {
		set[parent] = struct{}{}
	}
	return nil
}

// AllowRules returns copies of the rules attached to a role.
func (b *MemoryBackend) AllowRules(ctx context.Context, role string) ([]AllowRule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	stored := b.rules[role]
	if len(stored) == 0 {
		return nil, nil
	}
	out := make([]AllowRule, len(stored))
	for i, rule := range stored {
		out[i] = AllowRule{
			Resources:   append([]string(nil), rule.Resources...),
			Permissions: append([]string(nil), rule.Permissions...),
		}
	}
	return out, nil
}

// AddAllowRule appends a rule to a role.
func (b *MemoryBackend) AddAllowRule(ctx context.Context, role string, rule AllowRule) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.rules[role] = append(b.rules[role], AllowRule{
		Resources:   append([]string(nil), rule.Resources...),
		Permissions: append([]string(nil), rule.Permissions...),
	})
	return nil
}

// UserRoles returns the roles directly assigned to a user.
func (b *MemoryBackend) UserRoles(ctx context.Context, userID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	set := b.users[userID]
	if len(set) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(set))
	for role := range set {
		out = append(out, role)
	}
	return out, nil
}

// AddUserRoles assigns roles to a user; duplicates are untouched.
func (b *MemoryBackend) AddUserRoles(ctx context.Context, userID string, roles []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.users[userID]
	if set == nil {
		set = make(map[string]struct{}, len(roles))
		b.users[userID] = set
	}
	for _, role := range roles {
		set[role] = struct{}{}
	}
	return nil
}

// RemoveUserRoles unassigns roles; absent roles are a no-op.
func (b *MemoryBackend) RemoveUserRoles(ctx context.Context, userID string, roles []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.users[userID]
	if set == nil {
		return nil
	}
	for _, role := range roles {
		delete(set, role)
	}
	if len(set) == 0 {
		delete(b.users, userID)
	}
	return nil
}

// AppendAudit records an audit entry in the in-memory trail.
func (b *MemoryBackend) AppendAudit(ctx context.Context, entry *AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.auditMu.Lock()
	defer b.auditMu.Unlock()

	rec := entry.ToRecord()
	rec.Timestamp = time.Now()
	b.audit = append(b.audit, *rec)
	return nil
}

// AuditLog returns audit entries matching the filter, newest first.
func (b *MemoryBackend) AuditLog(ctx context.Context, filter AuditLogFilter) ([]AuditRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.auditMu.Lock()
	defer b.auditMu.Unlock()

	var matched []AuditRecord
	for i := len(b.audit) - 1; i >= 0; i-- {
		if filter.matches(b.audit[i]) {
			matched = append(matched, b.audit[i])
		}
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 100
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}
