package aclkit

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// PostgresBackend is a durable Backend on PostgreSQL, built on dbkit/bun.
//
// Multi-row mutations run inside a database transaction, so a concurrent
// reader observes either the whole change or none of it. Single-row
// idempotent inserts rely on ON CONFLICT DO NOTHING against the unique
// indexes created by Migrations.
type PostgresBackend struct {
	db      dbkit.IDB
	monitor *txMonitor
}

// NewPostgresBackend creates a backend on an existing dbkit connection.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	backend := aclkit.NewPostgresBackend(db)
//	db.Migrate(ctx, backend.Migrations())
func NewPostgresBackend(db dbkit.IDB) *PostgresBackend {
	return &PostgresBackend{
		db:      db,
		monitor: newTxMonitor(),
	}
}

type pgTxKey struct{}

// conn returns the transaction bound to the context when inside
// Transaction, otherwise the pooled connection.
func (b *PostgresBackend) conn(ctx context.Context) dbkit.IDB {
	if tx, ok := ctx.Value(pgTxKey{}).(dbkit.IDB); ok {
		return tx
	}
	return b.db
}

// Transaction runs fn with every backend call inside it bound to a single
// database transaction. If fn returns an error the transaction is rolled
// back, otherwise it is committed.
func (b *PostgresBackend) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// Already transaction-bound, reuse the ambient transaction
	if _, ok := ctx.Value(pgTxKey{}).(dbkit.IDB); ok {
		return fn(ctx)
	}

	db, ok := b.db.(*dbkit.DBKit)
	if !ok {
		return fn(ctx)
	}

	start := time.Now()
	err := db.Transaction(ctx, func(tx *dbkit.Tx) error {
		return fn(context.WithValue(ctx, pgTxKey{}, tx))
	})
	b.monitor.record(time.Since(start), err == nil)

	return err
}

// RoleParents returns the direct parents of a role.
func (b *PostgresBackend) RoleParents(ctx context.Context, role string) ([]string, error) {
	var parents []string
	err := dbkit.WithErr1(b.conn(ctx).NewRaw(
		"SELECT parent FROM acl_role_parents WHERE role = ?", role).
		Scan(ctx, &parents), "RoleParents").Err()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return parents, nil
}

// AddRoleParents inserts inheritance edges, skipping existing ones. The
// whole set becomes visible atomically.
func (b *PostgresBackend) AddRoleParents(ctx context.Context, role string, parents []string) error {
	return b.Transaction(ctx, func(ctx context.Context) error {
		for _, parent := range parents {
			edge := &RoleParentEdge{Role: role, Parent: parent}
			result, err := b.conn(ctx).NewInsert().
				Model(edge).
				On("CONFLICT (role, parent) DO NOTHING").
				Exec(ctx)
			if err := dbkit.WithErr(result, err, "AddRoleParents").Err(); err != nil {
				return err
			}
		}
		return nil
	})
}

// AllowRules returns the rules attached to a role.
func (b *PostgresBackend) AllowRules(ctx context.Context, role string) ([]AllowRule, error) {
	var rows []RoleRule
	err := dbkit.WithErr1(b.conn(ctx).NewSelect().
		Model(&rows).
		Where("role = ?", role).
		Order("created_at ASC").
		Scan(ctx), "AllowRules").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	rules := make([]AllowRule, len(rows))
	for i, row := range rows {
		rules[i] = AllowRule{
			Resources:   row.Resources,
			Permissions: row.Permissions,
		}
	}
	return rules, nil
}

// AddAllowRule appends a rule row for the role.
func (b *PostgresBackend) AddAllowRule(ctx context.Context, role string, rule AllowRule) error {
	row := &RoleRule{
		Role:        role,
		Resources:   rule.Resources,
		Permissions: rule.Permissions,
	}
	result, err := b.conn(ctx).NewInsert().Model(row).Exec(ctx)
	return dbkit.WithErr(result, err, "AddAllowRule").Err()
}

// UserRoles returns the roles directly assigned to a user.
func (b *PostgresBackend) UserRoles(ctx context.Context, userID string) ([]string, error) {
	var roles []string
	err := dbkit.WithErr1(b.conn(ctx).NewRaw(
		"SELECT role FROM acl_user_roles WHERE user_id = ?", userID).
		Scan(ctx, &roles), "UserRoles").Err()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return roles, nil
}

// AddUserRoles assigns roles to a user, skipping existing assignments.
// The whole set becomes visible atomically.
func (b *PostgresBackend) AddUserRoles(ctx context.Context, userID string, roles []string) error {
	return b.Transaction(ctx, func(ctx context.Context) error {
		for _, role := range roles {
			assignment := &UserRole{UserID: userID, Role: role}
			result, err := b.conn(ctx).NewInsert().
				Model(assignment).
				On("CONFLICT (user_id, role) DO NOTHING").
				Exec(ctx)
			if err := dbkit.WithErr(result, err, "AddUserRoles").Err(); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveUserRoles deletes assignments in one statement; roles the user
// does not hold are silently skipped.
func (b *PostgresBackend) RemoveUserRoles(ctx context.Context, userID string, roles []string) error {
	if len(roles) == 0 {
		return nil
	}
	result, err := b.conn(ctx).NewDelete().
		Table("acl_user_roles").
		Where("user_id = ?", userID).
		Where("role IN (?)", bun.In(roles)).
		Exec(ctx)
	return dbkit.WithErr(result, err, "RemoveUserRoles").Err()
}

// AppendAudit stores an audit record.
func (b *PostgresBackend) AppendAudit(ctx context.Context, entry *AuditEntry) error {
	result, err := b.conn(ctx).NewInsert().Model(entry.ToRecord()).Exec(ctx)
	return dbkit.WithErr(result, err, "AppendAudit").Err()
}

// AuditLog retrieves audit records with optional filters, newest first.
func (b *PostgresBackend) AuditLog(ctx context.Context, filter AuditLogFilter) ([]AuditRecord, error) {
	var records []AuditRecord
	q := b.conn(ctx).NewSelect().Model(&records)
	if filter.ActorID != "" {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.TargetUserID != "" {
		q = q.Where("target_user_id = ?", filter.TargetUserID)
	}
	if filter.TargetRole != "" {
		q = q.Where("target_role = ?", filter.TargetRole)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("timestamp <= ?", filter.Until)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 100
	}
	q = q.Limit(limit)

	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	q = q.Order("timestamp DESC")
	if err := dbkit.WithErr1(q.Scan(ctx), "AuditLog").Err(); err != nil {
		return nil, err
	}

	return records, nil
}
