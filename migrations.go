package aclkit

import (
	"github.com/fernandezvara/dbkit"
)

// Migrations returns all database migrations required for the PostgreSQL
// backend.
// Use dbkit.Migrate(ctx, backend.Migrations()) to run migrations.
// Use dbkit.MigrationStatus(ctx, backend.Migrations()) to check status.
func (b *PostgresBackend) Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "aclkit-001",
			Description: "Create acl_role_parents table",
			SQL: `
                CREATE TABLE IF NOT EXISTS acl_role_parents (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    role TEXT NOT NULL,
                    parent TEXT NOT NULL,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                );
                CREATE UNIQUE INDEX IF NOT EXISTS acl_role_parents_edge
                    ON acl_role_parents (role, parent)`,
		},
		{
			ID:          "aclkit-002",
			Description: "Create acl_role_rules table",
			SQL: `
                CREATE TABLE IF NOT EXISTS acl_role_rules (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    role TEXT NOT NULL,
                    resources TEXT[] NOT NULL,
                    permissions TEXT[] NOT NULL,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                );
                CREATE INDEX IF NOT EXISTS acl_role_rules_role
                    ON acl_role_rules (role)`,
		},
		{
			ID:          "aclkit-003",
			Description: "Create acl_user_roles table",
			SQL: `
                CREATE TABLE IF NOT EXISTS acl_user_roles (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    user_id TEXT NOT NULL,
                    role TEXT NOT NULL,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                );
                CREATE UNIQUE INDEX IF NOT EXISTS acl_user_roles_assignment
                    ON acl_user_roles (user_id, role)`,
		},
		{
			ID:          "aclkit-004",
			Description: "Create acl_audit_log table",
			SQL: `
                CREATE TABLE IF NOT EXISTS acl_audit_log (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    timestamp TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    actor_id TEXT,
                    action TEXT NOT NULL,
                    target_user_id TEXT,
                    target_role TEXT,
                    resources TEXT[],
                    permissions TEXT[],
                    previous_roles TEXT[],
                    new_roles TEXT[],
                    ip_address TEXT,
                    user_agent TEXT,
                    request_id TEXT
                );
                CREATE INDEX IF NOT EXISTS acl_audit_log_target_user
                    ON acl_audit_log (target_user_id);
                CREATE INDEX IF NOT EXISTS acl_audit_log_timestamp
                    ON acl_audit_log (timestamp)`,
		},
	}
}
