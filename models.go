package aclkit

import (
	"time"

	"github.com/uptrace/bun"
)

// Wildcard is the universal permission token: a rule granting it matches
// every requested permission on the rule's resources.
const Wildcard = "*"

// AllowRule is a (resources x permissions) grant attached to a role. The
// role may exercise any of the permissions on any of the resources. Rules
// accumulate on a role; they are never merged or replaced.
type AllowRule struct {
	Resources   []string
	Permissions []string
}

// HasWildcard returns true if the rule's permission set contains the
// universal wildcard.
func (r AllowRule) HasWildcard() bool {
	for _, p := range r.Permissions {
		if p == Wildcard {
			return true
		}
	}
	return false
}

// RuleSet groups allow rules for a batch grant: every role in Roles
// receives every rule in Allows.
type RuleSet struct {
	Roles  []string
	Allows []AllowRule
}

// RoleParentEdge is a direct inheritance edge in the role graph: Role
// inherits everything Parent grants.
type RoleParentEdge struct {
	bun.BaseModel `bun:"table:acl_role_parents,alias:rp"`

	ID        string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Role      string    `bun:"role,notnull"`
	Parent    string    `bun:"parent,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// RoleRule is a persisted allow rule. Resources and permissions are stored
// as arrays; one row per Allow call.
type RoleRule struct {
	bun.BaseModel `bun:"table:acl_role_rules,alias:rr"`

	ID          string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Role        string    `bun:"role,notnull"`
	Resources   []string  `bun:"resources,type:text[],notnull"`
	Permissions []string  `bun:"permissions,type:text[],notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// UserRole links a user identifier to a directly assigned role.
type UserRole struct {
	bun.BaseModel `bun:"table:acl_user_roles,alias:ur"`

	ID        string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID    string    `bun:"user_id,notnull"`
	Role      string    `bun:"role,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// AuditRecord records an ACL mutation for compliance and debugging.
type AuditRecord struct {
	bun.BaseModel `bun:"table:acl_audit_log,alias:al"`

	ID        string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Timestamp time.Time `bun:"timestamp,notnull,default:current_timestamp"`

	// Who performed the action
	ActorID string `bun:"actor_id"`

	// What action was performed
	Action string `bun:"action,notnull"`

	// Target of the action: a user for assignment changes, a role for
	// rule and hierarchy changes.
	TargetUserID string `bun:"target_user_id"`
	TargetRole   string `bun:"target_role"`

	// Grant detail for rule additions
	Resources   []string `bun:"resources,type:text[]"`
	Permissions []string `bun:"permissions,type:text[]"`

	// Assignment state around the change
	PreviousRoles []string `bun:"previous_roles,type:text[]"`
	NewRoles      []string `bun:"new_roles,type:text[]"`

	// Request metadata for forensics
	IPAddress string `bun:"ip_address"`
	UserAgent string `bun:"user_agent"`
	RequestID string `bun:"request_id"`
}

// AuditAction represents the type of action in the audit log.
type AuditAction string

const (
	AuditActionRuleAdded     AuditAction = "rule_added"
	AuditActionParentsAdded  AuditAction = "parents_added"
	AuditActionRolesAssigned AuditAction = "roles_assigned"
	AuditActionRolesRevoked  AuditAction = "roles_revoked"
)

// AuditEntry is used to create new audit log entries.
type AuditEntry struct {
	ActorID       string
	Action        AuditAction
	TargetUserID  string
	TargetRole    string
	Resources     []string
	Permissions   []string
	PreviousRoles []string
	NewRoles      []string
	IPAddress     string
	UserAgent     string
	RequestID     string
}

// ToRecord converts an AuditEntry to an AuditRecord model.
func (e *AuditEntry) ToRecord() *AuditRecord {
	return &AuditRecord{
		ActorID:       e.ActorID,
		Action:        string(e.Action),
		TargetUserID:  e.TargetUserID,
		TargetRole:    e.TargetRole,
		Resources:     e.Resources,
		Permissions:   e.Permissions,
		PreviousRoles: e.PreviousRoles,
		NewRoles:      e.NewRoles,
		IPAddress:     e.IPAddress,
		UserAgent:     e.UserAgent,
		RequestID:     e.RequestID,
		Timestamp:     time.Now(),
	}
}
