// Package aclkit provides a role-based access control (RBAC) engine with
// transitive role inheritance and pluggable storage.
//
// ACLKit answers one question: may this user exercise this permission on
// this resource? Roles form a directed graph through parent edges, allow
// rules attach (resources x permissions) grants to roles, and users are
// linked to roles through assignments. A permission check expands the
// user's assigned roles to their full inherited closure and looks for a
// single matching rule. Access is purely additive; there are no deny
// rules, so revocation means removing roles or assignments.
//
// # Core Concepts
//
// Role: a named grant holder, identified by a non-empty string. Roles may
// inherit from any number of parent roles; inheritance is transitive and
// resolution tolerates cycles in the graph.
//
// Resource: an opaque string naming a protected object, typically a URL
// path or path pattern ("/secret", "/users/42"). The engine does not
// interpret resource strings; pattern specificity is the caller's concern.
//
// Permission: an opaque action token ("get", "get_list", "delete"), or the
// wildcard "*" meaning every permission.
//
// Allow Rule: a (resources x permissions) pair attached to a role. Rules
// accumulate; later Allow calls add grants, they never replace earlier
// ones.
//
// # Key Features
//
//   - Transitive role inheritance with cycle-safe resolution
//   - Wildcard permission grants ("*" matches every action token)
//   - Fail-closed semantics: unknown users, roles and resources deny
//   - Pluggable storage: in-memory backend and a PostgreSQL backend
//     built on dbkit/bun
//   - Detailed audit trail: who changed what, previous and new state
//   - net/http enforcement middleware with pluggable identity extraction
//
// # Basic Usage
//
//	// 1. Create the engine with a backend
//	backend := aclkit.NewMemoryBackend()
//	acl := aclkit.New(backend)
//
//	// 2. Define grants and the role hierarchy
//	acl.Allow(ctx, "admin", []string{"/secret"}, []string{"*"})
//	acl.Allow(ctx, "user", []string{"/secret"}, []string{"get"})
//	acl.AddRoleParents(ctx, "user", []string{"guest"})
//	acl.AddRoleParents(ctx, "admin", []string{"user"})
//
//	// 3. Assign roles to users
//	acl.AddUserRoles(ctx, userID, []string{"user"})
//
//	// 4. Decide
//	if acl.IsAllowed(ctx, userID, "/secret", "get") {
//	    // access granted
//	}
//
// # Middleware Usage
//
//	mw := aclkit.NewMiddleware(acl,
//	    aclkit.WithUserIDExtractor(func(r *http.Request) string {
//	        return sessionUserID(r)
//	    }),
//	)
//
//	mux.Handle("/secret", mw.Require("/secret", "get")(secretHandler))
//	mux.Handle("/users", mw.RequirePermission("get_list", aclkit.ResourceFromPath(1))(listHandler))
//
// Requests without an authenticated identity are rejected with 401 before
// the engine is consulted; denied requests get 403; backend failures get
// 500. The taxonomy is overridable through WithErrorHandler.
//
// # PostgreSQL Backend
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	backend := aclkit.NewPostgresBackend(db)
//	db.Migrate(ctx, backend.Migrations())
//	acl := aclkit.New(backend)
//
// All multi-row mutations run inside a transaction, so a concurrent reader
// never observes a partially applied change.
//
// # Audit Trail
//
// Every mutation appends an audit record when the backend supports it:
// actor, action, target user or role, previous and new state, and request
// metadata (IP, user agent, request ID) taken from the context. Query the
// trail with AuditLog and the fluent AuditLogFilter.
package aclkit
