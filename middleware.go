package aclkit

import (
	"net/http"
	"strings"
)

// Middleware provides HTTP enforcement for the ACL engine. It extracts the
// acting user's identity, asks the engine for a decision and either lets
// the request proceed or rejects it.
//
// Requests without an authenticated identity are rejected before the
// engine is consulted, so "anonymous" is never confused with an unknown
// user.
type Middleware struct {
	acl          *ACL
	getUserID    func(*http.Request) string
	errorHandler func(http.ResponseWriter, *http.Request, error)
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance.
//
// Example:
//
//	mw := aclkit.NewMiddleware(acl,
//	    aclkit.WithUserIDExtractor(func(r *http.Request) string {
//	        return sessionUserID(r)
//	    }),
//	)
func NewMiddleware(acl *ACL, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		acl:          acl,
		getUserID:    defaultGetUserID,
		errorHandler: defaultErrorHandler,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// WithUserIDExtractor sets a custom function to extract the user ID from a
// request. This is the seam to the authentication layer; the default reads
// the ID placed in the request context by WithUserID.
func WithUserIDExtractor(fn func(*http.Request) string) MiddlewareOption {
	return func(m *Middleware) {
		m.getUserID = fn
	}
}

// WithErrorHandler sets a custom rejection handler for the middleware.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

func defaultGetUserID(r *http.Request) string {
	return GetUserID(r.Context())
}

// defaultErrorHandler maps the error taxonomy to HTTP statuses: missing
// identity is an authentication failure (401), a denial is an
// authorization failure (403), malformed targets are the caller's fault
// (400), and everything else, backend outages included, is a 500.
func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case IsNoUserID(err):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case IsDenied(err):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case IsInvalidInput(err):
		http.Error(w, "Bad Request", http.StatusBadRequest)
	default:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// ResourceExtractor derives the protected resource string from an HTTP
// request.
type ResourceExtractor func(*http.Request) (string, error)

// StaticResource creates a ResourceExtractor that always returns the same
// resource. Useful when the route registers its own name.
//
// Example:
//
//	mux.Handle("/secret", mw.RequirePermission("get", aclkit.StaticResource("/secret"))(h))
func StaticResource(resource string) ResourceExtractor {
	return func(r *http.Request) (string, error) {
		return resource, nil
	}
}

// ResourceFromPath creates a ResourceExtractor that uses the request path
// as the resource. With depth <= 0 the full path is used; otherwise only
// the first depth path segments, so "/users/42/avatar" at depth 1 yields
// "/users" and at depth 2 yields "/users/42".
//
// Example:
//
//	// Protect the whole /users subtree with one resource string
//	mux.Handle("/users/", mw.RequirePermission("get", aclkit.ResourceFromPath(1))(h))
func ResourceFromPath(depth int) ResourceExtractor {
	return func(r *http.Request) (string, error) {
		path := strings.TrimSuffix(r.URL.Path, "/")
		if path == "" {
			path = "/"
		}
		if depth <= 0 {
			return path, nil
		}

		segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
		if len(segments) > depth {
			segments = segments[:depth]
		}
		return "/" + strings.Join(segments, "/"), nil
	}
}

// ResourceFromContext creates a ResourceExtractor that reads the resource
// from a context value, typically set by router middleware.
func ResourceFromContext(contextKey string) ResourceExtractor {
	return func(r *http.Request) (string, error) {
		if v := r.Context().Value(contextKey); v != nil {
			if s, ok := v.(string); ok && s != "" {
				return s, nil
			}
		}
		return "", NewError(ErrInvalidResource, "resource not found in context")
	}
}

// Require creates middleware that enforces a fixed (resource, permission)
// pair for the route.
//
// Example:
//
//	mux.Handle("/secret", mw.Require("/secret", "get")(secretHandler))
func (m *Middleware) Require(resource, permission string) func(http.Handler) http.Handler {
	return m.RequirePermission(permission, StaticResource(resource))
}

// RequirePermission creates middleware that enforces a permission on the
// resource derived from the request.
//
// Example:
//
//	mux.Handle("/users", mw.RequirePermission("get_list", aclkit.ResourceFromPath(1))(listHandler))
func (m *Middleware) RequirePermission(permission string, extractor ResourceExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := m.getUserID(r)
			if userID == "" {
				m.errorHandler(w, r, NewError(ErrNoUserID, "no authenticated principal"))
				return
			}

			resource, err := extractor(r)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			allowed, err := m.acl.CheckAllowed(ctx, userID, resource, permission)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}
			if !allowed {
				m.errorHandler(w, r, NewError(ErrDenied, "missing required permission").
					WithTarget(resource, permission).
					WithUser(userID))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyPermission creates middleware that lets the request proceed if
// the user holds any of the permissions on the derived resource.
func (m *Middleware) RequireAnyPermission(permissions []string, extractor ResourceExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := m.getUserID(r)
			if userID == "" {
				m.errorHandler(w, r, NewError(ErrNoUserID, "no authenticated principal"))
				return
			}

			resource, err := extractor(r)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			grants, err := m.acl.Snapshot(ctx, userID)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			for _, permission := range permissions {
				if grants.IsAllowed(resource, permission) {
					next.ServeHTTP(w, r.WithContext(WithGrants(ctx, grants)))
					return
				}
			}

			m.errorHandler(w, r, NewError(ErrDenied, "missing required permission").
				WithTarget(resource, strings.Join(permissions, ",")).
				WithUser(userID))
		})
	}
}

// RequireRole creates middleware that requires a role in the user's
// inherited closure, without naming a resource.
//
// Example:
//
//	mux.Handle("/admin", mw.RequireRole("admin")(adminHandler))
func (m *Middleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := m.getUserID(r)
			if userID == "" {
				m.errorHandler(w, r, NewError(ErrNoUserID, "no authenticated principal"))
				return
			}

			if !m.acl.HasRole(r.Context(), userID, role) {
				m.errorHandler(w, r, NewError(ErrDenied, "missing required role").
					WithRole(role).
					WithUser(userID))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LoadGrants creates middleware that loads the user's Grants snapshot into
// the request context. Use this when the handler wants to run its own
// checks.
//
// Example:
//
//	mux.Handle("/dashboard", mw.LoadGrants()(dashboardHandler))
//
//	func dashboardHandler(w http.ResponseWriter, r *http.Request) {
//	    grants := aclkit.FromContext(r.Context())
//	    if grants != nil && grants.IsAllowed("/reports", "export") {
//	        // show export controls
//	    }
//	}
func (m *Middleware) LoadGrants() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := m.getUserID(r)
			if userID == "" {
				// No identity, continue without grants
				next.ServeHTTP(w, r)
				return
			}

			grants, err := m.acl.Snapshot(ctx, userID)
			if err != nil {
				// Backend trouble; the handler's own checks will deny
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithGrants(ctx, grants)))
		})
	}
}

// InjectAuditContext creates middleware that extracts audit information
// from the request and adds it to the context for use in mutation
// operations.
//
// Example:
//
//	handler = mw.InjectAuditContext()(handler)
func (m *Middleware) InjectAuditContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ip := r.Header.Get("X-Forwarded-For")
			if ip == "" {
				ip = r.Header.Get("X-Real-IP")
			}
			if ip == "" {
				ip = r.RemoteAddr
			}
			ctx = WithIPAddress(ctx, ip)

			ctx = WithUserAgent(ctx, r.UserAgent())

			if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
				ctx = WithRequestID(ctx, requestID)
			}

			if userID := m.getUserID(r); userID != "" {
				ctx = WithActorID(ctx, userID)
				ctx = WithUserID(ctx, userID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
