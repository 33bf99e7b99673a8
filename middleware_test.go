package aclkit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestMiddleware builds a middleware over the seeded editorial
// hierarchy with alice as admin, mike as member and gina as guest.
func newTestMiddleware(t *testing.T) (*Middleware, *ACL) {
	t.Helper()

	ctx := context.Background()
	acl := New(NewMemoryBackend())
	require.NoError(t, seedEditorialRoles(ctx, acl))
	require.NoError(t, acl.AddUserRoles(ctx, "alice", []string{"admin"}))
	require.NoError(t, acl.AddUserRoles(ctx, "mike", []string{"member"}))
	require.NoError(t, acl.AddUserRoles(ctx, "gina", []string{"guest"}))

	return NewMiddleware(acl), acl
}

func requestAs(userID, method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	if userID != "" {
		req = req.WithContext(WithUserID(req.Context(), userID))
	}
	return req
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestNewMiddleware(t *testing.T) {
	acl := New(NewMemoryBackend())

	mw := NewMiddleware(acl)
	require.NotNil(t, mw)
	assert.Equal(t, acl, mw.acl)
	assert.NotNil(t, mw.getUserID)
	assert.NotNil(t, mw.errorHandler)

	customUserID := func(r *http.Request) string { return "custom-user" }
	customErrorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		w.WriteHeader(http.StatusTeapot)
	}

	mw2 := NewMiddleware(acl,
		WithUserIDExtractor(customUserID),
		WithErrorHandler(customErrorHandler),
	)

	req := httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, "custom-user", mw2.getUserID(req))

	w := httptest.NewRecorder()
	mw2.errorHandler(w, req, nil)
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestDefaultGetUserID(t *testing.T) {
	req := requestAs("test-user", "GET", "/")
	assert.Equal(t, "test-user", defaultGetUserID(req))

	req = httptest.NewRequest("GET", "/", nil)
	assert.Empty(t, defaultGetUserID(req))
}

func TestDefaultErrorHandler(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "missing identity is authentication",
			err:            NewError(ErrNoUserID, "no authenticated principal"),
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Unauthorized\n",
		},
		{
			name:           "denial is authorization",
			err:            NewError(ErrDenied, "missing required permission"),
			expectedStatus: http.StatusForbidden,
			expectedBody:   "Forbidden\n",
		},
		{
			name:           "invalid resource",
			err:            NewError(ErrInvalidResource, "resource not found in context"),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Bad Request\n",
		},
		{
			name:           "invalid role",
			err:            NewError(ErrInvalidRole, "role cannot be empty"),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Bad Request\n",
		},
		{
			name:           "backend failure",
			err:            NewError(ErrBackend, "connection refused"),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "Internal Server Error\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/", nil)

			defaultErrorHandler(w, req, tt.err)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestResourceExtractors(t *testing.T) {
	t.Run("StaticResource", func(t *testing.T) {
		extractor := StaticResource("/secret")
		req := httptest.NewRequest("GET", "/whatever", nil)

		resource, err := extractor(req)
		assert.NoError(t, err)
		assert.Equal(t, "/secret", resource)
	})

	t.Run("ResourceFromPath", func(t *testing.T) {
		tests := []struct {
			path     string
			depth    int
			expected string
		}{
			{"/users/42/avatar", 0, "/users/42/avatar"},
			{"/users/42/avatar", 1, "/users"},
			{"/users/42/avatar", 2, "/users/42"},
			{"/users/42/avatar", 5, "/users/42/avatar"},
			{"/users/", 1, "/users"},
			{"/", 0, "/"},
			{"/", 1, "/"},
		}

		for _, tt := range tests {
			extractor := ResourceFromPath(tt.depth)
			req := httptest.NewRequest("GET", tt.path, nil)

			resource, err := extractor(req)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, resource, "path %q depth %d", tt.path, tt.depth)
		}
	})

	t.Run("ResourceFromContext", func(t *testing.T) {
		extractor := ResourceFromContext("resource")

		req := httptest.NewRequest("GET", "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), "resource", "/reports")) //nolint:staticcheck

		resource, err := extractor(req)
		assert.NoError(t, err)
		assert.Equal(t, "/reports", resource)

		req = httptest.NewRequest("GET", "/", nil)
		_, err = extractor(req)
		assert.ErrorIs(t, err, ErrInvalidResource)
	})
}

func TestRequirePermission(t *testing.T) {
	mw, _ := newTestMiddleware(t)
	handler := mw.Require("/secret", "delete")(okHandler)

	t.Run("admin allowed through wildcard", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestAs("alice", "DELETE", "/secret"))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("member denied", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestAs("mike", "DELETE", "/secret"))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unknown user denied", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestAs("ghost", "DELETE", "/secret"))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("no identity is unauthorized", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestAs("", "DELETE", "/secret"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequirePermissionInheritance(t *testing.T) {
	mw, _ := newTestMiddleware(t)
	handler := mw.RequirePermission("get", ResourceFromPath(1))(okHandler)

	// member inherits get on /blogs from guest
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs("mike", "GET", "/blogs/123"))
	assert.Equal(t, http.StatusOK, w.Code)

	// guest cannot reach /secret
	w = httptest.NewRecorder()
	secret := mw.RequirePermission("get", ResourceFromPath(1))(okHandler)
	secret.ServeHTTP(w, requestAs("gina", "GET", "/secret"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequirePermissionBackendFailure(t *testing.T) {
	mw := NewMiddleware(New(failingBackend{}))
	handler := mw.Require("/secret", "get")(okHandler)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs("alice", "GET", "/secret"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequirePermissionExtractorError(t *testing.T) {
	mw, _ := newTestMiddleware(t)
	handler := mw.RequirePermission("get", ResourceFromContext("missing"))(okHandler)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs("alice", "GET", "/secret"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequireAnyPermission(t *testing.T) {
	mw, _ := newTestMiddleware(t)

	var seenGrants *Grants
	inspect := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenGrants = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := mw.RequireAnyPermission([]string{"put", "post"}, StaticResource("/blogs"))(inspect)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs("mike", "POST", "/blogs"))
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, seenGrants, "grants snapshot should be in the handler context")
	assert.Equal(t, "mike", seenGrants.UserID())

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs("gina", "POST", "/blogs"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs("", "POST", "/blogs"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	mw, _ := newTestMiddleware(t)
	handler := mw.RequireRole("member")(okHandler)

	// Direct and inherited membership both pass
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs("mike", "GET", "/area"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs("alice", "GET", "/area"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs("gina", "GET", "/area"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs("", "GET", "/area"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoadGrants(t *testing.T) {
	mw, _ := newTestMiddleware(t)

	var seenGrants *Grants
	inspect := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenGrants = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := mw.LoadGrants()(inspect)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs("alice", "GET", "/dashboard"))
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, seenGrants)
	assert.True(t, seenGrants.IsAllowed("/secret", "delete"))
	assert.True(t, seenGrants.HasRole("guest"))

	// Without identity the request proceeds without grants
	seenGrants = nil
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs("", "GET", "/dashboard"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, seenGrants)
}

func TestInjectAuditContext(t *testing.T) {
	mw, acl := newTestMiddleware(t)

	inner := mw.Require("/secret", "get")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Mutation inside the request picks up the audit metadata
		err := acl.AddUserRoles(r.Context(), "bob", []string{"guest"})
		require.NoError(t, err)
		w.WriteHeader(http.StatusOK)
	}))
	handler := mw.InjectAuditContext()(inner)

	req := requestAs("alice", "POST", "/secret")
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-Request-ID", "req-42")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	records, err := acl.AuditLog(context.Background(),
		NewAuditLogFilter().WithAction(AuditActionRolesAssigned).WithTargetUser("bob"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "alice", records[0].ActorID)
	assert.Equal(t, "203.0.113.9", records[0].IPAddress)
	assert.Equal(t, "test-agent", records[0].UserAgent)
	assert.Equal(t, "req-42", records[0].RequestID)
}

func TestInjectAuditContextIPFallback(t *testing.T) {
	mw, _ := newTestMiddleware(t)

	var gotIP string
	handler := mw.InjectAuditContext()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = GetIPAddress(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Real-IP", "198.51.100.7")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "198.51.100.7", gotIP)

	req = httptest.NewRequest("GET", "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, req.RemoteAddr, gotIP)
}
