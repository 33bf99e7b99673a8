package aclkit

import (
	"context"
	"errors"
	"testing"
)

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	acl := newEditorialACL(t)

	if err := acl.AddUserRoles(ctx, "alice", []string{"admin"}); err != nil {
		t.Fatalf("AddUserRoles failed: %v", err)
	}

	grants, err := acl.Snapshot(ctx, "alice")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if grants.UserID() != "alice" {
		t.Errorf("Expected alice, got %q", grants.UserID())
	}
	if grants.IsEmpty() {
		t.Error("Snapshot should not be empty")
	}

	if !grants.IsAllowed("/secret", "delete") {
		t.Error("admin wildcard should grant /secret delete")
	}
	if !grants.IsAllowed("/blogs", "get") {
		t.Error("inherited guest rule should grant /blogs get")
	}
	if grants.IsAllowed("/vault", "get") {
		t.Error("ungranted resource must be denied")
	}

	if !grants.HasRole("admin") || !grants.HasRole("guest") {
		t.Error("closure should contain direct and inherited roles")
	}
	if grants.HasRole("auditor") {
		t.Error("unrelated role must not be in the closure")
	}
	if !grants.HasAnyRole("auditor", "guest") {
		t.Error("HasAnyRole should find guest")
	}
	if grants.HasAnyRole("auditor", "janitor") {
		t.Error("HasAnyRole should miss on unrelated roles")
	}

	roles := grants.Roles()
	if len(roles) != 1 || roles[0] != "admin" {
		t.Errorf("Expected direct roles [admin], got %v", roles)
	}
	if len(grants.Closure()) != 3 {
		t.Errorf("Expected 3 roles in closure, got %v", grants.Closure())
	}

	perms := grants.AllowedPermissions("/secret")
	if len(perms) != 1 || perms[0] != Wildcard {
		t.Errorf("Expected [*] on /secret, got %v", perms)
	}
}

func TestSnapshotUnknownUser(t *testing.T) {
	acl := newEditorialACL(t)

	grants, err := acl.Snapshot(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Unknown user is a lookup miss, not an error: %v", err)
	}
	if !grants.IsEmpty() {
		t.Error("Unknown user should yield an empty snapshot")
	}
	if grants.IsAllowed("/blogs", "get") {
		t.Error("Empty snapshot must deny everything")
	}
}

func TestSnapshotEmptyUser(t *testing.T) {
	acl := newEditorialACL(t)

	_, err := acl.Snapshot(context.Background(), "")
	if !errors.Is(err, ErrInvalidUser) {
		t.Errorf("Expected ErrInvalidUser, got %v", err)
	}
}

func TestSnapshotDoesNotObserveLaterMutations(t *testing.T) {
	ctx := context.Background()
	acl := newEditorialACL(t)

	if err := acl.AddUserRoles(ctx, "rita", []string{"admin"}); err != nil {
		t.Fatalf("AddUserRoles failed: %v", err)
	}

	grants, err := acl.Snapshot(ctx, "rita")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if err := acl.RemoveUserRoles(ctx, "rita", []string{"admin"}); err != nil {
		t.Fatalf("RemoveUserRoles failed: %v", err)
	}

	// The live engine sees the revocation, the snapshot does not
	if acl.IsAllowed(ctx, "rita", "/secret", "get") {
		t.Error("live check must observe the revocation")
	}
	if !grants.IsAllowed("/secret", "get") {
		t.Error("snapshot is point-in-time and keeps the old answer")
	}
}
