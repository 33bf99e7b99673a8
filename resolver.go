package aclkit

import (
	"context"
)

// Resolver computes role closures over the parent-edge graph held by a
// Backend.
//
// The parent relation is a directed graph over role names. It is not
// required to be acyclic: a visited set guarantees every role is expanded
// at most once, so resolution terminates in O(V+E) even when the graph
// contains cycles.
type Resolver struct {
	backend Backend
}

// NewResolver creates a Resolver reading from the given backend.
func NewResolver(backend Backend) *Resolver {
	return &Resolver{backend: backend}
}

// Closure returns the transitive closure of the seed roles: the seeds plus
// every role reachable by repeatedly following parent edges. The result is
// a set with no ordering guarantee.
func (r *Resolver) Closure(ctx context.Context, seeds []string) (map[string]struct{}, error) {
	closure := make(map[string]struct{}, len(seeds))

	queue := make([]string, 0, len(seeds))
	for _, role := range seeds {
		if _, seen := closure[role]; seen {
			continue
		}
		closure[role] = struct{}{}
		queue = append(queue, role)
	}

	for len(queue) > 0 {
		role := queue[0]
		queue = queue[1:]

		parents, err := r.backend.RoleParents(ctx, role)
		if err != nil {
			return nil, err
		}
		for _, parent := range parents {
			if _, seen := closure[parent]; seen {
				continue
			}
			closure[parent] = struct{}{}
			queue = append(queue, parent)
		}
	}

	return closure, nil
}
