// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package wizard

import (
	"fmt"

	"github.com/monadic/nodes-delete/pkg/nodes"
)

// Mutation sets the visibility of one node in the current snapshot.
type Mutation struct {
	ID     nodes.NodeID
	Public bool
}

// Derived holds the values recomputed after every mutation.
type Derived struct {
	ChangedCount int
	NodesChanged bool
}

// Recompute refreshes every entry's Changed flag in current by comparing it
// with original, and returns the aggregate.
func Recompute(original, current *nodes.Snapshot) Derived {
	var d Derived
	current.Each(func(n *nodes.NodeSnapshot) bool {
		orig, ok := original.Get(n.ID)
		n.Changed = !ok || orig.IsPublic != n.IsPublic
		if n.Changed {
			d.ChangedCount++
		}
		return true
	})
	d.NodesChanged = d.ChangedCount > 0
	return d
}

// Update applies m to current and returns the recomputed flags.
func Update(original, current *nodes.Snapshot, m Mutation) (Derived, error) {
	n, ok := current.Get(m.ID)
	if !ok {
		return Recompute(original, current), fmt.Errorf("%w: %s", ErrUnknownNode, m.ID)
	}
	n.IsPublic = m.Public
	return Recompute(original, current), nil
}

// Partition splits the changed entries of current into titles that became
// public and titles that became private, in iteration order.
func Partition(current *nodes.Snapshot) (public, private []string) {
	public, private = []string{}, []string{}
	current.Each(func(n *nodes.NodeSnapshot) bool {
		if !n.Changed {
			return true
		}
		if n.IsPublic {
			public = append(public, n.Title)
		} else {
			private = append(private, n.Title)
		}
		return true
	})
	return public, private
}

// reversed returns a reversed copy. Snapshot order is parent first, so the
// result lists children before their parents.
func reversed(in []nodes.NodeSnapshot) []nodes.NodeSnapshot {
	out := make([]nodes.NodeSnapshot, len(in))
	for i, n := range in {
		out[len(in)-1-i] = n
	}
	return out
}
