// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package nodes

import "fmt"

type workItem struct {
	tree   *NodeTree
	depth  int
	parent NodeID
}

// Flatten walks tree depth-first with an explicit work list and returns one
// snapshot entry per node. Every parent is visited before its descendants.
// Only the tree's root carries IsRoot.
func Flatten(tree *NodeTree) (*Snapshot, error) {
	if tree == nil {
		return nil, ErrNilTree
	}

	snap := NewSnapshot()
	stack := []workItem{{tree: tree}}
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if item.tree == nil {
			continue
		}

		n := item.tree.Node
		err := snap.Add(NodeSnapshot{
			ID:       n.ID,
			Title:    n.Title,
			IsPublic: n.IsPublic,
			IsAdmin:  n.IsAdmin,
			Depth:    item.depth,
			ParentID: item.parent,
		})
		if err != nil {
			return nil, fmt.Errorf("flatten %q: %w", n.Title, err)
		}

		// Push in reverse so children come off the stack in document order.
		for i := len(item.tree.Children) - 1; i >= 0; i-- {
			stack = append(stack, workItem{
				tree:   item.tree.Children[i],
				depth:  item.depth + 1,
				parent: n.ID,
			})
		}
	}

	root, _ := snap.Get(tree.Node.ID)
	root.IsRoot = true
	return snap, nil
}

// Count returns the number of nodes in tree.
func Count(tree *NodeTree) int {
	if tree == nil {
		return 0
	}
	total := 0
	stack := []*NodeTree{tree}
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if t == nil {
			continue
		}
		total++
		stack = append(stack, t.Children...)
	}
	return total
}
