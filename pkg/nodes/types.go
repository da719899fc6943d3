// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package nodes holds the node hierarchy as returned by the backend and the
// flat, ordered snapshots the deletion wizard works on.
package nodes

import (
	"errors"
	"fmt"
)

// NodeID identifies a project or component.
type NodeID string

// Node is the record carried by each tree element.
type Node struct {
	ID          NodeID `json:"id"`
	Title       string `json:"title"`
	IsPublic    bool   `json:"is_public"`
	IsAdmin     bool   `json:"is_admin"`
	NodeType    string `json:"node_type,omitempty"`
	IsEmbargoed bool   `json:"is_embargoed,omitempty"`
	IsPreprint  bool   `json:"is_preprint,omitempty"`
}

// NodeTree is the recursive structure served by the tree endpoint.
type NodeTree struct {
	Node     Node        `json:"node"`
	Children []*NodeTree `json:"children"`
}

// NodeSnapshot is the per-node state tracked by the wizard.
type NodeSnapshot struct {
	ID       NodeID `json:"id"`
	Title    string `json:"title"`
	IsPublic bool   `json:"public"`
	IsAdmin  bool   `json:"isAdmin"`
	Changed  bool   `json:"changed"`
	IsRoot   bool   `json:"isRoot,omitempty"`

	// Renderer hints, not part of the diff.
	Depth    int    `json:"depth"`
	ParentID NodeID `json:"parentId,omitempty"`
}

var (
	ErrEmptyID     = errors.New("node id is empty")
	ErrDuplicateID = errors.New("duplicate node id")
	ErrNilTree     = errors.New("node tree is nil")
)

// Snapshot is an insertion-ordered map of node snapshots.
type Snapshot struct {
	order   []NodeID
	entries map[NodeID]*NodeSnapshot
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{entries: make(map[NodeID]*NodeSnapshot)}
}

// Add appends an entry. Empty and duplicate ids are rejected.
func (s *Snapshot) Add(n NodeSnapshot) error {
	if n.ID == "" {
		return ErrEmptyID
	}
	if _, ok := s.entries[n.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, n.ID)
	}
	entry := n
	s.entries[n.ID] = &entry
	s.order = append(s.order, n.ID)
	return nil
}

// Get returns the entry for id.
func (s *Snapshot) Get(id NodeID) (*NodeSnapshot, bool) {
	if s == nil {
		return nil, false
	}
	n, ok := s.entries[id]
	return n, ok
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// HasChildren reports whether the tree had anything besides the root.
func (s *Snapshot) HasChildren() bool {
	return s.Len() > 1
}

// IDs returns the ids in iteration order.
func (s *Snapshot) IDs() []NodeID {
	if s == nil {
		return nil
	}
	out := make([]NodeID, len(s.order))
	copy(out, s.order)
	return out
}

// Each calls fn for every entry in iteration order until fn returns false.
func (s *Snapshot) Each(fn func(*NodeSnapshot) bool) {
	if s == nil {
		return
	}
	for _, id := range s.order {
		if !fn(s.entries[id]) {
			return
		}
	}
}

// Root returns the entry flagged as root.
func (s *Snapshot) Root() (*NodeSnapshot, bool) {
	var root *NodeSnapshot
	s.Each(func(n *NodeSnapshot) bool {
		if n.IsRoot {
			root = n
			return false
		}
		return true
	})
	return root, root != nil
}

// Changed returns copies of the changed entries in iteration order.
func (s *Snapshot) Changed() []NodeSnapshot {
	var out []NodeSnapshot
	s.Each(func(n *NodeSnapshot) bool {
		if n.Changed {
			out = append(out, *n)
		}
		return true
	})
	return out
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	c := NewSnapshot()
	if s == nil {
		return c
	}
	c.order = make([]NodeID, len(s.order))
	copy(c.order, s.order)
	for id, n := range s.entries {
		entry := *n
		c.entries[id] = &entry
	}
	return c
}
