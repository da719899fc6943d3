// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package demoapi

import "github.com/monadic/nodes-delete/pkg/nodes"

// SampleRootID is the root of SampleTree.
const SampleRootID = "x7k2p"

// SampleTree returns a small public project with nested components, one of
// which the current user does not administer.
func SampleTree() *nodes.NodeTree {
	node := func(id, title string, public, admin bool, children ...*nodes.NodeTree) *nodes.NodeTree {
		return &nodes.NodeTree{
			Node: nodes.Node{
				ID:       nodes.NodeID(id),
				Title:    title,
				IsPublic: public,
				IsAdmin:  admin,
				NodeType: "component",
			},
			Children: children,
		}
	}

	root := node(SampleRootID, "Reproducibility Project", true, true,
		node("a1b2c", "Raw Data", true, true,
			node("d3e4f", "Survey Exports", true, true),
			node("g5h6i", "Interview Audio", false, true),
		),
		node("j7k8l", "Analysis Scripts", true, true),
		node("m9n0p", "Partner Lab Materials", true, false),
	)
	root.Node.NodeType = "project"
	return root
}
