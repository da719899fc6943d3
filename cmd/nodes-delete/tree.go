// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/monadic/nodes-delete/pkg/nodes"
	"github.com/monadic/nodes-delete/pkg/queries"
	"github.com/monadic/nodes-delete/pkg/query"
	"github.com/monadic/nodes-delete/pkg/wizard"
)

var (
	treeJSON  bool
	treeFile  string
	treeWhere string
)

var treeCmd = &cobra.Command{
	Use:   "tree [node-id]",
	Short: "Show a project's component tree",
	Long: `Show the component hierarchy of a project with each node's visibility.

Examples:
  # Show the tree served by the API
  nodes-delete tree x7k2p

  # Show a saved tree
  nodes-delete tree --tree-file tree.yaml

  # Flattened snapshot as JSON, parents before their components
  nodes-delete tree x7k2p --json

  # Only public components you cannot administer
  nodes-delete tree x7k2p --where "public=true AND admin=false"

  # Use a saved filter (see 'nodes-delete filters')
  nodes-delete tree x7k2p --where @read-only

Filter fields: id, title, public, admin, changed, root, depth, parent.
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTree,
}

func init() {
	rootCmd.AddCommand(treeCmd)

	treeCmd.Flags().BoolVar(&treeJSON, "json", false, "Output the flattened snapshot as JSON")
	treeCmd.Flags().StringVar(&treeFile, "tree-file", "", "Load the node tree from a JSON or YAML file")
	treeCmd.Flags().StringVar(&treeWhere, "where", "", "Only list nodes matching a filter (e.g. \"public=true AND depth>=1\")")
}

func runTree(cmd *cobra.Command, args []string) error {
	store, err := queries.NewStore()
	if err != nil {
		return err
	}
	q, err := store.Resolve(treeWhere)
	if err != nil {
		return fmt.Errorf("parse --where: %w", err)
	}

	var fetcher wizard.TreeFetcher
	nodeID := ""
	switch {
	case treeFile != "":
		fetcher = fileFetcher{path: treeFile}
	case len(args) == 1:
		client := newClient()
		if err := client.RequireOnline(); err != nil {
			return err
		}
		fetcher = client
		nodeID = args[0]
	default:
		return fmt.Errorf("a node id or --tree-file is required")
	}

	tree, err := fetcher.FetchTree(cmd.Context(), nodeID)
	if err != nil {
		return fmt.Errorf("fetch node tree: %w", err)
	}

	if treeJSON {
		return writeTreeJSON(os.Stdout, tree, q)
	}
	if treeWhere != "" {
		return printMatches(os.Stdout, tree, q)
	}
	printTree(os.Stdout, tree)
	return nil
}

func writeTreeJSON(out io.Writer, tree *nodes.NodeTree, q *query.Query) error {
	snap, err := nodes.Flatten(tree)
	if err != nil {
		return err
	}
	entries := q.Filter(snap)
	if entries == nil {
		entries = []nodes.NodeSnapshot{}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// printTree renders the hierarchy with box-drawing connectors.
func printTree(out io.Writer, tree *nodes.NodeTree) {
	if tree == nil {
		return
	}

	type frame struct {
		t      *nodes.NodeTree
		prefix string
		last   bool
		root   bool
	}
	stack := []frame{{t: tree, root: true}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		childPrefix := ""
		if f.root {
			fmt.Fprintln(out, nodeLine(f.t.Node))
		} else {
			connector := "├── "
			childPrefix = f.prefix + "│   "
			if f.last {
				connector = "└── "
				childPrefix = f.prefix + "    "
			}
			fmt.Fprintln(out, f.prefix+connector+nodeLine(f.t.Node))
		}

		for i := len(f.t.Children) - 1; i >= 0; i-- {
			if f.t.Children[i] == nil {
				continue
			}
			stack = append(stack, frame{
				t:      f.t.Children[i],
				prefix: childPrefix,
				last:   i == len(f.t.Children)-1,
			})
		}
	}
	fmt.Fprintf(out, "\n%s\n", dimStyle.Render(fmt.Sprintf("%d node(s)", nodes.Count(tree))))
}

// printMatches lists the nodes matching q, indented by depth.
func printMatches(out io.Writer, tree *nodes.NodeTree, q *query.Query) error {
	snap, err := nodes.Flatten(tree)
	if err != nil {
		return err
	}
	matches := q.Filter(snap)
	if len(matches) == 0 {
		fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("No nodes match %q.", q.String())))
		return nil
	}
	for _, n := range matches {
		fmt.Fprintf(out, "%s%s\n", strings.Repeat("  ", n.Depth), nodeLine(nodes.Node{
			ID: n.ID, Title: n.Title, IsPublic: n.IsPublic, IsAdmin: n.IsAdmin,
		}))
	}
	fmt.Fprintf(out, "\n%s\n", dimStyle.Render(fmt.Sprintf("%d of %d node(s) match", len(matches), snap.Len())))
	return nil
}

func nodeLine(n nodes.Node) string {
	line := fmt.Sprintf("%s (%s) %s", n.Title, n.ID, visibility(n.IsPublic))
	if n.IsEmbargoed {
		line += " " + wizardPrivateStyle.Render("[embargoed]")
	}
	if !n.IsAdmin {
		line += " " + dimStyle.Render("[read-only]")
	}
	return line
}
