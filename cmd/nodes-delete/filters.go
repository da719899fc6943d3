// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/monadic/nodes-delete/pkg/queries"
)

var filtersJSON bool

var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "List and manage saved node filters",
	Long: `List and manage saved filters for 'nodes-delete tree --where'.

Built-in filters ship with the tool. Your own filters live in
~/.nodes-delete/filters.yaml.

Examples:
  # List all saved filters
  nodes-delete filters

  # Use one
  nodes-delete tree x7k2p --where @public-components

  # Save a filter
  nodes-delete filters save raw "title~=(?i)raw" "Raw data components"

  # Delete it again
  nodes-delete filters delete raw
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listFilters(os.Stdout)
	},
}

var filtersSaveCmd = &cobra.Command{
	Use:   "save NAME FILTER [DESCRIPTION]",
	Short: "Save a user filter",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := queries.SavedQuery{Name: args[0], Query: args[1]}
		if len(args) > 2 {
			q.Description = args[2]
		}
		return saveFilter(os.Stdout, q)
	},
}

var filtersDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a user filter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return deleteFilter(os.Stdout, args[0])
	},
}

func init() {
	rootCmd.AddCommand(filtersCmd)
	filtersCmd.AddCommand(filtersSaveCmd)
	filtersCmd.AddCommand(filtersDeleteCmd)

	filtersCmd.Flags().BoolVar(&filtersJSON, "json", false, "Output in JSON format")
}

func listFilters(out io.Writer) error {
	store, err := queries.NewStore()
	if err != nil {
		return fmt.Errorf("load filters: %w", err)
	}
	all := store.List()

	if filtersJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(all)
	}

	for _, section := range []struct {
		title    string
		category string
	}{
		{"BUILT-IN FILTERS", queries.CategoryBuiltin},
		{"YOUR FILTERS", queries.CategoryUser},
	} {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		n := 0
		for _, q := range all {
			if q.Category != section.category {
				continue
			}
			if n == 0 {
				fmt.Fprintln(out, wizardTitleStyle.Render(section.title))
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\n", q.Name, q.Description, q.Query)
			n++
		}
		w.Flush()
		if n > 0 {
			fmt.Fprintln(out)
		}
	}

	fmt.Fprintln(out, dimStyle.Render("Use with: nodes-delete tree <node-id> --where @<name>"))
	return nil
}

func saveFilter(out io.Writer, q queries.SavedQuery) error {
	store, err := queries.NewStore()
	if err != nil {
		return fmt.Errorf("load filters: %w", err)
	}
	if existing, ok := store.Get(q.Name); ok && existing.Category == queries.CategoryBuiltin {
		return fmt.Errorf("cannot overwrite built-in filter %q", q.Name)
	}
	if err := queries.SaveUserQuery(q); err != nil {
		return fmt.Errorf("save filter: %w", err)
	}

	fmt.Fprintf(out, "%s Saved filter %q\n", successStyle.Render("✓"), q.Name)
	fmt.Fprintf(out, "  Filter: %s\n", q.Query)
	fmt.Fprintf(out, "  File:   %s\n", queries.UserQueriesFile())
	return nil
}

func deleteFilter(out io.Writer, name string) error {
	store, err := queries.NewStore()
	if err != nil {
		return fmt.Errorf("load filters: %w", err)
	}
	if existing, ok := store.Get(name); ok && existing.Category == queries.CategoryBuiltin {
		return fmt.Errorf("cannot delete built-in filter %q", name)
	}
	if err := queries.DeleteUserQuery(name); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s Deleted filter %q\n", successStyle.Render("✓"), name)
	return nil
}
