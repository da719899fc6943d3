// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package queries manages named node filters.
//
// Saved filters are either built in or defined by the user in
// ~/.nodes-delete/filters.yaml:
//
//	filters:
//	  - name: raw
//	    description: Raw data components
//	    query: title~=(?i)raw
//
// A filter expression starting with "@" refers to a saved filter by name.
package queries

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/monadic/nodes-delete/pkg/query"
)

const (
	CategoryBuiltin = "builtin"
	CategoryUser    = "user"
)

// ErrNotFound is returned for an unknown filter name.
var ErrNotFound = errors.New("saved filter not found")

// SavedQuery is a named, reusable filter expression
type SavedQuery struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Query       string `yaml:"query" json:"query"`
	Category    string `yaml:"category,omitempty" json:"category,omitempty"`
}

// BuiltinQueries ship with the tool
var BuiltinQueries = []SavedQuery{
	{
		Name:        "public",
		Description: "Nodes anyone can see",
		Query:       "public=true",
	},
	{
		Name:        "private",
		Description: "Nodes only contributors can see",
		Query:       "public=false",
	},
	{
		Name:        "public-components",
		Description: "Public nodes below the root",
		Query:       "public=true AND root=false",
	},
	{
		Name:        "read-only",
		Description: "Nodes you cannot change because you do not administer them",
		Query:       "admin=false",
	},
	{
		Name:        "top-level",
		Description: "The root and its direct components",
		Query:       "depth<=1",
	},
}

// path is where user filters are stored. Tests point it elsewhere.
var path = func() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".nodes-delete", "filters.yaml")
}

// UserQueriesFile is the path to user-defined filters
func UserQueriesFile() string {
	return path()
}

type userFile struct {
	Queries []SavedQuery `yaml:"filters"`
}

// Store holds built-in and user filters. User filters shadow built-ins of the same name.
type Store struct {
	byName map[string]SavedQuery
}

// NewStore loads the built-in filters and the user's file, if any.
func NewStore() (*Store, error) {
	s := &Store{byName: make(map[string]SavedQuery)}
	for _, q := range BuiltinQueries {
		q.Category = CategoryBuiltin
		s.byName[q.Name] = q
	}

	user, err := LoadUserQueries()
	if err != nil {
		return s, err
	}
	for _, q := range user {
		q.Category = CategoryUser
		s.byName[q.Name] = q
	}
	return s, nil
}

// LoadUserQueries reads the user's filters. A missing file is not an error.
func LoadUserQueries() ([]SavedQuery, error) {
	p := UserQueriesFile()
	if p == "" {
		return nil, fmt.Errorf("could not determine home directory")
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read filters file: %w", err)
	}

	var f userFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse filters file: %w", err)
	}
	for _, q := range f.Queries {
		if _, err := query.Parse(q.Query); err != nil {
			return nil, fmt.Errorf("filter %q: %w", q.Name, err)
		}
	}
	return f.Queries, nil
}

// SaveUserQuery validates q and adds or replaces it in the user's file.
func SaveUserQuery(q SavedQuery) error {
	if q.Name == "" || strings.HasPrefix(q.Name, "@") || strings.ContainsAny(q.Name, " \t") {
		return fmt.Errorf("invalid filter name %q", q.Name)
	}
	if _, err := query.Parse(q.Query); err != nil {
		return err
	}

	existing, err := LoadUserQueries()
	if err != nil {
		return err
	}
	q.Category = ""
	replaced := false
	for i := range existing {
		if existing[i].Name == q.Name {
			existing[i] = q
			replaced = true
		}
	}
	if !replaced {
		existing = append(existing, q)
	}
	return writeUserQueries(existing)
}

// DeleteUserQuery removes a user filter
func DeleteUserQuery(name string) error {
	existing, err := LoadUserQueries()
	if err != nil {
		return err
	}
	kept := make([]SavedQuery, 0, len(existing))
	for _, q := range existing {
		if q.Name != name {
			kept = append(kept, q)
		}
	}
	if len(kept) == len(existing) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return writeUserQueries(kept)
}

func writeUserQueries(qs []SavedQuery) error {
	p := UserQueriesFile()
	if p == "" {
		return fmt.Errorf("could not determine home directory")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(&userFile{Queries: qs})
	if err != nil {
		return fmt.Errorf("marshal filters: %w", err)
	}
	return os.WriteFile(p, data, 0644)
}

// List returns every filter sorted by name.
func (s *Store) List() []SavedQuery {
	out := make([]SavedQuery, 0, len(s.byName))
	for _, q := range s.byName {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns a filter by name
func (s *Store) Get(name string) (SavedQuery, bool) {
	q, ok := s.byName[name]
	return q, ok
}

// Resolve parses expr, expanding "@name" to the saved filter of that name.
func (s *Store) Resolve(expr string) (*query.Query, error) {
	expr = strings.TrimSpace(expr)
	if !strings.HasPrefix(expr, "@") {
		return query.Parse(expr)
	}
	name := strings.TrimPrefix(expr, "@")
	saved, ok := s.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return query.Parse(saved.Query)
}
