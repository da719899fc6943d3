// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package query provides a small filter language over node snapshots.
//
// Query Syntax:
//
//	field=value           Exact match (case-insensitive, * wildcards)
//	field!=value          Not equal
//	field~=pattern        Regex match
//	field=value1,value2   IN list (comma-separated)
//	depth>=1              Numeric comparison (<, <=, >, >=)
//
// Operators:
//
//	AND                   Both conditions must match
//	OR                    Either side must match; AND binds tighter
//
// Fields:
//
//	id                    Node id
//	title                 Node title
//	public                true or false
//	admin                 true when the user administers the node
//	changed               true when the visibility differs from the server's
//	root                  true for the node the tree was fetched for
//	depth                 Distance from the root (root is 0)
//	parent                Id of the parent node
//
// Examples:
//
//	public=true AND admin=false
//	title~=(?i)data
//	depth>=1 AND public=false
//	id=a1b2c,d3e4f OR root=true
package query

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/monadic/nodes-delete/pkg/nodes"
)

// Operator represents a logical operator between conditions
type Operator string

const (
	OpAnd Operator = "AND"
	OpOr  Operator = "OR"
)

// Comparator represents how to compare field values
type Comparator string

const (
	CmpEqual     Comparator = "="
	CmpNotEqual  Comparator = "!="
	CmpRegex     Comparator = "~="
	CmpIn        Comparator = "IN"
	CmpLess      Comparator = "<"
	CmpLessEq    Comparator = "<="
	CmpGreater   Comparator = ">"
	CmpGreaterEq Comparator = ">="
)

// Fields lists every field a condition may name.
var Fields = []string{"id", "title", "public", "admin", "changed", "root", "depth", "parent"}

var (
	ErrUnknownField = errors.New("unknown field")
	ErrSyntax       = errors.New("invalid condition syntax")
)

// comparators in match order; two-character operators first.
var comparators = []Comparator{CmpRegex, CmpNotEqual, CmpLessEq, CmpGreaterEq, CmpEqual, CmpLess, CmpGreater}

// Condition represents a single query condition
type Condition struct {
	Field      string
	Comparator Comparator
	Value      string
	Values     []string       // For IN comparator
	Regex      *regexp.Regexp // For ~= and wildcard =
	Number     int            // For numeric comparators
}

// Query is a disjunction of conjunctions: Groups[0] OR Groups[1] OR ...,
// where every condition inside a group must match.
type Query struct {
	Groups [][]Condition
}

// Parse parses a query string into a Query. Words between operators form
// one condition, so values may contain spaces.
func Parse(input string) (*Query, error) {
	q := &Query{}
	var group []Condition
	var words []string
	sawOperator := false

	flush := func() error {
		if len(words) == 0 {
			return nil
		}
		cond, err := parseCondition(strings.Join(words, " "))
		if err != nil {
			return err
		}
		group = append(group, cond)
		words = nil
		return nil
	}

	for _, word := range strings.Fields(input) {
		op := Operator(strings.ToUpper(word))
		if op != OpAnd && op != OpOr {
			words = append(words, word)
			continue
		}
		if len(words) == 0 {
			return nil, fmt.Errorf("%w: operator %s without preceding condition", ErrSyntax, word)
		}
		if err := flush(); err != nil {
			return nil, err
		}
		if op == OpOr {
			q.Groups = append(q.Groups, group)
			group = nil
		}
		sawOperator = true
	}

	if len(words) == 0 && sawOperator {
		return nil, fmt.Errorf("%w: query ends with an operator", ErrSyntax)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(group) > 0 {
		q.Groups = append(q.Groups, group)
	}
	return q, nil
}

// MustParse is like Parse but panics on error.
func MustParse(input string) *Query {
	q, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return q
}

func parseCondition(s string) (Condition, error) {
	for _, cmp := range comparators {
		idx := strings.Index(s, string(cmp))
		if idx <= 0 {
			continue
		}
		field := strings.ToLower(strings.TrimSpace(s[:idx]))
		value := strings.TrimSpace(s[idx+len(cmp):])
		if !knownField(field) {
			return Condition{}, fmt.Errorf("%w %q (known: %s)", ErrUnknownField, field, strings.Join(Fields, ", "))
		}
		return newCondition(field, cmp, value)
	}
	return Condition{}, fmt.Errorf("%w: %q (expected field=value)", ErrSyntax, s)
}

func newCondition(field string, cmp Comparator, value string) (Condition, error) {
	c := Condition{Field: field, Comparator: cmp, Value: value}

	switch cmp {
	case CmpRegex:
		re, err := regexp.Compile(value)
		if err != nil {
			return Condition{}, fmt.Errorf("invalid regex %q: %w", value, err)
		}
		c.Regex = re

	case CmpLess, CmpLessEq, CmpGreater, CmpGreaterEq:
		n, err := strconv.Atoi(value)
		if err != nil {
			return Condition{}, fmt.Errorf("%w: %s%s needs a number, got %q", ErrSyntax, field, cmp, value)
		}
		c.Number = n

	case CmpEqual:
		if strings.Contains(value, ",") {
			c.Comparator = CmpIn
			for _, v := range strings.Split(value, ",") {
				c.Values = append(c.Values, strings.TrimSpace(v))
			}
			break
		}
		if strings.Contains(value, "*") {
			pattern := "(?i)^" + strings.ReplaceAll(regexp.QuoteMeta(value), `\*`, ".*") + "$"
			c.Regex = regexp.MustCompile(pattern)
		}
	}
	return c, nil
}

func knownField(field string) bool {
	for _, f := range Fields {
		if f == field {
			return true
		}
	}
	return false
}

// Field returns the string form of a snapshot field.
func Field(n nodes.NodeSnapshot, field string) (string, bool) {
	switch field {
	case "id":
		return string(n.ID), true
	case "title":
		return n.Title, true
	case "public":
		return strconv.FormatBool(n.IsPublic), true
	case "admin":
		return strconv.FormatBool(n.IsAdmin), true
	case "changed":
		return strconv.FormatBool(n.Changed), true
	case "root":
		return strconv.FormatBool(n.IsRoot), true
	case "depth":
		return strconv.Itoa(n.Depth), true
	case "parent":
		return string(n.ParentID), n.ParentID != ""
	}
	return "", false
}

// Matches reports whether n satisfies the query. An empty query matches everything.
func (q *Query) Matches(n nodes.NodeSnapshot) bool {
	if q == nil || len(q.Groups) == 0 {
		return true
	}
	for _, group := range q.Groups {
		if matchAll(group, n) {
			return true
		}
	}
	return false
}

func matchAll(group []Condition, n nodes.NodeSnapshot) bool {
	for _, c := range group {
		if !c.Matches(n) {
			return false
		}
	}
	return true
}

// Matches evaluates a single condition.
func (c Condition) Matches(n nodes.NodeSnapshot) bool {
	value, exists := Field(n, c.Field)

	switch c.Comparator {
	case CmpEqual:
		if !exists {
			return false
		}
		if c.Regex != nil {
			return c.Regex.MatchString(value)
		}
		return strings.EqualFold(value, normalizeBool(c.Field, c.Value))

	case CmpNotEqual:
		if !exists {
			return true
		}
		return !strings.EqualFold(value, normalizeBool(c.Field, c.Value))

	case CmpRegex:
		return exists && c.Regex.MatchString(value)

	case CmpIn:
		if !exists {
			return false
		}
		for _, v := range c.Values {
			if strings.EqualFold(value, normalizeBool(c.Field, v)) {
				return true
			}
		}
		return false

	case CmpLess, CmpLessEq, CmpGreater, CmpGreaterEq:
		n, err := strconv.Atoi(value)
		if !exists || err != nil {
			return false
		}
		switch c.Comparator {
		case CmpLess:
			return n < c.Number
		case CmpLessEq:
			return n <= c.Number
		case CmpGreater:
			return n > c.Number
		default:
			return n >= c.Number
		}
	}
	return false
}

// normalizeBool accepts yes/no and 1/0 for boolean fields.
func normalizeBool(field, value string) string {
	switch field {
	case "public", "admin", "changed", "root":
		switch strings.ToLower(value) {
		case "yes", "y", "1":
			return "true"
		case "no", "n", "0":
			return "false"
		}
	}
	return value
}

// Filter returns the entries of snap that match q, in snapshot order.
func (q *Query) Filter(snap *nodes.Snapshot) []nodes.NodeSnapshot {
	var out []nodes.NodeSnapshot
	snap.Each(func(n *nodes.NodeSnapshot) bool {
		if q.Matches(*n) {
			out = append(out, *n)
		}
		return true
	})
	return out
}

// String returns the query in canonical form.
func (q *Query) String() string {
	if q == nil {
		return ""
	}
	groups := make([]string, 0, len(q.Groups))
	for _, group := range q.Groups {
		parts := make([]string, 0, len(group))
		for _, c := range group {
			parts = append(parts, c.String())
		}
		groups = append(groups, strings.Join(parts, " AND "))
	}
	return strings.Join(groups, " OR ")
}

// String returns the condition as a string representation
func (c Condition) String() string {
	if c.Comparator == CmpIn {
		return fmt.Sprintf("%s=%s", c.Field, strings.Join(c.Values, ","))
	}
	return c.Field + string(c.Comparator) + c.Value
}
