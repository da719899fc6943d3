// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package nodes

import (
	"bytes"
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// DecodeTree parses a tree document in YAML or JSON. Both the endpoint shape
// (an array whose first element is the root) and a bare root object are accepted.
func DecodeTree(data []byte) (*NodeTree, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrNilTree
	}

	var list []*NodeTree
	if err := yaml.Unmarshal(trimmed, &list); err == nil {
		if len(list) == 0 || list[0] == nil {
			return nil, ErrNilTree
		}
		return list[0], nil
	}

	var tree NodeTree
	if err := yaml.Unmarshal(trimmed, &tree); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	if tree.Node.ID == "" {
		return nil, ErrEmptyID
	}
	return &tree, nil
}

// LoadTree reads a tree file from disk.
func LoadTree(path string) (*NodeTree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tree file: %w", err)
	}
	return DecodeTree(data)
}
