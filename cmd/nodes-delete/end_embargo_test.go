// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monadic/nodes-delete/internal/demoapi"
	"github.com/monadic/nodes-delete/pkg/nodes"
	"github.com/monadic/nodes-delete/pkg/osf"
)

func embargoedTree() *nodes.NodeTree {
	tree := demoapi.SampleTree()
	tree.Node.IsPublic = false
	tree.Node.IsEmbargoed = true
	tree.Node.NodeType = "registration"
	return tree
}

func TestEndEmbargo(t *testing.T) {
	srv, client := newDemoClient(t, embargoedTree())

	var out bytes.Buffer
	err := endEmbargo(context.Background(), embargoRun{
		nodeID:    demoapi.SampleRootID,
		fetcher:   client,
		submitter: client,
		in:        strings.NewReader("y\n"),
		out:       &out,
	})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "48 hours")
	assert.Contains(t, out.String(), "Email sent:")

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, []osf.BulkPatch{
		{Type: osf.NodesType, ID: demoapi.SampleRootID, Attributes: osf.BulkPatchFields{Public: true}},
	}, reqs[0].Data)
}

func TestEndEmbargoAborted(t *testing.T) {
	srv, client := newDemoClient(t, embargoedTree())

	var out bytes.Buffer
	err := endEmbargo(context.Background(), embargoRun{
		nodeID:    demoapi.SampleRootID,
		fetcher:   client,
		submitter: client,
		in:        strings.NewReader("n\n"),
		out:       &out,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Aborted.")
	assert.Empty(t, srv.Requests())
}

func TestEndEmbargoNotEmbargoed(t *testing.T) {
	_, client := newDemoClient(t, demoapi.SampleTree())

	var out bytes.Buffer
	err := endEmbargo(context.Background(), embargoRun{
		nodeID:    demoapi.SampleRootID,
		fetcher:   client,
		submitter: client,
		out:       &out,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not under embargo")
}

func TestEndEmbargoFailure(t *testing.T) {
	srv, client := newDemoClient(t, embargoedTree())
	srv.FailNext(http.StatusForbidden, "")

	useTempLogDir(t)
	logger, err := NewSessionLogger("embargo-test")
	require.NoError(t, err)

	var out bytes.Buffer
	err = endEmbargo(context.Background(), embargoRun{
		nodeID:    demoapi.SampleRootID,
		fetcher:   client,
		submitter: client,
		logger:    logger,
		out:       &out,
	})
	require.Error(t, err)
	assert.Contains(t, out.String(), "Problem ending embargo:")
	assert.Contains(t, out.String(), "Unable to end embargo early")

	content := readLog(t, logger)
	assert.Contains(t, content, "Could not PATCH embargo settings.")
	assert.Contains(t, content, "status: 403")
}

func TestEndEmbargoFetchFailure(t *testing.T) {
	_, client := newDemoClient(t, embargoedTree())

	var out bytes.Buffer
	err := endEmbargo(context.Background(), embargoRun{
		nodeID:    "missing",
		fetcher:   client,
		submitter: client,
		out:       &out,
	})
	require.Error(t, err)
	assert.Contains(t, out.String(), "Unable to retrieve project settings")
}

func TestRequireTerminalUnderTest(t *testing.T) {
	// go test pipes the test binary's stdout.
	err := requireTerminal("delete")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interactive terminal")
}
