// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package wizard

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monadic/nodes-delete/pkg/nodes"
	"github.com/monadic/nodes-delete/pkg/osf"
)

// --- fakes ---

type fakeSubmitter struct {
	calls [][]nodes.NodeSnapshot
	err   error
}

func (f *fakeSubmitter) BulkUpdate(_ context.Context, changed []nodes.NodeSnapshot) error {
	f.calls = append(f.calls, append([]nodes.NodeSnapshot{}, changed...))
	return f.err
}

type fakeFetcher struct {
	tree *nodes.NodeTree
	err  error
}

func (f *fakeFetcher) FetchTree(context.Context, string) (*nodes.NodeTree, error) {
	return f.tree, f.err
}

func (f *fakeFetcher) TreeURL(id string) string {
	return "https://osf.io/api/v1/project/" + id + "/tree/"
}

type notification struct {
	level Level
	title string
	body  string
}

type fakeNotifier struct{ got []notification }

func (f *fakeNotifier) Notify(level Level, title, body string) {
	f.got = append(f.got, notification{level, title, body})
}

type report struct {
	msg   string
	extra map[string]any
}

type fakeReporter struct{ got []report }

func (f *fakeReporter) CaptureMessage(msg string, extra map[string]any) {
	f.got = append(f.got, report{msg, extra})
}

type fakeHost struct {
	blocked  []string
	unblocks int
	reloads  int
	closes   int
}

func (h *fakeHost) Block(msg string) { h.blocked = append(h.blocked, msg) }
func (h *fakeHost) Unblock()         { h.unblocks++ }
func (h *fakeHost) Reload()          { h.reloads++ }
func (h *fakeHost) CloseDialog()     { h.closes++ }

type harness struct {
	w         *Wizard
	submitter *fakeSubmitter
	notifier  *fakeNotifier
	reporter  *fakeReporter
	host      *fakeHost
	completed [][]nodes.NodeSnapshot
}

func newHarness(parent nodes.Node, fetcher TreeFetcher) *harness {
	h := &harness{
		submitter: &fakeSubmitter{},
		notifier:  &fakeNotifier{},
		reporter:  &fakeReporter{},
		host:      &fakeHost{},
	}
	h.w = New(Config{
		Parent:    parent,
		Fetcher:   fetcher,
		Submitter: h.submitter,
		Notifier:  h.notifier,
		Reporter:  h.reporter,
		Host:      h.host,
		OnSetDelete: func(changed []nodes.NodeSnapshot) {
			h.completed = append(h.completed, changed)
		},
	})
	return h
}

func tree(id, title string, public bool, children ...*nodes.NodeTree) *nodes.NodeTree {
	return &nodes.NodeTree{
		Node:     nodes.Node{ID: nodes.NodeID(id), Title: title, IsPublic: public, IsAdmin: true, NodeType: "project"},
		Children: children,
	}
}

func twoNodeTree() *nodes.NodeTree {
	return tree("1", "root title", false, tree("2", "child title", false))
}

// loadedAtSelect loads t and moves to the Select page.
func loadedAtSelect(t *testing.T, tr *nodes.NodeTree) *harness {
	t.Helper()
	h := newHarness(tr.Node, nil)
	require.NoError(t, h.w.Load(tr))
	require.NoError(t, h.w.SelectProjects())
	return h
}

// --- scenarios ---

func TestToggleRootScenario(t *testing.T) {
	h := loadedAtSelect(t, twoNodeTree())

	require.NoError(t, h.w.Toggle("1"))
	assert.True(t, h.w.NodesChanged())
	assert.Equal(t, 1, h.w.ChangedCount())

	require.NoError(t, h.w.ConfirmWarning())
	assert.Equal(t, Confirm, h.w.Stage())
	assert.Equal(t, []string{"root title"}, h.w.ChangedPublic())
	assert.Equal(t, []string{}, h.w.ChangedPrivate())
}

func TestSubmissionSucceeds(t *testing.T) {
	tr := tree("1", "Root", true,
		tree("2", "A", true, tree("3", "A.1", true)),
		tree("4", "B", false),
	)
	h := loadedAtSelect(t, tr)

	require.NoError(t, h.w.SetPublic("1", false))
	require.NoError(t, h.w.SetPublic("2", false))
	require.NoError(t, h.w.SetPublic("3", false))
	require.NoError(t, h.w.ConfirmWarning())
	assert.Equal(t, []string{"Root", "A", "A.1"}, h.w.ChangedPrivate())

	require.NoError(t, h.w.ConfirmChanges(context.Background()))

	require.Len(t, h.submitter.calls, 1)
	ids := func(ns []nodes.NodeSnapshot) []nodes.NodeID {
		var out []nodes.NodeID
		for _, n := range ns {
			out = append(out, n.ID)
		}
		return out
	}
	// Children before parents.
	assert.Equal(t, []nodes.NodeID{"3", "2", "1"}, ids(h.submitter.calls[0]))

	require.Len(t, h.completed, 1)
	assert.Equal(t, h.submitter.calls[0], h.completed[0])

	assert.Equal(t, Warning, h.w.Stage())
	assert.Empty(t, h.w.ChangedPublic())
	assert.Empty(t, h.w.ChangedPrivate())
	assert.Equal(t, 1, h.host.reloads)
	assert.Equal(t, []string{"Deleting Project"}, h.host.blocked)
	assert.Equal(t, 1, h.host.unblocks)
	assert.Zero(t, h.host.closes)
}

func TestSubmissionFailsWithServerDetail(t *testing.T) {
	h := loadedAtSelect(t, twoNodeTree())
	h.submitter.err = &osf.APIError{
		Method: http.MethodDelete,
		URL:    "https://api.osf.io/v2/nodes/",
		Status: http.StatusBadRequest,
		Errors: []osf.ErrorObject{{Detail: "Quota exceeded"}},
	}

	require.NoError(t, h.w.Toggle("2"))
	require.NoError(t, h.w.ConfirmWarning())
	err := h.w.ConfirmChanges(context.Background())
	require.Error(t, err)

	require.Len(t, h.notifier.got, 1)
	assert.Equal(t, "Problem changing privacy", h.notifier.got[0].title)
	assert.Equal(t, "Quota exceeded", h.notifier.got[0].body)
	assert.Equal(t, LevelError, h.notifier.got[0].level)

	require.Len(t, h.reporter.got, 1)
	assert.Equal(t, "Could not PATCH project settings.", h.reporter.got[0].msg)
	assert.Equal(t, http.StatusBadRequest, h.reporter.got[0].extra["status"])

	assert.Equal(t, Warning, h.w.Stage())
	assert.Equal(t, 1, h.host.closes)
	assert.Zero(t, h.host.reloads)
	assert.Empty(t, h.completed)
}

func TestSubmissionFailsWithoutDetail(t *testing.T) {
	h := loadedAtSelect(t, twoNodeTree())
	h.submitter.err = errors.New("connection reset by peer")

	require.NoError(t, h.w.Toggle("2"))
	require.NoError(t, h.w.ConfirmWarning())
	require.Error(t, h.w.ConfirmChanges(context.Background()))

	require.Len(t, h.notifier.got, 1)
	assert.Equal(t, "Unable to update project privacy", h.notifier.got[0].body)
	assert.Equal(t, Warning, h.w.Stage())
}

func TestBulkLimit(t *testing.T) {
	var children []*nodes.NodeTree
	for i := 0; i < BulkLimit; i++ {
		children = append(children, tree(fmt.Sprintf("c%d", i), fmt.Sprintf("Component %d", i), false))
	}

	t.Run("over limit is refused", func(t *testing.T) {
		h := loadedAtSelect(t, tree("root", "Root", false, children...))
		for _, id := range h.w.current.IDs() {
			require.NoError(t, h.w.Toggle(id))
		}
		require.Equal(t, BulkLimit+1, h.w.ChangedCount())
		require.NoError(t, h.w.ConfirmWarning())

		err := h.w.ConfirmChanges(context.Background())
		assert.True(t, errors.Is(err, ErrBulkLimitExceeded))
		assert.Empty(t, h.submitter.calls)
		assert.Equal(t, Confirm, h.w.Stage())
		require.Len(t, h.notifier.got, 1)
		assert.Equal(t, "Too many changes", h.notifier.got[0].title)
	})

	t.Run("exactly at limit is sent", func(t *testing.T) {
		h := loadedAtSelect(t, tree("root", "Root", false, children...))
		for _, c := range children {
			require.NoError(t, h.w.Toggle(c.Node.ID))
		}
		require.Equal(t, BulkLimit, h.w.ChangedCount())
		require.NoError(t, h.w.ConfirmWarning())
		require.NoError(t, h.w.ConfirmChanges(context.Background()))
		require.Len(t, h.submitter.calls, 1)
		assert.Len(t, h.submitter.calls[0], BulkLimit)
	})
}

func TestConfirmChangesWithNothingChanged(t *testing.T) {
	h := loadedAtSelect(t, twoNodeTree())
	require.NoError(t, h.w.ConfirmWarning())

	err := h.w.ConfirmChanges(context.Background())
	assert.ErrorIs(t, err, ErrNoChanges)
	assert.Empty(t, h.submitter.calls)
}

// --- invariants ---

func TestChangedMatchesDiffAfterEveryMutation(t *testing.T) {
	tr := tree("r", "Root", true,
		tree("a", "A", false, tree("a1", "A1", true), tree("a2", "A2", false)),
		tree("b", "B", true, tree("b1", "B1", false)),
	)
	h := loadedAtSelect(t, tr)
	ids := h.w.current.IDs()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		id := ids[rng.Intn(len(ids))]
		require.NoError(t, h.w.SetPublic(id, rng.Intn(2) == 0))

		count := 0
		for _, n := range h.w.Nodes() {
			orig, ok := h.w.Original(n.ID)
			require.True(t, ok)
			assert.Equal(t, orig.IsPublic != n.IsPublic, n.Changed, "node %s", n.ID)
			if n.Changed {
				count++
			}
		}
		assert.Equal(t, count, h.w.ChangedCount())
		assert.Equal(t, count > 0, h.w.NodesChanged())
	}

	// Partition covers every changed entry exactly once.
	require.NoError(t, h.w.ConfirmWarning())
	pub, priv := h.w.ChangedPublic(), h.w.ChangedPrivate()
	assert.Equal(t, h.w.ChangedCount(), len(pub)+len(priv))
	for _, title := range pub {
		assert.NotContains(t, priv, title)
	}
}

func TestOriginalIsNeverMutated(t *testing.T) {
	h := loadedAtSelect(t, twoNodeTree())
	require.NoError(t, h.w.Toggle("1"))
	require.NoError(t, h.w.Toggle("2"))

	for _, id := range []nodes.NodeID{"1", "2"} {
		orig, _ := h.w.Original(id)
		assert.False(t, orig.IsPublic)
		assert.False(t, orig.Changed)
	}
	root, _ := h.w.Node("1")
	assert.True(t, root.IsRoot)
}

func TestRootOnlyTree(t *testing.T) {
	h := loadedAtSelect(t, tree("solo", "Solo", true))
	assert.False(t, h.w.HasChildren())
	assert.False(t, h.w.State().HasChildren)
}

// --- transitions ---

func TestTransitions(t *testing.T) {
	h := newHarness(twoNodeTree().Node, nil)

	assert.ErrorIs(t, h.w.SelectProjects(), ErrNotLoaded)
	assert.ErrorIs(t, h.w.Toggle("1"), ErrNotLoaded)

	require.NoError(t, h.w.Load(twoNodeTree()))
	assert.Equal(t, Warning, h.w.Stage())
	assert.ErrorIs(t, h.w.ConfirmWarning(), ErrInvalidTransition)
	assert.ErrorIs(t, h.w.Back(), ErrInvalidTransition)
	assert.ErrorIs(t, h.w.Toggle("1"), ErrInvalidTransition)
	assert.ErrorIs(t, h.w.ConfirmChanges(context.Background()), ErrInvalidTransition)

	require.NoError(t, h.w.SelectProjects())
	assert.ErrorIs(t, h.w.SelectProjects(), ErrInvalidTransition)
	require.NoError(t, h.w.Toggle("2"))
	require.NoError(t, h.w.ConfirmWarning())
	assert.Equal(t, []string{"child title"}, h.w.ChangedPublic())

	require.NoError(t, h.w.Back())
	assert.Equal(t, Select, h.w.Stage())
	assert.Empty(t, h.w.ChangedPublic())
	// Edits survive a round trip through Confirm.
	assert.Equal(t, 1, h.w.ChangedCount())

	require.NoError(t, h.w.ConfirmWarning())
	h.w.Clear()
	assert.Equal(t, Warning, h.w.Stage())
	assert.Empty(t, h.w.ChangedPublic())
	assert.Empty(t, h.w.ChangedPrivate())
}

func TestSetPublicGuards(t *testing.T) {
	tr := twoNodeTree()
	tr.Children[0].Node.IsAdmin = false
	h := loadedAtSelect(t, tr)

	assert.ErrorIs(t, h.w.Toggle("2"), ErrNotAdmin)
	assert.ErrorIs(t, h.w.Toggle("404"), ErrUnknownNode)
	assert.False(t, h.w.NodesChanged())
}

func TestObservers(t *testing.T) {
	h := newHarness(twoNodeTree().Node, nil)
	var states []State
	unsubscribe := h.w.Subscribe(ObserverFunc(func(s State) { states = append(states, s) }))

	require.NoError(t, h.w.Load(twoNodeTree()))
	require.NoError(t, h.w.SelectProjects())
	require.NoError(t, h.w.Toggle("1"))

	require.Len(t, states, 3)
	assert.Equal(t, Select, states[2].Stage)
	assert.True(t, states[2].NodesChanged)
	assert.Equal(t, 1, states[2].ChangedCount)
	assert.True(t, states[2].HasChildren)

	unsubscribe()
	require.NoError(t, h.w.Toggle("1"))
	assert.Len(t, states, 3)
}

// --- fetch ---

func TestFetchAppliesIntent(t *testing.T) {
	tr := tree("1", "Root", true, tree("2", "Child", true))
	h := newHarness(tr.Node, &fakeFetcher{tree: tr})

	require.NoError(t, h.w.Fetch(context.Background()))
	root, _ := h.w.Node("1")
	assert.False(t, root.IsPublic)
	assert.True(t, root.Changed)
	assert.Equal(t, 1, h.w.ChangedCount())
	assert.True(t, h.w.HasChildren())
	assert.Equal(t, "Make project private", h.w.Title())
}

func TestFetchWithoutIntentSurvivesReload(t *testing.T) {
	tr := tree("1", "Root", true, tree("2", "Child", true), tree("3", "Other", true))
	fetcher := &fakeFetcher{tree: tr}
	h := &harness{submitter: &fakeSubmitter{}, notifier: &fakeNotifier{}, reporter: &fakeReporter{}, host: &fakeHost{}}
	h.w = New(Config{
		Parent:    tr.Node,
		Fetcher:   fetcher,
		Submitter: h.submitter,
		Host:      h.host,
		NoIntent:  true,
	})

	require.NoError(t, h.w.Fetch(context.Background()))
	assert.Zero(t, h.w.ChangedCount())

	require.NoError(t, h.w.SelectProjects())
	require.NoError(t, h.w.SetPublic("3", false))
	require.NoError(t, h.w.ConfirmWarning())
	require.NoError(t, h.w.ConfirmChanges(context.Background()))
	assert.Equal(t, 1, h.host.reloads)

	// The server now has "Other" private; the reload must not flip the root.
	fetcher.tree = tree("1", "Root", true, tree("2", "Child", true), tree("3", "Other", false))
	require.NoError(t, h.w.Fetch(context.Background()))
	assert.Zero(t, h.w.ChangedCount())
	root, _ := h.w.Node("1")
	assert.False(t, root.Changed)
	assert.True(t, root.IsPublic)
}

func TestFetchRecordsParentOnFirstLoad(t *testing.T) {
	tr := tree("1", "Root", true, tree("2", "Child", true))
	tr.Node.NodeType = "component"
	fetcher := &fakeFetcher{tree: tr}
	h := newHarness(nodes.Node{ID: "1"}, fetcher)

	var titles []string
	h.w.Subscribe(ObserverFunc(func(State) { titles = append(titles, h.w.Title()) }))

	require.NoError(t, h.w.Fetch(context.Background()))
	assert.Equal(t, "Root", h.w.Parent().Title)
	assert.True(t, h.w.Parent().IsPublic)
	require.NotEmpty(t, titles)
	assert.Equal(t, "Make component private", titles[0], "observers see the recorded parent")

	// A reload keeps the parent as first seen.
	fetcher.tree = tree("1", "Renamed", false, tree("2", "Child", true))
	require.NoError(t, h.w.Fetch(context.Background()))
	assert.Equal(t, "Root", h.w.Parent().Title)
	assert.True(t, h.w.Parent().IsPublic)
}

func TestFetchNilTreeKeepsParent(t *testing.T) {
	h := newHarness(nodes.Node{ID: "abc", Title: "Configured"}, &fakeFetcher{})

	err := h.w.Fetch(context.Background())
	assert.ErrorIs(t, err, nodes.ErrNilTree)
	assert.Equal(t, "Configured", h.w.Parent().Title)
	assert.False(t, h.w.Loaded())
}

func TestFetchFailureLeavesStateUnchanged(t *testing.T) {
	fetchErr := &osf.APIError{Method: http.MethodGet, URL: "u", Status: http.StatusForbidden}
	h := newHarness(nodes.Node{ID: "abc"}, &fakeFetcher{err: fetchErr})

	err := h.w.Fetch(context.Background())
	require.Error(t, err)
	assert.False(t, h.w.Loaded())
	assert.Equal(t, Warning, h.w.Stage())

	require.Len(t, h.notifier.got, 1)
	assert.Equal(t, notification{LevelError, "Error", "Unable to retrieve project settings"}, h.notifier.got[0])

	require.Len(t, h.reporter.got, 1)
	r := h.reporter.got[0]
	assert.Equal(t, "Could not GET project settings.", r.msg)
	assert.Equal(t, "https://osf.io/api/v1/project/abc/tree/", r.extra["url"])
	assert.Equal(t, http.StatusForbidden, r.extra["status"])
	assert.NotEmpty(t, r.extra["error"])
}

// --- embargo ---

func TestMakeEmbargoPublic(t *testing.T) {
	tr := tree("1", "Registration", false, tree("2", "Component", false))
	tr.Node.IsEmbargoed = true
	h := newHarness(tr.Node, nil)
	require.NoError(t, h.w.Load(tr))
	assert.Equal(t, "End embargo early", h.w.Title())

	require.NoError(t, h.w.MakeEmbargoPublic(context.Background()))

	require.Len(t, h.submitter.calls, 1)
	require.Len(t, h.submitter.calls[0], 1)
	sent := h.submitter.calls[0][0]
	assert.Equal(t, nodes.NodeID("1"), sent.ID)
	assert.True(t, sent.IsPublic)

	assert.Equal(t, 1, h.host.closes)
	require.Len(t, h.completed, 1)
	require.Len(t, h.notifier.got, 1)
	assert.Equal(t, LevelSuccess, h.notifier.got[0].level)
	assert.Equal(t, "Email sent", h.notifier.got[0].title)

	orig, _ := h.w.Original("1")
	assert.False(t, orig.IsPublic)
	assert.Equal(t, Warning, h.w.Stage())
}

func TestMakeEmbargoPublicFailure(t *testing.T) {
	tr := tree("1", "Registration", false)
	h := newHarness(tr.Node, nil)
	require.NoError(t, h.w.Load(tr))
	h.submitter.err = errors.New("boom")

	require.Error(t, h.w.MakeEmbargoPublic(context.Background()))
	assert.Zero(t, h.host.closes)
	assert.Empty(t, h.completed)
	require.Len(t, h.notifier.got, 1)
	assert.Equal(t, "Unable to end embargo early", h.notifier.got[0].body)
	assert.Equal(t, 1, h.host.unblocks)
}

// --- pages ---

func TestPageText(t *testing.T) {
	tests := []struct {
		name   string
		parent nodes.Node
		stage  Stage
		title  string
		body   string
	}{
		{name: "public warning", parent: nodes.Node{IsPublic: true, NodeType: "component"}, stage: Warning, title: "Make component private", body: "removes it from public view"},
		{name: "private warning", parent: nodes.Node{}, stage: Warning, title: "Warning", body: "Making a project public"},
		{name: "preprint warning", parent: nodes.Node{IsPublic: true, IsPreprint: true}, stage: Warning, title: "Make project private", body: "preprint"},
		{name: "embargo warning", parent: nodes.Node{IsEmbargoed: true}, stage: Warning, title: "End embargo early", body: "48 hours"},
		{name: "select", parent: nodes.Node{}, stage: Select, title: "Change privacy settings", body: "administer"},
		{name: "confirm", parent: nodes.Node{}, stage: Confirm, title: "Projects and components affected", body: "takes effect"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New(Config{Parent: tt.parent})
			w.stage = tt.stage
			assert.Equal(t, tt.title, w.Title())
			assert.Contains(t, w.Message(), tt.body)
		})
	}
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "warning", Warning.String())
	assert.Equal(t, "select", Select.String())
	assert.Equal(t, "confirm", Confirm.String())
	assert.Equal(t, "unknown", Stage(9).String())
}
