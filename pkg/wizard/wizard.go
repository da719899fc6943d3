// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package wizard implements the confirmation workflow for changing the
// visibility of a node and its components.
//
// A Wizard keeps two snapshots of the node tree: the original one, taken when
// the tree is loaded and never modified afterwards, and the current one, which
// the user edits. Every edit recomputes which entries differ from the original.
// The user then walks Warning → Select → Confirm and the changed subset is sent
// to the backend as one bulk request.
//
// A Wizard is not safe for concurrent use.
package wizard

import (
	"context"
	"errors"
	"fmt"

	"github.com/monadic/nodes-delete/pkg/nodes"
	"github.com/monadic/nodes-delete/pkg/osf"
)

// Stage is the page the wizard is showing.
type Stage int

const (
	Warning Stage = iota
	Select
	Confirm
)

func (s Stage) String() string {
	switch s {
	case Warning:
		return "warning"
	case Select:
		return "select"
	case Confirm:
		return "confirm"
	default:
		return "unknown"
	}
}

// BulkLimit is the largest change set the backend accepts in one request.
const BulkLimit = 100

var (
	ErrBulkLimitExceeded = errors.New("bulk operation limit exceeded")
	ErrNoChanges         = errors.New("no nodes changed")
	ErrNotAdmin          = errors.New("not an administrator of this node")
	ErrUnknownNode       = errors.New("unknown node")
	ErrInvalidTransition = errors.New("invalid wizard transition")
	ErrNotLoaded         = errors.New("node tree not loaded")
)

// Messages shown to the user.
const (
	fetchErrorTitle   = "Error"
	fetchErrorBody    = "Unable to retrieve project settings"
	fetchErrorReport  = "Could not GET project settings."
	submitErrorTitle  = "Problem changing privacy"
	submitErrorBody   = "Unable to update project privacy"
	submitErrorReport = "Could not PATCH project settings."
	submitBlockMsg    = "Deleting Project"
	limitErrorTitle   = "Too many changes"
	embargoBlockMsg   = "Submitting request to end embargo early ..."
	embargoErrorTitle = "Problem ending embargo"
	embargoErrorBody  = "Unable to end embargo early"
	embargoReport     = "Could not PATCH embargo settings."
	embargoDoneTitle  = "Email sent"
	embargoDoneBody   = "The administrator(s) can approve or cancel the action within 48 hours. " +
		"If 48 hours pass without any action taken, then the registration will become public."
)

// State is the read-only view published to observers.
type State struct {
	Stage          Stage
	NodesChanged   bool
	ChangedCount   int
	ChangedPublic  []string
	ChangedPrivate []string
	HasChildren    bool
}

// Config wires a Wizard to its collaborators. Nil collaborators are no-ops.
type Config struct {
	// Parent is the node the workflow was opened for. When only its ID is
	// known, the first successful Fetch fills in the rest from the tree root.
	Parent nodes.Node

	// NoIntent stops Fetch from pre-selecting the root's visibility change.
	NoIntent bool

	Fetcher   TreeFetcher
	Submitter Submitter
	Notifier  Notifier
	Reporter  Reporter
	Host      Host

	// OnSetDelete is called with the submitted entries after a successful bulk request.
	OnSetDelete func(changed []nodes.NodeSnapshot)
}

// Wizard is the state machine behind the deletion dialog.
type Wizard struct {
	parent   nodes.Node
	noIntent bool

	fetcher     TreeFetcher
	submitter   Submitter
	notifier    Notifier
	reporter    Reporter
	host        Host
	onSetDelete func([]nodes.NodeSnapshot)

	original *nodes.Snapshot
	current  *nodes.Snapshot
	derived  Derived
	stage    Stage

	changedPublic  []string
	changedPrivate []string

	observers map[int]Observer
	nextObsID int
}

// New creates a wizard at the Warning stage with no tree loaded.
func New(cfg Config) *Wizard {
	w := &Wizard{
		parent:         cfg.Parent,
		noIntent:       cfg.NoIntent,
		fetcher:        cfg.Fetcher,
		submitter:      cfg.Submitter,
		notifier:       cfg.Notifier,
		reporter:       cfg.Reporter,
		host:           cfg.Host,
		onSetDelete:    cfg.OnSetDelete,
		stage:          Warning,
		changedPublic:  []string{},
		changedPrivate: []string{},
		observers:      make(map[int]Observer),
	}
	if w.notifier == nil {
		w.notifier = nopNotifier{}
	}
	if w.reporter == nil {
		w.reporter = nopReporter{}
	}
	if w.host == nil {
		w.host = nopHost{}
	}
	if w.onSetDelete == nil {
		w.onSetDelete = func([]nodes.NodeSnapshot) {}
	}
	return w
}

// Subscribe registers o and returns a function that removes it.
func (w *Wizard) Subscribe(o Observer) (unsubscribe func()) {
	id := w.nextObsID
	w.nextObsID++
	w.observers[id] = o
	return func() { delete(w.observers, id) }
}

func (w *Wizard) publish() {
	s := w.State()
	for _, o := range w.observers {
		o.StateChanged(s)
	}
}

// State returns a copy of the observable state.
func (w *Wizard) State() State {
	return State{
		Stage:          w.stage,
		NodesChanged:   w.derived.NodesChanged,
		ChangedCount:   w.derived.ChangedCount,
		ChangedPublic:  append([]string{}, w.changedPublic...),
		ChangedPrivate: append([]string{}, w.changedPrivate...),
		HasChildren:    w.HasChildren(),
	}
}

// Stage returns the active stage.
func (w *Wizard) Stage() Stage { return w.stage }

// Parent returns the node the workflow was opened for.
func (w *Wizard) Parent() nodes.Node { return w.parent }

// Loaded reports whether a tree has been loaded.
func (w *Wizard) Loaded() bool { return w.original != nil }

// HasChildren reports whether the loaded tree has more than the root.
func (w *Wizard) HasChildren() bool { return w.original.HasChildren() }

// NodesChanged reports whether any entry differs from the original.
func (w *Wizard) NodesChanged() bool { return w.derived.NodesChanged }

// ChangedCount returns the number of entries that differ from the original.
func (w *Wizard) ChangedCount() int { return w.derived.ChangedCount }

// ChangedPublic returns the titles that become public, filled by ConfirmWarning.
func (w *Wizard) ChangedPublic() []string { return append([]string{}, w.changedPublic...) }

// ChangedPrivate returns the titles that become private, filled by ConfirmWarning.
func (w *Wizard) ChangedPrivate() []string { return append([]string{}, w.changedPrivate...) }

// Nodes returns copies of the current entries in tree order.
func (w *Wizard) Nodes() []nodes.NodeSnapshot {
	out := make([]nodes.NodeSnapshot, 0, w.current.Len())
	w.current.Each(func(n *nodes.NodeSnapshot) bool {
		out = append(out, *n)
		return true
	})
	return out
}

// Node returns a copy of the current entry for id.
func (w *Wizard) Node(id nodes.NodeID) (nodes.NodeSnapshot, bool) {
	n, ok := w.current.Get(id)
	if !ok {
		return nodes.NodeSnapshot{}, false
	}
	return *n, true
}

// Original returns a copy of the entry as loaded.
func (w *Wizard) Original(id nodes.NodeID) (nodes.NodeSnapshot, bool) {
	n, ok := w.original.Get(id)
	if !ok {
		return nodes.NodeSnapshot{}, false
	}
	return *n, true
}

// Fetch loads the tree through the configured fetcher and, unless NoIntent
// is set, applies the visibility change the user asked for (see ApplyIntent).
// The first successful fetch records the tree root as the parent node; later
// fetches keep it. On failure the user is notified, the error is reported and
// the wizard is left untouched.
func (w *Wizard) Fetch(ctx context.Context) error {
	if w.fetcher == nil {
		return errors.New("wizard has no tree fetcher")
	}
	id := string(w.parent.ID)
	tree, err := w.fetcher.FetchTree(ctx, id)
	if err != nil {
		w.notifier.Notify(LevelError, fetchErrorTitle, fetchErrorBody)
		status := 0
		var apiErr *osf.APIError
		if errors.As(err, &apiErr) {
			status = apiErr.Status
		}
		w.reporter.CaptureMessage(fetchErrorReport, map[string]any{
			"url":    w.fetcher.TreeURL(id),
			"status": status,
			"error":  err.Error(),
		})
		return fmt.Errorf("fetch node tree: %w", err)
	}
	parent := w.parent
	if !w.Loaded() && tree != nil {
		w.parent = tree.Node
	}
	if err := w.Load(tree); err != nil {
		w.parent = parent
		return err
	}
	if !w.noIntent {
		w.ApplyIntent()
	}
	return nil
}

// Load replaces both snapshots with the flattened tree and resets the wizard
// to the Warning stage.
func (w *Wizard) Load(tree *nodes.NodeTree) error {
	original, err := nodes.Flatten(tree)
	if err != nil {
		return fmt.Errorf("load node tree: %w", err)
	}
	w.original = original
	w.current = original.Clone()
	w.derived = Recompute(w.original, w.current)
	w.resetLists()
	w.stage = Warning
	w.publish()
	return nil
}

// ApplyIntent flips the root to the opposite of the parent's visibility,
// mirroring the make public / make private button that opened the dialog.
func (w *Wizard) ApplyIntent() {
	root, ok := w.current.Root()
	if !ok {
		return
	}
	root.IsPublic = !w.parent.IsPublic
	w.derived = Recompute(w.original, w.current)
	w.publish()
}

// SetPublic changes the visibility of one node. Only allowed on the Select page
// and only for nodes the user administers.
func (w *Wizard) SetPublic(id nodes.NodeID, public bool) error {
	if !w.Loaded() {
		return ErrNotLoaded
	}
	if w.stage != Select {
		return fmt.Errorf("%w: cannot edit nodes on the %s page", ErrInvalidTransition, w.stage)
	}
	n, ok := w.current.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if !n.IsAdmin {
		return fmt.Errorf("%w: %s", ErrNotAdmin, n.Title)
	}

	d, err := Update(w.original, w.current, Mutation{ID: id, Public: public})
	if err != nil {
		return err
	}
	w.derived = d
	w.publish()
	return nil
}

// Toggle flips the visibility of one node.
func (w *Wizard) Toggle(id nodes.NodeID) error {
	n, ok := w.current.Get(id)
	if !ok {
		if !w.Loaded() {
			return ErrNotLoaded
		}
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	return w.SetPublic(id, !n.IsPublic)
}

// SelectProjects moves from Warning to Select.
func (w *Wizard) SelectProjects() error {
	if !w.Loaded() {
		return ErrNotLoaded
	}
	if w.stage != Warning {
		return fmt.Errorf("%w: select from %s", ErrInvalidTransition, w.stage)
	}
	w.stage = Select
	w.publish()
	return nil
}

// ConfirmWarning moves from Select to Confirm and partitions the changed
// entries into the titles becoming public and those becoming private.
func (w *Wizard) ConfirmWarning() error {
	if w.stage != Select {
		return fmt.Errorf("%w: confirm from %s", ErrInvalidTransition, w.stage)
	}
	w.changedPublic, w.changedPrivate = Partition(w.current)
	w.stage = Confirm
	w.publish()
	return nil
}

// Back returns from Confirm to Select.
func (w *Wizard) Back() error {
	if w.stage != Confirm {
		return fmt.Errorf("%w: back from %s", ErrInvalidTransition, w.stage)
	}
	w.resetLists()
	w.stage = Select
	w.publish()
	return nil
}

// Clear returns to Warning from any stage. Called when the dialog is dismissed.
func (w *Wizard) Clear() {
	w.resetLists()
	w.stage = Warning
	w.publish()
}

// ConfirmChanges submits the changed entries, children before parents.
//
// More than BulkLimit changes are refused with ErrBulkLimitExceeded before any
// request is made, and the wizard stays on the Confirm page. On success the
// completion callback runs, the wizard returns to Warning and the host reloads.
// On failure the user sees the server's detail message when there is one, the
// wizard returns to Warning and the dialog closes.
func (w *Wizard) ConfirmChanges(ctx context.Context) error {
	if w.stage != Confirm {
		return fmt.Errorf("%w: submit from %s", ErrInvalidTransition, w.stage)
	}
	if w.submitter == nil {
		return errors.New("wizard has no submitter")
	}

	changed := w.current.Changed()
	if len(changed) > BulkLimit {
		w.notifier.Notify(LevelError, limitErrorTitle,
			fmt.Sprintf("%d projects and components were changed; at most %d can be changed at once.", len(changed), BulkLimit))
		return fmt.Errorf("%d nodes changed, limit is %d: %w", len(changed), BulkLimit, ErrBulkLimitExceeded)
	}
	if len(changed) == 0 {
		return ErrNoChanges
	}

	changed = reversed(changed)
	w.host.Block(submitBlockMsg)
	err := w.submitter.BulkUpdate(ctx, changed)
	w.host.Unblock()

	if err != nil {
		w.notifier.Notify(LevelError, submitErrorTitle, detailOr(err, submitErrorBody))
		w.reporter.CaptureMessage(submitErrorReport, errorExtra(err))
		w.Clear()
		w.host.CloseDialog()
		return fmt.Errorf("submit %d changes: %w", len(changed), err)
	}

	w.onSetDelete(changed)
	w.Clear()
	w.host.Reload()
	return nil
}

// MakeEmbargoPublic skips the wizard pages and asks the backend to make the
// root public right away, ending its embargo early. The snapshots are not
// modified; the change only takes effect once administrators approve it.
func (w *Wizard) MakeEmbargoPublic(ctx context.Context) error {
	if !w.Loaded() {
		return ErrNotLoaded
	}
	if w.submitter == nil {
		return errors.New("wizard has no submitter")
	}
	root, ok := w.original.Root()
	if !ok {
		return ErrNotLoaded
	}
	entry := *root
	entry.IsPublic = true
	entry.Changed = true
	changed := []nodes.NodeSnapshot{entry}

	w.host.Block(embargoBlockMsg)
	err := w.submitter.BulkUpdate(ctx, changed)
	w.host.Unblock()

	if err != nil {
		w.notifier.Notify(LevelError, embargoErrorTitle, detailOr(err, embargoErrorBody))
		w.reporter.CaptureMessage(embargoReport, errorExtra(err))
		return fmt.Errorf("end embargo: %w", err)
	}

	w.host.CloseDialog()
	w.onSetDelete(changed)
	w.notifier.Notify(LevelSuccess, embargoDoneTitle, embargoDoneBody)
	return nil
}

func (w *Wizard) resetLists() {
	w.changedPublic = []string{}
	w.changedPrivate = []string{}
}

// detailOr returns the first server-supplied error detail, or fallback.
func detailOr(err error, fallback string) string {
	var apiErr *osf.APIError
	if errors.As(err, &apiErr) {
		if d := apiErr.Detail(); d != "" {
			return d
		}
	}
	return fallback
}

func errorExtra(err error) map[string]any {
	extra := map[string]any{"error": err.Error()}
	var apiErr *osf.APIError
	if errors.As(err, &apiErr) {
		extra["url"] = apiErr.URL
		extra["status"] = apiErr.Status
	}
	return extra
}
