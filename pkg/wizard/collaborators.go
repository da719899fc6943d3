// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package wizard

import (
	"context"

	"github.com/monadic/nodes-delete/pkg/nodes"
)

// TreeFetcher loads the node hierarchy. *osf.Client implements it.
type TreeFetcher interface {
	FetchTree(ctx context.Context, nodeID string) (*nodes.NodeTree, error)
	TreeURL(nodeID string) string
}

// Submitter sends a bulk visibility change. *osf.Client implements it.
type Submitter interface {
	BulkUpdate(ctx context.Context, changed []nodes.NodeSnapshot) error
}

// Level is the severity of a user notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "danger"
)

// Notifier shows transient banners to the user.
type Notifier interface {
	Notify(level Level, title, body string)
}

// Reporter receives failures for later diagnosis.
type Reporter interface {
	CaptureMessage(msg string, extra map[string]any)
}

// Host is the dialog the wizard lives in.
type Host interface {
	// Block disables input while a request is outstanding.
	Block(msg string)
	Unblock()
	// Reload discards in-memory state and re-syncs with the server.
	Reload()
	CloseDialog()
}

// Observer is notified after every state change.
type Observer interface {
	StateChanged(State)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(State)

func (f ObserverFunc) StateChanged(s State) { f(s) }

type nopNotifier struct{}

func (nopNotifier) Notify(Level, string, string) {}

type nopReporter struct{}

func (nopReporter) CaptureMessage(string, map[string]any) {}

type nopHost struct{}

func (nopHost) Block(string) {}
func (nopHost) Unblock()     {}
func (nopHost) Reload()      {}
func (nopHost) CloseDialog() {}
