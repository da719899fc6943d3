// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/monadic/nodes-delete/pkg/nodes"
	"github.com/monadic/nodes-delete/pkg/wizard"
)

// maxBanners is how many notifications the TUI keeps on screen.
const maxBanners = 3

type banner struct {
	level wizard.Level
	title string
	body  string
}

// uiInbox is the TUI's notifier and host. The wizard may call it from a
// command goroutine, so everything is guarded and read back on the update loop.
type uiInbox struct {
	mu          sync.Mutex
	banners     []banner
	blocked     bool
	blockMsg    string
	reload      bool
	closeDialog bool
}

func (i *uiInbox) Notify(level wizard.Level, title, body string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.banners = append(i.banners, banner{level: level, title: title, body: body})
	if len(i.banners) > maxBanners {
		i.banners = i.banners[len(i.banners)-maxBanners:]
	}
}

func (i *uiInbox) Block(msg string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.blocked = true
	i.blockMsg = msg
}

func (i *uiInbox) Unblock() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.blocked = false
}

func (i *uiInbox) Reload() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.reload = true
}

func (i *uiInbox) CloseDialog() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closeDialog = true
}

// takeRequests returns and resets the pending host requests.
func (i *uiInbox) takeRequests() (reload, closeDialog bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	reload, closeDialog = i.reload, i.closeDialog
	i.reload, i.closeDialog = false, false
	return reload, closeDialog
}

// snapshot returns the visible banners and, while blocked, the block message.
func (i *uiInbox) snapshot() (banners []banner, blockMsg string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.blocked {
		blockMsg = i.blockMsg
	}
	return append([]banner{}, i.banners...), blockMsg
}

// viewCache holds what the TUI renders. It is refreshed by a wizard observer
// on whichever goroutine is driving the wizard.
type viewCache struct {
	mu      sync.Mutex
	state   wizard.State
	nodes   []nodes.NodeSnapshot
	title   string
	message string
}

type viewData struct {
	state   wizard.State
	nodes   []nodes.NodeSnapshot
	title   string
	message string
}

func newViewCache(w *wizard.Wizard) *viewCache {
	c := &viewCache{}
	c.refresh(w, w.State())
	w.Subscribe(wizard.ObserverFunc(func(s wizard.State) { c.refresh(w, s) }))
	return c
}

func (c *viewCache) refresh(w *wizard.Wizard, s wizard.State) {
	ns := w.Nodes()
	title, message := w.Title(), w.Message()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
	c.nodes = ns
	c.title = title
	c.message = message
}

func (c *viewCache) get() viewData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return viewData{state: c.state, nodes: c.nodes, title: c.title, message: c.message}
}

// consoleNotifier prints notifications for non-interactive commands.
type consoleNotifier struct {
	out io.Writer
}

func (n consoleNotifier) Notify(level wizard.Level, title, body string) {
	fmt.Fprintf(n.out, "%s %s\n", levelStyle(level).Render(title+":"), body)
}

// printBanners writes the inbox's notifications, for when the TUI never started.
func printBanners(out io.Writer, inbox *uiInbox) {
	banners, _ := inbox.snapshot()
	n := consoleNotifier{out: out}
	for _, b := range banners {
		n.Notify(b.level, b.title, b.body)
	}
}

// consoleHost reports progress for non-interactive commands.
type consoleHost struct {
	out    io.Writer
	closed bool
}

func (h *consoleHost) Block(msg string) { fmt.Fprintln(h.out, levelStyle(wizard.LevelInfo).Render(msg)) }
func (h *consoleHost) Unblock()         {}
func (h *consoleHost) Reload()          {}
func (h *consoleHost) CloseDialog()     { h.closed = true }

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func levelStyle(level wizard.Level) lipgloss.Style {
	switch level {
	case wizard.LevelInfo:
		return infoStyle
	case wizard.LevelError:
		return errorStyle
	case wizard.LevelSuccess:
		return successStyle
	default:
		return infoStyle
	}
}
