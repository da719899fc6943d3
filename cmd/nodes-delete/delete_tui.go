// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/monadic/nodes-delete/pkg/nodes"
	"github.com/monadic/nodes-delete/pkg/wizard"
)

// Wizard styles
var (
	wizardTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Background(lipgloss.Color("236")).
				Padding(0, 1)

	wizardProgressStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	wizardProgressBarFull = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82"))

	wizardProgressBarEmpty = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	wizardMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				MarginBottom(1)

	wizardSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("212")).
				Bold(true)

	wizardPublicStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82"))

	wizardPrivateStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214"))

	wizardChangedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("212"))

	wizardDisabledStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	wizardHelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)
)

type deleteKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	Next    key.Binding
	Back    key.Binding
	Embargo key.Binding
	Quit    key.Binding
}

func defaultDeleteKeyMap() deleteKeyMap {
	return deleteKeyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle:  key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "toggle public")),
		Next:    key.NewBinding(key.WithKeys("enter", "y"), key.WithHelp("enter", "continue")),
		Back:    key.NewBinding(key.WithKeys("b", "left", "backspace"), key.WithHelp("b", "back")),
		Embargo: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "end embargo early")),
		Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "cancel")),
	}
}

// Messages produced by commands run off the update loop.
type (
	submitDoneMsg struct {
		count int
		err   error
	}
	reloadDoneMsg  struct{ err error }
	embargoDoneMsg struct{ err error }
)

// deleteModel is the bubbletea model hosting the wizard. While busy, a command
// goroutine owns the wizard and the model renders only from the view cache.
type deleteModel struct {
	ctx   context.Context
	w     *wizard.Wizard
	cache *viewCache
	inbox *uiInbox
	keys  deleteKeyMap

	spinner spinner.Model
	cursor  int
	offset  int
	width   int
	height  int

	busy    bool
	lastErr error

	// Result
	done   bool
	result error
}

func newDeleteModel(ctx context.Context, w *wizard.Wizard, inbox *uiInbox) deleteModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

	return deleteModel{
		ctx:     ctx,
		w:       w,
		cache:   newViewCache(w),
		inbox:   inbox,
		keys:    defaultDeleteKeyMap(),
		spinner: s,
		width:   80,
		height:  24,
	}
}

func (m deleteModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m deleteModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case submitDoneMsg:
		m.busy = false
		reload, closeDialog := m.inbox.takeRequests()
		if msg.err != nil {
			m.lastErr = msg.err
			if closeDialog {
				m.done = true
				m.result = msg.err
				return m, tea.Quit
			}
			return m, nil
		}
		m.lastErr = nil
		if reload {
			m.busy = true
			return m, tea.Batch(m.spinner.Tick, m.reloadCmd())
		}
		return m, nil

	case reloadDoneMsg:
		m.busy = false
		m.lastErr = msg.err
		m.cursor, m.offset = 0, 0
		return m, nil

	case embargoDoneMsg:
		m.busy = false
		_, closeDialog := m.inbox.takeRequests()
		if msg.err != nil {
			m.lastErr = msg.err
			return m, nil
		}
		if closeDialog {
			m.done = true
			return m, tea.Quit
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m deleteModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		if msg.String() == "ctrl+c" {
			m.done = true
			return m, tea.Quit
		}
		return m, nil
	}

	if key.Matches(msg, m.keys.Quit) {
		m.w.Clear()
		m.done = true
		return m, tea.Quit
	}

	m.lastErr = nil
	switch m.w.Stage() {
	case wizard.Warning:
		switch {
		case key.Matches(msg, m.keys.Next):
			m.lastErr = m.w.SelectProjects()
		case key.Matches(msg, m.keys.Embargo) && m.w.Parent().IsEmbargoed:
			m.busy = true
			return m, tea.Batch(m.spinner.Tick, m.embargoCmd())
		}

	case wizard.Select:
		switch {
		case key.Matches(msg, m.keys.Up):
			m.moveCursor(-1)
		case key.Matches(msg, m.keys.Down):
			m.moveCursor(1)
		case key.Matches(msg, m.keys.Toggle):
			if n, ok := m.selectedNode(); ok {
				m.lastErr = m.w.Toggle(n.ID)
			}
		case key.Matches(msg, m.keys.Next):
			m.lastErr = m.w.ConfirmWarning()
		}

	case wizard.Confirm:
		switch {
		case key.Matches(msg, m.keys.Back):
			m.lastErr = m.w.Back()
		case key.Matches(msg, m.keys.Next):
			m.busy = true
			return m, tea.Batch(m.spinner.Tick, m.submitCmd())
		}
	}
	return m, nil
}

func (m *deleteModel) moveCursor(delta int) {
	total := len(m.cache.get().nodes)
	if total == 0 {
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= total {
		m.cursor = total - 1
	}

	rows := m.listRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
}

func (m deleteModel) selectedNode() (nodes.NodeSnapshot, bool) {
	ns := m.cache.get().nodes
	if m.cursor < 0 || m.cursor >= len(ns) {
		return nodes.NodeSnapshot{}, false
	}
	return ns[m.cursor], true
}

func (m deleteModel) listRows() int {
	rows := m.height - 12
	if rows < 5 {
		rows = 5
	}
	return rows
}

func (m deleteModel) submitCmd() tea.Cmd {
	w, ctx := m.w, m.ctx
	return func() tea.Msg {
		count := w.ChangedCount()
		return submitDoneMsg{count: count, err: w.ConfirmChanges(ctx)}
	}
}

func (m deleteModel) reloadCmd() tea.Cmd {
	w, ctx := m.w, m.ctx
	return func() tea.Msg {
		return reloadDoneMsg{err: w.Fetch(ctx)}
	}
}

func (m deleteModel) embargoCmd() tea.Cmd {
	w, ctx := m.w, m.ctx
	return func() tea.Msg {
		return embargoDoneMsg{err: w.MakeEmbargoPublic(ctx)}
	}
}

func (m deleteModel) View() string {
	if m.done {
		return ""
	}
	data := m.cache.get()

	var b strings.Builder
	b.WriteString(m.renderHeader(data))
	b.WriteString("\n\n")

	b.WriteString(m.renderBanners())

	if m.busy {
		_, blockMsg := m.inbox.snapshot()
		if blockMsg == "" {
			blockMsg = "Working"
		}
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(blockMsg)
		return b.String()
	}

	width := m.width - 2
	if width < 20 {
		width = 20
	}
	b.WriteString(wizardMessageStyle.Width(width).Render(data.message))
	b.WriteString("\n")

	switch data.state.Stage {
	case wizard.Warning:
		b.WriteString(m.renderWarning(data))
	case wizard.Select:
		b.WriteString(m.renderSelect(data))
	case wizard.Confirm:
		b.WriteString(m.renderConfirm(data))
	}

	if m.lastErr != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.lastErr)))
	}

	b.WriteString("\n")
	b.WriteString(m.renderHelp(data.state.Stage))
	return b.String()
}

func (m deleteModel) renderHeader(data viewData) string {
	stepNum := int(data.state.Stage) + 1
	totalSteps := 3
	barWidth := 15
	filled := stepNum * barWidth / totalSteps
	progressBar := wizardProgressBarFull.Render(strings.Repeat("█", filled)) +
		wizardProgressBarEmpty.Render(strings.Repeat("░", barWidth-filled))

	parent := m.w.Parent()
	nodeType := parent.NodeType
	if nodeType == "" {
		nodeType = "project"
	}
	subject := fmt.Sprintf("%s %s", cases.Title(language.English).String(nodeType), parent.ID)

	countInfo := fmt.Sprintf("(%d changed)", data.state.ChangedCount)

	return lipgloss.JoinHorizontal(
		lipgloss.Center,
		wizardTitleStyle.Render(strings.ToUpper(data.title)),
		"  ",
		progressBar,
		"  ",
		wizardProgressStyle.Render(fmt.Sprintf("Step %d of %d", stepNum, totalSteps)),
		"  ",
		dimStyle.Render(subject+" "+countInfo),
	)
}

func (m deleteModel) renderBanners() string {
	banners, _ := m.inbox.snapshot()
	if len(banners) == 0 {
		return ""
	}
	var b strings.Builder
	for _, bn := range banners {
		b.WriteString(levelStyle(bn.level).Render(bn.title + ":"))
		b.WriteString(" ")
		b.WriteString(bn.body)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

func (m deleteModel) renderWarning(data viewData) string {
	var b strings.Builder
	components := len(data.nodes) - 1
	if data.state.HasChildren {
		b.WriteString(fmt.Sprintf("This %s has %d component(s). You can choose which ones to change next.\n",
			m.w.Parent().NodeType, components))
	}
	for _, n := range data.nodes {
		if n.IsRoot {
			b.WriteString(fmt.Sprintf("%s will become %s\n", wizardSelectedStyle.Render(n.Title), visibility(n.IsPublic)))
		}
	}
	return b.String()
}

func (m deleteModel) renderSelect(data viewData) string {
	var b strings.Builder
	rows := m.listRows()
	end := m.offset + rows
	if end > len(data.nodes) {
		end = len(data.nodes)
	}
	for i := m.offset; i < end; i++ {
		n := data.nodes[i]
		cursor := "  "
		if i == m.cursor {
			cursor = wizardSelectedStyle.Render("> ")
		}
		box := "[ ]"
		if n.IsPublic {
			box = "[x]"
		}
		title := n.Title
		if i == m.cursor {
			title = wizardSelectedStyle.Render(title)
		}
		line := fmt.Sprintf("%s%s%s %s %s", cursor, strings.Repeat("  ", n.Depth), box, title, visibility(n.IsPublic))
		if n.Changed {
			line += " " + wizardChangedStyle.Render("(changed)")
		}
		if !n.IsAdmin {
			line = wizardDisabledStyle.Render(line + " (not an administrator)")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(data.nodes) > rows {
		b.WriteString(dimStyle.Render(fmt.Sprintf("%d-%d of %d", m.offset+1, end, len(data.nodes))))
		b.WriteString("\n")
	}
	return b.String()
}

func (m deleteModel) renderConfirm(data viewData) string {
	var b strings.Builder
	if len(data.state.ChangedPublic) == 0 && len(data.state.ChangedPrivate) == 0 {
		b.WriteString(dimStyle.Render("No changes selected."))
		b.WriteString("\n")
		return b.String()
	}
	if len(data.state.ChangedPublic) > 0 {
		b.WriteString(wizardPublicStyle.Render("Will become public:"))
		b.WriteString("\n")
		for _, title := range data.state.ChangedPublic {
			b.WriteString("  • " + title + "\n")
		}
	}
	if len(data.state.ChangedPrivate) > 0 {
		b.WriteString(wizardPrivateStyle.Render("Will become private:"))
		b.WriteString("\n")
		for _, title := range data.state.ChangedPrivate {
			b.WriteString("  • " + title + "\n")
		}
	}
	if data.state.ChangedCount > wizard.BulkLimit {
		b.WriteString(errorStyle.Render(fmt.Sprintf("At most %d nodes can be changed at once.", wizard.BulkLimit)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m deleteModel) renderHelp(stage wizard.Stage) string {
	var bindings []key.Binding
	switch stage {
	case wizard.Warning:
		bindings = append(bindings, m.keys.Next)
		if m.w.Parent().IsEmbargoed {
			bindings = append(bindings, m.keys.Embargo)
		}
	case wizard.Select:
		bindings = append(bindings, m.keys.Up, m.keys.Down, m.keys.Toggle, m.keys.Next)
	case wizard.Confirm:
		bindings = append(bindings, m.keys.Next, m.keys.Back)
	}
	bindings = append(bindings, m.keys.Quit)

	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return wizardHelpStyle.Render(strings.Join(parts, " • "))
}

func visibility(public bool) string {
	if public {
		return wizardPublicStyle.Render("public")
	}
	return wizardPrivateStyle.Render("private")
}
