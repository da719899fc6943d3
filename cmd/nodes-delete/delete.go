// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/monadic/nodes-delete/pkg/nodes"
	"github.com/monadic/nodes-delete/pkg/osf"
	"github.com/monadic/nodes-delete/pkg/wizard"
)

var (
	deleteTreeFile string
	deleteDryRun   bool
	deleteNoIntent bool
	deleteNoLog    bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete [node-id]",
	Short: "Change the visibility of a project and its components",
	Long: `Open the privacy wizard for a project.

The wizard has three pages:

  1. Warning   What changing the project's visibility means
  2. Select    Choose which projects and components become public or private
  3. Confirm   Review the change before it is submitted

All changes are submitted as one bulk request, children before parents, and
at most 100 nodes can be changed at once.

Examples:
  # Open the wizard for a project
  nodes-delete delete x7k2p

  # Walk through the wizard against a saved tree, printing the request instead
  nodes-delete delete --tree-file tree.json --dry-run

  # Start with no pre-selected change
  nodes-delete delete x7k2p --no-intent
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().StringVar(&deleteTreeFile, "tree-file", "", "Load the node tree from a JSON or YAML file")
	deleteCmd.Flags().BoolVar(&deleteDryRun, "dry-run", false, "Print the bulk request instead of sending it")
	deleteCmd.Flags().BoolVar(&deleteNoIntent, "no-intent", false, "Do not pre-select the root's visibility change")
	deleteCmd.Flags().BoolVar(&deleteNoLog, "no-log", false, "Disable logging to file")
}

func runDelete(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && deleteTreeFile == "" {
		return fmt.Errorf("a node id or --tree-file is required")
	}
	if err := requireTerminal("delete"); err != nil {
		return err
	}

	logger := openSessionLogger("delete", deleteNoLog)
	defer closeSessionLogger(logger)

	src, err := deleteSources(args, logger)
	if err != nil {
		return err
	}
	src.intent = !deleteNoIntent

	var bodies [][]byte
	if deleteDryRun {
		src.submitter = loggingSubmitter{next: dryRunSubmitter{logger: logger, bodies: &bodies}, logger: logger}
	}

	err = runDeleteWizard(cmd.Context(), src)
	apiBase := osf.APIBaseURL()
	if apiURLFlag != "" {
		apiBase = apiURLFlag
	}
	for _, body := range bodies {
		fmt.Printf("\nDELETE %s\n%s\n", osf.NodesURL(apiBase), body)
	}
	return err
}

// deleteSession is everything the wizard needs for one run.
type deleteSession struct {
	nodeID    string
	fetcher   wizard.TreeFetcher
	submitter wizard.Submitter
	logger    *SessionLogger
	intent    bool

	// webBase links the summary to the node's page. Empty for tree files.
	webBase string

	// programOpts are extra options for the bubbletea program.
	programOpts []tea.ProgramOption
}

func deleteSources(args []string, logger *SessionLogger) (deleteSession, error) {
	src := deleteSession{logger: logger}

	var client *osf.Client
	if deleteTreeFile != "" {
		tree, err := nodes.LoadTree(deleteTreeFile)
		if err != nil {
			return src, err
		}
		src.nodeID = string(tree.Node.ID)
		src.fetcher = fileFetcher{path: deleteTreeFile}
		logger.Log("Tree file: %s", deleteTreeFile)
	} else {
		client = newClient()
		if err := client.RequireOnline(); err != nil {
			return src, err
		}
		src.fetcher = client
		src.webBase = client.WebBase()
		logger.Log("Mode: %s", client.Mode())
	}
	if len(args) > 0 {
		src.nodeID = args[0]
	}

	if deleteDryRun {
		logger.Log("Dry run: requests are printed, not sent")
		return src, nil
	}

	if client == nil {
		client = newClient()
	}
	if err := client.RequireConnected(); err != nil {
		return src, err
	}
	src.submitter = loggingSubmitter{next: client, logger: logger}
	return src, nil
}

// newDeleteWizard builds the wizard for a session and loads its tree. On
// failure the wizard's notifications are left in inbox.
func newDeleteWizard(ctx context.Context, src deleteSession, inbox *uiInbox, onSetDelete func([]nodes.NodeSnapshot)) (*wizard.Wizard, error) {
	w := wizard.New(wizard.Config{
		Parent:      nodes.Node{ID: nodes.NodeID(src.nodeID)},
		NoIntent:    !src.intent,
		Fetcher:     src.fetcher,
		Submitter:   src.submitter,
		Notifier:    inbox,
		Reporter:    src.logger,
		Host:        inbox,
		OnSetDelete: onSetDelete,
	})
	if err := w.Fetch(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// runDeleteWizard fetches the tree, prepares the wizard and runs the TUI
// until the user finishes or cancels.
func runDeleteWizard(ctx context.Context, src deleteSession) error {
	logger := src.logger
	logger.Log("Node: %s", src.nodeID)

	inbox := &uiInbox{}
	submitted := 0
	w, err := newDeleteWizard(ctx, src, inbox, func(changed []nodes.NodeSnapshot) {
		submitted += len(changed)
		logger.LogResult(len(changed), nil)
		inbox.Notify(wizard.LevelSuccess, "Privacy updated",
			fmt.Sprintf("%d projects and components updated.", len(changed)))
	})
	if err != nil {
		printBanners(os.Stderr, inbox)
		return err
	}
	logger.LogTree(w.Parent(), len(w.Nodes()))

	opts := append([]tea.ProgramOption{tea.WithContext(ctx)}, src.programOpts...)
	if len(src.programOpts) == 0 {
		opts = append(opts, tea.WithAltScreen())
	}
	final, err := tea.NewProgram(newDeleteModel(ctx, w, inbox), opts...).Run()
	if err != nil {
		return fmt.Errorf("run wizard: %w", err)
	}

	if fm, ok := final.(deleteModel); ok && fm.result != nil {
		logger.LogResult(submitted, fm.result)
		return fm.result
	}

	fmt.Println(summaryLine(submitted, src.webBase, w.Parent().ID))
	return nil
}

// summaryLine reports what a session submitted, linking the node's page when
// it came from the API.
func summaryLine(submitted int, webBase string, id nodes.NodeID) string {
	if submitted == 0 {
		return dimStyle.Render("No changes submitted.")
	}
	line := successStyle.Render(fmt.Sprintf("✓ Updated %d projects and components", submitted))
	if webBase != "" {
		line += "\n  " + dimStyle.Render(osf.NodeURL(webBase, string(id)))
	}
	return line
}

// fileFetcher serves a tree saved on disk.
type fileFetcher struct {
	path string
}

func (f fileFetcher) FetchTree(_ context.Context, _ string) (*nodes.NodeTree, error) {
	return nodes.LoadTree(f.path)
}

func (f fileFetcher) TreeURL(string) string {
	abs, err := filepath.Abs(f.path)
	if err != nil {
		abs = f.path
	}
	return "file://" + abs
}

// dryRunSubmitter records the bulk request body instead of sending it.
type dryRunSubmitter struct {
	logger *SessionLogger
	bodies *[][]byte
}

func (d dryRunSubmitter) BulkUpdate(_ context.Context, changed []nodes.NodeSnapshot) error {
	body, err := json.MarshalIndent(osf.NewBulkRequest(changed), "", "  ")
	if err != nil {
		return fmt.Errorf("encode bulk request: %w", err)
	}
	d.logger.Section("DRY RUN REQUEST")
	d.logger.Log("%s", body)
	if d.bodies != nil {
		*d.bodies = append(*d.bodies, body)
	}
	return nil
}

// loggingSubmitter logs every bulk request before passing it on.
type loggingSubmitter struct {
	next   wizard.Submitter
	logger *SessionLogger
}

func (s loggingSubmitter) BulkUpdate(ctx context.Context, changed []nodes.NodeSnapshot) error {
	s.logger.LogChanges(changed)
	if err := s.next.BulkUpdate(ctx, changed); err != nil {
		s.logger.Log("Bulk request failed: %v", err)
		return err
	}
	return nil
}

func openSessionLogger(command string, disabled bool) *SessionLogger {
	if disabled {
		return nil
	}
	logger, err := NewSessionLogger(command)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log file: %v\n", err)
		return nil
	}
	return logger
}

func closeSessionLogger(logger *SessionLogger) {
	if logPath := logger.Close(); logPath != "" {
		fmt.Printf("\nLog: %s\n", logPath)
	}
}
