// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/monadic/nodes-delete/pkg/nodes"
	"github.com/monadic/nodes-delete/pkg/wizard"
)

var (
	embargoYes   bool
	embargoNoLog bool
)

var endEmbargoCmd = &cobra.Command{
	Use:   "end-embargo <node-id>",
	Short: "Ask administrators to end a registration embargo early",
	Long: `Request that an embargoed registration becomes public now.

Every administrator receives an email and has 48 hours to approve or cancel.
The registration stays private until then.

Examples:
  nodes-delete end-embargo r3g15
  nodes-delete end-embargo r3g15 --yes
`,
	Args: cobra.ExactArgs(1),
	RunE: runEndEmbargo,
}

func init() {
	rootCmd.AddCommand(endEmbargoCmd)

	endEmbargoCmd.Flags().BoolVarP(&embargoYes, "yes", "y", false, "Skip confirmation")
	endEmbargoCmd.Flags().BoolVar(&embargoNoLog, "no-log", false, "Disable logging to file")
}

func runEndEmbargo(cmd *cobra.Command, args []string) error {
	if !embargoYes && !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("stdin is not a terminal; pass --yes to confirm")
	}
	client := newClient()
	if err := client.RequireConnected(); err != nil {
		return err
	}

	logger := openSessionLogger("end-embargo", embargoNoLog)
	defer closeSessionLogger(logger)

	var in io.Reader = os.Stdin
	if embargoYes {
		in = nil
	}
	return endEmbargo(cmd.Context(), embargoRun{
		nodeID:    args[0],
		fetcher:   client,
		submitter: loggingSubmitter{next: client, logger: logger},
		logger:    logger,
		in:        in,
		out:       os.Stdout,
	})
}

type embargoRun struct {
	nodeID    string
	fetcher   wizard.TreeFetcher
	submitter wizard.Submitter
	logger    *SessionLogger
	// in is read for confirmation; nil skips the prompt.
	in  io.Reader
	out io.Writer
}

func endEmbargo(ctx context.Context, r embargoRun) error {
	notifier := consoleNotifier{out: r.out}

	tree, err := r.fetcher.FetchTree(ctx, r.nodeID)
	if err != nil {
		notifier.Notify(wizard.LevelError, "Error", "Unable to retrieve project settings")
		r.logger.CaptureMessage("Could not GET project settings.", map[string]any{
			"url":   r.fetcher.TreeURL(r.nodeID),
			"error": err.Error(),
		})
		return fmt.Errorf("fetch node tree: %w", err)
	}
	if !tree.Node.IsEmbargoed {
		return fmt.Errorf("%s (%s) is not under embargo", tree.Node.Title, tree.Node.ID)
	}

	w := wizard.New(wizard.Config{
		Parent:    tree.Node,
		Fetcher:   r.fetcher,
		Submitter: r.submitter,
		Notifier:  notifier,
		Reporter:  r.logger,
		Host:      &consoleHost{out: r.out},
		OnSetDelete: func(changed []nodes.NodeSnapshot) {
			r.logger.LogResult(len(changed), nil)
		},
	})
	if err := w.Load(tree); err != nil {
		return err
	}
	r.logger.LogTree(tree.Node, nodes.Count(tree))

	fmt.Fprintln(r.out, wizardMessageStyle.Render(w.Message()))
	if r.in != nil {
		fmt.Fprintf(r.out, "End the embargo on %s? [y/N] ", tree.Node.Title)
		if !confirmFrom(r.in) {
			r.logger.Log("User aborted")
			fmt.Fprintln(r.out, "Aborted.")
			return nil
		}
	}

	if err := w.MakeEmbargoPublic(ctx); err != nil {
		r.logger.LogResult(0, err)
		return err
	}
	return nil
}

// requireTerminal fails when stdout is not an interactive terminal.
func requireTerminal(command string) error {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return nil
	}
	return fmt.Errorf("%s needs an interactive terminal; use 'nodes-delete tree' to inspect a project", command)
}

func confirmFrom(in io.Reader) bool {
	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}
