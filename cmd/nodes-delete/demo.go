// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/monadic/nodes-delete/internal/demoapi"
	"github.com/monadic/nodes-delete/pkg/osf"
)

// demoToken is the bearer token the demo server expects.
const demoToken = "demo"

var (
	demoServe     bool
	demoAddr      string
	demoEmbargoed bool
	demoFail      string
	demoBulkLimit int
)

// Styles for demo output
var (
	demoTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	demoInfoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))
	demoBoldStyle  = lipgloss.NewStyle().Bold(true)
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the wizard against a local demo API",
	Long: `Start an in-memory API serving a sample project and open the wizard on it.

The demo server implements the tree endpoint and the bulk nodes endpoint,
and rejects a request that hides a project before the components it also
hides. Nothing leaves your machine.

Examples:
  nodes-delete demo                        # Open the wizard on the sample project
  nodes-delete demo --embargoed            # Sample project under embargo
  nodes-delete demo --fail "Quota exceeded" # Make the first submission fail
  nodes-delete demo --serve --addr :8089   # Only run the server

With --serve, point the other commands at it:
  OSF_API_URL=http://127.0.0.1:8089/v2/ OSF_WEB_URL=http://127.0.0.1:8089/ OSF_TOKEN=demo \
    nodes-delete delete x7k2p`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().BoolVar(&demoServe, "serve", false, "Only run the demo server until interrupted")
	demoCmd.Flags().StringVar(&demoAddr, "addr", "127.0.0.1:0", "Listen address for the demo server")
	demoCmd.Flags().BoolVar(&demoEmbargoed, "embargoed", false, "Mark the sample project as an embargoed registration")
	demoCmd.Flags().StringVar(&demoFail, "fail", "", "Fail the first bulk request with this error detail")
	demoCmd.Flags().IntVar(&demoBulkLimit, "bulk-limit", demoapi.DefaultBulkLimit, "Server-side bulk operation limit")
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var logOut io.Writer = io.Discard
	if demoServe {
		logOut = os.Stderr
	} else if err := requireTerminal("demo"); err != nil {
		return fmt.Errorf("%w (or pass --serve)", err)
	}

	tree := demoapi.SampleTree()
	if demoEmbargoed {
		tree.Node.IsEmbargoed = true
		tree.Node.NodeType = "registration"
		tree.Node.IsPublic = false
	}

	srv, err := demoapi.New(tree,
		demoapi.WithToken(demoToken),
		demoapi.WithBulkLimit(demoBulkLimit),
		demoapi.WithLogger(slog.New(slog.NewTextHandler(logOut, nil))),
	)
	if err != nil {
		return fmt.Errorf("create demo server: %w", err)
	}
	if demoFail != "" {
		srv.FailNext(http.StatusBadRequest, demoFail)
	}

	ln, err := net.Listen("tcp", demoAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", demoAddr, err)
	}
	httpSrv := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go httpSrv.Serve(ln)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	base := "http://" + ln.Addr().String()
	apiURL, webURL := base+"/v2/", base+"/"

	if demoServe {
		fmt.Println(demoTitleStyle.Render("Demo API listening"))
		fmt.Printf("  %s %s\n", demoBoldStyle.Render("API:    "), apiURL)
		fmt.Printf("  %s %s\n", demoBoldStyle.Render("Web:    "), webURL)
		fmt.Printf("  %s %s\n", demoBoldStyle.Render("Metrics:"), base+"/metrics")
		fmt.Printf("  %s %s\n", demoBoldStyle.Render("Token:  "), demoToken)
		fmt.Printf("  %s %s\n", demoBoldStyle.Render("Project:"), demoapi.SampleRootID)
		fmt.Println(dimStyle.Render("\nPress Ctrl+C to stop."))
		<-ctx.Done()
		return nil
	}

	logger := openSessionLogger("demo", false)
	defer closeSessionLogger(logger)
	logger.Log("Demo server: %s", base)

	client := osf.NewClient(osf.WithBaseURLs(apiURL, webURL), osf.WithToken(demoToken))
	err = runDeleteWizard(ctx, deleteSession{
		nodeID:    demoapi.SampleRootID,
		fetcher:   client,
		submitter: loggingSubmitter{next: client, logger: logger},
		logger:    logger,
		intent:    true,
		webBase:   webURL,
	})

	fmt.Println()
	fmt.Println(demoTitleStyle.Render("Server state after the demo"))
	fmt.Println(demoInfoStyle.Render(fmt.Sprintf("%d bulk request(s) accepted", len(srv.Requests()))))
	if final, fetchErr := client.FetchTree(ctx, demoapi.SampleRootID); fetchErr == nil {
		printTree(os.Stdout, final)
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
