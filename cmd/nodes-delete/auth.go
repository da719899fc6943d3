// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/monadic/nodes-delete/pkg/osf"
)

var (
	authToken string
	authEmail string
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the stored personal access token",
	Long: `Manage the personal access token used for write requests.

The token is stored in ~/.nodes-delete/auth.yaml. OSF_TOKEN, when set,
takes precedence over the stored token.

Examples:
  # Store a token (prompts when --token is omitted)
  nodes-delete auth login --token <token>

  # Show which token would be used
  nodes-delete auth status

  # Forget the stored token
  nodes-delete auth logout
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return authStatus(os.Stdout)
	},
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a personal access token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		token := authToken
		if token == "" {
			var err error
			if token, err = readToken(os.Stdin, os.Stderr); err != nil {
				return err
			}
		}
		return authLogin(os.Stdout, token, authEmail)
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored personal access token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return authLogout(os.Stdout)
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where the active token comes from",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return authStatus(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)

	authLoginCmd.Flags().StringVar(&authToken, "token", "", "Personal access token (read from stdin when omitted)")
	authLoginCmd.Flags().StringVar(&authEmail, "email", "", "Account email, for display only")
}

// readToken prompts without echo on a terminal and reads one line otherwise.
func readToken(in *os.File, prompt io.Writer) (string, error) {
	if term.IsTerminal(int(in.Fd())) {
		fmt.Fprint(prompt, "Personal access token: ")
		b, err := term.ReadPassword(int(in.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return string(b), nil
	}
	return readTokenLine(in)
}

func readTokenLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read token: %w", err)
	}
	return line, nil
}

func authLogin(out io.Writer, token, email string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("no token given")
	}
	if err := osf.SaveAuth(&osf.Auth{Token: token, Email: email}); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	fmt.Fprintf(out, "%s Saved token\n", successStyle.Render("✓"))
	fmt.Fprintf(out, "  File: %s\n", osf.AuthFile())
	if os.Getenv(osf.EnvToken) != "" {
		fmt.Fprintln(out, dimStyle.Render("  "+osf.EnvToken+" is set and takes precedence"))
	}
	return nil
}

func authLogout(out io.Writer) error {
	if err := osf.ClearAuth(); err != nil {
		return fmt.Errorf("remove token: %w", err)
	}
	fmt.Fprintf(out, "%s Removed stored token\n", successStyle.Render("✓"))
	if os.Getenv(osf.EnvToken) != "" {
		fmt.Fprintln(out, dimStyle.Render("  "+osf.EnvToken+" is still set"))
	}
	return nil
}

func authStatus(out io.Writer) error {
	auth, err := osf.LoadAuth()
	if err != nil {
		return err
	}
	source := "none"
	switch {
	case os.Getenv(osf.EnvToken) != "":
		source = osf.EnvToken
	case auth.Token != "":
		source = osf.AuthFile()
	}
	fmt.Fprintf(out, "Mode:  %s\n", osf.CurrentMode())
	fmt.Fprintf(out, "Token: %s\n", source)
	if auth.Email != "" {
		fmt.Fprintf(out, "Email: %s\n", auth.Email)
	}
	return nil
}
