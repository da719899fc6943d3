// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Command nodes-delete walks through changing the visibility of an OSF project
// and its components, and submits the change as one bulk request.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/monadic/nodes-delete/internal/clierr"
	"github.com/monadic/nodes-delete/pkg/osf"
)

var (
	// BuildTag is set during build
	BuildTag = "dev"
	// BuildDate is set during build
	BuildDate = "unknown"
)

var (
	apiURLFlag string
	webURLFlag string
)

var rootCmd = &cobra.Command{
	Use:   "nodes-delete",
	Short: "Change the visibility of a project and its components",
	Long: `nodes-delete - change the visibility of a project and its components

nodes-delete loads a project's component tree, lets you choose which
projects and components to make public or private, and submits the change
as one bulk request.

  - delete       Interactive wizard (warning, select, confirm)
  - end-embargo  Ask administrators to end a registration embargo early
  - tree         Print a project's component tree
  - auth         Store or remove a personal access token
  - demo         Run the wizard against a local demo API

Environment Variables:
  OSF_API_URL   v2 API base URL (default: https://api.osf.io/v2/)
  OSF_WEB_URL   Web base URL serving the tree endpoint (default: https://osf.io/)
  OSF_TOKEN     Personal access token (overrides ~/.nodes-delete/auth.yaml)
  OSF_OFFLINE   Set to "true" to refuse network access
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, clierr.Pretty(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "v2 API base URL (overrides "+osf.EnvAPIURL+")")
	rootCmd.PersistentFlags().StringVar(&webURLFlag, "web-url", "", "Web base URL (overrides "+osf.EnvWebURL+")")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("nodes-delete version %s (built %s)\n", BuildTag, BuildDate)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for nodes-delete.

Bash:
  $ source <(nodes-delete completion bash)

Zsh:
  $ nodes-delete completion zsh > "${fpath[1]}/_nodes-delete"

Fish:
  $ nodes-delete completion fish | source

PowerShell:
  PS> nodes-delete completion powershell | Out-String | Invoke-Expression
`,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.ExactArgs(1),
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	})
}

// newClient builds an API client honoring the global URL flags.
func newClient(opts ...osf.Option) *osf.Client {
	if apiURLFlag != "" || webURLFlag != "" {
		api, web := osf.APIBaseURL(), osf.WebBaseURL()
		if apiURLFlag != "" {
			api = apiURLFlag
		}
		if webURLFlag != "" {
			web = webURLFlag
		}
		opts = append([]osf.Option{osf.WithBaseURLs(api, web)}, opts...)
	}
	return osf.NewClient(opts...)
}
