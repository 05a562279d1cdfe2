// Package cli provides the command-line interface for askdocs.
package cli

import (
	"fmt"
	"os"

	"github.com/raphaelgruber/askdocs-go/internal/client"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose   bool
	serverURL string
	sessionID string

	// API client, created before any command runs
	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "askdocs",
	Short: "Documentation search for coding sessions",
	Long: `Askdocs crawls documentation sites, embeds their sections, and makes
them searchable. Point it at a docs site once; every later search against
that site is answered from the local index.

Crawls run on the askdocs server as background jobs. The CLI submits
work and streams progress over a WebSocket.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		apiClient = client.New(serverURL)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "askdocs server URL (default $ASKDOCS_SERVER_URL or http://localhost:8090)")
	rootCmd.PersistentFlags().StringVar(&sessionID, "session", "", "session ID for doc attachment and scoped search")
}
