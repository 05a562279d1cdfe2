package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	crawlUser     string
	crawlNoFollow bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl <url>",
	Short: "Index a documentation site",
	Long: `Submit a documentation site for crawling and indexing.

If the site is already indexed the command returns immediately. Otherwise
a background crawl job starts on the server and the CLI follows its
progress until it finishes.

Examples:
  askdocs crawl https://docs.stripe.com
  askdocs crawl react.dev --session my-session
  askdocs crawl https://tailwindcss.com/docs --no-follow`,
	Args: cobra.ExactArgs(1),
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().StringVar(&crawlUser, "user", "", "user ID recorded as the indexer")
	crawlCmd.Flags().BoolVar(&crawlNoFollow, "no-follow", false, "submit and return without following progress")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	res, err := apiClient.SubmitDoc(ctx, args[0], crawlUser, sessionID)
	if err != nil {
		return fmt.Errorf("submit doc: %w", err)
	}

	switch res.Status {
	case "ready":
		fmt.Printf("✓ %s is already indexed (%s)\n", res.DocName, res.URL)
		return nil
	case "indexing":
		fmt.Printf("%s is being indexed by job %s\n", res.DocName, res.JobID)
		if crawlNoFollow {
			return nil
		}
		return followJob(res.JobID)
	case "queued":
		fmt.Printf("Crawling %s (job %s)\n", res.URL, res.JobID)
		if crawlNoFollow {
			fmt.Printf("Use 'askdocs jobs %s' to check status.\n", res.JobID)
			return nil
		}
		return followJob(res.JobID)
	default:
		return fmt.Errorf("unexpected submit status %q", res.Status)
	}
}
