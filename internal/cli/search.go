package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/raphaelgruber/askdocs-go/internal/client"
	"github.com/spf13/cobra"
)

var (
	searchDoc   string
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed documentation",
	Long: `Search the section index with semantic search.

With --session, the search is scoped to the docs attached to that
session and the query itself can name the doc it targets ("how do
stripe webhooks retry"). With --doc, results come from one site only.

Examples:
  askdocs search "refresh token rotation"
  askdocs search "webhook retries" --doc https://docs.stripe.com
  askdocs search "useEffect cleanup" --session my-session -n 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchDoc, "doc", "d", "", "restrict to one doc by base URL")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "max results")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	res, err := apiClient.Search(ctx, args[0], client.SearchOptions{
		Doc:       searchDoc,
		SessionID: sessionID,
		Limit:     searchLimit,
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(res.Hits) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	if len(res.TargetDocs) > 0 && verbose {
		fmt.Printf("Scoped to: %s (confidence %.2f)\n\n", strings.Join(res.TargetDocs, ", "), res.Confidence)
	}

	fmt.Printf("Found %d results:\n\n", len(res.Hits))
	for i, hit := range res.Hits {
		heading := hit.Heading
		if hit.ParentHeading != "" {
			heading = hit.ParentHeading + " > " + heading
		}
		fmt.Printf("%d. %s [%s] (%.2f)\n", i+1, heading, hit.DocName, hit.Score)

		content := hit.Content
		if len(content) > 200 && !verbose {
			content = content[:200] + "..."
		}
		fmt.Printf("   %s\n", content)

		if hit.CodeSnippet != "" {
			lang := hit.Language
			if lang == "" {
				lang = "code"
			}
			snippet := hit.CodeSnippet
			if len(snippet) > 300 && !verbose {
				snippet = snippet[:300] + "..."
			}
			fmt.Printf("   [%s]\n", lang)
			for _, line := range strings.Split(snippet, "\n") {
				fmt.Printf("   | %s\n", line)
			}
		}
		fmt.Printf("   %s\n\n", hit.SourceURL)
	}

	return nil
}
