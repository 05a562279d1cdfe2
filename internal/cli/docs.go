package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List indexed documentation sites",
	Long: `List every documentation site in the registry with its indexing
status and size.

Subcommands:
  remove    Delete an indexed site and its sections

Examples:
  askdocs docs
  askdocs docs remove https://docs.stripe.com`,
	RunE: runListDocs,
}

var docsRemoveCmd = &cobra.Command{
	Use:   "remove <url>",
	Short: "Delete an indexed site and its sections",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemoveDoc,
}

func init() {
	docsCmd.AddCommand(docsRemoveCmd)
	rootCmd.AddCommand(docsCmd)
}

func runListDocs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	docs, err := apiClient.ListDocs(ctx)
	if err != nil {
		return fmt.Errorf("list docs: %w", err)
	}

	if len(docs) == 0 {
		fmt.Println("No docs indexed yet. Use 'askdocs crawl <url>' to add one.")
		return nil
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })

	fmt.Printf("%-20s %-10s %7s %9s  %s\n", "NAME", "STATUS", "PAGES", "SECTIONS", "URL")
	fmt.Println("--------------------------------------------------------------------------------")
	for _, doc := range docs {
		fmt.Printf("%-20s %-10s %7d %9d  %s\n", doc.Name, doc.Status, doc.Pages, doc.Sections, doc.URL)
		if doc.Error != nil && *doc.Error != "" && verbose {
			fmt.Printf("  error: %s\n", *doc.Error)
		}
	}
	return nil
}

func runRemoveDoc(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if err := apiClient.RemoveDoc(ctx, args[0]); err != nil {
		return fmt.Errorf("remove doc: %w", err)
	}
	fmt.Printf("Removed %s\n", args[0])
	return nil
}
