package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var jobsFollow bool

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect crawl jobs",
	Long: `List all crawl jobs or inspect a specific job by ID.

Examples:
  askdocs jobs                # List all jobs
  askdocs jobs job123         # Show details for job123
  askdocs jobs job123 -f      # Follow a running job's progress`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	jobsCmd.Flags().BoolVarP(&jobsFollow, "follow", "f", false, "follow a running job's progress")
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) == 1 {
		return showJob(ctx, args[0])
	}
	return listJobs(ctx)
}

func listJobs(ctx context.Context) error {
	jobs, err := apiClient.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("%-10s %-20s %-12s %-10s %s\n", "ID", "DOC", "STATUS", "PROGRESS", "STARTED")
	fmt.Println("------------------------------------------------------------------------")
	for _, job := range jobs {
		progress := fmt.Sprintf("%d%%", job.Progress)
		started := job.StartedAt.Format("15:04:05")
		fmt.Printf("%-10s %-20s %-12s %-10s %s\n", job.ID, job.DocName, job.Status, progress, started)
	}
	return nil
}

func showJob(ctx context.Context, id string) error {
	job, err := apiClient.GetJob(ctx, id)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	if jobsFollow && !job.Terminal() {
		return followJob(job.ID)
	}

	fmt.Printf("Job: %s\n", job.ID)
	fmt.Printf("  Doc: %s (%s)\n", job.DocName, job.URL)
	fmt.Printf("  Status: %s\n", job.Status)
	if job.Stage != "" {
		fmt.Printf("  Stage: %s\n", job.Stage)
	}
	fmt.Printf("  Progress: %d%%\n", job.Progress)
	if job.PagesFound > 0 {
		fmt.Printf("  Pages: %d/%d\n", job.PagesDone, job.PagesFound)
	}
	if job.Sections > 0 {
		fmt.Printf("  Sections: %d\n", job.Sections)
	}
	fmt.Printf("  Started: %s\n", job.StartedAt.Format(time.RFC3339))
	if job.CompletedAt != nil {
		fmt.Printf("  Completed: %s\n", job.CompletedAt.Format(time.RFC3339))
		duration := job.CompletedAt.Sub(job.StartedAt)
		fmt.Printf("  Duration: %s\n", duration.Round(time.Second))
	}
	if job.Error != "" {
		fmt.Printf("  Error: %s\n", job.Error)
	}
	return nil
}
