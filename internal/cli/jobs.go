package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/map-harvest/harvest/internal/engine"
	"github.com/map-harvest/harvest/internal/ui"
	"github.com/map-harvest/harvest/pkg/models"
)

var jobsSync bool

// jobsCmd lists the crawl jobs and their state.
var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List crawl jobs and their state",
	Example: `  # Show every job with status and last run time
  harvest jobs --config plan.yaml

  # Materialize jobs for the plan first, then list them
  harvest jobs --config plan.yaml --sync`,
	RunE: runJobs,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.Flags().BoolVar(&jobsSync, "sync", false, "Create missing jobs for the configured plan before listing")
}

func runJobs(cmd *cobra.Command, _ []string) error {
	a := GetApp()
	if jobsSync {
		plan := engine.Plan{
			City:       a.Config.City,
			Districts:  a.Config.Districts,
			Categories: a.Config.Categories,
		}
		if err := engine.NewScheduler(a.Store, plan).SyncJobs(cmd.Context()); err != nil {
			return err
		}
	}
	jobs, err := a.Store.ListJobs(cmd.Context())
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Fprintln(os.Stdout, ui.Info("no jobs yet, run a crawl first"))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCATEGORY\tDISTRICT\tSTATUS\tFOUND\tLAST RUN")
	for _, j := range jobs {
		lastRun := "-"
		if j.LastRun != nil {
			lastRun = j.LastRun.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			j.ID, j.Category, j.District, colorStatus(j.Status), j.TotalFound, lastRun)
	}
	return w.Flush()
}

func colorStatus(s models.JobStatus) string {
	switch s {
	case models.JobCompleted:
		return ui.Success(string(s))
	case models.JobFailed:
		return ui.Error(string(s))
	case models.JobRunning:
		return ui.Bold(string(s))
	default:
		return string(s)
	}
}
