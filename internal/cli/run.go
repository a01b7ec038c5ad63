package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/map-harvest/harvest/internal/ui"
)

// runCmd drives one crawl run in the foreground.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the crawl in the foreground until interrupted",
	Long: `Starts the engine and follows its progress in the terminal. The run
visits every (category, district) job in the plan and then keeps
refreshing the least-recently-run one, so it continues until
interrupted. Ctrl-C stops the run cleanly after the current page.`,
	Example: `  # Run the plan from a YAML file
  harvest run --config plan.yaml

  # Run an ad-hoc plan against the in-memory store
  harvest run --store memory --city Ankara --districts "Çankaya" --categories "Kafe,Restoran"`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	a := GetApp()
	start := time.Now()

	if err := a.Engine.Start(cmd.Context()); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, ui.Info("stopping after the current page..."))
		_ = a.Engine.Stop()
	}()

	total := len(a.Config.Districts) * len(a.Config.Categories)
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("jobs"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan struct{})
	go func() {
		a.Engine.Wait()
		close(done)
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			st := a.Engine.Status()
			if st.CurrentCategory != "" {
				bar.Describe(fmt.Sprintf("%s / %s (%d found)", st.CurrentCategory, st.CurrentDistrict, st.ProcessedCount))
			}
			_ = bar.Set(jobsDoneSince(cmd, start))
		case <-done:
			_ = bar.Finish()
			st := a.Engine.Status()
			fmt.Fprintln(os.Stdout, ui.Success(fmt.Sprintf("run finished, %d businesses processed", st.ProcessedCount)))
			return nil
		}
	}
}

// jobsDoneSince counts jobs the current run has finished, success or
// failure. Jobs from earlier runs have an older lastRun and don't count.
func jobsDoneSince(cmd *cobra.Command, start time.Time) int {
	a := GetApp()
	jobs, err := a.Store.ListJobs(cmd.Context())
	if err != nil {
		return 0
	}
	n := 0
	for _, j := range jobs {
		if j.LastRun != nil && !j.LastRun.Before(start) {
			n++
		}
	}
	return n
}
