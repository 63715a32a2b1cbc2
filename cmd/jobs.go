package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/monitoring"
	"github.com/sells-group/leadscout/internal/queue"
	"github.com/sells-group/leadscout/internal/store"
)

var (
	jobsStatus string
	jobsLimit  int
	jobsStats  bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [id]",
	Short: "Inspect analysis jobs",
	Long:  "Without arguments, lists recent jobs (filter with --status, cap with --limit). With a job ID, prints that job. With --stats, prints queue and lead metrics instead.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if jobsStats {
			snap, err := monitoring.NewCollector(st).Collect(ctx)
			if err != nil {
				return err
			}
			return enc.Encode(snap)
		}

		q := queue.New(st)
		if len(args) == 1 {
			job, err := q.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return enc.Encode(job)
		}

		jobs, err := q.List(ctx, store.JobFilter{
			Status: model.JobStatus(strings.ToUpper(jobsStatus)),
			Limit:  jobsLimit,
		})
		if err != nil {
			return err
		}
		return enc.Encode(jobs)
	},
}

func init() {
	jobsCmd.Flags().StringVar(&jobsStatus, "status", "", "filter by status (PENDING, PROCESSING, COMPLETED, FAILED)")
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 20, "maximum jobs to list")
	jobsCmd.Flags().BoolVar(&jobsStats, "stats", false, "print queue and lead metrics")
	rootCmd.AddCommand(jobsCmd)
}
