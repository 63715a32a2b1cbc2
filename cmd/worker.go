package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/queue"
)

var workerCount int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the analysis worker pool",
	Long:  "Claims pending analysis jobs from the store and runs them through the enrichment pipeline until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		size := workerCount
		if size == 0 {
			size = cfg.Worker.Size
		}

		pool := queue.NewPool(env.Store, env.Pipeline, queue.PoolOptions{
			Size:         size,
			PollInterval: cfg.Worker.PollInterval(),
		})

		err = pool.Run(ctx)
		if ctx.Err() != nil {
			zap.L().Info("worker pool stopped")
			return nil
		}
		return err
	},
}

func init() {
	workerCmd.Flags().IntVar(&workerCount, "workers", 0, "worker pool size (default from config)")
	rootCmd.AddCommand(workerCmd)
}
