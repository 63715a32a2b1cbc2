package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
)

var (
	analyzeGitHub  string
	analyzeWebsite string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Enrich and score one lead synchronously",
	Long:  "Runs the full enrichment pipeline for a GitHub repository and/or website in-process and prints the scored profile as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		subject := model.Subject{GitHub: analyzeGitHub, Website: analyzeWebsite}
		lead, err := env.Pipeline.Run(cmd.Context(), subject, func(progress int, message string) {
			zap.L().Info("analyze", zap.Int("progress", progress), zap.String("message", message))
		})
		if err != nil {
			return err
		}

		if _, err := env.Store.SaveLead(cmd.Context(), lead); err != nil {
			zap.L().Warn("analyze: save failed", zap.Error(err))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(lead)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeGitHub, "github", "", "repository full name (owner/name)")
	analyzeCmd.Flags().StringVar(&analyzeWebsite, "website", "", "company website URL or domain")
	rootCmd.AddCommand(analyzeCmd)
}
