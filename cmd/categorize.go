package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/scorer"
)

var categorizeMinScore float64

var categorizeCmd = &cobra.Command{
	Use:   "categorize [file]",
	Short: "Bucket a batch of lead profiles by score",
	Long:  "Reads a JSON array of enriched lead profiles from a file (or stdin), scores each one, and prints the hot/warm/cold buckets. Use --min-score to drop low scorers first.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args)
		if err != nil {
			return err
		}

		var profiles []*model.LeadProfile
		if err := json.Unmarshal(data, &profiles); err != nil {
			return eris.Wrap(err, "parse lead profiles")
		}

		engine := scorer.NewEngine()
		if categorizeMinScore > 0 {
			profiles = engine.FilterByScore(profiles, categorizeMinScore)
		}
		cats := engine.Categorize(engine.Prioritize(profiles))

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cats)
	},
}

func init() {
	categorizeCmd.Flags().Float64Var(&categorizeMinScore, "min-score", 0, "drop leads scoring below this before bucketing")
	rootCmd.AddCommand(categorizeCmd)
}
