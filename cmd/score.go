package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/scorer"
)

var scoreCmd = &cobra.Command{
	Use:   "score [file]",
	Short: "Score a lead profile from JSON",
	Long:  "Reads an enriched lead profile from a file (or stdin) and prints its score breakdown, grade, priority, and reasoning.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args)
		if err != nil {
			return err
		}

		var profile model.LeadProfile
		if err := json.Unmarshal(data, &profile); err != nil {
			return eris.Wrap(err, "parse lead profile")
		}

		scoring := scorer.NewEngine().Score(&profile)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(scoring)
	},
}

// readInput returns the contents of the file named by args[0], or stdin
// when no argument was given.
func readInput(args []string) ([]byte, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, eris.Wrap(err, "read stdin")
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", args[0])
	}
	return data, nil
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}
