package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Abdullahalhasan627/ShieldAI/pkg/errors"
	"github.com/Abdullahalhasan627/ShieldAI/store"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded training runs",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "maximum number of runs to show (0 for all)")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "loading config")
	}
	setupLogging(cfg)

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return errors.Wrap(err, "opening run registry")
	}
	defer db.Close()

	runs, err := db.ListRuns(runsLimit)
	if err != nil {
		return errors.Wrap(err, "listing runs")
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tSAMPLES\tITER\tLR\tLEAVES\tACC\tAUC\tLOGLOSS\tARTIFACT")
	for _, run := range runs {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%.3f\t%d\t%.4f\t%.4f\t%.4f\t%s\n",
			run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"),
			run.Samples, run.Iterations, run.LearningRate, run.NumLeaves,
			run.Accuracy, run.AUC, run.LogLoss, run.ArtifactPath)
	}
	return w.Flush()
}
