package cmd

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/Abdullahalhasan627/ShieldAI/dataset"
	"github.com/Abdullahalhasan627/ShieldAI/lightgbm"
	"github.com/Abdullahalhasan627/ShieldAI/onnx"
	"github.com/Abdullahalhasan627/ShieldAI/pkg/errors"
	"github.com/Abdullahalhasan627/ShieldAI/pkg/log"
)

var (
	verifyLibPath   string
	verifyTolerance float64
)

var verifyCmd = &cobra.Command{
	Use:   "verify <model.onnx>",
	Short: "Cross-check an exported model against the native predictor",
	Long: `Verify retrains the classifier with the configured parameters, runs the
exported ONNX model through the ONNX Runtime on the same dataset, and
compares the probabilities produced by both. Requires the onnxruntime
shared library.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyLibPath, "ort-lib", "", "path to the onnxruntime shared library")
	verifyCmd.Flags().Float64Var(&verifyTolerance, "tolerance", 1e-5, "maximum allowed probability difference")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	modelPath := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "loading config")
	}
	setupLogging(cfg)
	logger := log.GetLoggerWithName("verify")

	session, err := onnx.OpenSession(modelPath, verifyLibPath)
	if err != nil {
		return errors.Wrap(err, "opening session")
	}
	defer session.Close()

	if session.NumFeatures() != cfg.Data.Features {
		return errors.Newf("model expects %d features, config generates %d",
			session.NumFeatures(), cfg.Data.Features)
	}

	X, y, err := dataset.Synthetic(cfg.Data.Samples, cfg.Data.Features, cfg.Data.Seed)
	if err != nil {
		return errors.Wrap(err, "generating dataset")
	}

	clf := lightgbm.NewLGBMClassifier().
		WithNumIterations(cfg.Train.Iterations).
		WithLearningRate(cfg.Train.LearningRate).
		WithNumLeaves(cfg.Train.NumLeaves).
		WithMaxDepth(cfg.Train.MaxDepth).
		WithMinChildSamples(cfg.Train.MinChildSamples).
		WithRandomState(cfg.Train.Seed)
	if err := clf.Fit(X, y); err != nil {
		return errors.Wrap(err, "fitting classifier")
	}

	native, err := clf.PredictProba(X)
	if err != nil {
		return errors.Wrap(err, "native prediction")
	}

	rows, cols := X.Dims()
	features := make([]float32, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			features = append(features, float32(X.At(i, j)))
		}
	}
	exported, err := session.PredictProba(features, rows)
	if err != nil {
		return errors.Wrap(err, "runtime prediction")
	}

	maxDiff := 0.0
	for i := 0; i < rows; i++ {
		diff := math.Abs(native.At(i, 1) - exported[i])
		if diff > maxDiff {
			maxDiff = diff
		}
	}
	logger.Info("verification finished",
		log.SamplesKey, rows,
		"max_probability_diff", maxDiff)

	if maxDiff > verifyTolerance {
		return errors.Newf("exported model diverges from native predictor: max diff %g exceeds tolerance %g",
			maxDiff, verifyTolerance)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Model %s verified: max probability diff %.2g\n", modelPath, maxDiff)
	return nil
}
