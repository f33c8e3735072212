package cmd

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/Abdullahalhasan627/ShieldAI/dataset"
	"github.com/Abdullahalhasan627/ShieldAI/lightgbm"
	"github.com/Abdullahalhasan627/ShieldAI/metrics"
	"github.com/Abdullahalhasan627/ShieldAI/onnx"
	"github.com/Abdullahalhasan627/ShieldAI/pkg/errors"
	"github.com/Abdullahalhasan627/ShieldAI/pkg/log"
	"github.com/Abdullahalhasan627/ShieldAI/store"
	"github.com/Abdullahalhasan627/ShieldAI/visualize"
)

var (
	trainOutput  string
	trainNoStore bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a classifier on synthetic data and export it as ONNX",
	Long: `Train generates a synthetic binary classification dataset, fits a
gradient-boosted tree ensemble on it, converts the fitted model to an
ONNX TreeEnsembleClassifier, and writes the result to disk. Metrics and
artifact details are recorded in the run registry.`,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().StringVarP(&trainOutput, "output", "o", "", "output path for the ONNX model (overrides config)")
	trainCmd.Flags().BoolVar(&trainNoStore, "no-store", false, "skip recording the run in the registry")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "loading config")
	}
	setupLogging(cfg)
	logger := log.GetLoggerWithName("train")

	outputPath := cfg.Export.Path
	if trainOutput != "" {
		outputPath = trainOutput
	}

	logger.Info("generating dataset",
		log.SamplesKey, cfg.Data.Samples,
		log.FeaturesKey, cfg.Data.Features)
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

	start := time.Now()
	if err := clf.Fit(X, y); err != nil {
		return errors.Wrap(err, "fitting classifier")
	}
	elapsed := time.Since(start)
	logger.Info("training finished",
		log.IterationKey, cfg.Train.Iterations,
		log.DurationMsKey, elapsed.Milliseconds())

	run, err := evaluate(clf, X, y, logger)
	if err != nil {
		return errors.Wrap(err, "evaluating classifier")
	}
	run.Samples = cfg.Data.Samples
	run.Features = cfg.Data.Features
	run.Iterations = cfg.Train.Iterations
	run.LearningRate = cfg.Train.LearningRate
	run.NumLeaves = cfg.Train.NumLeaves
	run.Seed = cfg.Train.Seed
	run.DurationMs = elapsed.Milliseconds()

	data, err := onnx.Convert(clf.Model, onnx.WithInputName(cfg.Export.InputName))
	if err != nil {
		return errors.Wrap(err, "converting model")
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", outputPath)
	}
	digest := sha256.Sum256(data)
	run.ArtifactPath = outputPath
	run.ArtifactSHA256 = hex.EncodeToString(digest[:])
	run.ArtifactBytes = int64(len(data))
	logger.Info("model exported",
		log.ArtifactKey, outputPath,
		log.ArtifactBytesKey, len(data))

	if cfg.Export.LossCurve != "" {
		if err := visualize.SaveLossCurve(clf.LossHistory(), cfg.Export.LossCurve); err != nil {
			return errors.Wrap(err, "saving loss curve")
		}
		logger.Info("loss curve saved", log.ArtifactKey, cfg.Export.LossCurve)
	}

	if !trainNoStore {
		db, err := store.Open(cfg.Store.Path)
		if err != nil {
			return errors.Wrap(err, "opening run registry")
		}
		defer db.Close()
		id, err := db.RecordRun(run)
		if err != nil {
			return errors.Wrap(err, "recording run")
		}
		logger.Debug("run recorded", "run.id", id)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Model exported to %s\n", outputPath)
	return nil
}

// evaluate computes training-set metrics for a fitted classifier.
func evaluate(clf *lightgbm.LGBMClassifier, X, y mat.Matrix, logger log.Logger) (*store.Run, error) {
	accuracy, err := clf.Score(X, y)
	if err != nil {
		return nil, err
	}

	proba, err := clf.PredictProba(X)
	if err != nil {
		return nil, err
	}

	rows, _ := y.Dims()
	yVec := mat.NewVecDense(rows, nil)
	pVec := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		yVec.SetVec(i, y.At(i, 0))
		pVec.SetVec(i, proba.At(i, 1))
	}

	auc, err := metrics.AUC(yVec, pVec)
	if err != nil {
		return nil, err
	}
	logLoss, err := metrics.BinaryLogLoss(yVec, pVec)
	if err != nil {
		return nil, err
	}

	logger.Info("training metrics",
		log.AccuracyKey, accuracy,
		log.AUCKey, auc,
		log.LossKey, logLoss)

	return &store.Run{
		Accuracy: accuracy,
		AUC:      auc,
		LogLoss:  logLoss,
	}, nil
}
