package store

import (
	"database/sql"
	"time"

	"github.com/Abdullahalhasan627/ShieldAI/pkg/errors"
)

// Run is one recorded training run.
type Run struct {
	ID        int64
	CreatedAt time.Time

	// Hyperparameters.
	Samples      int
	Features     int
	Iterations   int
	LearningRate float64
	NumLeaves    int
	Seed         int

	// Training-set evaluation metrics.
	Accuracy float64
	AUC      float64
	LogLoss  float64

	DurationMs int64

	// Exported artifact.
	ArtifactPath   string
	ArtifactSHA256 string
	ArtifactBytes  int64
}

// RecordRun inserts a run and returns its assigned id.
func (d *DB) RecordRun(run *Run) (int64, error) {
	res, err := d.db.Exec(`
		INSERT INTO runs (samples, features, iterations, learning_rate, num_leaves, seed,
			accuracy, auc, log_loss, duration_ms, artifact_path, artifact_sha256, artifact_bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Samples, run.Features, run.Iterations, run.LearningRate, run.NumLeaves, run.Seed,
		run.Accuracy, run.AUC, run.LogLoss, run.DurationMs,
		run.ArtifactPath, run.ArtifactSHA256, run.ArtifactBytes,
	)
	if err != nil {
		return 0, errors.Wrap(err, "recording run")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "reading run id")
	}
	run.ID = id
	return id, nil
}

// GetRun retrieves a single run by id.
func (d *DB) GetRun(id int64) (*Run, error) {
	row := d.db.QueryRow(`
		SELECT id, created_at, samples, features, iterations, learning_rate, num_leaves, seed,
		       accuracy, auc, log_loss, duration_ms, artifact_path, artifact_sha256, artifact_bytes
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Newf("run %d not found", id)
	}
	return run, err
}

// ListRuns retrieves the most recent runs, newest first. A non-positive
// limit returns all runs.
func (d *DB) ListRuns(limit int) ([]Run, error) {
	query := `
		SELECT id, created_at, samples, features, iterations, learning_rate, num_leaves, seed,
		       accuracy, auc, log_loss, duration_ms, artifact_path, artifact_sha256, artifact_bytes
		FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var createdAt string
	var accuracy, auc, logLoss sql.NullFloat64

	err := s.Scan(
		&run.ID, &createdAt, &run.Samples, &run.Features, &run.Iterations,
		&run.LearningRate, &run.NumLeaves, &run.Seed,
		&accuracy, &auc, &logLoss, &run.DurationMs,
		&run.ArtifactPath, &run.ArtifactSHA256, &run.ArtifactBytes,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "scanning run")
	}

	run.Accuracy = accuracy.Float64
	run.AUC = auc.Float64
	run.LogLoss = logLoss.Float64
	if ts, err := time.Parse("2006-01-02 15:04:05", createdAt); err == nil {
		run.CreatedAt = ts
	}
	return &run, nil
}
