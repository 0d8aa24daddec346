// Package db keeps a SQLite ledger of training runs.
package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// TrainingRun is one trainer invocation.
type TrainingRun struct {
	ID           string    `json:"id"`
	Dataset      string    `json:"dataset"`
	Rows         int       `json:"rows"`
	Features     int       `json:"features"`
	Classes      int       `json:"classes"`
	Trees        int       `json:"trees"`
	MaxDepth     int       `json:"max_depth"`
	LearningRate float64   `json:"learning_rate"`
	Seed         int64     `json:"seed"`
	Accuracy     float64   `json:"accuracy"`
	TrainLoss    float64   `json:"train_loss"`
	ValidLoss    float64   `json:"valid_loss"`
	ModelPath    string    `json:"model_path"`
	Duration     float64   `json:"duration_seconds"`
	TrainedAt    time.Time `json:"trained_at"`
}

// RunStore persists training runs in SQLite. It is safe for concurrent use.
type RunStore struct {
	db *sql.DB
}

// Open opens or creates the ledger at path.
func Open(path string) (*RunStore, error) {
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	query := `
    CREATE TABLE IF NOT EXISTS training_log (
        id TEXT PRIMARY KEY,
        dataset TEXT NOT NULL,
        row_count INTEGER NOT NULL,
        features INTEGER NOT NULL,
        classes INTEGER NOT NULL,
        trees INTEGER NOT NULL,
        max_depth INTEGER NOT NULL,
        learning_rate REAL NOT NULL,
        seed INTEGER NOT NULL,
        accuracy REAL,
        train_loss REAL,
        valid_loss REAL,
        model_path TEXT,
        duration_seconds REAL,
        trained_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_training_log_trained_at ON training_log (trained_at);
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, err
	}
	return &RunStore{db: database}, nil
}

func (s *RunStore) Close() error {
	return s.db.Close()
}

// Record stores run, assigning an ID and timestamp when they are empty.
func (s *RunStore) Record(ctx context.Context, run *TrainingRun) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.TrainedAt.IsZero() {
		run.TrainedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO training_log (
            id, dataset, row_count, features, classes, trees, max_depth, learning_rate,
            seed, accuracy, train_loss, valid_loss, model_path, duration_seconds, trained_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		run.ID,
		run.Dataset,
		run.Rows,
		run.Features,
		run.Classes,
		run.Trees,
		run.MaxDepth,
		run.LearningRate,
		run.Seed,
		run.Accuracy,
		run.TrainLoss,
		run.ValidLoss,
		run.ModelPath,
		run.Duration,
		run.TrainedAt,
	)
	return err
}

// List returns up to limit runs, newest first.
func (s *RunStore) List(ctx context.Context, limit int) ([]TrainingRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, dataset, row_count, features, classes, trees, max_depth, learning_rate,
               seed, accuracy, train_loss, valid_loss, model_path, duration_seconds, trained_at
        FROM training_log
        ORDER BY trained_at DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]TrainingRun, 0)
	for rows.Next() {
		var run TrainingRun
		var accuracy, trainLoss, validLoss, duration sql.NullFloat64
		var modelPath sql.NullString
		if err := rows.Scan(&run.ID, &run.Dataset, &run.Rows, &run.Features, &run.Classes, &run.Trees,
			&run.MaxDepth, &run.LearningRate, &run.Seed, &accuracy, &trainLoss, &validLoss,
			&modelPath, &duration, &run.TrainedAt); err != nil {
			return nil, err
		}
		run.Accuracy = accuracy.Float64
		run.TrainLoss = trainLoss.Float64
		run.ValidLoss = validLoss.Float64
		run.ModelPath = modelPath.String
		run.Duration = duration.Float64
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
