package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/haryopr/txn-spike-worker/internal/db"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Tx is an alias for pgx.Tx
type Tx = pgx.Tx

// Repository handles database operations
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// BeginTx starts a new transaction
func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// InsertDetectionRunTx inserts a detection run row within a transaction
func (r *Repository) InsertDetectionRunTx(ctx context.Context, tx pgx.Tx, run *db.DetectionRun) error {
	query := `
		INSERT INTO detection_runs (
			id, source, window_size, anomaly_quantile, threshold,
			transaction_count, anomaly_count, started_at, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := tx.Exec(ctx, query,
		run.ID,
		run.Source,
		run.WindowSize,
		run.AnomalyQuantile,
		run.Threshold,
		run.TransactionCount,
		run.AnomalyCount,
		run.StartedAt,
		run.CompletedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert detection run: %w", err)
	}

	return nil
}

// InsertScoredTransactionTx inserts a labeled transaction within a transaction
func (r *Repository) InsertScoredTransactionTx(ctx context.Context, tx pgx.Tx, scored *db.ScoredTransaction) error {
	query := `
		INSERT INTO scored_transactions (
			run_id, transaction_id, occurred_at, amount,
			rolling_sum, is_anomaly, series_index
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.Exec(ctx, query,
		scored.RunID,
		scored.TransactionID,
		scored.OccurredAt,
		scored.Amount,
		scored.RollingSum,
		scored.IsAnomaly,
		scored.SeriesIndex,
	)

	if err != nil {
		return fmt.Errorf("failed to insert scored transaction: %w", err)
	}

	return nil
}

// SaveDetectionRun persists a run and its labeled transactions in a
// single database transaction.
func (r *Repository) SaveDetectionRun(ctx context.Context, run *db.DetectionRun, scored []db.ScoredTransaction) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.InsertDetectionRunTx(ctx, tx, run); err != nil {
		return err
	}

	for i := range scored {
		if err := r.InsertScoredTransactionTx(ctx, tx, &scored[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetRecentAnomalies returns the most recently flagged transactions
// across runs, newest first.
func (r *Repository) GetRecentAnomalies(ctx context.Context, limit int) ([]db.ScoredTransaction, error) {
	query := `
		SELECT run_id, transaction_id, occurred_at, amount, rolling_sum, is_anomaly, series_index
		FROM scored_transactions
		WHERE is_anomaly = TRUE
		ORDER BY occurred_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent anomalies: %w", err)
	}
	defer rows.Close()

	var anomalies []db.ScoredTransaction
	for rows.Next() {
		var scored db.ScoredTransaction
		if err := rows.Scan(
			&scored.RunID,
			&scored.TransactionID,
			&scored.OccurredAt,
			&scored.Amount,
			&scored.RollingSum,
			&scored.IsAnomaly,
			&scored.SeriesIndex,
		); err != nil {
			return nil, fmt.Errorf("failed to scan scored transaction: %w", err)
		}
		anomalies = append(anomalies, scored)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return anomalies, nil
}

// GetRunByID fetches a single detection run.
func (r *Repository) GetRunByID(ctx context.Context, runID uuid.UUID) (*db.DetectionRun, error) {
	query := `
		SELECT id, source, window_size, anomaly_quantile, threshold,
		       transaction_count, anomaly_count, started_at, completed_at
		FROM detection_runs
		WHERE id = $1
	`

	var run db.DetectionRun
	err := r.pool.QueryRow(ctx, query, runID).Scan(
		&run.ID,
		&run.Source,
		&run.WindowSize,
		&run.AnomalyQuantile,
		&run.Threshold,
		&run.TransactionCount,
		&run.AnomalyCount,
		&run.StartedAt,
		&run.CompletedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("detection run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query detection run: %w", err)
	}

	return &run, nil
}

// TouchSource records when a batch source was last seen, creating the
// row on first contact.
func (r *Repository) TouchSource(ctx context.Context, source string) error {
	query := `
		INSERT INTO batch_sources (source, first_seen_at, last_seen_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (source) DO UPDATE SET last_seen_at = $2
	`

	if _, err := r.pool.Exec(ctx, query, source, time.Now()); err != nil {
		return fmt.Errorf("failed to touch batch source: %w", err)
	}

	return nil
}
