package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/haryopr/txn-spike-worker/internal/anomaly"
	"github.com/haryopr/txn-spike-worker/internal/db"
	"github.com/haryopr/txn-spike-worker/internal/ingest"
	"github.com/haryopr/txn-spike-worker/internal/logging"
	"github.com/haryopr/txn-spike-worker/internal/repository"
	"github.com/haryopr/txn-spike-worker/internal/scaling"
	"github.com/haryopr/txn-spike-worker/internal/series"
	"github.com/haryopr/txn-spike-worker/internal/validator"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// backfill scores a historical transaction CSV in one shot, outside the
// queue-driven worker path. With DATABASE_URL set and -persist, the run
// is stored the same way worker runs are.
func main() {
	csvPath := flag.String("csv", "", "Path to transaction CSV (time and amount columns required)")
	windowSize := flag.Int("window", 5, "Trailing window size in transactions")
	quantile := flag.Float64("quantile", 0.99, "Anomaly threshold quantile, in (0,1)")
	persist := flag.Bool("persist", false, "Persist the run to DATABASE_URL")
	scaleFeatures := flag.Bool("scale-features", false, "Print standardized feature columns alongside the report")
	flag.Parse()

	_ = godotenv.Load()

	logger, err := logging.NewLogger("txn-spike-backfill")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *csvPath == "" {
		logger.Fatal("missing required -csv flag")
	}
	if *windowSize < 1 {
		logger.Fatal("window size must be a positive integer", zap.Int("window", *windowSize))
	}
	if *quantile <= 0 || *quantile >= 1 {
		logger.Fatal("quantile must be in (0,1)", zap.Float64("quantile", *quantile))
	}

	raws, err := ingest.LoadCSV(*csvPath)
	if err != nil {
		logger.Fatal("failed to load CSV", zap.Error(err))
	}

	// An empty file is an empty report, not an error
	if len(raws) == 0 {
		logger.Info("no transactions in CSV, nothing to score", zap.String("csv", *csvPath))
		return
	}

	startedAt := time.Now()

	txns, err := validator.NewValidator().ValidateBatch(raws)
	if err != nil {
		logger.Fatal("malformed transaction in CSV", zap.Error(err))
	}

	series.Order(txns)
	result := anomaly.NewDetector(*windowSize, *quantile).Detect(series.Amounts(txns))

	run := &db.DetectionRun{
		ID:               uuid.New(),
		Source:           *csvPath,
		WindowSize:       *windowSize,
		AnomalyQuantile:  *quantile,
		Threshold:        result.Threshold,
		TransactionCount: len(txns),
		AnomalyCount:     result.AnomalyCount(),
		StartedAt:        startedAt,
		CompletedAt:      time.Now(),
	}

	logger.Info("backfill run scored",
		zap.String("run_id", run.ID.String()),
		zap.Int("transaction_count", run.TransactionCount),
		zap.Int("anomaly_count", run.AnomalyCount),
		zap.Float64("threshold", run.Threshold),
	)

	for i, txn := range txns {
		if !result.Points[i].IsAnomaly {
			continue
		}
		fmt.Printf("%s\t%s\tamount=%.2f\trolling_sum=%.2f\tthreshold=%.2f\n",
			txn.ID,
			txn.Time.Format(time.RFC3339),
			txn.Amount,
			result.Points[i].RollingSum,
			run.Threshold,
		)
	}

	if *scaleFeatures {
		printScaledFeatures(txns)
	}

	if *persist {
		if err := persistRun(context.Background(), logger, run, txns, result); err != nil {
			logger.Fatal("failed to persist backfill run", zap.Error(err))
		}
		logger.Info("backfill run persisted", zap.String("run_id", run.ID.String()))
	}
}

// printScaledFeatures standardizes the opaque feature columns and dumps
// them per transaction. Kept apart from detection: the threshold is
// computed over rolling sums only, never over scaled features.
func printScaledFeatures(txns []series.Transaction) {
	columns := map[string][]float64{}
	for _, txn := range txns {
		for name := range txn.Attributes {
			if _, ok := columns[name]; !ok {
				columns[name] = make([]float64, len(txns))
			}
		}
	}
	for name := range columns {
		for i, txn := range txns {
			columns[name][i] = txn.Attributes[name]
		}
	}

	scaled := scaling.StandardizeColumns(columns)
	for name, values := range scaled {
		fmt.Printf("scaled %s:", name)
		for _, v := range values {
			fmt.Printf(" %.4f", v)
		}
		fmt.Println()
	}
}

func persistRun(ctx context.Context, logger *zap.Logger, run *db.DetectionRun, txns []series.Transaction, result anomaly.Result) error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for -persist")
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	scored := make([]db.ScoredTransaction, len(txns))
	for i, txn := range txns {
		scored[i] = db.ScoredTransaction{
			RunID:         run.ID,
			TransactionID: txn.ID,
			OccurredAt:    txn.Time,
			Amount:        txn.Amount,
			RollingSum:    result.Points[i].RollingSum,
			IsAnomaly:     result.Points[i].IsAnomaly,
			SeriesIndex:   i,
		}
	}

	repo := repository.NewRepository(pool)
	if err := repo.TouchSource(ctx, run.Source); err != nil {
		logger.Warn("failed to record batch source", zap.Error(err))
	}
	return repo.SaveDetectionRun(ctx, run, scored)
}
