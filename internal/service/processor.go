package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/haryopr/txn-spike-worker/internal/anomaly"
	"github.com/haryopr/txn-spike-worker/internal/config"
	"github.com/haryopr/txn-spike-worker/internal/db"
	"github.com/haryopr/txn-spike-worker/internal/logging"
	"github.com/haryopr/txn-spike-worker/internal/mq"
	"github.com/haryopr/txn-spike-worker/internal/series"
	"github.com/haryopr/txn-spike-worker/internal/validator"
	"go.uber.org/zap"
)

// IngestMessage represents the incoming batch from RabbitMQ
type IngestMessage struct {
	RequestID    string                     `json:"request_id"`
	Source       string                     `json:"source"`
	ReceivedAt   time.Time                  `json:"received_at"`
	Transactions []validator.RawTransaction `json:"transactions"`
}

// RunStore persists completed detection runs.
type RunStore interface {
	SaveDetectionRun(ctx context.Context, run *db.DetectionRun, scored []db.ScoredTransaction) error
	TouchSource(ctx context.Context, source string) error
}

// EventPublisher publishes detection events.
type EventPublisher interface {
	PublishAnomalyEvent(ctx context.Context, event mq.AnomalyEvent, routingKey string) error
	PublishRunSummary(ctx context.Context, event mq.RunSummaryEvent, routingKey string) error
}

// ProcessorService runs the order-then-detect pipeline over each
// incoming transaction batch.
type ProcessorService struct {
	store     RunStore
	publisher EventPublisher
	detector  *anomaly.Detector
	validator *validator.Validator
	cfg       *config.Config
	logger    *zap.Logger
}

// NewProcessorService creates a new processor service
func NewProcessorService(
	store RunStore,
	publisher EventPublisher,
	detector *anomaly.Detector,
	validator *validator.Validator,
	cfg *config.Config,
	logger *zap.Logger,
) *ProcessorService {
	return &ProcessorService{
		store:     store,
		publisher: publisher,
		detector:  detector,
		validator: validator,
		cfg:       cfg,
		logger:    logger,
	}
}

// ProcessMessage processes one transaction batch. A malformed record
// rejects the whole batch; an empty batch is rejected as insufficient
// data. Detection is deterministic, so identical input and config
// always produce an identical run.
func (s *ProcessorService) ProcessMessage(ctx context.Context, body []byte) error {
	var msg IngestMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal batch: %w", err)
	}

	reqLogger := logging.WithRequestID(s.logger, msg.RequestID)
	reqLogger.Info("processing transaction batch",
		zap.String("source", msg.Source),
		zap.Int("transaction_count", len(msg.Transactions)),
	)

	if len(msg.Transactions) == 0 {
		reqLogger.Error("rejecting empty batch")
		return fmt.Errorf("batch %q: %w", msg.RequestID, anomaly.ErrInsufficientData)
	}

	result, run, scored, err := s.runDetection(msg.Source, msg.Transactions)
	if err != nil {
		reqLogger.Error("failed to score batch", zap.Error(err))
		return err
	}

	if err := s.store.TouchSource(ctx, msg.Source); err != nil {
		reqLogger.Error("failed to record batch source", zap.Error(err))
		return fmt.Errorf("failed to record batch source: %w", err)
	}

	if err := s.store.SaveDetectionRun(ctx, run, scored); err != nil {
		reqLogger.Error("failed to persist detection run", zap.Error(err))
		return fmt.Errorf("failed to persist detection run: %w", err)
	}

	runLogger := logging.WithRunID(reqLogger, run.ID.String())

	// Publish events after successful commit; publish failures are
	// logged but do not fail the already-persisted run
	for _, row := range scored {
		if !row.IsAnomaly {
			continue
		}
		event := mq.AnomalyEvent{
			RunID:         run.ID.String(),
			TransactionID: row.TransactionID,
			OccurredAt:    row.OccurredAt.Format(time.RFC3339),
			Amount:        row.Amount,
			RollingSum:    row.RollingSum,
			Threshold:     run.Threshold,
		}
		if err := s.publisher.PublishAnomalyEvent(ctx, event, s.cfg.RabbitMQ.AnomalyRoutingKey); err != nil {
			runLogger.Error("failed to publish anomaly event",
				zap.Error(err),
				zap.String("transaction_id", row.TransactionID),
			)
		}
	}

	summary := mq.RunSummaryEvent{
		RunID:            run.ID.String(),
		Source:           run.Source,
		WindowSize:       run.WindowSize,
		AnomalyQuantile:  run.AnomalyQuantile,
		Threshold:        run.Threshold,
		TransactionCount: run.TransactionCount,
		AnomalyCount:     run.AnomalyCount,
	}
	if err := s.publisher.PublishRunSummary(ctx, summary, s.cfg.RabbitMQ.SummaryRoutingKey); err != nil {
		runLogger.Error("failed to publish run summary", zap.Error(err))
	}

	runLogger.Info("batch scored successfully",
		zap.Float64("threshold", result.Threshold),
		zap.Int("anomaly_count", run.AnomalyCount),
	)

	return nil
}

// runDetection validates, orders and scores a raw batch, producing the
// run row and the labeled transactions ready for persistence.
func (s *ProcessorService) runDetection(source string, raws []validator.RawTransaction) (anomaly.Result, *db.DetectionRun, []db.ScoredTransaction, error) {
	startedAt := time.Now()

	txns, err := s.validator.ValidateBatch(raws)
	if err != nil {
		return anomaly.Result{}, nil, nil, err
	}

	series.Order(txns)
	result := s.detector.Detect(series.Amounts(txns))

	run := &db.DetectionRun{
		ID:               uuid.New(),
		Source:           source,
		WindowSize:       s.cfg.Detection.WindowSize,
		AnomalyQuantile:  s.cfg.Detection.AnomalyQuantile,
		Threshold:        result.Threshold,
		TransactionCount: len(txns),
		AnomalyCount:     result.AnomalyCount(),
		StartedAt:        startedAt,
		CompletedAt:      time.Now(),
	}

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

	return result, run, scored, nil
}
