package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/haryopr/txn-spike-worker/internal/anomaly"
	"github.com/haryopr/txn-spike-worker/internal/config"
	"github.com/haryopr/txn-spike-worker/internal/db"
	"github.com/haryopr/txn-spike-worker/internal/mq"
	"github.com/haryopr/txn-spike-worker/internal/service"
	"github.com/haryopr/txn-spike-worker/internal/validator"
	"go.uber.org/zap"
)

type fakeStore struct {
	runs    []*db.DetectionRun
	scored  [][]db.ScoredTransaction
	sources []string
}

func (f *fakeStore) SaveDetectionRun(ctx context.Context, run *db.DetectionRun, scored []db.ScoredTransaction) error {
	f.runs = append(f.runs, run)
	f.scored = append(f.scored, scored)
	return nil
}

func (f *fakeStore) TouchSource(ctx context.Context, source string) error {
	f.sources = append(f.sources, source)
	return nil
}

type fakePublisher struct {
	anomalies []mq.AnomalyEvent
	summaries []mq.RunSummaryEvent
}

func (f *fakePublisher) PublishAnomalyEvent(ctx context.Context, event mq.AnomalyEvent, routingKey string) error {
	f.anomalies = append(f.anomalies, event)
	return nil
}

func (f *fakePublisher) PublishRunSummary(ctx context.Context, event mq.RunSummaryEvent, routingKey string) error {
	f.summaries = append(f.summaries, event)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		ServiceName: "txn-spike-worker-test",
		Detection: config.DetectionConfig{
			WindowSize:      5,
			AnomalyQuantile: 0.99,
		},
	}
}

func newTestProcessor(store *fakeStore, publisher *fakePublisher) *service.ProcessorService {
	cfg := testConfig()
	detector := anomaly.NewDetector(cfg.Detection.WindowSize, cfg.Detection.AnomalyQuantile)
	return service.NewProcessorService(store, publisher, detector, validator.NewValidator(), cfg, zap.NewNop())
}

func batchBody(t *testing.T, msg service.IngestMessage) []byte {
	t.Helper()
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to marshal test message: %v", err)
	}
	return body
}

func TestProcessMessage_OrdersThenScores(t *testing.T) {
	store := &fakeStore{}
	publisher := &fakePublisher{}
	processor := newTestProcessor(store, publisher)

	// Shuffled input: the spike arrives first but belongs at the end of
	// the time-ordered series
	body := batchBody(t, service.IngestMessage{
		RequestID:  "req-1",
		Source:     "gateway-a",
		ReceivedAt: time.Now(),
		Transactions: []validator.RawTransaction{
			{ID: "spike", Time: "400", Amount: "1000"},
			{ID: "t0", Time: "0", Amount: "1"},
			{ID: "t2", Time: "200", Amount: "1"},
			{ID: "t1", Time: "100", Amount: "1"},
			{ID: "t3", Time: "300", Amount: "1"},
		},
	})

	if err := processor.ProcessMessage(context.Background(), body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.runs) != 1 {
		t.Fatalf("expected 1 persisted run, got %d", len(store.runs))
	}
	run := store.runs[0]
	scored := store.scored[0]

	if run.TransactionCount != 5 {
		t.Errorf("expected 5 transactions in run, got %d", run.TransactionCount)
	}
	if run.AnomalyCount != 1 {
		t.Errorf("expected 1 anomaly, got %d", run.AnomalyCount)
	}

	expectedOrder := []string{"t0", "t1", "t2", "t3", "spike"}
	expectedSums := []float64{1, 2, 3, 4, 1004}
	for i, id := range expectedOrder {
		if scored[i].TransactionID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, scored[i].TransactionID)
		}
		if scored[i].RollingSum != expectedSums[i] {
			t.Errorf("position %d: expected rolling sum %v, got %v", i, expectedSums[i], scored[i].RollingSum)
		}
		if scored[i].SeriesIndex != i {
			t.Errorf("position %d: expected series index %d, got %d", i, i, scored[i].SeriesIndex)
		}
	}

	if !scored[4].IsAnomaly {
		t.Error("expected the spike to be flagged")
	}

	if len(publisher.anomalies) != 1 {
		t.Fatalf("expected 1 anomaly event, got %d", len(publisher.anomalies))
	}
	if publisher.anomalies[0].TransactionID != "spike" {
		t.Errorf("expected anomaly event for 'spike', got %s", publisher.anomalies[0].TransactionID)
	}
	if publisher.anomalies[0].Threshold != run.Threshold {
		t.Errorf("event threshold %v does not match run threshold %v", publisher.anomalies[0].Threshold, run.Threshold)
	}

	if len(publisher.summaries) != 1 {
		t.Fatalf("expected 1 run summary, got %d", len(publisher.summaries))
	}
	if publisher.summaries[0].AnomalyCount != 1 {
		t.Errorf("expected summary anomaly count 1, got %d", publisher.summaries[0].AnomalyCount)
	}

	if len(store.sources) != 1 || store.sources[0] != "gateway-a" {
		t.Errorf("expected source 'gateway-a' recorded, got %v", store.sources)
	}
}

func TestProcessMessage_EmptyBatchRejected(t *testing.T) {
	store := &fakeStore{}
	publisher := &fakePublisher{}
	processor := newTestProcessor(store, publisher)

	body := batchBody(t, service.IngestMessage{
		RequestID: "req-empty",
		Source:    "gateway-a",
	})

	err := processor.ProcessMessage(context.Background(), body)
	if !errors.Is(err, anomaly.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	if len(store.runs) != 0 {
		t.Errorf("no run should be persisted for an empty batch, got %d", len(store.runs))
	}
}

func TestProcessMessage_MalformedRecordRejectsBatch(t *testing.T) {
	store := &fakeStore{}
	publisher := &fakePublisher{}
	processor := newTestProcessor(store, publisher)

	body := batchBody(t, service.IngestMessage{
		RequestID: "req-bad",
		Source:    "gateway-a",
		Transactions: []validator.RawTransaction{
			{ID: "good", Time: "100", Amount: "5"},
			{ID: "bad", Time: "not-a-time", Amount: "5"},
		},
	})

	err := processor.ProcessMessage(context.Background(), body)
	if !errors.Is(err, validator.ErrMalformedInput) {
		t.Errorf("expected ErrMalformedInput, got %v", err)
	}
	if len(store.runs) != 0 {
		t.Errorf("no partial run may be persisted, got %d", len(store.runs))
	}
	if len(publisher.anomalies) != 0 || len(publisher.summaries) != 0 {
		t.Error("nothing may be published for a rejected batch")
	}
}

func TestProcessMessage_InvalidJSON(t *testing.T) {
	processor := newTestProcessor(&fakeStore{}, &fakePublisher{})

	if err := processor.ProcessMessage(context.Background(), []byte("{not json")); err == nil {
		t.Error("expected error for invalid JSON body")
	}
}

func TestProcessMessage_RepeatRunsProduceIdenticalLabels(t *testing.T) {
	store := &fakeStore{}
	publisher := &fakePublisher{}
	processor := newTestProcessor(store, publisher)

	body := batchBody(t, service.IngestMessage{
		RequestID: "req-repeat",
		Source:    "gateway-a",
		Transactions: []validator.RawTransaction{
			{ID: "a", Time: "0", Amount: "10"},
			{ID: "b", Time: "1", Amount: "10"},
			{ID: "c", Time: "2", Amount: "10"},
			{ID: "d", Time: "3", Amount: "10"},
			{ID: "e", Time: "4", Amount: "10"},
		},
	})

	if err := processor.ProcessMessage(context.Background(), body); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if err := processor.ProcessMessage(context.Background(), body); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	first, second := store.runs[0], store.runs[1]
	if first.Threshold != second.Threshold {
		t.Errorf("thresholds differ across identical runs: %v vs %v", first.Threshold, second.Threshold)
	}
	if first.AnomalyCount != second.AnomalyCount {
		t.Errorf("anomaly counts differ across identical runs: %d vs %d", first.AnomalyCount, second.AnomalyCount)
	}
	for i := range store.scored[0] {
		a, b := store.scored[0][i], store.scored[1][i]
		if a.RollingSum != b.RollingSum || a.IsAnomaly != b.IsAnomaly || a.TransactionID != b.TransactionID {
			t.Errorf("scored row %d differs across identical runs: %+v vs %+v", i, a, b)
		}
	}
}
