package db

import (
	"time"

	"github.com/google/uuid"
)

// DetectionRun records one batch scoring pass and the threshold it
// derived. Thresholds are never reused across runs.
type DetectionRun struct {
	ID               uuid.UUID
	Source           string
	WindowSize       int
	AnomalyQuantile  float64
	Threshold        float64
	TransactionCount int
	AnomalyCount     int
	StartedAt        time.Time
	CompletedAt      time.Time
}

// ScoredTransaction is one labeled transaction belonging to a run, in
// series order.
type ScoredTransaction struct {
	ID            uuid.UUID
	RunID         uuid.UUID
	TransactionID string
	OccurredAt    time.Time
	Amount        float64
	RollingSum    float64
	IsAnomaly     bool
	SeriesIndex   int
}
