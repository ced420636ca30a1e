package timeparser_test

import (
	"testing"
	"time"

	"github.com/haryopr/txn-spike-worker/tools/timeparser"
)

func TestParseTransactionTime_EpochSeconds(t *testing.T) {
	result, err := timeparser.ParseTransactionTime("1700000000")
	if err != nil {
		t.Fatalf("Failed to parse timestamp: %v", err)
	}

	expected := time.Unix(1700000000, 0).UTC()
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseTransactionTime_FractionalEpochSeconds(t *testing.T) {
	result, err := timeparser.ParseTransactionTime("1700000000.5")
	if err != nil {
		t.Fatalf("Failed to parse timestamp: %v", err)
	}

	expected := time.Unix(1700000000, 500000000).UTC()
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseTransactionTime_RFC3339(t *testing.T) {
	result, err := timeparser.ParseTransactionTime("2025-12-29T10:30:45Z")
	if err != nil {
		t.Fatalf("Failed to parse timestamp: %v", err)
	}

	expected := time.Date(2025, 12, 29, 10, 30, 45, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseTransactionTime_DateTimeLayout(t *testing.T) {
	result, err := timeparser.ParseTransactionTime("2025-12-29 10:30:45")
	if err != nil {
		t.Fatalf("Failed to parse timestamp: %v", err)
	}

	expected := time.Date(2025, 12, 29, 10, 30, 45, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseTransactionTime_SlashLayout(t *testing.T) {
	result, err := timeparser.ParseTransactionTime("29/12/2025 10:30:45")
	if err != nil {
		t.Fatalf("Failed to parse timestamp: %v", err)
	}

	expected := time.Date(2025, 12, 29, 10, 30, 45, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseTransactionTime_Invalid(t *testing.T) {
	_, err := timeparser.ParseTransactionTime("invalid-date-string")
	if err == nil {
		t.Error("Expected error for invalid timestamp")
	}
}

func TestParseTransactionTime_Empty(t *testing.T) {
	_, err := timeparser.ParseTransactionTime("   ")
	if err == nil {
		t.Error("Expected error for empty timestamp")
	}
}

func TestFromEpochSeconds_NegativeEpoch(t *testing.T) {
	result := timeparser.FromEpochSeconds(-1)

	expected := time.Unix(-1, 0).UTC()
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}
