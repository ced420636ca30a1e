package ingest_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/haryopr/txn-spike-worker/internal/ingest"
	"github.com/haryopr/txn-spike-worker/internal/validator"
)

func TestRead_RecognizesColumns(t *testing.T) {
	csv := "id,time,amount,v1,v2\n" +
		"txn-1,1700000000,12.50,0.3,1.1\n" +
		"txn-2,1700000060,99.00,0.4,2.2\n"

	raws, err := ingest.Read(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(raws) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(raws))
	}
	if raws[0].ID != "txn-1" || raws[0].Time != "1700000000" || raws[0].Amount != "12.50" {
		t.Errorf("unexpected first record: %+v", raws[0])
	}
	if raws[1].Attributes["v1"] != 0.4 || raws[1].Attributes["v2"] != 2.2 {
		t.Errorf("unexpected attributes: %+v", raws[1].Attributes)
	}
}

func TestRead_SynthesizesIDsWhenAbsent(t *testing.T) {
	csv := "Timestamp,Amount\n100,1\n200,2\n"

	raws, err := ingest.Read(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if raws[0].ID != "1" || raws[1].ID != "2" {
		t.Errorf("expected row-number IDs, got %q and %q", raws[0].ID, raws[1].ID)
	}
}

func TestRead_EmptyInput(t *testing.T) {
	raws, err := ingest.Read(strings.NewReader(""))
	if err != nil {
		t.Fatalf("empty input must not be an error, got: %v", err)
	}
	if len(raws) != 0 {
		t.Errorf("expected no transactions, got %d", len(raws))
	}
}

func TestRead_HeaderOnly(t *testing.T) {
	raws, err := ingest.Read(strings.NewReader("time,amount\n"))
	if err != nil {
		t.Fatalf("header-only input must not be an error, got: %v", err)
	}
	if len(raws) != 0 {
		t.Errorf("expected no transactions, got %d", len(raws))
	}
}

func TestRead_MissingAmountColumn(t *testing.T) {
	_, err := ingest.Read(strings.NewReader("time,total\n100,5\n"))
	if err == nil {
		t.Error("expected error for header without amount column")
	}
}

func TestRead_MissingTimeColumn(t *testing.T) {
	_, err := ingest.Read(strings.NewReader("when,amount\n100,5\n"))
	if err == nil {
		t.Error("expected error for header without time column")
	}
}

func TestRead_NonNumericAttribute(t *testing.T) {
	csv := "time,amount,score\n100,5,high\n"

	_, err := ingest.Read(strings.NewReader(csv))
	if !errors.Is(err, validator.ErrMalformedInput) {
		t.Errorf("expected ErrMalformedInput for non-numeric attribute, got %v", err)
	}
}

func TestRead_BlankAttributeCellSkipped(t *testing.T) {
	csv := "time,amount,score\n100,5,\n"

	raws, err := ingest.Read(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := raws[0].Attributes["score"]; ok {
		t.Error("blank attribute cell should be absent from the attribute map")
	}
}
