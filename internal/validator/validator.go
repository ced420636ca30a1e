package validator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/haryopr/txn-spike-worker/internal/series"
	"github.com/haryopr/txn-spike-worker/tools/timeparser"
)

// ErrMalformedInput marks a transaction whose time or amount field
// cannot be interpreted as a number. The caller rejects the whole
// batch; no partial result is produced.
var ErrMalformedInput = errors.New("malformed input")

// RawTransaction is a transaction as delivered by ingestion, with the
// time and amount fields still in wire form.
type RawTransaction struct {
	ID         string             `json:"id"`
	Time       string             `json:"time"`
	Amount     string             `json:"amount"`
	Attributes map[string]float64 `json:"attributes,omitempty"`
}

// Validator parses raw transactions into series records.
type Validator struct{}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateTransaction parses one raw record. Negative or zero amounts
// are accepted unchanged; only unparseable fields are errors.
func (v *Validator) ValidateTransaction(raw RawTransaction) (series.Transaction, error) {
	occurredAt, err := timeparser.ParseTransactionTime(raw.Time)
	if err != nil {
		return series.Transaction{}, fmt.Errorf("%w: transaction %q time: %v", ErrMalformedInput, raw.ID, err)
	}

	amountStr := strings.TrimSpace(raw.Amount)
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil {
		return series.Transaction{}, fmt.Errorf("%w: transaction %q amount %q is not numeric", ErrMalformedInput, raw.ID, raw.Amount)
	}

	return series.Transaction{
		ID:         raw.ID,
		Time:       occurredAt,
		Amount:     amount,
		Attributes: raw.Attributes,
	}, nil
}

// ValidateBatch parses a full batch, failing on the first malformed
// record.
func (v *Validator) ValidateBatch(raws []RawTransaction) ([]series.Transaction, error) {
	txns := make([]series.Transaction, 0, len(raws))
	for _, raw := range raws {
		txn, err := v.ValidateTransaction(raw)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, nil
}
