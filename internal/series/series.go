package series

import (
	"sort"
	"time"
)

// Transaction is a single timestamped payment record. Attributes holds
// opaque numeric columns carried through from ingestion; the detector
// never reads them.
type Transaction struct {
	ID         string
	Time       time.Time
	Amount     float64
	Attributes map[string]float64
}

// Order sorts transactions by non-decreasing time. The sort is stable:
// records with equal timestamps keep their relative input order, so the
// contents of any downstream window are reproducible.
func Order(txns []Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].Time.Before(txns[j].Time)
	})
}

// Amounts extracts the amount column in series order.
func Amounts(txns []Transaction) []float64 {
	amounts := make([]float64, len(txns))
	for i, txn := range txns {
		amounts[i] = txn.Amount
	}
	return amounts
}
