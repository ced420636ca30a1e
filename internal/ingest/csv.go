package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/haryopr/txn-spike-worker/internal/validator"
)

// column names recognized for the two required fields
var (
	timeColumns   = map[string]bool{"time": true, "timestamp": true, "date": true}
	amountColumns = map[string]bool{"amount": true, "value": true}
	idColumns     = map[string]bool{"id": true, "transaction_id": true, "txn_id": true}
)

// LoadCSV reads a transaction table from a CSV file. The header row
// must name a time column and an amount column; an id column is
// optional (row numbers are used when absent) and every other column is
// carried as an opaque numeric attribute. A non-numeric attribute cell
// is malformed input, same as a bad time or amount.
func LoadCSV(path string) ([]validator.RawTransaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read parses a transaction table from an open CSV stream.
func Read(r io.Reader) ([]validator.RawTransaction, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		// No header at all is an empty series, not an error
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	timeIdx, amountIdx, idIdx := -1, -1, -1
	attrIdx := map[int]string{}
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		switch {
		case timeColumns[key] && timeIdx < 0:
			timeIdx = i
		case amountColumns[key] && amountIdx < 0:
			amountIdx = i
		case idColumns[key] && idIdx < 0:
			idIdx = i
		default:
			attrIdx[i] = strings.TrimSpace(name)
		}
	}

	if timeIdx < 0 {
		return nil, fmt.Errorf("CSV header has no time column (expected one of: time, timestamp, date)")
	}
	if amountIdx < 0 {
		return nil, fmt.Errorf("CSV header has no amount column (expected one of: amount, value)")
	}

	var raws []validator.RawTransaction
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", row+1, err)
		}
		row++

		raw := validator.RawTransaction{
			Time:   record[timeIdx],
			Amount: record[amountIdx],
		}
		if idIdx >= 0 {
			raw.ID = record[idIdx]
		} else {
			raw.ID = strconv.Itoa(row)
		}

		if len(attrIdx) > 0 {
			raw.Attributes = make(map[string]float64, len(attrIdx))
			for i, name := range attrIdx {
				cell := strings.TrimSpace(record[i])
				if cell == "" {
					continue
				}
				v, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					return nil, fmt.Errorf("%w: row %d column %q value %q is not numeric",
						validator.ErrMalformedInput, row, name, record[i])
				}
				raw.Attributes[name] = v
			}
		}

		raws = append(raws, raw)
	}

	return raws, nil
}
