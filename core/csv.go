package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// CSV LOADING
// ============================================================================

// ReadCSV parses a transaction table with a header naming date, amount,
// merchant, and category columns, in any order. Dates are "2006-01-02".
// Amounts follow the export convention of positive magnitudes: spending
// rows are normalized to negative amounts, income stays positive.
func ReadCSV(r io.Reader) ([]Transaction, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"date", "amount", "merchant", "category"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var txns []Transaction
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		date, err := time.Parse("2006-01-02", strings.TrimSpace(record[cols["date"]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad date: %w", line, err)
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(record[cols["amount"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad amount: %w", line, err)
		}
		t := Transaction{
			Date:     date,
			Amount:   amount,
			Merchant: strings.TrimSpace(record[cols["merchant"]]),
			Category: strings.TrimSpace(record[cols["category"]]),
		}
		txns = append(txns, t)
	}
	return Normalize(txns), nil
}

// LoadCSV reads a transaction table from a file.
func LoadCSV(path string) ([]Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	txns, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return txns, nil
}
