// Package source reads already-structured bank transactions from CSV.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
)

// Columns lists the header names ReadCSV expects, in any order.
var Columns = []string{"fiscal_period", "date", "details", "debit", "credit"}

var dateLayouts = []string{"2006-01-02", "2006/01/02", "02/01/2006"}

// ReadCSV parses transactions for tenantID. The first row must be a header
// naming every column in Columns. Blank rows are skipped; any malformed row
// fails the whole read with a line-numbered validation error.
func ReadCSV(r io.Reader, tenantID int64) ([]model.BankTransaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var txns []model.BankTransaction
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}

		line, _ := reader.FieldPos(0)
		if blank(record) {
			continue
		}

		txn, err := parseRecord(record, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		txn.TenantID = tenantID
		txns = append(txns, txn)
	}
	return txns, nil
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	var missing []string
	for _, c := range Columns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, model.Validationf("CSV header is missing columns: %s", strings.Join(missing, ", "))
	}
	return index, nil
}

func parseRecord(record []string, index map[string]int) (model.BankTransaction, error) {
	var txn model.BankTransaction

	field := func(name string) string {
		i := index[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	period, err := strconv.ParseInt(field("fiscal_period"), 10, 64)
	if err != nil {
		return txn, model.Validationf("invalid fiscal period %q", field("fiscal_period"))
	}

	date, err := parseDate(field("date"))
	if err != nil {
		return txn, err
	}

	details := field("details")
	if details == "" {
		return txn, model.Validationf("empty details")
	}

	debit, err := parseAmount(field("debit"))
	if err != nil {
		return txn, err
	}
	credit, err := parseAmount(field("credit"))
	if err != nil {
		return txn, err
	}

	txn.FiscalPeriodID = period
	txn.Date = date
	txn.Details = details
	txn.DebitAmount = debit
	txn.CreditAmount = credit
	return txn, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, model.Validationf("invalid date %q", s)
}

// parseAmount accepts an empty cell as zero and ignores thousands separators.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.NewReplacer(",", "", " ", "").Replace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, model.Validationf("invalid amount %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, model.Validationf("negative amount %q", s)
	}
	return d, nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
