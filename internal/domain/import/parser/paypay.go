// Package parser turns PayPay transaction-history CSV exports into expense rows.
package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// ColumnCount is the number of columns in a PayPay export row.
	ColumnCount = 13

	// PaymentMarker is the 取引内容 value of a purchase.
	PaymentMarker = "支払い"

	noValue = "-"
	bom     = "\uFEFF"
)

// Header is the header row of a PayPay export.
var Header = []string{
	"取引日", "出金金額（円）", "入金金額（円）", "海外出金金額", "通貨", "変換レート（円）", "利用国",
	"取引内容", "取引先", "取引方法", "支払い区分", "利用者", "取引番号",
}

// ErrEmptyInput is returned when the content has no non-blank line.
var ErrEmptyInput = errors.New("csv content is empty")

var dateLayouts = []string{
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006/1/2",
}

// RawRow is one row of the PayPay export, column for column.
type RawRow struct {
	TransactionDate   string `csv:"取引日"`
	WithdrawalAmount  string `csv:"出金金額（円）"`
	DepositAmount     string `csv:"入金金額（円）"`
	ForeignWithdrawal string `csv:"海外出金金額"`
	Currency          string `csv:"通貨"`
	ExchangeRate      string `csv:"変換レート（円）"`
	Country           string `csv:"利用国"`
	TransactionType   string `csv:"取引内容"`
	Merchant          string `csv:"取引先"`
	PaymentMethod     string `csv:"取引方法"`
	PaymentCategory   string `csv:"支払い区分"`
	User              string `csv:"利用者"`
	TransactionID     string `csv:"取引番号"`
}

// ParsedExpense is a payment row normalized for persistence.
type ParsedExpense struct {
	Date                  time.Time
	Amount                int64 // whole yen, always > 0
	Merchant              string
	PaymentMethod         string
	ExternalTransactionID string
}

// ParseError describes a data row that could not become an expense.
type ParseError struct {
	Row     int
	Message string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// Result holds the output of one Parse call.
type Result struct {
	Expenses []ParsedExpense
	RawData  []RawRow
	Errors   []ParseError

	TotalRows   int // data rows after the header, malformed ones included
	ExpenseRows int
	SkippedRows int // rows with fewer than ColumnCount fields
}

// Parser parses PayPay exports. Dates are read as wall-clock values in loc.
type Parser struct {
	loc *time.Location
}

// NewParser returns a parser that builds dates in loc (time.Local when nil).
func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.Local
	}
	return &Parser{loc: loc}
}

// ParsePayPay parses content with dates in the local time zone.
func ParsePayPay(content string) (*Result, error) {
	return NewParser(time.Local).Parse(content)
}

// Parse splits content into rows, skips the header and collects payment rows.
func (p *Parser) Parse(content string) (*Result, error) {
	lines := nonBlankLines(strings.TrimPrefix(content, bom))
	if len(lines) == 0 {
		return nil, ErrEmptyInput
	}

	result := &Result{
		Expenses: make([]ParsedExpense, 0, len(lines)-1),
		RawData:  make([]RawRow, 0, len(lines)-1),
	}

	for i, line := range lines[1:] {
		rowNum := i + 1
		result.TotalRows++

		fields := splitFields(line)
		if len(fields) < ColumnCount {
			result.SkippedRows++
			continue
		}

		raw := newRawRow(fields)
		result.RawData = append(result.RawData, raw)

		if raw.TransactionType != PaymentMarker {
			continue
		}
		amount := ParseAmount(raw.WithdrawalAmount)
		if amount <= 0 {
			continue
		}

		date, err := p.ParseDate(raw.TransactionDate)
		if err != nil {
			result.Errors = append(result.Errors, ParseError{Row: rowNum, Message: err.Error()})
			continue
		}

		result.Expenses = append(result.Expenses, ParsedExpense{
			Date:                  date,
			Amount:                amount,
			Merchant:              raw.Merchant,
			PaymentMethod:         raw.PaymentMethod,
			ExternalTransactionID: raw.TransactionID,
		})
	}

	result.ExpenseRows = len(result.Expenses)
	return result, nil
}

// ParseDate reads YYYY/MM/DD with an optional HH:MM[:SS] part.
func (p *Parser) ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, p.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}

// ParseAmount reads a vendor-formatted yen amount ("3,600", "-").
// Anything that is not a number yields 0.
func ParseAmount(value string) int64 {
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if cleaned == "" || cleaned == noValue {
		return 0
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0
	}
	return d.IntPart()
}

func nonBlankLines(content string) []string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// splitFields splits one line on commas outside double quotes.
func splitFields(line string) []string {
	r := csv.NewReader(strings.NewReader(line))
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	record, err := r.Read()
	if err != nil {
		return nil
	}
	for i, field := range record {
		record[i] = strings.TrimSpace(strings.ReplaceAll(field, `"`, ""))
	}
	return record
}

func newRawRow(f []string) RawRow {
	return RawRow{
		TransactionDate:   f[0],
		WithdrawalAmount:  f[1],
		DepositAmount:     f[2],
		ForeignWithdrawal: f[3],
		Currency:          f[4],
		ExchangeRate:      f[5],
		Country:           f[6],
		TransactionType:   f[7],
		Merchant:          f[8],
		PaymentMethod:     f[9],
		PaymentCategory:   f[10],
		User:              f[11],
		TransactionID:     f[12],
	}
}
