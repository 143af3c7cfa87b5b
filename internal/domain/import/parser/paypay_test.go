package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payPayHeader = "取引日,出金金額（円）,入金金額（円）,海外出金金額,通貨,変換レート（円）,利用国,取引内容,取引先,取引方法,支払い区分,利用者,取引番号"

func payPayCSV(rows ...string) string {
	return payPayHeader + "\n" + strings.Join(rows, "\n")
}

func TestParsePayPay(t *testing.T) {
	content := payPayCSV(
		`2024/06/15 09:30:45,"3,600",-,-,-,-,-,支払い,セブン-イレブン 渋谷店,PayPay残高,-,-,04500000000000000001`,
		`2024/06/15 10:00:00,-,50,-,-,-,-,ポイント、残高の獲得,PayPay,PayPayポイント,-,-,04500000000000000002`,
		`2024/06/16 12:00:00,0,-,-,-,-,-,支払い,無料サンプル,PayPay残高,-,-,04500000000000000003`,
		`2024/06/16,100,支払い`,
		``,
		`2024/06/17 18:20:00,"1,280",-,-,-,-,-,支払い,"Amazon, Inc",PayPayカード,-,-,04500000000000000004`,
		`2024/06/18 08:00:00,-,"10,000",-,-,-,-,チャージ,三井住友銀行,銀行口座,-,-,04500000000000000005`,
	)

	result, err := ParsePayPay(content)
	require.NoError(t, err)

	assert.Equal(t, 6, result.TotalRows)
	assert.Equal(t, 1, result.SkippedRows)
	assert.Len(t, result.RawData, 5)
	assert.Equal(t, 2, result.ExpenseRows)
	require.Len(t, result.Expenses, 2)
	assert.Empty(t, result.Errors)

	first := result.Expenses[0]
	assert.Equal(t, int64(3600), first.Amount)
	assert.Equal(t, "セブン-イレブン 渋谷店", first.Merchant)
	assert.Equal(t, "PayPay残高", first.PaymentMethod)
	assert.Equal(t, "04500000000000000001", first.ExternalTransactionID)

	second := result.Expenses[1]
	assert.Equal(t, "Amazon, Inc", second.Merchant)
	assert.Equal(t, int64(1280), second.Amount)
}

func TestParsePayPay_OnlyPositivePaymentsBecomeExpenses(t *testing.T) {
	content := payPayCSV(
		`2024/07/01 09:00:00,500,-,-,-,-,-,支払い,ローソン,PayPay残高,-,-,A1`,
		`2024/07/01 09:00:00,-500,-,-,-,-,-,支払い,返金テスト,PayPay残高,-,-,A2`,
		`2024/07/01 09:00:00,500,-,-,-,-,-,送った金額,友人,PayPay残高,-,-,A3`,
		`2024/07/01 09:00:00,abc,-,-,-,-,-,支払い,壊れた金額,PayPay残高,-,-,A4`,
	)

	result, err := ParsePayPay(content)
	require.NoError(t, err)

	require.Len(t, result.Expenses, 1)
	assert.Equal(t, "A1", result.Expenses[0].ExternalTransactionID)
	assert.Len(t, result.RawData, 4)
	assert.Zero(t, result.SkippedRows)
}

func TestParsePayPay_ShortRowsAreSkipped(t *testing.T) {
	content := payPayCSV(
		`2024/07/01,1,2,3,4,5,6,7,8,9,10,11`,
		`2024/07/01`,
		`2024/07/01 09:00:00,500,-,-,-,-,-,支払い,ローソン,PayPay残高,-,-,A1`,
	)

	result, err := ParsePayPay(content)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, 2, result.SkippedRows)
	require.Len(t, result.RawData, 1)
	assert.Equal(t, "A1", result.RawData[0].TransactionID)
}

func TestParsePayPay_EmptyInput(t *testing.T) {
	for _, content := range []string{"", "   ", "\n\r\n\t\n", "\uFEFF", "\uFEFF\n  \n"} {
		_, err := ParsePayPay(content)
		assert.ErrorIs(t, err, ErrEmptyInput, "content %q", content)
	}
}

func TestParsePayPay_HeaderOnly(t *testing.T) {
	result, err := ParsePayPay(payPayHeader + "\n")
	require.NoError(t, err)
	assert.Zero(t, result.TotalRows)
	assert.Empty(t, result.Expenses)
}

func TestParsePayPay_StripsBOMAndCRLF(t *testing.T) {
	content := "\uFEFF" + payPayHeader + "\r\n" +
		`2024/07/01 09:00:00,500,-,-,-,-,-,支払い,ローソン,PayPay残高,-,-,A1` + "\r\n"

	result, err := ParsePayPay(content)
	require.NoError(t, err)
	require.Len(t, result.Expenses, 1)
	assert.Equal(t, "A1", result.Expenses[0].ExternalTransactionID)
}

func TestParsePayPay_InvalidDateIsReported(t *testing.T) {
	content := payPayCSV(
		`not-a-date,500,-,-,-,-,-,支払い,ローソン,PayPay残高,-,-,A1`,
	)

	result, err := ParsePayPay(content)
	require.NoError(t, err)
	assert.Empty(t, result.Expenses)
	assert.Len(t, result.RawData, 1)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Row)
	assert.Zero(t, result.SkippedRows)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"3,600", 3600},
		{"1,234,567", 1234567},
		{"980", 980},
		{" 120 ", 120},
		{"-", 0},
		{"", 0},
		{"abc", 0},
		{"12abc", 0},
		{"99.9", 99},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseAmount(tt.input))
		})
	}
}

func TestParser_ParseDate(t *testing.T) {
	p := NewParser(time.UTC)

	t.Run("date and time", func(t *testing.T) {
		d, err := p.ParseDate("2024/06/15 09:30:45")
		require.NoError(t, err)
		assert.Equal(t, 2024, d.Year())
		assert.Equal(t, 5, int(d.Month())-1)
		assert.Equal(t, 15, d.Day())
		assert.Equal(t, 9, d.Hour())
		assert.Equal(t, 30, d.Minute())
		assert.Equal(t, 45, d.Second())
	})

	t.Run("date only", func(t *testing.T) {
		d, err := p.ParseDate("2024/01/05")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC), d)
	})

	t.Run("wall clock kept in the parser location", func(t *testing.T) {
		tokyo := time.FixedZone("JST", 9*60*60)
		d, err := NewParser(tokyo).ParseDate("2024/06/15 09:30:45")
		require.NoError(t, err)
		assert.Equal(t, 9, d.Hour())
		assert.Equal(t, tokyo, d.Location())
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := p.ParseDate("15-06-2024")
		assert.Error(t, err)
	})
}

func TestMarshalSnapshot(t *testing.T) {
	result, err := ParsePayPay(payPayCSV(
		`2024/07/01 09:00:00,"1,500",-,-,-,-,-,支払い,"ローソン, 新宿店",PayPay残高,-,-,A1`,
	))
	require.NoError(t, err)

	snapshot, err := MarshalSnapshot(result.RawData)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(snapshot), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, payPayHeader, lines[0])
	assert.Contains(t, lines[1], `"ローソン, 新宿店"`)
	assert.Contains(t, lines[1], "A1")

	empty, err := MarshalSnapshot(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestHeaderMatchesExport(t *testing.T) {
	assert.Len(t, Header, ColumnCount)
	assert.Equal(t, payPayHeader, strings.Join(Header, ","))
}
