// Package testdata generates realistic PayPay exports for tests and benchmarks.
package testdata

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Header is the column row of a PayPay export.
var Header = []string{
	"取引日", "出金金額（円）", "入金金額（円）", "海外出金金額", "通貨", "変換レート（円）",
	"利用国", "取引内容", "取引先", "取引方法", "支払い区分", "利用者", "取引番号",
}

// Transaction type labels found in exports.
const (
	TypePayment = "支払い"
	TypeCharge  = "チャージ"
	TypePoints  = "ポイント、残高の獲得"
)

var merchants = []string{
	"セブン-イレブン 渋谷店", "ファミリーマート 新宿南口店", "ローソン 池袋東口店",
	"マクドナルド 秋葉原店", "スターバックス コーヒー 表参道店", "松屋 高田馬場店",
	"Amazon Pay", "Amazon.co.jp", "楽天市場", "Uber Eats", "出前館",
	"マツモトキヨシ 上野店", "ダイソー 吉祥寺店", "ドン・キホーテ 中目黒店",
	"JR東日本 モバイルSuica", "TOHOシネマズ 日比谷", "東京電力エナジーパートナー",
}

var methods = []string{"PayPay残高", "PayPayカード", "PayPayポイント", "クレジットカード VISA 1234"}

// Row is one export line before formatting.
type Row struct {
	Date          time.Time
	Withdrawal    int64
	Deposit       int64
	Type          string
	Merchant      string
	Method        string
	TransactionID string
}

// Generator produces export rows with sequential transaction IDs.
type Generator struct {
	faker *gofakeit.Faker
	start time.Time
	seq   int
}

// NewGenerator creates a generator; the same seed yields the same rows.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		faker: gofakeit.New(seed),
		start: time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC),
	}
}

// Merchant returns a known Japanese merchant or a generated company name.
func (g *Generator) Merchant() string {
	if g.faker.Number(0, 3) == 0 {
		return g.faker.Company()
	}
	return merchants[g.faker.Number(0, len(merchants)-1)]
}

func (g *Generator) next() (time.Time, string) {
	g.seq++
	date := g.start.Add(time.Duration(g.seq) * 37 * time.Minute)
	return date, fmt.Sprintf("045%017d", g.seq)
}

// Payment returns a purchase row with a positive withdrawal.
func (g *Generator) Payment() Row {
	date, id := g.next()
	return Row{
		Date:          date,
		Withdrawal:    int64(g.faker.Number(1, 300)) * 10,
		Type:          TypePayment,
		Merchant:      g.Merchant(),
		Method:        methods[g.faker.Number(0, len(methods)-1)],
		TransactionID: id,
	}
}

// Charge returns a top-up row, which is never an expense.
func (g *Generator) Charge() Row {
	date, id := g.next()
	return Row{
		Date:          date,
		Deposit:       int64(g.faker.Number(1, 10)) * 1000,
		Type:          TypeCharge,
		Merchant:      "PayPay銀行",
		Method:        "銀行口座",
		TransactionID: id,
	}
}

// Rows returns n rows where every fifth one is a charge.
func (g *Generator) Rows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		if i%5 == 4 {
			rows[i] = g.Charge()
			continue
		}
		rows[i] = g.Payment()
	}
	return rows
}

// Export renders rows as a PayPay CSV export, header first.
func Export(rows []Row) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(Header)

	for _, r := range rows {
		_ = w.Write([]string{
			r.Date.Format("2006/01/02 15:04:05"),
			formatYen(r.Withdrawal),
			formatYen(r.Deposit),
			"-", "-", "-", "-",
			r.Type,
			r.Merchant,
			r.Method,
			"-", "-",
			r.TransactionID,
		})
	}
	w.Flush()
	return buf.String()
}

// formatYen writes amounts the way the export does: "3,600", or "-" for none.
func formatYen(amount int64) string {
	if amount == 0 {
		return "-"
	}
	return message.NewPrinter(language.Japanese).Sprintf("%d", amount)
}
