package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	categoryrepo "github.com/FACorreiaa/paypay-tracker/internal/domain/category/repository"
	"github.com/FACorreiaa/paypay-tracker/internal/domain/transaction/repository"
	"github.com/FACorreiaa/paypay-tracker/internal/testutil/memrepo"
	"github.com/FACorreiaa/paypay-tracker/pkg/metrics"
)

func newTestService(store *memrepo.Store) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store.TransactionRepo(), store.Rules(), store.Categories(), logger)
}

func imported(userID uuid.UUID, date time.Time, description string) repository.Transaction {
	externalID := uuid.NewString()
	return repository.Transaction{
		UserID:                userID,
		Date:                  date,
		Description:           description,
		Amount:                500,
		PaymentMethod:         "PayPay残高",
		ExternalTransactionID: &externalID,
	}
}

func intPtr(i int) *int { return &i }

func TestPeriod(t *testing.T) {
	from, to, err := Period(2024, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), to)

	from, to, err = Period(2024, intPtr(12))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), to)

	for _, m := range []int{0, 13, -1} {
		_, _, err := Period(2024, intPtr(m))
		assert.ErrorIs(t, err, ErrInvalidPeriod)
	}
}

func TestReCategorizeByRules_NoRules(t *testing.T) {
	store := memrepo.New()
	userID := uuid.New()
	tx := store.TransactionRepo().Insert(imported(userID, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), "ローソン"))

	svc := newTestService(store)
	updated, err := svc.ReCategorizeByRules(context.Background(), userID, 2024, intPtr(6))
	require.NoError(t, err)
	assert.Equal(t, 0, updated)

	got, err := store.TransactionRepo().FindByID(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
}

func TestReCategorizeByRules_MonthWindow(t *testing.T) {
	store := memrepo.New()
	userID := uuid.New()
	food := store.AddCategory(userID, "食費", "#FF7043", false)
	store.AddRule(&userID, "ローソン", food.ID, 0)

	repo := store.TransactionRepo()
	june := repo.Insert(imported(userID, time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC), "ローソン 池袋店"))
	july := repo.Insert(imported(userID, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), "ローソン 新宿店"))
	other := repo.Insert(imported(userID, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), "Unknown Merchant"))

	svc := newTestService(store)
	updated, err := svc.ReCategorizeByRules(context.Background(), userID, 2024, intPtr(6))
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	got, _ := repo.FindByID(context.Background(), june.ID)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, food.ID, *got.CategoryID)
	assert.Equal(t, "食費", *got.CategoryName)
	assert.Equal(t, "#FF7043", *got.CategoryColor)

	got, _ = repo.FindByID(context.Background(), july.ID)
	assert.Nil(t, got.CategoryID)
	got, _ = repo.FindByID(context.Background(), other.ID)
	assert.Nil(t, got.CategoryID)
}

func TestReCategorizeByRules_TokyoMonthBoundary(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)

	store := memrepo.New()
	userID := uuid.New()
	food := store.AddCategory(userID, "食費", "#FF7043", false)
	store.AddRule(&userID, "ローソン", food.ID, 0)

	repo := store.TransactionRepo()
	earlyJuly := repo.Insert(imported(userID, time.Date(2024, 7, 1, 5, 0, 0, 0, tokyo), "ローソン 早朝"))
	lateJune := repo.Insert(imported(userID, time.Date(2024, 6, 30, 23, 30, 0, 0, tokyo), "ローソン 深夜"))

	svc := newTestService(store)
	updated, err := svc.ReCategorizeByRules(context.Background(), userID, 2024, intPtr(7))
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	got, _ := repo.FindByID(context.Background(), earlyJuly.ID)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, food.ID, *got.CategoryID)

	got, _ = repo.FindByID(context.Background(), lateJune.ID)
	assert.Nil(t, got.CategoryID)
}

func TestReCategorizeByRules_SystemRuleUsesUserClone(t *testing.T) {
	store := memrepo.New()
	userID := uuid.New()
	foodTemplate := store.AddTemplate("食費", "#FF7043", false)
	hobbyTemplate := store.AddTemplate("娯楽", "#AB47BC", false)
	food := store.AddCategory(userID, "食費", "#FF7043", false)
	other := store.AddCategory(userID, categoryrepo.OtherCategoryName, "#9E9E9E", true)
	store.AddRule(nil, "ローソン", foodTemplate.ID, 10)
	store.AddRule(nil, "Netflix", hobbyTemplate.ID, 10)

	repo := store.TransactionRepo()
	lawson := repo.Insert(imported(userID, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), "ローソン 池袋店"))
	netflix := repo.Insert(imported(userID, time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC), "NETFLIX.COM"))

	svc := newTestService(store)
	updated, err := svc.ReCategorizeByRules(context.Background(), userID, 2024, intPtr(6))
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	got, _ := repo.FindByID(context.Background(), lawson.ID)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, food.ID, *got.CategoryID)

	got, _ = repo.FindByID(context.Background(), netflix.ID)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, other.ID, *got.CategoryID)
}

func TestReCategorizeByRules_SystemRuleWithoutCloneOrOther(t *testing.T) {
	store := memrepo.New()
	userID := uuid.New()
	hobbyTemplate := store.AddTemplate("娯楽", "#AB47BC", false)
	store.AddRule(nil, "Netflix", hobbyTemplate.ID, 10)
	netflix := store.TransactionRepo().Insert(imported(userID, time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC), "NETFLIX.COM"))

	updated, err := newTestService(store).ReCategorizeByRules(context.Background(), userID, 2024, nil)
	require.NoError(t, err)
	assert.Zero(t, updated)

	got, _ := store.TransactionRepo().FindByID(context.Background(), netflix.ID)
	assert.Nil(t, got.CategoryID)
}

func TestReCategorizeByRules_WholeYearAndPriority(t *testing.T) {
	store := memrepo.New()
	userID := uuid.New()
	shopping := store.AddCategory(userID, "通販", "#42A5F5", false)
	digital := store.AddCategory(userID, "娯楽", "#AB47BC", false)
	store.AddRule(nil, "Amazon", shopping.ID, 10)
	store.AddRule(nil, "Amazon Pay", digital.ID, 20)

	repo := store.TransactionRepo()
	a := repo.Insert(imported(userID, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "Amazon Pay 決済"))
	b := repo.Insert(imported(userID, time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC), "AMAZON.CO.JP"))
	repo.Insert(imported(userID, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), "Amazon"))
	repo.Insert(imported(uuid.New(), time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), "Amazon"))

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := newTestService(store).WithMetrics(m)

	updated, err := svc.ReCategorizeByRules(context.Background(), userID, 2024, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, updated)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.TransactionsRecategorized))

	got, _ := repo.FindByID(context.Background(), a.ID)
	assert.Equal(t, digital.ID, *got.CategoryID)
	got, _ = repo.FindByID(context.Background(), b.ID)
	assert.Equal(t, shopping.ID, *got.CategoryID)
}

func TestReCategorizeByRules_CountsUnchangedMatches(t *testing.T) {
	store := memrepo.New()
	userID := uuid.New()
	food := store.AddCategory(userID, "食費", "#FF7043", false)
	store.AddRule(&userID, "ローソン", food.ID, 0)
	store.TransactionRepo().Insert(imported(userID, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), "ローソン"))

	svc := newTestService(store)
	first, err := svc.ReCategorizeByRules(context.Background(), userID, 2024, nil)
	require.NoError(t, err)
	second, err := svc.ReCategorizeByRules(context.Background(), userID, 2024, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first)
	assert.Equal(t, first, second)
}

func TestReCategorizeByRules_InvalidMonth(t *testing.T) {
	svc := newTestService(memrepo.New())
	_, err := svc.ReCategorizeByRules(context.Background(), uuid.New(), 2024, intPtr(13))
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestCreateManual(t *testing.T) {
	store := memrepo.New()
	userID := uuid.New()
	food := store.AddCategory(userID, "食費", "#FF7043", false)
	svc := newTestService(store)

	tx, err := svc.CreateManual(context.Background(), userID, ManualInput{
		Date:        time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Description: "  八百屋  ",
		Amount:      800,
		CategoryID:  &food.ID,
	})
	require.NoError(t, err)
	assert.True(t, tx.IsManual())
	assert.Equal(t, "八百屋", tx.Description)
	assert.Equal(t, "食費", *tx.CategoryName)
	assert.Nil(t, tx.ExternalTransactionID)

	_, err = svc.CreateManual(context.Background(), userID, ManualInput{Amount: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	foreign := store.AddCategory(uuid.New(), "食費", "#FF7043", false)
	_, err = svc.CreateManual(context.Background(), userID, ManualInput{Amount: 100, CategoryID: &foreign.ID})
	assert.ErrorIs(t, err, ErrCategoryNotOwned)
}

func TestChangeCategory(t *testing.T) {
	store := memrepo.New()
	userID := uuid.New()
	food := store.AddCategory(userID, "食費", "#FF7043", false)
	tx := store.TransactionRepo().Insert(imported(userID, time.Now(), "ローソン"))
	svc := newTestService(store)

	require.NoError(t, svc.ChangeCategory(context.Background(), userID, tx.ID, &food.ID))
	got, _ := store.TransactionRepo().FindByID(context.Background(), tx.ID)
	assert.Equal(t, food.ID, *got.CategoryID)

	require.NoError(t, svc.ChangeCategory(context.Background(), userID, tx.ID, nil))
	got, _ = store.TransactionRepo().FindByID(context.Background(), tx.ID)
	assert.Nil(t, got.CategoryID)

	err := svc.ChangeCategory(context.Background(), uuid.New(), tx.ID, nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDelete(t *testing.T) {
	store := memrepo.New()
	userID := uuid.New()
	svc := newTestService(store)

	importedTx := store.TransactionRepo().Insert(imported(userID, time.Now(), "ローソン"))
	assert.ErrorIs(t, svc.Delete(context.Background(), userID, importedTx.ID), ErrImmutableTransaction)

	manual, err := svc.CreateManual(context.Background(), userID, ManualInput{Date: time.Now(), Description: "cash", Amount: 300})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), userID, manual.ID))
	assert.Len(t, store.Transactions(), 1)
}
