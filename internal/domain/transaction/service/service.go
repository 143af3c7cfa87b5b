// Package service provides business logic for transactions: bulk
// re-categorization and manual entry management.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/paypay-tracker/internal/domain/categorization"
	categoryrepo "github.com/FACorreiaa/paypay-tracker/internal/domain/category/repository"
	"github.com/FACorreiaa/paypay-tracker/internal/domain/transaction/repository"
	"github.com/FACorreiaa/paypay-tracker/pkg/metrics"
)

const tracerName = "github.com/FACorreiaa/paypay-tracker/internal/domain/transaction/service"

var (
	ErrInvalidPeriod        = errors.New("invalid period")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrImmutableTransaction = errors.New("only manual transactions can be deleted")
	ErrCategoryNotOwned     = errors.New("category does not belong to the user")
)

// ManualInput holds a cash expense entered by hand
type ManualInput struct {
	Date        time.Time
	Description string
	Amount      int64
	CategoryID  *uuid.UUID
}

// Service provides transaction business logic
type Service struct {
	transactions repository.TransactionRepository
	rules        categoryrepo.RuleRepository
	categories   categoryrepo.CategoryRepository
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
}

// NewService creates a new transaction service
func NewService(
	transactions repository.TransactionRepository,
	rules categoryrepo.RuleRepository,
	categories categoryrepo.CategoryRepository,
	logger *slog.Logger,
) *Service {
	return &Service{
		transactions: transactions,
		rules:        rules,
		categories:   categories,
		logger:       logger,
		metrics:      metrics.Nop(),
		tracer:       otel.Tracer(tracerName),
	}
}

// WithMetrics sets the collectors updated by ReCategorizeByRules
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// Period returns the [from, to) window of a calendar year, or of one month
// of it when month is set. Transaction dates are wall-clock values, so the
// window is built in UTC.
func Period(year int, month *int) (time.Time, time.Time, error) {
	if month == nil {
		from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(1, 0, 0), nil
	}
	if *month < 1 || *month > 12 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: month %d", ErrInvalidPeriod, *month)
	}
	from := time.Date(year, time.Month(*month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0), nil
}

// ReCategorizeByRules re-applies the user's current rules to every
// transaction in the period and returns how many transactions matched a rule.
// Transactions without a match keep their category.
func (s *Service) ReCategorizeByRules(ctx context.Context, userID uuid.UUID, year int, month *int) (int, error) {
	ctx, span := s.tracer.Start(ctx, "transaction.ReCategorizeByRules",
		trace.WithAttributes(
			attribute.String("user_id", userID.String()),
			attribute.Int("year", year),
		),
	)
	defer span.End()

	updated, err := s.reCategorize(ctx, userID, year, month)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	span.SetAttributes(attribute.Int("updated", updated))
	return updated, nil
}

func (s *Service) reCategorize(ctx context.Context, userID uuid.UUID, year int, month *int) (int, error) {
	from, to, err := Period(year, month)
	if err != nil {
		return 0, err
	}

	rules, err := s.rules.FindByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load rules: %w", err)
	}
	if len(rules) == 0 {
		return 0, nil
	}

	transactions, err := s.transactions.FindByUserID(ctx, userID, repository.Filter{From: &from, To: &to})
	if err != nil {
		return 0, err
	}

	engine := categorization.NewEngine(rules)
	resolver := categorization.NewResolver(userID, s.categories)
	updated := 0

	for _, tx := range transactions {
		rule := engine.MatchRule(tx.Description)
		if rule == nil {
			continue
		}

		category, err := resolver.Category(ctx, *rule)
		if err != nil {
			return updated, err
		}
		if category == nil {
			// a system rule whose category the user no longer has
			if category, err = resolver.ByName(ctx, categoryrepo.OtherCategoryName); err != nil {
				return updated, err
			}
			if category == nil {
				continue
			}
		}
		ref := &repository.CategoryRef{ID: category.ID, Name: category.Name, Color: category.Color}

		if err := s.transactions.UpdateCategory(ctx, tx.ID, ref); err != nil {
			return updated, err
		}
		updated++
	}

	s.metrics.TransactionsRecategorized.Add(float64(updated))
	s.logger.Info("transactions re-categorized",
		slog.String("user_id", userID.String()),
		slog.Time("from", from),
		slog.Time("to", to),
		slog.Int("examined", len(transactions)),
		slog.Int("updated", updated),
	)
	return updated, nil
}

// List returns a user's transactions
func (s *Service) List(ctx context.Context, userID uuid.UUID, filter repository.Filter) ([]repository.Transaction, error) {
	return s.transactions.FindByUserID(ctx, userID, filter)
}

// CreateManual records a cash expense
func (s *Service) CreateManual(ctx context.Context, userID uuid.UUID, input ManualInput) (*repository.Transaction, error) {
	if input.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var ref *repository.CategoryRef
	if input.CategoryID != nil {
		var err error
		if ref, err = s.ownedCategory(ctx, userID, *input.CategoryID); err != nil {
			return nil, err
		}
	}

	return s.transactions.Create(ctx, repository.CreateInput{
		UserID:        userID,
		Date:          input.Date,
		Description:   strings.TrimSpace(input.Description),
		Amount:        input.Amount,
		Category:      ref,
		PaymentMethod: repository.PaymentMethodManual,
	})
}

// ChangeCategory assigns categoryID to a transaction, or clears it when nil.
// Any transaction may be re-categorized.
func (s *Service) ChangeCategory(ctx context.Context, userID, transactionID uuid.UUID, categoryID *uuid.UUID) error {
	if _, err := s.ownedTransaction(ctx, userID, transactionID); err != nil {
		return err
	}

	var ref *repository.CategoryRef
	if categoryID != nil {
		var err error
		if ref, err = s.ownedCategory(ctx, userID, *categoryID); err != nil {
			return err
		}
	}
	return s.transactions.UpdateCategory(ctx, transactionID, ref)
}

// Delete removes a manual transaction. Imported transactions are immutable.
func (s *Service) Delete(ctx context.Context, userID, transactionID uuid.UUID) error {
	tx, err := s.ownedTransaction(ctx, userID, transactionID)
	if err != nil {
		return err
	}
	if !tx.IsManual() {
		return ErrImmutableTransaction
	}
	return s.transactions.Delete(ctx, transactionID)
}

func (s *Service) ownedTransaction(ctx context.Context, userID, id uuid.UUID) (*repository.Transaction, error) {
	tx, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return tx, nil
}

func (s *Service) ownedCategory(ctx context.Context, userID, id uuid.UUID) (*repository.CategoryRef, error) {
	category, err := s.categories.FindByID(ctx, id)
	if errors.Is(err, categoryrepo.ErrNotFound) {
		return nil, ErrCategoryNotOwned
	}
	if err != nil {
		return nil, err
	}
	if !category.OwnedBy(userID) {
		return nil, ErrCategoryNotOwned
	}
	return &repository.CategoryRef{ID: category.ID, Name: category.Name, Color: category.Color}, nil
}
