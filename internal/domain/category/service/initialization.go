// Package service provides business logic for categories and categorization
// rules: cloning the system defaults into a new account and managing the
// user's own categories and rules.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/FACorreiaa/paypay-tracker/internal/domain/category/repository"
	"github.com/FACorreiaa/paypay-tracker/pkg/metrics"
)

// InitResult reports what InitializeForUser created
type InitResult struct {
	CategoriesCreated int
	RulesCreated      int
	RulesSkipped      int // default rules whose category could not be mapped
	// AlreadyInitialized is set when the user owned categories before the call.
	AlreadyInitialized bool
}

// InitializationService clones system categories and rules into a user's
// namespace, exactly once.
type InitializationService struct {
	tx      repository.TxRunner
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewInitializationService creates a new initialization service
func NewInitializationService(tx repository.TxRunner, logger *slog.Logger) *InitializationService {
	return &InitializationService{tx: tx, logger: logger, metrics: metrics.Nop()}
}

// WithMetrics sets the collectors updated by InitializeForUser
func (s *InitializationService) WithMetrics(m *metrics.Metrics) *InitializationService {
	s.metrics = m
	return s
}

// InitializeForUser runs in one transaction; any error rolls back everything
// created by the call. Concurrent calls for the same user are serialized on
// the owner lock, so the second one sees the first one's clones.
//
// A user without categories gets a clone of every system category followed by
// every system rule whose category was cloned. A user who already owns
// categories but no rules gets the system rules re-pointed at their
// categories by exact name. Otherwise nothing is written.
func (s *InitializationService) InitializeForUser(ctx context.Context, userID uuid.UUID) (*InitResult, error) {
	result := &InitResult{}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Categories.LockOwner(ctx, userID); err != nil {
			return err
		}

		existing, err := repos.Categories.FindByUserID(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load user categories: %w", err)
		}

		var mapping map[uuid.UUID]uuid.UUID
		if len(existing) == 0 {
			mapping, err = cloneCategories(ctx, repos, userID, result)
			if err != nil {
				return err
			}
		} else {
			result.AlreadyInitialized = true

			owned, err := repos.Rules.CountOwned(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to count user rules: %w", err)
			}
			if owned > 0 {
				return nil
			}

			mapping, err = mapByName(ctx, repos, existing)
			if err != nil {
				return err
			}
		}

		return cloneRules(ctx, repos, userID, mapping, result)
	})
	if err != nil {
		s.logger.Error("category initialization failed",
			slog.String("user_id", userID.String()),
			slog.Any("error", err),
		)
		return nil, err
	}

	if result.CategoriesCreated > 0 {
		s.metrics.CategoriesInitialized.Inc()
	}
	s.logger.Info("categories initialized",
		slog.String("user_id", userID.String()),
		slog.Int("categories_created", result.CategoriesCreated),
		slog.Int("rules_created", result.RulesCreated),
		slog.Int("rules_skipped", result.RulesSkipped),
		slog.Bool("already_initialized", result.AlreadyInitialized),
	)
	return result, nil
}

// cloneCategories copies every template and returns template ID -> clone ID.
func cloneCategories(ctx context.Context, repos repository.Repositories, userID uuid.UUID, result *InitResult) (map[uuid.UUID]uuid.UUID, error) {
	defaults, err := repos.DefaultCategories.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load default categories: %w", err)
	}

	mapping := make(map[uuid.UUID]uuid.UUID, len(defaults))
	for _, d := range defaults {
		created, err := repos.Categories.Create(ctx, userID, repository.InputFrom(d))
		if err != nil {
			return nil, fmt.Errorf("failed to clone category %q: %w", d.Name, err)
		}
		mapping[d.ID] = created.ID
		result.CategoriesCreated++
	}
	return mapping, nil
}

// mapByName pairs templates with the user's categories of the same name.
// A renamed category loses its rules.
func mapByName(ctx context.Context, repos repository.Repositories, owned []repository.Category) (map[uuid.UUID]uuid.UUID, error) {
	defaults, err := repos.DefaultCategories.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load default categories: %w", err)
	}

	byName := make(map[string]uuid.UUID, len(owned))
	for _, c := range owned {
		if _, exists := byName[c.Name]; !exists {
			byName[c.Name] = c.ID
		}
	}

	mapping := make(map[uuid.UUID]uuid.UUID, len(defaults))
	for _, d := range defaults {
		if id, ok := byName[d.Name]; ok {
			mapping[d.ID] = id
		}
	}
	return mapping, nil
}

func cloneRules(ctx context.Context, repos repository.Repositories, userID uuid.UUID, mapping map[uuid.UUID]uuid.UUID, result *InitResult) error {
	defaults, err := repos.DefaultRules.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load default rules: %w", err)
	}

	for _, r := range defaults {
		categoryID, ok := mapping[r.CategoryID]
		if !ok {
			result.RulesSkipped++
			continue
		}
		_, err := repos.Rules.Create(ctx, userID, repository.RuleInput{
			Keyword:    r.Keyword,
			CategoryID: categoryID,
			Priority:   r.Priority,
		})
		if err != nil {
			return fmt.Errorf("failed to clone rule %q: %w", r.Keyword, err)
		}
		result.RulesCreated++
	}
	return nil
}
