package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/paypay-tracker/internal/domain/category/repository"
)

const defaultColor = "#9E9E9E"

var (
	ErrSystemCategory        = errors.New("system categories cannot be modified")
	ErrSystemRule            = errors.New("system rules cannot be modified")
	ErrOtherCategoryRequired = errors.New("the fallback category cannot be deleted")
	ErrCategoryNotOwned      = errors.New("category does not belong to the user")
	ErrInvalidInput          = errors.New("invalid input")
)

// Service manages a user's categories and rules
type Service struct {
	categories repository.CategoryRepository
	rules      repository.RuleRepository
	logger     *slog.Logger
}

// NewService creates a new category service
func NewService(categories repository.CategoryRepository, rules repository.RuleRepository, logger *slog.Logger) *Service {
	return &Service{categories: categories, rules: rules, logger: logger}
}

// ListCategories returns the user's categories
func (s *Service) ListCategories(ctx context.Context, userID uuid.UUID) ([]repository.Category, error) {
	return s.categories.FindByUserID(ctx, userID)
}

// CreateCategory adds a category owned by the user. The fallback flag is
// reserved for the cloned Other category.
func (s *Service) CreateCategory(ctx context.Context, userID uuid.UUID, input repository.CategoryInput) (*repository.Category, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}
	if input.Color == "" {
		input.Color = defaultColor
	}
	input.IsDefault = false
	input.IsOther = false

	return s.categories.Create(ctx, userID, input)
}

// UpdateCategory rewrites name, color, icon and display order. The default
// and fallback flags keep their stored values.
func (s *Service) UpdateCategory(ctx context.Context, userID, id uuid.UUID, input repository.CategoryInput) (*repository.Category, error) {
	existing, err := s.ownedCategory(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}
	if input.Color == "" {
		input.Color = existing.Color
	}
	input.IsDefault = existing.IsDefault
	input.IsOther = existing.IsOther

	return s.categories.Update(ctx, id, input)
}

// DeleteCategory removes a user category together with its rules.
func (s *Service) DeleteCategory(ctx context.Context, userID, id uuid.UUID) error {
	existing, err := s.ownedCategory(ctx, userID, id)
	if err != nil {
		return err
	}
	if existing.IsOther {
		return ErrOtherCategoryRequired
	}

	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("category deleted",
		slog.String("user_id", userID.String()),
		slog.String("category_id", id.String()),
	)
	return nil
}

// ListRules returns the user's active rule set in match order
func (s *Service) ListRules(ctx context.Context, userID uuid.UUID) ([]repository.CategoryRule, error) {
	return s.rules.FindByUserID(ctx, userID)
}

// ListRulesForCategory returns the rules visible to the user that target categoryID
func (s *Service) ListRulesForCategory(ctx context.Context, userID, categoryID uuid.UUID) ([]repository.CategoryRule, error) {
	return s.rules.FindByCategoryID(ctx, categoryID, userID)
}

// CreateRule adds a rule owned by the user pointing at one of their categories.
func (s *Service) CreateRule(ctx context.Context, userID uuid.UUID, input repository.RuleInput) (*repository.CategoryRule, error) {
	input, err := s.validateRule(ctx, userID, input)
	if err != nil {
		return nil, err
	}
	return s.rules.Create(ctx, userID, input)
}

// UpdateRule rewrites one of the user's rules
func (s *Service) UpdateRule(ctx context.Context, userID, id uuid.UUID, input repository.RuleInput) (*repository.CategoryRule, error) {
	if _, err := s.ownedRule(ctx, userID, id); err != nil {
		return nil, err
	}
	input, err := s.validateRule(ctx, userID, input)
	if err != nil {
		return nil, err
	}
	return s.rules.Update(ctx, id, input)
}

// DeleteRule removes one of the user's rules
func (s *Service) DeleteRule(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.ownedRule(ctx, userID, id); err != nil {
		return err
	}
	return s.rules.Delete(ctx, id)
}

func (s *Service) validateRule(ctx context.Context, userID uuid.UUID, input repository.RuleInput) (repository.RuleInput, error) {
	input.Keyword = strings.TrimSpace(input.Keyword)
	if input.Keyword == "" {
		return input, fmt.Errorf("%w: keyword is required", ErrInvalidInput)
	}

	category, err := s.categories.FindByID(ctx, input.CategoryID)
	if errors.Is(err, repository.ErrNotFound) {
		return input, ErrCategoryNotOwned
	}
	if err != nil {
		return input, err
	}
	if !category.OwnedBy(userID) {
		return input, ErrCategoryNotOwned
	}
	return input, nil
}

// ownedCategory loads a category the user may modify. Another user's
// category is reported as not found.
func (s *Service) ownedCategory(ctx context.Context, userID, id uuid.UUID) (*repository.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if category.IsSystem() {
		return nil, ErrSystemCategory
	}
	if !category.OwnedBy(userID) {
		return nil, repository.ErrNotFound
	}
	return category, nil
}

func (s *Service) ownedRule(ctx context.Context, userID, id uuid.UUID) (*repository.CategoryRule, error) {
	rule, err := s.rules.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule.IsSystem() {
		return nil, ErrSystemRule
	}
	if *rule.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return rule, nil
}
