package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/FACorreiaa/paypay-tracker/internal/domain/categorization"
	categoryrepo "github.com/FACorreiaa/paypay-tracker/internal/domain/category/repository"
	txrepo "github.com/FACorreiaa/paypay-tracker/internal/domain/transaction/repository"
)

// assigner resolves the category of each merchant of one upload. Every
// occurrence of a merchant string gets the same assignment.
type assigner struct {
	engine     *categorization.Engine
	resolver   *categorization.Resolver
	byMerchant map[string]*txrepo.CategoryRef
}

func (s *ImportService) newAssigner(ctx context.Context, userID uuid.UUID) (*assigner, error) {
	rules, err := s.rules.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	return &assigner{
		engine:     categorization.NewEngine(rules),
		resolver:   categorization.NewResolver(userID, s.categories),
		byMerchant: make(map[string]*txrepo.CategoryRef),
	}, nil
}

// categoryFor returns the category of merchant, the user's Other category
// when no rule resolves, or nil when neither exists.
func (a *assigner) categoryFor(ctx context.Context, merchant string) (*txrepo.CategoryRef, error) {
	if ref, ok := a.byMerchant[merchant]; ok {
		return ref, nil
	}

	var category *categoryrepo.Category
	if rule := a.engine.MatchRule(merchant); rule != nil {
		var err error
		if category, err = a.resolver.Category(ctx, *rule); err != nil {
			return nil, err
		}
	}
	if category == nil {
		var err error
		if category, err = a.resolver.ByName(ctx, categoryrepo.OtherCategoryName); err != nil {
			return nil, fmt.Errorf("failed to resolve fallback category: %w", err)
		}
	}

	ref := refOf(category)
	a.byMerchant[merchant] = ref
	return ref, nil
}

func refOf(c *categoryrepo.Category) *txrepo.CategoryRef {
	if c == nil {
		return nil
	}
	return &txrepo.CategoryRef{ID: c.ID, Name: c.Name, Color: c.Color}
}
