package categorization

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/FACorreiaa/paypay-tracker/internal/domain/category/repository"
)

// Resolver turns a winning rule into the category a user's transaction is
// filed under. Lookups are cached for the lifetime of the resolver.
//
// A system rule points at a template, which a user never files into
// directly: it resolves to the user's category of the same name instead.
type Resolver struct {
	userID     uuid.UUID
	categories repository.CategoryRepository

	byID   map[uuid.UUID]*repository.Category
	byName map[string]*repository.Category
}

func NewResolver(userID uuid.UUID, categories repository.CategoryRepository) *Resolver {
	return &Resolver{
		userID:     userID,
		categories: categories,
		byID:       make(map[uuid.UUID]*repository.Category),
		byName:     make(map[string]*repository.Category),
	}
}

// Category returns the user's category for rule, or nil when the rule's
// target has no counterpart owned by the user.
func (r *Resolver) Category(ctx context.Context, rule repository.CategoryRule) (*repository.Category, error) {
	target, ok := r.byID[rule.CategoryID]
	if !ok {
		category, err := r.categories.FindByID(ctx, rule.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve category for rule %q: %w", rule.Keyword, err)
		}
		target = category
		r.byID[rule.CategoryID] = target
	}

	switch {
	case target.OwnedBy(r.userID):
		return target, nil
	case target.IsSystem():
		return r.ByName(ctx, target.Name)
	default:
		return nil, nil
	}
}

// ByName returns the user's category called name, or nil.
func (r *Resolver) ByName(ctx context.Context, name string) (*repository.Category, error) {
	if category, ok := r.byName[name]; ok {
		return category, nil
	}
	category, err := r.categories.FindByName(ctx, r.userID, name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		category = nil
	case err != nil:
		return nil, fmt.Errorf("failed to find category %q: %w", name, err)
	}
	r.byName[name] = category
	return category, nil
}
