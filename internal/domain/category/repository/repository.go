// Package repository provides database operations for categories and
// categorization rules, both user-owned and system templates.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OtherCategoryName is the display name of the fallback category.
const OtherCategoryName = "その他"

// ErrNotFound is returned when a category or rule does not exist.
var ErrNotFound = errors.New("not found")

// Category is either a system template (UserID == nil) or a user-owned category.
type Category struct {
	ID           uuid.UUID
	UserID       *uuid.UUID
	Name         string
	Color        string
	Icon         *string
	DisplayOrder int
	IsDefault    bool
	IsOther      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsSystem reports whether the category is a system template.
func (c *Category) IsSystem() bool {
	return c.UserID == nil
}

// OwnedBy reports whether userID owns the category.
func (c *Category) OwnedBy(userID uuid.UUID) bool {
	return c.UserID != nil && *c.UserID == userID
}

// CategoryInput holds the writable fields of a category
type CategoryInput struct {
	Name         string
	Color        string
	Icon         *string
	DisplayOrder int
	IsDefault    bool
	IsOther      bool
}

// InputFrom copies the writable fields of c.
func InputFrom(c Category) CategoryInput {
	return CategoryInput{
		Name:         c.Name,
		Color:        c.Color,
		Icon:         c.Icon,
		DisplayOrder: c.DisplayOrder,
		IsDefault:    c.IsDefault,
		IsOther:      c.IsOther,
	}
}

// CategoryRule maps a case-insensitive merchant keyword to a category.
// A nil UserID marks a system-wide rule.
type CategoryRule struct {
	ID         uuid.UUID
	UserID     *uuid.UUID
	Keyword    string
	CategoryID uuid.UUID
	Priority   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsSystem reports whether the rule is a system-wide rule.
func (r *CategoryRule) IsSystem() bool {
	return r.UserID == nil
}

// RuleInput holds the writable fields of a rule
type RuleInput struct {
	Keyword    string
	CategoryID uuid.UUID
	Priority   int
}

// CategoryRepository persists user-owned categories.
type CategoryRepository interface {
	// FindByUserID lists the categories owned by userID (templates excluded).
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Category, error)
	FindByName(ctx context.Context, userID uuid.UUID, name string) (*Category, error)
	Create(ctx context.Context, userID uuid.UUID, input CategoryInput) (*Category, error)
	Update(ctx context.Context, id uuid.UUID, input CategoryInput) (*Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// LockOwner blocks until no other transaction holds the lock for userID.
	// It must run inside a transaction; the lock is released at commit or rollback.
	LockOwner(ctx context.Context, userID uuid.UUID) error
}

// RuleRepository persists categorization rules.
type RuleRepository interface {
	// FindByUserID returns the active rule set of userID: system rules plus
	// the user's own, ordered for matching.
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]CategoryRule, error)
	FindByID(ctx context.Context, id uuid.UUID) (*CategoryRule, error)
	FindByCategoryID(ctx context.Context, categoryID, userID uuid.UUID) ([]CategoryRule, error)
	// CountOwned counts the rules owned by userID, system rules excluded.
	CountOwned(ctx context.Context, userID uuid.UUID) (int, error)
	Create(ctx context.Context, userID uuid.UUID, input RuleInput) (*CategoryRule, error)
	Update(ctx context.Context, id uuid.UUID, input RuleInput) (*CategoryRule, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// DefaultCategoryRepository reads the system category templates.
type DefaultCategoryRepository interface {
	FindAll(ctx context.Context) ([]Category, error)
}

// DefaultRuleRepository reads the system-wide rules.
type DefaultRuleRepository interface {
	FindAll(ctx context.Context) ([]CategoryRule, error)
}

// Repositories groups the repositories bound to one unit of work.
type Repositories struct {
	Categories        CategoryRepository
	Rules             RuleRepository
	DefaultCategories DefaultCategoryRepository
	DefaultRules      DefaultRuleRepository
}

// TxRunner runs fn with repositories bound to a single database transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// VisibleTo renders the ownership predicate for rows a user may read:
// system rows plus the rows the user owns. argPos is the placeholder
// position holding the user ID.
func VisibleTo(column string, argPos int) string {
	return fmt.Sprintf("(%[1]s IS NULL OR %[1]s = $%[2]d)", column, argPos)
}
