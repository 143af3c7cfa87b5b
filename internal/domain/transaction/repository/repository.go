// Package repository provides database operations for transactions.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// PaymentMethodManual marks cash entries created by hand; only these can be deleted.
const PaymentMethodManual = "manual"

var (
	ErrNotFound = errors.New("transaction not found")
	// ErrDuplicateTransaction is returned by Create when the user already has
	// a transaction with the same external ID.
	ErrDuplicateTransaction = errors.New("duplicate transaction")
)

// Transaction is a persisted expense. Category name and color are copied at
// write time for display.
type Transaction struct {
	ID                    uuid.UUID
	UserID                uuid.UUID
	Date                  time.Time
	Description           string
	Amount                int64
	CategoryID            *uuid.UUID
	CategoryName          *string
	CategoryColor         *string
	PaymentMethod         string
	ExternalTransactionID *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// IsManual reports whether the transaction was entered by hand.
func (t *Transaction) IsManual() bool {
	return t.PaymentMethod == PaymentMethodManual
}

// CategoryRef is the category data written onto a transaction
type CategoryRef struct {
	ID    uuid.UUID
	Name  string
	Color string
}

// CreateInput holds the fields of a new transaction
type CreateInput struct {
	UserID                uuid.UUID
	Date                  time.Time
	Description           string
	Amount                int64
	Category              *CategoryRef
	PaymentMethod         string
	ExternalTransactionID *string
}

// Filter narrows FindByUserID. From is inclusive, To is exclusive.
type Filter struct {
	From       *time.Time
	To         *time.Time
	CategoryID *uuid.UUID
	Limit      int
}

// TransactionRepository defines the interface for transaction persistence
type TransactionRepository interface {
	ExistsByExternalID(ctx context.Context, userID uuid.UUID, externalID string) (bool, error)
	Create(ctx context.Context, input CreateInput) (*Transaction, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, filter Filter) ([]Transaction, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	// UpdateCategory assigns category, or clears it when category is nil.
	UpdateCategory(ctx context.Context, id uuid.UUID, category *CategoryRef) error
	Delete(ctx context.Context, id uuid.UUID) error
}
