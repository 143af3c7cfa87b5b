package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/paypay-tracker/pkg/db"
)

const transactionColumns = `id, user_id, transaction_date, description, amount, category_id, category_name, category_color, payment_method, external_transaction_id, created_at, updated_at`

// PostgresTransactionRepository implements TransactionRepository using PostgreSQL
type PostgresTransactionRepository struct {
	db db.DBTX
}

// NewPostgresTransactionRepository creates a new PostgreSQL transaction repository
func NewPostgresTransactionRepository(q db.DBTX) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: q}
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	t := &Transaction{}
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Date,
		&t.Description,
		&t.Amount,
		&t.CategoryID,
		&t.CategoryName,
		&t.CategoryColor,
		&t.PaymentMethod,
		&t.ExternalTransactionID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ExistsByExternalID reports whether the user already has a transaction with externalID
func (r *PostgresTransactionRepository) ExistsByExternalID(ctx context.Context, userID uuid.UUID, externalID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM transactions WHERE user_id = $1 AND external_transaction_id = $2)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, userID, externalID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check transaction: %w", err)
	}
	return exists, nil
}

// Create inserts a transaction. A unique violation on the external ID is
// reported as ErrDuplicateTransaction.
func (r *PostgresTransactionRepository) Create(ctx context.Context, input CreateInput) (*Transaction, error) {
	query := `
		INSERT INTO transactions (id, user_id, transaction_date, description, amount, category_id, category_name, category_color, payment_method, external_transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + transactionColumns

	var (
		categoryID    *uuid.UUID
		categoryName  *string
		categoryColor *string
	)
	if input.Category != nil {
		categoryID = &input.Category.ID
		categoryName = &input.Category.Name
		categoryColor = &input.Category.Color
	}

	t, err := scanTransaction(r.db.QueryRow(ctx, query,
		uuid.New(),
		input.UserID,
		input.Date,
		input.Description,
		input.Amount,
		categoryID,
		categoryName,
		categoryColor,
		input.PaymentMethod,
		input.ExternalTransactionID,
	))
	if db.IsUniqueViolation(err) {
		return nil, ErrDuplicateTransaction
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return t, nil
}

// FindByUserID lists a user's transactions, oldest first
func (r *PostgresTransactionRepository) FindByUserID(ctx context.Context, userID uuid.UUID, filter Filter) ([]Transaction, error) {
	var (
		conditions = []string{"user_id = $1"}
		args       = []any{userID}
	)
	addArg := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.From != nil {
		addArg("transaction_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		addArg("transaction_date < $%d", *filter.To)
	}
	if filter.CategoryID != nil {
		addArg("category_id = $%d", *filter.CategoryID)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(conditions, " AND ") +
		` ORDER BY transaction_date ASC, id ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, nil
}

// FindByID retrieves a transaction by ID
func (r *PostgresTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	t, err := scanTransaction(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// UpdateCategory rewrites the category and its denormalized name and color
func (r *PostgresTransactionRepository) UpdateCategory(ctx context.Context, id uuid.UUID, category *CategoryRef) error {
	query := `
		UPDATE transactions
		SET category_id = $2, category_name = $3, category_color = $4, updated_at = now()
		WHERE id = $1`

	var (
		categoryID    *uuid.UUID
		categoryName  *string
		categoryColor *string
	)
	if category != nil {
		categoryID = &category.ID
		categoryName = &category.Name
		categoryColor = &category.Color
	}

	result, err := r.db.Exec(ctx, query, id, categoryID, categoryName, categoryColor)
	if err != nil {
		return fmt.Errorf("failed to update transaction category: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a transaction
func (r *PostgresTransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
