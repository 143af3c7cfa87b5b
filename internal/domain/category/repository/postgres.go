package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/paypay-tracker/pkg/db"
)

const categoryColumns = `id, user_id, name, color, icon, display_order, is_default, is_other, created_at, updated_at`

const ruleColumns = `id, user_id, keyword, category_id, priority, created_at, updated_at`

// ruleOrder sorts the active rule set for matching. At equal priority a
// user's rule is evaluated before a system rule.
const ruleOrder = `ORDER BY priority DESC, (user_id IS NULL) ASC, keyword ASC, id ASC`

func scanCategory(row pgx.Row) (*Category, error) {
	c := &Category{}
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.Color,
		&c.Icon,
		&c.DisplayOrder,
		&c.IsDefault,
		&c.IsOther,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func collectCategories(rows pgx.Rows) ([]Category, error) {
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return categories, nil
}

func scanRule(row pgx.Row) (*CategoryRule, error) {
	r := &CategoryRule{}
	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.Keyword,
		&r.CategoryID,
		&r.Priority,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func collectRules(rows pgx.Rows) ([]CategoryRule, error) {
	defer rows.Close()

	var rules []CategoryRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}
	return rules, nil
}

// PostgresCategoryRepository implements CategoryRepository using PostgreSQL
type PostgresCategoryRepository struct {
	db db.DBTX
}

// NewPostgresCategoryRepository creates a new PostgreSQL category repository
func NewPostgresCategoryRepository(q db.DBTX) *PostgresCategoryRepository {
	return &PostgresCategoryRepository{db: q}
}

// FindByUserID lists the categories owned by userID
func (r *PostgresCategoryRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]Category, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE user_id = $1
		ORDER BY display_order ASC, name ASC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return collectCategories(rows)
}

// FindByID retrieves a category by ID
func (r *PostgresCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	c, err := scanCategory(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

// FindByName retrieves a category owned by userID by its exact name
func (r *PostgresCategoryRepository) FindByName(ctx context.Context, userID uuid.UUID, name string) (*Category, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE user_id = $1 AND name = $2
		ORDER BY display_order ASC
		LIMIT 1`

	c, err := scanCategory(r.db.QueryRow(ctx, query, userID, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category by name: %w", err)
	}
	return c, nil
}

// Create inserts a category owned by userID
func (r *PostgresCategoryRepository) Create(ctx context.Context, userID uuid.UUID, input CategoryInput) (*Category, error) {
	query := `
		INSERT INTO categories (id, user_id, name, color, icon, display_order, is_default, is_other)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + categoryColumns

	c, err := scanCategory(r.db.QueryRow(ctx, query,
		uuid.New(),
		userID,
		input.Name,
		input.Color,
		input.Icon,
		input.DisplayOrder,
		input.IsDefault,
		input.IsOther,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return c, nil
}

// Update rewrites the writable fields of a category
func (r *PostgresCategoryRepository) Update(ctx context.Context, id uuid.UUID, input CategoryInput) (*Category, error) {
	query := `
		UPDATE categories
		SET name = $2, color = $3, icon = $4, display_order = $5, is_default = $6, is_other = $7, updated_at = now()
		WHERE id = $1
		RETURNING ` + categoryColumns

	c, err := scanCategory(r.db.QueryRow(ctx, query,
		id,
		input.Name,
		input.Color,
		input.Icon,
		input.DisplayOrder,
		input.IsDefault,
		input.IsOther,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return c, nil
}

// Delete removes a category; its rules are removed by the foreign key
func (r *PostgresCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PostgresRuleRepository implements RuleRepository using PostgreSQL
type PostgresRuleRepository struct {
	db db.DBTX
}

// LockOwner takes a transaction-scoped advisory lock keyed by userID
func (r *PostgresCategoryRepository) LockOwner(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, userID.String()); err != nil {
		return fmt.Errorf("failed to lock categories of user %s: %w", userID, err)
	}
	return nil
}

// NewPostgresRuleRepository creates a new PostgreSQL rule repository
func NewPostgresRuleRepository(q db.DBTX) *PostgresRuleRepository {
	return &PostgresRuleRepository{db: q}
}

// FindByUserID returns system rules plus the rules owned by userID
func (r *PostgresRuleRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]CategoryRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM category_rules
		WHERE ` + VisibleTo("user_id", 1) + `
		` + ruleOrder

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	return collectRules(rows)
}

// FindByID retrieves a rule by ID
func (r *PostgresRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*CategoryRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM category_rules WHERE id = $1`

	rule, err := scanRule(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

// FindByCategoryID lists the rules visible to userID that target categoryID
func (r *PostgresRuleRepository) FindByCategoryID(ctx context.Context, categoryID, userID uuid.UUID) ([]CategoryRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM category_rules
		WHERE category_id = $1 AND ` + VisibleTo("user_id", 2) + `
		` + ruleOrder

	rows, err := r.db.Query(ctx, query, categoryID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules by category: %w", err)
	}
	return collectRules(rows)
}

// CountOwned counts the rules owned by userID
func (r *PostgresRuleRepository) CountOwned(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM category_rules WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count rules: %w", err)
	}
	return count, nil
}

// Create inserts a rule owned by userID
func (r *PostgresRuleRepository) Create(ctx context.Context, userID uuid.UUID, input RuleInput) (*CategoryRule, error) {
	query := `
		INSERT INTO category_rules (id, user_id, keyword, category_id, priority)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + ruleColumns

	rule, err := scanRule(r.db.QueryRow(ctx, query,
		uuid.New(),
		userID,
		input.Keyword,
		input.CategoryID,
		input.Priority,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}
	return rule, nil
}

// Update rewrites the keyword, target category and priority of a rule
func (r *PostgresRuleRepository) Update(ctx context.Context, id uuid.UUID, input RuleInput) (*CategoryRule, error) {
	query := `
		UPDATE category_rules
		SET keyword = $2, category_id = $3, priority = $4, updated_at = now()
		WHERE id = $1
		RETURNING ` + ruleColumns

	rule, err := scanRule(r.db.QueryRow(ctx, query, id, input.Keyword, input.CategoryID, input.Priority))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update rule: %w", err)
	}
	return rule, nil
}

// Delete removes a rule
func (r *PostgresRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM category_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PostgresDefaultCategoryRepository reads system category templates
type PostgresDefaultCategoryRepository struct {
	db db.DBTX
}

// NewPostgresDefaultCategoryRepository creates a new template reader
func NewPostgresDefaultCategoryRepository(q db.DBTX) *PostgresDefaultCategoryRepository {
	return &PostgresDefaultCategoryRepository{db: q}
}

// FindAll lists every system category template
func (r *PostgresDefaultCategoryRepository) FindAll(ctx context.Context) ([]Category, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE user_id IS NULL
		ORDER BY display_order ASC, name ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list default categories: %w", err)
	}
	return collectCategories(rows)
}

// PostgresDefaultRuleRepository reads system-wide rules
type PostgresDefaultRuleRepository struct {
	db db.DBTX
}

// NewPostgresDefaultRuleRepository creates a new system rule reader
func NewPostgresDefaultRuleRepository(q db.DBTX) *PostgresDefaultRuleRepository {
	return &PostgresDefaultRuleRepository{db: q}
}

// FindAll lists every system-wide rule
func (r *PostgresDefaultRuleRepository) FindAll(ctx context.Context) ([]CategoryRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM category_rules
		WHERE user_id IS NULL
		` + ruleOrder

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list default rules: %w", err)
	}
	return collectRules(rows)
}

// NewRepositories binds every category repository to q.
func NewRepositories(q db.DBTX) Repositories {
	return Repositories{
		Categories:        NewPostgresCategoryRepository(q),
		Rules:             NewPostgresRuleRepository(q),
		DefaultCategories: NewPostgresDefaultCategoryRepository(q),
		DefaultRules:      NewPostgresDefaultRuleRepository(q),
	}
}

// PostgresTxRunner implements TxRunner on a pool or connection
type PostgresTxRunner struct {
	db db.TxBeginner
}

// NewPostgresTxRunner creates a transaction runner
func NewPostgresTxRunner(b db.TxBeginner) *PostgresTxRunner {
	return &PostgresTxRunner{db: b}
}

// WithinTx runs fn with repositories bound to one transaction
func (r *PostgresTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return db.InTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, NewRepositories(tx))
	})
}
