package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/paypay-tracker/pkg/db"
)

const uploadColumns = `id, user_id, file_name, row_count, status, raw_snapshot, created_at, updated_at`

// PostgresCsvUploadRepository implements CsvUploadRepository using PostgreSQL
type PostgresCsvUploadRepository struct {
	db db.DBTX
}

// NewPostgresCsvUploadRepository creates a new PostgreSQL upload repository
func NewPostgresCsvUploadRepository(q db.DBTX) *PostgresCsvUploadRepository {
	return &PostgresCsvUploadRepository{db: q}
}

func scanUpload(row pgx.Row) (*CsvUpload, error) {
	u := &CsvUpload{}
	if err := row.Scan(
		&u.ID,
		&u.UserID,
		&u.FileName,
		&u.RowCount,
		&u.Status,
		&u.RawSnapshot,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts an upload record in the processing status
func (r *PostgresCsvUploadRepository) Create(ctx context.Context, input CreateInput) (*CsvUpload, error) {
	query := `
		INSERT INTO csv_uploads (id, user_id, file_name, row_count, status, raw_snapshot)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + uploadColumns

	u, err := scanUpload(r.db.QueryRow(ctx, query,
		uuid.New(),
		input.UserID,
		input.FileName,
		input.RowCount,
		StatusProcessing,
		input.RawSnapshot,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create upload: %w", err)
	}
	return u, nil
}

// UpdateStatus moves an upload to status
func (r *PostgresCsvUploadRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE csv_uploads SET status = $2, updated_at = now() WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update upload status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByID retrieves an upload by ID
func (r *PostgresCsvUploadRepository) FindByID(ctx context.Context, id uuid.UUID) (*CsvUpload, error) {
	query := `SELECT ` + uploadColumns + ` FROM csv_uploads WHERE id = $1`

	u, err := scanUpload(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}
	return u, nil
}

// FindByUserID lists a user's uploads, newest first
func (r *PostgresCsvUploadRepository) FindByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]CsvUpload, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + uploadColumns + ` FROM csv_uploads WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	var uploads []CsvUpload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		uploads = append(uploads, *u)
	}
	return uploads, rows.Err()
}
