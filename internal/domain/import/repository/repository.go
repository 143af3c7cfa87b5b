// Package repository persists CSV upload records.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Upload statuses
const (
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusFailed     = "failed"
)

var ErrNotFound = errors.New("upload not found")

// CsvUpload records one import attempt
type CsvUpload struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	FileName    string
	RowCount    int
	Status      string
	RawSnapshot string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateInput holds the fields of a new upload record
type CreateInput struct {
	UserID      uuid.UUID
	FileName    string
	RowCount    int
	RawSnapshot string
}

// CsvUploadRepository defines the interface for upload persistence
type CsvUploadRepository interface {
	// Create inserts an upload in the processing status.
	Create(ctx context.Context, input CreateInput) (*CsvUpload, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	FindByID(ctx context.Context, id uuid.UUID) (*CsvUpload, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]CsvUpload, error)
}
