// Package service provides the import orchestration logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	categoryrepo "github.com/FACorreiaa/paypay-tracker/internal/domain/category/repository"
	"github.com/FACorreiaa/paypay-tracker/internal/domain/import/parser"
	"github.com/FACorreiaa/paypay-tracker/internal/domain/import/repository"
	"github.com/FACorreiaa/paypay-tracker/internal/domain/import/sniffer"
	txrepo "github.com/FACorreiaa/paypay-tracker/internal/domain/transaction/repository"
	"github.com/FACorreiaa/paypay-tracker/pkg/metrics"
)

const tracerName = "github.com/FACorreiaa/paypay-tracker/internal/domain/import/service"

// ErrInvalidCSV wraps every parser failure. Nothing is persisted when it is returned.
var ErrInvalidCSV = errors.New("invalid csv")

// UploadInput is one PayPay export uploaded by a user
type UploadInput struct {
	UserID   uuid.UUID
	FileName string
	Content  string
}

// UploadResult contains the counts of an import
type UploadResult struct {
	UploadID      uuid.UUID
	TotalRows     int
	ImportedRows  int
	SkippedRows   int
	DuplicateRows int
}

// ImportService turns PayPay exports into categorized transactions
type ImportService struct {
	parser       *parser.Parser
	uploads      repository.CsvUploadRepository
	transactions txrepo.TransactionRepository
	rules        categoryrepo.RuleRepository
	categories   categoryrepo.CategoryRepository
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
}

// NewImportService creates a new import service
func NewImportService(
	p *parser.Parser,
	uploads repository.CsvUploadRepository,
	transactions txrepo.TransactionRepository,
	rules categoryrepo.RuleRepository,
	categories categoryrepo.CategoryRepository,
	logger *slog.Logger,
) *ImportService {
	return &ImportService{
		parser:       p,
		uploads:      uploads,
		transactions: transactions,
		rules:        rules,
		categories:   categories,
		logger:       logger,
		metrics:      metrics.Nop(),
		tracer:       otel.Tracer(tracerName),
	}
}

// WithMetrics sets the collectors updated by Execute
func (s *ImportService) WithMetrics(m *metrics.Metrics) *ImportService {
	s.metrics = m
	return s
}

// Execute imports one upload. Rows are written one at a time: when a row
// fails, rows already written stay and the upload is marked failed.
func (s *ImportService) Execute(ctx context.Context, input UploadInput) (*UploadResult, error) {
	ctx, span := s.tracer.Start(ctx, "import.Execute",
		trace.WithAttributes(
			attribute.String("user_id", input.UserID.String()),
			attribute.String("file_name", input.FileName),
		),
	)
	defer span.End()

	result, err := s.execute(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("rows.total", result.TotalRows),
		attribute.Int("rows.imported", result.ImportedRows),
		attribute.Int("rows.duplicate", result.DuplicateRows),
		attribute.Int("rows.skipped", result.SkippedRows),
	)
	return result, nil
}

func (s *ImportService) execute(ctx context.Context, input UploadInput) (*UploadResult, error) {
	if report, err := sniffer.Inspect(input.Content); err == nil && !report.IsPayPay() {
		s.logger.Warn("header does not match a PayPay export",
			slog.String("file_name", input.FileName),
			slog.String("fingerprint", report.Fingerprint),
			slog.Any("missing_columns", report.Missing),
		)
	}

	parsed, err := s.parser.Parse(input.Content)
	if err != nil {
		s.metrics.UploadsTotal.WithLabelValues(metrics.StatusInvalid).Inc()
		return nil, fmt.Errorf("%w: %w", ErrInvalidCSV, err)
	}
	for _, perr := range parsed.Errors {
		s.logger.Warn("row excluded from import",
			slog.String("file_name", input.FileName),
			slog.Int("row", perr.Row),
			slog.String("reason", perr.Message),
		)
	}

	snapshot, err := parser.MarshalSnapshot(parsed.RawData)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize upload snapshot: %w", err)
	}

	upload, err := s.uploads.Create(ctx, repository.CreateInput{
		UserID:      input.UserID,
		FileName:    input.FileName,
		RowCount:    parsed.TotalRows,
		RawSnapshot: snapshot,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create upload record: %w", err)
	}

	result := &UploadResult{
		UploadID:    upload.ID,
		TotalRows:   parsed.TotalRows,
		SkippedRows: parsed.SkippedRows,
	}

	if err := s.importExpenses(ctx, input.UserID, parsed.Expenses, result); err != nil {
		s.markFailed(ctx, upload.ID)
		s.logger.Error("import aborted",
			slog.String("upload_id", upload.ID.String()),
			slog.Int("imported", result.ImportedRows),
			slog.Any("error", err),
		)
		return nil, err
	}

	if err := s.uploads.UpdateStatus(ctx, upload.ID, repository.StatusProcessed); err != nil {
		return nil, fmt.Errorf("failed to finish upload: %w", err)
	}

	s.metrics.UploadsTotal.WithLabelValues(metrics.StatusProcessed).Inc()
	s.metrics.RowsImported.Add(float64(result.ImportedRows))
	s.metrics.RowsDuplicate.Add(float64(result.DuplicateRows))
	s.metrics.RowsSkipped.Add(float64(result.SkippedRows))

	s.logger.Info("upload imported",
		slog.String("upload_id", upload.ID.String()),
		slog.String("user_id", input.UserID.String()),
		slog.Int("total", result.TotalRows),
		slog.Int("imported", result.ImportedRows),
		slog.Int("duplicates", result.DuplicateRows),
		slog.Int("skipped", result.SkippedRows),
	)
	return result, nil
}

func (s *ImportService) importExpenses(ctx context.Context, userID uuid.UUID, expenses []parser.ParsedExpense, result *UploadResult) error {
	assign, err := s.newAssigner(ctx, userID)
	if err != nil {
		return err
	}

	for _, expense := range expenses {
		category, err := assign.categoryFor(ctx, expense.Merchant)
		if err != nil {
			return err
		}

		exists, err := s.transactions.ExistsByExternalID(ctx, userID, expense.ExternalTransactionID)
		if err != nil {
			return err
		}
		if exists {
			result.DuplicateRows++
			continue
		}

		externalID := expense.ExternalTransactionID
		_, err = s.transactions.Create(ctx, txrepo.CreateInput{
			UserID:                userID,
			Date:                  expense.Date,
			Description:           expense.Merchant,
			Amount:                expense.Amount,
			Category:              category,
			PaymentMethod:         expense.PaymentMethod,
			ExternalTransactionID: &externalID,
		})
		if errors.Is(err, txrepo.ErrDuplicateTransaction) {
			result.DuplicateRows++
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", externalID, err)
		}
		result.ImportedRows++
	}
	return nil
}

func (s *ImportService) markFailed(ctx context.Context, uploadID uuid.UUID) {
	s.metrics.UploadsTotal.WithLabelValues(metrics.StatusFailed).Inc()
	if err := s.uploads.UpdateStatus(ctx, uploadID, repository.StatusFailed); err != nil {
		s.logger.Warn("failed to mark upload as failed",
			slog.String("upload_id", uploadID.String()),
			slog.Any("error", err),
		)
	}
}
