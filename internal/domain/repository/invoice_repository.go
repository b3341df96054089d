package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jkarani/invoicing-api/internal/domain/entity"
	"github.com/jkarani/invoicing-api/internal/domain/enum"
	"github.com/jkarani/invoicing-api/pkg/pagination"
	"github.com/shopspring/decimal"
)

// InvoiceRepository defines the interface for invoice data operations
type InvoiceRepository interface {
	// Create persists an invoice together with its lines in one transaction.
	Create(ctx context.Context, invoice *entity.Invoice, lines []entity.InvoiceLine) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error)
	GetWithLines(ctx context.Context, id uuid.UUID) (*entity.Invoice, error)
	GetByInvoiceNo(ctx context.Context, invoiceNo string) (*entity.Invoice, error)
	List(ctx context.Context, userID uuid.UUID, params *InvoiceFilterParams) ([]entity.Invoice, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enum.InvoiceStatus) error
	Stats(ctx context.Context, userID uuid.UUID, skipUserFilter bool) (*InvoiceStats, error)
}

// InvoiceFilterParams contains filtering parameters for invoice queries
type InvoiceFilterParams struct {
	Pagination     *pagination.PaginationParams
	Search         string
	Status         *enum.InvoiceStatus
	CustomerID     *uuid.UUID
	StartDate      *time.Time
	EndDate        *time.Time
	SortBy         string
	SortOrder      string
	SkipUserFilter bool // If true, returns all invoices (for super-admin)
}

// InvoiceStats holds the aggregates shown on the dashboard
type InvoiceStats struct {
	TotalInvoices   int64
	PendingInvoices int64
	PaidInvoices    int64
	Revenue         decimal.Decimal // sum of totals over paid invoices
	Outstanding     decimal.Decimal // sum of totals over pending invoices
}
