package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jkarani/invoicing-api/internal/domain/entity"
	"github.com/jkarani/invoicing-api/internal/domain/enum"
	domainRepo "github.com/jkarani/invoicing-api/internal/domain/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *gorm.DB) domainRepo.InvoiceRepository {
	return &invoiceRepository{db: db}
}

// Create persists the invoice and its lines in a single transaction so a
// failure on either leaves no partial invoice behind.
func (r *invoiceRepository) Create(ctx context.Context, invoice *entity.Invoice, lines []entity.InvoiceLine) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(invoice).Error; err != nil {
			return err
		}
		for i := range lines {
			lines[i].InvoiceID = invoice.ID
		}
		if err := tx.Create(&lines).Error; err != nil {
			return err
		}
		invoice.Lines = lines
		return nil
	})
}

func (r *invoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	var invoice entity.Invoice
	err := r.db.WithContext(ctx).First(&invoice, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &invoice, err
}

func (r *invoiceRepository) GetWithLines(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	var invoice entity.Invoice
	err := r.db.WithContext(ctx).
		Preload("Customer").Preload("Lines").
		First(&invoice, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &invoice, err
}

func (r *invoiceRepository) GetByInvoiceNo(ctx context.Context, invoiceNo string) (*entity.Invoice, error) {
	var invoice entity.Invoice
	err := r.db.WithContext(ctx).
		Preload("Customer").Preload("Lines").
		First(&invoice, "invoice_no = ?", invoiceNo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &invoice, err
}

func (r *invoiceRepository) List(ctx context.Context, userID uuid.UUID, params *domainRepo.InvoiceFilterParams) ([]entity.Invoice, int64, error) {
	var invoices []entity.Invoice
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Invoice{})
	if !params.SkipUserFilter {
		query = query.Where("user_id = ?", userID)
	}

	if params.Search != "" {
		query = query.Where("invoice_no ILIKE ?", "%"+params.Search+"%")
	}

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	if params.CustomerID != nil {
		query = query.Where("customer_id = ?", *params.CustomerID)
	}

	if params.StartDate != nil {
		query = query.Where("invoice_date >= ?", *params.StartDate)
	}

	if params.EndDate != nil {
		query = query.Where("invoice_date <= ?", *params.EndDate)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Sorting
	sortBy := "created_at"
	sortOrder := "DESC"
	if params.SortBy != "" {
		sortBy = params.SortBy
	}
	if params.SortOrder != "" && (params.SortOrder == "ASC" || params.SortOrder == "asc") {
		sortOrder = "ASC"
	}

	params.Pagination.Validate()
	err := query.Offset(params.Pagination.Offset()).Limit(params.Pagination.PerPage).
		Preload("Customer").
		Order(sortBy + " " + sortOrder).
		Find(&invoices).Error

	return invoices, total, err
}

func (r *invoiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status enum.InvoiceStatus) error {
	return r.db.WithContext(ctx).Model(&entity.Invoice{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// Stats aggregates invoice counts and money figures for the dashboard.
// Revenue sums paid invoices; outstanding sums pending ones.
func (r *invoiceRepository) Stats(ctx context.Context, userID uuid.UUID, skipUserFilter bool) (*domainRepo.InvoiceStats, error) {
	stats := &domainRepo.InvoiceStats{
		Revenue:     decimal.Zero,
		Outstanding: decimal.Zero,
	}

	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&entity.Invoice{})
		if !skipUserFilter {
			q = q.Where("user_id = ?", userID)
		}
		return q
	}

	if err := base().Count(&stats.TotalInvoices).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", enum.InvoiceStatusPending).
		Count(&stats.PendingInvoices).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", enum.InvoiceStatusPaid).
		Count(&stats.PaidInvoices).Error; err != nil {
		return nil, err
	}

	var revenue decimal.NullDecimal
	if err := base().Where("status = ?", enum.InvoiceStatusPaid).
		Select("SUM(total)").Scan(&revenue).Error; err != nil {
		return nil, err
	}
	if revenue.Valid {
		stats.Revenue = revenue.Decimal
	}

	var outstanding decimal.NullDecimal
	if err := base().Where("status = ?", enum.InvoiceStatusPending).
		Select("SUM(total)").Scan(&outstanding).Error; err != nil {
		return nil, err
	}
	if outstanding.Valid {
		stats.Outstanding = outstanding.Decimal
	}

	return stats, nil
}
