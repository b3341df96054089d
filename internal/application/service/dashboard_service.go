package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jkarani/invoicing-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// DashboardService aggregates the figures shown on the console landing page
type DashboardService struct {
	invoiceRepo  repository.InvoiceRepository
	productRepo  repository.ProductRepository
	customerRepo repository.CustomerRepository
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	invoiceRepo repository.InvoiceRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
) *DashboardService {
	return &DashboardService{
		invoiceRepo:  invoiceRepo,
		productRepo:  productRepo,
		customerRepo: customerRepo,
	}
}

// DashboardStats holds the dashboard summary
type DashboardStats struct {
	TotalInvoices    int64           `json:"total_invoices"`
	PendingInvoices  int64           `json:"pending_invoices"`
	PaidInvoices     int64           `json:"paid_invoices"`
	Revenue          decimal.Decimal `json:"revenue"`
	Outstanding      decimal.Decimal `json:"outstanding"`
	TotalProducts    int64           `json:"total_products"`
	LowStockProducts int64           `json:"low_stock_products"`
	TotalCustomers   int64           `json:"total_customers"`
}

// GetStats assembles the dashboard summary for a user. Super admins see
// figures across all users.
func (s *DashboardService) GetStats(ctx context.Context, userID uuid.UUID, skipUserFilter bool) (*DashboardStats, error) {
	invoiceStats, err := s.invoiceRepo.Stats(ctx, userID, skipUserFilter)
	if err != nil {
		return nil, err
	}

	totalProducts, err := s.productRepo.Count(ctx, userID, skipUserFilter)
	if err != nil {
		return nil, err
	}

	lowStock, err := s.productRepo.CountLowStock(ctx, userID, skipUserFilter)
	if err != nil {
		return nil, err
	}

	totalCustomers, err := s.customerRepo.Count(ctx, userID, skipUserFilter)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		TotalInvoices:    invoiceStats.TotalInvoices,
		PendingInvoices:  invoiceStats.PendingInvoices,
		PaidInvoices:     invoiceStats.PaidInvoices,
		Revenue:          invoiceStats.Revenue,
		Outstanding:      invoiceStats.Outstanding,
		TotalProducts:    totalProducts,
		LowStockProducts: lowStock,
		TotalCustomers:   totalCustomers,
	}, nil
}
