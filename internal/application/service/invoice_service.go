package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jkarani/invoicing-api/internal/config"
	"github.com/jkarani/invoicing-api/internal/domain/draft"
	"github.com/jkarani/invoicing-api/internal/domain/entity"
	"github.com/jkarani/invoicing-api/internal/domain/enum"
	"github.com/jkarani/invoicing-api/internal/domain/repository"
	"github.com/jkarani/invoicing-api/pkg/apperror"
	"github.com/jkarani/invoicing-api/pkg/email"
	"github.com/jkarani/invoicing-api/pkg/pagination"
	"github.com/jkarani/invoicing-api/pkg/utils"
	"github.com/shopspring/decimal"
)

// InvoiceService handles invoice-related operations. Every money figure on a
// confirmed invoice comes out of the draft calculator; the service never
// does its own arithmetic and never trusts totals sent by a client.
type InvoiceService struct {
	invoiceRepo  repository.InvoiceRepository
	productRepo  repository.ProductRepository
	customerRepo repository.CustomerRepository
	userRepo     repository.UserRepository
	emailService *email.EmailService
	invoiceCfg   config.InvoiceConfig
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	userRepo repository.UserRepository,
	emailService *email.EmailService,
	invoiceCfg config.InvoiceConfig,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo:  invoiceRepo,
		productRepo:  productRepo,
		customerRepo: customerRepo,
		userRepo:     userRepo,
		emailService: emailService,
		invoiceCfg:   invoiceCfg,
	}
}

// InvoiceLineInput represents one line of an invoice creation request. The
// optional fields carry the edits the user made on the draft screen.
type InvoiceLineInput struct {
	ProductID    uuid.UUID
	Quantity     int
	UnitPrice    *decimal.Decimal // price override, catalog price when nil
	ItemDiscount *decimal.Decimal
	DisplayName  *string
}

// CreateInvoiceInput represents the create invoice input. InvoiceNo and
// InvoiceDate are optional; a number is generated and today's date used when
// they are absent.
type CreateInvoiceInput struct {
	UserID          uuid.UUID
	CustomerID      *uuid.UUID
	InvoiceNo       string
	InvoiceDate     *time.Time
	PaymentMethod   enum.PaymentMethod
	TaxEnabled      bool
	GeneralDiscount decimal.Decimal
	Notes           *string
	Lines           []InvoiceLineInput
	SendEmail       bool
}

// CreateInvoice builds a confirmed invoice from the submitted lines. The
// submission is replayed through a fresh draft so the stored totals are
// always the calculator's, then stock is decremented atomically before the
// invoice is persisted.
func (s *InvoiceService) CreateInvoice(ctx context.Context, input *CreateInvoiceInput) (*entity.Invoice, error) {
	if len(input.Lines) == 0 {
		return nil, apperror.NewBadRequestError("Invoice must have at least one line")
	}

	if !input.PaymentMethod.IsValid() {
		return nil, apperror.NewBadRequestError("Invalid payment method")
	}

	// Validate customer if provided
	var customer *entity.Customer
	if input.CustomerID != nil {
		var err error
		customer, err = s.customerRepo.GetByID(ctx, *input.CustomerID)
		if err != nil {
			return nil, err
		}
		if customer == nil {
			return nil, apperror.NewNotFoundError("Customer")
		}
	}

	// Batch fetch all products in one query (prevents N+1)
	productIDs := make([]uuid.UUID, len(input.Lines))
	for i, line := range input.Lines {
		productIDs[i] = line.ProductID
	}

	products, err := s.productRepo.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	productMap := make(map[uuid.UUID]*entity.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	// Replay the submission through the calculator. Each input line becomes
	// an AddLine plus the edits the draft screen allows.
	d := draft.New(s.invoiceCfg.TaxRate)
	d.SetTaxEnabled(input.TaxEnabled)
	d.SetGeneralDiscount(input.GeneralDiscount)

	for _, line := range input.Lines {
		product, exists := productMap[line.ProductID]
		if !exists {
			return nil, apperror.NewNotFoundError(fmt.Sprintf("Product %s", line.ProductID))
		}
		if !product.Active {
			return nil, apperror.NewBadRequestError(fmt.Sprintf("Product %s is not active", product.Name))
		}

		item := &draft.CatalogItem{
			ID:             product.ID,
			Name:           product.Name,
			UnitPrice:      product.UnitPrice,
			AvailableStock: product.Quantity,
			Active:         product.Active,
		}

		added, err := d.AddLine(item, line.Quantity)
		if err != nil {
			return nil, mapDraftError(err, product.Name)
		}

		if line.UnitPrice != nil {
			if err := d.SetUnitPrice(added.ID, *line.UnitPrice); err != nil {
				return nil, mapDraftError(err, product.Name)
			}
		}
		if line.ItemDiscount != nil {
			if err := d.SetItemDiscount(added.ID, *line.ItemDiscount); err != nil {
				return nil, mapDraftError(err, product.Name)
			}
		}
		if line.DisplayName != nil && *line.DisplayName != "" {
			if err := d.RenameLine(added.ID, *line.DisplayName); err != nil {
				return nil, mapDraftError(err, product.Name)
			}
		}
	}

	submission, err := d.Submission()
	if err != nil {
		return nil, mapDraftError(err, "")
	}

	// Prepare atomic stock decrements from the merged draft lines, not the
	// raw input, so duplicate product lines count once at their merged
	// quantity.
	stockDecrements := make(map[uuid.UUID]int, len(submission.Lines))
	for _, line := range submission.Lines {
		stockDecrements[line.ProductID] = line.Quantity
	}

	// Atomically decrement stock. If any product has insufficient stock the
	// entire decrement rolls back and the invoice is not created.
	failedIDs, err := s.productRepo.DecrementStockBatch(ctx, stockDecrements)
	if err != nil {
		return nil, err
	}
	if len(failedIDs) > 0 {
		var failedNames []string
		for _, id := range failedIDs {
			if product, exists := productMap[id]; exists {
				failedNames = append(failedNames, product.Name)
			}
		}
		return nil, apperror.NewAppError(400, fmt.Sprintf("Insufficient stock for: %v", failedNames))
	}

	invoiceNo := input.InvoiceNo
	if invoiceNo == "" {
		invoiceNo = utils.GenerateInvoiceNo()
	}
	invoiceDate := time.Now()
	if input.InvoiceDate != nil {
		invoiceDate = *input.InvoiceDate
	}

	invoice := &entity.Invoice{
		UserID:        input.UserID,
		CustomerID:    input.CustomerID,
		InvoiceNo:     invoiceNo,
		InvoiceDate:   invoiceDate,
		Status:        enum.InvoiceStatusPending,
		PaymentMethod: input.PaymentMethod,
		TaxEnabled:    d.TaxEnabled(),
		SubTotal:      submission.Subtotal,
		Tax:           submission.Tax,
		Discount:      submission.Discount,
		Total:         submission.Total,
		Notes:         input.Notes,
	}

	lines := make([]entity.InvoiceLine, 0, len(submission.Lines))
	for _, dl := range d.Lines() {
		lines = append(lines, entity.InvoiceLine{
			ProductID:    dl.ProductID,
			DisplayName:  dl.DisplayName,
			OriginalName: dl.OriginalName,
			Quantity:     dl.Quantity,
			UnitPrice:    dl.UnitPrice.Round(2),
			TaxPerUnit:   dl.TaxPerUnit.Round(2),
			ItemDiscount: dl.ItemDiscount.Round(2),
			SubTotal:     dl.Subtotal.Round(2),
		})
	}

	if err := s.invoiceRepo.Create(ctx, invoice, lines); err != nil {
		// Stock was already decremented, restore it
		_ = s.productRepo.IncrementStockBatch(ctx, stockDecrements)
		return nil, err
	}

	if input.SendEmail && customer != nil && customer.Email != nil {
		s.notifyCustomer(ctx, invoice, customer)
	}

	return invoice, nil
}

// GetInvoice retrieves an invoice with its lines
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	invoice, err := s.invoiceRepo.GetWithLines(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperror.NewNotFoundError("Invoice")
	}
	return invoice, nil
}

// GetInvoiceByNo retrieves an invoice by its invoice number
func (s *InvoiceService) GetInvoiceByNo(ctx context.Context, invoiceNo string) (*entity.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByInvoiceNo(ctx, invoiceNo)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperror.NewNotFoundError("Invoice")
	}
	return invoice, nil
}

// ListInvoices lists invoices with pagination and filtering
func (s *InvoiceService) ListInvoices(ctx context.Context, userID uuid.UUID, params *repository.InvoiceFilterParams) (*pagination.PaginatedResult[entity.Invoice], error) {
	if params.Pagination == nil {
		params.Pagination = pagination.DefaultPagination()
	}

	invoices, total, err := s.invoiceRepo.List(ctx, userID, params)
	if err != nil {
		return nil, err
	}

	p := pagination.NewPagination(params.Pagination.Page, params.Pagination.PerPage, total)
	return pagination.NewPaginatedResult(invoices, p), nil
}

// MarkPaid transitions a pending invoice to paid
func (s *InvoiceService) MarkPaid(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperror.NewNotFoundError("Invoice")
	}
	if invoice.Status != enum.InvoiceStatusPending {
		return nil, apperror.NewConflictError(fmt.Sprintf("Invoice is %s and cannot be marked paid", invoice.Status))
	}

	if err := s.invoiceRepo.UpdateStatus(ctx, id, enum.InvoiceStatusPaid); err != nil {
		return nil, err
	}
	invoice.Status = enum.InvoiceStatusPaid
	return invoice, nil
}

// CancelInvoice cancels a pending invoice and restores the stock its lines
// consumed. Paid invoices cannot be cancelled.
func (s *InvoiceService) CancelInvoice(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	invoice, err := s.invoiceRepo.GetWithLines(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperror.NewNotFoundError("Invoice")
	}
	if invoice.Status != enum.InvoiceStatusPending {
		return nil, apperror.NewConflictError(fmt.Sprintf("Invoice is %s and cannot be cancelled", invoice.Status))
	}

	if err := s.invoiceRepo.UpdateStatus(ctx, id, enum.InvoiceStatusCancelled); err != nil {
		return nil, err
	}

	increments := make(map[uuid.UUID]int, len(invoice.Lines))
	for _, line := range invoice.Lines {
		increments[line.ProductID] += line.Quantity
	}
	if err := s.productRepo.IncrementStockBatch(ctx, increments); err != nil {
		log.Printf("Warning: failed to restore stock for cancelled invoice %s: %v", invoice.InvoiceNo, err)
	}

	invoice.Status = enum.InvoiceStatusCancelled
	return invoice, nil
}

// notifyCustomer sends the invoice-issued email. Failures are logged, not
// returned; the invoice is already persisted.
func (s *InvoiceService) notifyCustomer(ctx context.Context, invoice *entity.Invoice, customer *entity.Customer) {
	if !s.emailService.IsConfigured() {
		return
	}

	businessName := "Your supplier"
	if user, err := s.userRepo.GetByID(ctx, invoice.UserID); err == nil && user != nil && user.BusinessName != nil {
		businessName = *user.BusinessName
	}

	data := email.InvoiceIssuedData{
		CustomerName: customer.Name,
		InvoiceNo:    invoice.InvoiceNo,
		InvoiceDate:  invoice.InvoiceDate.Format("2006-01-02"),
		Total:        invoice.Total.StringFixed(2),
		BusinessName: businessName,
	}
	if err := s.emailService.SendInvoiceIssued(*customer.Email, data); err != nil {
		log.Printf("Warning: failed to send invoice email for %s: %v", invoice.InvoiceNo, err)
	}
}

// mapDraftError translates calculator errors into HTTP-facing app errors
func mapDraftError(err error, productName string) error {
	switch {
	case errors.Is(err, draft.ErrInsufficientStock):
		if productName != "" {
			return apperror.NewBadRequestError(fmt.Sprintf("Insufficient stock for %s", productName))
		}
		return apperror.NewBadRequestError("Insufficient stock")
	case errors.Is(err, draft.ErrEmptyInvoice):
		return apperror.NewBadRequestError("Invoice must have at least one line")
	case errors.Is(err, draft.ErrNotFound):
		return apperror.NewNotFoundError("Product")
	default:
		return err
	}
}
