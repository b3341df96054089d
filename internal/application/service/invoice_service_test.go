package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jkarani/invoicing-api/internal/config"
	"github.com/jkarani/invoicing-api/internal/domain/entity"
	"github.com/jkarani/invoicing-api/internal/domain/enum"
	"github.com/jkarani/invoicing-api/internal/domain/repository"
	"github.com/jkarani/invoicing-api/pkg/apperror"
	"github.com/jkarani/invoicing-api/pkg/email"
	"github.com/jkarani/invoicing-api/pkg/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProductRepo is an in-memory ProductRepository
type fakeProductRepo struct {
	products map[uuid.UUID]*entity.Product
}

func newFakeProductRepo(products ...*entity.Product) *fakeProductRepo {
	r := &fakeProductRepo{products: make(map[uuid.UUID]*entity.Product)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *fakeProductRepo) Create(ctx context.Context, p *entity.Product) error {
	r.products[p.ID] = p
	return nil
}

func (r *fakeProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	return r.products[id], nil
}

func (r *fakeProductRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Product, error) {
	var out []entity.Product
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) GetBySlug(ctx context.Context, slug string) (*entity.Product, error) {
	for _, p := range r.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakeProductRepo) GetByCode(ctx context.Context, code string) (*entity.Product, error) {
	for _, p := range r.products {
		if p.Code == code {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakeProductRepo) Update(ctx context.Context, p *entity.Product) error {
	r.products[p.ID] = p
	return nil
}

func (r *fakeProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.products, id)
	return nil
}

func (r *fakeProductRepo) List(ctx context.Context, userID uuid.UUID, params *repository.ProductFilterParams) ([]entity.Product, int64, error) {
	return nil, 0, nil
}

func (r *fakeProductRepo) GetLowStock(ctx context.Context, userID uuid.UUID) ([]entity.Product, error) {
	return nil, nil
}

func (r *fakeProductRepo) Count(ctx context.Context, userID uuid.UUID, skip bool) (int64, error) {
	return int64(len(r.products)), nil
}

func (r *fakeProductRepo) CountLowStock(ctx context.Context, userID uuid.UUID, skip bool) (int64, error) {
	return 0, nil
}

func (r *fakeProductRepo) DecrementStockBatch(ctx context.Context, decrements map[uuid.UUID]int) ([]uuid.UUID, error) {
	var failed []uuid.UUID
	for id, amount := range decrements {
		p, ok := r.products[id]
		if !ok || p.Quantity < amount {
			failed = append(failed, id)
		}
	}
	if len(failed) > 0 {
		return failed, nil
	}
	for id, amount := range decrements {
		r.products[id].Quantity -= amount
	}
	return nil, nil
}

func (r *fakeProductRepo) IncrementStockBatch(ctx context.Context, increments map[uuid.UUID]int) error {
	for id, amount := range increments {
		if p, ok := r.products[id]; ok {
			p.Quantity += amount
		}
	}
	return nil
}

// fakeInvoiceRepo is an in-memory InvoiceRepository
type fakeInvoiceRepo struct {
	invoices  map[uuid.UUID]*entity.Invoice
	createErr error
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: make(map[uuid.UUID]*entity.Invoice)}
}

func (r *fakeInvoiceRepo) Create(ctx context.Context, invoice *entity.Invoice, lines []entity.InvoiceLine) error {
	if r.createErr != nil {
		return r.createErr
	}
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	for i := range lines {
		lines[i].InvoiceID = invoice.ID
	}
	invoice.Lines = lines
	r.invoices[invoice.ID] = invoice
	return nil
}

func (r *fakeInvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	return r.invoices[id], nil
}

func (r *fakeInvoiceRepo) GetWithLines(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	return r.invoices[id], nil
}

func (r *fakeInvoiceRepo) GetByInvoiceNo(ctx context.Context, no string) (*entity.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.InvoiceNo == no {
			return inv, nil
		}
	}
	return nil, nil
}

func (r *fakeInvoiceRepo) List(ctx context.Context, userID uuid.UUID, params *repository.InvoiceFilterParams) ([]entity.Invoice, int64, error) {
	var out []entity.Invoice
	for _, inv := range r.invoices {
		out = append(out, *inv)
	}
	return out, int64(len(out)), nil
}

func (r *fakeInvoiceRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enum.InvoiceStatus) error {
	if inv, ok := r.invoices[id]; ok {
		inv.Status = status
	}
	return nil
}

func (r *fakeInvoiceRepo) Stats(ctx context.Context, userID uuid.UUID, skip bool) (*repository.InvoiceStats, error) {
	return &repository.InvoiceStats{Revenue: decimal.Zero, Outstanding: decimal.Zero}, nil
}

// fakeCustomerRepo is an in-memory CustomerRepository
type fakeCustomerRepo struct {
	customers map[uuid.UUID]*entity.Customer
}

func newFakeCustomerRepo(customers ...*entity.Customer) *fakeCustomerRepo {
	r := &fakeCustomerRepo{customers: make(map[uuid.UUID]*entity.Customer)}
	for _, c := range customers {
		r.customers[c.ID] = c
	}
	return r
}

func (r *fakeCustomerRepo) Create(ctx context.Context, c *entity.Customer) error {
	r.customers[c.ID] = c
	return nil
}

func (r *fakeCustomerRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Customer, error) {
	return r.customers[id], nil
}

func (r *fakeCustomerRepo) Update(ctx context.Context, c *entity.Customer) error {
	r.customers[c.ID] = c
	return nil
}

func (r *fakeCustomerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.customers, id)
	return nil
}

func (r *fakeCustomerRepo) List(ctx context.Context, userID uuid.UUID, params *pagination.PaginationParams, search string, skip bool) ([]entity.Customer, int64, error) {
	return nil, 0, nil
}

func (r *fakeCustomerRepo) Count(ctx context.Context, userID uuid.UUID, skip bool) (int64, error) {
	return int64(len(r.customers)), nil
}

func newTestInvoiceService(productRepo *fakeProductRepo, invoiceRepo *fakeInvoiceRepo, customerRepo *fakeCustomerRepo) *InvoiceService {
	return NewInvoiceService(
		invoiceRepo,
		productRepo,
		customerRepo,
		nil, // user repo only needed for email notifications
		email.NewEmailService(email.EmailConfig{}),
		config.InvoiceConfig{TaxRate: decimal.NewFromFloat(0.15)},
	)
}

func testProduct(name string, price float64, stock int) *entity.Product {
	return &entity.Product{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Name:      name,
		Slug:      name,
		Code:      "PROD-" + name,
		UnitPrice: decimal.NewFromFloat(price),
		Quantity:  stock,
		Active:    true,
	}
}

func TestCreateInvoiceRecomputesTotals(t *testing.T) {
	widget := testProduct("widget", 10.00, 5)
	productRepo := newFakeProductRepo(widget)
	invoiceRepo := newFakeInvoiceRepo()
	svc := newTestInvoiceService(productRepo, invoiceRepo, newFakeCustomerRepo())

	itemDiscount := decimal.NewFromFloat(1.50)
	invoice, err := svc.CreateInvoice(context.Background(), &CreateInvoiceInput{
		UserID:        uuid.New(),
		PaymentMethod: enum.PaymentMethodCash,
		TaxEnabled:    true,
		Lines: []InvoiceLineInput{
			{ProductID: widget.ID, Quantity: 2, ItemDiscount: &itemDiscount},
		},
	})
	require.NoError(t, err)

	// 2 x 10.00 subtotal, 2 x 1.50 tax, 1.50 discount
	assert.True(t, invoice.SubTotal.Equal(decimal.NewFromFloat(20.00)), "subtotal %s", invoice.SubTotal)
	assert.True(t, invoice.Tax.Equal(decimal.NewFromFloat(3.00)), "tax %s", invoice.Tax)
	assert.True(t, invoice.Discount.Equal(decimal.NewFromFloat(1.50)), "discount %s", invoice.Discount)
	assert.True(t, invoice.Total.Equal(decimal.NewFromFloat(21.50)), "total %s", invoice.Total)
	assert.Equal(t, enum.InvoiceStatusPending, invoice.Status)
	assert.NotEmpty(t, invoice.InvoiceNo)

	// stock decremented by the merged line quantity
	assert.Equal(t, 3, productRepo.products[widget.ID].Quantity)
}

func TestCreateInvoiceTaxDisabled(t *testing.T) {
	widget := testProduct("widget", 10.00, 5)
	svc := newTestInvoiceService(newFakeProductRepo(widget), newFakeInvoiceRepo(), newFakeCustomerRepo())

	invoice, err := svc.CreateInvoice(context.Background(), &CreateInvoiceInput{
		UserID:        uuid.New(),
		PaymentMethod: enum.PaymentMethodCard,
		TaxEnabled:    false,
		Lines:         []InvoiceLineInput{{ProductID: widget.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	assert.True(t, invoice.Tax.IsZero())
	assert.True(t, invoice.Total.Equal(decimal.NewFromFloat(30.00)))
	assert.False(t, invoice.TaxEnabled)
}

func TestCreateInvoicePriceOverrideIgnoresClientTotals(t *testing.T) {
	widget := testProduct("widget", 10.00, 5)
	svc := newTestInvoiceService(newFakeProductRepo(widget), newFakeInvoiceRepo(), newFakeCustomerRepo())

	override := decimal.NewFromFloat(8.00)
	invoice, err := svc.CreateInvoice(context.Background(), &CreateInvoiceInput{
		UserID:        uuid.New(),
		PaymentMethod: enum.PaymentMethodCash,
		TaxEnabled:    true,
		Lines: []InvoiceLineInput{
			{ProductID: widget.ID, Quantity: 1, UnitPrice: &override},
		},
	})
	require.NoError(t, err)

	// tax follows the overridden price: 8.00 * 0.15 = 1.20
	assert.True(t, invoice.SubTotal.Equal(decimal.NewFromFloat(8.00)))
	assert.True(t, invoice.Tax.Equal(decimal.NewFromFloat(1.20)))
	require.Len(t, invoice.Lines, 1)
	assert.True(t, invoice.Lines[0].UnitPrice.Equal(override))
}

func TestCreateInvoiceMergesDuplicateProductLines(t *testing.T) {
	widget := testProduct("widget", 10.00, 5)
	productRepo := newFakeProductRepo(widget)
	svc := newTestInvoiceService(productRepo, newFakeInvoiceRepo(), newFakeCustomerRepo())

	invoice, err := svc.CreateInvoice(context.Background(), &CreateInvoiceInput{
		UserID:        uuid.New(),
		PaymentMethod: enum.PaymentMethodCash,
		TaxEnabled:    false,
		Lines: []InvoiceLineInput{
			{ProductID: widget.ID, Quantity: 2},
			{ProductID: widget.ID, Quantity: 3},
		},
	})
	require.NoError(t, err)

	require.Len(t, invoice.Lines, 1)
	assert.Equal(t, 5, invoice.Lines[0].Quantity)
	assert.Equal(t, 0, productRepo.products[widget.ID].Quantity)
}

func TestCreateInvoiceInsufficientStock(t *testing.T) {
	widget := testProduct("widget", 10.00, 5)
	productRepo := newFakeProductRepo(widget)
	svc := newTestInvoiceService(productRepo, newFakeInvoiceRepo(), newFakeCustomerRepo())

	_, err := svc.CreateInvoice(context.Background(), &CreateInvoiceInput{
		UserID:        uuid.New(),
		PaymentMethod: enum.PaymentMethodCash,
		Lines:         []InvoiceLineInput{{ProductID: widget.ID, Quantity: 6}},
	})
	require.Error(t, err)
	assert.Equal(t, 400, apperror.GetAppError(err).Code)

	// stock untouched
	assert.Equal(t, 5, productRepo.products[widget.ID].Quantity)
}

func TestCreateInvoiceUnknownProduct(t *testing.T) {
	svc := newTestInvoiceService(newFakeProductRepo(), newFakeInvoiceRepo(), newFakeCustomerRepo())

	_, err := svc.CreateInvoice(context.Background(), &CreateInvoiceInput{
		UserID:        uuid.New(),
		PaymentMethod: enum.PaymentMethodCash,
		Lines:         []InvoiceLineInput{{ProductID: uuid.New(), Quantity: 1}},
	})
	require.Error(t, err)
	assert.Equal(t, 404, apperror.GetAppError(err).Code)
}

func TestCreateInvoiceNoLines(t *testing.T) {
	svc := newTestInvoiceService(newFakeProductRepo(), newFakeInvoiceRepo(), newFakeCustomerRepo())

	_, err := svc.CreateInvoice(context.Background(), &CreateInvoiceInput{
		UserID:        uuid.New(),
		PaymentMethod: enum.PaymentMethodCash,
	})
	require.Error(t, err)
	assert.Equal(t, 400, apperror.GetAppError(err).Code)
}

func TestCreateInvoiceRenameKeepsOriginalName(t *testing.T) {
	widget := testProduct("widget", 10.00, 5)
	svc := newTestInvoiceService(newFakeProductRepo(widget), newFakeInvoiceRepo(), newFakeCustomerRepo())

	display := "Widget (blue)"
	invoice, err := svc.CreateInvoice(context.Background(), &CreateInvoiceInput{
		UserID:        uuid.New(),
		PaymentMethod: enum.PaymentMethodCash,
		Lines: []InvoiceLineInput{
			{ProductID: widget.ID, Quantity: 1, DisplayName: &display},
		},
	})
	require.NoError(t, err)

	require.Len(t, invoice.Lines, 1)
	assert.Equal(t, "Widget (blue)", invoice.Lines[0].DisplayName)
	assert.Equal(t, "widget", invoice.Lines[0].OriginalName)
}

func TestCreateInvoicePersistFailureRestoresStock(t *testing.T) {
	widget := testProduct("widget", 10.00, 5)
	productRepo := newFakeProductRepo(widget)
	invoiceRepo := newFakeInvoiceRepo()
	invoiceRepo.createErr = assert.AnError
	svc := newTestInvoiceService(productRepo, invoiceRepo, newFakeCustomerRepo())

	_, err := svc.CreateInvoice(context.Background(), &CreateInvoiceInput{
		UserID:        uuid.New(),
		PaymentMethod: enum.PaymentMethodCash,
		Lines:         []InvoiceLineInput{{ProductID: widget.ID, Quantity: 2}},
	})
	require.Error(t, err)

	assert.Equal(t, 5, productRepo.products[widget.ID].Quantity)
}

func TestCancelInvoiceRestoresStock(t *testing.T) {
	widget := testProduct("widget", 10.00, 5)
	productRepo := newFakeProductRepo(widget)
	invoiceRepo := newFakeInvoiceRepo()
	svc := newTestInvoiceService(productRepo, invoiceRepo, newFakeCustomerRepo())

	invoice, err := svc.CreateInvoice(context.Background(), &CreateInvoiceInput{
		UserID:        uuid.New(),
		PaymentMethod: enum.PaymentMethodCash,
		Lines:         []InvoiceLineInput{{ProductID: widget.ID, Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, productRepo.products[widget.ID].Quantity)

	cancelled, err := svc.CancelInvoice(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.InvoiceStatusCancelled, cancelled.Status)
	assert.Equal(t, 5, productRepo.products[widget.ID].Quantity)
}

func TestCancelPaidInvoiceRejected(t *testing.T) {
	widget := testProduct("widget", 10.00, 5)
	productRepo := newFakeProductRepo(widget)
	invoiceRepo := newFakeInvoiceRepo()
	svc := newTestInvoiceService(productRepo, invoiceRepo, newFakeCustomerRepo())

	invoice, err := svc.CreateInvoice(context.Background(), &CreateInvoiceInput{
		UserID:        uuid.New(),
		PaymentMethod: enum.PaymentMethodCash,
		Lines:         []InvoiceLineInput{{ProductID: widget.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.MarkPaid(context.Background(), invoice.ID)
	require.NoError(t, err)

	_, err = svc.CancelInvoice(context.Background(), invoice.ID)
	require.Error(t, err)
	assert.Equal(t, 409, apperror.GetAppError(err).Code)
}

func TestCreateInvoiceGeneralDiscountCanExceedTotal(t *testing.T) {
	widget := testProduct("widget", 10.00, 5)
	svc := newTestInvoiceService(newFakeProductRepo(widget), newFakeInvoiceRepo(), newFakeCustomerRepo())

	invoice, err := svc.CreateInvoice(context.Background(), &CreateInvoiceInput{
		UserID:          uuid.New(),
		PaymentMethod:   enum.PaymentMethodCash,
		TaxEnabled:      false,
		GeneralDiscount: decimal.NewFromFloat(50.00),
		Lines:           []InvoiceLineInput{{ProductID: widget.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	// invoice-level discount is not floored against the subtotal
	assert.True(t, invoice.Total.Equal(decimal.NewFromFloat(-40.00)), "total %s", invoice.Total)
}

func TestCreateInvoiceInactiveProductRejected(t *testing.T) {
	widget := testProduct("widget", 10.00, 5)
	widget.Active = false
	svc := newTestInvoiceService(newFakeProductRepo(widget), newFakeInvoiceRepo(), newFakeCustomerRepo())

	_, err := svc.CreateInvoice(context.Background(), &CreateInvoiceInput{
		UserID:        uuid.New(),
		PaymentMethod: enum.PaymentMethodCash,
		Lines:         []InvoiceLineInput{{ProductID: widget.ID, Quantity: 1}},
	})
	require.Error(t, err)
	assert.Equal(t, 400, apperror.GetAppError(err).Code)
}

func TestCreateInvoiceUnknownCustomer(t *testing.T) {
	widget := testProduct("widget", 10.00, 5)
	svc := newTestInvoiceService(newFakeProductRepo(widget), newFakeInvoiceRepo(), newFakeCustomerRepo())

	customerID := uuid.New()
	_, err := svc.CreateInvoice(context.Background(), &CreateInvoiceInput{
		UserID:        uuid.New(),
		CustomerID:    &customerID,
		PaymentMethod: enum.PaymentMethodCash,
		Lines:         []InvoiceLineInput{{ProductID: widget.ID, Quantity: 1}},
	})
	require.Error(t, err)
	assert.Equal(t, 404, apperror.GetAppError(err).Code)
}
