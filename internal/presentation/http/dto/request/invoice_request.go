package request

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceLineRequest represents one line of an invoice creation request.
// UnitPrice overrides the catalog price when present; DisplayName overrides
// the catalog name on the printed invoice.
type InvoiceLineRequest struct {
	ProductID    uuid.UUID        `json:"product_id" binding:"required"`
	Quantity     int              `json:"quantity"`
	UnitPrice    *decimal.Decimal `json:"unit_price"`
	ItemDiscount *decimal.Decimal `json:"item_discount"`
	DisplayName  *string          `json:"display_name"`
}

// CreateInvoiceRequest represents an invoice creation request. Totals are
// never part of the request; the server recomputes them.
type CreateInvoiceRequest struct {
	CustomerID      *uuid.UUID           `json:"customer_id"`
	InvoiceNo       string               `json:"invoice_no" binding:"omitempty,max=100"`
	InvoiceDate     *time.Time           `json:"invoice_date"`
	PaymentMethod   string               `json:"payment_method" binding:"required"`
	TaxEnabled      *bool                `json:"tax_enabled"`
	GeneralDiscount decimal.Decimal      `json:"general_discount"`
	Notes           *string              `json:"notes"`
	Lines           []InvoiceLineRequest `json:"lines" binding:"required,min=1"`
	SendEmail       bool                 `json:"send_email"`
}

// UpdateInvoiceStatusRequest represents an invoice status change request
type UpdateInvoiceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
