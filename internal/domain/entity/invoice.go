package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/jkarani/invoicing-api/internal/domain/enum"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice represents a confirmed invoice. All money figures are computed
// server-side by the draft calculator at creation time and stored rounded to
// two places.
type Invoice struct {
	ID            uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	UserID        uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	CustomerID    *uuid.UUID         `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	InvoiceNo     string             `gorm:"size:100;unique;not null" json:"invoice_no"`
	InvoiceDate   time.Time          `gorm:"type:date;not null" json:"invoice_date"`
	Status        enum.InvoiceStatus `gorm:"default:0" json:"status"`
	PaymentMethod enum.PaymentMethod `gorm:"size:20;not null" json:"payment_method"`
	TaxEnabled    bool               `gorm:"default:true" json:"tax_enabled"`
	SubTotal      decimal.Decimal    `gorm:"type:numeric(14,2)" json:"sub_total"`
	Tax           decimal.Decimal    `gorm:"type:numeric(14,2)" json:"tax"`
	Discount      decimal.Decimal    `gorm:"type:numeric(14,2)" json:"discount"`
	Total         decimal.Decimal    `gorm:"type:numeric(14,2)" json:"total"`
	Notes         *string            `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	DeletedAt     gorm.DeletedAt     `gorm:"index" json:"-"`

	// Relationships
	User     User          `gorm:"foreignKey:UserID" json:"-"`
	Customer *Customer     `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Lines    []InvoiceLine `gorm:"foreignKey:InvoiceID" json:"lines,omitempty"`
}

// BeforeCreate generates a UUID before creating a new invoice
func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Invoice model
func (Invoice) TableName() string {
	return "invoices"
}

// InvoiceLine represents one line item on a confirmed invoice. DisplayName
// may diverge from the catalog name at submission time; OriginalName keeps
// the catalog name for audit display.
type InvoiceLine struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	InvoiceID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	DisplayName  string          `gorm:"size:255;not null" json:"display_name"`
	OriginalName string          `gorm:"size:255;not null" json:"original_name"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unit_price"`
	TaxPerUnit   decimal.Decimal `gorm:"type:numeric(14,2)" json:"tax_per_unit"`
	ItemDiscount decimal.Decimal `gorm:"type:numeric(14,2)" json:"item_discount"`
	SubTotal     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"sub_total"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relationships
	Invoice Invoice `gorm:"foreignKey:InvoiceID" json:"-"`
	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// BeforeCreate generates a UUID before creating a new invoice line
func (l *InvoiceLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the InvoiceLine model
func (InvoiceLine) TableName() string {
	return "invoice_lines"
}
