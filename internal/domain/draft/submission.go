package draft

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubmissionLine is the line shape expected by the invoice-creation endpoint.
type SubmissionLine struct {
	ProductID   uuid.UUID
	DisplayName string
	Quantity    int
}

// Submission projects a draft into the shape consumed by the invoice
// persistence layer. Money values are rounded to two places here, at the
// boundary; the draft itself keeps full precision.
type Submission struct {
	Lines    []SubmissionLine
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Submission returns the draft's submission payload. A draft with no lines
// cannot be submitted.
func (d *Draft) Submission() (*Submission, error) {
	if len(d.lines) == 0 {
		return nil, ErrEmptyInvoice
	}

	lines := make([]SubmissionLine, len(d.lines))
	for i, line := range d.lines {
		lines[i] = SubmissionLine{
			ProductID:   line.ProductID,
			DisplayName: line.DisplayName,
			Quantity:    line.Quantity,
		}
	}

	return &Submission{
		Lines:    lines,
		Subtotal: d.totals.Subtotal.Round(2),
		Tax:      d.totals.Tax.Round(2),
		Discount: d.totals.Discount.Round(2),
		Total:    d.totals.Total.Round(2),
	}, nil
}
