// Package draft implements the in-memory draft invoice used while an invoice
// is being assembled. It is pure and synchronous: it reads catalog snapshots
// supplied by the caller, performs no I/O, and recomputes every derived value
// after each mutation. All money values are decimals at full precision;
// rounding to two places happens only at the submission boundary.
package draft

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogItem is a read-only snapshot of a sellable product, supplied by the
// catalog collaborator. The draft never mutates it.
type CatalogItem struct {
	ID             uuid.UUID
	Name           string
	UnitPrice      decimal.Decimal
	AvailableStock int
	Active         bool
}

// Line is one product's presence on the draft invoice. Its ID is local to
// the draft and stable across edits; ProductID is a weak reference used only
// for stock lookups and the submission payload.
type Line struct {
	ID             uuid.UUID
	ProductID      uuid.UUID
	DisplayName    string
	OriginalName   string
	Quantity       int
	AvailableStock int // stock snapshot captured at add-time
	UnitPrice      decimal.Decimal
	TaxPerUnit     decimal.Decimal
	ItemDiscount   decimal.Decimal
	Subtotal       decimal.Decimal // derived, never set directly
}

// Totals holds the invoice-level aggregates, recomputed after every mutation.
// Subtotal is tax-exclusive. Total = Subtotal + Tax - Discount; the per-line
// zero floor is not applied here, so a large general discount can drive the
// aggregate total negative.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Draft is the aggregate root for one editing session. It is exclusively
// owned by that session and is not safe for concurrent use.
type Draft struct {
	taxRate         decimal.Decimal
	taxEnabled      bool
	generalDiscount decimal.Decimal
	lines           []*Line
	totals          Totals
}

// New creates an empty draft with the given tax rate (e.g. 0.15 for 15%).
// Tax starts enabled; SetTaxEnabled toggles it retroactively.
func New(taxRate decimal.Decimal) *Draft {
	d := &Draft{
		taxRate:         taxRate,
		taxEnabled:      true,
		generalDiscount: decimal.Zero,
	}
	d.recompute()
	return d
}

// AddLine adds quantity units of a catalog item to the draft. Quantities
// below one are treated as one. If a line for the same product already
// exists the quantities are merged; a merge that would exceed the line's
// stock snapshot is rejected and the draft is left unchanged.
func (d *Draft) AddLine(item *CatalogItem, quantity int) (*Line, error) {
	if item == nil {
		return nil, ErrNotFound
	}
	if quantity < 1 {
		quantity = 1
	}

	if line := d.findByProduct(item.ID); line != nil {
		merged := line.Quantity + quantity
		if merged > line.AvailableStock {
			return nil, ErrInsufficientStock
		}
		line.Quantity = merged
		d.recompute()
		return line, nil
	}

	if quantity > item.AvailableStock {
		return nil, ErrInsufficientStock
	}

	line := &Line{
		ID:             uuid.New(),
		ProductID:      item.ID,
		DisplayName:    item.Name,
		OriginalName:   item.Name,
		Quantity:       quantity,
		AvailableStock: item.AvailableStock,
		UnitPrice:      item.UnitPrice,
		TaxPerUnit:     d.taxPerUnit(item.UnitPrice),
		ItemDiscount:   decimal.Zero,
	}
	d.lines = append(d.lines, line)
	d.recompute()
	return line, nil
}

// SetQuantity updates a line's quantity. Values below one are ignored:
// quantity can never be driven below one through this operation, removal is
// a separate operation.
func (d *Draft) SetQuantity(lineID uuid.UUID, quantity int) error {
	line := d.find(lineID)
	if line == nil {
		return ErrNotFound
	}
	if quantity < 1 {
		return nil
	}
	if quantity > line.AvailableStock {
		return ErrInsufficientStock
	}
	line.Quantity = quantity
	d.recompute()
	return nil
}

// SetUnitPrice overrides a line's unit price. Any non-negative price is
// accepted; there is no comparison against the catalog price. Negative
// input is clamped to zero. The line's tax per unit follows the new price.
func (d *Draft) SetUnitPrice(lineID uuid.UUID, price decimal.Decimal) error {
	line := d.find(lineID)
	if line == nil {
		return ErrNotFound
	}
	if price.IsNegative() {
		price = decimal.Zero
	}
	line.UnitPrice = price
	line.TaxPerUnit = d.taxPerUnit(price)
	d.recompute()
	return nil
}

// SetItemDiscount sets a line's flat discount. Negative input is clamped to
// zero rather than rejected, since this backs a direct numeric-entry field.
func (d *Draft) SetItemDiscount(lineID uuid.UUID, amount decimal.Decimal) error {
	line := d.find(lineID)
	if line == nil {
		return ErrNotFound
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	line.ItemDiscount = amount
	d.recompute()
	return nil
}

// RenameLine changes the label shown on the invoice. The original catalog
// name is kept for audit display. Totals are unaffected.
func (d *Draft) RenameLine(lineID uuid.UUID, displayName string) error {
	line := d.find(lineID)
	if line == nil {
		return ErrNotFound
	}
	line.DisplayName = displayName
	return nil
}

// RemoveLine deletes a line, preserving the order of the remainder.
func (d *Draft) RemoveLine(lineID uuid.UUID) error {
	for i, line := range d.lines {
		if line.ID == lineID {
			d.lines = append(d.lines[:i], d.lines[i+1:]...)
			d.recompute()
			return nil
		}
	}
	return ErrNotFound
}

// SetTaxEnabled toggles the invoice-level tax. The recompute is retroactive:
// every existing line's tax per unit changes, not just future lines.
func (d *Draft) SetTaxEnabled(enabled bool) {
	d.taxEnabled = enabled
	for _, line := range d.lines {
		line.TaxPerUnit = d.taxPerUnit(line.UnitPrice)
	}
	d.recompute()
}

// SetGeneralDiscount sets the invoice-level discount. Negative input is
// clamped to zero. No line is touched.
func (d *Draft) SetGeneralDiscount(amount decimal.Decimal) {
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	d.generalDiscount = amount
	d.recompute()
}

// Totals returns the current invoice aggregates at full precision.
func (d *Draft) Totals() Totals {
	return d.totals
}

// Lines returns a copy of the draft's lines in insertion order.
func (d *Draft) Lines() []Line {
	lines := make([]Line, len(d.lines))
	for i, line := range d.lines {
		lines[i] = *line
	}
	return lines
}

// Len returns the number of lines on the draft.
func (d *Draft) Len() int {
	return len(d.lines)
}

// TaxEnabled reports whether the invoice-level tax is applied.
func (d *Draft) TaxEnabled() bool {
	return d.taxEnabled
}

// GeneralDiscount returns the invoice-level discount.
func (d *Draft) GeneralDiscount() decimal.Decimal {
	return d.generalDiscount
}

// taxPerUnit derives the per-unit tax for a price under the current toggle.
func (d *Draft) taxPerUnit(unitPrice decimal.Decimal) decimal.Decimal {
	if !d.taxEnabled {
		return decimal.Zero
	}
	return unitPrice.Mul(d.taxRate)
}

// recompute rederives every line subtotal and the invoice totals. It is run
// after each mutation instead of patching running totals, so the derived
// state can never drift from the lines.
func (d *Draft) recompute() {
	subtotal := decimal.Zero
	tax := decimal.Zero
	discount := d.generalDiscount

	for _, line := range d.lines {
		qty := decimal.NewFromInt(int64(line.Quantity))

		gross := line.UnitPrice.Add(line.TaxPerUnit).Mul(qty)
		lineSubtotal := gross.Sub(line.ItemDiscount)
		if lineSubtotal.IsNegative() {
			lineSubtotal = decimal.Zero
		}
		line.Subtotal = lineSubtotal

		subtotal = subtotal.Add(line.UnitPrice.Mul(qty))
		tax = tax.Add(line.TaxPerUnit.Mul(qty))
		discount = discount.Add(line.ItemDiscount)
	}

	d.totals = Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Discount: discount,
		Total:    subtotal.Add(tax).Sub(discount),
	}
}

func (d *Draft) find(lineID uuid.UUID) *Line {
	for _, line := range d.lines {
		if line.ID == lineID {
			return line
		}
	}
	return nil
}

func (d *Draft) findByProduct(productID uuid.UUID) *Line {
	for _, line := range d.lines {
		if line.ProductID == productID {
			return line
		}
	}
	return nil
}
