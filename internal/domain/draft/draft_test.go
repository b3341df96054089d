package draft

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func widget() *CatalogItem {
	return &CatalogItem{
		ID:             uuid.New(),
		Name:           "Widget",
		UnitPrice:      dec("10.00"),
		AvailableStock: 5,
		Active:         true,
	}
}

func newTestDraft() *Draft {
	return New(dec("0.15"))
}

// assertInvariants checks the derived-state invariants that must hold after
// every operation: each line subtotal matches its formula, and the invoice
// total matches subtotal + tax - discount.
func assertInvariants(t *testing.T, d *Draft) {
	t.Helper()

	for _, line := range d.Lines() {
		require.GreaterOrEqual(t, line.Quantity, 1)
		require.LessOrEqual(t, line.Quantity, line.AvailableStock)

		qty := decimal.NewFromInt(int64(line.Quantity))
		want := line.UnitPrice.Add(line.TaxPerUnit).Mul(qty).Sub(line.ItemDiscount)
		if want.IsNegative() {
			want = decimal.Zero
		}
		assert.True(t, line.Subtotal.Equal(want),
			"line subtotal %s, want %s", line.Subtotal, want)
	}

	totals := d.Totals()
	wantTotal := totals.Subtotal.Add(totals.Tax).Sub(totals.Discount)
	assert.True(t, totals.Total.Equal(wantTotal),
		"total %s, want %s", totals.Total, wantTotal)
}

func TestAddLine(t *testing.T) {
	d := newTestDraft()
	item := widget()

	line, err := d.AddLine(item, 2)
	require.NoError(t, err)

	assert.Equal(t, item.ID, line.ProductID)
	assert.Equal(t, "Widget", line.DisplayName)
	assert.Equal(t, "Widget", line.OriginalName)
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, 5, line.AvailableStock)
	assert.True(t, line.UnitPrice.Equal(dec("10.00")))
	assert.True(t, line.TaxPerUnit.Equal(dec("1.50")))
	assert.True(t, line.ItemDiscount.IsZero())
	assert.True(t, line.Subtotal.Equal(dec("23.00")))

	totals := d.Totals()
	assert.True(t, totals.Subtotal.Equal(dec("20.00")))
	assert.True(t, totals.Tax.Equal(dec("3.00")))
	assert.True(t, totals.Discount.IsZero())
	assert.True(t, totals.Total.Equal(dec("23.00")))
	assertInvariants(t, d)
}

func TestAddLineNilItem(t *testing.T) {
	d := newTestDraft()
	_, err := d.AddLine(nil, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, d.Len())
}

func TestAddLineInsufficientStock(t *testing.T) {
	d := newTestDraft()
	_, err := d.AddLine(widget(), 1)
	require.NoError(t, err)
	before := d.Totals()

	scarce := &CatalogItem{ID: uuid.New(), Name: "Rare", UnitPrice: dec("99.00"), AvailableStock: 1}
	_, err = d.AddLine(scarce, 3)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	// Draft unchanged from prior state.
	assert.Equal(t, 1, d.Len())
	assert.True(t, d.Totals().Total.Equal(before.Total))
	assertInvariants(t, d)
}

func TestAddLineMergesExistingProduct(t *testing.T) {
	d := newTestDraft()
	item := widget()

	first, err := d.AddLine(item, 2)
	require.NoError(t, err)
	second, err := d.AddLine(item, 3)
	require.NoError(t, err)

	// One line for the product, quantity merged, same line identity.
	assert.Equal(t, 1, d.Len())
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)
	assertInvariants(t, d)
}

func TestAddLineMergeRejectsOverStock(t *testing.T) {
	d := newTestDraft()
	item := widget()

	_, err := d.AddLine(item, 4)
	require.NoError(t, err)
	_, err = d.AddLine(item, 2)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	// Merge failure leaves the existing line untouched.
	assert.Equal(t, 4, d.Lines()[0].Quantity)
	assertInvariants(t, d)
}

func TestAddLineDefaultsQuantityToOne(t *testing.T) {
	d := newTestDraft()
	line, err := d.AddLine(widget(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)
}

func TestSetQuantity(t *testing.T) {
	d := newTestDraft()
	line, err := d.AddLine(widget(), 2)
	require.NoError(t, err)

	require.NoError(t, d.SetQuantity(line.ID, 4))
	assert.Equal(t, 4, d.Lines()[0].Quantity)
	assert.True(t, d.Totals().Subtotal.Equal(dec("40.00")))
	assertInvariants(t, d)
}

func TestSetQuantityBelowOneIsNoOp(t *testing.T) {
	d := newTestDraft()
	line, err := d.AddLine(widget(), 2)
	require.NoError(t, err)

	require.NoError(t, d.SetQuantity(line.ID, 0))
	require.NoError(t, d.SetQuantity(line.ID, -3))
	assert.Equal(t, 2, d.Lines()[0].Quantity)
}

func TestSetQuantityOverStock(t *testing.T) {
	d := newTestDraft()
	line, err := d.AddLine(widget(), 2)
	require.NoError(t, err)

	err = d.SetQuantity(line.ID, 6)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 2, d.Lines()[0].Quantity)
	assertInvariants(t, d)
}

func TestSetQuantityUnknownLine(t *testing.T) {
	d := newTestDraft()
	assert.ErrorIs(t, d.SetQuantity(uuid.New(), 1), ErrNotFound)
}

func TestSetUnitPriceOverride(t *testing.T) {
	d := newTestDraft()
	line, err := d.AddLine(widget(), 2)
	require.NoError(t, err)

	// Overriding above the catalog price is intentional; tax follows.
	require.NoError(t, d.SetUnitPrice(line.ID, dec("20.00")))
	got := d.Lines()[0]
	assert.True(t, got.UnitPrice.Equal(dec("20.00")))
	assert.True(t, got.TaxPerUnit.Equal(dec("3.00")))
	assert.True(t, got.Subtotal.Equal(dec("46.00")))
	assertInvariants(t, d)
}

func TestSetUnitPriceWithTaxDisabled(t *testing.T) {
	d := newTestDraft()
	d.SetTaxEnabled(false)
	line, err := d.AddLine(widget(), 1)
	require.NoError(t, err)

	require.NoError(t, d.SetUnitPrice(line.ID, dec("12.00")))
	assert.True(t, d.Lines()[0].TaxPerUnit.IsZero())
	assertInvariants(t, d)
}

func TestSetItemDiscount(t *testing.T) {
	d := newTestDraft()
	line, err := d.AddLine(widget(), 2)
	require.NoError(t, err)

	// Scenario: 23.00 gross, 5.00 flat discount.
	require.NoError(t, d.SetItemDiscount(line.ID, dec("5.00")))
	assert.True(t, d.Lines()[0].Subtotal.Equal(dec("18.00")))

	totals := d.Totals()
	assert.True(t, totals.Discount.Equal(dec("5.00")))
	assert.True(t, totals.Total.Equal(dec("18.00")))
	assertInvariants(t, d)
}

func TestSetItemDiscountClampsNegative(t *testing.T) {
	d := newTestDraft()
	line, err := d.AddLine(widget(), 1)
	require.NoError(t, err)

	require.NoError(t, d.SetItemDiscount(line.ID, dec("-4.00")))
	assert.True(t, d.Lines()[0].ItemDiscount.IsZero())
}

func TestItemDiscountFloorsLineAtZero(t *testing.T) {
	d := newTestDraft()
	line, err := d.AddLine(widget(), 1)
	require.NoError(t, err)

	// Discount larger than the line's gross value floors it at zero rather
	// than going negative.
	require.NoError(t, d.SetItemDiscount(line.ID, dec("100.00")))
	assert.True(t, d.Lines()[0].Subtotal.IsZero())
	assertInvariants(t, d)
}

func TestRenameLine(t *testing.T) {
	d := newTestDraft()
	line, err := d.AddLine(widget(), 1)
	require.NoError(t, err)
	before := d.Totals()

	require.NoError(t, d.RenameLine(line.ID, "Widget (blue)"))
	got := d.Lines()[0]
	assert.Equal(t, "Widget (blue)", got.DisplayName)
	assert.Equal(t, "Widget", got.OriginalName)
	assert.True(t, d.Totals().Total.Equal(before.Total))

	assert.ErrorIs(t, d.RenameLine(uuid.New(), "x"), ErrNotFound)
}

func TestRemoveLinePreservesOrder(t *testing.T) {
	d := newTestDraft()
	a := &CatalogItem{ID: uuid.New(), Name: "A", UnitPrice: dec("1.00"), AvailableStock: 9}
	b := &CatalogItem{ID: uuid.New(), Name: "B", UnitPrice: dec("2.00"), AvailableStock: 9}
	c := &CatalogItem{ID: uuid.New(), Name: "C", UnitPrice: dec("3.00"), AvailableStock: 9}

	_, err := d.AddLine(a, 1)
	require.NoError(t, err)
	mid, err := d.AddLine(b, 1)
	require.NoError(t, err)
	_, err = d.AddLine(c, 1)
	require.NoError(t, err)

	require.NoError(t, d.RemoveLine(mid.ID))
	lines := d.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "A", lines[0].DisplayName)
	assert.Equal(t, "C", lines[1].DisplayName)
	assertInvariants(t, d)

	assert.ErrorIs(t, d.RemoveLine(mid.ID), ErrNotFound)
}

func TestSetTaxEnabledRetroactive(t *testing.T) {
	d := newTestDraft()
	line, err := d.AddLine(widget(), 2)
	require.NoError(t, err)
	require.NoError(t, d.SetItemDiscount(line.ID, dec("5.00")))

	// Disabling tax strips every existing line's tax, not just future lines.
	d.SetTaxEnabled(false)
	got := d.Lines()[0]
	assert.True(t, got.TaxPerUnit.IsZero())
	assert.True(t, got.Subtotal.Equal(dec("15.00")))

	totals := d.Totals()
	assert.True(t, totals.Subtotal.Equal(dec("20.00")))
	assert.True(t, totals.Tax.IsZero())
	assert.True(t, totals.Discount.Equal(dec("5.00")))
	assert.True(t, totals.Total.Equal(dec("15.00")))
	assertInvariants(t, d)
}

func TestSetTaxEnabledIdempotent(t *testing.T) {
	d := newTestDraft()
	_, err := d.AddLine(widget(), 2)
	require.NoError(t, err)

	d.SetTaxEnabled(false)
	after := d.Totals()
	d.SetTaxEnabled(false)
	assert.True(t, d.Totals().Total.Equal(after.Total))

	d.SetTaxEnabled(true)
	reEnabled := d.Totals()
	d.SetTaxEnabled(true)
	assert.True(t, d.Totals().Total.Equal(reEnabled.Total))
}

func TestSetGeneralDiscount(t *testing.T) {
	d := newTestDraft()
	_, err := d.AddLine(widget(), 2)
	require.NoError(t, err)

	d.SetGeneralDiscount(dec("3.00"))
	totals := d.Totals()
	assert.True(t, totals.Discount.Equal(dec("3.00")))
	assert.True(t, totals.Total.Equal(dec("20.00")))

	d.SetGeneralDiscount(dec("-1.00"))
	assert.True(t, d.GeneralDiscount().IsZero())
	assertInvariants(t, d)
}

// A general discount larger than subtotal+tax drives the aggregate total
// negative while every line stays at a non-negative subtotal. The per-line
// zero floor does not apply at the invoice level.
func TestGeneralDiscountCanDriveTotalNegative(t *testing.T) {
	d := newTestDraft()
	_, err := d.AddLine(widget(), 2)
	require.NoError(t, err)

	d.SetGeneralDiscount(dec("50.00"))
	totals := d.Totals()
	assert.True(t, totals.Total.Equal(dec("-27.00")))
	for _, line := range d.Lines() {
		assert.False(t, line.Subtotal.IsNegative())
	}
	assertInvariants(t, d)
}

func TestTotalsIdempotent(t *testing.T) {
	d := newTestDraft()
	_, err := d.AddLine(widget(), 2)
	require.NoError(t, err)

	first := d.Totals()
	second := d.Totals()
	assert.True(t, first.Subtotal.Equal(second.Subtotal))
	assert.True(t, first.Tax.Equal(second.Tax))
	assert.True(t, first.Discount.Equal(second.Discount))
	assert.True(t, first.Total.Equal(second.Total))
}

func TestSubmission(t *testing.T) {
	d := newTestDraft()
	item := widget()
	line, err := d.AddLine(item, 2)
	require.NoError(t, err)
	require.NoError(t, d.RenameLine(line.ID, "Widget Deluxe"))
	require.NoError(t, d.SetItemDiscount(line.ID, dec("5.00")))

	sub, err := d.Submission()
	require.NoError(t, err)
	require.Len(t, sub.Lines, 1)
	assert.Equal(t, item.ID, sub.Lines[0].ProductID)
	assert.Equal(t, "Widget Deluxe", sub.Lines[0].DisplayName)
	assert.Equal(t, 2, sub.Lines[0].Quantity)
	assert.True(t, sub.Tax.Equal(dec("3.00")))
	assert.True(t, sub.Discount.Equal(dec("5.00")))
	assert.True(t, sub.Total.Equal(dec("18.00")))
}

func TestSubmissionEmptyInvoice(t *testing.T) {
	d := newTestDraft()
	_, err := d.Submission()
	assert.ErrorIs(t, err, ErrEmptyInvoice)

	// Removing the only line brings the draft back to unsubmittable.
	line, err := d.AddLine(widget(), 1)
	require.NoError(t, err)
	require.NoError(t, d.RemoveLine(line.ID))
	_, err = d.Submission()
	assert.ErrorIs(t, err, ErrEmptyInvoice)
}

func TestSubmissionRoundsToTwoPlaces(t *testing.T) {
	d := newTestDraft()
	item := &CatalogItem{ID: uuid.New(), Name: "Odd", UnitPrice: dec("0.33"), AvailableStock: 100}
	_, err := d.AddLine(item, 3)
	require.NoError(t, err)

	// Internal state keeps full precision (0.33 * 0.15 * 3 = 0.1485).
	assert.True(t, d.Totals().Tax.Equal(dec("0.1485")))

	sub, err := d.Submission()
	require.NoError(t, err)
	assert.True(t, sub.Tax.Equal(dec("0.15")))
}

func TestAlternateTaxRate(t *testing.T) {
	d := New(dec("0.20"))
	line, err := d.AddLine(widget(), 1)
	require.NoError(t, err)
	assert.True(t, line.TaxPerUnit.Equal(dec("2.00")))
}

// Exercises a longer mutation sequence and re-checks the invariants after
// every step.
func TestMutationSequenceKeepsInvariants(t *testing.T) {
	d := newTestDraft()
	a := &CatalogItem{ID: uuid.New(), Name: "A", UnitPrice: dec("10.00"), AvailableStock: 10}
	b := &CatalogItem{ID: uuid.New(), Name: "B", UnitPrice: dec("4.25"), AvailableStock: 7}

	la, err := d.AddLine(a, 2)
	require.NoError(t, err)
	assertInvariants(t, d)

	lb, err := d.AddLine(b, 1)
	require.NoError(t, err)
	assertInvariants(t, d)

	require.NoError(t, d.SetQuantity(lb.ID, 5))
	assertInvariants(t, d)

	require.NoError(t, d.SetUnitPrice(la.ID, dec("9.50")))
	assertInvariants(t, d)

	require.NoError(t, d.SetItemDiscount(la.ID, dec("2.00")))
	assertInvariants(t, d)

	d.SetTaxEnabled(false)
	assertInvariants(t, d)

	d.SetGeneralDiscount(dec("7.75"))
	assertInvariants(t, d)

	_, err = d.AddLine(a, 3)
	require.NoError(t, err)
	assertInvariants(t, d)

	require.NoError(t, d.RemoveLine(lb.ID))
	assertInvariants(t, d)

	d.SetTaxEnabled(true)
	assertInvariants(t, d)
}
