package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/salesengine/internal/apperror"
	"github.com/smallbiznis/salesengine/internal/sale/domain"
)

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// Normalize converts either request shape into the canonical multi-item form
// and applies every rule that needs no store access.
func Normalize(req domain.SaleRequest, defaultCurrency string) (domain.NormalizedSale, error) {
	var items []domain.NormalizedItem
	switch {
	case req.Single != nil:
		item, err := normalizeItem("", domain.SaleItemInput{
			ProductID: req.Single.ProductID,
			Quantity:  req.Single.Quantity,
			UnitPrice: req.Single.UnitPrice,
		})
		if err != nil {
			return domain.NormalizedSale{}, err
		}
		if total := req.Single.TotalAmount; total != nil {
			if total.Sub(item.Total()).Abs().GreaterThan(domain.AmountTolerance) {
				return domain.NormalizedSale{}, apperror.Invalid("total_amount", domain.ErrInvalidTotal,
					fmt.Sprintf("total_amount %s does not match quantity x unit_price (%s)", total.StringFixed(2), item.Total().StringFixed(2)))
			}
		}
		items = append(items, item)
	case req.Items != nil:
		if len(req.Items) == 0 {
			return domain.NormalizedSale{}, apperror.Invalid("sale_items", domain.ErrInvalidShape, "sale_items must contain at least one item")
		}
		for i, input := range req.Items {
			item, err := normalizeItem(fmt.Sprintf("sale_items[%d].", i), input)
			if err != nil {
				return domain.NormalizedSale{}, err
			}
			items = append(items, item)
		}
	default:
		return domain.NormalizedSale{}, apperror.Invalid("sale_items", domain.ErrInvalidShape, "request must contain product_id or sale_items")
	}

	out := domain.NormalizedSale{
		Items:           items,
		PaymentMethodID: strings.TrimSpace(req.PaymentMethodID),
		PaymentDetails:  req.PaymentDetails,
		Notes:           strings.TrimSpace(req.Notes),
	}

	var err error
	if out.DiscountAmount, err = nonNegative(req.DiscountAmount, "discount_amount", domain.ErrInvalidDiscount); err != nil {
		return domain.NormalizedSale{}, err
	}
	if out.TaxAmount, err = nonNegative(req.TaxAmount, "tax_amount", domain.ErrInvalidTax); err != nil {
		return domain.NormalizedSale{}, err
	}

	if raw := strings.TrimSpace(req.CustomerID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return domain.NormalizedSale{}, apperror.Invalid("customer_id", domain.ErrInvalidCustomer, "customer_id is not valid")
		}
		out.CustomerID = &id
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = strings.ToUpper(defaultCurrency)
	}
	if len(currency) != 3 {
		return domain.NormalizedSale{}, apperror.Invalid("currency", domain.ErrInvalidCurrency, "currency must be a 3-letter code")
	}
	out.Currency = currency

	if raw := strings.TrimSpace(req.Date); raw != "" {
		date, ok := parseDate(raw)
		if !ok {
			return domain.NormalizedSale{}, apperror.Invalid("date", domain.ErrInvalidDate, "date must be YYYY-MM-DD or RFC 3339")
		}
		out.Date = &date
	}

	if err := applyPaymentTerms(&out, req); err != nil {
		return domain.NormalizedSale{}, err
	}
	return out, nil
}

func normalizeItem(prefix string, input domain.SaleItemInput) (domain.NormalizedItem, error) {
	raw := strings.TrimSpace(input.ProductID)
	if raw == "" {
		return domain.NormalizedItem{}, apperror.Invalid(prefix+"product_id", domain.ErrInvalidProduct, "product_id is required")
	}
	productID, err := snowflake.ParseString(raw)
	if err != nil || productID == 0 {
		return domain.NormalizedItem{}, apperror.Invalid(prefix+"product_id", domain.ErrInvalidProduct, "product_id is not valid")
	}
	if input.Quantity == nil {
		return domain.NormalizedItem{}, apperror.Invalid(prefix+"quantity", domain.ErrInvalidQuantity, "quantity is required")
	}
	if *input.Quantity <= 0 {
		return domain.NormalizedItem{}, apperror.Invalid(prefix+"quantity", domain.ErrInvalidQuantity, "quantity must be greater than zero")
	}
	if input.UnitPrice == nil {
		return domain.NormalizedItem{}, apperror.Invalid(prefix+"unit_price", domain.ErrInvalidUnitPrice, "unit_price is required")
	}
	if input.UnitPrice.IsNegative() {
		return domain.NormalizedItem{}, apperror.Invalid(prefix+"unit_price", domain.ErrInvalidUnitPrice, "unit_price cannot be negative")
	}
	return domain.NormalizedItem{
		ProductID: productID,
		Quantity:  *input.Quantity,
		UnitPrice: input.UnitPrice.Round(2),
	}, nil
}

// applyPaymentTerms resolves the initial status and how much was paid up front.
func applyPaymentTerms(out *domain.NormalizedSale, req domain.SaleRequest) error {
	status := domain.PaymentStatusPending
	if out.PaymentMethodID != "" {
		status = domain.PaymentStatusPaid
	}
	if raw := strings.TrimSpace(req.PaymentStatus); raw != "" {
		parsed, ok := domain.ParsePaymentStatus(raw)
		if !ok {
			return apperror.Invalid("payment_status", domain.ErrInvalidStatus, fmt.Sprintf("payment_status %q must be Paid, Credit or Pending", raw))
		}
		status = parsed
	}
	out.PaymentStatus = status

	total := out.Total()
	switch status {
	case domain.PaymentStatusPaid:
		if out.PaymentMethodID == "" {
			return apperror.Invalid("payment_method_id", domain.ErrPaymentMethodMissing, "a payment method is required for paid sales")
		}
		out.AmountPaid = total
	case domain.PaymentStatusCredit:
		if out.CustomerID == nil {
			return apperror.Invalid("customer_id", domain.ErrCustomerMissing, "a customer is required for credit sales")
		}
		paid, err := nonNegative(req.AmountPaid, "amount_paid", domain.ErrInvalidAmountPaid)
		if err != nil {
			return err
		}
		if paid.GreaterThan(total) {
			return apperror.Invalid("amount_paid", domain.ErrInvalidAmountPaid, "amount_paid cannot exceed the sale total")
		}
		if paid.IsPositive() && out.PaymentMethodID == "" {
			return apperror.Invalid("payment_method_id", domain.ErrPaymentMethodMissing, "a payment method is required when amount_paid is set")
		}
		out.AmountPaid = paid.Round(2)
	default:
		out.AmountPaid = decimal.Zero
	}
	return nil
}

func nonNegative(value *decimal.Decimal, field string, sentinel error) (decimal.Decimal, error) {
	if value == nil {
		return decimal.Zero, nil
	}
	if value.IsNegative() {
		return decimal.Zero, apperror.Invalid(field, sentinel, field+" cannot be negative")
	}
	return value.Round(2), nil
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
