package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentQR       PaymentMethod = "qr"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCash, PaymentTransfer, PaymentQR:
		return true
	default:
		return false
	}
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCollected PaymentStatus = "collected"
)

// Sale is a committed order. Item names and prices are snapshots taken at submission.
type Sale struct {
	ID            int64           `json:"id" db:"id"`
	Items         []SaleItem      `json:"items"`
	TotalAmount   decimal.Decimal `json:"total_amount" db:"total_amount"`
	PaymentMethod PaymentMethod   `json:"payment_method" db:"payment_method"`
	PaymentStatus PaymentStatus   `json:"payment_status" db:"payment_status"`
	Concept       *string         `json:"concept,omitempty" db:"concept"`
	TableNumber   *string         `json:"table_number,omitempty" db:"table_number"`
	StaffID       *int64          `json:"staff_id,omitempty" db:"staff_id"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	CollectedAt   *time.Time      `json:"collected_at,omitempty" db:"collected_at"`
}

// SaleItem is one line of a sale.
type SaleItem struct {
	ID          int64           `json:"id" db:"id"`
	SaleID      int64           `json:"sale_id" db:"sale_id"`
	ProductID   int64           `json:"product_id" db:"product_id"`
	ProductName string          `json:"product_name" db:"product_name"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total" db:"line_total"`
}

// Decimal places kept by the money and quantity columns.
const (
	MoneyPlaces    int32 = 2
	QuantityPlaces int32 = 3
	CostPlaces     int32 = 4
)

// FitsPlaces reports whether d is representable with at most places decimals.
func FitsPlaces(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Truncate(places))
}

// NewSaleItem builds a line and computes its total from the snapshot price,
// rounded half away from zero to cents.
func NewSaleItem(productID int64, name string, quantity, unitPrice decimal.Decimal) SaleItem {
	return SaleItem{
		ProductID:   productID,
		ProductName: name,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		LineTotal:   quantity.Mul(unitPrice).Round(MoneyPlaces),
	}
}

// SumLineTotals adds up the already rounded line totals of items.
func SumLineTotals(items []SaleItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal)
	}
	return total
}

// SaleFilters defines the available filters for querying sales.
type SaleFilters struct {
	StaffID       *int64         `form:"staff_id"`
	TableNumber   *string        `form:"table_number"`
	PaymentStatus *PaymentStatus `form:"payment_status"`
	Date          *string        `form:"date"` // YYYY-MM-DD
	Page          int            `form:"page"`
	PageSize      int            `form:"page_size"`
}
