package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Department is a preparation area that receives fulfillment orders.
type Department string

const (
	DepartmentKitchen Department = "kitchen"
	DepartmentBar     Department = "bar"
)

func (d Department) IsValid() bool {
	return d == DepartmentKitchen || d == DepartmentBar
}

// StaffRole is the role that works the department.
func (d Department) StaffRole() Role {
	if d == DepartmentBar {
		return RoleBartender
	}
	return RoleKitchen
}

type FulfillmentStatus string

const (
	FulfillmentPending    FulfillmentStatus = "pending"
	FulfillmentInProgress FulfillmentStatus = "in_progress"
	FulfillmentReady      FulfillmentStatus = "ready"
	FulfillmentDelivered  FulfillmentStatus = "delivered"
)

func (s FulfillmentStatus) IsValid() bool {
	switch s {
	case FulfillmentPending, FulfillmentInProgress, FulfillmentReady, FulfillmentDelivered:
		return true
	default:
		return false
	}
}

// Next returns the only status reachable from s, or false for the terminal status.
func (s FulfillmentStatus) Next() (FulfillmentStatus, bool) {
	switch s {
	case FulfillmentPending:
		return FulfillmentInProgress, true
	case FulfillmentInProgress:
		return FulfillmentReady, true
	case FulfillmentReady:
		return FulfillmentDelivered, true
	default:
		return "", false
	}
}

// Cancellable reports whether an order in status s may still be cancelled.
func (s FulfillmentStatus) Cancellable() bool {
	return s == FulfillmentPending || s == FulfillmentInProgress || s == FulfillmentReady
}

// FulfillmentOrder is a department work ticket derived from a sale.
type FulfillmentOrder struct {
	ID          int64             `json:"id" db:"id"`
	SaleID      int64             `json:"sale_id" db:"sale_id"`
	Department  Department        `json:"department" db:"department"`
	Status      FulfillmentStatus `json:"status" db:"status"`
	StaffID     *int64            `json:"staff_id,omitempty" db:"staff_id"`
	TableNumber *string           `json:"table_number,omitempty" db:"table_number"`
	Items       []FulfillmentItem `json:"items"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}

// FulfillmentItem is a sale line routed to a department.
type FulfillmentItem struct {
	ID          int64           `json:"id" db:"id"`
	OrderID     int64           `json:"order_id" db:"order_id"`
	SaleItemID  int64           `json:"sale_item_id" db:"sale_item_id"`
	ProductID   int64           `json:"product_id" db:"product_id"`
	ProductName string          `json:"product_name" db:"product_name"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
}

// FulfillmentFilters narrows the department queue listing.
type FulfillmentFilters struct {
	Department *Department
	Statuses   []FulfillmentStatus
	SaleID     *int64
}
