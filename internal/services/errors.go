package services

import (
	"errors"
	"fmt"
	"strings"

	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/repositories"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound                = errors.New("not found")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrInvalidTransition       = errors.New("invalid state transition")
	ErrAuthorizationDenied     = errors.New("authorization denied")
	ErrAlreadyOpen             = errors.New("a cash session is already open")
	ErrAlreadyClosed           = errors.New("cash session is already closed")
	ErrValidation              = errors.New("validation error")
	ErrProductInUse            = errors.New("product is referenced by sales or recipes")
	ErrProductNameExists       = errors.New("product name already exists")
	ErrTicketInventoryExceeded = errors.New("ticket inventory exceeded")
	ErrInvalidCredentials      = errors.New("invalid username or password")
	ErrUsernameExists          = errors.New("username already exists")
)

// Shortage describes one product the order needs more of than is on hand.
type Shortage struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit"`
	Required    decimal.Decimal `json:"required"`
	Available   decimal.Decimal `json:"available"`
	// RecipeMissing marks a compound product that has no ingredients configured.
	RecipeMissing bool `json:"recipe_missing,omitempty"`
}

// InsufficientStockError carries every shortage found for an order.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		if s.RecipeMissing {
			parts = append(parts, fmt.Sprintf("%s: no recipe configured", s.ProductName))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: required %s, available %s", s.ProductName, s.Required, s.Available))
	}
	return fmt.Sprintf("%s: %s", ErrInsufficientStock, strings.Join(parts, "; "))
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// notFoundOr maps a repository ErrNotFound to the service sentinel and wraps anything else.
func notFoundOr(err error, what string, id interface{}) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %s %v", ErrNotFound, what, id)
	}
	return fmt.Errorf("%s %v: %w", what, id, err)
}

// checkPlaces rejects values the storage columns would silently round.
func checkPlaces(field string, d decimal.Decimal, places int32) error {
	if !models.FitsPlaces(d, places) {
		return validationf("%s allows at most %d decimal places", field, places)
	}
	return nil
}

func checkMoney(field string, d decimal.Decimal) error {
	return checkPlaces(field, d, models.MoneyPlaces)
}

func checkQuantity(field string, d decimal.Decimal) error {
	return checkPlaces(field, d, models.QuantityPlaces)
}
