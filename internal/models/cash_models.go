package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CashSessionStatus string

const (
	CashSessionOpen   CashSessionStatus = "open"
	CashSessionClosed CashSessionStatus = "closed"
)

// TicketConfig configures the optional event-ticket sub-ledger of a session.
type TicketConfig struct {
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
}

// CashSession is a bounded period of cash-drawer accountability.
type CashSession struct {
	ID               int64               `json:"id" db:"id"`
	OpenedAt         time.Time           `json:"opened_at" db:"opened_at"`
	ClosedAt         *time.Time          `json:"closed_at,omitempty" db:"closed_at"`
	InitialCash      decimal.Decimal     `json:"initial_cash" db:"initial_cash"`
	TicketPrice      decimal.NullDecimal `json:"ticket_price" db:"ticket_price"`
	TicketQuantity   *int64              `json:"ticket_quantity,omitempty" db:"ticket_quantity"`
	TicketsSold      int64               `json:"tickets_sold" db:"tickets_sold"`
	FinalCash        decimal.NullDecimal `json:"final_cash" db:"final_cash"`
	ExpectedCash     decimal.NullDecimal `json:"expected_cash" db:"expected_cash"`
	ExpectedTransfer decimal.NullDecimal `json:"expected_transfer" db:"expected_transfer"`
	ExpectedQR       decimal.NullDecimal `json:"expected_qr" db:"expected_qr"`
	Difference       decimal.NullDecimal `json:"difference" db:"difference"`
	Notes            *string             `json:"notes,omitempty" db:"notes"`
	Status           CashSessionStatus   `json:"status" db:"status"`
	OpenedBy         *int64              `json:"opened_by,omitempty" db:"opened_by"`
	Expenses         []CashExpense       `json:"expenses,omitempty"`
}

// HasTickets reports whether the session carries a ticket sub-ledger.
func (s *CashSession) HasTickets() bool {
	return s.TicketPrice.Valid && s.TicketQuantity != nil
}

// TicketIncome is tickets_sold × ticket_price, zero without a sub-ledger.
func (s *CashSession) TicketIncome() decimal.Decimal {
	if !s.TicketPrice.Valid {
		return decimal.Zero
	}
	return s.TicketPrice.Decimal.Mul(decimal.NewFromInt(s.TicketsSold))
}

// CashExpense is money taken out of the drawer during a session.
type CashExpense struct {
	ID          int64           `json:"id" db:"id"`
	SessionID   int64           `json:"session_id" db:"session_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Description string          `json:"description" db:"description"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// ReconciliationOutcome classifies counted vs expected cash.
type ReconciliationOutcome string

const (
	OutcomeSurplus    ReconciliationOutcome = "surplus"
	OutcomeShortage   ReconciliationOutcome = "shortage"
	OutcomeExactMatch ReconciliationOutcome = "exact_match"
)

// OutcomeFor classifies a counted minus expected difference.
func OutcomeFor(difference decimal.Decimal) ReconciliationOutcome {
	switch difference.Sign() {
	case 1:
		return OutcomeSurplus
	case -1:
		return OutcomeShortage
	default:
		return OutcomeExactMatch
	}
}

// CollectedTotals are collected sale sums per payment method over a window.
type CollectedTotals struct {
	Cash     decimal.Decimal `json:"cash"`
	Transfer decimal.Decimal `json:"transfer"`
	QR       decimal.Decimal `json:"qr"`
}

// ReconciliationReport is the closing snapshot of a session.
type ReconciliationReport struct {
	SessionID        int64                 `json:"session_id"`
	InitialCash      decimal.Decimal       `json:"initial_cash"`
	Collected        CollectedTotals       `json:"collected"`
	TicketIncome     decimal.Decimal       `json:"ticket_income"`
	TotalExpenses    decimal.Decimal       `json:"total_expenses"`
	ExpectedCash     decimal.Decimal       `json:"expected_cash"`
	ExpectedTransfer decimal.Decimal       `json:"expected_transfer"`
	ExpectedQR       decimal.Decimal       `json:"expected_qr"`
	CountedCash      decimal.Decimal       `json:"counted_cash"`
	Difference       decimal.Decimal       `json:"difference"`
	Outcome          ReconciliationOutcome `json:"outcome"`
	Notes            *string               `json:"notes,omitempty"`
	ClosedAt         time.Time             `json:"closed_at"`
}
