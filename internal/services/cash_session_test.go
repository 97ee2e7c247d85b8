package services

import (
	"context"
	"testing"
	"time"

	"venue_pos_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloseSessionExactMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cashier := models.Actor{UserID: 40, Role: models.RoleCashier}

	session, err := f.cash.Open(ctx, OpenSessionRequest{InitialCash: dec("1000")}, cashier)
	require.NoError(t, err)

	bottle := f.drink(t, "Champagne", "350", "5", "1")
	sale := submitBeer(t, f, bottle, waiter, "9")
	_, err = f.payments.Collect(ctx, sale.ID, models.PaymentCash)
	require.NoError(t, err)

	_, err = f.cash.RecordExpense(ctx, session.ID, dec("120"), "ice delivery")
	require.NoError(t, err)

	report, err := f.cash.Close(ctx, session.ID, dec("1230"), nil)
	require.NoError(t, err)
	assertDecimal(t, "350", report.Collected.Cash)
	assertDecimal(t, "120", report.TotalExpenses)
	assertDecimal(t, "1230", report.ExpectedCash)
	assertDecimal(t, "0", report.Difference)
	assert.Equal(t, models.OutcomeExactMatch, report.Outcome)

	closed, err := f.cash.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CashSessionClosed, closed.Status)
	require.True(t, closed.ExpectedCash.Valid)
	assertDecimal(t, "1230", closed.ExpectedCash.Decimal)
}

func TestCloseSessionSplitsMethodsAndCountsTickets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session, err := f.cash.Open(ctx, OpenSessionRequest{
		InitialCash: dec("200"),
		Tickets:     &models.TicketConfig{Price: dec("15"), Quantity: 10},
	}, admin)
	require.NoError(t, err)

	beer := f.drink(t, "Lager", "5", "50", "1")
	for _, method := range []models.PaymentMethod{models.PaymentCash, models.PaymentTransfer, models.PaymentQR, models.PaymentQR} {
		sale := submitBeer(t, f, beer, waiter, "1")
		_, err := f.payments.Collect(ctx, sale.ID, method)
		require.NoError(t, err)
	}
	submitBeer(t, f, beer, waiter, "1") // left pending

	_, err = f.cash.RecordTicketsSold(ctx, session.ID, 4)
	require.NoError(t, err)

	report, err := f.cash.Close(ctx, session.ID, dec("250"), strPtr("short a fiver"))
	require.NoError(t, err)
	assertDecimal(t, "60", report.TicketIncome)
	assertDecimal(t, "265", report.ExpectedCash)
	assertDecimal(t, "5", report.ExpectedTransfer)
	assertDecimal(t, "10", report.ExpectedQR)
	assertDecimal(t, "-15", report.Difference)
	assert.Equal(t, models.OutcomeShortage, report.Outcome)
}

func TestCloseSessionIgnoresSalesCollectedBeforeOpening(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	beer := f.drink(t, "Lager", "5", "50", "1")
	early := submitBeer(t, f, beer, waiter, "1")
	_, err := f.payments.Collect(ctx, early.ID, models.PaymentCash)
	require.NoError(t, err)

	later := time.Now().Add(time.Hour)
	f.cash.(*cashSessionReconciler).now = func() time.Time { return later }

	session, err := f.cash.Open(ctx, OpenSessionRequest{InitialCash: dec("100")}, admin)
	require.NoError(t, err)
	report, err := f.cash.Close(ctx, session.ID, dec("110"), nil)
	require.NoError(t, err)

	assertDecimal(t, "100", report.ExpectedCash)
	assert.Equal(t, models.OutcomeSurplus, report.Outcome)
}

func TestSingleOpenSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.cash.Open(ctx, OpenSessionRequest{InitialCash: dec("100")}, admin)
	require.NoError(t, err)
	_, err = f.cash.Open(ctx, OpenSessionRequest{InitialCash: dec("50")}, admin)
	assert.ErrorIs(t, err, ErrAlreadyOpen)

	current, err := f.cash.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, current.ID)

	_, err = f.cash.Close(ctx, first.ID, dec("100"), nil)
	require.NoError(t, err)
	_, err = f.cash.Close(ctx, first.ID, dec("100"), nil)
	assert.ErrorIs(t, err, ErrAlreadyClosed)
	_, err = f.cash.Current(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.cash.RecordExpense(ctx, first.ID, dec("5"), "late expense")
	assert.ErrorIs(t, err, ErrAlreadyClosed)

	_, err = f.cash.Open(ctx, OpenSessionRequest{InitialCash: dec("80")}, admin)
	assert.NoError(t, err)
}

func TestTicketInventoryLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session, err := f.cash.Open(ctx, OpenSessionRequest{InitialCash: dec("0"), Tickets: &models.TicketConfig{Price: dec("10"), Quantity: 5}}, admin)
	require.NoError(t, err)

	updated, err := f.cash.RecordTicketsSold(ctx, session.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated.TicketsSold)

	_, err = f.cash.RecordTicketsSold(ctx, session.ID, 3)
	assert.ErrorIs(t, err, ErrTicketInventoryExceeded)
	_, err = f.cash.RecordTicketsSold(ctx, session.ID, 0)
	assert.ErrorIs(t, err, ErrValidation)

	plain, err := f.cash.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), plain.TicketsSold)
}

func TestSessionWithoutTicketsRejectsTicketSales(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session, err := f.cash.Open(ctx, OpenSessionRequest{InitialCash: dec("10")}, admin)
	require.NoError(t, err)

	_, err = f.cash.RecordTicketsSold(ctx, session.ID, 1)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.cash.RecordTicketsSold(ctx, 999, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenAndExpenseValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.cash.Open(ctx, OpenSessionRequest{InitialCash: dec("-1")}, admin)
	assert.ErrorIs(t, err, ErrValidation)

	session, err := f.cash.Open(ctx, OpenSessionRequest{InitialCash: dec("10")}, admin)
	require.NoError(t, err)
	_, err = f.cash.RecordExpense(ctx, session.ID, dec("0"), "nothing")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.cash.RecordExpense(ctx, session.ID, dec("3"), "  ")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.cash.RecordExpense(ctx, 999, dec("3"), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	expenses, err := f.cash.ListExpenses(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, expenses)
}
