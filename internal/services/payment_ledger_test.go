package services

import (
	"context"
	"testing"

	"venue_pos_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submitBeer(t *testing.T, f *fixture, beer *models.Product, actor models.Actor, table string) *models.Sale {
	t.Helper()
	result, err := f.sales.Submit(context.Background(), SubmitSaleRequest{
		Items: []OrderLine{line(beer.ID, "1")}, PaymentMethod: models.PaymentCash, TableNumber: strPtr(table),
	}, actor)
	require.NoError(t, err)
	return result.Sale
}

func TestCollectIsOneWay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	beer := f.drink(t, "Lager", "4", "10", "1")
	sale := submitBeer(t, f, beer, waiter, "1")

	collected, err := f.payments.Collect(ctx, sale.ID, models.PaymentTransfer)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCollected, collected.PaymentStatus)
	assert.Equal(t, models.PaymentTransfer, collected.PaymentMethod)
	require.NotNil(t, collected.CollectedAt)

	_, err = f.payments.Collect(ctx, sale.ID, models.PaymentCash)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.payments.Collect(ctx, 999, models.PaymentCash)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.payments.Collect(ctx, sale.ID, "card")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCollectGroupReportsPartialFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	beer := f.drink(t, "Lager", "4", "10", "1")
	a := submitBeer(t, f, beer, waiter, "5")
	b := submitBeer(t, f, beer, waiter, "5")
	c := submitBeer(t, f, beer, waiter, "5")
	_, err := f.payments.Collect(ctx, c.ID, models.PaymentCash)
	require.NoError(t, err)

	result, err := f.payments.CollectGroup(ctx, []int64{a.ID, b.ID, a.ID, c.ID, 999}, models.PaymentQR)
	require.NoError(t, err)

	assert.Equal(t, []int64{a.ID, b.ID}, result.Collected)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, c.ID, result.Failed[0].SaleID)
	assert.Equal(t, int64(999), result.Failed[1].SaleID)

	_, err = f.payments.CollectGroup(ctx, nil, models.PaymentQR)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPendingGroupsByStaffAndTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	beer := f.drink(t, "Lager", "4", "10", "1")
	first := submitBeer(t, f, beer, waiter, "7")
	second := submitBeer(t, f, beer, waiter, "7")
	other := submitBeer(t, f, beer, waiter2, "3")
	paid := submitBeer(t, f, beer, waiter, "7")
	_, err := f.payments.Collect(ctx, paid.ID, models.PaymentCash)
	require.NoError(t, err)

	groups, err := f.payments.PendingGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, []int64{first.ID, second.ID}, groups[0].SaleIDs)
	assertDecimal(t, "8", groups[0].Total)
	assert.Equal(t, "7", *groups[0].TableNumber)
	assert.Equal(t, []int64{other.ID}, groups[1].SaleIDs)
	assert.Equal(t, waiter2.UserID, *groups[1].StaffID)
}
