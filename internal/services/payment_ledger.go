package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/repositories"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CollectFailure names a sale a group collection could not settle.
type CollectFailure struct {
	SaleID int64  `json:"sale_id"`
	Reason string `json:"reason"`
}

// CollectGroupResult reports which members of a group were collected.
type CollectGroupResult struct {
	Collected []int64          `json:"collected"`
	Failed    []CollectFailure `json:"failed"`
}

// PendingGroup is the pending sales of one staff member at one table.
type PendingGroup struct {
	StaffID     *int64          `json:"staff_id,omitempty"`
	TableNumber *string         `json:"table_number,omitempty"`
	SaleIDs     []int64         `json:"sale_ids"`
	Total       decimal.Decimal `json:"total"`
}

// PaymentLedger settles pending sales.
type PaymentLedger interface {
	Collect(ctx context.Context, saleID int64, method models.PaymentMethod) (*models.Sale, error)
	// CollectGroup attempts every sale and reports each outcome. One failure does not undo the others.
	CollectGroup(ctx context.Context, saleIDs []int64, method models.PaymentMethod) (*CollectGroupResult, error)
	PendingGroups(ctx context.Context) ([]PendingGroup, error)
}

type paymentLedger struct {
	saleRepo repositories.SaleRepository
	now      func() time.Time
}

func NewPaymentLedger(saleRepo repositories.SaleRepository) PaymentLedger {
	return &paymentLedger{saleRepo: saleRepo, now: time.Now}
}

func (l *paymentLedger) Collect(ctx context.Context, saleID int64, method models.PaymentMethod) (*models.Sale, error) {
	if !method.IsValid() {
		return nil, validationf("unknown payment method '%s'", method)
	}
	if err := l.saleRepo.MarkSaleCollected(ctx, saleID, method, l.now()); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, fmt.Errorf("%w: sale %d is already collected", ErrInvalidTransition, saleID)
		}
		return nil, notFoundOr(err, "sale", saleID)
	}
	log.Info().Int64("sale_id", saleID).Str("method", string(method)).Msg("Sale collected")

	sale, err := l.saleRepo.GetSaleByID(ctx, saleID)
	if err != nil {
		return nil, notFoundOr(err, "sale", saleID)
	}
	return sale, nil
}

func (l *paymentLedger) CollectGroup(ctx context.Context, saleIDs []int64, method models.PaymentMethod) (*CollectGroupResult, error) {
	if len(saleIDs) == 0 {
		return nil, validationf("no sales to collect")
	}
	if !method.IsValid() {
		return nil, validationf("unknown payment method '%s'", method)
	}

	result := &CollectGroupResult{Collected: []int64{}, Failed: []CollectFailure{}}
	seen := make(map[int64]bool, len(saleIDs))
	for _, id := range saleIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := l.Collect(ctx, id, method); err != nil {
			result.Failed = append(result.Failed, CollectFailure{SaleID: id, Reason: err.Error()})
			continue
		}
		result.Collected = append(result.Collected, id)
	}
	if len(result.Failed) > 0 {
		log.Warn().Ints64("collected", result.Collected).Int("failed", len(result.Failed)).Msg("Group collection partially failed")
	}
	return result, nil
}

func (l *paymentLedger) PendingGroups(ctx context.Context) ([]PendingGroup, error) {
	sales, err := l.saleRepo.GetPendingSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading pending sales: %w", err)
	}

	type groupKey struct {
		staff int64
		table string
	}
	index := map[groupKey]int{}
	groups := []PendingGroup{}
	for _, sale := range sales {
		var key groupKey
		if sale.StaffID != nil {
			key.staff = *sale.StaffID
		}
		if sale.TableNumber != nil {
			key.table = *sale.TableNumber
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, PendingGroup{StaffID: sale.StaffID, TableNumber: sale.TableNumber, Total: decimal.Zero})
		}
		groups[i].SaleIDs = append(groups[i].SaleIDs, sale.ID)
		groups[i].Total = groups[i].Total.Add(sale.TotalAmount)
	}
	return groups, nil
}
