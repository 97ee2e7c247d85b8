package services

import (
	"context"
	"fmt"

	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/repositories"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ProductionResult lists the ingredient deductions and the produced stock.
type ProductionResult struct {
	Product     models.StockChange   `json:"product"`
	Ingredients []models.StockChange `json:"ingredients"`
}

// Producer turns ingredient stock into stock of a compound product, one recipe level at a time.
type Producer interface {
	Produce(ctx context.Context, productID int64, quantity decimal.Decimal) (*ProductionResult, error)
}

type producer struct {
	tx      repositories.Transactor
	checker AvailabilityChecker
	ledger  StockLedger
}

func NewProducer(tx repositories.Transactor, checker AvailabilityChecker, ledger StockLedger) Producer {
	return &producer{tx: tx, checker: checker, ledger: ledger}
}

func (p *producer) Produce(ctx context.Context, productID int64, quantity decimal.Decimal) (*ProductionResult, error) {
	result := &ProductionResult{}
	err := p.tx.WithinTx(ctx, func(ctx context.Context) error {
		plan, err := p.checker.Plan(ctx, []OrderLine{{ProductID: productID, Quantity: quantity}})
		if err != nil {
			return err
		}
		if !plan.Products[productID].IsCompound {
			return validationf("product %d has no recipe to produce from", productID)
		}
		if shortages := plan.Shortages(); len(shortages) > 0 {
			return &InsufficientStockError{Shortages: shortages}
		}

		for _, req := range plan.Requirements {
			change, err := p.ledger.AdjustQuantity(ctx, req.ProductID, req.Quantity.Neg(), ReasonProduction)
			if err != nil {
				p.restore(ctx, result.Ingredients)
				return fmt.Errorf("deducting ingredient %d: %w", req.ProductID, err)
			}
			result.Ingredients = append(result.Ingredients, *change)
			if change.Clamped {
				// stock was drained between the check and the deduction
				p.restore(ctx, result.Ingredients)
				product := plan.Products[req.ProductID]
				return &InsufficientStockError{Shortages: []Shortage{{
					ProductID:   product.ID,
					ProductName: product.Name,
					Unit:        product.UnitBase,
					Required:    req.Quantity,
					Available:   change.PreviousQuantity,
				}}}
			}
		}
		change, err := p.ledger.AdjustQuantity(ctx, productID, quantity, ReasonProduction)
		if err != nil {
			p.restore(ctx, result.Ingredients)
			return fmt.Errorf("adding produced stock: %w", err)
		}
		result.Product = *change
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Int64("product_id", productID).Str("quantity", quantity.String()).Msg("Production recorded")
	return result, nil
}

// restore puts back what the applied deductions actually removed. Inside a database
// transaction the rollback makes this redundant; the memory store relies on it.
func (p *producer) restore(ctx context.Context, applied []models.StockChange) {
	for _, change := range applied {
		removed := change.PreviousQuantity.Sub(change.NewQuantity)
		if removed.Sign() <= 0 {
			continue
		}
		if _, err := p.ledger.AdjustQuantity(ctx, change.ProductID, removed, ReasonProduction); err != nil {
			log.Error().Err(err).Int64("product_id", change.ProductID).Str("quantity", removed.String()).Msg("Failed to restore ingredient after aborted production")
		}
	}
}
