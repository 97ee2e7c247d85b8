package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/repositories"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type SubmitSaleRequest struct {
	Items         []OrderLine          `json:"items" binding:"required,min=1,dive"`
	PaymentMethod models.PaymentMethod `json:"payment_method" binding:"required"`
	IsPrepaid     bool                 `json:"is_prepaid"`
	Concept       *string              `json:"concept"`
	TableNumber   *string              `json:"table_number"`
}

// SaleResult is a committed sale plus everything that happened downstream of it.
type SaleResult struct {
	Sale              *models.Sale              `json:"sale"`
	FulfillmentOrders []models.FulfillmentOrder `json:"fulfillment_orders"`
	StockChanges      []models.StockChange      `json:"stock_changes"`
	// Warnings report side effects that failed after the sale was committed.
	Warnings []string `json:"warnings"`
}

// SaleProcessor turns a cart into a committed sale.
type SaleProcessor interface {
	// Submit is not idempotent: two calls create two sales and deduct stock twice.
	Submit(ctx context.Context, req SubmitSaleRequest, actor models.Actor) (*SaleResult, error)
	GetSale(ctx context.Context, id int64) (*models.Sale, error)
	ListSales(ctx context.Context, filters models.SaleFilters) ([]models.Sale, int, error)
}

type saleProcessor struct {
	saleRepo    repositories.SaleRepository
	checker     AvailabilityChecker
	ledger      StockLedger
	queue       FulfillmentQueue
	fanoutLimit int
	now         func() time.Time
}

// NewSaleProcessor wires the processor. fanoutLimit bounds concurrent stock updates per sale.
func NewSaleProcessor(
	saleRepo repositories.SaleRepository,
	checker AvailabilityChecker,
	ledger StockLedger,
	queue FulfillmentQueue,
	fanoutLimit int,
) SaleProcessor {
	if fanoutLimit <= 0 {
		fanoutLimit = 8
	}
	return &saleProcessor{
		saleRepo:    saleRepo,
		checker:     checker,
		ledger:      ledger,
		queue:       queue,
		fanoutLimit: fanoutLimit,
		now:         time.Now,
	}
}

func (p *saleProcessor) Submit(ctx context.Context, req SubmitSaleRequest, actor models.Actor) (*SaleResult, error) {
	if !req.PaymentMethod.IsValid() {
		return nil, validationf("unknown payment method '%s'", req.PaymentMethod)
	}

	plan, err := p.checker.Plan(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	if shortages := plan.Shortages(); len(shortages) > 0 {
		return nil, &InsufficientStockError{Shortages: shortages}
	}

	sale := &models.Sale{
		Items:         make([]models.SaleItem, 0, len(req.Items)),
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: models.PaymentPending,
		Concept:       req.Concept,
		TableNumber:   req.TableNumber,
		CreatedAt:     p.now(),
	}
	if actor.UserID != 0 {
		staffID := actor.UserID
		sale.StaffID = &staffID
	}
	for _, line := range req.Items {
		product := plan.Products[line.ProductID]
		sale.Items = append(sale.Items, models.NewSaleItem(product.ID, product.Name, line.Quantity, product.Price))
	}
	sale.TotalAmount = models.SumLineTotals(sale.Items)
	if req.IsPrepaid {
		collectedAt := sale.CreatedAt
		sale.PaymentStatus = models.PaymentCollected
		sale.CollectedAt = &collectedAt
	}

	if _, err := p.saleRepo.CreateSale(ctx, sale); err != nil {
		return nil, fmt.Errorf("persisting sale: %w", err)
	}
	log.Info().
		Int64("sale_id", sale.ID).
		Str("total", sale.TotalAmount.String()).
		Str("payment_status", string(sale.PaymentStatus)).
		Int64("staff_id", actor.UserID).
		Msg("Sale committed")

	// The sale is authoritative from here on; downstream work must not be cut short by the caller.
	ctx = context.WithoutCancel(ctx)
	result := &SaleResult{Sale: sale, Warnings: []string{}}

	changes, warnings := p.deductStock(ctx, sale.ID, plan)
	result.StockChanges = changes
	result.Warnings = append(result.Warnings, warnings...)

	orders, warnings := p.queue.CreateForSale(ctx, sale, plan.Products)
	result.FulfillmentOrders = orders
	if result.FulfillmentOrders == nil {
		result.FulfillmentOrders = []models.FulfillmentOrder{}
	}
	result.Warnings = append(result.Warnings, warnings...)
	return result, nil
}

// deductStock runs one atomic update per product and waits for all of them. A failed update
// is reported and never rolls back the sale or its siblings.
func (p *saleProcessor) deductStock(ctx context.Context, saleID int64, plan *StockPlan) ([]models.StockChange, []string) {
	var (
		mu       sync.Mutex
		changes  = make([]models.StockChange, 0, len(plan.Requirements))
		warnings []string
	)

	var g errgroup.Group
	g.SetLimit(p.fanoutLimit)
	for _, req := range plan.Requirements {
		req := req
		g.Go(func() error {
			change, err := p.ledger.AdjustQuantity(ctx, req.ProductID, req.Quantity.Neg(), ReasonSale)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Error().Err(err).Int64("sale_id", saleID).Int64("product_id", req.ProductID).Msg("Stock deduction failed")
				warnings = append(warnings, fmt.Sprintf("stock for %s was not deducted", plan.Products[req.ProductID].Name))
				return nil
			}
			changes = append(changes, *change)
			if change.Clamped {
				warnings = append(warnings, fmt.Sprintf("stock for %s ran out and was floored at zero", plan.Products[req.ProductID].Name))
			}
			return nil
		})
	}
	_ = g.Wait() // tasks report through warnings

	return changes, warnings
}

func (p *saleProcessor) GetSale(ctx context.Context, id int64) (*models.Sale, error) {
	sale, err := p.saleRepo.GetSaleByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "sale", id)
	}
	return sale, nil
}

func (p *saleProcessor) ListSales(ctx context.Context, filters models.SaleFilters) ([]models.Sale, int, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 {
		filters.PageSize = 10
	}
	if filters.PaymentStatus != nil && *filters.PaymentStatus != models.PaymentPending && *filters.PaymentStatus != models.PaymentCollected {
		return nil, 0, validationf("unknown payment status '%s'", *filters.PaymentStatus)
	}
	return p.saleRepo.GetSales(ctx, filters)
}
