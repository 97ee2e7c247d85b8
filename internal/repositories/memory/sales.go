package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/repositories"

	"github.com/shopspring/decimal"
)

func cloneSale(sale *models.Sale) models.Sale {
	out := *sale
	out.Items = append([]models.SaleItem(nil), sale.Items...)
	return out
}

func (s *Store) CreateSale(ctx context.Context, sale *models.Sale) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range sale.Items {
		if _, ok := s.products[item.ProductID]; !ok {
			return 0, fmt.Errorf("%w: product %d does not exist", repositories.ErrForeignKey, item.ProductID)
		}
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now()
	}
	sale.ID = s.nextID()
	for i := range sale.Items {
		sale.Items[i].ID = s.nextID()
		sale.Items[i].SaleID = sale.ID
	}
	stored := cloneSale(sale)
	s.sales[sale.ID] = &stored
	return sale.ID, nil
}

func (s *Store) GetSaleByID(ctx context.Context, id int64) (*models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := cloneSale(sale)
	return &out, nil
}

func (s *Store) GetSales(ctx context.Context, filters models.SaleFilters) ([]models.Sale, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := []models.Sale{}
	for _, sale := range s.sales {
		if filters.StaffID != nil && (sale.StaffID == nil || *sale.StaffID != *filters.StaffID) {
			continue
		}
		if filters.TableNumber != nil && *filters.TableNumber != "" &&
			(sale.TableNumber == nil || *sale.TableNumber != *filters.TableNumber) {
			continue
		}
		if filters.PaymentStatus != nil && sale.PaymentStatus != *filters.PaymentStatus {
			continue
		}
		if filters.Date != nil && *filters.Date != "" && sale.CreatedAt.Format("2006-01-02") != *filters.Date {
			continue
		}
		out := *sale
		out.Items = nil
		matched = append(matched, out)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := len(matched)
	start := (filters.Page - 1) * filters.PageSize
	if start < 0 || start >= total {
		return []models.Sale{}, total, nil
	}
	end := start + filters.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *Store) MarkSaleCollected(ctx context.Context, id int64, method models.PaymentMethod, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if sale.PaymentStatus != models.PaymentPending {
		return fmt.Errorf("%w: sale %d is not pending", repositories.ErrConflict, id)
	}
	sale.PaymentStatus = models.PaymentCollected
	sale.PaymentMethod = method
	collectedAt := at
	sale.CollectedAt = &collectedAt
	return nil
}

func (s *Store) GetPendingSales(ctx context.Context) ([]models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := []models.Sale{}
	for _, sale := range s.sales {
		if sale.PaymentStatus == models.PaymentPending {
			out := *sale
			out.Items = nil
			pending = append(pending, out)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })
	return pending, nil
}

func (s *Store) SumCollectedByMethod(ctx context.Context, from, to time.Time) (models.CollectedTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := models.CollectedTotals{Cash: decimal.Zero, Transfer: decimal.Zero, QR: decimal.Zero}
	for _, sale := range s.sales {
		if sale.PaymentStatus != models.PaymentCollected || sale.CollectedAt == nil {
			continue
		}
		if sale.CollectedAt.Before(from) || sale.CollectedAt.After(to) {
			continue
		}
		switch sale.PaymentMethod {
		case models.PaymentCash:
			totals.Cash = totals.Cash.Add(sale.TotalAmount)
		case models.PaymentTransfer:
			totals.Transfer = totals.Transfer.Add(sale.TotalAmount)
		case models.PaymentQR:
			totals.QR = totals.QR.Add(sale.TotalAmount)
		}
	}
	return totals, nil
}
