package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/repositories"

	"github.com/shopspring/decimal"
)

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.products {
		if strings.EqualFold(p.Name, product.Name) {
			return 0, fmt.Errorf("%w: product name '%s' already exists", repositories.ErrDuplicateKey, product.Name)
		}
	}
	now := time.Now()
	product.ID = s.nextID()
	product.Status = models.DeriveStockStatus(product.Quantity, product.MinStock)
	product.CreatedAt, product.UpdatedAt = now, now
	stored := *product
	s.products[product.ID] = &stored
	return product.ID, nil
}

func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[int64]*models.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out := *p
			result[id] = &out
		}
	}
	return result, nil
}

func (s *Store) GetProducts(ctx context.Context, filters models.ProductFilters) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := []models.Product{}
	for _, p := range s.products {
		if filters.Category != nil && p.Category != *filters.Category {
			continue
		}
		if filters.Status != nil && p.Status != *filters.Status {
			continue
		}
		if filters.Search != nil && *filters.Search != "" &&
			!strings.Contains(strings.ToLower(p.Name), strings.ToLower(*filters.Search)) {
			continue
		}
		products = append(products, *p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[product.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	for id, other := range s.products {
		if id != product.ID && strings.EqualFold(other.Name, product.Name) {
			return fmt.Errorf("%w: product name '%s' already exists", repositories.ErrDuplicateKey, product.Name)
		}
	}
	p.Name = product.Name
	p.Category = product.Category
	p.Price = product.Price
	p.MinStock = product.MinStock
	p.IsCompound = product.IsCompound
	p.RequiresKitchen = product.RequiresKitchen
	p.UnitBase = product.UnitBase
	p.CostPerUnit = product.CostPerUnit
	p.Status = models.DeriveStockStatus(p.Quantity, p.MinStock)
	p.UpdatedAt = time.Now()

	product.Quantity, product.Status, product.UpdatedAt = p.Quantity, p.Status, p.UpdatedAt
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return repositories.ErrNotFound
	}
	for productID, items := range s.recipes {
		for _, item := range items {
			if item.IngredientID == id {
				return fmt.Errorf("%w: product %d is an ingredient of product %d", repositories.ErrForeignKey, id, productID)
			}
		}
	}
	for _, sale := range s.sales {
		for _, item := range sale.Items {
			if item.ProductID == id {
				return fmt.Errorf("%w: product %d is referenced by sale %d", repositories.ErrForeignKey, id, sale.ID)
			}
		}
	}
	delete(s.recipes, id)
	delete(s.products, id)
	return nil
}

// applyQuantity must be called with mu held.
func (s *Store) applyQuantity(p *models.Product, quantity decimal.Decimal) *models.StockChange {
	change := &models.StockChange{ProductID: p.ID, PreviousQuantity: p.Quantity}
	if quantity.Sign() < 0 {
		quantity = decimal.Zero
		change.Clamped = true
	}
	p.Quantity = quantity
	p.Status = models.DeriveStockStatus(p.Quantity, p.MinStock)
	p.UpdatedAt = time.Now()
	change.NewQuantity, change.NewStatus = p.Quantity, p.Status
	return change
}

func (s *Store) AdjustQuantity(ctx context.Context, id int64, delta decimal.Decimal) (*models.StockChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return s.applyQuantity(p, p.Quantity.Add(delta)), nil
}

func (s *Store) SetQuantity(ctx context.Context, id int64, quantity decimal.Decimal, adj *models.StockAdjustment) (*models.StockChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	change := s.applyQuantity(p, quantity)

	adj.ID = s.nextID()
	adj.ProductID = id
	adj.PreviousQuantity = change.PreviousQuantity
	adj.NewQuantity = change.NewQuantity
	adj.CreatedAt = p.UpdatedAt
	s.adjustments = append(s.adjustments, *adj)
	return change, nil
}

func (s *Store) GetAdjustments(ctx context.Context, productID int64) ([]models.StockAdjustment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.StockAdjustment{}
	for i := len(s.adjustments) - 1; i >= 0; i-- {
		if s.adjustments[i].ProductID == productID {
			out = append(out, s.adjustments[i])
		}
	}
	return out, nil
}

func (s *Store) GetRecipe(ctx context.Context, productID int64) ([]models.RecipeItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := []models.RecipeItem{}
	for _, item := range s.recipes[productID] {
		if ingredient, ok := s.products[item.IngredientID]; ok {
			item.IngredientName = ingredient.Name
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Store) ReplaceRecipe(ctx context.Context, productID int64, items []models.RecipeItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return repositories.ErrNotFound
	}
	edges := make([]models.RecipeItem, 0, len(items))
	for _, item := range items {
		if _, ok := s.products[item.IngredientID]; !ok {
			return fmt.Errorf("%w: ingredient %d does not exist", repositories.ErrForeignKey, item.IngredientID)
		}
		item.ProductID = productID
		item.IngredientName = ""
		edges = append(edges, item)
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].IngredientID < edges[j].IngredientID })

	if len(edges) == 0 {
		delete(s.recipes, productID)
	} else {
		s.recipes[productID] = edges
	}
	p.IsCompound = len(edges) > 0
	p.UpdatedAt = time.Now()
	return nil
}
