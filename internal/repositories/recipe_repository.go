package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"venue_pos_backend/internal/models"
)

// RecipeRepository stores the bill-of-materials edges of compound products.
type RecipeRepository interface {
	GetRecipe(ctx context.Context, productID int64) ([]models.RecipeItem, error)
	// ReplaceRecipe swaps every edge of productID for items and sets is_compound to
	// whether any edge remains.
	ReplaceRecipe(ctx context.Context, productID int64, items []models.RecipeItem) error
}

type recipeRepository struct {
	db *sql.DB
}

func NewRecipeRepository(db *sql.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

func (r *recipeRepository) GetRecipe(ctx context.Context, productID int64) ([]models.RecipeItem, error) {
	query := `SELECT ri.product_id, ri.ingredient_id, p.name, ri.quantity, ri.unit
	          FROM recipe_items ri
	          JOIN products p ON p.id = ri.ingredient_id
	          WHERE ri.product_id = $1
	          ORDER BY ri.ingredient_id`
	rows, err := executor(ctx, r.db).QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("%w: getting recipe for product %d: %v", ErrDatabaseError, productID, err)
	}
	defer rows.Close()

	items := []models.RecipeItem{}
	for rows.Next() {
		var item models.RecipeItem
		if err := rows.Scan(&item.ProductID, &item.IngredientID, &item.IngredientName, &item.Quantity, &item.Unit); err != nil {
			return nil, fmt.Errorf("%w: scanning recipe item: %v", ErrDatabaseError, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating recipe items: %v", ErrDatabaseError, err)
	}
	return items, nil
}

func (r *recipeRepository) ReplaceRecipe(ctx context.Context, productID int64, items []models.RecipeItem) error {
	return withTx(ctx, r.db, func(ctx context.Context, exec SQLExecutor) error {
		var id int64
		err := exec.QueryRowContext(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("%w: locking product %d: %v", ErrDatabaseError, productID, err)
		}

		if _, err := exec.ExecContext(ctx, `DELETE FROM recipe_items WHERE product_id = $1`, productID); err != nil {
			return fmt.Errorf("%w: clearing recipe for product %d: %v", ErrDatabaseError, productID, err)
		}

		for _, item := range items {
			_, err := exec.ExecContext(ctx,
				`INSERT INTO recipe_items (product_id, ingredient_id, quantity, unit) VALUES ($1, $2, $3, $4)`,
				productID, item.IngredientID, item.Quantity, item.Unit,
			)
			if err != nil {
				return mapPQError(err, fmt.Sprintf("adding ingredient %d to product %d", item.IngredientID, productID))
			}
		}

		_, err = exec.ExecContext(ctx,
			`UPDATE products SET is_compound = $1, updated_at = NOW() WHERE id = $2`, len(items) > 0, productID)
		if err != nil {
			return fmt.Errorf("%w: flagging product %d compound: %v", ErrDatabaseError, productID, err)
		}
		return nil
	})
}
