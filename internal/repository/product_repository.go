package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"vapestore/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const productColumns = `id, name, category, price, stock, image_url, description, features, reviews`

// seededKey marks a database whose catalog has been seeded.
const seededKey = "seeded"

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

func scanProduct(row pgx.Row) (model.Product, error) {
	var p model.Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Category,
		&p.Price,
		&p.Stock,
		&p.ImageURL,
		&p.Description,
		&p.Features,
		&p.Reviews,
	)
	return p, err
}

func collectProducts(rows pgx.Rows) ([]model.Product, error) {
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

// List retrieves every product ordered by id.
func (r *productRepository) List(ctx context.Context) ([]model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	products, err := collectProducts(rows)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to read product rows")
		return nil, err
	}
	return products, nil
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id int) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int("product_id", id).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int("product_id", id).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &p, nil
}

// Create inserts a product, allocating max(id)+1 when the ID is zero.
func (r *productRepository) Create(ctx context.Context, p *model.Product) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// Readers keep going; concurrent creators queue behind the id allocation.
	if _, err := tx.Exec(ctx, `LOCK TABLE products IN EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("failed to lock products: %w", err)
	}

	query := `
		INSERT INTO products (id, name, category, price, stock, image_url, description, features, reviews)
		VALUES (
			CASE WHEN $1 > 0 THEN $1 ELSE (SELECT COALESCE(MAX(id), 0) + 1 FROM products) END,
			$2, $3, $4, $5, $6, $7, $8, $9
		)
		RETURNING id
	`

	err = tx.QueryRow(ctx, query,
		p.ID,
		p.Name,
		p.Category,
		p.Price,
		p.Stock,
		p.ImageURL,
		p.Description,
		jsonList(p.Features),
		jsonList(p.Reviews),
	).Scan(&p.ID)
	if err != nil {
		r.logger.Error().Err(err).Str("name", p.Name).Msg("failed to create product")
		return fmt.Errorf("failed to create product: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Int("product_id", p.ID).Msg("failed to commit product")
		return fmt.Errorf("failed to commit product: %w", err)
	}

	r.logger.Debug().Int("product_id", p.ID).Msg("product created successfully")
	return nil
}

// Update overwrites a product document.
func (r *productRepository) Update(ctx context.Context, p *model.Product) (bool, error) {
	query := `
		UPDATE products
		SET name = $2, category = $3, price = $4, stock = $5, image_url = $6,
		    description = $7, features = $8, reviews = $9, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Category,
		p.Price,
		p.Stock,
		p.ImageURL,
		p.Description,
		jsonList(p.Features),
		jsonList(p.Reviews),
	)
	if err != nil {
		r.logger.Error().Err(err).Int("product_id", p.ID).Msg("failed to update product")
		return false, fmt.Errorf("failed to update product: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes a product.
func (r *productRepository) Delete(ctx context.Context, id int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Int("product_id", id).Msg("failed to delete product")
		return false, fmt.Errorf("failed to delete product: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetImageURL replaces the product image.
func (r *productRepository) SetImageURL(ctx context.Context, id int, url string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET image_url = $2, updated_at = now() WHERE id = $1`, id, url)
	if err != nil {
		r.logger.Error().Err(err).Int("product_id", id).Msg("failed to set product image")
		return false, fmt.Errorf("failed to set product image: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// PrependReview puts a review at the front of the review list in a single statement.
func (r *productRepository) PrependReview(ctx context.Context, id int, review model.Review) (*model.Product, error) {
	payload, err := json.Marshal(review)
	if err != nil {
		return nil, fmt.Errorf("failed to encode review: %w", err)
	}

	query := `
		UPDATE products
		SET reviews = jsonb_build_array($2::jsonb) || reviews, updated_at = now()
		WHERE id = $1
		RETURNING ` + productColumns

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id, string(payload)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Int("product_id", id).Msg("failed to add review")
		return nil, fmt.Errorf("failed to add review: %w", err)
	}

	r.logger.Debug().Int("product_id", id).Str("review_id", review.ID).Msg("review added")
	return &p, nil
}

// SeedIfEmpty inserts the products and the seed marker in one transaction.
// The marker row makes the seed happen at most once per database, even when
// several instances start together.
func (r *productRepository) SeedIfEmpty(ctx context.Context, products []model.Product) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	marker := fmt.Sprintf(`{"products": %d}`, len(products))
	tag, err := tx.Exec(ctx,
		`INSERT INTO catalog_meta (key, value) VALUES ($1, $2::jsonb) ON CONFLICT (key) DO NOTHING`,
		seededKey, marker)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to write seed marker")
		return false, fmt.Errorf("failed to write seed marker: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Debug().Msg("catalog already seeded")
		return false, nil
	}

	query := `
		INSERT INTO products (id, name, category, price, stock, image_url, description, features, reviews)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(query,
			p.ID,
			p.Name,
			p.Category,
			p.Price,
			p.Stock,
			p.ImageURL,
			p.Description,
			jsonList(p.Features),
			jsonList(p.Reviews),
		)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range products {
		if _, err := results.Exec(); err != nil {
			results.Close()
			r.logger.Error().Err(err).Int("product_id", products[i].ID).Msg("failed to seed product")
			return false, fmt.Errorf("failed to seed product %d: %w", products[i].ID, err)
		}
	}
	if err := results.Close(); err != nil {
		return false, fmt.Errorf("failed to close seed batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Msg("failed to commit seed")
		return false, fmt.Errorf("failed to commit seed: %w", err)
	}

	r.logger.Info().Int("count", len(products)).Msg("catalog seeded")
	return true, nil
}

// jsonList keeps empty lists as JSON arrays instead of SQL NULL.
func jsonList[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
