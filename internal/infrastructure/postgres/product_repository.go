package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/Zhima-Mochi/storefront/internal/domain/inventory"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const productColumns = `id, name, price, quantity, description, threshold, category, updated_at`

type productRow struct {
	ID          uuid.UUID       `db:"id"`
	Name        string          `db:"name"`
	Price       decimal.Decimal `db:"price"`
	Quantity    int             `db:"quantity"`
	Description string          `db:"description"`
	Threshold   int             `db:"threshold"`
	Category    string          `db:"category"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (r productRow) toDomain() *domain.Product {
	return &domain.Product{
		ID:          r.ID,
		Name:        r.Name,
		Price:       r.Price,
		Quantity:    r.Quantity,
		Description: r.Description,
		Threshold:   r.Threshold,
		Category:    r.Category,
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func toProductRow(p *domain.Product) productRow {
	return productRow{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Quantity:    p.Quantity,
		Description: p.Description,
		Threshold:   p.Threshold,
		Category:    p.Category,
		UpdatedAt:   p.UpdatedAt,
	}
}

type ProductRepository struct {
	db *sqlx.DB
}

var _ domain.Repository = (*ProductRepository)(nil)

func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var row productRow
	err := r.db.GetContext(ctx, &row, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find product: %w", err)
	}
	return row.toDomain(), nil
}

// Update is the single atomic read-modify-write for stock; the row stays locked until commit.
func (r *ProductRepository) Update(ctx context.Context, id uuid.UUID, fn domain.UpdateFunc) (*domain.Product, error) {
	return TxClosure(ctx, r.db, func(ctx context.Context, tx *sqlx.Tx) (*domain.Product, error) {
		var row productRow
		err := tx.GetContext(ctx, &row, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("postgres: lock product: %w", err)
		}
		p := row.toDomain()
		if err := fn(p); err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE products SET quantity = $1, updated_at = $2 WHERE id = $3`,
			p.Quantity, p.UpdatedAt, p.ID); err != nil {
			return nil, fmt.Errorf("postgres: update product: %w", err)
		}
		return p, nil
	})
}

func (r *ProductRepository) Save(ctx context.Context, p *domain.Product) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO products (`+productColumns+`)
VALUES (:id, :name, :price, :quantity, :description, :threshold, :category, :updated_at)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price, quantity = EXCLUDED.quantity,
description = EXCLUDED.description, threshold = EXCLUDED.threshold, category = EXCLUDED.category,
updated_at = EXCLUDED.updated_at`, toProductRow(p))
	if err != nil {
		return fmt.Errorf("postgres: save product: %w", err)
	}
	return nil
}
