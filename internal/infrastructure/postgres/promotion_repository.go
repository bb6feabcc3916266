package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/Zhima-Mochi/storefront/internal/domain/promotion"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const promotionColumns = `id, code, type, value, start_date, end_date, active, applicable_product_ids`

type promotionRow struct {
	ID         uuid.UUID       `db:"id"`
	Code       string          `db:"code"`
	Type       string          `db:"type"`
	Value      decimal.Decimal `db:"value"`
	StartDate  time.Time       `db:"start_date"`
	EndDate    time.Time       `db:"end_date"`
	Active     bool            `db:"active"`
	ProductIDs pq.StringArray  `db:"applicable_product_ids"`
}

func (r promotionRow) toDomain() (*domain.Promotion, error) {
	p := &domain.Promotion{
		ID:        r.ID,
		Code:      r.Code,
		Type:      domain.Type(r.Type),
		Value:     r.Value,
		StartDate: r.StartDate.UTC(),
		EndDate:   r.EndDate.UTC(),
		Active:    r.Active,
	}
	for _, raw := range r.ProductIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("postgres: promotion %s: applicable product %q: %w", r.Code, raw, err)
		}
		p.ApplicableProductIDs = append(p.ApplicableProductIDs, id)
	}
	return p, nil
}

type PromotionRepository struct {
	db *sqlx.DB
}

var _ domain.Repository = (*PromotionRepository)(nil)

func NewPromotionRepository(db *sqlx.DB) *PromotionRepository {
	return &PromotionRepository{db: db}
}

func (r *PromotionRepository) FindByCode(ctx context.Context, code string) (*domain.Promotion, error) {
	var row promotionRow
	err := r.db.GetContext(ctx, &row, `SELECT `+promotionColumns+` FROM promotions WHERE upper(code) = $1`,
		strings.ToUpper(strings.TrimSpace(code)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find promotion: %w", err)
	}
	return row.toDomain()
}

func (r *PromotionRepository) Save(ctx context.Context, p *domain.Promotion) error {
	if err := p.Validate(); err != nil {
		return err
	}
	ids := make(pq.StringArray, 0, len(p.ApplicableProductIDs))
	for _, id := range p.ApplicableProductIDs {
		ids = append(ids, id.String())
	}
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO promotions (`+promotionColumns+`)
VALUES (:id, :code, :type, :value, :start_date, :end_date, :active, :applicable_product_ids)
ON CONFLICT ((upper(code))) DO UPDATE SET type = EXCLUDED.type, value = EXCLUDED.value,
start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date, active = EXCLUDED.active,
applicable_product_ids = EXCLUDED.applicable_product_ids`, promotionRow{
		ID:         p.ID,
		Code:       p.Code,
		Type:       string(p.Type),
		Value:      p.Value,
		StartDate:  domain.Day(p.StartDate),
		EndDate:    domain.Day(p.EndDate),
		Active:     p.Active,
		ProductIDs: ids,
	})
	if err != nil {
		return fmt.Errorf("postgres: save promotion: %w", err)
	}
	return nil
}
