package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/Zhima-Mochi/storefront/internal/domain/transaction"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, order_id, user_id, amount, original_amount, currency, status,
payment_method, promo_code, line_items, version, created_at, updated_at`

type transactionRow struct {
	ID             string          `db:"id"`
	OrderID        int64           `db:"order_id"`
	UserID         int64           `db:"user_id"`
	Amount         decimal.Decimal `db:"amount"`
	OriginalAmount decimal.Decimal `db:"original_amount"`
	Currency       string          `db:"currency"`
	Status         string          `db:"status"`
	PaymentMethod  string          `db:"payment_method"`
	PromoCode      string          `db:"promo_code"`
	LineItems      pq.StringArray  `db:"line_items"`
	Version        int64           `db:"version"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func toTransactionRow(t *domain.Transaction) transactionRow {
	return transactionRow{
		ID:             t.ID,
		OrderID:        t.OrderID,
		UserID:         t.UserID,
		Amount:         t.Amount,
		OriginalAmount: t.OriginalAmount,
		Currency:       t.Currency,
		Status:         string(t.Status),
		PaymentMethod:  t.PaymentMethod,
		PromoCode:      t.PromoCode,
		LineItems:      pq.StringArray(domain.EncodeLineItems(t.LineItems)),
		Version:        t.Version,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func (r transactionRow) toDomain() (*domain.Transaction, error) {
	items, err := domain.DecodeLineItems(r.LineItems)
	if err != nil {
		return nil, fmt.Errorf("postgres: transaction %s: %w", r.ID, err)
	}
	status := domain.Status(r.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("postgres: transaction %s: unknown status %q", r.ID, r.Status)
	}
	return &domain.Transaction{
		ID:             r.ID,
		OrderID:        r.OrderID,
		UserID:         r.UserID,
		Amount:         r.Amount,
		OriginalAmount: r.OriginalAmount,
		Currency:       r.Currency,
		Status:         status,
		PaymentMethod:  r.PaymentMethod,
		PromoCode:      r.PromoCode,
		LineItems:      items,
		Version:        r.Version,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}, nil
}

type TransactionRepository struct {
	db *sqlx.DB
}

var _ domain.Repository = (*TransactionRepository)(nil)

func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Insert(ctx context.Context, t *domain.Transaction) error {
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO transactions (`+transactionColumns+`)
VALUES (:id, :order_id, :user_id, :amount, :original_amount, :currency, :status,
:payment_method, :promo_code, :line_items, :version, :created_at, :updated_at)`, toTransactionRow(t))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", domain.ErrConflict, t.ID)
	}
	if err != nil {
		return fmt.Errorf("postgres: insert transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	var row transactionRow
	err := r.db.GetContext(ctx, &row, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find transaction: %w", err)
	}
	return row.toDomain()
}

func (r *TransactionRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Transaction, error) {
	var rows []transactionRow
	err := r.db.SelectContext(ctx, &rows, `SELECT `+transactionColumns+` FROM transactions WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list transactions: %w", err)
	}
	out := make([]*domain.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Update locks the row with SELECT ... FOR UPDATE so concurrent transitions serialize.
func (r *TransactionRepository) Update(ctx context.Context, id string, fn domain.UpdateFunc) (*domain.Transaction, error) {
	return TxClosure(ctx, r.db, func(ctx context.Context, tx *sqlx.Tx) (*domain.Transaction, error) {
		var row transactionRow
		err := tx.GetContext(ctx, &row, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("postgres: lock transaction: %w", err)
		}
		t, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		if err := fn(t); err != nil {
			return nil, err
		}
		_, err = tx.NamedExecContext(ctx, `UPDATE transactions SET amount = :amount, original_amount = :original_amount,
status = :status, payment_method = :payment_method, promo_code = :promo_code, line_items = :line_items,
version = :version, updated_at = :updated_at WHERE id = :id`, toTransactionRow(t))
		if err != nil {
			return nil, fmt.Errorf("postgres: update transaction: %w", err)
		}
		return t, nil
	})
}
