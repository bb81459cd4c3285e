// Package postgres implements domain.Repository on PostgreSQL with pgx.
//
// Amounts are stored as integer minor units and addresses and line items
// as JSONB documents; the order row is the unit of consistency.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/storefront-checkout/internal/order-service/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id                  UUID        PRIMARY KEY,
    order_number        TEXT        NOT NULL UNIQUE,
    idempotency_key     TEXT        UNIQUE,
    request_id          TEXT        NOT NULL DEFAULT '',
    customer_name       TEXT        NOT NULL,
    email               TEXT        NOT NULL,
    phone               TEXT        NOT NULL DEFAULT '',
    shipping_address    JSONB       NOT NULL,
    billing_address     JSONB       NOT NULL,
    items               JSONB       NOT NULL,
    subtotal_cents      BIGINT      NOT NULL,
    shipping_cents      BIGINT      NOT NULL,
    tax_cents           BIGINT      NOT NULL,
    total_cents         BIGINT      NOT NULL,
    currency            TEXT        NOT NULL,
    payment_method      TEXT        NOT NULL,
    payment_status      TEXT        NOT NULL,
    status              TEXT        NOT NULL,
    provider_reference  TEXT        NOT NULL DEFAULT '',
    created_at          TIMESTAMPTZ NOT NULL,
    updated_at          TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_awaiting_payment
    ON orders (created_at)
    WHERE payment_method = 'online' AND status = 'CREATED' AND payment_status = 'UNPAID';
`

const selectColumns = `
	id, order_number, COALESCE(idempotency_key, ''), request_id, customer_name, email, phone,
	shipping_address, billing_address, items,
	subtotal_cents, shipping_cents, tax_cents, total_cents, currency,
	payment_method, payment_status, status, provider_reference, created_at, updated_at`

var _ domain.Repository = (*Repository)(nil)

type Repository struct {
	pool *pgxpool.Pool
}

// Open connects to databaseURL, pings it and applies the schema.
func Open(ctx context.Context, databaseURL string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: apply schema: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() {
	r.pool.Close()
}

func (r *Repository) Create(ctx context.Context, o *domain.Order) error {
	docs, err := encodeDocuments(o)
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO orders (
			id, order_number, idempotency_key, request_id, customer_name, email, phone,
			shipping_address, billing_address, items,
			subtotal_cents, shipping_cents, tax_cents, total_cents, currency,
			payment_method, payment_status, status, provider_reference, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`

	_, err = r.pool.Exec(ctx, q,
		o.ID, o.OrderNumber, nullableString(o.IdempotencyKey), o.RequestID, o.CustomerName, o.Email, o.Phone,
		docs.shipping, docs.billing, docs.items,
		toCents(o.Subtotal), toCents(o.ShippingCost), toCents(o.Tax), toCents(o.Total), o.Currency,
		string(o.PaymentMethod), string(o.PaymentStatus), string(o.Status), o.ProviderReference,
		o.CreatedAt, o.UpdatedAt,
	)
	if isUniqueViolation(err, "orders_idempotency_key_key") {
		return domain.ErrDuplicateIdempotencyKey
	}
	if err != nil {
		return fmt.Errorf("postgres: insert order %s: %w", o.ID, err)
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, o *domain.Order) error {
	const q = `
		UPDATE orders
		SET payment_status = $2, status = $3, provider_reference = $4, updated_at = $5
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, q, o.ID, string(o.PaymentStatus), string(o.Status), o.ProviderReference, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: update order %s: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+selectColumns+` FROM orders WHERE id = $1`, id)
}

func (r *Repository) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+selectColumns+` FROM orders WHERE order_number = $1`, orderNumber)
}

func (r *Repository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	if key == "" {
		return nil, domain.ErrOrderNotFound
	}
	return r.getOne(ctx, `SELECT `+selectColumns+` FROM orders WHERE idempotency_key = $1`, key)
}

func (r *Repository) ListAwaitingPayment(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + selectColumns + `
		FROM orders
		WHERE payment_method = 'online' AND status = 'CREATED' AND payment_status = 'UNPAID'
		  AND created_at < $1
		ORDER BY created_at
		LIMIT $2`

	rows, err := r.pool.Query(ctx, q, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list awaiting payment: %w", err)
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list awaiting payment: %w", err)
	}
	return out, nil
}

func (r *Repository) getOne(ctx context.Context, q string, arg any) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, q, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	return o, err
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o                                  domain.Order
		shipping, billing, items           []byte
		subtotal, shippingCost, tax, total int64
		method, paymentStatus, orderStatus string
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.IdempotencyKey, &o.RequestID, &o.CustomerName, &o.Email, &o.Phone,
		&shipping, &billing, &items,
		&subtotal, &shippingCost, &tax, &total, &o.Currency,
		&method, &paymentStatus, &orderStatus, &o.ProviderReference, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("postgres: scan order: %w", err)
	}

	if err := json.Unmarshal(shipping, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("postgres: decode shipping address: %w", err)
	}
	if err := json.Unmarshal(billing, &o.BillingAddress); err != nil {
		return nil, fmt.Errorf("postgres: decode billing address: %w", err)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("postgres: decode items: %w", err)
	}

	o.Subtotal = fromCents(subtotal)
	o.ShippingCost = fromCents(shippingCost)
	o.Tax = fromCents(tax)
	o.Total = fromCents(total)
	o.PaymentMethod = domain.PaymentMethod(method)
	o.PaymentStatus = domain.PaymentStatus(paymentStatus)
	o.Status = domain.OrderStatus(orderStatus)
	return &o, nil
}

type documents struct {
	shipping, billing, items []byte
}

func encodeDocuments(o *domain.Order) (documents, error) {
	var (
		d   documents
		err error
	)
	if d.shipping, err = json.Marshal(o.ShippingAddress); err != nil {
		return d, fmt.Errorf("postgres: encode shipping address: %w", err)
	}
	if d.billing, err = json.Marshal(o.BillingAddress); err != nil {
		return d, fmt.Errorf("postgres: encode billing address: %w", err)
	}
	if d.items, err = json.Marshal(o.Items); err != nil {
		return d, fmt.Errorf("postgres: encode items: %w", err)
	}
	return d, nil
}

// toCents stores amounts in minor units; totals are already rounded to cents.
func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && (constraint == "" || pgErr.ConstraintName == constraint)
	}
	return false
}

// nullableString keeps an absent idempotency key out of the unique index.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
