package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/vastramart/cartengine/internal/domain"
	"github.com/vastramart/cartengine/internal/port"
	"golang.org/x/text/currency"
)

const cartLineColumns = `id, product_id, grade_id, grade_name, unit_price::text, price_currency,
	color_id, color_name, swatch, quantity, created_at`

// cartRepository is the authoritative cart store. Rows are keyed by
// (owner_id, product_id, grade_id, color_id), so an upsert of an existing
// triple sums quantities at the database instead of appending a duplicate.
type cartRepository struct {
	pool *pgxpool.Pool
}

func NewCart(pool *pgxpool.Pool) (port.RemoteCart, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}

	return &cartRepository{pool: pool}, nil
}

func (r *cartRepository) GetCart(ctx context.Context, ownerID string) (domain.CartSnapshot, error) {
	if ownerID == "" {
		return domain.CartSnapshot{}, fmt.Errorf("ownerID is empty")
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+cartLineColumns+`
		 FROM cart_items
		 WHERE owner_id = $1
		 ORDER BY created_at, id`, ownerID)
	if err != nil {
		return domain.CartSnapshot{}, fmt.Errorf("pool.Query: %w", err)
	}
	defer rows.Close()

	lines, err := scanCartLines(rows)
	if err != nil {
		return domain.CartSnapshot{}, fmt.Errorf("scanCartLines: %w", err)
	}

	return domain.CartSnapshot{
		OwnerID: ownerID,
		Lines:   lines,
	}, nil
}

func (r *cartRepository) UpsertLine(ctx context.Context, ownerID string, line domain.LineItem) (domain.LineItem, error) {
	if ownerID == "" {
		return domain.LineItem{}, fmt.Errorf("ownerID is empty")
	}
	if line.Quantity < 1 {
		return domain.LineItem{}, fmt.Errorf("quantity[%d] must be positive", line.Quantity)
	}

	// the stored price wins on conflict: the first snapshot of a line is
	// frozen, later adds of the same triple only grow the quantity
	row := r.pool.QueryRow(ctx,
		`INSERT INTO cart_items
			(owner_id, product_id, grade_id, grade_name, unit_price, price_currency,
			 color_id, color_name, swatch, quantity)
		 VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10)
		 ON CONFLICT (owner_id, product_id, grade_id, color_id)
		 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		 RETURNING `+cartLineColumns,
		ownerID, line.ProductID, line.GradeID, line.GradeName,
		line.UnitPrice.Amount.String(), line.UnitPrice.Currency.String(),
		line.ColorID, line.ColorName, line.Swatch, line.Quantity)

	canonical, err := scanCartLine(row)
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("scanCartLine: %w", err)
	}

	return canonical, nil
}

func (r *cartRepository) UpdateQuantity(ctx context.Context, ownerID string, lineID string, quantity int) (domain.LineItem, error) {
	if ownerID == "" {
		return domain.LineItem{}, fmt.Errorf("ownerID is empty")
	}
	if quantity < 1 {
		return domain.LineItem{}, fmt.Errorf("quantity[%d] must be positive", quantity)
	}

	id, err := uuid.Parse(lineID)
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("lineID[%s] is not a server id: %w", lineID, err)
	}

	row := r.pool.QueryRow(ctx,
		`UPDATE cart_items
		 SET quantity = $3
		 WHERE owner_id = $1 AND id = $2
		 RETURNING `+cartLineColumns,
		ownerID, id, quantity)

	canonical, err := scanCartLine(row)
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("scanCartLine: %w", err)
	}

	return canonical, nil
}

func (r *cartRepository) RemoveLine(ctx context.Context, ownerID string, lineID string) (bool, error) {
	if ownerID == "" {
		return false, fmt.Errorf("ownerID is empty")
	}

	id, err := uuid.Parse(lineID)
	if err != nil {
		return false, fmt.Errorf("lineID[%s] is not a server id: %w", lineID, err)
	}

	tag, err := r.pool.Exec(ctx,
		`DELETE FROM cart_items WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return false, fmt.Errorf("pool.Exec: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *cartRepository) Clear(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return fmt.Errorf("ownerID is empty")
	}

	if _, err := r.pool.Exec(ctx,
		`DELETE FROM cart_items WHERE owner_id = $1`, ownerID); err != nil {
		return fmt.Errorf("pool.Exec: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCartLine(row rowScanner) (domain.LineItem, error) {
	var (
		id            uuid.UUID
		li            domain.LineItem
		priceAmount   string
		priceCurrency string
		createdAt     time.Time
	)

	err := row.Scan(&id, &li.ProductID, &li.GradeID, &li.GradeName, &priceAmount, &priceCurrency,
		&li.ColorID, &li.ColorName, &li.Swatch, &li.Quantity, &createdAt)
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("row.Scan: %w", err)
	}

	price, err := mapPriceToMoney(priceAmount, priceCurrency)
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("mapPriceToMoney: %w", err)
	}

	li.ID = id.String()
	li.UnitPrice = price
	li.CreatedAt = createdAt
	return li, nil
}

func scanCartLines(rows pgx.Rows) ([]domain.LineItem, error) {
	var lines []domain.LineItem

	for rows.Next() {
		li, err := scanCartLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scanCartLine: %w", err)
		}
		lines = append(lines, li)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return lines, nil
}

func mapPriceToMoney(amount, code string) (domain.Money, error) {
	parsedAmount, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.Money{}, fmt.Errorf("amount[%s] is not valid: %w", amount, err)
	}

	parsedCurrency, err := currency.ParseISO(code)
	if err != nil {
		return domain.Money{}, fmt.Errorf("currency[%s] is not valid: %w", code, err)
	}

	return domain.Money{Amount: parsedAmount, Currency: parsedCurrency}, nil
}
