package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/vastramart/cartengine/internal/domain"
	"github.com/vastramart/cartengine/internal/port"
)

const orderColumns = `id, owner_id, subtotal::text, sgst_rate::text, cgst_rate::text,
	sgst_amount::text, cgst_amount::text, grand_total::text, price_currency,
	ship_name, ship_phone, ship_line1, ship_line2, ship_city, ship_state, ship_pincode,
	payment_method, order_status, payment_status,
	gateway_order_ref, gateway_payment_id, gateway_signature,
	created_at, updated_at`

type orderRepository struct {
	pool *pgxpool.Pool
}

func NewOrders(pool *pgxpool.Pool) (port.Orders, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}

	return &orderRepository{pool: pool}, nil
}

// Create persists the order and its lines in one transaction and returns the
// order with server-assigned id and timestamps.
func (r *orderRepository) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	if len(order.Lines) == 0 {
		return domain.Order{}, fmt.Errorf("order has no lines")
	}

	return withTx(ctx, r.pool, func(tx pgx.Tx) (domain.Order, error) {
		row := tx.QueryRow(ctx,
			`INSERT INTO orders
				(owner_id, subtotal, sgst_rate, cgst_rate, sgst_amount, cgst_amount,
				 grand_total, price_currency,
				 ship_name, ship_phone, ship_line1, ship_line2, ship_city, ship_state, ship_pincode,
				 payment_method, order_status, payment_status,
				 gateway_order_ref, gateway_payment_id, gateway_signature)
			 VALUES ($1, $2::numeric, $3::numeric, $4::numeric, $5::numeric, $6::numeric,
				 $7::numeric, $8,
				 $9, $10, $11, $12, $13, $14, $15,
				 $16, $17, $18,
				 $19, $20, $21)
			 RETURNING id, created_at, updated_at`,
			order.OwnerID,
			order.Totals.Subtotal.Amount.String(),
			order.Totals.SGSTRate.String(),
			order.Totals.CGSTRate.String(),
			order.Totals.SGSTAmount.Amount.String(),
			order.Totals.CGSTAmount.Amount.String(),
			order.Totals.GrandTotal.Amount.String(),
			order.Totals.Subtotal.Currency.String(),
			order.Address.Name, order.Address.Phone,
			order.Address.Line1, order.Address.Line2,
			order.Address.City, order.Address.State, order.Address.Pincode,
			string(order.PaymentMethod), string(order.OrderStatus), string(order.PaymentStatus),
			order.Proof.OrderRef, order.Proof.PaymentID, order.Proof.Signature)

		if err := row.Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return domain.Order{}, fmt.Errorf("row.Scan: %w", err)
		}

		for i, li := range order.Lines {
			_, err := tx.Exec(ctx,
				`INSERT INTO order_lines
					(order_id, product_id, grade_id, grade_name, unit_price, price_currency,
					 color_id, color_name, swatch, quantity, position)
				 VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11)`,
				order.ID, li.ProductID, li.GradeID, li.GradeName,
				li.UnitPrice.Amount.String(), li.UnitPrice.Currency.String(),
				li.ColorID, li.ColorName, li.Swatch, li.Quantity, i)
			if err != nil {
				return domain.Order{}, fmt.Errorf("tx.Exec order_lines: %w", err)
			}
		}

		return order, nil
	})
}

func (r *orderRepository) Get(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)

	order, err := scanOrder(row)
	if err != nil {
		return domain.Order{}, fmt.Errorf("scanOrder: %w", err)
	}

	lines, err := r.orderLines(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("orderLines: %w", err)
	}
	order.Lines = lines

	return order, nil
}

// UpdateStatus writes both status axes in a single statement; there is no
// partial-patch path.
func (r *orderRepository) UpdateStatus(ctx context.Context, orderID uuid.UUID, pair domain.StatusPair) (domain.Order, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE orders
		 SET order_status = $2, payment_status = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING `+orderColumns,
		orderID, string(pair.Order), string(pair.Payment))

	order, err := scanOrder(row)
	if err != nil {
		return domain.Order{}, fmt.Errorf("scanOrder: %w", err)
	}

	lines, err := r.orderLines(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("orderLines: %w", err)
	}
	order.Lines = lines

	return order, nil
}

func (r *orderRepository) orderLines(ctx context.Context, orderID uuid.UUID) ([]domain.LineItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, grade_id, grade_name, unit_price::text, price_currency,
			color_id, color_name, swatch, quantity, created_at
		 FROM order_lines
		 WHERE order_id = $1
		 ORDER BY position`, orderID)
	if err != nil {
		return nil, fmt.Errorf("pool.Query: %w", err)
	}
	defer rows.Close()

	lines, err := scanCartLines(rows)
	if err != nil {
		return nil, fmt.Errorf("scanCartLines: %w", err)
	}

	return lines, nil
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		o domain.Order

		subtotal, sgstRate, cgstRate   string
		sgstAmount, cgstAmount, grand  string
		currencyCode                   string
		method, orderStatus, payStatus string
	)

	err := row.Scan(&o.ID, &o.OwnerID, &subtotal, &sgstRate, &cgstRate,
		&sgstAmount, &cgstAmount, &grand, &currencyCode,
		&o.Address.Name, &o.Address.Phone, &o.Address.Line1, &o.Address.Line2,
		&o.Address.City, &o.Address.State, &o.Address.Pincode,
		&method, &orderStatus, &payStatus,
		&o.Proof.OrderRef, &o.Proof.PaymentID, &o.Proof.Signature,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return domain.Order{}, fmt.Errorf("row.Scan: %w", err)
	}

	totals, err := mapTotals(subtotal, sgstRate, cgstRate, sgstAmount, cgstAmount, grand, currencyCode)
	if err != nil {
		return domain.Order{}, fmt.Errorf("mapTotals: %w", err)
	}

	o.Totals = totals
	o.PaymentMethod = domain.PaymentMethod(method)
	o.OrderStatus = domain.OrderStatus(orderStatus)
	o.PaymentStatus = domain.PaymentStatus(payStatus)
	return o, nil
}

func mapTotals(subtotal, sgstRate, cgstRate, sgstAmount, cgstAmount, grand, currencyCode string) (domain.TaxBreakdown, error) {
	subtotalMoney, err := mapPriceToMoney(subtotal, currencyCode)
	if err != nil {
		return domain.TaxBreakdown{}, fmt.Errorf("subtotal: %w", err)
	}
	sgstMoney, err := mapPriceToMoney(sgstAmount, currencyCode)
	if err != nil {
		return domain.TaxBreakdown{}, fmt.Errorf("sgstAmount: %w", err)
	}
	cgstMoney, err := mapPriceToMoney(cgstAmount, currencyCode)
	if err != nil {
		return domain.TaxBreakdown{}, fmt.Errorf("cgstAmount: %w", err)
	}
	grandMoney, err := mapPriceToMoney(grand, currencyCode)
	if err != nil {
		return domain.TaxBreakdown{}, fmt.Errorf("grandTotal: %w", err)
	}

	parsedSGSTRate, err := decimal.NewFromString(sgstRate)
	if err != nil {
		return domain.TaxBreakdown{}, fmt.Errorf("sgstRate[%s] is not valid: %w", sgstRate, err)
	}
	parsedCGSTRate, err := decimal.NewFromString(cgstRate)
	if err != nil {
		return domain.TaxBreakdown{}, fmt.Errorf("cgstRate[%s] is not valid: %w", cgstRate, err)
	}

	return domain.TaxBreakdown{
		Subtotal:   subtotalMoney,
		SGSTRate:   parsedSGSTRate,
		CGSTRate:   parsedCGSTRate,
		SGSTAmount: sgstMoney,
		CGSTAmount: cgstMoney,
		GrandTotal: grandMoney,
	}, nil
}
