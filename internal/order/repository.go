package order

import (
	"context"
	"database/sql"
	"errors"

	"storefront-be/internal/db"
	"storefront-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	InsertOrder(ctx context.Context, o *Order) error
	InsertItems(ctx context.Context, orderID int64, items []Item) error
	GetOrder(ctx context.Context, id int64) (*Order, error)
	// LockOrder must run inside a transaction; it serialises status changes
	// on one order.
	LockOrder(ctx context.Context, id int64) (*Order, error)
	ListItems(ctx context.Context, orderIDs []int64) (map[int64][]Item, error)
	ListByUser(ctx context.Context, userID int64) ([]*Order, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error

	ListStoredTotals(ctx context.Context) ([]StoredTotals, error)
	UpdateTotals(ctx context.Context, id int64, t Totals) error
	CountByStatus(ctx context.Context) ([]StatusCount, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `
	id, user_id, status, subtotal, discount_amount, tax, total_amount, voucher_code,
	shipping_address, phone, full_name, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var (
		o       Order
		voucher sql.NullString
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.Status, &o.Subtotal, &o.DiscountAmount, &o.Tax, &o.TotalAmount, &voucher,
		&o.ShippingAddress, &o.Phone, &o.FullName, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if voucher.Valid {
		o.VoucherCode = &voucher.String
	}
	o.OrderNumber = OrderNumber(o.ID)
	return &o, nil
}

func (r *repository) InsertOrder(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "InsertOrder"),
		zap.Int64("user_id", o.UserID),
	)

	var voucher any
	if o.VoucherCode != nil {
		voucher = *o.VoucherCode
	}

	err := db.Conn(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO orders (
			user_id, status, subtotal, discount_amount, tax, total_amount, voucher_code,
			shipping_address, phone, full_name, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`,
		o.UserID, o.Status, o.Subtotal, o.DiscountAmount, o.Tax, o.TotalAmount, voucher,
		o.ShippingAddress, o.Phone, o.FullName, o.Notes,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return db.Wrap(err, "insert order")
	}

	o.OrderNumber = OrderNumber(o.ID)
	return nil
}

func (r *repository) InsertItems(ctx context.Context, orderID int64, items []Item) error {
	conn := db.Conn(ctx, r.db)
	for i := range items {
		err := conn.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`,
			orderID, items[i].ProductID, items[i].ProductName, items[i].Quantity,
			items[i].UnitPrice, items[i].TotalPrice,
		).Scan(&items[i].ID)
		if err != nil {
			logger.FromCtx(ctx).Error("failed to insert order item",
				zap.String("layer", "repository"),
				zap.Int64("order_id", orderID),
				zap.Int64("product_id", items[i].ProductID),
				zap.Error(err),
			)
			return db.Wrap(err, "insert order item")
		}
		items[i].OrderID = orderID
	}
	return nil
}

func (r *repository) GetOrder(ctx context.Context, id int64) (*Order, error) {
	row := db.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT`+orderColumns+` FROM orders WHERE id = $1`, id)
	return r.one(ctx, row, id, "get order")
}

func (r *repository) LockOrder(ctx context.Context, id int64) (*Order, error) {
	row := db.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT`+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	return r.one(ctx, row, id, "lock order")
}

func (r *repository) one(ctx context.Context, row *sql.Row, id int64, op string) (*Order, error) {
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to load order",
			zap.String("layer", "repository"),
			zap.String("op", op),
			zap.Int64("order_id", id),
			zap.Error(err),
		)
		return nil, db.Wrap(err, op)
	}
	return o, nil
}

func (r *repository) ListItems(ctx context.Context, orderIDs []int64) (map[int64][]Item, error) {
	out := make(map[int64][]Item, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}

	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price, total_price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, id
	`, pq.Array(orderIDs))
	if err != nil {
		logger.FromCtx(ctx).Error("failed to list order items",
			zap.String("layer", "repository"),
			zap.Error(err),
		)
		return nil, db.Wrap(err, "list order items")
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, db.Wrap(err, "scan order item")
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Wrap(err, "iterate order items")
	}
	return out, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int64) ([]*Order, error) {
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT`+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to list orders",
			zap.String("layer", "repository"),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return nil, db.Wrap(err, "list orders")
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, db.Wrap(err, "scan order")
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Wrap(err, "iterate orders")
	}
	return out, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to update order status",
			zap.String("layer", "repository"),
			zap.Int64("order_id", id),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return db.Wrap(err, "update order status")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *repository) ListStoredTotals(ctx context.Context) ([]StoredTotals, error) {
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT o.id, o.subtotal, o.discount_amount, o.tax, o.total_amount,
		       COALESCE(SUM(oi.total_price), 0)
		FROM orders o
		LEFT JOIN order_items oi ON oi.order_id = o.id
		GROUP BY o.id
		ORDER BY o.id
	`)
	if err != nil {
		return nil, db.Wrap(err, "list stored totals")
	}
	defer rows.Close()

	var out []StoredTotals
	for rows.Next() {
		var st StoredTotals
		if err := rows.Scan(&st.OrderID, &st.Stored.Subtotal, &st.Stored.Discount,
			&st.Stored.Tax, &st.Stored.Total, &st.ItemsSubtotal); err != nil {
			return nil, db.Wrap(err, "scan stored totals")
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Wrap(err, "iterate stored totals")
	}
	return out, nil
}

func (r *repository) UpdateTotals(ctx context.Context, id int64, t Totals) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE orders
		SET subtotal = $2, discount_amount = $3, tax = $4, total_amount = $5, updated_at = NOW()
		WHERE id = $1
	`, id, t.Subtotal, t.Discount, t.Tax, t.Total)
	if err != nil {
		return db.Wrap(err, "update order totals")
	}
	return nil
}

func (r *repository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM orders
		GROUP BY status
	`)
	if err != nil {
		return nil, db.Wrap(err, "count orders by status")
	}
	defer rows.Close()

	var out []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count, &sc.Amount); err != nil {
			return nil, db.Wrap(err, "scan status count")
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Wrap(err, "iterate status counts")
	}
	return out, nil
}
