package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"storefront-be/internal/db"
	"storefront-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	// LockProducts row-locks the given products for the rest of the
	// transaction. Unknown ids are absent from the result.
	LockProducts(ctx context.Context, ids []int64) (map[int64]*Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	AdjustStock(ctx context.Context, id int64, stockDelta, soldDelta int) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) LockProducts(ctx context.Context, ids []int64) (map[int64]*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "LockProducts"),
		zap.Int("product_count", len(ids)),
	)

	ordered := uniqueSorted(ids)
	if len(ordered) == 0 {
		return map[int64]*Product{}, nil
	}

	// ORDER BY id keeps lock acquisition order stable across transactions.
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, name, price, stock, sold_count
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, pq.Array(ordered))
	if err != nil {
		log.Error("failed to lock products", zap.Error(err))
		return nil, db.Wrap(err, "lock products")
	}
	defer rows.Close()

	out := make(map[int64]*Product, len(ordered))
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.SoldCount); err != nil {
			log.Error("failed to scan product", zap.Error(err))
			return nil, db.Wrap(err, "scan product")
		}
		out[p.ID] = &p
	}
	if err := rows.Err(); err != nil {
		log.Error("rows iteration error", zap.Error(err))
		return nil, db.Wrap(err, "iterate products")
	}

	log.Debug("products locked", zap.Int("found", len(out)))
	return out, nil
}

func (r *repository) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := db.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, name, price, stock, sold_count
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.SoldCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to get product",
			zap.String("layer", "repository"),
			zap.Int64("product_id", id),
			zap.Error(err),
		)
		return nil, db.Wrap(err, "get product")
	}
	return &p, nil
}

// AdjustStock applies both deltas in one guarded statement. A stock delta that
// would take stock below zero affects no row and yields ErrInsufficientStock.
func (r *repository) AdjustStock(ctx context.Context, id int64, stockDelta, soldDelta int) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "AdjustStock"),
		zap.Int64("product_id", id),
		zap.Int("stock_delta", stockDelta),
		zap.Int("sold_delta", soldDelta),
	)

	res, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $2,
		    sold_count = GREATEST(sold_count + $3, 0),
		    updated_at = NOW()
		WHERE id = $1 AND stock + $2 >= 0
	`, id, stockDelta, soldDelta)
	if err != nil {
		if db.IsCheckViolation(err) {
			log.Warn("stock check constraint rejected update")
			return fmt.Errorf("%w: product %d", ErrInsufficientStock, id)
		}
		log.Error("failed to adjust stock", zap.Error(err))
		return db.Wrap(err, "adjust stock")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return db.Wrap(err, "adjust stock rows affected")
	}
	if affected == 0 {
		if _, err := r.GetProduct(ctx, id); err != nil {
			return err
		}
		log.Warn("stock guard rejected update")
		return fmt.Errorf("%w: product %d", ErrInsufficientStock, id)
	}

	return nil
}

func uniqueSorted(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
