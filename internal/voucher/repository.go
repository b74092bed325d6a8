package voucher

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"storefront-be/internal/db"
	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, v *Voucher) error
	Update(ctx context.Context, v *Voucher) error
	Deactivate(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Voucher, error)
	FindByCode(ctx context.Context, code string) (*Voucher, error)
	FindByCodeForUpdate(ctx context.Context, code string) (*Voucher, error)
	CodeExists(ctx context.Context, code string, excludeID int64) (bool, error)
	ListAll(ctx context.Context) ([]*Voucher, error)
	ListActive(ctx context.Context, today time.Time) ([]*Voucher, error)

	HasRedeemed(ctx context.Context, userID, voucherID int64) (bool, error)
	InsertRedemption(ctx context.Context, r *Redemption) error
	IncrementUsage(ctx context.Context, voucherID int64) (bool, error)
	AttachOrder(ctx context.Context, redemptionID, orderID int64) error
	ListRedemptions(ctx context.Context, userID int64) ([]*HistoryEntry, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const voucherColumns = `
	id, code, discount_type, discount_value, max_discount, min_order_value,
	start_date, end_date, usage_limit, used_count, is_active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVoucher(row rowScanner) (*Voucher, error) {
	var (
		v          Voucher
		start, end sql.NullTime
		limit      sql.NullInt64
	)
	err := row.Scan(
		&v.ID, &v.Code, &v.DiscountType, &v.DiscountValue, &v.MaxDiscount, &v.MinOrderValue,
		&start, &end, &limit, &v.UsedCount, &v.IsActive, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if start.Valid {
		v.StartDate = &start.Time
	}
	if end.Valid {
		v.EndDate = &end.Time
	}
	if limit.Valid {
		n := int(limit.Int64)
		v.UsageLimit = &n
	}
	return &v, nil
}

func nullableInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func (r *repository) Create(ctx context.Context, v *Voucher) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Create"),
		zap.String("code", v.Code),
	)

	err := db.Conn(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO vouchers (
			code, discount_type, discount_value, max_discount, min_order_value,
			start_date, end_date, usage_limit, used_count, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9)
		RETURNING id, created_at
	`,
		v.Code, v.DiscountType, v.DiscountValue, v.MaxDiscount, v.MinOrderValue,
		nullableTime(v.StartDate), nullableTime(v.EndDate), nullableInt(v.UsageLimit), v.IsActive,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			log.Warn("duplicate voucher code")
			return ErrVoucherCodeExists
		}
		log.Error("failed to insert voucher", zap.Error(err))
		return db.Wrap(err, "insert voucher")
	}

	log.Info("voucher created", zap.Int64("voucher_id", v.ID))
	return nil
}

func (r *repository) Update(ctx context.Context, v *Voucher) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Update"),
		zap.Int64("voucher_id", v.ID),
	)

	res, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE vouchers
		SET code = $2,
		    discount_type = $3,
		    discount_value = $4,
		    max_discount = $5,
		    min_order_value = $6,
		    start_date = $7,
		    end_date = $8,
		    usage_limit = $9,
		    is_active = $10
		WHERE id = $1
	`,
		v.ID, v.Code, v.DiscountType, v.DiscountValue, v.MaxDiscount, v.MinOrderValue,
		nullableTime(v.StartDate), nullableTime(v.EndDate), nullableInt(v.UsageLimit), v.IsActive,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			log.Warn("duplicate voucher code", zap.String("code", v.Code))
			return ErrVoucherCodeExists
		}
		log.Error("failed to update voucher", zap.Error(err))
		return db.Wrap(err, "update voucher")
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVoucherNotFound
	}
	return nil
}

func (r *repository) Deactivate(ctx context.Context, id int64) error {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE vouchers SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to deactivate voucher",
			zap.String("layer", "repository"),
			zap.Int64("voucher_id", id),
			zap.Error(err),
		)
		return db.Wrap(err, "deactivate voucher")
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVoucherNotFound
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Voucher, error) {
	row := db.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT`+voucherColumns+` FROM vouchers WHERE id = $1`, id)
	return r.one(ctx, row, "get voucher")
}

func (r *repository) FindByCode(ctx context.Context, code string) (*Voucher, error) {
	row := db.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT`+voucherColumns+` FROM vouchers WHERE upper(code) = $1`, code)
	return r.one(ctx, row, "find voucher")
}

// FindByCodeForUpdate must run inside a transaction. The row lock serialises
// concurrent redemptions of the same voucher.
func (r *repository) FindByCodeForUpdate(ctx context.Context, code string) (*Voucher, error) {
	row := db.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT`+voucherColumns+` FROM vouchers WHERE upper(code) = $1 FOR UPDATE`, code)
	return r.one(ctx, row, "lock voucher")
}

func (r *repository) one(ctx context.Context, row *sql.Row, op string) (*Voucher, error) {
	v, err := scanVoucher(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVoucherNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to load voucher",
			zap.String("layer", "repository"),
			zap.String("op", op),
			zap.Error(err),
		)
		return nil, db.Wrap(err, op)
	}
	return v, nil
}

func (r *repository) CodeExists(ctx context.Context, code string, excludeID int64) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM vouchers WHERE upper(code) = $1 AND id <> $2
		)
	`, code, excludeID).Scan(&exists)
	if err != nil {
		return false, db.Wrap(err, "check voucher code")
	}
	return exists, nil
}

func (r *repository) ListAll(ctx context.Context) ([]*Voucher, error) {
	return r.list(ctx, "list vouchers",
		`SELECT`+voucherColumns+` FROM vouchers ORDER BY created_at DESC, id DESC`)
}

// ListActive compares calendar days in UTC, the same days checkTerms uses,
// whatever the session time zone is.
func (r *repository) ListActive(ctx context.Context, today time.Time) ([]*Voucher, error) {
	return r.list(ctx, "list active vouchers", `
		SELECT`+voucherColumns+`
		FROM vouchers
		WHERE is_active
		  AND (start_date IS NULL OR (start_date AT TIME ZONE 'UTC')::date <= $1::date)
		  AND (end_date IS NULL OR (end_date AT TIME ZONE 'UTC')::date >= $1::date)
		  AND (usage_limit IS NULL OR used_count < usage_limit)
		ORDER BY created_at DESC, id DESC
	`, today.UTC().Format(time.DateOnly))
}

func (r *repository) list(ctx context.Context, op, query string, args ...any) ([]*Voucher, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("op", op),
	)

	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query vouchers", zap.Error(err))
		return nil, db.Wrap(err, op)
	}
	defer rows.Close()

	var out []*Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			log.Error("failed to scan voucher", zap.Error(err))
			return nil, db.Wrap(err, op)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Wrap(err, op)
	}
	return out, nil
}

func (r *repository) HasRedeemed(ctx context.Context, userID, voucherID int64) (bool, error) {
	var used bool
	err := db.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_vouchers
			WHERE user_id = $1 AND voucher_id = $2 AND used_at IS NOT NULL
		)
	`, userID, voucherID).Scan(&used)
	if err != nil {
		return false, db.Wrap(err, "check redemption")
	}
	return used, nil
}

// InsertRedemption relies on the partial unique index over used rows; a
// concurrent duplicate surfaces as ErrVoucherAlreadyUsedByUser.
func (r *repository) InsertRedemption(ctx context.Context, rd *Redemption) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "InsertRedemption"),
		zap.Int64("user_id", rd.UserID),
		zap.Int64("voucher_id", rd.VoucherID),
	)

	var orderID any
	if rd.OrderID != nil {
		orderID = *rd.OrderID
	}

	err := db.Conn(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO user_vouchers (user_id, voucher_id, order_id, used_at, discount_amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, rd.UserID, rd.VoucherID, orderID, rd.UsedAt, rd.Discount).Scan(&rd.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			log.Warn("redemption already recorded")
			return ErrVoucherAlreadyUsedByUser
		}
		log.Error("failed to insert redemption", zap.Error(err))
		return db.Wrap(err, "insert redemption")
	}
	return nil
}

// IncrementUsage reports false when the usage limit was reached in between.
func (r *repository) IncrementUsage(ctx context.Context, voucherID int64) (bool, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE vouchers
		SET used_count = used_count + 1
		WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)
	`, voucherID)
	if err != nil {
		return false, db.Wrap(err, "increment voucher usage")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, db.Wrap(err, "increment voucher usage rows affected")
	}
	return n == 1, nil
}

func (r *repository) AttachOrder(ctx context.Context, redemptionID, orderID int64) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE user_vouchers SET order_id = $2 WHERE id = $1`, redemptionID, orderID)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrOrderReferenceNotFound
		}
		return db.Wrap(err, "attach order to redemption")
	}
	return nil
}

func (r *repository) ListRedemptions(ctx context.Context, userID int64) ([]*HistoryEntry, error) {
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT uv.id, uv.used_at, uv.order_id, v.code, v.discount_type, v.discount_value
		FROM user_vouchers uv
		JOIN vouchers v ON v.id = uv.voucher_id
		WHERE uv.user_id = $1
		ORDER BY uv.used_at DESC NULLS LAST, uv.id DESC
	`, userID)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to list redemptions",
			zap.String("layer", "repository"),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return nil, db.Wrap(err, "list redemptions")
	}
	defer rows.Close()

	var out []*HistoryEntry
	for rows.Next() {
		var (
			h       HistoryEntry
			usedAt  sql.NullTime
			orderID sql.NullInt64
		)
		if err := rows.Scan(&h.RedemptionID, &usedAt, &orderID, &h.Code, &h.DiscountType, &h.DiscountValue); err != nil {
			return nil, db.Wrap(err, "scan redemption")
		}
		if usedAt.Valid {
			h.UsedAt = &usedAt.Time
		}
		if orderID.Valid {
			h.OrderID = &orderID.Int64
		}
		out = append(out, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Wrap(err, "iterate redemptions")
	}
	return out, nil
}
