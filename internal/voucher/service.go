package voucher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-be/internal/db"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service interface {
	// Validate previews a voucher against orderAmount without mutating state.
	Validate(ctx context.Context, userID int64, code string, orderAmount decimal.Decimal) (*Validation, error)
	// Redeem records a use of the voucher. It joins the transaction bound to
	// ctx, so a failure later in that transaction undoes the redemption.
	Redeem(ctx context.Context, userID int64, code string, subtotal decimal.Decimal) (*Redemption, error)
	Apply(ctx context.Context, userID int64, code string, orderAmount decimal.Decimal, orderID *int64) (*Redemption, error)
	AttachOrder(ctx context.Context, redemptionID, orderID int64) error

	Create(ctx context.Context, in VoucherInput) (*Voucher, error)
	Update(ctx context.Context, id int64, in VoucherInput) (*Voucher, error)
	Deactivate(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*Voucher, error)
	ListAll(ctx context.Context) ([]*Voucher, error)
	ListActive(ctx context.Context) ([]*ActiveVoucher, error)
	History(ctx context.Context, userID int64) ([]*HistoryEntry, error)
}

type service struct {
	repo     Repository
	tx       db.Transactor
	validate *validator.Validate
	now      func() time.Time
}

func NewService(repo Repository, tx db.Transactor) Service {
	return &service{
		repo:     repo,
		tx:       tx,
		validate: validator.New(),
		now:      time.Now,
	}
}

// evaluate runs the full predicate: existence, voucher terms, then the
// per-user redemption check.
func (s *service) evaluate(
	ctx context.Context,
	userID int64,
	code string,
	amount decimal.Decimal,
	lock bool,
) (*Voucher, decimal.Decimal, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, decimal.Zero, ErrInvalidVoucherCode
	}

	find := s.repo.FindByCode
	if lock {
		find = s.repo.FindByCodeForUpdate
	}

	v, err := find(ctx, code)
	if errors.Is(err, ErrVoucherNotFound) {
		return nil, decimal.Zero, ErrInvalidVoucherCode
	}
	if err != nil {
		return nil, decimal.Zero, err
	}

	if err := checkTerms(v, amount, s.now()); err != nil {
		return v, decimal.Zero, err
	}

	used, err := s.repo.HasRedeemed(ctx, userID, v.ID)
	if err != nil {
		return v, decimal.Zero, err
	}
	if used {
		return v, decimal.Zero, ErrVoucherAlreadyUsedByUser
	}

	return v, CalculateDiscount(v, amount), nil
}

func (s *service) Validate(
	ctx context.Context,
	userID int64,
	code string,
	orderAmount decimal.Decimal,
) (*Validation, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Validate"),
		zap.Int64("user_id", userID),
		zap.String("code", NormalizeCode(code)),
	)

	if !orderAmount.IsPositive() {
		return nil, fmt.Errorf("%w: order amount must be greater than 0", ErrInvalidInput)
	}

	v, discount, err := s.evaluate(ctx, userID, code, orderAmount, false)
	if err != nil {
		log.Warn("voucher rejected", zap.Error(err))
		return nil, err
	}

	log.Debug("voucher valid", zap.String("discount", discount.String()))

	return &Validation{
		VoucherID:      v.ID,
		Code:           v.Code,
		DiscountType:   v.DiscountType,
		DiscountValue:  v.DiscountValue,
		DiscountAmount: discount,
		FinalAmount:    orderAmount.Sub(discount),
	}, nil
}

func (s *service) Redeem(
	ctx context.Context,
	userID int64,
	code string,
	subtotal decimal.Decimal,
) (*Redemption, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Redeem"),
		zap.Int64("user_id", userID),
		zap.String("code", NormalizeCode(code)),
	)

	var rd *Redemption
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		v, discount, err := s.evaluate(ctx, userID, code, subtotal, true)
		if err != nil {
			return err
		}

		ok, err := s.repo.IncrementUsage(ctx, v.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrVoucherExhausted
		}

		rd = &Redemption{
			UserID:    userID,
			VoucherID: v.ID,
			UsedAt:    s.now().UTC(),
			Code:      v.Code,
			Discount:  discount,
		}
		return s.repo.InsertRedemption(ctx, rd)
	})
	if err != nil {
		log.Warn("voucher redemption failed", zap.Error(err))
		return nil, err
	}

	log.Info("voucher redeemed",
		zap.Int64("redemption_id", rd.ID),
		zap.String("discount", rd.Discount.String()),
	)
	return rd, nil
}

func (s *service) Apply(
	ctx context.Context,
	userID int64,
	code string,
	orderAmount decimal.Decimal,
	orderID *int64,
) (*Redemption, error) {
	if !orderAmount.IsPositive() {
		return nil, fmt.Errorf("%w: order amount must be greater than 0", ErrInvalidInput)
	}

	var rd *Redemption
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		rd, err = s.Redeem(ctx, userID, code, orderAmount)
		if err != nil {
			return err
		}
		if orderID != nil {
			rd.OrderID = orderID
			return s.repo.AttachOrder(ctx, rd.ID, *orderID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.VouchersRedeemed.Inc()
	return rd, nil
}

func (s *service) AttachOrder(ctx context.Context, redemptionID, orderID int64) error {
	return s.repo.AttachOrder(ctx, redemptionID, orderID)
}

func (s *service) checkInput(in *VoucherInput) error {
	in.Code = NormalizeCode(in.Code)

	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !in.DiscountValue.IsPositive() {
		return fmt.Errorf("%w: discount value must be greater than 0", ErrInvalidInput)
	}
	if in.DiscountType == DiscountPercentage && in.DiscountValue.GreaterThan(hundred) {
		return fmt.Errorf("%w: percentage discount cannot exceed 100", ErrInvalidInput)
	}
	if in.MaxDiscount.Valid && !in.MaxDiscount.Decimal.IsPositive() {
		return fmt.Errorf("%w: max discount must be greater than 0", ErrInvalidInput)
	}
	if in.MinOrderValue.Valid && !in.MinOrderValue.Decimal.IsPositive() {
		return fmt.Errorf("%w: min order value must be greater than 0", ErrInvalidInput)
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return fmt.Errorf("%w: end date is before start date", ErrInvalidInput)
	}
	return nil
}

func (in *VoucherInput) applyTo(v *Voucher) {
	v.Code = in.Code
	v.DiscountType = in.DiscountType
	v.DiscountValue = in.DiscountValue
	v.MaxDiscount = in.MaxDiscount
	v.MinOrderValue = in.MinOrderValue
	v.StartDate = in.StartDate
	v.EndDate = in.EndDate
	v.UsageLimit = in.UsageLimit
	if in.IsActive != nil {
		v.IsActive = *in.IsActive
	}
}

func (s *service) Create(ctx context.Context, in VoucherInput) (*Voucher, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Create"),
	)

	if err := s.checkInput(&in); err != nil {
		log.Warn("invalid voucher input", zap.Error(err))
		return nil, err
	}

	exists, err := s.repo.CodeExists(ctx, in.Code, 0)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrVoucherCodeExists
	}

	v := &Voucher{IsActive: true}
	in.applyTo(v)

	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}

	log.Info("voucher created", zap.Int64("voucher_id", v.ID), zap.String("code", v.Code))
	return v, nil
}

func (s *service) Update(ctx context.Context, id int64, in VoucherInput) (*Voucher, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Update"),
		zap.Int64("voucher_id", id),
	)

	if err := s.checkInput(&in); err != nil {
		log.Warn("invalid voucher input", zap.Error(err))
		return nil, err
	}

	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.UsageLimit != nil && *in.UsageLimit < v.UsedCount {
		log.Warn("usage limit below recorded uses",
			zap.Int("usage_limit", *in.UsageLimit),
			zap.Int("used_count", v.UsedCount),
		)
		return nil, fmt.Errorf("%w: usage limit %d is below the %d recorded uses",
			ErrInvalidInput, *in.UsageLimit, v.UsedCount)
	}

	if in.Code != v.Code {
		exists, err := s.repo.CodeExists(ctx, in.Code, id)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrVoucherCodeExists
		}
	}

	in.applyTo(v)
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}

	log.Info("voucher updated")
	return v, nil
}

// Deactivate is the only delete: redemption history keeps pointing at the row.
func (s *service) Deactivate(ctx context.Context, id int64) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	logger.FromCtx(ctx).Info("voucher deactivated",
		zap.String("layer", "service"),
		zap.Int64("voucher_id", id),
	)
	return nil
}

func (s *service) Get(ctx context.Context, id int64) (*Voucher, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListAll(ctx context.Context) ([]*Voucher, error) {
	return s.repo.ListAll(ctx)
}

func (s *service) ListActive(ctx context.Context) ([]*ActiveVoucher, error) {
	vs, err := s.repo.ListActive(ctx, dateOf(s.now()))
	if err != nil {
		return nil, err
	}

	out := make([]*ActiveVoucher, 0, len(vs))
	for _, v := range vs {
		out = append(out, &ActiveVoucher{Voucher: *v, RemainingUses: v.RemainingUses()})
	}
	return out, nil
}

func (s *service) History(ctx context.Context, userID int64) ([]*HistoryEntry, error) {
	return s.repo.ListRedemptions(ctx, userID)
}
