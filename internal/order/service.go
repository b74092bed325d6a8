package order

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"storefront-be/internal/db"
	"storefront-be/internal/inventory"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/voucher"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Events is told about lifecycle changes once the owning transaction has
// committed. Implementations must not block the caller.
type Events interface {
	OrderCreated(ctx context.Context, o *Order)
	StatusChanged(ctx context.Context, o *Order, previous Status)
	OrderCancelled(ctx context.Context, o *Order, reason string)
}

type VoucherRedeemer interface {
	Redeem(ctx context.Context, userID int64, code string, subtotal decimal.Decimal) (*voucher.Redemption, error)
	AttachOrder(ctx context.Context, redemptionID, orderID int64) error
}

type Service interface {
	CreateOrder(ctx context.Context, userID int64, in CreateOrderInput) (*CreateOrderResult, error)
	GetOrder(ctx context.Context, orderID, userID int64, isAdmin bool) (*Order, error)
	ListOrders(ctx context.Context, userID int64) ([]*Order, error)
	CanObserve(ctx context.Context, orderID, userID int64, isAdmin bool) (bool, error)

	TransitionStatus(ctx context.Context, orderID int64, newStatus string) (*Order, error)
	CancelOrder(ctx context.Context, orderID, userID int64, reason string) (*Order, error)
	RecalculateOrderTotals(ctx context.Context) (*RecalcSummary, error)
	Statistics(ctx context.Context) (*Statistics, error)

	PaymentStatus(ctx context.Context, orderID, userID int64, isAdmin bool) (*PaymentInfo, error)
	MarkPaid(ctx context.Context, orderID int64) (*Order, error)
	MarkPaymentFailed(ctx context.Context, orderID int64) error
}

type service struct {
	repo     Repository
	stock    inventory.Repository
	vouchers VoucherRedeemer
	tx       db.Transactor
	events   Events
	validate *validator.Validate
}

func NewService(
	repo Repository,
	stock inventory.Repository,
	vouchers VoucherRedeemer,
	tx db.Transactor,
	events Events,
) Service {
	return &service{
		repo:     repo,
		stock:    stock,
		vouchers: vouchers,
		tx:       tx,
		events:   events,
		validate: validator.New(),
	}
}

func (s *service) CreateOrder(ctx context.Context, userID int64, in CreateOrderInput) (*CreateOrderResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateOrder"),
		zap.Int64("user_id", userID),
		zap.Int("item_count", len(in.Items)),
	)

	if err := s.validate.Struct(in); err != nil {
		log.Warn("invalid order input", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	log.Info("create order started")

	var (
		o          *Order
		redemption *voucher.Redemption
	)

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		// Retries start from a clean slate.
		o, redemption = nil, nil

		ids := make([]int64, 0, len(in.Items))
		for _, it := range in.Items {
			ids = append(ids, it.ProductID)
		}

		products, err := s.stock.LockProducts(ctx, ids)
		if err != nil {
			return err
		}

		// Every item is checked before anything is written.
		remaining := make(map[int64]int, len(products))
		for id, p := range products {
			remaining[id] = p.Stock
		}

		items := make([]Item, 0, len(in.Items))
		subtotal := decimal.Zero
		for _, it := range in.Items {
			p, ok := products[it.ProductID]
			if !ok {
				return fmt.Errorf("%w: %d", inventory.ErrProductNotFound, it.ProductID)
			}
			if it.Quantity > remaining[p.ID] {
				return &inventory.StockError{
					ProductID: p.ID,
					Requested: it.Quantity,
					Available: remaining[p.ID],
				}
			}
			remaining[p.ID] -= it.Quantity

			line := LineTotal(p.Price, it.Quantity)
			subtotal = subtotal.Add(line)
			items = append(items, Item{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    it.Quantity,
				UnitPrice:   p.Price,
				TotalPrice:  line,
			})
		}

		discount := decimal.Zero
		var code *string
		if in.VoucherCode != "" {
			redemption, err = s.vouchers.Redeem(ctx, userID, in.VoucherCode, subtotal)
			if err != nil {
				return err
			}
			discount = redemption.Discount
			code = &redemption.Code
		}

		totals := ComputeTotals(subtotal, discount)
		o = &Order{
			UserID:          userID,
			Status:          StatusPending,
			Subtotal:        totals.Subtotal,
			DiscountAmount:  totals.Discount,
			Tax:             totals.Tax,
			TotalAmount:     totals.Total,
			VoucherCode:     code,
			ShippingAddress: in.ShippingAddress,
			Phone:           in.Phone,
			FullName:        in.FullName,
			Notes:           in.Notes,
		}
		if err := s.repo.InsertOrder(ctx, o); err != nil {
			return err
		}
		if err := s.repo.InsertItems(ctx, o.ID, items); err != nil {
			return err
		}
		o.Items = items

		qty := quantities(items)
		for _, pid := range sortedIDs(qty) {
			if err := s.stock.AdjustStock(ctx, pid, -qty[pid], qty[pid]); err != nil {
				return err
			}
		}

		if redemption != nil {
			return s.vouchers.AttachOrder(ctx, redemption.ID, o.ID)
		}
		return nil
	})
	if err != nil {
		log.Warn("create order failed", zap.Error(err))
		return nil, err
	}

	metrics.OrdersCreated.Inc()
	if redemption != nil {
		metrics.VouchersRedeemed.Inc()
	}

	log.Info("order created",
		zap.Int64("order_id", o.ID),
		zap.String("total", o.TotalAmount.String()),
	)

	s.events.OrderCreated(ctx, o)

	return &CreateOrderResult{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		Status:         o.Status,
		Subtotal:       o.Subtotal,
		DiscountAmount: o.DiscountAmount,
		Tax:            o.Tax,
		TotalAmount:    o.TotalAmount,
		VoucherCode:    o.VoucherCode,
		CreatedAt:      o.CreatedAt,
	}, nil
}

func (s *service) GetOrder(ctx context.Context, orderID, userID int64, isAdmin bool) (*Order, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && o.UserID != userID {
		return nil, ErrForbidden
	}

	items, err := s.repo.ListItems(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (s *service) ListOrders(ctx context.Context, userID int64) ([]*Order, error) {
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	items, err := s.repo.ListItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		o.Items = items[o.ID]
	}
	return orders, nil
}

// CanObserve decides who may follow an order's notification channel.
func (s *service) CanObserve(ctx context.Context, orderID, userID int64, isAdmin bool) (bool, error) {
	if isAdmin {
		return true, nil
	}
	o, err := s.repo.GetOrder(ctx, orderID)
	if errors.Is(err, ErrOrderNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return o.UserID == userID, nil
}

func (s *service) TransitionStatus(ctx context.Context, orderID int64, newStatus string) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "TransitionStatus"),
		zap.Int64("order_id", orderID),
		zap.String("requested", newStatus),
	)

	next, err := ParseStatus(newStatus)
	if err != nil {
		log.Warn("unknown status requested")
		return nil, err
	}

	o, previous, err := s.transition(ctx, orderID, next)
	if err != nil {
		log.Warn("status transition rejected", zap.Error(err))
		return nil, err
	}

	log.Info("order status changed",
		zap.String("from", string(previous)),
		zap.String("to", string(next)),
	)

	s.events.StatusChanged(ctx, o, previous)
	return o, nil
}

// transition runs the locked read-validate-write for one order. Moving to
// Cancelled puts the items back into stock.
func (s *service) transition(ctx context.Context, orderID int64, next Status) (*Order, Status, error) {
	var (
		o        *Order
		previous Status
	)

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.repo.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if !CanTransition(o.Status, next) {
			return &TransitionError{Current: o.Status, Requested: next}
		}

		if next == StatusCancelled {
			if err := s.restoreStock(ctx, o.ID); err != nil {
				return err
			}
		}

		if err := s.repo.UpdateStatus(ctx, o.ID, next); err != nil {
			return err
		}
		previous = o.Status
		o.Status = next
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	if next == StatusCancelled {
		metrics.OrdersCancelled.Inc()
	}
	return o, previous, nil
}

func (s *service) CancelOrder(ctx context.Context, orderID, userID int64, reason string) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CancelOrder"),
		zap.Int64("order_id", orderID),
		zap.Int64("user_id", userID),
	)

	var o *Order
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.repo.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return ErrForbidden
		}
		if !o.Status.Cancellable() {
			return &CannotCancelError{Current: o.Status}
		}

		if err := s.restoreStock(ctx, o.ID); err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(ctx, o.ID, StatusCancelled); err != nil {
			return err
		}
		o.Status = StatusCancelled
		return nil
	})
	if err != nil {
		log.Warn("cancel order rejected", zap.Error(err))
		return nil, err
	}

	metrics.OrdersCancelled.Inc()
	log.Info("order cancelled")

	s.events.OrderCancelled(ctx, o, reason)
	return o, nil
}

func (s *service) restoreStock(ctx context.Context, orderID int64) error {
	items, err := s.repo.ListItems(ctx, []int64{orderID})
	if err != nil {
		return err
	}

	qty := quantities(items[orderID])
	for _, pid := range sortedIDs(qty) {
		if err := s.stock.AdjustStock(ctx, pid, qty[pid], -qty[pid]); err != nil {
			return err
		}
	}
	return nil
}

// RecalculateOrderTotals rebuilds every order's money columns from its items,
// keeping the stored discount.
func (s *service) RecalculateOrderTotals(ctx context.Context) (*RecalcSummary, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "RecalculateOrderTotals"),
	)

	summary := &RecalcSummary{}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		*summary = RecalcSummary{}

		rows, err := s.repo.ListStoredTotals(ctx)
		if err != nil {
			return err
		}

		for _, row := range rows {
			summary.Scanned++
			fresh := ComputeTotals(row.ItemsSubtotal, row.Stored.Discount)
			if fresh.Equal(row.Stored) {
				continue
			}
			if err := s.repo.UpdateTotals(ctx, row.OrderID, fresh); err != nil {
				return err
			}
			summary.Updated++
		}
		return nil
	})
	if err != nil {
		log.Error("recalculation failed", zap.Error(err))
		return nil, err
	}

	log.Info("order totals recalculated",
		zap.Int("scanned", summary.Scanned),
		zap.Int("updated", summary.Updated),
	)
	return summary, nil
}

// Statistics leaves cancelled orders out of revenue and the average.
func (s *service) Statistics(ctx context.Context) (*Statistics, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Statistics{
		ByStatus:          make(map[Status]int, len(AllStatuses)),
		Revenue:           decimal.Zero,
		AverageOrderValue: decimal.Zero,
	}
	for _, st := range AllStatuses {
		stats.ByStatus[st] = 0
	}

	billable := 0
	for _, c := range counts {
		stats.TotalOrders += c.Count
		stats.ByStatus[c.Status] += c.Count
		if c.Status == StatusCancelled {
			continue
		}
		billable += c.Count
		stats.Revenue = stats.Revenue.Add(c.Amount)
	}

	if billable > 0 {
		stats.AverageOrderValue = stats.Revenue.Div(decimal.NewFromInt(int64(billable))).RoundBank(2)
	}
	return stats, nil
}

func (s *service) PaymentStatus(ctx context.Context, orderID, userID int64, isAdmin bool) (*PaymentInfo, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && o.UserID != userID {
		return nil, ErrForbidden
	}

	return &PaymentInfo{
		OrderID:     o.ID,
		TotalAmount: o.TotalAmount,
		Status:      o.Status,
		IsPaid:      o.Status.Paid(),
	}, nil
}

// MarkPaid moves a pending order to Processing. Orders already past Pending
// are returned unchanged so repeated callbacks are harmless. A payment for a
// cancelled order is returned together with ErrPaidAfterCancel because the
// money has to go back to the customer.
func (s *service) MarkPaid(ctx context.Context, orderID int64) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "MarkPaid"),
		zap.Int64("order_id", orderID),
	)

	o, previous, err := s.transition(ctx, orderID, StatusProcessing)
	var te *TransitionError
	if errors.As(err, &te) {
		current, getErr := s.repo.GetOrder(ctx, orderID)
		if getErr != nil {
			return nil, getErr
		}
		if te.Current == StatusCancelled {
			log.Warn("payment received for cancelled order")
			return current, ErrPaidAfterCancel
		}
		log.Info("payment callback ignored", zap.String("status", string(te.Current)))
		return current, nil
	}
	if err != nil {
		log.Error("failed to mark order paid", zap.Error(err))
		return nil, err
	}

	log.Info("order paid")
	s.events.StatusChanged(ctx, o, previous)
	return o, nil
}

// MarkPaymentFailed leaves the order as it is so the customer can retry.
func (s *service) MarkPaymentFailed(ctx context.Context, orderID int64) error {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	logger.FromCtx(ctx).Warn("payment failed, order left unchanged",
		zap.String("layer", "service"),
		zap.Int64("order_id", o.ID),
		zap.String("status", string(o.Status)),
	)
	return nil
}

func quantities(items []Item) map[int64]int {
	qty := make(map[int64]int, len(items))
	for _, it := range items {
		qty[it.ProductID] += it.Quantity
	}
	return qty
}

func sortedIDs(m map[int64]int) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
