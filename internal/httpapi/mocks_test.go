package httpapi

import (
	"context"

	"storefront-be/internal/order"
	"storefront-be/internal/voucher"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, userID int64, in order.CreateOrderInput) (*order.CreateOrderResult, error) {
	args := m.Called(ctx, userID, in)
	res, _ := args.Get(0).(*order.CreateOrderResult)
	return res, args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, orderID, userID int64, isAdmin bool) (*order.Order, error) {
	args := m.Called(ctx, orderID, userID, isAdmin)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, userID int64) ([]*order.Order, error) {
	args := m.Called(ctx, userID)
	orders, _ := args.Get(0).([]*order.Order)
	return orders, args.Error(1)
}

func (m *MockOrderService) CanObserve(ctx context.Context, orderID, userID int64, isAdmin bool) (bool, error) {
	args := m.Called(ctx, orderID, userID, isAdmin)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderService) TransitionStatus(ctx context.Context, orderID int64, newStatus string) (*order.Order, error) {
	args := m.Called(ctx, orderID, newStatus)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

func (m *MockOrderService) CancelOrder(ctx context.Context, orderID, userID int64, reason string) (*order.Order, error) {
	args := m.Called(ctx, orderID, userID, reason)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

func (m *MockOrderService) RecalculateOrderTotals(ctx context.Context) (*order.RecalcSummary, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*order.RecalcSummary)
	return s, args.Error(1)
}

func (m *MockOrderService) Statistics(ctx context.Context) (*order.Statistics, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*order.Statistics)
	return s, args.Error(1)
}

func (m *MockOrderService) PaymentStatus(ctx context.Context, orderID, userID int64, isAdmin bool) (*order.PaymentInfo, error) {
	args := m.Called(ctx, orderID, userID, isAdmin)
	p, _ := args.Get(0).(*order.PaymentInfo)
	return p, args.Error(1)
}

func (m *MockOrderService) MarkPaid(ctx context.Context, orderID int64) (*order.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

func (m *MockOrderService) MarkPaymentFailed(ctx context.Context, orderID int64) error {
	return m.Called(ctx, orderID).Error(0)
}

type MockVoucherService struct {
	mock.Mock
}

func (m *MockVoucherService) Validate(ctx context.Context, userID int64, code string, amount decimal.Decimal) (*voucher.Validation, error) {
	args := m.Called(ctx, userID, code, amount)
	v, _ := args.Get(0).(*voucher.Validation)
	return v, args.Error(1)
}

func (m *MockVoucherService) Redeem(ctx context.Context, userID int64, code string, subtotal decimal.Decimal) (*voucher.Redemption, error) {
	args := m.Called(ctx, userID, code, subtotal)
	r, _ := args.Get(0).(*voucher.Redemption)
	return r, args.Error(1)
}

func (m *MockVoucherService) Apply(ctx context.Context, userID int64, code string, amount decimal.Decimal, orderID *int64) (*voucher.Redemption, error) {
	args := m.Called(ctx, userID, code, amount, orderID)
	r, _ := args.Get(0).(*voucher.Redemption)
	return r, args.Error(1)
}

func (m *MockVoucherService) AttachOrder(ctx context.Context, redemptionID, orderID int64) error {
	return m.Called(ctx, redemptionID, orderID).Error(0)
}

func (m *MockVoucherService) Create(ctx context.Context, in voucher.VoucherInput) (*voucher.Voucher, error) {
	args := m.Called(ctx, in)
	v, _ := args.Get(0).(*voucher.Voucher)
	return v, args.Error(1)
}

func (m *MockVoucherService) Update(ctx context.Context, id int64, in voucher.VoucherInput) (*voucher.Voucher, error) {
	args := m.Called(ctx, id, in)
	v, _ := args.Get(0).(*voucher.Voucher)
	return v, args.Error(1)
}

func (m *MockVoucherService) Deactivate(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockVoucherService) Get(ctx context.Context, id int64) (*voucher.Voucher, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*voucher.Voucher)
	return v, args.Error(1)
}

func (m *MockVoucherService) ListAll(ctx context.Context) ([]*voucher.Voucher, error) {
	args := m.Called(ctx)
	v, _ := args.Get(0).([]*voucher.Voucher)
	return v, args.Error(1)
}

func (m *MockVoucherService) ListActive(ctx context.Context) ([]*voucher.ActiveVoucher, error) {
	args := m.Called(ctx)
	v, _ := args.Get(0).([]*voucher.ActiveVoucher)
	return v, args.Error(1)
}

func (m *MockVoucherService) History(ctx context.Context, userID int64) ([]*voucher.HistoryEntry, error) {
	args := m.Called(ctx, userID)
	h, _ := args.Get(0).([]*voucher.HistoryEntry)
	return h, args.Error(1)
}

var (
	_ order.Service   = (*MockOrderService)(nil)
	_ voucher.Service = (*MockVoucherService)(nil)
)
