package order

import (
	"context"
	"fmt"
	"sort"
	"time"

	"storefront-be/internal/inventory"

	"github.com/shopspring/decimal"
)

// memStore backs both the order and the inventory repositories in tests.
type memStore struct {
	products map[int64]inventory.Product
	orders   map[int64]Order
	items    map[int64][]Item
	nextID   int64

	failUpdateStatus error
}

func newMemStore(products ...inventory.Product) *memStore {
	s := &memStore{
		products: map[int64]inventory.Product{},
		orders:   map[int64]Order{},
		items:    map[int64][]Item{},
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *memStore) clone() *memStore {
	c := newMemStore()
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.items {
		c.items[k] = append([]Item(nil), v...)
	}
	c.nextID = s.nextID
	return c
}

func (s *memStore) restore(c *memStore) {
	s.products, s.orders, s.items, s.nextID = c.products, c.orders, c.items, c.nextID
}

// snapshotTx undoes every store mutation made by a failed unit of work.
type snapshotTx struct {
	store *memStore
	calls int
}

func (t *snapshotTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	snap := t.store.clone()
	if err := fn(ctx); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

// inventory.Repository

func (s *memStore) LockProducts(ctx context.Context, ids []int64) (map[int64]*inventory.Product, error) {
	out := map[int64]*inventory.Product{}
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			cp := p
			out[id] = &cp
		}
	}
	return out, nil
}

func (s *memStore) GetProduct(ctx context.Context, id int64) (*inventory.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, inventory.ErrProductNotFound
	}
	return &p, nil
}

func (s *memStore) AdjustStock(ctx context.Context, id int64, stockDelta, soldDelta int) error {
	p, ok := s.products[id]
	if !ok {
		return inventory.ErrProductNotFound
	}
	if p.Stock+stockDelta < 0 {
		return fmt.Errorf("%w: product %d", inventory.ErrInsufficientStock, id)
	}
	p.Stock += stockDelta
	p.SoldCount += soldDelta
	if p.SoldCount < 0 {
		p.SoldCount = 0
	}
	s.products[id] = p
	return nil
}

// Repository

func (s *memStore) InsertOrder(ctx context.Context, o *Order) error {
	s.nextID++
	o.ID = s.nextID
	o.OrderNumber = OrderNumber(o.ID)
	o.CreatedAt = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	o.UpdatedAt = o.CreatedAt
	cp := *o
	cp.Items = nil
	s.orders[o.ID] = cp
	return nil
}

func (s *memStore) InsertItems(ctx context.Context, orderID int64, items []Item) error {
	for i := range items {
		items[i].ID = int64(i + 1)
		items[i].OrderID = orderID
	}
	s.items[orderID] = append([]Item(nil), items...)
	return nil
}

func (s *memStore) GetOrder(ctx context.Context, id int64) (*Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &o, nil
}

func (s *memStore) LockOrder(ctx context.Context, id int64) (*Order, error) {
	return s.GetOrder(ctx, id)
}

func (s *memStore) ListItems(ctx context.Context, orderIDs []int64) (map[int64][]Item, error) {
	out := map[int64][]Item{}
	for _, id := range orderIDs {
		if its, ok := s.items[id]; ok {
			out[id] = append([]Item(nil), its...)
		}
	}
	return out, nil
}

func (s *memStore) ListByUser(ctx context.Context, userID int64) ([]*Order, error) {
	var out []*Order
	for _, o := range s.orders {
		if o.UserID == userID {
			cp := o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memStore) UpdateStatus(ctx context.Context, id int64, status Status) error {
	if s.failUpdateStatus != nil {
		return s.failUpdateStatus
	}
	o, ok := s.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = status
	s.orders[id] = o
	return nil
}

func (s *memStore) ListStoredTotals(ctx context.Context) ([]StoredTotals, error) {
	var out []StoredTotals
	for id, o := range s.orders {
		sum := decimal.Zero
		for _, it := range s.items[id] {
			sum = sum.Add(it.TotalPrice)
		}
		out = append(out, StoredTotals{
			OrderID:       id,
			ItemsSubtotal: sum,
			Stored: Totals{
				Subtotal: o.Subtotal,
				Discount: o.DiscountAmount,
				Tax:      o.Tax,
				Total:    o.TotalAmount,
			},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out, nil
}

func (s *memStore) UpdateTotals(ctx context.Context, id int64, t Totals) error {
	o := s.orders[id]
	o.Subtotal, o.DiscountAmount, o.Tax, o.TotalAmount = t.Subtotal, t.Discount, t.Tax, t.Total
	s.orders[id] = o
	return nil
}

func (s *memStore) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	byStatus := map[Status]*StatusCount{}
	for _, o := range s.orders {
		sc, ok := byStatus[o.Status]
		if !ok {
			sc = &StatusCount{Status: o.Status, Amount: decimal.Zero}
			byStatus[o.Status] = sc
		}
		sc.Count++
		sc.Amount = sc.Amount.Add(o.TotalAmount)
	}
	var out []StatusCount
	for _, sc := range byStatus {
		out = append(out, *sc)
	}
	return out, nil
}
