package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
	"github.com/RoyceAzure/lab/checkout/internal/infra/repository/db"
)

// memState 記憶體版資料庫, 交易以複製整份狀態實作
type memState struct {
	products map[uint]model.Product
	colors   map[uint]bool
	sizes    map[uint]bool
	orders   map[string]model.Order
	items    []model.OrderItem
	payments []model.Payment
	logs     []model.PaymentLog
	points   []model.PointLedgerEntry
	carts    []model.CartItem
	nextID   uint
}

func newMemState() *memState {
	return &memState{
		products: map[uint]model.Product{},
		colors:   map[uint]bool{},
		sizes:    map[uint]bool{},
		orders:   map[string]model.Order{},
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		products: make(map[uint]model.Product, len(s.products)),
		colors:   make(map[uint]bool, len(s.colors)),
		sizes:    make(map[uint]bool, len(s.sizes)),
		orders:   make(map[string]model.Order, len(s.orders)),
		items:    append([]model.OrderItem(nil), s.items...),
		payments: append([]model.Payment(nil), s.payments...),
		logs:     append([]model.PaymentLog(nil), s.logs...),
		points:   append([]model.PointLedgerEntry(nil), s.points...),
		carts:    append([]model.CartItem(nil), s.carts...),
		nextID:   s.nextID,
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.colors {
		c.colors[k] = v
	}
	for k, v := range s.sizes {
		c.sizes[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	return c
}

func (s *memState) id() uint {
	s.nextID++
	return s.nextID
}

type memFaults struct {
	cartDelete error
	// 模擬另一個交易剛好先寫入同一個payment key
	hidePaymentLookup bool
}

type memDB struct {
	mu sync.Mutex

	// 交易只改clone, commit時才換掉state, 交易外的讀取拿到的state不會再被修改
	stateMu sync.RWMutex
	state   *memState
	faults  memFaults
	txs     int
}

func newMemDB() *memDB {
	return &memDB{state: newMemState()}
}

func (m *memDB) repos(st *memState) memRepos {
	return memRepos{st: st, faults: &m.faults}
}

func (m *memDB) current() memRepos {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.repos(m.state)
}

func (m *memDB) Catalog() db.ICatalogRepository        { return m.current() }
func (m *memDB) Orders() db.IOrderRepository           { return m.current() }
func (m *memDB) Payments() db.IPaymentRepository       { return m.current() }
func (m *memDB) PaymentLogs() db.IPaymentLogRepository { return m.current() }
func (m *memDB) Points() db.IPointRepository           { return m.current() }
func (m *memDB) Carts() db.ICartRepository             { return m.current() }

func (m *memDB) Do(ctx context.Context, fn func(uow db.UnitOfWork) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs++
	work := m.state.clone()
	uow := &memUow{memRepos: m.repos(work), savepoints: map[string]*memState{}}
	if err := fn(uow); err != nil {
		return err
	}
	m.stateMu.Lock()
	m.state = work
	m.stateMu.Unlock()
	return nil
}

var _ db.UnifiedDB = (*memDB)(nil)

type memUow struct {
	memRepos
	savepoints map[string]*memState
}

func (u *memUow) SavePoint(name string) error {
	u.savepoints[name] = u.st.clone()
	return nil
}

func (u *memUow) RollbackTo(name string) error {
	saved, ok := u.savepoints[name]
	if !ok {
		return fmt.Errorf("savepoint %s not found", name)
	}
	*u.st = *saved.clone()
	return nil
}

type memRepos struct {
	st     *memState
	faults *memFaults
}

func (r memRepos) Catalog() db.ICatalogRepository        { return r }
func (r memRepos) Orders() db.IOrderRepository           { return r }
func (r memRepos) Payments() db.IPaymentRepository       { return r }
func (r memRepos) PaymentLogs() db.IPaymentLogRepository { return r }
func (r memRepos) Points() db.IPointRepository           { return r }
func (r memRepos) Carts() db.ICartRepository             { return r }

func (r memRepos) GetProductsByIDs(ctx context.Context, ids []uint) ([]model.Product, error) {
	var out []model.Product
	for _, id := range ids {
		if p, ok := r.st.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memRepos) GetExistingColorIDs(ctx context.Context, ids []uint) ([]uint, error) {
	var out []uint
	for _, id := range ids {
		if r.st.colors[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r memRepos) GetExistingSizeIDs(ctx context.Context, ids []uint) ([]uint, error) {
	var out []uint
	for _, id := range ids {
		if r.st.sizes[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r memRepos) CreateOrder(ctx context.Context, order *model.Order) error {
	if _, ok := r.st.orders[order.OrderID]; ok {
		return fmt.Errorf("%w: %s", db.ErrDuplicateOrderID, order.OrderID)
	}
	stored := *order
	stored.OrderItems, stored.Payments = nil, nil
	r.st.orders[order.OrderID] = stored
	return nil
}

func (r memRepos) CreateOrderItems(ctx context.Context, items []model.OrderItem) error {
	for i := range items {
		items[i].ID = r.st.id()
		items[i].RecomputeSubtotal()
		r.st.items = append(r.st.items, items[i])
	}
	return nil
}

func (r memRepos) GetOrderByID(ctx context.Context, orderID string) (*model.Order, error) {
	o, ok := r.st.orders[orderID]
	if !ok {
		return nil, db.ErrOrderNotFound
	}
	for _, it := range r.st.items {
		if it.OrderID == orderID {
			o.OrderItems = append(o.OrderItems, it)
		}
	}
	for _, p := range r.st.payments {
		if p.OrderID == orderID {
			o.Payments = append(o.Payments, p)
		}
	}
	return &o, nil
}

func (r memRepos) GetOrderForUpdate(ctx context.Context, orderID string) (*model.Order, error) {
	o, ok := r.st.orders[orderID]
	if !ok {
		return nil, db.ErrOrderNotFound
	}
	return &o, nil
}

func (r memRepos) UpdateOrder(ctx context.Context, order *model.Order) error {
	if _, ok := r.st.orders[order.OrderID]; !ok {
		return db.ErrOrderNotFound
	}
	stored := *order
	stored.OrderItems, stored.Payments = nil, nil
	r.st.orders[order.OrderID] = stored
	return nil
}

func (r memRepos) CreatePayment(ctx context.Context, payment *model.Payment) error {
	for _, p := range r.st.payments {
		if p.PaymentKey == payment.PaymentKey {
			return fmt.Errorf("%w: %s", db.ErrDuplicatePaymentKey, payment.PaymentKey)
		}
	}
	payment.ID = r.st.id()
	r.st.payments = append(r.st.payments, *payment)
	return nil
}

func (r memRepos) GetPaymentByKey(ctx context.Context, paymentKey string) (*model.Payment, error) {
	if r.faults.hidePaymentLookup {
		return nil, nil
	}
	for _, p := range r.st.payments {
		if p.PaymentKey == paymentKey {
			return &p, nil
		}
	}
	return nil, nil
}

func (r memRepos) GetPaymentsByOrderID(ctx context.Context, orderID string) ([]model.Payment, error) {
	var out []model.Payment
	for _, p := range r.st.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memRepos) UpdatePayment(ctx context.Context, payment *model.Payment) error {
	for i := range r.st.payments {
		if r.st.payments[i].ID == payment.ID {
			r.st.payments[i] = *payment
			return nil
		}
	}
	return fmt.Errorf("payment %d not found", payment.ID)
}

func (r memRepos) CreatePaymentLog(ctx context.Context, log *model.PaymentLog) error {
	log.ID = r.st.id()
	r.st.logs = append(r.st.logs, *log)
	return nil
}

func (r memRepos) LockUser(ctx context.Context, userID int64) error {
	return nil
}

func (r memRepos) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var sum int64
	for _, e := range r.st.points {
		if e.UserID == userID {
			sum += e.Amount
		}
	}
	return sum, nil
}

func (r memRepos) AppendEntry(ctx context.Context, entry *model.PointLedgerEntry) error {
	entry.ID = r.st.id()
	r.st.points = append(r.st.points, *entry)
	return nil
}

func (r memRepos) GetCartItemsByUserID(ctx context.Context, userID int64) ([]model.CartItem, error) {
	var out []model.CartItem
	for _, c := range r.st.carts {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memRepos) DeleteCartItems(ctx context.Context, ids []uint) error {
	if r.faults.cartDelete != nil {
		return r.faults.cartDelete
	}
	drop := toSet(ids)
	kept := r.st.carts[:0:0]
	for _, c := range r.st.carts {
		if !drop[c.ID] {
			kept = append(kept, c)
		}
	}
	r.st.carts = kept
	return nil
}

func (r memRepos) UpdateCartItemQuantity(ctx context.Context, id uint, quantity int) error {
	for i := range r.st.carts {
		if r.st.carts[i].ID == id {
			r.st.carts[i].Quantity = quantity
			return nil
		}
	}
	return nil
}

// seed helpers

func (m *memDB) addProduct(p model.Product) {
	m.state.products[p.ID] = p
	for _, c := range p.Colors {
		m.state.colors[c.ID] = true
	}
	for _, s := range p.Sizes {
		m.state.sizes[s.ID] = true
	}
}

func (m *memDB) addCart(userID int64, productID uint, qty int) uint {
	id := m.state.id()
	m.state.carts = append(m.state.carts, model.CartItem{ID: id, UserID: userID, ProductID: productID, Quantity: qty})
	return id
}

func (m *memDB) addPoints(userID int64, amount int64) {
	m.state.points = append(m.state.points, model.PointLedgerEntry{ID: m.state.id(), UserID: userID, Type: model.PointEntryEarn, Amount: amount})
}

func (m *memDB) counts() (orders, items, payments, points int) {
	return len(m.state.orders), len(m.state.items), len(m.state.payments), len(m.state.points)
}

// CreatePaymentLog 交易外寫入, 給閘道失敗紀錄使用
func (m *memDB) CreatePaymentLog(ctx context.Context, log *model.PaymentLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repos(m.state).CreatePaymentLog(ctx, log)
}

func (m *memDB) GetProductsByIDs(ctx context.Context, ids []uint) ([]model.Product, error) {
	return m.current().GetProductsByIDs(ctx, ids)
}

func (m *memDB) GetExistingColorIDs(ctx context.Context, ids []uint) ([]uint, error) {
	return m.current().GetExistingColorIDs(ctx, ids)
}

func (m *memDB) GetExistingSizeIDs(ctx context.Context, ids []uint) ([]uint, error) {
	return m.current().GetExistingSizeIDs(ctx, ids)
}
