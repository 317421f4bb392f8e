package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
	"github.com/RoyceAzure/lab/checkout/internal/infra/cache"
	"github.com/RoyceAzure/lab/checkout/internal/infra/gateway"
	"github.com/RoyceAzure/lab/checkout/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/checkout/internal/infra/repository/redis_repo"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	buyerID    int64 = 1001
	strangerID int64 = 2002
)

type recordingPublisher struct {
	mu        sync.Mutex
	paid      []model.OrderPaidEvent
	depletion []model.CartDepletionRequestedEvent
}

func (p *recordingPublisher) ProduceOrderPaidEvent(ctx context.Context, evt model.OrderPaidEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paid = append(p.paid, evt)
	return nil
}

func (p *recordingPublisher) ProduceCartDepletionRequestedEvent(ctx context.Context, evt model.CartDepletionRequestedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.depletion = append(p.depletion, evt)
	return nil
}

// fakeGateway 以 httptest 模擬付款閘道, status 可在測試中調整
type fakeGateway struct {
	server *httptest.Server
	calls  atomic.Int32
	status atomic.Int32
	body   atomic.Value
}

func newFakeGateway(t *testing.T) *fakeGateway {
	g := &fakeGateway{}
	g.status.Store(http.StatusOK)
	g.body.Store(`{"method":"카드","status":"DONE","receipt":{"url":"https://receipt.example/1"}}`)
	g.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.calls.Add(1)
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(int(g.status.Load()))
		_, _ = w.Write([]byte(g.body.Load().(string)))
	}))
	t.Cleanup(g.server.Close)
	return g
}

type testEnv struct {
	db        *memDB
	store     *redis_repo.PreOrderRepo
	mr        *miniredis.Miniredis
	gw        *fakeGateway
	publisher *recordingPublisher
	ledger    *PointLedger
	toss      *gateway.TossClient
	svc       *CheckoutService
	requests  *OrderRequestService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.Nop()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	env := &testEnv{
		db:        newMemDB(),
		store:     redis_repo.NewPreOrderRepo(cache.NewRedisCache(client, "checkout"), 15*time.Minute),
		mr:        mr,
		gw:        newFakeGateway(t),
		publisher: &recordingPublisher{},
		ledger:    NewPointLedger(decimal.RequireFromString("0.05")),
	}
	env.toss = gateway.NewTossClient(gateway.Config{
		BaseURL:               env.gw.server.URL,
		SecretKey:             "test_sk",
		Timeout:               2 * time.Second,
		FreeShippingThreshold: 50000,
		ShippingFee:           3000,
	}, env.db, &logger)

	env.svc = env.service(env.store, env.db)
	env.requests = NewOrderRequestService(env.db, env.ledger, &logger)

	env.db.addProduct(model.Product{
		ID:    1,
		Name:  "Linen Shirt",
		Price: decimal.NewFromInt(35000),
		Colors: []model.Color{
			{ID: 10, Name: "White"},
		},
		Sizes: []model.Size{
			{ID: 20, Name: "M"},
		},
	})
	env.db.addProduct(model.Product{
		ID:        2,
		Name:      "Canvas Tote",
		Price:     decimal.NewFromInt(25000),
		SalePrice: decimal.NewNullDecimal(decimal.NewFromInt(5000)),
	})
	// 其他商品的顏色, 存在但不屬於商品1
	env.db.state.colors[11] = true
	return env
}

// service 以指定的預購單儲存與交易管理建立結帳服務, 讀取仍走 env.db
func (e *testEnv) service(store PreOrderStore, tx db.TxManager) *CheckoutService {
	logger := zerolog.Nop()
	materializer := NewOrderMaterializer(tx, e.ledger, NewCartDepleter(), e.publisher, &logger)
	return NewCheckoutService(
		NewItemValidator(e.db),
		store,
		e.toss,
		materializer,
		e.ledger,
		e.db,
		CheckoutConfig{HostURL: "https://shop.example", MinPointUsage: 1000},
		&logger,
	)
}

func uintPtr(v uint) *uint { return &v }

// preorder 建立預購單並回傳key
func (e *testEnv) preorder(t *testing.T, userID int64, items ...ItemRequest) PreOrderResult {
	t.Helper()
	res, err := e.svc.CreatePreOrder(context.Background(), userID, items)
	if err != nil {
		t.Fatalf("create pre-order: %v", err)
	}
	return res
}
