package db

import (
	"context"
	"database/sql"

	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
	"gorm.io/gorm"
)

// ICatalogRepository 結帳只讀取商品目錄
type ICatalogRepository interface {
	GetProductsByIDs(ctx context.Context, ids []uint) ([]model.Product, error)
	GetExistingColorIDs(ctx context.Context, ids []uint) ([]uint, error)
	GetExistingSizeIDs(ctx context.Context, ids []uint) ([]uint, error)
}

// IOrderRepository Order 相關操作介面
type IOrderRepository interface {
	CreateOrder(ctx context.Context, order *model.Order) error
	CreateOrderItems(ctx context.Context, items []model.OrderItem) error
	GetOrderByID(ctx context.Context, orderID string) (*model.Order, error)
	GetOrderForUpdate(ctx context.Context, orderID string) (*model.Order, error)
	UpdateOrder(ctx context.Context, order *model.Order) error
}

// IPaymentRepository Payment 相關操作介面
type IPaymentRepository interface {
	CreatePayment(ctx context.Context, payment *model.Payment) error
	GetPaymentByKey(ctx context.Context, paymentKey string) (*model.Payment, error)
	GetPaymentsByOrderID(ctx context.Context, orderID string) ([]model.Payment, error)
	UpdatePayment(ctx context.Context, payment *model.Payment) error
}

// IPaymentLogRepository 只提供新增
type IPaymentLogRepository interface {
	CreatePaymentLog(ctx context.Context, log *model.PaymentLog) error
}

// IPointRepository 點數帳本, 只提供新增與加總
type IPointRepository interface {
	LockUser(ctx context.Context, userID int64) error
	GetBalance(ctx context.Context, userID int64) (int64, error)
	AppendEntry(ctx context.Context, entry *model.PointLedgerEntry) error
}

// ICartRepository 購物車資料, 依建立順序(id)回傳
type ICartRepository interface {
	GetCartItemsByUserID(ctx context.Context, userID int64) ([]model.CartItem, error)
	DeleteCartItems(ctx context.Context, ids []uint) error
	UpdateCartItemQuantity(ctx context.Context, id uint, quantity int) error
}

type Repositories interface {
	Catalog() ICatalogRepository
	Orders() IOrderRepository
	Payments() IPaymentRepository
	PaymentLogs() IPaymentLogRepository
	Points() IPointRepository
	Carts() ICartRepository
}

// UnitOfWork 一次交易內可使用的repo, 由 TxManager 建立並傳入
type UnitOfWork interface {
	Repositories
	SavePoint(name string) error
	RollbackTo(name string) error
}

type TxManager interface {
	// Do 在單一交易內執行fn, fn回傳錯誤時整筆rollback
	// fn 可能因序列化衝突被重新執行, 不可依賴前一次執行留下的狀態
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error
}

// UnifiedDB 統一的資料庫介面
type UnifiedDB interface {
	Repositories
	TxManager
}

type repositories struct {
	dao *DbDao
}

func (r repositories) Catalog() ICatalogRepository        { return NewCatalogRepo(r.dao) }
func (r repositories) Orders() IOrderRepository           { return NewOrderRepo(r.dao) }
func (r repositories) Payments() IPaymentRepository       { return NewPaymentRepo(r.dao) }
func (r repositories) PaymentLogs() IPaymentLogRepository { return NewPaymentLogRepo(r.dao) }
func (r repositories) Points() IPointRepository           { return NewPointRepo(r.dao) }
func (r repositories) Carts() ICartRepository             { return NewCartRepo(r.dao) }

type gormUnitOfWork struct {
	repositories
}

func (u *gormUnitOfWork) SavePoint(name string) error {
	return u.dao.SavePoint(name).Error
}

func (u *gormUnitOfWork) RollbackTo(name string) error {
	return u.dao.RollbackTo(name).Error
}

type UnifiedDBImpl struct {
	repositories
	maxRetries int
}

func NewUnifiedDB(dao *DbDao, maxRetries int) *UnifiedDBImpl {
	return &UnifiedDBImpl{repositories: repositories{dao: dao}, maxRetries: maxRetries}
}

// Do SERIALIZABLE 交易, 序列化衝突時整筆重試
func (u *UnifiedDBImpl) Do(ctx context.Context, fn func(uow UnitOfWork) error) error {
	return RetryOnSerializationFailure(ctx, u.maxRetries, func() error {
		return u.dao.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&gormUnitOfWork{repositories{dao: NewDbDao(tx)}})
		}, &sql.TxOptions{Isolation: sql.LevelSerializable})
	})
}

// RetryOnSerializationFailure 最多執行 maxRetries+1 次, 其他錯誤直接回傳
func RetryOnSerializationFailure(ctx context.Context, maxRetries int, attempt func() error) error {
	var err error
	for i := 0; i <= maxRetries; i++ {
		err = attempt()
		if err == nil || !IsSerializationFailure(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

var (
	_ UnifiedDB  = (*UnifiedDBImpl)(nil)
	_ UnitOfWork = (*gormUnitOfWork)(nil)
)
