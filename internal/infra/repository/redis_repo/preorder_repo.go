package redis_repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RoyceAzure/lab/checkout/internal/domain/errs"
	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
	"github.com/RoyceAzure/lab/checkout/internal/infra/cache"
	"github.com/google/uuid"
)

const PreOrderKeyPrefix = "order:preorder:"

// ErrSnapshotSchema 快取內容格式不符(版本或欄位), 對使用者而言等同過期
var ErrSnapshotSchema = fmt.Errorf("%w: pre-order snapshot schema mismatch", errs.ErrNotFoundOrExpired)

/*
預購單快照, 只存在redis
TTL 從建立開始計算, 讀取不會延長
擁有者檢查由呼叫端負責
*/
type PreOrderRepo struct {
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewPreOrderRepo(c cache.Cache, ttl time.Duration) *PreOrderRepo {
	return &PreOrderRepo{cache: c, ttl: ttl, now: time.Now}
}

func newPreOrderKey() string {
	return PreOrderKeyPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// IsPreOrderKey 拒絕不屬於預購單命名空間的key, 避免被拿來讀取其他快取資料
func IsPreOrderKey(key string) bool {
	return strings.HasPrefix(key, PreOrderKeyPrefix) && len(key) > len(PreOrderKeyPrefix)
}

func (r *PreOrderRepo) Put(ctx context.Context, userID int64, items []model.OrderLine, amount int64) (string, error) {
	snapshot := model.PreOrderSnapshot{
		Version:   model.PreOrderSnapshotVersion,
		UserID:    userID,
		Items:     items,
		Amount:    amount,
		CreatedAt: r.now().UTC(),
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", err
	}

	key := newPreOrderKey()
	if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
		return "", fmt.Errorf("store pre-order snapshot: %w", err)
	}
	return key, nil
}

func (r *PreOrderRepo) Get(ctx context.Context, key string) (*model.PreOrderSnapshot, error) {
	if !IsPreOrderKey(key) {
		return nil, errs.ErrNotFoundOrExpired
	}
	data, err := r.cache.Get(ctx, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, errs.ErrNotFoundOrExpired
	}
	if err != nil {
		return nil, fmt.Errorf("load pre-order snapshot: %w", err)
	}
	return decodeSnapshot(data)
}

// AttachPoints 寫入使用點數並重設TTL, key 已過期時不會重建
func (r *PreOrderRepo) AttachPoints(ctx context.Context, key string, points int64) (*model.PreOrderSnapshot, error) {
	if points < 0 {
		return nil, errs.ErrValidation
	}
	snapshot, err := r.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	snapshot.UsedPoint = &points

	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}
	ok, err := r.cache.SetIfExists(ctx, key, data, r.ttl)
	if err != nil {
		return nil, fmt.Errorf("update pre-order snapshot: %w", err)
	}
	if !ok {
		return nil, errs.ErrNotFoundOrExpired
	}
	return snapshot, nil
}

func (r *PreOrderRepo) Delete(ctx context.Context, key string) error {
	if !IsPreOrderKey(key) {
		return nil
	}
	return r.cache.Delete(ctx, key)
}

func decodeSnapshot(data []byte) (*model.PreOrderSnapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var snapshot model.PreOrderSnapshot
	if err := dec.Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotSchema, err)
	}
	if snapshot.Version != model.PreOrderSnapshotVersion {
		return nil, fmt.Errorf("%w: version %d", ErrSnapshotSchema, snapshot.Version)
	}
	if snapshot.UserID == 0 || len(snapshot.Items) == 0 {
		return nil, fmt.Errorf("%w: missing owner or items", ErrSnapshotSchema)
	}
	return &snapshot, nil
}
