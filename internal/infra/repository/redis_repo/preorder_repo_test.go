package redis_repo

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/RoyceAzure/lab/checkout/internal/domain/errs"
	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
	"github.com/RoyceAzure/lab/checkout/internal/infra/cache"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type PreOrderRepoTestSuite struct {
	suite.Suite
	mr     *miniredis.Miniredis
	client *redis.Client
	repo   *PreOrderRepo
	items  []model.OrderLine
}

func (suite *PreOrderRepoTestSuite) SetupTest() {
	suite.mr = miniredis.RunT(suite.T())
	suite.client = redis.NewClient(&redis.Options{Addr: suite.mr.Addr()})
	suite.repo = NewPreOrderRepo(cache.NewRedisCache(suite.client, "checkout"), 15*time.Minute)
	suite.items = []model.OrderLine{
		{ProductID: 1, ProductName: "Linen Shirt", Quantity: 2, UnitPrice: 35000, Subtotal: 70000},
	}
}

func (suite *PreOrderRepoTestSuite) TearDownTest() {
	suite.client.Close()
}

func (suite *PreOrderRepoTestSuite) TestPutAndGet() {
	ctx := context.Background()
	key, err := suite.repo.Put(ctx, 7, suite.items, 70000)
	require.NoError(suite.T(), err)
	require.True(suite.T(), strings.HasPrefix(key, "order:preorder:"))
	require.Len(suite.T(), strings.TrimPrefix(key, "order:preorder:"), 32)
	require.True(suite.T(), suite.mr.Exists("checkout:"+key))

	snapshot, err := suite.repo.Get(ctx, key)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), int64(7), snapshot.UserID)
	require.Equal(suite.T(), int64(70000), snapshot.Amount)
	require.Equal(suite.T(), suite.items, snapshot.Items)
	require.Nil(suite.T(), snapshot.UsedPoint)
	require.Equal(suite.T(), model.PreOrderSnapshotVersion, snapshot.Version)
}

func (suite *PreOrderRepoTestSuite) TestTokensAreUnique() {
	ctx := context.Background()
	k1, err := suite.repo.Put(ctx, 7, suite.items, 70000)
	require.NoError(suite.T(), err)
	k2, err := suite.repo.Put(ctx, 7, suite.items, 70000)
	require.NoError(suite.T(), err)
	require.NotEqual(suite.T(), k1, k2)
}

func (suite *PreOrderRepoTestSuite) TestReadDoesNotRefreshTTL() {
	ctx := context.Background()
	key, err := suite.repo.Put(ctx, 7, suite.items, 70000)
	require.NoError(suite.T(), err)

	suite.mr.FastForward(10 * time.Minute)
	_, err = suite.repo.Get(ctx, key)
	require.NoError(suite.T(), err)

	suite.mr.FastForward(6 * time.Minute)
	_, err = suite.repo.Get(ctx, key)
	require.ErrorIs(suite.T(), err, errs.ErrNotFoundOrExpired)
}

func (suite *PreOrderRepoTestSuite) TestAttachPointsRefreshesTTL() {
	ctx := context.Background()
	key, err := suite.repo.Put(ctx, 7, suite.items, 70000)
	require.NoError(suite.T(), err)

	suite.mr.FastForward(10 * time.Minute)
	snapshot, err := suite.repo.AttachPoints(ctx, key, 5000)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), int64(5000), snapshot.Points())
	require.Equal(suite.T(), 15*time.Minute, suite.mr.TTL("checkout:"+key))

	loaded, err := suite.repo.Get(ctx, key)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), int64(5000), loaded.Points())
}

func (suite *PreOrderRepoTestSuite) TestAttachPointsOnExpiredKey() {
	ctx := context.Background()
	key, err := suite.repo.Put(ctx, 7, suite.items, 70000)
	require.NoError(suite.T(), err)
	suite.mr.FastForward(16 * time.Minute)

	_, err = suite.repo.AttachPoints(ctx, key, 100)
	require.ErrorIs(suite.T(), err, errs.ErrNotFoundOrExpired)
	require.False(suite.T(), suite.mr.Exists("checkout:"+key))

	_, err = suite.repo.AttachPoints(ctx, key, -1)
	require.ErrorIs(suite.T(), err, errs.ErrValidation)
}

func (suite *PreOrderRepoTestSuite) TestDelete() {
	ctx := context.Background()
	key, err := suite.repo.Put(ctx, 7, suite.items, 70000)
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.repo.Delete(ctx, key))
	_, err = suite.repo.Get(ctx, key)
	require.ErrorIs(suite.T(), err, errs.ErrNotFoundOrExpired)
}

func (suite *PreOrderRepoTestSuite) TestForeignNamespaceRejected() {
	ctx := context.Background()
	require.NoError(suite.T(), suite.mr.Set("checkout:session:abc", `{"version":1}`))
	_, err := suite.repo.Get(ctx, "session:abc")
	require.ErrorIs(suite.T(), err, errs.ErrNotFoundOrExpired)
	_, err = suite.repo.Get(ctx, "order:preorder:")
	require.ErrorIs(suite.T(), err, errs.ErrNotFoundOrExpired)
}

func (suite *PreOrderRepoTestSuite) TestSchemaDriftDetected() {
	ctx := context.Background()
	key := "order:preorder:legacy"

	// 舊格式: 沒有version欄位且多了未知欄位
	require.NoError(suite.T(), suite.mr.Set("checkout:"+key, `{"user_id":7,"items":[],"amount":1000,"coupon":"X"}`))
	_, err := suite.repo.Get(ctx, key)
	require.ErrorIs(suite.T(), err, ErrSnapshotSchema)
	require.ErrorIs(suite.T(), err, errs.ErrNotFoundOrExpired)

	require.NoError(suite.T(), suite.mr.Set("checkout:"+key, `{"version":2,"user_id":7,"items":[{"product_id":1,"quantity":1}],"amount":1000}`))
	_, err = suite.repo.Get(ctx, key)
	require.ErrorIs(suite.T(), err, ErrSnapshotSchema)
}

func TestPreOrderRepoTestSuite(t *testing.T) {
	suite.Run(t, new(PreOrderRepoTestSuite))
}
