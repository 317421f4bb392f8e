package appcontext

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/RoyceAzure/lab/checkout/internal/api"
	"github.com/RoyceAzure/lab/checkout/internal/api/handler"
	"github.com/RoyceAzure/lab/checkout/internal/api/router"
	"github.com/RoyceAzure/lab/checkout/internal/config"
	"github.com/RoyceAzure/lab/checkout/internal/infra/cache"
	"github.com/RoyceAzure/lab/checkout/internal/infra/consumer"
	"github.com/RoyceAzure/lab/checkout/internal/infra/gateway"
	"github.com/RoyceAzure/lab/checkout/internal/infra/kafka"
	"github.com/RoyceAzure/lab/checkout/internal/infra/producer"
	"github.com/RoyceAzure/lab/checkout/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/checkout/internal/infra/repository/redis_repo"
	"github.com/RoyceAzure/lab/checkout/internal/logger"
	"github.com/RoyceAzure/lab/checkout/internal/ratelimit"
	"github.com/RoyceAzure/lab/checkout/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const redisKeyPrefix = "checkout"

type ApplicationContext struct {
	Cf        *config.Config
	Logger    *zerolog.Logger
	logWriter *logger.KafkaWriter

	DbConn    *gorm.DB
	DbDao     *db.DbDao
	UnifiedDB *db.UnifiedDBImpl

	RedisClient *redis.Client
	PreOrders   *redis_repo.PreOrderRepo

	orderProducer kafka.Producer
	cartProducer  kafka.Producer
	Publisher     service.EventPublisher
	CartConsumer  *consumer.CartDepletionConsumer

	Gateway             *gateway.TossClient
	CheckoutService     *service.CheckoutService
	OrderRequestService *service.OrderRequestService
	CartDepletion       *service.CartDepletionService

	limiter      ratelimit.Limiter
	keyedLimiter *ratelimit.KeyedLimiter
	Admins       *config.AdminConfig
	Router       *chi.Mux
}

func NewApplicationContext(cf *config.Config) (*ApplicationContext, error) {
	app := ApplicationContext{
		Cf: cf,
	}

	err := app.Init()
	if err != nil {
		return nil, err
	}

	return &app, nil
}

func (app *ApplicationContext) Init() error {
	steps := []func() error{
		app.setUpLogger,
		app.setUpdbConn,
		app.setUpdbMigrate,
		app.setUpRedis,
		app.setUpPublisher,
		app.setUpGateway,
		app.setUpServices,
		app.setUpCartConsumer,
		app.setUpRateLimiter,
		app.setUpAdmins,
		app.setUpRouter,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (app *ApplicationContext) setUpLogger() error {
	var writers []io.Writer
	if app.Cf.LogKafkaTopic != "" && len(app.Cf.Brokers()) > 0 {
		p, err := app.newProducer(app.Cf.LogKafkaTopic, nil)
		if err != nil {
			return fmt.Errorf("create log producer: %w", err)
		}
		app.logWriter = logger.NewKafkaWriter(p)
		writers = append(writers, app.logWriter)
	}

	l := logger.New(logger.Options{
		ServiceName: app.Cf.ServiceName,
		Debug:       app.Cf.IsDebug(),
		Writers:     writers,
	})
	app.Logger = &l
	app.Logger.Info().Str("env", app.Cf.Env).Msg("Finish setup logger")
	return nil
}

func (app *ApplicationContext) setUpdbConn() error {
	app.Logger.Info().Msg("Start setup database connection")
	conn, err := db.GetDbConn(app.Cf.DbName, app.Cf.DbHost, app.Cf.DbPort, app.Cf.DbUser, app.Cf.DbPas)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	app.DbConn = conn
	app.DbDao = db.NewDbDao(conn)
	app.UnifiedDB = db.NewUnifiedDB(app.DbDao, app.Cf.DbTxRetries)
	app.Logger.Info().Msg("Finish setup database connection")
	return nil
}

// db migration
func (app *ApplicationContext) setUpdbMigrate() error {
	app.Logger.Info().Msg("Start setup db migration")
	err := app.DbDao.InitMigrate(db.GetDbURL(app.Cf.DbName, app.Cf.DbHost, app.Cf.DbPort, app.Cf.DbUser, app.Cf.DbPas))
	if err != nil {
		return err
	}
	app.Logger.Info().Msg("Finish setup db migration")
	return nil
}

func (app *ApplicationContext) setUpRedis() error {
	app.Logger.Info().Msg("Start setup redis")
	app.RedisClient = cache.GetRedisClient(app.Cf.RedisAddr,
		cache.WithPassword(app.Cf.RedisPassword),
		cache.WithDB(app.Cf.RedisDB),
	)
	redisCache := cache.NewRedisCache(app.RedisClient, redisKeyPrefix)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	app.PreOrders = redis_repo.NewPreOrderRepo(redisCache, app.Cf.PreOrderTTL)
	app.Logger.Info().Msg("Finish setup redis")
	return nil
}

func (app *ApplicationContext) newProducer(topic string, l *zerolog.Logger) (kafka.Producer, error) {
	cfg := kafka.DefaultConfig()
	cfg.Brokers = app.Cf.Brokers()
	cfg.Topic = topic
	if l == nil {
		nop := zerolog.Nop()
		l = &nop
	}
	return kafka.NewProducer(cfg, l)
}

// setUpPublisher 未設定broker時不發送事件, 購物車只在付款交易內扣除
func (app *ApplicationContext) setUpPublisher() error {
	if len(app.Cf.Brokers()) == 0 {
		app.Logger.Warn().Msg("KAFKA_BROKERS is empty, checkout events are disabled")
		app.Publisher = service.NoopPublisher{}
		return nil
	}

	app.Logger.Info().Msg("Start setup kafka producer")
	var err error
	app.orderProducer, err = app.newProducer(app.Cf.KafkaOrderTopic, app.Logger)
	if err != nil {
		return fmt.Errorf("create order producer: %w", err)
	}
	app.cartProducer, err = app.newProducer(app.Cf.KafkaCartTopic, app.Logger)
	if err != nil {
		return fmt.Errorf("create cart producer: %w", err)
	}
	app.Publisher = producer.NewCheckoutEventProducer(app.orderProducer, app.cartProducer)
	app.Logger.Info().Msg("Finish setup kafka producer")
	return nil
}

func (app *ApplicationContext) setUpGateway() error {
	app.Gateway = gateway.NewTossClient(gateway.Config{
		BaseURL:               app.Cf.TossBaseURL,
		SecretKey:             app.Cf.TossSecretKey,
		Timeout:               app.Cf.TossTimeout,
		FreeShippingThreshold: app.Cf.FreeShippingThreshold,
		ShippingFee:           app.Cf.ShippingFee,
	}, app.UnifiedDB.PaymentLogs(), app.Logger)
	return nil
}

func (app *ApplicationContext) setUpServices() error {
	app.Logger.Info().Msg("Start setup services")
	earnRate, err := decimal.NewFromString(app.Cf.PointEarnRate)
	if err != nil {
		return fmt.Errorf("invalid POINT_EARN_RATE %q: %w", app.Cf.PointEarnRate, err)
	}

	ledger := service.NewPointLedger(earnRate)
	depleter := service.NewCartDepleter()
	materializer := service.NewOrderMaterializer(app.UnifiedDB, ledger, depleter, app.Publisher, app.Logger)

	app.CheckoutService = service.NewCheckoutService(
		service.NewItemValidator(app.UnifiedDB.Catalog()),
		app.PreOrders,
		app.Gateway,
		materializer,
		ledger,
		app.UnifiedDB,
		service.CheckoutConfig{
			HostURL:       app.Cf.HostURL,
			MinPointUsage: app.Cf.MinPointUsage,
		},
		app.Logger,
	)
	app.OrderRequestService = service.NewOrderRequestService(app.UnifiedDB, ledger, app.Logger)
	app.CartDepletion = service.NewCartDepletionService(app.UnifiedDB, depleter, app.Logger)
	app.Logger.Info().Msg("Finish setup services")
	return nil
}

func (app *ApplicationContext) setUpCartConsumer() error {
	if len(app.Cf.Brokers()) == 0 {
		return nil
	}
	app.Logger.Info().Msg("Start setup cart depletion consumer")
	cfg := kafka.DefaultConfig()
	cfg.Brokers = app.Cf.Brokers()
	cfg.Topic = app.Cf.KafkaCartTopic
	cfg.ConsumerGroup = app.Cf.KafkaConsumerGroup

	reader, err := kafka.NewReader(cfg, app.Logger)
	if err != nil {
		return fmt.Errorf("create cart depletion reader: %w", err)
	}
	app.CartConsumer = consumer.NewCartDepletionConsumer(reader, app.CartDepletion, app.Logger)
	if err := app.CartConsumer.Start(context.Background()); err != nil {
		return err
	}
	app.Logger.Info().Msg("Finish setup cart depletion consumer")
	return nil
}

func (app *ApplicationContext) setUpRateLimiter() error {
	cfg := ratelimit.LimiterConfig{
		Capacity: app.Cf.RateLimitCapacity,
		RatePS:   app.Cf.RateLimitPerSecond,
	}
	switch app.Cf.RateLimitBackend {
	case "redis":
		app.limiter = ratelimit.NewRedisLimiter(app.RedisClient, redisKeyPrefix, cfg, app.Logger)
	case "", "memory":
		app.keyedLimiter = ratelimit.NewKeyedLimiter(cfg)
		app.limiter = app.keyedLimiter
	default:
		return fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", app.Cf.RateLimitBackend)
	}
	return nil
}

// setUpAdmins 設定檔不存在時沒有管理者, 管理路由一律403
func (app *ApplicationContext) setUpAdmins() error {
	admins, err := config.LoadAdminConfig(app.Cf.AdminConfigPath)
	if err != nil {
		app.Logger.Warn().Err(err).Str("path", app.Cf.AdminConfigPath).Msg("admin config not loaded")
		admins = &config.AdminConfig{}
	}
	app.Admins = admins
	return nil
}

func (app *ApplicationContext) setUpRouter() error {
	server := api.NewServer(
		handler.NewCheckoutHandler(app.CheckoutService, app.Logger),
		handler.NewOrderHandler(app.CheckoutService, app.OrderRequestService, app.Logger),
	)
	app.Router = router.SetupRouter(server, router.Options{
		Logger:    app.Logger,
		RateLimit: ratelimit.NewRateLimitMiddleware(app.limiter, ratelimit.UserOrIPKey),
		Admins:    app.Admins,
		Health:    app.healthCheck,
	})
	if app.Cf.IsDebug() {
		return router.PrintRoutes(app.Router, app.Logger)
	}
	return nil
}

func (app *ApplicationContext) healthCheck(ctx context.Context) error {
	sqlDB, err := app.DbConn.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}
	return app.RedisClient.Ping(ctx).Err()
}

func (app *ApplicationContext) Shutdown(ctx context.Context) error {
	app.Logger.Info().Msg("Start application shutdown")

	done := make(chan error, 1)
	go func() {
		defer close(done)

		if app.CartConsumer != nil {
			app.Logger.Info().Msg("Stopping cart depletion consumer...")
			if err := app.CartConsumer.Stop(10 * time.Second); err != nil {
				//有錯誤不結束流程
				app.Logger.Error().Err(err).Msg("cart depletion consumer shutdown error")
			}
		}

		for _, p := range []kafka.Producer{app.orderProducer, app.cartProducer} {
			if p == nil {
				continue
			}
			if err := p.Close(); err != nil {
				app.Logger.Error().Err(err).Msg("kafka producer shutdown error")
			}
		}

		if app.keyedLimiter != nil {
			app.keyedLimiter.Stop()
		}

		if app.RedisClient != nil {
			app.Logger.Info().Msg("Closing redis connection...")
			if err := app.RedisClient.Close(); err != nil {
				app.Logger.Error().Err(err).Msg("redis shutdown error")
			}
		}

		// 關閉 DB
		if app.DbConn != nil {
			app.Logger.Info().Msg("Closing database connection...")
			if sqlDB, err := app.DbConn.DB(); err == nil {
				sqlDB.Close()
			}
		}

		app.Logger.Info().Msg("Application shutdown complete")

		// 關閉 logger, 之後的log只會輸出到stdout
		if app.logWriter != nil {
			if err := app.logWriter.Close(5 * time.Second); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %v", ctx.Err())
	}
}
