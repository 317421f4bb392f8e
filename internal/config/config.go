package config

import (
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

/*
初始化與讀取分開
init : 設置viper watch 與 onConfigChange
read : 一般讀取, 使用讀寫鎖
*/
var configSingleton *ConfigSingleTon
var muonce sync.Once

// 未設置時讀取工作目錄下的 .env
const envFilePathKey = "CHECKOUT_ENV_FILE"

type ConfigSingleTon struct {
	Config *Config
	mu     sync.RWMutex
	v      *viper.Viper
}

type Config struct {
	ServerPort  string `mapstructure:"SERVER_PORT"`
	Env         string `mapstructure:"ENV"`
	ServiceName string `mapstructure:"SERVICE_NAME"`

	DbName string `mapstructure:"POSTGRES_DB"`
	DbHost string `mapstructure:"POSTGRES_HOST"`
	DbPort string `mapstructure:"POSTGRES_PORT"`
	DbUser string `mapstructure:"POSTGRES_USER"`
	DbPas  string `mapstructure:"POSTGRES_PASSWORD"`
	// 序列化衝突時的重試次數
	DbTxRetries int `mapstructure:"POSTGRES_TX_RETRIES"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	KafkaBrokers       string `mapstructure:"KAFKA_BROKERS"`
	KafkaCartTopic     string `mapstructure:"KAFKA_CART_TOPIC"`
	KafkaOrderTopic    string `mapstructure:"KAFKA_ORDER_TOPIC"`
	KafkaConsumerGroup string `mapstructure:"KAFKA_CONSUMER_GROUP"`
	LogKafkaTopic      string `mapstructure:"LOG_KAFKA_TOPIC"`

	TossBaseURL   string        `mapstructure:"TOSS_BASE_URL"`
	TossSecretKey string        `mapstructure:"TOSS_SECRET_KEY"`
	TossTimeout   time.Duration `mapstructure:"TOSS_TIMEOUT"`

	HostURL               string        `mapstructure:"HOST_URL"`
	FreeShippingThreshold int64         `mapstructure:"FREE_SHIPPING_THRESHOLD"`
	ShippingFee           int64         `mapstructure:"SHIPPING_FEE"`
	PointEarnRate         string        `mapstructure:"POINT_EARN_RATE"`
	MinPointUsage         int64         `mapstructure:"MIN_POINT_USAGE"`
	PreOrderTTL           time.Duration `mapstructure:"PREORDER_TTL"`

	RateLimitCapacity  int     `mapstructure:"RATE_LIMIT_CAPACITY"`
	RateLimitPerSecond float64 `mapstructure:"RATE_LIMIT_PER_SECOND"`
	// memory 或 redis, 多實例部署時使用 redis
	RateLimitBackend string `mapstructure:"RATE_LIMIT_BACKEND"`

	AdminConfigPath string `mapstructure:"ADMIN_CONFIG_PATH"`
}

func (c *Config) IsDebug() bool {
	return c.Env == "" || c.Env == "debug" || c.Env == "development"
}

// Brokers KAFKA_BROKERS 以逗號分隔
func (c *Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func GetConfig() *Config {
	initConfig()
	configSingleton.mu.RLock()
	defer configSingleton.mu.RUnlock()
	return configSingleton.Config
}

func initConfig() {
	muonce.Do(func() {
		path := os.Getenv(envFilePathKey)
		if path == "" {
			path = ".env"
		}
		v := newViper(path)
		cf, err := readConfig(v)
		if err != nil {
			log.Fatalf("error read config: %v", err)
		}
		configSingleton = &ConfigSingleTon{Config: cf, v: v}

		if v.ConfigFileUsed() == "" {
			return
		}
		v.OnConfigChange(func(e fsnotify.Event) {
			cf, err := readConfig(v)
			if err != nil {
				log.Printf("failed to reload config file %s: %v", e.Name, err)
				return
			}
			configSingleton.mu.Lock()
			configSingleton.Config = cf
			configSingleton.mu.Unlock()
			log.Printf("config reloaded from %s", e.Name)
		})
		v.WatchConfig()
	})
}

/*
LoadConfig 讀取指定的 .env, 檔案不存在時只使用環境變數
單純回傳錯誤, 由外部決定要不要Fatal
*/
func LoadConfig(path string) (*Config, error) {
	return readConfig(newViper(path))
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("env")
	}
	v.AutomaticEnv()
	return v
}

func readConfig(v *viper.Viper) (*Config, error) {
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cf := &Config{}
	if err := v.Unmarshal(cf); err != nil {
		return nil, err
	}
	return cf, nil
}

// AutomaticEnv 只在 key 已知時生效, 所有 key 都要有預設值
func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("SERVICE_NAME", "checkout")
	v.SetDefault("POSTGRES_DB", "checkout")
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "")
	v.SetDefault("POSTGRES_TX_RETRIES", 3)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_CART_TOPIC", "checkout.cart.depletion")
	v.SetDefault("KAFKA_ORDER_TOPIC", "checkout.order.paid")
	v.SetDefault("KAFKA_CONSUMER_GROUP", "checkout-cart-depletion")
	v.SetDefault("LOG_KAFKA_TOPIC", "")
	v.SetDefault("TOSS_BASE_URL", "https://api.tosspayments.com")
	v.SetDefault("TOSS_SECRET_KEY", "")
	v.SetDefault("TOSS_TIMEOUT", "10s")
	v.SetDefault("HOST_URL", "http://localhost:8080")
	v.SetDefault("FREE_SHIPPING_THRESHOLD", 50000)
	v.SetDefault("SHIPPING_FEE", 3000)
	v.SetDefault("POINT_EARN_RATE", "0.05")
	v.SetDefault("MIN_POINT_USAGE", 1000)
	v.SetDefault("PREORDER_TTL", "15m")
	v.SetDefault("RATE_LIMIT_CAPACITY", 20)
	v.SetDefault("RATE_LIMIT_PER_SECOND", 5)
	v.SetDefault("RATE_LIMIT_BACKEND", "memory")
	v.SetDefault("ADMIN_CONFIG_PATH", "docs/admin.yaml")
}
