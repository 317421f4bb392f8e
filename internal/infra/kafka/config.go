package kafka

import (
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Config represents the configuration for Kafka client
type Config struct {
	// Broker 配置
	Brokers []string
	Topic   string

	// 消費者配置
	ConsumerGroup  string
	MinBytes       int
	MaxBytes       int
	MaxWait        time.Duration
	CommitInterval time.Duration

	// 生產者配置
	RequiredAcks  int
	BatchSize     int
	BatchTimeout  time.Duration
	WriteTimeout  time.Duration
	RetryAttempts int

	// 分區策略配置
	Balancer kafka.Balancer // 自定義負載平衡器
}

// GetBalancer 取得負載平衡器，如果沒有設定則使用 Hash, 相同key進同一分區
func (c *Config) GetBalancer() kafka.Balancer {
	if c.Balancer != nil {
		return c.Balancer
	}
	return &kafka.Hash{}
}

func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("%w: brokers is empty", ErrInvalidateParameter)
	}
	if c.Topic == "" {
		return fmt.Errorf("%w: topic is empty", ErrInvalidateParameter)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("%w: retry attempts must not be negative", ErrInvalidateParameter)
	}
	return nil
}

// DefaultConfig returns a Config with default settings
func DefaultConfig() *Config {
	return &Config{
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        time.Second,
		CommitInterval: 0, // 同步commit, 處理完才確認
		BatchSize:      100,
		BatchTimeout:   10 * time.Millisecond,
		WriteTimeout:   5 * time.Second,
		RequiredAcks:   -1, // 等待所有副本確認
		RetryAttempts:  3,
	}
}
