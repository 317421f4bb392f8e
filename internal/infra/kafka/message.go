package kafka

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// Header 代表 Kafka 消息的標頭
type Header struct {
	Key   string
	Value []byte
}

// Message 代表一個 Kafka 消息
type Message struct {
	// Key 相同的 Key 會被分配到相同的分區, 這裡使用 user id 保證同一使用者的順序
	Key   []byte
	Value []byte
	Topic string

	Partition int
	Offset    int64
	Headers   []Header
	Time      time.Time
}

// GetHeader 找不到時回傳空字串
func (m *Message) GetHeader(key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// ToKafkaMessage converts our Message to kafka-go Message
func (m *Message) ToKafkaMessage() kafka.Message {
	headers := make([]kafka.Header, len(m.Headers))
	for i, h := range m.Headers {
		headers[i] = kafka.Header{
			Key:   h.Key,
			Value: h.Value,
		}
	}

	return kafka.Message{
		Key:       m.Key,
		Value:     m.Value,
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Headers:   headers,
		Time:      m.Time,
	}
}

// FromKafkaMessage converts kafka-go Message to our Message
func FromKafkaMessage(km kafka.Message) Message {
	headers := make([]Header, len(km.Headers))
	for i, h := range km.Headers {
		headers[i] = Header{
			Key:   h.Key,
			Value: h.Value,
		}
	}

	return Message{
		Key:       km.Key,
		Value:     km.Value,
		Topic:     km.Topic,
		Partition: km.Partition,
		Offset:    km.Offset,
		Headers:   headers,
		Time:      km.Time,
	}
}
