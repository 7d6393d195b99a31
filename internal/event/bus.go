package event

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ==================== 事件定义 ====================

// OrderUpdated 订单金额或状态被后台任务改写后发出
// 下游 (ERP 主站) 订阅该事件刷新展示
type OrderUpdated struct {
	LogID      string    `json:"log_id"` // 单次变更的追踪 id
	OrderID    int64     `json:"order_id"`
	AccountID  int64     `json:"account_id"`
	ExternalID string    `json:"external_id"`
	Reason     string    `json:"reason"` // 如 settlement
	OccurredAt time.Time `json:"occurred_at"`
}

// Bus 事件发布边界
type Bus interface {
	PublishOrderUpdated(ctx context.Context, ev OrderUpdated) error
	Close() error
}

// ==================== Kafka 实现 ====================

// KafkaBus 把事件写到单个 topic，key 用 external_id 保证同单有序
type KafkaBus struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewKafkaBus(brokers []string, topic string, logger *zap.Logger) *KafkaBus {
	return &KafkaBus{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
		logger: logger.Named("event"),
	}
}

func (b *KafkaBus) PublishOrderUpdated(ctx context.Context, ev OrderUpdated) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	err = b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.ExternalID),
		Value: value,
	})
	if err != nil {
		b.logger.Error("publish order updated failed",
			zap.String("log_id", ev.LogID),
			zap.Int64("order_id", ev.OrderID),
			zap.Error(err))
		return err
	}
	return nil
}

func (b *KafkaBus) Close() error { return b.writer.Close() }

// ==================== 空实现与内存实现 ====================

// NopBus kafka 未启用时使用
type NopBus struct{}

func (NopBus) PublishOrderUpdated(context.Context, OrderUpdated) error { return nil }
func (NopBus) Close() error                                            { return nil }

// MemoryBus 测试用，把事件留在内存里供断言
type MemoryBus struct {
	mu     sync.Mutex
	Events []OrderUpdated
}

func (b *MemoryBus) PublishOrderUpdated(_ context.Context, ev OrderUpdated) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Events = append(b.Events, ev)
	return nil
}

func (b *MemoryBus) Close() error { return nil }
