// Package live 通过 Redis Pub/Sub 向仪表盘推送实时统计事件。
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "analytics_live:"

// Message 是推送给仪表盘的消息，字段名与前端解析保持一致。
type Message struct {
	Type       string     `json:"type"`
	ProfileID  uuid.UUID  `json:"profileId"`
	LinkID     *uuid.UUID `json:"linkId,omitempty"`
	Referrer   string     `json:"referrer,omitempty"`
	OccurredAt time.Time  `json:"occurredAt"`
}

// Publisher 发布实时事件。
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Channel 返回页面对应的频道名。
func Channel(profileID uuid.UUID) string {
	return channelPrefix + profileID.String()
}

// RedisPublisher 将消息发布到页面频道。
type RedisPublisher struct {
	client redis.UniversalClient
}

func NewRedisPublisher(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode live message: %w", err)
	}
	if err := p.client.Publish(ctx, Channel(msg.ProfileID), payload).Err(); err != nil {
		return fmt.Errorf("publish live message: %w", err)
	}
	return nil
}

// Nop 丢弃所有消息，用于未配置 Redis 的场景与测试。
type Nop struct{}

func (Nop) Publish(context.Context, Message) error { return nil }
