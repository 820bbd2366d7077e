package tasks

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeAnalyticsTrack = "analytics:track"
)

// EventKind 区分访问与点击事件。
type EventKind string

const (
	KindView  EventKind = "view"
	KindClick EventKind = "click"
)

// Event 是一次待入库的统计事件。IP 在进入队列前已经哈希，原始 IP 不离开 API 进程。
type Event struct {
	Kind          EventKind `json:"kind"`
	ProfileID     uuid.UUID `json:"profile_id"`
	LinkID        uuid.UUID `json:"link_id"`
	Referrer      string    `json:"referrer,omitempty"`
	UserAgent     string    `json:"user_agent,omitempty"`
	IPHash        string    `json:"ip_hash,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// Validate 检查事件结构是否完整。
func (e Event) Validate() error {
	switch e.Kind {
	case KindView:
	case KindClick:
		if e.LinkID == uuid.Nil {
			return errors.New("click event requires link id")
		}
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if e.ProfileID == uuid.Nil {
		return errors.New("event requires profile id")
	}
	if e.OccurredAt.IsZero() {
		return errors.New("event requires occurred_at")
	}
	return nil
}

// NewAnalyticsTrackTask 构造一个统计事件入库任务。
func NewAnalyticsTrackTask(ev Event) (*asynq.Task, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAnalyticsTrack, payload), nil
}

// ParseEvent 解析并校验任务负载。
func ParseEvent(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// HashIP 返回 SHA-256 十六进制摘要的前 16 位；空 IP 返回空串。
func HashIP(ip string) string {
	if ip == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])[:16]
}
