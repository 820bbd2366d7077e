package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/time/rate"

	"linkpage/internal/metrics"
)

// Recorder 将统计事件写入存储。
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// Dispatcher 是尽力而为的无序事件队列：调用方不等待入库，失败只记录日志。
// Submit 返回事件是否被接收。
type Dispatcher interface {
	Submit(ctx context.Context, ev Event) bool
	Close(ctx context.Context) error
}

const enqueueTimeout = 2 * time.Second

// AsynqDispatcher 将事件投递到 Redis 队列，由 cmd/worker 消费。
type AsynqDispatcher struct {
	client *asynq.Client
	logger *slog.Logger
}

func NewAsynqDispatcher(client *asynq.Client, logger *slog.Logger) *AsynqDispatcher {
	return &AsynqDispatcher{client: client, logger: logger}
}

func (d *AsynqDispatcher) Submit(ctx context.Context, ev Event) bool {
	task, err := NewAnalyticsTrackTask(ev)
	if err != nil {
		d.logger.Warn("build analytics task failed", slog.Any("error", err))
		metrics.AnalyticsDropped(string(ev.Kind), "encode")
		return false
	}

	// 请求结束后仍需完成入队，因此脱离请求上下文的取消信号。
	enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), enqueueTimeout)
	defer cancel()

	if _, err := d.client.EnqueueContext(enqueueCtx, task, asynq.MaxRetry(3), asynq.Timeout(30*time.Second)); err != nil {
		d.logger.Warn("enqueue analytics task failed",
			slog.String("kind", string(ev.Kind)),
			slog.Any("error", err),
		)
		metrics.AnalyticsDropped(string(ev.Kind), "enqueue")
		return false
	}
	metrics.AnalyticsSubmitted(string(ev.Kind))
	return true
}

// Close 关闭 asynq 客户端。
func (d *AsynqDispatcher) Close(context.Context) error {
	return d.client.Close()
}

// InlineDispatcher 是进程内的有界队列，由固定数量的 worker 写库；队列满时丢弃事件。
type InlineDispatcher struct {
	recorder Recorder
	logger   *slog.Logger
	events   chan Event
	wg       sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewInlineDispatcher(recorder Recorder, logger *slog.Logger, workers, buffer int) *InlineDispatcher {
	if workers <= 0 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	d := &InlineDispatcher{
		recorder: recorder,
		logger:   logger,
		events:   make(chan Event, buffer),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

func (d *InlineDispatcher) Submit(_ context.Context, ev Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		metrics.AnalyticsDropped(string(ev.Kind), "closed")
		return false
	}
	select {
	case d.events <- ev:
		metrics.AnalyticsSubmitted(string(ev.Kind))
		return true
	default:
		metrics.AnalyticsDropped(string(ev.Kind), "queue_full")
		return false
	}
}

// Close 停止接收新事件，并等待已排队的事件写完或 ctx 到期。
func (d *InlineDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *InlineDispatcher) run() {
	defer d.wg.Done()
	for ev := range d.events {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := d.recorder.Record(ctx, ev); err != nil {
			d.logger.Warn("record analytics event failed",
				slog.String("kind", string(ev.Kind)),
				slog.String("correlation_id", ev.CorrelationID),
				slog.Any("error", err),
			)
		}
		cancel()
	}
}

// RateLimited 在 next 前放置令牌桶；令牌耗尽时直接丢弃事件。
type RateLimited struct {
	next    Dispatcher
	limiter *rate.Limiter
}

func NewRateLimited(next Dispatcher, perSecond float64, burst int) *RateLimited {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (r *RateLimited) Submit(ctx context.Context, ev Event) bool {
	if !r.limiter.Allow() {
		metrics.AnalyticsDropped(string(ev.Kind), "rate_limited")
		return false
	}
	return r.next.Submit(ctx, ev)
}

func (r *RateLimited) Close(ctx context.Context) error {
	return r.next.Close(ctx)
}

