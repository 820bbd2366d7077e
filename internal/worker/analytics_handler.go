// Package worker 消费 API 投递到 asynq 队列的后台任务。
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"linkpage/internal/tasks"
)

// AnalyticsTaskHandler 负责把 analytics:track 任务写入统计表。
type AnalyticsTaskHandler struct {
	recorder tasks.Recorder
	logger   *slog.Logger
}

// NewAnalyticsTaskHandler 创建任务处理器。
func NewAnalyticsTaskHandler(recorder tasks.Recorder, logger *slog.Logger) *AnalyticsTaskHandler {
	return &AnalyticsTaskHandler{recorder: recorder, logger: logger}
}

// ProcessTask 实现 asynq.Handler。负载无法解析的任务不再重试。
func (h *AnalyticsTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	ev, err := tasks.ParseEvent(t.Payload())
	if err != nil {
		h.logger.Warn("drop malformed analytics task", slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	log := h.logger.With(
		slog.String("correlation_id", ev.CorrelationID),
		slog.String("kind", string(ev.Kind)),
		slog.String("profile_id", ev.ProfileID.String()),
	)

	if err := h.recorder.Record(ctx, ev); err != nil {
		log.Error("record analytics event failed", slog.Any("error", err))
		return err
	}
	log.Debug("analytics event processed")
	return nil
}

// NewServeMux 注册 worker 处理的全部任务类型。
func NewServeMux(recorder tasks.Recorder, logger *slog.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(loggingMiddleware(logger))
	mux.Handle(tasks.TypeAnalyticsTrack, NewAnalyticsTaskHandler(recorder, logger))
	return mux
}

func loggingMiddleware(logger *slog.Logger) asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
			err := next.ProcessTask(ctx, t)
			if err != nil {
				retried, _ := asynq.GetRetryCount(ctx)
				logger.Warn("task failed",
					slog.String("type", t.Type()),
					slog.Int("retry", retried),
					slog.Any("error", err),
				)
			}
			return err
		})
	}
}
