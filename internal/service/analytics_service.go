package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"linkpage/internal/database"
	"linkpage/internal/live"
	"linkpage/internal/metrics"
	"linkpage/internal/repository"
	"linkpage/internal/tasks"
)

// 统计窗口。未知取值按 7 天处理。
var periodDays = map[string]int{
	"7d":  7,
	"30d": 30,
	"90d": 90,
}

const defaultPeriodDays = 7

// Report 是页面统计的响应体。
type Report struct {
	Summary    repository.Summary     `json:"summary"`
	DailyStats []repository.DailyStat `json:"dailyStats"`
	LinkStats  []repository.LinkStat  `json:"linkStats"`
}

// AnalyticsService 负责事件入库与统计查询。
type AnalyticsService struct {
	profiles  *repository.ProfileRepository
	links     *repository.LinkRepository
	analytics *repository.AnalyticsRepository
	publisher live.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewAnalyticsService(repos repository.Repositories, publisher live.Publisher, logger *slog.Logger) *AnalyticsService {
	if publisher == nil {
		publisher = live.Nop{}
	}
	return &AnalyticsService{
		profiles:  repos.Profiles,
		links:     repos.Links,
		analytics: repos.Analytics,
		publisher: publisher,
		logger:    loggerOrDefault(logger),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Record 写入一条访问或点击事件。
// 页面不存在或链接不属于该页面时静默丢弃；只有存储错误会返回。
func (s *AnalyticsService) Record(ctx context.Context, ev tasks.Event) error {
	kind := string(ev.Kind)

	stored, err := s.store(ctx, ev)
	if err != nil {
		metrics.AnalyticsRecorded(kind, "failed")
		return err
	}
	if !stored {
		metrics.AnalyticsRecorded(kind, "discarded")
		return nil
	}
	metrics.AnalyticsRecorded(kind, "stored")

	msg := live.Message{
		Type:       kind,
		ProfileID:  ev.ProfileID,
		Referrer:   ev.Referrer,
		OccurredAt: ev.OccurredAt,
	}
	if ev.Kind == tasks.KindClick {
		linkID := ev.LinkID
		msg.LinkID = &linkID
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.Warn("publish live event failed",
			slog.String("profile_id", ev.ProfileID.String()),
			slog.Any("error", err),
		)
	}
	return nil
}

func (s *AnalyticsService) store(ctx context.Context, ev tasks.Event) (bool, error) {
	occurred := ev.OccurredAt.UTC()

	switch ev.Kind {
	case tasks.KindView:
		exists, err := s.profiles.Exists(ctx, ev.ProfileID)
		if err != nil || !exists {
			return false, err
		}
		return true, s.analytics.InsertView(ctx, &database.PageView{
			ProfileID: ev.ProfileID,
			Referrer:  ev.Referrer,
			UserAgent: ev.UserAgent,
			IPHash:    ev.IPHash,
			ViewedAt:  occurred,
		})
	case tasks.KindClick:
		ok, err := s.links.BelongsTo(ctx, ev.LinkID, ev.ProfileID)
		if err != nil || !ok {
			return false, err
		}
		return true, s.analytics.InsertClick(ctx, &database.LinkClick{
			LinkID:    ev.LinkID,
			ProfileID: ev.ProfileID,
			Referrer:  ev.Referrer,
			UserAgent: ev.UserAgent,
			IPHash:    ev.IPHash,
			ClickedAt: occurred,
		})
	default:
		return false, nil
	}
}

// GetAnalytics 汇总页面在统计窗口内的数据。窗口按 UTC 自然日计算，包含今天。
func (s *AnalyticsService) GetAnalytics(ctx context.Context, userID, profileID uuid.UUID, period string) (*Report, error) {
	if _, err := ownedProfile(ctx, s.profiles, userID, profileID); err != nil {
		return nil, err
	}

	days, ok := periodDays[period]
	if !ok {
		days = defaultPeriodDays
	}
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	since := today.AddDate(0, 0, -(days - 1))

	summary, err := s.analytics.Summary(ctx, profileID, today)
	if err != nil {
		return nil, err
	}
	daily, err := s.analytics.DailyStats(ctx, profileID, since, today)
	if err != nil {
		return nil, err
	}
	links, err := s.analytics.LinkStats(ctx, profileID, since)
	if err != nil {
		return nil, err
	}

	return &Report{Summary: summary, DailyStats: daily, LinkStats: links}, nil
}

// Authorize 确认调用方拥有页面，供实时推送订阅前使用。
func (s *AnalyticsService) Authorize(ctx context.Context, userID, profileID uuid.UUID) error {
	_, err := ownedProfile(ctx, s.profiles, userID, profileID)
	return err
}
