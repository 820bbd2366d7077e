package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"linkpage/internal/database"
)

// DayLayout 是日序列中日期的格式。
const DayLayout = "2006-01-02"

// Summary 是页面的累计与当日统计。
type Summary struct {
	TotalViews  int64 `json:"totalViews"`
	TotalClicks int64 `json:"totalClicks"`
	TodayViews  int64 `json:"todayViews"`
	TodayClicks int64 `json:"todayClicks"`
}

// DailyStat 是一天的访问与点击数。
type DailyStat struct {
	Date   string `json:"date"`
	Views  int64  `json:"views"`
	Clicks int64  `json:"clicks"`
}

// LinkStat 是单个链接在统计窗口内的点击数。
type LinkStat struct {
	LinkID uuid.UUID `json:"linkId"`
	Label  string    `json:"label"`
	URL    string    `json:"url"`
	Clicks int64     `json:"clicks"`
}

// AnalyticsRepository 管理 page_views 与 link_clicks 两张只追加的事件表。
type AnalyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func (r *AnalyticsRepository) InsertView(ctx context.Context, view *database.PageView) error {
	if err := r.db.WithContext(ctx).Create(view).Error; err != nil {
		return fmt.Errorf("insert page view: %w", err)
	}
	return nil
}

func (r *AnalyticsRepository) InsertClick(ctx context.Context, click *database.LinkClick) error {
	if err := r.db.WithContext(ctx).Create(click).Error; err != nil {
		return fmt.Errorf("insert link click: %w", err)
	}
	return nil
}

// Summary 统计累计值与 since（当日零点，UTC）之后的值。
func (r *AnalyticsRepository) Summary(ctx context.Context, profileID uuid.UUID, since time.Time) (Summary, error) {
	var s Summary
	counts := []struct {
		model  any
		column string
		since  bool
		dst    *int64
	}{
		{&database.PageView{}, "viewed_at", false, &s.TotalViews},
		{&database.LinkClick{}, "clicked_at", false, &s.TotalClicks},
		{&database.PageView{}, "viewed_at", true, &s.TodayViews},
		{&database.LinkClick{}, "clicked_at", true, &s.TodayClicks},
	}
	for _, c := range counts {
		query := r.db.WithContext(ctx).Model(c.model).Where("profile_id = ?", profileID)
		if c.since {
			query = query.Where(c.column+" >= ?", since.UTC())
		}
		if err := query.Count(c.dst).Error; err != nil {
			return Summary{}, fmt.Errorf("count %s: %w", c.column, err)
		}
	}
	return s, nil
}

type dayCount struct {
	Day   string
	Count int64
}

// DailyStats 返回从 since 所在日到 until 所在日（含）逐日的访问与点击数，无事件的日期补零，最早的日期在前。
func (r *AnalyticsRepository) DailyStats(ctx context.Context, profileID uuid.UUID, since, until time.Time) ([]DailyStat, error) {
	views, err := r.countByDay(ctx, &database.PageView{}, "viewed_at", profileID, since)
	if err != nil {
		return nil, err
	}
	clicks, err := r.countByDay(ctx, &database.LinkClick{}, "clicked_at", profileID, since)
	if err != nil {
		return nil, err
	}

	start := truncateDay(since)
	end := truncateDay(until)
	stats := make([]DailyStat, 0, int(end.Sub(start).Hours()/24)+1)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(DayLayout)
		stats = append(stats, DailyStat{Date: key, Views: views[key], Clicks: clicks[key]})
	}
	return stats, nil
}

func (r *AnalyticsRepository) countByDay(ctx context.Context, model any, column string, profileID uuid.UUID, since time.Time) (map[string]int64, error) {
	dayExpr := r.dayExpression(column)
	var rows []dayCount
	err := r.db.WithContext(ctx).
		Model(model).
		Select(dayExpr+" AS day, COUNT(*) AS count").
		Where("profile_id = ? AND "+column+" >= ?", profileID, truncateDay(since)).
		Group(dayExpr).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count %s by day: %w", column, err)
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Day] = row.Count
	}
	return out, nil
}

// dayExpression 生成按 UTC 日期分组的表达式；连接会话时区固定为 UTC。
func (r *AnalyticsRepository) dayExpression(column string) string {
	switch r.db.Dialector.Name() {
	case "sqlite":
		return "strftime('%Y-%m-%d', " + column + ")"
	default:
		return "to_char(" + column + ", 'YYYY-MM-DD')"
	}
}

type linkClickCount struct {
	LinkID uuid.UUID
	Count  int64
}

// LinkStats 返回页面每个链接自 since 起的点击数，按点击数降序、sort_order 升序排列。
func (r *AnalyticsRepository) LinkStats(ctx context.Context, profileID uuid.UUID, since time.Time) ([]LinkStat, error) {
	var links []database.ProfileLink
	if err := r.db.WithContext(ctx).Where("profile_id = ?", profileID).Order("sort_order ASC").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	var rows []linkClickCount
	err := r.db.WithContext(ctx).
		Model(&database.LinkClick{}).
		Select("link_id, COUNT(*) AS count").
		Where("profile_id = ? AND clicked_at >= ?", profileID, truncateDay(since)).
		Group("link_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count clicks by link: %w", err)
	}
	clicks := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		clicks[row.LinkID] = row.Count
	}

	stats := make([]LinkStat, 0, len(links))
	for _, l := range links {
		stats = append(stats, LinkStat{LinkID: l.ID, Label: l.Label, URL: l.URL, Clicks: clicks[l.ID]})
	}
	// 输入已按 sort_order 升序，稳定排序保留同点击数时的展示顺序。
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Clicks > stats[j].Clicks
	})
	return stats, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
