package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"linkpage/internal/database"
)

// ErrLimitReached 表示页面上的链接数已达上限。
var ErrLimitReached = errors.New("link limit reached")

// LinkOrder 是重排请求中的一项。
type LinkOrder struct {
	ID        uuid.UUID
	SortOrder int
}

// LinkRepository 管理 profile_links 表。所有单行操作都以 profile_id 为范围条件。
type LinkRepository struct {
	db *gorm.DB
}

func NewLinkRepository(db *gorm.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// ListByProfile 按 sort_order 升序返回页面的全部链接。
func (r *LinkRepository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]database.ProfileLink, error) {
	return listLinks(r.db.WithContext(ctx).Where("profile_id = ?", profileID))
}

// ListActiveByProfile 只返回启用中的链接。
func (r *LinkRepository) ListActiveByProfile(ctx context.Context, profileID uuid.UUID) ([]database.ProfileLink, error) {
	return listLinks(r.db.WithContext(ctx).Where("profile_id = ? AND is_active = ?", profileID, true))
}

func listLinks(query *gorm.DB) ([]database.ProfileLink, error) {
	links := make([]database.ProfileLink, 0)
	if err := query.Order("sort_order ASC").Order("created_at ASC").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

// Count 返回页面的链接数量。
// FindInProfile 返回属于 profileID 的链接。
func (r *LinkRepository) FindInProfile(ctx context.Context, id, profileID uuid.UUID) (*database.ProfileLink, error) {
	var link database.ProfileLink
	if err := r.db.WithContext(ctx).Where("id = ? AND profile_id = ?", id, profileID).Take(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find link: %w", err)
	}
	return &link, nil
}

// Append 将链接追加到末尾：sort_order 取当前最大值加一，无链接时为 0。
// 计数与取序号在同一事务内、父页面行锁之下完成，并发追加不会超过 limit 或产生重复序号。
func (r *LinkRepository) Append(ctx context.Context, link *database.ProfileLink, limit int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var parent database.Profile
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", link.ProfileID).
			Take(&parent).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("lock profile: %w", err)
		}

		var count int64
		if err := tx.Model(&database.ProfileLink{}).Where("profile_id = ?", link.ProfileID).Count(&count).Error; err != nil {
			return fmt.Errorf("count links: %w", err)
		}
		if count >= limit {
			return ErrLimitReached
		}

		var next int
		err = tx.Model(&database.ProfileLink{}).
			Where("profile_id = ?", link.ProfileID).
			Select("COALESCE(MAX(sort_order), -1) + 1").
			Scan(&next).Error
		if err != nil {
			return fmt.Errorf("next sort order: %w", err)
		}
		link.SortOrder = next
		if err := tx.Create(link).Error; err != nil {
			return fmt.Errorf("create link: %w", err)
		}
		return nil
	})
}

// Update 写入补丁列并返回更新后的链接。
func (r *LinkRepository) Update(ctx context.Context, id, profileID uuid.UUID, cols map[string]any) (*database.ProfileLink, error) {
	if len(cols) > 0 {
		result := r.db.WithContext(ctx).
			Model(&database.ProfileLink{}).
			Where("id = ? AND profile_id = ?", id, profileID).
			Updates(cols)
		if result.Error != nil {
			return nil, fmt.Errorf("update link: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return r.FindInProfile(ctx, id, profileID)
}

// Delete 硬删除链接。
func (r *LinkRepository) Delete(ctx context.Context, id, profileID uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ? AND profile_id = ?", id, profileID).Delete(&database.ProfileLink{})
	if result.Error != nil {
		return fmt.Errorf("delete link: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Reorder 在单个事务中逐条更新 sort_order；任一 ID 不属于该页面时整体回滚并返回 ErrNotFound。
// 并发重排按行覆盖，最后写入者生效。
func (r *LinkRepository) Reorder(ctx context.Context, profileID uuid.UUID, orders []LinkOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, o := range orders {
			result := tx.Model(&database.ProfileLink{}).
				Where("id = ? AND profile_id = ?", o.ID, profileID).
				Update("sort_order", o.SortOrder)
			if result.Error != nil {
				return fmt.Errorf("update sort order: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				return ErrNotFound
			}
		}
		return nil
	})
}

// BelongsTo 判断链接是否属于页面。
func (r *LinkRepository) BelongsTo(ctx context.Context, id, profileID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&database.ProfileLink{}).
		Where("id = ? AND profile_id = ?", id, profileID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check link: %w", err)
	}
	return count > 0, nil
}
