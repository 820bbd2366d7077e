package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"linkpage/internal/database"
)

// ProfileRepository 管理 profiles 表。所有写操作都以 user_id 为范围条件。
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// ListByUser 按创建时间升序返回用户的全部页面。
func (r *ProfileRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]database.Profile, error) {
	var profiles []database.Profile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

// FindOwned 返回属于 userID 的页面；不存在与不属于调用方同样返回 ErrNotFound。
func (r *ProfileRepository) FindOwned(ctx context.Context, id, userID uuid.UUID) (*database.Profile, error) {
	return r.findOne(ctx, "id = ? AND user_id = ?", id, userID)
}

func (r *ProfileRepository) FindBySlug(ctx context.Context, slug string) (*database.Profile, error) {
	return r.findOne(ctx, "slug = ?", slug)
}

func (r *ProfileRepository) findOne(ctx context.Context, query string, args ...any) (*database.Profile, error) {
	var profile database.Profile
	if err := r.db.WithContext(ctx).Where(query, args...).Take(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &profile, nil
}

// Exists 判断页面是否存在。
func (r *ProfileRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&database.Profile{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count profile: %w", err)
	}
	return count > 0, nil
}

// CountByUser 返回用户拥有的页面数量。
func (r *ProfileRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&database.Profile{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return count, nil
}

// Create 插入页面；slug 冲突时返回 ErrConflict。
func (r *ProfileRepository) Create(ctx context.Context, profile *database.Profile) error {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		if err = translate(err); errors.Is(err, ErrConflict) {
			return err
		}
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// Update 写入补丁列并返回更新后的页面。
func (r *ProfileRepository) Update(ctx context.Context, id, userID uuid.UUID, cols map[string]any) (*database.Profile, error) {
	if len(cols) > 0 {
		result := r.db.WithContext(ctx).
			Model(&database.Profile{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(cols)
		if result.Error != nil {
			if isUniqueViolation(result.Error) {
				return nil, ErrConflict
			}
			return nil, fmt.Errorf("update profile: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return r.FindOwned(ctx, id, userID)
}

// SlugAvailable 判断 slug 是否未被除 excludeID 以外的页面占用。
func (r *ProfileRepository) SlugAvailable(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&database.Profile{}).
		Where("slug = ? AND id <> ?", slug, excludeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return count == 0, nil
}

// Delete 在一个事务中删除页面及其链接与统计数据。
func (r *ProfileRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&database.Profile{}).Where("id = ? AND user_id = ?", id, userID).Count(&count).Error; err != nil {
			return fmt.Errorf("check profile: %w", err)
		}
		if count == 0 {
			return ErrNotFound
		}
		return deleteProfileRows(tx, []uuid.UUID{id})
	})
}
