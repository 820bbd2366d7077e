package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"linkpage/internal/database"
)

// UserRepository 管理 users 表。
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create 插入新用户；邮箱重复时返回 ErrConflict。
func (r *UserRepository) Create(ctx context.Context, user *database.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*database.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*database.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

// FindByVerifyToken 查找持有未过期邮箱验证令牌的用户。
func (r *UserRepository) FindByVerifyToken(ctx context.Context, token string, now time.Time) (*database.User, error) {
	return r.findOne(ctx, "email_verify_token = ? AND email_verify_expires > ?", token, now)
}

// FindByResetToken 查找持有未过期密码重置令牌的用户。
func (r *UserRepository) FindByResetToken(ctx context.Context, token string, now time.Time) (*database.User, error) {
	return r.findOne(ctx, "password_reset_token = ? AND password_reset_expires > ?", token, now)
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...any) (*database.User, error) {
	var user database.User
	if err := r.db.WithContext(ctx).Where(query, args...).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// MarkVerified 标记邮箱已验证并清除验证令牌。
func (r *UserRepository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, map[string]any{
		"email_verified":       true,
		"email_verify_token":   nil,
		"email_verify_expires": nil,
	})
}

// SetResetToken 写入密码重置令牌及其过期时间。
func (r *UserRepository) SetResetToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error {
	return r.update(ctx, id, map[string]any{
		"password_reset_token":   token,
		"password_reset_expires": expires,
	})
}

// UpdatePassword 更新密码哈希，并使未使用的重置令牌失效。
func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.update(ctx, id, map[string]any{
		"password_hash":          hash,
		"password_reset_token":   nil,
		"password_reset_expires": nil,
	})
}

func (r *UserRepository) update(ctx context.Context, id uuid.UUID, cols map[string]any) error {
	result := r.db.WithContext(ctx).Model(&database.User{}).Where("id = ?", id).Updates(cols)
	if result.Error != nil {
		return fmt.Errorf("update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete 在一个事务中删除用户及其全部页面、链接与统计数据。
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profileIDs []uuid.UUID
		if err := tx.Model(&database.Profile{}).Where("user_id = ?", id).Pluck("id", &profileIDs).Error; err != nil {
			return fmt.Errorf("list profiles: %w", err)
		}
		if err := deleteProfileRows(tx, profileIDs); err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&database.User{})
		if result.Error != nil {
			return fmt.Errorf("delete user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// deleteProfileRows 删除页面及其从属行。SQLite 默认不执行外键级联，因此逐表显式删除。
func deleteProfileRows(tx *gorm.DB, profileIDs []uuid.UUID) error {
	if len(profileIDs) == 0 {
		return nil
	}
	steps := []struct {
		name  string
		model any
	}{
		{"link clicks", &database.LinkClick{}},
		{"page views", &database.PageView{}},
		{"links", &database.ProfileLink{}},
	}
	for _, step := range steps {
		if err := tx.Where("profile_id IN ?", profileIDs).Delete(step.model).Error; err != nil {
			return fmt.Errorf("delete %s: %w", step.name, err)
		}
	}
	if err := tx.Where("id IN ?", profileIDs).Delete(&database.Profile{}).Error; err != nil {
		return fmt.Errorf("delete profiles: %w", err)
	}
	return nil
}
