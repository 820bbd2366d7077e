// Package repository 封装基于 GORM 的持久化访问，每个实体一个仓储。
package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound 表示目标记录不存在或不属于调用方。
	ErrNotFound = errors.New("record not found")
	// ErrConflict 表示违反唯一约束。
	ErrConflict = errors.New("unique constraint violated")
)

// Repositories 聚合全部仓储，共享同一个数据库句柄。
type Repositories struct {
	Users     *UserRepository
	Profiles  *ProfileRepository
	Links     *LinkRepository
	Analytics *AnalyticsRepository
}

// New 基于注入的句柄构造全部仓储。
func New(db *gorm.DB) Repositories {
	return Repositories{
		Users:     NewUserRepository(db),
		Profiles:  NewProfileRepository(db),
		Links:     NewLinkRepository(db),
		Analytics: NewAnalyticsRepository(db),
	}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isUniqueViolation(err):
		return ErrConflict
	default:
		return err
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
