// Package service 实现账号、页面、链接、统计与公开页的业务规则。
// 所有按用户划分的操作先校验归属；不存在与不属于调用方一律返回 404，避免泄露资源是否存在。
package service

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"linkpage/internal/database"
	"linkpage/internal/errcode"
	"linkpage/internal/repository"
)

// markup 去除用户输入中的全部 HTML。
var markup = bluemonday.StrictPolicy()

// stripMarkup 去掉标签后还原实体，存储纯文本；转义由渲染端负责。
func stripMarkup(s string) string {
	return strings.TrimSpace(html.UnescapeString(markup.Sanitize(s)))
}

// ownedProfile 返回属于 userID 的页面，否则返回 PROFILE_NOT_FOUND。
func ownedProfile(ctx context.Context, profiles *repository.ProfileRepository, userID, profileID uuid.UUID) (*database.Profile, error) {
	profile, err := profiles.FindOwned(ctx, profileID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errcode.ErrProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
