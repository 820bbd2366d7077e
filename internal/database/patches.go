package database

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"linkpage/internal/patch"
	"linkpage/internal/theme"
)

// ProfilePatch 列出 profiles 表允许部分更新的全部列。
// 缺省字段不写入；可空列上的 null 写入 NULL。
type ProfilePatch struct {
	DisplayName        patch.Field[string]
	Bio                patch.Field[string]
	AvatarURL          patch.Field[string]
	BackgroundImageURL patch.Field[string]
	SocialLinks        patch.Field[[]SocialLink]
	ThemePreset        patch.Field[string]
	ThemeOverrides     patch.Field[theme.Overrides]
}

// Columns 将补丁转换为固定列集合上的赋值。
func (p ProfilePatch) Columns() (map[string]any, error) {
	cols := make(map[string]any)

	if p.DisplayName.Present() {
		cols["display_name"] = p.DisplayName.Value
	}
	setNullable(cols, "bio", p.Bio)
	setNullable(cols, "avatar_url", p.AvatarURL)
	setNullable(cols, "background_image_url", p.BackgroundImageURL)
	if p.ThemePreset.Present() {
		cols["theme_preset"] = p.ThemePreset.Value
	}

	if err := setJSON(cols, "social_links", p.SocialLinks); err != nil {
		return nil, err
	}
	if err := setJSON(cols, "theme_overrides", p.ThemeOverrides); err != nil {
		return nil, err
	}

	return cols, nil
}

// Empty 表示补丁不包含任何字段。
func (p ProfilePatch) Empty() bool {
	return !p.DisplayName.Set && !p.Bio.Set && !p.AvatarURL.Set && !p.BackgroundImageURL.Set &&
		!p.SocialLinks.Set && !p.ThemePreset.Set && !p.ThemeOverrides.Set
}

// LinkPatch 列出 profile_links 表允许部分更新的列；sort_order 只能通过重排修改。
type LinkPatch struct {
	Label       patch.Field[string]
	URL         patch.Field[string]
	Description patch.Field[string]
	Icon        patch.Field[string]
	IsActive    patch.Field[bool]
}

// Columns 将补丁转换为固定列集合上的赋值。
func (p LinkPatch) Columns() map[string]any {
	cols := make(map[string]any)

	if p.Label.Present() {
		cols["label"] = p.Label.Value
	}
	if p.URL.Present() {
		cols["url"] = p.URL.Value
	}
	setNullable(cols, "description", p.Description)
	setNullable(cols, "icon", p.Icon)
	if p.IsActive.Present() {
		cols["is_active"] = p.IsActive.Value
	}

	return cols
}

func setNullable(cols map[string]any, column string, f patch.Field[string]) {
	switch {
	case !f.Set:
	case f.Null:
		cols[column] = nil
	default:
		cols[column] = f.Value
	}
}

func setJSON[T any](cols map[string]any, column string, f patch.Field[T]) error {
	switch {
	case !f.Set:
		return nil
	case f.Null:
		cols[column] = nil
		return nil
	}
	raw, err := json.Marshal(f.Value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", column, err)
	}
	cols[column] = datatypes.JSON(raw)
	return nil
}
