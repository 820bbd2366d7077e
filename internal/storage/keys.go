package storage

import (
	"path"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidAssetKey 校验对象键形如 profile-assets/<profileID>/<uuid><ext>，拒绝路径穿越与其他前缀。
func ValidAssetKey(key string) bool {
	if key == "" || len(key) > 200 || !utf8.ValidString(key) {
		return false
	}
	if strings.Contains(key, "..") || strings.Contains(key, "\\") || strings.Contains(key, "//") {
		return false
	}
	rest, ok := strings.CutPrefix(key, assetKeyPrefix)
	if !ok {
		return false
	}
	profilePart, file, ok := strings.Cut(rest, "/")
	if !ok || strings.Contains(file, "/") {
		return false
	}
	if _, err := uuid.Parse(profilePart); err != nil {
		return false
	}
	ext := path.Ext(file)
	if ext == "" {
		return false
	}
	_, err := uuid.Parse(strings.TrimSuffix(file, ext))
	return err == nil
}
