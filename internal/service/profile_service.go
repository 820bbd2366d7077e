package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"unicode/utf8"

	"github.com/google/uuid"

	"linkpage/internal/database"
	"linkpage/internal/errcode"
	"linkpage/internal/patch"
	"linkpage/internal/repository"
	"linkpage/internal/storage"
	"linkpage/internal/theme"
)

const (
	slugAlphabet      = "abcdefghijklmnopqrstuvwxyz0123456789"
	generatedSlugLen  = 8
	slugCreateRetries = 5
	SlugMinLength     = 3
	SlugMaxLength     = 30
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// 与前端路由或系统路径冲突的 slug。
var reservedSlugs = map[string]struct{}{
	"admin":           {},
	"api":             {},
	"app":             {},
	"dashboard":       {},
	"forgot-password": {},
	"health":          {},
	"login":           {},
	"logout":          {},
	"metrics":         {},
	"reset-password":  {},
	"settings":        {},
	"signup":          {},
	"static":          {},
	"verify-email":    {},
}

// ValidSlug 判断 slug 的长度与字符集是否合法。
func ValidSlug(slug string) bool {
	n := utf8.RuneCountInString(slug)
	return n >= SlugMinLength && n <= SlugMaxLength && slugPattern.MatchString(slug)
}

// ProfileService 管理用户的页面。每个用户至少保留一个页面。
type ProfileService struct {
	profiles *repository.ProfileRepository
	images   storage.ImageStore
	logger   *slog.Logger
}

func NewProfileService(repos repository.Repositories, images storage.ImageStore, logger *slog.Logger) *ProfileService {
	return &ProfileService{profiles: repos.Profiles, images: images, logger: loggerOrDefault(logger)}
}

// GetProfiles 按创建时间返回用户的全部页面；一个都没有时先创建默认页面。
func (s *ProfileService) GetProfiles(ctx context.Context, userID uuid.UUID) ([]database.Profile, error) {
	profiles, err := s.profiles.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(profiles) > 0 {
		return profiles, nil
	}

	profile, err := s.create(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	s.logger.Info("default profile provisioned",
		slog.String("user_id", userID.String()),
		slog.String("profile_id", profile.ID.String()),
	)
	return []database.Profile{*profile}, nil
}

// GetProfile 返回指定页面；profileID 为 uuid.Nil 时返回第一个页面。
func (s *ProfileService) GetProfile(ctx context.Context, userID, profileID uuid.UUID) (*database.Profile, error) {
	if profileID != uuid.Nil {
		return ownedProfile(ctx, s.profiles, userID, profileID)
	}
	profiles, err := s.GetProfiles(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &profiles[0], nil
}

// CreateProfile 创建一个新页面，slug 随机生成。
func (s *ProfileService) CreateProfile(ctx context.Context, userID uuid.UUID, displayName string) (*database.Profile, error) {
	displayName = stripMarkup(displayName)
	if utf8.RuneCountInString(displayName) > 50 {
		return nil, errcode.Validation("display_name must be at most 50 characters")
	}
	return s.create(ctx, userID, displayName)
}

// UpdateProfile 只写入补丁中出现的列。
func (s *ProfileService) UpdateProfile(ctx context.Context, userID, profileID uuid.UUID, p database.ProfilePatch) (*database.Profile, error) {
	current, err := ownedProfile(ctx, s.profiles, userID, profileID)
	if err != nil {
		return nil, err
	}
	if err := s.normalize(&p); err != nil {
		return nil, err
	}
	if p.Empty() {
		return current, nil
	}
	return s.apply(ctx, userID, profileID, p)
}

// UpdateSlug 修改页面 slug；已被其他页面占用或属于保留字时返回 SLUG_TAKEN。
// 唯一性检查与写入不在同一事务内，并发冲突由唯一索引兜底。
func (s *ProfileService) UpdateSlug(ctx context.Context, userID, profileID uuid.UUID, slug string) (*database.Profile, error) {
	if _, err := ownedProfile(ctx, s.profiles, userID, profileID); err != nil {
		return nil, err
	}
	if !ValidSlug(slug) {
		return nil, errcode.Validation("slug must be 3-30 lowercase letters, digits or hyphens")
	}
	if _, reserved := reservedSlugs[slug]; reserved {
		return nil, errcode.ErrSlugTaken
	}

	available, err := s.profiles.SlugAvailable(ctx, slug, profileID)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, errcode.ErrSlugTaken
	}

	profile, err := s.profiles.Update(ctx, profileID, userID, map[string]any{"slug": slug})
	switch {
	case errors.Is(err, repository.ErrConflict):
		return nil, errcode.ErrSlugTaken
	case errors.Is(err, repository.ErrNotFound):
		return nil, errcode.ErrProfileNotFound
	case err != nil:
		return nil, err
	}
	return profile, nil
}

// DeleteProfile 删除页面及其链接与统计；用户只剩一个页面时拒绝。
func (s *ProfileService) DeleteProfile(ctx context.Context, userID, profileID uuid.UUID) error {
	if _, err := ownedProfile(ctx, s.profiles, userID, profileID); err != nil {
		return err
	}
	count, err := s.profiles.CountByUser(ctx, userID)
	if err != nil {
		return err
	}
	if count <= 1 {
		return errcode.ErrMinProfile
	}

	if err := s.profiles.Delete(ctx, profileID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errcode.ErrProfileNotFound
		}
		return err
	}
	if err := s.images.RemoveProfile(ctx, profileID); err != nil {
		s.logger.Warn("remove profile images failed", slog.String("profile_id", profileID.String()), slog.Any("error", err))
	}
	return nil
}

// Authorize 确认调用方拥有页面，供上传在读取文件前快速拒绝。
func (s *ProfileService) Authorize(ctx context.Context, userID, profileID uuid.UUID) error {
	_, err := ownedProfile(ctx, s.profiles, userID, profileID)
	return err
}

// SetAvatar 保存头像并替换旧图。
func (s *ProfileService) SetAvatar(ctx context.Context, userID, profileID uuid.UUID, img storage.Image) (*database.Profile, error) {
	return s.replaceImage(ctx, userID, profileID, img, func(p *database.ProfilePatch, url string) {
		p.AvatarURL = patch.Value(url)
	}, func(p *database.Profile) *string { return p.AvatarURL })
}

// SetBackgroundImage 保存背景图并替换旧图。
func (s *ProfileService) SetBackgroundImage(ctx context.Context, userID, profileID uuid.UUID, img storage.Image) (*database.Profile, error) {
	return s.replaceImage(ctx, userID, profileID, img, func(p *database.ProfilePatch, url string) {
		p.BackgroundImageURL = patch.Value(url)
	}, func(p *database.Profile) *string { return p.BackgroundImageURL })
}

// ClearBackgroundImage 清除背景图。
func (s *ProfileService) ClearBackgroundImage(ctx context.Context, userID, profileID uuid.UUID) (*database.Profile, error) {
	current, err := ownedProfile(ctx, s.profiles, userID, profileID)
	if err != nil {
		return nil, err
	}
	updated, err := s.apply(ctx, userID, profileID, database.ProfilePatch{BackgroundImageURL: patch.Null[string]()})
	if err != nil {
		return nil, err
	}
	s.removeImage(ctx, current.BackgroundImageURL)
	return updated, nil
}

func (s *ProfileService) replaceImage(
	ctx context.Context,
	userID, profileID uuid.UUID,
	img storage.Image,
	set func(*database.ProfilePatch, string),
	previous func(*database.Profile) *string,
) (*database.Profile, error) {
	current, err := ownedProfile(ctx, s.profiles, userID, profileID)
	if err != nil {
		return nil, err
	}

	url, err := s.images.Save(ctx, profileID, img)
	if err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}

	var p database.ProfilePatch
	set(&p, url)
	updated, err := s.apply(ctx, userID, profileID, p)
	if err != nil {
		s.removeImage(ctx, &url)
		return nil, err
	}

	s.removeImage(ctx, previous(current))
	return updated, nil
}

func (s *ProfileService) removeImage(ctx context.Context, url *string) {
	if url == nil || *url == "" {
		return
	}
	if err := s.images.Remove(ctx, *url); err != nil {
		s.logger.Warn("remove previous image failed", slog.Any("error", err))
	}
}

func (s *ProfileService) apply(ctx context.Context, userID, profileID uuid.UUID, p database.ProfilePatch) (*database.Profile, error) {
	cols, err := p.Columns()
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.Update(ctx, profileID, userID, cols)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errcode.ErrProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}

// normalize 清洗文本字段并校验业务约束。
func (s *ProfileService) normalize(p *database.ProfilePatch) error {
	if p.DisplayName.Set {
		if p.DisplayName.Null {
			return errcode.Validation("display_name must not be null")
		}
		p.DisplayName.Value = stripMarkup(p.DisplayName.Value)
		if p.DisplayName.Value == "" {
			return errcode.Validation("display_name must not be empty")
		}
	}
	if p.Bio.Present() {
		p.Bio.Value = stripMarkup(p.Bio.Value)
	}
	if p.ThemePreset.Set {
		if p.ThemePreset.Null || !theme.Exists(p.ThemePreset.Value) {
			return errcode.Validation("theme_preset is not a known preset")
		}
	}
	if p.SocialLinks.Present() && len(p.SocialLinks.Value) > database.MaxSocialLinks {
		return errcode.Validation(fmt.Sprintf("social_links can have at most %d entries", database.MaxSocialLinks))
	}
	return nil
}

// create 生成随机 slug 插入页面，唯一冲突时重试。
func (s *ProfileService) create(ctx context.Context, userID uuid.UUID, displayName string) (*database.Profile, error) {
	for attempt := 0; attempt < slugCreateRetries; attempt++ {
		slug, err := randomSlug()
		if err != nil {
			return nil, err
		}
		profile := &database.Profile{UserID: userID, Slug: slug, DisplayName: displayName}
		err = s.profiles.Create(ctx, profile)
		if err == nil {
			return profile, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, err
		}
	}
	return nil, errors.New("could not allocate a unique slug")
}

func randomSlug() (string, error) {
	buf := make([]byte, generatedSlugLen)
	limit := big.NewInt(int64(len(slugAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate slug: %w", err)
		}
		buf[i] = slugAlphabet[n.Int64()]
	}
	return string(buf), nil
}
