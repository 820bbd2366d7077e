package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"linkpage/internal/errcode"
	"linkpage/internal/repository"
	"linkpage/internal/theme"
)

// PublicProfile 是公开页的页面信息，不含 user_id。
type PublicProfile struct {
	ID                 uuid.UUID      `json:"id"`
	Slug               string         `json:"slug"`
	DisplayName        string         `json:"display_name"`
	Bio                *string        `json:"bio"`
	AvatarURL          *string        `json:"avatar_url"`
	BackgroundImageURL *string        `json:"background_image_url"`
	SocialLinks        datatypes.JSON `json:"social_links"`
	ThemePreset        string         `json:"theme_preset"`
	ThemeOverrides     datatypes.JSON `json:"theme_overrides"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// PublicLink 是公开页上的链接，不含 profile_id。
type PublicLink struct {
	ID          uuid.UUID `json:"id"`
	Label       string    `json:"label"`
	URL         string    `json:"url"`
	Description *string   `json:"description"`
	Icon        *string   `json:"icon"`
	IsActive    bool      `json:"is_active"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PublicPage 是 GET /public/profile/:slug 的响应体。
type PublicPage struct {
	Profile    PublicProfile    `json:"profile"`
	Links      []PublicLink     `json:"links"`
	Theme      theme.Resolved   `json:"theme"`
	Background theme.Background `json:"background"`
}

// PublicService 提供匿名访问的页面数据。
type PublicService struct {
	profiles *repository.ProfileRepository
	links    *repository.LinkRepository
}

func NewPublicService(repos repository.Repositories) *PublicService {
	return &PublicService{profiles: repos.Profiles, links: repos.Links}
}

// GetPublicProfile 按 slug 返回页面与启用中的链接。
func (s *PublicService) GetPublicProfile(ctx context.Context, slug string) (*PublicPage, error) {
	profile, err := s.profiles.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errcode.ErrNotFound
		}
		return nil, err
	}

	links, err := s.links.ListActiveByProfile(ctx, profile.ID)
	if err != nil {
		return nil, err
	}

	page := &PublicPage{
		Profile: PublicProfile{
			ID:                 profile.ID,
			Slug:               profile.Slug,
			DisplayName:        profile.DisplayName,
			Bio:                profile.Bio,
			AvatarURL:          profile.AvatarURL,
			BackgroundImageURL: profile.BackgroundImageURL,
			SocialLinks:        profile.SocialLinks,
			ThemePreset:        profile.ThemePreset,
			ThemeOverrides:     profile.ThemeOverrides,
			CreatedAt:          profile.CreatedAt,
			UpdatedAt:          profile.UpdatedAt,
		},
		Links:      make([]PublicLink, 0, len(links)),
		Theme:      theme.Resolve(profile.ThemePreset, profile.Overrides()),
		Background: theme.BackgroundStyle(profile.ThemePreset, profile.Overrides(), profile.BackgroundImage()),
	}
	for _, l := range links {
		page.Links = append(page.Links, PublicLink{
			ID:          l.ID,
			Label:       l.Label,
			URL:         l.URL,
			Description: l.Description,
			Icon:        l.Icon,
			IsActive:    l.IsActive,
			SortOrder:   l.SortOrder,
			CreatedAt:   l.CreatedAt,
			UpdatedAt:   l.UpdatedAt,
		})
	}
	return page, nil
}

// Themes 返回主题预设目录。
func (s *PublicService) Themes() []theme.Preset {
	return theme.Presets()
}
