package database

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"linkpage/internal/theme"
)

// 默认值
const (
	DefaultDisplayName = "My Page"
	MaxLinksPerProfile = 50
	MaxSocialLinks     = 10
)

// User 表示系统中的账号信息。
type User struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email                string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash         string     `gorm:"size:255;not null" json:"-"`
	EmailVerified        bool       `gorm:"not null;default:false" json:"email_verified"`
	EmailVerifyToken     *string    `gorm:"size:64;index" json:"-"`
	EmailVerifyExpires   *time.Time `json:"-"`
	PasswordResetToken   *string    `gorm:"size:64;index" json:"-"`
	PasswordResetExpires *time.Time `json:"-"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	Profiles             []Profile  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Profile 表示用户拥有的一个公开页面。
// SocialLinks 与 ThemeOverrides 以 JSON 列存储，读取时通过辅助方法解析。
type Profile struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             uuid.UUID      `gorm:"type:uuid;index;not null" json:"user_id"`
	Slug               string         `gorm:"uniqueIndex;size:30;not null" json:"slug"`
	DisplayName        string         `gorm:"size:50;not null" json:"display_name"`
	Bio                *string        `gorm:"size:200" json:"bio"`
	AvatarURL          *string        `gorm:"type:text" json:"avatar_url"`
	BackgroundImageURL *string        `gorm:"type:text" json:"background_image_url"`
	SocialLinks        datatypes.JSON `json:"social_links"`
	ThemePreset        string         `gorm:"size:50;not null" json:"theme_preset"`
	ThemeOverrides     datatypes.JSON `json:"theme_overrides"`
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	Links              []ProfileLink  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// ProfileLink 表示页面上的一个外链；SortOrder 决定展示顺序。
type ProfileLink struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProfileID   uuid.UUID `gorm:"type:uuid;index;not null" json:"profile_id"`
	Label       string    `gorm:"size:100;not null" json:"label"`
	URL         string    `gorm:"type:text;not null" json:"url"`
	Description *string   `gorm:"size:200" json:"description"`
	Icon        *string   `gorm:"size:100" json:"icon"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	SortOrder   int       `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PageView 是一次公开页访问，只追加不更新。
type PageView struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProfileID uuid.UUID `gorm:"type:uuid;index;not null"`
	Referrer  string    `gorm:"type:text"`
	UserAgent string    `gorm:"type:text"`
	IPHash    string    `gorm:"size:16"`
	ViewedAt  time.Time `gorm:"index;not null"`
}

// LinkClick 是一次外链点击，只追加不更新。
type LinkClick struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	LinkID    uuid.UUID `gorm:"type:uuid;index;not null"`
	ProfileID uuid.UUID `gorm:"type:uuid;index;not null"`
	Referrer  string    `gorm:"type:text"`
	UserAgent string    `gorm:"type:text"`
	IPHash    string    `gorm:"size:16"`
	ClickedAt time.Time `gorm:"index;not null"`
}

// SocialLink 是页面上的社交账号入口。
type SocialLink struct {
	Type string `json:"type" binding:"required,min=1,max=50"`
	URL  string `json:"url" binding:"required,http_url"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (p *Profile) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.DisplayName == "" {
		p.DisplayName = DefaultDisplayName
	}
	if p.ThemePreset == "" {
		p.ThemePreset = theme.DefaultPresetID
	}
	return nil
}

func (l *ProfileLink) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

func (v *PageView) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

func (c *LinkClick) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// SocialLinkList 解析 social_links 列；列为空或损坏时返回 nil。
func (p *Profile) SocialLinkList() []SocialLink {
	if len(p.SocialLinks) == 0 {
		return nil
	}
	var links []SocialLink
	if err := json.Unmarshal(p.SocialLinks, &links); err != nil {
		return nil
	}
	return links
}

// Overrides 解析 theme_overrides 列；列为空时返回 nil。
func (p *Profile) Overrides() *theme.Overrides {
	if len(p.ThemeOverrides) == 0 || string(p.ThemeOverrides) == "null" {
		return nil
	}
	var o theme.Overrides
	if err := json.Unmarshal(p.ThemeOverrides, &o); err != nil {
		return nil
	}
	return &o
}

// BackgroundImage 返回背景图地址，未设置时为空串。
func (p *Profile) BackgroundImage() string {
	if p.BackgroundImageURL == nil {
		return ""
	}
	return *p.BackgroundImageURL
}
