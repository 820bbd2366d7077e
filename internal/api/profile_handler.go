package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"linkpage/internal/database"
	"linkpage/internal/errcode"
	"linkpage/internal/patch"
	"linkpage/internal/service"
	"linkpage/internal/storage"
	"linkpage/internal/theme"
)

// ProfileHandler 处理当前用户的页面管理接口。
type ProfileHandler struct {
	profiles  *service.ProfileService
	analytics *service.AnalyticsService
	uploads   uploadReader
}

// NewProfileHandler 构造页面处理器。
func NewProfileHandler(profiles *service.ProfileService, analytics *service.AnalyticsService, uploads uploadReader) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, analytics: analytics, uploads: uploads}
}

// List 返回当前用户的全部页面；首次访问时自动创建一个。
func (h *ProfileHandler) List(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	profiles, err := h.profiles.GetProfiles(c.Request.Context(), userID)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, profiles)
}

type createProfileRequest struct {
	DisplayName string `json:"display_name" binding:"max=50"`
}

// Create 新建页面，slug 随机生成。
func (h *ProfileHandler) Create(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	var req createProfileRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	profile, err := h.profiles.CreateProfile(c.Request.Context(), userID, req.DisplayName)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, profile)
}

// Get 返回指定页面。
func (h *ProfileHandler) Get(c *gin.Context) {
	userID, profileID, ok := h.target(c)
	if !ok {
		return
	}

	profile, err := h.profiles.GetProfile(c.Request.Context(), userID, profileID)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, profile)
}

// updateProfileRequest 的每个字段都可以缺省、为 null 或有值。
type updateProfileRequest struct {
	DisplayName    patch.Field[string]                `json:"display_name"`
	Bio            patch.Field[string]                `json:"bio"`
	SocialLinks    patch.Field[[]database.SocialLink] `json:"social_links" binding:"-"`
	ThemePreset    patch.Field[string]                `json:"theme_preset"`
	ThemeOverrides patch.Field[theme.Overrides]       `json:"theme_overrides" binding:"-"`
}

func (r updateProfileRequest) validate() []string {
	var msgs []string
	if r.DisplayName.Present() {
		msgs = append(msgs, checkVar("display_name", r.DisplayName.Value, "min=1,max=50")...)
	}
	if r.Bio.Present() {
		msgs = append(msgs, checkVar("bio", r.Bio.Value, "max=200")...)
	}
	if r.SocialLinks.Present() {
		msgs = append(msgs, checkVar("social_links", r.SocialLinks.Value, "max=10,dive")...)
	}
	if r.ThemePreset.Present() {
		msgs = append(msgs, checkVar("theme_preset", r.ThemePreset.Value, "min=1,max=50")...)
	}
	if r.ThemeOverrides.Present() {
		msgs = append(msgs, checkStruct("theme_overrides", r.ThemeOverrides.Value)...)
	}
	return msgs
}

func (r updateProfileRequest) toPatch() database.ProfilePatch {
	return database.ProfilePatch{
		DisplayName:    r.DisplayName,
		Bio:            r.Bio,
		SocialLinks:    r.SocialLinks,
		ThemePreset:    r.ThemePreset,
		ThemeOverrides: r.ThemeOverrides,
	}
}

// Update 部分更新页面资料与主题。
func (h *ProfileHandler) Update(c *gin.Context) {
	userID, profileID, ok := h.target(c)
	if !ok {
		return
	}

	var req updateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	if msgs := req.validate(); len(msgs) > 0 {
		Fail(c, errcode.Validation(msgs...))
		return
	}

	profile, err := h.profiles.UpdateProfile(c.Request.Context(), userID, profileID, req.toPatch())
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, profile)
}

type slugRequest struct {
	Slug string `json:"slug" binding:"required,min=3,max=30,slug"`
}

// UpdateSlug 修改页面 slug。
func (h *ProfileHandler) UpdateSlug(c *gin.Context) {
	userID, profileID, ok := h.target(c)
	if !ok {
		return
	}

	var req slugRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.profiles.UpdateSlug(c.Request.Context(), userID, profileID, req.Slug)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, profile)
}

// Delete 删除页面；用户至少保留一个页面。
func (h *ProfileHandler) Delete(c *gin.Context) {
	userID, profileID, ok := h.target(c)
	if !ok {
		return
	}

	if err := h.profiles.DeleteProfile(c.Request.Context(), userID, profileID); err != nil {
		Fail(c, err)
		return
	}
	Message(c, "Profile deleted")
}

// UploadAvatar 处理表单字段 avatar 的头像上传。
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	h.upload(c, "avatar", h.profiles.SetAvatar)
}

// UploadBackground 处理表单字段 background 的背景图上传。
func (h *ProfileHandler) UploadBackground(c *gin.Context) {
	h.upload(c, "background", h.profiles.SetBackgroundImage)
}

type imageSetter func(ctx context.Context, userID, profileID uuid.UUID, img storage.Image) (*database.Profile, error)

func (h *ProfileHandler) upload(c *gin.Context, field string, set imageSetter) {
	userID, profileID, ok := h.target(c)
	if !ok {
		return
	}

	// 先校验归属，再读取、探测并扫描文件。
	if err := h.profiles.Authorize(c.Request.Context(), userID, profileID); err != nil {
		Fail(c, err)
		return
	}

	img, ok := h.uploads.read(c, field)
	if !ok {
		return
	}

	profile, err := set(c.Request.Context(), userID, profileID, img)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, profile)
}

// DeleteBackground 清除背景图。
func (h *ProfileHandler) DeleteBackground(c *gin.Context) {
	userID, profileID, ok := h.target(c)
	if !ok {
		return
	}

	profile, err := h.profiles.ClearBackgroundImage(c.Request.Context(), userID, profileID)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, profile)
}

// Analytics 返回页面在 ?period=7d|30d|90d 内的统计。
func (h *ProfileHandler) Analytics(c *gin.Context) {
	userID, profileID, ok := h.target(c)
	if !ok {
		return
	}

	report, err := h.analytics.GetAnalytics(c.Request.Context(), userID, profileID, c.DefaultQuery("period", "7d"))
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, report)
}

func (h *ProfileHandler) target(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	profileID, ok := pathUUID(c, "id", errcode.ErrProfileNotFound)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return userID, profileID, true
}
