package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"linkpage/internal/database"
	"linkpage/internal/errcode"
	"linkpage/internal/patch"
	"linkpage/internal/repository"
	"linkpage/internal/service"
)

// LinkHandler 处理页面链接的增删改与排序。
type LinkHandler struct {
	links *service.LinkService
}

// NewLinkHandler 构造链接处理器。
func NewLinkHandler(links *service.LinkService) *LinkHandler {
	return &LinkHandler{links: links}
}

// List 按展示顺序返回链接。
func (h *LinkHandler) List(c *gin.Context) {
	userID, profileID, ok := linkTarget(c)
	if !ok {
		return
	}

	links, err := h.links.ListLinks(c.Request.Context(), userID, profileID)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, links)
}

type createLinkRequest struct {
	Label       string  `json:"label" binding:"required,max=100"`
	URL         string  `json:"url" binding:"required,http_url"`
	Description *string `json:"description" binding:"omitempty,max=200"`
	Icon        *string `json:"icon" binding:"omitempty,max=100"`
	IsActive    *bool   `json:"is_active"`
}

// Create 把链接追加到页面末尾。
func (h *LinkHandler) Create(c *gin.Context) {
	userID, profileID, ok := linkTarget(c)
	if !ok {
		return
	}

	var req createLinkRequest
	if !bindJSON(c, &req) {
		return
	}

	link, err := h.links.CreateLink(c.Request.Context(), userID, profileID, service.LinkInput{
		Label:       req.Label,
		URL:         req.URL,
		Description: req.Description,
		Icon:        req.Icon,
		IsActive:    req.IsActive,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, link)
}

type updateLinkRequest struct {
	Label       patch.Field[string] `json:"label"`
	URL         patch.Field[string] `json:"url"`
	Description patch.Field[string] `json:"description"`
	Icon        patch.Field[string] `json:"icon"`
	IsActive    patch.Field[bool]   `json:"is_active"`
}

func (r updateLinkRequest) validate() []string {
	var msgs []string
	if r.Label.Present() {
		msgs = append(msgs, checkVar("label", r.Label.Value, "min=1,max=100")...)
	}
	if r.URL.Present() {
		msgs = append(msgs, checkVar("url", r.URL.Value, "http_url")...)
	}
	if r.Description.Present() {
		msgs = append(msgs, checkVar("description", r.Description.Value, "max=200")...)
	}
	if r.Icon.Present() {
		msgs = append(msgs, checkVar("icon", r.Icon.Value, "max=100")...)
	}
	return msgs
}

// Update 部分更新链接。
func (h *LinkHandler) Update(c *gin.Context) {
	userID, profileID, ok := linkTarget(c)
	if !ok {
		return
	}
	linkID, ok := pathUUID(c, "linkId", errcode.ErrLinkNotFound)
	if !ok {
		return
	}

	var req updateLinkRequest
	if !bindJSON(c, &req) {
		return
	}
	if msgs := req.validate(); len(msgs) > 0 {
		Fail(c, errcode.Validation(msgs...))
		return
	}

	link, err := h.links.UpdateLink(c.Request.Context(), userID, profileID, linkID, database.LinkPatch{
		Label:       req.Label,
		URL:         req.URL,
		Description: req.Description,
		Icon:        req.Icon,
		IsActive:    req.IsActive,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, link)
}

// Delete 删除链接。
func (h *LinkHandler) Delete(c *gin.Context) {
	userID, profileID, ok := linkTarget(c)
	if !ok {
		return
	}
	linkID, ok := pathUUID(c, "linkId", errcode.ErrLinkNotFound)
	if !ok {
		return
	}

	if err := h.links.DeleteLink(c.Request.Context(), userID, profileID, linkID); err != nil {
		Fail(c, err)
		return
	}
	Message(c, "Link deleted")
}

type reorderItem struct {
	ID        string `json:"id" binding:"required,uuid"`
	SortOrder *int   `json:"sort_order" binding:"required,min=0"`
}

type reorderRequest struct {
	Links []reorderItem `json:"links" binding:"required,min=1,max=50,dive"`
}

// Reorder 批量设置 sort_order，返回重排后的列表。
func (h *LinkHandler) Reorder(c *gin.Context) {
	userID, profileID, ok := linkTarget(c)
	if !ok {
		return
	}

	var req reorderRequest
	if !bindJSON(c, &req) {
		return
	}

	orders := make([]repository.LinkOrder, 0, len(req.Links))
	for _, item := range req.Links {
		id, err := uuid.Parse(item.ID)
		if err != nil {
			Fail(c, errcode.Validation("id must be a valid UUID"))
			return
		}
		orders = append(orders, repository.LinkOrder{ID: id, SortOrder: *item.SortOrder})
	}

	links, err := h.links.ReorderLinks(c.Request.Context(), userID, profileID, orders)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, links)
}

func linkTarget(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	profileID, ok := pathUUID(c, "profileId", errcode.ErrProfileNotFound)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return userID, profileID, true
}
