package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"linkpage/internal/api/middleware"
	"linkpage/internal/service"
	"linkpage/internal/tasks"
)

// PublicHandler 处理无需登录的公开页读取与访问统计。
type PublicHandler struct {
	public     *service.PublicService
	dispatcher tasks.Dispatcher
}

// NewPublicHandler 构造公开接口处理器。
func NewPublicHandler(public *service.PublicService, dispatcher tasks.Dispatcher) *PublicHandler {
	return &PublicHandler{public: public, dispatcher: dispatcher}
}

// Profile 按 slug 返回公开页：页面信息、启用的链接、解析后的主题与背景。
func (h *PublicHandler) Profile(c *gin.Context) {
	page, err := h.public.GetPublicProfile(c.Request.Context(), c.Param("slug"))
	if err != nil {
		Fail(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	OK(c, page)
}

// Themes 返回主题预设目录。
func (h *PublicHandler) Themes(c *gin.Context) {
	OK(c, h.public.Themes())
}

type trackViewRequest struct {
	ProfileID string `json:"profileId" binding:"required,uuid"`
}

// TrackView 记录一次页面访问。
func (h *PublicHandler) TrackView(c *gin.Context) {
	var req trackViewRequest
	if !bindJSON(c, &req) {
		return
	}

	h.accept(c, tasks.Event{
		Kind:      tasks.KindView,
		ProfileID: uuid.MustParse(req.ProfileID),
	})
}

type trackClickRequest struct {
	LinkID    string `json:"linkId" binding:"required,uuid"`
	ProfileID string `json:"profileId" binding:"required,uuid"`
}

// TrackClick 记录一次链接点击。
func (h *PublicHandler) TrackClick(c *gin.Context) {
	var req trackClickRequest
	if !bindJSON(c, &req) {
		return
	}

	h.accept(c, tasks.Event{
		Kind:      tasks.KindClick,
		ProfileID: uuid.MustParse(req.ProfileID),
		LinkID:    uuid.MustParse(req.LinkID),
	})
}

// accept 先返回 204，再把事件交给队列；入库结果不影响响应。
func (h *PublicHandler) accept(c *gin.Context, ev tasks.Event) {
	ev.Referrer = c.Request.Referer()
	ev.UserAgent = c.Request.UserAgent()
	ev.IPHash = tasks.HashIP(c.ClientIP())
	ev.OccurredAt = time.Now().UTC()
	ev.CorrelationID = middleware.GetCorrelationID(c)

	c.Status(http.StatusNoContent)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	h.dispatcher.Submit(c.Request.Context(), ev)
}
