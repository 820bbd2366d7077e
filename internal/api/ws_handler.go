package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"linkpage/internal/api/middleware"
	"linkpage/internal/auth"
	"linkpage/internal/errcode"
	"linkpage/internal/live"
	"linkpage/internal/service"
)

const (
	wsPingInterval = 30 * time.Second
	wsAuthTimeout  = 10 * time.Second
	wsWriteTimeout = 5 * time.Second
)

// LiveHandler 通过 WebSocket 向仪表盘推送页面的实时访问与点击。
// 首帧必须是 {"type":"auth","token":"..."}，之后只转发该页面频道上的消息。
type LiveHandler struct {
	redis          redis.UniversalClient
	tokens         *auth.TokenService
	analytics      *service.AnalyticsService
	upgrader       websocket.Upgrader
	allowedOrigins []string
}

// NewLiveHandler 构造实时统计处理器。
func NewLiveHandler(redisClient redis.UniversalClient, tokens *auth.TokenService, analytics *service.AnalyticsService, allowedOrigins []string) *LiveHandler {
	h := &LiveHandler{
		redis:          redisClient,
		tokens:         tokens,
		analytics:      analytics,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *LiveHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(h.allowedOrigins) == 0 {
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
	for _, allowed := range h.allowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// Stream 升级连接，完成首帧鉴权与归属校验后开始转发。
func (h *LiveHandler) Stream(c *gin.Context) {
	profileID, ok := pathUUID(c, "id", errcode.ErrProfileNotFound)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		middleware.LoggerFromContext(c).Warn("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	log := middleware.LoggerFromContext(c).With(slog.String("profile_id", profileID.String()))

	userID, err := h.authenticate(ctx, conn, profileID)
	if err != nil {
		log.Info("websocket authentication failed", slog.Any("error", err))
		return
	}
	log = log.With(slog.String("user_id", userID.String()))
	log.Info("live analytics connected")

	errCh := make(chan error, 2)
	go h.readLoop(conn, errCh, cancel)
	go h.forwardLoop(ctx, conn, profileID, errCh, cancel, log)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Info("websocket connection closed", slog.Any("error", err))
			return
		}
	}
	log.Info("websocket connection closed")
}

// authenticate 读取首帧令牌并确认调用方拥有该页面。
func (h *LiveHandler) authenticate(ctx context.Context, conn *websocket.Conn, profileID uuid.UUID) (uuid.UUID, error) {
	_ = conn.SetReadDeadline(time.Now().Add(wsAuthTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		return uuid.Nil, fmt.Errorf("read auth message: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	var authMsg wsAuthMessage
	if err := json.Unmarshal(message, &authMsg); err != nil {
		writeClose(conn, websocket.ClosePolicyViolation, "invalid auth payload")
		return uuid.Nil, fmt.Errorf("decode auth payload: %w", err)
	}
	if authMsg.Type != "auth" || authMsg.Token == "" {
		writeClose(conn, websocket.ClosePolicyViolation, "auth required")
		return uuid.Nil, errors.New("invalid auth message")
	}

	claims, err := h.tokens.Validate(authMsg.Token)
	if err != nil {
		writeClose(conn, websocket.ClosePolicyViolation, "unauthorized")
		return uuid.Nil, fmt.Errorf("validate token: %w", err)
	}

	if err := h.analytics.Authorize(ctx, claims.UserID, profileID); err != nil {
		writeClose(conn, websocket.ClosePolicyViolation, "profile not found")
		return uuid.Nil, err
	}
	if h.redis == nil {
		writeClose(conn, websocket.CloseTryAgainLater, "live feed unavailable")
		return uuid.Nil, errors.New("redis not configured")
	}
	return claims.UserID, nil
}

// readLoop 丢弃客户端后续消息，只用于检测断开。
func (h *LiveHandler) readLoop(conn *websocket.Conn, errCh chan<- error, cancel context.CancelFunc) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			errCh <- fmt.Errorf("read message: %w", err)
			cancel()
			return
		}
	}
}

func (h *LiveHandler) forwardLoop(
	ctx context.Context,
	conn *websocket.Conn,
	profileID uuid.UUID,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	channel := live.Channel(profileID)
	pubsub := h.redis.Subscribe(ctx, channel)
	defer pubsub.Close()

	log.Debug("subscribed to redis channel", slog.String("channel", channel))

	ch := pubsub.Channel()
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				errCh <- errors.New("pubsub channel closed")
				cancel()
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				errCh <- fmt.Errorf("write message: %w", err)
				cancel()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(wsWriteTimeout)); err != nil {
				errCh <- fmt.Errorf("write ping: %w", err)
				cancel()
				return
			}
		}
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(wsWriteTimeout))
}
