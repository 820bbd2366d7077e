package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"linkpage/internal/auth"
	"linkpage/internal/errcode"
)

const (
	userIDKey    = "userID"
	userEmailKey = "userEmail"
)

// AuthMiddleware 校验 Bearer 令牌并将 userID 注入上下文。
// 缺少令牌返回 UNAUTHORIZED，令牌无效或过期返回 INVALID_TOKEN。
func AuthMiddleware(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			Abort(c, errcode.ErrUnauthorized)
			return
		}

		claims, err := tokens.Validate(rawToken)
		if err != nil {
			LoggerFromContext(c).Debug("bearer token rejected", "error", err)
			Abort(c, errcode.ErrInvalidToken)
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(userEmailKey, claims.Email)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// UserID 返回认证中间件写入的用户 ID。
func UserID(c *gin.Context) (uuid.UUID, bool) {
	value, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok && id != uuid.Nil
}
