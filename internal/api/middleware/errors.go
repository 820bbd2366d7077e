package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"linkpage/internal/errcode"
)

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Abort 以 {error:{message,code}} 结束请求。
func Abort(c *gin.Context, err *errcode.Error) {
	c.AbortWithStatusJSON(err.Status, gin.H{"error": errorBody{Message: err.Message, Code: err.Code}})
}

// ErrorHandler 统一渲染处理器通过 c.Error 登记的错误。
// 已知业务错误按其状态码返回；其他错误记录日志后返回 500，不向客户端暴露细节。
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		if appErr, ok := errcode.From(err); ok && appErr.Status < 500 {
			Abort(c, appErr)
			return
		}

		LoggerFromContext(c).Error("request failed", slog.Any("error", err))
		Abort(c, errcode.ErrInternal)
	}
}
