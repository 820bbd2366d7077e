package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"linkpage/internal/api/middleware"
	"linkpage/internal/errcode"
)

type messageBody struct {
	Message string `json:"message"`
}

// OK 以 {data: ...} 返回 200。
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

// Created 以 {data: ...} 返回 201。
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, gin.H{"data": data})
}

// Message 返回只含提示信息的成功响应。
func Message(c *gin.Context, msg string) {
	OK(c, messageBody{Message: msg})
}

// Fail 将错误交给 middleware.ErrorHandler 渲染。
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func userIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		middleware.Abort(c, errcode.ErrUnauthorized)
	}
	return userID, ok
}

// pathUUID 解析路径参数；格式非法时按资源不存在处理。
func pathUUID(c *gin.Context, name string, notFound *errcode.Error) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		Fail(c, notFound)
		return uuid.Nil, false
	}
	return id, true
}
