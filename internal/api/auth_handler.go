package api

import (
	"github.com/gin-gonic/gin"

	"linkpage/internal/api/middleware"
	"linkpage/internal/errcode"
	"linkpage/internal/service"
)

// AuthHandler 处理注册、登录、邮箱验证、密码找回与账号管理。
type AuthHandler struct {
	auth  *service.AuthService
	guard *loginGuard
}

// NewAuthHandler 构造认证处理器；guard 为 nil 时不做登录限流。
func NewAuthHandler(authService *service.AuthService, guard *loginGuard) *AuthHandler {
	return &AuthHandler{auth: authService, guard: guard}
}

type signupRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// Signup 创建账号并直接返回登录令牌。
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.auth.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		Fail(c, err)
		return
	}

	Created(c, result)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login 校验口令并返回令牌。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	email := service.NormalizeEmail(req.Email)
	if !h.guard.Allow(ctx, c.ClientIP(), email) {
		Fail(c, errcode.ErrRateLimited)
		return
	}

	result, err := h.auth.Login(ctx, email, req.Password)
	if err != nil {
		if appErr, ok := errcode.From(err); ok && appErr.Code == errcode.ErrInvalidCredentials.Code {
			h.guard.Failed(ctx, email)
			middleware.LoggerFromContext(c).Info("login failed")
		}
		Fail(c, err)
		return
	}

	h.guard.Succeeded(ctx, email)
	OK(c, result)
}

// Logout 令牌是无状态的，由客户端丢弃即可。
func (h *AuthHandler) Logout(c *gin.Context) {
	Message(c, "Logged out")
}

// Me 返回当前登录用户。
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	user, err := h.auth.Me(c.Request.Context(), userID)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, user)
}

type tokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// VerifyEmail 使用邮件中的令牌完成邮箱验证。
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req tokenRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.auth.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		Fail(c, err)
		return
	}
	Message(c, "Email verified")
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword 无论邮箱是否注册都返回成功。
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		Fail(c, err)
		return
	}
	Message(c, "If the email is registered, a reset link has been sent")
}

type resetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// ResetPassword 使用找回令牌设置新密码。
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		Fail(c, err)
		return
	}
	Message(c, "Password has been reset")
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
}

// ChangePassword 校验当前密码并更新为新密码。
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.CurrentPassword == req.NewPassword {
		Fail(c, errcode.Validation("new_password must be different from current_password"))
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		Fail(c, err)
		return
	}
	Message(c, "Password changed")
}

type deleteAccountRequest struct {
	Password string `json:"password" binding:"required"`
}

// DeleteAccount 校验密码后删除账号及其全部页面。
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	var req deleteAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	if err := h.auth.DeleteAccount(c.Request.Context(), userID, req.Password); err != nil {
		Fail(c, err)
		return
	}

	Message(c, "Account deleted")
}
