package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"linkpage/internal/auth"
	"linkpage/internal/database"
	"linkpage/internal/errcode"
	"linkpage/internal/mail"
	"linkpage/internal/repository"
	"linkpage/internal/storage"
)

// UserView 是返回给客户端的账号信息。
type UserView struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
}

// AuthResult 是注册与登录的响应体。
type AuthResult struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

// AuthOptions 是账号流程中的可配置项。
type AuthOptions struct {
	ClientURL      string
	VerifyTokenTTL time.Duration
	ResetTokenTTL  time.Duration
}

// AuthService 处理注册、登录、邮箱验证、密码找回与账号删除。
type AuthService struct {
	users    *repository.UserRepository
	profiles *repository.ProfileRepository
	tokens   *auth.TokenService
	mailer   mail.Mailer
	images   storage.ImageStore
	logger   *slog.Logger
	opts     AuthOptions
	now      func() time.Time
}

// NewAuthService 构造账号服务。
func NewAuthService(repos repository.Repositories, tokens *auth.TokenService, mailer mail.Mailer, images storage.ImageStore, logger *slog.Logger, opts AuthOptions) *AuthService {
	if opts.VerifyTokenTTL <= 0 {
		opts.VerifyTokenTTL = 24 * time.Hour
	}
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = time.Hour
	}
	return &AuthService{
		users:    repos.Users,
		profiles: repos.Profiles,
		tokens:   tokens,
		mailer:   mailer,
		images:   images,
		logger:   loggerOrDefault(logger),
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NormalizeEmail 统一邮箱大小写与空白。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup 创建账号并发送验证邮件；邮件失败只记录日志。
func (s *AuthService) Signup(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, errcode.ErrEmailExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	verifyToken, err := auth.NewOpaqueToken()
	if err != nil {
		return nil, err
	}
	expires := s.now().Add(s.opts.VerifyTokenTTL)

	user := &database.User{
		Email:              email,
		PasswordHash:       hash,
		EmailVerifyToken:   &verifyToken,
		EmailVerifyExpires: &expires,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, errcode.ErrEmailExists
		}
		return nil, err
	}

	s.send(ctx, mail.VerificationMessage(s.opts.ClientURL, email, verifyToken), user.ID)
	s.logger.Info("user signed up", slog.String("user_id", user.ID.String()))

	return s.issue(user)
}

// Login 校验口令；邮箱不存在与密码错误返回同一个错误。
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errcode.ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, errcode.ErrInvalidCredentials
	}
	return s.issue(user)
}

// Me 返回当前账号。
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*UserView, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := toUserView(user)
	return &view, nil
}

// VerifyEmail 消费邮箱验证令牌。
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errcode.ErrInvalidLinkToken.WithMessage("Invalid verification token")
	}
	user, err := s.users.FindByVerifyToken(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errcode.ErrInvalidLinkToken.WithMessage("Invalid verification token")
		}
		return err
	}
	return s.users.MarkVerified(ctx, user.ID)
}

// ForgotPassword 为已注册邮箱签发重置令牌。无论邮箱是否存在都返回成功。
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	token, err := auth.NewOpaqueToken()
	if err != nil {
		return err
	}
	if err := s.users.SetResetToken(ctx, user.ID, token, s.now().Add(s.opts.ResetTokenTTL)); err != nil {
		return err
	}

	s.send(ctx, mail.PasswordResetMessage(s.opts.ClientURL, user.Email, token), user.ID)
	return nil
}

// ResetPassword 消费重置令牌并设置新密码。
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	user, err := s.users.FindByResetToken(ctx, strings.TrimSpace(token), s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errcode.ErrInvalidLinkToken
		}
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, user.ID, hash)
}

// ChangePassword 在校验当前密码后修改密码。
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPasswordHash(current, user.PasswordHash) {
		return errcode.ErrInvalidCredentials.WithMessage("Current password is incorrect")
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, user.ID, hash)
}

// DeleteAccount 校验密码后删除账号及其全部页面，随后尽力清理页面图片。
func (s *AuthService) DeleteAccount(ctx context.Context, userID uuid.UUID, password string) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return errcode.ErrInvalidCredentials.WithMessage("Password is incorrect")
	}

	profiles, err := s.profiles.ListByUser(ctx, user.ID)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errcode.ErrUserNotFound
		}
		return err
	}

	for _, p := range profiles {
		if err := s.images.RemoveProfile(ctx, p.ID); err != nil {
			s.logger.Warn("remove profile images failed",
				slog.String("profile_id", p.ID.String()),
				slog.Any("error", err),
			)
		}
	}
	s.logger.Info("account deleted", slog.String("user_id", user.ID.String()), slog.Int("profiles", len(profiles)))
	return nil
}

func (s *AuthService) findUser(ctx context.Context, userID uuid.UUID) (*database.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errcode.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issue(user *database.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: token, User: toUserView(user)}, nil
}

// send 投递邮件；失败不影响调用方。
func (s *AuthService) send(ctx context.Context, msg mail.Message, userID uuid.UUID) {
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("send mail failed",
			slog.String("user_id", userID.String()),
			slog.String("subject", msg.Subject),
			slog.Any("error", err),
		)
	}
}

func toUserView(user *database.User) UserView {
	return UserView{ID: user.ID, Email: user.Email, EmailVerified: user.EmailVerified}
}
