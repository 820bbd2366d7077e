package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"linkpage/internal/auth"
	"linkpage/internal/database/dbtest"
	"linkpage/internal/errcode"
	"linkpage/internal/live"
	"linkpage/internal/mail"
	"linkpage/internal/repository"
	"linkpage/internal/storage"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []live.Message
}

func (p *recordingPublisher) Publish(_ context.Context, msg live.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

type env struct {
	repos     repository.Repositories
	mailer    *recordingMailer
	publisher *recordingPublisher
	auth      *AuthService
	profiles  *ProfileService
	links     *LinkService
	analytics *AnalyticsService
	public    *PublicService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	repos := repository.New(dbtest.Open(t))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens, err := auth.NewTokenService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}

	e := &env{
		repos:     repos,
		mailer:    &recordingMailer{},
		publisher: &recordingPublisher{},
	}
	e.auth = NewAuthService(repos, tokens, e.mailer, storage.InlineStore{}, logger, AuthOptions{ClientURL: "http://localhost:5173"})
	e.profiles = NewProfileService(repos, storage.InlineStore{}, logger)
	e.links = NewLinkService(repos)
	e.analytics = NewAnalyticsService(repos, e.publisher, logger)
	e.public = NewPublicService(repos)
	return e
}

// signup 注册账号并返回用户 ID。
func (e *env) signup(t *testing.T, email string) uuid.UUID {
	t.Helper()
	res, err := e.auth.Signup(context.Background(), email, "test1234")
	if err != nil {
		t.Fatalf("signup %s: %v", email, err)
	}
	return res.User.ID
}

// firstProfile 触发默认页面创建并返回它。
func (e *env) firstProfile(t *testing.T, userID uuid.UUID) uuid.UUID {
	t.Helper()
	profiles, err := e.profiles.GetProfiles(context.Background(), userID)
	if err != nil {
		t.Fatalf("get profiles: %v", err)
	}
	return profiles[0].ID
}

func assertCode(t *testing.T, err error, want *errcode.Error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %s, got %v", want.Code, err)
	}
}
