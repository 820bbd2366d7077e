package api

import (
	"net/http"
	"regexp"
	"strings"
	"testing"
)

func TestSignupProvisionsFirstProfile(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "a@test.com", "password": "test1234"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var data authData
	decode(t, rec, &data)
	if data.User.Email != "a@test.com" || data.Token == "" {
		t.Fatalf("unexpected signup payload %+v", data)
	}

	rec = s.do(t, http.MethodGet, "/api/me/profile", data.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var profiles []profileData
	decode(t, rec, &profiles)
	if len(profiles) != 1 {
		t.Fatalf("expected exactly one profile, got %d", len(profiles))
	}
	if !regexp.MustCompile(`^[a-z0-9]{8}$`).MatchString(profiles[0].Slug) {
		t.Fatalf("unexpected generated slug %q", profiles[0].Slug)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "dup@test.com")

	rec := s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "DUP@test.com", "password": "test1234"})
	expectError(t, rec, http.StatusConflict, "EMAIL_EXISTS")
}

func TestSignupValidation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "not-an-email", "password": "short"})
	msg := expectError(t, rec, http.StatusBadRequest, "VALIDATION_ERROR")
	if !strings.Contains(msg, "email must be a valid email") || !strings.Contains(msg, "password must be at least 8 characters") {
		t.Fatalf("unexpected validation message %q", msg)
	}

	rec = s.do(t, http.MethodPost, "/api/auth/signup", "", "{not json")
	expectError(t, rec, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestLoginFailuresShareOneMessage(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "login@test.com")

	wrongPassword := expectError(t,
		s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "login@test.com", "password": "wrong-pass"}),
		http.StatusUnauthorized, "INVALID_CREDENTIALS")
	unknownEmail := expectError(t,
		s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "nobody@test.com", "password": "test1234"}),
		http.StatusUnauthorized, "INVALID_CREDENTIALS")
	if wrongPassword != unknownEmail {
		t.Fatalf("login errors differ: %q vs %q", wrongPassword, unknownEmail)
	}

	rec := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "login@test.com", "password": "test1234"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestMeRequiresBearerToken(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, "me@test.com")

	expectError(t, s.do(t, http.MethodGet, "/api/auth/me", "", nil), http.StatusUnauthorized, "UNAUTHORIZED")
	expectError(t, s.do(t, http.MethodGet, "/api/auth/me", "garbage", nil), http.StatusUnauthorized, "INVALID_TOKEN")

	rec := s.do(t, http.MethodGet, "/api/auth/me", user.Token, nil)
	var me struct {
		Email string `json:"email"`
	}
	decode(t, rec, &me)
	if me.Email != "me@test.com" {
		t.Fatalf("unexpected user %+v", me)
	}
}

func TestLogoutAndForgotPasswordAlwaysSucceed(t *testing.T) {
	s := newTestServer(t)

	if rec := s.do(t, http.MethodPost, "/api/auth/logout", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("logout expected 200, got %d", rec.Code)
	}
	rec := s.do(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "ghost@test.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("forgot-password expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	expectError(t,
		s.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{"token": "nope", "password": "newpass123"}),
		http.StatusBadRequest, "INVALID_TOKEN")
	expectError(t,
		s.do(t, http.MethodPost, "/api/auth/verify-email", "", map[string]string{"token": "nope"}),
		http.StatusBadRequest, "INVALID_TOKEN")
}

func TestChangePasswordAndDeleteAccount(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, "owner@test.com")

	expectError(t,
		s.do(t, http.MethodPost, "/api/auth/change-password", user.Token, map[string]string{"current_password": "wrong-pass", "new_password": "newpass123"}),
		http.StatusUnauthorized, "INVALID_CREDENTIALS")

	rec := s.do(t, http.MethodPost, "/api/auth/change-password", user.Token, map[string]string{"current_password": "test1234", "new_password": "newpass123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("change password expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodDelete, "/api/auth/me", user.Token, map[string]string{"password": "newpass123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("delete account expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	expectError(t, s.do(t, http.MethodGet, "/api/auth/me", user.Token, nil), http.StatusNotFound, "USER_NOT_FOUND")
}

func TestAccountEventsLoggedOnce(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, "logged@test.com")
	if n := s.logs.count("user signed up"); n != 1 {
		t.Fatalf("expected one signup log line, got %d", n)
	}

	rec := s.do(t, http.MethodDelete, "/api/auth/me", user.Token, map[string]string{"password": "test1234"})
	if rec.Code != http.StatusOK {
		t.Fatalf("delete account status %d: %s", rec.Code, rec.Body.String())
	}
	if n := s.logs.count("account deleted"); n != 1 {
		t.Fatalf("expected one account deletion log line, got %d", n)
	}
}
