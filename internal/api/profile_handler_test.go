package api

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"linkpage/internal/storage"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func (s *testServer) upload(t *testing.T, path, token, field string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, "image.bin")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestProfileOwnership(t *testing.T) {
	s := newTestServer(t)
	owner := s.signup(t, "owner@test.com")
	other := s.signup(t, "other@test.com")
	profile := s.firstProfile(t, owner.Token)

	expectError(t, s.do(t, http.MethodGet, "/api/me/profile/"+profile.ID.String(), other.Token, nil), http.StatusNotFound, "PROFILE_NOT_FOUND")
	expectError(t, s.do(t, http.MethodGet, "/api/me/profile/not-a-uuid", owner.Token, nil), http.StatusNotFound, "PROFILE_NOT_FOUND")

	rec := s.do(t, http.MethodGet, "/api/me/profile/"+profile.ID.String(), owner.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateProfilePatch(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, "patch@test.com")
	profile := s.firstProfile(t, user.Token)
	path := "/api/me/profile/" + profile.ID.String()

	rec := s.do(t, http.MethodPut, path, user.Token, `{"display_name":"<b>Jane</b>","bio":"hello","theme_overrides":{"btnStyle":"outlined"}}`)
	var updated profileData
	decode(t, rec, &updated)
	if updated.DisplayName != "Jane" || updated.Bio == nil || *updated.Bio != "hello" {
		t.Fatalf("unexpected profile after update %+v", updated)
	}
	if !strings.Contains(string(updated.ThemeOverrides), `"btnStyle":"outlined"`) {
		t.Fatalf("theme overrides not stored: %s", updated.ThemeOverrides)
	}

	rec = s.do(t, http.MethodPut, path, user.Token, `{"bio":null}`)
	decode(t, rec, &updated)
	if updated.Bio != nil || updated.DisplayName != "Jane" {
		t.Fatalf("expected only bio to be cleared, got %+v", updated)
	}

	msg := expectError(t,
		s.do(t, http.MethodPut, path, user.Token, `{"theme_overrides":{"btnStyle":"dotted"},"social_links":[{"type":"x","url":"nope"}]}`),
		http.StatusBadRequest, "VALIDATION_ERROR")
	if !strings.Contains(msg, "theme_overrides.btnStyle") || !strings.Contains(msg, "social_links[0].url must be a valid URL") {
		t.Fatalf("unexpected validation message %q", msg)
	}

	expectError(t, s.do(t, http.MethodPut, path, user.Token, `{"theme_preset":"no-such-theme"}`), http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestUpdateSlug(t *testing.T) {
	s := newTestServer(t)
	first := s.signup(t, "first@test.com")
	second := s.signup(t, "second@test.com")
	firstProfile := s.firstProfile(t, first.Token)
	secondProfile := s.firstProfile(t, second.Token)

	rec := s.do(t, http.MethodPost, "/api/me/profile/"+firstProfile.ID.String()+"/slug", first.Token, map[string]string{"slug": "jane-doe"})
	var updated profileData
	decode(t, rec, &updated)
	if updated.Slug != "jane-doe" {
		t.Fatalf("expected slug jane-doe, got %q", updated.Slug)
	}

	expectError(t,
		s.do(t, http.MethodPost, "/api/me/profile/"+secondProfile.ID.String()+"/slug", second.Token, map[string]string{"slug": "jane-doe"}),
		http.StatusConflict, "SLUG_TAKEN")
	expectError(t,
		s.do(t, http.MethodPost, "/api/me/profile/"+secondProfile.ID.String()+"/slug", second.Token, map[string]string{"slug": "Bad Slug"}),
		http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestDeleteProfileKeepsOne(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, "min@test.com")
	profile := s.firstProfile(t, user.Token)

	expectError(t, s.do(t, http.MethodDelete, "/api/me/profile/"+profile.ID.String(), user.Token, nil), http.StatusBadRequest, "MIN_PROFILE")

	rec := s.do(t, http.MethodPost, "/api/me/profile", user.Token, map[string]string{"display_name": "Second"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create profile expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodDelete, "/api/me/profile/"+profile.ID.String(), user.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUploadAvatar(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, "upload@test.com")
	profile := s.firstProfile(t, user.Token)
	path := "/api/me/profile/" + profile.ID.String() + "/avatar"

	rec := s.upload(t, path, user.Token, "avatar", pngHeader)
	var updated profileData
	decode(t, rec, &updated)
	if updated.AvatarURL == nil || !strings.HasPrefix(*updated.AvatarURL, "data:image/png;base64,") {
		t.Fatalf("expected data URL avatar, got %+v", updated.AvatarURL)
	}

	expectError(t, s.upload(t, path, user.Token, "avatar", []byte("just some text")), http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA")
	expectError(t, s.upload(t, path, user.Token, "avatar", bytes.Repeat([]byte{0x89}, 2048)), http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE")
	expectError(t, s.upload(t, path, user.Token, "wrong-field", pngHeader), http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestBackgroundImageUploadAndClear(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, "bg@test.com")
	profile := s.firstProfile(t, user.Token)
	path := "/api/me/profile/" + profile.ID.String() + "/background-image"

	var updated struct {
		BackgroundImageURL *string `json:"background_image_url"`
	}
	decode(t, s.upload(t, path, user.Token, "background", pngHeader), &updated)
	if updated.BackgroundImageURL == nil {
		t.Fatalf("expected background image to be set")
	}

	decode(t, s.do(t, http.MethodDelete, path, user.Token, nil), &updated)
	if updated.BackgroundImageURL != nil {
		t.Fatalf("expected background image to be cleared")
	}
}

func TestAnalyticsEndpoint(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, "stats@test.com")
	other := s.signup(t, "spy@test.com")
	profile := s.firstProfile(t, user.Token)
	path := "/api/me/profile/" + profile.ID.String() + "/analytics?period=30d"

	var report struct {
		Summary    map[string]int64 `json:"summary"`
		DailyStats []struct {
			Date string `json:"date"`
		} `json:"dailyStats"`
	}
	decode(t, s.do(t, http.MethodGet, path, user.Token, nil), &report)
	if len(report.DailyStats) != 30 {
		t.Fatalf("expected 30 zero-filled days, got %d", len(report.DailyStats))
	}

	expectError(t, s.do(t, http.MethodGet, path, other.Token, nil), http.StatusNotFound, "PROFILE_NOT_FOUND")
}

type stubScanner struct {
	err   error
	calls *int
}

func (s stubScanner) Scan([]byte) error {
	*s.calls++
	return s.err
}

func TestUploadScannerVerdicts(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "malicious", err: storage.ErrMalicious, status: http.StatusBadRequest, code: "VALIDATION_ERROR"},
		{name: "scanner unavailable", err: errors.New("dial clamd: connection refused"), status: http.StatusInternalServerError, code: "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			s := newTestServer(t, func(d *Deps) {
				d.Scanner = stubScanner{err: tt.err, calls: &calls}
			})
			user := s.signup(t, "scan@test.com")
			profile := s.firstProfile(t, user.Token)

			rec := s.upload(t, "/api/me/profile/"+profile.ID.String()+"/avatar", user.Token, "avatar", pngHeader)
			msg := expectError(t, rec, tt.status, tt.code)
			if tt.err == storage.ErrMalicious && msg != "malicious file detected" {
				t.Fatalf("unexpected message %q", msg)
			}
			if strings.Contains(rec.Body.String(), "clamd") {
				t.Fatalf("scanner error leaked: %s", rec.Body.String())
			}
			if calls != 1 {
				t.Fatalf("expected one scan, got %d", calls)
			}

			var current profileData
			decode(t, s.do(t, http.MethodGet, "/api/me/profile/"+profile.ID.String(), user.Token, nil), &current)
			if current.AvatarURL != nil {
				t.Fatalf("rejected upload must not change the profile, got %q", *current.AvatarURL)
			}
		})
	}
}

func TestUploadChecksOwnershipBeforeScanning(t *testing.T) {
	calls := 0
	s := newTestServer(t, func(d *Deps) {
		d.Scanner = stubScanner{calls: &calls}
	})
	owner := s.signup(t, "scan-owner@test.com")
	other := s.signup(t, "scan-other@test.com")
	profile := s.firstProfile(t, owner.Token)

	rec := s.upload(t, "/api/me/profile/"+profile.ID.String()+"/avatar", other.Token, "avatar", pngHeader)
	expectError(t, rec, http.StatusNotFound, "PROFILE_NOT_FOUND")
	if calls != 0 {
		t.Fatalf("foreign upload must be rejected before scanning, got %d scans", calls)
	}
}
