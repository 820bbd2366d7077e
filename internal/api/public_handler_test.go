package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"linkpage/internal/storage"
	"linkpage/internal/tasks"
)

func TestPublicProfileHidesOwnerAndInactiveLinks(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, "public@test.com")
	profile := s.firstProfile(t, user.Token)
	s.createLink(t, user.Token, profile.ID, "visible")
	hidden := s.createLink(t, user.Token, profile.ID, "hidden")
	s.do(t, http.MethodPut, "/api/me/links/"+profile.ID.String()+"/"+hidden.ID.String(), user.Token, `{"is_active":false}`)

	rec := s.do(t, http.MethodGet, "/api/public/profile/"+profile.Slug, "", nil)
	var page struct {
		Profile    map[string]json.RawMessage   `json:"profile"`
		Links      []map[string]json.RawMessage `json:"links"`
		Theme      map[string]json.RawMessage   `json:"theme"`
		Background map[string]json.RawMessage   `json:"background"`
	}
	decode(t, rec, &page)

	if _, ok := page.Profile["user_id"]; ok {
		t.Fatalf("public profile must not expose user_id")
	}
	if len(page.Links) != 1 {
		t.Fatalf("expected only the active link, got %d", len(page.Links))
	}
	if _, ok := page.Links[0]["profile_id"]; ok {
		t.Fatalf("public links must not expose profile_id")
	}
	if len(page.Theme) == 0 || len(page.Background) == 0 {
		t.Fatalf("expected resolved theme and background in payload")
	}

	expectError(t, s.do(t, http.MethodGet, "/api/public/profile/nobody-here", "", nil), http.StatusNotFound, "NOT_FOUND")
}

func TestThemesCatalog(t *testing.T) {
	s := newTestServer(t)
	var presets []struct {
		ID string `json:"id"`
	}
	decode(t, s.do(t, http.MethodGet, "/api/public/themes", "", nil), &presets)
	if len(presets) != 8 || presets[0].ID != "clean-white" {
		t.Fatalf("unexpected preset catalog %+v", presets)
	}
}

func TestTrackViewRespondsBeforeRecording(t *testing.T) {
	s := newTestServer(t)
	profileID := uuid.New()

	req := map[string]string{"profileId": profileID.String()}
	rec := s.do(t, http.MethodPost, "/api/public/track/view", "", req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	events := s.dispatcher.submitted()
	if len(events) != 1 {
		t.Fatalf("expected one submitted event, got %d", len(events))
	}
	ev := events[0]
	if ev.Kind != tasks.KindView || ev.ProfileID != profileID || ev.IPHash == "" || ev.OccurredAt.IsZero() {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestTrackClickValidatesIDs(t *testing.T) {
	s := newTestServer(t)

	expectError(t,
		s.do(t, http.MethodPost, "/api/public/track/click", "", map[string]string{"profileId": uuid.NewString(), "linkId": "nope"}),
		http.StatusBadRequest, "VALIDATION_ERROR")
	expectError(t,
		s.do(t, http.MethodPost, "/api/public/track/view", "", map[string]string{}),
		http.StatusBadRequest, "VALIDATION_ERROR")

	rec := s.do(t, http.MethodPost, "/api/public/track/click", "", map[string]string{"profileId": uuid.NewString(), "linkId": uuid.NewString()})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if events := s.dispatcher.submitted(); len(events) != 1 || events[0].Kind != tasks.KindClick {
		t.Fatalf("unexpected events %+v", events)
	}
}

type fakeSigner struct {
	objects map[string]bool
}

func (f fakeSigner) StatObject(_ context.Context, key string) error {
	if !f.objects[key] {
		return storage.ErrObjectNotFound
	}
	return nil
}

func (f fakeSigner) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://assets.example.invalid/" + key + "?sig=1", nil
}

func TestAssetRedirect(t *testing.T) {
	key := "profile-assets/" + uuid.NewString() + "/" + uuid.NewString() + ".png"
	missing := "profile-assets/" + uuid.NewString() + "/" + uuid.NewString() + ".png"
	s := newTestServer(t, func(d *Deps) {
		d.Assets = fakeSigner{objects: map[string]bool{key: true}}
	})

	rec := s.do(t, http.MethodGet, "/api/public/assets/"+key, "", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "https://assets.example.invalid/"+key+"?sig=1" {
		t.Fatalf("unexpected redirect %q", loc)
	}

	expectError(t, s.do(t, http.MethodGet, "/api/public/assets/"+missing, "", nil), http.StatusNotFound, "NOT_FOUND")
	expectError(t, s.do(t, http.MethodGet, "/api/public/assets/profile-assets/secret.txt", "", nil), http.StatusNotFound, "NOT_FOUND")
}

func TestAssetRedirectWithoutObjectStore(t *testing.T) {
	s := newTestServer(t)
	key := "profile-assets/" + uuid.NewString() + "/" + uuid.NewString() + ".png"
	expectError(t, s.do(t, http.MethodGet, "/api/public/assets/"+key, "", nil), http.StatusNotFound, "NOT_FOUND")
}
