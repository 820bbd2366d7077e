package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"linkpage/internal/service"
)

type linkData struct {
	ID        uuid.UUID `json:"id"`
	Label     string    `json:"label"`
	IsActive  bool      `json:"is_active"`
	SortOrder int       `json:"sort_order"`
}

func (s *testServer) createLink(t *testing.T, token string, profileID uuid.UUID, label string) linkData {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/me/links/"+profileID.String(), token, map[string]string{"label": label, "url": "https://example.com/" + label})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create link status %d: %s", rec.Code, rec.Body.String())
	}
	var link linkData
	decode(t, rec, &link)
	return link
}

func TestCreateAndListLinks(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, "links@test.com")
	profile := s.firstProfile(t, user.Token)

	for i, label := range []string{"a", "b", "c"} {
		link := s.createLink(t, user.Token, profile.ID, label)
		if link.SortOrder != i || !link.IsActive {
			t.Fatalf("link %s: unexpected %+v", label, link)
		}
	}

	var links []linkData
	decode(t, s.do(t, http.MethodGet, "/api/me/links/"+profile.ID.String(), user.Token, nil), &links)
	if len(links) != 3 || links[0].Label != "a" || links[2].Label != "c" {
		t.Fatalf("unexpected link list %+v", links)
	}

	expectError(t,
		s.do(t, http.MethodPost, "/api/me/links/"+profile.ID.String(), user.Token, map[string]string{"label": "bad", "url": "ftp:/nope"}),
		http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestCreateLinkLimit(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, "limit@test.com")
	profile := s.firstProfile(t, user.Token)

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		in := service.LinkInput{Label: fmt.Sprintf("link %d", i), URL: "https://example.com"}
		if _, err := s.deps.Links.CreateLink(ctx, user.User.ID, profile.ID, in); err != nil {
			t.Fatalf("create link %d: %v", i, err)
		}
	}

	rec := s.do(t, http.MethodPost, "/api/me/links/"+profile.ID.String(), user.Token, map[string]string{"label": "overflow", "url": "https://example.com"})
	expectError(t, rec, http.StatusBadRequest, "MAX_LINKS")
}

func TestUpdateAndDeleteLink(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, "edit@test.com")
	other := s.signup(t, "intruder@test.com")
	profile := s.firstProfile(t, user.Token)
	link := s.createLink(t, user.Token, profile.ID, "site")
	path := "/api/me/links/" + profile.ID.String() + "/" + link.ID.String()

	var updated linkData
	decode(t, s.do(t, http.MethodPut, path, user.Token, `{"is_active":false}`), &updated)
	if updated.IsActive || updated.Label != "site" {
		t.Fatalf("unexpected link after update %+v", updated)
	}

	expectError(t, s.do(t, http.MethodPut, path, user.Token, `{"url":"not a url"}`), http.StatusBadRequest, "VALIDATION_ERROR")
	expectError(t, s.do(t, http.MethodPut, path, other.Token, `{"label":"x"}`), http.StatusNotFound, "PROFILE_NOT_FOUND")
	expectError(t,
		s.do(t, http.MethodDelete, "/api/me/links/"+profile.ID.String()+"/"+uuid.NewString(), user.Token, nil),
		http.StatusNotFound, "LINK_NOT_FOUND")

	if rec := s.do(t, http.MethodDelete, path, user.Token, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestReorderLinks(t *testing.T) {
	s := newTestServer(t)
	user := s.signup(t, "reorder@test.com")
	profile := s.firstProfile(t, user.Token)
	a := s.createLink(t, user.Token, profile.ID, "a")
	b := s.createLink(t, user.Token, profile.ID, "b")
	c := s.createLink(t, user.Token, profile.ID, "c")
	path := "/api/me/links/" + profile.ID.String() + "/reorder"

	body := map[string]any{"links": []map[string]any{
		{"id": c.ID, "sort_order": 0},
		{"id": a.ID, "sort_order": 1},
		{"id": b.ID, "sort_order": 2},
	}}
	var links []linkData
	decode(t, s.do(t, http.MethodPut, path, user.Token, body), &links)
	if len(links) != 3 || links[0].ID != c.ID || links[1].ID != a.ID || links[2].ID != b.ID {
		t.Fatalf("unexpected order %+v", links)
	}

	invalid := map[string]any{"links": []map[string]any{{"id": "not-a-uuid", "sort_order": 0}}}
	expectError(t, s.do(t, http.MethodPut, path, user.Token, invalid), http.StatusBadRequest, "VALIDATION_ERROR")

	foreign := map[string]any{"links": []map[string]any{{"id": uuid.New(), "sort_order": 0}}}
	expectError(t, s.do(t, http.MethodPut, path, user.Token, foreign), http.StatusNotFound, "LINK_NOT_FOUND")
}
