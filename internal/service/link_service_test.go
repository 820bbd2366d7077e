package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"linkpage/internal/database"
	"linkpage/internal/errcode"
	"linkpage/internal/patch"
	"linkpage/internal/repository"
)

func createLinks(t *testing.T, e *env, userID, profileID uuid.UUID, n int) []database.ProfileLink {
	t.Helper()
	out := make([]database.ProfileLink, 0, n)
	for i := 0; i < n; i++ {
		link, err := e.links.CreateLink(context.Background(), userID, profileID, LinkInput{
			Label: fmt.Sprintf("link %d", i),
			URL:   fmt.Sprintf("https://example.com/%d", i),
		})
		if err != nil {
			t.Fatalf("create link %d: %v", i, err)
		}
		out = append(out, *link)
	}
	return out
}

func TestCreateLinkAppendsDenseSortOrder(t *testing.T) {
	e := newEnv(t)
	userID := e.signup(t, "a@test.com")
	profileID := e.firstProfile(t, userID)

	links := createLinks(t, e, userID, profileID, 3)
	for i, l := range links {
		if l.SortOrder != i {
			t.Fatalf("link %d has sort_order %d", i, l.SortOrder)
		}
		if !l.IsActive {
			t.Fatalf("is_active should default to true")
		}
	}

	inactive := false
	link, err := e.links.CreateLink(context.Background(), userID, profileID, LinkInput{Label: "hidden", URL: "https://example.com", IsActive: &inactive})
	if err != nil {
		t.Fatalf("create inactive: %v", err)
	}
	if link.IsActive || link.SortOrder != 3 {
		t.Fatalf("unexpected link %+v", link)
	}
}

func TestCreateLinkEnforcesLimit(t *testing.T) {
	e := newEnv(t)
	userID := e.signup(t, "a@test.com")
	profileID := e.firstProfile(t, userID)

	createLinks(t, e, userID, profileID, database.MaxLinksPerProfile)
	_, err := e.links.CreateLink(context.Background(), userID, profileID, LinkInput{Label: "one too many", URL: "https://example.com"})
	assertCode(t, err, errcode.ErrMaxLinks)
}

func TestLinkOwnership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.signup(t, "owner@test.com")
	other := e.signup(t, "other@test.com")
	ownerProfile := e.firstProfile(t, owner)
	otherProfile := e.firstProfile(t, other)
	link := createLinks(t, e, owner, ownerProfile, 1)[0]

	_, err := e.links.ListLinks(ctx, other, ownerProfile)
	assertCode(t, err, errcode.ErrProfileNotFound)
	_, err = e.links.CreateLink(ctx, other, ownerProfile, LinkInput{Label: "x", URL: "https://example.com"})
	assertCode(t, err, errcode.ErrProfileNotFound)

	// 链接存在但不属于所给页面。
	_, err = e.links.UpdateLink(ctx, other, otherProfile, link.ID, database.LinkPatch{Label: patch.Value("stolen")})
	assertCode(t, err, errcode.ErrLinkNotFound)
	assertCode(t, e.links.DeleteLink(ctx, other, otherProfile, link.ID), errcode.ErrLinkNotFound)
}

func TestUpdateLinkAppliesPatch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	userID := e.signup(t, "a@test.com")
	profileID := e.firstProfile(t, userID)
	link := createLinks(t, e, userID, profileID, 1)[0]

	updated, err := e.links.UpdateLink(ctx, userID, profileID, link.ID, database.LinkPatch{
		Label:       patch.Value("<em>Blog</em>"),
		Description: patch.Value("my blog"),
		IsActive:    patch.Value(false),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Label != "Blog" || updated.IsActive || updated.Description == nil || *updated.Description != "my blog" {
		t.Fatalf("unexpected link %+v", updated)
	}
	if updated.URL != link.URL || updated.SortOrder != link.SortOrder {
		t.Fatalf("absent fields changed: %+v", updated)
	}

	_, err = e.links.UpdateLink(ctx, userID, profileID, link.ID, database.LinkPatch{Label: patch.Null[string]()})
	assertCode(t, err, errcode.Validation())
}

func TestReorderLinks(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	userID := e.signup(t, "a@test.com")
	profileID := e.firstProfile(t, userID)
	links := createLinks(t, e, userID, profileID, 3)

	reordered, err := e.links.ReorderLinks(ctx, userID, profileID, []repository.LinkOrder{
		{ID: links[2].ID, SortOrder: 0},
		{ID: links[0].ID, SortOrder: 1},
		{ID: links[1].ID, SortOrder: 2},
	})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	want := []uuid.UUID{links[2].ID, links[0].ID, links[1].ID}
	for i, l := range reordered {
		if l.ID != want[i] || l.SortOrder != i {
			t.Fatalf("position %d: got %s/%d", i, l.ID, l.SortOrder)
		}
	}

	_, err = e.links.ReorderLinks(ctx, userID, profileID, []repository.LinkOrder{
		{ID: links[0].ID, SortOrder: 0},
		{ID: links[0].ID, SortOrder: 1},
	})
	assertCode(t, err, errcode.Validation())

	_, err = e.links.ReorderLinks(ctx, userID, profileID, []repository.LinkOrder{
		{ID: links[0].ID, SortOrder: 2},
		{ID: uuid.New(), SortOrder: 0},
	})
	assertCode(t, err, errcode.ErrLinkNotFound)

	after, err := e.links.ListLinks(ctx, userID, profileID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i, l := range after {
		if l.ID != want[i] {
			t.Fatalf("failed reorder must roll back, position %d is %s", i, l.ID)
		}
	}
}
