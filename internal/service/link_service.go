package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"linkpage/internal/database"
	"linkpage/internal/errcode"
	"linkpage/internal/repository"
)

// LinkInput 是新建链接的字段；IsActive 缺省为 true。
type LinkInput struct {
	Label       string
	URL         string
	Description *string
	Icon        *string
	IsActive    *bool
}

// LinkService 管理页面上的链接。每个操作先确认调用方拥有父页面。
type LinkService struct {
	profiles *repository.ProfileRepository
	links    *repository.LinkRepository
}

func NewLinkService(repos repository.Repositories) *LinkService {
	return &LinkService{profiles: repos.Profiles, links: repos.Links}
}

// ListLinks 按 sort_order 升序返回链接。
func (s *LinkService) ListLinks(ctx context.Context, userID, profileID uuid.UUID) ([]database.ProfileLink, error) {
	if _, err := ownedProfile(ctx, s.profiles, userID, profileID); err != nil {
		return nil, err
	}
	return s.links.ListByProfile(ctx, profileID)
}

// CreateLink 将链接追加到末尾；已有 50 个链接时返回 MAX_LINKS。
func (s *LinkService) CreateLink(ctx context.Context, userID, profileID uuid.UUID, in LinkInput) (*database.ProfileLink, error) {
	if _, err := ownedProfile(ctx, s.profiles, userID, profileID); err != nil {
		return nil, err
	}

	link := &database.ProfileLink{
		ProfileID:   profileID,
		Label:       stripMarkup(in.Label),
		URL:         in.URL,
		Description: sanitizeOptional(in.Description),
		Icon:        in.Icon,
		IsActive:    in.IsActive == nil || *in.IsActive,
	}
	if link.Label == "" {
		return nil, errcode.Validation("label must not be empty")
	}
	if err := s.links.Append(ctx, link, database.MaxLinksPerProfile); err != nil {
		switch {
		case errors.Is(err, repository.ErrLimitReached):
			return nil, errcode.ErrMaxLinks
		case errors.Is(err, repository.ErrNotFound):
			return nil, errcode.ErrProfileNotFound
		}
		return nil, err
	}
	return link, nil
}

// UpdateLink 只写入补丁中出现的字段；sort_order 只能通过 ReorderLinks 修改。
func (s *LinkService) UpdateLink(ctx context.Context, userID, profileID, linkID uuid.UUID, p database.LinkPatch) (*database.ProfileLink, error) {
	if _, err := ownedProfile(ctx, s.profiles, userID, profileID); err != nil {
		return nil, err
	}

	if p.Label.Set {
		if p.Label.Null {
			return nil, errcode.Validation("label must not be null")
		}
		if p.Label.Value = stripMarkup(p.Label.Value); p.Label.Value == "" {
			return nil, errcode.Validation("label must not be empty")
		}
	}
	if p.URL.Set && p.URL.Null {
		return nil, errcode.Validation("url must not be null")
	}
	if p.IsActive.Set && p.IsActive.Null {
		return nil, errcode.Validation("is_active must not be null")
	}
	if p.Description.Present() {
		p.Description.Value = stripMarkup(p.Description.Value)
	}

	link, err := s.links.Update(ctx, linkID, profileID, p.Columns())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errcode.ErrLinkNotFound
		}
		return nil, err
	}
	return link, nil
}

// DeleteLink 硬删除链接。
func (s *LinkService) DeleteLink(ctx context.Context, userID, profileID, linkID uuid.UUID) error {
	if _, err := ownedProfile(ctx, s.profiles, userID, profileID); err != nil {
		return err
	}
	if err := s.links.Delete(ctx, linkID, profileID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errcode.ErrLinkNotFound
		}
		return err
	}
	return nil
}

// ReorderLinks 在一个事务中写入全部 sort_order，返回重排后的列表。
// 任一 ID 不属于该页面时整体回滚；并发重排最后写入者生效。
func (s *LinkService) ReorderLinks(ctx context.Context, userID, profileID uuid.UUID, orders []repository.LinkOrder) ([]database.ProfileLink, error) {
	if _, err := ownedProfile(ctx, s.profiles, userID, profileID); err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(orders))
	for _, o := range orders {
		if o.SortOrder < 0 {
			return nil, errcode.Validation("sort_order must be zero or greater")
		}
		if _, dup := seen[o.ID]; dup {
			return nil, errcode.Validation("links must not contain duplicate ids")
		}
		seen[o.ID] = struct{}{}
	}

	if err := s.links.Reorder(ctx, profileID, orders); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errcode.ErrLinkNotFound
		}
		return nil, err
	}
	return s.links.ListByProfile(ctx, profileID)
}

func sanitizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	clean := stripMarkup(*v)
	return &clean
}
