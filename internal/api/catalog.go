package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"caster/internal/library"
	"caster/internal/services"
)

// CatalogStore abstracts the catalog persistence interactions the API needs.
type CatalogStore interface {
	AddMedia(ctx context.Context, media *library.Media) (*library.Media, error)
	GetMedia(ctx context.Context, id string) (*library.Media, error)
	ListMedia(ctx context.Context) ([]*library.Media, error)
	RemoveMedia(ctx context.Context, id string) error
	SetGroup(ctx context.Context, name string, mediaIDs []string) (*library.Group, error)
	GetGroup(ctx context.Context, name string) (*library.Group, error)
	ListGroups(ctx context.Context) ([]*library.Group, error)
	RemoveGroup(ctx context.Context, name string) error
}

// CatalogService exposes catalog operations returning API DTOs. The HTTP
// handlers and the IPC surface share it so validation lives in one place.
type CatalogService struct {
	store CatalogStore
}

// NewCatalogService constructs a CatalogService around the provided store.
func NewCatalogService(store CatalogStore) *CatalogService {
	if store == nil {
		return nil
	}
	return &CatalogService{store: store}
}

// ListMedia returns every catalog entry ordered by title.
func (s *CatalogService) ListMedia(ctx context.Context) ([]MediaItem, error) {
	if s == nil || s.store == nil {
		return nil, errCatalogUnavailable("list media")
	}
	items, err := s.store.ListMedia(ctx)
	if err != nil {
		return nil, err
	}
	return FromMediaList(items), nil
}

// AddMedia validates and stores a catalog entry. A missing ID is filled by
// the store; a missing title falls back to the URL.
func (s *CatalogService) AddMedia(ctx context.Context, req AddMediaRequest) (MediaItem, error) {
	if s == nil || s.store == nil {
		return MediaItem{}, errCatalogUnavailable("add media")
	}
	if strings.TrimSpace(req.URL) == "" {
		return MediaItem{}, services.Wrap(services.ErrValidation, "api", "add media", "url is required", nil)
	}
	media, err := s.store.AddMedia(ctx, &library.Media{
		ID:    strings.TrimSpace(req.ID),
		Title: strings.TrimSpace(req.Title),
		URL:   strings.TrimSpace(req.URL),
	})
	if err != nil {
		return MediaItem{}, err
	}
	return FromMedia(media), nil
}

// DescribeMedia fetches a single catalog entry.
func (s *CatalogService) DescribeMedia(ctx context.Context, id string) (MediaItem, error) {
	if s == nil || s.store == nil {
		return MediaItem{}, errCatalogUnavailable("describe media")
	}
	media, err := s.store.GetMedia(ctx, id)
	if err != nil {
		return MediaItem{}, err
	}
	return FromMedia(media), nil
}

// RemoveMedia deletes a catalog entry by ID.
func (s *CatalogService) RemoveMedia(ctx context.Context, id string) error {
	if s == nil || s.store == nil {
		return errCatalogUnavailable("remove media")
	}
	if strings.TrimSpace(id) == "" {
		return services.Wrap(services.ErrValidation, "api", "remove media", "id is required", nil)
	}
	return s.store.RemoveMedia(ctx, id)
}

// ListGroups returns every playlist with its ordered members.
func (s *CatalogService) ListGroups(ctx context.Context) ([]GroupItem, error) {
	if s == nil || s.store == nil {
		return nil, errCatalogUnavailable("list groups")
	}
	groups, err := s.store.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	return FromGroupList(groups), nil
}

// SetGroup creates or replaces a playlist. Member IDs must reference catalog
// entries; unknown IDs fail the whole update.
func (s *CatalogService) SetGroup(ctx context.Context, req SetGroupRequest) (GroupItem, error) {
	if s == nil || s.store == nil {
		return GroupItem{}, errCatalogUnavailable("set group")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return GroupItem{}, services.Wrap(services.ErrValidation, "api", "set group", "name is required", nil)
	}
	for _, id := range req.VideoIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, err := s.store.GetMedia(ctx, id); err != nil {
			if errors.Is(err, library.ErrMediaNotFound) {
				return GroupItem{}, services.Wrap(services.ErrValidation, "api", "set group", fmt.Sprintf("unknown media id %q", id), err)
			}
			return GroupItem{}, err
		}
	}
	group, err := s.store.SetGroup(ctx, name, req.VideoIDs)
	if err != nil {
		return GroupItem{}, err
	}
	return FromGroup(group), nil
}

// RemoveGroup deletes a playlist by name.
func (s *CatalogService) RemoveGroup(ctx context.Context, name string) error {
	if s == nil || s.store == nil {
		return errCatalogUnavailable("remove group")
	}
	if strings.TrimSpace(name) == "" {
		return services.Wrap(services.ErrValidation, "api", "remove group", "name is required", nil)
	}
	return s.store.RemoveGroup(ctx, name)
}

func errCatalogUnavailable(operation string) error {
	return services.Wrap(services.ErrConfiguration, "api", operation, "catalog unavailable", nil)
}
