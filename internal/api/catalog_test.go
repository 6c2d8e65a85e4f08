package api

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"caster/internal/library"
	"caster/internal/services"
)

type mockCatalogStore struct {
	media  map[string]*library.Media
	groups map[string]*library.Group

	addErr error
	setErr error
}

func newMockCatalogStore() *mockCatalogStore {
	return &mockCatalogStore{
		media:  make(map[string]*library.Media),
		groups: make(map[string]*library.Group),
	}
}

func (m *mockCatalogStore) AddMedia(_ context.Context, media *library.Media) (*library.Media, error) {
	if m.addErr != nil {
		return nil, m.addErr
	}
	stored := *media
	if stored.ID == "" {
		stored.ID = fmt.Sprintf("generated-%d", len(m.media)+1)
	}
	if stored.Title == "" {
		stored.Title = stored.URL
	}
	m.media[stored.ID] = &stored
	return &stored, nil
}

func (m *mockCatalogStore) GetMedia(_ context.Context, id string) (*library.Media, error) {
	media, ok := m.media[id]
	if !ok {
		return nil, fmt.Errorf("media %q: %w", id, library.ErrMediaNotFound)
	}
	return media, nil
}

func (m *mockCatalogStore) ListMedia(context.Context) ([]*library.Media, error) {
	out := make([]*library.Media, 0, len(m.media))
	for _, media := range m.media {
		out = append(out, media)
	}
	return out, nil
}

func (m *mockCatalogStore) RemoveMedia(_ context.Context, id string) error {
	if _, ok := m.media[id]; !ok {
		return fmt.Errorf("media %q: %w", id, library.ErrMediaNotFound)
	}
	delete(m.media, id)
	return nil
}

func (m *mockCatalogStore) SetGroup(_ context.Context, name string, mediaIDs []string) (*library.Group, error) {
	if m.setErr != nil {
		return nil, m.setErr
	}
	group := &library.Group{Name: name, MediaIDs: append([]string(nil), mediaIDs...)}
	m.groups[name] = group
	return group, nil
}

func (m *mockCatalogStore) GetGroup(_ context.Context, name string) (*library.Group, error) {
	group, ok := m.groups[name]
	if !ok {
		return nil, fmt.Errorf("group %q: %w", name, library.ErrGroupNotFound)
	}
	return group, nil
}

func (m *mockCatalogStore) ListGroups(context.Context) ([]*library.Group, error) {
	out := make([]*library.Group, 0, len(m.groups))
	for _, group := range m.groups {
		out = append(out, group)
	}
	return out, nil
}

func (m *mockCatalogStore) RemoveGroup(_ context.Context, name string) error {
	if _, ok := m.groups[name]; !ok {
		return fmt.Errorf("group %q: %w", name, library.ErrGroupNotFound)
	}
	delete(m.groups, name)
	return nil
}

func TestCatalogServiceAddMedia(t *testing.T) {
	store := newMockCatalogStore()
	svc := NewCatalogService(store)

	item, err := svc.AddMedia(context.Background(), AddMediaRequest{URL: "https://example.com/a.mp4"})
	if err != nil {
		t.Fatalf("AddMedia returned error: %v", err)
	}
	if item.ID == "" {
		t.Fatal("expected a generated ID")
	}
	if item.Title != "https://example.com/a.mp4" {
		t.Fatalf("expected title to fall back to the URL, got %q", item.Title)
	}

	named, err := svc.AddMedia(context.Background(), AddMediaRequest{ID: "vid-1", Title: "  Sintel  ", URL: " https://example.com/s.mp4 "})
	if err != nil {
		t.Fatalf("AddMedia returned error: %v", err)
	}
	if named.ID != "vid-1" || named.Title != "Sintel" {
		t.Fatalf("expected trimmed fields, got %+v", named)
	}
}

func TestCatalogServiceAddMediaRequiresURL(t *testing.T) {
	svc := NewCatalogService(newMockCatalogStore())
	if _, err := svc.AddMedia(context.Background(), AddMediaRequest{Title: "No URL"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCatalogServiceRemoveMedia(t *testing.T) {
	store := newMockCatalogStore()
	store.media["vid-1"] = &library.Media{ID: "vid-1", Title: "Sintel", URL: "u"}
	svc := NewCatalogService(store)

	if err := svc.RemoveMedia(context.Background(), "vid-1"); err != nil {
		t.Fatalf("RemoveMedia returned error: %v", err)
	}
	if err := svc.RemoveMedia(context.Background(), "vid-1"); !errors.Is(err, library.ErrMediaNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if err := svc.RemoveMedia(context.Background(), "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for blank id, got %v", err)
	}
}

func TestCatalogServiceSetGroupValidatesMembers(t *testing.T) {
	store := newMockCatalogStore()
	store.media["vid-1"] = &library.Media{ID: "vid-1", Title: "Sintel", URL: "u"}
	svc := NewCatalogService(store)

	group, err := svc.SetGroup(context.Background(), SetGroupRequest{Name: "evening", VideoIDs: []string{"vid-1"}})
	if err != nil {
		t.Fatalf("SetGroup returned error: %v", err)
	}
	if group.Name != "evening" || len(group.VideoIDs) != 1 {
		t.Fatalf("unexpected group DTO: %+v", group)
	}

	_, err = svc.SetGroup(context.Background(), SetGroupRequest{Name: "evening", VideoIDs: []string{"missing"}})
	if !errors.Is(err, services.ErrValidation) || !errors.Is(err, library.ErrMediaNotFound) {
		t.Fatalf("expected validation error carrying the member lookup failure, got %v", err)
	}
	if _, err := svc.SetGroup(context.Background(), SetGroupRequest{Name: "  "}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for blank name, got %v", err)
	}
}

func TestCatalogServiceRemoveGroup(t *testing.T) {
	store := newMockCatalogStore()
	store.groups["evening"] = &library.Group{Name: "evening"}
	svc := NewCatalogService(store)

	if err := svc.RemoveGroup(context.Background(), "evening"); err != nil {
		t.Fatalf("RemoveGroup returned error: %v", err)
	}
	if err := svc.RemoveGroup(context.Background(), "evening"); !errors.Is(err, library.ErrGroupNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestCatalogServiceDescribeMedia(t *testing.T) {
	store := newMockCatalogStore()
	store.media["vid-1"] = &library.Media{ID: "vid-1", Title: "Sintel", URL: "https://example.com/s.mp4"}
	svc := NewCatalogService(store)

	item, err := svc.DescribeMedia(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("DescribeMedia returned error: %v", err)
	}
	if item.ID != "vid-1" || item.Title != "Sintel" {
		t.Fatalf("unexpected media DTO: %+v", item)
	}
	if _, err := svc.DescribeMedia(context.Background(), "missing"); !errors.Is(err, library.ErrMediaNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestCatalogServiceNilReceiver(t *testing.T) {
	var svc *CatalogService
	if _, err := svc.ListMedia(context.Background()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error from nil service, got %v", err)
	}
	if _, err := svc.SetGroup(context.Background(), SetGroupRequest{Name: "evening"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error from nil service, got %v", err)
	}
	if err := svc.RemoveMedia(context.Background(), "vid-1"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error from nil service, got %v", err)
	}
	if NewCatalogService(nil) != nil {
		t.Fatal("expected nil service for nil store")
	}
}
