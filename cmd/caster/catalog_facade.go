package main

import (
	"context"
	"errors"
	"strings"

	"caster/internal/api"
	"caster/internal/ipc"
	"caster/internal/library"
)

// catalogAPI is the catalog surface the media and group commands run against.
// When the daemon is up the IPC adapter serves it so changes are visible to
// the running engine immediately; otherwise the store adapter works on the
// database directly.
type catalogAPI interface {
	ListMedia(ctx context.Context) ([]api.MediaItem, error)
	AddMedia(ctx context.Context, req api.AddMediaRequest) (api.MediaItem, error)
	RemoveMedia(ctx context.Context, id string) error
	ListGroups(ctx context.Context) ([]api.GroupItem, error)
	SetGroup(ctx context.Context, req api.SetGroupRequest) (api.GroupItem, error)
	RemoveGroup(ctx context.Context, name string) error
}

// notFound reports whether err is a catalog miss. RPC errors arrive as flat
// strings, so the sentinel match falls back to a substring check.
func notFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, library.ErrMediaNotFound) || errors.Is(err, library.ErrGroupNotFound) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, library.ErrMediaNotFound.Error()) || strings.Contains(msg, library.ErrGroupNotFound.Error())
}

// catalogIPCAdapter serves catalogAPI over the daemon control socket.
type catalogIPCAdapter struct {
	client *ipc.Client
}

func (a *catalogIPCAdapter) ListMedia(_ context.Context) ([]api.MediaItem, error) {
	reply, err := a.client.MediaList()
	if err != nil {
		return nil, err
	}
	return reply.Items, nil
}

func (a *catalogIPCAdapter) AddMedia(_ context.Context, req api.AddMediaRequest) (api.MediaItem, error) {
	reply, err := a.client.MediaAdd(ipc.MediaAddRequest{ID: req.ID, Title: req.Title, URL: req.URL})
	if err != nil {
		return api.MediaItem{}, err
	}
	return reply.Item, nil
}

func (a *catalogIPCAdapter) RemoveMedia(_ context.Context, id string) error {
	_, err := a.client.MediaRemove(ipc.MediaRemoveRequest{ID: id})
	return err
}

func (a *catalogIPCAdapter) ListGroups(_ context.Context) ([]api.GroupItem, error) {
	reply, err := a.client.GroupList()
	if err != nil {
		return nil, err
	}
	return reply.Groups, nil
}

func (a *catalogIPCAdapter) SetGroup(_ context.Context, req api.SetGroupRequest) (api.GroupItem, error) {
	reply, err := a.client.GroupSet(ipc.GroupSetRequest{Name: req.Name, VideoIDs: req.VideoIDs})
	if err != nil {
		return api.GroupItem{}, err
	}
	return reply.Group, nil
}

func (a *catalogIPCAdapter) RemoveGroup(_ context.Context, name string) error {
	_, err := a.client.GroupRemove(ipc.GroupRemoveRequest{Name: name})
	return err
}

// catalogStoreAdapter serves catalogAPI straight from the catalog service,
// for use while no daemon is running.
type catalogStoreAdapter struct {
	service *api.CatalogService
}

func (a *catalogStoreAdapter) ListMedia(ctx context.Context) ([]api.MediaItem, error) {
	return a.service.ListMedia(ctx)
}

func (a *catalogStoreAdapter) AddMedia(ctx context.Context, req api.AddMediaRequest) (api.MediaItem, error) {
	return a.service.AddMedia(ctx, req)
}

func (a *catalogStoreAdapter) RemoveMedia(ctx context.Context, id string) error {
	return a.service.RemoveMedia(ctx, id)
}

func (a *catalogStoreAdapter) ListGroups(ctx context.Context) ([]api.GroupItem, error) {
	return a.service.ListGroups(ctx)
}

func (a *catalogStoreAdapter) SetGroup(ctx context.Context, req api.SetGroupRequest) (api.GroupItem, error) {
	return a.service.SetGroup(ctx, req)
}

func (a *catalogStoreAdapter) RemoveGroup(ctx context.Context, name string) error {
	return a.service.RemoveGroup(ctx, name)
}
