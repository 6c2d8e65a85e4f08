package ipc

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"caster/internal/api"
	"caster/internal/daemon"
	"caster/internal/logging"
)

// service is the RPC receiver registered on the control socket. Its ctx is
// the daemon lifecycle context, so in-flight calls end at shutdown.
type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger // already tagged with the ipc component
	ctx    context.Context
}

// Ping reports liveness of the daemon process.
func (s *service) Ping(req *PingRequest, resp *PingResponse) error {
	resp.PID = os.Getpid()
	return nil
}

// Start brings up the streaming subsystems if they are not already running.
func (s *service) Start(req *StartRequest, resp *StartResponse) error {
	if err := s.daemon.Start(s.ctx); err != nil {
		s.logger.Error("start via ipc failed", logging.Error(err))
		return err
	}
	resp.Started = true
	resp.Message = "daemon started"
	return nil
}

// Stop drains the streaming subsystems. The process stays alive to serve
// further control calls.
func (s *service) Stop(req *StopRequest, resp *StopResponse) error {
	s.daemon.Stop()
	resp.Stopped = true
	return nil
}

// Status reports aggregated daemon, engine, and system state.
func (s *service) Status(req *StatusRequest, resp *StatusResponse) error {
	st := s.daemon.Status(s.ctx)

	engine := api.FromStreamStatus(st.Stream)
	engine.System = api.FromSnapshot(st.System)
	disk := api.FromUsage(st.Disk)
	engine.Disk = &disk
	library := api.FromStats(st.Library, st.LibraryOK)
	engine.Library = &library

	resp.Running = st.Running
	resp.PID = st.PID
	resp.Engine = engine
	resp.Dependencies = api.FromDependencyStatuses(st.Dependencies)
	resp.DatabasePath = st.DatabasePath
	resp.LockPath = st.LockFilePath
	return nil
}

// StartStream begins playback of a URL or a named group.
func (s *service) StartStream(req *StartStreamRequest, resp *StartStreamResponse) error {
	message, err := s.daemon.StartStream(s.ctx, req.URL, req.Group, req.Loop)
	if err != nil {
		s.logger.Error("start stream via ipc failed", logging.Error(err))
		return err
	}
	resp.Message = message
	return nil
}

// StopStream halts playback without touching the daemon lifecycle.
func (s *service) StopStream(req *StopStreamRequest, resp *StopStreamResponse) error {
	if err := s.daemon.StopStream(s.ctx); err != nil {
		s.logger.Error("stop stream via ipc failed", logging.Error(err))
		return err
	}
	resp.Stopped = true
	return nil
}

// RecentLogs returns structured log events from the in-memory hub.
func (s *service) RecentLogs(req *RecentLogsRequest, resp *RecentLogsResponse) error {
	hub := s.daemon.LogStream()
	if hub == nil {
		resp.Events = []LogEvent{}
		resp.Next = req.Since
		return nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 200
	}

	var (
		events []logging.LogEvent
		next   uint64
	)
	if req.Since == 0 && !req.Follow {
		events, next = hub.Tail(limit)
	} else {
		ctx := s.ctx
		if req.Follow && req.WaitMillis > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(req.WaitMillis)*time.Millisecond)
			defer cancel()
		}
		var err error
		events, next, err = hub.Fetch(ctx, req.Since, limit, req.Follow)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	}

	resp.Events = api.FromLogEvents(events)
	resp.Next = next
	return nil
}

// DatabaseHealth reports detailed catalog database diagnostics.
func (s *service) DatabaseHealth(req *DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.DatabaseHealth(s.ctx)
	if err != nil {
		return err
	}
	*resp = DatabaseHealthResponse{
		Path:           health.Path,
		Exists:         health.Exists,
		Readable:       health.Readable,
		SchemaVersion:  health.SchemaVersion,
		MediaTable:     health.MediaTable,
		MediaColumns:   health.MediaColumns,
		MissingColumns: health.MissingColumns,
		IntegrityCheck: health.IntegrityCheck,
		TotalMedia:     health.TotalMedia,
		TotalGroups:    health.TotalGroups,
		Error:          health.Error,
	}
	return nil
}

// TestNotification sends a test event through the configured notifier.
func (s *service) TestNotification(req *TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	if err != nil {
		s.logger.Warn("test notification failed", logging.Error(err))
	}
	resp.Sent = sent
	resp.Message = message
	return nil
}

// MediaList returns every catalog entry.
func (s *service) MediaList(req *MediaListRequest, resp *MediaListResponse) error {
	items, err := s.daemon.Catalog().ListMedia(s.ctx)
	if err != nil {
		return err
	}
	if items == nil {
		items = []api.MediaItem{}
	}
	resp.Items = items
	return nil
}

// MediaAdd validates and stores a catalog entry.
func (s *service) MediaAdd(req *MediaAddRequest, resp *MediaAddResponse) error {
	item, err := s.daemon.Catalog().AddMedia(s.ctx, api.AddMediaRequest{ID: req.ID, Title: req.Title, URL: req.URL})
	if err != nil {
		return err
	}
	resp.Item = item
	return nil
}

// MediaRemove deletes a catalog entry by ID.
func (s *service) MediaRemove(req *MediaRemoveRequest, resp *MediaRemoveResponse) error {
	if err := s.daemon.Catalog().RemoveMedia(s.ctx, req.ID); err != nil {
		return err
	}
	resp.Removed = true
	return nil
}

// GroupList returns every playlist.
func (s *service) GroupList(req *GroupListRequest, resp *GroupListResponse) error {
	groups, err := s.daemon.Catalog().ListGroups(s.ctx)
	if err != nil {
		return err
	}
	if groups == nil {
		groups = []api.GroupItem{}
	}
	resp.Groups = groups
	return nil
}

// GroupSet creates or replaces a playlist.
func (s *service) GroupSet(req *GroupSetRequest, resp *GroupSetResponse) error {
	group, err := s.daemon.Catalog().SetGroup(s.ctx, api.SetGroupRequest{Name: req.Name, VideoIDs: req.VideoIDs})
	if err != nil {
		return err
	}
	resp.Group = group
	return nil
}

// GroupRemove deletes a playlist by name.
func (s *service) GroupRemove(req *GroupRemoveRequest, resp *GroupRemoveResponse) error {
	if err := s.daemon.Catalog().RemoveGroup(s.ctx, req.Name); err != nil {
		return err
	}
	resp.Removed = true
	return nil
}
