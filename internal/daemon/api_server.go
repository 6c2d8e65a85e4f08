package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"caster/internal/api"
	"caster/internal/config"
	"caster/internal/library"
	"caster/internal/logging"
	"caster/internal/services"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	live http.Handler

	server   *http.Server
	listener net.Listener
}

// newAPIServer returns nil when the HTTP API is not configured.
func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil || strings.TrimSpace(cfg.Paths.APIBind) == "" {
		return nil
	}

	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logger,
		daemon: d,
		live:   http.StripPrefix("/stream/", http.FileServer(http.Dir(d.LiveDir()))),
	}
	srv.server = &http.Server{
		Handler:           srv.routes(strings.TrimSpace(cfg.Paths.APIToken)),
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

func (s *apiServer) routes(token string) http.Handler {
	mux := http.NewServeMux()
	// Health and the HLS output stay open: players and load balancers do not
	// send bearer tokens.
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stream/", s.handleLive)

	protected := map[string]http.HandlerFunc{
		"/api/status":       s.handleStatus,
		"/api/media":        s.handleMedia,
		"/api/media/":       s.handleMediaItem,
		"/api/groups":       s.handleGroups,
		"/api/groups/":      s.handleGroupItem,
		"/api/stream/start": s.handleStreamStart,
		"/api/stream/stop":  s.handleStreamStop,
		"/api/logs":         s.handleLogs,
	}
	for pattern, handler := range protected {
		mux.HandleFunc(pattern, correlate(authMiddleware(token, handler)))
	}
	return mux
}

// start binds the listener and serves in the background until ctx ends.
func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.bind, err)
	}
	s.listener = ln
	context.AfterFunc(ctx, s.shutdown)

	go func() {
		serveErr := s.server.Serve(ln)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(serveErr))
		}
	}()

	s.log().Info("api server listening", logging.String("address", ln.Addr().String()))
	return nil
}

func (s *apiServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(ctx)
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	s.shutdown()
	ln := s.listener
	s.listener = nil
	if ln != nil {
		_ = ln.Close()
	}
}

// addr reports the bound listen address, or empty before start.
func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// allowMethod rejects requests outside the allowed set with a 405 and tells
// the caller whether to proceed.
func (s *apiServer) allowMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethod(w, r, http.MethodGet) {
		return
	}
	s.writeJSON(w, http.StatusOK, api.NewHealthResponse(time.Now()))
}

// handleLive serves the HLS playlist and segments. Playlists must never be
// cached: players poll them to discover new segments.
func (s *apiServer) handleLive(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	if strings.HasSuffix(r.URL.Path, ".m3u8") {
		w.Header().Set("Cache-Control", "no-cache")
	}
	s.live.ServeHTTP(w, r)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethod(w, r, http.MethodGet) {
		return
	}
	status := s.daemon.Status(r.Context())
	payload := api.FromStreamStatus(status.Stream)
	payload.System = api.FromSnapshot(status.System)
	disk := api.FromUsage(status.Disk)
	payload.Disk = &disk
	libStatus := api.FromStats(status.Library, status.LibraryOK)
	payload.Library = &libStatus
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleMedia(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.daemon.Catalog().ListMedia(r.Context())
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.MediaListResponse{Items: items})
	case http.MethodPost:
		var req api.AddMediaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		item, err := s.daemon.Catalog().AddMedia(r.Context(), req)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, api.ActionResponse{Status: "added", ID: item.ID})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleMediaItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/media/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "media not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		item, err := s.daemon.Catalog().DescribeMedia(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, item)
	case http.MethodDelete:
		if err := s.daemon.Catalog().RemoveMedia(r.Context(), id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.ActionResponse{Status: "removed", ID: id})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleGroups(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		groups, err := s.daemon.Catalog().ListGroups(r.Context())
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.GroupListResponse{Groups: groups})
	case http.MethodPost:
		var req api.SetGroupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if _, err := s.daemon.Catalog().SetGroup(r.Context(), req); err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.ActionResponse{Status: "group_updated"})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleGroupItem(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethod(w, r, http.MethodDelete) {
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/groups/")
	if name == "" || strings.Contains(name, "/") {
		s.writeError(w, http.StatusNotFound, "group not found")
		return
	}
	if err := s.daemon.Catalog().RemoveGroup(r.Context(), name); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ActionResponse{Status: "removed"})
}

func (s *apiServer) handleStreamStart(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethod(w, r, http.MethodPost) {
		return
	}
	var req api.StartStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	message, err := s.daemon.StartStream(r.Context(), req.URL, req.Group, req.LoopEnabled())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ActionResponse{Status: "started", Message: message})
}

func (s *apiServer) handleStreamStop(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethod(w, r, http.MethodPost) {
		return
	}
	if err := s.daemon.StopStream(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ActionResponse{Status: "stopped"})
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethod(w, r, http.MethodGet) {
		return
	}
	hub, archive := s.daemon.LogStream(), s.daemon.LogArchive()
	if hub == nil && archive == nil {
		s.writeJSON(w, http.StatusOK, api.LogStreamResponse{})
		return
	}

	q := parseLogsQuery(r.URL.Query())
	events, next, err := s.collectLogEvents(r.Context(), hub, archive, q)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.LogStreamResponse{
		Events: filterLogEvents(events, q),
		Next:   next,
	})
}

// logsQuery is the decoded form of the /api/logs query string.
type logsQuery struct {
	since  uint64
	limit  int
	follow bool
	tail   bool

	component string
	session   string
	group     string
	level     string
	search    string
}

func parseLogsQuery(values url.Values) logsQuery {
	q := logsQuery{
		component: strings.TrimSpace(values.Get("component")),
		session:   strings.TrimSpace(values.Get("session")),
		group:     strings.TrimSpace(values.Get("group")),
		level:     strings.TrimSpace(values.Get("level")),
		search:    strings.TrimSpace(values.Get("search")),
	}
	q.since, _ = strconv.ParseUint(values.Get("since"), 10, 64)
	q.limit, _ = strconv.Atoi(values.Get("limit"))
	if q.limit <= 0 {
		q.limit, _ = strconv.Atoi(values.Get("tail"))
	}
	if q.limit <= 0 {
		q.limit = 200
	}
	q.follow = values.Get("follow") == "1" || strings.EqualFold(values.Get("follow"), "true")
	q.tail = values.Get("tail") != "" || values.Get("since") == ""
	return q
}

// collectLogEvents resolves one page of log events. Cursors older than the
// hub's ring are served from the on-disk archive so a resuming client still
// observes every retained event.
func (s *apiServer) collectLogEvents(ctx context.Context, hub *logging.StreamHub, archive *logging.EventArchive, q logsQuery) ([]api.LogEvent, uint64, error) {
	if archive != nil && q.since > 0 {
		var firstSeq uint64
		if hub != nil {
			firstSeq = hub.FirstSequence()
		}
		if hub == nil || (firstSeq > 0 && q.since < firstSeq) {
			archived, cursor, err := archive.ReadSince(q.since, q.limit)
			if err != nil {
				s.log().Warn("log archive read failed", logging.Error(err))
			} else if len(archived) > 0 {
				return api.FromLogEvents(archived), cursor, nil
			}
		}
	}
	if hub == nil {
		return nil, 0, nil
	}
	if q.tail && q.since == 0 && !q.follow {
		raw, cursor := hub.Tail(q.limit)
		return api.FromLogEvents(raw), cursor, nil
	}
	raw, cursor, err := hub.Fetch(ctx, q.since, q.limit, q.follow)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, 0, err
	}
	return api.FromLogEvents(raw), cursor, nil
}

func filterLogEvents(events []api.LogEvent, q logsQuery) []api.LogEvent {
	if q.component == "" && q.session == "" && q.group == "" && q.level == "" && q.search == "" {
		return events
	}
	filtered := make([]api.LogEvent, 0, len(events))
	for _, evt := range events {
		switch {
		case q.component != "" && !strings.EqualFold(q.component, evt.Component):
		case q.session != "" && q.session != evt.SessionID:
		case q.group != "" && !strings.EqualFold(q.group, evt.Group):
		case q.level != "" && !strings.EqualFold(q.level, evt.Level):
		case q.search != "" && !strings.Contains(strings.ToLower(evt.Message), strings.ToLower(q.search)):
		default:
			filtered = append(filtered, evt)
		}
	}
	return filtered
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, library.ErrMediaNotFound), errors.Is(err, library.ErrGroupNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log().Error("encode api response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String("component", "api-server"))
}
