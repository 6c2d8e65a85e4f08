package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"caster/internal/config"
)

const userAgent = "Caster-Go/0.1.0"

// Event identifies a notifiable engine milestone.
type Event string

const (
	// EventStreamStarted fires when a solo stream goes live.
	EventStreamStarted Event = "stream_started"
	// EventPlaylistStarted fires when a playlist group begins playback.
	EventPlaylistStarted Event = "playlist_started"
	// EventPlaylistFinished fires when a non-looping playlist runs out.
	EventPlaylistFinished Event = "playlist_finished"
	// EventStreamStopped fires when an operator stops playback.
	EventStreamStopped Event = "stream_stopped"
	// EventResourceGuard fires when the memory guard resets the transcoder.
	EventResourceGuard Event = "resource_guard"
	// EventError fires for failures worth an operator's attention.
	EventError Event = "error"
	// EventTest exercises the notification pipeline end to end.
	EventTest Event = "test"
)

// Payload carries the template values for an event message.
type Payload map[string]string

// Service defines the notification surface exposed to engine components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds the notification publisher for the configured ntfy
// topic, or a noop publisher when no topic is set.
func NewService(cfg *config.Config) Service {
	endpoint := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if endpoint == "" {
		return nopService{}
	}

	timeout := 10 * time.Second
	if secs := cfg.Notifications.RequestTimeout; secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}

	return &ntfyService{
		endpoint:     endpoint,
		client:       &http.Client{Timeout: timeout},
		streamEvents: cfg.Notifications.StreamEvents,
		errorEvents:  cfg.Notifications.Errors,
	}
}

type message struct {
	title    string
	body     string
	priority string
	tags     []string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	streamEvents bool
	errorEvents  bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event) {
		return nil
	}
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventStreamStarted, EventPlaylistStarted, EventPlaylistFinished, EventStreamStopped:
		return n.streamEvents
	case EventResourceGuard, EventError:
		return n.errorEvents
	case EventTest:
		return true
	default:
		return false
	}
}

func render(event Event, payload Payload) (message, bool) {
	get := func(key string) string { return strings.TrimSpace(payload[key]) }

	switch event {
	case EventStreamStarted:
		title := get("title")
		if title == "" {
			title = get("source")
		}
		return message{
			title: "Caster - Stream Started",
			body:  fmt.Sprintf("📡 Live: %s", title),
			tags:  []string{"caster", "stream", "started"},
		}, true
	case EventPlaylistStarted:
		body := fmt.Sprintf("▶ Playlist %s started", get("group"))
		if length := get("length"); length != "" {
			body = fmt.Sprintf("%s (%s items)", body, length)
		}
		return message{
			title: "Caster - Playlist Started",
			body:  body,
			tags:  []string{"caster", "playlist", "started"},
		}, true
	case EventPlaylistFinished:
		return message{
			title: "Caster - Playlist Finished",
			body:  fmt.Sprintf("⏹ Playlist %s finished", get("group")),
			tags:  []string{"caster", "playlist", "finished"},
		}, true
	case EventStreamStopped:
		body := "⏹ Stream stopped"
		if reason := get("reason"); reason != "" {
			body = fmt.Sprintf("%s: %s", body, reason)
		}
		return message{
			title: "Caster - Stream Stopped",
			body:  body,
			tags:  []string{"caster", "stream", "stopped"},
		}, true
	case EventResourceGuard:
		return message{
			title:    "Caster - Memory Guard",
			body:     fmt.Sprintf("⚠ High memory usage (%s), resetting stream", get("memory")),
			tags:     []string{"caster", "guard", "alert"},
			priority: "high",
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := get("context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if errText := get("error"); errText != "" {
			builder.WriteString(errText)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "Caster - Error",
			body:     builder.String(),
			tags:     []string{"caster", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Caster - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"caster", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("User-Agent", userAgent)
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, doErr := n.client.Do(req)
	if doErr != nil {
		return fmt.Errorf("send ntfy notification: %w", doErr)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

type nopService struct{}

func (nopService) Publish(context.Context, Event, Payload) error { return nil }
