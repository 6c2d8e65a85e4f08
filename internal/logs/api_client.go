package logs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"caster/internal/api"
)

var ErrAPIUnavailable = errors.New("daemon log API unreachable")

// StreamClient fetches structured log events from a running daemon's
// /api/logs endpoint.
type StreamClient struct {
	base  *url.URL
	token string
	http  *http.Client
}

// StreamQuery filters the event stream. Zero values are omitted from the
// request so the daemon applies its defaults.
type StreamQuery struct {
	Since     uint64
	Limit     int
	Follow    bool
	Tail      bool
	Component string
	SessionID string
	Group     string
	Level     string
	Search    string
}

func (q StreamQuery) values() url.Values {
	v := url.Values{}
	if q.Since > 0 {
		v.Set("since", strconv.FormatUint(q.Since, 10))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Follow {
		v.Set("follow", "1")
	}
	if q.Tail {
		v.Set("tail", "1")
	}
	for key, value := range map[string]string{
		"component": q.Component,
		"session":   q.SessionID,
		"group":     q.Group,
		"level":     q.Level,
		"search":    q.Search,
	} {
		if strings.TrimSpace(value) != "" {
			v.Set(key, value)
		}
	}
	return v
}

// NewStreamClient builds a client for the given bind address. An empty bind
// returns a nil client, which Fetch treats as API unavailable.
func NewStreamClient(bind, token string) (*StreamClient, error) {
	addr := strings.TrimSpace(bind)
	if addr == "" {
		return nil, nil
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	parsed, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}
	return &StreamClient{
		// Keep only scheme and host; Fetch resolves paths against the base.
		base:  &url.URL{Scheme: parsed.Scheme, Host: parsed.Host},
		token: strings.TrimSpace(token),
		// No timeout: follow mode blocks waiting for events until the
		// caller cancels the context.
		http: new(http.Client),
	}, nil
}

// Fetch retrieves one page of log events.
func (c *StreamClient) Fetch(ctx context.Context, q StreamQuery) (api.LogStreamResponse, error) {
	var page api.LogStreamResponse
	if c == nil {
		return page, ErrAPIUnavailable
	}

	endpoint := c.base.ResolveReference(&url.URL{Path: "/api/logs", RawQuery: q.values().Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return page, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return page, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return page, fmt.Errorf("api logs returned status %d", res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(&page); err != nil {
		return api.LogStreamResponse{}, fmt.Errorf("decode log stream: %w", err)
	}
	return page, nil
}

// IsAPIUnavailable reports whether err means the daemon's HTTP API cannot be
// reached, as opposed to the API rejecting the request.
func IsAPIUnavailable(err error) bool {
	if errors.Is(err, ErrAPIUnavailable) {
		return true
	}
	// Transport failures surface as a *net.OpError, wrapped in the
	// *url.Error the http client returns. errors.As unwraps both.
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
