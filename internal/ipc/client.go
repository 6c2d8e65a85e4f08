package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon over its unix control socket.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to the daemon control socket. The short timeout keeps CLI
// commands snappy when the daemon is down.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return nil, err
	}
	return &Client{rpc: rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))}, nil
}

// Close releases the socket.
func (c *Client) Close() error {
	if c == nil || c.rpc == nil {
		return nil
	}
	return c.rpc.Close()
}

// call invokes one daemon method and decodes the reply. Every RPC the daemon
// exposes is registered under the Caster service name.
func call[Resp any](c *Client, method string, req any) (*Resp, error) {
	resp := new(Resp)
	if err := c.rpc.Call("Caster."+method, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Ping checks that the daemon process is alive.
func (c *Client) Ping() (*PingResponse, error) {
	return call[PingResponse](c, "Ping", PingRequest{})
}

// Start requests the daemon to bring up its streaming subsystems.
func (c *Client) Start() (*StartResponse, error) {
	return call[StartResponse](c, "Start", StartRequest{})
}

// Stop requests the daemon to drain its streaming subsystems.
func (c *Client) Stop() (*StopResponse, error) {
	return call[StopResponse](c, "Stop", StopRequest{})
}

// Status retrieves the aggregated daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", StatusRequest{})
}

// StartStream begins playback of a URL or a named group.
func (c *Client) StartStream(req StartStreamRequest) (*StartStreamResponse, error) {
	return call[StartStreamResponse](c, "StartStream", req)
}

// StopStream halts playback while leaving the daemon running.
func (c *Client) StopStream() (*StopStreamResponse, error) {
	return call[StopStreamResponse](c, "StopStream", StopStreamRequest{})
}

// RecentLogs returns structured log events from the daemon.
func (c *Client) RecentLogs(req RecentLogsRequest) (*RecentLogsResponse, error) {
	return call[RecentLogsResponse](c, "RecentLogs", req)
}

// DatabaseHealth retrieves detailed catalog database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	return call[DatabaseHealthResponse](c, "DatabaseHealth", DatabaseHealthRequest{})
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}

// MediaList fetches every catalog entry.
func (c *Client) MediaList() (*MediaListResponse, error) {
	return call[MediaListResponse](c, "MediaList", MediaListRequest{})
}

// MediaAdd registers a catalog entry.
func (c *Client) MediaAdd(req MediaAddRequest) (*MediaAddResponse, error) {
	return call[MediaAddResponse](c, "MediaAdd", req)
}

// MediaRemove deletes a catalog entry by ID.
func (c *Client) MediaRemove(req MediaRemoveRequest) (*MediaRemoveResponse, error) {
	return call[MediaRemoveResponse](c, "MediaRemove", req)
}

// GroupList fetches every playlist.
func (c *Client) GroupList() (*GroupListResponse, error) {
	return call[GroupListResponse](c, "GroupList", GroupListRequest{})
}

// GroupSet creates or replaces a playlist.
func (c *Client) GroupSet(req GroupSetRequest) (*GroupSetResponse, error) {
	return call[GroupSetResponse](c, "GroupSet", req)
}

// GroupRemove deletes a playlist by name.
func (c *Client) GroupRemove(req GroupRemoveRequest) (*GroupRemoveResponse, error) {
	return call[GroupRemoveResponse](c, "GroupRemove", req)
}
