package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	apitypes "github.com/Alia5/blemouse/apitypes"
)

// Client provides a high-level interface to the control API, handling request
// formatting, response parsing, and error handling.
type Client struct{ transport *Transport }

// New constructs a high-level API client using the internal low-level Transport.
// The addr parameter specifies the TCP address (host:port) of the API server.
func New(addr string) *Client { return &Client{transport: NewTransport(addr)} }

// NewWithPassword constructs a client that authenticates with the given password.
func NewWithPassword(addr, password string) *Client {
	return &Client{transport: NewTransportWithPassword(addr, password)}
}

// NewWithConfig constructs a client with custom transport timeouts.
func NewWithConfig(addr string, cfg *Config) *Client {
	return &Client{transport: NewTransportWithConfig(addr, cfg)}
}

// WithTransport constructs a Client using a custom Transport implementation.
// This is primarily useful for testing or when advanced transport configuration is needed.
func WithTransport(t *Transport) *Client { return &Client{transport: t} }

// Ping returns the version and identity of the server.
func (c *Client) Ping() (*apitypes.PingResponse, error) {
	return c.PingCtx(context.Background())
}

// PingCtx is the context-aware version of Ping.
func (c *Client) PingCtx(ctx context.Context) (*apitypes.PingResponse, error) {
	return do[apitypes.PingResponse](ctx, c, "ping", nil)
}

// Status returns advertising state, connected clients and queue levels.
func (c *Client) Status() (*apitypes.StatusResponse, error) {
	return c.StatusCtx(context.Background())
}

func (c *Client) StatusCtx(ctx context.Context) (*apitypes.StatusResponse, error) {
	return do[apitypes.StatusResponse](ctx, c, "status", nil)
}

// Clients lists the occupied client slots.
func (c *Client) Clients() (*apitypes.ClientsListResponse, error) {
	return c.ClientsCtx(context.Background())
}

func (c *Client) ClientsCtx(ctx context.Context) (*apitypes.ClientsListResponse, error) {
	return do[apitypes.ClientsListResponse](ctx, c, "clients/list", nil)
}

// Bonds lists the bonded peers known to the adapter.
func (c *Client) Bonds() (*apitypes.BondsListResponse, error) {
	return c.BondsCtx(context.Background())
}

func (c *Client) BondsCtx(ctx context.Context) (*apitypes.BondsListResponse, error) {
	return do[apitypes.BondsListResponse](ctx, c, "bonds/list", nil)
}

// Pairing lists the pairing requests waiting for an answer, head first.
func (c *Client) Pairing() (*apitypes.PairingListResponse, error) {
	return c.PairingCtx(context.Background())
}

func (c *Client) PairingCtx(ctx context.Context) (*apitypes.PairingListResponse, error) {
	return do[apitypes.PairingListResponse](ctx, c, "pairing/list", nil)
}

// ResolvePairing accepts or rejects the pairing request at the head of the queue.
func (c *Client) ResolvePairing(accept bool) (*apitypes.PairingResolveResponse, error) {
	return c.ResolvePairingCtx(context.Background(), accept)
}

func (c *Client) ResolvePairingCtx(ctx context.Context, accept bool) (*apitypes.PairingResolveResponse, error) {
	path := "pairing/reject"
	if accept {
		path = "pairing/accept"
	}
	return do[apitypes.PairingResolveResponse](ctx, c, path, nil)
}

// Move queues one relative movement for every connected client.
func (c *Client) Move(dx, dy int16) error {
	return c.MoveCtx(context.Background(), dx, dy)
}

func (c *Client) MoveCtx(ctx context.Context, dx, dy int16) error {
	return c.doEmpty(ctx, "mouse/move", apitypes.MoveRequest{DX: dx, DY: dy})
}

// Press reports the given button mask.
func (c *Client) Press(buttons uint8) error {
	return c.PressCtx(context.Background(), buttons)
}

func (c *Client) PressCtx(ctx context.Context, buttons uint8) error {
	return c.doEmpty(ctx, "mouse/buttons", apitypes.ButtonsRequest{Buttons: buttons})
}

// Media reports the given consumer control key mask.
func (c *Client) Media(keys uint8) error {
	return c.MediaCtx(context.Background(), keys)
}

func (c *Client) MediaCtx(ctx context.Context, keys uint8) error {
	return c.doEmpty(ctx, "mouse/media", apitypes.MediaRequest{Keys: keys})
}

func do[T any](ctx context.Context, c *Client, path string, payload any) (*T, error) {
	raw, err := c.transport.DoCtx(ctx, path, payload, nil)
	if err != nil {
		return nil, err
	}
	return parse[T](raw)
}

// doEmpty runs a command whose success response is empty.
func (c *Client) doEmpty(ctx context.Context, path string, payload any) error {
	raw, err := c.transport.DoCtx(ctx, path, payload, nil)
	if err != nil {
		return err
	}
	if raw == "" {
		return nil
	}
	var problem apitypes.ApiError
	if err := json.Unmarshal([]byte(raw), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
		return &problem
	}
	return fmt.Errorf("unexpected response: %s", raw)
}

func parse[T any](data string) (*T, error) {
	if data == "" {
		return nil, errors.New("empty response")
	}
	var problem apitypes.ApiError
	if err := json.Unmarshal([]byte(data), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
		return nil, &problem
	}
	var out T
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
