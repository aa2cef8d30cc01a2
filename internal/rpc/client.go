// Copyright 2025 smart-bench-go
//
// Package rpc implements a minimal JSON-RPC 2.0 client over a
// persistent WebSocket connection, shared by both chain adapters. It
// multiplexes request/response correlation by id and subscription
// notifications by subscription id, all multiplexed over the single
// connection shared by every concurrent request and subscription.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Client is a JSON-RPC 2.0 client multiplexed over one WebSocket
// connection. All exported methods are safe for concurrent use.
type Client struct {
	conn *websocket.Conn

	nextID uint64

	mu      sync.Mutex
	pending map[uint64]chan rpcResponse

	subMu sync.Mutex
	subs  map[string]chan json.RawMessage // subscription id -> delivery channel

	writeMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	// notification fields, present when ID is absent/zero
	Method string            `json:"method,omitempty"`
	Params *subscriptionNote `json:"params,omitempty"`
}

type subscriptionNote struct {
	Subscription string          `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Dial opens a WebSocket connection to url and starts the background
// read pump.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %s: %w", url, err)
	}
	c := &Client{
		conn:    conn,
		pending: make(map[uint64]chan rpcResponse),
		subs:    make(map[string]chan json.RawMessage),
		closed:  make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Close shuts down the connection and unblocks any outstanding calls.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

// Call issues method with params and unmarshals the result into out
// (which may be nil to discard it).
func (c *Client) Call(ctx context.Context, method string, params any, out any) error {
	id := atomic.AddUint64(&c.nextID, 1)

	encodedParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("rpc: marshal params for %s: %w", method, err)
	}

	respCh := make(chan rpcResponse, 1)
	c.mu.Lock()
	c.pending[id] = respCh
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: encodedParams}
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("rpc: marshal request for %s: %w", method, err)
	}

	c.writeMu.Lock()
	writeErr := c.conn.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if writeErr != nil {
		return fmt.Errorf("rpc: write %s: %w", method, writeErr)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closed:
		return fmt.Errorf("rpc: connection closed while awaiting %s", method)
	case resp := <-respCh:
		if resp.Error != nil {
			return fmt.Errorf("rpc: %s: %w", method, resp.Error)
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("rpc: unmarshal result of %s: %w", method, err)
		}
		return nil
	}
}

// Subscribe issues a subscription method and returns a channel of raw
// notification payloads, keyed server-side by the subscription id
// returned in the initial call's result.
func (c *Client) Subscribe(ctx context.Context, method string, params any) (<-chan json.RawMessage, func(), error) {
	var subID string
	if err := c.Call(ctx, method, params, &subID); err != nil {
		return nil, nil, err
	}

	ch := make(chan json.RawMessage, 256)
	c.subMu.Lock()
	c.subs[subID] = ch
	c.subMu.Unlock()

	unsubscribe := func() {
		c.subMu.Lock()
		delete(c.subs, subID)
		c.subMu.Unlock()
	}
	return ch, unsubscribe, nil
}

func (c *Client) readLoop() {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.failAllPending(err)
			return
		}

		var resp rpcResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			continue
		}

		if resp.Params != nil {
			c.dispatchNotification(resp.Params)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

func (c *Client) dispatchNotification(note *subscriptionNote) {
	c.subMu.Lock()
	ch, ok := c.subs[note.Subscription]
	c.subMu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- note.Result:
	default:
		// Slow consumer: drop rather than block the shared read pump.
	}
}

func (c *Client) failAllPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		ch <- rpcResponse{ID: id, Error: &rpcError{Code: -1, Message: err.Error()}}
	}
}
