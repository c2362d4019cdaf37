// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lodestone-data/lodestone/bridge"
	"github.com/lodestone-data/lodestone/lib/codec"
	"github.com/lodestone-data/lodestone/value"
)

// syncPath is the websocket endpoint of the sync protocol on a
// deployment.
const syncPath = "/api/sync"

// defaultCompressThreshold is the payload size below which frames are
// sent uncompressed. Small envelopes (most requests) do not shrink
// enough to pay for the CPU.
const defaultCompressThreshold = 512

// ErrClosed is returned for operations on a client whose connection
// has been closed locally.
var ErrClosed = errors.New("transport: connection closed")

// Config configures a Dial.
type Config struct {
	// Address is the deployment URL. http and https schemes are
	// rewritten to ws and wss; ws and wss are used as given. A URL
	// without a path gets the standard sync endpoint appended.
	Address string

	// Offer is the list of compression algorithms offered to the
	// server in preference order. Empty means zstd then lz4. The
	// server picks one, or none.
	Offer []CompressionTag

	// CompressThreshold is the minimum payload size, in bytes, for a
	// frame to be compressed. Zero means the default.
	CompressThreshold int

	// Logger receives connection-level events. nil means
	// slog.Default.
	Logger *slog.Logger
}

// Client is one live sync protocol session. It implements
// [bridge.RemoteClient]. Any number of requests and subscriptions can
// be in flight concurrently; the read loop demultiplexes envelopes by
// UUID.
type Client struct {
	conn      *websocket.Conn
	logger    *slog.Logger
	sessionID string

	// send is the negotiated compression for outgoing frames.
	send      CompressionTag
	threshold int

	// writeMu serializes websocket writes; gorilla permits only one
	// concurrent writer.
	writeMu sync.Mutex

	mu      sync.Mutex
	closed  bool
	pending map[string]chan serverEnvelope
	feeds   map[string]*feed

	// readFailed is closed by the read loop when the connection dies;
	// readErr holds the cause and is set before the close.
	readFailed chan struct{}
	readErr    error
}

var _ bridge.RemoteClient = (*Client)(nil)

// Dial connects to a deployment and performs the hello exchange. The
// context bounds the whole handshake.
func Dial(ctx context.Context, config Config) (*Client, error) {
	endpoint, err := websocketURL(config.Address)
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, response, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if response != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", endpoint, response.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	client := &Client{
		conn:       conn,
		logger:     logger,
		threshold:  config.CompressThreshold,
		pending:    make(map[string]chan serverEnvelope),
		feeds:      make(map[string]*feed),
		readFailed: make(chan struct{}),
	}
	if client.threshold <= 0 {
		client.threshold = defaultCompressThreshold
	}

	offer := config.Offer
	if len(offer) == 0 {
		offer = []CompressionTag{CompressionZstd, CompressionLZ4}
	}

	if err := client.hello(ctx, offer); err != nil {
		conn.Close()
		return nil, err
	}

	go client.readLoop()
	return client, nil
}

// Dialer returns a [bridge.DialFunc] that applies config to every
// address the bridge connects to.
func Dialer(config Config) bridge.DialFunc {
	return func(ctx context.Context, address string) (bridge.RemoteClient, error) {
		perCall := config
		perCall.Address = address
		return Dial(ctx, perCall)
	}
}

// websocketURL normalizes a deployment address into the websocket
// endpoint URL.
func websocketURL(address string) (string, error) {
	parsed, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("deployment address %q: %w", address, err)
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("deployment address %q: unsupported scheme %q", address, parsed.Scheme)
	}
	if parsed.Path == "" || parsed.Path == "/" {
		parsed.Path = syncPath
	}
	return parsed.String(), nil
}

// hello runs the version and compression negotiation. It happens
// before the read loop starts, so it reads the connection directly.
func (c *Client) hello(ctx context.Context, offer []CompressionTag) error {
	names := make([]string, 0, len(offer))
	for _, tag := range offer {
		if tag != CompressionNone {
			names = append(names, tag.String())
		}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline {
		c.conn.SetReadDeadline(deadline)
		c.conn.SetWriteDeadline(deadline)
		defer func() {
			c.conn.SetReadDeadline(time.Time{})
			c.conn.SetWriteDeadline(time.Time{})
		}()
	}

	err := c.write(clientEnvelope{
		Type:        msgHello,
		Version:     protocolVersion,
		Compression: names,
	})
	if err != nil {
		return fmt.Errorf("hello: %w", err)
	}

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("hello: %w", err)
	}
	payload, err := decodeFrame(data)
	if err != nil {
		return fmt.Errorf("hello: %w", err)
	}
	var reply serverEnvelope
	if err := codec.Unmarshal(payload, &reply); err != nil {
		return fmt.Errorf("hello: %w", err)
	}
	if reply.Type != msgHelloOK {
		return fmt.Errorf("hello: server answered %q", reply.Type)
	}

	if reply.Compression != "" {
		tag, err := ParseCompressionTag(reply.Compression)
		if err != nil {
			return fmt.Errorf("hello: %w", err)
		}
		c.send = tag
	}
	c.sessionID = reply.SessionID
	c.logger.Debug("session established",
		"session_id", c.sessionID,
		"compression", c.send.String())
	return nil
}

// Query executes a read-only function.
func (c *Client) Query(ctx context.Context, path string, args value.Object) (bridge.FunctionResult, error) {
	return c.request(ctx, msgQuery, path, args)
}

// Mutation executes a state-changing function.
func (c *Client) Mutation(ctx context.Context, path string, args value.Object) (bridge.FunctionResult, error) {
	return c.request(ctx, msgMutation, path, args)
}

// Action executes a function with external side effects.
func (c *Client) Action(ctx context.Context, path string, args value.Object) (bridge.FunctionResult, error) {
	return c.request(ctx, msgAction, path, args)
}

func (c *Client) request(ctx context.Context, messageType, path string, args value.Object) (bridge.FunctionResult, error) {
	wireArgs, err := value.ToWire(args)
	if err != nil {
		return nil, fmt.Errorf("%s %s: arguments: %w", messageType, path, err)
	}

	requestID := uuid.NewString()
	reply := make(chan serverEnvelope, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[requestID] = reply
	c.mu.Unlock()

	err = c.write(clientEnvelope{
		Type:      messageType,
		RequestID: requestID,
		Path:      path,
		Args:      wireArgs,
	})
	if err != nil {
		c.forgetPending(requestID)
		return nil, fmt.Errorf("%s %s: %w", messageType, path, err)
	}

	select {
	case envelope := <-reply:
		result, err := parseResult(envelope)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", messageType, path, err)
		}
		return result, nil
	case <-c.readFailed:
		return nil, fmt.Errorf("%s %s: %w", messageType, path, c.readError())
	case <-ctx.Done():
		c.forgetPending(requestID)
		return nil, ctx.Err()
	}
}

// Subscribe opens a server-push feed for a query.
func (c *Client) Subscribe(ctx context.Context, path string, args value.Object) (bridge.Feed, error) {
	wireArgs, err := value.ToWire(args)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: arguments: %w", path, err)
	}

	subscriptionID := uuid.NewString()
	f := newFeed(c, subscriptionID)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.feeds[subscriptionID] = f
	c.mu.Unlock()

	err = c.write(clientEnvelope{
		Type:           msgSubscribe,
		SubscriptionID: subscriptionID,
		Path:           path,
		Args:           wireArgs,
	})
	if err != nil {
		c.forgetFeed(subscriptionID)
		f.finish()
		return nil, fmt.Errorf("subscribe %s: %w", path, err)
	}
	return f, nil
}

// Close tears the session down. Pending requests fail and open feeds
// end. Safe to call more than once.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	// Best-effort close handshake; the server treats the underlying
	// connection going away the same way.
	c.writeMu.Lock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	err := c.conn.Close()
	c.logger.Debug("session closed", "session_id", c.sessionID)
	return err
}

// write encodes an envelope into a frame and sends it as one binary
// websocket message.
func (c *Client) write(envelope clientEnvelope) error {
	payload, err := codec.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode %s: %w", envelope.Type, err)
	}
	frame, err := encodeFrame(payload, c.send, c.threshold)
	if err != nil {
		return fmt.Errorf("encode %s: %w", envelope.Type, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, frame)
}

// readLoop owns the receive side of the connection: it decodes every
// incoming frame and routes the envelope to the pending request or
// feed it belongs to. It runs until the connection dies.
func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.failRead(err)
			return
		}

		payload, err := decodeFrame(data)
		if err != nil {
			c.failRead(fmt.Errorf("malformed frame: %w", err))
			return
		}
		var envelope serverEnvelope
		if err := codec.Unmarshal(payload, &envelope); err != nil {
			c.failRead(fmt.Errorf("malformed envelope: %w", err))
			return
		}

		switch envelope.Type {
		case msgResult:
			c.mu.Lock()
			reply, ok := c.pending[envelope.RequestID]
			delete(c.pending, envelope.RequestID)
			c.mu.Unlock()
			if !ok {
				// Request abandoned (context cancellation); the
				// result has nowhere to go.
				c.logger.Debug("result for unknown request",
					"request_id", envelope.RequestID)
				continue
			}
			reply <- envelope

		case msgUpdate:
			c.mu.Lock()
			f := c.feeds[envelope.SubscriptionID]
			c.mu.Unlock()
			if f == nil {
				c.logger.Debug("update for unknown subscription",
					"subscription_id", envelope.SubscriptionID)
				continue
			}
			result, err := parseResult(envelope)
			if err != nil {
				c.logger.Warn("dropping malformed update",
					"subscription_id", envelope.SubscriptionID,
					"error", err)
				continue
			}
			f.deliver(result)

		case msgComplete:
			c.mu.Lock()
			f := c.feeds[envelope.SubscriptionID]
			delete(c.feeds, envelope.SubscriptionID)
			c.mu.Unlock()
			if f != nil {
				f.finish()
			}

		default:
			c.logger.Debug("ignoring envelope", "type", envelope.Type)
		}
	}
}

// failRead records the connection failure, releases every waiting
// request, and ends every open feed.
func (c *Client) failRead(cause error) {
	c.mu.Lock()
	if c.readErr == nil {
		if c.closed {
			c.readErr = ErrClosed
		} else {
			c.readErr = fmt.Errorf("connection lost: %w", cause)
		}
		close(c.readFailed)
	}
	feeds := c.feeds
	c.feeds = make(map[string]*feed)
	c.pending = make(map[string]chan serverEnvelope)
	c.mu.Unlock()

	for _, f := range feeds {
		f.finish()
	}
	if !errors.Is(c.readError(), ErrClosed) {
		c.logger.Warn("connection lost", "session_id", c.sessionID, "error", cause)
	}
}

func (c *Client) readError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

func (c *Client) forgetPending(requestID string) {
	c.mu.Lock()
	delete(c.pending, requestID)
	c.mu.Unlock()
}

func (c *Client) forgetFeed(subscriptionID string) {
	c.mu.Lock()
	delete(c.feeds, subscriptionID)
	c.mu.Unlock()
}

// parseResult converts a result or update envelope into the
// function-result union.
func parseResult(envelope serverEnvelope) (bridge.FunctionResult, error) {
	switch envelope.Status {
	case statusValue:
		decoded, err := value.FromWire(envelope.Value)
		if err != nil {
			return nil, fmt.Errorf("result value: %w", err)
		}
		return bridge.ResultValue{Value: decoded}, nil
	case statusError:
		return bridge.ResultErrorMessage{Message: envelope.ErrorMessage}, nil
	default:
		return nil, fmt.Errorf("result status %q", envelope.Status)
	}
}
