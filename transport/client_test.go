// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lodestone-data/lodestone/bridge"
	"github.com/lodestone-data/lodestone/lib/codec"
	"github.com/lodestone-data/lodestone/lib/testutil"
	"github.com/lodestone-data/lodestone/value"
)

const testTimeout = 5 * time.Second

// fakeDeployment is an in-process sync protocol server. It answers
// the hello exchange itself and forwards every other envelope to the
// test's handle function.
type fakeDeployment struct {
	t      *testing.T
	server *httptest.Server
	handle func(s *testSession, envelope clientEnvelope)

	// grant is the compression name granted at hello time when the
	// client offers it; empty grants none.
	grant string
	// sendTag and threshold control the frames the server itself
	// writes.
	sendTag   CompressionTag
	threshold int
}

// testSession is the server side of one websocket connection.
type testSession struct {
	t          *testing.T
	conn       *websocket.Conn
	deployment *fakeDeployment

	mu sync.Mutex
}

func newFakeDeployment(t *testing.T, handle func(s *testSession, envelope clientEnvelope)) *fakeDeployment {
	t.Helper()
	deployment := &fakeDeployment{t: t, handle: handle}
	deployment.server = httptest.NewServer(http.HandlerFunc(deployment.accept))
	t.Cleanup(deployment.server.Close)
	return deployment
}

func (d *fakeDeployment) accept(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.t.Errorf("upgrade: %v", err)
		return
	}
	session := &testSession{t: d.t, conn: conn, deployment: d}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		payload, err := decodeFrame(data)
		if err != nil {
			d.t.Errorf("server: decode frame: %v", err)
			return
		}
		var envelope clientEnvelope
		if err := codec.Unmarshal(payload, &envelope); err != nil {
			d.t.Errorf("server: decode envelope: %v", err)
			return
		}

		if envelope.Type == msgHello {
			granted := ""
			for _, name := range envelope.Compression {
				if name == d.grant {
					granted = name
				}
			}
			session.send(serverEnvelope{
				Type:        msgHelloOK,
				SessionID:   "session-1",
				Compression: granted,
			})
			continue
		}
		if d.handle != nil {
			d.handle(session, envelope)
		}
	}
}

// send frames and writes one envelope. Safe from any goroutine.
func (s *testSession) send(envelope serverEnvelope) {
	payload, err := codec.Marshal(envelope)
	if err != nil {
		s.t.Errorf("server: encode envelope: %v", err)
		return
	}
	frame, err := encodeFrame(payload, s.deployment.sendTag, s.deployment.threshold)
	if err != nil {
		s.t.Errorf("server: encode frame: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		s.t.Logf("server: write: %v", err)
	}
}

// sendValue answers a request or pushes an update carrying v.
func (s *testSession) sendValue(messageType, requestID, subscriptionID string, v value.Value) {
	wire, err := value.ToWire(v)
	if err != nil {
		s.t.Errorf("server: to wire: %v", err)
		return
	}
	s.send(serverEnvelope{
		Type:           messageType,
		RequestID:      requestID,
		SubscriptionID: subscriptionID,
		Status:         statusValue,
		Value:          wire,
	})
}

func (d *fakeDeployment) dial(t *testing.T, config Config) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	config.Address = d.server.URL
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	client, err := Dial(ctx, config)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { client.Close(context.Background()) })
	return client
}

func TestWebsocketURL(t *testing.T) {
	cases := []struct {
		address string
		want    string
	}{
		{"http://localhost:3210", "ws://localhost:3210/api/sync"},
		{"https://calm-otter-112.example.cloud", "wss://calm-otter-112.example.cloud/api/sync"},
		{"ws://localhost:3210/custom", "ws://localhost:3210/custom"},
		{"wss://host/", "wss://host/api/sync"},
	}
	for _, c := range cases {
		got, err := websocketURL(c.address)
		if err != nil {
			t.Errorf("websocketURL(%q): %v", c.address, err)
			continue
		}
		if got != c.want {
			t.Errorf("websocketURL(%q) = %q, want %q", c.address, got, c.want)
		}
	}

	for _, bad := range []string{"ftp://host", "://nope"} {
		if _, err := websocketURL(bad); err == nil {
			t.Errorf("websocketURL(%q) accepted an invalid address", bad)
		}
	}
}

func TestDialNegotiatesCompression(t *testing.T) {
	deployment := newFakeDeployment(t, nil)
	deployment.grant = "zstd"

	client := deployment.dial(t, Config{})
	if client.send != CompressionZstd {
		t.Errorf("negotiated %v, want zstd", client.send)
	}
	if client.sessionID != "session-1" {
		t.Errorf("session id %q, want session-1", client.sessionID)
	}
}

func TestDialWithoutCompression(t *testing.T) {
	deployment := newFakeDeployment(t, nil)

	client := deployment.dial(t, Config{})
	if client.send != CompressionNone {
		t.Errorf("negotiated %v, want none", client.send)
	}
}

func TestQueryRoundTrip(t *testing.T) {
	var (
		mu      sync.Mutex
		gotType string
		gotPath string
		gotArgs value.Value
		argsErr error
	)
	deployment := newFakeDeployment(t, func(s *testSession, envelope clientEnvelope) {
		mu.Lock()
		gotType = envelope.Type
		gotPath = envelope.Path
		gotArgs, argsErr = value.FromWire(envelope.Args)
		mu.Unlock()
		s.sendValue(msgResult, envelope.RequestID, "", value.Array{
			value.ID("doc1"),
			value.Int64(42),
		})
	})

	client := deployment.dial(t, Config{})

	args := value.NewObject(map[string]value.Value{
		"channel": value.String("general"),
		"limit":   value.Int64(10),
	})
	result, err := client.Query(context.Background(), "messages:list", args)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	resultValue, ok := result.(bridge.ResultValue)
	if !ok {
		t.Fatalf("result type %T, want ResultValue", result)
	}
	want := value.Value(value.Array{value.ID("doc1"), value.Int64(42)})
	if !value.Equal(resultValue.Value, want) {
		t.Errorf("result = %v, want %v", resultValue.Value, want)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotType != msgQuery {
		t.Errorf("server saw type %q, want query", gotType)
	}
	if gotPath != "messages:list" {
		t.Errorf("server saw path %q", gotPath)
	}
	if argsErr != nil {
		t.Fatalf("server could not decode args: %v", argsErr)
	}
	if !value.Equal(gotArgs, args) {
		t.Errorf("server saw args %v, want %v", gotArgs, args)
	}
}

func TestMutationAndActionUseOwnEnvelopes(t *testing.T) {
	types := make(chan string, 2)
	deployment := newFakeDeployment(t, func(s *testSession, envelope clientEnvelope) {
		types <- envelope.Type
		s.sendValue(msgResult, envelope.RequestID, "", value.Null{})
	})

	client := deployment.dial(t, Config{})
	ctx := context.Background()

	if _, err := client.Mutation(ctx, "messages:send", value.Object{}); err != nil {
		t.Fatalf("Mutation: %v", err)
	}
	if _, err := client.Action(ctx, "email:deliver", value.Object{}); err != nil {
		t.Fatalf("Action: %v", err)
	}

	if got := testutil.Receive(t, types, testTimeout); got != msgMutation {
		t.Errorf("first envelope %q, want mutation", got)
	}
	if got := testutil.Receive(t, types, testTimeout); got != msgAction {
		t.Errorf("second envelope %q, want action", got)
	}
}

func TestRemoteErrorResult(t *testing.T) {
	deployment := newFakeDeployment(t, func(s *testSession, envelope clientEnvelope) {
		s.send(serverEnvelope{
			Type:         msgResult,
			RequestID:    envelope.RequestID,
			Status:       statusError,
			ErrorMessage: "Uncaught Error: no such channel",
		})
	})

	client := deployment.dial(t, Config{})

	result, err := client.Query(context.Background(), "messages:list", value.Object{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	errorResult, ok := result.(bridge.ResultErrorMessage)
	if !ok {
		t.Fatalf("result type %T, want ResultErrorMessage", result)
	}
	if errorResult.Message != "Uncaught Error: no such channel" {
		t.Errorf("message %q", errorResult.Message)
	}
}

func TestConcurrentRequestCorrelation(t *testing.T) {
	deployment := newFakeDeployment(t, func(s *testSession, envelope clientEnvelope) {
		// Answer out of order-ish: each reply carries the request's
		// own path, so a correlation mixup is visible.
		go s.sendValue(msgResult, envelope.RequestID, "", value.String(envelope.Path))
	})

	client := deployment.dial(t, Config{})

	const calls = 20
	var wg sync.WaitGroup
	errs := make(chan error, calls)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := fmt.Sprintf("tasks:get%d", i)
			result, err := client.Query(context.Background(), path, value.Object{})
			if err != nil {
				errs <- fmt.Errorf("query %d: %w", i, err)
				return
			}
			got := result.(bridge.ResultValue).Value
			if !value.Equal(got, value.String(path)) {
				errs <- fmt.Errorf("query %d: got %v", i, got)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestRequestContextCancel(t *testing.T) {
	deployment := newFakeDeployment(t, func(s *testSession, envelope clientEnvelope) {
		// Never answer.
	})

	client := deployment.dial(t, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Query(ctx, "messages:list", value.Object{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}

	// The abandoned request must have been unregistered.
	client.mu.Lock()
	pending := len(client.pending)
	client.mu.Unlock()
	if pending != 0 {
		t.Errorf("%d requests still pending after cancellation", pending)
	}
}

func TestSubscriptionUpdatesAndComplete(t *testing.T) {
	deployment := newFakeDeployment(t, func(s *testSession, envelope clientEnvelope) {
		if envelope.Type != msgSubscribe {
			return
		}
		for i := 1; i <= 3; i++ {
			s.sendValue(msgUpdate, "", envelope.SubscriptionID, value.Int64(i))
		}
		s.send(serverEnvelope{Type: msgComplete, SubscriptionID: envelope.SubscriptionID})
	})

	client := deployment.dial(t, Config{})

	feed, err := client.Subscribe(context.Background(), "counter:watch", value.Object{})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	for i := 1; i <= 3; i++ {
		update := testutil.Receive(t, feed.Updates(), testTimeout, "update %d", i)
		got := update.(bridge.ResultValue).Value
		if !value.Equal(got, value.Int64(i)) {
			t.Errorf("update %d = %v", i, got)
		}
	}

	// The complete envelope ends the stream.
	select {
	case _, ok := <-feed.Updates():
		if ok {
			t.Error("received an update after complete")
		}
	case <-time.After(testTimeout):
		t.Fatal("updates channel not closed after complete")
	}
}

func TestSubscriptionErrorUpdate(t *testing.T) {
	deployment := newFakeDeployment(t, func(s *testSession, envelope clientEnvelope) {
		if envelope.Type != msgSubscribe {
			return
		}
		s.send(serverEnvelope{
			Type:           msgUpdate,
			SubscriptionID: envelope.SubscriptionID,
			Status:         statusError,
			ErrorMessage:   "transient overload",
		})
		s.sendValue(msgUpdate, "", envelope.SubscriptionID, value.String("recovered"))
	})

	client := deployment.dial(t, Config{})

	feed, err := client.Subscribe(context.Background(), "counter:watch", value.Object{})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	first := testutil.Receive(t, feed.Updates(), testTimeout)
	if errorResult, ok := first.(bridge.ResultErrorMessage); !ok || errorResult.Message != "transient overload" {
		t.Errorf("first update = %#v", first)
	}
	second := testutil.Receive(t, feed.Updates(), testTimeout)
	if got := second.(bridge.ResultValue).Value; !value.Equal(got, value.String("recovered")) {
		t.Errorf("second update = %v", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	unsubscribed := make(chan string, 1)
	deployment := newFakeDeployment(t, func(s *testSession, envelope clientEnvelope) {
		if envelope.Type == msgUnsubscribe {
			unsubscribed <- envelope.SubscriptionID
		}
	})

	client := deployment.dial(t, Config{})

	feed, err := client.Subscribe(context.Background(), "counter:watch", value.Object{})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := feed.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := feed.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if id := testutil.Receive(t, unsubscribed, testTimeout); id == "" {
		t.Error("unsubscribe envelope carried no subscription id")
	}
	testutil.Quiet(t, unsubscribed, 100*time.Millisecond, "Close must unsubscribe once")

	// The stream ends locally without waiting for the server.
	select {
	case _, ok := <-feed.Updates():
		if ok {
			t.Error("received an update after Close")
		}
	case <-time.After(testTimeout):
		t.Fatal("updates channel not closed after Close")
	}
}

func TestConnectionLossFailsPendingAndFeeds(t *testing.T) {
	sessions := make(chan *testSession, 1)
	deployment := newFakeDeployment(t, func(s *testSession, envelope clientEnvelope) {
		if envelope.Type == msgSubscribe {
			sessions <- s
		}
		// Queries are never answered; the connection dies instead.
	})

	client := deployment.dial(t, Config{})

	feed, err := client.Subscribe(context.Background(), "counter:watch", value.Object{})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	session := testutil.Receive(t, sessions, testTimeout)

	queryErr := make(chan error, 1)
	go func() {
		_, err := client.Query(context.Background(), "messages:list", value.Object{})
		queryErr <- err
	}()

	// Give the query a moment to register, then kill the connection.
	time.Sleep(50 * time.Millisecond)
	session.conn.Close()

	err = testutil.Receive(t, queryErr, testTimeout, "pending query must fail")
	if err == nil || !strings.Contains(err.Error(), "connection lost") {
		t.Errorf("query error = %v, want connection lost", err)
	}

	select {
	case _, ok := <-feed.Updates():
		if ok {
			t.Error("received an update after connection loss")
		}
	case <-time.After(testTimeout):
		t.Fatal("updates channel not closed after connection loss")
	}

	// New work on the dead client fails too.
	if _, err := client.Query(context.Background(), "messages:list", value.Object{}); err == nil {
		t.Error("query on a dead connection succeeded")
	}
}

func TestCompressedSessionRoundTrip(t *testing.T) {
	big := value.String(strings.Repeat("lodestone sync protocol ", 200))

	for _, grant := range []string{"zstd", "lz4"} {
		t.Run(grant, func(t *testing.T) {
			deployment := newFakeDeployment(t, func(s *testSession, envelope clientEnvelope) {
				s.sendValue(msgResult, envelope.RequestID, "", big)
			})
			deployment.grant = grant
			tag, err := ParseCompressionTag(grant)
			if err != nil {
				t.Fatal(err)
			}
			deployment.sendTag = tag
			deployment.threshold = 1

			client := deployment.dial(t, Config{CompressThreshold: 1})
			if client.send != tag {
				t.Fatalf("negotiated %v, want %v", client.send, tag)
			}

			args := value.NewObject(map[string]value.Value{"body": big})
			result, err := client.Query(context.Background(), "echo", args)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			got := result.(bridge.ResultValue).Value
			if !value.Equal(got, big) {
				t.Error("compressed roundtrip mismatch")
			}
		})
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	deployment := newFakeDeployment(t, nil)
	client := deployment.dial(t, Config{})

	if err := client.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := client.Close(context.Background()); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if _, err := client.Query(context.Background(), "messages:list", value.Object{}); err == nil {
		t.Error("query after Close succeeded")
	}
}

func TestFeedDropsOldestWhenBacklogged(t *testing.T) {
	f := newFeed(nil, "sub")

	total := feedBuffer + 5
	for i := 0; i < total; i++ {
		f.deliver(bridge.ResultValue{Value: value.Int64(i)})
	}
	f.finish()

	// The oldest five updates were dropped; the newest feedBuffer
	// remain, in order.
	expect := int64(total - feedBuffer)
	for update := range f.updates {
		got := update.(bridge.ResultValue).Value
		if !value.Equal(got, value.Int64(expect)) {
			t.Fatalf("update = %v, want %v", got, value.Int64(expect))
		}
		expect++
	}
	if expect != int64(total) {
		t.Errorf("received up to %d, want %d", expect, total)
	}
}
