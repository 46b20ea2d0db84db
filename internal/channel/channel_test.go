package channel_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastershashi/llm-engineering-usecases/internal/channel"
	"github.com/mastershashi/llm-engineering-usecases/internal/channel/channeltest"
	"github.com/mastershashi/llm-engineering-usecases/internal/log"
	"github.com/mastershashi/llm-engineering-usecases/internal/metrics"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

// recorder collects delivered events.
type recorder struct {
	mu     sync.Mutex
	events []channel.Event
}

func (r *recorder) handle(ev channel.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) types() []channel.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]channel.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func frame(t channel.EventType) string {
	return `{"event":"` + string(t) + `","plan_id":"p-1","data":{"node_id":1},"timestamp":"2025-03-01T12:00:00"}`
}

func newTestChannel(t *testing.T, d *channeltest.Dialer, opts ...channel.Option) *channel.Channel {
	t.Helper()
	opts = append([]channel.Option{
		channel.WithDialer(d),
		channel.WithLogger(log.Discard()),
		channel.WithReconnectDelay(20 * time.Millisecond),
		channel.WithKeepaliveInterval(time.Hour),
	}, opts...)
	c := channel.New("p-1", "ws://engine/ws/plans/p-1", opts...)
	t.Cleanup(c.Disconnect)
	return c
}

func nextConn(t *testing.T, d *channeltest.Dialer) *channeltest.Conn {
	t.Helper()
	select {
	case c := <-d.Conns:
		return c
	case <-time.After(waitFor):
		t.Fatal("no connection dialled")
		return nil
	}
}

func TestDeliversInArrivalOrder(t *testing.T) {
	d := channeltest.NewDialer()
	c := newTestChannel(t, d)

	var all, started recorder
	var mu sync.Mutex
	var order []string
	c.On(channel.Wildcard, func(ev channel.Event) {
		all.handle(ev)
		mu.Lock()
		order = append(order, "wildcard")
		mu.Unlock()
	})
	c.On(channel.NodeStarted, func(ev channel.Event) {
		started.handle(ev)
		mu.Lock()
		order = append(order, "topic")
		mu.Unlock()
	})

	c.Connect()
	conn := nextConn(t, d)
	conn.Send(frame(channel.PlanApproved))
	conn.Send(frame(channel.NodeStarted))
	conn.Send(frame(channel.NodeCompleted))

	require.Eventually(t, func() bool { return all.count() == 3 }, waitFor, tick)
	assert.Equal(t, []channel.EventType{channel.PlanApproved, channel.NodeStarted, channel.NodeCompleted}, all.types())
	assert.Equal(t, []channel.EventType{channel.NodeStarted}, started.types())

	mu.Lock()
	assert.Equal(t, []string{"wildcard", "topic", "wildcard", "wildcard"}, order)
	mu.Unlock()
	assert.Equal(t, "ws://engine/ws/plans/p-1", d.URLs()[0])
}

func TestMalformedFramesAreDropped(t *testing.T) {
	_, m := metrics.NewRegistry()
	d := channeltest.NewDialer()
	c := newTestChannel(t, d, channel.WithMetrics(m))

	var rec recorder
	c.On(channel.Wildcard, rec.handle)
	c.Connect()

	conn := nextConn(t, d)
	conn.Send("{not json")
	conn.Send(`{"plan_id":"p-1"}`)
	conn.Send("pong")
	conn.Send(frame(channel.LogLine))

	require.Eventually(t, func() bool { return rec.count() == 1 }, waitFor, tick)
	assert.Equal(t, channel.LogLine, rec.types()[0])
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FramesMalformed))
	assert.Equal(t, channel.Connected, c.State())
	assert.Equal(t, 1, d.Dials())
}

func TestHandlersSurviveReconnects(t *testing.T) {
	d := channeltest.NewDialer()

	var mu sync.Mutex
	var reconnects []bool
	c := newTestChannel(t, d, channel.WithConnectHandler(func(reconnect bool) {
		mu.Lock()
		reconnects = append(reconnects, reconnect)
		mu.Unlock()
	}))

	var rec recorder
	c.On(channel.NodeCompleted, rec.handle)
	c.Connect()

	const drops = 4
	for i := 0; i < drops; i++ {
		conn := nextConn(t, d)
		conn.Drop()
	}

	conn := nextConn(t, d)
	conn.Send(frame(channel.NodeCompleted))

	require.Eventually(t, func() bool { return rec.count() == 1 }, waitFor, tick)
	assert.Equal(t, drops+1, d.Dials())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reconnects, drops+1)
	assert.False(t, reconnects[0])
	for _, r := range reconnects[1:] {
		assert.True(t, r)
	}
}

func TestDisconnectCancelsPendingReconnect(t *testing.T) {
	d := channeltest.NewDialer()
	c := newTestChannel(t, d, channel.WithReconnectDelay(100*time.Millisecond))
	c.Connect()

	conn := nextConn(t, d)
	conn.Drop()
	require.Eventually(t, func() bool { return c.State() == channel.Waiting }, waitFor, tick)

	c.Disconnect()
	assert.Equal(t, channel.Idle, c.State())

	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 1, d.Dials(), "a pending reconnect must not dial after Disconnect")
}

func TestDisconnectClosesTransport(t *testing.T) {
	d := channeltest.NewDialer()
	c := newTestChannel(t, d)

	var rec recorder
	c.On(channel.Wildcard, rec.handle)
	c.Connect()
	conn := nextConn(t, d)

	c.Disconnect()
	select {
	case <-conn.Closed():
	case <-time.After(waitFor):
		t.Fatal("transport not closed")
	}

	conn.Send(frame(channel.NodeStarted))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, rec.count())
	assert.Equal(t, 1, d.Dials())
}

func TestDialFailuresAreRetried(t *testing.T) {
	d := channeltest.NewDialer()
	d.FailNext(2)
	c := newTestChannel(t, d)
	c.Connect()

	nextConn(t, d)
	require.Eventually(t, func() bool { return c.State() == channel.Connected }, waitFor, tick)
	assert.Equal(t, 3, d.Dials())
}

func TestKeepalive(t *testing.T) {
	d := channeltest.NewDialer()
	c := newTestChannel(t, d, channel.WithKeepaliveInterval(10*time.Millisecond))
	c.Connect()

	conn := nextConn(t, d)
	require.Eventually(t, func() bool {
		w := conn.Writes()
		return len(w) >= 2 && w[0] == "ping"
	}, waitFor, tick)

	// A failing keepalive closes the transport and triggers a reconnect.
	conn.FailWrites(errors.New("broken pipe"))
	next := nextConn(t, d)
	assert.NotNil(t, next)
	assert.Equal(t, 2, d.Dials())
}

func TestOffAndPanickingHandlers(t *testing.T) {
	d := channeltest.NewDialer()
	c := newTestChannel(t, d)

	var kept, removed recorder
	c.On(channel.Wildcard, func(channel.Event) { panic("boom") })
	id := c.On(channel.Wildcard, removed.handle)
	c.On(channel.Wildcard, kept.handle)
	require.True(t, c.Off(id))
	assert.False(t, c.Off(id))
	assert.Equal(t, 2, c.Handlers())

	c.Connect()
	conn := nextConn(t, d)
	conn.Send(frame(channel.NodeFailed))
	conn.Send(frame(channel.PlanFailed))

	require.Eventually(t, func() bool { return kept.count() == 2 }, waitFor, tick)
	assert.Zero(t, removed.count())
}

func TestWebsocketTransport(t *testing.T) {
	upgrader := websocket.Upgrader{}
	pings := make(chan string, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/plans/p-1", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.WriteMessage(websocket.TextMessage, []byte(frame(channel.NodeAwaitingApproval)))
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			select {
			case pings <- string(msg):
			default:
			}
			_ = conn.WriteMessage(websocket.TextMessage, []byte("pong"))
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/plans/p-1"
	c := channel.New("p-1", url,
		channel.WithLogger(log.Discard()),
		channel.WithKeepaliveInterval(20*time.Millisecond),
	)
	defer c.Disconnect()

	var rec recorder
	c.On(channel.NodeAwaitingApproval, rec.handle)
	c.Connect()

	require.Eventually(t, func() bool { return rec.count() == 1 }, waitFor, tick)
	select {
	case p := <-pings:
		assert.Equal(t, "ping", p)
	case <-time.After(waitFor):
		t.Fatal("no keepalive received")
	}
}
