// Package channeltest provides an in-memory transport for channel tests.
package channeltest

import (
	"context"
	"errors"
	"sync"

	"github.com/mastershashi/llm-engineering-usecases/internal/channel"
)

// ErrClosed is returned by a Conn after Close or Drop.
var ErrClosed = errors.New("channeltest: connection closed")

// Conn is a scripted transport. Frames pushed with Send are returned by
// ReadMessage in order.
type Conn struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once

	mu     sync.Mutex
	writes [][]byte
	failW  error
}

// NewConn returns an open Conn.
func NewConn() *Conn {
	return &Conn{in: make(chan []byte, 64), closed: make(chan struct{})}
}

// Send queues an inbound frame.
func (c *Conn) Send(frame string) {
	select {
	case c.in <- []byte(frame):
	case <-c.closed:
	}
}

// Drop simulates the server closing the transport.
func (c *Conn) Drop() {
	_ = c.Close()
}

// FailWrites makes every later WriteMessage return err.
func (c *Conn) FailWrites(err error) {
	c.mu.Lock()
	c.failW = err
	c.mu.Unlock()
}

// Writes returns the frames written by the client.
func (c *Conn) Writes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.writes))
	for i, w := range c.writes {
		out[i] = string(w)
	}
	return out
}

// Closed is closed once the transport is closed from either side.
func (c *Conn) Closed() <-chan struct{} {
	return c.closed
}

// ReadMessage implements channel.Conn. Queued frames are drained before
// a close is reported.
func (c *Conn) ReadMessage() ([]byte, error) {
	select {
	case f := <-c.in:
		return f, nil
	default:
	}
	select {
	case f := <-c.in:
		return f, nil
	case <-c.closed:
		return nil, ErrClosed
	}
}

// WriteMessage implements channel.Conn.
func (c *Conn) WriteMessage(data []byte) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failW != nil {
		return c.failW
	}
	c.writes = append(c.writes, append([]byte(nil), data...))
	return nil
}

// Close implements channel.Conn.
func (c *Conn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// Dialer hands out a fresh Conn per dial and publishes it on Conns.
type Dialer struct {
	// Conns receives every connection handed to the client.
	Conns chan *Conn

	mu    sync.Mutex
	dials int
	urls  []string
	fail  int
}

// NewDialer returns a Dialer.
func NewDialer() *Dialer {
	return &Dialer{Conns: make(chan *Conn, 64)}
}

// FailNext makes the next n dials fail.
func (d *Dialer) FailNext(n int) {
	d.mu.Lock()
	d.fail = n
	d.mu.Unlock()
}

// Dials returns the number of dial attempts so far.
func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// URLs returns the dialled URLs in order.
func (d *Dialer) URLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

// Dial implements channel.Dialer.
func (d *Dialer) Dial(ctx context.Context, url string) (channel.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.dials++
	d.urls = append(d.urls, url)
	if d.fail > 0 {
		d.fail--
		d.mu.Unlock()
		return nil, errors.New("channeltest: connection refused")
	}
	d.mu.Unlock()

	c := NewConn()
	d.Conns <- c
	return c, nil
}
