// Package databasetest provides an in-memory Dialer for tests that need a
// database.Manager without a MongoDB server.
package databasetest

import (
	"context"
	"sync"
	"sync/atomic"

	"docquiz/internal/database"

	"go.mongodb.org/mongo-driver/mongo"
)

type Conn struct {
	state atomic.Int32
}

func (c *Conn) Ping(ctx context.Context) error { return nil }

func (c *Conn) Database(name string) *mongo.Database { return nil }

func (c *Conn) State() database.State { return database.State(c.state.Load()) }

func (c *Conn) SetState(s database.State) { c.state.Store(int32(s)) }

func (c *Conn) Disconnect(ctx context.Context) error {
	c.state.Store(int32(database.StateDisconnected))
	return nil
}

// Dialer hands out fake connections and remembers the hooks of each dial so
// tests can fire driver events.
type Dialer struct {
	mu    sync.Mutex
	Err   error
	dials int
	conns []*Conn
	hooks []database.Hooks
}

func (d *Dialer) Dial(ctx context.Context, opts database.Options, hooks database.Hooks) (database.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.Err != nil {
		return nil, d.Err
	}
	c := &Conn{}
	c.SetState(database.StateConnected)
	d.conns = append(d.conns, c)
	d.hooks = append(d.hooks, hooks)
	return c, nil
}

func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// Last returns the most recent connection and its hooks.
func (d *Dialer) Last() (*Conn, database.Hooks) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.conns)
	if n == 0 {
		return nil, database.Hooks{}
	}
	return d.conns[n-1], d.hooks[n-1]
}

// Disconnect simulates the driver reporting a lost connection.
func (d *Dialer) Disconnect() {
	c, h := d.Last()
	if c == nil {
		return
	}
	c.SetState(database.StateDisconnected)
	if h.OnDisconnected != nil {
		h.OnDisconnected()
	}
}

// Fail simulates an asynchronous driver error.
func (d *Dialer) Fail(err error) {
	_, h := d.Last()
	if h.OnError != nil {
		h.OnError(err)
	}
}
