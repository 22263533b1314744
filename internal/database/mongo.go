package database

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/description"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoDialer connects with the official driver and translates its server
// monitoring events into Hooks.
type MongoDialer struct{}

func (MongoDialer) Dial(ctx context.Context, opts Options, hooks Hooks) (Conn, error) {
	c := &mongoConn{hooks: hooks}
	c.state.Store(int32(StateConnecting))

	monitor := &event.ServerMonitor{
		ServerHeartbeatFailed: func(e *event.ServerHeartbeatFailedEvent) {
			c.heartbeatFailed(e.ConnectionID, e.Failure)
		},
		TopologyDescriptionChanged: func(e *event.TopologyDescriptionChangedEvent) {
			c.topologyChanged(e.NewDescription.Servers)
		},
	}

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetServerSelectionTimeout(opts.ServerSelectionTimeout).
		SetSocketTimeout(opts.SocketTimeout).
		SetMaxPoolSize(opts.MaxPoolSize).
		SetServerMonitor(monitor)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}
	c.client = client

	// Connect is lazy; ping so a bad URI or unreachable server fails here.
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		c.state.Store(int32(StateDisconnected))
		return nil, err
	}

	c.state.Store(int32(StateConnected))
	return c, nil
}

type mongoConn struct {
	client *mongo.Client
	hooks  Hooks
	state  atomic.Int32

	mu       sync.Mutex
	writable map[string]bool // addresses that accept writes in the last topology
}

func (c *mongoConn) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

func (c *mongoConn) Database(name string) *mongo.Database {
	return c.client.Database(name)
}

func (c *mongoConn) State() State {
	return State(c.state.Load())
}

func (c *mongoConn) Disconnect(ctx context.Context) error {
	c.state.Store(int32(StateDisconnecting))
	err := c.client.Disconnect(ctx)
	c.state.Store(int32(StateDisconnected))
	return err
}

// heartbeatFailed reports an error only when the failing server is one that
// serves writes. A secondary missing a heartbeat leaves the client usable.
func (c *mongoConn) heartbeatFailed(connectionID string, err error) {
	if c.State() != StateConnected {
		return
	}
	c.mu.Lock()
	writable := c.writable[serverAddr(connectionID)]
	c.mu.Unlock()
	if !writable {
		return
	}
	if c.hooks.OnError != nil {
		c.hooks.OnError(err)
	}
}

func (c *mongoConn) topologyChanged(servers []description.Server) {
	var unknown description.ServerKind
	reachable := false
	writable := make(map[string]bool)
	for _, s := range servers {
		switch s.Kind {
		case unknown:
			continue
		case description.Standalone, description.RSPrimary, description.Mongos, description.LoadBalancer:
			writable[s.Addr.String()] = true
		}
		reachable = true
	}
	c.mu.Lock()
	c.writable = writable
	c.mu.Unlock()

	if reachable {
		c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnected))
		return
	}
	if c.state.CompareAndSwap(int32(StateConnected), int32(StateDisconnected)) && c.hooks.OnDisconnected != nil {
		c.hooks.OnDisconnected()
	}
}

// serverAddr strips the connection counter from a heartbeat connection ID
// ("host:port[-7]").
func serverAddr(connectionID string) string {
	if i := strings.Index(connectionID, "[-"); i >= 0 {
		connectionID = connectionID[:i]
	}
	return strings.ToLower(connectionID)
}
