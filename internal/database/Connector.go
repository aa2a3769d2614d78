package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/NeRF-or-Nothing/go-user-server/internal/config"
	"github.com/NeRF-or-Nothing/go-user-server/internal/log"
)

// ErrNotReady is returned when the database connection has not been confirmed yet.
var ErrNotReady = errors.New("database connection not ready")

const defaultRetryInterval = time.Second

// Connector creates the MongoDB client and tracks whether the deployment has answered a ping.
type Connector struct {
	connect       func(ctx context.Context) (*mongo.Client, error)
	ping          func(ctx context.Context, client *mongo.Client) error
	databaseName  string
	client        atomic.Pointer[mongo.Client]
	database      atomic.Pointer[mongo.Database]
	timeout       time.Duration
	retryInterval time.Duration
	ready         atomic.Bool
	logger        *log.Logger
	// used for graceful shutdown of the connect loop
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewConnector prepares a connector for cfg.URI. Nothing is resolved or dialed here, so an
// unreachable deployment (including a failing SRV lookup) cannot stop startup; call Start to
// begin connecting.
//
// The database is the one named in the URI path, or cfg.Database if the URI names none.
func NewConnector(cfg config.MongoConfig, logger *log.Logger) *Connector {
	return newConnector(
		func(ctx context.Context) (*mongo.Client, error) {
			return mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
		},
		func(ctx context.Context, client *mongo.Client) error {
			return client.Ping(ctx, readpref.Primary())
		},
		databaseName(cfg.URI, cfg.Database),
		cfg.ConnectTimeout,
		logger,
	)
}

func newConnector(
	connect func(ctx context.Context) (*mongo.Client, error),
	ping func(ctx context.Context, client *mongo.Client) error,
	dbName string,
	timeout time.Duration,
	logger *log.Logger,
) *Connector {
	return &Connector{
		connect:       connect,
		ping:          ping,
		databaseName:  dbName,
		timeout:       timeout,
		retryInterval: defaultRetryInterval,
		logger:        logger,
		stopChan:      make(chan struct{}),
	}
}

// databaseName reads the database from the path of a mongodb:// or mongodb+srv:// URI without
// resolving any hosts.
func databaseName(uri, fallback string) string {
	rest := uri
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+len("://"):]
	}
	i := strings.Index(rest, "/")
	if i < 0 {
		return fallback
	}
	name := rest[i+1:]
	if j := strings.Index(name, "?"); j >= 0 {
		name = name[:j]
	}
	name, err := url.PathUnescape(name)
	if err != nil || name == "" {
		return fallback
	}
	return name
}

// Database returns the database handle, or nil while the client has not been created.
func (c *Connector) Database() *mongo.Database {
	return c.database.Load()
}

// Ready reports whether the deployment has answered a ping.
func (c *Connector) Ready() bool {
	return c.ready.Load()
}

// Start connects in the background, retrying client creation and ping until the deployment answers,
// then runs onReady and marks the connector ready. An onReady failure is logged but does not hold back readiness.
func (c *Connector) Start(onReady func(ctx context.Context) error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if !c.waitForConnection() {
			return
		}

		if onReady != nil {
			ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
			if err := onReady(ctx); err != nil {
				c.logger.Errorf("MongoDB post-connect setup failed: %v", err)
			}
			cancel()
		}

		c.ready.Store(true)
		c.logger.Info("MongoDB Connected Successfully")
	}()
}

// waitForConnection returns true once a ping succeeds, false if the connector was closed first.
func (c *Connector) waitForConnection() bool {
	for {
		err := c.tryConnect()
		if err == nil {
			return true
		}

		c.logger.Errorf("MongoDB Connection Error: %v. Retrying in %s...", err, c.retryInterval)
		select {
		case <-c.stopChan:
			return false
		case <-time.After(c.retryInterval):
		}
	}
}

// tryConnect creates the client if an earlier attempt has not, then pings it.
func (c *Connector) tryConnect() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	client := c.client.Load()
	if client == nil {
		created, err := c.connect(ctx)
		if err != nil {
			return fmt.Errorf("error creating MongoDB client: %w", err)
		}
		c.client.Store(created)
		c.database.Store(created.Database(c.databaseName))
		client = created
	}
	return c.ping(ctx, client)
}

// Close stops the connect loop and disconnects the client if one was created.
func (c *Connector) Close(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopChan) })
	c.wg.Wait()
	c.ready.Store(false)
	client := c.client.Load()
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}
