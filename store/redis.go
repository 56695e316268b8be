package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Defaults for the resilient Redis store.
const (
	// DefaultBaseRetryDelay is the starting delay between reconnection
	// attempts.
	DefaultBaseRetryDelay = 250 * time.Millisecond

	// DefaultMaxRetryDelay caps the delay between reconnection attempts
	// and bounds each connection attempt itself.
	DefaultMaxRetryDelay = 60 * time.Second

	// DefaultOpTimeout bounds every get/set/remove against the live
	// connection.
	DefaultOpTimeout = 10 * time.Second

	// DefaultPingInterval is how often the connection watcher probes the
	// live connection.
	DefaultPingInterval = 2 * time.Second
)

// Sentinel errors for the Redis store.
var (
	ErrMissingVersion = errors.New("store: server version is required")
	ErrMissingAddr    = errors.New("store: redis address is required")

	errShutDown = errors.New("store: shut down")
)

// Conn is a live connection to the remote store. Implementations report
// absence through the bool return of Get, not through an error.
type Conn interface {
	// Get retrieves a value. Returns ("", false, nil) when the key is absent.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores a value. A non-zero expiration must be applied atomically
	// with the value.
	Set(ctx context.Context, key, value string, expiration time.Duration) error

	// Remove deletes a value.
	Remove(ctx context.Context, key string) error

	// Ping checks liveness.
	Ping(ctx context.Context) error

	// Close releases the connection.
	Close() error
}

// DialFunc establishes a connection to the remote store. The context
// bounds the whole connect handshake.
type DialFunc func(ctx context.Context) (Conn, error)

// RedisConfig configures the resilient Redis store.
type RedisConfig struct {
	// Addr is the host:port of the Redis server. Required unless Dial is
	// set.
	Addr string

	// Password is the optional Redis auth password.
	Password string

	// DB is the Redis database number.
	DB int

	// ServerVersion partitions the keyspace: every key is sent to the
	// store as "{ServerVersion}+{key}", so distinct deployed versions
	// sharing one Redis instance never observe each other's entries.
	// Required.
	ServerVersion string

	// BaseRetryDelay is the starting reconnection delay.
	// Default: DefaultBaseRetryDelay
	BaseRetryDelay time.Duration

	// MaxRetryDelay caps the reconnection delay and bounds each connect
	// attempt. Default: DefaultMaxRetryDelay
	MaxRetryDelay time.Duration

	// OpTimeout bounds each store operation. Default: DefaultOpTimeout
	OpTimeout time.Duration

	// PingInterval is the liveness probe interval for the connection
	// watcher. Default: DefaultPingInterval
	PingInterval time.Duration

	// Dial overrides how connections are established. Default: a go-redis
	// client dialed against Addr.
	Dial DialFunc

	// Logger receives connection and soft-failure logs.
	// Default: zap.NewNop()
	Logger *zap.Logger
}

// RedisStore is a Store backed by a single logical Redis connection.
//
// The store starts disconnected and immediately begins connecting. A lost
// connection re-enters the reconnection loop with the base delay; repeated
// failed attempts within one cycle escalate the delay multiplicatively with
// jitter up to the maximum. While disconnected every operation soft-fails
// without blocking. Shutdown is terminal: no reconnection is ever attempted
// afterwards and all operations become no-ops.
type RedisStore struct {
	cfg  RedisConfig
	log  *zap.Logger
	dial DialFunc

	ctx    context.Context // canceled on shutdown
	cancel context.CancelFunc
	done   chan struct{} // closed when the reconnect loop has exited

	mu            sync.Mutex
	state         ConnState
	conn          Conn
	lost          chan struct{} // per-connection, closed when it is dropped
	shutdown      bool
	connectedC    chan struct{} // closed on the next became-connected transition
	disconnectedC chan struct{} // closed on the next became-disconnected transition
}

// NewRedisStore creates a resilient Redis store and starts connecting
// immediately.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.ServerVersion == "" {
		return nil, ErrMissingVersion
	}
	if cfg.Addr == "" && cfg.Dial == nil {
		return nil, ErrMissingAddr
	}

	// Apply defaults
	if cfg.BaseRetryDelay <= 0 {
		cfg.BaseRetryDelay = DefaultBaseRetryDelay
	}
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = DefaultMaxRetryDelay
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = DefaultOpTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Dial == nil {
		cfg.Dial = dialRedis(cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &RedisStore{
		cfg:           cfg,
		log:           cfg.Logger,
		dial:          cfg.Dial,
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
		state:         StateDisconnected,
		connectedC:    make(chan struct{}),
		disconnectedC: make(chan struct{}),
	}

	go s.reconnectLoop()

	return s, nil
}

// State returns the current connection state.
func (s *RedisStore) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ConnectedSignal returns a channel closed on the next became-connected
// transition. Each transition re-arms the signal, so the channel must be
// obtained before the transition it is meant to observe.
func (s *RedisStore) ConnectedSignal() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectedC
}

// DisconnectedSignal returns a channel closed on the next
// became-disconnected transition.
func (s *RedisStore) DisconnectedSignal() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnectedC
}

// Get retrieves a value. Soft-fails with ("", false) when disconnected,
// shut down, or when the operation errors or times out.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool) {
	if err := ValidateKey(key); err != nil {
		s.log.Warn("store: rejecting invalid key", zap.Error(err))
		return "", false
	}
	conn, ok := s.live()
	if !ok {
		s.log.Warn("store: get skipped, not connected", zap.String("key", key))
		return "", false
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	defer cancel()

	value, found, err := conn.Get(opCtx, s.namespaced(key))
	if err != nil {
		s.operationFailed(ctx, conn, "get", key, err)
		return "", false
	}
	return value, found
}

// Set stores a value. A non-zero expiration is applied atomically with the
// value (a single SET with PX). Soft-fails silently when disconnected.
func (s *RedisStore) Set(ctx context.Context, key, value string, expiration time.Duration) {
	if err := ValidateKey(key); err != nil {
		s.log.Warn("store: rejecting invalid key", zap.Error(err))
		return
	}
	conn, ok := s.live()
	if !ok {
		s.log.Warn("store: set skipped, not connected", zap.String("key", key))
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	defer cancel()

	if err := conn.Set(opCtx, s.namespaced(key), value, expiration); err != nil {
		s.operationFailed(ctx, conn, "set", key, err)
	}
}

// Remove deletes a value. Soft-fails silently when disconnected.
func (s *RedisStore) Remove(ctx context.Context, key string) {
	if err := ValidateKey(key); err != nil {
		s.log.Warn("store: rejecting invalid key", zap.Error(err))
		return
	}
	conn, ok := s.live()
	if !ok {
		s.log.Warn("store: remove skipped, not connected", zap.String("key", key))
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	defer cancel()

	if err := conn.Remove(opCtx, s.namespaced(key)); err != nil {
		s.operationFailed(ctx, conn, "remove", key, err)
	}
}

// Shutdown permanently stops the store. It closes the live connection, lets
// the became-disconnected transition fire, and returns once the
// reconnection loop has exited. Safe to call multiple times.
func (s *RedisStore) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	already := s.shutdown
	s.shutdown = true
	s.mu.Unlock()

	if !already {
		s.cancel()
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reconnectLoop drives the Disconnected -> Connecting -> Connected cycle
// until shutdown. It runs for the lifetime of the store.
func (s *RedisStore) reconnectLoop() {
	defer func() {
		s.mu.Lock()
		s.state = StateShutDown
		s.mu.Unlock()
		close(s.done)
	}()

	delay := s.cfg.BaseRetryDelay
	for {
		if !s.enterConnecting() {
			return
		}

		delay = nextDelay(delay, s.cfg.MaxRetryDelay)

		dialCtx, cancel := context.WithTimeout(s.ctx, s.cfg.MaxRetryDelay)
		conn, err := s.dial(dialCtx)
		cancel()

		if err != nil {
			s.log.Warn("store: connection attempt failed",
				zap.Error(err),
				zap.Duration("retry_in", delay))
			if !s.wait(delay) {
				return
			}
			continue
		}

		if !s.adopt(conn) {
			// Shutdown raced the dial.
			_ = conn.Close()
			return
		}

		// Blocks until the connection terminates, then the cycle restarts
		// from the base delay.
		s.watch(conn)
		delay = s.cfg.BaseRetryDelay
	}
}

// enterConnecting transitions to Connecting unless the store is shut down.
func (s *RedisStore) enterConnecting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return false
	}
	s.state = StateConnecting
	return true
}

// adopt installs conn as the live connection and fires the became-connected
// transition. Returns false if shutdown raced the dial.
func (s *RedisStore) adopt(conn Conn) bool {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return false
	}
	s.conn = conn
	s.lost = make(chan struct{})
	s.state = StateConnected
	signal := s.connectedC
	s.connectedC = make(chan struct{})
	s.mu.Unlock()

	close(signal)
	s.log.Info("store: connected")
	return true
}

// drop tears conn down if it is still the live connection and fires the
// became-disconnected transition. Returns false if conn was already
// replaced or dropped.
func (s *RedisStore) drop(conn Conn, cause error) bool {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return false
	}
	s.conn = nil
	s.state = StateDisconnected
	lost := s.lost
	signal := s.disconnectedC
	s.disconnectedC = make(chan struct{})
	s.mu.Unlock()

	close(lost)
	close(signal)
	_ = conn.Close()
	s.log.Warn("store: disconnected", zap.Error(cause))
	return true
}

// watch probes the live connection until it terminates or is torn down.
func (s *RedisStore) watch(conn Conn) {
	s.mu.Lock()
	lost := s.lost
	s.mu.Unlock()

	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-lost:
			return
		case <-s.ctx.Done():
			s.drop(conn, errShutDown)
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(s.ctx, s.cfg.OpTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				s.drop(conn, err)
				return
			}
		}
	}
}

// live returns the current connection, or false when not connected.
func (s *RedisStore) live() (Conn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected || s.conn == nil {
		return nil, false
	}
	return s.conn, true
}

// operationFailed logs a soft failure. Expiry of the store-owned op
// timeout additionally tears the connection down, which wakes the watcher
// and restarts the reconnection cycle. A deadline the caller brought with
// it does not: the connection is shared, and one impatient caller must not
// sever it for everyone else.
func (s *RedisStore) operationFailed(callerCtx context.Context, conn Conn, op, key string, err error) {
	s.log.Warn("store: "+op+" failed",
		zap.String("key", key),
		zap.Error(err))
	if errors.Is(err, context.DeadlineExceeded) && callerCtx.Err() == nil {
		s.drop(conn, err)
	}
}

// wait sleeps for the retry delay, or returns false if shutdown arrives
// first.
func (s *RedisStore) wait(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-s.ctx.Done():
		return false
	}
}

// namespaced embeds the server version into a key so versions sharing one
// store instance never collide.
func (s *RedisStore) namespaced(key string) string {
	return s.cfg.ServerVersion + "+" + key
}

// redisConn adapts a go-redis client to the Conn interface.
type redisConn struct {
	client *redis.Client
}

func (c *redisConn) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (c *redisConn) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	// SET with PX carries the expiration in the same command.
	return c.client.Set(ctx, key, value, expiration).Err()
}

func (c *redisConn) Remove(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *redisConn) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *redisConn) Close() error {
	return c.client.Close()
}

// dialRedis returns the default dialer: a go-redis client verified with a
// ping before it is adopted.
func dialRedis(cfg RedisConfig) DialFunc {
	return func(ctx context.Context) (Conn, error) {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			// Reconnection is owned by RedisStore, not the driver.
			MaxRetries: -1,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, err
		}
		return &redisConn{client: client}, nil
	}
}

// Ensure the implementations satisfy their contracts
var (
	_ Store = (*RedisStore)(nil)
	_ Conn  = (*redisConn)(nil)
)
