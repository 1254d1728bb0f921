// Package pool implements a bounded, per-destination connection pool:
// borrow/return a (socket, in, out) bundle keyed by (host, port,
// protocol-tag), with close-on-error discipline. It is the minimal
// concrete transport underneath the RPC layer, not a general-purpose
// production connection pool.
package pool

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/MacFlecknoe/voldemort/cmn"
)

// AdminProtocolBuffers is the destination tag admin traffic uses so it
// never shares pooled connections with data-plane traffic to the same
// (host, port).
const AdminProtocolBuffers = "ADMIN_PROTOCOL_BUFFERS"

// Destination identifies a pooled endpoint.
type Destination struct {
	Host        string
	Port        int
	ProtocolTag string
}

func (d Destination) String() string {
	return fmt.Sprintf("%s:%d/%s", d.Host, d.Port, d.ProtocolTag)
}

func (d Destination) addr() string { return fmt.Sprintf("%s:%d", d.Host, d.Port) }

// trackedConn notices when the caller closes the underlying socket
// directly: if that happens before check-in, the pool must treat the
// entry as discarded on return rather than reusing a closed socket.
type trackedConn struct {
	net.Conn
	closed atomic.Bool
}

func (t *trackedConn) Close() error {
	t.closed.Store(true)
	return t.Conn.Close()
}

// Conn is the bundle Checkout returns: a socket plus its buffered
// reader/writer.
type Conn struct {
	Socket net.Conn
	In     *bufio.Reader
	Out    *bufio.Writer

	dest    Destination
	discard bool
}

// Discard marks the connection so Checkin closes it instead of
// returning it to the free list. Callers use this on any I/O error
// that leaves the connection's stream position in doubt.
func (c *Conn) Discard() { c.discard = true }

func (c *Conn) isDiscarded() bool {
	if c.discard {
		return true
	}
	if tc, ok := c.Socket.(*trackedConn); ok && tc.closed.Load() {
		return true
	}
	return false
}

// Pool is the pooled transport interface consumed by the RPC layer.
type Pool interface {
	Checkout(ctx context.Context, dest Destination) (*Conn, error)
	Checkin(dest Destination, conn *Conn)
	Close() error
}

// SocketPool is a bounded, per-destination connection cache.
// MaxConnectionsPerNode, ConnectionTimeout, SocketBufferSize, and
// SocketKeepAlive come straight from cmn.AdminClientConfig.
type SocketPool struct {
	cfg *cmn.AdminClientConfig

	mu     sync.Mutex
	closed bool
	free   map[string][]*Conn
	sems   map[string]chan struct{}
	inUse  map[string]*atomic.Int64

	checkouts atomic.Int64
	checkins  atomic.Int64
}

func NewSocketPool(cfg *cmn.AdminClientConfig) *SocketPool {
	return &SocketPool{
		cfg:   cfg,
		free:  make(map[string][]*Conn),
		sems:  make(map[string]chan struct{}),
		inUse: make(map[string]*atomic.Int64),
	}
}

// inUseCounter returns the lazily-created per-destination occupancy
// counter. Occupancy is tracked per destination, not just pool-wide,
// since each (host, port, protocol-tag) has its own connection cap.
func (p *SocketPool) inUseCounter(dest Destination) *atomic.Int64 {
	key := dest.String()
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.inUse[key]
	if !ok {
		c = atomic.NewInt64(0)
		p.inUse[key] = c
	}
	return c
}

// InUse reports how many connections to dest are currently checked out.
func (p *SocketPool) InUse(dest Destination) int64 {
	return p.inUseCounter(dest).Load()
}

func (p *SocketPool) semFor(dest Destination) chan struct{} {
	key := dest.String()
	p.mu.Lock()
	defer p.mu.Unlock()
	sem, ok := p.sems[key]
	if !ok {
		size := p.cfg.MaxConnectionsPerNode
		if size <= 0 {
			size = 1
		}
		sem = make(chan struct{}, size)
		p.sems[key] = sem
	}
	return sem
}

// Checkout borrows a connection to dest, bounded by connect timeout and
// the per-node max-connections cap. A caller blocked on the cap is
// released by ctx cancellation.
func (p *SocketPool) Checkout(ctx context.Context, dest Destination) (*Conn, error) {
	sem := p.semFor(dest)
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "pool: checkout")
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-sem
		return nil, errors.New("pool: closed")
	}
	key := dest.String()
	if free := p.free[key]; len(free) > 0 {
		conn := free[len(free)-1]
		p.free[key] = free[:len(free)-1]
		p.mu.Unlock()
		p.checkouts.Inc()
		p.inUseCounter(dest).Inc()
		return conn, nil
	}
	p.mu.Unlock()

	conn, err := p.dial(ctx, dest)
	if err != nil {
		<-sem
		return nil, err
	}
	p.checkouts.Inc()
	p.inUseCounter(dest).Inc()
	if cmn.Rom.V(5, cmn.ModPool) {
		glog.Infof("pool: dialed new connection to %s", dest)
	}
	return conn, nil
}

func (p *SocketPool) dial(ctx context.Context, dest Destination) (*Conn, error) {
	dialer := net.Dialer{Timeout: p.cfg.ConnectionTimeout}
	if p.cfg.SocketKeepAlive {
		dialer.KeepAlive = 30 * time.Second
	} else {
		dialer.KeepAlive = -1
	}
	raw, err := dialer.DialContext(ctx, "tcp", dest.addr())
	if err != nil {
		return nil, errors.Wrapf(err, "pool: dial %s", dest)
	}
	tc := &trackedConn{Conn: raw}
	bufSize := p.cfg.SocketBufferSize
	if bufSize <= 0 {
		bufSize = 4096
	}
	return &Conn{
		Socket: tc,
		In:     bufio.NewReaderSize(tc, bufSize),
		Out:    bufio.NewWriterSize(tc, bufSize),
		dest:   dest,
	}, nil
}

// Checkin returns conn to the pool, closing it first if it was marked
// discarded, closed out from under the pool, or the pool itself has
// since been closed.
func (p *SocketPool) Checkin(dest Destination, conn *Conn) {
	sem := p.semFor(dest)
	defer func() { <-sem }()
	p.checkins.Inc()
	p.inUseCounter(dest).Dec()

	if conn == nil {
		return
	}
	if conn.isDiscarded() {
		_ = conn.Socket.Close()
		if cmn.FastV(4) {
			glog.Infof("pool: closing discarded connection to %s", dest)
		}
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		_ = conn.Socket.Close()
		return
	}
	key := dest.String()
	p.free[key] = append(p.free[key], conn)
}

// Stats returns the running (checkouts, checkins) counters, useful for
// asserting a test scenario left the pool balanced.
func (p *SocketPool) Stats() (checkouts, checkins int64) {
	return p.checkouts.Load(), p.checkins.Load()
}

// Outstanding returns checkouts - checkins: connections currently lent
// out. A well-behaved caller drives this back to zero.
func (p *SocketPool) Outstanding() int64 {
	return p.checkouts.Load() - p.checkins.Load()
}

func (p *SocketPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	var firstErr error
	for _, conns := range p.free {
		for _, c := range conns {
			if err := c.Socket.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	p.free = nil
	return firstErr
}
