// Package conn implements the Connection Runtime (C5): the accept loop and
// per-connection keep-alive worker that sit on top of http1 and ws.
package conn

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/mirainet/spider/http1"
	"github.com/mirainet/spider/metrics"
	"github.com/mirainet/spider/spiderlog"
)

// Runtime is the accept loop: one goroutine calls Accept in a loop while
// running is true; each accepted connection gets its own worker goroutine.
// A shared listener handle, atomic shutdown flag, connection tracking map,
// and a close-then-wait-then-force Shutdown sequence coordinate graceful
// termination; per-request dispatch underneath is handled by conn.worker,
// which implements spider's own routing and WebSocket upgrade semantics.
type Runtime struct {
	cfg    *http1.Config
	router Router
	logger zerolog.Logger

	listener net.Listener
	running  atomic.Bool
	wg       sync.WaitGroup

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}
}

// NewRuntime builds a Runtime. cfg supplies the parser/body/timeout/
// keep-alive tunables (§4.2); router resolves incoming requests to handlers.
func NewRuntime(cfg *http1.Config, router Router, logger zerolog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		router: router,
		logger: logger,
		conns:  make(map[net.Conn]struct{}),
	}
}

// ListenAndServe listens on addr and serves connections until Shutdown or
// Close is called.
func (rt *Runtime) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("conn: listen on %s: %w", addr, err)
	}
	return rt.Serve(ln)
}

// ListenAndServeReusePort is ListenAndServe with SO_REUSEPORT set on the
// listening socket, letting operators run one Runtime per CPU against the
// same address (see sockopt_linux.go's golang.org/x/sys/unix tuning).
func (rt *Runtime) ListenAndServeReusePort(addr string) error {
	lc := net.ListenConfig{Control: reusePortControl}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return fmt.Errorf("conn: listen on %s: %w", addr, err)
	}
	return rt.Serve(ln)
}

// Serve runs the accept loop over an already-bound listener, per §4.5's
// "Accept loop" paragraph: socket-closed errors raised by Shutdown/Close are
// swallowed, any other Accept error is logged and the loop continues (one
// connection's transient failure never affects others).
func (rt *Runtime) Serve(l net.Listener) error {
	rt.listener = l
	rt.running.Store(true)
	defer l.Close()

	for rt.running.Load() {
		c, err := l.Accept()
		if err != nil {
			if !rt.running.Load() {
				return nil
			}
			rt.logger.Warn().Err(err).Msg("accept failed")
			continue
		}

		tuneConn(c)
		rt.trackConn(c)
		rt.wg.Add(1)
		connLogger := spiderlog.WithConnection(rt.logger, xid.New().String())
		go func() {
			defer rt.wg.Done()
			defer rt.untrackConn(c)
			newWorker(c, rt.cfg, rt.router, connLogger).serve()
		}()
	}
	return nil
}

// Shutdown stops accepting new connections and waits for in-flight ones to
// finish on their own, up to ctx's deadline; past that it force-closes
// everything still open and returns ctx.Err().
func (rt *Runtime) Shutdown(ctx context.Context) error {
	if !rt.running.CompareAndSwap(true, false) {
		return nil
	}
	if rt.listener != nil {
		rt.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		rt.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		rt.closeAllConns()
		return ctx.Err()
	}
}

// Close immediately stops the runtime: the listener is closed, every tracked
// connection is force-closed, and Close blocks until all worker goroutines
// have returned.
func (rt *Runtime) Close() error {
	rt.running.Store(false)
	if rt.listener != nil {
		rt.listener.Close()
	}
	rt.closeAllConns()
	rt.wg.Wait()
	return nil
}

func (rt *Runtime) trackConn(c net.Conn) {
	rt.connsMu.Lock()
	rt.conns[c] = struct{}{}
	rt.connsMu.Unlock()
	metrics.ActiveConnections.Inc()
}

func (rt *Runtime) untrackConn(c net.Conn) {
	rt.connsMu.Lock()
	delete(rt.conns, c)
	rt.connsMu.Unlock()
	metrics.ActiveConnections.Dec()
}

func (rt *Runtime) closeAllConns() {
	rt.connsMu.Lock()
	conns := make([]net.Conn, 0, len(rt.conns))
	for c := range rt.conns {
		conns = append(conns, c)
	}
	rt.connsMu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
