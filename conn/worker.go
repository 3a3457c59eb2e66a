package conn

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/mirainet/spider/http1"
	"github.com/mirainet/spider/metrics"
	"github.com/mirainet/spider/spiderlog"
	"github.com/mirainet/spider/ws"
)

// ResponseContext is what a BufferedHandler/StreamingHandler/WebSocketHandler
// receives: the parsed Request and a ResponseWriter bound to the
// connection's socket. Handlers write directly through Writer rather than
// returning a value for the runtime to serialize.
type ResponseContext struct {
	Request *http1.Request
	Writer  *http1.ResponseWriter
}

// tempFileRegistry collects request-scoped temp-file-backed values (e.g.
// *multipart.StreamingFileUpload) so the worker can remove them once the
// handler returns: cleanup is bound to request scope and runs unconditionally
// in a defer.
type tempFileRegistry struct {
	mu    sync.Mutex
	files []interface{ Remove() error }
}

func (r *tempFileRegistry) add(f interface{ Remove() error }) {
	r.mu.Lock()
	r.files = append(r.files, f)
	r.mu.Unlock()
}

func (r *tempFileRegistry) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.files {
		_ = f.Remove()
	}
}

type tempRegistryKey struct{}

// RegisterTempFile records a temp-file-backed value on a request's context
// for cleanup at the end of that request's handling, whether the handler
// returns normally or panics. Handlers that parse streaming multipart
// uploads should call this once per *multipart.StreamingFileUpload they
// receive.
func RegisterTempFile(ctx context.Context, f interface{ Remove() error }) {
	if reg, ok := ctx.Value(tempRegistryKey{}).(*tempFileRegistry); ok {
		reg.add(f)
	}
}

// worker drives the keep-alive state machine for one accepted connection:
// AwaitingRequest -> ParsingHeaders -> Routing ->
// (BufferedHandling | StreamingHandling | UpgradingWebSocket) -> Writing ->
// Decide(keep|close), per §4.5, dispatching to spider's
// Router-resolved buffered/streaming/websocket handler split per request.
type worker struct {
	conn   net.Conn
	cfg    *http1.Config
	router Router
	logger zerolog.Logger

	br *bufio.Reader
	rw *http1.ResponseWriter

	requestsServed int

	// reqLogger carries the request id for whichever request is currently
	// being served; the keep-alive loop handles one request at a time, so a
	// single field (reset at the top of each iteration) is enough.
	reqLogger zerolog.Logger
}

func newWorker(c net.Conn, cfg *http1.Config, router Router, logger zerolog.Logger) *worker {
	return &worker{
		conn:   c,
		cfg:    cfg,
		router: router,
		logger: logger,
		br:     bufio.NewReader(c),
		rw:     http1.NewResponseWriter(c),
	}
}

// serve runs the keep-alive loop until a close condition is met (§4.5
// Decide step) or a fatal connection error occurs.
func (w *worker) serve() {
	defer w.conn.Close()

	for {
		if w.cfg.SocketTimeout > 0 {
			_ = w.conn.SetReadDeadline(time.Now().Add(w.cfg.SocketTimeout))
		}

		keepAlive, upgraded, err := w.serveOne()
		if err != nil {
			if !errors.Is(err, http1.ErrConnectionClosed) {
				w.logger.Warn().Err(err).Msg("connection worker error")
			}
			return
		}
		if upgraded {
			// ws.WebSocketConnection.ServeLoop already owns the socket and
			// has returned by the time serveOne comes back; the HTTP
			// keep-alive loop never resumes on this connection (§4.5).
			return
		}
		if !keepAlive {
			return
		}

		w.requestsServed++
		if w.cfg.MaxKeepAliveRequests > 0 && w.requestsServed >= w.cfg.MaxKeepAliveRequests {
			return
		}
	}
}

// serveOne runs one iteration of the keep-alive loop: parse, route,
// dispatch, decide. keepAlive is only meaningful when upgraded is false.
func (w *worker) serveOne() (keepAlive bool, upgraded bool, err error) {
	if w.cfg.RequestTimeout > 0 {
		_ = w.conn.SetWriteDeadline(time.Now().Add(w.cfg.RequestTimeout))
	}

	w.reqLogger = spiderlog.WithRequest(w.logger, xid.New().String())

	res, perr := http1.ParseHeadersOnly(w.br, w.cfg)
	if perr != nil {
		if errors.Is(perr, http1.ErrConnectionClosed) {
			return false, false, nil
		}
		w.writeParseError(perr)
		return false, false, nil
	}

	remoteAddr := ""
	if ra := w.conn.RemoteAddr(); ra != nil {
		remoteAddr = ra.String()
	}
	handshakeReq := res.ToRequest(remoteAddr, nil, nil)

	// Step 2: upgrade detection terminates the HTTP loop for this
	// connection permanently.
	if ws.IsUpgradeRequest(handshakeReq) {
		return false, true, w.handleUpgrade(res, handshakeReq)
	}

	closeAfter := w.dispatch(res, handshakeReq)
	return !closeAfter, false, nil
}

// dispatch implements §4.5 steps 3-6: route lookup, body ingestion per the
// resolved handler kind, handler invocation with panic recovery, and the
// keep-alive decision.
func (w *worker) dispatch(res *http1.HeadersOnlyResult, handshakeReq *http1.Request) (closeAfter bool) {
	w.rw.Reset(w.conn)

	streamingHandler, isStreaming := w.router.LookupStreaming(res.Method, res.Path)
	var bufferedHandler BufferedHandler
	var isBuffered bool
	if !isStreaming {
		bufferedHandler, isBuffered = w.router.LookupBuffered(res.Method, res.Path)
	}

	if !isStreaming && !isBuffered {
		w.writeStatus(404, "route not found")
		return true
	}

	bodyReader, berr := http1.NewBodyReader(res.Header, res.BodyReader(), w.cfg)
	if berr != nil {
		w.writeParseError(berr)
		return true
	}

	var req *http1.Request
	if isStreaming {
		req = res.ToRequest(handshakeReq.RemoteAddr, nil, bodyReader)
	} else {
		body, rerr := http1.ReadBody(bodyReader, w.cfg)
		if rerr != nil {
			w.writeParseError(rerr)
			return true
		}
		req = res.ToRequest(handshakeReq.RemoteAddr, body, nil)
	}

	reg := &tempFileRegistry{}
	req = req.WithContext(context.WithValue(req.Context(), tempRegistryKey{}, reg))
	defer reg.cleanup()

	ctx := &ResponseContext{Request: req, Writer: w.rw}
	if w.invokeHandler(isStreaming, streamingHandler, bufferedHandler, ctx) {
		metrics.ObserveRequest(req.Method, w.rw.Status())
		return true
	}

	// A handler that set only a status (or nothing) still gets its response
	// on the wire, framed as an empty body.
	if !w.rw.HeaderWritten() {
		if !w.rw.Header().Has("Content-Length") {
			w.rw.Header().Set("Content-Length", "0")
		}
		_ = w.rw.Flush()
	}

	metrics.ObserveRequest(req.Method, w.rw.Status())
	if w.rw.Status() >= 400 {
		return true
	}
	return req.Close
}

// invokeHandler calls the resolved handler, converting a panic into a 500
// per §4.5 step 4's "Handler exceptions are caught and converted to 500".
func (w *worker) invokeHandler(streaming bool, sh StreamingHandler, bh BufferedHandler, ctx *ResponseContext) (failed bool) {
	defer func() {
		if r := recover(); r != nil {
			w.reqLogger.Error().
				Interface("panic", r).
				Str("method", ctx.Request.Method).
				Str("path", ctx.Request.Path).
				Msg("handler panic")
			if !ctx.Writer.HeaderWritten() {
				w.writeStatus(500, "internal server error")
			}
			failed = true
		}
	}()
	if streaming {
		sh(ctx)
	} else {
		bh(ctx)
	}
	return false
}

// handleUpgrade validates the WebSocket handshake, writes the 101 response,
// and hands the raw socket to ws.WebSocketConnection for the rest of its
// lifetime; the HTTP keep-alive loop never resumes on it.
func (w *worker) handleUpgrade(res *http1.HeadersOnlyResult, req *http1.Request) error {
	handler, ok := w.router.LookupWebSocket(res.Path)
	if !ok {
		w.writeStatus(404, "no websocket route")
		return nil
	}

	key, err := ws.ValidateHandshake(req)
	if err != nil {
		w.writeStatus(400, "bad handshake")
		return nil
	}
	if err := ws.WriteUpgradeResponse(w.conn, key, ""); err != nil {
		return err
	}

	wsConn := ws.NewConnection(w.conn, w.cfg.SocketTimeout, 0)
	handler(wsConn, req)

	metrics.WebSocketConnectionsOpen.Inc()
	defer metrics.WebSocketConnectionsOpen.Dec()
	return wsConn.ServeLoop()
}

func (w *worker) writeStatus(status int, message string) {
	resp := http1.NewResponse()
	resp.Status = status
	resp.Kind = http1.BodyString
	resp.Str = message
	_ = w.rw.WriteResponse(resp)
}

func (w *worker) writeParseError(err error) {
	var limitErr *http1.LimitError
	if errors.As(err, &limitErr) {
		w.reqLogger.Warn().Err(err).Int("status", limitErr.Status).Msg("request rejected")
		w.writeStatus(limitErr.Status, limitErr.Error())
		return
	}
	w.reqLogger.Warn().Err(err).Msg("bad request")
	w.writeStatus(400, "bad request")
}
