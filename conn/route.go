package conn

import (
	"strings"

	"github.com/mirainet/spider/http1"
	"github.com/mirainet/spider/ws"
)

// BufferedHandler receives a Request with Body fully read into memory.
type BufferedHandler func(*ResponseContext)

// StreamingHandler receives a Request whose BodyStream is positioned at the
// first body byte; it is responsible for draining it itself.
type StreamingHandler func(*ResponseContext)

// WebSocketHandler configures a freshly upgraded connection (registering
// OnMessage/OnPing/OnPong/OnClose callbacks) before the worker hands control
// to its ServeLoop.
type WebSocketHandler func(*ws.WebSocketConnection, *http1.Request)

// Router resolves a (method, path) pair to a handler. §4.5 step 3 looks up a
// streaming handler before a buffered one, so the two lookups are kept
// distinct rather than collapsed into one handler type.
//
// spider's own Table implements this against exact path-segment matches —
// deliberately not a pattern/param router: the route key is (method,
// pathSegments), a flat lookup rather than wildcard segments, so pulling in
// a radix-tree param matcher here would add unspecified behavior rather
// than implement what's named.
type Router interface {
	LookupStreaming(method, path string) (StreamingHandler, bool)
	LookupBuffered(method, path string) (BufferedHandler, bool)
	LookupWebSocket(path string) (WebSocketHandler, bool)
}

// Table is the default Router: exact-match maps keyed by method and
// normalized path segments, built once at startup as an already-compiled
// external route table handed to the Connection Runtime.
type Table struct {
	buffered  map[string]BufferedHandler
	streaming map[string]StreamingHandler
	websocket map[string]WebSocketHandler
}

// NewTable returns an empty route table.
func NewTable() *Table {
	return &Table{
		buffered:  make(map[string]BufferedHandler),
		streaming: make(map[string]StreamingHandler),
		websocket: make(map[string]WebSocketHandler),
	}
}

// HandleBuffered registers a buffered handler for method and path.
func (t *Table) HandleBuffered(method, path string, h BufferedHandler) {
	t.buffered[routeKey(method, path)] = h
}

// HandleStreaming registers a streaming handler for method and path.
func (t *Table) HandleStreaming(method, path string, h StreamingHandler) {
	t.streaming[routeKey(method, path)] = h
}

// HandleWebSocket registers an upgrade handler for path, any HTTP method
// (the handshake is always a GET per §4.6, so method is not part of the key).
func (t *Table) HandleWebSocket(path string, h WebSocketHandler) {
	t.websocket[strings.Join(pathSegments(path), "/")] = h
}

// LookupStreaming implements Router.
func (t *Table) LookupStreaming(method, path string) (StreamingHandler, bool) {
	h, ok := t.streaming[routeKey(method, path)]
	return h, ok
}

// LookupBuffered implements Router.
func (t *Table) LookupBuffered(method, path string) (BufferedHandler, bool) {
	h, ok := t.buffered[routeKey(method, path)]
	return h, ok
}

// LookupWebSocket implements Router.
func (t *Table) LookupWebSocket(path string) (WebSocketHandler, bool) {
	h, ok := t.websocket[strings.Join(pathSegments(path), "/")]
	return h, ok
}

// routeKey builds the route key per §4.5 step 3:
// (method, pathSegments) where pathSegments = path.split('/').filter(nonEmpty).
func routeKey(method, path string) string {
	return method + " /" + strings.Join(pathSegments(path), "/")
}

func pathSegments(p string) []string {
	parts := strings.Split(p, "/")
	segs := make([]string, 0, len(parts))
	for _, s := range parts {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}
