package ws

import (
	"crypto/sha1"
	"encoding/base64"
	"io"
	"strings"

	"github.com/mirainet/spider/http1"
)

// ComputeAcceptKey computes the Sec-WebSocket-Accept value from a client's
// Sec-WebSocket-Key: base64(SHA1(key + GUID)), RFC 6455 §1.3.
func ComputeAcceptKey(key string) string {
	h := sha1.New()
	h.Write([]byte(key))
	h.Write([]byte(websocketGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// IsUpgradeRequest reports whether req carries the handshake headers that
// mark it as a WebSocket upgrade attempt, per §4.6: `Upgrade: websocket`
// and `Connection: upgrade` (case-insensitive, tokenized).
func IsUpgradeRequest(req *http1.Request) bool {
	return headerTokenContains(req.Header.Get("Upgrade"), "websocket") &&
		headerTokenContains(req.Header.Get("Connection"), "upgrade")
}

// ValidateHandshake checks the remaining handshake preconditions (method,
// version, key) and returns the client's Sec-WebSocket-Key on success.
func ValidateHandshake(req *http1.Request) (key string, err error) {
	if req.Method != "GET" {
		return "", ErrNotUpgrade
	}
	if !IsUpgradeRequest(req) {
		return "", ErrNotUpgrade
	}
	if req.Header.Get("Sec-WebSocket-Version") != "13" {
		return "", ErrBadVersion
	}
	key = req.Header.Get("Sec-WebSocket-Key")
	if key == "" {
		return "", ErrMissingKey
	}
	return key, nil
}

// WriteUpgradeResponse writes the raw `101 Switching Protocols` handshake
// reply (§4.6) directly to w — this project's core never constructs this
// response via http1.ResponseWriter/net/http, since the handshake is a
// fixed three-header reply that's cheaper and clearer to hand-write.
func WriteUpgradeResponse(w io.Writer, key string, subprotocol string) error {
	accept := ComputeAcceptKey(key)
	var b strings.Builder
	b.WriteString("HTTP/1.1 101 Switching Protocols\r\n")
	b.WriteString("Upgrade: websocket\r\n")
	b.WriteString("Connection: Upgrade\r\n")
	b.WriteString("Sec-WebSocket-Accept: ")
	b.WriteString(accept)
	b.WriteString("\r\n")
	if subprotocol != "" {
		b.WriteString("Sec-WebSocket-Protocol: ")
		b.WriteString(subprotocol)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// headerTokenContains reports whether a comma-separated header value
// contains token, case-insensitively, trimming whitespace around tokens.
func headerTokenContains(header, token string) bool {
	for _, part := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}
