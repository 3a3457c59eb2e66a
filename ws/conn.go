package ws

import (
	"encoding/binary"
	"net"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"
)

// connState is the WebSocketConnection lifecycle state.
type connState int32

const (
	stateOpen connState = iota
	stateClosing
	stateClosed
)

// WebSocketConnection wraps a post-upgrade socket with the message-based
// API described in §4.6: sendText/sendBinary/sendPing/sendPong/close, plus
// isOpen/isClosing/isClosed state queries. Outbound writes serialize one
// whole frame at a time, mutually exclusive via writeMu.
type WebSocketConnection struct {
	conn   net.Conn
	reader *FrameReader
	writer *FrameWriter

	writeMu sync.Mutex
	state   atomic.Int32

	socketTimeout  time.Duration
	maxMessageSize int64

	closeOnce sync.Once

	// OnMessage, OnPing, OnPong, and OnClose are the user-supplied
	// callbacks driving the read loop's delivery side. Nil callbacks are
	// simply skipped.
	OnMessage func(opcode byte, payload []byte)
	OnPing    func(payload []byte)
	OnPong    func(payload []byte)
	OnClose   func(code uint16, reason string)
}

// NewConnection wraps conn as a server-side WebSocket connection.
// socketTimeout bounds both idle reads and the close handshake's wait for
// the peer's Close frame; maxMessageSize bounds reassembled message size
// (0 means unbounded).
func NewConnection(conn net.Conn, socketTimeout time.Duration, maxMessageSize int64) *WebSocketConnection {
	return &WebSocketConnection{
		conn:           conn,
		reader:         NewFrameReader(conn, 0),
		writer:         NewFrameWriter(conn),
		socketTimeout:  socketTimeout,
		maxMessageSize: maxMessageSize,
	}
}

func (c *WebSocketConnection) isOpen() bool    { return connState(c.state.Load()) == stateOpen }
func (c *WebSocketConnection) isClosing() bool { return connState(c.state.Load()) == stateClosing }
func (c *WebSocketConnection) isClosed() bool  { return connState(c.state.Load()) == stateClosed }

// IsOpen, IsClosing, IsClosed are the exported forms of the §4.6 state
// queries; the lower-case names remain the canonical entry points used by
// ServeLoop and close.
func (c *WebSocketConnection) IsOpen() bool    { return c.isOpen() }
func (c *WebSocketConnection) IsClosing() bool { return c.isClosing() }
func (c *WebSocketConnection) IsClosed() bool  { return c.isClosed() }

func (c *WebSocketConnection) writeFrame(opcode byte, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.writer.WriteFrame(opcode, true, payload, nil)
}

// sendText sends a complete text message as a single frame.
func (c *WebSocketConnection) sendText(data []byte) error {
	if !c.isOpen() {
		return ErrProtocolViolation
	}
	if !utf8.Valid(data) {
		return ErrInvalidUTF8
	}
	return c.writeFrame(OpcodeText, data)
}

// sendBinary sends a complete binary message as a single frame.
func (c *WebSocketConnection) sendBinary(data []byte) error {
	if !c.isOpen() {
		return ErrProtocolViolation
	}
	return c.writeFrame(OpcodeBinary, data)
}

// sendPing sends a Ping control frame.
func (c *WebSocketConnection) sendPing(data []byte) error {
	if len(data) > MaxControlFramePayload {
		return ErrInvalidControlFrame
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.writer.WriteControlFrame(OpcodePing, data, nil)
}

// sendPong sends a Pong control frame.
func (c *WebSocketConnection) sendPong(data []byte) error {
	if len(data) > MaxControlFramePayload {
		return ErrInvalidControlFrame
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.writer.WriteControlFrame(OpcodePong, data, nil)
}

// SendText, SendBinary, SendPing, SendPong are the exported entry points;
// see sendText etc. for the behavior contract.
func (c *WebSocketConnection) SendText(data []byte) error   { return c.sendText(data) }
func (c *WebSocketConnection) SendBinary(data []byte) error { return c.sendBinary(data) }
func (c *WebSocketConnection) SendPing(data []byte) error   { return c.sendPing(data) }
func (c *WebSocketConnection) SendPong(data []byte) error   { return c.sendPong(data) }

// close transitions to Closing, sends a Close frame with statusCode/reason,
// waits for the peer's own Close frame, then closes the TCP socket, per
// §4.6's close semantics. socketTimeout bounds both the Close frame's write
// and the wait. Safe to call more than once; only the first call has effect.
func (c *WebSocketConnection) close(statusCode uint16, reason string) error {
	var closeErr error
	c.closeOnce.Do(func() {
		c.state.Store(int32(stateClosing))
		if c.socketTimeout > 0 {
			c.conn.SetDeadline(time.Now().Add(c.socketTimeout))
		}

		payload := closePayload(statusCode, reason)
		c.writeMu.Lock()
		writeErr := c.writer.WriteControlFrame(OpcodeClose, payload, nil)
		c.writeMu.Unlock()

		c.drainUntilPeerClose()

		c.state.Store(int32(stateClosed))
		closeErr = c.conn.Close()
		if closeErr == nil {
			closeErr = writeErr
		}
	})
	return closeErr
}

// Close is the exported form of close, sending CloseNormalClosure.
func (c *WebSocketConnection) Close() error {
	return c.close(CloseNormalClosure, "")
}

// CloseWithStatus is the exported form of close with caller-chosen status
// and reason.
func (c *WebSocketConnection) CloseWithStatus(statusCode uint16, reason string) error {
	return c.close(statusCode, reason)
}

// drainUntilPeerClose reads frames until a Close frame arrives, the
// deadline set in close() fires, or the connection errors — whichever
// comes first. Any data frames encountered while draining are discarded;
// we are shutting down, not serving.
func (c *WebSocketConnection) drainUntilPeerClose() {
	for {
		frame, err := c.reader.ReadFrame()
		if err != nil {
			return
		}
		if frame.Opcode == OpcodeClose {
			return
		}
	}
}

func closePayload(statusCode uint16, reason string) []byte {
	if statusCode == 0 {
		return nil
	}
	payload := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(payload, statusCode)
	copy(payload[2:], reason)
	return payload
}

// ServeLoop runs the post-upgrade read loop (§4.6) until the connection
// closes: decodes one frame at a time, reassembles fragmented data
// messages, auto-replies to Ping with Pong, and drives the Close
// handshake. It returns when the connection is closed, by either peer.
func (c *WebSocketConnection) ServeLoop() error {
	c.state.Store(int32(stateOpen))

	var (
		assembling  bool
		messageType byte
		buffer      []byte
	)

	for {
		if c.socketTimeout > 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.socketTimeout))
		}
		frame, err := c.reader.ReadFrame()
		if err != nil {
			c.state.Store(int32(stateClosed))
			c.conn.Close()
			return err
		}

		if frame.IsControl() {
			if err := c.handleControlFrame(frame); err != nil {
				return err
			}
			if frame.Opcode == OpcodeClose {
				return nil
			}
			continue
		}

		if frame.Opcode == OpcodeContinuation {
			if !assembling {
				c.close(CloseProtocolError, "unexpected continuation frame")
				return ErrProtocolViolation
			}
		} else {
			if assembling {
				c.close(CloseProtocolError, "data frame mid-fragment")
				return ErrProtocolViolation
			}
			assembling = true
			messageType = frame.Opcode
			buffer = buffer[:0]
		}

		if len(frame.Payload) > 0 {
			if c.maxMessageSize > 0 && int64(len(buffer)+len(frame.Payload)) > c.maxMessageSize {
				c.close(CloseMessageTooBig, "message too large")
				return ErrMessageTooLarge
			}
			buffer = append(buffer, frame.Payload...)
		}

		if frame.Fin {
			assembling = false
			if messageType == OpcodeText && !utf8.Valid(buffer) {
				c.close(CloseInvalidPayload, "invalid utf-8")
				return ErrInvalidUTF8
			}
			if c.OnMessage != nil {
				delivered := make([]byte, len(buffer))
				copy(delivered, buffer)
				c.OnMessage(messageType, delivered)
			}
		}
	}
}

func (c *WebSocketConnection) handleControlFrame(frame *Frame) error {
	switch frame.Opcode {
	case OpcodePing:
		if c.OnPing != nil {
			c.OnPing(frame.Payload)
		}
		return c.sendPong(frame.Payload)

	case OpcodePong:
		if c.OnPong != nil {
			c.OnPong(frame.Payload)
		}
		return nil

	case OpcodeClose:
		code, reason := parseClosePayload(frame.Payload)
		if c.OnClose != nil {
			c.OnClose(code, reason)
		}
		if c.isClosing() {
			c.state.Store(int32(stateClosed))
			return c.conn.Close()
		}
		if code == CloseNoStatusReceived {
			// The peer sent no status; echo an empty Close frame.
			return c.close(0, "")
		}
		return c.close(code, reason)
	}
	return nil
}

func parseClosePayload(payload []byte) (code uint16, reason string) {
	if len(payload) < 2 {
		return CloseNoStatusReceived, ""
	}
	code = binary.BigEndian.Uint16(payload[:2])
	if len(payload) > 2 {
		reason = string(payload[2:])
	}
	return code, reason
}
