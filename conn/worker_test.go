package conn

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mirainet/spider/http1"
	"github.com/mirainet/spider/ws"
)

func pipeWorker(table *Table) (*worker, net.Conn) {
	clientConn, serverConn := net.Pipe()
	w := newWorker(serverConn, http1.DefaultConfig(), table, zerolog.Nop())
	return w, clientConn
}

func TestWorkerRecoversHandlerPanicAs500(t *testing.T) {
	table := NewTable()
	table.HandleBuffered("GET", "/boom", func(c *ResponseContext) {
		panic("kaboom")
	})
	w, client := pipeWorker(table)
	go w.serve()

	fmt.Fprintf(client, "GET /boom HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n")
	br := bufio.NewReader(client)
	status, err := br.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, status, "500")
}

func TestWorkerStreamingHandlerReceivesBodyStream(t *testing.T) {
	table := NewTable()
	var gotBody string
	table.HandleStreaming("POST", "/upload", func(c *ResponseContext) {
		buf := make([]byte, 64)
		n, _ := c.Request.BodyStream.Read(buf)
		gotBody = string(buf[:n])
		c.Writer.WriteHeader(200)
	})
	w, client := pipeWorker(table)
	go w.serve()

	fmt.Fprintf(client, "POST /upload HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\nConnection: close\r\n\r\nhello")
	br := bufio.NewReader(client)
	status, err := br.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, status, "200")
	require.Equal(t, "hello", gotBody)
}

func TestWorkerClosesOnErrorStatus(t *testing.T) {
	table := NewTable()
	table.HandleBuffered("GET", "/fail", func(c *ResponseContext) {
		c.Writer.WriteHeader(400)
		c.Writer.Write([]byte("nope"))
	})
	w, client := pipeWorker(table)
	done := make(chan struct{})
	go func() { w.serve(); close(done) }()

	fmt.Fprintf(client, "GET /fail HTTP/1.1\r\nHost: x\r\n\r\n")
	br := bufio.NewReader(client)
	status, err := br.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, status, "400")
	for {
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		if line == "\r\n" {
			break
		}
	}
	buf := make([]byte, 16)
	br.Read(buf)

	// The connection must have been closed by the worker even though the
	// client never sent Connection: close — a >=400 response always closes.
	_, err = client.Read(buf)
	require.Error(t, err)
	<-done
}

func TestWorkerUpgradesToWebSocket(t *testing.T) {
	table := NewTable()
	var opened bool
	table.HandleWebSocket("/chat", func(c *ws.WebSocketConnection, r *http1.Request) {
		opened = true
		c.OnMessage = func(opcode byte, payload []byte) {
			c.SendText(payload)
		}
	})
	w, client := pipeWorker(table)
	go w.serve()

	fmt.Fprintf(client, "GET /chat HTTP/1.1\r\nHost: x\r\nUpgrade: websocket\r\nConnection: Upgrade\r\nSec-WebSocket-Version: 13\r\nSec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n\r\n")
	br := bufio.NewReader(client)
	status, err := br.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, status, "101")
	require.True(t, opened)
}

func TestWorkerRouteKeyMatchesNormalizedPath(t *testing.T) {
	table := NewTable()
	hit := false
	table.HandleBuffered("GET", "/a/b", func(c *ResponseContext) {
		hit = true
		c.Writer.WriteHeader(200)
	})
	w, client := pipeWorker(table)
	go w.serve()

	fmt.Fprintf(client, "GET /a/b/ HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n")
	br := bufio.NewReader(client)
	_, err := br.ReadString('\n')
	require.NoError(t, err)
	require.True(t, hit)
}

func TestWriteParseErrorUsesLimitErrorStatus(t *testing.T) {
	table := NewTable()
	w, client := pipeWorker(table)
	defer client.Close()

	go w.writeParseError(&http1.LimitError{Err: errors.New("too many headers"), Status: 431})

	br := bufio.NewReader(client)
	status, err := br.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, status, "431")
}
