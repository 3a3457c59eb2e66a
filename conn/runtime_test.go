package conn_test

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mirainet/spider/conn"
	"github.com/mirainet/spider/http1"
)

func startRuntime(t *testing.T, table *conn.Table) (addr string, rt *conn.Runtime) {
	t.Helper()
	cfg := http1.DefaultConfig()
	rt = conn.NewRuntime(cfg, table, zerolog.Nop())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr = ln.Addr().String()

	go rt.Serve(ln)
	t.Cleanup(func() { rt.Close() })
	return addr, rt
}

func TestRuntimeServesBufferedHandler(t *testing.T) {
	table := conn.NewTable()
	table.HandleBuffered("GET", "/hello", func(c *conn.ResponseContext) {
		c.Writer.WriteHeader(200)
		c.Writer.Write([]byte("world"))
	})
	addr, _ := startRuntime(t, table)

	dialAndWait(t, addr)

	c, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer c.Close()

	fmt.Fprintf(c, "GET /hello HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n")
	br := bufio.NewReader(c)
	status, err := br.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, status, "200")

	body := drainBody(t, br)
	require.Equal(t, "world", body)
}

func TestRuntimeReturns404ForUnknownRoute(t *testing.T) {
	table := conn.NewTable()
	addr, _ := startRuntime(t, table)
	dialAndWait(t, addr)

	c, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer c.Close()

	fmt.Fprintf(c, "GET /missing HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n")
	br := bufio.NewReader(c)
	status, err := br.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, status, "404")
}

func TestRuntimeKeepAliveServesMultipleRequests(t *testing.T) {
	table := conn.NewTable()
	hits := 0
	table.HandleBuffered("GET", "/ping", func(c *conn.ResponseContext) {
		hits++
		c.Writer.WriteHeader(200)
		c.Writer.Write([]byte("pong"))
	})
	addr, _ := startRuntime(t, table)
	dialAndWait(t, addr)

	c, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer c.Close()
	br := bufio.NewReader(c)

	for i := 0; i < 3; i++ {
		fmt.Fprintf(c, "GET /ping HTTP/1.1\r\nHost: x\r\n\r\n")
		status, err := br.ReadString('\n')
		require.NoError(t, err)
		require.Contains(t, status, "200")
		drainBody(t, br)
	}
	require.Equal(t, 3, hits)
}

func TestRuntimeShutdownCompletesWithinDeadline(t *testing.T) {
	table := conn.NewTable()
	addr, rt := startRuntime(t, table)
	dialAndWait(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, rt.Shutdown(ctx))
}

func dialAndWait(t *testing.T, addr string) {
	t.Helper()
	for i := 0; i < 20; i++ {
		c, err := net.Dial("tcp", addr)
		if err == nil {
			c.Close()
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("server at %s never became reachable", addr)
}

func drainBody(t *testing.T, br *bufio.Reader) string {
	t.Helper()
	var headerLines []string
	for {
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		if line == "\r\n" {
			break
		}
		headerLines = append(headerLines, line)
	}
	buf := make([]byte, 256)
	n, _ := br.Read(buf)
	return string(buf[:n])
}
