package metrics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mirainet/spider/http1"
)

func TestHandlerRendersRegisteredMetrics(t *testing.T) {
	ActiveConnections.Inc()
	defer ActiveConnections.Dec()

	resp := Handler(&http1.Request{Method: "GET", Path: "/metrics"})

	require.Equal(t, 200, resp.Status)
	require.Equal(t, http1.BodyBytes, resp.Kind)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
	require.True(t, strings.Contains(string(resp.Bytes), "spider_conn_active_connections"))
}
