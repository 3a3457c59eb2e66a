package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestStatusClassBuckets(t *testing.T) {
	cases := map[int]string{
		100: "1xx",
		200: "2xx",
		204: "2xx",
		301: "3xx",
		404: "4xx",
		500: "5xx",
		599: "5xx",
	}
	for status, want := range cases {
		require.Equal(t, want, statusClass(status))
	}
}

func TestObserveRequestIncrementsLabeledCounter(t *testing.T) {
	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("GET", "2xx"))
	ObserveRequest("GET", 200)
	after := testutil.ToFloat64(RequestsTotal.WithLabelValues("GET", "2xx"))

	require.Equal(t, before+1, after)
}

func TestActiveConnectionsGauge(t *testing.T) {
	before := testutil.ToFloat64(ActiveConnections)
	ActiveConnections.Inc()
	require.Equal(t, before+1, testutil.ToFloat64(ActiveConnections))
	ActiveConnections.Dec()
	require.Equal(t, before, testutil.ToFloat64(ActiveConnections))
}

func TestRateLimitRejectionsLabeledByAlgorithm(t *testing.T) {
	before := testutil.ToFloat64(RateLimitRejections.WithLabelValues("token_bucket"))
	RateLimitRejections.WithLabelValues("token_bucket").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(RateLimitRejections.WithLabelValues("token_bucket")))
}
