package metrics

import (
	"bytes"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/mirainet/spider/http1"
)

// Handler renders the default Prometheus registry as a spider response, for
// mounting at /metrics the way cmd/spiderd does. It is a plain
// func(*http1.Request) *http1.Response rather than an http.Handler, matching
// middleware.Handler's shape, since spider never imports net/http for its
// own serving path.
func Handler(req *http1.Request) *http1.Response {
	families, err := prometheus.DefaultGatherer.Gather()
	resp := http1.NewResponse()
	if err != nil {
		resp.Status = 500
		resp.Kind = http1.BodyString
		resp.Str = err.Error()
		return resp
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			resp.Status = 500
			resp.Kind = http1.BodyString
			resp.Str = err.Error()
			return resp
		}
	}

	resp.Status = 200
	resp.Kind = http1.BodyBytes
	resp.Bytes = buf.Bytes()
	resp.Header.Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	return resp
}
