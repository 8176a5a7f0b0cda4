package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency     = metric.NewHistogram("1m1s")
	RecvFramesPerSecond = metric.NewCounter("10s1s")
	SentFramesPerSecond = metric.NewCounter("10s1s")
	SentBytesPerSecond  = metric.NewCounter("10s1s")
	NoRouteReplies      = metric.NewCounter("10s1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("mylar:RecvFrames/s", RecvFramesPerSecond)
	expvar.Publish("mylar:SentFrames/s", SentFramesPerSecond)
	expvar.Publish("mylar:SentBytes/s", SentBytesPerSecond)
	expvar.Publish("mylar:NoRouteReplies", NoRouteReplies)
	expvar.Publish("mylar:DispatchLatency (µs)", DispatchLatency)
}
