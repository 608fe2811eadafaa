package proto

import (
	"time"

	"github.com/1xyz/coolbeans-client/beanstalkd/core"
	"github.com/armon/go-metrics"
)

// Command metrics are emitted to the global go-metrics sink, which is a
// blackhole unless the process installs one (see the exporter).
var (
	cmdCountKey   = []string{"cmd", "count"}
	cmdLatencyKey = []string{"cmd", "latency"}
	errorCountKey = []string{"error", "count"}
)

func measureCmd(op string, start time.Time, err error) {
	labels := []metrics.Label{{Name: "verb", Value: op}}
	metrics.IncrCounterWithLabels(cmdCountKey, 1, labels)
	metrics.MeasureSinceWithLabels(cmdLatencyKey, start, labels)
	if err != nil {
		metrics.IncrCounterWithLabels(errorCountKey, 1, []metrics.Label{
			{Name: "verb", Value: op},
			{Name: "kind", Value: core.KindOf(err).String()},
		})
	}
}
