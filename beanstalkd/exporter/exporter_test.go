package exporter

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/1xyz/coolbeans-client/beanstalkd/proto"
	"github.com/armon/go-metrics"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/net/context"
)

type stubStream struct {
	r io.Reader
	w bytes.Buffer
}

func (s *stubStream) Read(b []byte) (int, error)  { return s.r.Read(b) }
func (s *stubStream) Write(b []byte) (int, error) { return s.w.Write(b) }
func (s *stubStream) Close() error                { return nil }

func okFrame(body string) string {
	return fmt.Sprintf("OK %d\r\n%s\r\n", len(body), body)
}

// gaugeSink keeps the last value of every gauge, keyed by name and labels
type gaugeSink struct {
	mu       sync.Mutex
	gauges   map[string]float32
	counters map[string]float32
}

func newGaugeSink() *gaugeSink {
	return &gaugeSink{gauges: make(map[string]float32), counters: make(map[string]float32)}
}

func flatten(key []string, labels []metrics.Label) string {
	k := strings.Join(key, ".")
	for _, l := range labels {
		k += ";" + l.Name + "=" + l.Value
	}
	return k
}

func (g *gaugeSink) SetGauge(key []string, val float32) {
	g.SetGaugeWithLabels(key, val, nil)
}

func (g *gaugeSink) SetGaugeWithLabels(key []string, val float32, labels []metrics.Label) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gauges[flatten(key, labels)] = val
}

func (g *gaugeSink) IncrCounter(key []string, val float32) {
	g.IncrCounterWithLabels(key, val, nil)
}

func (g *gaugeSink) IncrCounterWithLabels(key []string, val float32, labels []metrics.Label) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters[flatten(key, labels)] += val
}

func (g *gaugeSink) EmitKey(key []string, val float32)                                     {}
func (g *gaugeSink) AddSample(key []string, val float32)                                   {}
func (g *gaugeSink) AddSampleWithLabels(key []string, val float32, labels []metrics.Label) {}

func (g *gaugeSink) gauge(key string) float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gauges[key]
}

func (g *gaugeSink) counter(key string) float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counters[key]
}

func newMetrics(sink metrics.MetricSink) *metrics.Metrics {
	cfg := metrics.DefaultConfig("bsc")
	cfg.EnableHostname = false
	cfg.EnableRuntimeMetrics = false
	m, _ := metrics.New(cfg, sink)
	return m
}

const serverStats = "---\ncurrent-jobs-ready: 3\ncurrent-jobs-buried: 1\nuptime: 120\nmax-job-size: 65535\n"

func tubeStats(name string, ready int) string {
	return fmt.Sprintf("---\nname: %s\ncurrent-jobs-ready: %d\ncurrent-watching: 1\n", name, ready)
}

// stubDialer hands out connections replaying the given server bytes, one per dial
type stubDialer struct {
	replies []string
	dials   int
}

func (d *stubDialer) dial() (*proto.Conn, error) {
	if d.dials >= len(d.replies) {
		return nil, errors.New("connection refused")
	}
	r := d.replies[d.dials]
	d.dials++
	return proto.NewConn(&stubStream{r: strings.NewReader(r)}, nil), nil
}

func TestExporter_Poll(t *testing.T) {
	Convey("given an exporter", t, func() {
		sink := newGaugeSink()
		m := newMetrics(sink)

		Convey("with no configured tubes", func() {
			d := &stubDialer{replies: []string{
				okFrame(serverStats) +
					okFrame("---\n- default\n- emails\n") +
					okFrame(tubeStats("default", 2)) +
					okFrame(tubeStats("emails", 5)),
			}}
			e := NewWithDialer(&Config{Interval: time.Second}, m, d.dial)

			Convey("a poll reports the server and every listed tube", func() {
				So(e.Poll(), ShouldBeNil)
				So(sink.gauge("bsc.server.current_jobs_ready"), ShouldEqual, float32(3))
				So(sink.gauge("bsc.server.current_jobs_buried"), ShouldEqual, float32(1))
				So(sink.gauge("bsc.server.uptime"), ShouldEqual, float32(120))
				So(sink.gauge("bsc.server.max_job_size"), ShouldEqual, float32(65535))
				So(sink.gauge("bsc.tube.current_jobs_ready;tube=default"), ShouldEqual, float32(2))
				So(sink.gauge("bsc.tube.current_jobs_ready;tube=emails"), ShouldEqual, float32(5))
				So(sink.gauge("bsc.tube.current_watching;tube=emails"), ShouldEqual, float32(1))
				So(d.dials, ShouldEqual, 1)
			})
		})

		Convey("with a configured tube that does not exist", func() {
			d := &stubDialer{replies: []string{
				okFrame(serverStats) + "NOT_FOUND\r\n" + okFrame(tubeStats("emails", 4)),
			}}
			e := NewWithDialer(&Config{Tubes: []string{"gone", "emails"}, Interval: time.Second}, m, d.dial)

			Convey("the missing tube is skipped", func() {
				So(e.Poll(), ShouldBeNil)
				So(sink.gauge("bsc.tube.current_jobs_ready;tube=emails"), ShouldEqual, float32(4))
			})
		})

		Convey("with a server failing stats-tube", func() {
			d := &stubDialer{replies: []string{
				okFrame(serverStats) + "INTERNAL_ERROR\r\n" + okFrame(tubeStats("emails", 4)),
			}}
			e := NewWithDialer(&Config{Tubes: []string{"default", "emails"}, Interval: time.Second}, m, d.dial)

			Convey("the poll fails and counts a poll error", func() {
				So(e.Poll(), ShouldNotBeNil)
				So(sink.counter("bsc.exporter.poll_errors"), ShouldEqual, float32(1))
				So(sink.gauge("bsc.tube.current_jobs_ready;tube=emails"), ShouldEqual, float32(0))
			})
		})

		Convey("with a tube named null", func() {
			d := &stubDialer{replies: []string{
				okFrame(serverStats) + okFrame("---\n- null\n") + okFrame(tubeStats("null", 6)),
			}}
			e := NewWithDialer(&Config{Interval: time.Second}, m, d.dial)

			Convey("the tube is labelled by its name", func() {
				So(e.Poll(), ShouldBeNil)
				So(sink.gauge("bsc.tube.current_jobs_ready;tube=null"), ShouldEqual, float32(6))
			})
		})

		Convey("with a server that cannot be reached", func() {
			d := &stubDialer{}
			e := NewWithDialer(&Config{Interval: time.Second}, m, d.dial)

			Convey("a poll fails and counts a dial error", func() {
				So(e.Poll(), ShouldNotBeNil)
				So(sink.counter("bsc.exporter.dial_errors"), ShouldEqual, float32(1))
			})
		})

		Convey("with a connection that drops", func() {
			d := &stubDialer{replies: []string{
				"",
				okFrame(serverStats) + okFrame(tubeStats("emails", 7)),
			}}
			e := NewWithDialer(&Config{Tubes: []string{"emails"}, Interval: time.Second}, m, d.dial)

			Convey("the next poll dials a new connection", func() {
				So(e.Poll(), ShouldNotBeNil)
				So(sink.counter("bsc.exporter.poll_errors"), ShouldEqual, float32(1))

				So(e.Poll(), ShouldBeNil)
				So(d.dials, ShouldEqual, 2)
				So(sink.gauge("bsc.tube.current_jobs_ready;tube=emails"), ShouldEqual, float32(7))
			})
		})
	})
}

func TestExporter_Run(t *testing.T) {
	Convey("given an exporter with a cancelled context", t, func() {
		sink := newGaugeSink()
		d := &stubDialer{replies: []string{okFrame(serverStats) + okFrame(tubeStats("default", 1))}}
		e := NewWithDialer(&Config{Tubes: []string{"default"}, Interval: time.Hour}, newMetrics(sink), d.dial)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("run polls once and returns", func() {
			So(e.Run(ctx), ShouldBeNil)
			So(sink.gauge("bsc.server.current_jobs_ready"), ShouldEqual, float32(3))
			So(e.conn, ShouldBeNil)
		})
	})
}

func TestMetricName(t *testing.T) {
	Convey("stats keys are mapped to metric names", t, func() {
		So(metricName("current-jobs-ready"), ShouldEqual, "current_jobs_ready")
		So(metricName("uptime"), ShouldEqual, "uptime")
	})
}
