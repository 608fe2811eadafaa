package beanstalkd

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/1xyz/coolbeans-client/beanstalkd/exporter"
	"github.com/1xyz/coolbeans-client/beanstalkd/proto"
	"github.com/armon/go-metrics"
	"github.com/armon/go-metrics/prometheus"
	"github.com/davecgh/go-spew/spew"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// ExporterConfig holds the options of the exporter command
type ExporterConfig struct {
	Exporter bool

	// listen address of the /metrics endpoint, metrics are discarded
	// when empty
	MetricsAddr string `docopt:"--metrics-addr"`

	// seconds between two polls
	IntervalSecs int `docopt:"--interval"`

	// comma separated tube names, every tube when empty
	Tubes string `docopt:"--tubes"`

	// filled from the global client configuration
	Addr       string
	ConnConfig *proto.Config
}

func (c ExporterConfig) String() string {
	return fmt.Sprintf("Addr=%v MetricsAddr=%v IntervalSecs=%v Tubes=%v",
		c.Addr, c.MetricsAddr, c.IntervalSecs, c.Tubes)
}

// TubeList returns the tube names of c.Tubes
func (c ExporterConfig) TubeList() []string {
	var tubes []string
	for _, t := range strings.Split(c.Tubes, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tubes = append(tubes, t)
		}
	}
	return tubes
}

// RunExporter polls the server at c.Addr and serves its stats as
// prometheus gauges until a terminate or interrupt signal is received.
func RunExporter(c *ExporterConfig) error {
	log.Debugf("RunExporter: Loaded Config: %v", c)
	if c.IntervalSecs <= 0 {
		return fmt.Errorf("interval must be positive, got %d", c.IntervalSecs)
	}

	m, err := InitializeMetrics("bsc", c.MetricsAddr)
	if err != nil {
		log.Errorf("RunExporter: InitializeMetrics: %v", err)
		return err
	}

	e := exporter.New(&exporter.Config{
		Addr:       c.Addr,
		Tubes:      c.TubeList(),
		Interval:   time.Duration(c.IntervalSecs) * time.Second,
		ConnConfig: c.ConnConfig,
	}, m)

	ctx, cancel := context.WithCancel(context.Background())
	go waitForShutdown(cancel)

	log.Infof("RunExporter: exporting %s on %s/metrics", c.Addr, c.MetricsAddr)
	return e.Run(ctx)
}

// waitForShutdown waits for a terminate or interrupt signal
// and cancels the exporter once a signal is received.
func waitForShutdown(cancel context.CancelFunc) {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-done
	log.Infof("Shutdown signal received")
	cancel()
}

// InitializeMetrics sets up the global go-metrics instance with a
// prometheus sink served on metricsAddr. With an empty metricsAddr the
// metrics go to a blackhole sink.
func InitializeMetrics(serviceName, metricsAddr string) (*metrics.Metrics, error) {
	var sink metrics.MetricSink = nil
	var err error = nil
	if metricsAddr != "" {
		sink, err = prometheus.NewPrometheusSink()
		if err != nil {
			return nil, err
		}
	} else {
		sink = &metrics.BlackholeSink{}
	}

	cfg := metrics.DefaultConfig(serviceName)
	cfg.EnableHostname = false
	m, err := metrics.NewGlobal(cfg, sink)
	if err != nil {
		return nil, err
	}
	log.Debugf("InitializeMetrics: %s", spew.Sdump(cfg))

	if metricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(metricsAddr, nil); err != nil {
				log.Fatalf("Unable to start prometheus server err = %v", err)
			}
		}()
	}
	return m, nil
}
