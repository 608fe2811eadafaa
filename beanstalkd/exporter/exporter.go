package exporter

import (
	"strings"
	"time"

	"github.com/1xyz/coolbeans-client/beanstalkd/core"
	"github.com/1xyz/coolbeans-client/beanstalkd/proto"
	"github.com/armon/go-metrics"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type Config struct {
	// beanstalkd server address, host:port
	Addr string

	// tubes to report, every tube from list-tubes when empty
	Tubes []string

	// time between two polls
	Interval time.Duration

	ConnConfig *proto.Config
}

// DialFunc opens a connection to the server being exported
type DialFunc func() (*proto.Conn, error)

// Exporter polls a beanstalkd server's stats and stats-tube and
// publishes them as gauges on a go-metrics sink.
type Exporter struct {
	cfg  *Config
	m    *metrics.Metrics
	dial DialFunc

	// connection reused across polls, replaced when it closes
	conn *proto.Conn
}

func New(cfg *Config, m *metrics.Metrics) *Exporter {
	return NewWithDialer(cfg, m, func() (*proto.Conn, error) {
		return proto.Dial(cfg.Addr, cfg.ConnConfig)
	})
}

func NewWithDialer(cfg *Config, m *metrics.Metrics, dial DialFunc) *Exporter {
	return &Exporter{cfg: cfg, m: m, dial: dial}
}

// Run polls every cfg.Interval until ctx is done. A failed poll is logged
// and retried at the next tick.
func (e *Exporter) Run(ctx context.Context) error {
	ctxLog := log.WithFields(log.Fields{"method": "Exporter.Run", "addr": e.cfg.Addr})
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()
	defer e.Close()

	for {
		if err := e.Poll(); err != nil {
			ctxLog.Errorf("poll err=%v", err)
		}

		select {
		case <-ctx.Done():
			ctxLog.Infof("stopped: %v", ctx.Err())
			return nil
		case <-ticker.C:
		}
	}
}

// Poll reads stats (and stats-tube for each tube) once and updates the
// gauges. Dials a new connection if there is none or the last one closed.
func (e *Exporter) Poll() error {
	if e.conn == nil || e.conn.State() == proto.Closed {
		c, err := e.dial()
		if err != nil {
			e.m.IncrCounter([]string{"exporter", "dial_errors"}, 1)
			return err
		}
		e.conn = c
	}

	s, err := e.conn.Stats()
	if err != nil {
		e.m.IncrCounter([]string{"exporter", "poll_errors"}, 1)
		return err
	}
	ss, err := s.Server()
	if err != nil {
		return err
	}
	e.setServerGauges(ss)

	tubes := e.cfg.Tubes
	if len(tubes) == 0 {
		if tubes, err = e.conn.ListTubes(); err != nil {
			e.m.IncrCounter([]string{"exporter", "poll_errors"}, 1)
			return err
		}
	}

	for _, tube := range tubes {
		ts, err := e.conn.StatsTube(tube)
		if err != nil {
			// a tube can vanish between list-tubes and stats-tube
			if errors.Is(err, core.ErrNotFound) {
				log.WithField("method", "Exporter.Poll").Debugf("stats-tube %s err=%v", tube, err)
				continue
			}
			e.m.IncrCounter([]string{"exporter", "poll_errors"}, 1)
			return err
		}

		t, err := ts.Tube()
		if err != nil {
			return err
		}
		e.setTubeGauges(t)
	}

	return nil
}

func (e *Exporter) Close() {
	if e.conn != nil {
		e.conn.Quit()
		e.conn = nil
	}
}

func (e *Exporter) setServerGauges(s *core.ServerStats) {
	gauges := map[string]uint64{
		"current-jobs-urgent":   s.CurrentJobsUrgent,
		"current-jobs-ready":    s.CurrentJobsReady,
		"current-jobs-reserved": s.CurrentJobsReserved,
		"current-jobs-delayed":  s.CurrentJobsDelayed,
		"current-jobs-buried":   s.CurrentJobsBuried,
		"current-tubes":         s.CurrentTubes,
		"current-connections":   s.CurrentConnections,
		"current-producers":     s.CurrentProducers,
		"current-workers":       s.CurrentWorkers,
		"current-waiting":       s.CurrentWaiting,
		"total-jobs":            s.TotalJobs,
		"total-connections":     s.TotalConnections,
		"job-timeouts":          s.JobTimeouts,
		"max-job-size":          s.MaxJobSize,
		"uptime":                uint64(s.Uptime.Duration() / time.Second),
	}

	for name, v := range gauges {
		e.m.SetGauge([]string{"server", metricName(name)}, float32(v))
	}
}

func (e *Exporter) setTubeGauges(t *core.TubeStats) {
	gauges := map[string]uint64{
		"current-jobs-urgent":   t.CurrentJobsUrgent,
		"current-jobs-ready":    t.CurrentJobsReady,
		"current-jobs-reserved": t.CurrentJobsReserved,
		"current-jobs-delayed":  t.CurrentJobsDelayed,
		"current-jobs-buried":   t.CurrentJobsBuried,
		"current-using":         t.CurrentUsing,
		"current-waiting":       t.CurrentWaiting,
		"current-watching":      t.CurrentWatching,
		"total-jobs":            t.TotalJobs,
		"pause-time-left":       uint64(t.PauseTimeLeft.Duration() / time.Second),
	}

	labels := []metrics.Label{{Name: "tube", Value: t.Name}}
	for name, v := range gauges {
		e.m.SetGaugeWithLabels([]string{"tube", metricName(name)}, float32(v), labels)
	}
}

// metricName maps a stats key to a prometheus friendly name
func metricName(key string) string {
	return strings.Replace(key, "-", "_", -1)
}
