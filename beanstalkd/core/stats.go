package core

import (
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Seconds is a duration reported by the server as a whole number of seconds
type Seconds time.Duration

func (s *Seconds) UnmarshalYAML(n *yaml.Node) error {
	var v int64
	if err := n.Decode(&v); err != nil {
		return err
	}
	*s = Seconds(time.Duration(v) * time.Second)
	return nil
}

func (s Seconds) Duration() time.Duration {
	return time.Duration(s)
}

func (s Seconds) String() string {
	return time.Duration(s).String()
}

// ServerStats is the typed view of the stats mapping
type ServerStats struct {
	CurrentJobsUrgent     uint64  `yaml:"current-jobs-urgent" json:"current-jobs-urgent"`
	CurrentJobsReady      uint64  `yaml:"current-jobs-ready" json:"current-jobs-ready"`
	CurrentJobsReserved   uint64  `yaml:"current-jobs-reserved" json:"current-jobs-reserved"`
	CurrentJobsDelayed    uint64  `yaml:"current-jobs-delayed" json:"current-jobs-delayed"`
	CurrentJobsBuried     uint64  `yaml:"current-jobs-buried" json:"current-jobs-buried"`
	CmdPut                uint64  `yaml:"cmd-put" json:"cmd-put"`
	CmdPeek               uint64  `yaml:"cmd-peek" json:"cmd-peek"`
	CmdPeekReady          uint64  `yaml:"cmd-peek-ready" json:"cmd-peek-ready"`
	CmdPeekDelayed        uint64  `yaml:"cmd-peek-delayed" json:"cmd-peek-delayed"`
	CmdPeekBuried         uint64  `yaml:"cmd-peek-buried" json:"cmd-peek-buried"`
	CmdReserve            uint64  `yaml:"cmd-reserve" json:"cmd-reserve"`
	CmdReserveWithTimeout uint64  `yaml:"cmd-reserve-with-timeout" json:"cmd-reserve-with-timeout"`
	CmdTouch              uint64  `yaml:"cmd-touch" json:"cmd-touch"`
	CmdUse                uint64  `yaml:"cmd-use" json:"cmd-use"`
	CmdWatch              uint64  `yaml:"cmd-watch" json:"cmd-watch"`
	CmdIgnore             uint64  `yaml:"cmd-ignore" json:"cmd-ignore"`
	CmdDelete             uint64  `yaml:"cmd-delete" json:"cmd-delete"`
	CmdRelease            uint64  `yaml:"cmd-release" json:"cmd-release"`
	CmdBury               uint64  `yaml:"cmd-bury" json:"cmd-bury"`
	CmdKick               uint64  `yaml:"cmd-kick" json:"cmd-kick"`
	CmdStats              uint64  `yaml:"cmd-stats" json:"cmd-stats"`
	CmdStatsJob           uint64  `yaml:"cmd-stats-job" json:"cmd-stats-job"`
	CmdStatsTube          uint64  `yaml:"cmd-stats-tube" json:"cmd-stats-tube"`
	CmdListTubes          uint64  `yaml:"cmd-list-tubes" json:"cmd-list-tubes"`
	CmdListTubeUsed       uint64  `yaml:"cmd-list-tube-used" json:"cmd-list-tube-used"`
	CmdListTubesWatched   uint64  `yaml:"cmd-list-tubes-watched" json:"cmd-list-tubes-watched"`
	CmdPauseTube          uint64  `yaml:"cmd-pause-tube" json:"cmd-pause-tube"`
	JobTimeouts           uint64  `yaml:"job-timeouts" json:"job-timeouts"`
	TotalJobs             uint64  `yaml:"total-jobs" json:"total-jobs"`
	MaxJobSize            uint64  `yaml:"max-job-size" json:"max-job-size"`
	CurrentTubes          uint64  `yaml:"current-tubes" json:"current-tubes"`
	CurrentConnections    uint64  `yaml:"current-connections" json:"current-connections"`
	CurrentProducers      uint64  `yaml:"current-producers" json:"current-producers"`
	CurrentWorkers        uint64  `yaml:"current-workers" json:"current-workers"`
	CurrentWaiting        uint64  `yaml:"current-waiting" json:"current-waiting"`
	TotalConnections      uint64  `yaml:"total-connections" json:"total-connections"`
	PID                   uint64  `yaml:"pid" json:"pid"`
	Version               string  `yaml:"version" json:"version"`
	RusageUtime           float64 `yaml:"rusage-utime" json:"rusage-utime"`
	RusageStime           float64 `yaml:"rusage-stime" json:"rusage-stime"`
	Uptime                Seconds `yaml:"uptime" json:"uptime"`
	BinlogOldestIndex     uint64  `yaml:"binlog-oldest-index" json:"binlog-oldest-index"`
	BinlogCurrentIndex    uint64  `yaml:"binlog-current-index" json:"binlog-current-index"`
	BinlogMaxSize         uint64  `yaml:"binlog-max-size" json:"binlog-max-size"`
	BinlogRecordsWritten  uint64  `yaml:"binlog-records-written" json:"binlog-records-written"`
	BinlogRecordsMigrated uint64  `yaml:"binlog-records-migrated" json:"binlog-records-migrated"`
	Draining              bool    `yaml:"draining" json:"draining"`
	ID                    string  `yaml:"id" json:"id"`
	Hostname              string  `yaml:"hostname" json:"hostname"`
	OS                    string  `yaml:"os" json:"os"`
	Platform              string  `yaml:"platform" json:"platform"`
}

// TubeStats is the typed view of the stats-tube mapping
type TubeStats struct {
	Name                string  `yaml:"name" json:"name"`
	CurrentJobsUrgent   uint64  `yaml:"current-jobs-urgent" json:"current-jobs-urgent"`
	CurrentJobsReady    uint64  `yaml:"current-jobs-ready" json:"current-jobs-ready"`
	CurrentJobsReserved uint64  `yaml:"current-jobs-reserved" json:"current-jobs-reserved"`
	CurrentJobsDelayed  uint64  `yaml:"current-jobs-delayed" json:"current-jobs-delayed"`
	CurrentJobsBuried   uint64  `yaml:"current-jobs-buried" json:"current-jobs-buried"`
	TotalJobs           uint64  `yaml:"total-jobs" json:"total-jobs"`
	CurrentUsing        uint64  `yaml:"current-using" json:"current-using"`
	CurrentWaiting      uint64  `yaml:"current-waiting" json:"current-waiting"`
	CurrentWatching     uint64  `yaml:"current-watching" json:"current-watching"`
	Pause               Seconds `yaml:"pause" json:"pause"`
	CmdDelete           uint64  `yaml:"cmd-delete" json:"cmd-delete"`
	CmdPauseTube        uint64  `yaml:"cmd-pause-tube" json:"cmd-pause-tube"`
	PauseTimeLeft       Seconds `yaml:"pause-time-left" json:"pause-time-left"`
}

// JobStats is the typed view of the stats-job mapping
type JobStats struct {
	ID       JobID   `yaml:"id" json:"id"`
	Tube     string  `yaml:"tube" json:"tube"`
	State    string  `yaml:"state" json:"state"`
	Pri      uint32  `yaml:"pri" json:"pri"`
	Age      Seconds `yaml:"age" json:"age"`
	Delay    Seconds `yaml:"delay" json:"delay"`
	TTR      Seconds `yaml:"ttr" json:"ttr"`
	TimeLeft Seconds `yaml:"time-left" json:"time-left"`
	File     uint64  `yaml:"file" json:"file"`
	Reserves uint64  `yaml:"reserves" json:"reserves"`
	Timeouts uint64  `yaml:"timeouts" json:"timeouts"`
	Releases uint64  `yaml:"releases" json:"releases"`
	Buries   uint64  `yaml:"buries" json:"buries"`
	Kicks    uint64  `yaml:"kicks" json:"kicks"`
}

func (s StatsMap) Server() (*ServerStats, error) {
	v := &ServerStats{}
	return v, s.decode(v)
}

func (s StatsMap) Tube() (*TubeStats, error) {
	v := &TubeStats{}
	return v, s.decode(v)
}

func (s StatsMap) Job() (*JobStats, error) {
	v := &JobStats{}
	return v, s.decode(v)
}

// Uint returns the value of key as an unsigned integer
func (s StatsMap) Uint(key string) (uint64, bool) {
	v, ok := s[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// decode fills the yaml tagged fields of out from the mapping. Keys
// missing from the mapping leave the field at its zero value, keys with
// no matching field are ignored.
func (s StatsMap) decode(out interface{}) error {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		v := &yaml.Node{Kind: yaml.ScalarNode, Value: s[k]}
		// the server writes names unquoted, a tube named null is not a null
		if v.ShortTag() == "!!null" {
			v.Tag = "!!str"
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, v)
	}

	if err := n.Decode(out); err != nil {
		return errors.Wrapf(ErrBadFrame, "stats: %v", err)
	}
	return nil
}
