package cmd

import (
	"github.com/1xyz/coolbeans-client/beanstalkd"
	log "github.com/sirupsen/logrus"
)

const exporterUsage = `usage: bsc exporter [--metrics-addr=<addr>] [--interval=<secs>] [--tubes=<tubes>]

Poll the server's stats and stats-tube and serve them as prometheus metrics.

options:
  -h, --help
  --metrics-addr=<addr>  Serve /metrics on this address [default: :9127].
  --interval=<secs>      Seconds between two polls [default: 15].
  --tubes=<tubes>        Comma separated tubes to report, all tubes when not set.
`

// runExporter is replaced in tests
var runExporter = beanstalkd.RunExporter

// CmdExporter runs the stats exporter against the configured server
// until it is interrupted.
func CmdExporter(argv []string, cfg *ClientConfig, env *Env, version string) int {
	opts, code, ok := parseArgs(exporterUsage, argv, version, env)
	if !ok {
		return code
	}

	var eCfg beanstalkd.ExporterConfig
	if err := opts.Bind(&eCfg); err != nil {
		log.Errorf("CmdExporter: error in opts.bind. err=%v", err)
		return ExitUsage
	}
	eCfg.Addr = cfg.Addr
	eCfg.ConnConfig = cfg.ConnConfig()

	if err := runExporter(&eCfg); err != nil {
		log.Errorf("CmdExporter: RunExporter err=%v", err)
		writeError(env.Stderr, err, cfg.JSON)
		return ExitError
	}
	return ExitOK
}
