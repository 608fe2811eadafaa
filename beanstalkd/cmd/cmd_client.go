package cmd

import (
	"io/ioutil"
	"os"
	"time"

	"github.com/1xyz/coolbeans-client/beanstalkd/core"
	"github.com/1xyz/coolbeans-client/beanstalkd/proto"
	"github.com/1xyz/coolbeans-client/tools"
	"github.com/docopt/docopt-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const clientUsage = `usage:
  bsc put [--pri=<pri>] [--delay=<secs>] [--ttr=<secs>] [--file=<file>] [<data>]
  bsc use <tube>
  bsc reserve [--timeout=<secs>] [--utf8]
  bsc reserve-with-timeout <secs> [--utf8]
  bsc reserve-job <id> [--utf8]
  bsc delete <id>
  bsc release <id> [--pri=<pri>] [--delay=<secs>]
  bsc bury <id> [--pri=<pri>]
  bsc touch <id>
  bsc watch <tube>
  bsc ignore <tube>
  bsc peek <id> [--utf8]
  bsc (peek-ready|peek-delayed|peek-buried) [--utf8]
  bsc kick <bound>
  bsc kick-job <id>
  bsc stats
  bsc stats-job <id>
  bsc stats-tube <tube>
  bsc (list-tubes|list-tube-used|list-tubes-watched)
  bsc pause-tube <tube> <secs>
  bsc exporter [options]

options:
  -h, --help
  --pri=<pri>        Job priority, 0 is the most urgent [default: 1024].
  --delay=<secs>     Seconds to wait before the job is ready [default: 0].
  --ttr=<secs>       Seconds a worker may hold the job [default: 60].
  --file=<file>      Read the job body from a file, - for stdin.
  --timeout=<secs>   Give up reserving after this many seconds.
  --utf8             Show job bodies as UTF-8 text.

A put with neither <data> nor --file reads the job body from stdin.
See 'bsc exporter --help' for the exporter options.
`

// dial opens the connection used by client commands
var dial = func(cfg *ClientConfig) (*proto.Conn, error) {
	return proto.Dial(cfg.Addr, cfg.ConnConfig())
}

// clientOp runs one command on an open connection
type clientOp func(c *proto.Conn) (*output, error)

// CmdClient runs a single protocol command against the configured server
// and prints its result. Arguments are checked before connecting.
func CmdClient(argv []string, cfg *ClientConfig, env *Env, version string) int {
	ctxLog := log.WithFields(log.Fields{"method": "CmdClient", "cmd": argv[0]})
	opts, code, ok := parseArgs(clientUsage, argv, version, env)
	if !ok {
		return code
	}

	op, err := newClientOp(argv[0], opts, env)
	if err != nil {
		writeError(env.Stderr, err, cfg.JSON)
		if core.KindOf(err) == core.KindUnknown {
			return ExitUsage
		}
		return exitCode(err)
	}

	conn, err := dial(cfg)
	if err != nil {
		writeError(env.Stderr, err, cfg.JSON)
		return exitCode(err)
	}
	defer func() {
		if err := conn.Quit(); err != nil {
			ctxLog.Debugf("conn.Quit err=%v", err)
		}
	}()

	if cfg.Tube != "" && argv[0] != core.Use.Verb() {
		if _, err := conn.Use(cfg.Tube); err != nil {
			writeError(env.Stderr, err, cfg.JSON)
			return exitCode(err)
		}
	}

	out, err := op(conn)
	if err != nil {
		ctxLog.Debugf("err=%v", err)
		writeError(env.Stderr, err, cfg.JSON)
		return exitCode(err)
	}

	if err := out.write(env.Stdout, cfg.JSON); err != nil {
		ctxLog.Errorf("write output err=%v", err)
		return ExitError
	}

	return ExitOK
}

// newClientOp parses the arguments of command name into a clientOp.
// Argument errors are returned as plain errors (usage).
func newClientOp(name string, opts docopt.Opts, env *Env) (clientOp, error) {
	asText := tools.OptsFlag(opts, "--utf8")

	switch name {
	case "put":
		pri, err := tools.OptsUint(opts, "--pri", 32)
		if err != nil {
			return nil, err
		}
		delay, err := tools.OptsSeconds(opts, "--delay")
		if err != nil {
			return nil, err
		}
		ttr, err := tools.OptsSeconds(opts, "--ttr")
		if err != nil {
			return nil, err
		}
		body, err := readBody(opts, env)
		if err != nil {
			return nil, err
		}
		return func(c *proto.Conn) (*output, error) {
			r, err := c.Put(body, uint32(pri), delay, ttr)
			if err != nil {
				return nil, err
			}
			return putOutput(r), nil
		}, nil

	case "use":
		tube := tools.OptsStr(opts, "<tube>")
		if err := validTube(name, tube); err != nil {
			return nil, err
		}
		return func(c *proto.Conn) (*output, error) {
			t, err := c.Use(tube)
			if err != nil {
				return nil, err
			}
			return tubeOutput(t), nil
		}, nil

	case "reserve", "reserve-with-timeout":
		key := "--timeout"
		if name == "reserve-with-timeout" {
			key = "<secs>"
		}
		var timeout *time.Duration
		if _, ok := tools.OptsOptStr(opts, key); ok {
			d, err := tools.OptsSeconds(opts, key)
			if err != nil {
				return nil, err
			}
			timeout = &d
		}
		return func(c *proto.Conn) (*output, error) {
			var r *core.Reservation
			var err error
			if timeout != nil {
				r, err = c.ReserveWithTimeout(*timeout)
			} else {
				r, err = c.Reserve()
			}
			if err != nil {
				return nil, err
			}
			return foundOutput(name, r.Status, r.Job, asText, nil)
		}, nil

	case "reserve-job", "peek":
		id, err := jobID(opts)
		if err != nil {
			return nil, err
		}
		return func(c *proto.Conn) (*output, error) {
			if name == "peek" {
				j, err := c.Peek(id)
				return foundOutput(name, core.StatusFound, j, asText, err)
			}
			j, err := c.ReserveJob(id)
			return foundOutput(name, core.StatusReserved, j, asText, err)
		}, nil

	case "peek-ready", "peek-delayed", "peek-buried":
		return func(c *proto.Conn) (*output, error) {
			var j *core.Job
			var err error
			switch name {
			case "peek-ready":
				j, err = c.PeekReady()
			case "peek-delayed":
				j, err = c.PeekDelayed()
			default:
				j, err = c.PeekBuried()
			}
			return foundOutput(name, core.StatusFound, j, asText, err)
		}, nil

	case "delete", "touch", "kick-job", "stats-job":
		id, err := jobID(opts)
		if err != nil {
			return nil, err
		}
		return func(c *proto.Conn) (*output, error) {
			switch name {
			case "delete":
				return statusOrErr(core.StatusDeleted, c.Delete(id))
			case "touch":
				return statusOrErr(core.StatusTouched, c.Touch(id))
			case "kick-job":
				return statusOrErr(core.StatusKicked, c.KickJob(id))
			default:
				s, err := c.StatsJob(id)
				if err != nil {
					return nil, err
				}
				return statsOutput(s), nil
			}
		}, nil

	case "release":
		id, err := jobID(opts)
		if err != nil {
			return nil, err
		}
		pri, err := tools.OptsUint(opts, "--pri", 32)
		if err != nil {
			return nil, err
		}
		delay, err := tools.OptsSeconds(opts, "--delay")
		if err != nil {
			return nil, err
		}
		return func(c *proto.Conn) (*output, error) {
			s, err := c.Release(id, uint32(pri), delay)
			if err != nil {
				return nil, err
			}
			return statusOutput(s), nil
		}, nil

	case "bury":
		id, err := jobID(opts)
		if err != nil {
			return nil, err
		}
		pri, err := tools.OptsUint(opts, "--pri", 32)
		if err != nil {
			return nil, err
		}
		return func(c *proto.Conn) (*output, error) {
			return statusOrErr(core.StatusBuried, c.Bury(id, uint32(pri)))
		}, nil

	case "watch", "ignore":
		tube := tools.OptsStr(opts, "<tube>")
		if err := validTube(name, tube); err != nil {
			return nil, err
		}
		return func(c *proto.Conn) (*output, error) {
			var n uint64
			var err error
			if name == "watch" {
				n, err = c.Watch(tube)
			} else {
				n, err = c.Ignore(tube)
			}
			if err != nil {
				return nil, err
			}
			return countOutput(core.StatusWatching, n), nil
		}, nil

	case "kick":
		bound, err := tools.OptsUint(opts, "<bound>", 64)
		if err != nil {
			return nil, err
		}
		return func(c *proto.Conn) (*output, error) {
			n, err := c.Kick(bound)
			if err != nil {
				return nil, err
			}
			return countOutput(core.StatusKicked, n), nil
		}, nil

	case "stats", "stats-tube":
		tube, _ := tools.OptsOptStr(opts, "<tube>")
		if name == "stats-tube" {
			if err := validTube(name, tube); err != nil {
				return nil, err
			}
		}
		return func(c *proto.Conn) (*output, error) {
			var s core.StatsMap
			var err error
			if name == "stats" {
				s, err = c.Stats()
			} else {
				s, err = c.StatsTube(tube)
			}
			if err != nil {
				return nil, err
			}
			return statsOutput(s), nil
		}, nil

	case "list-tubes", "list-tubes-watched":
		return func(c *proto.Conn) (*output, error) {
			var l []string
			var err error
			if name == "list-tubes" {
				l, err = c.ListTubes()
			} else {
				l, err = c.ListTubesWatched()
			}
			if err != nil {
				return nil, err
			}
			return listOutput(l), nil
		}, nil

	case "list-tube-used":
		return func(c *proto.Conn) (*output, error) {
			t, err := c.ListTubeUsed()
			if err != nil {
				return nil, err
			}
			return tubeOutput(t), nil
		}, nil

	case "pause-tube":
		tube := tools.OptsStr(opts, "<tube>")
		if err := validTube(name, tube); err != nil {
			return nil, err
		}
		delay, err := tools.OptsSeconds(opts, "<secs>")
		if err != nil {
			return nil, err
		}
		return func(c *proto.Conn) (*output, error) {
			return statusOrErr(core.StatusPaused, c.PauseTube(tube, delay))
		}, nil

	default:
		return nil, errors.Errorf("%s is not a supported command", name)
	}
}

func jobID(opts docopt.Opts) (core.JobID, error) {
	id, err := tools.OptsUint(opts, "<id>", 64)
	return core.JobID(id), err
}

func statusOrErr(s core.Status, err error) (*output, error) {
	if err != nil {
		return nil, err
	}
	return statusOutput(s), nil
}

func foundOutput(name string, s core.Status, j *core.Job, asText bool, err error) (*output, error) {
	if err != nil {
		return nil, err
	}
	o, err := jobOutput(s, j, asText)
	if err != nil {
		return nil, core.NewError(name, core.KindValidation, err)
	}
	return o, nil
}

// validTube checks a tube argument before connecting
func validTube(name, tube string) error {
	if err := core.ValidateTubeName(tube); err != nil {
		return core.NewError(name, core.KindValidation, err)
	}
	return nil
}

// readBody returns the put body from <data>, --file or stdin
func readBody(opts docopt.Opts, env *Env) ([]byte, error) {
	if data, ok := tools.OptsOptStr(opts, "<data>"); ok {
		return []byte(data), nil
	}

	file, ok := tools.OptsOptStr(opts, "--file")
	if !ok || file == "-" {
		b, err := ioutil.ReadAll(env.Stdin)
		return b, errors.Wrap(err, "read stdin")
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrap(err, "open job body")
	}
	defer f.Close()

	b, err := ioutil.ReadAll(f)
	return b, errors.Wrapf(err, "read %s", file)
}
