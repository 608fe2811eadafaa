package main

import (
	"fmt"
	"os"

	"github.com/1xyz/coolbeans-client/beanstalkd/cmd"
	"github.com/1xyz/coolbeans-client/tools"
	"github.com/docopt/docopt-go"
	log "github.com/sirupsen/logrus"
)

const version = "0.1.alpha"

func init() {
	log.SetFormatter(&log.TextFormatter{})
	// stdout carries command results
	log.SetOutput(os.Stderr)
	log.SetLevel(log.InfoLevel)
}

func main() {
	usage := `usage: bsc [--version] [(--verbose|--quiet)] [--addr=<addr>] [--use=<tube>]
           [--config=<file>] [--json] [--help] <command> [<args>...]
options:
   -h, --help
   --verbose         Change the logging level verbosity
   --addr=<addr>     beanstalkd address host:port, overrides $BEANSTALKD.
   --use=<tube>      Use this tube before running the command.
   --config=<file>   YAML file with the client configuration.
   --json            Print results as JSON.
The commands are:
   put, use, reserve, reserve-with-timeout, reserve-job, delete, release,
   bury, touch, watch, ignore, peek, peek-ready, peek-delayed, peek-buried,
   kick, kick-job, stats, stats-job, stats-tube, list-tubes, list-tube-used,
   list-tubes-watched, pause-tube
   exporter       Serve the server's stats as prometheus metrics
   help           Show the usage of every command
See 'bsc <command> --help' for more information on a specific command.
`
	parser := &docopt.Parser{OptionsFirst: true}
	args, err := parser.ParseArgs(usage, nil, version)
	if err != nil {
		log.Errorf("error = %v", err)
		os.Exit(cmd.ExitUsage)
	}

	c := args["<command>"].(string)
	cmdArgs := args["<args>"].([]string)

	verbose := tools.OptsBool(args, "--verbose")
	quiet := tools.OptsBool(args, "--quiet")
	if verbose == true {
		log.SetLevel(log.DebugLevel)
	} else if quiet == true {
		log.SetLevel(log.WarnLevel)
	}

	log.Debugf("global arguments: %v", args)
	log.Debugf("command arguments: %v %v", c, cmdArgs)

	cfg, err := cmd.ResolveConfig(args, os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(cmd.ExitUsage)
	}

	code := cmd.RunCommand(c, cmdArgs, cfg, cmd.StdEnv(), version)
	log.Debugf("done")
	os.Exit(code)
}
