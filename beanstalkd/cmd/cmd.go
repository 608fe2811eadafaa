package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/1xyz/coolbeans-client/beanstalkd/core"
	"github.com/docopt/docopt-go"
	log "github.com/sirupsen/logrus"
)

// Env is the process I/O a command reads from and writes to
type Env struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func StdEnv() *Env {
	return &Env{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// RunCommand runs the sub-command c and returns the process exit code
func RunCommand(c string, args []string, cfg *ClientConfig, env *Env, version string) int {
	argv := append([]string{c}, args...)
	log.WithField("method", "RunCommand").Debugf("argv=%v", argv)
	switch c {
	case "exporter":
		return CmdExporter(argv, cfg, env, version)
	case "help":
		fmt.Fprint(env.Stdout, clientUsage)
		return ExitOK
	default:
		if _, ok := core.ParseCmdType(c); !ok {
			fmt.Fprintf(env.Stderr, "%s is not a supported command. See 'bsc help'\n", c)
			return ExitUsage
		}
		return CmdClient(argv, cfg, env, version)
	}
}

// parseArgs parses argv against a docopt usage. Returns ok=false with the
// exit code to use when parsing failed or only help/version was printed.
func parseArgs(usage string, argv []string, version string, env *Env) (docopt.Opts, int, bool) {
	printed := false
	parser := &docopt.Parser{
		HelpHandler: func(err error, usage string) {
			if err != nil {
				fmt.Fprintln(env.Stderr, usage)
				return
			}
			fmt.Fprintln(env.Stdout, usage)
			printed = true
		},
	}

	opts, err := parser.ParseArgs(usage, argv, version)
	if err != nil {
		log.WithField("method", "parseArgs").Debugf("docopt err=%v", err)
		return nil, ExitUsage, false
	}

	if printed || opts == nil {
		return nil, ExitOK, false
	}

	return opts, ExitOK, true
}
