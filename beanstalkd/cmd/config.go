package cmd

import (
	"fmt"
	"io/ioutil"
	"time"

	"github.com/1xyz/coolbeans-client/beanstalkd/core"
	"github.com/1xyz/coolbeans-client/beanstalkd/proto"
	"github.com/1xyz/coolbeans-client/tools"
	"github.com/davecgh/go-spew/spew"
	"github.com/docopt/docopt-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// EnvAddr names the environment variable holding the server address
const EnvAddr = "BEANSTALKD"

// ClientConfig is the effective configuration of a bsc invocation.
//
// Values are resolved in order of precedence: command line flag, the
// BEANSTALKD environment variable (address only), the YAML config file,
// then the defaults.
type ClientConfig struct {
	// server address, host:port
	Addr string `yaml:"addr"`

	// tube to use before running the command, none when empty
	Tube string `yaml:"tube"`

	// Go duration string in the file, ex: "5s"
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	MaxJobSize         int  `yaml:"max_job_size"`
	DiscoverMaxJobSize bool `yaml:"discover_max_job_size"`

	// print results as JSON
	JSON bool `yaml:"-"`
}

func (c ClientConfig) String() string {
	return fmt.Sprintf("Addr=%v Tube=%v ConnectTimeout=%v MaxJobSize=%v DiscoverMaxJobSize=%v JSON=%v",
		c.Addr, c.Tube, c.ConnectTimeout, c.MaxJobSize, c.DiscoverMaxJobSize, c.JSON)
}

func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Addr:           proto.DefaultAddr,
		ConnectTimeout: proto.DefaultConnectTimeout,
	}
}

// ConnConfig returns the connection settings of this configuration
func (c *ClientConfig) ConnConfig() *proto.Config {
	return &proto.Config{
		ConnectTimeout:     c.ConnectTimeout,
		MaxJobSize:         c.MaxJobSize,
		DiscoverMaxJobSize: c.DiscoverMaxJobSize,
	}
}

// LoadConfigFile overlays the keys set in the YAML file at path onto cfg.
// Unknown keys are an error.
func LoadConfigFile(cfg *ClientConfig, path string) error {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config")
	}

	if err := yaml.UnmarshalStrict(b, cfg); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}

	return nil
}

// ResolveConfig builds the effective configuration from the global
// options, the environment (looked up with getenv) and the config file
// named by --config.
func ResolveConfig(opts docopt.Opts, getenv func(string) string) (*ClientConfig, error) {
	ctxLog := log.WithFields(log.Fields{"method": "ResolveConfig"})
	cfg := DefaultClientConfig()

	if path, ok := tools.OptsOptStr(opts, "--config"); ok {
		if err := LoadConfigFile(cfg, path); err != nil {
			return nil, err
		}
		ctxLog.Debugf("loaded config file %s", path)
	}

	if addr := getenv(EnvAddr); addr != "" {
		cfg.Addr = addr
	}

	if addr, ok := tools.OptsOptStr(opts, "--addr"); ok {
		cfg.Addr = addr
	}

	if tube, ok := tools.OptsOptStr(opts, "--use"); ok {
		cfg.Tube = tube
	}

	cfg.JSON = tools.OptsFlag(opts, "--json")

	if cfg.Addr == "" {
		return nil, errors.New("server address is empty")
	}

	if cfg.Tube != "" {
		if err := core.ValidateTubeName(cfg.Tube); err != nil {
			return nil, errors.Wrapf(err, "tube %q", cfg.Tube)
		}
	}

	if cfg.ConnectTimeout < 0 || cfg.MaxJobSize < 0 {
		return nil, errors.Errorf("negative value in config: %v", cfg)
	}

	ctxLog.Debugf("effective config %s", spew.Sdump(cfg))
	return cfg, nil
}
