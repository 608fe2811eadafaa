package tools

import (
	"strconv"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func OptsBool(opts docopt.Opts, key string) bool {
	v, err := opts.Bool(key)
	if err != nil {
		log.Fatalf("OptsBool: %v parse err = %v", key, err)
	}
	return v
}

func OptsStr(opts docopt.Opts, key string) string {
	v, err := opts.String(key)
	if err != nil {
		log.Fatalf("OptsStr: %v parse err = %v", key, err)
	}
	return v
}

// OptsOptStr returns the value of an option that has no default, and
// false when it was not given
func OptsOptStr(opts docopt.Opts, key string) (string, bool) {
	v, ok := opts[key].(string)
	return v, ok
}

// OptsFlag returns the value of a boolean flag, false when absent
func OptsFlag(opts docopt.Opts, key string) bool {
	v, _ := opts[key].(bool)
	return v
}

// OptsUint parses the value of key as an unsigned integer of bitSize bits
func OptsUint(opts docopt.Opts, key string, bitSize int) (uint64, error) {
	s, ok := OptsOptStr(opts, key)
	if !ok {
		return 0, errors.Errorf("%s is missing", key)
	}
	v, err := strconv.ParseUint(s, 10, bitSize)
	if err != nil {
		return 0, errors.Errorf("%s: %q is not an unsigned %d bit integer", key, s, bitSize)
	}
	return v, nil
}

// OptsSeconds parses the value of key as a whole number of seconds
func OptsSeconds(opts docopt.Opts, key string) (time.Duration, error) {
	v, err := OptsUint(opts, key, 32)
	if err != nil {
		return 0, err
	}
	return time.Duration(v) * time.Second, nil
}
