package core

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Command is a single request to the server. Only the fields used by
// CmdType are encoded; use the New* constructors to build one.
type Command struct {
	CmdType CmdType

	// job id for the id based commands (delete, peek, kick-job ...)
	ID JobID

	// priority for put, release & bury
	Pri uint32

	// delay for put, release & pause-tube
	Delay time.Duration

	// time to run for put
	TTR time.Duration

	// reserve-with-timeout wait
	Timeout time.Duration

	// kick bound
	Bound uint64

	// tube name for use, watch, ignore, stats-tube & pause-tube
	Tube string

	// job body for put
	Data []byte
}

func (c Command) String() string {
	return fmt.Sprintf("CmdType: %v ID: %v Tube: [%v] DataSize: %v",
		c.CmdType, c.ID, c.Tube, len(c.Data))
}

func NewPut(data []byte, pri uint32, delay, ttr time.Duration) *Command {
	return &Command{CmdType: Put, Data: data, Pri: pri, Delay: delay, TTR: ttr}
}

func NewUse(tube string) *Command {
	return &Command{CmdType: Use, Tube: tube}
}

func NewReserve() *Command {
	return &Command{CmdType: Reserve}
}

func NewReserveWithTimeout(timeout time.Duration) *Command {
	return &Command{CmdType: ReserveWithTimeout, Timeout: timeout}
}

func NewReserveJob(id JobID) *Command {
	return &Command{CmdType: ReserveJob, ID: id}
}

func NewDelete(id JobID) *Command {
	return &Command{CmdType: Delete, ID: id}
}

func NewRelease(id JobID, pri uint32, delay time.Duration) *Command {
	return &Command{CmdType: Release, ID: id, Pri: pri, Delay: delay}
}

func NewBury(id JobID, pri uint32) *Command {
	return &Command{CmdType: Bury, ID: id, Pri: pri}
}

func NewTouch(id JobID) *Command {
	return &Command{CmdType: Touch, ID: id}
}

func NewWatch(tube string) *Command {
	return &Command{CmdType: Watch, Tube: tube}
}

func NewIgnore(tube string) *Command {
	return &Command{CmdType: Ignore, Tube: tube}
}

func NewPeek(id JobID) *Command {
	return &Command{CmdType: Peek, ID: id}
}

func NewKick(bound uint64) *Command {
	return &Command{CmdType: Kick, Bound: bound}
}

func NewKickJob(id JobID) *Command {
	return &Command{CmdType: KickJob, ID: id}
}

func NewStatsJob(id JobID) *Command {
	return &Command{CmdType: StatsJob, ID: id}
}

func NewStatsTube(tube string) *Command {
	return &Command{CmdType: StatsTube, Tube: tube}
}

func NewPauseTube(tube string, delay time.Duration) *Command {
	return &Command{CmdType: PauseTube, Tube: tube, Delay: delay}
}

// NewCommand builds a command that takes no arguments: peek-ready,
// peek-delayed, peek-buried, stats, list-tubes, list-tube-used,
// list-tubes-watched and quit.
func NewCommand(c CmdType) *Command {
	return &Command{CmdType: c}
}

// Encode validates the command's arguments and returns the exact bytes to
// be written to the server. Validation failures are returned as an *Error of
// KindValidation and nothing should be sent.
//
//	put <pri> <delay> <ttr> <bytes>\r\n<data>\r\n
//	release <id> <pri> <delay>\r\n
//	reserve-with-timeout <seconds>\r\n
//	...
func (c *Command) Encode() ([]byte, error) {
	op := c.CmdType.Verb()
	args, err := c.args()
	if err != nil {
		log.WithFields(log.Fields{"method": "Command.Encode", "op": op}).
			Debugf("validation err=%v", err)
		return nil, NewError(op, KindValidation, err)
	}

	var buf bytes.Buffer
	buf.Grow(len(op) + len(c.Data) + 64)
	buf.WriteString(op)
	for _, a := range args {
		buf.WriteByte(' ')
		buf.WriteString(a)
	}
	buf.Write(crlf)

	if c.CmdType == Put {
		buf.Write(c.Data)
		buf.Write(crlf)
	}

	return buf.Bytes(), nil
}

func (c *Command) args() ([]string, error) {
	switch c.CmdType {
	case Put:
		delay, err := seconds("delay", c.Delay)
		if err != nil {
			return nil, err
		}
		// the server treats a ttr of zero as one second
		ttr := c.TTR
		if ttr >= 0 && ttr < time.Second {
			ttr = time.Second
		}
		ttrSecs, err := seconds("ttr", ttr)
		if err != nil {
			return nil, err
		}
		return []string{formatUint(uint64(c.Pri)), delay, ttrSecs,
			strconv.Itoa(len(c.Data))}, nil

	case Use, Watch, Ignore, StatsTube:
		if err := ValidateTubeName(c.Tube); err != nil {
			return nil, err
		}
		return []string{c.Tube}, nil

	case PauseTube:
		if err := ValidateTubeName(c.Tube); err != nil {
			return nil, err
		}
		delay, err := seconds("delay", c.Delay)
		if err != nil {
			return nil, err
		}
		return []string{c.Tube, delay}, nil

	case ReserveWithTimeout:
		timeout, err := seconds("timeout", c.Timeout)
		if err != nil {
			return nil, err
		}
		return []string{timeout}, nil

	case ReserveJob, Delete, Touch, Peek, KickJob, StatsJob:
		return []string{formatUint(uint64(c.ID))}, nil

	case Release:
		delay, err := seconds("delay", c.Delay)
		if err != nil {
			return nil, err
		}
		return []string{formatUint(uint64(c.ID)), formatUint(uint64(c.Pri)), delay}, nil

	case Bury:
		return []string{formatUint(uint64(c.ID)), formatUint(uint64(c.Pri))}, nil

	case Kick:
		return []string{formatUint(c.Bound)}, nil

	case Reserve, PeekReady, PeekDelayed, PeekBuried, Stats, ListTubes,
		ListTubeUsed, ListTubesWatched, Quit:
		return nil, nil

	default:
		return nil, errors.Wrapf(ErrInvalidArgument, "unsupported command %v", c.CmdType)
	}
}

// ValidateTubeName checks that name can be sent as a tube argument:
// 1 to 200 bytes with no space and no control characters.
func ValidateTubeName(name string) error {
	if len(name) == 0 {
		return errors.Wrap(ErrInvalidTubeName, "name is empty")
	}

	if len(name) > MaxTubeNameSizeBytes {
		return errors.Wrapf(ErrInvalidTubeName, "name exceeds %d bytes", MaxTubeNameSizeBytes)
	}

	for i := 0; i < len(name); i++ {
		if b := name[i]; b <= ' ' || b == 0x7f {
			return errors.Wrapf(ErrInvalidTubeName, "invalid byte 0x%02x at offset %d", b, i)
		}
	}

	return nil
}

// seconds truncates d to whole seconds
func seconds(name string, d time.Duration) (string, error) {
	if d < 0 {
		return "", errors.Wrapf(ErrInvalidArgument, "%s is negative (%v)", name, d)
	}

	s := uint64(d / time.Second)
	if s > MaxSeconds {
		return "", errors.Wrapf(ErrInvalidArgument, "%s exceeds %d seconds", name, uint64(MaxSeconds))
	}

	return formatUint(s), nil
}

func formatUint(n uint64) string {
	return strconv.FormatUint(n, 10)
}
