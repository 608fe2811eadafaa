package proto

import (
	"io"
	"time"

	"github.com/1xyz/coolbeans-client/beanstalkd/core"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Conn encapsulates the stream with a beanstalkd server.
//
// A Conn runs one command at a time: each method writes the command and
// blocks until its response is read. It is not safe for concurrent use,
// with the exception of Close which may be called from another goroutine
// to abort a blocked call.
//
// A Conn never retries and keeps no copy of server side state such as the
// used tube or the watch list.
type Conn struct {
	// unique URN identifying this connection in logs
	id string

	// represents the underlying server stream
	rwc io.ReadWriteCloser

	// reader for the response frames
	fr *core.FrameReader

	// Current state of this connection, Closed is tracked by closed
	state ConnState

	closed closedFlag

	// put bodies larger than this are rejected locally, zero disables the check
	maxJobSize int
}

// NewConn wraps an established stream. cfg may be nil.
func NewConn(rwc io.ReadWriteCloser, cfg *Config) *Conn {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	return &Conn{
		id:         uuid.New().URN(),
		rwc:        rwc,
		fr:         core.NewFrameReader(rwc),
		state:      Connected,
		maxJobSize: cfg.MaxJobSize,
	}
}

func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) State() ConnState {
	if c.closed.isSet() {
		return Closed
	}
	return c.state
}

// MaxJobSize returns the put body limit enforced locally, zero if none
func (c *Conn) MaxJobSize() int {
	return c.maxJobSize
}

// Close closes the underlying stream. Safe to call more than once and
// from another goroutine; a call blocked on the stream fails with a
// transport error.
func (c *Conn) Close() error {
	if !c.closed.set() {
		return nil
	}

	log.WithFields(log.Fields{"method": "Conn.Close", "connID": c.id}).
		Debugf("closing connection")
	return c.rwc.Close()
}

// Quit sends quit, closes the stream and moves the Conn to Closed. The
// server sends no reply; a failure to write is logged and ignored.
func (c *Conn) Quit() error {
	op := core.Quit.Verb()
	start := time.Now()
	if err := c.checkOpen(op); err != nil {
		measureCmd(op, start, err)
		return err
	}

	ctxLog := log.WithFields(log.Fields{"method": "Conn.Quit", "connID": c.id})
	if b, err := core.NewCommand(core.Quit).Encode(); err == nil {
		if _, err := c.rwc.Write(b); err != nil {
			ctxLog.Debugf("write quit err=%v", err)
		}
	}

	err := c.Close()
	measureCmd(op, start, nil)
	return err
}

func (c *Conn) checkOpen(op string) error {
	if c.closed.isSet() {
		return core.NewError(op, core.KindClosed, core.ErrConnClosed)
	}
	return nil
}

// do runs one command: encode, write, read the response frame.
//
// Validation errors leave the state untouched, protocol errors return
// the Conn to Connected, malformed frames & transport errors close it.
func (c *Conn) do(cmd *core.Command) (*core.Response, error) {
	op := cmd.CmdType.Verb()
	start := time.Now()
	resp, err := c.roundTrip(op, cmd)
	measureCmd(op, start, err)
	return resp, err
}

func (c *Conn) roundTrip(op string, cmd *core.Command) (*core.Response, error) {
	if err := c.checkOpen(op); err != nil {
		return nil, err
	}

	b, err := cmd.Encode()
	if err != nil {
		return nil, err
	}

	ctxLog := log.WithFields(log.Fields{"method": "Conn.do", "connID": c.id, "op": op})
	c.state = AwaitingResponse
	if _, err := c.rwc.Write(b); err != nil {
		ctxLog.Errorf("write err=%v", err)
		c.fail()
		return nil, core.NewError(op, core.KindTransport, errors.Wrap(err, "write command"))
	}

	resp, err := core.ReadResponse(cmd.CmdType, c.fr)
	if err != nil {
		if core.KindOf(err).Fatal() {
			ctxLog.Errorf("closing connection: %v", err)
			c.fail()
		} else {
			ctxLog.Debugf("%v", err)
			c.state = Connected
		}
		return nil, err
	}

	ctxLog.Debugf("status %v", resp.Status)
	c.state = Connected
	return resp, nil
}

func (c *Conn) fail() {
	if err := c.Close(); err != nil {
		log.WithFields(log.Fields{"method": "Conn.fail", "connID": c.id}).
			Debugf("close err=%v", err)
	}
}

// Put submits a job to the used tube. A put answered with BURIED is not an
// error: the job was stored but buried because the server ran out of
// memory growing its priority queue.
func (c *Conn) Put(body []byte, pri uint32, delay, ttr time.Duration) (*core.PutResult, error) {
	op := core.Put.Verb()
	if c.maxJobSize > 0 && len(body) > c.maxJobSize {
		err := c.checkOpen(op)
		if err == nil {
			err = core.NewError(op, core.KindValidation,
				errors.Wrapf(core.ErrJobTooBig, "body of %d bytes exceeds %d", len(body), c.maxJobSize))
		}
		measureCmd(op, time.Now(), err)
		return nil, err
	}

	resp, err := c.do(core.NewPut(body, pri, delay, ttr))
	if err != nil {
		return nil, err
	}
	return &core.PutResult{Status: resp.Status, ID: resp.ID}, nil
}

// Use sets the tube for subsequent puts, returns the tube name echoed by
// the server
func (c *Conn) Use(tube string) (string, error) {
	resp, err := c.do(core.NewUse(tube))
	if err != nil {
		return "", err
	}
	return resp.Tube, nil
}

// Reserve blocks until a job is available in a watched tube
func (c *Conn) Reserve() (*core.Reservation, error) {
	return c.reserve(core.NewReserve())
}

// ReserveWithTimeout is Reserve bounded by a server side timeout. A timeout
// of zero returns immediately.
func (c *Conn) ReserveWithTimeout(timeout time.Duration) (*core.Reservation, error) {
	return c.reserve(core.NewReserveWithTimeout(timeout))
}

func (c *Conn) reserve(cmd *core.Command) (*core.Reservation, error) {
	resp, err := c.do(cmd)
	if err != nil {
		return nil, err
	}

	r := &core.Reservation{Status: resp.Status}
	if resp.Status == core.StatusReserved {
		r.Job = &core.Job{ID: resp.ID, Body: resp.Body}
	}
	return r, nil
}

func (c *Conn) ReserveJob(id core.JobID) (*core.Job, error) {
	return c.job(core.NewReserveJob(id))
}

func (c *Conn) Delete(id core.JobID) error {
	_, err := c.do(core.NewDelete(id))
	return err
}

// Release puts a reserved job back into the ready queue (or the delay
// queue). Returns StatusReleased or StatusBuried.
func (c *Conn) Release(id core.JobID, pri uint32, delay time.Duration) (core.Status, error) {
	resp, err := c.do(core.NewRelease(id, pri, delay))
	if err != nil {
		return core.StatusUnknown, err
	}
	return resp.Status, nil
}

func (c *Conn) Bury(id core.JobID, pri uint32) error {
	_, err := c.do(core.NewBury(id, pri))
	return err
}

func (c *Conn) Touch(id core.JobID) error {
	_, err := c.do(core.NewTouch(id))
	return err
}

// Watch adds tube to the watch list, returns the number of watched tubes
func (c *Conn) Watch(tube string) (uint64, error) {
	return c.count(core.NewWatch(tube))
}

// Ignore removes tube from the watch list, returns the number of watched
// tubes. Ignoring the last watched tube fails with ErrNotIgnored.
func (c *Conn) Ignore(tube string) (uint64, error) {
	return c.count(core.NewIgnore(tube))
}

func (c *Conn) Peek(id core.JobID) (*core.Job, error) {
	return c.job(core.NewPeek(id))
}

func (c *Conn) PeekReady() (*core.Job, error) {
	return c.job(core.NewCommand(core.PeekReady))
}

func (c *Conn) PeekDelayed() (*core.Job, error) {
	return c.job(core.NewCommand(core.PeekDelayed))
}

func (c *Conn) PeekBuried() (*core.Job, error) {
	return c.job(core.NewCommand(core.PeekBuried))
}

func (c *Conn) job(cmd *core.Command) (*core.Job, error) {
	resp, err := c.do(cmd)
	if err != nil {
		return nil, err
	}
	return &core.Job{ID: resp.ID, Body: resp.Body}, nil
}

// Kick moves up to bound jobs from buried (or delayed, when no job is
// buried) to ready in the used tube. Returns the number kicked.
func (c *Conn) Kick(bound uint64) (uint64, error) {
	return c.count(core.NewKick(bound))
}

func (c *Conn) KickJob(id core.JobID) error {
	_, err := c.do(core.NewKickJob(id))
	return err
}

func (c *Conn) count(cmd *core.Command) (uint64, error) {
	resp, err := c.do(cmd)
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *Conn) StatsJob(id core.JobID) (core.StatsMap, error) {
	return c.stats(core.NewStatsJob(id))
}

func (c *Conn) StatsTube(tube string) (core.StatsMap, error) {
	return c.stats(core.NewStatsTube(tube))
}

func (c *Conn) Stats() (core.StatsMap, error) {
	return c.stats(core.NewCommand(core.Stats))
}

func (c *Conn) stats(cmd *core.Command) (core.StatsMap, error) {
	resp, err := c.do(cmd)
	if err != nil {
		return nil, err
	}
	return resp.Stats, nil
}

func (c *Conn) ListTubes() ([]string, error) {
	resp, err := c.do(core.NewCommand(core.ListTubes))
	if err != nil {
		return nil, err
	}
	return resp.Tubes, nil
}

func (c *Conn) ListTubesWatched() ([]string, error) {
	resp, err := c.do(core.NewCommand(core.ListTubesWatched))
	if err != nil {
		return nil, err
	}
	return resp.Tubes, nil
}

func (c *Conn) ListTubeUsed() (string, error) {
	resp, err := c.do(core.NewCommand(core.ListTubeUsed))
	if err != nil {
		return "", err
	}
	return resp.Tube, nil
}

// PauseTube delays reservations from tube for delay
func (c *Conn) PauseTube(tube string, delay time.Duration) error {
	_, err := c.do(core.NewPauseTube(tube, delay))
	return err
}
