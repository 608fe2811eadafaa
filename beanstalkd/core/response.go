package core

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Response is a decoded reply frame. Only the fields produced by the
// status word are set:
//
//	INSERTED, BURIED (put)        -> ID
//	RESERVED, FOUND               -> ID, Body
//	WATCHING, KICKED (kick)       -> Count
//	USING                         -> Tube
//	OK (stats family)             -> Body, Stats
//	OK (list-tubes*)              -> Body, Tubes
type Response struct {
	Status Status
	ID     JobID
	Count  uint64
	Tube   string
	Body   []byte
	Stats  StatsMap
	Tubes  []string
}

// Job is a job id and its body, as returned by reserve and peek
type Job struct {
	ID   JobID  `json:"id"`
	Body []byte `json:"body"`
}

func (j *Job) String() string {
	return fmt.Sprintf("Job(%d, %d bytes)", j.ID, len(j.Body))
}

// PutResult is the outcome of a put: Inserted(id) or Buried(id) when the
// server could not grow its priority queue
type PutResult struct {
	Status Status `json:"status"`
	ID     JobID  `json:"id"`
}

func (p *PutResult) String() string {
	return fmt.Sprintf("%s(%d)", statusName(p.Status), p.ID)
}

// Reservation is the outcome of reserve & reserve-with-timeout. Job is
// set only when Status is StatusReserved.
type Reservation struct {
	Status Status `json:"status"`
	Job    *Job   `json:"job,omitempty"`
}

func (r *Reservation) String() string {
	if r.Job == nil {
		return statusName(r.Status)
	}
	return fmt.Sprintf("%s(%d, %d bytes)", statusName(r.Status), r.Job.ID, len(r.Job.Body))
}

// statusName returns the CamelCase name of a status (ex: TIMED_OUT -> TimedOut)
func statusName(s Status) string {
	var sb strings.Builder
	for _, part := range strings.Split(s.Word(), "_") {
		if part == "" {
			continue
		}
		sb.WriteString(part[:1])
		sb.WriteString(strings.ToLower(part[1:]))
	}
	return sb.String()
}

// Name returns the CamelCase name of the status, ex: "DeadlineSoon"
func (s Status) Name() string {
	return statusName(s)
}

// ReadResponse reads one reply frame for a command of type c from fr and
// decodes it.
//
// A generic error word (NOT_FOUND, BAD_FORMAT, ...) is returned as an
// *Error of KindProtocol. A status word that is not a valid reply to c,
// bad arguments on the status line, a bad body terminator or an unparsable
// stats/list body is returned with KindMalformedFrame. Stream failures are
// returned with KindTransport.
func ReadResponse(c CmdType, fr *FrameReader) (*Response, error) {
	op := c.Verb()
	ctxLog := log.WithFields(log.Fields{"method": "ReadResponse", "op": op})

	line, err := fr.ReadLine()
	if err != nil {
		ctxLog.Debugf("fr.ReadLine err=%v", err)
		return nil, frameError(op, err)
	}

	ctxLog.Debugf("status line %q", line)
	status, args, err := parseStatusLine(line)
	if err != nil {
		return nil, NewError(op, KindMalformedFrame, err)
	}

	if e := StatusError(status); e != nil {
		if len(args) != 0 {
			return nil, NewError(op, KindMalformedFrame,
				errors.Wrapf(ErrBadFrame, "unexpected arguments in %q", line))
		}
		return nil, NewError(op, KindProtocol, e)
	}

	if !isSuccessStatus(c, status) {
		ctxLog.Errorf("unexpected status line %q", line)
		return nil, NewError(op, KindMalformedFrame,
			errors.Wrapf(ErrUnexpectedStatus, "%q in reply to %s", line, op))
	}

	resp, err := decodeArgs(c, status, args, fr)
	if err != nil {
		return nil, frameError(op, err)
	}

	return resp, nil
}

// frameError classifies an error raised while reading or decoding a frame
func frameError(op string, err error) *Error {
	switch errors.Cause(err) {
	case ErrBadFrame, ErrLineTooLong, ErrUnexpectedStatus:
		return NewError(op, KindMalformedFrame, err)
	default:
		return NewError(op, KindTransport, errors.Wrap(err, "read response"))
	}
}

// parseStatusLine splits a line into the status word and its arguments.
// Tokens are separated by exactly one space.
func parseStatusLine(line []byte) (Status, []string, error) {
	if len(line) == 0 {
		return StatusUnknown, nil, errors.Wrap(ErrBadFrame, "empty status line")
	}

	tokens := strings.Split(string(line), " ")
	for _, t := range tokens {
		if t == "" {
			return StatusUnknown, nil, errors.Wrapf(ErrBadFrame, "bad spacing in %q", line)
		}
	}

	status, ok := wordStatus[tokens[0]]
	if !ok {
		return StatusUnknown, nil, errors.Wrapf(ErrUnexpectedStatus, "unknown status word %q", tokens[0])
	}

	return status, tokens[1:], nil
}

func decodeArgs(c CmdType, status Status, args []string, fr *FrameReader) (*Response, error) {
	resp := &Response{Status: status}
	switch status {
	case StatusInserted:
		return resp, parseID(resp, status, args)

	case StatusBuried:
		// put replies BURIED <id>, release & bury reply BURIED
		if c == Put {
			return resp, parseID(resp, status, args)
		}
		return resp, expectArgs(status, args, 0)

	case StatusUsing:
		if err := expectArgs(status, args, 1); err != nil {
			return nil, err
		}
		if err := ValidateTubeName(args[0]); err != nil {
			return nil, errors.Wrapf(ErrBadFrame, "USING: %v", err)
		}
		resp.Tube = args[0]
		return resp, nil

	case StatusReserved, StatusFound:
		if err := expectArgs(status, args, 2); err != nil {
			return nil, err
		}
		id, err := parseUint(status, args[0], 64)
		if err != nil {
			return nil, err
		}
		body, err := readBody(status, args[1], fr)
		if err != nil {
			return nil, err
		}
		resp.ID = JobID(id)
		resp.Body = body
		return resp, nil

	case StatusWatching:
		if err := expectArgs(status, args, 1); err != nil {
			return nil, err
		}
		n, err := parseUint(status, args[0], 64)
		resp.Count = n
		return resp, err

	case StatusKicked:
		// kick replies KICKED <count>, kick-job replies KICKED
		if c == KickJob {
			return resp, expectArgs(status, args, 0)
		}
		if err := expectArgs(status, args, 1); err != nil {
			return nil, err
		}
		n, err := parseUint(status, args[0], 64)
		resp.Count = n
		return resp, err

	case StatusOK:
		if err := expectArgs(status, args, 1); err != nil {
			return nil, err
		}
		body, err := readBody(status, args[0], fr)
		if err != nil {
			return nil, err
		}
		resp.Body = body
		if c == ListTubes || c == ListTubesWatched {
			resp.Tubes, err = ParseList(body)
		} else {
			resp.Stats, err = ParseStats(body)
		}
		if err != nil {
			return nil, err
		}
		return resp, nil

	default:
		return resp, expectArgs(status, args, 0)
	}
}

func parseID(resp *Response, status Status, args []string) error {
	if err := expectArgs(status, args, 1); err != nil {
		return err
	}
	id, err := parseUint(status, args[0], 64)
	resp.ID = JobID(id)
	return err
}

// readBody reads the body whose length is declared by arg, followed by \r\n
func readBody(status Status, arg string, fr *FrameReader) ([]byte, error) {
	n, err := parseUint(status, arg, 64)
	if err != nil {
		return nil, err
	}
	if n > MaxBodySizeBytes {
		return nil, errors.Wrapf(ErrBadFrame, "%s body of %d bytes exceeds %d", status, n, MaxBodySizeBytes)
	}

	body, err := fr.ReadExact(int(n))
	if err != nil {
		return nil, err
	}

	term, err := fr.ReadExact(len(crlf))
	if err != nil {
		return nil, err
	}

	if !bytes.Equal(term, crlf) {
		return nil, errors.Wrapf(ErrBadFrame, "%s body of %d bytes terminated by %q", status, n, term)
	}

	return body, nil
}

func expectArgs(status Status, args []string, n int) error {
	if len(args) != n {
		return errors.Wrapf(ErrBadFrame, "%s expects %d argument(s), got %d", status, n, len(args))
	}
	return nil
}

func parseUint(status Status, s string, bitSize int) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, bitSize)
	if err != nil {
		return 0, errors.Wrapf(ErrBadFrame, "%s: bad number %q", status, s)
	}
	return n, nil
}
