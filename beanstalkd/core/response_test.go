package core

import (
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
)

func readResponse(c CmdType, s string) (*Response, error) {
	return ReadResponse(c, NewFrameReader(strings.NewReader(s)))
}

func TestReadResponse(t *testing.T) {
	var entries = []struct {
		cmd  CmdType
		in   string
		resp *Response
		msg  string
	}{
		{Put, "INSERTED 42\r\n", &Response{Status: StatusInserted, ID: 42},
			"expect put to decode INSERTED with an id"},
		{Put, "BURIED 43\r\n", &Response{Status: StatusBuried, ID: 43},
			"expect put to decode BURIED with an id"},
		{Use, "USING emails\r\n", &Response{Status: StatusUsing, Tube: "emails"},
			"expect use to decode the tube"},
		{ListTubeUsed, "USING default\r\n", &Response{Status: StatusUsing, Tube: "default"},
			"expect list-tube-used to decode the tube"},
		{Reserve, "RESERVED 7 5\r\nhello\r\n", &Response{Status: StatusReserved, ID: 7, Body: []byte("hello")},
			"expect reserve to decode id & body"},
		{ReserveWithTimeout, "RESERVED 7 0\r\n\r\n", &Response{Status: StatusReserved, ID: 7, Body: []byte{}},
			"expect an empty body to decode"},
		{ReserveWithTimeout, "TIMED_OUT\r\n", &Response{Status: StatusTimedOut},
			"expect reserve-with-timeout to decode TIMED_OUT"},
		{Reserve, "DEADLINE_SOON\r\n", &Response{Status: StatusDeadlineSoon},
			"expect reserve to decode DEADLINE_SOON"},
		{ReserveJob, "RESERVED 3 4\r\na\r\nb\r\n", &Response{Status: StatusReserved, ID: 3, Body: []byte("a\r\nb")},
			"expect a body with an embedded CRLF to be read by length"},
		{Delete, "DELETED\r\n", &Response{Status: StatusDeleted}, "expect delete to decode DELETED"},
		{Release, "RELEASED\r\n", &Response{Status: StatusReleased}, "expect release to decode RELEASED"},
		{Release, "BURIED\r\n", &Response{Status: StatusBuried}, "expect release to decode BURIED"},
		{Bury, "BURIED\r\n", &Response{Status: StatusBuried}, "expect bury to decode BURIED"},
		{Touch, "TOUCHED\r\n", &Response{Status: StatusTouched}, "expect touch to decode TOUCHED"},
		{Watch, "WATCHING 2\r\n", &Response{Status: StatusWatching, Count: 2}, "expect watch to decode a count"},
		{Ignore, "WATCHING 1\r\n", &Response{Status: StatusWatching, Count: 1}, "expect ignore to decode a count"},
		{Peek, "FOUND 9 3\r\nabc\r\n", &Response{Status: StatusFound, ID: 9, Body: []byte("abc")},
			"expect peek to decode id & body"},
		{PeekBuried, "FOUND 10 1\r\nz\r\n", &Response{Status: StatusFound, ID: 10, Body: []byte("z")},
			"expect peek-buried to decode id & body"},
		{Kick, "KICKED 4\r\n", &Response{Status: StatusKicked, Count: 4}, "expect kick to decode a count"},
		{KickJob, "KICKED\r\n", &Response{Status: StatusKicked}, "expect kick-job to decode KICKED"},
		{PauseTube, "PAUSED\r\n", &Response{Status: StatusPaused}, "expect pause-tube to decode PAUSED"},
		{ListTubes, "OK 23\r\n---\n- default\n- emails\n\r\n",
			&Response{Status: StatusOK, Body: []byte("---\n- default\n- emails\n"), Tubes: []string{"default", "emails"}},
			"expect list-tubes to decode a sequence"},
		{ListTubes, "OK 28\r\n---\n- default\n- null\n- NULL\n\r\n",
			&Response{Status: StatusOK, Body: []byte("---\n- default\n- null\n- NULL\n"),
				Tubes: []string{"default", "null", "NULL"}},
			"expect tubes named after yaml nulls to decode as written"},
		{StatsTube, "OK 40\r\n---\nname: default\ncurrent-jobs-ready: 3\n\r\n",
			&Response{Status: StatusOK, Body: []byte("---\nname: default\ncurrent-jobs-ready: 3\n"),
				Stats: StatsMap{"name": "default", "current-jobs-ready": "3"}},
			"expect stats-tube to decode a mapping"},
	}

	for _, e := range entries {
		resp, err := readResponse(e.cmd, e.in)
		assert.Nilf(t, err, e.msg)
		assert.Equalf(t, e.resp, resp, e.msg)
	}
}

func TestReadResponse_Errors(t *testing.T) {
	var entries = []struct {
		cmd  CmdType
		in   string
		kind ErrorKind
		err  error
		msg  string
	}{
		{Delete, "NOT_FOUND\r\n", KindProtocol, ErrNotFound, "expect NOT_FOUND as a protocol error"},
		{Put, "JOB_TOO_BIG\r\n", KindProtocol, ErrJobTooBig, "expect JOB_TOO_BIG as a protocol error"},
		{Put, "EXPECTED_CRLF\r\n", KindProtocol, ErrExpectedCRLF, "expect EXPECTED_CRLF as a protocol error"},
		{Put, "DRAINING\r\n", KindProtocol, ErrDraining, "expect DRAINING as a protocol error"},
		{Stats, "OUT_OF_MEMORY\r\n", KindProtocol, ErrOutOfMemory, "expect OUT_OF_MEMORY on any command"},
		{Touch, "INTERNAL_ERROR\r\n", KindProtocol, ErrInternalError, "expect INTERNAL_ERROR on any command"},
		{Use, "BAD_FORMAT\r\n", KindProtocol, ErrBadFormat, "expect BAD_FORMAT on any command"},
		{Peek, "UNKNOWN_COMMAND\r\n", KindProtocol, ErrUnknownCommand, "expect UNKNOWN_COMMAND on any command"},
		{Ignore, "NOT_IGNORED\r\n", KindProtocol, ErrNotIgnored, "expect NOT_IGNORED as a protocol error"},
		{Delete, "INSERTED 5\r\n", KindMalformedFrame, ErrUnexpectedStatus,
			"expect a success word of another command to be unexpected"},
		{Delete, "HELLO\r\n", KindMalformedFrame, ErrUnexpectedStatus, "expect an unknown word to be unexpected"},
		{Put, "INSERTED\r\n", KindMalformedFrame, ErrBadFrame, "expect a missing id to be malformed"},
		{Put, "INSERTED abc\r\n", KindMalformedFrame, ErrBadFrame, "expect a non-numeric id to be malformed"},
		{Delete, "DELETED 1\r\n", KindMalformedFrame, ErrBadFrame, "expect extra args to be malformed"},
		{Delete, "NOT_FOUND 1\r\n", KindMalformedFrame, ErrBadFrame, "expect args on an error word to be malformed"},
		{Put, "INSERTED  1\r\n", KindMalformedFrame, ErrBadFrame, "expect a double space to be malformed"},
		{Put, "\r\n", KindMalformedFrame, ErrBadFrame, "expect an empty line to be malformed"},
		{Reserve, "RESERVED 1 -5\r\nhello\r\n", KindMalformedFrame, ErrBadFrame,
			"expect a negative length to be malformed"},
		{Reserve, "RESERVED 1 5\r\nhelloXY", KindMalformedFrame, ErrBadFrame,
			"expect a body not terminated by CRLF to be malformed"},
		{Reserve, "RESERVED 1 5\r\nhello\n", KindTransport, io.ErrUnexpectedEOF,
			"expect a truncated terminator to be a transport error"},
		{Reserve, "RESERVED 1 10\r\nhel", KindTransport, io.ErrUnexpectedEOF,
			"expect a truncated body to be a transport error"},
		{Reserve, "", KindTransport, io.EOF, "expect a closed stream to be a transport error"},
		{Reserve, "RESERVED 1", KindTransport, io.ErrUnexpectedEOF,
			"expect a partial status line to be a transport error"},
		{Stats, "OK 5\r\n- a\n\n\r\n", KindMalformedFrame, ErrBadFrame,
			"expect a sequence body to stats to be malformed"},
		{ListTubes, "OK 8\r\nname: a\n\r\n", KindMalformedFrame, ErrBadFrame,
			"expect a mapping body to list-tubes to be malformed"},
		{Stats, "OK 0\r\n\r\n", KindMalformedFrame, ErrBadFrame, "expect an empty stats body to be malformed"},
		{Reserve, "RESERVED 1 2147483648\r\n", KindMalformedFrame, ErrBadFrame,
			"expect a body length over the max body size to be malformed"},
		{Use, "USING a b\r\n", KindMalformedFrame, ErrBadFrame, "expect USING with two args to be malformed"},
	}

	for _, e := range entries {
		resp, err := readResponse(e.cmd, e.in)
		assert.Nilf(t, resp, e.msg)
		assert.Equalf(t, e.kind, KindOf(err), e.msg)
		assert.Truef(t, errors.Is(err, e.err), "%s: got %v", e.msg, err)
	}
}

func TestReadResponse_Sequence(t *testing.T) {
	Convey("given a stream with several frames", t, func() {
		fr := NewFrameReader(strings.NewReader(
			"NOT_FOUND\r\nFOUND 2 3\r\nxyz\r\nWATCHING 3\r\n"))

		Convey("each frame is decoded in turn", func() {
			_, err := ReadResponse(Peek, fr)
			So(KindOf(err), ShouldEqual, KindProtocol)

			resp, err := ReadResponse(Peek, fr)
			So(err, ShouldBeNil)
			So(resp.ID, ShouldEqual, JobID(2))
			So(string(resp.Body), ShouldEqual, "xyz")

			resp, err = ReadResponse(Watch, fr)
			So(err, ShouldBeNil)
			So(resp.Count, ShouldEqual, uint64(3))
			So(fr.Buffered(), ShouldEqual, 0)
		})
	})
}

func TestResultStrings(t *testing.T) {
	assert.Equal(t, "Inserted(42)", (&PutResult{Status: StatusInserted, ID: 42}).String())
	assert.Equal(t, "Buried(7)", (&PutResult{Status: StatusBuried, ID: 7}).String())
	assert.Equal(t, "TimedOut", (&Reservation{Status: StatusTimedOut}).String())
	assert.Equal(t, "DeadlineSoon", (&Reservation{Status: StatusDeadlineSoon}).String())
	assert.Equal(t, "Reserved(3, 5 bytes)",
		(&Reservation{Status: StatusReserved, Job: &Job{ID: 3, Body: []byte("hello")}}).String())
	assert.Equal(t, "NotFound", StatusNotFound.Name())
}
