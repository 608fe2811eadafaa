package core

import "fmt"

// Status is the leading word of a response line
type Status int

const (
	StatusUnknown Status = iota

	// success words
	StatusInserted
	StatusBuried
	StatusUsing
	StatusReserved
	StatusTimedOut
	StatusDeadlineSoon
	StatusDeleted
	StatusReleased
	StatusTouched
	StatusWatching
	StatusFound
	StatusKicked
	StatusOK
	StatusPaused

	// generic error words, valid as a reply to any command
	StatusOutOfMemory
	StatusInternalError
	StatusBadFormat
	StatusUnknownCommand
	StatusExpectedCRLF
	StatusJobTooBig
	StatusDraining
	StatusNotFound
	StatusNotIgnored

	statusMax
)

var statusWords = [...]string{
	StatusUnknown:        "UNKNOWN",
	StatusInserted:       "INSERTED",
	StatusBuried:         "BURIED",
	StatusUsing:          "USING",
	StatusReserved:       "RESERVED",
	StatusTimedOut:       "TIMED_OUT",
	StatusDeadlineSoon:   "DEADLINE_SOON",
	StatusDeleted:        "DELETED",
	StatusReleased:       "RELEASED",
	StatusTouched:        "TOUCHED",
	StatusWatching:       "WATCHING",
	StatusFound:          "FOUND",
	StatusKicked:         "KICKED",
	StatusOK:             "OK",
	StatusPaused:         "PAUSED",
	StatusOutOfMemory:    "OUT_OF_MEMORY",
	StatusInternalError:  "INTERNAL_ERROR",
	StatusBadFormat:      "BAD_FORMAT",
	StatusUnknownCommand: "UNKNOWN_COMMAND",
	StatusExpectedCRLF:   "EXPECTED_CRLF",
	StatusJobTooBig:      "JOB_TOO_BIG",
	StatusDraining:       "DRAINING",
	StatusNotFound:       "NOT_FOUND",
	StatusNotIgnored:     "NOT_IGNORED",
}

// Word returns the status word as sent on the wire
func (s Status) Word() string {
	if s < 0 || s >= statusMax {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusWords[s]
}

func (s Status) String() string {
	return s.Word()
}

var wordStatus map[string]Status

func init() {
	wordStatus = make(map[string]Status)
	for s := StatusUnknown + 1; s < statusMax; s++ {
		wordStatus[statusWords[s]] = s
	}
}

// genericErrors maps the status words shared by all commands to their
// errors. The decoder consults this table before the per-command table.
var genericErrors = map[Status]error{
	StatusOutOfMemory:    ErrOutOfMemory,
	StatusInternalError:  ErrInternalError,
	StatusBadFormat:      ErrBadFormat,
	StatusUnknownCommand: ErrUnknownCommand,
	StatusExpectedCRLF:   ErrExpectedCRLF,
	StatusJobTooBig:      ErrJobTooBig,
	StatusDraining:       ErrDraining,
	StatusNotFound:       ErrNotFound,
	StatusNotIgnored:     ErrNotIgnored,
}

// StatusError returns the error for a generic error status, nil otherwise
func StatusError(s Status) error {
	return genericErrors[s]
}

// success words accepted as a reply, per command
var successStatus = map[CmdType][]Status{
	Put:                {StatusInserted, StatusBuried},
	Use:                {StatusUsing},
	Reserve:            {StatusReserved, StatusTimedOut, StatusDeadlineSoon},
	ReserveWithTimeout: {StatusReserved, StatusTimedOut, StatusDeadlineSoon},
	ReserveJob:         {StatusReserved},
	Delete:             {StatusDeleted},
	Release:            {StatusReleased, StatusBuried},
	Bury:               {StatusBuried},
	Touch:              {StatusTouched},
	Watch:              {StatusWatching},
	Ignore:             {StatusWatching},
	Peek:               {StatusFound},
	PeekReady:          {StatusFound},
	PeekDelayed:        {StatusFound},
	PeekBuried:         {StatusFound},
	Kick:               {StatusKicked},
	KickJob:            {StatusKicked},
	StatsJob:           {StatusOK},
	StatsTube:          {StatusOK},
	Stats:              {StatusOK},
	ListTubes:          {StatusOK},
	ListTubesWatched:   {StatusOK},
	ListTubeUsed:       {StatusUsing},
	PauseTube:          {StatusPaused},
}

func isSuccessStatus(c CmdType, s Status) bool {
	for _, e := range successStatus[c] {
		if e == s {
			return true
		}
	}
	return false
}

// MarshalText encodes a status as its wire word, ex: "INSERTED"
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.Word()), nil
}
