package core

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// CmdType refers to the type of command in beanstalkd context
type CmdType int

const (
	Unknown CmdType = iota
	Bury
	Delete
	Ignore
	Kick
	KickJob
	ListTubeUsed
	ListTubes
	ListTubesWatched
	PauseTube
	Peek
	PeekBuried
	PeekDelayed
	PeekReady
	Put
	Quit
	Release
	Reserve
	ReserveJob
	ReserveWithTimeout
	Stats
	StatsJob
	StatsTube
	Touch
	Use
	Watch
	Max
)

var cmdTypeNames = [...]string{
	Unknown:            "Unknown",
	Bury:               "Bury",
	Delete:             "Delete",
	Ignore:             "Ignore",
	Kick:               "Kick",
	KickJob:            "KickJob",
	ListTubeUsed:       "ListTubeUsed",
	ListTubes:          "ListTubes",
	ListTubesWatched:   "ListTubesWatched",
	PauseTube:          "PauseTube",
	Peek:               "Peek",
	PeekBuried:         "PeekBuried",
	PeekDelayed:        "PeekDelayed",
	PeekReady:          "PeekReady",
	Put:                "Put",
	Quit:               "Quit",
	Release:            "Release",
	Reserve:            "Reserve",
	ReserveJob:         "ReserveJob",
	ReserveWithTimeout: "ReserveWithTimeout",
	Stats:              "Stats",
	StatsJob:           "StatsJob",
	StatsTube:          "StatsTube",
	Touch:              "Touch",
	Use:                "Use",
	Watch:              "Watch",
}

func (c CmdType) String() string {
	if c < Unknown || c >= Max {
		return fmt.Sprintf("CmdType(%d)", int(c))
	}
	return cmdTypeNames[c]
}

// Verb returns the wire name of the command (ex: "reserve-with-timeout")
func (c CmdType) Verb() string {
	if c <= Unknown || c >= Max {
		return "unknown"
	}
	return verbs[c]
}

var (
	verbs            [Max]string
	commandTypeVerbs map[string]CmdType
)

func init() {
	commandTypeVerbs = make(map[string]CmdType)
	for c := Unknown + 1; c < Max; c++ {
		verbs[c] = kebabCase(c.String())
		commandTypeVerbs[verbs[c]] = c
	}
}

// ParseCmdType returns the CmdType for a verb, ex: "peek-ready" -> PeekReady
func ParseCmdType(verb string) (CmdType, bool) {
	c, ok := commandTypeVerbs[verb]
	return c, ok
}

func kebabCase(s string) string {
	result := make([]byte, 0, len(s))
	for i, ch := range s {
		if unicode.IsUpper(ch) && i > 0 {
			result = append(result, '-')
		}

		ch = unicode.ToLower(ch)
		b := make([]byte, utf8.RuneLen(ch))
		n := utf8.EncodeRune(b, ch)
		result = append(result, b[:n]...)
	}

	return string(result)
}
