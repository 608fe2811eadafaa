package core

import (
	"math"
	"regexp"
)

var (
	// Delimiter for status lines and data
	DelimRe = regexp.MustCompile(`\r\n`)
)

const (
	// Max. size in bytes of a single response line (exclusive of the
	// 2 byte delimiter). Real servers never send lines anywhere near this.
	MaxLineSizeBytes = 4 * 1024

	// Max. size in bytes of a tube name
	MaxTubeNameSizeBytes = 200

	// Max. body length accepted from a status line
	MaxBodySizeBytes = math.MaxInt32

	// Max. value of a duration argument, in seconds
	MaxSeconds = math.MaxUint32

	// The size of a read buffer
	readBufferSizeBytes = 4 * 1024

	// Default tube name
	DefaultTubeName = "default"
)

var crlf = []byte("\r\n")

// JobID is the server assigned identifier of a job
type JobID uint64
