package core

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// FrameReader turns a byte stream into response frames. Bytes read from
// the stream past the end of a line are held in a buffer and served to
// the next call, so nothing belonging to the next frame is lost.
//
// A FrameReader carries no protocol knowledge: the decoder decides when
// a line is followed by a body and how long that body is.
type FrameReader struct {
	rdr io.Reader

	// Buffer of un-processed bytes read from the reader
	buffer []byte
}

func NewFrameReader(rdr io.Reader) *FrameReader {
	return &FrameReader{
		rdr:    rdr,
		buffer: make([]byte, 0),
	}
}

// Buffered returns the number of bytes read from the stream but not
// yet returned to a caller
func (f *FrameReader) Buffered() int {
	return len(f.buffer)
}

// ReadLine returns the next line, without its \r\n terminator.
//
// Returns io.EOF (or io.ErrUnexpectedEOF if a partial line was read) when
// the stream closes before a terminator, and ErrLineTooLong if no
// terminator is found within MaxLineSizeBytes.
func (f *FrameReader) ReadLine() ([]byte, error) {
	line, extra, err := Scan(f.rdr, f.buffer, MaxLineSizeBytes+len(crlf))
	if err != nil {
		f.buffer = nil
		return nil, err
	}

	f.buffer = extra
	return line, nil
}

// ReadExact returns exactly n bytes, the buffered bytes first. Returns
// io.ErrUnexpectedEOF (or io.EOF if nothing was read) when the stream
// closes early; it never returns fewer than n bytes with a nil error.
//
// The result grows with the bytes actually received, so a peer declaring
// a huge length and then closing does not cause a huge allocation.
func (f *FrameReader) ReadExact(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.Wrapf(ErrBadFrame, "negative read length %d", n)
	}

	if n <= len(f.buffer) {
		b := make([]byte, n)
		copy(b, f.buffer)
		f.buffer = f.buffer[n:]
		return b, nil
	}

	var buf bytes.Buffer
	buf.Write(f.buffer)
	remaining := int64(n - len(f.buffer))
	f.buffer = f.buffer[:0]

	if _, err := io.CopyN(&buf, f.rdr, remaining); err != nil {
		if err == io.EOF && buf.Len() > 0 {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	return buf.Bytes(), nil
}

// Scan - Scans the provided "b" byte slice in search of a newline
// (\\r\\n) delimiter. If the provided slice does not have a newline,
// then scan the reader upto "limitBytes" bytes in search of the delimiter.
// Returns a triple of line, extra byte slice and an error
// The extra byte slice are any additional bytes read after encountering the
// delimiter.
func Scan(rdr io.Reader, b []byte, limitBytes int) ([]byte, []byte, error) {
	buf := make([]byte, 0)
	if len(b) > 0 {
		if left, right, ok := split(b); ok {
			return clone(left), clone(right), nil
		}
		buf = append(buf, b...)
	}

	// set to true if the last byte in last read call scanned is \r
	isLastByteCarriageReturn := len(buf) > 0 && buf[len(buf)-1] == '\r'
	bufSize := readBufferSizeBytes
	if bufSize > limitBytes {
		bufSize = limitBytes
	}

	for len(buf) < limitBytes {
		chunk := make([]byte, bufSize)
		n, err := rdr.Read(chunk)
		if n > 0 {
			// check the case when \r\n encounters on a buffer boundary
			// check to see if the first byte is a newline
			if isLastByteCarriageReturn && chunk[0] == '\n' {
				// discard the carriage return & newline, return the rest
				return buf[:len(buf)-1], clone(chunk[1:n]), nil
			}

			if left, right, ok := split(chunk[0:n]); ok {
				buf = append(buf, left...)
				return buf, clone(right), nil
			}

			buf = append(buf, chunk[0:n]...)
			isLastByteCarriageReturn = chunk[n-1] == '\r'
		}

		if err != nil {
			if err == io.EOF && len(buf) > 0 {
				return nil, nil, io.ErrUnexpectedEOF
			}
			return nil, nil, err
		}

		if n == 0 {
			return nil, nil, ErrNoData
		}
	}

	return nil, nil, ErrLineTooLong
}

// scans the input byte slice in search of a newline (\\r\\n) delimiter
// returns a triple of left and right hand slices and bool indicating if
// a result was found
func split(b []byte) ([]byte, []byte, bool) {
	if loc := DelimRe.FindIndex(b); loc != nil {
		return b[0:loc[0]], b[loc[1]:], true
	}

	return nil, nil, false
}

// return a clone of  the src byte slice
func clone(src []byte) []byte {
	// https://github.com/go101/go101/wiki/How-to-efficiently-clone-a-slice%3F
	return append(src[:0:0], src...)
}
