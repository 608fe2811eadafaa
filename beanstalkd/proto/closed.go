package proto

import "sync/atomic"

// closedFlag records that a connection was closed. It is the only
// connection field safe to touch from another goroutine.
type closedFlag int32

// set marks the flag. Returns true only for the call that made the
// transition, so the close work runs once.
func (f *closedFlag) set() bool {
	return atomic.CompareAndSwapInt32((*int32)(f), 0, 1)
}

func (f *closedFlag) isSet() bool {
	return atomic.LoadInt32((*int32)(f)) == 1
}
