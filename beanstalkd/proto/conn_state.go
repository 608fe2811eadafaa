package proto

type ConnState int

const (
	// Conn is idle and ready to send a command
	Connected ConnState = iota

	// Conn has sent a command and is reading its response
	AwaitingResponse

	// Conn is closed, either by the caller (Quit, Close) or after a
	// transport failure or a malformed frame
	Closed
)

var connStateNames = [...]string{
	Connected:        "Connected",
	AwaitingResponse: "AwaitingResponse",
	Closed:           "Closed",
}

func (s ConnState) String() string {
	if s < Connected || s > Closed {
		return "Unknown"
	}
	return connStateNames[s]
}
