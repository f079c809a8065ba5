package scan

import "fmt"

// State is a stage of a scan
type State int32

// States of a scan. TimedOut and StreamError are terminal.
const (
	StateIdle State = iota
	StateSubscribing
	StatePolling
	StateTimedOut
	StateStreamError
)

var stateNames = [...]string{
	StateIdle:        "idle",
	StateSubscribing: "subscribing",
	StatePolling:     "polling",
	StateTimedOut:    "timed-out",
	StateStreamError: "stream-error",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Terminal tells whether the scan has finished
func (s State) Terminal() bool {
	return s == StateTimedOut || s == StateStreamError
}
