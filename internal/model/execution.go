package model

import "time"

// Execution is the persisted record of one supervised run, kept in the
// history store.
type Execution struct {
	ID       string
	Command  string
	Shell    bool
	ExitCode int
	TimedOut bool
	// Interrupted marks runs cut short by a caller interrupt.
	Interrupted bool
	Duration    time.Duration
	CreatedAt   time.Time
}
