package ports

import "time"

// Timer is a pending delayed callback.
type Timer interface {
	// Stop cancels the callback. It returns false if the callback already ran or was stopped.
	Stop() bool
}

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}
