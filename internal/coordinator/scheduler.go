package coordinator

import "time"

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler arms one-shot timers.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// RealScheduler uses the runtime timers. When Post is set the callback is
// handed to it instead of running on the timer goroutine.
type RealScheduler struct {
	Post func(fn func())
}

func (s RealScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	if s.Post == nil {
		return time.AfterFunc(d, fn)
	}
	post := s.Post
	return time.AfterFunc(d, func() { post(fn) })
}
