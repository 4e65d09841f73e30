package usecase

import "time"

// Scheduler defers a task; the AI reply is the one deliberately
// suspended continuation in the whole message flow. Tests substitute a
// manual implementation so the delay window needs no real time.
type Scheduler interface {
	Schedule(delay time.Duration, task func())
}

type timerScheduler struct{}

func NewTimerScheduler() Scheduler {
	return &timerScheduler{}
}

func (that *timerScheduler) Schedule(delay time.Duration, task func()) {
	time.AfterFunc(delay, task)
}
