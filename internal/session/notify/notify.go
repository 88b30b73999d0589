// Package notify carries transient user-facing messages out of the session
// core.
package notify

import (
	"slices"
	"sync"
)

// Level is the severity of a notification.
type Level int

const (
	LevelSuccess Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "success"
}

// Notification is one message for the user.
type Notification struct {
	Level Level
	// Op names the operation that produced the message, e.g. "cart.add".
	Op      string
	Message string
	Err     error
}

// Notifier receives notifications.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to Notifier.
type Func func(n Notification)

func (f Func) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Notifier = Func(func(Notification) {})

// Multi fans out to every notifier in order.
func Multi(ns ...Notifier) Notifier {
	return Func(func(n Notification) {
		for _, to := range ns {
			to.Notify(n)
		}
	})
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu   sync.Mutex
	list []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	r.list = append(r.list, n)
	r.mu.Unlock()
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.list)
}

// Len returns the number of recorded notifications.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.list)
}
