// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package libio

import "time"

// Callback is invoked when an Event fires. fd is the descriptor for
// KindRead/KindWrite events, -1 otherwise.
type Callback func(fd int, arg interface{})

// eventOptions is the small option bit-set carried by every Event: once
// (detach before firing), free (release the Event's memory once it can no
// longer fire) and queued (present exactly once in the dispatch queue).
type eventOptions uint8

const (
	optOnce eventOptions = 1 << iota
	optFree
	optQueued
)

// Event is a tagged, kind-parameterized value attachable to at most one
// Loop at a time. The zero value is not usable; construct with the
// kind-specific New*Event factories.
type Event struct {
	kind Kind
	opts eventOptions
	cb   Callback
	arg  interface{}
	loop *Loop // back-reference; non-nil iff attached

	fd int // KindRead / KindWrite

	interval time.Duration // KindTimer
	remain   time.Duration // KindTimer, time remaining until fire

	signum int // KindSignal

	pid int // KindChild

	flag *bool // KindFlag: polled each iteration at wait-entry

	qnext, qprev *Event // dispatch-queue links
	fnext, fprev *Event // flag-list links
}

// NewReadEvent creates a one-shot-capable event that fires when fd is
// readable.
func NewReadEvent(fd int, once bool, cb Callback, arg interface{}) *Event {
	return newFDEvent(KindRead, fd, once, cb, arg)
}

// NewWriteEvent creates a one-shot-capable event that fires when fd is
// writable.
func NewWriteEvent(fd int, once bool, cb Callback, arg interface{}) *Event {
	return newFDEvent(KindWrite, fd, once, cb, arg)
}

func newFDEvent(kind Kind, fd int, once bool, cb Callback, arg interface{}) *Event {
	e := &Event{kind: kind, fd: fd, cb: cb, arg: arg}
	if once {
		e.opts |= optOnce
	}
	return e
}

// NewTimerEvent creates an event that fires after interval has elapsed.
// If once is false, the timer is re-armed with the same interval after
// every firing.
func NewTimerEvent(interval time.Duration, once bool, cb Callback, arg interface{}) *Event {
	e := &Event{kind: KindTimer, interval: interval, remain: interval, cb: cb, arg: arg}
	if once {
		e.opts |= optOnce
	}
	return e
}

// NewSignalEvent creates an event for signal signum. Loop.Attach hands it
// to the Backend, which reports it ready when signum is raised. The
// concrete OS signal-delivery mechanism is an external collaborator;
// SelectBackend rejects this kind with ErrNotImplemented.
func NewSignalEvent(signum int, once bool, cb Callback, arg interface{}) *Event {
	e := &Event{kind: KindSignal, signum: signum, cb: cb, arg: arg}
	if once {
		e.opts |= optOnce
	}
	return e
}

// NewChildEvent creates an event for child process pid. Loop.Attach hands
// it to the Backend, which reports it ready when pid is reaped. The
// concrete child-reap mechanism is an external collaborator;
// SelectBackend rejects this kind with ErrNotImplemented.
func NewChildEvent(pid int, once bool, cb Callback, arg interface{}) *Event {
	e := &Event{kind: KindChild, pid: pid, cb: cb, arg: arg}
	if once {
		e.opts |= optOnce
	}
	return e
}

// NewFlagEvent creates an event whose trigger condition is *flag, polled
// at the start of every wait.
func NewFlagEvent(flag *bool, once bool, cb Callback, arg interface{}) *Event {
	e := &Event{kind: KindFlag, flag: flag, cb: cb, arg: arg}
	if once {
		e.opts |= optOnce
	}
	return e
}

// SetFree sets or clears the event's free option. The Loop never releases
// an Event's memory itself: dispatch clears the option before running the
// callback, and a detached Event is reclaimed by the garbage collector once
// nothing references it.
func (e *Event) SetFree(free bool) {
	if free {
		e.opts |= optFree
	} else {
		e.opts &^= optFree
	}
}

// Kind returns the event's kind.
func (e *Event) Kind() Kind { return e.kind }

// Attached reports whether the event currently has a reactor back-reference.
func (e *Event) Attached() bool { return e.loop != nil }

// FD returns the file descriptor for KindRead/KindWrite events, -1 otherwise.
func (e *Event) FD() int {
	if e.kind == KindRead || e.kind == KindWrite {
		return e.fd
	}
	return -1
}

func (e *Event) queued() bool { return e.opts&optQueued != 0 }
