// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package libio

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/HopeOfPaagrio/libio/internal/rlog"
	"github.com/HopeOfPaagrio/libio/internal/rmetrics"
	"github.com/HopeOfPaagrio/libio/internal/timerarray"
)

// WaitForever is passed to a Backend's Wait to block indefinitely.
const WaitForever time.Duration = -1

// Backend is the pluggable readiness multiplexer plugged into a Loop.
// The only concrete implementation provided here is a portable fd-set
// multiplexer (NewSelectBackend); other backend kinds are external
// collaborators whose interface this type specifies but does not
// implement.
type Backend interface {
	// Attach registers an event. Implementations that cannot monitor a
	// kind (e.g. a fd-set backend asked to watch KindSignal) return
	// ErrNotImplemented.
	Attach(e *Event) error
	// Detach unregisters a previously attached event.
	Detach(e *Event) error
	// Wait blocks for at most timeout (WaitForever to block indefinitely,
	// 0 to poll) and invokes ready for every event that became ready.
	Wait(timeout time.Duration, ready func(*Event)) error
	// Prep runs once at the top of every dispatch cycle, before Wait.
	Prep() error
	// Clean runs once at the bottom of every dispatch cycle, after
	// dispatch drains.
	Clean() error
	// Close releases backend resources.
	Close() error
}

// Loop is the single-threaded reactor: it owns the dispatch queue, the
// timer array, the flag list and a Backend. All of its methods
// must be called from the same goroutine; there is no internal locking,
// by design.
type Loop struct {
	accepted Kind
	backend  Backend

	attachedCount int
	broken        bool

	timers    *timerarray.Array[*Event]
	timerDebt time.Duration

	flagHead *Event

	queueHead, queueTail *Event

	lastWaitStart time.Time
	lastWaitEnd   time.Time
}

// NewLoop allocates a reactor accepting the given event kinds and backed
// by backend.
func NewLoop(accepted Kind, backend Backend) *Loop {
	l := &Loop{accepted: accepted, backend: backend}
	l.timers = timerarray.New[*Event](func(e *Event, remain int64) { e.remain = time.Duration(remain) })
	return l
}

// AttachedCount returns the number of currently attached events.
func (l *Loop) AttachedCount() int { return l.attachedCount }

// Broken reports whether Break has been called.
func (l *Loop) Broken() bool { return l.broken }

// LastWait returns the start and end timestamps of the most recently
// completed backend wait, for callers embedding the Loop that want to
// observe its duty cycle.
func (l *Loop) LastWait() (start, end time.Time) { return l.lastWaitStart, l.lastWaitEnd }

// Stats returns a snapshot of the process-wide reactor counters
// (wait calls, dispatched events, timer re-arms, bytes moved through
// attached queues), exposed so an embedding caller has some visibility
// into an otherwise opaque dispatch loop.
func (l *Loop) Stats() [rmetrics.Max]uint64 { return rmetrics.GetAll() }

// Attach attaches event to the reactor.
func (l *Loop) Attach(e *Event) error {
	if !l.accepted.Has(e.kind) {
		return errors.Wrapf(ErrNotSupported, "kind %s not accepted by this reactor", e.kind)
	}
	if e.Attached() {
		return errors.Wrap(ErrBusy, "event already attached")
	}

	var err error
	switch e.kind {
	case KindTimer:
		l.attachTimer(e)
	case KindFlag:
		l.appendFlag(e)
	default: // read, write, signal, child
		err = l.backend.Attach(e)
	}
	if err != nil {
		return err
	}
	e.loop = l
	l.attachedCount++
	return nil
}

// Detach detaches event from the reactor.
func (l *Loop) Detach(e *Event) error {
	if !e.Attached() || e.loop != l {
		return errors.Wrap(ErrInvalidArgument, "event not attached to this reactor")
	}

	var err error
	switch e.kind {
	case KindTimer:
		l.removeTimer(e)
	case KindFlag:
		l.removeFlag(e)
	default:
		err = l.backend.Detach(e)
	}
	if err != nil {
		return err
	}
	l.dequeue(e)
	l.attachedCount--
	e.loop = nil
	return nil
}

// Break requests that Run stop after the current iteration finishes.
func (l *Loop) Break() { l.broken = true }

// Close detaches every queued event, every flag event and every timer, then
// closes the backend, collecting every failure encountered along the way
// with go.uber.org/multierr rather than stopping at the first one. Read,
// write, signal and child events that are not in the dispatch queue are not
// detached: they keep their back-reference and stay counted in
// AttachedCount.
func (l *Loop) Close() error {
	var err error
	for l.queueHead != nil {
		e := l.queueHead
		err = multierr.Append(err, l.Detach(e))
	}
	for l.flagHead != nil {
		err = multierr.Append(err, l.Detach(l.flagHead))
	}
	for l.timers.Len() > 0 {
		err = multierr.Append(err, l.Detach(l.timers.At(0).Value))
	}
	err = multierr.Append(err, l.backend.Close())
	return err
}

// ---- timer array ----

func (l *Loop) attachTimer(e *Event) {
	if l.timerDebt > 0 {
		l.timers.ApplyDebt(int64(l.timerDebt))
		l.timerDebt = 0
	}
	e.remain = e.interval
	l.timers.Insert(int64(e.remain), e)
}

func (l *Loop) removeTimer(e *Event) {
	l.timers.Remove(int64(e.remain), func(v *Event) bool { return v == e })
}

// timerReset re-arms a non-one-shot timer after it fires: remove, set
// remain = interval + current remain (clamped to >=0), reinsert.
// This keeps a timer that runs slow from ever accumulating more than one
// interval of phase error, and it never drifts ahead of wall-clock.
func (l *Loop) timerReset(e *Event) {
	l.timers.Remove(int64(e.remain), func(v *Event) bool { return v == e })
	remain := e.interval + e.remain
	if remain < 0 {
		remain = 0
	}
	e.remain = remain
	l.timers.Insert(int64(e.remain), e)
}

// ---- flag list ----

func (l *Loop) appendFlag(e *Event) {
	e.fnext = l.flagHead
	if l.flagHead != nil {
		l.flagHead.fprev = e
	}
	e.fprev = nil
	l.flagHead = e
}

func (l *Loop) removeFlag(e *Event) {
	if e.fprev != nil {
		e.fprev.fnext = e.fnext
	} else if l.flagHead == e {
		l.flagHead = e.fnext
	}
	if e.fnext != nil {
		e.fnext.fprev = e.fprev
	}
	e.fnext, e.fprev = nil, nil
}

// evalFlags enqueues every flag event whose observed boolean is currently
// true.
func (l *Loop) evalFlags() {
	for e := l.flagHead; e != nil; e = e.fnext {
		if e.flag != nil && *e.flag {
			rmetrics.Add(rmetrics.FlagFires, 1)
			l.enqueue(e)
		}
	}
}

// ---- dispatch queue ----

func (l *Loop) enqueue(e *Event) {
	if e.queued() {
		return
	}
	e.opts |= optQueued
	e.qnext = nil
	e.qprev = l.queueTail
	if l.queueTail != nil {
		l.queueTail.qnext = e
	} else {
		l.queueHead = e
	}
	l.queueTail = e
}

func (l *Loop) dequeue(e *Event) {
	if !e.queued() {
		return
	}
	if e.qprev != nil {
		e.qprev.qnext = e.qnext
	} else {
		l.queueHead = e.qnext
	}
	if e.qnext != nil {
		e.qnext.qprev = e.qprev
	} else {
		l.queueTail = e.qprev
	}
	e.qnext, e.qprev = nil, nil
	e.opts &^= optQueued
}

// ---- dispatch cycle ----

// RunOnce runs one iteration of the dispatch cycle:
// backend prep, the timer-debt wait step, draining the dispatch queue, and
// backend clean.
func (l *Loop) RunOnce() error {
	if err := l.backend.Prep(); err != nil {
		return err
	}
	if err := l.waitWithTimers(); err != nil {
		return err
	}
	l.drain()
	return l.backend.Clean()
}

// Run loops RunOnce until Break is called or the attached count reaches
// zero. The "end" timestamp of one iteration becomes the "start" of the
// next, since time is not re-read between iterations, so timerDebt
// accounts for every nanosecond from loop entry onward.
func (l *Loop) Run() error {
	l.lastWaitEnd = time.Now()
	for !l.broken && l.attachedCount > 0 {
		if err := l.RunOnce(); err != nil {
			return err
		}
	}
	return nil
}

// waitWithTimers runs one backend wait, bounded by the nearest timer.
func (l *Loop) waitWithTimers() error {
	l.evalFlags()
	if l.queueHead != nil {
		// Something is already queued: dispatch it before calling the
		// backend at all.
		return nil
	}

	timeout := WaitForever
	if l.timers.Len() > 0 {
		timeout = time.Duration(l.timers.At(0).Remain) - l.timerDebt
		if timeout < 0 {
			timeout = 0
		}
	}

	start := l.lastWaitEnd
	if start.IsZero() {
		start = time.Now()
	}
	rmetrics.Add(rmetrics.BackendWaitCalls, 1)
	waitErr := l.backend.Wait(timeout, func(e *Event) {
		rmetrics.Add(rmetrics.BackendReadyEvents, 1)
		l.enqueue(e)
	})
	end := time.Now()
	l.lastWaitStart, l.lastWaitEnd = start, end
	if waitErr != nil {
		rmetrics.Add(rmetrics.BackendWaitErrors, 1)
		return waitErr
	}

	l.timerDebt += end.Sub(start)
	if l.timers.Len() == 0 || l.timerDebt < time.Duration(l.timers.At(0).Remain) {
		// No timer expired; debt stays outstanding until it does, or
		// until the next Attach applies it.
		return nil
	}

	l.timers.ApplyDebt(int64(l.timerDebt))
	l.timerDebt = 0
	for _, e := range l.timers.PopExpired() {
		rmetrics.Add(rmetrics.TimerFires, 1)
		l.enqueue(e)
	}
	return nil
}

// drain pops the dispatch queue FIFO, dispatching each event exactly once
// per pass.
func (l *Loop) drain() {
	for l.queueHead != nil {
		e := l.queueHead
		l.dequeue(e)
		l.dispatch(e)
	}
}

// dispatch runs the single-event protocol: remember the option set, clear
// free so a self-detach inside the callback doesn't race a concurrent
// free, detach now if one-shot (so the callback may legally re-attach
// it), invoke the callback, and only then decide whether to re-arm.
//
// A one-shot event is detached before its callback runs. If the callback
// does not re-attach it, its life is over, and Go's GC reclaims it. If
// the callback re-attaches it, that works without extra work: Attach
// already restored e.loop and the queue bookkeeping.
func (l *Loop) dispatch(e *Event) {
	remembered := e.opts
	e.opts &^= optFree

	if remembered&optOnce != 0 {
		if err := l.Detach(e); err != nil {
			rlog.Debugf("libio: detach one-shot event before dispatch: %v", err)
		}
	}

	fd := e.FD()
	rmetrics.Add(rmetrics.DispatchedEvents, 1)
	if e.cb != nil {
		e.cb(fd, e.arg)
	}

	if !e.Attached() {
		// Either a one-shot event nobody re-attached, or the callback
		// self-detached a non-one-shot event. Nothing left to do.
		return
	}
	if remembered&optOnce == 0 && e.kind == KindTimer {
		// Still attached, not one-shot: re-arm.
		rmetrics.Add(rmetrics.TimerRearms, 1)
		l.timerReset(e)
	}
}
