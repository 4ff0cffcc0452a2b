// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package libio

import (
	"time"

	"github.com/pkg/errors"

	"github.com/HopeOfPaagrio/libio/internal/rlog"
)

// defaultWatermark is the minimum quota a direction needs before the
// limiter re-arms its watch on the base queue's own readiness.
const defaultWatermark = 1

// rateLimiter wraps a base Queue with a per-direction byte-rate budget.
// It owns a 1-second timer event (attached only while at least one rate
// is non-zero) that replenishes the quotas, and it watches the base
// queue's own send/recv readiness only when a direction has quota to
// spend, via the trigger step below. Its own readiness is exposed purely
// as a flag event over the ready booleans the trigger step sets, so
// observing it costs the reactor no syscall.
type rateLimiter struct {
	base Queue
	loop *Loop

	sendRate, recvRate   uint64 // bytes/second; 0 = unlimited
	sendQuota, recvQuota uint64

	readySend, readyRecv bool

	timer                    *Event
	watchSend, watchRecv     *Event // one-shot watches on base.SendEvent/RecvEvent
}

var _ Queue = (*rateLimiter)(nil)

// NewRateLimiter wraps base with a send/recv byte-rate limit. A rate of 0
// means unlimited in that direction.
func NewRateLimiter(loop *Loop, base Queue, sendRate, recvRate uint64) (Queue, error) {
	l := &rateLimiter{base: base, loop: loop}
	if err := l.restart(sendRate, recvRate); err != nil {
		return nil, err
	}
	return l, nil
}

// restart backs both Set on limit_send/limit_recv and the constructor's
// initial start: detach any existing timer/watches, reset quotas clamped
// to the new rates, and re-attach the timer only if at least one rate is
// non-zero.
func (l *rateLimiter) restart(sendRate, recvRate uint64) error {
	l.stop()
	l.sendRate, l.recvRate = sendRate, recvRate
	l.sendQuota, l.recvQuota = sendRate, recvRate
	l.readySend, l.readyRecv = false, false

	if sendRate != 0 || recvRate != 0 {
		l.timer = NewTimerEvent(time.Second, false, l.onTick, nil)
		if err := l.loop.Attach(l.timer); err != nil {
			return errors.Wrap(err, "attach rate limiter timer")
		}
	}
	l.trigger()
	return nil
}

func (l *rateLimiter) stop() {
	if l.timer != nil {
		if err := l.loop.Detach(l.timer); err != nil {
			rlog.Debugf("libio: detach rate limiter timer: %v", err)
		}
		l.timer = nil
	}
	if l.watchSend != nil {
		if err := l.loop.Detach(l.watchSend); err != nil {
			rlog.Debugf("libio: detach rate limiter send watch: %v", err)
		}
		l.watchSend = nil
	}
	if l.watchRecv != nil {
		if err := l.loop.Detach(l.watchRecv); err != nil {
			rlog.Debugf("libio: detach rate limiter recv watch: %v", err)
		}
		l.watchRecv = nil
	}
}

func (l *rateLimiter) onTick(int, interface{}) {
	// Adds the configured rate to each quota. Unspent quota from an idle
	// second is allowed to carry forward and accumulate; only (re)starting
	// the limiter clamps the quota back down to the rate.
	l.sendQuota += l.sendRate
	l.recvQuota += l.recvRate
	l.trigger()
}

// trigger attaches a one-shot watch on the base queue's own readiness event
// for each direction that currently has quota to spend (or is unlimited),
// and leaves a throttled direction unwatched until the next tick or spend
// frees it up.
func (l *rateLimiter) trigger() {
	if l.watchSend != nil && l.sendRate != 0 && l.sendQuota < defaultWatermark {
		if err := l.loop.Detach(l.watchSend); err != nil {
			rlog.Debugf("libio: detach rate limiter send watch: %v", err)
		}
		l.watchSend = nil
	}
	if l.watchRecv != nil && l.recvRate != 0 && l.recvQuota < defaultWatermark {
		if err := l.loop.Detach(l.watchRecv); err != nil {
			rlog.Debugf("libio: detach rate limiter recv watch: %v", err)
		}
		l.watchRecv = nil
	}
	if !l.readySend && (l.sendRate == 0 || l.sendQuota >= defaultWatermark) && l.watchSend == nil {
		l.watchSend = l.base.SendEvent(true, l.onBaseSendReady, nil)
		if err := l.loop.Attach(l.watchSend); err != nil {
			rlog.Debugf("libio: attach rate limiter send watch: %v", err)
			l.watchSend = nil
		}
	}
	if !l.readyRecv && (l.recvRate == 0 || l.recvQuota >= defaultWatermark) && l.watchRecv == nil {
		l.watchRecv = l.base.RecvEvent(true, l.onBaseRecvReady, nil)
		if err := l.loop.Attach(l.watchRecv); err != nil {
			rlog.Debugf("libio: attach rate limiter recv watch: %v", err)
			l.watchRecv = nil
		}
	}
}

func (l *rateLimiter) onBaseSendReady(int, interface{}) {
	l.watchSend = nil // one-shot: already detached by the reactor
	l.readySend = true
}

func (l *rateLimiter) onBaseRecvReady(int, interface{}) {
	l.watchRecv = nil
	l.readyRecv = true
}

func (l *rateLimiter) spend(quota *uint64, ready *bool, n int) {
	if n <= 0 {
		return
	}
	spent := uint64(n)
	if spent > *quota {
		spent = *quota
	}
	*quota -= spent
	*ready = false
	l.trigger()
}

func (l *rateLimiter) MaxSize() (int, error)  { return l.base.MaxSize() }
func (l *rateLimiter) NextSize() (int, error) { return l.base.NextSize() }

func (l *rateLimiter) Send(bufs [][]byte, to Endpoint) (int, error) {
	n, err := l.base.Send(bufs, to)
	if err == nil {
		l.spend(&l.sendQuota, &l.readySend, n)
	}
	return n, err
}

func (l *rateLimiter) Recv(bufs [][]byte, fromOut *Endpoint) (int, error) {
	n, err := l.base.Recv(bufs, fromOut)
	if err == nil {
		l.spend(&l.recvQuota, &l.readyRecv, n)
	}
	return n, err
}

func (l *rateLimiter) RecvAllocating(fromOut *Endpoint) ([]byte, error) {
	buf, err := l.base.RecvAllocating(fromOut)
	if err == nil {
		l.spend(&l.recvQuota, &l.readyRecv, len(buf))
	}
	return buf, err
}

// SendEvent implements Queue: a flag event over the limiter's own ready
// boolean, not the base queue's fd.
func (l *rateLimiter) SendEvent(once bool, cb Callback, arg interface{}) *Event {
	return NewFlagEvent(&l.readySend, once, cb, arg)
}

// RecvEvent implements Queue: a flag event over the limiter's own ready
// boolean.
func (l *rateLimiter) RecvEvent(once bool, cb Callback, arg interface{}) *Event {
	return NewFlagEvent(&l.readyRecv, once, cb, arg)
}

// Get implements Queue: limit_send/limit_recv report the configured rate;
// everything else passes through to the base queue.
func (l *rateLimiter) Get(p *Param) (interface{}, error) {
	switch p {
	case ParamLimitSend:
		return l.sendRate, nil
	case ParamLimitRecv:
		return l.recvRate, nil
	default:
		return l.base.Get(p)
	}
}

// Set implements Queue: setting limit_send/limit_recv stops and restarts
// the limiter with the new rate; everything else passes through.
func (l *rateLimiter) Set(p *Param, value interface{}) error {
	switch p {
	case ParamLimitSend:
		v, ok := toUint64(value)
		if !ok {
			return ErrInvalidArgument
		}
		return l.restart(v, l.recvRate)
	case ParamLimitRecv:
		v, ok := toUint64(value)
		if !ok {
			return ErrInvalidArgument
		}
		return l.restart(l.sendRate, v)
	default:
		return l.base.Set(p, value)
	}
}

func toUint64(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	default:
		return 0, false
	}
}

// Close stops the limiter's timer and watch events before closing the base
// queue.
func (l *rateLimiter) Close() error {
	l.stop()
	return l.base.Close()
}
