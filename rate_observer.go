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

// rateObserver wraps a base Queue and counts bytes sent/received during the
// current second, exposing the previous second's totals as read-only
// parameters. It installs its own 1-second timer event on
// the Loop it is attached to; a rate decorator owns a private timer
// rather than sharing the caller's.
type rateObserver struct {
	base Queue
	loop *Loop

	sentThisSecond uint64
	recvThisSecond uint64
	lastSent       uint64
	lastRecv       uint64

	timer *Event
}

var _ Queue = (*rateObserver)(nil)

// NewRateObserver wraps base with byte-rate observation, attaching a
// 1-second timer event to loop.
func NewRateObserver(loop *Loop, base Queue) (Queue, error) {
	o := &rateObserver{base: base, loop: loop}
	o.timer = NewTimerEvent(time.Second, false, o.onTick, nil)
	if err := loop.Attach(o.timer); err != nil {
		return nil, errors.Wrap(err, "attach rate observer timer")
	}
	return o, nil
}

func (o *rateObserver) onTick(int, interface{}) {
	o.lastSent, o.sentThisSecond = o.sentThisSecond, 0
	o.lastRecv, o.recvThisSecond = o.recvThisSecond, 0
}

func (o *rateObserver) MaxSize() (int, error)  { return o.base.MaxSize() }
func (o *rateObserver) NextSize() (int, error) { return o.base.NextSize() }

func (o *rateObserver) Send(bufs [][]byte, to Endpoint) (int, error) {
	n, err := o.base.Send(bufs, to)
	if err == nil && n > 0 {
		o.sentThisSecond += uint64(n)
	}
	return n, err
}

func (o *rateObserver) Recv(bufs [][]byte, fromOut *Endpoint) (int, error) {
	n, err := o.base.Recv(bufs, fromOut)
	if err == nil && n > 0 {
		o.recvThisSecond += uint64(n)
	}
	return n, err
}

func (o *rateObserver) RecvAllocating(fromOut *Endpoint) ([]byte, error) {
	buf, err := o.base.RecvAllocating(fromOut)
	if err == nil {
		o.recvThisSecond += uint64(len(buf))
	}
	return buf, err
}

func (o *rateObserver) SendEvent(once bool, cb Callback, arg interface{}) *Event {
	return o.base.SendEvent(once, cb, arg)
}

func (o *rateObserver) RecvEvent(once bool, cb Callback, arg interface{}) *Event {
	return o.base.RecvEvent(once, cb, arg)
}

// Get implements Queue: rate_send/rate_recv report last-second totals;
// everything else passes through to the base queue.
func (o *rateObserver) Get(p *Param) (interface{}, error) {
	switch p {
	case ParamRateSend:
		return o.lastSent, nil
	case ParamRateRecv:
		return o.lastRecv, nil
	default:
		return o.base.Get(p)
	}
}

// Set implements Queue: rate_send/rate_recv are read-only on the
// observer; everything else passes through.
func (o *rateObserver) Set(p *Param, value interface{}) error {
	switch p {
	case ParamRateSend, ParamRateRecv:
		return errors.Wrapf(ErrPermission, "parameter %s is read-only on a rate observer", p)
	default:
		return o.base.Set(p, value)
	}
}

// Close detaches the observer's timer before closing the base queue,
// logging rather than failing the whole Close if the timer was already
// gone, since a destructor always frees its own storage.
func (o *rateObserver) Close() error {
	if err := o.loop.Detach(o.timer); err != nil {
		rlog.Debugf("libio: detach rate observer timer: %v", err)
	}
	return o.base.Close()
}
