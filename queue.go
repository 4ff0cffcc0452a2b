// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package libio

// Queue is a datagram-oriented transport: a common surface shared by
// the concrete socket queue and its rate-observer/rate-limiter decorators,
// a composable queue stack layered on top of a single polymorphic
// dispatch point.
type Queue interface {
	// MaxSize reports the largest single datagram the queue can send, or
	// an effectively infinite value if the concrete queue imposes none.
	MaxSize() (int, error)
	// NextSize reports the number of bytes in the next readable datagram,
	// without consuming it. Never over-reports.
	NextSize() (int, error)
	// Send gather-sends bufs to the endpoint, or the queue's default peer
	// if to is nil. Returns the number of bytes sent.
	Send(bufs [][]byte, to Endpoint) (int, error)
	// Recv scatter-receives into bufs. If fromOut is non-nil, *fromOut
	// receives a newly allocated sender Endpoint whose ownership transfers
	// to the caller.
	Recv(bufs [][]byte, fromOut *Endpoint) (int, error)
	// RecvAllocating peeks NextSize, allocates exactly that many bytes,
	// and receives into them. On failure the allocation is discarded.
	RecvAllocating(fromOut *Endpoint) ([]byte, error)
	// SendEvent returns an event that fires when the queue is writable.
	SendEvent(once bool, cb Callback, arg interface{}) *Event
	// RecvEvent returns an event that fires when the queue is readable.
	RecvEvent(once bool, cb Callback, arg interface{}) *Event
	// Get reads a parameter identified by tag identity.
	Get(p *Param) (interface{}, error)
	// Set applies a parameter identified by tag identity.
	Set(p *Param, value interface{}) error
	// Close releases the queue's storage; always succeeds in freeing the
	// queue even if it also reports an error.
	Close() error
}
