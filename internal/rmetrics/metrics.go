// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Package rmetrics provides runtime monitoring counters for the reactor,
// useful for tuning wait/dispatch behavior.
package rmetrics

import "go.uber.org/atomic"

// All metrics definitions.
const (
	BackendWaitCalls = iota
	BackendWaitErrors
	BackendReadyEvents
	TimerFires
	TimerRearms
	FlagFires
	DispatchedEvents
	QueueBytesSent
	QueueBytesRecv
	LimiterThrottled
	Max
)

var metrics [Max]atomic.Uint64

// Add adds delta to the named counter.
func Add(name int, delta uint64) {
	if name < 0 || name >= Max {
		return
	}
	metrics[name].Add(delta)
}

// Get returns the current value of the named counter.
func Get(name int) uint64 {
	if name < 0 || name >= Max {
		return 0
	}
	return metrics[name].Load()
}

// GetAll returns a snapshot of every counter.
func GetAll() [Max]uint64 {
	var m [Max]uint64
	for i := range metrics {
		m[i] = metrics[i].Load()
	}
	return m
}
