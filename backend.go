// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build linux
// +build linux

package libio

// selectWord is the platform fd-set word size used as the floor for the
// select backend's geometric growth. unix.FdSet stores 1024 bits as an
// array of 16 int64 words on 64-bit platforms; the floor matches that
// width so a single-word fd-set never needs to grow on first use.
const selectWord = 64

// maxSelectFD is FD_SETSIZE: unix.FdSet is a fixed 1024-bit array, so a fd
// at or beyond it would index past the array regardless of how far the
// slot tables themselves have grown.
const maxSelectFD = 1024

// slot records one attached read or write event so Detach and the
// high-watermark walk can find it again by fd.
type slot struct {
	event *Event
}

// SelectBackend is the portable fd-set multiplexer specified as the only
// concrete Backend this library implements; it is backed by the
// platform's select(2) through golang.org/x/sys/unix, grounded on the
// teacher's epoll-based poller (internal/poller/poller_epoll.go) for overall
// shape, but using select's read/write fd-set pair and a local timeval copy
// rather than epoll_wait.
type SelectBackend struct {
	readers, writers []slot
	highFD           int
}

var _ Backend = (*SelectBackend)(nil)

// NewSelectBackend allocates an empty select-based Backend.
func NewSelectBackend() *SelectBackend {
	return &SelectBackend{highFD: -1}
}

func growSlots(s []slot, need int) []slot {
	size := len(s)
	if size == 0 {
		size = selectWord
	}
	for size <= need {
		size *= 2
	}
	if size == len(s) {
		return s
	}
	grown := make([]slot, size)
	copy(grown, s)
	return grown
}

func (b *SelectBackend) slotsFor(kind Kind) *[]slot {
	if kind == KindWrite {
		return &b.writers
	}
	return &b.readers
}

// Attach implements Backend. Only KindRead and KindWrite are supported by a
// fd-set backend; KindSignal and KindChild are external collaborators with
// no select(2) representation and report ErrNotImplemented.
func (b *SelectBackend) Attach(e *Event) error {
	if e.kind != KindRead && e.kind != KindWrite {
		return ErrNotImplemented
	}
	fd := e.fd
	if fd < 0 || fd >= maxSelectFD {
		return ErrInvalidArgument
	}
	slots := b.slotsFor(e.kind)
	*slots = growSlots(*slots, fd)
	if (*slots)[fd].event != nil {
		return ErrBusy
	}
	(*slots)[fd].event = e
	if fd > b.highFD {
		b.highFD = fd
	}
	return nil
}

// Detach implements Backend.
func (b *SelectBackend) Detach(e *Event) error {
	if e.kind != KindRead && e.kind != KindWrite {
		return ErrNotImplemented
	}
	fd := e.fd
	slots := b.slotsFor(e.kind)
	if fd < 0 || fd >= len(*slots) || (*slots)[fd].event != e {
		return ErrInvalidArgument
	}
	(*slots)[fd].event = nil
	if fd == b.highFD {
		b.lowerHighWatermark()
	}
	return nil
}

func (b *SelectBackend) lowerHighWatermark() {
	for fd := b.highFD; fd >= 0; fd-- {
		if b.occupied(fd) {
			b.highFD = fd
			return
		}
	}
	b.highFD = -1
}

func (b *SelectBackend) occupied(fd int) bool {
	if fd < len(b.readers) && b.readers[fd].event != nil {
		return true
	}
	if fd < len(b.writers) && b.writers[fd].event != nil {
		return true
	}
	return false
}

// Prep implements Backend; the select backend needs no per-cycle setup.
func (b *SelectBackend) Prep() error { return nil }

// Clean implements Backend; the select backend needs no per-cycle teardown.
func (b *SelectBackend) Clean() error { return nil }

// Close implements Backend; the select backend owns no kernel resources of
// its own (every fd it watches is owned by the caller that created it), so
// Close only needs to drop its references.
func (b *SelectBackend) Close() error {
	b.readers, b.writers = nil, nil
	b.highFD = -1
	return nil
}
