// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build linux
// +build linux

package libio

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/HopeOfPaagrio/libio/internal/rlog"
)

// Wait implements Backend: copy the active sets into scratch sets, block
// in select(2) for at most timeout, then enqueue every event whose fd
// came back set. A null timeout blocks indefinitely; an all-zero timeout
// polls without blocking.
//
// The platform call can mutate its timeval argument, so timeout is always
// copied into a fresh local before the syscall.
func (b *SelectBackend) Wait(timeout time.Duration, ready func(*Event)) error {
	var rset, wset unix.FdSet
	for fd := 0; fd <= b.highFD; fd++ {
		if fd < len(b.readers) && b.readers[fd].event != nil {
			fdSet(&rset, fd)
		}
		if fd < len(b.writers) && b.writers[fd].event != nil {
			fdSet(&wset, fd)
		}
	}

	var tv *unix.Timeval
	if timeout != WaitForever {
		if timeout < 0 {
			timeout = 0
		}
		local := unix.NsecToTimeval(timeout.Nanoseconds())
		tv = &local
	}

	n, err := unix.Select(b.highFD+1, &rset, &wset, nil, tv)
	if err != nil {
		// Interrupted syscalls are propagated to the reactor rather than
		// retried here, per the select(2) backend's failure model.
		rlog.Debugf("libio: select failed: %v", err)
		return err
	}
	if n <= 0 {
		return nil
	}

	for fd := 0; fd <= b.highFD; fd++ {
		if fd < len(b.readers) && b.readers[fd].event != nil && fdIsSet(&rset, fd) {
			ready(b.readers[fd].event)
		}
		if fd < len(b.writers) && b.writers[fd].event != nil && fdIsSet(&wset, fd) {
			ready(b.writers[fd].event)
		}
	}
	return nil
}

func fdSet(set *unix.FdSet, fd int) {
	set.Bits[fd/64] |= 1 << (uint(fd) % 64)
}

func fdIsSet(set *unix.FdSet, fd int) bool {
	return set.Bits[fd/64]&(1<<(uint(fd)%64)) != 0
}
