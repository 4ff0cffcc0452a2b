// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build linux
// +build linux

package libio_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/HopeOfPaagrio/libio"
)

func TestSelectBackendReadReady(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	backend := libio.NewSelectBackend()
	loop := libio.NewLoop(libio.KindRead, backend)

	fired := false
	ev := libio.NewReadEvent(fds[0], true, func(int, interface{}) { fired = true }, nil)
	require.NoError(t, loop.Attach(ev))

	_, err = unix.Write(fds[1], []byte("x"))
	require.NoError(t, err)

	require.NoError(t, loop.RunOnce())
	assert.True(t, fired)
}

func TestSelectBackendDetachLowersHighWatermark(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	backend := libio.NewSelectBackend()
	loop := libio.NewLoop(libio.KindRead, backend)

	ev := libio.NewReadEvent(fds[0], true, func(int, interface{}) {}, nil)
	require.NoError(t, loop.Attach(ev))
	require.NoError(t, loop.Detach(ev))

	// Nothing is attached any more; a short timeout poll must return
	// promptly rather than blocking indefinitely.
	done := make(chan error, 1)
	go func() { done <- backend.Wait(10*time.Millisecond, func(*libio.Event) {}) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("select backend Wait did not return")
	}
}

func TestSelectBackendRejectsUnsupportedKind(t *testing.T) {
	backend := libio.NewSelectBackend()
	ev := libio.NewSignalEvent(1, true, func(int, interface{}) {}, nil)
	err := backend.Attach(ev)
	assert.ErrorIs(t, err, libio.ErrNotImplemented)
}
