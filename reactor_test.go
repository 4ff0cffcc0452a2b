// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package libio_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HopeOfPaagrio/libio"
)

// fakeBackend is a Backend whose Wait sleeps for a fixed, test-controlled
// duration regardless of timeout, so timer-ordering tests don't depend on
// real fds or wall-clock scheduling jitter from an actual select(2) call.
type fakeBackend struct {
	sleep     time.Duration
	attached  map[*libio.Event]bool
	prepCalls int
}

func newFakeBackend(sleep time.Duration) *fakeBackend {
	return &fakeBackend{sleep: sleep, attached: map[*libio.Event]bool{}}
}

func (b *fakeBackend) Attach(e *libio.Event) error {
	b.attached[e] = true
	return nil
}
func (b *fakeBackend) Detach(e *libio.Event) error {
	delete(b.attached, e)
	return nil
}
func (b *fakeBackend) Wait(timeout time.Duration, ready func(*libio.Event)) error {
	time.Sleep(b.sleep)
	return nil
}
func (b *fakeBackend) Prep() error  { b.prepCalls++; return nil }
func (b *fakeBackend) Clean() error { return nil }
func (b *fakeBackend) Close() error { return nil }

// TestTimerOrderingUnderLongWait exercises timers at 100ms/200ms/500ms
// against a backend wait that blocks 350ms. The
// 100ms and 200ms timers must fire in that order; the 500ms timer has not
// expired yet and must stay attached.
func TestTimerOrderingUnderLongWait(t *testing.T) {
	backend := newFakeBackend(350 * time.Millisecond)
	loop := libio.NewLoop(libio.AllKinds, backend)

	var fired []string
	mk := func(name string) libio.Callback {
		return func(int, interface{}) { fired = append(fired, name) }
	}

	t100 := libio.NewTimerEvent(100*time.Millisecond, true, mk("100ms"), nil)
	t200 := libio.NewTimerEvent(200*time.Millisecond, true, mk("200ms"), nil)
	t500 := libio.NewTimerEvent(500*time.Millisecond, true, mk("500ms"), nil)
	require.NoError(t, loop.Attach(t100))
	require.NoError(t, loop.Attach(t200))
	require.NoError(t, loop.Attach(t500))

	require.NoError(t, loop.RunOnce())

	assert.Equal(t, []string{"100ms", "200ms"}, fired)
	assert.True(t, t500.Attached(), "one-shot 500ms timer was never fired, stays attached")

	loop.Break()
}

// TestBreakFromCallback exercises scenario: a callback that calls Break
// causes Run to stop after the current dispatch pass.
func TestBreakFromCallback(t *testing.T) {
	backend := newFakeBackend(0)
	loop := libio.NewLoop(libio.AllKinds, backend)

	calls := 0
	var ev *libio.Event
	ev = libio.NewTimerEvent(time.Millisecond, false, func(int, interface{}) {
		calls++
		loop.Break()
	}, nil)
	require.NoError(t, loop.Attach(ev))

	require.NoError(t, loop.Run())
	assert.Equal(t, 1, calls)
	assert.True(t, loop.Broken())
}

// TestSelfDetachInCallback exercises scenario: a callback that detaches its
// own (non-one-shot) event leaves it permanently detached and does not
// panic the reactor.
func TestSelfDetachInCallback(t *testing.T) {
	backend := newFakeBackend(2 * time.Millisecond)
	loop := libio.NewLoop(libio.AllKinds, backend)

	calls := 0
	var ev *libio.Event
	ev = libio.NewTimerEvent(time.Millisecond, false, func(int, interface{}) {
		calls++
		require.NoError(t, loop.Detach(ev))
	}, nil)
	require.NoError(t, loop.Attach(ev))

	require.NoError(t, loop.RunOnce())
	assert.Equal(t, 1, calls)
	assert.False(t, ev.Attached())
	assert.Equal(t, 0, loop.AttachedCount())
}

// TestOneShotReattachSurvives checks that a one-shot event whose callback
// re-attaches it is still attached after the callback returns.
func TestOneShotReattachSurvives(t *testing.T) {
	backend := newFakeBackend(2 * time.Millisecond)
	loop := libio.NewLoop(libio.AllKinds, backend)

	var ev *libio.Event
	ev = libio.NewTimerEvent(time.Millisecond, true, func(int, interface{}) {
		require.NoError(t, loop.Attach(ev))
	}, nil)
	require.NoError(t, loop.Attach(ev))

	require.NoError(t, loop.RunOnce())
	assert.True(t, ev.Attached())
}

func TestAttachRejectsUnacceptedKind(t *testing.T) {
	backend := newFakeBackend(0)
	loop := libio.NewLoop(libio.KindTimer, backend)
	ev := libio.NewReadEvent(0, true, func(int, interface{}) {}, nil)
	err := loop.Attach(ev)
	assert.ErrorIs(t, err, libio.ErrNotSupported)
}

func TestAttachTwiceIsBusy(t *testing.T) {
	backend := newFakeBackend(0)
	loop := libio.NewLoop(libio.AllKinds, backend)
	ev := libio.NewTimerEvent(time.Second, true, func(int, interface{}) {}, nil)
	require.NoError(t, loop.Attach(ev))
	err := loop.Attach(ev)
	assert.ErrorIs(t, err, libio.ErrBusy)
}

func TestFlagEventFiresWithoutBackendCall(t *testing.T) {
	backend := newFakeBackend(time.Hour) // would hang the test if ever invoked
	loop := libio.NewLoop(libio.AllKinds, backend)

	flag := true
	fired := false
	ev := libio.NewFlagEvent(&flag, true, func(int, interface{}) { fired = true }, nil)
	require.NoError(t, loop.Attach(ev))

	require.NoError(t, loop.RunOnce())
	assert.True(t, fired)
}

func TestRunExitsWhenAttachedCountReachesZero(t *testing.T) {
	backend := newFakeBackend(0)
	loop := libio.NewLoop(libio.AllKinds, backend)
	ev := libio.NewTimerEvent(time.Millisecond, true, func(int, interface{}) {}, nil)
	require.NoError(t, loop.Attach(ev))

	require.NoError(t, loop.Run())
	assert.Equal(t, 0, loop.AttachedCount())
}

func TestCloseDetachesEverything(t *testing.T) {
	backend := newFakeBackend(0)
	loop := libio.NewLoop(libio.AllKinds, backend)
	ev1 := libio.NewTimerEvent(time.Second, true, func(int, interface{}) {}, nil)
	ev2 := libio.NewTimerEvent(2*time.Second, true, func(int, interface{}) {}, nil)
	require.NoError(t, loop.Attach(ev1))
	require.NoError(t, loop.Attach(ev2))

	require.NoError(t, loop.Close())
	assert.Equal(t, 0, loop.AttachedCount())
}

func TestLastWaitAdvancesAcrossIterations(t *testing.T) {
	backend := newFakeBackend(time.Millisecond)
	loop := libio.NewLoop(libio.AllKinds, backend)
	ev := libio.NewTimerEvent(time.Hour, false, func(int, interface{}) {}, nil)
	require.NoError(t, loop.Attach(ev))

	require.NoError(t, loop.RunOnce())
	start1, end1 := loop.LastWait()
	assert.False(t, start1.IsZero())
	assert.True(t, end1.After(start1) || end1.Equal(start1))

	require.NoError(t, loop.RunOnce())
	start2, _ := loop.LastWait()
	assert.Equal(t, end1, start2, "the end of one iteration becomes the start of the next")
}
