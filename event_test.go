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

	"github.com/HopeOfPaagrio/libio"
)

func TestNewReadEventFD(t *testing.T) {
	ev := libio.NewReadEvent(7, true, func(int, interface{}) {}, nil)
	assert.Equal(t, 7, ev.FD())
	assert.Equal(t, libio.KindRead, ev.Kind())
	assert.False(t, ev.Attached())
}

func TestTimerEventFDIsAlwaysNegativeOne(t *testing.T) {
	ev := libio.NewTimerEvent(time.Second, true, func(int, interface{}) {}, nil)
	assert.Equal(t, -1, ev.FD())
	assert.Equal(t, libio.KindTimer, ev.Kind())
}

func TestFlagEventKind(t *testing.T) {
	flag := false
	ev := libio.NewFlagEvent(&flag, true, func(int, interface{}) {}, nil)
	assert.Equal(t, libio.KindFlag, ev.Kind())
	assert.Equal(t, -1, ev.FD())
}

func TestKindStringAndHas(t *testing.T) {
	assert.Equal(t, "Read", libio.KindRead.String())
	assert.True(t, libio.AllKinds.Has(libio.KindTimer))
	assert.False(t, libio.KindRead.Has(libio.KindWrite))
}
