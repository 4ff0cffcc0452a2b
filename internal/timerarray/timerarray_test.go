// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package timerarray_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HopeOfPaagrio/libio/internal/timerarray"
)

func TestInsertKeepsSortedOrder(t *testing.T) {
	a := timerarray.New[string](nil)
	a.Insert(500, "c")
	a.Insert(100, "a")
	a.Insert(200, "b")

	require.True(t, a.Sorted())
	require.Equal(t, 3, a.Len())
	assert.Equal(t, "a", a.At(0).Value)
	assert.Equal(t, "b", a.At(1).Value)
	assert.Equal(t, "c", a.At(2).Value)
}

func TestRemoveByIdentity(t *testing.T) {
	a := timerarray.New[string](nil)
	a.Insert(100, "a")
	a.Insert(100, "b")

	ok := a.Remove(100, func(v string) bool { return v == "b" })
	require.True(t, ok)
	require.Equal(t, 1, a.Len())
	assert.Equal(t, "a", a.At(0).Value)

	ok = a.Remove(100, func(v string) bool { return v == "gone" })
	assert.False(t, ok)
}

func TestApplyDebtAndPopExpired(t *testing.T) {
	a := timerarray.New[string](nil)
	a.Insert(100, "a")
	a.Insert(200, "b")
	a.Insert(500, "c")

	a.ApplyDebt(350)
	popped := a.PopExpired()
	assert.Equal(t, []string{"a", "b"}, popped)
	require.Equal(t, 1, a.Len())
	assert.Equal(t, int64(150), a.At(0).Remain)
}

func TestSyncMirrorsRemain(t *testing.T) {
	type holder struct{ remain int64 }
	mirrored := map[*holder]int64{}
	a := timerarray.New[*holder](func(h *holder, remain int64) {
		h.remain = remain
		mirrored[h] = remain
	})

	h := &holder{}
	a.Insert(100, h)
	assert.Equal(t, int64(100), h.remain)

	a.ApplyDebt(40)
	assert.Equal(t, int64(60), h.remain)
}
