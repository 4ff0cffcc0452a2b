// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Package timerarray implements the reactor's sorted-array timer
// structure: binary-search insert, identity-matched remove, and the mass
// "timer debt" subtraction that keeps every entry's Remain measured from
// "now" without touching each entry on every tick.
//
// The array-of-pointers shape with binary-search insert is adequate for
// the expected timer counts; a min-heap is an acceptable alternative only
// if Remove can use back-pointers, which the identity-scan approach here
// avoids needing.
package timerarray

import "sort"

// Entry is the timer-array element. T is the caller's per-timer identity
// (typically *Event); the array only orders and mutates Remain, leaving
// everything else to the caller.
type Entry[T any] struct {
	Remain int64 // nanoseconds remaining until fire
	Value  T
}

// Array is a slice sorted ascending by Remain, with duplicates allowed.
// sync, if non-nil, is invoked with the authoritative Remain value every
// time an entry's Remain changes, so a caller whose T carries its own
// Remain-shaped field (e.g. an Event) never has two diverging copies of it.
type Array[T any] struct {
	entries []Entry[T]
	sync    func(T, int64)
}

// New creates an Array. sync is called whenever an entry's Remain value is
// written, so the caller can mirror it onto its own value type; it may be
// nil.
func New[T any](sync func(T, int64)) *Array[T] {
	return &Array[T]{sync: sync}
}

func (a *Array[T]) notify(v T, remain int64) {
	if a.sync != nil {
		a.sync(v, remain)
	}
}

// Len returns the number of timers.
func (a *Array[T]) Len() int { return len(a.entries) }

// At returns the entry at position i. The array is sorted ascending by
// Remain.
func (a *Array[T]) At(i int) Entry[T] { return a.entries[i] }

// Insert locates the leftmost position with strictly greater Remain via
// binary search, then shifts the tail one slot right.
func (a *Array[T]) Insert(remain int64, v T) {
	i := sort.Search(len(a.entries), func(i int) bool { return a.entries[i].Remain > remain })
	a.entries = append(a.entries, Entry[T]{})
	copy(a.entries[i+1:], a.entries[i:])
	a.entries[i] = Entry[T]{Remain: remain, Value: v}
	a.notify(v, remain)
}

// Remove locates entries with the matching Remain via binary search, then
// scans forward among equal-Remain entries for the exact identity supplied
// by eq. Reports false ("invalid argument") if not found.
func (a *Array[T]) Remove(remain int64, eq func(T) bool) bool {
	i := sort.Search(len(a.entries), func(i int) bool { return a.entries[i].Remain >= remain })
	for ; i < len(a.entries) && a.entries[i].Remain == remain; i++ {
		if eq(a.entries[i].Value) {
			a.entries = append(a.entries[:i], a.entries[i+1:]...)
			return true
		}
	}
	return false
}

// ApplyDebt subtracts debt from every entry's Remain, preserving relative
// order.
func (a *Array[T]) ApplyDebt(debt int64) {
	for i := range a.entries {
		a.entries[i].Remain -= debt
		a.notify(a.entries[i].Value, a.entries[i].Remain)
	}
}

// PopExpired removes every entry with Remain <= 0 (after an ApplyDebt
// call), in ascending order, and returns their values. Order is preserved
// since the array is sorted ascending by Remain.
func (a *Array[T]) PopExpired() []T {
	n := 0
	for n < len(a.entries) && a.entries[n].Remain <= 0 {
		n++
	}
	if n == 0 {
		return nil
	}
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = a.entries[i].Value
	}
	a.entries = a.entries[n:]
	return out
}

// Sorted reports whether the array is currently sorted ascending by
// Remain, exposed for tests.
func (a *Array[T]) Sorted() bool {
	for i := 1; i < len(a.entries); i++ {
		if a.entries[i-1].Remain > a.entries[i].Remain {
			return false
		}
	}
	return true
}
