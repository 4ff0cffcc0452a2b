// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package libio

import "fmt"

// Kind identifies the payload variant of an Event: a caller-facing bit-set
// (read=1, write=2, timer=4, signal=8, child=16, flag=32). The internal
// "queued" presence bit lives on eventOptions instead of Kind, since in Go
// it is cleaner to keep the dispatch-queue membership flag out of the
// caller-facing kind space.
type Kind uint8

// Event kinds.
const (
	KindRead Kind = 1 << iota
	KindWrite
	KindTimer
	KindSignal
	KindChild
	KindFlag
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindRead:
		return "Read"
	case KindWrite:
		return "Write"
	case KindTimer:
		return "Timer"
	case KindSignal:
		return "Signal"
	case KindChild:
		return "Child"
	case KindFlag:
		return "Flag"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Has reports whether set contains k.
func (set Kind) Has(k Kind) bool { return set&k != 0 }

// AllKinds is the bit-set accepted by a reactor configured to accept
// everything this library defines.
const AllKinds = KindRead | KindWrite | KindTimer | KindSignal | KindChild | KindFlag
