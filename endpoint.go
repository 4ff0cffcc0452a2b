// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package libio

// EndpointKind identifies an Endpoint's concrete vtable. Ordering across
// endpoints compares kind first, then delegates to the concrete type's own
// Compare; a small stable integer identity is the idiomatic Go substitute
// for comparing unsafe pointers to a C ops struct.
type EndpointKind int

// SocketEndpointKind is the only Endpoint vtable this library implements.
const SocketEndpointKind EndpointKind = iota + 1

// Endpoint is a reference-counted, polymorphic address value.
// Concrete variants implement socket addresses (IPv4, IPv6, local path).
type Endpoint interface {
	// Retain increments the reference count and returns the same
	// Endpoint, tolerating a nil receiver.
	Retain() Endpoint
	// Release decrements the reference count; at zero the Endpoint frees
	// its cached string and any vtable-private state. Tolerates nil.
	Release()
	// Format lazily memoizes and returns a text form. Failures return a
	// non-nil error and leave any previous cache untouched.
	Format() (string, error)
	// Convert returns an Endpoint of the target vtable, retaining self if
	// already of that kind, or ErrInvalidArgument if unsupported.
	Convert(target EndpointKind) (Endpoint, error)
	// Equals reports whether two endpoints denote the same address.
	Equals(other Endpoint) bool
	// Compare orders first by vtable identity, then delegates to the
	// concrete, same-kind comparison. Returns <0, 0, >0.
	Compare(other Endpoint) int

	// Kind reports the Endpoint's concrete vtable.
	Kind() EndpointKind
	// Refs reports the current reference count, for tests and diagnostics.
	Refs() int
}

// refCounted is embedded by concrete Endpoint implementations to provide
// the shared reference-count and format-cache bookkeeping behind
// allocate/retain/release/format.
type refCounted struct {
	count  int
	cached *string
}

func newRefCounted() refCounted { return refCounted{count: 1} }

func (r *refCounted) retain() { r.count++ }

// release decrements the count and reports whether it reached zero.
func (r *refCounted) release() bool {
	if r.count <= 0 {
		return false
	}
	r.count--
	if r.count == 0 {
		r.cached = nil
		return true
	}
	return false
}

func (r *refCounted) refs() int { return r.count }

// memoize runs format once and caches the result, matching the
// "lazily memoize a text form" contract: the first successful call
// computes and stores the value, later calls return the cache, and a
// failing call leaves any existing cache in place.
func (r *refCounted) memoize(format func() (string, error)) (string, error) {
	if r.cached != nil {
		return *r.cached, nil
	}
	s, err := format()
	if err != nil {
		return "", err
	}
	r.cached = &s
	return s, nil
}
