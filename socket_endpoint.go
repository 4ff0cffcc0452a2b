// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package libio

import (
	"bytes"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// socketEndpoint is the sole concrete Endpoint variant: it holds a
// socket address plus enough information to tell IPv4, IPv6 and local
// (AF_UNIX) variants apart, the way the source's single "socket endpoint"
// vtable discriminates on sockaddr_storage.ss_family.
type socketEndpoint struct {
	refCounted
	family int // unix.AF_INET, unix.AF_INET6 or unix.AF_UNIX
	ip     net.IP
	port   int
	zone   uint32
	path   string
}

var _ Endpoint = (*socketEndpoint)(nil)

// NewIPv4Endpoint allocates an IPv4 socket endpoint.
func NewIPv4Endpoint(ip net.IP, port int) Endpoint {
	return &socketEndpoint{refCounted: newRefCounted(), family: unix.AF_INET, ip: ip.To4(), port: port}
}

// NewIPv6Endpoint allocates an IPv6 socket endpoint. zone is the scope ID,
// 0 if none.
func NewIPv6Endpoint(ip net.IP, port int, zone uint32) Endpoint {
	return &socketEndpoint{refCounted: newRefCounted(), family: unix.AF_INET6, ip: ip.To16(), port: port, zone: zone}
}

// NewLocalEndpoint allocates a local (AF_UNIX) path endpoint.
func NewLocalEndpoint(path string) Endpoint {
	return &socketEndpoint{refCounted: newRefCounted(), family: unix.AF_UNIX, path: path}
}

// Retain implements Endpoint.
func (e *socketEndpoint) Retain() Endpoint {
	if e == nil {
		return nil
	}
	e.retain()
	return e
}

// Release implements Endpoint.
func (e *socketEndpoint) Release() {
	if e == nil {
		return
	}
	e.release()
}

// Kind implements Endpoint.
func (e *socketEndpoint) Kind() EndpointKind { return SocketEndpointKind }

// Refs implements Endpoint.
func (e *socketEndpoint) Refs() int { return e.refs() }

// Format implements Endpoint. Formatting rules:
//
//	IPv4:  A.B.C.D:port
//	IPv6:  [x:x:...:x]:port
//	local: unix:<path>
func (e *socketEndpoint) Format() (string, error) {
	return e.memoize(func() (string, error) {
		switch e.family {
		case unix.AF_INET:
			return fmt.Sprintf("%s:%d", e.ip.String(), e.port), nil
		case unix.AF_INET6:
			return fmt.Sprintf("[%s]:%d", e.ip.String(), e.port), nil
		case unix.AF_UNIX:
			return "unix:" + e.path, nil
		default:
			return "", ErrAddressFamily
		}
	})
}

// Convert implements Endpoint. There is only one Endpoint vtable in this
// library, so Convert to SocketEndpointKind is always a Retain; any other
// target kind is unsupported.
func (e *socketEndpoint) Convert(target EndpointKind) (Endpoint, error) {
	if target == SocketEndpointKind {
		return e.Retain(), nil
	}
	return nil, ErrInvalidArgument
}

// Equals implements Endpoint: true iff pointer-identical, false if vtables
// differ, else delegate.
func (e *socketEndpoint) Equals(other Endpoint) bool {
	if other == nil {
		return false
	}
	if o, ok := other.(*socketEndpoint); ok && o == e {
		return true
	}
	if other.Kind() != e.Kind() {
		return false
	}
	return e.Compare(other) == 0
}

// Compare implements Endpoint: order by vtable identity, then by address
// family, then by port (for IP variants), then by raw address bytes.
// Local endpoints compare path bytes directly and never fall through the
// IPv6 branch.
func (e *socketEndpoint) Compare(other Endpoint) int {
	o, ok := other.(*socketEndpoint)
	if !ok {
		return cmpInt(int(e.Kind()), int(other.Kind()))
	}
	if c := cmpInt(e.family, o.family); c != 0 {
		return c
	}
	switch e.family {
	case unix.AF_INET, unix.AF_INET6:
		if c := cmpInt(e.port, o.port); c != 0 {
			return c
		}
		return bytes.Compare(e.ip, o.ip)
	case unix.AF_UNIX:
		return bytes.Compare([]byte(e.path), []byte(o.path))
	default:
		return 0
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Family returns the socket address family (unix.AF_INET, unix.AF_INET6 or
// unix.AF_UNIX).
func (e *socketEndpoint) Family() int { return e.family }

// sockaddr converts the endpoint to a unix.Sockaddr suitable for
// bind/connect/sendmsg.
func (e *socketEndpoint) sockaddr() (unix.Sockaddr, error) {
	switch e.family {
	case unix.AF_INET:
		sa := &unix.SockaddrInet4{Port: e.port}
		copy(sa.Addr[:], e.ip.To4())
		return sa, nil
	case unix.AF_INET6:
		sa := &unix.SockaddrInet6{Port: e.port, ZoneId: e.zone}
		copy(sa.Addr[:], e.ip.To16())
		return sa, nil
	case unix.AF_UNIX:
		return &unix.SockaddrUnix{Name: e.path}, nil
	default:
		return nil, ErrAddressFamily
	}
}

// socketEndpointFromSockaddr converts a kernel-reported address back into
// an Endpoint, transferring ownership to the caller.
func socketEndpointFromSockaddr(sa unix.Sockaddr) (Endpoint, error) {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		ip := make(net.IP, 4)
		copy(ip, a.Addr[:])
		return NewIPv4Endpoint(ip, a.Port), nil
	case *unix.SockaddrInet6:
		ip := make(net.IP, 16)
		copy(ip, a.Addr[:])
		return NewIPv6Endpoint(ip, a.Port, a.ZoneId), nil
	case *unix.SockaddrUnix:
		return NewLocalEndpoint(a.Name), nil
	default:
		return nil, ErrAddressFamily
	}
}
