// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build linux
// +build linux

// Package rnetutil provides the raw vectored sendmsg/recvmsg plumbing the
// socket queue needs for true gather-send/scatter-receive, generalized
// from TCP/connected-UDP framing to the datagram-with-optional-peer-address
// shape this library's socket queue needs. The raw sockaddr layouts poked
// here (Port as a 2-byte big-endian field, no leading Len byte) are the
// Linux ABI; other unix variants (notably darwin, which prefixes a sin_len
// byte) need their own variant of this file, left unimplemented per the
// documented scope reduction (DESIGN.md).
package rnetutil

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// ToIovec converts a slice of buffers into the unix.Iovec slice a raw
// sendmsg/recvmsg syscall requires.
func ToIovec(bufs [][]byte) []unix.Iovec {
	iov := make([]unix.Iovec, 0, len(bufs))
	for i := range bufs {
		if len(bufs[i]) == 0 {
			continue
		}
		v := unix.Iovec{Base: &bufs[i][0]}
		v.SetLen(len(bufs[i]))
		iov = append(iov, v)
	}
	return iov
}

// SendmsgVec performs a gather-send: fd, one or more buffers, and an
// optional destination address (nil for a connected socket's default peer).
// Returns the number of bytes sent.
func SendmsgVec(fd int, bufs [][]byte, to unix.Sockaddr) (int, error) {
	iov := ToIovec(bufs)
	var msg unix.Msghdr
	if len(iov) > 0 {
		msg.Iov = &iov[0]
		msg.SetIovlen(len(iov))
	}
	if to != nil {
		ptr, salen, err := sockaddrPointer(to)
		if err != nil {
			return 0, err
		}
		msg.Name = (*byte)(ptr)
		msg.Namelen = salen
	}
	n, _, errno := unix.Syscall(unix.SYS_SENDMSG, uintptr(fd), uintptr(unsafe.Pointer(&msg)), 0)
	if errno != 0 {
		return 0, errno
	}
	return int(n), nil
}

// RecvmsgVec performs a scatter-receive into bufs. If wantFrom is true, the
// sender's raw address is decoded and returned as a unix.Sockaddr; ownership
// of that value belongs solely to the caller.
func RecvmsgVec(fd int, bufs [][]byte, wantFrom bool) (n int, from unix.Sockaddr, err error) {
	iov := ToIovec(bufs)
	var msg unix.Msghdr
	if len(iov) > 0 {
		msg.Iov = &iov[0]
		msg.SetIovlen(len(iov))
	}
	var raw unix.RawSockaddrAny
	if wantFrom {
		msg.Name = (*byte)(unsafe.Pointer(&raw))
		msg.Namelen = uint32(unsafe.Sizeof(raw))
	}
	r0, _, errno := unix.Syscall(unix.SYS_RECVMSG, uintptr(fd), uintptr(unsafe.Pointer(&msg)), 0)
	if errno != 0 {
		return 0, nil, errno
	}
	n = int(r0)
	if wantFrom && msg.Namelen > 0 {
		from, err = anyToSockaddr(&raw)
	}
	return n, from, err
}

func sockaddrPointer(sa unix.Sockaddr) (unsafe.Pointer, uint32, error) {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		raw := &unix.RawSockaddrInet4{Family: unix.AF_INET}
		p := (*[2]byte)(unsafe.Pointer(&raw.Port))
		p[0], p[1] = byte(a.Port>>8), byte(a.Port)
		raw.Addr = a.Addr
		return unsafe.Pointer(raw), uint32(unsafe.Sizeof(*raw)), nil
	case *unix.SockaddrInet6:
		raw := &unix.RawSockaddrInet6{Family: unix.AF_INET6, Scope_id: a.ZoneId}
		p := (*[2]byte)(unsafe.Pointer(&raw.Port))
		p[0], p[1] = byte(a.Port>>8), byte(a.Port)
		raw.Addr = a.Addr
		return unsafe.Pointer(raw), uint32(unsafe.Sizeof(*raw)), nil
	case *unix.SockaddrUnix:
		raw, salen, err := unixRaw(a.Name)
		if err != nil {
			return nil, 0, err
		}
		return unsafe.Pointer(raw), salen, nil
	default:
		return nil, 0, unix.EAFNOSUPPORT
	}
}

func unixRaw(name string) (*unix.RawSockaddrUnix, uint32, error) {
	raw := &unix.RawSockaddrUnix{Family: unix.AF_UNIX}
	if len(name) >= len(raw.Path) {
		return nil, 0, unix.EINVAL
	}
	for i := 0; i < len(name); i++ {
		raw.Path[i] = int8(name[i])
	}
	return raw, uint32(unsafe.Sizeof(*raw)), nil
}

// anyToSockaddr decodes a RawSockaddrAny into the concrete unix.Sockaddr
// variant for its address family, so the caller can round-trip it into an
// Endpoint.
func anyToSockaddr(raw *unix.RawSockaddrAny) (unix.Sockaddr, error) {
	switch raw.Addr.Family {
	case unix.AF_INET:
		in4 := (*unix.RawSockaddrInet4)(unsafe.Pointer(raw))
		p := (*[2]byte)(unsafe.Pointer(&in4.Port))
		sa := &unix.SockaddrInet4{Port: int(p[0])<<8 | int(p[1])}
		sa.Addr = in4.Addr
		return sa, nil
	case unix.AF_INET6:
		in6 := (*unix.RawSockaddrInet6)(unsafe.Pointer(raw))
		p := (*[2]byte)(unsafe.Pointer(&in6.Port))
		sa := &unix.SockaddrInet6{
			Port:   int(p[0])<<8 | int(p[1]),
			ZoneId: in6.Scope_id,
		}
		sa.Addr = in6.Addr
		return sa, nil
	case unix.AF_UNIX:
		un := (*unix.RawSockaddrUnix)(unsafe.Pointer(raw))
		buf := make([]byte, 0, len(un.Path))
		for _, c := range un.Path {
			if c == 0 {
				break
			}
			buf = append(buf, byte(c))
		}
		return &unix.SockaddrUnix{Name: string(buf)}, nil
	default:
		return nil, unix.EAFNOSUPPORT
	}
}
